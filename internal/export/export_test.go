package export

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"strconv"
	"testing"

	"github.com/xuri/excelize/v2"
	"voice-qa-scores-go/internal/types"
)

func sampleTable() types.ResultTable {
	row1 := types.NewResultRow()
	row1.FilenamePath = "call_a.wav"
	row1.Add("tone", 3)
	row1.Add("greeting", 5)

	row2 := types.NewResultRow()
	row2.FilenamePath = "call_b.wav"
	row2.Add("tone", 0)
	row2.Add("closing", 2)

	var table types.ResultTable
	table.Append(row1)
	table.Append(row2)
	return table
}

func TestToCSV_HeaderAndRows(t *testing.T) {
	data, err := ToCSV(sampleTable())
	if err != nil {
		t.Fatalf("ToCSV() error = %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse produced csv: %v", err)
	}

	wantHeader := []string{"filename_path", "tone", "greeting", "closing"}
	if !reflect.DeepEqual(records[0], wantHeader) {
		t.Errorf("header = %v, want %v", records[0], wantHeader)
	}
	wantRows := [][]string{
		{"call_a.wav", "3", "5", ""},
		{"call_b.wav", "0", "", "2"},
	}
	if len(records) != 3 {
		t.Fatalf("csv has %d records, want 3", len(records))
	}
	for i, want := range wantRows {
		if !reflect.DeepEqual(records[i+1], want) {
			t.Errorf("row %d = %v, want %v", i, records[i+1], want)
		}
	}
}

func TestToCSV_RoundTrip(t *testing.T) {
	table := sampleTable()
	data, err := ToCSV(table)
	if err != nil {
		t.Fatalf("ToCSV() error = %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse produced csv: %v", err)
	}

	header := records[0]
	for r, row := range table.Rows {
		parsed := records[r+1]
		if parsed[0] != row.FilenamePath {
			t.Errorf("row %d filename = %q, want %q", r, parsed[0], row.FilenamePath)
		}
		for c, col := range header[1:] {
			want, ok := row.Scores[col]
			if !ok {
				if parsed[c+1] != "" {
					t.Errorf("row %d col %q = %q, want empty", r, col, parsed[c+1])
				}
				continue
			}
			got, err := strconv.Atoi(parsed[c+1])
			if err != nil || got != want {
				t.Errorf("row %d col %q = %q, want %d", r, col, parsed[c+1], want)
			}
		}
	}
}

func TestToCSV_EmptyTable(t *testing.T) {
	data, err := ToCSV(types.ResultTable{})
	if err != nil {
		t.Fatalf("ToCSV() error = %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse produced csv: %v", err)
	}
	if len(records) != 1 || len(records[0]) != 1 || records[0][0] != "filename_path" {
		t.Errorf("empty table csv = %v, want header-only filename_path", records)
	}
}

func TestToXLSX(t *testing.T) {
	data, err := ToXLSX(sampleTable())
	if err != nil {
		t.Fatalf("ToXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open produced xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("read xlsx rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("xlsx has %d rows, want 3", len(rows))
	}
	wantHeader := []string{"filename_path", "tone", "greeting", "closing"}
	if !reflect.DeepEqual(rows[0], wantHeader) {
		t.Errorf("xlsx header = %v, want %v", rows[0], wantHeader)
	}
	if rows[1][0] != "call_a.wav" || rows[1][1] != "3" {
		t.Errorf("xlsx row 1 = %v, want call_a.wav / 3 ...", rows[1])
	}
}
