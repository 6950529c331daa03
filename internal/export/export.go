package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
	"voice-qa-scores-go/internal/types"
)

// header builds the column layout: filename_path first, then the union of
// question titles in first-encountered order.
func header(table types.ResultTable) []string {
	return append([]string{"filename_path"}, table.Columns()...)
}

// ToCSV serializes the result table. Row order is preserved; a row missing a
// column gets an empty cell.
func ToCSV(table types.ResultTable) ([]byte, error) {
	cols := header(table)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(cols); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range table.Rows {
		record := make([]string, len(cols))
		record[0] = row.FilenamePath
		for i, title := range cols[1:] {
			if score, ok := row.Scores[title]; ok {
				record[i+1] = strconv.Itoa(score)
			}
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ToXLSX renders the same table as a spreadsheet, one sheet, same layout as
// the CSV.
func ToXLSX(table types.ResultTable) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	cols := header(table)
	for i, col := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("xlsx header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return nil, fmt.Errorf("xlsx header cell: %w", err)
		}
	}
	for r, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, fmt.Errorf("xlsx cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, row.FilenamePath); err != nil {
			return nil, fmt.Errorf("xlsx cell: %w", err)
		}
		for i, title := range cols[1:] {
			score, ok := row.Scores[title]
			if !ok {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(i+2, r+2)
			if err != nil {
				return nil, fmt.Errorf("xlsx cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, score); err != nil {
				return nil, fmt.Errorf("xlsx cell: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
