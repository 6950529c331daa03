package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"voice-qa-scores-go/internal/rubric"
)

// captureTranscriber records the temp audio paths it was handed and whether
// the file existed at call time.
type captureTranscriber struct {
	transcript string
	err        error
	paths      []string
	fileSeen   []bool
}

func (c *captureTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	c.paths = append(c.paths, audioPath)
	_, statErr := os.Stat(audioPath)
	c.fileSeen = append(c.fileSeen, statErr == nil)
	if c.err != nil {
		return "", c.err
	}
	return c.transcript, nil
}

// routingGenerator answers the diarization prompt with a labeled transcript
// and every scoring prompt with a fixed score.
type routingGenerator struct {
	score string
}

func (g routingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "diarization task") {
		return "Agent: Hello. Caller: Hi.", nil
	}
	return g.score, nil
}

func testSet(t *testing.T) rubric.Set {
	t.Helper()
	set, err := rubric.Parse([]byte(`
templates:
  tone_check:
    question_title: "tone"
    question: "Was the agent polite?"
    full_score: 3
`))
	if err != nil {
		t.Fatalf("parse rubric: %v", err)
	}
	return set
}

func uploads(n int) []Upload {
	var ups []Upload
	for i := 0; i < n; i++ {
		ups = append(ups, Upload{
			Name:    fmt.Sprintf("call_%d.wav", i),
			Content: strings.NewReader("fake audio bytes"),
		})
	}
	return ups
}

func TestProcessBatch_OneRowPerUploadInOrder(t *testing.T) {
	tr := &captureTranscriber{transcript: "hello hi"}
	pipe := Pipeline{Transcriber: tr, Generator: routingGenerator{score: "3"}}

	table, errs := pipe.ProcessBatch(context.Background(), uploads(3), testSet(t))
	if len(errs) != 0 {
		t.Fatalf("ProcessBatch() errors = %v, want none", errs)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("ProcessBatch() rows = %d, want 3", len(table.Rows))
	}
	for i, row := range table.Rows {
		wantName := fmt.Sprintf("call_%d.wav", i)
		if row.FilenamePath != wantName {
			t.Errorf("row %d filename_path = %q, want %q", i, row.FilenamePath, wantName)
		}
		if row.Scores["tone"] != 3 {
			t.Errorf("row %d tone = %d, want 3", i, row.Scores["tone"])
		}
	}
}

func TestProcessBatch_TempFilesCleanedUp(t *testing.T) {
	tr := &captureTranscriber{transcript: "hello hi"}
	pipe := Pipeline{Transcriber: tr, Generator: routingGenerator{score: "3"}}

	pipe.ProcessBatch(context.Background(), uploads(2), testSet(t))

	if len(tr.paths) != 2 {
		t.Fatalf("transcriber saw %d files, want 2", len(tr.paths))
	}
	for i, p := range tr.paths {
		if !tr.fileSeen[i] {
			t.Errorf("temp file %q did not exist during transcription", p)
		}
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("temp file %q still on disk after batch", p)
		}
	}
}

func TestProcessBatch_TranscriptionFaultKeepsBatchGoing(t *testing.T) {
	tr := &captureTranscriber{err: errors.New("engine crashed")}
	pipe := Pipeline{Transcriber: tr, Generator: routingGenerator{score: "3"}}

	table, errs := pipe.ProcessBatch(context.Background(), uploads(2), testSet(t))

	if len(table.Rows) != 2 {
		t.Fatalf("ProcessBatch() rows = %d, want 2 (one per upload even on fault)", len(table.Rows))
	}
	if len(errs) != 2 {
		t.Fatalf("ProcessBatch() errors = %d, want 2", len(errs))
	}
	for i, row := range table.Rows {
		if len(row.Scores) != 0 {
			t.Errorf("faulted row %d has scores %v, want none", i, row.Scores)
		}
		if row.FilenamePath == "" {
			t.Errorf("faulted row %d missing filename_path", i)
		}
	}
	// temp files must be gone on the failure path too
	for _, p := range tr.paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("temp file %q still on disk after induced failure", p)
		}
	}
}

func TestProcessBatch_SentinelAnswerStillProducesRow(t *testing.T) {
	tr := &captureTranscriber{transcript: "hello hi"}
	pipe := Pipeline{Transcriber: tr, Generator: routingGenerator{score: "Failure 002: Unsure about question scoring!"}}

	table, errs := pipe.ProcessBatch(context.Background(), uploads(1), testSet(t))
	if len(errs) != 0 {
		t.Fatalf("ProcessBatch() errors = %v, want none", errs)
	}
	if table.Rows[0].Scores["tone"] != -1000 {
		t.Errorf("row tone = %d, want sentinel -1000", table.Rows[0].Scores["tone"])
	}
}
