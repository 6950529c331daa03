package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"voice-qa-scores-go/internal/aggregator"
	"voice-qa-scores-go/internal/diarize"
	"voice-qa-scores-go/internal/llm"
	"voice-qa-scores-go/internal/logger"
	"voice-qa-scores-go/internal/rubric"
	"voice-qa-scores-go/internal/transcription"
	"voice-qa-scores-go/internal/types"
)

// Upload is one audio file handed to the batch driver.
type Upload struct {
	Name    string
	Content io.Reader
}

// FileError records a call whose transcription or diarization faulted. The
// file keeps its row (filename only) so the table stays one row per upload.
type FileError struct {
	Filename string
	Err      error
}

// Pipeline wires the external collaborators for one batch run.
type Pipeline struct {
	Transcriber transcription.Transcriber
	Generator   llm.Generator
}

// ProcessBatch runs transcription -> diarization -> score accumulation for
// every upload, sequentially and in upload order, and concatenates the rows
// into one table. A fault in one file never aborts the batch.
func (p Pipeline) ProcessBatch(ctx context.Context, uploads []Upload, set rubric.Set) (types.ResultTable, []FileError) {
	log := logger.New().WithComponent("processor")

	var table types.ResultTable
	var errs []FileError
	for i, up := range uploads {
		fileLog := log.WithField("file_index", i).WithField("filename", up.Name)
		fileLog.Info("processing call")

		start := time.Now()
		row, err := p.processOne(ctx, up, set)
		if err != nil {
			fileLog.WithError(err).Error("call processing faulted")
			errs = append(errs, FileError{Filename: up.Name, Err: err})
			row = types.NewResultRow()
		}
		row.FilenamePath = up.Name
		table.Append(row)
		fileLog.WithField("duration_ms", time.Since(start).Milliseconds()).Info("call processed")
	}
	return table, errs
}

// processOne spools the upload to a temp file for the transcription engine
// and runs the per-call pipeline. The temp file is removed whether or not
// transcription succeeds.
func (p Pipeline) processOne(ctx context.Context, up Upload, set rubric.Set) (types.ResultRow, error) {
	tmp, err := os.CreateTemp("", "voiceqa-*.wav")
	if err != nil {
		return types.ResultRow{}, fmt.Errorf("create temp audio: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, up.Content); err != nil {
		tmp.Close()
		return types.ResultRow{}, fmt.Errorf("spool upload %q: %w", up.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return types.ResultRow{}, fmt.Errorf("spool upload %q: %w", up.Name, err)
	}

	transcript, err := p.Transcriber.Transcribe(ctx, tmpPath)
	if err != nil {
		return types.ResultRow{}, fmt.Errorf("transcribe %q: %w", up.Name, err)
	}

	diarized, err := diarize.Diarize(ctx, p.Generator, transcript)
	if err != nil {
		return types.ResultRow{}, fmt.Errorf("diarize %q: %w", up.Name, err)
	}

	return aggregator.AccumulateScores(ctx, p.Generator, set, diarized), nil
}
