package aggregator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"voice-qa-scores-go/internal/llm"
	"voice-qa-scores-go/internal/logger"
	"voice-qa-scores-go/internal/rubric"
	"voice-qa-scores-go/internal/scorer"
	"voice-qa-scores-go/internal/types"
)

// SentinelScore marks a template whose scoring faulted. It replaces the real
// score only when the row is rendered; the fault itself stays visible on the
// TemplateResult for logging.
const SentinelScore = -1000

// nAgents per template. One vote per question matches the batch driver's
// latency budget; scorer.Score handles larger juries.
const nAgents = 1

const systemRole = `You are an experienced customer service quality assurance analyst. Your job is to score customer and agent interactions. You are given a diarized transcript of a customer and an agent. You are to answer the following questions about the transcript.`

// TemplateResult is the typed outcome of scoring one rubric template:
// either a usable integer score or the fault that prevented one.
type TemplateResult struct {
	Key   string
	Title string
	Score int
	Err   error
}

// ScoreTemplate runs the scorer for one template and coerces the answer text
// to an integer. Any fault (unusable template, generation error, non-numeric
// or sentinel answer) is captured on the result, never raised.
func ScoreTemplate(ctx context.Context, gen llm.Generator, set rubric.Set, key, diarized string) TemplateResult {
	res := TemplateResult{Key: key}
	if tpl, err := set.Template(key); err == nil {
		res.Title = tpl.QuestionTitle
	}

	answer, err := scorer.Score(ctx, gen, diarized, set, key, systemRole, nAgents)
	if err != nil {
		res.Err = err
		return res
	}

	n, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		res.Err = fmt.Errorf("template %q: non-numeric answer %q", key, answer)
		return res
	}
	res.Score = n
	return res
}

// MergeTemplateScore folds one template outcome into the row. Duplicate
// question titles accumulate by addition. A faulted template contributes the
// sentinel score; a template without a usable title falls back to its key so
// the fault still lands in a column.
func MergeTemplateScore(row types.ResultRow, res TemplateResult) types.ResultRow {
	title := res.Title
	if title == "" {
		title = res.Key
	}
	if res.Err != nil {
		row.Add(title, SentinelScore)
		return row
	}
	row.Add(title, res.Score)
	return row
}

// AccumulateScores scores every rubric template, in document order, against
// one diarized transcript and folds the outcomes into a single result row.
// A fault in one template never aborts the row.
func AccumulateScores(ctx context.Context, gen llm.Generator, set rubric.Set, diarized string) types.ResultRow {
	log := logger.New().WithComponent("aggregator")
	start := time.Now()

	row := types.NewResultRow()
	for _, key := range set.Keys {
		res := ScoreTemplate(ctx, gen, set, key, diarized)
		if res.Err != nil {
			log.WithField("template_key", key).WithError(res.Err).Warn("template scoring faulted, using sentinel")
		}
		row = MergeTemplateScore(row, res)
	}

	log.WithField("duration_ms", time.Since(start).Milliseconds()).
		WithField("templates", len(set.Keys)).
		Info("call scored")
	return row
}
