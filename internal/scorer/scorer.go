package scorer

import (
	"context"
	"fmt"

	"voice-qa-scores-go/internal/llm"
	"voice-qa-scores-go/internal/logger"
	"voice-qa-scores-go/internal/rubric"
)

// Sentinel is the literal answer the model may return instead of a score.
// Like the diarization sentinel it is passed through as data.
const Sentinel = "Failure 002: Unsure about question scoring!"

const restrictionsTemplate = `Your final response should only contain the score based on your best judgement. The score can either be 0 OR %d. Do not return a score between 0 and %d. Do not include any additional text or characters. If you do not understand how to score a question, you may stop the scoring and respond only with '%s'.`

// Prompt builds the scoring prompt for one rubric template: role context,
// the question, the 0-or-full-score constraint clause, then the diarized
// transcript.
func Prompt(role string, tpl rubric.Template, diarized string) string {
	restrictions := fmt.Sprintf(restrictionsTemplate, tpl.FullScore, tpl.FullScore, Sentinel)
	prompt := role + " Question: " + tpl.Question + " " + restrictions
	return prompt + "\n Diarized transcript : \n" + diarized
}

// Score asks the generation service to score one rubric question against the
// diarized transcript, nAgents times, and reduces the raw answers by
// plurality vote. The winning answer is returned as text: it is NOT
// validated against {0, full_score} here, so sentinel or free-form answers
// flow through and integer coercion happens one layer up.
func Score(ctx context.Context, gen llm.Generator, diarized string, set rubric.Set, key, role string, nAgents int) (string, error) {
	if nAgents < 1 {
		return "", fmt.Errorf("score %q: nAgents must be >= 1, got %d", key, nAgents)
	}
	tpl, err := set.Template(key)
	if err != nil {
		return "", fmt.Errorf("score: %w", err)
	}

	log := logger.New().WithComponent("scorer").WithField("template_key", key)
	prompt := Prompt(role, tpl, diarized)

	// Repeated calls are independent and sequential; order is preserved so
	// the tie-break below stays stable.
	answers := make([]string, 0, nAgents)
	for i := 0; i < nAgents; i++ {
		a, err := gen.Generate(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("score %q (agent %d/%d): %w", key, i+1, nAgents, err)
		}
		answers = append(answers, a)
	}

	winner := pluralityVote(answers)
	log.WithField("answers", len(answers)).WithField("answer", winner).Debug("scored template")
	return winner, nil
}

// pluralityVote picks the most frequent exact-string answer; ties go to the
// first-encountered answer. With one answer the vote is that answer.
func pluralityVote(answers []string) string {
	counts := map[string]int{}
	var order []string
	for _, a := range answers {
		if _, seen := counts[a]; !seen {
			order = append(order, a)
		}
		counts[a]++
	}

	best := ""
	bestCount := 0
	for _, a := range order {
		if counts[a] > bestCount {
			best = a
			bestCount = counts[a]
		}
	}
	return best
}
