package diarize

import (
	"context"
	"fmt"
	"time"

	"voice-qa-scores-go/internal/llm"
	"voice-qa-scores-go/internal/logger"
)

// Sentinel is the literal response the model is instructed to return when it
// cannot attribute speakers. It is data, not an error: downstream stages
// consume it as ordinary transcript text.
const Sentinel = "Failure 001: Unsure about speaker diarization. Please refer to human."

const promptTemplate = `This is a transcript of a customer support call at a disaster relief center. The transcript is machine generated and may contain small inconsistencies. Your task is to label each dialogue as either "Agent:" or "Caller:" based on the content and tone. The conversation is typically started off by the agent. The agent starts off the conversation with their introduction and asking the caller's identification. The caller responds by identifying themself and begins to explain the reason for their call.
As you attempt this diarization task, you are allowed to fix spelling errors and punctuation. You must not add any additional lines or content to the transcript. You must only return the transcript and no additional text in your response. You must not remove any text or lines from the content either. If you are not sure about who said a particular line, you can stop the task and respond only with "%s"

TRANSCRIPT:
%s`

// Prompt builds the fixed diarization instruction around the raw transcript.
func Prompt(transcript string) string {
	return fmt.Sprintf(promptTemplate, Sentinel, transcript)
}

// Diarize labels the transcript's lines by speaker via the text-generation
// service. The model output is returned unmodified: the pipeline does not
// verify that the Agent:/Caller: instruction was honored, and the sentinel
// flows through as text.
func Diarize(ctx context.Context, gen llm.Generator, transcript string) (string, error) {
	log := logger.New().WithComponent("diarize")
	start := time.Now()

	out, err := gen.Generate(ctx, Prompt(transcript))
	if err != nil {
		return "", fmt.Errorf("diarize transcript: %w", err)
	}

	log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("diarization complete")
	return out, nil
}
