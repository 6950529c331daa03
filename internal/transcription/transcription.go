package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"voice-qa-scores-go/internal/config"
	"voice-qa-scores-go/internal/logger"
)

// Transcriber converts one audio file into one plain-text transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Client talks to a faster-whisper server. The model size tag, beam width
// and VAD filtering ride along with every upload; the server holds the
// acoustic model.
type Client struct {
	cfg        config.Whisper
	httpClient *http.Client
}

func NewClient(cfg config.Whisper) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type transcribeResponse struct {
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the audio file and joins the recognized segments, in
// chronological order, into one transcript string. Silent audio comes back
// as an empty string. Engine faults propagate to the caller; there is no
// per-file retry policy beyond transport-level backoff.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	log := logger.New().WithComponent("transcription").WithField("audio_path", audioPath)
	start := time.Now()

	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	w.WriteField("model", c.cfg.ModelSize)
	w.WriteField("beam_size", "5")
	w.WriteField("vad_filter", "true")
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.Endpoint, "/") + "/transcribe"
	body := b.Bytes()

	var parsed transcribeResponse
	var lastErr error
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", w.FormDataContentType())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			log.WithError(err).Warn("transcribe request failed")
			return err
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("transcription server error: %s", string(respBody))
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("transcription rejected: %s", string(respBody))
			return backoff.Permanent(lastErr)
		}
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			lastErr = fmt.Errorf("decode transcription response: %v body=%s", err, string(respBody))
			return lastErr
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return "", fmt.Errorf("transcription failed: %w", lastErr)
	}

	texts := make([]string, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			texts = append(texts, t)
		}
	}
	transcript := strings.Join(texts, " ")

	log.WithField("duration_ms", time.Since(start).Milliseconds()).
		WithField("segments", len(parsed.Segments)).
		Info("transcription complete")
	return transcript, nil
}

// Mock is a fixed-transcript Transcriber for offline runs
// (USE_MOCK_TRANSCRIBE=true).
type Mock struct {
	Transcript string
	Err        error
}

func (m Mock) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Transcript, nil
}
