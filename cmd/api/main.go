package main

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"voice-qa-scores-go/internal/config"
	"voice-qa-scores-go/internal/export"
	"voice-qa-scores-go/internal/llm"
	"voice-qa-scores-go/internal/logger"
	"voice-qa-scores-go/internal/mailer"
	"voice-qa-scores-go/internal/processor"
	"voice-qa-scores-go/internal/rubric"
	"voice-qa-scores-go/internal/transcription"
	"voice-qa-scores-go/internal/types"
)

const indexHTML = `<!doctype html>
<html>
<head><title>Call QA Scoring</title></head>
<body>
<h1>Augment Your Team's QA Analysis</h1>
<form action="/score" method="post" enctype="multipart/form-data">
  <p>Audio files (.wav): <input type="file" name="audio" accept=".wav" multiple required></p>
  <p>Questions file (.yaml): <input type="file" name="rubric" accept=".yaml,.yml" required></p>
  <p>Your work email: <input type="email" name="email"></p>
  <p><button type="submit">Run Scores</button></p>
</form>
</body>
</html>`

type scoreResponse struct {
	Columns    []string          `json:"columns"`
	Rows       []types.ResultRow `json:"rows"`
	CSV        string            `json:"csv"`
	FileErrors []string          `json:"file_errors,omitempty"`
	EmailSent  bool              `json:"email_sent"`
	EmailError string            `json:"email_error,omitempty"`
}

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "voice-qa-scores-go").Info("starting service")

	cfg := config.FromEnv()

	var gen llm.Generator = llm.NewClient(cfg.Generation)
	if os.Getenv("USE_MOCK_LLM") == "true" {
		log.Warn("mock LLM mode ON")
		gen = llm.Mock{Response: "0"}
	}
	var tr transcription.Transcriber = transcription.NewClient(cfg.Whisper)
	if os.Getenv("USE_MOCK_TRANSCRIBE") == "true" {
		log.Warn("mock transcription mode ON")
		tr = transcription.Mock{Transcript: "MOCK TRANSCRIPT: Caller reports a delayed relief payment."}
	}

	pipe := processor.Pipeline{Transcriber: tr, Generator: gen}
	mail := mailer.New(cfg.SMTP)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		logger.New().WithRequest(req).Info("health check")
		fmt.Fprint(w, "ok")
	})

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, indexHTML)
	})

	r.Post("/score", func(w http.ResponseWriter, req *http.Request) {
		reqLog := logger.New().WithRequest(req).WithField("handler", "score")
		reqLog.Info("score request received")

		if err := req.ParseMultipartForm(64 << 20); err != nil {
			reqLog.WithError(err).Warn("bad multipart form")
			http.Error(w, "bad multipart form", http.StatusBadRequest)
			return
		}

		audioHeaders := req.MultipartForm.File["audio"]
		if len(audioHeaders) == 0 {
			http.Error(w, "missing audio uploads", http.StatusBadRequest)
			return
		}
		rubricHeaders := req.MultipartForm.File["rubric"]
		if len(rubricHeaders) == 0 {
			http.Error(w, "missing rubric document", http.StatusBadRequest)
			return
		}

		set, err := loadRubric(rubricHeaders[0])
		if err != nil {
			reqLog.WithError(err).Warn("rubric load failed")
			http.Error(w, fmt.Sprintf("rubric error: %v", err), http.StatusBadRequest)
			return
		}
		for key, terr := range set.Validate() {
			reqLog.WithField("template_key", key).WithError(terr).Warn("unusable rubric template, will score as sentinel")
		}

		var uploads []processor.Upload
		for _, fh := range audioHeaders {
			f, err := fh.Open()
			if err != nil {
				http.Error(w, fmt.Sprintf("open upload %q: %v", fh.Filename, err), http.StatusBadRequest)
				return
			}
			defer f.Close()
			uploads = append(uploads, processor.Upload{Name: fh.Filename, Content: f})
		}

		start := time.Now()
		table, fileErrs := pipe.ProcessBatch(req.Context(), uploads, set)
		reqLog.WithField("duration_ms", time.Since(start).Milliseconds()).
			WithField("rows", len(table.Rows)).Info("batch complete")

		csvBytes, err := export.ToCSV(table)
		if err != nil {
			reqLog.WithError(err).Error("csv export failed")
			http.Error(w, "csv export failed", http.StatusInternalServerError)
			return
		}

		switch req.FormValue("format") {
		case "csv":
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", `attachment; filename="results.csv"`)
			w.Write(csvBytes)
			return
		case "xlsx":
			xlsxBytes, err := export.ToXLSX(table)
			if err != nil {
				reqLog.WithError(err).Error("xlsx export failed")
				http.Error(w, "xlsx export failed", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			w.Header().Set("Content-Disposition", `attachment; filename="results.xlsx"`)
			w.Write(xlsxBytes)
			return
		}

		resp := scoreResponse{
			Columns: append([]string{"filename_path"}, table.Columns()...),
			Rows:    table.Rows,
			CSV:     string(csvBytes),
		}
		for _, fe := range fileErrs {
			resp.FileErrors = append(resp.FileErrors, fmt.Sprintf("%s: %v", fe.Filename, fe.Err))
		}

		// email delivery never blocks the CSV path
		if receiver := req.FormValue("email"); receiver != "" {
			if err := mail.SendCSV(req.Context(), receiver, csvBytes, cfg.SMTP.SenderEmail, cfg.SMTP.SenderPassword); err != nil {
				reqLog.WithError(err).Warn("email delivery failed")
				resp.EmailError = err.Error()
			} else {
				resp.EmailSent = true
			}
		}

		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			reqLog.WithError(err).Error("failed to write response")
		}
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 600 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

// loadRubric spools the uploaded rubric document through a temp file and
// parses it. The temp file is removed on every path.
func loadRubric(fh *multipart.FileHeader) (rubric.Set, error) {
	f, err := fh.Open()
	if err != nil {
		return rubric.Set{}, fmt.Errorf("open rubric upload: %w", err)
	}
	defer f.Close()

	tmp, err := os.CreateTemp("", "voiceqa-*.yaml")
	if err != nil {
		return rubric.Set{}, fmt.Errorf("create temp rubric: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, f); err != nil {
		tmp.Close()
		return rubric.Set{}, fmt.Errorf("spool rubric: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return rubric.Set{}, fmt.Errorf("spool rubric: %w", err)
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return rubric.Set{}, fmt.Errorf("read rubric: %w", err)
	}
	return rubric.Parse(data)
}
