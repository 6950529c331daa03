package config

import (
	"os"
	"strconv"
)

// Generation holds the decoding setup for the text-generation service.
// Temperature 0 plus a fixed seed keeps repeated runs reproducible.
type Generation struct {
	Endpoint    string
	Model       string
	Temperature float64
	Seed        int
}

// Whisper points at the speech-to-text server and picks the model size tag.
type Whisper struct {
	Endpoint  string
	ModelSize string
}

// SMTP carries the mail relay and sender credentials. Credentials are never
// hard-coded; empty values surface as a credential fault at send time.
type SMTP struct {
	Host           string
	Port           int
	SenderEmail    string
	SenderPassword string
}

type Config struct {
	Port       string
	Generation Generation
	Whisper    Whisper
	SMTP       SMTP
}

// FromEnv builds the full configuration from the environment. cmd/api loads
// .env via godotenv before calling this.
func FromEnv() Config {
	return Config{
		Port: envOr("PORT", "8080"),
		Generation: Generation{
			Endpoint:    envOr("OLLAMA_URL", "http://localhost:11434/api/generate"),
			Model:       envOr("OLLAMA_MODEL", "mistral"),
			Temperature: envFloatOr("OLLAMA_TEMPERATURE", 0),
			Seed:        envIntOr("OLLAMA_SEED", 313),
		},
		Whisper: Whisper{
			Endpoint:  envOr("WHISPER_URL", "http://localhost:8000"),
			ModelSize: envOr("WHISPER_MODEL_SIZE", "base"),
		},
		SMTP: SMTP{
			Host:           envOr("SMTP_HOST", "smtp.gmail.com"),
			Port:           envIntOr("SMTP_PORT", 465),
			SenderEmail:    os.Getenv("SENDER_EMAIL"),
			SenderPassword: os.Getenv("SENDER_PASSWORD"),
		},
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envIntOr(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloatOr(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
