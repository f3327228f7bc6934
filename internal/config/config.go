// Package config loads service configuration from the environment. A .env
// file in the working directory is loaded first when present, so local runs
// need no exported variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Provider names for the text-generation backend.
const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

// Config holds everything the entrypoints need.
type Config struct {
	// HTTPAddr is the listen address for the API server.
	HTTPAddr string

	// LogLevel is a zerolog level name (debug, info, warn, ...).
	LogLevel string

	// Provider selects the model backend: "gemini" or "claude".
	Provider string
	// Model overrides the provider's default model when set.
	Model string
	// AnthropicAPIKey is required when Provider is "claude".
	AnthropicAPIKey string
	// LLMTimeout bounds every model call.
	LLMTimeout time.Duration

	// BigQueryProject and BigQueryDataset locate the warehouse tables.
	// Empty project disables the warehouse-backed endpoints.
	BigQueryProject string
	BigQueryDataset string

	// GCSBucket is where analysis artifacts are written. Empty disables
	// artifact upload.
	GCSBucket string

	// QueueSize is the in-memory job queue buffer.
	QueueSize int
}

// Load reads configuration from the environment, applying defaults.
func Load() (Config, error) {
	// Missing .env is fine; explicit environment always wins.
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		Provider:        getenv("LLM_PROVIDER", ProviderGemini),
		Model:           os.Getenv("LLM_MODEL"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		BigQueryProject: os.Getenv("BIGQUERY_PROJECT"),
		BigQueryDataset: getenv("BIGQUERY_DATASET", "expenses"),
		GCSBucket:       os.Getenv("GCS_BUCKET"),
	}

	timeout, err := getduration("LLM_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMTimeout = timeout

	size, err := getint("JOB_QUEUE_SIZE", 16)
	if err != nil {
		return Config{}, err
	}
	cfg.QueueSize = size

	switch cfg.Provider {
	case ProviderGemini, ProviderClaude:
	default:
		return Config{}, fmt.Errorf("config: unknown LLM_PROVIDER %q", cfg.Provider)
	}
	if cfg.Provider == ProviderClaude && cfg.AnthropicAPIKey == "" {
		return Config{}, fmt.Errorf("config: ANTHROPIC_API_KEY is required for provider %q", ProviderClaude)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
