package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 16, cfg.QueueSize)
	assert.Equal(t, "expenses", cfg.BigQueryDataset)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("LLM_PROVIDER", "claude")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("JOB_QUEUE_SIZE", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, ProviderClaude, cfg.Provider)
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 3, cfg.QueueSize)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("unknown provider", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "llama")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("claude without key", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "claude")
		t.Setenv("ANTHROPIC_API_KEY", "")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("bad timeout", func(t *testing.T) {
		t.Setenv("LLM_TIMEOUT", "soon")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("bad queue size", func(t *testing.T) {
		t.Setenv("JOB_QUEUE_SIZE", "many")
		_, err := Load()
		require.Error(t, err)
	})
}
