package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"LLM_PROVIDER", "OPENROUTER_API_KEY", "OPENROUTER_MODEL", "OPENROUTER_ALLOWED_HOSTS",
		"CACHE_BACKEND", "CACHE_MAX_ENTRIES", "CACHE_TTL", "FALLACYCHECK_LOG_LEVEL", "LISTEN_ADDR",
	} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "openrouter", cfg.LLMProvider)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.OpenRouterModel)
	assert.Empty(t, cfg.OpenRouterAPIKey)
	assert.Nil(t, cfg.OpenRouterAllowedHosts)
	assert.Equal(t, "memory", cfg.CacheBackend)
	assert.Equal(t, 0, cfg.CacheMaxEntries)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:8787", cfg.ListenAddr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Ollama")
	t.Setenv("OPENROUTER_ALLOWED_HOSTS", " openrouter.ai, proxy.internal ,")
	t.Setenv("CACHE_BACKEND", "REDIS")
	t.Setenv("CACHE_MAX_ENTRIES", "64")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("FALLACYCHECK_LOG_LEVEL", "debug")

	cfg := Load()
	assert.Equal(t, "ollama", cfg.LLMProvider)
	assert.Equal(t, []string{"openrouter.ai", "proxy.internal"}, cfg.OpenRouterAllowedHosts)
	assert.Equal(t, "redis", cfg.CacheBackend)
	assert.Equal(t, 64, cfg.CacheMaxEntries)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("CACHE_MAX_ENTRIES", "-3")
	t.Setenv("CACHE_TTL", "soon")

	cfg := Load()
	assert.Equal(t, 0, cfg.CacheMaxEntries)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"Warning": slog.LevelWarn,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestSetupLogger_FansOutToStderrAndFile(t *testing.T) {
	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "app.log")
	logger, cleanup := setupLogger(&stderr, path, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("analysis complete", "video", "abc")
	require.NoError(t, cleanup())

	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "video=abc")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(b, &rec))
	assert.Equal(t, "analysis complete", rec["msg"])
	assert.Equal(t, "abc", rec["video"])
}

func TestSetupLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo)
	logger.Info("hello")
	require.NoError(t, cleanup())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"hello"`)
}

func TestSetupLogger_UnwritableFileFallsBack(t *testing.T) {
	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "missing", "app.log")
	logger, cleanup := setupLogger(&stderr, path, slog.LevelInfo)
	require.NotNil(t, logger)
	require.NoError(t, cleanup())
	assert.Contains(t, stderr.String(), "using stderr only")
}
