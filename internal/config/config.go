// Package config reads fallacycheck settings from the environment.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values.
type Config struct {
	// Completion provider
	LLMProvider            string
	OpenRouterAPIKey       string
	OpenRouterModel        string
	OpenRouterBaseURL      string
	OpenRouterAllowedHosts []string
	OllamaHost             string
	OllamaModel            string

	// Caption source
	YouTubeBaseURL      string
	YouTubeAllowedHosts []string
	YouTubeCookie       string
	YouTubeSAPISID      string

	// Transcript cache
	CacheBackend    string
	CacheMaxEntries int
	CacheTTL        time.Duration
	RedisAddr       string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Local video tools
	FFmpegPath   string
	FFprobePath  string
	WhisperBin   string
	WhisperModel string
	WorkDir      string

	CredentialsFile string
	ListenAddr      string
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		LLMProvider:            strings.ToLower(getEnv("LLM_PROVIDER", "openrouter")),
		OpenRouterAPIKey:       getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterModel:        getEnv("OPENROUTER_MODEL", "openai/gpt-4o-mini"),
		OpenRouterBaseURL:      getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai"),
		OpenRouterAllowedHosts: splitList(getEnv("OPENROUTER_ALLOWED_HOSTS", "")),
		OllamaHost:             getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:            getEnv("OLLAMA_MODEL", "llama3.1"),

		YouTubeBaseURL:      getEnv("YOUTUBE_BASE_URL", "https://www.youtube.com"),
		YouTubeAllowedHosts: splitList(getEnv("YOUTUBE_ALLOWED_HOSTS", "")),
		YouTubeCookie:       getEnv("YOUTUBE_COOKIE", ""),
		YouTubeSAPISID:      getEnv("YOUTUBE_SAPISID", ""),

		CacheBackend:    strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		CacheMaxEntries: parseInt(getEnv("CACHE_MAX_ENTRIES", "0")),
		CacheTTL:        parseDuration(getEnv("CACHE_TTL", "30m"), 30*time.Minute),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),

		LogFile:  getEnv("FALLACYCHECK_LOG_FILE", filepath.Join(os.TempDir(), "fallacycheck.log")),
		LogLevel: parseLogLevel(getEnv("FALLACYCHECK_LOG_LEVEL", "INFO")),

		FFmpegPath:   getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:  getEnv("FFPROBE_PATH", "ffprobe"),
		WhisperBin:   getEnv("WHISPER_BIN", ".cache/bin/whisper.cpp"),
		WhisperModel: getEnv("WHISPER_MODEL", ".cache/models/ggml-base.bin"),
		WorkDir:      getEnv("FALLACYCHECK_WORK_DIR", ".cache"),

		CredentialsFile: getEnv("FALLACYCHECK_CREDENTIALS", ""),
		ListenAddr:      getEnv("LISTEN_ADDR", "127.0.0.1:8787"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
