package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/forPelevin/fallacycheck/internal/apperr"
	"github.com/forPelevin/fallacycheck/internal/domain/fallacies"
)

const (
	provider       = "openrouter"
	defaultModel   = "openai/gpt-4o-mini"
	requestTimeout = 90 * time.Second
	appTitle       = "YouTube Fallacy Checker"
	appReferer     = "https://github.com/forPelevin/fallacycheck"
)

// KeyFunc resolves the API key at request time so a key changed through the
// settings surface applies without rebuilding the adapter.
type KeyFunc func() (string, error)

func StaticKey(key string) KeyFunc {
	return func() (string, error) {
		if strings.TrimSpace(key) == "" {
			return "", apperr.ErrMissingCredential
		}
		return key, nil
	}
}

type Adapter struct {
	keys    KeyFunc
	model   string
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

func New(keys KeyFunc, model, baseURL string, logger *slog.Logger) *Adapter {
	if model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	baseURL = normalizeBaseURL(baseURL)
	return &Adapter{
		keys:    keys,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Minute},
		log:     logger.With("component", "openrouter"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

// Complete sends the fixed two-message exchange and returns the first
// choice's text. A response without choices yields "".
func (a *Adapter) Complete(ctx context.Context, system, user string) (string, error) {
	key, err := a.keys()
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: fallacies.Temperature,
		MaxTokens:   fallacies.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	url := a.baseURL + "/api/v1/chat/completions"

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", appReferer)
	req.Header.Set("X-Title", appTitle)

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", &apperr.UpstreamError{
				Provider: provider,
				Message:  fmt.Sprintf("timeout after %s (model=%s)", requestTimeout, a.model),
				Err:      err,
			}
		}
		return "", &apperr.UpstreamError{Provider: provider, Message: redactSecrets(err.Error(), key), Err: err}
	}
	defer resp.Body.Close()
	a.log.Debug("completion response", "status", resp.StatusCode, "model", a.model, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", statusError(resp, key)
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", &apperr.UpstreamError{Provider: provider, Status: resp.StatusCode, Message: "decode response: " + err.Error(), Err: err}
	}
	if len(raw.Choices) == 0 {
		return "", nil
	}
	return messageContentToString(raw.Choices[0].Message.Content), nil
}

func statusError(resp *http.Response, key string) error {
	rb, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if readErr != nil {
		return &apperr.UpstreamError{
			Provider: provider,
			Status:   resp.StatusCode,
			Message:  fmt.Sprintf("read body failed: %v", readErr),
		}
	}

	msg := ""
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(rb, &payload) == nil {
		msg = payload.Error.Message
	}
	if msg == "" {
		msg = strings.TrimSpace(string(rb))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	e := &apperr.UpstreamError{
		Provider: provider,
		Status:   resp.StatusCode,
		Message:  truncate(redactSecrets(msg, key), 400),
	}
	if resp.StatusCode == http.StatusUnauthorized {
		e.Err = apperr.ErrInvalidCredential
	}
	return e
}

func messageContentToString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		return b.String()
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
