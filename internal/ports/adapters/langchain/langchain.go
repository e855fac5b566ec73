// Package langchain adapts langchaingo chat models (OpenAI, Ollama) to the
// completion port, as an alternative to the OpenRouter adapter.
package langchain

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/forPelevin/fallacycheck/internal/apperr"
	"github.com/forPelevin/fallacycheck/internal/domain/fallacies"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type Config struct {
	Provider string
	Model    string
	APIKey   string
	// BaseURL is the OpenAI-compatible API root or the Ollama server URL.
	BaseURL string
}

type Adapter struct {
	llm      llms.Model
	provider string
}

func New(cfg Config) (*Adapter, error) {
	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, apperr.ErrMissingCredential
		}
		opts := []openai.Option{openai.WithToken(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	return &Adapter{llm: model, provider: cfg.Provider}, nil
}

// NewWithModel wraps an already constructed langchaingo model.
func NewWithModel(provider string, m llms.Model) *Adapter {
	return &Adapter{llm: m, provider: provider}
}

func (a *Adapter) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}
	resp, err := a.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(fallacies.Temperature),
		llms.WithMaxTokens(fallacies.MaxTokens),
	)
	if err != nil {
		return "", a.wrap(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}

func (a *Adapter) wrap(err error) error {
	e := &apperr.UpstreamError{Provider: a.provider, Message: err.Error(), Err: err}
	if isCredentialError(err) {
		e.Status = 401
		e.Err = fmt.Errorf("%w: %w", apperr.ErrInvalidCredential, err)
	}
	return e
}

// langchaingo does not surface HTTP status codes uniformly across providers,
// so credential failures are recognized by message.
func isCredentialError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"401",
		"unauthorized",
		"invalid api key",
		"incorrect api key",
		"invalid_api_key",
		"authentication",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
