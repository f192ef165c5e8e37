package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type Message struct {
	Role    string
	Content string
}

type Request struct {
	Model     string
	System    string
	Messages  []Message
	MaxTokens int
	// JSONMode asks the provider to answer with a single JSON object.
	JSONMode bool
}

type Response struct {
	Content string
}

type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (Response, error)
}

type Config struct {
	Provider         string
	OpenAIBaseURL    string
	OpenAIAPIKey     string
	AnthropicBaseURL string
	AnthropicAPIKey  string
	Timeout          time.Duration
}

func NewProvider(cfg Config) (Provider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(client, cfg.OpenAIBaseURL, cfg.OpenAIAPIKey), nil
	case "claude":
		return NewClaudeProvider(client, cfg.AnthropicBaseURL, cfg.AnthropicAPIKey), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
