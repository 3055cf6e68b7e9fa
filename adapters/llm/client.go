package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"vizora/internal"
	"vizora/ports"
)

// Config selects and tunes a provider.
type Config struct {
	Provider      string // openai, gemini, ollama
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
}

// NewClient builds the configured provider, wrapped with a secondary-model
// retry when FallbackModel is set.
func NewClient(ctx context.Context, cfg Config) (ports.LLMClient, error) {
	primary, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.FallbackModel == "" || cfg.FallbackModel == cfg.Model {
		return primary, nil
	}

	fallbackCfg := cfg
	fallbackCfg.Model = cfg.FallbackModel
	secondary, err := newProvider(ctx, fallbackCfg)
	if err != nil {
		return nil, fmt.Errorf("fallback model: %w", err)
	}
	return NewFallbackClient(primary, secondary), nil
}

func newProvider(ctx context.Context, cfg Config) (ports.LLMClient, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		return NewOpenAIClient(cfg)
	case "gemini":
		return NewGeminiClient(ctx, cfg)
	case "ollama":
		return NewOllamaClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// FallbackClient retries once against a secondary model when the primary
// call fails outright. Malformed output is not an API failure and is not retried.
type FallbackClient struct {
	primary   ports.LLMClient
	secondary ports.LLMClient
}

func NewFallbackClient(primary, secondary ports.LLMClient) *FallbackClient {
	return &FallbackClient{primary: primary, secondary: secondary}
}

func (c *FallbackClient) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := c.primary.Complete(ctx, prompt)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return "", err
	}
	internal.DefaultLogger.Warn("[LLM] Primary model failed, retrying with fallback: %v", err)
	out, fbErr := c.secondary.Complete(ctx, prompt)
	if fbErr != nil {
		return "", fmt.Errorf("primary: %v; fallback: %w", err, fbErr)
	}
	return out, nil
}

// MockLLMClient answers prompts from a function, a queue or a fixed response.
type MockLLMClient struct {
	Response  string
	Error     error
	Responses []string
	Respond   func(prompt string) (string, error)

	mu      sync.Mutex
	Prompts []string
}

func (m *MockLLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	var queued *string
	if len(m.Responses) > 0 {
		queued = &m.Responses[0]
		m.Responses = m.Responses[1:]
	}
	m.mu.Unlock()

	if m.Respond != nil {
		return m.Respond(prompt)
	}
	if m.Error != nil {
		return "", m.Error
	}
	if queued != nil {
		return *queued, nil
	}
	return m.Response, nil
}

// Calls returns how many prompts the mock has seen.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
