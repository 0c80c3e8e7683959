// Package ai holds the completion collaborator: the language-model call
// that turns an assembled prompt into an answer. The core retries nothing
// here; failures surface to the conversation manager, which reports them
// without mutating history.
package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/nlebrun/webrag/pkg/models"
)

// Client produces a completion for a system prompt and a user message.
// Usage may be nil when the backend does not report token accounting.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, *models.TokenUsage, error)
	Model() string
}

// Provider is the enumeration of supported completion providers.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderOllama Provider = "ollama"
	ProviderStub   Provider = "stub"
)

// ClientConfig holds configuration for completion clients.
type ClientConfig struct {
	Provider    Provider
	APIKey      string
	Model       string
	ProjectID   string
	Location    string
	Host        string // local server address (ollama)
	Temperature float32
}

// NewClient creates a completion client based on configuration. A failure
// here is a configuration error.
func NewClient(ctx context.Context, config *ClientConfig) (Client, error) {
	if config == nil {
		return nil, errors.New("client config is required")
	}

	switch config.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(config)
	case ProviderGemini:
		return NewGeminiClient(ctx, config)
	case ProviderOllama:
		return NewOllamaClient(config)
	case ProviderStub:
		return NewStubClient(config.Model), nil
	default:
		return nil, errors.New("unsupported provider: " + string(config.Provider))
	}
}

// StubClient is a canned implementation for tests and offline runs.
type StubClient struct {
	model string
}

func NewStubClient(model string) *StubClient {
	if model == "" {
		model = "stub"
	}
	return &StubClient{model: model}
}

func (s *StubClient) Model() string { return s.model }

// Complete echoes the first line of the user message.
func (s *StubClient) Complete(ctx context.Context, system, user string) (string, *models.TokenUsage, error) {
	line := user
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return "stub answer: " + line, nil, nil
}
