package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nlebrun/webrag/pkg/models"
)

const ollamaDefaultHost = "http://localhost:11434"

// OllamaClient talks to a local Ollama server. No credentials are involved;
// the server either answers or the completion fails.
type OllamaClient struct {
	config *ClientConfig
	http   *http.Client
	host   string
}

func NewOllamaClient(config *ClientConfig) (*OllamaClient, error) {
	if config.Model == "" {
		config.Model = "llama3.1"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	host := config.Host
	if host == "" {
		host = ollamaDefaultHost
	}

	return &OllamaClient{
		config: config,
		http:   &http.Client{Timeout: 60 * time.Second},
		host:   host,
	}, nil
}

func (c *OllamaClient) Model() string { return c.config.Model }

func (c *OllamaClient) Complete(ctx context.Context, system, user string) (string, *models.TokenUsage, error) {
	payload := map[string]any{
		"model": c.config.Model,
		"messages": []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		"stream": false,
		"options": map[string]any{
			"temperature": c.config.Temperature,
		},
	}
	b, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(b))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("ollama completion non-200: %d", resp.StatusCode)
	}

	var out struct {
		Message         chatMessage `json:"message"`
		PromptEvalCount int         `json:"prompt_eval_count"`
		EvalCount       int         `json:"eval_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", nil, err
	}
	if out.Message.Content == "" {
		return "", nil, errors.New("no completion returned")
	}

	var usage *models.TokenUsage
	if out.PromptEvalCount > 0 || out.EvalCount > 0 {
		usage = &models.TokenUsage{
			PromptTokens:     out.PromptEvalCount,
			CompletionTokens: out.EvalCount,
			TotalTokens:      out.PromptEvalCount + out.EvalCount,
		}
	}
	return out.Message.Content, usage, nil
}
