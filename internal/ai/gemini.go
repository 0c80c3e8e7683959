package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/nlebrun/webrag/pkg/models"
)

type GeminiClient struct {
	config *ClientConfig
	client *genai.Client
}

// NewGeminiClient creates a completion client for the Gemini API.
func NewGeminiClient(ctx context.Context, config *ClientConfig) (*GeminiClient, error) {
	if strings.TrimSpace(config.APIKey) == "" && strings.TrimSpace(config.ProjectID) == "" {
		return nil, errors.New("no Gemini API key or project configured")
	}
	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}

	cc := genai.ClientConfig{}
	if strings.TrimSpace(config.APIKey) != "" {
		cc.APIKey = config.APIKey
	} else {
		cc.Backend = genai.BackendVertexAI
		cc.Project = config.ProjectID
		if strings.TrimSpace(config.Location) != "" {
			cc.Location = config.Location
		}
	}

	client, err := genai.NewClient(ctx, &cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{config: config, client: client}, nil
}

func (c *GeminiClient) Model() string { return c.config.Model }

func (c *GeminiClient) Complete(ctx context.Context, system, user string) (string, *models.TokenUsage, error) {
	sys := genai.Text(system)
	temp := c.config.Temperature
	cfg := genai.GenerateContentConfig{
		Temperature:       &temp,
		SystemInstruction: sys[0],
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, genai.Text(user), &cfg)
	if err != nil {
		return "", nil, fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", nil, errors.New("no completion returned")
	}

	text := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)

	var usage *models.TokenUsage
	if m := resp.UsageMetadata; m != nil {
		usage = &models.TokenUsage{
			PromptTokens:     int(m.PromptTokenCount),
			CompletionTokens: int(m.CandidatesTokenCount),
			TotalTokens:      int(m.TotalTokenCount),
		}
	}
	return text, usage, nil
}
