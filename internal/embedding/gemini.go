package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini embeds text with the Gemini embedding models.
type Gemini struct {
	cfg    *Config
	model  string
	dim    int
	client *genai.Client
}

// NewGemini creates a Gemini-backed provider. It fails when no credentials
// are configured, letting the fallback chain move on.
func NewGemini(ctx context.Context, cfg *Config) (*Gemini, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if strings.TrimSpace(cfg.APIKey) == "" && strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("no Gemini API key or project configured")
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-005"
	}
	dim := cfg.Dim
	if dim == 0 {
		dim = 768
	}

	cc := genai.ClientConfig{}
	if strings.TrimSpace(cfg.APIKey) != "" {
		cc.APIKey = cfg.APIKey
	} else {
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.ProjectID
		if strings.TrimSpace(cfg.Location) != "" {
			cc.Location = cfg.Location
		}
	}

	client, err := genai.NewClient(ctx, &cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini{cfg: cfg, model: model, dim: dim, client: client}, nil
}

func (g *Gemini) Name() string { return ProviderGemini }

func (g *Gemini) Dim() int { return g.dim }

// Embed sends the whole batch in one EmbedContent call; responses come back
// in input order.
func (g *Gemini) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.Text(t)...)
	}

	cfg := genai.EmbedContentConfig{
		TaskType: "RETRIEVAL_DOCUMENT",
	}
	res, err := g.client.Models.EmbedContent(ctx, g.model, contents, &cfg)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if res == nil || len(res.Embeddings) != len(texts) {
		return nil, errors.New("embedding count mismatch")
	}

	out := make([][]float32, len(texts))
	for i, e := range res.Embeddings {
		if len(e.Values) == 0 {
			return nil, errors.New("empty embedding returned")
		}
		out[i] = Normalize(e.Values)
	}
	return out, nil
}
