package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const openAIEmbeddingsURL = "https://api.openai.com/v1/embeddings"

// OpenAI embeds text through the OpenAI embeddings endpoint.
type OpenAI struct {
	apiKey string
	model  string
	dim    int
	http   *http.Client

	// url is overridable for tests.
	url string
}

func NewOpenAI(cfg *Config) (*OpenAI, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("no OpenAI API key configured")
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	dim := cfg.Dim
	if dim == 0 {
		switch model {
		case "text-embedding-3-large":
			dim = 3072
		default:
			dim = 1536
		}
	}

	return &OpenAI{
		apiKey: cfg.APIKey,
		model:  model,
		dim:    dim,
		http:   &http.Client{Timeout: 20 * time.Second},
		url:    openAIEmbeddingsURL,
	}, nil
}

func (c *OpenAI) Name() string { return ProviderOpenAI }

func (c *OpenAI) Dim() int { return c.dim }

func (c *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload := map[string]any{
		"input": texts,
		"model": c.model,
	}
	b, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai embedding non-200: %d", resp.StatusCode)
	}

	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Data) != len(texts) {
		return nil, errors.New("embedding count mismatch")
	}

	vectors := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(texts) || len(d.Embedding) == 0 {
			return nil, errors.New("malformed embedding response")
		}
		vectors[d.Index] = Normalize(d.Embedding)
	}
	return vectors, nil
}
