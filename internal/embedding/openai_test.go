package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAI(&Config{}); err == nil {
		t.Fatal("expected error without an API key")
	}
	if _, err := NewOpenAI(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestNewOpenAIModelDefaults(t *testing.T) {
	tests := []struct {
		model   string
		wantDim int
	}{
		{"", 1536},
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
	}
	for _, tc := range tests {
		c, err := NewOpenAI(&Config{APIKey: "k", Model: tc.model})
		if err != nil {
			t.Fatalf("NewOpenAI(%q): %v", tc.model, err)
		}
		if c.Dim() != tc.wantDim {
			t.Errorf("model %q: dim = %d, want %d", tc.model, c.Dim(), tc.wantDim)
		}
	}
}

func TestOpenAIEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Input) != 2 {
			t.Errorf("expected 2 inputs, got %d", len(req.Input))
		}

		// Deliver data out of order; the client must reorder by index.
		resp := map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0, 2, 0}},
				{"index": 0, "embedding": []float32{3, 0, 0}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c, err := NewOpenAI(&Config{APIKey: "test-key", Dim: 3})
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	c.url = server.URL

	vecs, err := c.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}
	// Normalized and in input order.
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vectors not reordered/normalized: %v", vecs)
	}
}

func TestOpenAIEmbedServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	c, err := NewOpenAI(&Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	c.url = server.URL

	if _, err := c.Embed(context.Background(), []string{"text"}); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestOpenAIEmbedCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"index": 0, "embedding": []float32{1}}},
		})
	}))
	defer server.Close()

	c, err := NewOpenAI(&Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	c.url = server.URL

	if _, err := c.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error when response count differs from input count")
	}
}

func TestOpenAIEmbedEmptyBatch(t *testing.T) {
	c, err := NewOpenAI(&Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	vecs, err := c.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vecs != nil {
		t.Errorf("expected nil for empty batch, got %v", vecs)
	}
}
