package embedding

import (
	"context"
	"math"
	"testing"
)

func TestHashDeterminism(t *testing.T) {
	h := NewHash(0)
	ctx := context.Background()

	first, err := h.Embed(ctx, []string{"the same text"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	second, err := h.Embed(ctx, []string{"the same text"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatalf("vectors differ at index %d: %v vs %v", i, first[0][i], second[0][i])
		}
	}
}

func TestHashDistinctInputs(t *testing.T) {
	h := NewHash(0)
	vecs, err := h.Embed(context.Background(), []string{"one text", "another text"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	same := true
	for i := range vecs[0] {
		if vecs[0][i] != vecs[1][i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different inputs produced identical vectors")
	}
}

func TestHashDimensionAndNorm(t *testing.T) {
	tests := []struct {
		cfg  int
		want int
	}{
		{0, 384},
		{-1, 384},
		{64, 64},
		{500, 500},
	}

	for _, tc := range tests {
		h := NewHash(tc.cfg)
		if h.Dim() != tc.want {
			t.Errorf("NewHash(%d).Dim() = %d, want %d", tc.cfg, h.Dim(), tc.want)
		}

		vecs, err := h.Embed(context.Background(), []string{"some text"})
		if err != nil {
			t.Fatalf("Embed: %v", err)
		}
		if len(vecs[0]) != tc.want {
			t.Errorf("vector length %d, want %d", len(vecs[0]), tc.want)
		}
		if n := norm(vecs[0]); math.Abs(n-1) > 1e-5 {
			t.Errorf("vector norm %f, want 1", n)
		}
	}
}

func TestHashEmptyBatch(t *testing.T) {
	h := NewHash(0)
	vecs, err := h.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 0 {
		t.Errorf("expected empty result, got %d vectors", len(vecs))
	}
}
