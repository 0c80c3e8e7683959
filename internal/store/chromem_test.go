package store

import (
	"context"
	"testing"
	"time"

	"github.com/nlebrun/webrag/internal/embedding"
	"github.com/nlebrun/webrag/pkg/models"
)

func newTestChromem(t *testing.T, dir string) *Chromem {
	t.Helper()
	embed := EmbeddingFunc(embedding.NewHash(64))
	s, err := NewChromem(dir, "test", embed)
	if err != nil {
		t.Fatalf("NewChromem: %v", err)
	}
	return s
}

func TestChromemAddAndSearch(t *testing.T) {
	s := newTestChromem(t, t.TempDir())
	ctx := context.Background()

	now := time.Now()
	err := s.Add(ctx, []models.DocumentChunk{
		{ID: "a_0", Content: "orange cats sleep", SourceURL: "https://a", Title: "Cats", ChunkIndex: 0, CreatedAt: now},
		{ID: "a_1", Content: "small dogs bark", SourceURL: "https://a", Title: "Dogs", ChunkIndex: 1, CreatedAt: now},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := s.Count(ctx); got != 2 {
		t.Fatalf("Count = %d, want 2", got)
	}

	// The hash embedding is deterministic: querying with a stored document's
	// exact text must return that document first at distance ~0.
	results, err := s.Search(ctx, Query{Text: "orange cats sleep"}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Content != "orange cats sleep" {
		t.Errorf("top result = %q", results[0].Content)
	}
	if results[0].Distance > 1e-4 {
		t.Errorf("distance to exact text = %f, want ~0", results[0].Distance)
	}
	if results[0].Metadata.Title != "Cats" || results[0].Metadata.ChunkIndex != 0 {
		t.Errorf("metadata not round-tripped: %+v", results[0].Metadata)
	}
}

func TestChromemKClamp(t *testing.T) {
	s := newTestChromem(t, t.TempDir())
	ctx := context.Background()

	err := s.Add(ctx, []models.DocumentChunk{
		{ID: "a_0", Content: "single document", SourceURL: "https://a", ChunkIndex: 0, CreatedAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := s.Search(ctx, Query{Text: "single document"}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

func TestChromemSearchEmptyCollection(t *testing.T) {
	s := newTestChromem(t, t.TempDir())

	results, err := s.Search(context.Background(), Query{Text: "anything"}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestChromemReopenPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := newTestChromem(t, dir)
	err := s.Add(ctx, []models.DocumentChunk{
		{ID: "a_0", Content: "durable content", SourceURL: "https://a", ChunkIndex: 0, CreatedAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	reopened := newTestChromem(t, dir)
	if got := reopened.Count(ctx); got != 1 {
		t.Fatalf("reopened Count = %d, want 1", got)
	}

	results, err := reopened.Search(ctx, Query{Text: "durable content"}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Content != "durable content" {
		t.Errorf("reopened search = %+v", results)
	}
}

func TestChromemAddEmptyBatch(t *testing.T) {
	s := newTestChromem(t, t.TempDir())
	if err := s.Add(context.Background(), nil); err != nil {
		t.Fatalf("Add(nil): %v", err)
	}
	if got := s.Count(context.Background()); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}
}
