package store

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"github.com/nlebrun/webrag/internal/embedding"
	"github.com/nlebrun/webrag/pkg/models"
)

// Chromem is the managed-collection backend. The collection owns the
// embedding function, so adds send raw text and metadata and queries send
// raw text; the collection vectorizes both sides with the same provider.
type Chromem struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// EmbeddingFunc adapts a provider to chromem's single-text calling
// convention, keeping the fallback chain behind the collection.
func EmbeddingFunc(p embedding.Provider) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vecs, err := p.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vecs) != 1 {
			return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
		}
		return vecs[0], nil
	}
}

// NewChromem opens (or creates) a persistent collection under path. The
// same path and collection name reopen the same corpus.
func NewChromem(path, collection string, embed chromem.EmbeddingFunc) (*Chromem, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open chromem db: %w", err)
	}

	// Cosine space, fixed at collection creation.
	meta := map[string]string{"hnsw:space": "cosine"}
	col, err := db.GetOrCreateCollection(collection, meta, embed)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", collection, err)
	}

	return &Chromem{db: db, collection: col}, nil
}

func (s *Chromem) Kind() string { return "chromem" }

func (s *Chromem) WantsVectors() bool { return false }

func (s *Chromem) Count(ctx context.Context) int { return s.collection.Count() }

func (s *Chromem) Close() error { return nil }

// Add stores the batch. When the whole batch fails it is retried in ~10
// sub-batches; failing sub-batches are logged and skipped so one bad
// document never aborts the ingestion.
func (s *Chromem) Add(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, chromem.Document{
			ID:      c.ID,
			Content: c.Content,
			Metadata: map[string]string{
				"source_url":  c.SourceURL,
				"title":       c.Title,
				"chunk_index": strconv.Itoa(c.ChunkIndex),
				"created_at":  c.CreatedAt.Format(time.RFC3339),
			},
		})
	}

	concurrency := runtime.NumCPU()
	err := s.collection.AddDocuments(ctx, docs, concurrency)
	if err == nil {
		return nil
	}
	log.Warn().Err(err).Int("docs", len(docs)).Msg("batch add failed, retrying in sub-batches")

	batch := len(docs) / 10
	if batch < 1 {
		batch = 1
	}
	for i := 0; i < len(docs); i += batch {
		end := i + batch
		if end > len(docs) {
			end = len(docs)
		}
		if err := s.collection.AddDocuments(ctx, docs[i:end], concurrency); err != nil {
			log.Warn().Err(err).Int("offset", i).Int("size", end-i).Msg("sub-batch add failed, skipping")
		}
	}
	return nil
}

// Search embeds the query text through the collection's embedding function
// and returns up to k results by ascending cosine distance. Failures and
// empty collections yield an empty slice.
func (s *Chromem) Search(ctx context.Context, q Query, k int) ([]models.SearchResult, error) {
	total := s.collection.Count()
	if total == 0 {
		return []models.SearchResult{}, nil
	}
	if k > total {
		k = total
	}

	results, err := s.collection.Query(ctx, q.Text, k, nil, nil)
	if err != nil {
		log.Warn().Err(err).Str("query", q.Text).Msg("chromem query failed")
		return []models.SearchResult{}, nil
	}

	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		meta := models.ChunkMetadata{
			SourceURL: r.Metadata["source_url"],
			Title:     r.Metadata["title"],
		}
		if idx, err := strconv.Atoi(r.Metadata["chunk_index"]); err == nil {
			meta.ChunkIndex = idx
		}
		if ts, err := time.Parse(time.RFC3339, r.Metadata["created_at"]); err == nil {
			meta.CreatedAt = ts
		}
		out = append(out, models.SearchResult{
			Content:  r.Content,
			Metadata: meta,
			Distance: 1 - float64(r.Similarity),
		})
	}
	return out, nil
}
