// Package store persists document chunks with their embeddings and serves
// nearest-neighbor queries. All backends expose the same contract; which
// one backs a database is a configuration decision made once per handle.
package store

import (
	"context"

	"github.com/nlebrun/webrag/pkg/models"
)

// Query carries both forms a backend may need: raw text for backends that
// embed internally, a vector for backends holding an explicit index. The
// retrieval database fills Vector only when the backend wants it.
type Query struct {
	Text   string
	Vector []float32
}

// Store is the logical vector-store contract shared by every backend.
// Add never aborts the whole batch because of one bad chunk; Search returns
// an empty slice, not an error, when there is nothing to return.
type Store interface {
	// Add persists the chunks. Implementations that maintain an explicit
	// index skip chunks lacking an embedding.
	Add(ctx context.Context, chunks []models.DocumentChunk) error
	// Search returns up to k results ordered by ascending distance.
	Search(ctx context.Context, q Query, k int) ([]models.SearchResult, error)
	// WantsVectors reports whether the backend needs embeddings attached
	// to chunks and queries, or computes them itself.
	WantsVectors() bool
	// Kind names the backend for observability.
	Kind() string
	// Count reports the number of stored vectors, best effort.
	Count(ctx context.Context) int
	Close() error
}

// metadataOf strips a chunk down to the metadata carried in results.
func metadataOf(c models.DocumentChunk) models.ChunkMetadata {
	return models.ChunkMetadata{
		SourceURL:  c.SourceURL,
		Title:      c.Title,
		ChunkIndex: c.ChunkIndex,
		CreatedAt:  c.CreatedAt,
	}
}
