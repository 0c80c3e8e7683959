package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"

	"github.com/nlebrun/webrag/internal/embedding"
	"github.com/nlebrun/webrag/pkg/models"
)

// Postgres stores chunks in a pgvector table. Unlike the embedded backends
// it survives the process and can be shared by several of them, at the cost
// of a running database.
type Postgres struct {
	pool *pgxpool.Pool
	dim  int
}

// NewPostgres connects to the database and applies the schema.
func NewPostgres(ctx context.Context, url string, dim int) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Postgres{pool: pool, dim: dim}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Postgres) Kind() string { return "postgres" }

func (s *Postgres) WantsVectors() bool { return true }

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func (s *Postgres) migrate(ctx context.Context) error {
	q := `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS chunks (
  id          TEXT PRIMARY KEY,
  source_url  TEXT NOT NULL,
  title       TEXT,
  chunk_index INT NOT NULL,
  content     TEXT NOT NULL,
  embedding   vector(%d),
  created_at  TIMESTAMP WITH TIME ZONE DEFAULT now()
);

CREATE INDEX IF NOT EXISTS chunks_source_url_idx
  ON chunks (source_url);

CREATE INDEX IF NOT EXISTS chunks_embedding_idx
  ON chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
`
	_, err := s.pool.Exec(ctx, fmt.Sprintf(q, s.dim))
	return err
}

// Add inserts the batch in one round trip. The corpus is append-only, so
// already-present ids are left untouched. Chunks without an embedding are
// skipped with a warning.
func (s *Postgres) Add(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	const q = `
		INSERT INTO chunks (id, source_url, title, chunk_index, content, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	batch := &pgx.Batch{}
	queued := 0
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			log.Warn().Str("id", c.ID).Msg("chunk has no embedding, skipping")
			continue
		}
		vec := make([]float32, len(c.Embedding))
		copy(vec, c.Embedding)
		embedding.Normalize(vec)

		batch.Queue(q, c.ID, c.SourceURL, c.Title, c.ChunkIndex, c.Content,
			pgvector.NewVector(vec), c.CreatedAt)
		queued++
	}
	if queued == 0 {
		return nil
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < queued; i++ {
		if _, err := br.Exec(); err != nil {
			log.Warn().Err(err).Msg("chunk insert failed, continuing")
		}
	}
	return nil
}

// Search returns the k nearest chunks by cosine distance.
func (s *Postgres) Search(ctx context.Context, q Query, k int) ([]models.SearchResult, error) {
	if len(q.Vector) == 0 {
		return []models.SearchResult{}, nil
	}

	vec := make([]float32, len(q.Vector))
	copy(vec, q.Vector)
	embedding.Normalize(vec)

	const query = `
		SELECT content, source_url, title, chunk_index, created_at,
		       embedding <=> $1 AS distance
		FROM chunks
		ORDER BY embedding <=> $1
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		if err := rows.Scan(&r.Content, &r.Metadata.SourceURL, &r.Metadata.Title,
			&r.Metadata.ChunkIndex, &r.Metadata.CreatedAt, &r.Distance); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if out == nil {
		out = []models.SearchResult{}
	}
	return out, rows.Err()
}

func (s *Postgres) Count(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM chunks").Scan(&n); err != nil {
		log.Warn().Err(err).Msg("counting chunks failed")
		return 0
	}
	return n
}
