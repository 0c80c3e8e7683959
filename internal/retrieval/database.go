// Package retrieval wires the chunker, the embedding provider and a vector
// backend into the document-ingestion and similarity-search façade the rest
// of the system talks to.
package retrieval

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/nlebrun/webrag/internal/chunker"
	"github.com/nlebrun/webrag/internal/config"
	"github.com/nlebrun/webrag/internal/embedding"
	"github.com/nlebrun/webrag/internal/store"
	"github.com/nlebrun/webrag/pkg/models"
)

// Database owns one collection, one backend and one embedding provider for
// its whole lifetime. Pinning the provider guarantees ingestion and queries
// share an embedding space.
type Database struct {
	chunker   *chunker.Chunker
	provider  embedding.Provider
	store     store.Store
	threshold float64
}

// Open builds a database from configuration. Errors here are configuration
// errors and should stop the process.
func Open(ctx context.Context, cfg *config.Specification) (*Database, error) {
	// Completion-only providers have no embedding model; they embed with
	// the auto fallback chain.
	embedName := cfg.Provider
	if strings.EqualFold(embedName, "ollama") || strings.EqualFold(embedName, "stub") {
		embedName = "auto"
	}

	provider, err := embedding.NewProvider(ctx, &embedding.Config{
		Provider:  embedName,
		APIKey:    cfg.APIKey,
		Model:     cfg.EmbedModel,
		Dim:       cfg.Dim,
		ProjectID: cfg.ProjectID,
		Location:  cfg.Location,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	var st store.Store
	switch cfg.Backend {
	case config.BackendChromem:
		st, err = store.NewChromem(
			filepath.Join(cfg.EmbeddingsDir(), "chromem"),
			cfg.Collection,
			store.EmbeddingFunc(provider),
		)
	case config.BackendFlat:
		st, err = store.NewFlat(filepath.Join(cfg.EmbeddingsDir(), "flat"))
	case config.BackendPostgres:
		st, err = store.NewPostgres(ctx, cfg.Database, provider.Dim())
	default:
		err = fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}

	return New(chunker.New(cfg.ChunkSize, cfg.ChunkOverlap), provider, st, cfg.SimilarityThreshold), nil
}

// New assembles a database from explicit parts.
func New(ck *chunker.Chunker, provider embedding.Provider, st store.Store, threshold float64) *Database {
	return &Database{chunker: ck, provider: provider, store: st, threshold: threshold}
}

// Provider exposes the pinned embedding provider.
func (d *Database) Provider() embedding.Provider { return d.provider }

func (d *Database) Close() error { return d.store.Close() }

// AddPages chunks every page, attaches embeddings when the backend keeps an
// explicit index, and hands the whole accumulation to the backend in one
// add. A page whose embedding batch fails gets neutral vectors instead of
// aborting the ingestion. Returns the number of chunks ingested.
func (d *Database) AddPages(ctx context.Context, pages []models.ScrapedPage) (int, error) {
	var all []models.DocumentChunk

	for _, page := range pages {
		chunks := d.chunker.Chunk(page.Content, page.URL, page.Title)
		if len(chunks) == 0 {
			continue
		}

		if d.store.WantsVectors() {
			texts := make([]string, len(chunks))
			for i, c := range chunks {
				texts[i] = c.Content
			}
			vecs, err := d.provider.Embed(ctx, texts)
			if err != nil || len(vecs) != len(chunks) {
				log.Error().Err(err).Str("url", page.URL).
					Msg("embedding page failed, substituting neutral vectors")
				vecs = make([][]float32, len(chunks))
				for i := range vecs {
					vecs[i] = embedding.Neutral(d.provider.Dim())
				}
			}
			for i := range chunks {
				chunks[i].Embedding = vecs[i]
			}
		}

		all = append(all, chunks...)
	}

	if len(all) == 0 {
		return 0, nil
	}
	if err := d.store.Add(ctx, all); err != nil {
		return 0, fmt.Errorf("add documents: %w", err)
	}
	log.Info().Int("chunks", len(all)).Int("pages", len(pages)).Msg("pages ingested")
	return len(all), nil
}

// Search retrieves the k most similar chunks for the question. Backends
// holding an explicit index get the question embedded with the same
// provider used at ingestion time; the managed backend embeds the raw text
// itself. When a minimum-similarity threshold is configured, results below
// it are dropped.
func (d *Database) Search(ctx context.Context, question string, k int) ([]models.SearchResult, error) {
	q := store.Query{Text: question}

	if d.store.WantsVectors() {
		vecs, err := d.provider.Embed(ctx, []string{question})
		if err != nil || len(vecs) != 1 {
			log.Error().Err(err).Str("question", question).Msg("embedding query failed")
			return []models.SearchResult{}, nil
		}
		q.Vector = vecs[0]
	}

	results, err := d.store.Search(ctx, q, k)
	if err != nil {
		return nil, err
	}
	if d.threshold <= 0 {
		return results, nil
	}

	kept := results[:0]
	for _, r := range results {
		if 1-r.Distance >= d.threshold {
			kept = append(kept, r)
		}
	}
	if dropped := len(results) - len(kept); dropped > 0 {
		log.Debug().Int("dropped", dropped).Float64("threshold", d.threshold).
			Msg("results below similarity threshold")
	}
	return kept, nil
}

// Info reports the database configuration for observability. The vector
// count is only meaningful for backends holding an explicit index.
func (d *Database) Info(ctx context.Context) models.DatabaseInfo {
	info := models.DatabaseInfo{
		Backend:      d.store.Kind(),
		Embedding:    d.provider.Name(),
		ChunkSize:    d.chunker.ChunkSize,
		ChunkOverlap: d.chunker.ChunkOverlap,
	}
	if d.store.WantsVectors() {
		info.TotalVectors = d.store.Count(ctx)
	}
	return info
}
