package store

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/nlebrun/webrag/internal/embedding"
	"github.com/nlebrun/webrag/pkg/models"
)

const (
	flatIndexFile = "index.gob"
	flatMetaFile  = "chunks.json"
)

// Flat is the exact-search backend: an in-memory slice of unit vectors with
// a parallel metadata list, scanned by inner product (cosine on unit
// vectors). Both lists are persisted after every add and reloaded at
// startup; they must stay in lock-step, position for position.
type Flat struct {
	mu      sync.RWMutex
	dir     string
	vectors [][]float32
	chunks  []models.DocumentChunk
}

// NewFlat opens the index under dir, loading persisted state when present.
// A corrupt or partially missing index pair resets to empty with a warning
// rather than failing startup.
func NewFlat(dir string) (*Flat, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	s := &Flat{dir: dir}
	s.load()
	return s, nil
}

func (s *Flat) Kind() string { return "flat" }

func (s *Flat) WantsVectors() bool { return true }

func (s *Flat) Close() error { return nil }

func (s *Flat) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Add normalizes and inserts every chunk that carries an embedding; chunks
// without one are skipped with a warning. The index is persisted after the
// batch.
func (s *Flat) Add(ctx context.Context, chunks []models.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			log.Warn().Str("id", c.ID).Msg("chunk has no embedding, skipping")
			continue
		}
		vec := make([]float32, len(c.Embedding))
		copy(vec, c.Embedding)
		s.vectors = append(s.vectors, embedding.Normalize(vec))

		// Raw vectors live in the index file, not the metadata list.
		c.Embedding = nil
		s.chunks = append(s.chunks, c)
		added++
	}

	if added > 0 {
		s.persist()
		log.Info().Int("added", added).Int("total", len(s.vectors)).Msg("flat index updated")
	}
	return nil
}

// Search scans the whole index for the k nearest neighbors by inner
// product. The query vector is normalized first and k is clamped to the
// index size.
func (s *Flat) Search(ctx context.Context, q Query, k int) ([]models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vectors) == 0 || len(q.Vector) == 0 {
		return []models.SearchResult{}, nil
	}
	if k > len(s.vectors) {
		k = len(s.vectors)
	}

	query := make([]float32, len(q.Vector))
	copy(query, q.Vector)
	embedding.Normalize(query)

	scores := make([]float64, len(s.vectors))
	for i, v := range s.vectors {
		scores[i] = dot(v, query)
	}

	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.Slice(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })

	out := make([]models.SearchResult, 0, k)
	for _, i := range idxs[:k] {
		c := s.chunks[i]
		out = append(out, models.SearchResult{
			Content:  c.Content,
			Metadata: metadataOf(c),
			Distance: 1 - scores[i],
		})
	}
	return out, nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// persist writes the vector index and metadata list. Callers hold the lock.
func (s *Flat) persist() {
	f, err := os.Create(filepath.Join(s.dir, flatIndexFile))
	if err != nil {
		log.Error().Err(err).Msg("saving flat index failed")
		return
	}
	err = gob.NewEncoder(f).Encode(s.vectors)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Error().Err(err).Msg("saving flat index failed")
		return
	}

	b, err := json.Marshal(s.chunks)
	if err == nil {
		err = os.WriteFile(filepath.Join(s.dir, flatMetaFile), b, 0o644)
	}
	if err != nil {
		log.Error().Err(err).Msg("saving flat metadata failed")
	}
}

// load restores persisted state. Any inconsistency resets to an empty
// index; losing a corrupt index is preferable to refusing to start.
func (s *Flat) load() {
	indexPath := filepath.Join(s.dir, flatIndexFile)
	metaPath := filepath.Join(s.dir, flatMetaFile)

	f, err := os.Open(indexPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("flat index unreadable, starting empty")
		}
		return
	}
	var vectors [][]float32
	err = gob.NewDecoder(f).Decode(&vectors)
	_ = f.Close()
	if err != nil {
		log.Warn().Err(err).Msg("flat index corrupt, starting empty")
		return
	}

	b, err := os.ReadFile(metaPath)
	if err != nil {
		log.Warn().Err(err).Msg("flat metadata missing, starting empty")
		return
	}
	var chunks []models.DocumentChunk
	if err := json.Unmarshal(b, &chunks); err != nil {
		log.Warn().Err(err).Msg("flat metadata corrupt, starting empty")
		return
	}

	if len(chunks) != len(vectors) {
		log.Warn().Int("vectors", len(vectors)).Int("chunks", len(chunks)).
			Msg("flat index and metadata out of step, starting empty")
		return
	}

	s.vectors = vectors
	s.chunks = chunks
	log.Info().Int("vectors", len(vectors)).Msg("flat index loaded")
}
