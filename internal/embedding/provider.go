// Package embedding turns text into fixed-dimension unit vectors. Several
// providers are available; construction walks them in preference order and
// the first one that initializes becomes active, so the pipeline degrades
// to cheaper vectorization instead of aborting when models or API keys are
// missing.
package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
)

// Provider converts a batch of texts into vectors, one per input,
// order-preserving, all of Dim() length. Vectors are L2-normalized so that
// inner product equals cosine similarity.
type Provider interface {
	Name() string
	Dim() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Config holds provider selection and credentials.
type Config struct {
	Provider  string // "auto" or an explicit provider name
	APIKey    string
	Model     string
	Dim       int
	ProjectID string
	Location  string
}

// Provider names, in default preference order.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderTFIDF  = "tfidf"
	ProviderHash   = "hash"
)

// NewProvider selects the active embedding provider. Candidates are tried
// in order; initialization failures are logged and skipped. The hash
// provider never fails, so the returned provider is never nil.
func NewProvider(ctx context.Context, cfg *Config) (Provider, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	type candidate struct {
		name  string
		build func() (Provider, error)
	}
	all := []candidate{
		{ProviderGemini, func() (Provider, error) { return NewGemini(ctx, cfg) }},
		{ProviderOpenAI, func() (Provider, error) { return NewOpenAI(cfg) }},
		{ProviderTFIDF, func() (Provider, error) { return NewTFIDF(cfg.Dim), nil }},
		{ProviderHash, func() (Provider, error) { return NewHash(cfg.Dim), nil }},
	}

	want := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if want != "" && want != "auto" {
		for _, c := range all {
			if c.name != want {
				continue
			}
			p, err := c.build()
			if err != nil {
				return nil, fmt.Errorf("provider %s: %w", want, err)
			}
			return p, nil
		}
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	for _, c := range all {
		p, err := c.build()
		if err != nil {
			log.Warn().Err(err).Str("provider", c.name).Msg("embedding provider unavailable, trying next")
			continue
		}
		log.Info().Str("provider", c.name).Int("dim", p.Dim()).Msg("embedding provider selected")
		return p, nil
	}
	// Unreachable: tfidf and hash never fail to construct.
	return NewHash(cfg.Dim), nil
}

// Normalize scales v to unit L2 norm in place and returns it. Zero-norm
// vectors are replaced with a fixed unit vector so similarity computations
// never see NaN.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		if len(v) > 0 {
			v[0] = 1
		}
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

// Neutral returns the unit vector substituted for texts whose embedding
// failed.
func Neutral(dim int) []float32 {
	v := make([]float32, dim)
	if dim > 0 {
		v[0] = 1
	}
	return v
}
