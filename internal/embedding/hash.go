package embedding

import (
	"context"
	"crypto/md5"
	"fmt"
)

const hashDim = 384

// Hash is the deterministic last-resort provider. Vectors are derived from
// md5 digests of the text, so identical input always yields the identical
// unit vector. Semantic quality is poor; availability is total.
type Hash struct {
	dim int
}

func NewHash(dim int) *Hash {
	if dim <= 0 {
		dim = hashDim
	}
	return &Hash{dim: dim}
}

func (h *Hash) Name() string { return ProviderHash }

func (h *Hash) Dim() int { return h.dim }

func (h *Hash) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.vector(t)
	}
	return out, nil
}

// vector fills the embedding from a chain of salted digests and normalizes
// the result.
func (h *Hash) vector(text string) []float32 {
	v := make([]float32, h.dim)
	for block := 0; block*md5.Size < h.dim; block++ {
		sum := md5.Sum([]byte(fmt.Sprintf("%s#%d", text, block)))
		for j, b := range sum {
			idx := block*md5.Size + j
			if idx >= h.dim {
				break
			}
			v[idx] = float32(b) / 255.0
		}
	}
	return Normalize(v)
}
