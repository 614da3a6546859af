package encoder

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/viant/agentvec/vector"
)

// Hashing is a local feature-hashing encoder. Each lower-cased token and
// each adjacent token pair increments one bucket chosen by FNV-1a; the
// result is L2 normalized. It needs no model files, so it suits tests,
// offline use and deployments without an embedding server.
type Hashing struct {
	dim int
}

// NewHashing returns a hashing encoder producing dim-length vectors.
func NewHashing(dim int) (*Hashing, error) {
	if dim <= 0 {
		return nil, vector.NewError(vector.KindModelUnavailable, "encoder", "", fmt.Errorf("invalid dimension %d", dim))
	}
	return &Hashing{dim: dim}, nil
}

func (h *Hashing) Model() string { return fmt.Sprintf("hashing-v1/%d", h.dim) }

func (h *Hashing) Dim() int { return h.dim }

// Encode embeds text. Empty text yields the zero vector.
func (h *Hashing) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, vector.NewError(vector.KindEmbedding, "encode", "", err)
	}
	vec := make([]float32, h.dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq > 0 {
		norm := float32(1 / math.Sqrt(sumSq))
		for i := range vec {
			vec[i] *= norm
		}
	}
	return vec, nil
}

func (h *Hashing) add(vec []float32, feature string, weight float32) {
	hs := fnv.New32a()
	_, _ = hs.Write([]byte(feature))
	sum := hs.Sum32()
	idx := int(sum % uint32(h.dim))
	// the top bit picks the sign so that collisions tend to cancel out
	if sum&(1<<31) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}
