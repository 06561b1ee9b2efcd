package similarity

import (
	"context"
	"fmt"
	"math"
	"sync"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Embedding scores two texts by cosine similarity of their embeddings.
// Vectors are cached for the lifetime of the scorer, so repeated comparisons
// of the same idea within a run embed it once.
type Embedding struct {
	embedder Embedder

	mu    sync.Mutex
	cache map[string][]float32
}

func NewEmbedding(e Embedder) *Embedding {
	return &Embedding{embedder: e, cache: make(map[string][]float32)}
}

func (s *Embedding) Score(ctx context.Context, a, b string) (float64, error) {
	va, err := s.vector(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := s.vector(ctx, b)
	if err != nil {
		return 0, err
	}
	return Cosine(va, vb)
}

func (s *Embedding) vector(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	v, ok := s.cache[text]
	s.mu.Unlock()
	if ok {
		return v, nil
	}

	v, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("embedder returned empty vector")
	}

	s.mu.Lock()
	s.cache[text] = v
	s.mu.Unlock()
	return v, nil
}

func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, fmt.Errorf("vector length mismatch: %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
