package dedup

import (
	"context"
	"fmt"
	"time"

	"tubedigest/features/idea"
	"tubedigest/internal/similarity"
)

type RecentIdeaSource interface {
	GetRecent(ctx context.Context, window time.Duration) ([]idea.Idea, error)
}

// RecentWindowMatcher compares candidates pairwise against the idea store's
// trailing window. The window is re-read on every FilterNew call rather than
// cached across videos, so ideas persisted by a concurrent writer (or by the
// previous video in this run) are seen immediately.
type RecentWindowMatcher struct {
	source   RecentIdeaSource
	scorer   similarity.Scorer
	window   time.Duration
	tauCross float64
}

func NewRecentWindowMatcher(source RecentIdeaSource, scorer similarity.Scorer, window time.Duration, tauCross float64) *RecentWindowMatcher {
	return &RecentWindowMatcher{source: source, scorer: scorer, window: window, tauCross: tauCross}
}

func (m *RecentWindowMatcher) FilterNew(ctx context.Context, candidates []idea.Idea) ([]idea.Idea, error) {
	recent, err := m.source.GetRecent(ctx, m.window)
	if err != nil {
		return nil, fmt.Errorf("load recent ideas: %w", err)
	}

	var fresh []idea.Idea
	for _, cand := range candidates {
		dup := false
		for _, r := range recent {
			// A video's own previous ideas are replaced on reprocessing,
			// not duplicates of the new set.
			if r.VideoID == cand.VideoID {
				continue
			}
			score, err := m.scorer.Score(ctx, cand.Text(), r.Text())
			if err != nil {
				return nil, fmt.Errorf("cross-time similarity: %w", err)
			}
			if score > m.tauCross {
				dup = true
				break
			}
		}
		if !dup {
			fresh = append(fresh, cand)
		}
	}
	return fresh, nil
}

// VectorSearcher is the nearVector lookup backed by the idea vector index.
type VectorSearcher interface {
	SearchSimilar(ctx context.Context, vector []float32, limit int, since time.Time) ([]VectorMatch, error)
}

type VectorMatch struct {
	VideoID   string
	Title     string
	Certainty float64
}

// VectorMatcher embeds each candidate and asks the vector index for the
// nearest recent idea. The index is queried live per call for the same
// concurrent-writer tolerance as the lexical matcher.
type VectorMatcher struct {
	embedder similarity.Embedder
	searcher VectorSearcher
	window   time.Duration
	tauCross float64
}

func NewVectorMatcher(embedder similarity.Embedder, searcher VectorSearcher, window time.Duration, tauCross float64) *VectorMatcher {
	return &VectorMatcher{embedder: embedder, searcher: searcher, window: window, tauCross: tauCross}
}

func (m *VectorMatcher) FilterNew(ctx context.Context, candidates []idea.Idea) ([]idea.Idea, error) {
	since := time.Now().UTC().Add(-m.window)

	var fresh []idea.Idea
	for _, cand := range candidates {
		vec, err := m.embedder.Embed(ctx, cand.Text())
		if err != nil {
			return nil, fmt.Errorf("embed candidate: %w", err)
		}

		matches, err := m.searcher.SearchSimilar(ctx, vec, 3, since)
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}

		dup := false
		for _, match := range matches {
			if match.VideoID == cand.VideoID {
				continue
			}
			if match.Certainty > m.tauCross {
				dup = true
				break
			}
		}
		if !dup {
			fresh = append(fresh, cand)
		}
	}
	return fresh, nil
}
