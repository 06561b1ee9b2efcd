// Package dedup merges ideas extracted from overlapping chunks of one video
// and suppresses near-duplicates of ideas already stored in the trailing
// history window.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"tubedigest/features/idea"
	"tubedigest/internal/similarity"
)

// CrossMatcher filters out candidates that near-duplicate an idea already in
// the recent window. Implementations must consult the live window on every
// call; the pipeline relies on that to tolerate concurrent writers.
type CrossMatcher interface {
	FilterNew(ctx context.Context, candidates []idea.Idea) ([]idea.Idea, error)
}

type Deduplicator struct {
	scorer   similarity.Scorer
	cross    CrossMatcher
	tauIntra float64
	cap      int
}

func New(scorer similarity.Scorer, cross CrossMatcher, tauIntra float64, capPerVideo int) *Deduplicator {
	return &Deduplicator{scorer: scorer, cross: cross, tauIntra: tauIntra, cap: capPerVideo}
}

// MergeAndDedup collapses intra-video duplicates, drops cross-time
// duplicates, then ranks by confidence and truncates to the per-video cap.
// Running it again over its own output (with an unchanged window) returns the
// same set.
func (d *Deduplicator) MergeAndDedup(ctx context.Context, ideas []idea.Idea) ([]idea.Idea, error) {
	merged, err := d.mergeIntra(ctx, ideas)
	if err != nil {
		return nil, err
	}

	fresh := merged
	if d.cross != nil && len(merged) > 0 {
		fresh, err = d.cross.FilterNew(ctx, merged)
		if err != nil {
			return nil, fmt.Errorf("cross-time dedup: %w", err)
		}
		if dropped := len(merged) - len(fresh); dropped > 0 {
			slog.InfoContext(ctx, "dropped ideas already seen in recent window", "dropped", dropped)
		}
	}

	return d.rankAndCap(fresh), nil
}

// mergeIntra walks ideas in chunk order. When a candidate scores above the
// intra threshold against a kept idea, the higher-confidence one survives;
// on a confidence tie the earlier chunk wins, approximating topical
// centrality.
func (d *Deduplicator) mergeIntra(ctx context.Context, ideas []idea.Idea) ([]idea.Idea, error) {
	var kept []idea.Idea
	for _, cand := range ideas {
		matched := -1
		for j, k := range kept {
			score, err := d.scorer.Score(ctx, cand.Text(), k.Text())
			if err != nil {
				return nil, fmt.Errorf("intra-video similarity: %w", err)
			}
			if score > d.tauIntra {
				matched = j
				break
			}
		}
		if matched == -1 {
			kept = append(kept, cand)
			continue
		}
		if wins(cand, kept[matched]) {
			kept[matched] = cand
		}
	}
	return kept, nil
}

func wins(cand, incumbent idea.Idea) bool {
	cr, ir := cand.ConfidenceRank(), incumbent.ConfidenceRank()
	if cr != ir {
		return cr > ir
	}
	return cand.ChunkIndex < incumbent.ChunkIndex
}

func (d *Deduplicator) rankAndCap(ideas []idea.Idea) []idea.Idea {
	out := make([]idea.Idea, len(ideas))
	copy(out, ideas)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ConfidenceRank() > out[j].ConfidenceRank()
	})
	if d.cap > 0 && len(out) > d.cap {
		out = out[:d.cap]
	}
	return out
}
