package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubedigest/features/idea"
	"tubedigest/internal/similarity"
)

func conf(v float64) *float64 { return &v }

func mkIdea(videoID, title, summary string, chunkIndex int, confidence *float64) idea.Idea {
	return idea.Idea{
		VideoID:    videoID,
		Title:      title,
		Summary:    summary,
		ChunkIndex: chunkIndex,
		Confidence: confidence,
	}
}

type staticSource struct {
	ideas []idea.Idea
	calls int
}

func (s *staticSource) GetRecent(_ context.Context, _ time.Duration) ([]idea.Idea, error) {
	s.calls++
	return s.ideas, nil
}

func newDedup(source RecentIdeaSource, capPerVideo int) *Deduplicator {
	scorer := similarity.NewLexical()
	var cross CrossMatcher
	if source != nil {
		cross = NewRecentWindowMatcher(source, scorer, 7*24*time.Hour, 0.70)
	}
	return New(scorer, cross, 0.55, capPerVideo)
}

func TestMergeAndDedup_IntraVideo(t *testing.T) {
	ctx := context.Background()

	t.Run("Overlapping chunks restating a point keep the higher confidence", func(t *testing.T) {
		summary := "Reinvesting returns makes your money grow exponentially over long periods of time."
		a := mkIdea("v1", "Compound interest grows wealth", summary, 0, conf(0.6))
		b := mkIdea("v1", "Compounding grows your money", summary, 1, conf(0.9))

		d := newDedup(nil, 5)
		out, err := d.MergeAndDedup(ctx, []idea.Idea{a, b})
		require.NoError(t, err)

		require.Len(t, out, 1)
		assert.Equal(t, "Compounding grows your money", out[0].Title)
	})

	t.Run("Confidence tie keeps the earlier chunk", func(t *testing.T) {
		summary := "Reinvesting returns makes your money grow exponentially over long periods of time."
		a := mkIdea("v1", "Compound interest grows wealth", summary, 0, conf(0.8))
		b := mkIdea("v1", "Compounding grows your money", summary, 1, conf(0.8))

		d := newDedup(nil, 5)
		out, err := d.MergeAndDedup(ctx, []idea.Idea{a, b})
		require.NoError(t, err)

		require.Len(t, out, 1)
		assert.Equal(t, 0, out[0].ChunkIndex)
	})

	t.Run("Absent confidence ranks below any present score", func(t *testing.T) {
		summary := "Reinvesting returns makes your money grow exponentially over long periods of time."
		a := mkIdea("v1", "Compound interest grows wealth", summary, 0, nil)
		b := mkIdea("v1", "Compounding grows your money", summary, 1, conf(0.1))

		d := newDedup(nil, 5)
		out, err := d.MergeAndDedup(ctx, []idea.Idea{a, b})
		require.NoError(t, err)

		require.Len(t, out, 1)
		assert.Equal(t, "Compounding grows your money", out[0].Title)
	})

	t.Run("Distinct ideas all survive", func(t *testing.T) {
		ideas := []idea.Idea{
			mkIdea("v1", "Index funds beat stock picking", "Low fees compound in your favor over decades.", 0, conf(0.9)),
			mkIdea("v1", "Emergency funds prevent debt", "Three to six months of expenses keeps you out of credit cards.", 1, conf(0.8)),
			mkIdea("v1", "Lifestyle inflation erodes raises", "Spending growing with income cancels out career progress.", 2, conf(0.7)),
		}

		d := newDedup(nil, 5)
		out, err := d.MergeAndDedup(ctx, ideas)
		require.NoError(t, err)
		assert.Len(t, out, 3)
	})
}

func TestMergeAndDedup_CrossTime(t *testing.T) {
	ctx := context.Background()

	t.Run("Idea matching a recent idea from another video is dropped", func(t *testing.T) {
		recent := &staticSource{ideas: []idea.Idea{
			mkIdea("old-video", "Index funds beat stock picking", "Low fees compound in your favor over decades.", 0, conf(0.9)),
		}}

		d := newDedup(recent, 5)
		out, err := d.MergeAndDedup(ctx, []idea.Idea{
			mkIdea("v1", "Index funds beat stock picking", "Low fees compound in your favor over decades.", 0, conf(0.8)),
			mkIdea("v1", "Emergency funds prevent debt", "Three to six months of expenses keeps you out of credit cards.", 1, conf(0.7)),
		})
		require.NoError(t, err)

		require.Len(t, out, 1)
		assert.Equal(t, "Emergency funds prevent debt", out[0].Title)
	})

	t.Run("Recent ideas from the same video do not suppress reprocessing", func(t *testing.T) {
		recent := &staticSource{ideas: []idea.Idea{
			mkIdea("v1", "Index funds beat stock picking", "Low fees compound in your favor over decades.", 0, conf(0.9)),
		}}

		d := newDedup(recent, 5)
		out, err := d.MergeAndDedup(ctx, []idea.Idea{
			mkIdea("v1", "Index funds beat stock picking", "Low fees compound in your favor over decades.", 0, conf(0.9)),
		})
		require.NoError(t, err)
		assert.Len(t, out, 1)
	})

	t.Run("Window is consulted on every call", func(t *testing.T) {
		recent := &staticSource{}
		d := newDedup(recent, 5)

		in := []idea.Idea{mkIdea("v1", "Sleep consistency matters", "Regular sleep and wake times beat total hours.", 0, conf(0.9))}
		_, err := d.MergeAndDedup(ctx, in)
		require.NoError(t, err)
		_, err = d.MergeAndDedup(ctx, in)
		require.NoError(t, err)

		assert.Equal(t, 2, recent.calls)
	})
}

func TestMergeAndDedup_CapAndRank(t *testing.T) {
	ctx := context.Background()

	t.Run("Caps at the per-video limit ranked by confidence", func(t *testing.T) {
		ideas := []idea.Idea{
			mkIdea("v1", "Idea about emergency funds", "Three months of expenses in cash prevents panic selling.", 0, conf(0.5)),
			mkIdea("v1", "Idea about index investing", "Broad market funds outperform most active managers.", 1, conf(0.9)),
			mkIdea("v1", "Idea about tax shelters", "Retirement accounts defer taxes on investment gains.", 2, nil),
			mkIdea("v1", "Idea about debt payoff order", "Highest interest rate debt should be repaid first.", 3, conf(0.7)),
		}

		d := newDedup(nil, 2)
		out, err := d.MergeAndDedup(ctx, ideas)
		require.NoError(t, err)

		require.Len(t, out, 2)
		assert.Equal(t, "Idea about index investing", out[0].Title)
		assert.Equal(t, "Idea about debt payoff order", out[1].Title)
	})

	t.Run("Idempotent over its own output", func(t *testing.T) {
		ideas := []idea.Idea{
			mkIdea("v1", "Idea about emergency funds", "Three months of expenses in cash prevents panic selling.", 0, conf(0.5)),
			mkIdea("v1", "Idea about index investing", "Broad market funds outperform most active managers.", 1, conf(0.9)),
			mkIdea("v1", "Idea about debt payoff order", "Highest interest rate debt should be repaid first.", 3, conf(0.7)),
		}

		d := newDedup(&staticSource{}, 3)
		once, err := d.MergeAndDedup(ctx, ideas)
		require.NoError(t, err)
		twice, err := d.MergeAndDedup(ctx, once)
		require.NoError(t, err)

		assert.Equal(t, once, twice)
	})

	t.Run("Empty input yields empty output", func(t *testing.T) {
		d := newDedup(&staticSource{}, 5)
		out, err := d.MergeAndDedup(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

type stubSearcher struct {
	matches []VectorMatch
}

func (s *stubSearcher) SearchSimilar(_ context.Context, _ []float32, _ int, _ time.Time) ([]VectorMatch, error) {
	return s.matches, nil
}

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func TestVectorMatcher(t *testing.T) {
	ctx := context.Background()
	cand := mkIdea("v1", "Index funds beat stock picking", "Low fees compound over decades.", 0, conf(0.9))

	t.Run("High certainty match from another video drops the candidate", func(t *testing.T) {
		m := NewVectorMatcher(fixedEmbedder{}, &stubSearcher{matches: []VectorMatch{
			{VideoID: "other", Certainty: 0.95},
		}}, 7*24*time.Hour, 0.70)

		out, err := m.FilterNew(ctx, []idea.Idea{cand})
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("Same-video and low-certainty matches are kept", func(t *testing.T) {
		m := NewVectorMatcher(fixedEmbedder{}, &stubSearcher{matches: []VectorMatch{
			{VideoID: "v1", Certainty: 0.99},
			{VideoID: "other", Certainty: 0.4},
		}}, 7*24*time.Hour, 0.70)

		out, err := m.FilterNew(ctx, []idea.Idea{cand})
		require.NoError(t, err)
		assert.Len(t, out, 1)
	})
}
