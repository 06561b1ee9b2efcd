package extract

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"tubedigest/features/idea"
	"tubedigest/internal/text"
)

// ChunkExtractor produces ideas from a single transcript chunk. The target
// idea count is per video, so a sparse chunk legitimately returns fewer.
type ChunkExtractor interface {
	ExtractIdeas(ctx context.Context, chunk text.Chunk) ([]idea.Idea, error)
}

// Retrier wraps a ChunkExtractor with bounded retries, exponential backoff
// and jitter on transient failures. Fatal failures propagate immediately.
// Identical chunk text is served from memory to avoid redundant model spend;
// the cache is scoped to one pipeline run via ResetMemo.
type Retrier struct {
	inner       ChunkExtractor
	maxAttempts int
	baseDelay   time.Duration

	// sleep is swapped in tests to avoid real waiting.
	sleep func(ctx context.Context, d time.Duration) error

	mu   sync.Mutex
	memo map[[32]byte][]idea.Idea
}

func NewRetrier(inner ChunkExtractor, maxAttempts int, baseDelay time.Duration) *Retrier {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Retrier{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		sleep:       sleepCtx,
		memo:        make(map[[32]byte][]idea.Idea),
	}
}

func (r *Retrier) ExtractIdeas(ctx context.Context, chunk text.Chunk) ([]idea.Idea, error) {
	key := sha256.Sum256([]byte(chunk.Text))

	r.mu.Lock()
	cached, ok := r.memo[key]
	r.mu.Unlock()
	if ok {
		slog.DebugContext(ctx, "serving memoized extraction", "video_id", chunk.VideoID, "chunk_index", chunk.Index)
		return rebind(cached, chunk), nil
	}

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		ideas, err := r.inner.ExtractIdeas(ctx, chunk)
		if err == nil {
			r.mu.Lock()
			r.memo[key] = ideas
			r.mu.Unlock()
			return ideas, nil
		}

		lastErr = err
		if !IsTransient(err) {
			return nil, err
		}

		if attempt == r.maxAttempts {
			break
		}

		delay := r.backoff(attempt)
		slog.WarnContext(ctx, "transient extraction failure, backing off",
			"video_id", chunk.VideoID, "chunk_index", chunk.Index,
			"attempt", attempt, "max_attempts", r.maxAttempts,
			"delay", delay, "error", err)
		if err := r.sleep(ctx, delay); err != nil {
			return nil, Transient("context cancelled during backoff", err)
		}
	}

	return nil, fmt.Errorf("extraction failed after %d attempts: %w", r.maxAttempts, lastErr)
}

// backoff doubles per attempt starting from baseDelay and adds up to 50%
// jitter so retries from parallel workers do not land in lockstep.
func (r *Retrier) backoff(attempt int) time.Duration {
	d := r.baseDelay << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(d)/2 + 1))
	return d + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ResetMemo drops every memoized result. The pipeline calls it at the start
// of each run so an unchanged transcript crossing the reprocess threshold is
// extracted anew instead of being replayed from a previous run.
func (r *Retrier) ResetMemo() {
	r.mu.Lock()
	r.memo = make(map[[32]byte][]idea.Idea)
	r.mu.Unlock()
}

// rebind retargets memoized ideas at the requesting chunk, since the same
// text can in principle show up at a different window position. The
// extraction timestamp is refreshed too: a cached hit must never push an
// idea out of the recent window consumed by dedup, digest and stats.
func rebind(ideas []idea.Idea, chunk text.Chunk) []idea.Idea {
	now := time.Now().UTC()
	out := make([]idea.Idea, len(ideas))
	copy(out, ideas)
	for i := range out {
		out[i].VideoID = chunk.VideoID
		out[i].ChunkIndex = chunk.Index
		out[i].ExtractedAt = now
	}
	return out
}
