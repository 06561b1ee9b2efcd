// Package pipeline sequences chunking, extraction, deduplication and state
// tracking for each unprocessed video. It is the only component that decides
// retry vs skip vs abort; everything below it just reports typed failures.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tubedigest/features/idea"
	"tubedigest/features/video"
	"tubedigest/internal/adapter/youtube"
	"tubedigest/internal/extract"
	"tubedigest/internal/text"
)

type Tracker interface {
	GetUnprocessed(ctx context.Context, threshold time.Duration) ([]video.Video, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkProcessed(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, videoID string) youtube.Transcript
}

type Chunker interface {
	Split(videoID, transcript string) []text.Chunk
}

type IdeaStore interface {
	ReplaceForVideo(ctx context.Context, videoID string, ideas []idea.Idea) error
}

type Deduper interface {
	MergeAndDedup(ctx context.Context, ideas []idea.Idea) ([]idea.Idea, error)
}

// IdeaIndexer mirrors persisted ideas into the vector index. Indexing is
// advisory: a failure degrades future vector dedup but never fails the video.
type IdeaIndexer interface {
	IndexIdeas(ctx context.Context, ideas []idea.Idea) error
}

type Options struct {
	ReprocessThreshold time.Duration
	Concurrency        int
}

type Service struct {
	tracker     Tracker
	transcripts TranscriptFetcher
	chunker     Chunker
	extractor   extract.ChunkExtractor
	dedup       Deduper
	ideas       IdeaStore
	indexer     IdeaIndexer
	opts        Options
}

func NewService(tracker Tracker, transcripts TranscriptFetcher, chunker Chunker,
	extractor extract.ChunkExtractor, deduper Deduper, ideas IdeaStore,
	indexer IdeaIndexer, opts Options) *Service {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.ReprocessThreshold <= 0 {
		opts.ReprocessThreshold = 7 * 24 * time.Hour
	}
	return &Service{
		tracker:     tracker,
		transcripts: transcripts,
		chunker:     chunker,
		extractor:   extractor,
		dedup:       deduper,
		ideas:       ideas,
		indexer:     indexer,
		opts:        opts,
	}
}

type Report struct {
	Eligible  int `json:"eligible"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// memoResetter is implemented by extractors that cache per-chunk results.
type memoResetter interface {
	ResetMemo()
}

// Run processes every eligible video with a small bounded pool. One video's
// failure is recorded on its own record and never aborts the rest. A
// cancelled context stops dispatching new videos but lets in-flight ones
// finish, so state is only ever committed at record boundaries.
func (s *Service) Run(ctx context.Context) (Report, error) {
	// Extraction memoization is per run: stale results must not leak into a
	// reprocess weeks later.
	if r, ok := s.extractor.(memoResetter); ok {
		r.ResetMemo()
	}

	videos, err := s.tracker.GetUnprocessed(ctx, s.opts.ReprocessThreshold)
	if err != nil {
		return Report{}, fmt.Errorf("list unprocessed videos: %w", err)
	}

	report := Report{Eligible: len(videos)}
	slog.InfoContext(ctx, "pipeline run starting", "eligible", len(videos), "concurrency", s.opts.Concurrency)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.opts.Concurrency)
	)

	for _, v := range videos {
		if ctx.Err() != nil {
			slog.WarnContext(ctx, "pipeline run interrupted between videos", "remaining", report.Eligible-report.Processed-report.Failed)
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(videoID string) {
			defer wg.Done()
			defer func() { <-sem }()

			err := s.ProcessVideo(ctx, videoID)
			mu.Lock()
			if err != nil {
				report.Failed++
			} else {
				report.Processed++
			}
			mu.Unlock()
		}(v.ID)
	}
	wg.Wait()

	slog.InfoContext(ctx, "pipeline run finished",
		"eligible", report.Eligible, "processed", report.Processed, "failed", report.Failed)
	return report, nil
}

// ProcessVideo runs the full chunk → extract → dedup → persist sequence for
// one video. Any fatal-per-video condition marks the record failed with a
// reason and returns; the caller treats the error as already handled.
func (s *Service) ProcessVideo(ctx context.Context, videoID string) error {
	if err := s.tracker.MarkProcessing(ctx, videoID); err != nil {
		return fmt.Errorf("mark processing %s: %w", videoID, err)
	}

	tr := s.transcripts.FetchTranscript(ctx, videoID)
	if tr.Status != youtube.StatusAvailable {
		return s.fail(ctx, videoID, video.ReasonTranscriptUnavailable,
			fmt.Errorf("transcript status %s for video %s", tr.Status, videoID))
	}

	chunks := s.chunker.Split(videoID, tr.Text)
	if len(chunks) == 0 {
		return s.fail(ctx, videoID, video.ReasonTranscriptUnavailable,
			fmt.Errorf("transcript for video %s is empty after normalization", videoID))
	}

	// Chunk order is preserved so the merge can prefer earlier content on
	// confidence ties.
	var collected []idea.Idea
	for _, chunk := range chunks {
		ideas, err := s.extractor.ExtractIdeas(ctx, chunk)
		if err != nil {
			return s.fail(ctx, videoID, "extraction_failed: "+extract.Reason(err),
				fmt.Errorf("extract chunk %d of video %s: %w", chunk.Index, videoID, err))
		}
		collected = append(collected, ideas...)
	}

	merged, err := s.dedup.MergeAndDedup(ctx, collected)
	if err != nil {
		return s.fail(ctx, videoID, "dedup_failed", fmt.Errorf("dedup video %s: %w", videoID, err))
	}

	if err := s.ideas.ReplaceForVideo(ctx, videoID, merged); err != nil {
		return s.fail(ctx, videoID, "persistence_failed", fmt.Errorf("persist ideas for video %s: %w", videoID, err))
	}

	if s.indexer != nil && len(merged) > 0 {
		if err := s.indexer.IndexIdeas(ctx, merged); err != nil {
			slog.WarnContext(ctx, "failed to index ideas", "error", err, "video_id", videoID)
		}
	}

	// Only after the ideas are durably persisted.
	if err := s.tracker.MarkProcessed(ctx, videoID); err != nil {
		return fmt.Errorf("mark processed %s: %w", videoID, err)
	}

	slog.InfoContext(ctx, "video processed", "video_id", videoID,
		"chunks", len(chunks), "ideas_extracted", len(collected), "ideas_kept", len(merged))
	return nil
}

func (s *Service) fail(ctx context.Context, videoID, reason string, cause error) error {
	slog.ErrorContext(ctx, "video failed", "video_id", videoID, "reason", reason, "error", cause)
	if err := s.tracker.MarkFailed(ctx, videoID, reason); err != nil {
		slog.ErrorContext(ctx, "failed to record failure", "video_id", videoID, "error", err)
	}
	return cause
}
