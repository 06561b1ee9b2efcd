// Package worker consumes per-video processing tasks from NSQ. The consumer
// is a thin shell around the pipeline: the processing record, not NSQ
// redelivery, owns retry semantics.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"
	"tubedigest/internal/middleware"
)

type VideoProcessor interface {
	ProcessVideo(ctx context.Context, videoID string) error
}

type VideoConsumer struct {
	processor VideoProcessor
	timeout   time.Duration
}

func NewVideoConsumer(p VideoProcessor) *VideoConsumer {
	return &VideoConsumer{
		processor: p,
		timeout:   10 * time.Minute,
	}
}

func (h *VideoConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload VideoTaskPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}
	if payload.VideoID == "" {
		slog.Error("poison pill: task without video_id")
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.processor.ProcessVideo(ctx, payload.VideoID); err != nil {
		// The failure is already recorded on the video. Requeueing here would
		// race the recorded state, so the message is always finished.
		slog.ErrorContext(ctx, "video task failed", "error", err, "video_id", payload.VideoID)
		return nil
	}
	return nil
}
