package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"tubedigest/features/video"
	"tubedigest/internal/middleware"
)

type VideoRepo interface {
	CountByState(ctx context.Context) (map[video.State]int, error)
}

type IdeaRepo interface {
	CountSince(ctx context.Context, window time.Duration) (int, error)
}

type VectorStore interface {
	CountIdeas(ctx context.Context) (int, error)
}

type Handler struct {
	videoRepo   VideoRepo
	ideaRepo    IdeaRepo
	vectorStore VectorStore // nil when the lexical dedup backend is active
	window      time.Duration
}

func NewHandler(v VideoRepo, i IdeaRepo, vs VectorStore, windowDays int) *Handler {
	return &Handler{videoRepo: v, ideaRepo: i, vectorStore: vs, window: time.Duration(windowDays) * 24 * time.Hour}
}

type StatsResponse struct {
	Videos       map[string]int `json:"videos"`
	RecentIdeas  int            `json:"recent_ideas"`
	IndexedIdeas int            `json:"indexed_ideas"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID)

	states, err := h.videoRepo.CountByState(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count videos", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count videos", http.StatusInternalServerError)
		return
	}

	iCount, err := h.ideaRepo.CountSince(ctx, h.window)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count ideas", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count ideas", http.StatusInternalServerError)
		return
	}

	vCount := 0
	if h.vectorStore != nil {
		vCount, err = h.vectorStore.CountIdeas(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to count indexed ideas", "error", err, "correlationId", correlationID)
			h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count indexed ideas", http.StatusInternalServerError)
			return
		}
	}

	resp := StatsResponse{
		Videos:       make(map[string]int, len(states)),
		RecentIdeas:  iCount,
		IndexedIdeas: vCount,
	}
	for state, n := range states {
		resp.Videos[string(state)] = n
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
