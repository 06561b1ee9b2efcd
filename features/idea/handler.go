package idea

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"tubedigest/internal/middleware"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// List returns the ideas extracted within a trailing window (?days=7).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, r, "VALIDATION_ERROR", "days must be a positive integer", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	ideas, err := h.repo.GetRecent(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list recent ideas", "error", err)
		h.writeError(w, r, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": ideas}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// ListByVideo returns the persisted ideas for one video.
func (h *Handler) ListByVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID := r.PathValue("id")
	if videoID == "" {
		h.writeError(w, r, "VALIDATION_ERROR", "video id is required", http.StatusBadRequest)
		return
	}

	ideas, err := h.repo.ListByVideo(ctx, videoID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list ideas for video", "error", err, "video_id", videoID)
		h.writeError(w, r, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": ideas}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(r.Context()),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
