package video

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"tubedigest/internal/middleware"
)

type Handler struct {
	service          *Service
	defaultPlaylists []string
}

func NewHandler(service *Service, defaultPlaylists []string) *Handler {
	return &Handler{service: service, defaultPlaylists: defaultPlaylists}
}

// Sync ingests playlist metadata. The body may override the configured
// playlists: {"playlists": ["PL...", "https://www.youtube.com/playlist?list=..."]}.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlists := h.defaultPlaylists
	var req struct {
		Playlists []string `json:"playlists"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		h.writeError(w, r, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Playlists) > 0 {
		playlists = req.Playlists
	}
	if len(playlists) == 0 {
		h.writeError(w, r, "VALIDATION_ERROR", "no playlists configured or provided", http.StatusBadRequest)
		return
	}

	synced, err := h.service.SyncPlaylists(ctx, playlists)
	if err != nil {
		slog.ErrorContext(ctx, "playlist sync failed", "error", err)
		h.writeError(w, r, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]int{"synced": synced}}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videos, err := h.service.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list videos", "error", err)
		h.writeError(w, r, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": videos}); err != nil {
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
