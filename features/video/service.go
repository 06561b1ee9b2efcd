package video

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"tubedigest/internal/adapter/youtube"
	"tubedigest/internal/config"
	"tubedigest/internal/middleware"
)

type PlaylistLister interface {
	ListPlaylistItems(ctx context.Context, playlistID string) ([]youtube.PlaylistItem, error)
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// TaskPayload is the NSQ message enqueued per video for the pipeline worker.
type TaskPayload struct {
	VideoID       string `json:"video_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

type Service struct {
	repo     Repository
	playlist PlaylistLister
	pub      EventPublisher
}

func NewService(repo Repository, playlist PlaylistLister, pub EventPublisher) *Service {
	return &Service{repo: repo, playlist: playlist, pub: pub}
}

// SyncPlaylists upserts metadata for every video of the given playlists and,
// when a publisher is wired, enqueues a processing task per new video. Upsert
// never touches processing state, so re-syncing is harmless.
func (s *Service) SyncPlaylists(ctx context.Context, playlists []string) (int, error) {
	synced := 0
	for _, raw := range playlists {
		playlistID, err := youtube.ExtractPlaylistID(raw)
		if err != nil {
			return synced, err
		}

		items, err := s.playlist.ListPlaylistItems(ctx, playlistID)
		if err != nil {
			return synced, fmt.Errorf("sync playlist %s: %w", playlistID, err)
		}

		for _, it := range items {
			known, getErr := s.repo.Get(ctx, it.VideoID)
			isNew := getErr != nil || known == nil

			v := &Video{ID: it.VideoID, PlaylistID: it.PlaylistID, Title: it.Title, URL: it.URL}
			if err := s.repo.Upsert(ctx, v); err != nil {
				return synced, fmt.Errorf("upsert video %s: %w", it.VideoID, err)
			}
			synced++

			if isNew && s.pub != nil {
				s.publishTask(ctx, it.VideoID)
			}
		}
	}
	return synced, nil
}

func (s *Service) List(ctx context.Context) ([]Video, error) {
	return s.repo.List(ctx)
}

func (s *Service) CountByState(ctx context.Context) (map[State]int, error) {
	return s.repo.CountByState(ctx)
}

func (s *Service) publishTask(ctx context.Context, videoID string) {
	payload := TaskPayload{
		VideoID:       videoID,
		CorrelationID: middleware.GetCorrelationID(ctx),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal video task", "error", err, "video_id", videoID)
		return
	}
	if err := s.pub.Publish(config.TopicVideoProcess, body); err != nil {
		// The weekly run will still pick the video up from its state.
		slog.WarnContext(ctx, "failed to publish video task", "error", err, "video_id", videoID)
		return
	}
	slog.InfoContext(ctx, "enqueued video for processing", "video_id", videoID)
}
