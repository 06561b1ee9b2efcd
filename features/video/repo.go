package video

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when a guarded state change finds the
// record in an unexpected state, e.g. marking a video processed that never
// entered processing.
var ErrInvalidTransition = errors.New("invalid processing state transition")

type Repository interface {
	Upsert(ctx context.Context, v *Video) error
	Get(ctx context.Context, id string) (*Video, error)
	List(ctx context.Context) ([]Video, error)
	GetUnprocessed(ctx context.Context, threshold time.Duration) ([]Video, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkProcessed(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string) error
	CountByState(ctx context.Context) (map[State]int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Upsert records playlist metadata without disturbing processing state.
func (r *PostgresRepo) Upsert(ctx context.Context, v *Video) error {
	query := `INSERT INTO youtube_videos (id, playlist_id, title, url, state)
		VALUES ($1, $2, $3, $4, 'unprocessed')
		ON CONFLICT (id) DO UPDATE SET playlist_id = EXCLUDED.playlist_id, title = EXCLUDED.title, url = EXCLUDED.url, updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query, v.ID, v.PlaylistID, v.Title, v.URL)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Video, error) {
	v := &Video{}
	query := `SELECT id, playlist_id, title, url, state, attempt_count, COALESCE(last_error, ''), last_processed_at, created_at
		FROM youtube_videos WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.PlaylistID, &v.Title, &v.URL, &v.State, &v.AttemptCount, &v.LastError, &v.LastProcessedAt, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Video, error) {
	query := `SELECT id, playlist_id, title, url, state, attempt_count, COALESCE(last_error, ''), last_processed_at, created_at
		FROM youtube_videos ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVideos(rows)
}

// GetUnprocessed returns every video eligible for (re)processing: never
// processed, failed, stranded in processing by a previous run, or processed
// longer ago than the threshold. Stranded processing records must never be
// skipped, or a crash mid-video would freeze it forever.
func (r *PostgresRepo) GetUnprocessed(ctx context.Context, threshold time.Duration) ([]Video, error) {
	query := `SELECT id, playlist_id, title, url, state, attempt_count, COALESCE(last_error, ''), last_processed_at, created_at
		FROM youtube_videos
		WHERE state IN ('unprocessed', 'processing', 'failed')
		   OR (state = 'processed' AND (last_processed_at IS NULL OR last_processed_at < NOW() - $1::interval))
		ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, intervalArg(threshold))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVideos(rows)
}

// MarkProcessing is legal from every state: new and failed videos start an
// attempt, stale processed videos start a reprocess, and stranded processing
// records restart. It always increments the attempt counter.
func (r *PostgresRepo) MarkProcessing(ctx context.Context, id string) error {
	query := `UPDATE youtube_videos
		SET state = 'processing', attempt_count = attempt_count + 1, updated_at = NOW()
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

// MarkProcessed only succeeds from processing, so a video can never jump from
// unprocessed to processed without an attempt in between.
func (r *PostgresRepo) MarkProcessed(ctx context.Context, id string) error {
	query := `UPDATE youtube_videos
		SET state = 'processed', last_processed_at = NOW(), last_error = '', updated_at = NOW()
		WHERE id = $1 AND state = 'processing'`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: video %s is not processing", ErrInvalidTransition, id)
	}
	return nil
}

func (r *PostgresRepo) MarkFailed(ctx context.Context, id, reason string) error {
	query := `UPDATE youtube_videos
		SET state = 'failed', last_error = $2, updated_at = NOW()
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, reason)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func (r *PostgresRepo) CountByState(ctx context.Context) (map[State]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM youtube_videos GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[State]int)
	for rows.Next() {
		var s State
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[s] = n
	}
	return counts, rows.Err()
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("video %s not found", id)
	}
	return nil
}

func intervalArg(d time.Duration) string {
	return fmt.Sprintf("%d seconds", int64(d.Seconds()))
}

func scanVideos(rows *sql.Rows) ([]Video, error) {
	var videos []Video
	for rows.Next() {
		var v Video
		if err := rows.Scan(&v.ID, &v.PlaylistID, &v.Title, &v.URL, &v.State, &v.AttemptCount,
			&v.LastError, &v.LastProcessedAt, &v.CreatedAt); err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}
