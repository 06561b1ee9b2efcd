package idea

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type Repository interface {
	ReplaceForVideo(ctx context.Context, videoID string, ideas []Idea) error
	GetRecent(ctx context.Context, window time.Duration) ([]Idea, error)
	ListByVideo(ctx context.Context, videoID string) ([]Idea, error)
	CountSince(ctx context.Context, window time.Duration) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// ReplaceForVideo swaps the stored idea set for a video in one transaction.
// Delete-then-insert keeps reprocessing idempotent: rerunning a video never
// duplicates its ideas.
func (r *PostgresRepo) ReplaceForVideo(ctx context.Context, videoID string, ideas []Idea) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM extracted_ideas WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("delete old ideas: %w", err)
	}

	query := `INSERT INTO extracted_ideas (video_id, title, summary, keywords, confidence_score, llm_model_used, llm_prompt_version, extracted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, i := range ideas {
		if _, err := tx.ExecContext(ctx, query,
			videoID, i.Title, i.Summary, pq.Array(i.Keywords), i.Confidence,
			i.ModelUsed, i.PromptVersion, i.ExtractedAt); err != nil {
			return fmt.Errorf("insert idea %q: %w", i.Title, err)
		}
	}

	return tx.Commit()
}

func (r *PostgresRepo) GetRecent(ctx context.Context, window time.Duration) ([]Idea, error) {
	query := `SELECT id, video_id, title, summary, keywords, confidence_score, llm_model_used, llm_prompt_version, extracted_at
		FROM extracted_ideas
		WHERE extracted_at >= NOW() - $1::interval
		ORDER BY extracted_at DESC`
	rows, err := r.db.QueryContext(ctx, query, intervalArg(window))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIdeas(rows)
}

func (r *PostgresRepo) ListByVideo(ctx context.Context, videoID string) ([]Idea, error) {
	query := `SELECT id, video_id, title, summary, keywords, confidence_score, llm_model_used, llm_prompt_version, extracted_at
		FROM extracted_ideas
		WHERE video_id = $1
		ORDER BY extracted_at DESC`
	rows, err := r.db.QueryContext(ctx, query, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIdeas(rows)
}

func (r *PostgresRepo) CountSince(ctx context.Context, window time.Duration) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM extracted_ideas WHERE extracted_at >= NOW() - $1::interval`
	err := r.db.QueryRowContext(ctx, query, intervalArg(window)).Scan(&count)
	return count, err
}

func intervalArg(window time.Duration) string {
	return fmt.Sprintf("%d seconds", int64(window.Seconds()))
}

func scanIdeas(rows *sql.Rows) ([]Idea, error) {
	var ideas []Idea
	for rows.Next() {
		var i Idea
		if err := rows.Scan(&i.ID, &i.VideoID, &i.Title, &i.Summary, pq.Array(&i.Keywords),
			&i.Confidence, &i.ModelUsed, &i.PromptVersion, &i.ExtractedAt); err != nil {
			return nil, err
		}
		ideas = append(ideas, i)
	}
	return ideas, rows.Err()
}
