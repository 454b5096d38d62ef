package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/shared"
)

// FeedbackRepository stores ratings of generated playlists.
type FeedbackRepository struct {
	db *sql.DB
}

// NewFeedbackRepository creates a new [FeedbackRepository] with the given database connection
func NewFeedbackRepository(db *sql.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create inserts feedback with a generated ID.
func (r *FeedbackRepository) Create(ctx context.Context, fb *models.Feedback) error {
	if err := fb.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feedback (id, generation_id, user_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, fb.GenerationID(), fb.UserID(), string(fb.Rating()), nullString(fb.Comment()), fb.CreatedAt().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}

	fb.SetID(id)
	return nil
}

// Summary counts ratings for a generation.
func (r *FeedbackRepository) Summary(ctx context.Context, generationID string) (map[models.Rating]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rating, COUNT(*) FROM feedback WHERE generation_id = ? GROUP BY rating
	`, generationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	summary := map[models.Rating]int{}
	for rows.Next() {
		var (
			rating string
			n      int
		)
		if err := rows.Scan(&rating, &n); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		summary[models.Rating(rating)] = n
	}
	return summary, rows.Err()
}

// ListForGeneration returns feedback for a generation, oldest first.
func (r *FeedbackRepository) ListForGeneration(ctx context.Context, generationID string) ([]*models.Feedback, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, generation_id, user_id, rating, comment, created_at
		FROM feedback WHERE generation_id = ? ORDER BY created_at ASC
	`, generationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var out []*models.Feedback
	for rows.Next() {
		var (
			id, genID, userID, rating string
			comment                   sql.NullString
			createdAt                 time.Time
		)
		if err := rows.Scan(&id, &genID, &userID, &rating, &comment, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		fb := models.NewFeedback(genID, userID, models.Rating(rating), comment.String)
		fb.SetID(id)
		fb.SetCreatedAt(createdAt)
		out = append(out, fb)
	}
	return out, rows.Err()
}
