package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/shared"
)

// GenerationRepository persists [models.GenerationResult] records.
//
// Records are written once; only is_public and play_count change afterward.
type GenerationRepository struct {
	db *sql.DB
}

// NewGenerationRepository creates a new [GenerationRepository] with the given database connection
func NewGenerationRepository(db *sql.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

const generationColumns = `
	id, sequence, user_id, title, description, mood_label, vibe_text, cover_image_url,
	playlist_id, playlist_url, track_count, parameters, stage, warnings, is_public,
	play_count, created_at, updated_at, deleted_at`

// Create inserts a result with generated ID and sequence.
func (r *GenerationRepository) Create(ctx context.Context, result *models.GenerationResult) error {
	if err := result.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	rec := result.Record()
	params, err := json.Marshal(rec.Parameters)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}

	var warnings any
	if len(rec.Warnings) > 0 {
		data, err := json.Marshal(rec.Warnings)
		if err != nil {
			return fmt.Errorf("failed to encode warnings: %w", err)
		}
		warnings = string(data)
	}

	sequence, err := NextSequence(ctx, r.db, "generations")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	id := shared.GenerateID()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO generations (
			id, sequence, user_id, title, description, mood_label, vibe_text, cover_image_url,
			playlist_id, playlist_url, track_count, parameters, stage, warnings, is_public,
			play_count, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id, sequence, rec.UserID, rec.Title, nullString(rec.Description), nullString(rec.MoodLabel),
		nullString(rec.VibeText), nullString(rec.CoverImageURL), rec.PlaylistID, nullString(rec.PlaylistURL),
		rec.TrackCount, string(params), string(rec.Stage), warnings, rec.Public, rec.PlayCount,
		result.CreatedAt().UTC(), result.UpdatedAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert generation: %w", err)
	}

	result.SetID(id)
	result.SetSequence(sequence)
	return nil
}

// CreateResult records the outcome of a pipeline run.
func (r *GenerationRepository) CreateResult(ctx context.Context, result *models.GenerationResult) error {
	return r.Create(ctx, result)
}

// CountResultsSince counts the user's results created at or after since.
//
// Soft-deleted rows are included so deleting a playlist does not refund quota.
func (r *GenerationRepository) CountResultsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM generations WHERE user_id = ? AND created_at >= ?`,
		userID, since.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count generations: %w", err)
	}
	return count, nil
}

// Get retrieves a result by ID, excluding soft-deleted results
func (r *GenerationRepository) Get(ctx context.Context, id string) (*models.GenerationResult, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+generationColumns+` FROM generations WHERE id = ? AND deleted_at IS NULL`, id)
	result, err := scanGeneration(row)
	if err != nil {
		return nil, notFound("generation", id, err)
	}
	return result, nil
}

// GetBySequence retrieves a result by its sequence number, which the CLI shows as #N.
func (r *GenerationRepository) GetBySequence(ctx context.Context, sequence int) (*models.GenerationResult, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+generationColumns+` FROM generations WHERE sequence = ? AND deleted_at IS NULL`, sequence)
	result, err := scanGeneration(row)
	if err != nil {
		return nil, notFound("generation", fmt.Sprintf("#%d", sequence), err)
	}
	return result, nil
}

// List retrieves results matching criteria, newest first.
//
// Supported criteria: "user_id" (string), "public" (bool), "mood" (string), "limit" (int).
func (r *GenerationRepository) List(ctx context.Context, criteria map[string]any) ([]*models.GenerationResult, error) {
	query := `SELECT ` + generationColumns + ` FROM generations WHERE deleted_at IS NULL`
	args := []any{}

	if v, ok := criteria["user_id"].(string); ok && v != "" {
		query += " AND user_id = ?"
		args = append(args, v)
	}
	if v, ok := criteria["public"].(bool); ok {
		query += " AND is_public = ?"
		args = append(args, v)
	}
	if v, ok := criteria["mood"].(string); ok && v != "" {
		query += " AND mood_label = ?"
		args = append(args, v)
	}

	query += " ORDER BY sequence DESC"
	if v, ok := criteria["limit"].(int); ok && v > 0 {
		query += " LIMIT ?"
		args = append(args, v)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()

	var results []*models.GenerationResult
	for rows.Next() {
		result, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return results, nil
}

// SetVisibility updates the public flag of a result owned by userID.
func (r *GenerationRepository) SetVisibility(ctx context.Context, id, userID string, public bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE generations SET is_public = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`, public, time.Now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("failed to update visibility: %w", err)
	}
	return expectOne(result, "generation", id)
}

// IncrementPlayCount adds one play to a result and returns the new count.
func (r *GenerationRepository) IncrementPlayCount(ctx context.Context, id string) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE generations SET play_count = play_count + 1, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, time.Now().UTC(), id)
	if err != nil {
		return 0, fmt.Errorf("failed to increment play count: %w", err)
	}
	if err := expectOne(result, "generation", id); err != nil {
		return 0, err
	}

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT play_count FROM generations WHERE id = ?`, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to read play count: %w", err)
	}
	return count, nil
}

// Delete soft-deletes a result. The external playlist is left untouched.
func (r *GenerationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE generations SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete generation: %w", err)
	}
	return expectOne(result, "generation", id)
}

func scanGeneration(s scanner) (*models.GenerationResult, error) {
	var (
		id, userID, title, playlistID, params, stage string
		sequence, trackCount, playCount              int
		description, mood, vibe, cover, url, warns   sql.NullString
		public                                       bool
		createdAt, updatedAt                         time.Time
		deletedAt                                    sql.NullTime
	)

	err := s.Scan(&id, &sequence, &userID, &title, &description, &mood, &vibe, &cover,
		&playlistID, &url, &trackCount, &params, &stage, &warns, &public,
		&playCount, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	rec := models.GenerationRecord{
		UserID:        userID,
		Title:         title,
		Description:   description.String,
		MoodLabel:     mood.String,
		VibeText:      vibe.String,
		CoverImageURL: cover.String,
		PlaylistID:    playlistID,
		PlaylistURL:   url.String,
		TrackCount:    trackCount,
		Stage:         models.PublishStage(stage),
		Public:        public,
		PlayCount:     playCount,
	}
	if err := json.Unmarshal([]byte(params), &rec.Parameters); err != nil {
		return nil, fmt.Errorf("failed to decode parameters: %w", err)
	}
	if warns.Valid && warns.String != "" {
		if err := json.Unmarshal([]byte(warns.String), &rec.Warnings); err != nil {
			return nil, fmt.Errorf("failed to decode warnings: %w", err)
		}
	}

	result := models.NewGenerationResult(rec)
	result.SetID(id)
	result.SetSequence(sequence)
	result.SetCreatedAt(createdAt)
	result.SetUpdatedAt(updatedAt)
	result.SetDeletedAt(timePtr(deletedAt))
	return result, nil
}
