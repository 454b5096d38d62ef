package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/shared"
)

// UserRepository implements [models.Repository] for [models.User] persistence.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, sequence, spotify_id, email, display_name, created_at, updated_at, deleted_at`

// Create inserts a new user with generated ID and sequence
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, sequence, spotify_id, email, display_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, sequence, user.SpotifyID(), nullString(user.Email()), nullString(user.DisplayName()),
		user.CreatedAt().UTC(), user.UpdatedAt().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	user.SetID(id)
	user.SetSequence(sequence)
	return nil
}

// Get retrieves a user by ID, excluding soft-deleted users
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ? AND deleted_at IS NULL`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound("user", id, err)
	}
	return user, nil
}

// GetBySpotifyID retrieves the user linked to a Spotify account
func (r *UserRepository) GetBySpotifyID(ctx context.Context, spotifyID string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE spotify_id = ? AND deleted_at IS NULL`, spotifyID)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound("user", spotifyID, err)
	}
	return user, nil
}

// Upsert creates the user for a Spotify account or refreshes its profile fields.
func (r *UserRepository) Upsert(ctx context.Context, spotifyID, email, displayName string) (*models.User, error) {
	existing, err := r.GetBySpotifyID(ctx, spotifyID)
	if errors.Is(err, shared.ErrNotFound) {
		user := models.NewUser(spotifyID, email, displayName)
		if err := r.Create(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		UPDATE users SET email = ?, display_name = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, nullString(email), nullString(displayName), now, existing.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	existing.SetEmail(email)
	existing.SetDisplayName(displayName)
	existing.SetUpdatedAt(now)
	return existing, nil
}

// Delete soft-deletes a user by ID
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectOne(result, "user", id)
}

// List retrieves users matching criteria ("spotify_id", "email"), excluding soft-deleted users
func (r *UserRepository) List(ctx context.Context, criteria map[string]any) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE deleted_at IS NULL`
	args := []any{}

	if v, ok := criteria["spotify_id"].(string); ok && v != "" {
		query += " AND spotify_id = ?"
		args = append(args, v)
	}
	if v, ok := criteria["email"].(string); ok && v != "" {
		query += " AND email = ?"
		args = append(args, v)
	}
	query += " ORDER BY sequence ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

func scanUser(s scanner) (*models.User, error) {
	var (
		id, spotifyID        string
		sequence             int
		email, displayName   sql.NullString
		createdAt, updatedAt time.Time
		deletedAt            sql.NullTime
	)
	if err := s.Scan(&id, &sequence, &spotifyID, &email, &displayName, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	user := models.NewUser(spotifyID, email.String, displayName.String)
	user.SetID(id)
	user.SetSequence(sequence)
	user.SetCreatedAt(createdAt)
	user.SetUpdatedAt(updatedAt)
	user.SetDeletedAt(timePtr(deletedAt))
	return user, nil
}
