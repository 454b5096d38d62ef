package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/vibelist/internal/shared"
	"golang.org/x/oauth2"
)

// TokenRepository stores Spotify OAuth tokens, one per user.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new [TokenRepository] with the given database connection
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Save inserts or replaces the user's token. An empty refresh token keeps the stored one,
// since Spotify omits it on refresh responses.
func (r *TokenRepository) Save(ctx context.Context, userID string, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: access token is required", shared.ErrInvalidInput)
	}

	var expiry any
	if !token.Expiry.IsZero() {
		expiry = token.Expiry.UTC()
	}
	scope, _ := token.Extra("scope").(string)
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO spotify_tokens (user_id, access_token, refresh_token, token_type, scope, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = COALESCE(excluded.refresh_token, spotify_tokens.refresh_token),
			token_type = excluded.token_type,
			scope = COALESCE(excluded.scope, spotify_tokens.scope),
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, userID, token.AccessToken, nullString(token.RefreshToken), nullString(token.TokenType), nullString(scope), expiry, now, now)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Get returns the stored token for userID.
func (r *TokenRepository) Get(ctx context.Context, userID string) (*oauth2.Token, error) {
	var (
		access             string
		refresh, tokenType sql.NullString
		expiry             sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, token_type, expires_at FROM spotify_tokens WHERE user_id = ?
	`, userID).Scan(&access, &refresh, &tokenType, &expiry)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: no Spotify token stored", shared.ErrNotAuthenticated)
		}
		return nil, fmt.Errorf("failed to query token: %w", err)
	}

	token := &oauth2.Token{AccessToken: access, RefreshToken: refresh.String, TokenType: tokenType.String}
	if expiry.Valid {
		token.Expiry = expiry.Time
	}
	return token, nil
}

// Delete removes the user's token.
func (r *TokenRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM spotify_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return expectOne(result, "token", userID)
}
