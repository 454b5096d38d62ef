package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibelist/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// SpotifyScopes are the permissions requested at login: playlist creation, cover upload,
// listening history, and the profile used to link the local account.
var SpotifyScopes = []string{
	"playlist-modify-public",
	"playlist-modify-private",
	"ugc-image-upload",
	"user-top-read",
	"user-read-email",
	"user-read-private",
}

// SpotifyAuth holds the OAuth2 configuration for the Spotify authorization code flow.
type SpotifyAuth struct {
	config *oauth2.Config
}

// NewSpotifyAuth creates a [SpotifyAuth] from "client_id", "client_secret" and "redirect_uri".
func NewSpotifyAuth(credentials map[string]string) (*SpotifyAuth, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: spotify client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	return &SpotifyAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       SpotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
	}, nil
}

// Config returns the underlying OAuth2 configuration, used by the callback handler.
func (a *SpotifyAuth) Config() *oauth2.Config {
	return a.config
}

// AuthURL returns the authorization URL for user login.
func (a *SpotifyAuth) AuthURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// TokenStore persists tokens per user.
type TokenStore interface {
	Get(ctx context.Context, userID string) (*oauth2.Token, error)
	Save(ctx context.Context, userID string, token *oauth2.Token) error
}

// TokenSource loads the user's stored token and returns a source that refreshes it on expiry.
func (a *SpotifyAuth) TokenSource(ctx context.Context, userID string, store TokenStore, logger *log.Logger) (*StoredTokenSource, error) {
	token, err := store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !token.Valid() && token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %w", shared.ErrTokenExpired, shared.ErrNoRefreshToken)
	}
	return NewStoredTokenSource(ctx, userID, a.config.TokenSource(ctx, token), store, token, logger), nil
}

// StoredTokenSource wraps a refreshing [oauth2.TokenSource] and saves each new token to a [TokenStore].
type StoredTokenSource struct {
	ctx    context.Context
	userID string
	source oauth2.TokenSource
	store  TokenStore
	logger *log.Logger

	mu   sync.Mutex
	last string
}

// NewStoredTokenSource creates a [StoredTokenSource]. current is the token already in the store.
func NewStoredTokenSource(ctx context.Context, userID string, source oauth2.TokenSource, store TokenStore, current *oauth2.Token, logger *log.Logger) *StoredTokenSource {
	if logger == nil {
		logger = log.Default()
	}
	s := &StoredTokenSource{ctx: ctx, userID: userID, source: source, store: store, logger: logger}
	if current != nil {
		s.last = current.AccessToken
	}
	return s
}

// Token returns a valid token. A refresh failure is reported as [shared.ErrTokenExpired].
func (s *StoredTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.source.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, fmt.Errorf("%w: refresh rejected: %v", shared.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if err := s.store.Save(s.ctx, s.userID, token); err != nil {
			s.logger.Warn("failed to persist refreshed token", "user", s.userID, "error", err)
		} else {
			s.logger.Debug("refreshed spotify token", "user", s.userID, "expires", token.Expiry)
		}
	}

	return token, nil
}
