package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/server"
	"github.com/desertthunder/vibelist/internal/services"
	"github.com/desertthunder/vibelist/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// AuthLogin performs the OAuth2 authorization code flow for Spotify.
//
// Starts a local callback server, opens the browser, then links the Spotify profile to a local user
// and stores its tokens.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	auth, err := r.spotifyAuth()
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, auth)
	if err != nil {
		return err
	}

	user, err := r.completeLogin(ctx, token)
	if err != nil {
		return err
	}

	r.writePlainln("✓ Signed in as %s", displayName(user))
	r.writePlain("✓ Tokens saved to %s\n\n", r.config.Database.Path)
	r.writePlain("You can now use: vibelist generate \"rainy late-night drive\"\n")
	return nil
}

// AuthStatus shows the signed-in account, its plan and whether a token is stored.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	acct, err := r.currentAccount(ctx, cmd)
	if err != nil {
		return err
	}

	r.writePlainHeader("Account")
	r.writePlain("User:      %s\n", displayName(acct.user))
	r.writePlain("Spotify:   %s\n", acct.user.SpotifyID())
	if acct.user.Email() != "" {
		r.writePlain("Email:     %s\n", acct.user.Email())
	}
	r.writePlain("Plan:      %s\n", acct.plan)

	token, err := r.tokens.Get(ctx, acct.user.ID())
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		return r.writePlain("Token:     ✗ none stored\n")
	case err != nil:
		return err
	}

	status := "✓ valid"
	if !token.Expiry.IsZero() && time.Now().After(token.Expiry) {
		status = "expired (refreshes on next use)"
	}
	if token.RefreshToken == "" {
		status += ", no refresh token"
	}
	r.writePlain("Token:     %s\n", status)
	if !token.Expiry.IsZero() {
		r.writePlain("Expires:   %s\n", token.Expiry.Local().Format(time.DateTime))
	}
	return nil
}

// AuthLogout deletes the stored token and clears the signed-in account.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	acct, err := r.currentAccount(ctx, cmd)
	if err != nil {
		return err
	}

	if err := r.tokens.Delete(ctx, acct.user.ID()); err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if r.config.Account.SpotifyID == acct.user.SpotifyID() {
		if err := r.saveAccount(""); err != nil {
			return err
		}
	}

	r.logger.Info("signed out", "spotify_id", acct.user.SpotifyID())
	return r.writePlain("✓ Signed out %s\n", displayName(acct.user))
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, auth *services.SpotifyAuth) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	addr, path := r.callbackAddr()
	handler := server.NewOAuthHandler(auth.Config(), state, path)
	router := server.NewDefaultRouter(r.logger)
	router.Handler(handler)

	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server at %v", addr)
		serverErrors <- server.ListenAndServe(ctx, addr, router, r.logger)
	}()

	authURL := auth.AuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := r.open(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%v timeout)...\n", authTimeout)

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, authTimeout)
	}

	cancel()
	if err := <-serverErrors; err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Err)
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

// completeLogin upserts the local user for the token's Spotify profile, stores the token,
// and records the account as signed in.
func (r *Runner) completeLogin(ctx context.Context, token *oauth2.Token) (*models.User, error) {
	spotify := r.spotifyWith(oauth2.StaticTokenSource(token))
	me, err := spotify.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load Spotify profile: %w", err)
	}

	user, err := r.users.Upsert(ctx, me.ID, me.Email, me.DisplayName)
	if err != nil {
		return nil, err
	}
	if err := r.tokens.Save(ctx, user.ID(), token); err != nil {
		return nil, err
	}
	if err := r.saveAccount(me.ID); err != nil {
		return nil, err
	}

	r.logger.Info("signed in", "spotify_id", me.ID, "user_id", user.ID())
	return user, nil
}

// saveAccount writes the signed-in Spotify id to the config file. Values from the
// environment are not written back.
func (r *Runner) saveAccount(spotifyID string) error {
	r.config.Account.SpotifyID = spotifyID
	if r.configPath == "" {
		return nil
	}

	fileConfig := shared.DefaultConfig()
	if _, err := os.Stat(r.configPath); err == nil {
		if fileConfig, err = shared.LoadConfig(r.configPath); err != nil {
			return err
		}
	}
	fileConfig.Account.SpotifyID = spotifyID

	if err := shared.SaveConfig(r.configPath, fileConfig); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// callbackAddr derives the listen address and path from the redirect URI, falling back to [server].
func (r *Runner) callbackAddr() (string, string) {
	addr := net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
	path := "/callback"

	u, err := url.Parse(r.config.Credentials.Spotify.RedirectURI)
	if err != nil || u.Host == "" {
		return addr, path
	}
	if u.Path != "" {
		path = u.Path
	}
	if u.Port() != "" {
		addr = u.Host
	}
	return addr, path
}

func displayName(u *models.User) string {
	if u.DisplayName() != "" {
		return u.DisplayName()
	}
	return u.SpotifyID()
}
