package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/vibelist/internal/server"
	"github.com/desertthunder/vibelist/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve exposes /metrics and /healthz, and accepts one Spotify login through the callback
// route while it runs. It stops on SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr, callbackPath := r.callbackAddr()
	if a := cmd.String("addr"); a != "" {
		addr = a
	}

	router := server.NewDefaultRouter(r.logger)
	router.Handler(server.NewHealthHandler(r.db))
	router.Handle(http.MethodGet, "/metrics", r.metrics.Handler())

	if auth, err := r.spotifyAuth(); err != nil {
		r.logger.Warn("login callback disabled", "error", err)
	} else {
		state, err := shared.GenerateState()
		if err != nil {
			return fmt.Errorf("failed to generate state token: %w", err)
		}
		oauth := server.NewOAuthHandler(auth.Config(), state, callbackPath)
		router.Handler(oauth)
		r.logger.Info("sign in at", "url", auth.AuthURL(state))

		go func() {
			select {
			case result := <-oauth.Result():
				if result.Err != nil {
					r.logger.Error("login failed", "error", result.Err)
					return
				}
				if _, err := r.completeLogin(ctx, result.Token); err != nil {
					r.logger.Error("login failed", "error", err)
				}
			case <-ctx.Done():
			}
		}()
	}

	return server.ListenAndServe(ctx, addr, router, r.logger)
}
