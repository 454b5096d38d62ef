package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/vibelist/internal/shared"
	"github.com/urfave/cli/v3"
)

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "vibelist",
		Usage:   "Turn a vibe into a Spotify playlist",
		Version: "0.3.0",
		Writer:  r.output,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "account",
				Usage: "Spotify user id to act as (defaults to the signed-in account)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.loadConfig,
		Commands: r.register(),
	}
}

// hint returns a next step for errors the user can act on.
func hint(err error) string {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrTokenExpired):
		return "run `vibelist auth login` to sign in with Spotify"
	case errors.Is(err, shared.ErrQuotaExceeded):
		return "free plans allow 5 playlists a month; `vibelist plan set pro` removes the limit"
	case errors.Is(err, shared.ErrMissingCredentials):
		return "set the credentials in config.toml or via SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET and OPENAI_API_KEY"
	case errors.Is(err, shared.ErrMalformedModelOutput):
		return "the model returned an unexpected answer; try rephrasing the vibe"
	}
	return ""
}

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{Logger: logger, ConfigPath: "config.toml"})
	defer runner.Close()

	if err := newApp(runner).Run(context.Background(), os.Args); err != nil {
		if h := hint(err); h != "" {
			logger.Error(err.Error(), "hint", h)
		} else {
			logger.Error("application error", "error", err)
		}
		runner.Close()
		os.Exit(1)
	}
}
