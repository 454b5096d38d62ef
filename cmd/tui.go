package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vibelist/internal/shared"
	"github.com/desertthunder/vibelist/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for previewing, editing and generating playlists.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	acct, err := r.currentAccount(ctx, cmd)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/vibelist-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	spotify, err := r.spotifyFor(ctx, acct)
	if err != nil {
		return err
	}
	engine, err := r.engineFor(spotify)
	if err != nil {
		return err
	}

	templates, err := r.templates.List(ctx, nil)
	if err != nil {
		return err
	}

	session := ui.Session{
		UserID:      acct.user.ID(),
		Plan:        acct.plan,
		OwnerID:     acct.user.SpotifyID(),
		DisplayName: displayName(acct.user),
		Public:      r.config.Generation.PublicByDefault,
		SkipArtwork: cmd.Bool("no-artwork") || !r.config.Generation.Artwork,
	}

	model := ui.NewModel(ctx, engine, session, templates, fileLogger)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
