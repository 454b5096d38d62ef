package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/vibelist/internal/formatter"
	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/services"
	"github.com/desertthunder/vibelist/internal/shared"
	"github.com/desertthunder/vibelist/internal/tasks"
	"github.com/desertthunder/vibelist/internal/ui"
	"github.com/urfave/cli/v3"
)

// Generate runs the full pipeline for a vibe description or a mood template.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	text := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	templateName := cmd.String("template")
	if text == "" && templateName == "" {
		return fmt.Errorf("%w: a vibe description or --template is required", shared.ErrMissingArgument)
	}
	if text != "" && templateName != "" {
		return fmt.Errorf("%w: cannot combine a description with --template", shared.ErrInvalidArgument)
	}

	acct, err := r.currentAccount(ctx, cmd)
	if err != nil {
		return err
	}

	req := models.ByVibeText(text)
	if templateName != "" {
		tmpl, err := r.templates.GetByName(ctx, templateName)
		if err != nil {
			return err
		}
		req = models.ByExplicitVector(tmpl.Parameters(), models.PreviewMeta{
			VibeText:    tmpl.Description(),
			Title:       ui.TemplateTitle(tmpl.Name()),
			Description: tmpl.Description(),
			MoodLabel:   tmpl.Name(),
		})
	}

	return r.runGeneration(ctx, cmd, acct, req)
}

// History analyzes the account's top tracks and artists, then generates from them.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	timeRange, err := services.ParseTimeRange(cmd.String("time-range"))
	if err != nil {
		return err
	}

	acct, err := r.currentAccount(ctx, cmd)
	if err != nil {
		return err
	}
	spotify, err := r.spotifyFor(ctx, acct)
	if err != nil {
		return err
	}
	engine, err := r.engineFor(spotify)
	if err != nil {
		return err
	}
	if err := engine.CheckQuota(ctx, acct.user.ID(), acct.plan); err != nil {
		return err
	}

	limit := cmd.Int("limit")
	r.writePlain("→ Fetching your top tracks and artists (%s)...\n", timeRange)

	topTracks, err := spotify.TopTracks(ctx, limit, timeRange)
	if err != nil {
		return err
	}
	topArtists, err := spotify.TopArtists(ctx, limit, timeRange)
	if err != nil {
		return err
	}

	tracks := make([]models.TrackSignal, 0, len(topTracks))
	for _, t := range topTracks {
		tracks = append(tracks, t.Signal())
	}
	artists := make([]models.ArtistSignal, 0, len(topArtists))
	for _, a := range topArtists {
		artists = append(artists, models.ArtistSignal{Name: a.Name, Genres: a.Genres})
	}
	r.logger.Debug("history signals", "tracks", len(tracks), "artists", len(artists))

	req := models.ByHistorySignals(tracks, artists)

	if cmd.Bool("analyze-only") {
		t, err := engine.Preview(ctx, r.request(cmd, acct, req), nil)
		if err != nil {
			return err
		}
		r.writePlainHeader("Your Music Profile")
		r.writePlain("%s\n\n", t.Description)
		r.writePlain("Genres:     %s\n", strings.Join(t.Parameters.Genres, ", "))
		r.writePlain("Parameters: %s\n", formatter.ParameterSummary(t.Parameters))
		return nil
	}

	return r.generateWith(ctx, cmd, acct, engine, req)
}

// Preview translates a vibe and prints the parameters. Nothing is created or counted.
func (r *Runner) Preview(ctx context.Context, cmd *cli.Command) error {
	text := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if text == "" {
		return fmt.Errorf("%w: a vibe description is required", shared.ErrMissingArgument)
	}

	acct, err := r.currentAccount(ctx, cmd)
	if err != nil {
		return err
	}
	// Preview stops after translation and never reaches the catalog.
	engine, err := r.engineFor(nil)
	if err != nil {
		return err
	}

	t, err := engine.Preview(ctx, r.request(cmd, acct, models.ByVibeText(text)), nil)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(t, true)
	}

	r.writePlainHeader(t.Title)
	r.writePlain("Mood:        %s\n", t.MoodLabel)
	r.writePlain("Description: %s\n", t.Description)
	r.writePlain("Parameters:  %s\n", formatter.ParameterSummary(t.Parameters))
	return nil
}

// Genres lists the catalog's genre seeds.
func (r *Runner) Genres(ctx context.Context, cmd *cli.Command) error {
	acct, err := r.currentAccount(ctx, cmd)
	if err != nil {
		return err
	}
	spotify, err := r.spotifyFor(ctx, acct)
	if err != nil {
		return err
	}

	genres, err := spotify.GenreSeeds(ctx)
	if err != nil {
		return err
	}

	r.writePlain("%d genre seeds:\n\n", len(genres))
	for _, g := range genres {
		r.writePlain("  %s\n", g)
	}
	return nil
}

func (r *Runner) runGeneration(ctx context.Context, cmd *cli.Command, acct *account, req models.GenerationRequest) error {
	spotify, err := r.spotifyFor(ctx, acct)
	if err != nil {
		return err
	}
	engine, err := r.engineFor(spotify)
	if err != nil {
		return err
	}
	return r.generateWith(ctx, cmd, acct, engine, req)
}

func (r *Runner) generateWith(ctx context.Context, cmd *cli.Command, acct *account, engine *tasks.GenerationEngine, req models.GenerationRequest) error {
	progress := make(chan tasks.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.printProgress(progress)
	}()

	result, err := engine.Generate(ctx, r.request(cmd, acct, req), progress)
	close(progress)
	wg.Wait()
	if err != nil {
		return err
	}

	if result.Partial() {
		r.writePlainln("⚠ The playlist was created but its tracks could not be added.")
	}
	r.writePlain("\n")
	return formatter.Render(r.output, cmd.String("format"), result)
}

// request fills the owner fields and the flags shared by generating commands.
func (r *Runner) request(cmd *cli.Command, acct *account, req models.GenerationRequest) models.GenerationRequest {
	req = req.For(acct.user.ID(), acct.plan, acct.user.SpotifyID())
	req.Public = r.config.Generation.PublicByDefault || cmd.Bool("public")
	req.SkipArtwork = cmd.Bool("no-artwork") || !r.config.Generation.Artwork
	return req
}

func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate) {
	for u := range progress {
		r.writePlain("[%d/%d] %s\n", u.Step, u.Total, u.Message)
	}
}
