package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/vibelist/internal/formatter"
	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlaylistsList lists the account's results, or public results from every user with --public.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	criteria := map[string]any{"limit": cmd.Int("limit")}
	if mood := cmd.String("mood"); mood != "" {
		criteria["mood"] = mood
	}

	if cmd.Bool("public") {
		if err := r.openStore(); err != nil {
			return err
		}
		criteria["public"] = true
	} else {
		acct, err := r.currentAccount(ctx, cmd)
		if err != nil {
			return err
		}
		criteria["user_id"] = acct.user.ID()
	}

	results, err := r.generations.List(ctx, criteria)
	if err != nil {
		return err
	}

	format := cmd.String("format")
	if format != formatter.FormatText {
		return formatter.Render(r.output, format, results...)
	}

	if len(results) == 0 {
		return r.writePlain("No playlists yet. Try: vibelist generate \"sunny afternoon walk\"\n")
	}

	r.writePlain("Found %d playlists:\n\n", len(results))
	for _, res := range results {
		r.writePlain("#%d %s\n", res.Sequence(), res.Title())
		r.writePlain("   Mood: %s · %d tracks · %s", res.MoodLabel(), res.TrackCount(), shared.VisibilityString(res.Public()))
		if res.PlayCount() > 0 {
			r.writePlain(" · %d plays", res.PlayCount())
		}
		r.writePlain("\n   %s\n", res.PlaylistURL())
		if res.Partial() {
			r.writePlain("   ⚠ tracks were not added\n")
		}
		r.writePlain("\n")
	}
	return nil
}

// PlaylistsShow prints one result the account owns or that is public, with its feedback summary.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	result, err := r.visibleResult(ctx, cmd, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if err := formatter.Render(r.output, cmd.String("format"), result); err != nil {
		return err
	}
	if cmd.String("format") != formatter.FormatText {
		return nil
	}

	summary, err := r.feedback.Summary(ctx, result.ID())
	if err != nil {
		return err
	}
	if len(summary) > 0 {
		r.writePlain("\nFeedback: %d enjoyed · %d prefer different\n",
			summary[models.RatingEnjoyed], summary[models.RatingPreferDifferent])
	}
	return nil
}

// PlaylistsExport writes a result to files in the chosen format.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	result, err := r.visibleResult(ctx, cmd, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	output := cmd.String("output")
	switch format := strings.ToLower(cmd.String("format")); format {
	case formatter.FormatMarkdown, "md":
		export, err := formatter.WriteMarkdownExport(ctx, r.httpClient, result, output)
		if err != nil {
			return err
		}
		for _, w := range export.Warnings {
			r.logger.Warn(w)
		}
		r.writePlain("✓ Exported to %s\n", export.Directory)
		for _, f := range export.Files {
			r.writePlain("  %s\n", f)
		}
		return nil
	case formatter.FormatText:
		path, err := formatter.WriteTextExport(result, output)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported to %s\n", path)
	case formatter.FormatCSV:
		path, err := formatter.WriteCSVExport([]*models.GenerationResult{result}, output)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported to %s\n", path)
	default:
		return fmt.Errorf("%w: export format must be markdown, text or csv, got %q", shared.ErrInvalidArgument, format)
	}
}

// PlaylistsVisibility marks a result public or private.
func (r *Runner) PlaylistsVisibility(ctx context.Context, cmd *cli.Command) error {
	var public bool
	switch v := cmd.StringArg("visibility"); v {
	case "public":
		public = true
	case "private":
	default:
		return fmt.Errorf("%w: visibility must be public or private, got %q", shared.ErrInvalidArgument, v)
	}

	acct, err := r.currentAccount(ctx, cmd)
	if err != nil {
		return err
	}
	result, err := r.ownedResult(ctx, acct, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if err := r.generations.SetVisibility(ctx, result.ID(), acct.user.ID(), public); err != nil {
		return err
	}
	return r.writePlain("✓ #%d %s is now %s\n", result.Sequence(), result.Title(), strings.ToLower(shared.VisibilityString(public)))
}

// PlaylistsPlay increments the play counter and opens the playlist.
func (r *Runner) PlaylistsPlay(ctx context.Context, cmd *cli.Command) error {
	result, err := r.visibleResult(ctx, cmd, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	count, err := r.generations.IncrementPlayCount(ctx, result.ID())
	if err != nil {
		return err
	}

	if !cmd.Bool("no-open") && result.PlaylistURL() != "" {
		if err := r.open(result.PlaylistURL()); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
			r.writePlain("Open: %s\n", result.PlaylistURL())
		}
	}
	return r.writePlain("▶ %s (%d plays)\n", result.Title(), count)
}

// PlaylistsDelete soft-deletes a stored result. The Spotify playlist is not touched.
func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	acct, err := r.currentAccount(ctx, cmd)
	if err != nil {
		return err
	}
	result, err := r.ownedResult(ctx, acct, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if err := r.generations.Delete(ctx, result.ID()); err != nil {
		return err
	}
	r.logger.Info("generation deleted", "id", result.ID())
	return r.writePlain("✓ Deleted #%d %s (the Spotify playlist was kept)\n", result.Sequence(), result.Title())
}

// Feedback records a rating for a result the account can see.
func (r *Runner) Feedback(ctx context.Context, cmd *cli.Command) error {
	rating, err := models.ParseRating(cmd.StringArg("rating"))
	if err != nil {
		return err
	}

	acct, err := r.currentAccount(ctx, cmd)
	if err != nil {
		return err
	}
	result, err := r.visibleResult(ctx, cmd, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	fb := models.NewFeedback(result.ID(), acct.user.ID(), rating, cmd.String("comment"))
	if err := r.feedback.Create(ctx, fb); err != nil {
		return err
	}
	return r.writePlain("✓ Thanks! Recorded %q for #%d %s\n", rating, result.Sequence(), result.Title())
}

// visibleResult resolves ref when it is public or owned by the signed-in account.
func (r *Runner) visibleResult(ctx context.Context, cmd *cli.Command, ref string) (*models.GenerationResult, error) {
	if err := r.openStore(); err != nil {
		return nil, err
	}
	result, err := r.resolveResult(ctx, ref)
	if err != nil {
		return nil, err
	}
	if result.Public() {
		return result, nil
	}

	acct, err := r.currentAccount(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if result.UserID() != acct.user.ID() {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrPlaylistNotFound, ref)
	}
	return result, nil
}
