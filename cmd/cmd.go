// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/vibelist/internal/formatter"
	"github.com/urfave/cli/v3"
)

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, generateCommand, previewCommand, historyCommand, genresCommand,
		playlistsCommand, feedbackCommand, templatesCommand, planCommand, quotaCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func formatFlag(value string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, markdown, csv or json",
		Value:   value,
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:    "database",
				Aliases: []string{"db", "migrate"},
				Usage:   "Initialize database and run migrations",
				Action:  r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show applied and pending migrations",
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the Spotify account used to publish playlists",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize with Spotify through the browser and store the tokens",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in account, plan and token state",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored tokens for the signed-in account",
				Action: r.AuthLogout,
			},
		},
	}
}

func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Aliases:   []string{"gen"},
		Usage:     "Generate a playlist from a vibe description or a mood template",
		ArgsUsage: "<vibe description>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "template",
				Aliases: []string{"t"},
				Usage:   "Use a saved mood template instead of a description",
			},
			&cli.BoolFlag{
				Name:  "public",
				Usage: "Make the playlist public (defaults to generation.public_by_default)",
			},
			&cli.BoolFlag{
				Name:  "no-artwork",
				Usage: "Skip cover art generation",
			},
			formatFlag(formatter.FormatText),
		},
		Action: r.Generate,
	}
}

func previewCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "Translate a vibe into parameters without creating anything",
		ArgsUsage: "<vibe description>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Preview,
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Analyze your listening history and generate a playlist from it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "time-range",
				Usage: "Listening window: short, medium or long",
				Value: "medium",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of top tracks and artists to analyze",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "analyze-only",
				Usage: "Print the analysis without creating a playlist",
			},
			&cli.BoolFlag{
				Name:  "public",
				Usage: "Make the playlist public",
			},
			&cli.BoolFlag{
				Name:  "no-artwork",
				Usage: "Skip cover art generation",
			},
			formatFlag(formatter.FormatText),
		},
		Action: r.History,
	}
}

func genresCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "genres",
		Usage:  "List the genre seeds the catalog accepts",
		Action: r.Genres,
	}
}

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Browse and manage generated playlists",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List your generated playlists, newest first",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "public",
						Usage: "List public playlists from every user",
					},
					&cli.StringFlag{
						Name:  "mood",
						Usage: "Only playlists with this mood label",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to return",
						Value: 20,
					},
					formatFlag(formatter.FormatText),
				},
				Action: r.PlaylistsList,
			},
			{
				Name:      "show",
				Usage:     "Show one playlist with its feedback",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{formatFlag(formatter.FormatText)},
				Action:    r.PlaylistsShow,
			},
			{
				Name:      "export",
				Usage:     "Export a playlist to Markdown (with cover), text or CSV files",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					formatFlag(formatter.FormatMarkdown),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (markdown) or file path (text, csv)",
					},
				},
				Action: r.PlaylistsExport,
			},
			{
				Name:  "visibility",
				Usage: "Set a playlist public or private",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "visibility"},
				},
				Action: r.PlaylistsVisibility,
			},
			{
				Name:      "play",
				Usage:     "Record a play and open the playlist in the browser",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-open",
						Usage: "Only record the play",
					},
				},
				Action: r.PlaylistsPlay,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete the stored record (the Spotify playlist is kept)",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlaylistsDelete,
			},
		},
	}
}

func feedbackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "feedback",
		Usage: "Rate a generated playlist: enjoyed or prefer_different",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
			&cli.StringArg{Name: "rating"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "comment",
				Usage: "Optional comment",
			},
		},
		Action: r.Feedback,
	}
}

func templatesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "templates",
		Aliases: []string{"tmpl"},
		Usage:   "Manage mood templates",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List mood templates",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Include removed templates",
					},
				},
				Action: r.TemplatesList,
			},
			{
				Name:      "add",
				Usage:     "Save a parameter vector as a named template",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Usage: "What the template sounds like"},
					&cli.FloatFlag{Name: "energy", Usage: "Energy, 0 to 1", Value: 0.5},
					&cli.FloatFlag{Name: "valence", Usage: "Valence, 0 to 1", Value: 0.5},
					&cli.FloatFlag{Name: "tempo", Usage: "Tempo in BPM", Value: 110},
					&cli.StringSliceFlag{Name: "genre", Usage: "Genre seed (repeatable, up to 3)"},
					&cli.IntFlag{Name: "order", Usage: "Sort order", Value: 100},
				},
				Action: r.TemplatesAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a template",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Action:    r.TemplatesRemove,
			},
		},
	}
}

func planCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Show or change the subscription plan",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the current plan",
				Action: r.PlanShow,
			},
			{
				Name:      "set",
				Usage:     "Switch to the free or pro plan",
				Arguments: []cli.Argument{&cli.StringArg{Name: "plan"}},
				Action:    r.PlanSet,
			},
		},
	}
}

func quotaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "quota",
		Usage:  "Show generations used this month",
		Action: r.Quota,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve /metrics, /healthz and the OAuth callback until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to server.host:server.port)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive preview, edit and generate.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive preview and edit flow",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-artwork",
				Usage: "Skip cover art generation",
			},
		},
		Action: r.TUI,
	}
}
