package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/repositories"
	"github.com/desertthunder/vibelist/internal/services"
	"github.com/desertthunder/vibelist/internal/shared"
	"github.com/desertthunder/vibelist/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	db         *sql.DB
	ownsDB     bool
	httpClient *http.Client
	spotifyURL string
	logger     *log.Logger
	output     io.Writer
	metrics    *tasks.Metrics
	location   *time.Location
	open       func(string) error

	users         *repositories.UserRepository
	generations   *repositories.GenerationRepository
	subscriptions *repositories.SubscriptionRepository
	tokens        *repositories.TokenRepository
	templates     *repositories.TemplateRepository
	feedback      *repositories.FeedbackRepository
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Config is loaded from ConfigPath by the root command when nil. DB is opened from the
// config on first use when nil.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Location   *time.Location

	SpotifyBaseURL string // empty uses the public Web API
}

// account is the signed-in user resolved for a command.
type account struct {
	user *models.User
	plan models.Plan
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		spotifyURL: opts.SpotifyBaseURL,
		logger:     opts.Logger,
		output:     opts.Output,
		metrics:    tasks.NewMetrics(),
		location:   opts.Location,
		open:       shared.OpenBrowser,
	}
	if opts.DB != nil {
		r.attach(opts.DB)
	}
	return r
}

func (r *Runner) attach(db *sql.DB) {
	r.db = db
	r.users = repositories.NewUserRepository(db)
	r.generations = repositories.NewGenerationRepository(db)
	r.subscriptions = repositories.NewSubscriptionRepository(db)
	r.tokens = repositories.NewTokenRepository(db)
	r.templates = repositories.NewTemplateRepository(db)
	r.feedback = repositories.NewFeedbackRepository(db)
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the database when the runner opened it.
func (r *Runner) Close() error {
	if r.db != nil && r.ownsDB {
		return r.db.Close()
	}
	return nil
}

// loadConfig is the root command's Before hook. An injected config is kept as is.
func (r *Runner) loadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	if r.config != nil {
		return ctx, nil
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(r.configPath); err == nil {
		loaded, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		config = loaded
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}
	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// openStore opens and migrates the configured database once per process.
func (r *Runner) openStore() error {
	if r.db != nil {
		return nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.attach(db)
	r.ownsDB = true
	return nil
}

// currentAccount resolves the signed-in user and the plan in force now.
func (r *Runner) currentAccount(ctx context.Context, cmd *cli.Command) (*account, error) {
	if err := r.openStore(); err != nil {
		return nil, err
	}

	spotifyID := cmd.String("account")
	if spotifyID == "" {
		spotifyID = r.config.Account.SpotifyID
	}
	if spotifyID == "" {
		return nil, fmt.Errorf("%w: no account signed in", shared.ErrNotAuthenticated)
	}

	user, err := r.users.GetBySpotifyID(ctx, spotifyID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown account %s", shared.ErrNotAuthenticated, spotifyID)
		}
		return nil, err
	}

	plan, err := r.subscriptions.PlanFor(ctx, user.ID(), time.Now())
	if err != nil {
		return nil, err
	}
	return &account{user: user, plan: plan}, nil
}

func (r *Runner) spotifyAuth() (*services.SpotifyAuth, error) {
	return services.NewSpotifyAuth(r.config.Credentials.Spotify.Map())
}

// spotifyFor builds a Spotify client whose tokens refresh through the token repository.
func (r *Runner) spotifyFor(ctx context.Context, acct *account) (*services.SpotifyService, error) {
	auth, err := r.spotifyAuth()
	if err != nil {
		return nil, err
	}

	source, err := auth.TokenSource(ctx, acct.user.ID(), r.tokens, shared.WithLogger(r.logger, "component", "tokens"))
	if err != nil {
		return nil, err
	}
	return r.spotifyWith(source), nil
}

func (r *Runner) spotifyWith(tokens services.TokenProvider) *services.SpotifyService {
	return services.NewSpotifyService(tokens, services.SpotifyOpts{
		RequestsPerSecond: r.config.Spotify.RequestsPerSecond,
		Market:            r.config.Spotify.Market,
		BaseURL:           r.spotifyURL,
		HTTPClient:        r.httpClient,
		Logger:            shared.WithLogger(r.logger, "service", "spotify"),
	})
}

// engineFor wires the generation pipeline around spotify.
func (r *Runner) engineFor(spotify *services.SpotifyService) (*tasks.GenerationEngine, error) {
	openai, err := services.NewOpenAIService(r.config.Credentials.OpenAI, shared.WithLogger(r.logger, "service", "openai"))
	if err != nil {
		return nil, err
	}

	gen := r.config.Generation
	opts := tasks.EngineOpts{
		Store:               r.generations,
		Model:               openai,
		Catalog:             spotify,
		Writer:              spotify,
		HTTPClient:          r.httpClient,
		FreeMonthlyLimit:    gen.FreeMonthlyLimit,
		TranslateRetries:    gen.TranslateRetries,
		RecommendationLimit: r.config.Spotify.RecommendationLimit,
		Retry: tasks.RetryPolicy{
			MaxRetries: gen.RetryMax,
			Initial:    gen.RetryInitial(),
			Max:        gen.RetryCeiling(),
		},
		Location: r.location,
		Logger:   shared.WithLogger(r.logger, "component", "engine"),
		Metrics:  r.metrics,
	}
	if gen.Artwork {
		opts.Images = openai
	}
	return tasks.NewGenerationEngine(opts), nil
}

// resolveResult finds a stored result by ID, sequence number, or "#N".
func (r *Runner) resolveResult(ctx context.Context, ref string) (*models.GenerationResult, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: playlist id or #number", shared.ErrMissingArgument)
	}
	if seq, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil {
		return r.generations.GetBySequence(ctx, seq)
	}
	return r.generations.Get(ctx, ref)
}

// ownedResult resolves ref and checks that acct owns it.
func (r *Runner) ownedResult(ctx context.Context, acct *account, ref string) (*models.GenerationResult, error) {
	result, err := r.resolveResult(ctx, ref)
	if err != nil {
		return nil, err
	}
	if result.UserID() != acct.user.ID() {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrPlaylistNotFound, ref)
	}
	return result, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
