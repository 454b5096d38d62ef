package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/shared"
)

const (
	warnNoCover  = "cover art unavailable"
	defaultTitle = "Vibelist Mix"
)

// ResultStore persists results and counts them for quota. Implemented by repositories.GenerationRepository.
type ResultStore interface {
	ResultCounter
	CreateResult(ctx context.Context, result *models.GenerationResult) error
}

// EngineOpts holds the collaborators and settings of a [GenerationEngine].
type EngineOpts struct {
	Store   ResultStore
	Model   StructuredModel
	Images  ImageModel // nil skips artwork
	Catalog Catalog
	Writer  PlaylistWriter

	HTTPClient          *http.Client // used to download generated covers
	FreeMonthlyLimit    int
	TranslateRetries    int // extra attempts after malformed model output
	RecommendationLimit int
	Retry               RetryPolicy
	Location            *time.Location // quota month boundaries

	Logger  *log.Logger
	Metrics *Metrics
}

// GenerationEngine runs the playlist generation pipeline.
type GenerationEngine struct {
	quota       *QuotaGuard
	translator  *ParameterTranslator
	artwork     *ArtworkSynthesizer
	recommender *RecommendationSource
	publisher   *PlaylistPublisher
	store       ResultStore

	translateRetries int
	logger           *log.Logger
	metrics          *Metrics
}

// NewGenerationEngine wires the pipeline components from opts.
func NewGenerationEngine(opts EngineOpts) *GenerationEngine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	e := &GenerationEngine{
		quota:            NewQuotaGuard(opts.Store, opts.FreeMonthlyLimit, opts.Location),
		translator:       NewParameterTranslator(opts.Model, shared.WithLogger(logger, "component", "translator")),
		recommender:      NewRecommendationSource(opts.Catalog, opts.RecommendationLimit, opts.Retry, shared.WithLogger(logger, "component", "recommend"), opts.Metrics),
		publisher:        NewPlaylistPublisher(opts.Writer, shared.WithLogger(logger, "component", "publish"), opts.Metrics),
		store:            opts.Store,
		translateRetries: max(opts.TranslateRetries, 0),
		logger:           logger,
		metrics:          opts.Metrics,
	}
	if opts.Images != nil {
		e.artwork = NewArtworkSynthesizer(opts.Images, opts.HTTPClient, shared.WithLogger(logger, "component", "artwork"))
	}
	return e
}

// Quota exposes the engine's guard for usage reporting.
func (e *GenerationEngine) Quota() *QuotaGuard {
	return e.quota
}

func (e *GenerationEngine) fail(kind ErrorKind, stage Phase, err error) *GenerationError {
	e.metrics.outcome(kind.String())
	return &GenerationError{Kind: kind, Stage: stage, Err: err}
}

// check validates the request and consults the quota guard.
func (e *GenerationEngine) check(ctx context.Context, req models.GenerationRequest, progress chan<- ProgressUpdate) error {
	sendProgress(progress, phaseUpdate(Validate, "Validating request..."))
	if err := req.Validate(); err != nil {
		return e.fail(KindInvalidRequest, Validate, err)
	}

	sendProgress(progress, phaseUpdate(Quota, "Checking monthly quota..."))
	ent, err := e.entitle(ctx, req.UserID, req.Plan)
	if err != nil {
		return err
	}
	sendProgress(progress, quotaUpdate(ent))
	return nil
}

// CheckQuota fails with a [KindQuotaExceeded] error when the plan's allowance for this month
// is used up. Callers that read listening history first call it before touching the catalog.
func (e *GenerationEngine) CheckQuota(ctx context.Context, userID string, plan models.Plan) error {
	_, err := e.entitle(ctx, userID, plan)
	return err
}

func (e *GenerationEngine) entitle(ctx context.Context, userID string, plan models.Plan) (Entitlement, error) {
	start := time.Now()
	ent, err := e.quota.CheckEntitlement(ctx, userID, plan)
	e.metrics.observe(Quota, start)
	if err != nil {
		return ent, e.fail(KindGenerationFailed, Quota, err)
	}
	if !ent.Allowed {
		return ent, e.fail(KindQuotaExceeded, Quota, fmt.Errorf("%s (%d of %d used since %s)",
			ent.Reason, ent.Used, ent.Limit, ent.PeriodStart.Format("2006-01-02")))
	}
	return ent, nil
}

// translate dispatches on the request kind. Malformed output is retried up to translateRetries times.
func (e *GenerationEngine) translate(ctx context.Context, req models.GenerationRequest) (*Translation, error) {
	switch req.Kind() {
	case models.KindExplicitVector:
		meta := req.Meta()
		if meta.Title == "" {
			meta.Title = defaultTitle
		}
		return &Translation{
			Parameters:  *req.Vector(),
			Title:       meta.Title,
			Description: meta.Description,
			MoodLabel:   meta.MoodLabel,
			VibeText:    meta.VibeText,
		}, nil
	case models.KindVibeText:
		return withRetries(e, func() (*Translation, error) {
			return e.translator.TranslateVibe(ctx, req.VibeText())
		})
	case models.KindHistorySignals:
		insight, err := withRetries(e, func() (*HistoryInsight, error) {
			return e.translator.TranslateHistory(ctx, req.Tracks(), req.Artists())
		})
		if err != nil {
			return nil, err
		}
		return HistoryTranslation(insight), nil
	default:
		return nil, fmt.Errorf("%w: unknown request kind %s", shared.ErrInvalidRequest, req.Kind())
	}
}

func withRetries[T any](e *GenerationEngine, call func() (T, error)) (T, error) {
	for attempt := 0; ; attempt++ {
		v, err := call()
		if err == nil || !errors.Is(err, shared.ErrMalformedModelOutput) || attempt >= e.translateRetries {
			return v, err
		}
		e.metrics.retry(Translate)
		e.logger.Warn("malformed model output, retrying", "attempt", attempt+1, "error", err)
	}
}

// Preview validates, checks quota and translates without side effects. Nothing is persisted,
// so previews do not count against quota.
func (e *GenerationEngine) Preview(ctx context.Context, req models.GenerationRequest, progress chan<- ProgressUpdate) (*Translation, error) {
	if err := e.check(ctx, req, progress); err != nil {
		return nil, err
	}

	sendProgress(progress, phaseUpdate(Translate, "Translating vibe..."))
	tr, err := e.translate(ctx, req)
	if err != nil {
		kind := KindGenerationFailed
		if errors.Is(err, shared.ErrMalformedModelOutput) {
			kind = KindMalformedOutput
		}
		return nil, e.fail(kind, Translate, err)
	}
	sendProgress(progress, translatedUpdate(tr))
	return tr, nil
}

type artworkOutcome struct {
	img *models.ImageRef
	err error
}

type resolveOutcome struct {
	tracks []models.TrackRef
	err    error
}

// Generate runs the full pipeline and returns the persisted result.
//
// Quota denial and failures before playlist creation leave nothing behind. Once the playlist
// exists the result is always persisted, and a persistence failure still reports the playlist.
func (e *GenerationEngine) Generate(ctx context.Context, req models.GenerationRequest, progress chan<- ProgressUpdate) (*models.GenerationResult, error) {
	runStart := time.Now()
	logger := e.logger.With("user", req.UserID, "kind", req.Kind())

	if err := e.check(ctx, req, progress); err != nil {
		return nil, err
	}

	sendProgress(progress, phaseUpdate(Translate, "Translating vibe..."))
	start := time.Now()
	tr, err := e.translate(ctx, req)
	e.metrics.observe(Translate, start)
	if err != nil {
		return nil, e.fail(KindGenerationFailed, Translate, err)
	}
	sendProgress(progress, translatedUpdate(tr))
	logger.Info("translated", "title", tr.Title, "mood", tr.MoodLabel, "genres", tr.Parameters.Genres)

	var (
		wg  sync.WaitGroup
		art artworkOutcome
		rec resolveOutcome
	)

	wantArt := !req.SkipArtwork && e.artwork != nil
	if wantArt {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			art.img, art.err = e.artwork.Synthesize(ctx, tr.VibeText, tr.MoodLabel)
			e.metrics.observe(Artwork, start)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		start := time.Now()
		rec.tracks, rec.err = e.recommender.Resolve(ctx, tr.Parameters, SeedHints{})
		e.metrics.observe(Recommend, start)
	}()

	sendProgress(progress, phaseUpdate(Recommend, "Finding tracks and painting cover art..."))
	wg.Wait()

	if rec.err != nil {
		kind := KindResolution
		switch {
		case errors.Is(rec.err, shared.ErrTokenExpired):
			kind = KindAuthExpired
		case errors.Is(rec.err, shared.ErrNoCatalogMatch), ctx.Err() != nil:
			kind = KindGenerationFailed
		}
		return nil, e.fail(kind, Recommend, rec.err)
	}
	sendProgress(progress, resolvedUpdate(rec.tracks))

	var warnings []string
	if wantArt {
		if art.err != nil {
			logger.Warn("continuing without cover art", "error", art.err)
			e.metrics.degraded("artwork")
			warnings = append(warnings, warnNoCover)
		}
		sendProgress(progress, artworkUpdate(art.img, art.err))
	}

	sendProgress(progress, phaseUpdate(CreatePlaylist, "Creating playlist..."))
	start = time.Now()
	pub, err := e.publisher.Publish(ctx, PublishInput{
		OwnerID:     req.OwnerExternalID,
		Title:       tr.Title,
		Description: tr.Description,
		Public:      req.Public,
		Tracks:      rec.tracks,
		Cover:       art.img,
	})
	e.metrics.observe(CreatePlaylist, start)
	if err != nil {
		kind := KindPublish
		if errors.Is(err, shared.ErrTokenExpired) {
			kind = KindAuthExpired
		}
		return nil, e.fail(kind, CreatePlaylist, err)
	}
	sendProgress(progress, publishedUpdate(pub))

	coverURL := ""
	if pub.CoverUploaded && art.img != nil {
		coverURL = art.img.URL
	}

	result := models.NewGenerationResult(models.GenerationRecord{
		UserID:        req.UserID,
		Title:         tr.Title,
		Description:   tr.Description,
		MoodLabel:     tr.MoodLabel,
		VibeText:      tr.VibeText,
		CoverImageURL: coverURL,
		PlaylistID:    pub.ID,
		PlaylistURL:   pub.URL,
		TrackCount:    pub.TrackCount,
		Parameters:    tr.Parameters,
		Stage:         pub.Stage,
		Warnings:      append(warnings, pub.Warnings...),
		Public:        req.Public,
	})

	sendProgress(progress, phaseUpdate(Persist, "Saving generation..."))
	if err := e.store.CreateResult(ctx, result); err != nil {
		ge := e.fail(KindGenerationFailed, Persist, err)
		ge.PlaylistID, ge.PlaylistURL = pub.ID, pub.URL
		return nil, ge
	}

	outcome := "done"
	if result.Partial() {
		outcome = "partial"
	}
	e.metrics.outcome(outcome)
	logger.Info("generation complete",
		"id", result.ID(),
		"playlist", result.PlaylistID(),
		"tracks", result.TrackCount(),
		"stage", result.Stage(),
		"duration", time.Since(runStart).Round(time.Millisecond),
	)

	sendProgress(progress, doneUpdate(result))
	return result, nil
}
