package tasks

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/services"
	"github.com/desertthunder/vibelist/internal/shared"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type harness struct {
	store   *fakeStore
	model   *fakeModel
	images  *fakeImages
	catalog *fakeCatalog
	writer  *fakeWriter
	metrics *Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		store:   &fakeStore{},
		model:   &fakeModel{responses: []string{rainyDriveJSON}},
		images:  &fakeImages{img: &models.ImageRef{URL: "https://images.example/cover.jpg", Data: testJPEG(t, 64, 64), ContentType: "image/jpeg"}},
		catalog: &fakeCatalog{tracks: testTracks(20)},
		writer:  &fakeWriter{},
		metrics: NewMetrics(),
	}
}

func (h *harness) engine() *GenerationEngine {
	return NewGenerationEngine(EngineOpts{
		Store:               h.store,
		Model:               h.model,
		Images:              h.images,
		Catalog:             h.catalog,
		Writer:              h.writer,
		FreeMonthlyLimit:    5,
		TranslateRetries:    1,
		RecommendationLimit: 20,
		Retry:               fastRetry(),
		Location:            time.UTC,
		Logger:              quietLogger(),
		Metrics:             h.metrics,
	})
}

func vibeRequest(text string) models.GenerationRequest {
	return models.ByVibeText(text).For("user-1", models.PlanFree, "spotify-user")
}

func drain(progress chan ProgressUpdate) []Phase {
	close(progress)
	var phases []Phase
	for u := range progress {
		phases = append(phases, u.Phase)
	}
	return phases
}

// assertNothingPublished checks that a failed run left no playlist and no result.
func (h *harness) assertNothingPublished(t *testing.T) {
	t.Helper()
	if len(h.writer.created) != 0 {
		t.Errorf("expected no playlist, created %v", h.writer.created)
	}
	if len(h.store.results) != 0 {
		t.Errorf("expected no persisted result, got %d", len(h.store.results))
	}
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("RecoversFromRateLimits", func(t *testing.T) {
		h := newHarness(t)
		limited := &services.APIError{Status: http.StatusTooManyRequests}
		h.catalog.errs = []error{limited, limited}

		result, err := h.engine().Generate(ctx, vibeRequest("rainy late-night drive"), nil)
		if err != nil {
			t.Fatalf("expected no error after rate limits, got %v", err)
		}
		if h.catalog.calls() != 3 {
			t.Errorf("expected 3 recommendation calls, got %d", h.catalog.calls())
		}
		if result.TrackCount() != 20 || result.Stage() != models.StageDone {
			t.Errorf("expected a done result with 20 tracks, got %d at %s", result.TrackCount(), result.Stage())
		}
		if len(h.store.results) != 1 {
			t.Errorf("expected the result persisted once, got %d", len(h.store.results))
		}
		if got := testutil.ToFloat64(h.metrics.retries.WithLabelValues(Recommend.String())); got != 2 {
			t.Errorf("expected 2 retries recorded, got %v", got)
		}
	})

	t.Run("CheckQuotaBeforeCatalog", func(t *testing.T) {
		h := newHarness(t)
		h.store.count = 5

		err := h.engine().CheckQuota(ctx, "user-1", models.PlanFree)
		if !errors.Is(err, shared.ErrQuotaExceeded) || KindOf(err) != KindQuotaExceeded {
			t.Errorf("expected quota exceeded, got %v", err)
		}
		if err := h.engine().CheckQuota(ctx, "user-1", models.PlanPro); err != nil {
			t.Errorf("expected pro plan to pass, got %v", err)
		}
		if h.catalog.calls() != 0 || h.model.calls() != 0 {
			t.Error("expected no external calls")
		}
	})

	t.Run("RainyLateNightDrive", func(t *testing.T) {
		h := newHarness(t)
		progress := make(chan ProgressUpdate, 32)

		result, err := h.engine().Generate(ctx, vibeRequest("rainy late-night drive"), progress)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}

		if result.TrackCount() != 20 {
			t.Errorf("expected 20 tracks, got %d", result.TrackCount())
		}
		if result.Stage() != models.StageDone || result.Partial() {
			t.Errorf("expected done, got %s", result.Stage())
		}
		p := result.Parameters()
		if p.Energy != 0.3 || p.Valence != 0.25 || p.Tempo != 85 {
			t.Errorf("unexpected parameters %+v", p)
		}
		if result.Title() != "Wet Asphalt at 2AM" || result.MoodLabel() != "melancholic" {
			t.Errorf("unexpected metadata %q / %q", result.Title(), result.MoodLabel())
		}
		if result.VibeText() != "rainy late-night drive" {
			t.Errorf("unexpected vibe text %q", result.VibeText())
		}
		if !result.HasCover() || result.CoverImageURL() != "https://images.example/cover.jpg" {
			t.Errorf("expected cover URL, got %q", result.CoverImageURL())
		}
		if result.Public() {
			t.Error("expected private playlist by default")
		}
		if len(result.Warnings()) != 0 {
			t.Errorf("unexpected warnings %v", result.Warnings())
		}

		if len(h.store.results) != 1 || h.store.results[0] != result {
			t.Error("expected result persisted once")
		}
		if len(h.writer.added[result.PlaylistID()]) != 20 {
			t.Errorf("expected 20 tracks added, got %d", len(h.writer.added[result.PlaylistID()]))
		}
		if h.writer.covers[result.PlaylistID()] == "" {
			t.Error("expected cover uploaded")
		}

		phases := drain(progress)
		if len(phases) == 0 || phases[0] != Validate || phases[len(phases)-1] != Done {
			t.Errorf("unexpected progress %v", phases)
		}
		if got := testutil.ToFloat64(h.metrics.generations.WithLabelValues("done")); got != 1 {
			t.Errorf("expected one done outcome, got %v", got)
		}
	})

	t.Run("PublicRequest", func(t *testing.T) {
		h := newHarness(t)
		req := vibeRequest("sunday morning coffee")
		req.Public = true

		result, err := h.engine().Generate(ctx, req, nil)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if !result.Public() || !slices.Equal(h.writer.public, []bool{true}) {
			t.Error("expected public playlist and result")
		}
	})

	t.Run("InvalidRequest", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.engine().Generate(ctx, vibeRequest("   "), nil)
		if KindOf(err) != KindInvalidRequest || !errors.Is(err, shared.ErrInvalidRequest) {
			t.Fatalf("expected invalid request, got %v", err)
		}
		if h.store.counted != 0 || h.model.calls() != 0 {
			t.Error("expected no quota check or model call")
		}
	})

	t.Run("QuotaDenied", func(t *testing.T) {
		h := newHarness(t)
		h.store.count = 5

		_, err := h.engine().Generate(ctx, vibeRequest("rainy late-night drive"), nil)
		if KindOf(err) != KindQuotaExceeded || !errors.Is(err, shared.ErrQuotaExceeded) {
			t.Fatalf("expected quota exceeded, got %v", err)
		}
		if h.model.calls() != 0 || h.images.calls() != 0 || h.catalog.calls() != 0 {
			t.Error("expected no external calls after denial")
		}
		h.assertNothingPublished(t)
	})

	t.Run("ProIgnoresQuota", func(t *testing.T) {
		h := newHarness(t)
		h.store.count = 500
		req := models.ByVibeText("gym").For("user-1", models.PlanPro, "spotify-user")

		if _, err := h.engine().Generate(ctx, req, nil); err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
	})

	t.Run("QuotaStoreFailure", func(t *testing.T) {
		h := newHarness(t)
		h.store.countErr = errors.New("disk I/O error")

		_, err := h.engine().Generate(ctx, vibeRequest("x"), nil)
		if KindOf(err) != KindGenerationFailed || errors.Is(err, shared.ErrQuotaExceeded) {
			t.Fatalf("expected generation failure, got %v", err)
		}
	})

	t.Run("TranslateFailure", func(t *testing.T) {
		h := newHarness(t)
		h.model.errs = []error{errors.New("upstream timeout")}

		_, err := h.engine().Generate(ctx, vibeRequest("x"), nil)
		if KindOf(err) != KindGenerationFailed {
			t.Fatalf("expected generation failure, got %v", err)
		}
		if h.model.calls() != 1 {
			t.Errorf("transport errors should not be retried, got %d calls", h.model.calls())
		}
		if h.catalog.calls() != 0 {
			t.Error("expected no recommendation call")
		}
		h.assertNothingPublished(t)
	})

	t.Run("MalformedOutputRetriedOnce", func(t *testing.T) {
		h := newHarness(t)
		h.model.responses = []string{`{"energy": 2}`, rainyDriveJSON}

		result, err := h.engine().Generate(ctx, vibeRequest("x"), nil)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if h.model.calls() != 2 {
			t.Errorf("expected 2 model calls, got %d", h.model.calls())
		}
		if result.Title() != "Wet Asphalt at 2AM" {
			t.Errorf("unexpected title %q", result.Title())
		}
	})

	t.Run("MalformedOutputTwice", func(t *testing.T) {
		h := newHarness(t)
		h.model.responses = []string{"not json"}

		_, err := h.engine().Generate(ctx, vibeRequest("x"), nil)
		if KindOf(err) != KindGenerationFailed || !errors.Is(err, shared.ErrMalformedModelOutput) {
			t.Fatalf("expected generation failure caused by malformed output, got %v", err)
		}
		if h.model.calls() != 2 {
			t.Errorf("expected 2 model calls, got %d", h.model.calls())
		}
		h.assertNothingPublished(t)
	})

	t.Run("RecommendationAuthExpired", func(t *testing.T) {
		h := newHarness(t)
		h.catalog.errs = []error{&services.APIError{Status: http.StatusUnauthorized}}

		_, err := h.engine().Generate(ctx, vibeRequest("x"), nil)
		if KindOf(err) != KindAuthExpired || !errors.Is(err, shared.ErrTokenExpired) {
			t.Fatalf("expected auth expired, got %v", err)
		}
		h.assertNothingPublished(t)
	})

	t.Run("RecommendationFailure", func(t *testing.T) {
		h := newHarness(t)
		h.catalog.errs = []error{&services.APIError{Status: http.StatusBadRequest}}

		_, err := h.engine().Generate(ctx, vibeRequest("x"), nil)
		if KindOf(err) != KindResolution {
			t.Fatalf("expected resolution failure, got %v", err)
		}
		h.assertNothingPublished(t)
	})

	t.Run("NoCatalogMatch", func(t *testing.T) {
		h := newHarness(t)
		h.catalog.tracks = nil

		_, err := h.engine().Generate(ctx, vibeRequest("x"), nil)
		if KindOf(err) != KindGenerationFailed || !errors.Is(err, shared.ErrNoCatalogMatch) {
			t.Fatalf("expected no catalog match, got %v", err)
		}
		h.assertNothingPublished(t)
	})

	t.Run("ArtworkFailureDegrades", func(t *testing.T) {
		h := newHarness(t)
		h.images.err = errors.New("content policy violation")

		result, err := h.engine().Generate(ctx, vibeRequest("x"), nil)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if result.Stage() != models.StageDone || result.HasCover() {
			t.Errorf("expected done without cover, got %s cover=%q", result.Stage(), result.CoverImageURL())
		}
		if !slices.Contains(result.Warnings(), warnNoCover) {
			t.Errorf("expected %q warning, got %v", warnNoCover, result.Warnings())
		}
		if len(h.writer.covers) != 0 {
			t.Error("expected no cover upload")
		}
		if got := testutil.ToFloat64(h.metrics.warnings.WithLabelValues("artwork")); got != 1 {
			t.Errorf("expected artwork degradation recorded, got %v", got)
		}
	})

	t.Run("SkipArtwork", func(t *testing.T) {
		h := newHarness(t)
		req := vibeRequest("x")
		req.SkipArtwork = true

		result, err := h.engine().Generate(ctx, req, nil)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if h.images.calls() != 0 || result.HasCover() || len(result.Warnings()) != 0 {
			t.Errorf("expected artwork skipped silently, warnings %v", result.Warnings())
		}
	})

	t.Run("ArtworkAndRecommendationConcurrent", func(t *testing.T) {
		h := newHarness(t)
		started := make(chan struct{})
		h.catalog.started = started
		h.images.wait = started

		result, err := h.engine().Generate(ctx, vibeRequest("x"), nil)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if !result.HasCover() {
			t.Errorf("artwork waited for recommendation but failed: %v", result.Warnings())
		}
	})

	t.Run("PartialPopulation", func(t *testing.T) {
		h := newHarness(t)
		h.writer.addErr = errors.New("snapshot conflict")

		result, err := h.engine().Generate(ctx, vibeRequest("x"), nil)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if result.Stage() != models.StageCreated || !result.Partial() {
			t.Errorf("expected created stage, got %s", result.Stage())
		}
		if result.TrackCount() != 0 || result.HasCover() {
			t.Errorf("expected no tracks and no cover, got %d / %q", result.TrackCount(), result.CoverImageURL())
		}
		if len(h.store.results) != 1 {
			t.Error("expected partial result persisted")
		}
		if got := testutil.ToFloat64(h.metrics.generations.WithLabelValues("partial")); got != 1 {
			t.Errorf("expected partial outcome, got %v", got)
		}
	})

	t.Run("PublishFailure", func(t *testing.T) {
		h := newHarness(t)
		h.writer.createErr = &services.APIError{Status: http.StatusForbidden}

		_, err := h.engine().Generate(ctx, vibeRequest("x"), nil)
		if KindOf(err) != KindPublish || !errors.Is(err, shared.ErrPublish) {
			t.Fatalf("expected publish failure, got %v", err)
		}
		h.assertNothingPublished(t)
	})

	t.Run("PersistFailureReportsPlaylist", func(t *testing.T) {
		h := newHarness(t)
		h.store.createErr = errors.New("constraint failed")

		_, err := h.engine().Generate(ctx, vibeRequest("x"), nil)
		var ge *GenerationError
		if !errors.As(err, &ge) {
			t.Fatalf("expected GenerationError, got %v", err)
		}
		if ge.Kind != KindGenerationFailed || ge.Stage != Persist {
			t.Errorf("unexpected kind %s at %s", ge.Kind, ge.Stage)
		}
		if ge.PlaylistID == "" || ge.PlaylistURL == "" {
			t.Error("expected playlist to be reported")
		}
		if len(h.writer.created) != 1 {
			t.Error("expected playlist to have been created")
		}
	})

	t.Run("ExplicitVector", func(t *testing.T) {
		h := newHarness(t)
		vector := models.MusicParameters{Energy: 0.9, Valence: 0.8, Tempo: 140, Genres: []string{"house"}}
		meta := models.PreviewMeta{Title: "Edited", Description: "d", MoodLabel: "energetic", VibeText: "gym"}
		req := models.ByExplicitVector(vector, meta).For("user-1", models.PlanFree, "spotify-user")

		result, err := h.engine().Generate(ctx, req, nil)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if h.model.calls() != 0 {
			t.Error("explicit vectors must not be translated")
		}
		if got := result.Parameters(); got.Energy != 0.9 || got.Tempo != 140 {
			t.Errorf("expected vector kept, got %+v", got)
		}
		if result.Title() != "Edited" || result.VibeText() != "gym" {
			t.Errorf("expected metadata kept, got %q / %q", result.Title(), result.VibeText())
		}
		if q := h.catalog.queries[0]; q.Get("target_tempo") != "140" || q.Get("seed_genres") != "house" {
			t.Errorf("unexpected query %v", q)
		}
	})

	t.Run("HistorySignals", func(t *testing.T) {
		h := newHarness(t)
		h.model.responses = []string{historyJSON}
		req := models.ByHistorySignals(
			[]models.TrackSignal{{Name: "Alison", Artists: []string{"Slowdive"}}},
			[]models.ArtistSignal{{Name: "Slowdive", Genres: []string{"shoegaze"}}},
		).For("user-1", models.PlanFree, "spotify-user")

		result, err := h.engine().Generate(ctx, req, nil)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if result.Title() != "Your Listening Mix" || result.MoodLabel() != "personal" {
			t.Errorf("unexpected metadata %q / %q", result.Title(), result.MoodLabel())
		}
		if got := result.Parameters().Genres; !slices.Equal(got, []string{"indie", "dream-pop", "shoegaze"}) {
			t.Errorf("unexpected genres %v", got)
		}
	})

	t.Run("SixthGenerationDenied", func(t *testing.T) {
		h := newHarness(t)
		engine := h.engine()

		for i := range 5 {
			if _, err := engine.Generate(ctx, vibeRequest("x"), nil); err != nil {
				t.Fatalf("generation %d failed: %v", i+1, err)
			}
		}
		if _, err := engine.Generate(ctx, vibeRequest("x"), nil); KindOf(err) != KindQuotaExceeded {
			t.Fatalf("expected sixth generation denied, got %v", err)
		}
		if len(h.store.results) != 5 {
			t.Errorf("expected 5 results, got %d", len(h.store.results))
		}
	})
}

func TestPreview(t *testing.T) {
	ctx := context.Background()

	t.Run("NoSideEffects", func(t *testing.T) {
		h := newHarness(t)
		tr, err := h.engine().Preview(ctx, vibeRequest("rainy late-night drive"), nil)
		if err != nil {
			t.Fatalf("Preview failed: %v", err)
		}
		if tr.Title != "Wet Asphalt at 2AM" || tr.VibeText != "rainy late-night drive" {
			t.Errorf("unexpected translation %+v", tr)
		}
		if h.catalog.calls() != 0 || h.images.calls() != 0 {
			t.Error("preview must not resolve tracks or generate artwork")
		}
		h.assertNothingPublished(t)
	})

	t.Run("EditedVectorRoundTrip", func(t *testing.T) {
		h := newHarness(t)
		engine := h.engine()
		tr, err := engine.Preview(ctx, vibeRequest("rainy late-night drive"), nil)
		if err != nil {
			t.Fatalf("Preview failed: %v", err)
		}

		edited := tr.Parameters.WithAdjustments(0.5, 0.4, 100)
		req := models.ByExplicitVector(edited, tr.Meta()).For("user-1", models.PlanFree, "spotify-user")
		result, err := engine.Generate(ctx, req, nil)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if h.model.calls() != 1 {
			t.Errorf("expected a single translation, got %d", h.model.calls())
		}
		if result.Parameters().Tempo != 100 || result.Title() != tr.Title {
			t.Errorf("expected edited vector with previewed title, got %+v", result.Parameters())
		}
	})

	t.Run("QuotaDenied", func(t *testing.T) {
		h := newHarness(t)
		h.store.count = 5
		if _, err := h.engine().Preview(ctx, vibeRequest("x"), nil); KindOf(err) != KindQuotaExceeded {
			t.Fatalf("expected quota exceeded, got %v", err)
		}
		if h.model.calls() != 0 {
			t.Error("expected no model call")
		}
	})

	t.Run("MalformedOutput", func(t *testing.T) {
		h := newHarness(t)
		h.model.responses = []string{"[]"}
		_, err := h.engine().Preview(ctx, vibeRequest("x"), nil)
		if KindOf(err) != KindMalformedOutput || !errors.Is(err, shared.ErrMalformedModelOutput) {
			t.Fatalf("expected malformed output, got %v", err)
		}
	})
}
