package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/shared"
	"golang.org/x/oauth2"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *sql.DB, spotifyID string) *models.User {
	t.Helper()

	user := models.NewUser(spotifyID, spotifyID+"@example.com", "Test User")
	if err := NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func newTestResult(userID, title string) *models.GenerationResult {
	return models.NewGenerationResult(models.GenerationRecord{
		UserID:      userID,
		Title:       title,
		MoodLabel:   "calm",
		PlaylistID:  "pl-" + title,
		PlaylistURL: "https://open.spotify.com/playlist/pl-" + title,
		TrackCount:  20,
		Parameters:  models.MusicParameters{Energy: 0.3, Valence: 0.4, Tempo: 90, Genres: []string{"ambient"}},
		Stage:       models.StageDone,
	})
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		user := createTestUser(t, db, "spotify-1")

		if user.ID() == "" {
			t.Error("user ID should be set after creation")
		}
		if user.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", user.Sequence())
		}
	})

	t.Run("GetBySpotifyID", func(t *testing.T) {
		db := setupTestDB(t)
		user := createTestUser(t, db, "spotify-1")

		got, err := NewUserRepository(db).GetBySpotifyID(ctx, "spotify-1")
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if got.ID() != user.ID() {
			t.Errorf("expected ID %s, got %s", user.ID(), got.ID())
		}
	})

	t.Run("DuplicateSpotifyID", func(t *testing.T) {
		db := setupTestDB(t)
		createTestUser(t, db, "spotify-1")

		dup := models.NewUser("spotify-1", "other@example.com", "Other")
		if err := NewUserRepository(db).Create(ctx, dup); err == nil {
			t.Fatal("expected error for duplicate spotify id")
		}
	})

	t.Run("Upsert", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)

		first, err := repo.Upsert(ctx, "spotify-1", "a@example.com", "A")
		if err != nil {
			t.Fatalf("failed to insert user: %v", err)
		}

		second, err := repo.Upsert(ctx, "spotify-1", "b@example.com", "B")
		if err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		if first.ID() != second.ID() {
			t.Errorf("upsert should keep the same ID, got %s and %s", first.ID(), second.ID())
		}
		if second.Email() != "b@example.com" || second.DisplayName() != "B" {
			t.Errorf("expected updated profile, got %s / %s", second.Email(), second.DisplayName())
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		db := setupTestDB(t)

		_, err := NewUserRepository(db).Get(ctx, "missing")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		user := createTestUser(t, db, "spotify-1")
		repo := NewUserRepository(db)

		if err := repo.Delete(ctx, user.ID()); err != nil {
			t.Fatalf("failed to delete user: %v", err)
		}
		if _, err := repo.Get(ctx, user.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected deleted user to be hidden, got %v", err)
		}
		if err := repo.Delete(ctx, user.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestGenerationRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		db := setupTestDB(t)
		user := createTestUser(t, db, "spotify-1")
		repo := NewGenerationRepository(db)

		result := newTestResult(user.ID(), "rainy")
		withWarnings := models.NewGenerationResult(func() models.GenerationRecord {
			rec := result.Record()
			rec.Warnings = []string{"cover upload failed"}
			rec.Parameters.Danceability = models.Float(0.6)
			return rec
		}())

		if err := repo.CreateResult(ctx, withWarnings); err != nil {
			t.Fatalf("failed to create result: %v", err)
		}

		got, err := repo.Get(ctx, withWarnings.ID())
		if err != nil {
			t.Fatalf("failed to get result: %v", err)
		}

		if got.Title() != "rainy" || got.PlaylistID() != "pl-rainy" {
			t.Errorf("unexpected result: %s %s", got.Title(), got.PlaylistID())
		}
		if got.Stage() != models.StageDone {
			t.Errorf("expected stage done, got %q", got.Stage())
		}
		if w := got.Warnings(); len(w) != 1 || w[0] != "cover upload failed" {
			t.Errorf("expected warnings to persist, got %v", w)
		}
		if p := got.Parameters(); p.Danceability == nil || *p.Danceability != 0.6 {
			t.Errorf("expected danceability 0.6, got %v", p.Danceability)
		}
		if got.Public() {
			t.Error("expected private result")
		}
	})

	t.Run("InvalidResult", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGenerationRepository(db)

		result := models.NewGenerationResult(models.GenerationRecord{UserID: "u", Title: "t"})
		if err := repo.Create(ctx, result); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("CountResultsSince", func(t *testing.T) {
		db := setupTestDB(t)
		user := createTestUser(t, db, "spotify-1")
		other := createTestUser(t, db, "spotify-2")
		repo := NewGenerationRepository(db)

		monthStart := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
		stamps := []time.Time{
			monthStart.Add(-time.Second),
			monthStart,
			monthStart.Add(72 * time.Hour),
		}
		for i, ts := range stamps {
			r := newTestResult(user.ID(), string(rune('a'+i)))
			r.SetCreatedAt(ts)
			r.SetUpdatedAt(ts)
			if err := repo.Create(ctx, r); err != nil {
				t.Fatalf("failed to create result: %v", err)
			}
		}

		r := newTestResult(other.ID(), "other")
		r.SetCreatedAt(monthStart.Add(time.Hour))
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("failed to create result: %v", err)
		}

		count, err := repo.CountResultsSince(ctx, user.ID(), monthStart)
		if err != nil {
			t.Fatalf("failed to count results: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 results at or after month start, got %d", count)
		}
	})

	t.Run("CountIncludesDeleted", func(t *testing.T) {
		db := setupTestDB(t)
		user := createTestUser(t, db, "spotify-1")
		repo := NewGenerationRepository(db)

		r := newTestResult(user.ID(), "gone")
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("failed to create result: %v", err)
		}
		if err := repo.Delete(ctx, r.ID()); err != nil {
			t.Fatalf("failed to delete result: %v", err)
		}

		count, err := repo.CountResultsSince(ctx, user.ID(), shared.StartOfMonth(time.Now()))
		if err != nil {
			t.Fatalf("failed to count results: %v", err)
		}
		if count != 1 {
			t.Errorf("expected deleted result to still count, got %d", count)
		}
		if _, err := repo.Get(ctx, r.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected deleted result to be hidden, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		user := createTestUser(t, db, "spotify-1")
		other := createTestUser(t, db, "spotify-2")
		repo := NewGenerationRepository(db)

		for _, title := range []string{"one", "two", "three"} {
			if err := repo.Create(ctx, newTestResult(user.ID(), title)); err != nil {
				t.Fatalf("failed to create result: %v", err)
			}
		}
		if err := repo.Create(ctx, newTestResult(other.ID(), "theirs")); err != nil {
			t.Fatalf("failed to create result: %v", err)
		}

		results, err := repo.List(ctx, map[string]any{"user_id": user.ID()})
		if err != nil {
			t.Fatalf("failed to list results: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		if results[0].Title() != "three" {
			t.Errorf("expected newest first, got %s", results[0].Title())
		}

		limited, err := repo.List(ctx, map[string]any{"user_id": user.ID(), "limit": 2})
		if err != nil {
			t.Fatalf("failed to list results: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("expected 2 results, got %d", len(limited))
		}
	})

	t.Run("SetVisibility", func(t *testing.T) {
		db := setupTestDB(t)
		user := createTestUser(t, db, "spotify-1")
		other := createTestUser(t, db, "spotify-2")
		repo := NewGenerationRepository(db)

		r := newTestResult(user.ID(), "share")
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("failed to create result: %v", err)
		}

		if err := repo.SetVisibility(ctx, r.ID(), other.ID(), true); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound for non-owner, got %v", err)
		}
		if err := repo.SetVisibility(ctx, r.ID(), user.ID(), true); err != nil {
			t.Fatalf("failed to set visibility: %v", err)
		}

		public, err := repo.List(ctx, map[string]any{"public": true})
		if err != nil {
			t.Fatalf("failed to list public results: %v", err)
		}
		if len(public) != 1 || public[0].ID() != r.ID() {
			t.Errorf("expected shared result in public list, got %d results", len(public))
		}
	})

	t.Run("IncrementPlayCount", func(t *testing.T) {
		db := setupTestDB(t)
		user := createTestUser(t, db, "spotify-1")
		repo := NewGenerationRepository(db)

		r := newTestResult(user.ID(), "played")
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("failed to create result: %v", err)
		}

		for want := 1; want <= 2; want++ {
			got, err := repo.IncrementPlayCount(ctx, r.ID())
			if err != nil {
				t.Fatalf("failed to increment play count: %v", err)
			}
			if got != want {
				t.Errorf("expected play count %d, got %d", want, got)
			}
		}

		if _, err := repo.IncrementPlayCount(ctx, "missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("GetBySequence", func(t *testing.T) {
		db := setupTestDB(t)
		user := createTestUser(t, db, "spotify-1")
		repo := NewGenerationRepository(db)

		r := newTestResult(user.ID(), "numbered")
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("failed to create result: %v", err)
		}

		got, err := repo.GetBySequence(ctx, r.Sequence())
		if err != nil {
			t.Fatalf("failed to get by sequence: %v", err)
		}
		if got.ID() != r.ID() {
			t.Errorf("expected %s, got %s", r.ID(), got.ID())
		}
	})
}

func TestSubscriptionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultsToFree", func(t *testing.T) {
		db := setupTestDB(t)
		user := createTestUser(t, db, "spotify-1")

		sub, err := NewSubscriptionRepository(db).Get(ctx, user.ID())
		if err != nil {
			t.Fatalf("failed to get subscription: %v", err)
		}
		if sub.Plan != models.PlanFree || sub.Status != models.StatusActive {
			t.Errorf("expected active free subscription, got %s/%s", sub.Plan, sub.Status)
		}
	})

	t.Run("UpsertPro", func(t *testing.T) {
		db := setupTestDB(t)
		user := createTestUser(t, db, "spotify-1")
		repo := NewSubscriptionRepository(db)

		sub, err := repo.Get(ctx, user.ID())
		if err != nil {
			t.Fatalf("failed to get subscription: %v", err)
		}
		sub.Plan = models.PlanPro
		if err := repo.Upsert(ctx, sub); err != nil {
			t.Fatalf("failed to upsert subscription: %v", err)
		}

		plan, err := repo.PlanFor(ctx, user.ID(), time.Now())
		if err != nil {
			t.Fatalf("failed to resolve plan: %v", err)
		}
		if plan != models.PlanPro {
			t.Errorf("expected pro, got %s", plan)
		}
	})

	t.Run("EndedProFallsBackToFree", func(t *testing.T) {
		db := setupTestDB(t)
		user := createTestUser(t, db, "spotify-1")
		repo := NewSubscriptionRepository(db)

		ended := time.Now().UTC().Add(-time.Hour)
		sub := &models.Subscription{UserID: user.ID(), Plan: models.PlanPro, Status: models.StatusActive, EndDate: &ended}
		if err := repo.Upsert(ctx, sub); err != nil {
			t.Fatalf("failed to upsert subscription: %v", err)
		}

		plan, err := repo.PlanFor(ctx, user.ID(), time.Now())
		if err != nil {
			t.Fatalf("failed to resolve plan: %v", err)
		}
		if plan != models.PlanFree {
			t.Errorf("expected free after end date, got %s", plan)
		}
	})

	t.Run("InvalidPlan", func(t *testing.T) {
		db := setupTestDB(t)
		user := createTestUser(t, db, "spotify-1")

		sub := &models.Subscription{UserID: user.ID(), Plan: "enterprise", Status: models.StatusActive}
		if err := NewSubscriptionRepository(db).Upsert(ctx, sub); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestTokenRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("SaveAndGet", func(t *testing.T) {
		db := setupTestDB(t)
		user := createTestUser(t, db, "spotify-1")
		repo := NewTokenRepository(db)

		expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: expiry}
		if err := repo.Save(ctx, user.ID(), token); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}

		got, err := repo.Get(ctx, user.ID())
		if err != nil {
			t.Fatalf("failed to get token: %v", err)
		}
		if got.AccessToken != "access" || got.RefreshToken != "refresh" {
			t.Errorf("unexpected token: %+v", got)
		}
		if !got.Expiry.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, got.Expiry)
		}
	})

	t.Run("RefreshKeepsRefreshToken", func(t *testing.T) {
		db := setupTestDB(t)
		user := createTestUser(t, db, "spotify-1")
		repo := NewTokenRepository(db)

		if err := repo.Save(ctx, user.ID(), &oauth2.Token{AccessToken: "old", RefreshToken: "refresh"}); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}
		if err := repo.Save(ctx, user.ID(), &oauth2.Token{AccessToken: "new"}); err != nil {
			t.Fatalf("failed to save refreshed token: %v", err)
		}

		got, err := repo.Get(ctx, user.ID())
		if err != nil {
			t.Fatalf("failed to get token: %v", err)
		}
		if got.AccessToken != "new" || got.RefreshToken != "refresh" {
			t.Errorf("expected new access token with kept refresh token, got %+v", got)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		db := setupTestDB(t)

		_, err := NewTokenRepository(db).Get(ctx, "nobody")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		user := createTestUser(t, db, "spotify-1")
		repo := NewTokenRepository(db)

		if err := repo.Save(ctx, user.ID(), &oauth2.Token{AccessToken: "a"}); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}
		if err := repo.Delete(ctx, user.ID()); err != nil {
			t.Fatalf("failed to delete token: %v", err)
		}
		if _, err := repo.Get(ctx, user.ID()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected token to be gone, got %v", err)
		}
	})
}

func TestTemplateRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("SeededTemplates", func(t *testing.T) {
		db := setupTestDB(t)

		templates, err := NewTemplateRepository(db).List(ctx, nil)
		if err != nil {
			t.Fatalf("failed to list templates: %v", err)
		}
		if len(templates) != 4 {
			t.Fatalf("expected 4 seeded templates, got %d", len(templates))
		}
		if templates[0].Name() != "rainy-night" {
			t.Errorf("expected rainy-night first, got %s", templates[0].Name())
		}
		for _, tmpl := range templates {
			if err := tmpl.Parameters().Validate(); err != nil {
				t.Errorf("seeded template %s has invalid parameters: %v", tmpl.Name(), err)
			}
		}
	})

	t.Run("CreateAndDeactivate", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTemplateRepository(db)

		tmpl := models.NewMoodTemplate("late-drive", "Night highway", models.MusicParameters{Energy: 0.6, Valence: 0.4, Tempo: 110}, 10)
		if err := repo.Create(ctx, tmpl); err != nil {
			t.Fatalf("failed to create template: %v", err)
		}

		got, err := repo.GetByName(ctx, "late-drive")
		if err != nil {
			t.Fatalf("failed to get template: %v", err)
		}
		if got.Parameters().Tempo != 110 {
			t.Errorf("expected tempo 110, got %v", got.Parameters().Tempo)
		}

		if err := repo.Delete(ctx, tmpl.ID()); err != nil {
			t.Fatalf("failed to deactivate template: %v", err)
		}
		if _, err := repo.GetByName(ctx, "late-drive"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected inactive template to be hidden, got %v", err)
		}

		all, err := repo.List(ctx, map[string]any{"all": true})
		if err != nil {
			t.Fatalf("failed to list templates: %v", err)
		}
		if len(all) != 5 {
			t.Errorf("expected 5 templates including inactive, got %d", len(all))
		}
	})

	t.Run("InvalidName", func(t *testing.T) {
		db := setupTestDB(t)

		tmpl := models.NewMoodTemplate("Bad Name", "", models.MusicParameters{Energy: 0.5, Valence: 0.5, Tempo: 100}, 0)
		if err := NewTemplateRepository(db).Create(ctx, tmpl); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestFeedbackRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	user := createTestUser(t, db, "spotify-1")

	result := newTestResult(user.ID(), "rated")
	if err := NewGenerationRepository(db).Create(ctx, result); err != nil {
		t.Fatalf("failed to create result: %v", err)
	}

	repo := NewFeedbackRepository(db)
	entries := []*models.Feedback{
		models.NewFeedback(result.ID(), user.ID(), models.RatingEnjoyed, "great"),
		models.NewFeedback(result.ID(), user.ID(), models.RatingEnjoyed, ""),
		models.NewFeedback(result.ID(), user.ID(), models.RatingPreferDifferent, "too slow"),
	}
	for _, fb := range entries {
		if err := repo.Create(ctx, fb); err != nil {
			t.Fatalf("failed to create feedback: %v", err)
		}
	}

	t.Run("Summary", func(t *testing.T) {
		summary, err := repo.Summary(ctx, result.ID())
		if err != nil {
			t.Fatalf("failed to summarize feedback: %v", err)
		}
		if summary[models.RatingEnjoyed] != 2 || summary[models.RatingPreferDifferent] != 1 {
			t.Errorf("unexpected summary: %v", summary)
		}
	})

	t.Run("ListForGeneration", func(t *testing.T) {
		list, err := repo.ListForGeneration(ctx, result.ID())
		if err != nil {
			t.Fatalf("failed to list feedback: %v", err)
		}
		if len(list) != 3 {
			t.Errorf("expected 3 entries, got %d", len(list))
		}
	})

	t.Run("UnknownGeneration", func(t *testing.T) {
		fb := models.NewFeedback("missing", user.ID(), models.RatingEnjoyed, "")
		if err := repo.Create(ctx, fb); err == nil {
			t.Error("expected foreign key error for unknown generation")
		}
	})
}
