package tasks

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/services"
	"github.com/desertthunder/vibelist/internal/shared"
)

// DefaultRecommendationLimit is the number of tracks requested per playlist.
const DefaultRecommendationLimit = 20

// FallbackGenres are sent when a vector carries no seeds at all.
var FallbackGenres = []string{"pop", "rock"}

// Catalog resolves recommendation queries. Implemented by services.SpotifyService.
type Catalog interface {
	Recommendations(ctx context.Context, query url.Values) ([]models.TrackRef, error)
}

// SeedHints are extra seeds merged with those carried by the vector.
type SeedHints struct {
	Tracks  []string
	Artists []string
	Genres  []string
}

// RetryPolicy bounds retries of transient catalog failures.
type RetryPolicy struct {
	MaxRetries int
	Initial    time.Duration
	Max        time.Duration
}

// DefaultRetryPolicy retries up to 3 times starting at 500ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Initial: 500 * time.Millisecond, Max: 4 * time.Second}
}

// backOff returns the retry schedule and the hook through which a server's Retry-After
// hint stretches the next wait.
func (p RetryPolicy) backOff(ctx context.Context) (backoff.BackOff, *retryAfter) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.Initial
	exp.Multiplier = 2
	exp.MaxInterval = p.Max
	exp.MaxElapsedTime = 0
	exp.Reset()

	hinted := &retryAfter{BackOff: exp, max: p.Max}
	return backoff.WithContext(backoff.WithMaxRetries(hinted, uint64(max(p.MaxRetries, 0))), ctx), hinted
}

// retryAfter waits at least the last hint before the next attempt, capped at max.
// The hint applies to one wait only.
type retryAfter struct {
	backoff.BackOff
	max  time.Duration
	hint time.Duration
}

func (b *retryAfter) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	hint := b.hint
	b.hint = 0
	if next == backoff.Stop || hint <= next {
		return next
	}
	if b.max > 0 && hint > b.max {
		hint = b.max
	}
	return max(next, hint)
}

func (b *retryAfter) Reset() {
	b.hint = 0
	b.BackOff.Reset()
}

// RecommendationSource resolves a parameter vector into catalog tracks.
type RecommendationSource struct {
	catalog Catalog
	limit   int
	retry   RetryPolicy
	logger  *log.Logger
	metrics *Metrics
}

// NewRecommendationSource creates a source requesting limit tracks (default 20).
func NewRecommendationSource(catalog Catalog, limit int, retry RetryPolicy, logger *log.Logger, metrics *Metrics) *RecommendationSource {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RecommendationSource{catalog: catalog, limit: limit, retry: retry, logger: logger, metrics: metrics}
}

// BuildQuery maps a vector to seed_* and target_* parameters.
//
// Each seed category is capped at [models.MaxSeedsPerCategory]. When no seeds remain,
// [FallbackGenres] are used so the query always carries at least one seed. Optional
// attributes that are nil are omitted.
func BuildQuery(vector models.MusicParameters, hints SeedHints, limit int) url.Values {
	tracks := capSeeds(append(append([]string(nil), vector.SeedTracks...), hints.Tracks...))
	artists := capSeeds(append(append([]string(nil), vector.SeedArtists...), hints.Artists...))
	genres := capSeeds(models.NormalizeGenres(append(append([]string(nil), vector.Genres...), hints.Genres...)))

	if len(tracks)+len(artists)+len(genres) == 0 {
		genres = append([]string(nil), FallbackGenres...)
	}

	q := url.Values{}
	if len(tracks) > 0 {
		q.Set("seed_tracks", strings.Join(tracks, ","))
	}
	if len(artists) > 0 {
		q.Set("seed_artists", strings.Join(artists, ","))
	}
	if len(genres) > 0 {
		q.Set("seed_genres", strings.Join(genres, ","))
	}

	q.Set("target_energy", formatFloat(vector.Energy))
	q.Set("target_valence", formatFloat(vector.Valence))
	q.Set("target_tempo", formatFloat(vector.Tempo))
	for name, v := range map[string]*float64{
		"target_acousticness":     vector.Acousticness,
		"target_danceability":     vector.Danceability,
		"target_instrumentalness": vector.Instrumentalness,
	} {
		if v != nil {
			q.Set(name, formatFloat(*v))
		}
	}

	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	q.Set("limit", strconv.Itoa(limit))
	return q
}

func capSeeds(seeds []string) []string {
	out := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) > models.MaxSeedsPerCategory {
		out = out[:models.MaxSeedsPerCategory]
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Resolve queries the catalog, retrying rate limits, server errors and network failures.
// A Retry-After hint from the catalog lengthens the next wait up to the policy's Max.
//
// A 401 surfaces as [shared.ErrTokenExpired] without retry. An empty result wraps
// [shared.ErrNoCatalogMatch]. Fewer tracks than requested is not an error.
func (s *RecommendationSource) Resolve(ctx context.Context, vector models.MusicParameters, hints SeedHints) ([]models.TrackRef, error) {
	vector = vector.Clone()
	query := BuildQuery(vector, hints, s.limit)

	schedule, hinted := s.retry.backOff(ctx)

	var tracks []models.TrackRef
	attempts := 0
	op := func() error {
		attempts++
		q := url.Values{}
		for k, v := range query {
			q[k] = append([]string(nil), v...)
		}

		var err error
		tracks, err = s.catalog.Recommendations(ctx, q)
		if err == nil {
			return nil
		}
		if isTransient(ctx, err) {
			var apiErr *services.APIError
			if errors.As(err, &apiErr) {
				hinted.hint = apiErr.RetryAfter
			}
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		s.metrics.retry(Recommend)
		s.logger.Warn("recommendation request failed, retrying", "attempt", attempts, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, schedule, notify); err != nil {
		if errors.Is(err, shared.ErrTokenExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("%w after %d attempts: %w", shared.ErrResolution, attempts, err)
	}

	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: seeds %s", shared.ErrNoCatalogMatch, query.Get("seed_genres"))
	}

	s.logger.Debug("resolved tracks", "count", len(tracks), "attempts", attempts)
	return tracks, nil
}

func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *services.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	if errors.Is(err, shared.ErrRateLimited) || errors.Is(err, shared.ErrServiceUnavailable) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
