package tasks

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/services"
)

const rainyDriveJSON = `{
	"energy": 0.3,
	"valence": 0.25,
	"tempo": 85,
	"genres": ["chill", "ambient", "Indie Pop"],
	"acousticness": 0.6,
	"danceability": 0.35,
	"playlistTitle": "Wet Asphalt at 2AM",
	"playlistDescription": "Headlights smearing through rain on an empty highway.",
	"moodType": "Melancholic"
}`

const historyJSON = `{"genres": ["indie", "dream pop", "shoegaze", "post-rock"], "insights": "You gravitate toward hazy, textured guitar music."}`

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond}
}

// fakeModel returns queued responses in order, repeating the last one.
type fakeModel struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []services.StructuredPrompt
}

func (m *fakeModel) Complete(_ context.Context, prompt services.StructuredPrompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.prompts)
	m.prompts = append(m.prompts, prompt)

	if len(m.errs) > 0 {
		if err := m.errs[min(i, len(m.errs)-1)]; err != nil {
			return "", err
		}
	}
	if len(m.responses) == 0 {
		return "", fmt.Errorf("no response queued")
	}
	return m.responses[min(i, len(m.responses)-1)], nil
}

func (m *fakeModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

type fakeImages struct {
	mu    sync.Mutex
	img   *models.ImageRef
	err   error
	wait  <-chan struct{}
	count int
}

func (f *fakeImages) GenerateImage(ctx context.Context, _ string) (*models.ImageRef, error) {
	f.mu.Lock()
	f.count++
	f.mu.Unlock()

	if f.wait != nil {
		select {
		case <-f.wait:
		case <-time.After(2 * time.Second):
			return nil, fmt.Errorf("recommendation never started")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	img := *f.img
	return &img, nil
}

func (f *fakeImages) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// fakeCatalog fails with errs in order and then returns tracks.
type fakeCatalog struct {
	mu      sync.Mutex
	errs    []error
	tracks  []models.TrackRef
	queries []url.Values
	started chan struct{}
}

func (c *fakeCatalog) Recommendations(_ context.Context, query url.Values) ([]models.TrackRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started != nil && len(c.queries) == 0 {
		close(c.started)
	}
	i := len(c.queries)
	c.queries = append(c.queries, query)
	if i < len(c.errs) {
		return nil, c.errs[i]
	}
	return c.tracks, nil
}

func (c *fakeCatalog) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queries)
}

type fakeWriter struct {
	createErr error
	addErr    error
	coverErr  error

	created []string
	public  []bool
	added   map[string][]string
	covers  map[string]string
}

func (w *fakeWriter) CreatePlaylist(_ context.Context, ownerID, name, _ string, public bool) (*services.SpotifyPlaylist, error) {
	if w.createErr != nil {
		return nil, w.createErr
	}
	w.created = append(w.created, name)
	w.public = append(w.public, public)
	return &services.SpotifyPlaylist{ID: fmt.Sprintf("pl%d", len(w.created)), Name: name, Public: public}, nil
}

func (w *fakeWriter) AddTracks(_ context.Context, playlistID string, uris []string) error {
	if w.addErr != nil {
		return w.addErr
	}
	if w.added == nil {
		w.added = map[string][]string{}
	}
	w.added[playlistID] = append(w.added[playlistID], uris...)
	return nil
}

func (w *fakeWriter) UploadCover(_ context.Context, playlistID, jpegBase64 string) error {
	if w.coverErr != nil {
		return w.coverErr
	}
	if w.covers == nil {
		w.covers = map[string]string{}
	}
	w.covers[playlistID] = jpegBase64
	return nil
}

type fakeStore struct {
	count     int
	countErr  error
	createErr error
	counted   int
	since     []time.Time
	results   []*models.GenerationResult
}

func (s *fakeStore) CountResultsSince(_ context.Context, _ string, since time.Time) (int, error) {
	s.counted++
	s.since = append(s.since, since)
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.count, nil
}

func (s *fakeStore) CreateResult(_ context.Context, result *models.GenerationResult) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.results = append(s.results, result)
	s.count++
	return nil
}

func testTracks(n int) []models.TrackRef {
	tracks := make([]models.TrackRef, n)
	for i := range tracks {
		id := fmt.Sprintf("track%02d", i)
		tracks[i] = models.TrackRef{ID: id, URI: "spotify:track:" + id, Name: "Song " + id, Artists: []string{"Artist"}}
	}
	return tracks
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}
