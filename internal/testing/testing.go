// package testing contains shared fixtures and test doubles
package testing

import (
	"database/sql"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/shared"
)

// SampleParameters returns the vector of the "rainy late-night drive" fixture.
func SampleParameters() models.MusicParameters {
	return models.MusicParameters{
		Energy:       0.3,
		Valence:      0.25,
		Tempo:        85,
		Genres:       []string{"chill", "ambient", "indie-pop"},
		Acousticness: models.Float(0.6),
		Danceability: models.Float(0.35),
	}
}

// SampleRecord returns a completed generation owned by userID.
func SampleRecord(userID string) models.GenerationRecord {
	return models.GenerationRecord{
		UserID:        userID,
		Title:         "Wet Asphalt at 2AM",
		Description:   "Headlights smearing through rain on an empty highway.",
		MoodLabel:     "melancholic",
		VibeText:      "rainy late-night drive",
		CoverImageURL: "https://images.example/cover.jpg",
		PlaylistID:    "37i9dQZF1DX0",
		PlaylistURL:   "https://open.spotify.com/playlist/37i9dQZF1DX0",
		TrackCount:    20,
		Parameters:    SampleParameters(),
		Stage:         models.StageDone,
	}
}

// NewResult builds a result from [SampleRecord] after applying edits.
func NewResult(userID string, edits ...func(*models.GenerationRecord)) *models.GenerationResult {
	rec := SampleRecord(userID)
	for _, edit := range edits {
		edit(&rec)
	}
	return models.NewGenerationResult(rec)
}

// NewTestDB opens a migrated in-memory database closed at the end of the test.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) *LimitedWriter {
	return &LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper returns a canned response or error for every request.
type MockRoundTripper struct {
	response *http.Response
	err      error
	Requests []*http.Request
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.Requests = append(m.Requests, req)
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
