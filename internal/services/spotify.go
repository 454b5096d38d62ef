// Spotify Web API client
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/shared"
	"golang.org/x/time/rate"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"

	// MaxTracksPerRequest is the catalog's limit on URIs per add-tracks call.
	MaxTracksPerRequest = 100
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	DurationMS int             `json:"duration_ms"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

// Ref converts the track to a [models.TrackRef].
func (t SpotifyTrack) Ref() models.TrackRef {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	return models.TrackRef{ID: t.ID, URI: t.URI, Name: t.Name, Artists: artists}
}

// Signal converts the track to a listening-history [models.TrackSignal].
func (t SpotifyTrack) Signal() models.TrackSignal {
	ref := t.Ref()
	return models.TrackSignal{Name: ref.Name, Artists: ref.Artists}
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
	URI    string   `json:"uri"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyPlaylist represents a playlist returned by create.
type SpotifyPlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Public       bool         `json:"public"`
	URI          string       `json:"uri"`
	ExternalURLs externalURLs `json:"external_urls"`
}

// URL returns the web URL of the playlist.
func (p *SpotifyPlaylist) URL() string {
	if p.ExternalURLs.Spotify != "" {
		return p.ExternalURLs.Spotify
	}
	return "https://open.spotify.com/playlist/" + p.ID
}

// TimeRange selects the listening-history window for top items.
type TimeRange string

const (
	ShortTerm  TimeRange = "short_term"
	MediumTerm TimeRange = "medium_term"
	LongTerm   TimeRange = "long_term"
)

// ParseTimeRange accepts short, medium or long, with or without the _term suffix.
func ParseTimeRange(s string) (TimeRange, error) {
	switch strings.TrimSuffix(strings.ToLower(s), "_term") {
	case "short":
		return ShortTerm, nil
	case "", "medium":
		return MediumTerm, nil
	case "long":
		return LongTerm, nil
	}
	return "", fmt.Errorf("%w: time range must be short, medium or long, got %q", shared.ErrInvalidArgument, s)
}

// SpotifyOpts configures a [SpotifyService].
type SpotifyOpts struct {
	RequestsPerSecond float64
	Market            string
	BaseURL           string
	HTTPClient        *http.Client
	Logger            *log.Logger
}

// SpotifyService is a Spotify Web API client.
type SpotifyService struct {
	tokens     TokenProvider
	httpClient *http.Client
	baseURL    string
	market     string
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewSpotifyService creates a client that authenticates every request with tokens.
//
// A non-positive RequestsPerSecond disables pacing.
func NewSpotifyService(tokens TokenProvider, opts SpotifyOpts) *SpotifyService {
	s := &SpotifyService{
		tokens:     tokens,
		httpClient: opts.HTTPClient,
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		market:     opts.Market,
		logger:     opts.Logger,
	}
	if s.httpClient == nil {
		s.httpClient = http.DefaultClient
	}
	if s.baseURL == "" {
		s.baseURL = spotifyBaseURL
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if opts.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return s
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// rawBody is sent as-is instead of JSON-encoded.
type rawBody struct {
	contentType string
	data        []byte
}

// doRequest performs an authenticated request to the Spotify API and decodes the JSON response into result.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if s.tokens == nil {
		return shared.ErrNotAuthenticated
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	token, err := s.tokens.Token()
	if err != nil {
		return err
	}

	var (
		reader      io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case rawBody:
		reader = bytes.NewReader(b.data)
		contentType = b.contentType
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	s.logger.Debug("spotify request", "method", method, "endpoint", endpoint, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			Status:     resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Me retrieves the current authenticated user's profile.
func (s *SpotifyService) Me(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func clampLimit(limit, max int) int {
	if limit <= 0 {
		return 20
	}
	if limit > max {
		return max
	}
	return limit
}

// TopTracks retrieves the user's most played tracks.
func (s *SpotifyService) TopTracks(ctx context.Context, limit int, timeRange TimeRange) ([]SpotifyTrack, error) {
	endpoint := fmt.Sprintf("/me/top/tracks?limit=%d&time_range=%s", clampLimit(limit, 50), timeRange)

	var response struct {
		Items []SpotifyTrack `json:"items"`
	}
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return response.Items, nil
}

// TopArtists retrieves the user's most played artists.
func (s *SpotifyService) TopArtists(ctx context.Context, limit int, timeRange TimeRange) ([]SpotifyArtist, error) {
	endpoint := fmt.Sprintf("/me/top/artists?limit=%d&time_range=%s", clampLimit(limit, 50), timeRange)

	var response struct {
		Items []SpotifyArtist `json:"items"`
	}
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return response.Items, nil
}

// Recommendations queries the recommendation endpoint with seed_* and target_* parameters.
func (s *SpotifyService) Recommendations(ctx context.Context, query url.Values) ([]models.TrackRef, error) {
	if s.market != "" && query.Get("market") == "" {
		query.Set("market", s.market)
	}

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/recommendations?"+query.Encode(), nil, &response); err != nil {
		return nil, err
	}

	refs := make([]models.TrackRef, 0, len(response.Tracks))
	for _, t := range response.Tracks {
		refs = append(refs, t.Ref())
	}
	return refs, nil
}

// GenreSeeds lists the genres accepted as recommendation seeds.
func (s *SpotifyService) GenreSeeds(ctx context.Context) ([]string, error) {
	var response struct {
		Genres []string `json:"genres"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/recommendations/available-genre-seeds", nil, &response); err != nil {
		return nil, err
	}
	return response.Genres, nil
}

// CreatePlaylist creates an empty playlist owned by ownerID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (*SpotifyPlaylist, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	var playlist SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(ownerID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// AddTracks appends uris to a playlist in batches of [MaxTracksPerRequest].
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	for start := 0; start < len(uris); start += MaxTracksPerRequest {
		end := min(start+MaxTracksPerRequest, len(uris))
		body := map[string]any{"uris": uris[start:end]}
		if err := s.doRequest(ctx, http.MethodPost, endpoint, body, nil); err != nil {
			return err
		}
	}
	return nil
}

// UploadCover replaces the playlist cover. jpegBase64 is a base64-encoded JPEG under 256 KB.
func (s *SpotifyService) UploadCover(ctx context.Context, playlistID, jpegBase64 string) error {
	endpoint := fmt.Sprintf("/playlists/%s/images", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPut, endpoint, rawBody{contentType: "image/jpeg", data: []byte(jpegBase64)}, nil)
}
