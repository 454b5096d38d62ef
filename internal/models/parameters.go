package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/desertthunder/vibelist/internal/shared"
)

const (
	MinTempo        = 40.0
	MaxTempo        = 220.0
	MaxVectorGenres = 3
	// MaxSeedsPerCategory is the catalog's limit for each of seed_tracks, seed_artists and seed_genres.
	MaxSeedsPerCategory = 5
)

// MusicParameters is the parameter vector describing the desired sound of a playlist.
//
// Optional attributes are nil when absent so they are omitted from recommendation queries.
type MusicParameters struct {
	Energy           float64  `json:"energy"`
	Valence          float64  `json:"valence"`
	Tempo            float64  `json:"tempo"`
	Genres           []string `json:"genres"`
	Acousticness     *float64 `json:"acousticness,omitempty"`
	Danceability     *float64 `json:"danceability,omitempty"`
	Instrumentalness *float64 `json:"instrumentalness,omitempty"`
	SeedTracks       []string `json:"seed_tracks,omitempty"`
	SeedArtists      []string `json:"seed_artists,omitempty"`
}

// Float returns a pointer to v for the optional attributes of [MusicParameters].
func Float(v float64) *float64 {
	return &v
}

// Validate checks ranges: energy, valence and the optional attributes in [0,1], tempo within
// [MinTempo, MaxTempo], at most [MaxVectorGenres] genres.
func (p MusicParameters) Validate() error {
	unit := map[string]*float64{
		"energy":           &p.Energy,
		"valence":          &p.Valence,
		"acousticness":     p.Acousticness,
		"danceability":     p.Danceability,
		"instrumentalness": p.Instrumentalness,
	}
	for name, v := range unit {
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || *v < 0 || *v > 1 {
			return fmt.Errorf("%w: %s must be between 0 and 1, got %v", shared.ErrInvalidInput, name, *v)
		}
	}

	if math.IsNaN(p.Tempo) || p.Tempo < MinTempo || p.Tempo > MaxTempo {
		return fmt.Errorf("%w: tempo must be between %.0f and %.0f BPM, got %v", shared.ErrInvalidInput, MinTempo, MaxTempo, p.Tempo)
	}

	if len(p.Genres) > MaxVectorGenres {
		return fmt.Errorf("%w: at most %d genres allowed, got %d", shared.ErrInvalidInput, MaxVectorGenres, len(p.Genres))
	}
	for _, g := range p.Genres {
		if strings.TrimSpace(g) == "" {
			return fmt.Errorf("%w: genre must not be empty", shared.ErrInvalidInput)
		}
	}

	return nil
}

// Clone returns a deep copy so callers can adjust a vector without touching one already in use.
func (p MusicParameters) Clone() MusicParameters {
	c := p
	c.Genres = append([]string(nil), p.Genres...)
	c.SeedTracks = append([]string(nil), p.SeedTracks...)
	c.SeedArtists = append([]string(nil), p.SeedArtists...)
	c.Acousticness = cloneFloat(p.Acousticness)
	c.Danceability = cloneFloat(p.Danceability)
	c.Instrumentalness = cloneFloat(p.Instrumentalness)
	return c
}

// WithAdjustments returns a copy with energy, valence and tempo replaced, as in the preview/edit flow.
func (p MusicParameters) WithAdjustments(energy, valence, tempo float64) MusicParameters {
	c := p.Clone()
	c.Energy = energy
	c.Valence = valence
	c.Tempo = tempo
	return c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return Float(*v)
}

// NormalizeGenres lower-cases, trims, and de-duplicates genre tags, preserving order.
// Spaces become hyphens to match catalog seed names (e.g. "hip hop" -> "hip-hop").
func NormalizeGenres(genres []string) []string {
	seen := make(map[string]bool, len(genres))
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		g = strings.Join(strings.Fields(strings.ToLower(g)), "-")
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	return out
}

// TrackSignal is a top track used as listening-history input.
type TrackSignal struct {
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
}

// ArtistSignal is a top artist used as listening-history input.
type ArtistSignal struct {
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

// TrackRef is a resolved catalog track.
type TrackRef struct {
	ID      string   `json:"id"`
	URI     string   `json:"uri"`
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
}

// ImageRef is generated cover art: a hosted URL, inline bytes, or both.
type ImageRef struct {
	URL         string `json:"url,omitempty"`
	Data        []byte `json:"-"`
	ContentType string `json:"content_type,omitempty"`
}

// HasData reports whether the image bytes are available for upload.
func (i *ImageRef) HasData() bool {
	return i != nil && len(i.Data) > 0
}
