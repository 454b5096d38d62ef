package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/vibelist/internal/shared"
)

// RequestKind tags the input mode of a [GenerationRequest].
type RequestKind int

const (
	// KindUnset is the zero value and is never valid.
	KindUnset RequestKind = iota
	KindVibeText
	KindHistorySignals
	KindExplicitVector
)

func (k RequestKind) String() string {
	switch k {
	case KindVibeText:
		return "vibe_text"
	case KindHistorySignals:
		return "history_signals"
	case KindExplicitVector:
		return "explicit_vector"
	default:
		return "unset"
	}
}

const (
	MaxVibeTextLength = 500
	MaxHistoryTracks  = 20
	MaxHistoryArtists = 20
)

// PreviewMeta carries the translated metadata kept when a previewed vector is edited and submitted.
type PreviewMeta struct {
	VibeText    string `json:"vibe_text"`
	Title       string `json:"title"`
	Description string `json:"description"`
	MoodLabel   string `json:"mood_label"`
}

// GenerationRequest is the transient input of one pipeline run.
//
// Build one with [ByVibeText], [ByHistorySignals] or [ByExplicitVector], then fill the owner fields.
type GenerationRequest struct {
	kind    RequestKind
	text    string
	tracks  []TrackSignal
	artists []ArtistSignal
	vector  *MusicParameters
	meta    PreviewMeta

	UserID          string
	Plan            Plan
	OwnerExternalID string // Spotify user id that will own the playlist
	Public          bool
	SkipArtwork     bool
}

// ByVibeText builds a request from a free-text vibe description.
func ByVibeText(text string) GenerationRequest {
	return GenerationRequest{kind: KindVibeText, text: strings.TrimSpace(text)}
}

// ByHistorySignals builds a request from the user's top tracks and artists.
func ByHistorySignals(tracks []TrackSignal, artists []ArtistSignal) GenerationRequest {
	return GenerationRequest{kind: KindHistorySignals, tracks: tracks, artists: artists}
}

// ByExplicitVector builds a request that reuses an already-translated (and possibly edited) vector.
func ByExplicitVector(vector MusicParameters, meta PreviewMeta) GenerationRequest {
	v := vector.Clone()
	return GenerationRequest{kind: KindExplicitVector, vector: &v, meta: meta}
}

// For sets the owner fields and returns the request.
func (r GenerationRequest) For(userID string, plan Plan, ownerExternalID string) GenerationRequest {
	r.UserID = userID
	r.Plan = plan
	r.OwnerExternalID = ownerExternalID
	return r
}

func (r GenerationRequest) Kind() RequestKind       { return r.kind }
func (r GenerationRequest) VibeText() string        { return r.text }
func (r GenerationRequest) Tracks() []TrackSignal   { return r.tracks }
func (r GenerationRequest) Artists() []ArtistSignal { return r.artists }
func (r GenerationRequest) Meta() PreviewMeta       { return r.meta }

// Vector returns a copy of the explicit vector, or nil for other kinds.
func (r GenerationRequest) Vector() *MusicParameters {
	if r.vector == nil {
		return nil
	}
	v := r.vector.Clone()
	return &v
}

// Validate checks the request shape. All failures wrap [shared.ErrInvalidRequest].
func (r GenerationRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("%w: requesting user is required", shared.ErrInvalidRequest)
	}
	if r.OwnerExternalID == "" {
		return fmt.Errorf("%w: playlist owner is required", shared.ErrInvalidRequest)
	}
	if !r.Plan.Valid() {
		return fmt.Errorf("%w: unknown plan %q", shared.ErrInvalidRequest, r.Plan)
	}

	switch r.kind {
	case KindVibeText:
		if r.text == "" {
			return fmt.Errorf("%w: vibe text is empty", shared.ErrInvalidRequest)
		}
		if len([]rune(r.text)) > MaxVibeTextLength {
			return fmt.Errorf("%w: vibe text exceeds %d characters", shared.ErrInvalidRequest, MaxVibeTextLength)
		}
	case KindHistorySignals:
		if len(r.tracks) == 0 && len(r.artists) == 0 {
			return fmt.Errorf("%w: no listening history supplied", shared.ErrInvalidRequest)
		}
	case KindExplicitVector:
		if r.vector == nil {
			return fmt.Errorf("%w: parameter vector is missing", shared.ErrInvalidRequest)
		}
		if err := r.vector.Validate(); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidRequest, err)
		}
	default:
		return fmt.Errorf("%w: one of vibe text, history signals or parameters is required", shared.ErrInvalidRequest)
	}

	return nil
}
