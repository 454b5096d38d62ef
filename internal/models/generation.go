package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/vibelist/internal/shared"
)

// PublishStage is the furthest point the playlist publisher reached.
type PublishStage string

const (
	StageNone      PublishStage = ""
	StageCreated   PublishStage = "created"
	StagePopulated PublishStage = "populated"
	StageDecorated PublishStage = "decorated"
	StageDone      PublishStage = "done"
)

func (s PublishStage) Valid() bool {
	switch s {
	case StageCreated, StagePopulated, StageDecorated, StageDone:
		return true
	}
	return false
}

// GenerationRecord holds the field values of a [GenerationResult].
type GenerationRecord struct {
	UserID        string
	Title         string
	Description   string
	MoodLabel     string
	VibeText      string
	CoverImageURL string
	PlaylistID    string
	PlaylistURL   string
	TrackCount    int
	Parameters    MusicParameters
	Stage         PublishStage
	Warnings      []string
	Public        bool
	PlayCount     int
}

// GenerationResult is the immutable record of one pipeline run, owned by the requesting user.
//
// Only visibility and play count change after creation, and only through the repository.
type GenerationResult struct {
	Base
	rec GenerationRecord
}

// NewGenerationResult builds a result from rec. Slices are copied.
func NewGenerationResult(rec GenerationRecord) *GenerationResult {
	rec.Parameters = rec.Parameters.Clone()
	rec.Warnings = append([]string(nil), rec.Warnings...)
	return &GenerationResult{Base: newBase(), rec: rec}
}

func (g *GenerationResult) UserID() string        { return g.rec.UserID }
func (g *GenerationResult) Title() string         { return g.rec.Title }
func (g *GenerationResult) Description() string   { return g.rec.Description }
func (g *GenerationResult) MoodLabel() string     { return g.rec.MoodLabel }
func (g *GenerationResult) VibeText() string      { return g.rec.VibeText }
func (g *GenerationResult) CoverImageURL() string { return g.rec.CoverImageURL }
func (g *GenerationResult) PlaylistID() string    { return g.rec.PlaylistID }
func (g *GenerationResult) PlaylistURL() string   { return g.rec.PlaylistURL }
func (g *GenerationResult) TrackCount() int       { return g.rec.TrackCount }
func (g *GenerationResult) Stage() PublishStage   { return g.rec.Stage }
func (g *GenerationResult) Public() bool          { return g.rec.Public }
func (g *GenerationResult) PlayCount() int        { return g.rec.PlayCount }

// HasCover reports whether cover art was attached.
func (g *GenerationResult) HasCover() bool { return g.rec.CoverImageURL != "" }

// Parameters returns a copy of the vector the playlist was generated from.
func (g *GenerationResult) Parameters() MusicParameters { return g.rec.Parameters.Clone() }

// Warnings returns the non-fatal degradations recorded during the run.
func (g *GenerationResult) Warnings() []string { return append([]string(nil), g.rec.Warnings...) }

// Partial reports whether track population failed after the playlist was created.
func (g *GenerationResult) Partial() bool { return g.rec.Stage == StageCreated }

// Record returns a copy of the field values.
func (g *GenerationResult) Record() GenerationRecord {
	rec := g.rec
	rec.Parameters = g.rec.Parameters.Clone()
	rec.Warnings = g.Warnings()
	return rec
}

func (g *GenerationResult) Validate() error {
	switch {
	case g.rec.UserID == "":
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	case g.rec.PlaylistID == "":
		return fmt.Errorf("%w: playlist id is required", shared.ErrInvalidInput)
	case g.rec.Title == "":
		return fmt.Errorf("%w: title is required", shared.ErrInvalidInput)
	case !g.rec.Stage.Valid():
		return fmt.Errorf("%w: invalid stage %q", shared.ErrInvalidInput, g.rec.Stage)
	case g.rec.TrackCount < 0:
		return fmt.Errorf("%w: track count must not be negative", shared.ErrInvalidInput)
	}
	return nil
}

// UsageWindow is the derived monthly usage of one user. It is never stored.
type UsageWindow struct {
	UserID          string    `json:"user_id"`
	PeriodStart     time.Time `json:"period_start"`
	GenerationCount int       `json:"generation_count"`
	Limit           int       `json:"limit"` // -1 when unlimited
}

// Remaining returns the generations left this period, or -1 when unlimited.
func (u UsageWindow) Remaining() int {
	if u.Limit < 0 {
		return -1
	}
	if r := u.Limit - u.GenerationCount; r > 0 {
		return r
	}
	return 0
}
