package tasks

import (
	"fmt"

	"github.com/desertthunder/vibelist/internal/models"
)

// ProgressUpdate represents a progress event during a pipeline run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Pipeline stage
	Step    int    // Current step number
	Total   int    // Total steps in the run
	Message string // Human-readable message for display
	Data    any    // Optional stage-specific data for advanced UIs
}

// Phase is a pipeline stage.
type Phase int

const (
	Validate Phase = iota
	Quota
	Translate
	Artwork
	Recommend
	CreatePlaylist
	AddTracks
	UploadCover
	Persist
	Done
)

func (p Phase) String() string {
	switch p {
	case Validate:
		return "validate"
	case Quota:
		return "quota"
	case Translate:
		return "translate"
	case Artwork:
		return "artwork"
	case Recommend:
		return "recommend"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	case UploadCover:
		return "upload_cover"
	case Persist:
		return "persist"
	case Done:
		return "done"
	default:
		return ""
	}
}

// totalSteps counts the phases a full run reports, excluding Done.
const totalSteps = int(Done)

func phaseUpdate(p Phase, message string) ProgressUpdate {
	return ProgressUpdate{Phase: p, Step: int(p) + 1, Total: totalSteps, Message: message}
}

func quotaUpdate(ent Entitlement) ProgressUpdate {
	u := phaseUpdate(Quota, "Quota check passed (unlimited plan)")
	if ent.Limit >= 0 {
		u.Message = fmt.Sprintf("Quota check passed (%d of %d used this month)", ent.Used, ent.Limit)
	}
	u.Data = ent
	return u
}

func translatedUpdate(t *Translation) ProgressUpdate {
	u := phaseUpdate(Translate, fmt.Sprintf("Vibe translated: %s (%s)", t.Title, t.MoodLabel))
	u.Data = t
	return u
}

func resolvedUpdate(tracks []models.TrackRef) ProgressUpdate {
	u := phaseUpdate(Recommend, fmt.Sprintf("Found %d tracks", len(tracks)))
	u.Data = tracks
	return u
}

func artworkUpdate(img *models.ImageRef, err error) ProgressUpdate {
	if err != nil {
		return phaseUpdate(Artwork, fmt.Sprintf("Cover art unavailable: %v", err))
	}
	u := phaseUpdate(Artwork, "Cover art generated")
	u.Data = img
	return u
}

func publishedUpdate(p *PublishedPlaylist) ProgressUpdate {
	phase := AddTracks
	msg := fmt.Sprintf("Playlist ready: %s (%d tracks)", p.URL, p.TrackCount)
	switch {
	case p.Stage == models.StageCreated:
		msg = fmt.Sprintf("Playlist created but tracks could not be added: %s", p.URL)
	case p.CoverUploaded:
		phase = UploadCover
	}
	u := phaseUpdate(phase, msg)
	u.Data = p
	return u
}

func doneUpdate(result *models.GenerationResult) ProgressUpdate {
	u := phaseUpdate(Done, fmt.Sprintf("Saved generation #%d: %s", result.Sequence(), result.Title()))
	u.Step = totalSteps
	u.Data = result
	return u
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default so progress reporting never blocks the pipeline.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
