package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/services"
	"github.com/desertthunder/vibelist/internal/shared"
)

// PlaylistWriter performs the external calls of publishing. Implemented by services.SpotifyService.
type PlaylistWriter interface {
	CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (*services.SpotifyPlaylist, error)
	AddTracks(ctx context.Context, playlistID string, uris []string) error
	UploadCover(ctx context.Context, playlistID, jpegBase64 string) error
}

// PublishInput is everything needed to materialize a playlist.
type PublishInput struct {
	OwnerID     string
	Title       string
	Description string
	Public      bool
	Tracks      []models.TrackRef
	Cover       *models.ImageRef
}

// PublishedPlaylist is the outcome of a publish run that got past creation.
type PublishedPlaylist struct {
	ID            string
	URL           string
	Stage         models.PublishStage
	TrackCount    int
	CoverUploaded bool
	Warnings      []string
}

// Partial reports whether the playlist exists without its tracks.
func (p *PublishedPlaylist) Partial() bool {
	return p.Stage == models.StageCreated
}

// PlaylistPublisher creates, populates and decorates a playlist.
//
// Creation failure is fatal and returns no playlist. Later failures are recorded as warnings.
type PlaylistPublisher struct {
	writer  PlaylistWriter
	logger  *log.Logger
	metrics *Metrics
}

func NewPlaylistPublisher(writer PlaylistWriter, logger *log.Logger, metrics *Metrics) *PlaylistPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &PlaylistPublisher{writer: writer, logger: logger, metrics: metrics}
}

// Publish runs Created -> Populated -> Decorated -> Done. Decorated is skipped without a cover.
// Visibility is set at creation and not changed afterward.
func (p *PlaylistPublisher) Publish(ctx context.Context, in PublishInput) (*PublishedPlaylist, error) {
	created, err := p.writer.CreatePlaylist(ctx, in.OwnerID, in.Title, in.Description, in.Public)
	if err != nil {
		return nil, fmt.Errorf("%w: create playlist: %w", shared.ErrPublish, err)
	}

	out := &PublishedPlaylist{ID: created.ID, URL: created.URL(), Stage: models.StageCreated}
	logger := p.logger.With("playlist", out.ID)
	logger.Info("playlist created", "title", in.Title, "public", in.Public)

	uris := make([]string, 0, len(in.Tracks))
	for _, t := range in.Tracks {
		uris = append(uris, t.URI)
	}

	if err := p.writer.AddTracks(ctx, out.ID, uris); err != nil {
		logger.Warn("failed to add tracks", "count", len(uris), "error", err)
		p.metrics.degraded("tracks")
		out.Warnings = append(out.Warnings, fmt.Sprintf("tracks could not be added: %v", err))
		return out, nil
	}
	out.Stage = models.StagePopulated
	out.TrackCount = len(uris)

	if in.Cover.HasData() {
		if err := p.uploadCover(ctx, out.ID, in.Cover); err != nil {
			logger.Warn("failed to upload cover", "error", err)
			p.metrics.degraded("cover_upload")
			out.Warnings = append(out.Warnings, fmt.Sprintf("cover upload failed: %v", err))
		} else {
			out.Stage = models.StageDecorated
			out.CoverUploaded = true
		}
	}

	out.Stage = models.StageDone
	return out, nil
}

func (p *PlaylistPublisher) uploadCover(ctx context.Context, playlistID string, cover *models.ImageRef) error {
	payload, err := EncodeCover(cover)
	if err != nil {
		return err
	}
	return p.writer.UploadCover(ctx, playlistID, payload)
}
