package tasks

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/shared"
)

// maxImageBytes bounds a downloaded cover.
const maxImageBytes = 20 << 20

// ImageModel generates an image from a prompt. Implemented by services.OpenAIService.
type ImageModel interface {
	GenerateImage(ctx context.Context, prompt string) (*models.ImageRef, error)
}

// ArtworkSynthesizer produces a cover image for a vibe. Its failures are always
// wrapped in [shared.ErrArtworkFailed] and absorbed by the engine.
type ArtworkSynthesizer struct {
	model      ImageModel
	httpClient *http.Client
	logger     *log.Logger
}

func NewArtworkSynthesizer(model ImageModel, client *http.Client, logger *log.Logger) *ArtworkSynthesizer {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ArtworkSynthesizer{model: model, httpClient: client, logger: logger}
}

// CoverPrompt builds the image prompt. It asks for abstract color and atmosphere with no text or people.
func CoverPrompt(vibeText, moodLabel string) string {
	return fmt.Sprintf(`Abstract artistic visualization of the mood: %s.
Style: modern, vibrant, album cover art.
Mood: %s.
No text, no letters, no people. Focus on colors and atmosphere.`, vibeText, moodLabel)
}

// Synthesize generates the cover and makes sure its bytes are available for upload.
func (a *ArtworkSynthesizer) Synthesize(ctx context.Context, vibeText, moodLabel string) (*models.ImageRef, error) {
	if a.model == nil {
		return nil, fmt.Errorf("%w: no image model configured", shared.ErrArtworkFailed)
	}

	img, err := a.model.GenerateImage(ctx, CoverPrompt(vibeText, moodLabel))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrArtworkFailed, err)
	}
	if img == nil || (img.URL == "" && !img.HasData()) {
		return nil, fmt.Errorf("%w: empty image", shared.ErrArtworkFailed)
	}

	if !img.HasData() {
		data, contentType, err := a.fetch(ctx, img.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrArtworkFailed, err)
		}
		img.Data = data
		img.ContentType = contentType
	}

	a.logger.Debug("cover generated", "bytes", len(img.Data), "type", img.ContentType)
	return img, nil
}

func (a *ArtworkSynthesizer) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image download failed: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
