// package formatter renders generation results as plain text, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/shared"
)

// Format names accepted by [Render].
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

// Formats lists the accepted format names.
var Formats = []string{FormatText, FormatMarkdown, FormatCSV, FormatJSON}

const maxCoverDownload = 20 << 20

// Render writes results to w in format. Text and Markdown separate multiple results with a blank line.
func Render(w io.Writer, format string, results ...*models.GenerationResult) error {
	var (
		data []byte
		err  error
	)

	switch strings.ToLower(format) {
	case FormatText, "":
		data = joinEach(results, ExportToText, "\n")
	case FormatMarkdown, "md":
		data = joinEach(results, func(r *models.GenerationResult) []byte { return ExportToMarkdown(r, "") }, "\n---\n\n")
	case FormatCSV:
		data, err = ExportToCSV(results)
	case FormatJSON:
		views := make([]ResultView, 0, len(results))
		for _, r := range results {
			views = append(views, NewResultView(r))
		}
		if len(views) == 1 {
			data, err = shared.MarshalJSON(views[0], true)
		} else {
			data, err = shared.MarshalJSON(views, true)
		}
		data = append(data, '\n')
	default:
		return fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}

func joinEach(results []*models.GenerationResult, render func(*models.GenerationResult) []byte, sep string) []byte {
	var buf bytes.Buffer
	for i, r := range results {
		if i > 0 {
			buf.WriteString(sep)
		}
		buf.Write(render(r))
	}
	return buf.Bytes()
}

// ResultView is the JSON shape of a result.
type ResultView struct {
	ID          string                 `json:"id"`
	Sequence    int                    `json:"sequence"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Mood        string                 `json:"mood"`
	VibeText    string                 `json:"vibe_text"`
	PlaylistID  string                 `json:"playlist_id"`
	PlaylistURL string                 `json:"playlist_url"`
	CoverURL    string                 `json:"cover_url,omitempty"`
	TrackCount  int                    `json:"track_count"`
	Stage       models.PublishStage    `json:"stage"`
	Warnings    []string               `json:"warnings,omitempty"`
	Public      bool                   `json:"public"`
	PlayCount   int                    `json:"play_count"`
	Parameters  models.MusicParameters `json:"parameters"`
	CreatedAt   time.Time              `json:"created_at"`
}

func NewResultView(r *models.GenerationResult) ResultView {
	return ResultView{
		ID:          r.ID(),
		Sequence:    r.Sequence(),
		Title:       r.Title(),
		Description: r.Description(),
		Mood:        r.MoodLabel(),
		VibeText:    r.VibeText(),
		PlaylistID:  r.PlaylistID(),
		PlaylistURL: r.PlaylistURL(),
		CoverURL:    r.CoverImageURL(),
		TrackCount:  r.TrackCount(),
		Stage:       r.Stage(),
		Warnings:    r.Warnings(),
		Public:      r.Public(),
		PlayCount:   r.PlayCount(),
		Parameters:  r.Parameters(),
		CreatedAt:   r.CreatedAt(),
	}
}

// ParameterSummary renders a vector on one line, e.g. "energy 0.30 · valence 0.25 · 85 BPM · ambient, chill".
func ParameterSummary(p models.MusicParameters) string {
	parts := []string{
		fmt.Sprintf("energy %.2f", p.Energy),
		fmt.Sprintf("valence %.2f", p.Valence),
		fmt.Sprintf("%.0f BPM", p.Tempo),
	}
	for _, opt := range []struct {
		name string
		v    *float64
	}{
		{"acousticness", p.Acousticness},
		{"danceability", p.Danceability},
		{"instrumentalness", p.Instrumentalness},
	} {
		if opt.v != nil {
			parts = append(parts, fmt.Sprintf("%s %.2f", opt.name, *opt.v))
		}
	}
	if len(p.Genres) > 0 {
		parts = append(parts, strings.Join(p.Genres, ", "))
	}
	return strings.Join(parts, " · ")
}

// ExportToCSV writes one row per result.
func ExportToCSV(results []*models.GenerationResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "ID", "Title", "Mood", "Tracks", "Stage", "Energy", "Valence", "Tempo", "Genres", "Visibility", "Plays", "URL", "Created"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range results {
		p := r.Parameters()
		record := []string{
			strconv.Itoa(r.Sequence()),
			r.ID(),
			r.Title(),
			r.MoodLabel(),
			strconv.Itoa(r.TrackCount()),
			string(r.Stage()),
			strconv.FormatFloat(p.Energy, 'f', -1, 64),
			strconv.FormatFloat(p.Valence, 'f', -1, 64),
			strconv.FormatFloat(p.Tempo, 'f', -1, 64),
			strings.Join(p.Genres, ";"),
			shared.VisibilityString(r.Public()),
			strconv.Itoa(r.PlayCount()),
			r.PlaylistURL(),
			r.CreatedAt().UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders a result with an optional local cover image.
func ExportToMarkdown(r *models.GenerationResult, imageFilename string) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", r.Title())

	switch {
	case imageFilename != "":
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	case r.HasCover():
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", r.CoverImageURL())
	}

	if r.Description() != "" {
		fmt.Fprintf(&buf, "> %s\n\n", r.Description())
	}
	if r.VibeText() != "" {
		fmt.Fprintf(&buf, "**Vibe**: %s\n", r.VibeText())
	}
	fmt.Fprintf(&buf, "**Mood**: %s\n", r.MoodLabel())
	fmt.Fprintf(&buf, "**Tracks**: %d\n", r.TrackCount())
	fmt.Fprintf(&buf, "**Visibility**: %s\n", shared.VisibilityString(r.Public()))
	fmt.Fprintf(&buf, "**Playlist**: [%s](%s)\n\n", r.PlaylistID(), r.PlaylistURL())

	p := r.Parameters()
	buf.WriteString("## Parameters\n\n")
	buf.WriteString("| parameter | value |\n| --- | --- |\n")
	fmt.Fprintf(&buf, "| energy | %.2f |\n", p.Energy)
	fmt.Fprintf(&buf, "| valence | %.2f |\n", p.Valence)
	fmt.Fprintf(&buf, "| tempo | %.0f BPM |\n", p.Tempo)
	if p.Acousticness != nil {
		fmt.Fprintf(&buf, "| acousticness | %.2f |\n", *p.Acousticness)
	}
	if p.Danceability != nil {
		fmt.Fprintf(&buf, "| danceability | %.2f |\n", *p.Danceability)
	}
	if p.Instrumentalness != nil {
		fmt.Fprintf(&buf, "| instrumentalness | %.2f |\n", *p.Instrumentalness)
	}
	fmt.Fprintf(&buf, "| genres | %s |\n", strings.Join(p.Genres, ", "))

	if warnings := r.Warnings(); len(warnings) > 0 {
		buf.WriteString("\n## Warnings\n\n")
		for _, w := range warnings {
			fmt.Fprintf(&buf, "- %s\n", w)
		}
	}

	return buf.Bytes()
}

// ExportToText renders a result as a short plain-text block.
func ExportToText(r *models.GenerationResult) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", r.Title())
	if r.Description() != "" {
		fmt.Fprintf(&buf, "Description: %s\n", r.Description())
	}
	fmt.Fprintf(&buf, "Mood: %s\n", r.MoodLabel())
	fmt.Fprintf(&buf, "Parameters: %s\n", ParameterSummary(r.Parameters()))
	fmt.Fprintf(&buf, "Tracks: %d\n", r.TrackCount())
	fmt.Fprintf(&buf, "Visibility: %s\n", shared.VisibilityString(r.Public()))
	fmt.Fprintf(&buf, "URL: %s\n", r.PlaylistURL())
	if r.Partial() {
		buf.WriteString("Status: partial (playlist created without tracks)\n")
	}
	for _, w := range r.Warnings() {
		fmt.Fprintf(&buf, "Warning: %s\n", w)
	}

	return buf.Bytes()
}

// DownloadImage fetches an image and returns its raw bytes.
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverDownload))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// MarkdownExportResult lists the files created by [WriteMarkdownExport].
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
	Warnings   []string
}

// WriteMarkdownExport writes {dir}/README.md and, when the result has a cover, {dir}/cover.jpg.
//
// The directory defaults to the playlist ID. A failed cover download is reported as a warning
// and the README links the remote image instead.
func WriteMarkdownExport(ctx context.Context, client *http.Client, r *models.GenerationResult, outputDir string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = r.PlaylistID()
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir}

	var coverFilename string
	if r.HasCover() {
		data, err := DownloadImage(ctx, client, r.CoverImageURL())
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("cover not downloaded: %v", err))
		} else {
			path := filepath.Join(outputDir, "cover.jpg")
			if err := os.WriteFile(path, data, 0644); err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("cover not saved: %v", err))
			} else {
				coverFilename = "cover.jpg"
				result.CoverImage = path
				result.Files = append(result.Files, path)
			}
		}
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, ExportToMarkdown(r, coverFilename), 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteCSVExport writes results to path, defaulting to vibelist_history.csv.
func WriteCSVExport(results []*models.GenerationResult, path string) (string, error) {
	if path == "" {
		path = "vibelist_history.csv"
	}

	data, err := ExportToCSV(results)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}
	return path, nil
}

// WriteTextExport writes a result to path, defaulting to {playlist ID}.txt.
func WriteTextExport(r *models.GenerationResult, path string) (string, error) {
	if path == "" {
		path = r.PlaylistID() + ".txt"
	}
	if err := os.WriteFile(path, ExportToText(r), 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}
	return path, nil
}
