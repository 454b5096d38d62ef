package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/shared"
	th "github.com/desertthunder/vibelist/internal/testing"
)

func TestExporters(t *testing.T) {
	result := th.NewResult("user-1")

	t.Run("ParameterSummary", func(t *testing.T) {
		got := ParameterSummary(th.SampleParameters())
		want := "energy 0.30 · valence 0.25 · 85 BPM · acousticness 0.60 · danceability 0.35 · chill, ambient, indie-pop"
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}

		bare := ParameterSummary(models.MusicParameters{Energy: 1, Valence: 0, Tempo: 128})
		if strings.Contains(bare, "acousticness") || !strings.HasSuffix(bare, "128 BPM") {
			t.Errorf("unexpected summary %q", bare)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		output := string(ExportToText(result))
		for _, want := range []string{
			"Playlist: Wet Asphalt at 2AM",
			"Mood: melancholic",
			"Tracks: 20",
			"Visibility: Private",
			"URL: https://open.spotify.com/playlist/37i9dQZF1DX0",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("text missing %q, got:\n%s", want, output)
			}
		}
		if strings.Contains(output, "Status: partial") {
			t.Error("completed result reported as partial")
		}
	})

	t.Run("ExportToTextPartial", func(t *testing.T) {
		partial := th.NewResult("user-1", func(r *models.GenerationRecord) {
			r.Stage = models.StageCreated
			r.TrackCount = 0
			r.Warnings = []string{"tracks could not be added: status 502"}
		})
		output := string(ExportToText(partial))
		if !strings.Contains(output, "Status: partial") || !strings.Contains(output, "Warning: tracks could not be added") {
			t.Errorf("expected partial status and warning, got:\n%s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("remote cover", func(t *testing.T) {
			output := string(ExportToMarkdown(result, ""))
			for _, want := range []string{
				"# Wet Asphalt at 2AM",
				"![Cover](https://images.example/cover.jpg)",
				"**Vibe**: rainy late-night drive",
				"**Tracks**: 20",
				"| tempo | 85 BPM |",
				"| genres | chill, ambient, indie-pop |",
			} {
				if !strings.Contains(output, want) {
					t.Errorf("markdown missing %q, got:\n%s", want, output)
				}
			}
			if strings.Contains(output, "## Warnings") {
				t.Error("unexpected warnings section")
			}
		})

		t.Run("local cover", func(t *testing.T) {
			output := string(ExportToMarkdown(result, "cover.jpg"))
			if !strings.Contains(output, "![Cover](cover.jpg)") {
				t.Error("markdown missing local cover reference")
			}
		})

		t.Run("no cover", func(t *testing.T) {
			bare := th.NewResult("user-1", func(r *models.GenerationRecord) { r.CoverImageURL = "" })
			if strings.Contains(string(ExportToMarkdown(bare, "")), "![Cover]") {
				t.Error("expected no cover image")
			}
		})
	})

	t.Run("ExportToCSV", func(t *testing.T) {
		second := th.NewResult("user-1", func(r *models.GenerationRecord) {
			r.Title = "Coffee, Then Chaos"
			r.Public = true
		})

		data, err := ExportToCSV([]*models.GenerationResult{result, second})
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV: %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("expected header and 2 rows, got %d", len(rows))
		}
		if rows[0][2] != "Title" || rows[2][2] != "Coffee, Then Chaos" {
			t.Errorf("unexpected title column %q / %q", rows[0][2], rows[2][2])
		}
		if rows[1][9] != "chill;ambient;indie-pop" || rows[2][10] != "Public" {
			t.Errorf("unexpected row %v", rows[2])
		}
	})
}

func TestRender(t *testing.T) {
	result := th.NewResult("user-1")

	t.Run("Formats", func(t *testing.T) {
		tests := []struct {
			format string
			want   string
		}{
			{"", "Playlist: Wet Asphalt at 2AM"},
			{FormatText, "Playlist: Wet Asphalt at 2AM"},
			{FormatMarkdown, "# Wet Asphalt at 2AM"},
			{"md", "# Wet Asphalt at 2AM"},
			{FormatCSV, "Sequence,ID,Title"},
			{"JSON", `"title": "Wet Asphalt at 2AM"`},
		}
		for _, tt := range tests {
			t.Run(tt.format, func(t *testing.T) {
				var buf bytes.Buffer
				if err := Render(&buf, tt.format, result); err != nil {
					t.Fatalf("Render failed: %v", err)
				}
				if !strings.Contains(buf.String(), tt.want) {
					t.Errorf("expected %q in output:\n%s", tt.want, buf.String())
				}
			})
		}
	})

	t.Run("JSONList", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Render(&buf, FormatJSON, result, result); err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		var views []ResultView
		if err := json.Unmarshal(buf.Bytes(), &views); err != nil {
			t.Fatalf("expected JSON array: %v", err)
		}
		if len(views) != 2 || views[0].Parameters.Tempo != 85 {
			t.Errorf("unexpected views %+v", views)
		}
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		err := Render(&bytes.Buffer{}, "yaml", result)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument, got %v", err)
		}
	})

	t.Run("WriteFailure", func(t *testing.T) {
		if err := Render(&th.FWriter{}, FormatText, result); err == nil {
			t.Error("expected write error")
		}
	})
}

func TestFileExports(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cover.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0})
	}))
	defer srv.Close()

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "export")
		result := th.NewResult("user-1", func(r *models.GenerationRecord) { r.CoverImageURL = srv.URL + "/cover.jpg" })

		out, err := WriteMarkdownExport(ctx, srv.Client(), result, dir)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		th.AssertDirExists(t, out.Directory)
		th.AssertFileExists(t, out.CoverImage)
		if len(out.Files) != 2 || len(out.Warnings) != 0 {
			t.Errorf("unexpected export %+v", out)
		}
		if content := th.MustReadFile(t, filepath.Join(dir, "README.md")); !strings.Contains(content, "![Cover](cover.jpg)") {
			t.Errorf("README should reference the local cover:\n%s", content)
		}
	})

	t.Run("WriteMarkdownExportCoverMissing", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "export")
		result := th.NewResult("user-1", func(r *models.GenerationRecord) { r.CoverImageURL = srv.URL + "/gone.jpg" })

		out, err := WriteMarkdownExport(ctx, srv.Client(), result, dir)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		if out.CoverImage != "" || len(out.Warnings) != 1 {
			t.Errorf("expected a cover warning, got %+v", out)
		}
		if content := th.MustReadFile(t, filepath.Join(dir, "README.md")); !strings.Contains(content, srv.URL+"/gone.jpg") {
			t.Error("README should fall back to the remote cover")
		}
	})

	t.Run("WriteCSVExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.csv")
		written, err := WriteCSVExport([]*models.GenerationResult{th.NewResult("user-1")}, path)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		if content := th.MustReadFile(t, written); !strings.Contains(content, "Wet Asphalt at 2AM") {
			t.Errorf("unexpected CSV:\n%s", content)
		}
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "result.txt")
		written, err := WriteTextExport(th.NewResult("user-1"), path)
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		th.AssertFileExists(t, written)
	})

	t.Run("DownloadImage", func(t *testing.T) {
		if _, err := DownloadImage(ctx, nil, ""); err == nil {
			t.Error("expected error for empty URL")
		}

		client := &http.Client{Transport: th.NewMockRoundTripper(nil, errors.New("connection refused"))}
		if _, err := DownloadImage(ctx, client, "https://images.example/x.jpg"); err == nil {
			t.Error("expected transport error")
		}
	})
}
