package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/services"
)

const (
	vibeSchemaName    = "vibe_analysis"
	historySchemaName = "history_analysis"

	MaxTitleLength       = 50
	MaxDescriptionLength = 200
	MinHistoryGenres     = 3
	MaxHistoryGenres     = 5
)

const vibeInstructions = `You are a music expert that maps emotions and scenarios to musical parameters.
Given a user's description of their mood or setting, extract the following parameters:
- energy: 0-1 (how energetic the music should be)
- valence: 0-1 (how positive the music should feel, 0=sad, 1=happy)
- tempo: BPM (beats per minute, typical range 60-180)
- genres: array of 1-3 Spotify genre seeds
- acousticness: 0-1 (0=electronic, 1=acoustic)
- danceability: 0-1 (how suitable for dancing)

Also generate:
- playlistTitle: a creative playlist title (max 50 characters)
- playlistDescription: a poetic playlist description (max 200 characters)
- moodType: a mood category (e.g. "relaxed", "energetic", "romantic", "focused")

Return only JSON matching the schema.`

const historyInstructions = `You are a music analyst. Given a user's top tracks and artists, identify:
1. Their preferred genres (3-5 genre seeds compatible with Spotify)
2. A brief insight about their music taste (one sentence)

Return only JSON matching the schema.`

// StructuredModel completes a prompt constrained by a JSON schema. Implemented by services.OpenAIService.
type StructuredModel interface {
	Complete(ctx context.Context, prompt services.StructuredPrompt) (string, error)
}

// Translation is a parameter vector plus the generated playlist metadata.
type Translation struct {
	Parameters  models.MusicParameters `json:"parameters"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	MoodLabel   string                 `json:"mood"`
	VibeText    string                 `json:"vibe_text,omitempty"`
}

// Meta returns the metadata carried into an explicit-vector request after a preview.
func (t *Translation) Meta() models.PreviewMeta {
	return models.PreviewMeta{VibeText: t.VibeText, Title: t.Title, Description: t.Description, MoodLabel: t.MoodLabel}
}

// HistoryInsight is the model's reading of a user's listening history.
type HistoryInsight struct {
	Genres  []string `json:"genres"`
	Insight string   `json:"insights"`
}

// ParameterTranslator converts vibe text or listening history into music parameters with a single
// structured-output model call. It never retries; that policy belongs to the engine.
type ParameterTranslator struct {
	model  StructuredModel
	logger *log.Logger
}

func NewParameterTranslator(model StructuredModel, logger *log.Logger) *ParameterTranslator {
	if logger == nil {
		logger = log.Default()
	}
	return &ParameterTranslator{model: model, logger: logger}
}

// TranslateVibe maps free text to a parameter vector and playlist metadata.
//
// Output that violates the schema fails with a [*MalformedOutputError]. Transport errors are
// returned unchanged.
func (t *ParameterTranslator) TranslateVibe(ctx context.Context, text string) (*Translation, error) {
	raw, err := t.model.Complete(ctx, services.StructuredPrompt{
		Name:         vibeSchemaName,
		Instructions: vibeInstructions,
		Input:        fmt.Sprintf("Analyze this vibe: %q", text),
		Schema:       VibeSchema(),
	})
	if err != nil {
		return nil, err
	}

	tr, err := ParseVibe(raw)
	if err != nil {
		t.logger.Debug("rejected model output", "schema", vibeSchemaName, "error", err)
		return nil, err
	}
	tr.VibeText = text
	return tr, nil
}

// TranslateHistory asks for 3-5 genres and a one-sentence insight from bounded history signals.
func (t *ParameterTranslator) TranslateHistory(ctx context.Context, tracks []models.TrackSignal, artists []models.ArtistSignal) (*HistoryInsight, error) {
	raw, err := t.model.Complete(ctx, services.StructuredPrompt{
		Name:         historySchemaName,
		Instructions: historyInstructions,
		Input:        historyInput(tracks, artists),
		Schema:       HistorySchema(),
	})
	if err != nil {
		return nil, err
	}

	insight, err := ParseHistory(raw)
	if err != nil {
		t.logger.Debug("rejected model output", "schema", historySchemaName, "error", err)
		return nil, err
	}
	return insight, nil
}

func historyInput(tracks []models.TrackSignal, artists []models.ArtistSignal) string {
	if len(tracks) > models.MaxHistoryTracks {
		tracks = tracks[:models.MaxHistoryTracks]
	}
	if len(artists) > models.MaxHistoryArtists {
		artists = artists[:models.MaxHistoryArtists]
	}

	ts := make([]string, 0, len(tracks))
	for _, tr := range tracks {
		ts = append(ts, fmt.Sprintf("%s by %s", tr.Name, strings.Join(tr.Artists, ", ")))
	}
	as := make([]string, 0, len(artists))
	for _, a := range artists {
		as = append(as, fmt.Sprintf("%s (%s)", a.Name, strings.Join(a.Genres, ", ")))
	}

	return fmt.Sprintf("Top tracks: %s\nTop artists: %s", strings.Join(ts, "; "), strings.Join(as, "; "))
}

// DefaultHistoryParameters builds the vector used for history-based generation.
func DefaultHistoryParameters(genres []string) models.MusicParameters {
	genres = models.NormalizeGenres(genres)
	if len(genres) > models.MaxVectorGenres {
		genres = genres[:models.MaxVectorGenres]
	}
	return models.MusicParameters{
		Energy:       0.6,
		Valence:      0.6,
		Tempo:        120,
		Genres:       genres,
		Acousticness: models.Float(0.5),
		Danceability: models.Float(0.6),
	}
}

// HistoryTranslation turns an insight into a full [Translation] using [DefaultHistoryParameters].
func HistoryTranslation(insight *HistoryInsight) *Translation {
	return &Translation{
		Parameters:  DefaultHistoryParameters(insight.Genres),
		Title:       "Your Listening Mix",
		Description: truncateRunes(insight.Insight, MaxDescriptionLength),
		MoodLabel:   "personal",
		VibeText:    "Based on your music taste: " + insight.Insight,
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func objectSchema(properties map[string]any) map[string]any {
	required := make([]string, 0, len(properties))
	for name := range properties {
		required = append(required, name)
	}
	slices.Sort(required)
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

func numberField(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc}
}

func stringField(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func stringList(desc string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": desc}
}

// VibeSchema is the strict JSON schema sent with vibe translation requests.
func VibeSchema() map[string]any {
	return objectSchema(map[string]any{
		"energy":              numberField("Energy level 0-1"),
		"valence":             numberField("Happiness level 0-1"),
		"tempo":               numberField("BPM"),
		"genres":              stringList("1-3 genre seeds"),
		"acousticness":        numberField("Acoustic vs electronic 0-1"),
		"danceability":        numberField("Danceability 0-1"),
		"playlistTitle":       stringField("Creative playlist title"),
		"playlistDescription": stringField("Poetic description"),
		"moodType":            stringField("Mood category"),
	})
}

// HistorySchema is the strict JSON schema sent with history analysis requests.
func HistorySchema() map[string]any {
	return objectSchema(map[string]any{
		"genres":   stringList("Preferred genre seeds"),
		"insights": stringField("Brief music taste insight"),
	})
}

// vibeOutput mirrors [VibeSchema]. Pointers distinguish missing fields from zero values.
type vibeOutput struct {
	Energy              *float64 `json:"energy"`
	Valence             *float64 `json:"valence"`
	Tempo               *float64 `json:"tempo"`
	Genres              []string `json:"genres"`
	Acousticness        *float64 `json:"acousticness"`
	Danceability        *float64 `json:"danceability"`
	PlaylistTitle       *string  `json:"playlistTitle"`
	PlaylistDescription *string  `json:"playlistDescription"`
	MoodType            *string  `json:"moodType"`
}

type historyOutput struct {
	Genres   []string `json:"genres"`
	Insights *string  `json:"insights"`
}

// decodeStrict rejects unknown fields and trailing data.
func decodeStrict(schema, raw string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return malformed(schema, "invalid JSON: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return malformed(schema, "unexpected data after JSON object")
	}
	return nil
}

// ParseVibe decodes and validates a vibe_analysis response.
func ParseVibe(raw string) (*Translation, error) {
	var out vibeOutput
	if err := decodeStrict(vibeSchemaName, raw, &out); err != nil {
		return nil, err
	}

	missing := []string{}
	for name, present := range map[string]bool{
		"energy":              out.Energy != nil,
		"valence":             out.Valence != nil,
		"tempo":               out.Tempo != nil,
		"genres":              out.Genres != nil,
		"acousticness":        out.Acousticness != nil,
		"danceability":        out.Danceability != nil,
		"playlistTitle":       out.PlaylistTitle != nil,
		"playlistDescription": out.PlaylistDescription != nil,
		"moodType":            out.MoodType != nil,
	} {
		if !present {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, malformed(vibeSchemaName, "missing required fields %v", missing)
	}

	genres := models.NormalizeGenres(out.Genres)
	if len(genres) < 1 || len(genres) > models.MaxVectorGenres {
		return nil, malformed(vibeSchemaName, "want 1-%d genres, got %d", models.MaxVectorGenres, len(genres))
	}

	title := strings.TrimSpace(*out.PlaylistTitle)
	desc := strings.TrimSpace(*out.PlaylistDescription)
	mood := strings.ToLower(strings.TrimSpace(*out.MoodType))
	switch {
	case title == "":
		return nil, malformed(vibeSchemaName, "empty playlistTitle")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return nil, malformed(vibeSchemaName, "playlistTitle longer than %d characters", MaxTitleLength)
	case utf8.RuneCountInString(desc) > MaxDescriptionLength:
		return nil, malformed(vibeSchemaName, "playlistDescription longer than %d characters", MaxDescriptionLength)
	case mood == "":
		return nil, malformed(vibeSchemaName, "empty moodType")
	}

	params := models.MusicParameters{
		Energy:       *out.Energy,
		Valence:      *out.Valence,
		Tempo:        *out.Tempo,
		Genres:       genres,
		Acousticness: out.Acousticness,
		Danceability: out.Danceability,
	}
	if err := params.Validate(); err != nil {
		return nil, malformed(vibeSchemaName, "%v", err)
	}

	return &Translation{Parameters: params, Title: title, Description: desc, MoodLabel: mood}, nil
}

// ParseHistory decodes and validates a history_analysis response.
func ParseHistory(raw string) (*HistoryInsight, error) {
	var out historyOutput
	if err := decodeStrict(historySchemaName, raw, &out); err != nil {
		return nil, err
	}
	if out.Genres == nil || out.Insights == nil {
		return nil, malformed(historySchemaName, "missing required fields")
	}

	genres := models.NormalizeGenres(out.Genres)
	if len(genres) < MinHistoryGenres || len(genres) > MaxHistoryGenres {
		return nil, malformed(historySchemaName, "want %d-%d genres, got %d", MinHistoryGenres, MaxHistoryGenres, len(genres))
	}

	insight := strings.TrimSpace(*out.Insights)
	if insight == "" {
		return nil, malformed(historySchemaName, "empty insights")
	}
	return &HistoryInsight{Genres: genres, Insight: insight}, nil
}
