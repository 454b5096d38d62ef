package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/desertthunder/vibelist/internal/models"
)

type field struct {
	name     string
	min, max float64
	step     float64
	scale    float64 // values are rounded to 1/scale
	format   string
}

var editorFields = []field{
	{name: "energy", min: 0, max: 1, step: 0.05, scale: 100, format: "%.2f"},
	{name: "valence", min: 0, max: 1, step: 0.05, scale: 100, format: "%.2f"},
	{name: "tempo", min: models.MinTempo, max: models.MaxTempo, step: 5, scale: 1, format: "%.0f BPM"},
}

// paramEditor adjusts energy, valence and tempo of a previewed vector.
type paramEditor struct {
	params   models.MusicParameters
	values   []float64
	selected int
}

func newParamEditor(p models.MusicParameters) paramEditor {
	return paramEditor{
		params: p.Clone(),
		values: []float64{p.Energy, p.Valence, p.Tempo},
	}
}

func (e *paramEditor) move(delta int) {
	n := len(editorFields)
	e.selected = (e.selected + delta + n) % n
}

func (e *paramEditor) adjust(direction float64) {
	f := editorFields[e.selected]
	v := e.values[e.selected] + direction*f.step
	v = math.Round(v*f.scale) / f.scale
	e.values[e.selected] = min(max(v, f.min), f.max)
}

// Parameters returns the edited vector.
func (e paramEditor) Parameters() models.MusicParameters {
	return e.params.WithAdjustments(e.values[0], e.values[1], e.values[2])
}

// Edited reports whether any value differs from the preview.
func (e paramEditor) Edited() bool {
	return e.values[0] != e.params.Energy || e.values[1] != e.params.Valence || e.values[2] != e.params.Tempo
}

func (e paramEditor) View() string {
	var b strings.Builder
	for i, f := range editorFields {
		cursor := "  "
		name := fmt.Sprintf("%-8s", f.name)
		if i == e.selected {
			cursor = styles.selected.Render("▸ ")
			name = styles.selected.Render(name)
		}
		fraction := (e.values[i] - f.min) / (f.max - f.min)
		fmt.Fprintf(&b, "%s%s %s  %s\n", cursor, name, meter(fraction, 20), fmt.Sprintf(f.format, e.values[i]))
	}
	return b.String()
}
