package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/vibelist/internal/formatter"
	"github.com/desertthunder/vibelist/internal/models"
)

var _ list.Item = templateItem{}

// templateItem wraps [models.MoodTemplate] to implement [list.Item].
type templateItem struct {
	template *models.MoodTemplate
}

func (i templateItem) FilterValue() string { return i.template.Name() }
func (i templateItem) Title() string       { return i.template.Name() }
func (i templateItem) Description() string {
	desc := formatter.ParameterSummary(i.template.Parameters())
	if i.template.Description() != "" {
		desc = fmt.Sprintf("%s • %s", i.template.Description(), desc)
	}
	return desc
}
