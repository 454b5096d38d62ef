package models

import (
	"fmt"
	"regexp"

	"github.com/desertthunder/vibelist/internal/shared"
)

var templateName = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// MoodTemplate is a named parameter vector for quick generation.
type MoodTemplate struct {
	Base
	name        string
	description string
	parameters  MusicParameters
	active      bool
	sortOrder   int
}

// NewMoodTemplate creates an active template.
func NewMoodTemplate(name, description string, params MusicParameters, sortOrder int) *MoodTemplate {
	return &MoodTemplate{
		Base:        newBase(),
		name:        name,
		description: description,
		parameters:  params.Clone(),
		active:      true,
		sortOrder:   sortOrder,
	}
}

func (m *MoodTemplate) Name() string                { return m.name }
func (m *MoodTemplate) Description() string         { return m.description }
func (m *MoodTemplate) Parameters() MusicParameters { return m.parameters.Clone() }
func (m *MoodTemplate) Active() bool                { return m.active }
func (m *MoodTemplate) SortOrder() int              { return m.sortOrder }
func (m *MoodTemplate) SetActive(active bool)       { m.active = active }

func (m *MoodTemplate) Validate() error {
	if !templateName.MatchString(m.name) {
		return fmt.Errorf("%w: template name must be lower-case letters, digits and hyphens", shared.ErrInvalidInput)
	}
	if err := m.parameters.Validate(); err != nil {
		return err
	}
	return nil
}
