package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPreviewed MsgKind = iota
	MsgProgressUpdate
	MsgGenerated
	MsgOpened
)

type previewed struct {
	translation *tasks.Translation
	err         error
}

type generated struct {
	result *models.GenerationResult
	err    error
}

// previewedMsg is the constructor for [MsgPreviewed]
func previewedMsg(translation *tasks.Translation, err error) Msg {
	return Msg{kind: MsgPreviewed, data: previewed{translation, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// generatedMsg is the constructor for [MsgGenerated]
func generatedMsg(result *models.GenerationResult, err error) Msg {
	return Msg{kind: MsgGenerated, data: generated{result, err}}
}

// openedMsg is the constructor for [MsgOpened]
func openedMsg(err error) Msg {
	return Msg{kind: MsgOpened, data: err}
}
