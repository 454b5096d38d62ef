package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	left      key.Binding
	right     key.Binding
	enter     key.Binding
	templates key.Binding
	public    key.Binding
	back      key.Binding
	restart   key.Binding
	open      key.Binding
	quit      key.Binding
	forceQuit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next")),
		left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "decrease")),
		right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "increase")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		templates: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "templates")),
		public:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "toggle public")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		restart:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "new vibe")),
		open:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open in browser")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		forceQuit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.left, k.right},
		{k.enter, k.templates, k.public, k.back},
		{k.restart, k.open, k.quit},
	}
}
