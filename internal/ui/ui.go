package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibelist/internal/formatter"
	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/shared"
	"github.com/desertthunder/vibelist/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	InputView ViewState = iota
	TemplateView
	PreviewView
	EditView
	GenerateView
	ResultView
)

// Engine is the part of [tasks.GenerationEngine] the TUI drives.
type Engine interface {
	Preview(ctx context.Context, req models.GenerationRequest, progress chan<- tasks.ProgressUpdate) (*tasks.Translation, error)
	Generate(ctx context.Context, req models.GenerationRequest, progress chan<- tasks.ProgressUpdate) (*models.GenerationResult, error)
}

// Session identifies who the generated playlists are for.
type Session struct {
	UserID      string
	Plan        models.Plan
	OwnerID     string // Spotify user id
	DisplayName string
	Public      bool
	SkipArtwork bool
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	engine  Engine
	session Session
	logger  *log.Logger
	open    func(string) error

	view   ViewState
	width  int
	height int

	input     textinput.Model
	templates list.Model
	spinner   spinner.Model
	help      help.Model
	keys      keyMap

	translation *tasks.Translation
	editor      paramEditor
	public      bool

	progress    <-chan tasks.ProgressUpdate
	done        <-chan Msg
	progressLog []tasks.ProgressUpdate

	result *models.GenerationResult
	err    error
	notice string
}

// NewModel creates the TUI. templates may be empty.
func NewModel(ctx context.Context, engine Engine, session Session, templates []*models.MoodTemplate, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.Default()
	}

	input := textinput.New()
	input.Placeholder = "rainy late-night drive"
	input.CharLimit = models.MaxVibeTextLength
	input.Width = 60
	input.Focus()

	items := make([]list.Item, len(templates))
	for i, t := range templates {
		items[i] = templateItem{template: t}
	}
	tl := list.New(items, list.NewDefaultDelegate(), 0, 0)
	tl.Title = "Mood templates"

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.accent

	return &Model{
		ctx:       ctx,
		engine:    engine,
		session:   session,
		logger:    logger,
		open:      shared.OpenBrowser,
		view:      InputView,
		input:     input,
		templates: tl,
		spinner:   sp,
		help:      help.New(),
		keys:      newKeyMap(),
		public:    session.Public,
	}
}

// Init starts the cursor blink of the vibe input.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.templates.SetSize(msg.Width-4, msg.Height-6)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.forceQuit) {
			m.stop()
			return m, tea.Quit
		}
		switch m.view {
		case InputView:
			return m.handleInputKeys(msg)
		case TemplateView:
			return m.handleTemplateKeys(msg)
		case EditView:
			return m.handleEditKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}
		return m, nil

	case spinner.TickMsg:
		if m.view != PreviewView && m.view != GenerateView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateComponents(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPreviewed:
		data := msg.data.(previewed)
		if data.err != nil {
			m.err = data.err
			m.view = InputView
			return m, nil
		}
		m.translation = data.translation
		m.editor = newParamEditor(data.translation.Parameters)
		m.view = EditView
		return m, nil

	case MsgProgressUpdate:
		m.progressLog = append(m.progressLog, msg.data.(tasks.ProgressUpdate))
		return m, waitForProgress(m.progress, m.done)

	case MsgGenerated:
		data := msg.data.(generated)
		m.result, m.err = data.result, data.err
		m.progress, m.done = nil, nil
		m.stop()
		m.view = ResultView
		return m, nil

	case MsgOpened:
		if err, _ := msg.data.(error); err != nil {
			m.notice = fmt.Sprintf("could not open browser: %v", err)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		return m, tea.Quit
	case key.Matches(msg, m.keys.templates):
		if len(m.templates.Items()) == 0 {
			m.notice = "no mood templates available"
			return m, nil
		}
		m.view = TemplateView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.err, m.notice = nil, ""
		m.view = PreviewView
		return m, tea.Batch(m.spinner.Tick, m.preview(m.request(models.ByVibeText(text))))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleTemplateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.templates.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.back):
			m.view = InputView
			return m, nil
		case key.Matches(msg, m.keys.enter):
			if item, ok := m.templates.SelectedItem().(templateItem); ok {
				m.useTemplate(item.template)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.templates, cmd = m.templates.Update(msg)
	return m, cmd
}

func (m *Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = InputView
		return m, nil
	case key.Matches(msg, m.keys.up):
		m.editor.move(-1)
	case key.Matches(msg, m.keys.down):
		m.editor.move(1)
	case key.Matches(msg, m.keys.left):
		m.editor.adjust(-1)
	case key.Matches(msg, m.keys.right):
		m.editor.adjust(1)
	case key.Matches(msg, m.keys.public):
		m.public = !m.public
	case key.Matches(msg, m.keys.enter):
		req := m.request(models.ByExplicitVector(m.editor.Parameters(), m.translation.Meta()))
		m.progressLog = nil
		m.view = GenerateView
		return m, tea.Batch(m.spinner.Tick, m.generate(req))
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.reset()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.open):
		if m.result == nil {
			return m, nil
		}
		url := m.result.PlaylistURL()
		return m, func() tea.Msg { return openedMsg(m.open(url)) }
	}
	return m, nil
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case InputView:
		m.input, cmd = m.input.Update(msg)
	case TemplateView:
		m.templates, cmd = m.templates.Update(msg)
	}
	return m, cmd
}

func (m *Model) useTemplate(t *models.MoodTemplate) {
	m.translation = &tasks.Translation{
		Parameters:  t.Parameters(),
		Title:       TemplateTitle(t.Name()),
		Description: t.Description(),
		MoodLabel:   t.Name(),
		VibeText:    t.Description(),
	}
	m.editor = newParamEditor(t.Parameters())
	m.view = EditView
}

// TemplateTitle turns a template name such as "late-night" into a playlist title.
func TemplateTitle(name string) string {
	words := strings.Split(name, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ") + " Mix"
}

func (m *Model) request(req models.GenerationRequest) models.GenerationRequest {
	req = req.For(m.session.UserID, m.session.Plan, m.session.OwnerID)
	req.Public = m.public
	req.SkipArtwork = m.session.SkipArtwork
	return req
}

func (m *Model) reset() {
	m.stop()
	m.view = InputView
	m.input.Reset()
	m.input.Focus()
	m.translation, m.result, m.err = nil, nil, nil
	m.progressLog = nil
	m.notice = ""
	m.public = m.session.Public
}

func (m *Model) stop() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Model) preview(req models.GenerationRequest) tea.Cmd {
	return func() tea.Msg {
		tr, err := m.engine.Preview(m.ctx, req, nil)
		return previewedMsg(tr, err)
	}
}

func (m *Model) generate(req models.GenerationRequest) tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel

	progress := make(chan tasks.ProgressUpdate, 32)
	done := make(chan Msg, 1)
	m.progress, m.done = progress, done

	go func() {
		result, err := m.engine.Generate(ctx, req, progress)
		done <- generatedMsg(result, err)
		close(progress)
	}()

	return waitForProgress(progress, done)
}

// waitForProgress yields the next progress update, then the final result once the run ends.
func waitForProgress(progress <-chan tasks.ProgressUpdate, done <-chan Msg) tea.Cmd {
	return func() tea.Msg {
		if update, ok := <-progress; ok {
			return progressUpdateMsg(update)
		}
		return <-done
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case InputView:
		return m.renderInput()
	case TemplateView:
		return fmt.Sprintf("%s\n\n%s", m.templates.View(), m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back}))
	case PreviewView:
		return fmt.Sprintf("%s\n\n%s Reading the vibe...\n", styles.title.Render("vibelist"), m.spinner.View())
	case EditView:
		return m.renderEdit()
	case GenerateView:
		return m.renderGenerate()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderInput() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("vibelist"))
	b.WriteString("\n")
	if m.session.DisplayName != "" {
		fmt.Fprintf(&b, "Hi %s. ", m.session.DisplayName)
	}
	b.WriteString("Describe a mood, a moment or a scene:\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(styles.err.Render(describeError(m.err)))
		b.WriteString("\n\n")
	}
	if m.notice != "" {
		b.WriteString(styles.warn.Render(m.notice))
		b.WriteString("\n\n")
	}

	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.templates, m.keys.forceQuit}))
	return b.String()
}

func (m *Model) renderEdit() string {
	tr := m.translation
	var b strings.Builder

	b.WriteString(styles.title.Render(tr.Title))
	b.WriteString("\n")
	if tr.Description != "" {
		b.WriteString(styles.help.Render(tr.Description))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nMood: %s\nGenres: %s\n\n", styles.accent.Render(tr.MoodLabel), strings.Join(tr.Parameters.Genres, ", "))
	b.WriteString(m.editor.View())
	fmt.Fprintf(&b, "\nVisibility: %s", shared.VisibilityString(m.public))
	if m.editor.Edited() {
		b.WriteString(styles.warn.Render("  (edited)"))
	}
	b.WriteString("\n\n")

	keys := []key.Binding{m.keys.up, m.keys.down, m.keys.left, m.keys.right, m.keys.public, m.keys.back, m.keys.quit}
	create := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "create playlist"))
	b.WriteString(m.help.ShortHelpView(append([]key.Binding{create}, keys...)))
	return styles.card.Render(b.String())
}

func (m *Model) renderGenerate() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Creating your playlist"))
	b.WriteString("\n")

	for _, u := range m.progressLog {
		fmt.Fprintf(&b, "%s %s\n", styles.ok.Render("✓"), u.Message)
	}

	step, total := 0, 1
	if n := len(m.progressLog); n > 0 {
		step, total = m.progressLog[n-1].Step, max(m.progressLog[n-1].Total, 1)
	}
	fmt.Fprintf(&b, "\n%s %s %d/%d\n", m.spinner.View(), meter(float64(step)/float64(total), 30), step, total)
	return b.String()
}

func (m *Model) renderResult() string {
	restart := []key.Binding{m.keys.restart, m.keys.quit}

	if m.err != nil {
		msg := fmt.Sprintf("Generation failed: %s", describeError(m.err))
		var ge *tasks.GenerationError
		if errors.As(m.err, &ge) && ge.PlaylistURL != "" {
			msg += fmt.Sprintf("\nThe playlist was created: %s", ge.PlaylistURL)
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(msg), m.help.ShortHelpView(restart))
	}
	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), m.help.ShortHelpView(restart))
	}

	r := m.result
	var b strings.Builder
	if r.Partial() {
		b.WriteString(styles.warn.Render("! Playlist created, but its tracks could not be added"))
	} else {
		b.WriteString(styles.ok.Render("✓ Playlist ready!"))
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s\n%s\n\n", styles.title.Render(r.Title()), formatter.ParameterSummary(r.Parameters()))
	fmt.Fprintf(&b, "Tracks: %d\nVisibility: %s\nURL: %s\n", r.TrackCount(), shared.VisibilityString(r.Public()), r.PlaylistURL())
	for _, w := range r.Warnings() {
		fmt.Fprintf(&b, "%s\n", styles.warn.Render("• "+w))
	}
	if m.notice != "" {
		fmt.Fprintf(&b, "\n%s\n", styles.warn.Render(m.notice))
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.open, m.keys.restart, m.keys.quit}))
	return b.String()
}

// describeError adds a hint to pipeline errors the user can act on.
func describeError(err error) string {
	switch tasks.KindOf(err) {
	case tasks.KindQuotaExceeded:
		return fmt.Sprintf("%v\nUpgrade with `vibelist plan set pro` or wait for next month.", err)
	case tasks.KindAuthExpired:
		return fmt.Sprintf("%v\nRun `vibelist auth login` to reconnect Spotify.", err)
	default:
		return err.Error()
	}
}
