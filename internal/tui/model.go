// Package tui is the terminal front end: it opens a source document, drives
// translation runs through the orchestrator and renders the split and quad
// workspaces.
package tui

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/mdtranslate/internal/api"
	"github.com/csheth/mdtranslate/internal/document"
	"github.com/csheth/mdtranslate/internal/layout"
	"github.com/csheth/mdtranslate/internal/orchestrator"
	"github.com/csheth/mdtranslate/internal/session"
)

// Config wires runtime options into the TUI program. Orchestrator is
// required; Settings may be nil, which disables the settings screen.
type Config struct {
	Orchestrator *orchestrator.Orchestrator
	Settings     SettingsStore
	Direction    api.Direction
	Theme        string
	ExportDir    string
	// Source, when set, is shown in the workspace at start.
	Source *document.Source
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	if config.Direction == "" {
		config.Direction = api.DirectionEnToZh
	}
	pathInput := textinput.New()
	pathInput.Placeholder = "path/to/document.md or https://…"
	pathInput.CharLimit = 512
	pathInput.Width = 70
	pathInput.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := &model{
		config:    config,
		stage:     stageUpload,
		keys:      newKeyMap(),
		help:      help.New(),
		pathInput: pathInput,
		spinner:   spin,
		meter:     progress.New(progress.WithDefaultGradient()),
		history:   newHistoryList(),
		settings:  newSettingsForm(),
		jobs:      newJobBus(),
		markdown:  newMarkdownRenderer(markdownThemeFromString(config.Theme)),
		lanes:     map[layout.Lane]*viewport.Model{},
		laneCache: map[layout.Lane]laneCache{},
		running:   map[jobKind]int{},
		direction: config.Direction,
		focused:   layout.LaneSourceEditor,
		width:     100,
		height:    30,
		info:      "Open a Markdown, text or PDF file to begin.",
	}
	m.refresh()
	if config.Source != nil {
		m.adoptSource(*config.Source)
	}
	return m
}

type model struct {
	config Config
	stage  stage

	keys      keyMap
	help      help.Model
	pathInput textinput.Model
	spinner   spinner.Model
	meter     progress.Model
	history   list.Model
	settings  settingsForm
	jobs      *jobBus
	markdown  *markdownRenderer

	lanes     map[layout.Lane]*viewport.Model
	laneCache map[layout.Lane]laneCache
	focused   layout.Lane

	snapshot session.State
	layout   layout.State

	running      map[jobKind]int
	title        string
	direction    api.Direction
	exportCursor int
	width        int
	height       int
	info         string
	errMessage   string

	// awaitingOutcome is set from submission until the run's outcome was shown.
	awaitingOutcome bool
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForChange(m.config.Orchestrator.Changes()))
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.meter.Width = max(msg.Width/3, 10)
		m.history.SetSize(msg.Width-4, max(msg.Height-6, 5))
		m.help.Width = msg.Width
		m.syncViewports()
		return m, nil
	case changeMsg:
		m.refresh()
		return m, waitForChange(m.config.Orchestrator.Changes())
	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	case jobStartedMsg:
		m.running[msg.kind]++
		return m, nil
	case jobDoneMsg:
		if m.running[msg.kind] > 0 {
			m.running[msg.kind]--
		}
		if msg.result == nil {
			return m, nil
		}
		return m.Update(msg.result)
	case openResultMsg:
		return m.handleOpenResult(msg)
	case translateResultMsg:
		return m.handleTranslateResult(msg)
	case historyResultMsg:
		if msg.err != nil {
			m.errMessage = fmt.Sprintf("History unavailable: %v", msg.err)
			return m, nil
		}
		m.history.SetItems(historyItems(msg.documents))
		m.stage = stageHistory
		m.errMessage = ""
		m.info = fmt.Sprintf("%d saved documents.", len(msg.documents))
		return m, nil
	case restoreResultMsg:
		if msg.err != nil {
			m.errMessage = fmt.Sprintf("Could not load document: %v", msg.err)
			return m, nil
		}
		m.stage = stageWorkspace
		m.title = ""
		m.errMessage = ""
		m.info = "Loaded " + msg.id + " from history."
		m.refresh()
		return m, nil
	case deleteResultMsg:
		if msg.err != nil {
			m.errMessage = fmt.Sprintf("Could not delete document: %v", msg.err)
			return m, nil
		}
		m.info = "Deleted " + msg.id + "."
		return m, m.jobs.Start(jobKindHistory, historyJob(m.config.Orchestrator))
	case settingsResultMsg:
		return m.handleSettingsResult(msg)
	case exportResultMsg:
		return m.handleExportResult(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}
	switch m.stage {
	case stageUpload:
		return m.handleUploadKey(msg)
	case stageHistory:
		return m.handleHistoryKey(msg)
	case stageSettings:
		return m.handleSettingsKey(msg)
	case stageExport:
		return m.handleExportKey(msg)
	default:
		return m.handleWorkspaceKey(msg)
	}
}

func (m *model) quit() (tea.Model, tea.Cmd) {
	m.jobs.stop()
	return m, tea.Quit
}

func (m *model) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.snapshot.SourceContent == "" {
			return m.quit()
		}
		m.stage = stageWorkspace
		m.pathInput.Blur()
		return m, nil
	case tea.KeyEnter:
		location := strings.TrimSpace(m.pathInput.Value())
		if location == "" {
			m.errMessage = "Enter a file path or URL."
			return m, nil
		}
		m.errMessage = ""
		m.info = "Opening " + location + "…"
		return m, tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindOpen, openSourceJob(location)))
	}
	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m *model) handleWorkspaceKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	o := m.config.Orchestrator
	switch {
	case key.Matches(msg, m.keys.quit):
		return m.quit()
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		m.syncViewports()
		return m, nil
	case key.Matches(msg, m.keys.translate):
		return m.startTranslation()
	case key.Matches(msg, m.keys.lanes):
		lane := laneKeys[msg.String()]
		side := sideOf(lane)
		if m.layout.Mode() != layout.ModeQuad {
			m.info = "Lanes expand in quad mode; press m to switch."
			return m, nil
		}
		if err := o.UpdateLayout(func(s *layout.State) error { return s.Toggle(lane, side) }); err != nil {
			m.errMessage = err.Error()
		}
		m.focused = lane
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.mode):
		next := layout.ModeQuad
		if m.layout.Mode() == layout.ModeQuad {
			next = layout.ModeSplit
		}
		_ = o.UpdateLayout(func(s *layout.State) error {
			s.SetMode(next)
			return nil
		})
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.focus):
		m.focusNext()
		return m, nil
	case key.Matches(msg, m.keys.scrollUp):
		m.scroll(func(vp *viewport.Model) { vp.LineUp(1) })
		return m, nil
	case key.Matches(msg, m.keys.scrollDown):
		m.scroll(func(vp *viewport.Model) { vp.LineDown(1) })
		return m, nil
	case key.Matches(msg, m.keys.pageUp):
		m.scroll(func(vp *viewport.Model) { vp.ViewUp() })
		return m, nil
	case key.Matches(msg, m.keys.pageDown):
		m.scroll(func(vp *viewport.Model) { vp.ViewDown() })
		return m, nil
	case key.Matches(msg, m.keys.open):
		if m.snapshot.IsTranslating {
			m.errMessage = "Wait for the current translation to finish or press r to reset."
			return m, nil
		}
		m.stage = stageUpload
		m.pathInput.SetValue("")
		return m, m.pathInput.Focus()
	case key.Matches(msg, m.keys.reset):
		o.Reset()
		m.awaitingOutcome = false
		m.title = ""
		m.errMessage = ""
		m.info = "Workspace cleared."
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.history):
		m.info = "Loading history…"
		return m, tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindHistory, historyJob(o)))
	case key.Matches(msg, m.keys.settings):
		if m.config.Settings == nil {
			m.errMessage = "Settings are not available without a server."
			return m, nil
		}
		m.info = "Loading settings…"
		return m, tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindSettings, loadSettingsJob(m.config.Settings)))
	case key.Matches(msg, m.keys.export):
		if m.snapshot.SourceContent == "" {
			m.errMessage = "Nothing to export yet."
			return m, nil
		}
		m.stage = stageExport
		m.exportCursor = 0
		return m, nil
	case key.Matches(msg, m.keys.copy):
		if m.snapshot.TranslatedContent == "" {
			m.errMessage = "No translation to copy yet."
			return m, nil
		}
		return m, m.jobs.Start(jobKindCopy, copyJob(document.KindTranslated, m.snapshot.SourceContent, m.snapshot.TranslatedContent))
	case key.Matches(msg, m.keys.direction):
		if m.snapshot.IsTranslating {
			m.errMessage = "Direction is fixed while a translation runs."
			return m, nil
		}
		m.direction = m.direction.Flip()
		from, to := m.direction.Labels()
		m.info = fmt.Sprintf("Translating %s → %s.", from, to)
		return m, nil
	}
	return m, nil
}

func (m *model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.history.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd
	}
	switch msg.String() {
	case "esc", "q":
		m.stage = stageWorkspace
		return m, nil
	case "enter":
		id, ok := m.selectedHistoryID()
		if !ok {
			return m, nil
		}
		m.info = "Loading " + id + "…"
		return m, tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindRestore, restoreJob(m.config.Orchestrator, id)))
	case "x", "delete":
		id, ok := m.selectedHistoryID()
		if !ok {
			return m, nil
		}
		return m, m.jobs.Start(jobKindDelete, deleteJob(m.config.Orchestrator, id))
	}
	var cmd tea.Cmd
	m.history, cmd = m.history.Update(msg)
	return m, cmd
}

func (m *model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.stage = stageWorkspace
		m.errMessage = ""
		return m, nil
	case tea.KeyEnter:
		settings, err := m.settings.value()
		if err != nil {
			m.errMessage = "Invalid settings: " + err.Error()
			return m, nil
		}
		m.errMessage = ""
		m.info = "Saving settings…"
		return m, m.jobs.Start(jobKindSave, saveSettingsJob(m.config.Settings, settings))
	}
	return m, m.settings.Update(msg)
}

func (m *model) handleExportKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	kind := document.Kinds[m.exportCursor]
	switch msg.String() {
	case "esc", "q":
		m.stage = stageWorkspace
		return m, nil
	case "up", "k":
		m.exportCursor = (m.exportCursor + len(document.Kinds) - 1) % len(document.Kinds)
		return m, nil
	case "down", "j", "tab":
		m.exportCursor = (m.exportCursor + 1) % len(document.Kinds)
		return m, nil
	case "enter", "w":
		m.stage = stageWorkspace
		return m, m.jobs.Start(jobKindExport, exportJob(m.config.ExportDir, kind, m.snapshot.SourceContent, m.snapshot.TranslatedContent))
	case "y", "c":
		m.stage = stageWorkspace
		return m, m.jobs.Start(jobKindCopy, copyJob(kind, m.snapshot.SourceContent, m.snapshot.TranslatedContent))
	}
	return m, nil
}

func (m *model) startTranslation() (tea.Model, tea.Cmd) {
	source := m.snapshot.SourceContent
	switch {
	case m.running[jobKindTranslate] > 0:
		m.info = "Submission already in progress."
		return m, nil
	case strings.TrimSpace(source) == "":
		m.errMessage = "Open a document before translating."
		return m, nil
	}
	m.errMessage = ""
	m.awaitingOutcome = true
	m.info = "Submitting " + m.displayTitle() + "…"
	return m, tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindTranslate, translateJob(m.config.Orchestrator, source, m.direction, m.title)))
}

func (m *model) handleOpenResult(msg openResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.errMessage = fmt.Sprintf("Could not open document: %v", msg.err)
		return m, nil
	}
	if err := m.adoptSource(msg.source); err != nil {
		m.errMessage = err.Error()
		return m, nil
	}
	return m, nil
}

// adoptSource puts a freshly opened document into the idle session.
func (m *model) adoptSource(source document.Source) error {
	if err := m.config.Orchestrator.SetSource(source.Content); err != nil {
		if errors.Is(err, session.ErrRunActive) {
			return errors.New("a translation is running; press r to reset first")
		}
		return err
	}
	m.title = source.Title
	m.stage = stageWorkspace
	m.pathInput.Blur()
	m.errMessage = ""
	m.info = fmt.Sprintf("Opened %s. Press t to translate.", m.displayTitle())
	log.Printf("[tui] opened %s (%d bytes)", source.Location, len(source.Content))
	m.refresh()
	return nil
}

func (m *model) handleTranslateResult(msg translateResultMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		m.info = "Translating " + m.displayTitle() + "…"
	case errors.Is(msg.err, session.ErrStaleRun):
		// superseded by a reset or a newer run; nothing to report.
	case errors.Is(msg.err, api.ErrSubmission):
		m.awaitingOutcome = false
		m.errMessage = fmt.Sprintf("Translation request failed: %v", msg.err)
	default:
		m.errMessage = fmt.Sprintf("Translation stopped: %v", msg.err)
	}
	m.refresh()
	return m, nil
}

func (m *model) handleSettingsResult(msg settingsResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.errMessage = fmt.Sprintf("Settings: %v", msg.err)
		return m, nil
	}
	if msg.saved {
		m.stage = stageWorkspace
		m.info = "Settings saved."
		return m, nil
	}
	m.settings.fill(msg.settings)
	m.stage = stageSettings
	m.info = "Enter saves, Esc cancels, space toggles auto-save."
	return m, nil
}

func (m *model) handleExportResult(msg exportResultMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err != nil:
		m.errMessage = fmt.Sprintf("Export failed: %v", msg.err)
	case msg.copied:
		m.info = fmt.Sprintf("Copied %s text to the clipboard.", msg.kind)
	default:
		m.info = "Wrote " + msg.path + "."
	}
	return m, nil
}

// refresh re-reads the session and layout and redraws the lanes.
func (m *model) refresh() {
	o := m.config.Orchestrator
	m.snapshot = o.Session().State()
	m.layout = o.Layout()
	if m.awaitingOutcome && !m.snapshot.IsTranslating && m.snapshot.Outcome != session.OutcomeNone {
		m.awaitingOutcome = false
		m.reportOutcome()
	}
	m.syncViewports()
}

func (m *model) reportOutcome() {
	switch m.snapshot.Outcome {
	case session.OutcomeCompleted:
		m.info = "Translation complete."
	case session.OutcomeInterrupted:
		m.errMessage = "Translation ended before completion"
		if m.snapshot.Err != nil {
			m.errMessage += ": " + m.snapshot.Err.Error()
		}
	}
}

func (m *model) scroll(fn func(*viewport.Model)) {
	if vp, ok := m.lanes[m.focused]; ok {
		fn(vp)
	}
}

func (m *model) busy() bool {
	for _, n := range m.running {
		if n > 0 {
			return true
		}
	}
	return m.snapshot.IsTranslating
}

func (m *model) bodyHeight() int {
	chrome := workspaceChrome
	if m.help.ShowAll {
		chrome += 4
	}
	return max(m.height-chrome, minPaneHeight)
}

func (m *model) displayTitle() string {
	if m.title == "" {
		return "document"
	}
	return fmt.Sprintf("%q", m.title)
}
