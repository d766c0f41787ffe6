package tui

import (
	"context"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/querystor/internal/app"
	"github.com/joacominatel/querystor/internal/database"
	"github.com/joacominatel/querystor/internal/tui/editor"
	"github.com/joacominatel/querystor/internal/tui/results"
	"github.com/joacominatel/querystor/internal/tui/statusbar"
	"github.com/joacominatel/querystor/internal/tui/theme"
)

// Querier is the part of app.Service the console uses.
type Querier interface {
	Query(ctx context.Context, template string, values ...string) (*database.ResultSet, error)
	RecentChanges(ctx context.Context, limit int) (*database.ResultSet, error)
	Target() string
}

var _ Querier = (*app.Service)(nil)

// Pane identifies a focusable area.
type Pane int

const (
	PaneEditor Pane = iota
	PaneResults
)

func (p Pane) String() string {
	switch p {
	case PaneEditor:
		return "editor"
	case PaneResults:
		return "results"
	default:
		return "unknown"
	}
}

const queryTimeout = 30 * time.Second

type queryExecutedMsg struct {
	result  *database.ResultSet
	elapsed time.Duration
	err     error
}

// Option configures the console.
type Option func(*Model)

// WithExportDir sets the directory result exports are written to.
func WithExportDir(dir string) Option {
	return func(m *Model) { m.results.SetExportDir(dir) }
}

// Model is the top-level bubbletea model orchestrating all components.
type Model struct {
	querier    Querier
	editor     editor.Model
	results    results.Model
	statusbar  statusbar.Model
	activePane Pane
	width      int
	height     int
	showHelp   bool
	running    bool
}

// NewModel creates the top-level model.
func NewModel(q Querier, opts ...Option) Model {
	m := Model{
		querier:   q,
		editor:    editor.New(),
		results:   results.New(),
		statusbar: statusbar.New(q.Target()),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.setFocus(PaneEditor)
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return m.editor.Init()
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		return m.updateKeys(msg)

	case editor.ExecuteQueryMsg:
		return m.run(m.executeQueryCmd(msg.Template, msg.Values))

	case editor.InvalidValuesMsg:
		m.statusbar.SetError(msg.Err.Error())
		return m, nil

	case queryExecutedMsg:
		m.running = false
		m.statusbar.SetMessage("")
		if msg.err != nil {
			m.results.SetError(msg.err)
			return m, nil
		}
		m.results.SetResult(msg.result, msg.elapsed)
		return m, nil

	case results.SetTemplateMsg:
		m.editor.SetTemplate(msg.Template, msg.Values)
		m.setFocus(PaneEditor)
		m.statusbar.SetMessage("Template loaded, review before running")
		return m, nil

	case results.StatusNotifyMsg:
		if msg.IsError {
			m.statusbar.SetError(msg.Message)
		} else {
			m.statusbar.SetMessage(msg.Message)
		}
		return m, nil
	}

	return m.updateComponents(msg)
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab":
		m.cyclePane()
		return m, nil
	case "ctrl+r":
		return m.run(m.recentChangesCmd())
	case "esc":
		m.statusbar.SetMessage("")
		return m, nil
	}

	// typed characters belong to the editor
	if m.activePane == PaneResults {
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "?":
			m.showHelp = true
			return m, nil
		}
	}

	return m.updateComponents(msg)
}

func (m Model) run(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if m.running {
		m.statusbar.SetError("A query is already running")
		return m, nil
	}
	m.running = true
	m.results.SetLoading(true)
	m.statusbar.SetMessage("Executing...")
	return m, cmd
}

func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.activePane {
	case PaneEditor:
		m.editor, cmd = m.editor.Update(msg)
	case PaneResults:
		m.results, cmd = m.results.Update(msg)
	}

	return m, cmd
}

func (m *Model) cyclePane() {
	if m.activePane == PaneEditor {
		m.setFocus(PaneResults)
	} else {
		m.setFocus(PaneEditor)
	}
}

func (m *Model) setFocus(pane Pane) {
	m.activePane = pane
	m.editor.SetFocused(pane == PaneEditor)
	m.results.SetFocused(pane == PaneResults)
	m.statusbar.SetActivePane(pane.String())
}

func (m Model) paneHeights() (editorHeight, resultsHeight int) {
	// status bar plus two bordered panes
	avail := m.height - 1 - 4
	editorHeight = max(avail*40/100, 5)
	resultsHeight = max(avail-editorHeight, 3)
	return editorHeight, resultsHeight
}

func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	editorHeight, resultsHeight := m.paneHeights()
	m.editor.SetSize(m.width-2, editorHeight)
	m.results.SetSize(m.width-2, resultsHeight)
	m.statusbar.SetWidth(m.width)
}

// Async commands

func (m Model) executeQueryCmd(template string, values []string) tea.Cmd {
	q := m.querier
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		start := time.Now()
		result, err := q.Query(ctx, template, values...)
		return queryExecutedMsg{result: result, elapsed: time.Since(start), err: err}
	}
}

func (m Model) recentChangesCmd() tea.Cmd {
	q := m.querier
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		start := time.Now()
		result, err := q.RecentChanges(ctx, app.DefaultRecentLimit)
		return queryExecutedMsg{result: result, elapsed: time.Since(start), err: err}
	}
}

// View renders the entire application.
func (m Model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}

	editorHeight, resultsHeight := m.paneHeights()

	editorBorder := theme.StyleBorder
	resultsBorder := theme.StyleBorder
	if m.activePane == PaneEditor {
		editorBorder = theme.StyleActiveBorder
	} else {
		resultsBorder = theme.StyleActiveBorder
	}

	editorView := editorBorder.
		Width(m.width - 2).
		Height(editorHeight).
		Render(m.editor.View())

	resultsView := resultsBorder.
		Width(m.width - 2).
		Height(resultsHeight).
		Render(m.results.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		editorView,
		resultsView,
		m.statusbar.View(),
	)
}

func (m Model) viewHelp() string {
	entry := func(key, desc string) string {
		return theme.StyleHelpKey.Render("  "+padRight(key, 16)) + theme.StyleHelpDesc.Render(desc)
	}

	help := lipgloss.JoinVertical(lipgloss.Left,
		theme.StyleTitle.Render("querystor - Keyboard Shortcuts"),
		"",
		theme.StyleHelpSection.Render("Global"),
		entry("Ctrl+C", "Quit application"),
		entry("Tab", "Switch between panes"),
		entry("Ctrl+R", "Show the last "+strconv.Itoa(app.DefaultRecentLimit)+" recorded changes"),
		entry("?  q", "Help and quit (results pane)"),
		"",
		theme.StyleHelpSection.Render("Editor"),
		entry("Ctrl+E / F5", "Run template"),
		entry("Ctrl+O", "Switch between template and values"),
		entry("Enter", "Run template (values field)"),
		entry("Ctrl+K", "Clear editor"),
		entry("Ctrl+L", "Uppercase keywords"),
		entry("?i ?n ?s", "Integer, identifier and string tokens"),
		"",
		theme.StyleHelpSection.Render("Results"),
		entry("↑/k ↓/j ←/h →/l", "Move cursor"),
		entry("PgUp/PgDn g/G", "Page, first and last row"),
		entry("c", "Copy cell"),
		entry("y / Y", "Copy row as JSON / CSV"),
		entry("f", "Filter table by cell value"),
		entry("D", "Generate DELETE for row"),
		entry("e / E", "Export CSV / JSON"),
		"",
		theme.StyleMuted.Render("Press any key to close"),
	)

	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		help,
	)
}

func padRight(s string, n int) string {
	if w := lipgloss.Width(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s + " "
}
