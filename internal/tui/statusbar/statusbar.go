package statusbar

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/querystor/internal/tui/theme"
)

const defaultHints = "Ctrl+E: Run │ Ctrl+R: Recent │ Tab: Pane │ ?: Help │ q: Quit"

// Model is the one-line status bar.
type Model struct {
	width      int
	target     string
	activePane string
	message    string
	isError    bool
}

// New creates a status bar for the given backend description.
func New(target string) Model {
	return Model{target: target, activePane: "editor"}
}

// SetWidth updates the component width.
func (m *Model) SetWidth(w int) {
	m.width = w
}

// SetActivePane updates the displayed active pane name.
func (m *Model) SetActivePane(pane string) {
	m.activePane = pane
}

// SetMessage shows msg in place of the key hints until cleared with "".
func (m *Model) SetMessage(msg string) {
	m.message = msg
	m.isError = false
}

// SetError shows msg styled as an error.
func (m *Model) SetError(msg string) {
	m.message = msg
	m.isError = true
}

// Message returns the current message.
func (m Model) Message() string {
	return m.message
}

// View renders the status bar.
func (m Model) View() string {
	style := theme.StyleStatusBar.Width(m.width)

	left := lipgloss.NewStyle().Foreground(theme.ColorSuccess).Render("●") +
		" " + m.target + theme.StyleMuted.Render(" ["+m.activePane+"]")

	right := defaultHints
	switch {
	case m.message != "" && m.isError:
		right = theme.StyleError.Render(m.message)
	case m.message != "":
		right = m.message
	}

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return style.Render(left + strings.Repeat(" ", padding) + right)
}
