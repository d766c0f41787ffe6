package results

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/querystor/internal/database"
	"github.com/joacominatel/querystor/internal/tui/theme"
)

// NullText is how NULL cells are displayed.
const NullText = "NULL"

const maxColumnWidth = 40

// Model is the query results grid.
type Model struct {
	result    *database.ResultSet
	err       error
	elapsed   time.Duration
	width     int
	height    int
	focused   bool
	loading   bool
	colWidths []int

	// cursor position and first visible row
	cursorY int
	cursorX int
	scrollY int

	// directory exports are written to; "" is the working directory
	exportDir string
}

// New creates a new results model.
func New() Model {
	return Model{}
}

// SetSize updates the component dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused sets the focus state.
func (m *Model) SetFocused(f bool) {
	m.focused = f
}

// Focused returns whether the results pane has focus.
func (m Model) Focused() bool {
	return m.focused
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(l bool) {
	m.loading = l
}

// SetExportDir sets where exports are written.
func (m *Model) SetExportDir(dir string) {
	m.exportDir = dir
}

// SetResult sets the result to display.
func (m *Model) SetResult(rs *database.ResultSet, elapsed time.Duration) {
	m.result = rs
	m.elapsed = elapsed
	m.err = nil
	m.cursorY, m.cursorX, m.scrollY = 0, 0, 0
	m.loading = false
	m.calculateColumnWidths()
}

// SetError sets an error to display.
func (m *Model) SetError(err error) {
	m.err = err
	m.result = nil
	m.cursorY, m.cursorX, m.scrollY = 0, 0, 0
	m.loading = false
}

// Result returns the displayed result, or nil.
func (m Model) Result() *database.ResultSet {
	return m.result
}

// Cursor returns the selected row and column.
func (m Model) Cursor() (row, col int) {
	return m.cursorY, m.cursorX
}

func (m *Model) calculateColumnWidths() {
	if m.result == nil || m.result.NumFields() == 0 {
		m.colWidths = nil
		return
	}

	m.colWidths = make([]int, m.result.NumFields())
	for i, name := range m.result.FieldNames() {
		m.colWidths[i] = lipgloss.Width(name)
	}
	for r := 0; r < m.result.NumRows(); r++ {
		for i, cell := range m.result.Row(r).Strings(NullText) {
			if w := lipgloss.Width(cell); w > m.colWidths[i] {
				m.colWidths[i] = w
			}
		}
	}
	for i := range m.colWidths {
		m.colWidths[i] = min(max(m.colWidths[i], 1), maxColumnWidth)
	}
}

func (m Model) visibleRows() int {
	return max(m.height-4, 1)
}

// Update handles messages for the results pane.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok || m.result == nil {
		return m, nil
	}

	rows, cols := m.result.NumRows(), m.result.NumFields()
	switch key.String() {
	case "up", "k":
		m.cursorY--
	case "down", "j":
		m.cursorY++
	case "left", "h":
		m.cursorX--
	case "right", "l":
		m.cursorX++
	case "pgup":
		m.cursorY -= m.visibleRows()
	case "pgdown":
		m.cursorY += m.visibleRows()
	case "home", "g":
		m.cursorY = 0
	case "end", "G":
		m.cursorY = rows - 1
	case "c":
		return m, m.copyCellCmd()
	case "y":
		return m, m.copyRowJSONCmd()
	case "Y":
		return m, m.copyRowCSVCmd()
	case "f":
		return m, m.filterByValueCmd()
	case "D":
		return m, m.generateDeleteCmd()
	case "e":
		return m, m.exportCSVCmd()
	case "E":
		return m, m.exportJSONCmd()
	}

	m.cursorY = min(max(m.cursorY, 0), max(rows-1, 0))
	m.cursorX = min(max(m.cursorX, 0), max(cols-1, 0))
	if m.cursorY < m.scrollY {
		m.scrollY = m.cursorY
	}
	if m.cursorY >= m.scrollY+m.visibleRows() {
		m.scrollY = m.cursorY - m.visibleRows() + 1
	}
	return m, nil
}

// View renders the results pane.
func (m Model) View() string {
	title := theme.StyleTitle.Render("Results")

	switch {
	case m.loading:
		return title + "\n" + theme.StyleMuted.Render("  Executing...")
	case m.err != nil:
		return title + "\n" + theme.StyleError.Render("  Error: "+m.err.Error())
	case m.result == nil:
		return title + "\n" + theme.StyleMuted.Render("  Run a template to see results")
	}

	stats := fmt.Sprintf("%d row(s) │ %s", m.result.NumRows(), m.elapsed.Round(time.Millisecond))
	header := title + "  " + theme.StyleMuted.Render(stats)

	if m.result.NumFields() == 0 {
		return header + "\n" + theme.StyleSuccess.Render("  Statement executed, no result set")
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderSeparator())

	end := min(m.scrollY+m.visibleRows(), m.result.NumRows())
	for i := m.scrollY; i < end; i++ {
		b.WriteString("\n")
		b.WriteString(m.renderRow(i))
	}
	return b.String()
}

func (m Model) renderHeader() string {
	names := m.result.FieldNames()
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = theme.StyleHeader.Render(fit(name, m.colWidths[i]))
	}
	return "  " + strings.Join(parts, " │ ")
}

func (m Model) renderRow(i int) string {
	row := m.result.Row(i)
	parts := make([]string, len(row))
	for j, v := range row {
		var cell string
		if v.Valid {
			cell = fit(v.String, m.colWidths[j])
		} else {
			cell = theme.StyleNull.Render(fit(NullText, m.colWidths[j]))
		}
		if m.focused && i == m.cursorY && j == m.cursorX {
			cell = theme.StyleCursorCell.Render(cell)
		}
		parts[j] = cell
	}

	line := strings.Join(parts, " │ ")
	if i == m.cursorY {
		return theme.StyleHighlight.Render("›") + " " + line
	}
	return "  " + line
}

func (m Model) renderSeparator() string {
	parts := make([]string, len(m.colWidths))
	for i, w := range m.colWidths {
		parts[i] = strings.Repeat("─", w)
	}
	return "  " + lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(strings.Join(parts, "─┼─"))
}

// fit truncates s with an ellipsis or pads it to exactly width cells.
// Control characters are shown as spaces so a cell stays on one line.
func fit(s string, width int) string {
	s = strings.Map(func(r rune) rune {
		if r < ' ' || r == 0x7f {
			return ' '
		}
		return r
	}, s)

	if lipgloss.Width(s) > width {
		runes := []rune(s)
		for len(runes) > 0 && lipgloss.Width(string(runes)) >= width {
			runes = runes[:len(runes)-1]
		}
		s = string(runes) + "…"
	}
	if pad := width - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}
