package editor

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/querystor/internal/database"
	"github.com/joacominatel/querystor/internal/tui/theme"
)

// ExecuteQueryMsg is sent when the user runs the template.
type ExecuteQueryMsg struct {
	Template string
	Values   []string
}

// InvalidValuesMsg is sent when the values line cannot be parsed.
type InvalidValuesMsg struct {
	Err error
}

// SQL keywords uppercased by formatting.
var sqlKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "and": true, "or": true,
	"insert": true, "into": true, "update": true, "delete": true,
	"create": true, "drop": true, "alter": true, "table": true,
	"index": true, "join": true, "inner": true, "outer": true,
	"left": true, "right": true, "cross": true, "on": true,
	"not": true, "in": true, "is": true, "null": true, "like": true,
	"order": true, "by": true, "group": true, "having": true,
	"limit": true, "offset": true, "as": true, "distinct": true,
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"between": true, "exists": true, "case": true, "when": true,
	"then": true, "else": true, "end": true, "values": true,
	"set": true, "union": true, "all": true, "asc": true, "desc": true,
	"if": true, "primary": true, "key": true, "default": true,
	"true": true, "false": true,
}

type field int

const (
	fieldTemplate field = iota
	fieldValues
)

// Model edits a query template and the values bound to its tokens.
type Model struct {
	template textarea.Model
	values   textinput.Model
	active   field
	width    int
	height   int
	focused  bool
}

// New creates a new editor model.
func New() Model {
	ta := textarea.New()
	ta.Placeholder = "SELECT * FROM ?n WHERE id = ?i"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.Prompt = "│ "
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle()
	ta.BlurredStyle.Base = lipgloss.NewStyle()
	ta.FocusedStyle.Placeholder = theme.StyleMuted
	ta.BlurredStyle.Placeholder = theme.StyleMuted
	ta.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(theme.ColorPrimary)
	ta.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(theme.ColorBorder)

	ti := textinput.New()
	ti.Prompt = "values › "
	ti.Placeholder = `users, 42   (comma separated, "quote, if needed")`
	ti.PromptStyle = theme.StyleMuted
	ti.PlaceholderStyle = theme.StyleMuted

	return Model{template: ta, values: ti}
}

// SetSize updates the component dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.template.SetWidth(w - 2)
	// title, values line and token summary
	m.template.SetHeight(max(h-5, 1))
	m.values.Width = max(w-len(m.values.Prompt)-4, 10)
}

// SetFocused sets the focus state.
func (m *Model) SetFocused(f bool) {
	m.focused = f
	m.applyFocus()
}

func (m *Model) applyFocus() {
	m.template.Blur()
	m.values.Blur()
	if !m.focused {
		return
	}
	if m.active == fieldTemplate {
		m.template.Focus()
	} else {
		m.values.Focus()
	}
}

// Focused returns whether the editor has focus.
func (m Model) Focused() bool {
	return m.focused
}

// Template returns the current template text.
func (m Model) Template() string {
	return m.template.Value()
}

// SetTemplate replaces the template and its values.
func (m *Model) SetTemplate(template string, values []string) {
	m.template.SetValue(template)
	m.values.SetValue(FormatValues(values))
}

// Clear empties the template and values.
func (m *Model) Clear() {
	m.template.Reset()
	m.values.Reset()
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages for the editor.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+e", "f5":
			return m, m.execute()

		case "ctrl+k":
			m.Clear()
			return m, nil

		case "ctrl+l":
			m.template.SetValue(FormatKeywords(m.template.Value()))
			return m, nil

		case "ctrl+o":
			if m.active == fieldTemplate {
				m.active = fieldValues
			} else {
				m.active = fieldTemplate
			}
			m.applyFocus()
			return m, nil

		case "enter":
			if m.active == fieldValues {
				return m, m.execute()
			}
		}
	}

	var cmd tea.Cmd
	if m.active == fieldTemplate {
		m.template, cmd = m.template.Update(msg)
	} else {
		m.values, cmd = m.values.Update(msg)
	}
	return m, cmd
}

func (m Model) execute() tea.Cmd {
	template := strings.TrimSpace(m.template.Value())
	if template == "" {
		return nil
	}
	values, err := ParseValues(m.values.Value())
	if err != nil {
		return func() tea.Msg { return InvalidValuesMsg{Err: err} }
	}
	return func() tea.Msg {
		return ExecuteQueryMsg{Template: template, Values: values}
	}
}

// ParseValues splits a values line as one CSV record. Surrounding spaces are
// trimmed from unquoted values; a blank line is no values.
func ParseValues(line string) ([]string, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}

	r := csv.NewReader(strings.NewReader(line))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	record, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("values: %w", err)
	}
	if _, err := r.Read(); !errors.Is(err, io.EOF) {
		return nil, errors.New("values: expected a single line")
	}
	for i, v := range record {
		record[i] = strings.TrimRightFunc(v, unicode.IsSpace)
	}
	return record, nil
}

// FormatValues is the inverse of ParseValues.
func FormatValues(values []string) string {
	if len(values) == 0 {
		return ""
	}
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(values)
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// FormatKeywords uppercases SQL keywords outside string literals and leaves
// placeholder tokens alone.
func FormatKeywords(s string) string {
	var result, word strings.Builder
	inString := false
	quote := rune(0)
	prev := rune(0)

	flush := func() {
		if word.Len() == 0 {
			return
		}
		w := word.String()
		if sqlKeywords[strings.ToLower(w)] {
			result.WriteString(strings.ToUpper(w))
		} else {
			result.WriteString(w)
		}
		word.Reset()
	}

	for _, ch := range s {
		switch {
		case inString:
			result.WriteRune(ch)
			if ch == quote {
				inString = false
			}
		case ch == '\'' || ch == '"' || ch == '`':
			flush()
			inString = true
			quote = ch
			result.WriteRune(ch)
		case prev == '?' && word.Len() == 0 && (ch == 'i' || ch == 'n' || ch == 's'):
			result.WriteRune(ch)
		case unicode.IsLetter(ch) || ch == '_':
			word.WriteRune(ch)
		default:
			flush()
			result.WriteRune(ch)
		}
		prev = ch
	}
	flush()
	return result.String()
}

// View renders the editor.
func (m Model) View() string {
	title := theme.StyleTitle.Render("Template")

	values, err := ParseValues(m.values.Value())
	tokens := database.CountTokens(m.template.Value())
	var summary string
	switch {
	case err != nil:
		summary = theme.StyleError.Render(err.Error())
	case tokens != len(values):
		summary = theme.StyleError.Render(fmt.Sprintf("%d token(s), %d value(s)", tokens, len(values)))
	default:
		summary = theme.StyleMuted.Render(fmt.Sprintf("%d token(s), %d value(s)", tokens, len(values)))
	}

	return title + "\n" +
		m.template.View() + "\n" +
		"  " + m.values.View() + "\n" +
		"  " + summary + theme.StyleMuted.Render("  Ctrl+O: switch field")
}
