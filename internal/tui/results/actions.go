package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joacominatel/querystor/internal/database"
)

func (m Model) hasCell() bool {
	return m.result != nil &&
		m.cursorY >= 0 && m.cursorY < m.result.NumRows() &&
		m.cursorX >= 0 && m.cursorX < m.result.NumFields()
}

func notify(msg string) tea.Cmd {
	return func() tea.Msg { return StatusNotifyMsg{Message: msg} }
}

func notifyError(msg string) tea.Cmd {
	return func() tea.Msg { return StatusNotifyMsg{Message: msg, IsError: true} }
}

// --- Copy ---

func copyCmd(text, done string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return StatusNotifyMsg{Message: "Copy failed: " + err.Error(), IsError: true}
		}
		return StatusNotifyMsg{Message: done}
	}
}

func (m Model) copyCellCmd() tea.Cmd {
	if !m.hasCell() {
		return notify("Nothing to copy")
	}
	v := m.result.Value(m.cursorY, m.cursorX)
	if !v.Valid {
		return copyCmd(NullText, "Copied: NULL")
	}
	return copyCmd(v.String, "Copied: "+truncateStatus(v.String, 40))
}

func (m Model) copyRowJSONCmd() tea.Cmd {
	if !m.hasCell() {
		return notify("No row to copy")
	}
	return copyCmd(rowToJSON(m.result.FieldNames(), m.result.Row(m.cursorY)), "Copied row as JSON")
}

func (m Model) copyRowCSVCmd() tea.Cmd {
	if !m.hasCell() {
		return notify("No row to copy")
	}
	text, err := rowsToCSV(m.result.FieldNames(), []database.Row{m.result.Row(m.cursorY)})
	if err != nil {
		return notifyError("Copy failed: " + err.Error())
	}
	return copyCmd(text, "Copied row as CSV")
}

// --- Filter ---

// filterByValueCmd loads a template selecting the rows of the selected cell's
// table that share its value.
func (m Model) filterByValueCmd() tea.Cmd {
	if !m.hasCell() {
		return notify("Cannot filter: no cell selected")
	}
	field := m.result.Field(m.cursorX)
	if field.Table == "" {
		return notifyError("Cannot filter: " + field.Name + " has no source table")
	}

	v := m.result.Value(m.cursorY, m.cursorX)
	if !v.Valid {
		return func() tea.Msg {
			return SetTemplateMsg{
				Template: "SELECT * FROM ?n WHERE ?n IS NULL",
				Values:   []string{field.Table, field.Name},
			}
		}
	}
	return func() tea.Msg {
		return SetTemplateMsg{
			Template: "SELECT * FROM ?n WHERE ?n = ?s",
			Values:   []string{field.Table, field.Name, v.String},
		}
	}
}

// --- Delete ---

// generateDeleteCmd loads a DELETE template matching the selected row on
// every column owned by the selected cell's table.
func (m Model) generateDeleteCmd() tea.Cmd {
	if !m.hasCell() {
		return nil
	}
	table := m.result.Field(m.cursorX).Table
	if table == "" {
		return notifyError("Cannot delete: column has no source table")
	}

	row := m.result.Row(m.cursorY)
	values := []string{table}
	var conditions []string
	for i, f := range m.result.Fields() {
		if f.Table != table {
			continue
		}
		if row[i].Valid {
			conditions = append(conditions, "?n = ?s")
			values = append(values, f.Name, row[i].String)
		} else {
			conditions = append(conditions, "?n IS NULL")
			values = append(values, f.Name)
		}
	}

	// sent to the editor for review, never auto-executed
	template := "-- review before executing!\nDELETE FROM ?n WHERE " + strings.Join(conditions, " AND ")
	return func() tea.Msg {
		return SetTemplateMsg{Template: template, Values: values}
	}
}

// --- Export ---

func (m Model) exportPath(ext string) string {
	ts := time.Now().Format("20060102_150405")
	return filepath.Join(m.exportDir, fmt.Sprintf("querystor_export_%s.%s", ts, ext))
}

func (m Model) exportJSONCmd() tea.Cmd {
	result := m.result
	if result == nil {
		return nil
	}
	filename := m.exportPath("json")
	return func() tea.Msg {
		names := result.FieldNames()

		var b strings.Builder
		b.WriteString("[\n")
		for i := 0; i < result.NumRows(); i++ {
			if i > 0 {
				b.WriteString(",\n")
			}
			b.WriteString("  ")
			b.WriteString(rowToJSON(names, result.Row(i)))
		}
		b.WriteString("\n]\n")

		if err := os.WriteFile(filename, []byte(b.String()), 0o644); err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error(), IsError: true}
		}
		return StatusNotifyMsg{Message: fmt.Sprintf("Exported %d rows to %s", result.NumRows(), filename)}
	}
}

func (m Model) exportCSVCmd() tea.Cmd {
	result := m.result
	if result == nil {
		return nil
	}
	filename := m.exportPath("csv")
	return func() tea.Msg {
		rows := make([]database.Row, result.NumRows())
		for i := range rows {
			rows[i] = result.Row(i)
		}
		text, err := rowsToCSV(result.FieldNames(), rows)
		if err == nil {
			err = os.WriteFile(filename, []byte(text), 0o644)
		}
		if err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error(), IsError: true}
		}
		return StatusNotifyMsg{Message: fmt.Sprintf("Exported %d rows to %s", result.NumRows(), filename)}
	}
}

// --- Helpers ---

// rowsToCSV writes a header and rows. CSV has no NULL, so NULL cells are
// empty fields.
func rowsToCSV(columns []string, rows []database.Row) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(columns); err != nil {
		return "", err
	}
	for _, row := range rows {
		if err := w.Write(row.Strings("")); err != nil {
			return "", err
		}
	}
	w.Flush()
	return b.String(), w.Error()
}

// rowToJSON preserves column order unlike map marshaling
func rowToJSON(columns []string, row database.Row) string {
	var b strings.Builder
	b.WriteString("{")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		key, _ := json.Marshal(col)
		b.Write(key)
		b.WriteString(": ")
		if i < len(row) && row[i].Valid {
			val, _ := json.Marshal(row[i].String)
			b.Write(val)
		} else {
			b.WriteString("null")
		}
	}
	b.WriteString("}")
	return b.String()
}

func truncateStatus(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
