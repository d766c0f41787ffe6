package tui

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joacominatel/querystor/internal/database"
	"github.com/joacominatel/querystor/internal/tui/editor"
	"github.com/joacominatel/querystor/internal/tui/results"
)

type fakeQuerier struct {
	template string
	values   []string
	limit    int
	result   *database.ResultSet
	err      error
}

func (f *fakeQuerier) Query(_ context.Context, template string, values ...string) (*database.ResultSet, error) {
	f.template = template
	f.values = values
	return f.result, f.err
}

func (f *fakeQuerier) RecentChanges(_ context.Context, limit int) (*database.ResultSet, error) {
	f.limit = limit
	return f.result, f.err
}

func (f *fakeQuerier) Target() string { return "mariadb://root@localhost:3306/querystordb" }

func oneRow(t *testing.T) *database.ResultSet {
	t.Helper()
	rs, err := database.NewResultSet(
		[]database.Field{{Table: "fs_events", Name: "path"}},
		[]database.Row{{sql.NullString{String: "/tmp/a.txt", Valid: true}}},
	)
	if err != nil {
		t.Fatalf("NewResultSet: %v", err)
	}
	return rs
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func TestExecuteQuery_ShowsResult(t *testing.T) {
	t.Parallel()

	q := &fakeQuerier{result: oneRow(t)}
	m := sized(NewModel(q))

	next, cmd := m.Update(editor.ExecuteQueryMsg{Template: "SELECT ?n FROM ?n", Values: []string{"path", "fs_events"}})
	m = next.(Model)
	if !m.running || cmd == nil {
		t.Fatal("expected a running query")
	}

	next, _ = m.Update(cmd())
	m = next.(Model)
	if m.running {
		t.Error("query still marked running")
	}
	if q.template != "SELECT ?n FROM ?n" || strings.Join(q.values, ",") != "path,fs_events" {
		t.Errorf("querier got %q %q", q.template, q.values)
	}
	if m.results.Result() == nil || m.results.Result().NumRows() != 1 {
		t.Fatal("result not shown")
	}
	if view := m.View(); !strings.Contains(view, "/tmp/a.txt") {
		t.Errorf("view missing row:\n%s", view)
	}
}

func TestExecuteQuery_Error(t *testing.T) {
	t.Parallel()

	q := &fakeQuerier{err: errors.New("table missing")}
	m := sized(NewModel(q))

	next, cmd := m.Update(editor.ExecuteQueryMsg{Template: "SELECT 1"})
	next, _ = next.(Model).Update(cmd())
	m = next.(Model)
	if m.results.Result() != nil {
		t.Error("error left a result behind")
	}
	if !strings.Contains(m.View(), "table missing") {
		t.Error("view missing error")
	}
}

func TestRun_RejectsConcurrentQuery(t *testing.T) {
	t.Parallel()

	m := sized(NewModel(&fakeQuerier{result: database.Empty()}))
	next, _ := m.Update(editor.ExecuteQueryMsg{Template: "SELECT 1"})
	next, cmd := next.(Model).Update(editor.ExecuteQueryMsg{Template: "SELECT 2"})
	if cmd != nil {
		t.Fatal("second query should not start")
	}
	if msg := next.(Model).statusbar.Message(); !strings.Contains(msg, "already running") {
		t.Errorf("status = %q", msg)
	}
}

func TestRecentChanges(t *testing.T) {
	t.Parallel()

	q := &fakeQuerier{result: oneRow(t)}
	m := sized(NewModel(q))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	next, _ = next.(Model).Update(cmd())
	m = next.(Model)
	if q.limit <= 0 {
		t.Errorf("limit = %d", q.limit)
	}
	if m.results.Result() == nil {
		t.Error("recent changes not shown")
	}
}

func TestSetTemplate_FocusesEditor(t *testing.T) {
	t.Parallel()

	m := sized(NewModel(&fakeQuerier{}))
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	if m.activePane != PaneResults {
		t.Fatalf("pane = %s, want results", m.activePane)
	}

	next, _ = m.Update(results.SetTemplateMsg{Template: "SELECT * FROM ?n", Values: []string{"t"}})
	m = next.(Model)
	if m.activePane != PaneEditor {
		t.Errorf("pane = %s, want editor", m.activePane)
	}
	if m.editor.Template() != "SELECT * FROM ?n" {
		t.Errorf("editor template = %q", m.editor.Template())
	}
}

func TestHelp_ToggledFromResults(t *testing.T) {
	t.Parallel()

	m := sized(NewModel(&fakeQuerier{}))
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	next, _ = next.(Model).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	m = next.(Model)
	if !m.showHelp || !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatal("help not shown")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if next.(Model).showHelp {
		t.Error("any key should close help")
	}
}

func TestStatusNotify(t *testing.T) {
	t.Parallel()

	m := NewModel(&fakeQuerier{})
	next, _ := m.Update(results.StatusNotifyMsg{Message: "Copy failed", IsError: true})
	if got := next.(Model).statusbar.Message(); got != "Copy failed" {
		t.Errorf("status = %q", got)
	}
}
