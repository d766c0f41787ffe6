package monitor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

func newMonitor(t *testing.T) *Monitor {
	t.Helper()
	m, err := New(log.NewWithOptions(io.Discard, log.Options{}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return m
}

func TestMonitor_AddRemove(t *testing.T) {
	t.Parallel()

	m := newMonitor(t)
	defer m.Close()

	dir := t.TempDir()
	if err := m.AddPath(dir); err != nil {
		t.Fatalf("AddPath returned error: %v", err)
	}
	if err := m.AddPath(dir + string(filepath.Separator)); !errors.Is(err, ErrAlreadyWatched) {
		t.Fatalf("expected ErrAlreadyWatched, got %v", err)
	}
	if got := m.Paths(); len(got) != 1 || got[0] != dir {
		t.Fatalf("unexpected paths %q", got)
	}

	if err := m.RemovePath(dir); err != nil {
		t.Fatalf("RemovePath returned error: %v", err)
	}
	if err := m.RemovePath(dir); !errors.Is(err, ErrNotWatched) {
		t.Fatalf("expected ErrNotWatched, got %v", err)
	}
	if len(m.Paths()) != 0 {
		t.Fatalf("expected no paths after removal")
	}
}

func TestMonitor_AddPathRejectsFilesAndMissing(t *testing.T) {
	t.Parallel()

	m := newMonitor(t)
	defer m.Close()

	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := m.AddPath(file); err == nil {
		t.Fatalf("expected an error for a regular file")
	}
	if err := m.AddPath(filepath.Join(dir, "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestMonitor_RunDeliversEvents(t *testing.T) {
	t.Parallel()

	m := newMonitor(t)
	dir := t.TempDir()
	if err := m.AddPath(dir); err != nil {
		t.Fatalf("AddPath returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	events := make(chan Event, 16)
	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx, func(_ context.Context, ev Event) error {
			events <- ev
			return nil
		})
	}()

	target := filepath.Join(dir, "new.txt")
	if err := os.WriteFile(target, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Path != target || ev.Op != OpCreated {
			t.Fatalf("unexpected first event %+v", ev)
		}
		if ev.Time.IsZero() || ev.ID.String() == "" {
			t.Fatalf("expected id and time to be set: %+v", ev)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for an event")
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error after Close: %v", err)
		}
	case <-ctx.Done():
		t.Fatalf("Run did not return after Close")
	}
}

func TestMonitor_RunStopsOnContext(t *testing.T) {
	t.Parallel()

	m := newMonitor(t)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Run(ctx, func(context.Context, Event) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   fsnotify.Op
		want Op
		ok   bool
	}{
		{fsnotify.Create, OpCreated, true},
		{fsnotify.Write, OpChanged, true},
		{fsnotify.Remove, OpDeleted, true},
		{fsnotify.Rename, OpRenamed, true},
		{fsnotify.Create | fsnotify.Write, OpCreated, true},
		{fsnotify.Chmod, "", false},
	}
	for _, tt := range tests {
		got, ok := translate(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("translate(%v): want %q %v got %q %v", tt.in, tt.want, tt.ok, got, ok)
		}
	}
}

func TestMonitor_AddPathLogsOnce(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	m, err := New(log.NewWithOptions(&buf, log.Options{Formatter: log.LogfmtFormatter}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer m.Close()

	dir := t.TempDir()
	if err := m.AddPath(dir); err != nil {
		t.Fatalf("AddPath returned error: %v", err)
	}
	if n := strings.Count(buf.String(), "msg=watching"); n != 1 {
		t.Fatalf("expected one watching line, got %d:\n%s", n, buf.String())
	}
	if !strings.Contains(buf.String(), dir) {
		t.Fatalf("watching line does not name %s:\n%s", dir, buf.String())
	}
}
