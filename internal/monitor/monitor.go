// Package monitor watches directories for file changes and reports them as
// Events. Directories are watched non-recursively.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

var (
	// ErrAlreadyWatched is returned by AddPath for a path already watched.
	ErrAlreadyWatched = errors.New("path is already being monitored")

	// ErrNotWatched is returned by RemovePath for a path not being watched.
	ErrNotWatched = errors.New("path is not being monitored")
)

// Op is the kind of change observed.
type Op string

const (
	OpCreated Op = "created"
	OpChanged Op = "changed"
	OpDeleted Op = "deleted"
	OpRenamed Op = "renamed"
)

// Event is one observed change.
type Event struct {
	ID   uuid.UUID
	Path string
	Op   Op
	Time time.Time
}

// Handler receives events in the order they were observed.
type Handler func(context.Context, Event) error

// Monitor owns one fsnotify watcher and the set of directories it watches.
type Monitor struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	paths   map[string]struct{}
	logger  *log.Logger
}

// New creates a Monitor watching nothing.
func New(logger *log.Logger) (*Monitor, error) {
	if logger == nil {
		logger = log.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Monitor{
		watcher: w,
		paths:   make(map[string]struct{}),
		logger:  logger,
	}, nil
}

// AddPath starts watching the directory at path.
func (m *Monitor) AddPath(path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.paths[path]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyWatched, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	if err := m.watcher.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	m.paths[path] = struct{}{}
	m.logger.Info("watching", "path", path)
	return nil
}

// RemovePath stops watching the directory at path.
func (m *Monitor) RemovePath(path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(path)
}

func (m *Monitor) removeLocked(path string) error {
	if _, ok := m.paths[path]; !ok {
		return fmt.Errorf("%w: %s", ErrNotWatched, path)
	}
	delete(m.paths, path)

	// The watch is already gone when the directory itself was deleted.
	if err := m.watcher.Remove(path); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
		return fmt.Errorf("unwatch %s: %w", path, err)
	}
	m.logger.Info("stopped watching", "path", path)
	return nil
}

// Paths returns the watched directories, sorted.
func (m *Monitor) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	paths := make([]string, 0, len(m.paths))
	for p := range m.paths {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Close stops watching every path and releases the watcher. A running Run
// returns once the watcher is closed.
func (m *Monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for p := range m.paths {
		errs = append(errs, m.removeLocked(p))
	}
	errs = append(errs, m.watcher.Close())
	return errors.Join(errs...)
}

// Run delivers events to handle until ctx is done or the monitor is closed.
// Handler and watcher errors are logged and do not stop the loop.
func (m *Monitor) Run(ctx context.Context, handle Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			op, ok := translate(ev.Op)
			if !ok {
				continue
			}
			event := Event{ID: uuid.New(), Path: ev.Name, Op: op, Time: time.Now().UTC()}
			m.logger.Debug("change", "path", event.Path, "op", event.Op)
			if err := handle(ctx, event); err != nil {
				m.logger.Error("handle change", "path", event.Path, "op", event.Op, "err", err)
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Error("watcher", "err", err)
		}
	}
}

// translate maps an fsnotify op onto an Op. Attribute-only changes are
// dropped.
func translate(op fsnotify.Op) (Op, bool) {
	switch {
	case op.Has(fsnotify.Remove):
		return OpDeleted, true
	case op.Has(fsnotify.Rename):
		return OpRenamed, true
	case op.Has(fsnotify.Create):
		return OpCreated, true
	case op.Has(fsnotify.Write):
		return OpChanged, true
	default:
		return "", false
	}
}
