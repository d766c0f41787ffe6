package app

import (
	"context"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/joacominatel/querystor/internal/config"
	"github.com/joacominatel/querystor/internal/database"
	"github.com/joacominatel/querystor/internal/monitor"
)

// DefaultRecentLimit is how many changes RecentChanges returns for a
// non-positive limit.
const DefaultRecentLimit = 100

const (
	templateCreateEvents = "CREATE TABLE IF NOT EXISTS ?n (" +
		"id CHAR(36) PRIMARY KEY, " +
		"path TEXT NOT NULL, " +
		"op VARCHAR(16) NOT NULL, " +
		"observed_at BIGINT NOT NULL)"

	templateInsertEvent = "INSERT INTO ?n (id, path, op, observed_at) VALUES (?s, ?s, ?s, ?i)"

	templateRecentEvents = "SELECT id, path, op, observed_at FROM ?n ORDER BY observed_at DESC LIMIT ?i"
)

// Service records file changes in, and runs queries against, one database
// session. Sessions are single-threaded, so every call takes the lock.
type Service struct {
	mu      sync.Mutex
	session *database.Session
	table   string
	logger  *log.Logger
}

// NewService wraps an open session. table names the events table.
func NewService(session *database.Session, table string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{session: session, table: table, logger: logger}
}

// Connect validates cfg and opens a session with the configured connector.
func Connect(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Service, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ErrConfig{Cause: err}
	}
	ep, err := cfg.Endpoint()
	if err != nil {
		return nil, &ErrConfig{Cause: err}
	}

	session, err := database.Open(ctx, cfg.Connector, ep, database.WithLogger(logger))
	if err != nil {
		return nil, &ErrConnection{Target: cfg.DisplayString(), Cause: err}
	}
	return NewService(session, cfg.EventsTable, logger), nil
}

// EnsureSchema creates the events table when it does not exist.
func (s *Service) EnsureSchema(ctx context.Context) error {
	return s.exec(ctx, templateCreateEvents, s.table)
}

// RecordChange stores one observed change.
func (s *Service) RecordChange(ctx context.Context, ev monitor.Event) error {
	err := s.exec(ctx, templateInsertEvent,
		s.table,
		ev.ID.String(),
		ev.Path,
		string(ev.Op),
		strconv.FormatInt(ev.Time.UnixMilli(), 10),
	)
	if err != nil {
		return err
	}
	s.logger.Debug("recorded", "path", ev.Path, "op", ev.Op)
	return nil
}

// RecentChanges returns the newest limit changes, newest first.
func (s *Service) RecentChanges(ctx context.Context, limit int) (*database.ResultSet, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.Query(ctx, templateRecentEvents, s.table, strconv.Itoa(limit))
}

// Query encodes template with values and returns its results.
func (s *Service) Query(ctx context.Context, template string, values ...string) (*database.ResultSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, err := s.session.Query(ctx, template, values...)
	if err != nil {
		return nil, &ErrQuery{Template: template, Cause: err}
	}
	return rs, nil
}

func (s *Service) exec(ctx context.Context, template string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.session.Exec(ctx, template, values...); err != nil {
		return &ErrQuery{Template: template, Cause: err}
	}
	return nil
}

// Target describes the backend for display, e.g. "mariadb db:3306".
func (s *Service) Target() string {
	return s.session.Connector() + " " + s.session.Address()
}

// EventsTable returns the name of the events table.
func (s *Service) EventsTable() string {
	return s.table
}

// Close closes the session.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Close()
}
