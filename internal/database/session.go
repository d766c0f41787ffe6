package database

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Session is one open backend session. It is owned by whoever opened it and
// must not be used from more than one goroutine at a time. Once closed it
// cannot be reused.
type Session struct {
	id        uuid.UUID
	connector string
	addr      string
	conn      Conn
	closed    bool
	pending   bool
	logger    *log.Logger
}

type openOptions struct {
	logger *log.Logger
}

// OpenOption configures Open.
type OpenOption func(*openOptions)

// WithLogger sets the logger a session reports to.
func WithLogger(l *log.Logger) OpenOption {
	return func(o *openOptions) {
		o.logger = l
	}
}

// Open selects the connector registered under name and opens a session on
// ep. Failures to reach, authenticate against, or select the operating
// database of the backend are reported as *ConnectionError.
func Open(ctx context.Context, name string, ep Endpoint, opts ...OpenOption) (*Session, error) {
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}

	c, err := Lookup(name)
	if err != nil {
		return nil, err
	}

	ep = ep.withDefaults()
	id := uuid.New()
	logger := o.logger.With("session", id.String(), "connector", name)

	conn, err := c.Connect(ctx, ep)
	if err != nil {
		var connErr *ConnectionError
		if !errors.As(err, &connErr) {
			err = &ConnectionError{Connector: name, Address: ep.Address(), Message: err.Error(), Err: err}
		}
		logger.Warn("open failed", "addr", ep.Address(), "err", err)
		return nil, err
	}

	logger.Debug("session opened", "addr", ep.Address(), "database", ep.Database)
	return &Session{
		id:        id,
		connector: name,
		addr:      ep.Address(),
		conn:      conn,
		logger:    logger,
	}, nil
}

// WithSession opens a session, passes it to fn and closes it on every path.
// A close failure is joined with fn's error.
func WithSession(ctx context.Context, name string, ep Endpoint, fn func(*Session) error, opts ...OpenOption) (err error) {
	s, err := Open(ctx, name, ep, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()
	return fn(s)
}

// ID returns the random identifier used to correlate this session in logs.
func (s *Session) ID() uuid.UUID { return s.id }

// Connector returns the connector name the session was opened with.
func (s *Session) Connector() string { return s.connector }

// Address returns the backend address.
func (s *Session) Address() string { return s.addr }

// Closed reports whether Close has been called.
func (s *Session) Closed() bool { return s.closed }

// Close releases the native session. Calling it again returns
// ErrUseAfterClose.
func (s *Session) Close() error {
	if s.closed {
		return ErrUseAfterClose
	}
	s.closed = true
	s.pending = false

	if err := s.conn.Close(); err != nil {
		s.logger.Warn("close failed", "err", err)
		return err
	}
	s.logger.Debug("session closed")
	return nil
}

// Dialect returns the quoting rules negotiated for this session.
func (s *Session) Dialect() (Dialect, error) {
	if s.closed {
		return nil, ErrUseAfterClose
	}
	return s.conn.Dialect(), nil
}

// Encode resolves template with this session's dialect. It touches no
// native state.
func (s *Session) Encode(template string, values ...string) (Statement, error) {
	d, err := s.Dialect()
	if err != nil {
		return "", err
	}
	return Encoder{Dialect: d}.Encode(template, values...)
}

// Execute submits stmt. Any result left pending by a previous statement is
// dropped first.
func (s *Session) Execute(ctx context.Context, stmt Statement) error {
	if s.closed {
		return ErrUseAfterClose
	}
	if s.pending {
		s.pending = false
		if err := s.conn.Discard(); err != nil {
			return err
		}
	}

	s.logger.Debug("execute", "statement", string(stmt))
	if err := s.conn.Query(ctx, stmt); err != nil {
		var qe *QueryError
		if errors.As(err, &qe) && qe.Statement == "" {
			qe.Statement = stmt
		}
		s.logger.Debug("execute failed", "err", err)
		return err
	}
	s.pending = true
	return nil
}

// Query encodes template, executes it and fetches its results.
func (s *Session) Query(ctx context.Context, template string, values ...string) (*ResultSet, error) {
	stmt, err := s.Encode(template, values...)
	if err != nil {
		return nil, err
	}
	if err := s.Execute(ctx, stmt); err != nil {
		return nil, err
	}
	return s.FetchResults(ctx)
}

// Exec encodes and executes template, discarding any rows it returns.
func (s *Session) Exec(ctx context.Context, template string, values ...string) error {
	stmt, err := s.Encode(template, values...)
	if err != nil {
		return err
	}
	if err := s.Execute(ctx, stmt); err != nil {
		return err
	}
	s.pending = false
	return s.conn.Discard()
}
