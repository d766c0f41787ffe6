package database

import (
	"context"
	"database/sql/driver"
	"net"
	"strconv"
	"time"
)

// DefaultDatabase is the operating database every session targets unless the
// endpoint names another one.
const DefaultDatabase = "querystordb"

// DefaultTimeout bounds the dial and handshake when the endpoint sets none.
const DefaultTimeout = 10 * time.Second

// Endpoint carries the parameters needed to open one native session.
type Endpoint struct {
	Host     string
	Port     uint16
	Username string
	Password string
	Database string
	Timeout  time.Duration
}

// Address returns host:port.
func (ep Endpoint) Address() string {
	return net.JoinHostPort(ep.Host, strconv.Itoa(int(ep.Port)))
}

func (ep Endpoint) withDefaults() Endpoint {
	if ep.Database == "" {
		ep.Database = DefaultDatabase
	}
	if ep.Timeout <= 0 {
		ep.Timeout = DefaultTimeout
	}
	return ep
}

// Connector opens native sessions for one backend. Connect must either return
// a usable Conn that has already selected ep.Database (creating it when
// absent) or release everything it acquired and return an error, preferably
// a *ConnectionError.
type Connector interface {
	Connect(ctx context.Context, ep Endpoint) (Conn, error)
}

// Conn is one native backend session. Implementations are not safe for
// concurrent use; Session serializes nothing on their behalf.
type Conn interface {
	// Query submits stmt and leaves its result pending on the connection.
	// A rejected statement is reported as a *QueryError.
	Query(ctx context.Context, stmt Statement) error

	// FieldCount returns the column count of the pending result, or 0 when
	// the last statement produced no column metadata.
	FieldCount() int

	// Cursor hands the pending result to the caller, who must close it.
	Cursor() (Cursor, error)

	// Discard drops any pending result.
	Discard() error

	// Dialect returns the quoting rules negotiated for this session.
	Dialect() Dialect

	// Close releases the native session.
	Close() error
}

// Cursor walks the rows of one stored or streamed result.
type Cursor interface {
	// Columns returns the column metadata in backend order.
	Columns() []Field

	// Next fills dest with the next row and returns io.EOF once the rows are
	// exhausted. A nil entry is SQL NULL. Slices placed in dest may point
	// into backend buffers and are only valid until the next call.
	Next(dest []driver.Value) error

	// Close releases the result.
	Close() error
}
