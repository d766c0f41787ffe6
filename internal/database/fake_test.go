package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
)

// fakeResult is what fakeConn answers to one statement.
type fakeResult struct {
	fields []Field
	rows   [][]driver.Value
	err    error
	// nextErr is returned by Next after the rows are exhausted, instead of io.EOF.
	nextErr error
}

type fakeConn struct {
	results  map[Statement]fakeResult
	executed []Statement
	pending  *fakeResult
	discards int
	closed   int
	closeErr error
	cursors  []*fakeCursor
	dialect  Dialect
}

func newFakeConn() *fakeConn {
	return &fakeConn{results: make(map[Statement]fakeResult), dialect: MySQLDialect{}}
}

func (c *fakeConn) Query(_ context.Context, stmt Statement) error {
	c.executed = append(c.executed, stmt)
	r, ok := c.results[stmt]
	if !ok {
		return &QueryError{Code: 1064, SQLState: "42000", Message: "no result scripted"}
	}
	if r.err != nil {
		return r.err
	}
	c.pending = &r
	return nil
}

func (c *fakeConn) FieldCount() int {
	if c.pending == nil {
		return 0
	}
	return len(c.pending.fields)
}

func (c *fakeConn) Cursor() (Cursor, error) {
	if c.pending == nil {
		return nil, errors.New("no pending result")
	}
	cur := &fakeCursor{result: *c.pending, buf: make([]byte, 0, 64)}
	c.pending = nil
	c.cursors = append(c.cursors, cur)
	return cur, nil
}

func (c *fakeConn) Discard() error {
	c.discards++
	c.pending = nil
	return nil
}

func (c *fakeConn) Dialect() Dialect { return c.dialect }

func (c *fakeConn) Close() error {
	c.closed++
	return c.closeErr
}

// fakeCursor reuses one byte buffer for every []byte cell, the way native
// row buffers behave.
type fakeCursor struct {
	result fakeResult
	next   int
	buf    []byte
	closed int
}

func (c *fakeCursor) Columns() []Field { return c.result.fields }

func (c *fakeCursor) Next(dest []driver.Value) error {
	if c.next >= len(c.result.rows) {
		if c.result.nextErr != nil {
			return c.result.nextErr
		}
		return io.EOF
	}
	row := c.result.rows[c.next]
	c.next++

	c.buf = c.buf[:0]
	for i, v := range row {
		b, ok := v.([]byte)
		if !ok {
			dest[i] = v
			continue
		}
		start := len(c.buf)
		c.buf = append(c.buf, b...)
		dest[i] = c.buf[start:len(c.buf):len(c.buf)]
	}
	return nil
}

func (c *fakeCursor) Close() error {
	c.closed++
	c.result.rows = nil
	full := c.buf[:cap(c.buf)]
	for i := range full {
		full[i] = 'X'
	}
	return nil
}

type fakeConnector struct {
	conn *fakeConn
	err  error
	eps  []Endpoint
}

func (f *fakeConnector) Connect(_ context.Context, ep Endpoint) (Conn, error) {
	f.eps = append(f.eps, ep)
	if f.err != nil {
		return nil, f.err
	}
	return f.conn, nil
}

var fakeSeq atomic.Int64

// registerFake registers a fresh connector under a unique name.
func registerFake(t *testing.T, fc *fakeConnector) string {
	t.Helper()
	name := fmt.Sprintf("fake-%s-%d", t.Name(), fakeSeq.Add(1))
	if err := Register(name, fc); err != nil {
		t.Fatalf("register: %v", err)
	}
	return name
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}
