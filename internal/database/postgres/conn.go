package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/joacominatel/querystor/internal/database"
)

const closeTimeout = 5 * time.Second

// result is a fully buffered statement result.
type result struct {
	columns []database.Field
	rows    [][][]byte
}

type conn struct {
	pc      *pgconn.PgConn
	dialect Dialect
	// tables caches relation names by OID for the life of the session.
	tables  map[uint32]string
	pending *result
}

var _ database.Conn = (*conn)(nil)

func newConn(pc *pgconn.PgConn) *conn {
	return &conn{
		pc:      pc,
		dialect: Dialect{StandardConformingStrings: pc.ParameterStatus("standard_conforming_strings") == "on"},
		tables:  make(map[uint32]string),
	}
}

// Query runs stmt through the extended protocol, which rejects more than one
// statement, and buffers every row before returning.
func (c *conn) Query(ctx context.Context, stmt database.Statement) error {
	c.pending = nil

	rr := c.pc.ExecParams(ctx, string(stmt), nil, nil, nil, nil)
	fds := slices.Clone(rr.FieldDescriptions())

	var rows [][][]byte
	for rr.NextRow() {
		rows = append(rows, copyRow(rr.Values()))
	}
	if _, err := rr.Close(); err != nil {
		return queryError(stmt, err)
	}
	if len(fds) == 0 {
		return nil
	}

	if err := c.resolveTables(ctx, fds); err != nil {
		return queryError(stmt, fmt.Errorf("resolve table names: %w", err))
	}
	c.pending = &result{columns: fieldsFor(fds, c.tables), rows: rows}
	return nil
}

func (c *conn) FieldCount() int {
	if c.pending == nil {
		return 0
	}
	return len(c.pending.columns)
}

func (c *conn) Cursor() (database.Cursor, error) {
	if c.pending == nil {
		return nil, errors.New("postgres: no pending result")
	}
	cur := &cursor{result: c.pending}
	c.pending = nil
	return cur, nil
}

func (c *conn) Discard() error {
	c.pending = nil
	return nil
}

func (c *conn) Dialect() database.Dialect { return c.dialect }

func (c *conn) Close() error {
	c.pending = nil
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return c.pc.Close(ctx)
}

// resolveTables looks up the relation name of every TableOID not yet cached.
// OIDs the catalog does not know are cached as "". Nothing is cached when
// the lookup fails.
func (c *conn) resolveTables(ctx context.Context, fds []pgconn.FieldDescription) error {
	found := make(map[uint32]string)
	var missing []string
	for _, fd := range fds {
		if fd.TableOID == 0 {
			continue
		}
		if _, ok := c.tables[fd.TableOID]; ok {
			continue
		}
		if _, ok := found[fd.TableOID]; ok {
			continue
		}
		found[fd.TableOID] = ""
		missing = append(missing, strconv.FormatUint(uint64(fd.TableOID), 10))
	}
	if len(missing) == 0 {
		return nil
	}

	arg := []byte("{" + strings.Join(missing, ",") + "}")
	rr := c.pc.ExecParams(ctx, queryTableNames, [][]byte{arg}, nil, nil, nil)
	if err := readTableNames(rr, found); err != nil {
		return err
	}
	maps.Copy(c.tables, found)
	return nil
}

// tableNameReader is the part of *pgconn.ResultReader readTableNames uses.
type tableNameReader interface {
	NextRow() bool
	Values() [][]byte
	Close() (pgconn.CommandTag, error)
}

// readTableNames fills names from (oid, relname) rows. names is only
// written to when the whole result was read without error.
func readTableNames(rr tableNameReader, names map[uint32]string) error {
	rows := make(map[uint32]string)
	for rr.NextRow() {
		v := rr.Values()
		oid, err := strconv.ParseUint(string(v[0]), 10, 32)
		if err != nil {
			_, _ = rr.Close()
			return fmt.Errorf("parse oid %q: %w", v[0], err)
		}
		rows[uint32(oid)] = string(v[1])
	}
	if _, err := rr.Close(); err != nil {
		return err
	}
	maps.Copy(names, rows)
	return nil
}

func fieldsFor(fds []pgconn.FieldDescription, tables map[uint32]string) []database.Field {
	fields := make([]database.Field, len(fds))
	for i, fd := range fds {
		fields[i] = database.Field{Table: tables[fd.TableOID], Name: fd.Name}
	}
	return fields
}

// copyRow detaches a row from pgconn's read buffer. nil stays nil (NULL).
func copyRow(values [][]byte) [][]byte {
	row := make([][]byte, len(values))
	for i, v := range values {
		if v != nil {
			row[i] = slices.Clone(v)
		}
	}
	return row
}

// cursor walks a buffered result by index.
type cursor struct {
	result *result
	next   int
}

func (c *cursor) Columns() []database.Field { return c.result.columns }

func (c *cursor) Next(dest []driver.Value) error {
	if c.result == nil || c.next >= len(c.result.rows) {
		return io.EOF
	}
	row := c.result.rows[c.next]
	c.next++

	for i, v := range row {
		if v == nil {
			dest[i] = nil
			continue
		}
		dest[i] = v
	}
	return nil
}

func (c *cursor) Close() error {
	c.result = nil
	return nil
}
