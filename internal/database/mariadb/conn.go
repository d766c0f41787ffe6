package mariadb

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joacominatel/querystor/internal/database"
)

// conn wraps one driver.Conn. A statement that yields columns leaves its
// driver.Rows open in rows until the cursor is taken or discarded.
type conn struct {
	raw     driver.Conn
	queryer driver.QueryerContext
	dialect database.MySQLDialect
	rows    driver.Rows
	columns []database.Field
}

var _ database.Conn = (*conn)(nil)

func newConn(raw driver.Conn) (*conn, error) {
	q, ok := raw.(driver.QueryerContext)
	if !ok {
		return nil, fmt.Errorf("driver connection %T cannot run queries", raw)
	}
	return &conn{raw: raw, queryer: q}, nil
}

func (c *conn) Query(ctx context.Context, stmt database.Statement) error {
	if err := c.Discard(); err != nil {
		return err
	}

	rows, err := c.queryer.QueryContext(ctx, string(stmt), nil)
	if err != nil {
		return queryError(stmt, err)
	}

	names := rows.Columns()
	if len(names) == 0 {
		if err := rows.Close(); err != nil {
			return queryError(stmt, err)
		}
		return nil
	}

	c.rows = rows
	c.columns = splitColumns(names)
	return nil
}

func (c *conn) FieldCount() int {
	if c.rows == nil {
		return 0
	}
	return len(c.columns)
}

func (c *conn) Cursor() (database.Cursor, error) {
	if c.rows == nil {
		return nil, errors.New("mariadb: no pending result")
	}
	cur := &cursor{rows: c.rows, columns: c.columns}
	c.rows, c.columns = nil, nil
	return cur, nil
}

func (c *conn) Discard() error {
	if c.rows == nil {
		return nil
	}
	rows := c.rows
	c.rows, c.columns = nil, nil
	if err := rows.Close(); err != nil {
		return queryError("", err)
	}
	return nil
}

func (c *conn) Dialect() database.Dialect { return c.dialect }

func (c *conn) Close() error {
	return errors.Join(c.Discard(), c.raw.Close())
}

// exec runs stmt and drops whatever it returns.
func (c *conn) exec(ctx context.Context, stmt database.Statement) error {
	if err := c.Query(ctx, stmt); err != nil {
		return err
	}
	return c.Discard()
}

// scalar runs stmt and returns the first column of its first row as text.
func (c *conn) scalar(ctx context.Context, stmt database.Statement) (string, error) {
	if err := c.Query(ctx, stmt); err != nil {
		return "", err
	}
	cur, err := c.Cursor()
	if err != nil {
		return "", err
	}
	defer cur.Close()

	dest := make([]driver.Value, len(cur.Columns()))
	if err := cur.Next(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%s: no rows", stmt)
		}
		return "", err
	}
	switch v := dest[0].(type) {
	case []byte:
		return string(v), nil
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		return fmt.Sprint(v), nil
	}
}

// dialectFor picks the string quoting rules for the session's sql_mode.
func dialectFor(sqlMode string) database.MySQLDialect {
	for _, mode := range strings.Split(sqlMode, ",") {
		if strings.EqualFold(strings.TrimSpace(mode), "NO_BACKSLASH_ESCAPES") {
			return database.MySQLDialect{NoBackslashEscapes: true}
		}
	}
	return database.MySQLDialect{}
}

// splitColumns turns the "table.name" labels produced with ColumnsWithAlias
// back into fields. Columns without an owning table come back bare, so a
// label is only split when its prefix is a plain, non-numeric table name;
// expressions such as COUNT(t.id) or 1.5 stay whole.
func splitColumns(names []string) []database.Field {
	fields := make([]database.Field, len(names))
	for i, name := range names {
		if table, col, ok := strings.Cut(name, "."); ok && col != "" && isTableName(table) {
			fields[i] = database.Field{Table: table, Name: col}
			continue
		}
		fields[i] = database.Field{Name: name}
	}
	return fields
}

// isTableName reports whether s is an unquoted identifier MySQL accepts as a
// table name. All-digit names are rejected since they read as numbers.
func isTableName(s string) bool {
	if s == "" {
		return false
	}
	digits := true
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '$':
			digits = false
		default:
			return false
		}
	}
	return !digits
}

// cursor streams rows straight off the wire.
type cursor struct {
	rows    driver.Rows
	columns []database.Field
}

func (c *cursor) Columns() []database.Field { return c.columns }

func (c *cursor) Next(dest []driver.Value) error {
	err := c.rows.Next(dest)
	if err == nil || errors.Is(err, io.EOF) {
		return err
	}
	return queryError("", err)
}

func (c *cursor) Close() error {
	if err := c.rows.Close(); err != nil {
		return queryError("", err)
	}
	return nil
}
