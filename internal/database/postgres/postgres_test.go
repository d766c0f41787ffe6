package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/joacominatel/querystor/internal/database"
)

// parseString reads one PostgreSQL string literal, plain or E-prefixed, and
// fails unless it spans all of s.
func parseString(s string, standard bool) (string, error) {
	escapes := !standard
	if strings.HasPrefix(s, "E'") {
		escapes = true
		s = s[1:]
	}
	if len(s) < 2 || s[0] != '\'' {
		return "", fmt.Errorf("not a string literal: %q", s)
	}

	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && escapes:
			i++
			if i >= len(s) {
				return "", fmt.Errorf("dangling backslash in %q", s)
			}
			b.WriteByte(s[i])
		case c == '\'':
			if i+1 < len(s) && s[i+1] == '\'' {
				b.WriteByte('\'')
				i++
				continue
			}
			if i != len(s)-1 {
				return "", fmt.Errorf("literal closed early at %d in %q", i, s)
			}
			return b.String(), nil
		default:
			b.WriteByte(c)
		}
	}
	return "", fmt.Errorf("unterminated literal %q", s)
}

var quotingSeeds = []string{
	"",
	"plain",
	"it's",
	`back\slash`,
	`\`,
	`\'`,
	`'\`,
	`"double"`,
	`""`,
	"tab\tnew\nline",
	"'); DROP TABLE users; --",
	"héllo wörld ✓",
}

func TestDialect_QuoteString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		standard bool
		want     string
	}{
		{"abc", true, `'abc'`},
		{"it's", true, `'it''s'`},
		{`a\b`, true, `'a\b'`},
		{`a\b`, false, `E'a\\b'`},
		{"it's", false, `E'it''s'`},
	}
	for _, tt := range tests {
		d := Dialect{StandardConformingStrings: tt.standard}
		if got := d.QuoteString(tt.in); got != tt.want {
			t.Fatalf("QuoteString(%q, standard=%v): want %s got %s", tt.in, tt.standard, tt.want, got)
		}
	}
}

func TestDialect_QuoteIdentifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"users", `"users"`},
		{`we"ird`, `"we""ird"`},
		{"Mixed Case", `"Mixed Case"`},
	}
	for _, tt := range tests {
		if got := (Dialect{}).QuoteIdentifier(tt.in); got != tt.want {
			t.Fatalf("QuoteIdentifier(%q): want %s got %s", tt.in, tt.want, got)
		}
	}
}

func TestDialect_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, standard := range []bool{true, false} {
		d := Dialect{StandardConformingStrings: standard}
		for _, s := range quotingSeeds {
			got, err := parseString(d.QuoteString(s), standard)
			if err != nil {
				t.Fatalf("standard=%v %q: %v", standard, s, err)
			}
			if got != s {
				t.Fatalf("standard=%v: want %q got %q", standard, s, got)
			}
		}
	}
}

func TestEncoder_PostgresDialect(t *testing.T) {
	t.Parallel()

	enc := database.Encoder{Dialect: Dialect{StandardConformingStrings: true}}
	got, err := enc.Encode("SELECT * FROM ?n WHERE name = ?s AND id = ?i", "users", "o'neil", "7")
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if want := `SELECT * FROM "users" WHERE name = 'o''neil' AND id = 7`; string(got) != want {
		t.Fatalf("want %s got %s", want, got)
	}
}

func TestEncoder_RejectsNUL(t *testing.T) {
	t.Parallel()

	enc := database.Encoder{Dialect: Dialect{StandardConformingStrings: true}}
	for _, template := range []string{"SELECT ?s", "SELECT * FROM ?n"} {
		got, err := enc.Encode(template, "a\x00b")
		if !errors.Is(err, database.ErrUnencodableValue) {
			t.Fatalf("Encode(%q): want ErrUnencodableValue, got %q, %v", template, got, err)
		}
	}
	if err := (Dialect{}).CheckValue("plain"); err != nil {
		t.Fatalf("CheckValue rejected a plain value: %v", err)
	}
}

func TestRegistered(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"postgres", "PostgreSQL"} {
		if _, err := database.Lookup(name); err != nil {
			t.Fatalf("Lookup(%q) returned error: %v", name, err)
		}
	}
}

func TestConnect_Unreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ep := database.Endpoint{Host: "127.0.0.1", Port: 1, Username: "postgres", Timeout: time.Second}
	_, err := database.Open(ctx, Name, ep)
	var connErr *database.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
	if connErr.Connector != Name || connErr.Message == "" {
		t.Fatalf("unexpected error detail %+v", connErr)
	}
}

func TestQueryError(t *testing.T) {
	t.Parallel()

	stmt := database.Raw("SELECT * FROM nope")
	cause := &pgconn.PgError{Severity: "ERROR", Code: "42P01", Message: `relation "nope" does not exist`}

	var qe *database.QueryError
	if !errors.As(queryError(stmt, cause), &qe) {
		t.Fatalf("expected *QueryError")
	}
	if qe.Code != 0 || qe.SQLState != "42P01" || qe.Message != cause.Message || qe.Statement != stmt {
		t.Fatalf("diagnostic not preserved: %+v", qe)
	}
	if got := qe.Error(); got != `query error (42P01): relation "nope" does not exist` {
		t.Fatalf("unexpected message %q", got)
	}

	transport := errors.New("unexpected EOF")
	if !errors.As(queryError(stmt, transport), &qe) || qe.SQLState != "" || !errors.Is(qe, transport) {
		t.Fatalf("unexpected transport mapping %+v", qe)
	}
}

func TestConnectionError(t *testing.T) {
	t.Parallel()

	ep := database.Endpoint{Host: "db", Port: 5432}
	cause := fmt.Errorf("failed to connect: %w", &pgconn.PgError{Code: "28P01", Message: `password authentication failed for user "app"`})

	var connErr *database.ConnectionError
	if !errors.As(connectionError(ep, cause), &connErr) {
		t.Fatalf("expected *ConnectionError")
	}
	if connErr.Message != `password authentication failed for user "app"` || connErr.Address != "db:5432" {
		t.Fatalf("unexpected error %+v", connErr)
	}
}

type tableRows struct {
	rows     [][][]byte
	next     int
	closeErr error
}

func (r *tableRows) NextRow() bool {
	r.next++
	return r.next <= len(r.rows)
}

func (r *tableRows) Values() [][]byte                  { return r.rows[r.next-1] }
func (r *tableRows) Close() (pgconn.CommandTag, error) { return pgconn.CommandTag{}, r.closeErr }

func TestReadTableNames(t *testing.T) {
	t.Parallel()

	rows := [][][]byte{{[]byte("16384"), []byte("users")}}

	names := map[uint32]string{16384: "", 99999: ""}
	if err := readTableNames(&tableRows{rows: rows}, names); err != nil {
		t.Fatalf("readTableNames returned error: %v", err)
	}
	if names[16384] != "users" || names[99999] != "" {
		t.Fatalf("unexpected names %v", names)
	}

	failed := map[uint32]string{}
	err := readTableNames(&tableRows{rows: rows, closeErr: errors.New("conn reset")}, failed)
	if err == nil {
		t.Fatal("expected the close error")
	}
	if len(failed) != 0 {
		t.Fatalf("failed lookup leaked names %v", failed)
	}

	bad := map[uint32]string{}
	if err := readTableNames(&tableRows{rows: [][][]byte{{[]byte("x"), []byte("t")}}}, bad); err == nil || len(bad) != 0 {
		t.Fatalf("bad oid: err=%v names=%v", err, bad)
	}
}

func TestFieldsFor(t *testing.T) {
	t.Parallel()

	fds := []pgconn.FieldDescription{
		{Name: "id", TableOID: 16384},
		{Name: "name", TableOID: 16384},
		{Name: "?column?", TableOID: 0},
		{Name: "total", TableOID: 99999},
	}
	tables := map[uint32]string{16384: "users", 99999: ""}

	got := fieldsFor(fds, tables)
	want := []string{"users.id", "users.name", "?column?", "total"}
	for i := range want {
		if got[i].String() != want[i] {
			t.Fatalf("field %d: want %q got %q", i, want[i], got[i].String())
		}
	}
}

func TestCopyRow(t *testing.T) {
	t.Parallel()

	buf := []byte("abc")
	in := [][]byte{buf[0:1], nil, buf[1:1]}
	row := copyRow(in)
	buf[0] = 'X'

	if string(row[0]) != "a" {
		t.Fatalf("expected row to be detached from the read buffer, got %q", row[0])
	}
	if row[1] != nil {
		t.Fatalf("expected NULL to stay nil")
	}
	if row[2] == nil || len(row[2]) != 0 {
		t.Fatalf("expected empty value to stay non-nil")
	}
}

func TestCursor(t *testing.T) {
	t.Parallel()

	cur := &cursor{result: &result{
		columns: []database.Field{{Table: "t", Name: "a"}, {Table: "t", Name: "b"}},
		rows:    [][][]byte{{[]byte("1"), nil}, {[]byte(""), []byte("x")}},
	}}

	dest := make([]driver.Value, 2)
	if err := cur.Next(dest); err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if dest[1] != nil {
		t.Fatalf("expected an untyped nil for NULL, got %#v", dest[1])
	}
	if err := cur.Next(dest); err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if b, ok := dest[0].([]byte); !ok || len(b) != 0 {
		t.Fatalf("expected empty []byte, got %#v", dest[0])
	}
	if err := cur.Next(dest); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if err := cur.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := cur.Next(dest); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after Close, got %v", err)
	}
}
