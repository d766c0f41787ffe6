package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
)

var errNULByte = errors.New("PostgreSQL text cannot contain NUL bytes")

// Dialect quotes for PostgreSQL. The server cannot store NUL in text, so
// values holding one are rejected by CheckValue.
type Dialect struct {
	// StandardConformingStrings mirrors the server parameter of the same
	// name. When it is off, backslashes in plain '...' literals are escapes
	// and strings are written in the E'...' form instead.
	StandardConformingStrings bool
}

// QuoteIdentifier double-quotes name, doubling embedded quotes.
func (Dialect) QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// CheckValue rejects values containing a NUL byte.
func (Dialect) CheckValue(s string) error {
	if strings.IndexByte(s, 0) >= 0 {
		return errNULByte
	}
	return nil
}

func (d Dialect) QuoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 3)
	if !d.StandardConformingStrings {
		b.WriteByte('E')
	}
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\'':
			b.WriteString(`''`)
		case c == '\\' && !d.StandardConformingStrings:
			b.WriteString(`\\`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
