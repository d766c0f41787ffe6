package database

import "strings"

// Dialect holds a backend's literal quoting rules. Both methods must return a
// delimited literal that the backend parses back to exactly the input, and
// the input can never close the delimiter early.
type Dialect interface {
	QuoteIdentifier(name string) string
	QuoteString(s string) string
}

// ValueChecker is implemented by dialects that cannot represent every byte
// sequence. Encode calls CheckValue on each ?n and ?s value before quoting
// and fails with ErrUnencodableValue when it returns an error.
type ValueChecker interface {
	CheckValue(s string) error
}

// MySQLDialect quotes for MariaDB and MySQL.
type MySQLDialect struct {
	// NoBackslashEscapes mirrors the NO_BACKSLASH_ESCAPES sql_mode, under
	// which the server treats a backslash inside a string as a plain byte.
	NoBackslashEscapes bool
}

// QuoteIdentifier wraps name in backticks, doubling any backtick inside it.
func (MySQLDialect) QuoteIdentifier(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 2)
	b.WriteByte('`')
	for i := 0; i < len(name); i++ {
		if name[i] == '`' {
			b.WriteByte('`')
		}
		b.WriteByte(name[i])
	}
	b.WriteByte('`')
	return b.String()
}

// QuoteString wraps s in single quotes, escaping it the way
// mysql_real_escape_string does, or by doubling quotes when backslash
// escapes are disabled on the server.
func (d MySQLDialect) QuoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s)*2 + 2)
	b.WriteByte('\'')
	if d.NoBackslashEscapes {
		for i := 0; i < len(s); i++ {
			if s[i] == '\'' {
				b.WriteByte('\'')
			}
			b.WriteByte(s[i])
		}
		b.WriteByte('\'')
		return b.String()
	}

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case 0:
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '"':
			b.WriteString(`\"`)
		case '\032':
			b.WriteString(`\Z`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
