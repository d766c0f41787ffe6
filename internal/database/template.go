package database

import (
	"fmt"
	"strconv"
	"strings"
)

// Statement is fully resolved SQL text, safe to submit verbatim.
type Statement string

// Raw marks SQL text that carries no placeholders as a Statement. It performs
// no escaping; use Encode for anything built from input.
func Raw(sql string) Statement { return Statement(sql) }

// Placeholder tokens recognised in query templates.
const (
	TokenInteger    = "?i"
	TokenIdentifier = "?n"
	TokenString     = "?s"
)

// Encoder resolves query templates against one dialect.
type Encoder struct {
	Dialect Dialect
}

// Encode resolves template with the MariaDB dialect.
func Encode(template string, values ...string) (Statement, error) {
	return Encoder{Dialect: MySQLDialect{}}.Encode(template, values...)
}

// Encode replaces each ?i, ?n and ?s token in template, left to right, with
// the matching value quoted for its kind. Text around the tokens is copied
// through unchanged. Nothing is emitted unless every value encodes.
func (e Encoder) Encode(template string, values ...string) (Statement, error) {
	tokens := scanTokens(template)
	if len(tokens) != len(values) {
		return "", fmt.Errorf("%w: template has %d, got %d",
			ErrArgumentCountMismatch, len(tokens), len(values))
	}

	d := e.Dialect
	if d == nil {
		d = MySQLDialect{}
	}

	var b strings.Builder
	b.Grow(len(template) + 16*len(values))

	pos := 0
	for i, at := range tokens {
		b.WriteString(template[pos:at])

		value := values[i]
		switch template[at+1] {
		case 'i':
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return "", fmt.Errorf("%w: value %d %q", ErrInvalidIntegerLiteral, i, value)
			}
			b.WriteString(strconv.FormatInt(n, 10))
		case 'n', 's':
			if vc, ok := d.(ValueChecker); ok {
				if err := vc.CheckValue(value); err != nil {
					return "", fmt.Errorf("%w: value %d: %v", ErrUnencodableValue, i, err)
				}
			}
			if template[at+1] == 'n' {
				b.WriteString(d.QuoteIdentifier(value))
			} else {
				b.WriteString(d.QuoteString(value))
			}
		}

		pos = at + 2
	}
	b.WriteString(template[pos:])

	return Statement(b.String()), nil
}

// CountTokens returns the number of placeholder tokens in template.
func CountTokens(template string) int {
	return len(scanTokens(template))
}

// scanTokens returns the byte offset of every token, in order.
func scanTokens(template string) []int {
	var offsets []int
	for i := 0; i+1 < len(template); i++ {
		if template[i] != '?' {
			continue
		}
		switch template[i+1] {
		case 'i', 'n', 's':
			offsets = append(offsets, i)
			i++
		}
	}
	return offsets
}
