package database

import (
	"database/sql"
	"fmt"
	"slices"
)

// Field identifies one result column as reported by the backend.
type Field struct {
	Table string
	Name  string
}

// String renders the field as table.name, or just name when the backend did
// not report an owning table (computed columns, literals).
func (f Field) String() string {
	if f.Table == "" {
		return f.Name
	}
	return f.Table + "." + f.Name
}

// Value is one nullable text cell. A NULL has Valid == false; an empty string
// has Valid == true and String == "".
type Value = sql.NullString

// Row is one result row. Its length always equals the field count of the
// ResultSet it came from.
type Row []Value

// Strings renders the row with null substituted for NULL cells.
func (r Row) Strings(null string) []string {
	out := make([]string, len(r))
	for i, v := range r {
		if v.Valid {
			out[i] = v.String
		} else {
			out[i] = null
		}
	}
	return out
}

// ResultSet holds the fields and rows produced by one statement. It is built
// once by FetchResults and never modified afterwards; accessors hand out
// copies.
type ResultSet struct {
	fields []Field
	rows   []Row
}

var empty = &ResultSet{}

// Empty returns the shared result for statements that produce no column
// metadata. Every call returns the same pointer, so callers may compare
// against it.
func Empty() *ResultSet { return empty }

// NewResultSet builds a ResultSet from copies of fields and rows. Every row
// must have exactly len(fields) values.
func NewResultSet(fields []Field, rows []Row) (*ResultSet, error) {
	rs := &ResultSet{fields: slices.Clone(fields), rows: make([]Row, len(rows))}
	for i, r := range rows {
		if len(r) != len(fields) {
			return nil, fmt.Errorf("row %d has %d values for %d fields", i, len(r), len(fields))
		}
		rs.rows[i] = slices.Clone(r)
	}
	return rs, nil
}

// NumFields returns the number of columns.
func (rs *ResultSet) NumFields() int { return len(rs.fields) }

// NumRows returns the number of rows.
func (rs *ResultSet) NumRows() int { return len(rs.rows) }

// IsEmpty reports whether the result has neither fields nor rows.
func (rs *ResultSet) IsEmpty() bool {
	return len(rs.fields) == 0 && len(rs.rows) == 0
}

// Fields returns a copy of the field descriptors in backend order.
func (rs *ResultSet) Fields() []Field {
	return slices.Clone(rs.fields)
}

// Field returns the i-th field descriptor.
func (rs *ResultSet) Field(i int) Field {
	return rs.fields[i]
}

// Row returns a copy of the i-th row.
func (rs *ResultSet) Row(i int) Row {
	return slices.Clone(rs.rows[i])
}

// Value returns the cell at row i, column j.
func (rs *ResultSet) Value(i, j int) Value {
	return rs.rows[i][j]
}

// FieldNames returns the rendered table.name form of every field.
func (rs *ResultSet) FieldNames() []string {
	names := make([]string, len(rs.fields))
	for i, f := range rs.fields {
		names[i] = f.String()
	}
	return names
}

// Lookup returns the index of the first field named name, or -1.
func (rs *ResultSet) Lookup(name string) int {
	for i, f := range rs.fields {
		if f.Name == name || f.String() == name {
			return i
		}
	}
	return -1
}
