package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

// FetchResults decodes the result of the statement last passed to Execute.
// Statements without column metadata, and calls with nothing pending, yield
// Empty. Every value is copied out of backend storage before the native
// result is released.
func (s *Session) FetchResults(ctx context.Context) (*ResultSet, error) {
	if s.closed {
		return nil, ErrUseAfterClose
	}
	if !s.pending {
		return Empty(), nil
	}
	s.pending = false

	n := s.conn.FieldCount()
	if n == 0 {
		return Empty(), nil
	}

	cur, err := s.conn.Cursor()
	if err != nil {
		return nil, err
	}
	rs, err := decodeResult(cur, n)
	if closeErr := cur.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}

	s.logger.Debug("fetched", "fields", rs.NumFields(), "rows", rs.NumRows())
	return rs, nil
}

// decodeResult reads n columns of metadata and then rows until the cursor
// reports io.EOF.
func decodeResult(cur Cursor, n int) (*ResultSet, error) {
	cols := cur.Columns()
	if len(cols) != n {
		return nil, fmt.Errorf("decode fields: backend reported %d columns, metadata has %d", n, len(cols))
	}

	fields := make([]Field, n)
	for i := 0; i < n; i++ {
		fields[i] = Field{Table: cols[i].Table, Name: cols[i].Name}
	}

	dest := make([]driver.Value, n)
	var rows []Row
	for {
		clear(dest)
		err := cur.Next(dest)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(Row, n)
		for i := 0; i < n; i++ {
			v, err := textValue(dest[i])
			if err != nil {
				return nil, fmt.Errorf("decode row %d, %s: %w", len(rows), fields[i], err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}

	return &ResultSet{fields: fields, rows: rows}, nil
}

// textValue converts one driver cell into owned text. []byte is copied since
// backends hand out slices of their read buffers.
func textValue(v driver.Value) (Value, error) {
	switch v := v.(type) {
	case nil:
		return Value{}, nil
	case []byte:
		return Value{String: string(v), Valid: true}, nil
	case string:
		return Value{String: v, Valid: true}, nil
	case int64:
		return Value{String: strconv.FormatInt(v, 10), Valid: true}, nil
	case uint64:
		return Value{String: strconv.FormatUint(v, 10), Valid: true}, nil
	case float64:
		return Value{String: strconv.FormatFloat(v, 'g', -1, 64), Valid: true}, nil
	case float32:
		return Value{String: strconv.FormatFloat(float64(v), 'g', -1, 32), Valid: true}, nil
	case bool:
		return Value{String: strconv.FormatBool(v), Valid: true}, nil
	case time.Time:
		return Value{String: v.Format(time.RFC3339Nano), Valid: true}, nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", v)
	}
}
