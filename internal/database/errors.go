package database

import (
	"errors"
	"fmt"
)

var (
	// ErrArgumentCountMismatch is returned by Encode when the number of
	// placeholder tokens differs from the number of values.
	ErrArgumentCountMismatch = errors.New("placeholder count does not match value count")

	// ErrInvalidIntegerLiteral is returned by Encode when a ?i value is not a
	// signed 64-bit decimal integer.
	ErrInvalidIntegerLiteral = errors.New("invalid integer literal")

	// ErrUnencodableValue is returned by Encode when a ?n or ?s value holds
	// bytes the dialect cannot represent.
	ErrUnencodableValue = errors.New("value cannot be encoded")

	// ErrUseAfterClose is returned by every Session operation once Close has
	// been called, including a second Close.
	ErrUseAfterClose = errors.New("session is closed")
)

// ConnectionError represents a failure to establish a session: dial,
// authentication, handshake or selecting the operating database.
type ConnectionError struct {
	Connector string
	Address   string
	// Message is the backend's diagnostic text, unmodified.
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Address == "" {
		return fmt.Sprintf("connection error (%s): %s", e.Connector, e.Message)
	}
	return fmt.Sprintf("connection error (%s %s): %s", e.Connector, e.Address, e.Message)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// QueryError represents a statement rejected by the backend, or a transport
// failure while the statement was in flight.
type QueryError struct {
	// Code is the backend's numeric error code, 0 when the backend has none.
	Code int
	// SQLState is the five character SQLSTATE, when reported.
	SQLState string
	// Message is the backend's diagnostic text, unmodified.
	Message   string
	Statement Statement
	Err       error
}

func (e *QueryError) Error() string {
	switch {
	case e.Code != 0:
		return fmt.Sprintf("query error (%d): %s", e.Code, e.Message)
	case e.SQLState != "":
		return fmt.Sprintf("query error (%s): %s", e.SQLState, e.Message)
	default:
		return fmt.Sprintf("query error: %s", e.Message)
	}
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// UnknownConnectorError is returned when no connector is registered under the
// requested name.
type UnknownConnectorError struct {
	Name string
}

func (e *UnknownConnectorError) Error() string {
	return fmt.Sprintf("unknown connector %q", e.Name)
}
