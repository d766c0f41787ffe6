package app

import "fmt"

// ErrConnection represents a failure to open the backing session.
type ErrConnection struct {
	Target string
	Cause  error
}

func (e *ErrConnection) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Target, e.Cause)
}

func (e *ErrConnection) Unwrap() error {
	return e.Cause
}

// ErrQuery represents a template that failed to encode or execute.
type ErrQuery struct {
	Template string
	Cause    error
}

func (e *ErrQuery) Error() string {
	return fmt.Sprintf("query %q: %v", e.Template, e.Cause)
}

func (e *ErrQuery) Unwrap() error {
	return e.Cause
}

// ErrConfig represents an unusable configuration.
type ErrConfig struct {
	Cause error
}

func (e *ErrConfig) Error() string {
	return fmt.Sprintf("config error: %v", e.Cause)
}

func (e *ErrConfig) Unwrap() error {
	return e.Cause
}
