package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that the mutation target no longer exists in the store.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates that the task changed between the read and the write
// of an update.
var ErrConflict = errors.New("modified concurrently")

// ValidationError reports a request rejected before any store mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransportError wraps failures reaching the store (network, unavailable backend).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsTransport reports whether err carries a TransportError.
func IsTransport(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}
