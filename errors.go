package paystream

import (
	"errors"
	"fmt"

	"github.com/xraph/paystream/stream"
	"github.com/xraph/paystream/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound        = errors.New("paystream: not found")
	ErrInvalidArgument = errors.New("paystream: invalid argument")
	ErrUnauthorized    = errors.New("paystream: unauthorized")

	// Stream errors
	ErrStreamNotFound      = fmt.Errorf("paystream: stream not found: %w", ErrNotFound)
	ErrInactive            = errors.New("paystream: stream is not active")
	ErrInsufficientBalance = errors.New("paystream: insufficient balance")
	ErrDuplicateID         = errors.New("paystream: duplicate stream id")

	// Arithmetic and state errors
	ErrOverflow  = types.ErrOverflow
	ErrInvariant = stream.ErrInvariant

	// Store errors
	ErrConflict    = errors.New("paystream: concurrent update conflict")
	ErrStoreClosed = errors.New("paystream: store is closed")
)

// ValidationError represents a validation failure with details.
// It matches ErrInvalidArgument under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("paystream: validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error { return ErrInvalidArgument }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "paystream: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("paystream: %d errors occurred: %v", len(e.Errors), e.Errors[0])
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// ErrorOrNil returns e when it holds errors and nil otherwise.
func (e MultiError) ErrorOrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error was caused by the caller's input
// or the stream's state, as opposed to the store or the engine itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInactive) ||
		errors.Is(err, ErrInsufficientBalance)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
