// Package errors provides the error types shared by the flowdeck packages.
//
// # Error Types
//
// Base errors (sentinel errors):
//   - ErrNotFound - document or workflow not found
//   - ErrAlreadyExists - target path already exists
//   - ErrInvalid - validation failed
//   - ErrConflict - write or move collided with an existing document
//   - ErrIO - storage I/O error
//   - ErrCanceled - user canceled an operation
//
// Wrapped error types (add context):
//   - WorkflowError{Op, Path, Err} - workflow lifecycle errors
//   - StoreError{Op, Path, Status, Err} - document store errors carrying a status code
//   - ConfigError{Path, Err} - configuration errors
//
// # Usage
//
//	// Document stores report failures with a status code
//	return &errors.StoreError{Op: "write", Path: p, Status: errors.StatusConflict, Err: errors.ErrConflict}
//
//	// Callers branch on the status or the sentinel
//	if errors.StatusOf(err) == errors.StatusConflict {
//	    // ask before overwriting
//	}
package errors

import (
	"errors"
	"fmt"
)

// Base error types (sentinel errors).
var (
	// ErrNotFound indicates a document or workflow was not found.
	ErrNotFound = baseError("not found")

	// ErrAlreadyExists indicates the target path is taken.
	ErrAlreadyExists = baseError("already exists")

	// ErrInvalid indicates validation failed.
	ErrInvalid = baseError("invalid")

	// ErrConflict indicates a write or move collided with an existing document.
	ErrConflict = baseError("conflict")

	// ErrIO indicates a storage I/O error.
	ErrIO = baseError("I/O error")

	// ErrCanceled indicates the user canceled an operation.
	ErrCanceled = baseError("canceled")
)

// Status codes reported by document stores.
const (
	StatusOK         = 200
	StatusBadRequest = 400
	StatusNotFound   = 404
	StatusConflict   = 409
	StatusError      = 500
)

// baseError is a string that implements error.
type baseError string

func (e baseError) Error() string { return string(e) }

// WorkflowError represents an error that occurred during a workflow operation.
type WorkflowError struct {
	// Op is the operation being performed (e.g., "save", "rename", "delete").
	Op string
	// Path is the workflow path (optional; empty for unsaved workflows).
	Path string
	// Err is the underlying error.
	Err error
}

func (e *WorkflowError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("workflow %s %q: %s", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("workflow %s: %s", e.Op, e.Err)
}

func (e *WorkflowError) Unwrap() error { return e.Err }

// StoreError represents a failed document store operation.
type StoreError struct {
	// Op is the store operation (e.g., "read", "write", "move").
	Op string
	// Path is the document key.
	Path string
	// Status is the status code the store answered with.
	Status int
	// Err is the underlying error.
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %q: status %d: %s", e.Op, e.Path, e.Status, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ConfigError represents an error related to configuration.
type ConfigError struct {
	// Path is the configuration file path (optional).
	Path string
	// Err is the underlying error.
	Err error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %s", e.Path, e.Err)
	}
	return fmt.Sprintf("config: %s", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NotFound builds the StoreError stores return for a missing document.
func NotFound(op, path string) error {
	return &StoreError{Op: op, Path: path, Status: StatusNotFound, Err: ErrNotFound}
}

// Conflict builds the StoreError stores return when the target exists and
// overwrite was not requested.
func Conflict(op, path string) error {
	return &StoreError{Op: op, Path: path, Status: StatusConflict, Err: ErrConflict}
}

// Invalid builds the StoreError stores return for a malformed document key.
func Invalid(op, path string) error {
	return &StoreError{Op: op, Path: path, Status: StatusBadRequest, Err: ErrInvalid}
}

// IOFailure wraps a transport or filesystem error as a StoreError.
func IOFailure(op, path string, err error) error {
	return &StoreError{Op: op, Path: path, Status: StatusError, Err: fmt.Errorf("%w: %w", ErrIO, err)}
}

// StatusOf returns the status code carried by err.
// A nil error is StatusOK; errors without a StoreError in the chain are StatusError.
func StatusOf(err error) int {
	if err == nil {
		return StatusOK
	}
	if se, ok := AsStoreError(err); ok {
		return se.Status
	}
	return StatusError
}

// Wrap adds context to an error by wrapping it with an operation name.
// The returned error implements Unwrap() allowing errors.Is and errors.As
// to work with the wrapped error.
func Wrap(err error, op string) error {
	return &wrappedError{op: op, err: err}
}

// wrappedError is an error with an operation context.
type wrappedError struct {
	op  string
	err error
}

func (e *wrappedError) Error() string { return fmt.Sprintf("%s: %s", e.op, e.err) }
func (e *wrappedError) Unwrap() error { return e.err }

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports whether err is or wraps ErrAlreadyExists.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsInvalid reports whether err is or wraps ErrInvalid.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}

// IsConflict reports whether err is or wraps ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsIO reports whether err is or wraps ErrIO.
func IsIO(err error) bool {
	return errors.Is(err, ErrIO)
}

// IsCanceled reports whether err is or wraps ErrCanceled.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// AsWorkflowError reports whether err can be typed as a *WorkflowError.
func AsWorkflowError(err error) (*WorkflowError, bool) {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we, true
	}
	return nil, false
}

// AsStoreError reports whether err can be typed as a *StoreError.
func AsStoreError(err error) (*StoreError, bool) {
	var se *StoreError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// AsConfigError reports whether err can be typed as a *ConfigError.
func AsConfigError(err error) (*ConfigError, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
