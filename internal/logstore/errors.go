package logstore

import (
	"errors"
	"fmt"
)

// StoreError represents a failed log store operation that callers may need
// to tell apart: show to the user, map to a status code, or retry.
//
// Parse-level problems never produce a StoreError. Malformed rows are
// skipped and a malformed header falls back to the standard columns.
type StoreError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the operation that failed ("add", "update", ...).
	Op string

	// Path is the log file the operation targeted.
	Path string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeCreationFailed indicates the log file did not become visible
	// after creating it within the retry budget.
	ErrCodeCreationFailed ErrorCode = "CREATION_FAILED"

	// ErrCodeEntryNotFound indicates no row matched an update or delete.
	ErrCodeEntryNotFound ErrorCode = "ENTRY_NOT_FOUND"

	// ErrCodeInvalidEntry indicates an entry failed validation.
	ErrCodeInvalidEntry ErrorCode = "INVALID_ENTRY"

	// ErrCodeInvalidColumn indicates a blank or otherwise unusable column name.
	ErrCodeInvalidColumn ErrorCode = "INVALID_COLUMN"

	// ErrCodeWriteFailed indicates the backing vault rejected a write.
	ErrCodeWriteFailed ErrorCode = "WRITE_FAILED"
)

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsCreationError reports whether err is a creation failure.
func IsCreationError(err error) bool {
	return hasCode(err, ErrCodeCreationFailed)
}

// IsNotFoundError reports whether err means no matching entry was found.
func IsNotFoundError(err error) bool {
	return hasCode(err, ErrCodeEntryNotFound)
}

// IsInvalidError reports whether err is a validation failure, for an entry
// or a column name.
func IsInvalidError(err error) bool {
	return hasCode(err, ErrCodeInvalidEntry) || hasCode(err, ErrCodeInvalidColumn)
}

// CodeOf returns the code of the first StoreError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func newCreationError(op, path string) *StoreError {
	return &StoreError{
		Code:    ErrCodeCreationFailed,
		Op:      op,
		Path:    path,
		Message: fmt.Sprintf("failed to create log file at path: %s", path),
	}
}

func newNotFoundError(op, path string) *StoreError {
	return &StoreError{
		Code:    ErrCodeEntryNotFound,
		Op:      op,
		Path:    path,
		Message: "no matching entry in log file",
	}
}

func newWriteError(op, path string, err error) *StoreError {
	return &StoreError{Code: ErrCodeWriteFailed, Op: op, Path: path, Err: err}
}
