// Package errors provides standardized error handling for the signage player
package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors that can be used across the application
var (
	// ErrNotFound indicates a requested resource doesn't exist
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable indicates an upstream dependency could not be reached
	ErrUnavailable = errors.New("upstream unavailable")

	// ErrStale indicates a result arrived for a session that was already torn down
	ErrStale = errors.New("stale session")
)

// Error codes recorded by the orchestrator and reported in screen status
const (
	CodeConfigFetch   = "CONFIG_FETCH_FAILED"
	CodePlaylistFetch = "PLAYLIST_FETCH_FAILED"
	CodeResolve       = "RESOLVE_FAILED"
	CodeZoneFailed    = "ZONE_FAILED"
)

// Error represents a domain error with additional context
type Error struct {
	// Code is a machine-readable error code
	Code string
	// Message is a human-readable error description
	Message string
	// Op describes the operation that failed
	Op string
	// Err is the underlying error
	Err error
}

// Error implements the error interface with a formatted message
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain handling
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given details
func NewError(code string, message string, op string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Code returns the code of the first *Error in err's chain, or "" if none
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound returns true if err represents a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput returns true if err represents an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsUnavailable returns true if err represents an unreachable upstream
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsStale returns true if err represents a result for a torn down session
func IsStale(err error) bool {
	return errors.Is(err, ErrStale)
}
