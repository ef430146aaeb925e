// Package apperror provides domain-specific error types for the calendar API.
// Each error carries an HTTP status, a machine-readable type and a message
// that is safe to show to clients; the Echo error handler in internal/app
// renders them as JSON.
//
// NEVER return raw database or infrastructure errors to the client. Wrap them
// with NewInternal, which keeps the cause for logs only.
package apperror

import (
	"fmt"
	"net/http"
	"strconv"
)

// AppError is a client-facing error.
type AppError struct {
	// Code is the HTTP status code (e.g., 404, 422, 500).
	Code int `json:"-"`

	// Type classifies the error for API clients (e.g., "validation_error").
	Type string `json:"type"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never exposed to client.
	Internal error `json:"-"`

	// RetryAfter, when positive, is sent as the Retry-After header.
	RetryAfter int `json:"-"`
}

func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the internal cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Internal
}

func newError(code int, typ, message string) *AppError {
	return &AppError{Code: code, Type: typ, Message: message}
}

// NewNotFound is a 404, e.g. for an unknown calendar or note.
func NewNotFound(message string) *AppError {
	return newError(http.StatusNotFound, "not_found", message)
}

// NewBadRequest is a 400 for malformed requests: bad JSON, unknown repeat
// rules, reversed ranges.
func NewBadRequest(message string) *AppError {
	return newError(http.StatusBadRequest, "bad_request", message)
}

// NewConflict is a 409, e.g. when creating a calendar that already exists.
func NewConflict(message string) *AppError {
	return newError(http.StatusConflict, "conflict", message)
}

// NewValidation is a 422 for well-formed input the calendar rejects: an
// invalid definition, a date outside its month, an overflowing duration.
func NewValidation(message string) *AppError {
	return newError(http.StatusUnprocessableEntity, "validation_error", message)
}

// NewRateLimited is a 429. retryAfter is the number of seconds until the
// client's window resets.
func NewRateLimited(retryAfter int) *AppError {
	e := newError(http.StatusTooManyRequests, "rate_limited",
		"Rate limit exceeded. Please try again in "+strconv.Itoa(retryAfter)+"s.")
	e.RetryAfter = retryAfter
	return e
}

// NewInternal is a 500. err is kept for logging; the client only sees a
// generic message.
func NewInternal(err error) *AppError {
	e := newError(http.StatusInternalServerError, "internal_error",
		"An unexpected error occurred. Please try again.")
	e.Internal = err
	return e
}
