// Package apperr defines the error kinds that map onto HTTP responses.
//
// Services return *Error values; the HTTP layer converts them into the
// standard error envelope in one place. Anything that is not an *Error is
// reported as a 500.
package apperr

import (
	"errors"
	"net/http"
)

// Error is an error with a client-safe message and an HTTP status.
// Cause is kept for server-side logging only.
type Error struct {
	Code    string
	Message string
	Status  int
	Cause   error
	Details []string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// WithCode returns a copy of e carrying a more specific machine code.
func (e *Error) WithCode(code string) *Error {
	cp := *e
	cp.Code = code
	return &cp
}

func Validation(msg string, details ...string) *Error {
	return &Error{Code: "VALIDATION_ERROR", Message: msg, Status: http.StatusBadRequest, Details: details}
}

func Unauthorized(msg string) *Error {
	return &Error{Code: "UNAUTHORIZED", Message: msg, Status: http.StatusUnauthorized}
}

func NotFound(msg string) *Error {
	return &Error{Code: "NOT_FOUND", Message: msg, Status: http.StatusNotFound}
}

func Conflict(msg string) *Error {
	return &Error{Code: "CONFLICT", Message: msg, Status: http.StatusConflict}
}

func TooManyRequests(msg string) *Error {
	return &Error{Code: "TOO_MANY_REQUESTS", Message: msg, Status: http.StatusTooManyRequests}
}

// Internal wraps an unexpected failure. The cause never reaches the client.
func Internal(msg string, cause error) *Error {
	if msg == "" {
		msg = "something went wrong"
	}
	return &Error{Code: "INTERNAL_ERROR", Message: msg, Status: http.StatusInternalServerError, Cause: cause}
}

// From extracts the *Error from err's chain, falling back to Internal.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal("", err)
}
