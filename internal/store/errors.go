package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a unique constraint.
var ErrConflict = errors.New("conflict")

// ErrStaleToken is returned when a refresh token rotation finds a different
// token stored than the one it was asked to replace.
var ErrStaleToken = errors.New("stale refresh token")

const (
	pqUniqueViolation = "23505"
	pqInvalidTextRepr = "22P02"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// isInvalidID reports a malformed UUID literal, which can never match a row.
func isInvalidID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqInvalidTextRepr
}
