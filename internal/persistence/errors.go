package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a write collides with an existing key.
	ErrDuplicate = errors.New("persistence: duplicate key")
	// ErrStatusMismatch is returned when a compare-and-set status update finds
	// a different current status than expected.
	ErrStatusMismatch = errors.New("persistence: status mismatch")
	// ErrConstraintViolation is returned when a write breaks a schema constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)
