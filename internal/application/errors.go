package application

import (
	"errors"
	"fmt"

	"github.com/example/room-booking/internal/persistence"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrBusy is returned when another review of the same request is in progress.
	ErrBusy = errors.New("application: request is being reviewed")
	// ErrConfirmationRequired is returned when a revert lacks a valid confirmation token.
	ErrConfirmationRequired = errors.New("application: confirmation required")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// ConflictError reports the first cell that blocks a request.
type ConflictError struct {
	Room      string
	Date      string
	Slot      string
	SlotLabel string
	Status    string
	// RequestID is set when the blocking cell belongs to another pending request.
	RequestID string
}

func (e *ConflictError) Error() string {
	label := e.SlotLabel
	if label == "" {
		label = e.Slot
	}
	return fmt.Sprintf("room %s is %s on %s at %s", e.Room, e.Status, e.Date, label)
}

// StoreErrorKind names the store interaction that failed.
type StoreErrorKind string

const (
	StoreRead   StoreErrorKind = "read"
	StoreWrite  StoreErrorKind = "write"
	StoreStatus StoreErrorKind = "status"
)

// StoreError wraps a failed store call.
type StoreError struct {
	Kind StoreErrorKind
	Err  error
}

func (e *StoreError) Error() string {
	switch e.Kind {
	case StoreRead:
		return fmt.Sprintf("failed to read schedule: %v", e.Err)
	case StoreWrite:
		return fmt.Sprintf("failed to write schedule: %v", e.Err)
	case StoreStatus:
		return fmt.Sprintf("failed to update request status: %v", e.Err)
	}
	return fmt.Sprintf("store failure: %v", e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// StateError reports a transition attempted from the wrong status.
type StateError struct {
	From   persistence.RequestStatus
	To     persistence.RequestStatus
	Actual persistence.RequestStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot move request from %s to %s: request is %s", e.From, e.To, e.Actual)
}

// transition checks that req is in from before moving it to to.
func transition(req persistence.RoomRequest, from, to persistence.RequestStatus) error {
	if req.Status != from {
		return &StateError{From: from, To: to, Actual: req.Status}
	}
	return nil
}

func storeError(kind StoreErrorKind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	return &StoreError{Kind: kind, Err: err}
}
