package persistence

import (
	"context"
	"strings"
	"time"
)

// ScheduleStore persists confirmed schedule cells.
type ScheduleStore interface {
	// ListEntriesByDate returns every stored cell for the date.
	ListEntriesByDate(ctx context.Context, date string) ([]ScheduleEntry, error)
	// UpsertEntry writes a cell, replacing whatever occupies the key.
	UpsertEntry(ctx context.Context, entry ScheduleEntry) error
	// InsertEntry writes a cell only when the key is absent or holds an empty
	// row. It fails with ErrDuplicate otherwise.
	InsertEntry(ctx context.Context, entry ScheduleEntry) error
	// DeleteEntry removes a cell. Deleting an absent cell is not an error.
	DeleteEntry(ctx context.Context, date, roomCode, slotHour string) error
}

// RequestFilter narrows request listings. Zero values match everything.
type RequestFilter struct {
	Statuses    []RequestStatus
	RequesterID string
	RoomCode    string
	Limit       int
}

// Matches reports whether the request satisfies the filter.
func (f RequestFilter) Matches(req RoomRequest) bool {
	if f.RequesterID != "" && req.RequesterID != f.RequesterID {
		return false
	}
	if f.RoomCode != "" && req.RoomCode != f.RoomCode {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, status := range f.Statuses {
		if req.Status == status {
			return true
		}
	}
	return false
}

// StatusUpdate moves a request from one status to another. The update is
// applied only when the stored status still equals From.
type StatusUpdate struct {
	ID           string
	From         RequestStatus
	To           RequestStatus
	ReviewerID   string
	ReviewerName string
	Reason       string
	ReviewedAt   time.Time
}

// RequestStore persists room requests.
type RequestStore interface {
	CreateRequest(ctx context.Context, req RoomRequest) error
	GetRequest(ctx context.Context, id string) (RoomRequest, error)
	// ListRequests returns matching requests newest first.
	ListRequests(ctx context.Context, filter RequestFilter) ([]RoomRequest, error)
	// UpdateRequestStatus applies the update and returns the stored request.
	// It fails with ErrStatusMismatch when the current status is not From.
	UpdateRequestStatus(ctx context.Context, update StatusUpdate) (RoomRequest, error)
}

// SlotNormalizer maps a room's stored slot identifier onto its canonical form.
type SlotNormalizer func(roomCode, slotHour string) string

// TrimSlot is the SlotNormalizer stores use when none is configured.
func TrimSlot(_, slotHour string) string {
	return strings.TrimSpace(slotHour)
}
