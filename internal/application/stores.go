package application

import (
	"context"

	"github.com/example/room-booking/internal/persistence"
)

// ScheduleStore captures the confirmed-schedule interactions needed by the services.
type ScheduleStore interface {
	ListEntriesByDate(ctx context.Context, date string) ([]persistence.ScheduleEntry, error)
	UpsertEntry(ctx context.Context, entry persistence.ScheduleEntry) error
	InsertEntry(ctx context.Context, entry persistence.ScheduleEntry) error
	DeleteEntry(ctx context.Context, date, roomCode, slotHour string) error
}

// RequestStore captures the request interactions needed by the services.
type RequestStore interface {
	CreateRequest(ctx context.Context, req persistence.RoomRequest) error
	GetRequest(ctx context.Context, id string) (persistence.RoomRequest, error)
	ListRequests(ctx context.Context, filter persistence.RequestFilter) ([]persistence.RoomRequest, error)
	UpdateRequestStatus(ctx context.Context, update persistence.StatusUpdate) (persistence.RoomRequest, error)
}
