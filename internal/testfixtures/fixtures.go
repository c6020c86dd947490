package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

var requestCounter uint64

var referenceTime = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ScenarioBaseDate is the first Monday the request fixtures book.
const ScenarioBaseDate = "2025-03-03"

// ---------------------------- Request fixtures ----------------------------

// RequestOption configures the generated request fixture.
type RequestOption func(*persistence.RoomRequest)

// NewRequest returns a pending request for room 301, slots 7 through 9, two
// weeks from ScenarioBaseDate, with optional overrides.
func NewRequest(opts ...RequestOption) persistence.RoomRequest {
	idx := atomic.AddUint64(&requestCounter, 1)
	req := persistence.RoomRequest{
		ID:            fmt.Sprintf("seed-%03d", idx),
		RequesterID:   "teacher-1",
		RequesterName: "Teacher One",
		RoomCode:      "301",
		BuildingCode:  "B1",
		BaseDate:      ScenarioBaseDate,
		StartHour:     "7",
		EndHour:       "9",
		SlotCategory:  "classroom",
		WeekCount:     2,
		CourseName:    "Physics",
		BookedBy:      "Teacher One",
		Status:        persistence.RequestStatusPending,
		CreatedAt:     referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// WithRequestID overrides the generated request ID.
func WithRequestID(id string) RequestOption {
	return func(r *persistence.RoomRequest) {
		r.ID = id
	}
}

// WithRequester overrides the requester identity.
func WithRequester(id, name string) RequestOption {
	return func(r *persistence.RoomRequest) {
		r.RequesterID = id
		r.RequesterName = name
	}
}

// WithRoom overrides the requested room.
func WithRoom(room string) RequestOption {
	return func(r *persistence.RoomRequest) {
		r.RoomCode = room
	}
}

// WithSlots overrides the inclusive slot range.
func WithSlots(start, end string) RequestOption {
	return func(r *persistence.RoomRequest) {
		r.StartHour = start
		r.EndHour = end
	}
}

// WithBaseDate overrides the first booked date.
func WithBaseDate(date string) RequestOption {
	return func(r *persistence.RoomRequest) {
		r.BaseDate = date
	}
}

// WithWeeks overrides the repetition count.
func WithWeeks(weeks int) RequestOption {
	return func(r *persistence.RoomRequest) {
		r.WeekCount = weeks
	}
}

// WithRequestStatus overrides the lifecycle status.
func WithRequestStatus(status persistence.RequestStatus) RequestOption {
	return func(r *persistence.RoomRequest) {
		r.Status = status
	}
}

// WithCreatedAt overrides the creation timestamp.
func WithCreatedAt(t time.Time) RequestOption {
	return func(r *persistence.RoomRequest) {
		r.CreatedAt = t
	}
}

// ----------------------------- Entry fixtures -----------------------------

// Occupied returns an occupied confirmed cell.
func Occupied(date, room, slot, course string) persistence.ScheduleEntry {
	return persistence.ScheduleEntry{
		ScheduleDate: date,
		RoomCode:     room,
		SlotHour:     slot,
		Status:       persistence.EntryStatusOccupied,
		CourseName:   course,
		BookedBy:     "Registrar",
	}
}

// Maintenance returns a confirmed cell closed for maintenance.
func Maintenance(date, room, slot string) persistence.ScheduleEntry {
	return persistence.ScheduleEntry{
		ScheduleDate: date,
		RoomCode:     room,
		SlotHour:     slot,
		Status:       persistence.EntryStatusMaintenance,
	}
}
