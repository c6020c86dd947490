package persistence

import "time"

// EntryStatus is the occupancy state of a schedule cell.
type EntryStatus string

const (
	EntryStatusEmpty       EntryStatus = "empty"
	EntryStatusOccupied    EntryStatus = "occupied"
	EntryStatusMaintenance EntryStatus = "maintenance"
	// EntryStatusPending is a display state produced by the pending overlay.
	// Stores never hold it.
	EntryStatusPending EntryStatus = "pending"
)

// Valid reports whether the status is one of the known entry states.
func (s EntryStatus) Valid() bool {
	switch s {
	case EntryStatusEmpty, EntryStatusOccupied, EntryStatusMaintenance, EntryStatusPending:
		return true
	}
	return false
}

// Blocking reports whether a confirmed entry with this status prevents a booking.
func (s EntryStatus) Blocking() bool {
	return s != "" && s != EntryStatusEmpty
}

// ScheduleEntry is one confirmed (room, date, slot) cell. The tuple
// (ScheduleDate, RoomCode, SlotHour) is unique.
type ScheduleEntry struct {
	ScheduleDate string
	RoomCode     string
	SlotHour     string
	Status       EntryStatus
	CourseName   string
	BookedBy     string
	UpdatedAt    time.Time
}

// RequestStatus is the lifecycle state of a room request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
	RequestStatusReverted RequestStatus = "reverted"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected, RequestStatusReverted:
		return true
	}
	return false
}

// RoomRequest asks for a room over an inclusive slot range, repeated weekly
// for WeekCount weeks starting at BaseDate.
type RoomRequest struct {
	ID              string
	RequesterID     string
	RequesterName   string
	RoomCode        string
	BuildingCode    string
	BaseDate        string
	StartHour       string
	EndHour         string
	SlotCategory    string
	WeekCount       int
	CourseName      string
	BookedBy        string
	Notes           string
	Status          RequestStatus
	ReviewerID      string
	ReviewerName    string
	RejectionReason string
	CreatedAt       time.Time
	ReviewedAt      *time.Time
}
