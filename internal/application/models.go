package application

import (
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID      string
	DisplayName string
	IsAdmin     bool
}

// RequestInput captures caller provided request fields.
type RequestInput struct {
	RoomCode     string
	BuildingCode string
	BaseDate     string
	StartHour    string
	EndHour      string
	SlotCategory string
	WeekCount    int
	CourseName   string
	BookedBy     string
	Notes        string
}

// SubmitRequestParams wraps the data required to submit a request.
type SubmitRequestParams struct {
	Principal Principal
	Input     RequestInput
}

// ListRequestsParams filters a request listing. Non-admin principals only
// see their own requests.
type ListRequestsParams struct {
	Principal Principal
	Statuses  []persistence.RequestStatus
	RoomCode  string
	Limit     int
}

// ReviewParams identifies a request under review.
type ReviewParams struct {
	Principal Principal
	RequestID string
}

// RejectParams carries an optional rejection reason.
type RejectParams struct {
	Principal Principal
	RequestID string
	Reason    string
}

// RevertParams carries the confirmation token issued by PrepareRevert.
type RevertParams struct {
	Principal    Principal
	RequestID    string
	Confirmation string
}

// ApproveResult reports an approved request and the cells it now occupies.
type ApproveResult struct {
	Request persistence.RoomRequest
	Written int
}

// RevertPreview describes what a revert would remove.
type RevertPreview struct {
	Request      persistence.RoomRequest
	Cells        int
	Confirmation string
	ExpiresAt    time.Time
}

// RevertResult reports how many cells a revert removed.
type RevertResult struct {
	Request  persistence.RoomRequest
	Targeted int
	Deleted  int
	Failed   []scheduler.Cell
}

// DayViewParams selects a day grid.
type DayViewParams struct {
	Principal Principal
	Date      string
	Rooms     []string
}

// DayView is a decorated grid plus the cells the viewer cannot request.
type DayView struct {
	Grid    scheduler.DayGrid
	Blocked []scheduler.Cell
}

// EntryInput captures a direct edit of one confirmed cell.
type EntryInput struct {
	Date       string
	RoomCode   string
	SlotHour   string
	Status     persistence.EntryStatus
	CourseName string
	BookedBy   string
}

// SetEntryParams wraps a direct schedule edit.
type SetEntryParams struct {
	Principal Principal
	Input     EntryInput
}

// ClearEntryParams identifies a confirmed cell to clear.
type ClearEntryParams struct {
	Principal Principal
	Date      string
	RoomCode  string
	SlotHour  string
}

// RevertPolicy selects how a revert treats failed deletions.
type RevertPolicy string

const (
	// RevertBestEffort deletes what it can and still marks the request reverted.
	RevertBestEffort RevertPolicy = "best_effort"
	// RevertStrict leaves the request approved when any deletion fails.
	RevertStrict RevertPolicy = "strict"
)

// Valid reports whether p is a known policy.
func (p RevertPolicy) Valid() bool {
	return p == RevertBestEffort || p == RevertStrict
}
