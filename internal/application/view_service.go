package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/room-booking/internal/dates"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// ViewService renders the decorated day grid.
type ViewService struct {
	requests RequestStore
	schedule ScheduleStore
	engine   *scheduler.Engine
	logger   *slog.Logger
}

// NewViewService wires dependencies for schedule views.
func NewViewService(requests RequestStore, schedule ScheduleStore, engine *scheduler.Engine, logger *slog.Logger) *ViewService {
	if engine == nil {
		engine = scheduler.New(nil)
	}
	return &ViewService{requests: requests, schedule: schedule, engine: engine, logger: defaultLogger(logger)}
}

// Day overlays pending requests onto the confirmed schedule of a date and
// lists the cells the viewer's own pending requests already claim.
func (s *ViewService) Day(ctx context.Context, params DayViewParams) (DayView, error) {
	if s == nil {
		return DayView{}, fmt.Errorf("ViewService is nil")
	}
	if !dates.Valid(params.Date) {
		vErr := &ValidationError{}
		vErr.add("date", "date must be YYYY-MM-DD")
		return DayView{}, vErr
	}

	entries, err := s.schedule.ListEntriesByDate(ctx, params.Date)
	if err != nil {
		err = storeError(StoreRead, err)
		serviceLogger(ctx, s.logger, "ViewService", "Day", "date", params.Date).
			ErrorContext(ctx, "failed to load schedule", "error", err, "error_kind", ErrorKind(err))
		return DayView{}, err
	}
	pending, err := s.requests.ListRequests(ctx, persistence.RequestFilter{
		Statuses: []persistence.RequestStatus{persistence.RequestStatusPending},
	})
	if err != nil {
		err = storeError(StoreRead, err)
		serviceLogger(ctx, s.logger, "ViewService", "Day", "date", params.Date).
			ErrorContext(ctx, "failed to load pending requests", "error", err, "error_kind", ErrorKind(err))
		return DayView{}, err
	}

	view := DayView{
		Grid: s.engine.OverlayPending(params.Date, params.Rooms, entries, pending, params.Principal.UserID),
	}
	blocked := s.engine.RequesterBlocks(params.Principal.UserID, params.Date, pending)
	if len(params.Rooms) == 0 {
		view.Blocked = blocked
		return view, nil
	}
	wanted := make(map[string]struct{}, len(params.Rooms))
	for _, room := range params.Rooms {
		wanted[room] = struct{}{}
	}
	for _, cell := range blocked {
		if _, ok := wanted[cell.RoomCode]; ok {
			view.Blocked = append(view.Blocked, cell)
		}
	}
	return view, nil
}
