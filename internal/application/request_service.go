package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/room-booking/internal/dates"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
	"github.com/example/room-booking/internal/slots"
)

// DefaultMaxWeeks bounds how many weeks a single request may repeat.
const DefaultMaxWeeks = 52

// RequestServiceConfig carries the optional collaborators of a RequestService.
type RequestServiceConfig struct {
	MaxWeeks    int
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// RequestService submits and lists room requests.
type RequestService struct {
	requests    RequestStore
	schedule    ScheduleStore
	engine      *scheduler.Engine
	maxWeeks    int
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRequestService wires dependencies for request operations.
func NewRequestService(requests RequestStore, schedule ScheduleStore, engine *scheduler.Engine, cfg RequestServiceConfig) *RequestService {
	if engine == nil {
		engine = scheduler.New(nil)
	}
	if cfg.MaxWeeks <= 0 {
		cfg.MaxWeeks = DefaultMaxWeeks
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = uuid.NewString
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RequestService{
		requests:    requests,
		schedule:    schedule,
		engine:      engine,
		maxWeeks:    cfg.MaxWeeks,
		idGenerator: cfg.IDGenerator,
		now:         cfg.Now,
		logger:      defaultLogger(cfg.Logger),
	}
}

// Submit validates and stores a new pending request. A request that overlaps
// the requester's own pending requests, or confirmed occupancy, is refused.
func (s *RequestService) Submit(ctx context.Context, params SubmitRequestParams) (req persistence.RoomRequest, err error) {
	if s == nil {
		return persistence.RoomRequest{}, fmt.Errorf("RequestService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "RequestService", "Submit", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "request submission failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("request_id", req.ID).InfoContext(ctx, "request submitted")
	}()

	if params.Principal.UserID == "" {
		return persistence.RoomRequest{}, ErrUnauthorized
	}

	candidate, vErr := s.buildRequest(params)
	if vErr.HasErrors() {
		return persistence.RoomRequest{}, vErr
	}

	set, err := s.engine.Expand(candidate)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("request", err.Error())
		return persistence.RoomRequest{}, vErr
	}

	own, err := s.requests.ListRequests(ctx, persistence.RequestFilter{
		Statuses:    []persistence.RequestStatus{persistence.RequestStatusPending},
		RequesterID: candidate.RequesterID,
	})
	if err != nil {
		return persistence.RoomRequest{}, storeError(StoreRead, err)
	}
	if cell, other, ok := s.engine.FirstOverlap(set, own); ok {
		return persistence.RoomRequest{}, &ConflictError{
			Room:      cell.RoomCode,
			Date:      cell.Date,
			Slot:      cell.SlotHour,
			SlotLabel: s.engine.Catalog().Label(cell.SlotHour),
			Status:    string(persistence.EntryStatusPending),
			RequestID: other.ID,
		}
	}

	if s.schedule != nil {
		conflict, err := s.engine.CheckConflicts(ctx, s.schedule, set)
		if err != nil {
			return persistence.RoomRequest{}, storeError(StoreRead, err)
		}
		if conflict != nil {
			return persistence.RoomRequest{}, &ConflictError{
				Room:      conflict.RoomCode,
				Date:      conflict.Date,
				Slot:      conflict.SlotHour,
				SlotLabel: conflict.SlotLabel,
				Status:    string(conflict.Status),
			}
		}
	}

	if err := s.requests.CreateRequest(ctx, candidate); err != nil {
		return persistence.RoomRequest{}, mapRequestRepoError(err)
	}
	return candidate, nil
}

func (s *RequestService) buildRequest(params SubmitRequestParams) (persistence.RoomRequest, *ValidationError) {
	input := params.Input
	catalog := s.engine.Catalog()
	vErr := &ValidationError{}

	room := strings.TrimSpace(input.RoomCode)
	if room == "" {
		vErr.add("room_code", "room code is required")
	}
	if !dates.Valid(input.BaseDate) {
		vErr.add("base_date", "base date must be YYYY-MM-DD")
	}
	if input.WeekCount < 1 || input.WeekCount > s.maxWeeks {
		vErr.add("week_count", fmt.Sprintf("week count must be between 1 and %d", s.maxWeeks))
	}

	category := catalog.RoomCategory(room)
	if input.SlotCategory != "" {
		category = slots.Category(input.SlotCategory)
		if !category.Valid() {
			vErr.add("slot_category", "unknown slot category")
		}
	}

	start := catalog.NormalizeIn(input.StartHour, category)
	end := catalog.NormalizeIn(input.EndHour, category)
	if cat, ok := catalog.Category(start); !ok || cat != category {
		vErr.add("start_hour", fmt.Sprintf("slot %q is not a %s slot", input.StartHour, category))
	}
	if cat, ok := catalog.Category(end); !ok || cat != category {
		vErr.add("end_hour", fmt.Sprintf("slot %q is not a %s slot", input.EndHour, category))
	}

	if vErr.HasErrors() {
		return persistence.RoomRequest{}, vErr
	}

	createdAt := s.now()
	return persistence.RoomRequest{
		ID:            s.idGenerator(),
		RequesterID:   params.Principal.UserID,
		RequesterName: params.Principal.DisplayName,
		RoomCode:      room,
		BuildingCode:  strings.TrimSpace(input.BuildingCode),
		BaseDate:      input.BaseDate,
		StartHour:     start,
		EndHour:       end,
		SlotCategory:  string(category),
		WeekCount:     input.WeekCount,
		CourseName:    strings.TrimSpace(input.CourseName),
		BookedBy:      strings.TrimSpace(input.BookedBy),
		Notes:         input.Notes,
		Status:        persistence.RequestStatusPending,
		CreatedAt:     createdAt,
	}, vErr
}

// List returns requests newest first. Non-admin principals only see their own.
func (s *RequestService) List(ctx context.Context, params ListRequestsParams) ([]persistence.RoomRequest, error) {
	if s == nil {
		return nil, fmt.Errorf("RequestService is nil")
	}
	if params.Principal.UserID == "" {
		return nil, ErrUnauthorized
	}

	vErr := &ValidationError{}
	for _, status := range params.Statuses {
		if !status.Valid() {
			vErr.add("status", fmt.Sprintf("unknown status %q", status))
		}
	}
	if params.Limit < 0 {
		vErr.add("limit", "limit must not be negative")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	filter := persistence.RequestFilter{
		Statuses: params.Statuses,
		RoomCode: params.RoomCode,
		Limit:    params.Limit,
	}
	if !params.Principal.IsAdmin {
		filter.RequesterID = params.Principal.UserID
	}

	requests, err := s.requests.ListRequests(ctx, filter)
	if err != nil {
		return nil, storeError(StoreRead, err)
	}
	return requests, nil
}

// Get returns one request. Non-admin principals may only read their own.
func (s *RequestService) Get(ctx context.Context, principal Principal, id string) (persistence.RoomRequest, error) {
	if s == nil {
		return persistence.RoomRequest{}, fmt.Errorf("RequestService is nil")
	}
	if principal.UserID == "" {
		return persistence.RoomRequest{}, ErrUnauthorized
	}
	req, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return persistence.RoomRequest{}, storeError(StoreRead, err)
	}
	if !principal.IsAdmin && req.RequesterID != principal.UserID {
		return persistence.RoomRequest{}, ErrNotFound
	}
	return req, nil
}

func mapRequestRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		vErr := &ValidationError{}
		vErr.add("id", "request already exists")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("request", "request violates store constraints")
		return vErr
	}
	return storeError(StoreWrite, err)
}
