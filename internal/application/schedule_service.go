package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/room-booking/internal/dates"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// ScheduleService edits confirmed schedule cells directly.
type ScheduleService struct {
	schedule ScheduleStore
	engine   *scheduler.Engine
	logger   *slog.Logger
}

// NewScheduleService wires dependencies for direct schedule edits.
func NewScheduleService(schedule ScheduleStore, engine *scheduler.Engine, logger *slog.Logger) *ScheduleService {
	if engine == nil {
		engine = scheduler.New(nil)
	}
	return &ScheduleService{schedule: schedule, engine: engine, logger: defaultLogger(logger)}
}

// SetEntry writes one confirmed cell, replacing whatever was there.
func (s *ScheduleService) SetEntry(ctx context.Context, params SetEntryParams) (persistence.ScheduleEntry, error) {
	if s == nil {
		return persistence.ScheduleEntry{}, fmt.Errorf("ScheduleService is nil")
	}
	if !params.Principal.IsAdmin {
		return persistence.ScheduleEntry{}, ErrUnauthorized
	}
	input := params.Input
	logger := serviceLogger(ctx, s.logger, "ScheduleService", "SetEntry",
		"principal_id", params.Principal.UserID, "date", input.Date, "room", input.RoomCode, "slot", input.SlotHour)

	vErr := &ValidationError{}
	slot := s.validateCell(input.Date, input.RoomCode, input.SlotHour, vErr)
	switch input.Status {
	case persistence.EntryStatusOccupied, persistence.EntryStatusMaintenance, persistence.EntryStatusEmpty:
	default:
		vErr.add("status", "status must be occupied, maintenance or empty")
	}
	if vErr.HasErrors() {
		return persistence.ScheduleEntry{}, vErr
	}

	entry := persistence.ScheduleEntry{
		ScheduleDate: input.Date,
		RoomCode:     strings.TrimSpace(input.RoomCode),
		SlotHour:     slot,
		Status:       input.Status,
		CourseName:   strings.TrimSpace(input.CourseName),
		BookedBy:     strings.TrimSpace(input.BookedBy),
	}
	if err := s.schedule.UpsertEntry(ctx, entry); err != nil {
		err = mapScheduleRepoError(err)
		logger.ErrorContext(ctx, "failed to set schedule entry", "error", err, "error_kind", ErrorKind(err))
		return persistence.ScheduleEntry{}, err
	}
	logger.InfoContext(ctx, "schedule entry set", "status", entry.Status)
	return entry, nil
}

// ClearEntry removes one confirmed cell. Clearing an absent cell succeeds.
func (s *ScheduleService) ClearEntry(ctx context.Context, params ClearEntryParams) error {
	if s == nil {
		return fmt.Errorf("ScheduleService is nil")
	}
	if !params.Principal.IsAdmin {
		return ErrUnauthorized
	}
	logger := serviceLogger(ctx, s.logger, "ScheduleService", "ClearEntry",
		"principal_id", params.Principal.UserID, "date", params.Date, "room", params.RoomCode, "slot", params.SlotHour)

	vErr := &ValidationError{}
	slot := s.validateCell(params.Date, params.RoomCode, params.SlotHour, vErr)
	if vErr.HasErrors() {
		return vErr
	}

	if err := s.schedule.DeleteEntry(ctx, params.Date, strings.TrimSpace(params.RoomCode), slot); err != nil {
		err = mapScheduleRepoError(err)
		logger.ErrorContext(ctx, "failed to clear schedule entry", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "schedule entry cleared")
	return nil
}

func (s *ScheduleService) validateCell(date, room, slot string, vErr *ValidationError) string {
	if !dates.Valid(date) {
		vErr.add("date", "date must be YYYY-MM-DD")
	}
	if strings.TrimSpace(room) == "" {
		vErr.add("room_code", "room code is required")
	}
	normalized := s.engine.Catalog().NormalizeForRoom(strings.TrimSpace(room), slot)
	if _, ok := s.engine.Catalog().Category(normalized); !ok {
		vErr.add("slot_hour", fmt.Sprintf("unknown slot %q", slot))
	}
	return normalized
}

func mapScheduleRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("status", "entry violates store constraints")
		return vErr
	}
	return storeError(StoreWrite, err)
}
