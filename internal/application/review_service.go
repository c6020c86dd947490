package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/room-booking/internal/lease"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// ReviewServiceConfig carries the optional collaborators of a ReviewService.
type ReviewServiceConfig struct {
	Locker       lease.Locker
	Confirmer    *Confirmer
	RevertPolicy RevertPolicy
	Logger       *slog.Logger
	Now          func() time.Time
}

// ReviewService approves, rejects and reverts room requests.
type ReviewService struct {
	requests RequestStore
	schedule ScheduleStore
	engine   *scheduler.Engine
	locker   lease.Locker
	confirm  *Confirmer
	policy   RevertPolicy
	logger   *slog.Logger
	now      func() time.Time
}

// NewReviewService wires dependencies for review operations.
func NewReviewService(requests RequestStore, schedule ScheduleStore, engine *scheduler.Engine, cfg ReviewServiceConfig) (*ReviewService, error) {
	if engine == nil {
		engine = scheduler.New(nil)
	}
	if cfg.Locker == nil {
		cfg.Locker = lease.NewLocal()
	}
	if cfg.Confirmer == nil {
		confirmer, err := NewConfirmer(nil, 0)
		if err != nil {
			return nil, err
		}
		cfg.Confirmer = confirmer
	}
	if cfg.RevertPolicy == "" {
		cfg.RevertPolicy = RevertBestEffort
	}
	if !cfg.RevertPolicy.Valid() {
		return nil, fmt.Errorf("unknown revert policy %q", cfg.RevertPolicy)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ReviewService{
		requests: requests,
		schedule: schedule,
		engine:   engine,
		locker:   cfg.Locker,
		confirm:  cfg.Confirmer,
		policy:   cfg.RevertPolicy,
		logger:   defaultLogger(cfg.Logger),
		now:      cfg.Now,
	}, nil
}

func (s *ReviewService) loggerFor(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReviewService", operation, attrs...)
}

// Approve writes every cell of a pending request as occupied and marks the
// request approved. Either all cells are written and the request is approved,
// or the schedule is left as it was found.
func (s *ReviewService) Approve(ctx context.Context, params ReviewParams) (result ApproveResult, err error) {
	if s == nil {
		return ApproveResult{}, fmt.Errorf("ReviewService is nil")
	}
	logger := s.loggerFor(ctx, "Approve", "request_id", params.RequestID, "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "approve failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "request approved", "cells", result.Written)
	}()

	if err := s.checkReviewer(params.Principal, params.RequestID); err != nil {
		return ApproveResult{}, err
	}

	release, err := s.acquire(ctx, params.RequestID)
	if err != nil {
		return ApproveResult{}, err
	}
	defer s.release(ctx, release, logger)

	req, err := s.requests.GetRequest(ctx, params.RequestID)
	if err != nil {
		return ApproveResult{}, storeError(StoreRead, err)
	}
	if err := transition(req, persistence.RequestStatusPending, persistence.RequestStatusApproved); err != nil {
		return ApproveResult{}, err
	}

	set, err := s.expand(req)
	if err != nil {
		return ApproveResult{}, err
	}

	// Every date is checked before the first write so that a conflict on a
	// later week leaves the schedule untouched.
	conflict, err := s.engine.CheckConflicts(ctx, s.schedule, set)
	if err != nil {
		return ApproveResult{}, storeError(StoreRead, err)
	}
	if conflict != nil {
		return ApproveResult{}, s.conflictError(conflict)
	}

	written := make([]writtenCell, 0, set.Len())
	for _, group := range set.Groups {
		entries, err := s.schedule.ListEntriesByDate(ctx, group.Date)
		if err != nil {
			s.rollback(ctx, logger, written)
			return ApproveResult{}, storeError(StoreRead, &scheduler.ReadError{Date: group.Date, Err: err})
		}
		if conflict := s.engine.CheckDate(group.Cells, entries); conflict != nil {
			s.rollback(ctx, logger, written)
			return ApproveResult{}, s.conflictError(conflict)
		}
		prior := s.emptyRows(entries)
		for _, cell := range group.Cells {
			entry := persistence.ScheduleEntry{
				ScheduleDate: cell.Date,
				RoomCode:     cell.RoomCode,
				SlotHour:     cell.SlotHour,
				Status:       persistence.EntryStatusOccupied,
				CourseName:   req.CourseName,
				BookedBy:     req.BookedBy,
			}
			if err := s.schedule.InsertEntry(ctx, entry); err != nil {
				s.rollback(ctx, logger, written)
				return ApproveResult{}, &StoreError{Kind: StoreWrite, Err: fmt.Errorf("write %s %s %s: %w", cell.Date, cell.RoomCode, cell.SlotHour, err)}
			}
			w := writtenCell{Cell: cell}
			if row, ok := prior[cell.RoomCode+"/"+cell.SlotHour]; ok {
				w.prior = &row
			}
			written = append(written, w)
		}
	}

	updated, err := s.requests.UpdateRequestStatus(ctx, persistence.StatusUpdate{
		ID:           req.ID,
		From:         persistence.RequestStatusPending,
		To:           persistence.RequestStatusApproved,
		ReviewerID:   params.Principal.UserID,
		ReviewerName: params.Principal.DisplayName,
		ReviewedAt:   s.now(),
	})
	if err != nil {
		s.rollback(ctx, logger, written)
		return ApproveResult{}, s.statusError(ctx, req.ID, persistence.RequestStatusPending, persistence.RequestStatusApproved, err)
	}

	return ApproveResult{Request: updated, Written: len(written)}, nil
}

// Reject marks a pending request rejected. The schedule is not touched.
func (s *ReviewService) Reject(ctx context.Context, params RejectParams) (req persistence.RoomRequest, err error) {
	if s == nil {
		return persistence.RoomRequest{}, fmt.Errorf("ReviewService is nil")
	}
	logger := s.loggerFor(ctx, "Reject", "request_id", params.RequestID, "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "reject failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "request rejected")
	}()

	if err := s.checkReviewer(params.Principal, params.RequestID); err != nil {
		return persistence.RoomRequest{}, err
	}

	release, err := s.acquire(ctx, params.RequestID)
	if err != nil {
		return persistence.RoomRequest{}, err
	}
	defer s.release(ctx, release, logger)

	current, err := s.requests.GetRequest(ctx, params.RequestID)
	if err != nil {
		return persistence.RoomRequest{}, storeError(StoreRead, err)
	}
	if err := transition(current, persistence.RequestStatusPending, persistence.RequestStatusRejected); err != nil {
		return persistence.RoomRequest{}, err
	}

	updated, err := s.requests.UpdateRequestStatus(ctx, persistence.StatusUpdate{
		ID:           current.ID,
		From:         persistence.RequestStatusPending,
		To:           persistence.RequestStatusRejected,
		ReviewerID:   params.Principal.UserID,
		ReviewerName: params.Principal.DisplayName,
		Reason:       params.Reason,
		ReviewedAt:   s.now(),
	})
	if err != nil {
		return persistence.RoomRequest{}, s.statusError(ctx, current.ID, persistence.RequestStatusPending, persistence.RequestStatusRejected, err)
	}
	return updated, nil
}

// PrepareRevert reports how many cells a revert would remove and issues the
// confirmation token Revert requires.
func (s *ReviewService) PrepareRevert(ctx context.Context, params ReviewParams) (RevertPreview, error) {
	if s == nil {
		return RevertPreview{}, fmt.Errorf("ReviewService is nil")
	}
	if err := s.checkReviewer(params.Principal, params.RequestID); err != nil {
		return RevertPreview{}, err
	}

	req, err := s.requests.GetRequest(ctx, params.RequestID)
	if err != nil {
		return RevertPreview{}, storeError(StoreRead, err)
	}
	if err := transition(req, persistence.RequestStatusApproved, persistence.RequestStatusReverted); err != nil {
		return RevertPreview{}, err
	}
	set, err := s.expand(req)
	if err != nil {
		return RevertPreview{}, err
	}

	token, expires := s.confirm.Issue(req.ID, params.Principal.UserID)
	return RevertPreview{Request: req, Cells: set.Len(), Confirmation: token, ExpiresAt: expires}, nil
}

// Revert removes the cells of an approved request and marks it reverted.
// Deletions continue past individual failures; under RevertStrict any failure
// leaves the request approved.
func (s *ReviewService) Revert(ctx context.Context, params RevertParams) (result RevertResult, err error) {
	if s == nil {
		return RevertResult{}, fmt.Errorf("ReviewService is nil")
	}
	logger := s.loggerFor(ctx, "Revert", "request_id", params.RequestID, "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "revert failed", "error", err, "error_kind", ErrorKind(err), "deleted", result.Deleted, "targeted", result.Targeted)
			return
		}
		logger.InfoContext(ctx, "request reverted", "deleted", result.Deleted, "targeted", result.Targeted)
	}()

	if err := s.checkReviewer(params.Principal, params.RequestID); err != nil {
		return RevertResult{}, err
	}
	if err := s.confirm.Verify(params.Confirmation, params.RequestID, params.Principal.UserID); err != nil {
		return RevertResult{}, err
	}

	release, err := s.acquire(ctx, params.RequestID)
	if err != nil {
		return RevertResult{}, err
	}
	defer s.release(ctx, release, logger)

	req, err := s.requests.GetRequest(ctx, params.RequestID)
	if err != nil {
		return RevertResult{}, storeError(StoreRead, err)
	}
	if err := transition(req, persistence.RequestStatusApproved, persistence.RequestStatusReverted); err != nil {
		return RevertResult{}, err
	}
	set, err := s.expand(req)
	if err != nil {
		return RevertResult{}, err
	}

	result = RevertResult{Request: req, Targeted: set.Len()}
	var firstErr error
	for _, cell := range set.Cells() {
		if err := s.schedule.DeleteEntry(ctx, cell.Date, cell.RoomCode, cell.SlotHour); err != nil {
			logger.WarnContext(ctx, "failed to delete cell", "date", cell.Date, "room", cell.RoomCode, "slot", cell.SlotHour, "error", err)
			result.Failed = append(result.Failed, cell)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		result.Deleted++
	}

	if firstErr != nil && s.policy == RevertStrict {
		return result, &StoreError{Kind: StoreWrite, Err: fmt.Errorf("%d of %d cells not deleted: %w", len(result.Failed), result.Targeted, firstErr)}
	}

	updated, err := s.requests.UpdateRequestStatus(ctx, persistence.StatusUpdate{
		ID:           req.ID,
		From:         persistence.RequestStatusApproved,
		To:           persistence.RequestStatusReverted,
		ReviewerID:   params.Principal.UserID,
		ReviewerName: params.Principal.DisplayName,
		ReviewedAt:   s.now(),
	})
	if err != nil {
		return result, s.statusError(ctx, req.ID, persistence.RequestStatusApproved, persistence.RequestStatusReverted, err)
	}
	result.Request = updated
	return result, nil
}

func (s *ReviewService) checkReviewer(principal Principal, requestID string) error {
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if requestID == "" {
		vErr := &ValidationError{}
		vErr.add("id", "request id is required")
		return vErr
	}
	return nil
}

func (s *ReviewService) acquire(ctx context.Context, requestID string) (lease.Release, error) {
	release, err := s.locker.Acquire(ctx, "request:"+requestID)
	if err != nil {
		if errors.Is(err, lease.ErrHeld) {
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("acquire review lease: %w", err)
	}
	return release, nil
}

func (s *ReviewService) release(ctx context.Context, release lease.Release, logger *slog.Logger) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		logger.WarnContext(ctx, "failed to release review lease", "error", err)
	}
}

func (s *ReviewService) expand(req persistence.RoomRequest) (scheduler.CellSet, error) {
	set, err := s.engine.Expand(req)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("request", err.Error())
		return scheduler.CellSet{}, vErr
	}
	return set, nil
}

// writtenCell is a cell written by approve and the empty row it replaced,
// if any.
type writtenCell struct {
	scheduler.Cell
	prior *persistence.ScheduleEntry
}

// emptyRows indexes the date's empty rows, the ones InsertEntry overwrites, by
// room and canonical slot.
func (s *ReviewService) emptyRows(entries []persistence.ScheduleEntry) map[string]persistence.ScheduleEntry {
	catalog := s.engine.Catalog()
	rows := make(map[string]persistence.ScheduleEntry)
	for _, entry := range entries {
		if entry.Status != persistence.EntryStatusEmpty {
			continue
		}
		rows[entry.RoomCode+"/"+catalog.NormalizeForRoom(entry.RoomCode, entry.SlotHour)] = entry
	}
	return rows
}

// rollback undoes written cells newest first: replaced empty rows are written
// back, every other cell is deleted. It runs even when ctx has been cancelled.
func (s *ReviewService) rollback(ctx context.Context, logger *slog.Logger, written []writtenCell) {
	if len(written) == 0 {
		return
	}
	cleanup := context.WithoutCancel(ctx)
	failed := 0
	for i := len(written) - 1; i >= 0; i-- {
		cell := written[i]
		var err error
		if cell.prior != nil {
			err = s.schedule.UpsertEntry(cleanup, *cell.prior)
		} else {
			err = s.schedule.DeleteEntry(cleanup, cell.Date, cell.RoomCode, cell.SlotHour)
		}
		if err != nil {
			failed++
			logger.ErrorContext(ctx, "rollback failed", "date", cell.Date, "room", cell.RoomCode, "slot", cell.SlotHour, "error", err)
		}
	}
	logger.InfoContext(ctx, "approve rolled back", "cells", len(written), "failed", failed)
}

func (s *ReviewService) conflictError(c *scheduler.Conflict) *ConflictError {
	return &ConflictError{
		Room:      c.RoomCode,
		Date:      c.Date,
		Slot:      c.SlotHour,
		SlotLabel: c.SlotLabel,
		Status:    string(c.Status),
	}
}

// statusError maps a failed status write. A compare-and-set miss is reported
// as a StateError carrying the status found on re-read.
func (s *ReviewService) statusError(ctx context.Context, id string, from, to persistence.RequestStatus, err error) error {
	if errors.Is(err, persistence.ErrStatusMismatch) {
		actual := persistence.RequestStatus("unknown")
		if current, getErr := s.requests.GetRequest(ctx, id); getErr == nil {
			actual = current.Status
		}
		return &StateError{From: from, To: to, Actual: actual}
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	return &StoreError{Kind: StoreStatus, Err: err}
}
