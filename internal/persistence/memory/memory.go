// Package memory provides map-backed schedule and request stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

type entryKey struct {
	date string
	room string
	slot string
}

// Storage keeps schedule entries and requests in memory.
type Storage struct {
	mu        sync.RWMutex
	entries   map[entryKey]persistence.ScheduleEntry
	requests  map[string]persistence.RoomRequest
	normalize persistence.SlotNormalizer
	now       func() time.Time
}

// Option configures a Storage.
type Option func(*Storage)

// WithSlotNormalizer maps slot identifier variants onto canonical identifiers
// on every read and write.
func WithSlotNormalizer(fn persistence.SlotNormalizer) Option {
	return func(s *Storage) {
		if fn != nil {
			s.normalize = fn
		}
	}
}

// WithNow overrides the clock used for UpdatedAt stamps.
func WithNow(fn func() time.Time) Option {
	return func(s *Storage) {
		if fn != nil {
			s.now = fn
		}
	}
}

// New returns an empty Storage.
func New(opts ...Option) *Storage {
	s := &Storage{
		entries:   make(map[entryKey]persistence.ScheduleEntry),
		requests:  make(map[string]persistence.RoomRequest),
		normalize: persistence.TrimSlot,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) key(date, room, slot string) entryKey {
	return entryKey{date: date, room: room, slot: s.normalize(room, slot)}
}

// --- ScheduleStore implementation ---

// ListEntriesByDate returns the date's entries ordered by room then slot.
func (s *Storage) ListEntriesByDate(ctx context.Context, date string) ([]persistence.ScheduleEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []persistence.ScheduleEntry
	for key, entry := range s.entries {
		if key.date == date {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoomCode == out[j].RoomCode {
			return out[i].SlotHour < out[j].SlotHour
		}
		return out[i].RoomCode < out[j].RoomCode
	})
	return out, nil
}

// UpsertEntry writes the entry, replacing any existing cell.
func (s *Storage) UpsertEntry(ctx context.Context, entry persistence.ScheduleEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateEntry(entry); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(entry.ScheduleDate, entry.RoomCode, entry.SlotHour)
	s.entries[key] = s.stamp(entry, key)
	return nil
}

// InsertEntry writes the entry unless a non-empty cell already holds the key.
func (s *Storage) InsertEntry(ctx context.Context, entry persistence.ScheduleEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateEntry(entry); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(entry.ScheduleDate, entry.RoomCode, entry.SlotHour)
	if existing, ok := s.entries[key]; ok && existing.Status != persistence.EntryStatusEmpty {
		return fmt.Errorf("memory: cell %s/%s/%s: %w", key.date, key.room, key.slot, persistence.ErrDuplicate)
	}
	s.entries[key] = s.stamp(entry, key)
	return nil
}

// DeleteEntry removes a cell if present.
func (s *Storage) DeleteEntry(ctx context.Context, date, roomCode, slotHour string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, s.key(date, roomCode, slotHour))
	return nil
}

func (s *Storage) stamp(entry persistence.ScheduleEntry, key entryKey) persistence.ScheduleEntry {
	entry.SlotHour = key.slot
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = s.now().UTC()
	}
	return entry
}

func validateEntry(entry persistence.ScheduleEntry) error {
	if entry.ScheduleDate == "" || entry.RoomCode == "" || strings.TrimSpace(entry.SlotHour) == "" {
		return persistence.ErrConstraintViolation
	}
	if !entry.Status.Valid() || entry.Status == persistence.EntryStatusPending {
		return persistence.ErrConstraintViolation
	}
	return nil
}

// --- RequestStore implementation ---

// CreateRequest stores a new request.
func (s *Storage) CreateRequest(ctx context.Context, req persistence.RoomRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req.ID == "" || req.WeekCount < 1 || !req.Status.Valid() {
		return persistence.ErrConstraintViolation
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[req.ID]; ok {
		return fmt.Errorf("memory: request %s: %w", req.ID, persistence.ErrDuplicate)
	}
	req.StartHour = s.normalize(req.RoomCode, req.StartHour)
	req.EndHour = s.normalize(req.RoomCode, req.EndHour)
	s.requests[req.ID] = cloneRequest(req)
	return nil
}

// GetRequest retrieves a request by ID.
func (s *Storage) GetRequest(ctx context.Context, id string) (persistence.RoomRequest, error) {
	if err := ctx.Err(); err != nil {
		return persistence.RoomRequest{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return persistence.RoomRequest{}, persistence.ErrNotFound
	}
	return cloneRequest(req), nil
}

// ListRequests returns matching requests, newest first.
func (s *Storage) ListRequests(ctx context.Context, filter persistence.RequestFilter) ([]persistence.RoomRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.RoomRequest, 0, len(s.requests))
	for _, req := range s.requests {
		if filter.Matches(req) {
			out = append(out, cloneRequest(req))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// UpdateRequestStatus applies a compare-and-set status transition.
func (s *Storage) UpdateRequestStatus(ctx context.Context, update persistence.StatusUpdate) (persistence.RoomRequest, error) {
	if err := ctx.Err(); err != nil {
		return persistence.RoomRequest{}, err
	}
	if !update.To.Valid() {
		return persistence.RoomRequest{}, persistence.ErrConstraintViolation
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[update.ID]
	if !ok {
		return persistence.RoomRequest{}, persistence.ErrNotFound
	}
	if req.Status != update.From {
		return persistence.RoomRequest{}, fmt.Errorf("memory: request %s is %s: %w", req.ID, req.Status, persistence.ErrStatusMismatch)
	}

	reviewedAt := update.ReviewedAt
	req.Status = update.To
	req.ReviewerID = update.ReviewerID
	req.ReviewerName = update.ReviewerName
	req.RejectionReason = update.Reason
	req.ReviewedAt = &reviewedAt
	s.requests[req.ID] = req
	return cloneRequest(req), nil
}

func cloneRequest(req persistence.RoomRequest) persistence.RoomRequest {
	clone := req
	if req.ReviewedAt != nil {
		t := *req.ReviewedAt
		clone.ReviewedAt = &t
	}
	return clone
}
