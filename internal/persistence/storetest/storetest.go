// Package storetest holds behaviour checks shared by every store
// implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// Store is the combination every backend provides.
type Store interface {
	persistence.ScheduleStore
	persistence.RequestStore
}

// Factory returns a fresh, empty store for one test.
type Factory func(t *testing.T) Store

var base = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

func request(id string, created time.Time) persistence.RoomRequest {
	return persistence.RoomRequest{
		ID:           id,
		RequesterID:  "teacher-1",
		RoomCode:     "301",
		BuildingCode: "B1",
		BaseDate:     "2025-03-03",
		StartHour:    "7",
		EndHour:      "9",
		WeekCount:    2,
		CourseName:   "Algebra",
		BookedBy:     "Ms. Tanaka",
		Status:       persistence.RequestStatusPending,
		CreatedAt:    created,
	}
}

// Run executes the shared checks against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("schedule entries", func(t *testing.T) { testScheduleEntries(t, newStore(t)) })
	t.Run("conditional insert", func(t *testing.T) { testInsertEntry(t, newStore(t)) })
	t.Run("request lifecycle", func(t *testing.T) { testRequestLifecycle(t, newStore(t)) })
	t.Run("request listing", func(t *testing.T) { testListRequests(t, newStore(t)) })
}

func testScheduleEntries(t *testing.T, store Store) {
	ctx := context.Background()

	entry := persistence.ScheduleEntry{
		ScheduleDate: "2025-03-03",
		RoomCode:     "301",
		SlotHour:     "7",
		Status:       persistence.EntryStatusOccupied,
		CourseName:   "Algebra",
		BookedBy:     "Ms. Tanaka",
	}
	if err := store.UpsertEntry(ctx, entry); err != nil {
		t.Fatalf("UpsertEntry failed: %v", err)
	}
	other := entry
	other.ScheduleDate = "2025-03-04"
	if err := store.UpsertEntry(ctx, other); err != nil {
		t.Fatalf("UpsertEntry failed: %v", err)
	}

	entries, err := store.ListEntriesByDate(ctx, "2025-03-03")
	if err != nil {
		t.Fatalf("ListEntriesByDate failed: %v", err)
	}
	if len(entries) != 1 || entries[0].CourseName != "Algebra" || entries[0].Status != persistence.EntryStatusOccupied {
		t.Fatalf("unexpected entries: %#v", entries)
	}

	entry.Status = persistence.EntryStatusMaintenance
	entry.CourseName = ""
	if err := store.UpsertEntry(ctx, entry); err != nil {
		t.Fatalf("UpsertEntry overwrite failed: %v", err)
	}
	entries = listEntries(t, store, "2025-03-03")
	if len(entries) != 1 || entries[0].Status != persistence.EntryStatusMaintenance {
		t.Fatalf("expected upsert to replace the cell, got %#v", entries)
	}

	if err := store.DeleteEntry(ctx, "2025-03-03", "301", "7"); err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}
	if err := store.DeleteEntry(ctx, "2025-03-03", "301", "7"); err != nil {
		t.Fatalf("expected deleting an absent cell to succeed, got %v", err)
	}
	entries = listEntries(t, store, "2025-03-03")
	if len(entries) != 0 {
		t.Fatalf("expected no entries after delete, got %#v", entries)
	}

	pending := entry
	pending.Status = persistence.EntryStatusPending
	if err := store.UpsertEntry(ctx, pending); err == nil {
		t.Fatalf("expected pending status to be rejected by the store")
	}
}

func testInsertEntry(t *testing.T, store Store) {
	ctx := context.Background()

	entry := persistence.ScheduleEntry{
		ScheduleDate: "2025-03-10",
		RoomCode:     "301",
		SlotHour:     "8",
		Status:       persistence.EntryStatusOccupied,
		CourseName:   "Physics",
	}
	if err := store.InsertEntry(ctx, entry); err != nil {
		t.Fatalf("InsertEntry failed: %v", err)
	}

	second := entry
	second.CourseName = "Chemistry"
	if err := store.InsertEntry(ctx, second); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	entries := listEntries(t, store, "2025-03-10")
	if len(entries) != 1 || entries[0].CourseName != "Physics" {
		t.Fatalf("expected original entry to survive, got %#v", entries)
	}

	cleared := entry
	cleared.SlotHour = "9"
	cleared.Status = persistence.EntryStatusEmpty
	cleared.CourseName = ""
	if err := store.UpsertEntry(ctx, cleared); err != nil {
		t.Fatalf("UpsertEntry failed: %v", err)
	}
	claim := cleared
	claim.Status = persistence.EntryStatusOccupied
	claim.CourseName = "Biology"
	if err := store.InsertEntry(ctx, claim); err != nil {
		t.Fatalf("expected insert over an empty row to succeed, got %v", err)
	}
}

func testRequestLifecycle(t *testing.T, store Store) {
	ctx := context.Background()

	req := request("req-1", base)
	if err := store.CreateRequest(ctx, req); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	if err := store.CreateRequest(ctx, req); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for repeated id, got %v", err)
	}

	fetched, err := store.GetRequest(ctx, "req-1")
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if fetched.RoomCode != "301" || fetched.WeekCount != 2 || fetched.Status != persistence.RequestStatusPending {
		t.Fatalf("unexpected request: %#v", fetched)
	}
	if !fetched.CreatedAt.Equal(base) {
		t.Fatalf("expected created at %v, got %v", base, fetched.CreatedAt)
	}
	if fetched.ReviewedAt != nil {
		t.Fatalf("expected no review timestamp, got %v", fetched.ReviewedAt)
	}

	if _, err := store.GetRequest(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	reviewedAt := base.Add(time.Hour)
	updated, err := store.UpdateRequestStatus(ctx, persistence.StatusUpdate{
		ID:           "req-1",
		From:         persistence.RequestStatusPending,
		To:           persistence.RequestStatusApproved,
		ReviewerID:   "admin-1",
		ReviewerName: "Admin",
		ReviewedAt:   reviewedAt,
	})
	if err != nil {
		t.Fatalf("UpdateRequestStatus failed: %v", err)
	}
	if updated.Status != persistence.RequestStatusApproved || updated.ReviewerID != "admin-1" {
		t.Fatalf("unexpected updated request: %#v", updated)
	}
	if updated.ReviewedAt == nil || !updated.ReviewedAt.Equal(reviewedAt) {
		t.Fatalf("expected reviewed at %v, got %v", reviewedAt, updated.ReviewedAt)
	}

	_, err = store.UpdateRequestStatus(ctx, persistence.StatusUpdate{
		ID:   "req-1",
		From: persistence.RequestStatusPending,
		To:   persistence.RequestStatusRejected,
	})
	if !errors.Is(err, persistence.ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch, got %v", err)
	}
	fetched, err = store.GetRequest(ctx, "req-1")
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if fetched.Status != persistence.RequestStatusApproved {
		t.Fatalf("expected status to stay approved, got %s", fetched.Status)
	}

	_, err = store.UpdateRequestStatus(ctx, persistence.StatusUpdate{
		ID:   "missing",
		From: persistence.RequestStatusPending,
		To:   persistence.RequestStatusRejected,
	})
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testListRequests(t *testing.T, store Store) {
	ctx := context.Background()

	first := request("req-a", base)
	second := request("req-b", base.Add(time.Minute))
	second.RequesterID = "teacher-2"
	third := request("req-c", base.Add(2*time.Minute))
	third.RoomCode = "302"
	third.Status = persistence.RequestStatusRejected

	for _, req := range []persistence.RoomRequest{first, second, third} {
		if err := store.CreateRequest(ctx, req); err != nil {
			t.Fatalf("CreateRequest(%s) failed: %v", req.ID, err)
		}
	}

	all, err := store.ListRequests(ctx, persistence.RequestFilter{})
	if err != nil {
		t.Fatalf("ListRequests failed: %v", err)
	}
	if ids := requestIDs(all); !equal(ids, []string{"req-c", "req-b", "req-a"}) {
		t.Fatalf("expected newest first, got %v", ids)
	}

	pending := listRequests(t, store, persistence.RequestFilter{Statuses: []persistence.RequestStatus{persistence.RequestStatusPending}})
	if ids := requestIDs(pending); !equal(ids, []string{"req-b", "req-a"}) {
		t.Fatalf("unexpected pending listing %v", ids)
	}

	mine := listRequests(t, store, persistence.RequestFilter{RequesterID: "teacher-2"})
	if ids := requestIDs(mine); !equal(ids, []string{"req-b"}) {
		t.Fatalf("unexpected requester listing %v", ids)
	}

	room := listRequests(t, store, persistence.RequestFilter{RoomCode: "302"})
	if ids := requestIDs(room); !equal(ids, []string{"req-c"}) {
		t.Fatalf("unexpected room listing %v", ids)
	}

	limited := listRequests(t, store, persistence.RequestFilter{Limit: 1})
	if ids := requestIDs(limited); !equal(ids, []string{"req-c"}) {
		t.Fatalf("unexpected limited listing %v", ids)
	}
}

func listEntries(t *testing.T, store Store, date string) []persistence.ScheduleEntry {
	t.Helper()
	entries, err := store.ListEntriesByDate(context.Background(), date)
	if err != nil {
		t.Fatalf("ListEntriesByDate(%s) failed: %v", date, err)
	}
	return entries
}

func listRequests(t *testing.T, store Store, filter persistence.RequestFilter) []persistence.RoomRequest {
	t.Helper()
	reqs, err := store.ListRequests(context.Background(), filter)
	if err != nil {
		t.Fatalf("ListRequests(%+v) failed: %v", filter, err)
	}
	return reqs
}

func requestIDs(reqs []persistence.RoomRequest) []string {
	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		ids = append(ids, req.ID)
	}
	return ids
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
