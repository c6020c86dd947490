package scheduler

import (
	"reflect"
	"testing"

	"github.com/example/room-booking/internal/persistence"
)

func findCell(t *testing.T, grid DayGrid, room, slot string) GridCell {
	t.Helper()
	for _, row := range grid.Rows {
		if row.RoomCode != room {
			continue
		}
		for _, cell := range row.Cells {
			if cell.SlotHour == slot {
				return cell
			}
		}
	}
	t.Fatalf("cell %s/%s not found in grid", room, slot)
	return GridCell{}
}

func TestOverlayPending(t *testing.T) {
	engine := New(nil)

	first := scenarioRequest()
	second := scenarioRequest()
	second.ID = "req-2"
	second.RequesterID = "teacher-2"
	second.StartHour, second.EndHour = "8", "10"
	second.WeekCount = 1

	entries := []persistence.ScheduleEntry{
		{ScheduleDate: "2025-03-03", RoomCode: "301", SlotHour: "9", Status: persistence.EntryStatusOccupied, CourseName: "Chemistry"},
	}
	snapshot := append([]persistence.ScheduleEntry(nil), entries...)

	grid := engine.OverlayPending("2025-03-03", nil, entries, []persistence.RoomRequest{first, second}, "teacher-1")

	if len(grid.Rows) != 1 || grid.Rows[0].RoomCode != "301" {
		t.Fatalf("expected a single derived row for 301, got %+v", grid.Rows)
	}

	t.Run("free covered cells show pending", func(t *testing.T) {
		cell := findCell(t, grid, "301", "7")
		if cell.Status != persistence.EntryStatusPending || cell.ConfirmedStatus != persistence.EntryStatusEmpty {
			t.Fatalf("expected pending display over empty, got %+v", cell)
		}
		if !cell.BlockedForViewer {
			t.Fatalf("expected viewer's own request to block the cell")
		}
	})

	t.Run("overlapping requests are both listed", func(t *testing.T) {
		cell := findCell(t, grid, "301", "8")
		if want := []string{"req-1", "req-2"}; !reflect.DeepEqual(cell.PendingRequestIDs, want) {
			t.Fatalf("expected %v, got %v", want, cell.PendingRequestIDs)
		}
	})

	t.Run("confirmed entries win", func(t *testing.T) {
		cell := findCell(t, grid, "301", "9")
		if cell.Status != persistence.EntryStatusOccupied || cell.CourseName != "Chemistry" {
			t.Fatalf("expected confirmed occupancy to be displayed, got %+v", cell)
		}
	})

	t.Run("other requesters do not block the viewer", func(t *testing.T) {
		cell := findCell(t, grid, "301", "10")
		if cell.Status != persistence.EntryStatusPending {
			t.Fatalf("expected pending display, got %s", cell.Status)
		}
		if cell.BlockedForViewer {
			t.Fatalf("expected another requester's cell to stay open for the viewer")
		}
	})

	t.Run("uncovered cells stay empty", func(t *testing.T) {
		cell := findCell(t, grid, "301", "11")
		if cell.Status != persistence.EntryStatusEmpty || len(cell.PendingRequestIDs) != 0 {
			t.Fatalf("expected empty cell, got %+v", cell)
		}
	})

	t.Run("entries are not modified", func(t *testing.T) {
		if !reflect.DeepEqual(entries, snapshot) {
			t.Fatalf("overlay mutated confirmed entries: %+v", entries)
		}
	})

	t.Run("non-recurring dates are not covered", func(t *testing.T) {
		other := engine.OverlayPending("2025-03-04", []string{"301"}, nil, []persistence.RoomRequest{first}, "teacher-1")
		if cell := findCell(t, other, "301", "7"); cell.Status != persistence.EntryStatusEmpty {
			t.Fatalf("expected 2025-03-04 to be uncovered, got %s", cell.Status)
		}
		later := engine.OverlayPending("2025-03-17", []string{"301"}, nil, []persistence.RoomRequest{first}, "")
		if cell := findCell(t, later, "301", "7"); cell.Status != persistence.EntryStatusEmpty {
			t.Fatalf("expected third week to be uncovered, got %s", cell.Status)
		}
	})

	t.Run("non-pending requests are ignored", func(t *testing.T) {
		approved := first
		approved.Status = persistence.RequestStatusApproved
		view := engine.OverlayPending("2025-03-03", []string{"301"}, nil, []persistence.RoomRequest{approved}, "teacher-1")
		if cell := findCell(t, view, "301", "7"); cell.Status != persistence.EntryStatusEmpty {
			t.Fatalf("expected approved request to be ignored, got %s", cell.Status)
		}
	})
}

func TestRequesterBlocks(t *testing.T) {
	engine := New(nil)
	own := scenarioRequest()
	other := scenarioRequest()
	other.ID = "req-2"
	other.RequesterID = "teacher-2"
	other.RoomCode = "302"

	blocked := engine.RequesterBlocks("teacher-1", "2025-03-10", []persistence.RoomRequest{own, other})
	want := []Cell{
		{Date: "2025-03-10", RoomCode: "301", SlotHour: "7"},
		{Date: "2025-03-10", RoomCode: "301", SlotHour: "8"},
		{Date: "2025-03-10", RoomCode: "301", SlotHour: "9"},
	}
	if !reflect.DeepEqual(blocked, want) {
		t.Fatalf("expected %v, got %v", want, blocked)
	}

	if got := engine.RequesterBlocks("", "2025-03-10", []persistence.RoomRequest{own}); got != nil {
		t.Fatalf("expected no blocks for anonymous viewer, got %v", got)
	}
}

func TestFirstOverlap(t *testing.T) {
	engine := New(nil)
	existing := scenarioRequest()

	candidate := scenarioRequest()
	candidate.ID = "req-new"
	candidate.BaseDate = "2025-03-10"
	candidate.StartHour, candidate.EndHour = "9", "11"
	candidate.WeekCount = 1

	set, err := engine.Expand(candidate)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	cell, req, ok := engine.FirstOverlap(set, []persistence.RoomRequest{existing})
	if !ok {
		t.Fatalf("expected overlap")
	}
	if req.ID != "req-1" || cell.SlotHour != "9" || cell.Date != "2025-03-10" {
		t.Fatalf("unexpected overlap %+v with %s", cell, req.ID)
	}

	candidate.StartHour, candidate.EndHour = "10", "11"
	set, _ = engine.Expand(candidate)
	if _, _, ok := engine.FirstOverlap(set, []persistence.RoomRequest{existing}); ok {
		t.Fatalf("expected no overlap for disjoint hours")
	}
}
