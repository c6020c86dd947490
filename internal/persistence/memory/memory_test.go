package memory

import (
	"context"
	"testing"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/storetest"
	"github.com/example/room-booking/internal/slots"
)

func TestStorage(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store {
		return New()
	})
}

func TestStorageNormalizesSlots(t *testing.T) {
	ctx := context.Background()
	store := New(WithSlotNormalizer(slots.DefaultCatalog().NormalizeForRoom))

	if err := store.UpsertEntry(ctx, persistence.ScheduleEntry{
		ScheduleDate: "2025-03-03",
		RoomCode:     "301",
		SlotHour:     "07:00",
		Status:       persistence.EntryStatusOccupied,
	}); err != nil {
		t.Fatalf("UpsertEntry failed: %v", err)
	}

	entries, err := store.ListEntriesByDate(ctx, "2025-03-03")
	if err != nil {
		t.Fatalf("ListEntriesByDate failed: %v", err)
	}
	if len(entries) != 1 || entries[0].SlotHour != "7" {
		t.Fatalf("expected canonical slot id, got %#v", entries)
	}

	if err := store.DeleteEntry(ctx, "2025-03-03", "301", "07"); err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}
	entries, _ = store.ListEntriesByDate(ctx, "2025-03-03")
	if len(entries) != 0 {
		t.Fatalf("expected variant delete to remove the cell, got %#v", entries)
	}
}

func TestStorageNormalizesAdministrativeSlots(t *testing.T) {
	ctx := context.Background()
	base := slots.DefaultCatalog()
	catalog, err := slots.NewCatalog(
		append(base.Ordered(slots.CategoryClassroom), base.Ordered(slots.CategoryAdministrative)...),
		[]string{"A101"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store := New(WithSlotNormalizer(catalog.NormalizeForRoom))

	for room, stored := range map[string]string{"A101": "08:00-10:00", "301": "08:00"} {
		if err := store.UpsertEntry(ctx, persistence.ScheduleEntry{
			ScheduleDate: "2025-03-03",
			RoomCode:     room,
			SlotHour:     stored,
			Status:       persistence.EntryStatusOccupied,
		}); err != nil {
			t.Fatalf("UpsertEntry failed: %v", err)
		}
	}

	entries, err := store.ListEntriesByDate(ctx, "2025-03-03")
	if err != nil {
		t.Fatalf("ListEntriesByDate failed: %v", err)
	}
	got := make(map[string]string, len(entries))
	for _, entry := range entries {
		got[entry.RoomCode] = entry.SlotHour
	}
	if got["A101"] != "A1" || got["301"] != "8" {
		t.Fatalf("expected A101/A1 and 301/8, got %v", got)
	}
}
