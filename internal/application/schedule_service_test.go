package application

import (
	"context"
	"errors"
	"testing"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/memory"
	"github.com/example/room-booking/internal/slots"
)

type failingScheduleStore struct {
	*memory.Storage
	err error
}

func (s *failingScheduleStore) UpsertEntry(ctx context.Context, entry persistence.ScheduleEntry) error {
	return s.err
}

func TestScheduleService_SetAndClearEntry(t *testing.T) {
	catalog := slots.DefaultCatalog()
	store := memory.New(memory.WithSlotNormalizer(catalog.NormalizeForRoom))
	svc := NewScheduleService(store, nil, nil)
	ctx := context.Background()

	entry, err := svc.SetEntry(ctx, SetEntryParams{
		Principal: admin,
		Input: EntryInput{
			Date: "2025-03-03", RoomCode: "301", SlotHour: "07:00",
			Status: persistence.EntryStatusMaintenance,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.SlotHour != "7" {
		t.Fatalf("expected normalized slot, got %q", entry.SlotHour)
	}

	stored, _ := store.ListEntriesByDate(ctx, "2025-03-03")
	if len(stored) != 1 || stored[0].Status != persistence.EntryStatusMaintenance {
		t.Fatalf("expected maintenance entry, got %+v", stored)
	}

	if err := svc.ClearEntry(ctx, ClearEntryParams{Principal: admin, Date: "2025-03-03", RoomCode: "301", SlotHour: "7"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ = store.ListEntriesByDate(ctx, "2025-03-03")
	if len(stored) != 0 {
		t.Fatalf("expected entry cleared, got %+v", stored)
	}

	if err := svc.ClearEntry(ctx, ClearEntryParams{Principal: admin, Date: "2025-03-03", RoomCode: "301", SlotHour: "7"}); err != nil {
		t.Fatalf("expected clearing an absent cell to succeed, got %v", err)
	}
}

func TestScheduleService_SetEntryValidation(t *testing.T) {
	svc := NewScheduleService(memory.New(), nil, nil)
	ctx := context.Background()

	_, err := svc.SetEntry(ctx, SetEntryParams{Principal: Principal{UserID: "t1"}})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	_, err = svc.SetEntry(ctx, SetEntryParams{
		Principal: admin,
		Input:     EntryInput{Date: "2025-03-03", RoomCode: "301", SlotHour: "7", Status: persistence.EntryStatusPending},
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["status"] == "" {
		t.Fatalf("expected status validation error, got %v", err)
	}

	_, err = svc.SetEntry(ctx, SetEntryParams{
		Principal: admin,
		Input:     EntryInput{Date: "2025-02-30", RoomCode: "", SlotHour: "99", Status: persistence.EntryStatusOccupied},
	})
	if !errors.As(err, &vErr) || len(vErr.FieldErrors) != 3 {
		t.Fatalf("expected date, room and slot errors, got %v", err)
	}
}

func TestScheduleService_SetEntryStoreFailure(t *testing.T) {
	svc := NewScheduleService(&failingScheduleStore{Storage: memory.New(), err: errors.New("boom")}, nil, nil)
	_, err := svc.SetEntry(context.Background(), SetEntryParams{
		Principal: admin,
		Input:     EntryInput{Date: "2025-03-03", RoomCode: "301", SlotHour: "7", Status: persistence.EntryStatusOccupied},
	})
	var sErr *StoreError
	if !errors.As(err, &sErr) || sErr.Kind != StoreWrite {
		t.Fatalf("expected write StoreError, got %v", err)
	}
}
