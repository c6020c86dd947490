package scheduler

import (
	"context"
	"fmt"

	"github.com/example/room-booking/internal/persistence"
)

// Conflict describes the first occupied cell found for a candidate set.
type Conflict struct {
	Cell
	SlotLabel  string
	Status     persistence.EntryStatus
	CourseName string
	BookedBy   string
}

// EntryReader loads confirmed schedule cells for a date.
type EntryReader interface {
	ListEntriesByDate(ctx context.Context, date string) ([]persistence.ScheduleEntry, error)
}

// ReadError reports a failed read of confirmed entries.
type ReadError struct {
	Date string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("scheduler: read entries for %s: %v", e.Date, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

type entryKey struct {
	room string
	slot string
}

func (e *Engine) indexEntries(entries []persistence.ScheduleEntry) map[entryKey]persistence.ScheduleEntry {
	index := make(map[entryKey]persistence.ScheduleEntry, len(entries))
	for _, entry := range entries {
		key := entryKey{room: entry.RoomCode, slot: e.catalog.NormalizeForRoom(entry.RoomCode, entry.SlotHour)}
		index[key] = entry
	}
	return index
}

// CheckDate returns the first cell of the group occupied by a blocking
// entry, or nil. Cells are visited in the order given.
func (e *Engine) CheckDate(cells []Cell, entries []persistence.ScheduleEntry) *Conflict {
	if len(cells) == 0 || len(entries) == 0 {
		return nil
	}
	index := e.indexEntries(entries)
	for _, cell := range cells {
		entry, ok := index[entryKey{room: cell.RoomCode, slot: e.catalog.NormalizeForRoom(cell.RoomCode, cell.SlotHour)}]
		if !ok || !entry.Status.Blocking() {
			continue
		}
		return &Conflict{
			Cell:       cell,
			SlotLabel:  e.catalog.Label(cell.SlotHour),
			Status:     entry.Status,
			CourseName: entry.CourseName,
			BookedBy:   entry.BookedBy,
		}
	}
	return nil
}

// CheckConflicts reads confirmed entries once per distinct date in
// chronological order and stops at the first conflict. A read failure is
// returned as a *ReadError.
func (e *Engine) CheckConflicts(ctx context.Context, reader EntryReader, set CellSet) (*Conflict, error) {
	for _, group := range set.Groups {
		entries, err := reader.ListEntriesByDate(ctx, group.Date)
		if err != nil {
			return nil, &ReadError{Date: group.Date, Err: err}
		}
		if conflict := e.CheckDate(group.Cells, entries); conflict != nil {
			return conflict, nil
		}
	}
	return nil, nil
}
