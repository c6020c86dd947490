package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/room-booking/internal/persistence"
)

func validateEntry(entry persistence.ScheduleEntry) error {
	if entry.ScheduleDate == "" || entry.RoomCode == "" || strings.TrimSpace(entry.SlotHour) == "" {
		return persistence.ErrConstraintViolation
	}
	if !entry.Status.Valid() || entry.Status == persistence.EntryStatusPending {
		return persistence.ErrConstraintViolation
	}
	return nil
}

// ListEntriesByDate returns the date's entries ordered by room then slot.
func (s *Store) ListEntriesByDate(ctx context.Context, date string) ([]persistence.ScheduleEntry, error) {
	const query = `
		SELECT schedule_date, room_code, slot_hour, status, course_name, booked_by, updated_at
		FROM schedule_entries
		WHERE schedule_date = ?
		ORDER BY room_code, slot_hour`

	rows, err := s.pool.DB().QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list entries for %s: %w", date, mapError(err))
	}
	defer rows.Close()

	var entries []persistence.ScheduleEntry
	for rows.Next() {
		var (
			entry     persistence.ScheduleEntry
			status    string
			updatedAt string
		)
		if err := rows.Scan(&entry.ScheduleDate, &entry.RoomCode, &entry.SlotHour, &status, &entry.CourseName, &entry.BookedBy, &updatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan entry: %w", err)
		}
		entry.Status = persistence.EntryStatus(status)
		entry.SlotHour = s.normalize(entry.RoomCode, entry.SlotHour)
		if entry.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: parse updated_at %q: %w", updatedAt, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate entries: %w", err)
	}
	return entries, nil
}

// UpsertEntry writes the entry, replacing any existing cell.
func (s *Store) UpsertEntry(ctx context.Context, entry persistence.ScheduleEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	const query = `
		INSERT INTO schedule_entries (schedule_date, room_code, slot_hour, status, course_name, booked_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (schedule_date, room_code, slot_hour) DO UPDATE SET
			status = excluded.status,
			course_name = excluded.course_name,
			booked_by = excluded.booked_by,
			updated_at = excluded.updated_at`

	return withRetry(ctx, s.retry, func() error {
		_, err := s.pool.DB().ExecContext(ctx, query, s.entryArgs(entry)...)
		return err
	})
}

// InsertEntry writes the entry unless a non-empty cell already holds the key.
// The check and the write are a single statement.
func (s *Store) InsertEntry(ctx context.Context, entry persistence.ScheduleEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	const query = `
		INSERT INTO schedule_entries (schedule_date, room_code, slot_hour, status, course_name, booked_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (schedule_date, room_code, slot_hour) DO UPDATE SET
			status = excluded.status,
			course_name = excluded.course_name,
			booked_by = excluded.booked_by,
			updated_at = excluded.updated_at
		WHERE schedule_entries.status = 'empty'`

	return withRetry(ctx, s.retry, func() error {
		result, err := s.pool.DB().ExecContext(ctx, query, s.entryArgs(entry)...)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("sqlite: cell %s/%s/%s: %w", entry.ScheduleDate, entry.RoomCode, s.normalize(entry.RoomCode, entry.SlotHour), persistence.ErrDuplicate)
		}
		return nil
	})
}

// DeleteEntry removes a cell if present.
func (s *Store) DeleteEntry(ctx context.Context, date, roomCode, slotHour string) error {
	const query = `DELETE FROM schedule_entries WHERE schedule_date = ? AND room_code = ? AND slot_hour = ?`
	return withRetry(ctx, s.retry, func() error {
		_, err := s.pool.DB().ExecContext(ctx, query, date, roomCode, s.normalize(roomCode, slotHour))
		return err
	})
}

func (s *Store) entryArgs(entry persistence.ScheduleEntry) []any {
	updatedAt := entry.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}
	return []any{
		entry.ScheduleDate,
		entry.RoomCode,
		s.normalize(entry.RoomCode, entry.SlotHour),
		string(entry.Status),
		entry.CourseName,
		entry.BookedBy,
		formatTime(updatedAt),
	}
}
