// Package postgres stores schedule entries and room requests in PostgreSQL
// through a pgx connection pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/room-booking/internal/persistence"
)

//go:embed schema.sql
var schema string

const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

// Store implements persistence.ScheduleStore and persistence.RequestStore.
type Store struct {
	pool      *pgxpool.Pool
	normalize persistence.SlotNormalizer
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithSlotNormalizer maps slot identifier variants onto canonical identifiers
// on every read and write.
func WithSlotNormalizer(fn persistence.SlotNormalizer) Option {
	return func(s *Store) {
		if fn != nil {
			s.normalize = fn
		}
	}
}

// Open connects to the database at url.
func Open(ctx context.Context, url string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return New(pool, opts...), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool, normalize: persistence.TrimSlot, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema creates the tables and indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return persistence.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", persistence.ErrDuplicate, pgErr.Message)
		case checkViolation:
			return fmt.Errorf("%w: %s", persistence.ErrConstraintViolation, pgErr.Message)
		}
	}
	return err
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

// ListEntriesByDate returns the date's entries ordered by room then slot.
func (s *Store) ListEntriesByDate(ctx context.Context, date string) ([]persistence.ScheduleEntry, error) {
	const query = `
		SELECT to_char(schedule_date, 'YYYY-MM-DD'), room_code, slot_hour, status, course_name, booked_by, updated_at
		FROM schedule_entries
		WHERE schedule_date = $1::date
		ORDER BY room_code, slot_hour`

	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("postgres: list entries for %s: %w", date, mapError(err))
	}
	defer rows.Close()

	var entries []persistence.ScheduleEntry
	for rows.Next() {
		var (
			entry  persistence.ScheduleEntry
			status string
		)
		if err := rows.Scan(&entry.ScheduleDate, &entry.RoomCode, &entry.SlotHour, &status, &entry.CourseName, &entry.BookedBy, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan entry: %w", err)
		}
		entry.Status = persistence.EntryStatus(status)
		entry.SlotHour = s.normalize(entry.RoomCode, entry.SlotHour)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate entries: %w", err)
	}
	return entries, nil
}

const upsertEntry = `
	INSERT INTO schedule_entries (schedule_date, room_code, slot_hour, status, course_name, booked_by, updated_at)
	VALUES ($1::date, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (schedule_date, room_code, slot_hour) DO UPDATE SET
		status = EXCLUDED.status,
		course_name = EXCLUDED.course_name,
		booked_by = EXCLUDED.booked_by,
		updated_at = EXCLUDED.updated_at`

// UpsertEntry writes the entry, replacing any existing cell.
func (s *Store) UpsertEntry(ctx context.Context, entry persistence.ScheduleEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, upsertEntry, s.entryArgs(entry)...); err != nil {
		return fmt.Errorf("postgres: upsert entry: %w", mapError(err))
	}
	return nil
}

// InsertEntry writes the entry unless a non-empty cell already holds the key.
func (s *Store) InsertEntry(ctx context.Context, entry persistence.ScheduleEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, upsertEntry+` WHERE schedule_entries.status = 'empty'`, s.entryArgs(entry)...)
	if err != nil {
		return fmt.Errorf("postgres: insert entry: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: cell %s/%s/%s: %w", entry.ScheduleDate, entry.RoomCode, s.normalize(entry.RoomCode, entry.SlotHour), persistence.ErrDuplicate)
	}
	return nil
}

// DeleteEntry removes a cell if present.
func (s *Store) DeleteEntry(ctx context.Context, date, roomCode, slotHour string) error {
	const query = `DELETE FROM schedule_entries WHERE schedule_date = $1::date AND room_code = $2 AND slot_hour = $3`
	if _, err := s.pool.Exec(ctx, query, date, roomCode, s.normalize(roomCode, slotHour)); err != nil {
		return fmt.Errorf("postgres: delete entry: %w", mapError(err))
	}
	return nil
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
		updatedAt.UTC(),
	}
}
