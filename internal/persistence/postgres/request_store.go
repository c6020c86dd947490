package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/example/room-booking/internal/persistence"
)

const requestColumns = `id, requester_id, requester_name, room_code, building_code, to_char(base_date, 'YYYY-MM-DD'),
	start_hour, end_hour, slot_category, week_count, course_name, booked_by, notes,
	status, reviewer_id, reviewer_name, rejection_reason, created_at, reviewed_at`

// CreateRequest inserts a new request.
func (s *Store) CreateRequest(ctx context.Context, req persistence.RoomRequest) error {
	if req.ID == "" || req.WeekCount < 1 || !req.Status.Valid() {
		return persistence.ErrConstraintViolation
	}
	created := req.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	const query = `
		INSERT INTO room_requests (id, requester_id, requester_name, room_code, building_code, base_date,
			start_hour, end_hour, slot_category, week_count, course_name, booked_by, notes,
			status, reviewer_id, reviewer_name, rejection_reason, created_at, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := s.pool.Exec(ctx, query,
		req.ID, req.RequesterID, req.RequesterName, req.RoomCode, req.BuildingCode, req.BaseDate,
		s.normalize(req.RoomCode, req.StartHour), s.normalize(req.RoomCode, req.EndHour), req.SlotCategory, req.WeekCount,
		req.CourseName, req.BookedBy, req.Notes,
		string(req.Status), req.ReviewerID, req.ReviewerName, req.RejectionReason,
		created.UTC(), req.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create request %s: %w", req.ID, mapError(err))
	}
	return nil
}

// GetRequest retrieves a request by ID.
func (s *Store) GetRequest(ctx context.Context, id string) (persistence.RoomRequest, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM room_requests WHERE id = $1`, id)
	req, err := s.scanRequest(row)
	if err != nil {
		return persistence.RoomRequest{}, mapError(err)
	}
	return req, nil
}

// ListRequests returns matching requests, newest first.
func (s *Store) ListRequests(ctx context.Context, filter persistence.RequestFilter) ([]persistence.RoomRequest, error) {
	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.RequesterID != "" {
		clauses = append(clauses, "requester_id = "+arg(filter.RequesterID))
	}
	if filter.RoomCode != "" {
		clauses = append(clauses, "room_code = "+arg(filter.RoomCode))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			statuses[i] = string(status)
		}
		clauses = append(clauses, "status = ANY("+arg(statuses)+")")
	}

	query := `SELECT ` + requestColumns + ` FROM room_requests`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list requests: %w", mapError(err))
	}
	defer rows.Close()

	var out []persistence.RoomRequest
	for rows.Next() {
		req, err := s.scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate requests: %w", err)
	}
	return out, nil
}

// UpdateRequestStatus applies a compare-and-set status transition and
// returns the stored request.
func (s *Store) UpdateRequestStatus(ctx context.Context, update persistence.StatusUpdate) (persistence.RoomRequest, error) {
	if !update.To.Valid() {
		return persistence.RoomRequest{}, persistence.ErrConstraintViolation
	}
	const query = `
		UPDATE room_requests
		SET status = $1, reviewer_id = $2, reviewer_name = $3, rejection_reason = $4, reviewed_at = $5
		WHERE id = $6 AND status = $7
		RETURNING ` + requestColumns

	row := s.pool.QueryRow(ctx, query,
		string(update.To), update.ReviewerID, update.ReviewerName, update.Reason,
		update.ReviewedAt.UTC(), update.ID, string(update.From),
	)
	updated, err := s.scanRequest(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return persistence.RoomRequest{}, fmt.Errorf("postgres: update request %s: %w", update.ID, mapError(err))
	}

	current, getErr := s.GetRequest(ctx, update.ID)
	if getErr != nil {
		return persistence.RoomRequest{}, getErr
	}
	return persistence.RoomRequest{}, fmt.Errorf("postgres: request %s is %s: %w", current.ID, current.Status, persistence.ErrStatusMismatch)
}

func (s *Store) scanRequest(row pgx.Row) (persistence.RoomRequest, error) {
	var (
		req    persistence.RoomRequest
		status string
	)
	err := row.Scan(
		&req.ID, &req.RequesterID, &req.RequesterName, &req.RoomCode, &req.BuildingCode, &req.BaseDate,
		&req.StartHour, &req.EndHour, &req.SlotCategory, &req.WeekCount, &req.CourseName, &req.BookedBy, &req.Notes,
		&status, &req.ReviewerID, &req.ReviewerName, &req.RejectionReason, &req.CreatedAt, &req.ReviewedAt,
	)
	if err != nil {
		return persistence.RoomRequest{}, err
	}
	req.Status = persistence.RequestStatus(status)
	req.StartHour = s.normalize(req.RoomCode, req.StartHour)
	req.EndHour = s.normalize(req.RoomCode, req.EndHour)
	return req, nil
}
