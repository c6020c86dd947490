package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/room-booking/internal/persistence"
)

const requestColumns = `id, requester_id, requester_name, room_code, building_code, base_date,
	start_hour, end_hour, slot_category, week_count, course_name, booked_by, notes,
	status, reviewer_id, reviewer_name, rejection_reason, created_at, reviewed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateRequest inserts a new request.
func (s *Store) CreateRequest(ctx context.Context, req persistence.RoomRequest) error {
	if req.ID == "" || req.WeekCount < 1 || !req.Status.Valid() {
		return persistence.ErrConstraintViolation
	}
	created := req.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	var reviewedAt sql.NullString
	if req.ReviewedAt != nil {
		reviewedAt = sql.NullString{String: formatTime(*req.ReviewedAt), Valid: true}
	}

	query := `INSERT INTO room_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	err := withRetry(ctx, s.retry, func() error {
		_, err := s.pool.DB().ExecContext(ctx, query,
			req.ID, req.RequesterID, req.RequesterName, req.RoomCode, req.BuildingCode, req.BaseDate,
			s.normalize(req.RoomCode, req.StartHour), s.normalize(req.RoomCode, req.EndHour), req.SlotCategory, req.WeekCount,
			req.CourseName, req.BookedBy, req.Notes,
			string(req.Status), req.ReviewerID, req.ReviewerName, req.RejectionReason,
			formatTime(created), reviewedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("sqlite: create request %s: %w", req.ID, err)
	}
	return nil
}

// GetRequest retrieves a request by ID.
func (s *Store) GetRequest(ctx context.Context, id string) (persistence.RoomRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM room_requests WHERE id = ?`
	req, err := s.scanRequest(s.pool.DB().QueryRowContext(ctx, query, id))
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
	if filter.RequesterID != "" {
		clauses = append(clauses, "requester_id = ?")
		args = append(args, filter.RequesterID)
	}
	if filter.RoomCode != "" {
		clauses = append(clauses, "room_code = ?")
		args = append(args, filter.RoomCode)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		clauses = append(clauses, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := `SELECT ` + requestColumns + ` FROM room_requests`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list requests: %w", mapError(err))
	}
	defer rows.Close()

	var out []persistence.RoomRequest
	for rows.Next() {
		req, err := s.scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate requests: %w", err)
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
		SET status = ?, reviewer_id = ?, reviewer_name = ?, rejection_reason = ?, reviewed_at = ?
		WHERE id = ? AND status = ?`
	selectQuery := `SELECT ` + requestColumns + ` FROM room_requests WHERE id = ?`

	var updated persistence.RoomRequest
	err := withRetry(ctx, s.retry, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := tx.ExecContext(ctx, query,
				string(update.To), update.ReviewerID, update.ReviewerName, update.Reason,
				formatTime(update.ReviewedAt), update.ID, string(update.From),
			)
			if err != nil {
				return err
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return err
			}

			current, err := s.scanRequest(tx.QueryRowContext(ctx, selectQuery, update.ID))
			if err != nil {
				return mapError(err)
			}
			if affected == 0 {
				return fmt.Errorf("sqlite: request %s is %s: %w", current.ID, current.Status, persistence.ErrStatusMismatch)
			}
			updated = current
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.RoomRequest{}, persistence.ErrNotFound
		}
		return persistence.RoomRequest{}, err
	}
	return updated, nil
}

func (s *Store) scanRequest(row rowScanner) (persistence.RoomRequest, error) {
	var (
		req        persistence.RoomRequest
		status     string
		createdAt  string
		reviewedAt sql.NullString
	)
	err := row.Scan(
		&req.ID, &req.RequesterID, &req.RequesterName, &req.RoomCode, &req.BuildingCode, &req.BaseDate,
		&req.StartHour, &req.EndHour, &req.SlotCategory, &req.WeekCount, &req.CourseName, &req.BookedBy, &req.Notes,
		&status, &req.ReviewerID, &req.ReviewerName, &req.RejectionReason, &createdAt, &reviewedAt,
	)
	if err != nil {
		return persistence.RoomRequest{}, err
	}
	req.Status = persistence.RequestStatus(status)
	req.StartHour = s.normalize(req.RoomCode, req.StartHour)
	req.EndHour = s.normalize(req.RoomCode, req.EndHour)
	if req.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.RoomRequest{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if reviewedAt.Valid {
		t, err := parseTime(reviewedAt.String)
		if err != nil {
			return persistence.RoomRequest{}, fmt.Errorf("parse reviewed_at %q: %w", reviewedAt.String, err)
		}
		req.ReviewedAt = &t
	}
	return req, nil
}
