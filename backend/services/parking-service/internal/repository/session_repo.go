package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"parkmeter/backend/services/parking-service/internal/models"
)

const sessionColumns = `id, license_plate, user_id, car_id, meter_id, unit_price, start_time, end_time,
	is_open, is_confirmed, cost, payment_id, created_at, updated_at`

// SessionRepository handles persistence of parking sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts an open session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	const query = `
		INSERT INTO parking_sessions (id, license_plate, user_id, car_id, meter_id, unit_price, start_time,
			is_open, is_confirmed, payment_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		session.ID,
		session.LicensePlate,
		nullableString(session.UserID),
		nullableString(session.CarID),
		session.MeterID,
		session.UnitPrice,
		session.StartTime,
		session.IsConfirmed,
		nullableString(session.PaymentID),
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return err
	}
	session.IsOpen = true
	return nil
}

// Get returns session by id.
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE id = $1`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return session, err
}

// Close ends an open session. Returns ErrConditionFailed if it is already closed.
func (r *SessionRepository) Close(ctx context.Context, id string, end time.Time, cost float64) (*models.Session, error) {
	query := `
		UPDATE parking_sessions
		SET is_open = false,
		    end_time = $2,
		    cost = $3,
		    updated_at = NOW()
		WHERE id = $1 AND is_open = true
		RETURNING ` + sessionColumns
	session, err := scanSession(r.db.QueryRowContext(ctx, query, id, end, cost))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConditionFailed
	}
	return session, err
}

// MarkConfirmed flags the recorded plate as correct.
func (r *SessionRepository) MarkConfirmed(ctx context.Context, id string) (*models.Session, error) {
	query := `
		UPDATE parking_sessions
		SET is_confirmed = true,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sessionColumns
	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return session, err
}

// Reassign replaces the plate and owner references and marks the session confirmed.
func (r *SessionRepository) Reassign(ctx context.Context, id, plate string, userID, carID *string) (*models.Session, error) {
	query := `
		UPDATE parking_sessions
		SET license_plate = $2,
		    user_id = $3,
		    car_id = $4,
		    is_confirmed = true,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sessionColumns
	session, err := scanSession(r.db.QueryRowContext(ctx, query, id, plate, nullableString(userID), nullableString(carID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return session, err
}

// SetPayment attaches a payment reference.
func (r *SessionRepository) SetPayment(ctx context.Context, id, paymentID string) (*models.Session, error) {
	query := `
		UPDATE parking_sessions
		SET payment_id = $2,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sessionColumns
	session, err := scanSession(r.db.QueryRowContext(ctx, query, id, paymentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return session, err
}

// ListByUser returns a user's sessions, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string, filter models.SessionFilter) ([]models.Session, error) {
	conds := []string{"user_id = $1"}
	args := []any{userID}
	if filter.Open != nil {
		args = append(args, *filter.Open)
		conds = append(conds, fmt.Sprintf("is_open = $%d", len(args)))
	}
	if filter.Confirmed != nil {
		args = append(args, *filter.Confirmed)
		conds = append(conds, fmt.Sprintf("is_confirmed = $%d", len(args)))
	}

	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY start_time DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		s         models.Session
		userID    sql.NullString
		carID     sql.NullString
		endTime   sql.NullTime
		cost      sql.NullFloat64
		paymentID sql.NullString
	)
	if err := row.Scan(
		&s.ID,
		&s.LicensePlate,
		&userID,
		&carID,
		&s.MeterID,
		&s.UnitPrice,
		&s.StartTime,
		&endTime,
		&s.IsOpen,
		&s.IsConfirmed,
		&cost,
		&paymentID,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.StartTime = s.StartTime.UTC()
	s.UserID = stringPtr(userID)
	s.CarID = stringPtr(carID)
	s.EndTime = timePtr(endTime)
	s.Cost = floatPtr(cost)
	s.PaymentID = stringPtr(paymentID)
	return &s, nil
}
