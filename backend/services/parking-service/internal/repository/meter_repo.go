package repository

import (
	"context"
	"database/sql"
	"errors"

	"parkmeter/backend/services/parking-service/internal/models"
)

const meterColumns = `id, unit_price, is_occupied, license_plate, is_confirmed, parking_id, cost, created_at, updated_at`

// MeterRepository persists meters. Occupancy changes are conditional updates so that
// concurrent requests against one meter are serialized by the database.
type MeterRepository struct {
	db *sql.DB
}

// NewMeterRepository returns repository.
func NewMeterRepository(db *sql.DB) *MeterRepository {
	return &MeterRepository{db: db}
}

// Create inserts a free meter.
func (r *MeterRepository) Create(ctx context.Context, meter *models.Meter) error {
	const query = `
		INSERT INTO meters (id, unit_price, is_occupied, is_confirmed, created_at, updated_at)
		VALUES ($1, $2, false, false, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query, meter.ID, meter.UnitPrice).Scan(&meter.CreatedAt, &meter.UpdatedAt)
}

// Get returns meter by id.
func (r *MeterRepository) Get(ctx context.Context, id string) (*models.Meter, error) {
	query := `SELECT ` + meterColumns + ` FROM meters WHERE id = $1`
	meter, err := scanMeter(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return meter, err
}

// List returns all meters ordered by creation time.
func (r *MeterRepository) List(ctx context.Context) ([]models.Meter, error) {
	query := `SELECT ` + meterColumns + ` FROM meters ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meters []models.Meter
	for rows.Next() {
		m, err := scanMeter(rows)
		if err != nil {
			return nil, err
		}
		meters = append(meters, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return meters, nil
}

// Occupy claims a free meter for plate. Returns ErrConditionFailed when the meter is
// missing or already occupied.
func (r *MeterRepository) Occupy(ctx context.Context, id, plate string, confirmed bool) (*models.Meter, error) {
	query := `
		UPDATE meters
		SET is_occupied = true,
		    license_plate = $2,
		    is_confirmed = $3,
		    parking_id = NULL,
		    cost = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND is_occupied = false
		RETURNING ` + meterColumns
	meter, err := scanMeter(r.db.QueryRowContext(ctx, query, id, plate, confirmed))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConditionFailed
	}
	return meter, err
}

// AttachSession stores the open session reference on an occupied meter.
func (r *MeterRepository) AttachSession(ctx context.Context, id, sessionID string) (*models.Meter, error) {
	query := `
		UPDATE meters
		SET parking_id = $2,
		    updated_at = NOW()
		WHERE id = $1 AND is_occupied = true
		RETURNING ` + meterColumns
	meter, err := scanMeter(r.db.QueryRowContext(ctx, query, id, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConditionFailed
	}
	return meter, err
}

// Vacate releases a meter occupied by plate and returns the session it referenced, if any.
func (r *MeterRepository) Vacate(ctx context.Context, id, plate string) (*string, error) {
	const query = `
		WITH prev AS (
			SELECT id, parking_id FROM meters
			WHERE id = $1 AND is_occupied = true AND license_plate = $2
			FOR UPDATE
		)
		UPDATE meters m
		SET is_occupied = false,
		    license_plate = NULL,
		    parking_id = NULL,
		    is_confirmed = false,
		    updated_at = NOW()
		FROM prev
		WHERE m.id = prev.id
		RETURNING prev.parking_id
	`
	var sessionID sql.NullString
	err := r.db.QueryRowContext(ctx, query, id, plate).Scan(&sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConditionFailed
	}
	if err != nil {
		return nil, err
	}
	return stringPtr(sessionID), nil
}

// SetCost records the last computed cost on a released meter. Returns ErrConditionFailed
// when the meter is missing or was claimed again after release.
func (r *MeterRepository) SetCost(ctx context.Context, id string, cost float64) (*models.Meter, error) {
	query := `
		UPDATE meters
		SET cost = $2,
		    updated_at = NOW()
		WHERE id = $1 AND is_occupied = false AND parking_id IS NULL
		RETURNING ` + meterColumns
	meter, err := scanMeter(r.db.QueryRowContext(ctx, query, id, cost))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConditionFailed
	}
	return meter, err
}

// Reset forces the meter free and clears every transient field.
func (r *MeterRepository) Reset(ctx context.Context, id string) (*models.Meter, error) {
	query := `
		UPDATE meters
		SET is_occupied = false,
		    license_plate = NULL,
		    parking_id = NULL,
		    cost = NULL,
		    is_confirmed = false,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + meterColumns
	meter, err := scanMeter(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return meter, err
}

// SetConfirmation mirrors a session confirmation onto the meter while it still references
// that session. A nil plate keeps the stored plate.
func (r *MeterRepository) SetConfirmation(ctx context.Context, id, sessionID string, plate *string, confirmed bool) (*models.Meter, error) {
	query := `
		UPDATE meters
		SET is_confirmed = $3,
		    license_plate = COALESCE($4::text, license_plate),
		    updated_at = NOW()
		WHERE id = $1 AND parking_id = $2 AND is_occupied = true
		RETURNING ` + meterColumns
	meter, err := scanMeter(r.db.QueryRowContext(ctx, query, id, sessionID, confirmed, nullableString(plate)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConditionFailed
	}
	return meter, err
}

func scanMeter(row rowScanner) (*models.Meter, error) {
	var (
		m         models.Meter
		plate     sql.NullString
		parkingID sql.NullString
		cost      sql.NullFloat64
	)
	if err := row.Scan(
		&m.ID,
		&m.UnitPrice,
		&m.IsOccupied,
		&plate,
		&m.IsConfirmed,
		&parkingID,
		&cost,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	m.LicensePlate = stringPtr(plate)
	m.ParkingID = stringPtr(parkingID)
	m.Cost = floatPtr(cost)
	return &m, nil
}
