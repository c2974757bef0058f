package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"parkmeter/backend/services/parking-service/internal/models"
)

const (
	carColumns      = `id, user_id, car_name, license_plate`
	uniqueViolation = "23505"
)

// CarRepository persists the car registry. Plates are unique across users.
type CarRepository struct {
	db *sql.DB
}

// NewCarRepository returns repository.
func NewCarRepository(db *sql.DB) *CarRepository {
	return &CarRepository{db: db}
}

// Create inserts a car. Returns ErrConflict when the plate is already registered.
func (r *CarRepository) Create(ctx context.Context, car *models.Car) error {
	const query = `INSERT INTO cars (id, user_id, car_name, license_plate) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, car.ID, car.UserID, car.CarName, car.LicensePlate)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}

// Get returns car by id.
func (r *CarRepository) Get(ctx context.Context, id string) (*models.Car, error) {
	return r.one(ctx, `SELECT `+carColumns+` FROM cars WHERE id = $1`, id)
}

// FindByPlate looks up a car by its upper-cased plate.
func (r *CarRepository) FindByPlate(ctx context.Context, plate string) (*models.Car, error) {
	return r.one(ctx, `SELECT `+carColumns+` FROM cars WHERE license_plate = $1`, plate)
}

// ListByUser returns the user's cars ordered by plate.
func (r *CarRepository) ListByUser(ctx context.Context, userID string) ([]models.Car, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+carColumns+` FROM cars WHERE user_id = $1 ORDER BY license_plate`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cars []models.Car
	for rows.Next() {
		var c models.Car
		if err := rows.Scan(&c.ID, &c.UserID, &c.CarName, &c.LicensePlate); err != nil {
			return nil, err
		}
		cars = append(cars, c)
	}
	return cars, rows.Err()
}

// Rename changes the display name of a car owned by userID.
func (r *CarRepository) Rename(ctx context.Context, id, userID, name string) (*models.Car, error) {
	return r.one(ctx, `
		UPDATE cars SET car_name = $3
		WHERE id = $1 AND user_id = $2
		RETURNING `+carColumns, id, userID, name)
}

// Delete removes a car owned by userID.
func (r *CarRepository) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cars WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CarRepository) one(ctx context.Context, query string, args ...interface{}) (*models.Car, error) {
	var c models.Car
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.UserID, &c.CarName, &c.LicensePlate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
