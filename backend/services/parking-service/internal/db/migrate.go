package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is idempotent; every statement can be re-run against an existing database.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS meters (
		id            UUID PRIMARY KEY,
		unit_price    DOUBLE PRECISION NOT NULL CHECK (unit_price > 0),
		is_occupied   BOOLEAN NOT NULL DEFAULT false,
		license_plate TEXT,
		is_confirmed  BOOLEAN NOT NULL DEFAULT false,
		parking_id    UUID,
		cost          DOUBLE PRECISION,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS parking_sessions (
		id            UUID PRIMARY KEY,
		license_plate TEXT NOT NULL,
		user_id       TEXT,
		car_id        TEXT,
		meter_id      UUID NOT NULL,
		unit_price    DOUBLE PRECISION NOT NULL,
		start_time    TIMESTAMPTZ NOT NULL,
		end_time      TIMESTAMPTZ,
		is_open       BOOLEAN NOT NULL DEFAULT true,
		is_confirmed  BOOLEAN NOT NULL DEFAULT false,
		cost          DOUBLE PRECISION,
		payment_id    UUID,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (is_open = (end_time IS NULL)),
		CHECK (is_open = (cost IS NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS parking_sessions_meter_idx
		ON parking_sessions (meter_id) WHERE is_open`,
	`CREATE INDEX IF NOT EXISTS parking_sessions_user_idx
		ON parking_sessions (user_id, start_time DESC)`,
	`CREATE TABLE IF NOT EXISTS cars (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		car_name      TEXT NOT NULL DEFAULT '',
		license_plate TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id          UUID PRIMARY KEY,
		user_id     TEXT,
		card_last4  TEXT NOT NULL,
		exp_date    TEXT NOT NULL,
		secret_hash TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_payments (
		user_id    TEXT PRIMARY KEY,
		payment_id UUID NOT NULL REFERENCES payments (id),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the service tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: statement %d: %w", i+1, err)
		}
	}
	return nil
}
