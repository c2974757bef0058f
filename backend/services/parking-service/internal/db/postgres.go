package db

import (
	"database/sql"

	libdb "parkmeter/backend/libs/db"
)

const applicationName = "parking-service"

// NewPostgres opens the service pool, tagging connections with the service name.
func NewPostgres(dsn string, pool libdb.PoolOptions) (*sql.DB, error) {
	if pool.ApplicationName == "" {
		pool.ApplicationName = applicationName
	}
	return libdb.NewPostgresDB(dsn, pool)
}
