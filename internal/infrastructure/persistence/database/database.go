// Package database opens the SQL connection behind the durable flag store.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/observability/logging"
)

// Supported driver names.
const (
	DriverSQLite = "sqlite3"
	DriverLibSQL = "libsql"
)

const schema = `CREATE TABLE IF NOT EXISTS session_flags (
	flag_key   TEXT PRIMARY KEY,
	value      INTEGER NOT NULL,
	updated_at TEXT NOT NULL
)`

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
	Driver string
}

// NewConnectionWithLogger establishes a new database connection for the specified driver with logging.
func NewConnectionWithLogger(driverName, dataSourceName string, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()
	logger.Storage().Debug("Creating new database connection", "driverName", driverName)

	switch driverName {
	case DriverSQLite, DriverLibSQL:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driverName)
	}

	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		logger.Storage().Error("Failed to open database connection", "error", err.Error(), "driverName", driverName)
		return nil, fmt.Errorf("failed to open %s database: %w", driverName, err)
	}
	if driverName == DriverSQLite {
		// one writer; also keeps ":memory:" databases on a single connection
		db.SetMaxOpenConns(1)
	}

	if err = db.Ping(); err != nil {
		logger.Storage().Error("Database ping failed", "error", err.Error(), "driverName", driverName)
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}

	logger.Storage().Info("Database connection established", "driverName", driverName, "duration", time.Since(start))
	return &DB{DB: db, Driver: driverName}, nil
}

// EnsureSchema creates the flag table when missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create session_flags table: %w", err)
	}
	return nil
}
