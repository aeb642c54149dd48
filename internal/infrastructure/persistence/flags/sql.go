// Package flags provides durable engagement.FlagStore implementations.
package flags

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"
)

const opTimeout = 2 * time.Second

// SQLStore keeps flags in the session_flags table. Failures are logged and
// read as unset, so a broken database never blocks tracking.
type SQLStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLStore wraps a connection whose schema has been ensured.
func NewSQLStore(db *sql.DB, logger *slog.Logger) *SQLStore {
	return &SQLStore{db: db, logger: logger}
}

func (s *SQLStore) Get(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var value int
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session_flags WHERE flag_key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		s.logger.Warn("Flag read failed", "key", key, "error", err)
		return false
	}
	return value != 0
}

func (s *SQLStore) Set(key string, value bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	v := 0
	if value {
		v = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_flags (flag_key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(flag_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, v, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		s.logger.Warn("Flag write failed", "key", key, "error", err)
	}
}
