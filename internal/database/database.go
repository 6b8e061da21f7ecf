package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

const (
	connectAttempts = 3
	connectBackoff  = 2 * time.Second
)

// DB wraps sqlx.DB
type DB struct {
	*sqlx.DB
}

// New connects to PostgreSQL. The initial connect is retried a bounded
// number of times with a fixed backoff; after that the error is returned
// and the caller is expected to treat it as fatal.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
		if err == nil {
			return &DB{db}, nil
		}
		lastErr = err
		if attempt < connectAttempts {
			logger.Warn("database connect failed, retrying",
				"attempt", attempt,
				"max_attempts", connectAttempts,
				"error", err,
			)
			select {
			case <-time.After(connectBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectAttempts, lastErr)
}

// Migrate runs database migrations
func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
