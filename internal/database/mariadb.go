// Package database provides connection setup for MariaDB (calendar notes)
// and Redis (calendar definitions and clocks). Both connections are created
// once at startup and injected into the stores that use them.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// MariaDB driver, registered for database/sql.
	_ "github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/chronicle-calendar/internal/config"
)

// maxPingAttempts bounds how long startup waits for MariaDB.
const maxPingAttempts = 10

// NewMariaDB opens a MariaDB pool and waits until it answers a ping,
// retrying with exponential backoff while the database container starts.
// Cancelling ctx stops the retries.
func NewMariaDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mariadb connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := pingWithBackoff(ctx, "mariadb", db.PingContext); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// pingWithBackoff calls ping until it succeeds, ctx ends or the attempts run
// out. Backoff starts at one second and doubles up to thirty.
func pingWithBackoff(ctx context.Context, name string, ping func(context.Context) error) error {
	backoff := time.Second
	var pingErr error
	for attempt := 1; attempt <= maxPingAttempts; attempt++ {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pingErr = ping(pctx)
		cancel()
		if pingErr == nil {
			return nil
		}
		if attempt == maxPingAttempts {
			break
		}

		slog.Warn(name+" not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxPingAttempts),
			slog.Duration("backoff", backoff),
			slog.Any("error", pingErr),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", name, ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second)
	}
	return fmt.Errorf("pinging %s after %d attempts: %w", name, maxPingAttempts, pingErr)
}
