package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PoolOptions sizes the connection pool. Zero values use the defaults.
type PoolOptions struct {
	MaxOpen      int
	MaxIdle      int
	PingAttempts int
}

// Open connects to Postgres through the pgx driver and waits for the
// server to answer, retrying the ping with a growing delay.
func Open(ctx context.Context, databaseURL string, opts PoolOptions) (*sql.DB, error) {
	if opts.MaxOpen <= 0 {
		opts.MaxOpen = 20
	}
	if opts.MaxIdle <= 0 || opts.MaxIdle > opts.MaxOpen {
		opts.MaxIdle = opts.MaxOpen / 2
	}
	if opts.PingAttempts <= 0 {
		opts.PingAttempts = 1
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(opts.MaxIdle)
	db.SetMaxOpenConns(opts.MaxOpen)

	delay := 500 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if attempt >= opts.PingAttempts {
			break
		}
		select {
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("ping db: %w", ctx.Err())
		case <-time.After(delay):
		}
		if delay < 5*time.Second {
			delay *= 2
		}
	}
	db.Close()
	return nil, fmt.Errorf("ping db: %w", err)
}
