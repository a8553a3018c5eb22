package database

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is a type alias for pgxpool.Pool for use in other packages.
type Pool = pgxpool.Pool

const applicationName = "huddle"

type connectOptions struct {
	attempts int
	wait     time.Duration
}

// ConnectOption tunes Connect.
type ConnectOption func(*connectOptions)

// WithConnectRetry pings up to attempts times, doubling wait between tries,
// so the API can start alongside a database that is still booting.
func WithConnectRetry(attempts int, wait time.Duration) ConnectOption {
	return func(o *connectOptions) {
		if attempts > 0 {
			o.attempts = attempts
		}
		if wait > 0 {
			o.wait = wait
		}
	}
}

// Connect opens a pgx pool and verifies it with a ping. maxConns <= 0 keeps
// the pgxpool default. Connections report application_name "huddle".
func Connect(ctx context.Context, databaseURL string, maxConns int, opts ...ConnectOption) (*pgxpool.Pool, error) {
	o := connectOptions{attempts: 1, wait: time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	if maxConns > 0 && maxConns <= math.MaxInt32 {
		config.MaxConns = int32(maxConns) // #nosec G115 -- bounds checked above
	}
	config.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	wait := o.wait
	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			return pool, nil
		}
		if attempt >= o.attempts {
			break
		}
		slog.Warn("database not ready, retrying", "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, fmt.Errorf("pinging database: %w", ctx.Err())
		case <-time.After(wait):
		}
		wait *= 2
	}

	pool.Close()
	return nil, fmt.Errorf("pinging database after %d attempts: %w", o.attempts, err)
}
