package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"swick/internal/config"
	"swick/internal/logger"
)

const (
	connectAttempts = 5
	pingTimeout     = 5 * time.Second
)

// DB is the local store behind the payment journal and saved credentials.
// A single terminal needs only a handful of connections.
type DB struct {
	Pool   *pgxpool.Pool
	logger *logger.Logger
}

// New opens the pool and waits for the database to answer a ping. The store
// usually starts alongside the terminal, so a refused connection is retried
// with a growing pause before giving up.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("invalid store address: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	for attempt := 1; ; attempt++ {
		pool, err := dial(ctx, poolConfig)
		if err == nil {
			log.Info("store_ready", "Local store is reachable", "", map[string]interface{}{
				"host":    poolConfig.ConnConfig.Host,
				"attempt": attempt,
			})
			return &DB{Pool: pool, logger: log}, nil
		}
		if attempt == connectAttempts {
			return nil, fmt.Errorf("store unreachable after %d attempts: %w", attempt, err)
		}

		pause := retryDelay(attempt)
		log.Warn("store_unreachable", "Local store not answering yet", "", map[string]interface{}{
			"attempt":  attempt,
			"retry_in": pause.String(),
			"error":    err.Error(),
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pause):
		}
	}
}

func dial(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// retryDelay is the pause after the given failed attempt, counted from 1
func retryDelay(attempt int) time.Duration {
	return time.Duration(attempt) * 2 * time.Second
}

func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping lets the quote service report the store in its health check
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

func (db *DB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return db.Pool.Exec(ctx, sql, args...)
}

func (db *DB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return db.Pool.Query(ctx, sql, args...)
}

func (db *DB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return db.Pool.QueryRow(ctx, sql, args...)
}
