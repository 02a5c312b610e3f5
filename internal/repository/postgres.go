// Package repository implements the domain repositories on PostgreSQL.
package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/sales-service/db"
)

// uniqueViolation is the SQLSTATE of unique constraint failures.
const uniqueViolation = "23505"

// PoolOption tunes the connection pool.
type PoolOption func(*pgxpool.Config)

// WithMaxConns caps open connections. Non-positive values keep the pgx
// default.
func WithMaxConns(n int32) PoolOption {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = n
		}
	}
}

// WithMaxConnLifetime recycles connections older than d.
func WithMaxConnLifetime(d time.Duration) PoolOption {
	return func(c *pgxpool.Config) {
		if d > 0 {
			c.MaxConnLifetime = d
		}
	}
}

// NewPool connects to databaseURL. NUMERIC columns scan into
// decimal.Decimal on every connection.
func NewPool(ctx context.Context, databaseURL string, opts ...PoolOption) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create connection pool")
	}
	return pool, nil
}

// RunMigrations applies the embedded schema. The schema is idempotent.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return errors.Wrap(err, "apply schema")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
