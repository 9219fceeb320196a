package dbx

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// ErrEmptyDSN is returned by OpenPostgres when no connection string is set.
var ErrEmptyDSN = errors.New("database connection string is empty")

// PoolOptions bounds the process-wide connection pool.
type PoolOptions struct {
	MaxOpenConns   int
	ConnectTimeout time.Duration
	IdleTimeout    time.Duration
}

// DefaultPoolOptions is sized for short-lived serverless instances that share
// a small managed Postgres.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxOpenConns:   5,
		ConnectTimeout: 10 * time.Second,
		IdleTimeout:    30 * time.Second,
	}
}

// OpenPostgres builds a *sql.DB backed by the pgx driver. No connection is
// made here; the first query dials.
func OpenPostgres(dsn string, opts PoolOptions) (*sql.DB, error) {
	if dsn == "" {
		return nil, ErrEmptyDSN
	}

	cc, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if opts.ConnectTimeout > 0 {
		cc.ConnectTimeout = opts.ConnectTimeout
	}

	db := stdlib.OpenDB(*cc)
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}
	if opts.IdleTimeout > 0 {
		db.SetConnMaxIdleTime(opts.IdleTimeout)
	}
	return db, nil
}
