package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig describes the shared pgx pool of the API and CLI.
type PoolConfig struct {
	ConnString      string
	ApplicationName string // shown in pg_stat_activity

	// Schema becomes the connection search_path, so ad-hoc queries made
	// outside DB transactions still see the application tables.
	Schema string
	// StatementTimeout caps every statement server side. Zero keeps the server default.
	StatementTimeout time.Duration

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// ConnectAttempts retries the initial ping, for databases that start
	// alongside the service. Values below 1 mean a single attempt.
	ConnectAttempts int
	ConnectBackoff  time.Duration
}

func (c PoolConfig) pgxConfig() (*pgxpool.Config, error) {
	if c.ConnString == "" {
		return nil, errors.New("database conn string is required")
	}
	pc, err := pgxpool.ParseConfig(c.ConnString)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	params := pc.ConnConfig.RuntimeParams
	if c.ApplicationName != "" {
		params["application_name"] = c.ApplicationName
	}
	if c.Schema != "" {
		params["search_path"] = c.Schema
	}
	if c.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(c.StatementTimeout.Milliseconds(), 10)
	}

	if c.MaxConns > 0 {
		pc.MaxConns = c.MaxConns
	}
	if c.MinConns > 0 {
		pc.MinConns = c.MinConns
	}
	if c.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = c.MaxConnLifetime
	}
	if c.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = c.MaxConnIdleTime
	}
	return pc, nil
}

// NewPool opens the pool and pings it, retrying per ConnectAttempts.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	pc, err := cfg.pgxConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	attempts := max(cfg.ConnectAttempts, 1)
	backoff := cfg.ConnectBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			return pool, nil
		}
		if attempt >= attempts {
			break
		}
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", ctx.Err())
		case <-time.After(backoff):
		}
	}

	pool.Close()
	return nil, fmt.Errorf("ping postgres after %d attempt(s): %w", attempts, err)
}

// ClosePool closes pool; nil is ignored.
func ClosePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}
