package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultSchema is the Postgres schema holding the application tables.
const DefaultSchema = "freightdesk"

// ErrTenantRequired is returned when a tenant-scoped transaction is opened without a tenant id.
var ErrTenantRequired = errors.New("tenant id is required")

type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// DB runs transactions pinned to the application schema. Tenant transactions
// additionally set app.tenant_id, which the documents row-level security
// policy compares against every row.
type DB struct {
	pool   txBeginner
	schema string
}

type DBConfig struct {
	Pool   *pgxpool.Pool
	Schema string
}

func NewDB(cfg DBConfig) *DB {
	if cfg.Pool == nil {
		panic("DB requires pool")
	}

	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = DefaultSchema
	}
	return &DB{pool: cfg.Pool, schema: schema}
}

// Schema returns the schema name the DB is pinned to.
func (db *DB) Schema() string { return db.schema }

// WithTx executes fn inside a transaction scoped to the application schema.
func (db *DB) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return db.run(ctx, "", fn)
}

// WithTenant executes fn inside a transaction whose visible documents are
// restricted to tenantID.
func (db *DB) WithTenant(ctx context.Context, tenantID string, fn func(tx pgx.Tx) error) error {
	if strings.TrimSpace(tenantID) == "" {
		return ErrTenantRequired
	}
	return db.run(ctx, tenantID, fn)
}

func (db *DB) run(ctx context.Context, tenantID string, fn func(tx pgx.Tx) error) error {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT set_config('search_path', $1, true)`, db.schema); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}

	if tenantID != "" {
		if _, err := tx.Exec(ctx, `SELECT set_config('app.tenant_id', $1, true)`, tenantID); err != nil {
			return fmt.Errorf("set tenant: %w", err)
		}
	}

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
