package persistence

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

// fakeTx satisfies pgx.Tx and records Exec statements invoked.
type fakeTx struct {
	stmts      []string
	args       [][]any
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeTx) Commit(ctx context.Context) error   { f.committed = true; return nil }
func (f *fakeTx) Rollback(ctx context.Context) error { f.rolledBack = true; return nil }
func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}
func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (f *fakeTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return &pgconn.StatementDescription{}, errors.New("not implemented")
}
func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row { return nil }
func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.stmts = append(f.stmts, sql)
	f.args = append(f.args, args)
	return pgconn.CommandTag{}, nil
}
func (f *fakeTx) Conn() *pgx.Conn { return nil }

// fakePool returns a preconstructed transaction.
type fakePool struct{ tx *fakeTx }

func (p *fakePool) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	return p.tx, nil
}

func TestDBWithTxSetsOnlySearchPath(t *testing.T) {
	ftx := &fakeTx{}
	db := &DB{pool: &fakePool{tx: ftx}, schema: "freightdesk"}

	err := db.WithTx(context.Background(), func(tx pgx.Tx) error { return nil })
	require.NoError(t, err)
	require.Len(t, ftx.stmts, 1)
	require.Contains(t, strings.ToLower(ftx.stmts[0]), "set_config('search_path'")
	require.Equal(t, []any{"freightdesk"}, ftx.args[0])
	require.True(t, ftx.committed)
}

func TestDBWithTenantSetsTenantSetting(t *testing.T) {
	ftx := &fakeTx{}
	db := &DB{pool: &fakePool{tx: ftx}, schema: "freightdesk"}

	err := db.WithTenant(context.Background(), "tenant-a", func(tx pgx.Tx) error { return nil })
	require.NoError(t, err)
	require.Len(t, ftx.stmts, 2)
	require.Contains(t, ftx.stmts[1], "app.tenant_id")
	require.Equal(t, []any{"tenant-a"}, ftx.args[1])
}

func TestDBWithTenantRequiresTenant(t *testing.T) {
	ftx := &fakeTx{}
	db := &DB{pool: &fakePool{tx: ftx}, schema: "freightdesk"}

	err := db.WithTenant(context.Background(), "  ", func(tx pgx.Tx) error {
		t.Fatal("fn must not run")
		return nil
	})
	require.ErrorIs(t, err, ErrTenantRequired)
	require.Empty(t, ftx.stmts)
}

func TestDBRollsBackOnError(t *testing.T) {
	ftx := &fakeTx{}
	db := &DB{pool: &fakePool{tx: ftx}, schema: "freightdesk"}

	boom := errors.New("boom")
	err := db.WithTx(context.Background(), func(tx pgx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.False(t, ftx.committed)
	require.True(t, ftx.rolledBack)
}
