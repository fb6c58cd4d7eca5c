package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"saldo/internal/core"
	"saldo/internal/store"
	"saldo/internal/store/storetest"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "saldo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteStore(t *testing.T) {
	dir := t.TempDir()
	n := 0
	suite.Run(t, &storetest.Suite{NewStore: func() store.Store {
		n++
		repo, err := NewSQLiteRepository(filepath.Join(dir, fmt.Sprintf("saldo-%d.db", n)))
		require.NoError(t, err)
		return repo
	}})
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saldo.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	version, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestMalformedStoredAmountCountsAsZero(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, type, opening_balance, current_balance, created_at)
		VALUES ('a', 'Main', 'checking', 'n/a', '0', '2024-01-01T00:00:00Z')`)
	require.NoError(t, err)
	_, err = repo.db.ExecContext(ctx,
		`INSERT INTO transactions (id, account_id, description, amount, type, category, date, created_at)
		VALUES ('t1', 'a', 'broken', '12,x', 'expense', 'FOOD', '2024-01-02T00:00:00Z', '2024-01-02T00:00:00Z'),
		       ('t2', 'a', 'odd', '5', 'expense', 'pets', '2024-01-03T00:00:00Z', '2024-01-03T00:00:00Z')`)
	require.NoError(t, err)

	acc, err := repo.GetAccount(ctx, "a")
	require.NoError(t, err)
	assert.True(t, acc.OpeningBalance.IsZero())

	txs, err := repo.ListTransactions(ctx, "a")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "t2", txs[0].ID)
	assert.Equal(t, core.Other, txs[0].Category)
	assert.True(t, txs[1].Amount.IsZero())
	assert.Equal(t, core.Food, txs[1].Category)
}

func TestClosedDatabaseIsUnavailable(t *testing.T) {
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "saldo.db"))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, err = repo.ListAccounts(context.Background())
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
}
