package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/store/memory"
)

var errBackendDown = errors.New("connection refused")

// flakyStore wraps the memory store and fails selected operations with
// core.ErrStoreUnavailable.
type flakyStore struct {
	*memory.Store

	mu               sync.Mutex
	failAccounts     bool
	failTransactions bool
	failBalanceWrite bool
	failColors       bool
	txReads          int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Store: memory.New()}
}

func (f *flakyStore) set(fn func(f *flakyStore)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *flakyStore) ListAccounts(ctx context.Context) ([]core.Account, error) {
	f.mu.Lock()
	fail := f.failAccounts
	f.mu.Unlock()
	if fail {
		return nil, core.Unavailable("list accounts", errBackendDown)
	}
	return f.Store.ListAccounts(ctx)
}

func (f *flakyStore) ListTransactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	f.mu.Lock()
	fail := f.failTransactions
	f.txReads++
	f.mu.Unlock()
	if fail {
		return nil, core.Unavailable("list transactions", errBackendDown)
	}
	return f.Store.ListTransactions(ctx, accountID)
}

func (f *flakyStore) UpdateAccountBalance(ctx context.Context, id string, balance core.Money) error {
	f.mu.Lock()
	fail := f.failBalanceWrite
	f.mu.Unlock()
	if fail {
		return core.Unavailable("update balance", errBackendDown)
	}
	return f.Store.UpdateAccountBalance(ctx, id, balance)
}

func (f *flakyStore) ListCategoryColors(ctx context.Context) (map[core.Category]string, error) {
	f.mu.Lock()
	fail := f.failColors
	f.mu.Unlock()
	if fail {
		return nil, core.Unavailable("list colors", errBackendDown)
	}
	return f.Store.ListCategoryColors(ctx)
}

func (f *flakyStore) transactionReads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txReads
}

// recordingPublisher keeps every published message.
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.LedgerChangedMessage
	err  error
}

func (p *recordingPublisher) PublishLedgerChanged(_ context.Context, msg *amqp.LedgerChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) messages() []*amqp.LedgerChangedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*amqp.LedgerChangedMessage(nil), p.msgs...)
}

type countingInvalidator struct {
	mu    sync.Mutex
	count int
}

func (c *countingInvalidator) Invalidate() {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

func (c *countingInvalidator) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func seedAccount(t *testing.T, st *flakyStore, id, owner, opening string) core.Account {
	t.Helper()
	a := core.Account{
		ID:             id,
		OwnerID:        owner,
		Name:           "Account " + id,
		Type:           core.Checking,
		OpeningBalance: core.MustMoney(opening),
		CurrentBalance: core.MustMoney(opening),
		CreatedAt:      time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.Store.CreateAccount(context.Background(), a))
	return a
}

func seedTx(t *testing.T, st *flakyStore, id, accountID, amount string, typ core.TransactionType, cat core.Category, date time.Time) {
	t.Helper()
	require.NoError(t, st.Store.CreateTransaction(context.Background(), core.Transaction{
		ID:          id,
		AccountID:   accountID,
		Description: "tx " + id,
		Amount:      core.MustMoney(amount),
		Type:        typ,
		Category:    cat,
		Date:        date,
		CreatedAt:   date,
	}))
}

// seedApril2023 stores one account opened at 1000 with a salary, rent and
// groceries in April 2023: balance 1250, net 250.
func seedApril2023(t *testing.T, st *flakyStore) core.Account {
	t.Helper()
	a := seedAccount(t, st, "acc-1", "", "1000")
	seedTx(t, st, "t1", a.ID, "500", core.Income, core.Salary, day(2023, time.April, 1))
	seedTx(t, st, "t2", a.ID, "200", core.Expense, core.Housing, day(2023, time.April, 2))
	seedTx(t, st, "t3", a.ID, "50", core.Expense, core.Food, day(2023, time.April, 15))
	return a
}
