package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/identity"
	"saldo/internal/services"
	"saldo/internal/store/memory"
)

type fakeWriter struct {
	mu      sync.Mutex
	written map[string]core.Dashboard
	failFor string
}

func (f *fakeWriter) WriteDashboard(_ context.Context, ownerID string, d core.Dashboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ownerID == f.failFor {
		return errors.New("quota exceeded")
	}
	if f.written == nil {
		f.written = map[string]core.Dashboard{}
	}
	f.written[ownerID] = d
	return nil
}

func (f *fakeWriter) get(owner string) (core.Dashboard, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.written[owner]
	return d, ok
}

type fixture struct {
	st      *memory.Store
	reports *services.ReportService
	writer  *fakeWriter
	worker  *ExportWorker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memory.New()
	reports := services.NewReportService(st, services.DefaultReportConfig(), logger)
	writer := &fakeWriter{}
	w := NewExportWorker(reports, st, writer, logger)
	w.now = func() time.Time { return time.Date(2023, 4, 20, 12, 0, 0, 0, time.UTC) }
	return &fixture{st: st, reports: reports, writer: writer, worker: w}
}

func (f *fixture) account(t *testing.T, id, owner, opening string) {
	t.Helper()
	require.NoError(t, f.st.CreateAccount(context.Background(), core.Account{
		ID:             id,
		OwnerID:        owner,
		Name:           id,
		Type:           core.Checking,
		OpeningBalance: core.MustMoney(opening),
		CreatedAt:      time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
}

func (f *fixture) expense(t *testing.T, id, accountID, owner, amount string) {
	t.Helper()
	ctx := identity.WithUserID(context.Background(), owner)
	require.NoError(t, f.st.CreateTransaction(ctx, core.Transaction{
		ID:          id,
		AccountID:   accountID,
		Description: "tx " + id,
		Amount:      core.MustMoney(amount),
		Type:        core.Expense,
		Category:    core.Food,
		Date:        time.Date(2023, 4, 10, 12, 0, 0, 0, time.UTC),
	}))
}

func TestExportWorker_ExportAll(t *testing.T) {
	f := newFixture(t)
	f.account(t, "a1", "alice", "100")
	f.account(t, "a2", "alice", "50")
	f.account(t, "b1", "bob", "900")

	require.NoError(t, f.worker.ExportAll(context.Background()))

	alice, ok := f.writer.get("alice")
	require.True(t, ok)
	assert.Equal(t, "150.00", alice.TotalBalance.String())
	assert.Equal(t, time.April, alice.Month)

	bob, ok := f.writer.get("bob")
	require.True(t, ok)
	assert.Equal(t, "900.00", bob.TotalBalance.String())
}

func TestExportWorker_ExportAllEmpty(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.worker.ExportAll(context.Background()))
	_, ok := f.writer.get("")
	assert.False(t, ok)
}

func TestExportWorker_ExportAllContinuesAfterFailure(t *testing.T) {
	f := newFixture(t)
	f.account(t, "a1", "alice", "100")
	f.account(t, "b1", "bob", "900")
	f.writer.failFor = "alice"

	err := f.worker.ExportAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alice")

	_, ok := f.writer.get("bob")
	assert.True(t, ok, "bob exported despite alice failing")
}

func TestExportWorker_HandleLedgerChangedRefreshesReport(t *testing.T) {
	f := newFixture(t)
	f.account(t, "a1", "alice", "100")
	require.NoError(t, f.worker.ExportOwner(context.Background(), "alice"))

	// A write made by another process: only the message tells this worker.
	f.expense(t, "t1", "a1", "alice", "30")
	msg := amqp.NewLedgerChangedMessage(amqp.KindTransaction, amqp.OpCreated, "t1", "a1", "alice")
	require.NoError(t, f.worker.HandleLedgerChanged(context.Background(), msg))

	d, ok := f.writer.get("alice")
	require.True(t, ok)
	assert.Equal(t, "70.00", d.TotalBalance.String())
	assert.Equal(t, "30.00", d.Expense.String())
}

func TestExportWorker_HandleLedgerChangedWriteFailure(t *testing.T) {
	f := newFixture(t)
	f.account(t, "a1", "alice", "100")
	f.writer.failFor = "alice"

	msg := amqp.NewLedgerChangedMessage(amqp.KindAccount, amqp.OpUpdated, "a1", "a1", "alice")
	err := f.worker.HandleLedgerChanged(context.Background(), msg)
	require.Error(t, err)
}
