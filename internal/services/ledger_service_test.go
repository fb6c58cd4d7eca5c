package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/identity"
)

type ledgerFixture struct {
	st      *flakyStore
	pub     *recordingPublisher
	inv     *countingInvalidator
	svc     *LedgerService
	nextID  int
	fixedAt time.Time
}

func newLedgerFixture() *ledgerFixture {
	f := &ledgerFixture{
		st:      newFlakyStore(),
		pub:     &recordingPublisher{},
		inv:     &countingInvalidator{},
		fixedAt: time.Date(2023, 4, 30, 8, 0, 0, 0, time.UTC),
	}
	f.svc = NewLedgerService(f.st, f.inv, f.pub, discardLogger())
	f.svc.newID = func() string {
		f.nextID++
		return fmt.Sprintf("id-%d", f.nextID)
	}
	f.svc.now = func() time.Time { return f.fixedAt }
	return f
}

func (f *ledgerFixture) createAccount(t *testing.T, ctx context.Context, opening string) core.Account {
	t.Helper()
	a, err := f.svc.CreateAccount(ctx, core.Account{
		Name:           "Main",
		Type:           core.Checking,
		OpeningBalance: core.MustMoney(opening),
	})
	require.NoError(t, err)
	return a
}

func expense(accountID, amount string, date time.Time) core.Transaction {
	return core.Transaction{
		AccountID:   accountID,
		Description: "groceries",
		Amount:      core.MustMoney(amount),
		Type:        core.Expense,
		Category:    core.Food,
		Date:        date,
	}
}

func TestLedgerService_CreateAccount(t *testing.T) {
	f := newLedgerFixture()
	ctx := identity.WithUserID(context.Background(), "alice")

	a := f.createAccount(t, ctx, "1000")
	assert.Equal(t, "id-1", a.ID)
	assert.Equal(t, "alice", a.OwnerID)
	assert.Equal(t, f.fixedAt, a.CreatedAt)
	assert.Equal(t, "1000.00", a.CurrentBalance.String())

	stored, err := f.st.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Name, stored.Name)

	msgs := f.pub.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, amqp.KindAccount, msgs[0].Kind)
	assert.Equal(t, amqp.OpCreated, msgs[0].Op)
	assert.Equal(t, "alice", msgs[0].OwnerID)
	assert.Equal(t, 1, f.inv.calls())
}

func TestLedgerService_RejectsInvalidWrites(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	_, err := f.svc.CreateAccount(ctx, core.Account{Name: "  ", Type: core.Checking})
	assert.ErrorIs(t, err, core.ErrValidation)

	a := f.createAccount(t, ctx, "10")
	published := len(f.pub.messages())

	_, err = f.svc.CreateTransaction(ctx, expense(a.ID, "0", day(2023, 4, 1)))
	assert.ErrorIs(t, err, core.ErrValidation)

	bad := expense(a.ID, "5", day(2023, 4, 1))
	bad.Category = "groceries"
	_, err = f.svc.CreateTransaction(ctx, bad)
	assert.ErrorIs(t, err, core.ErrValidation)

	txs, err := f.st.ListTransactions(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Len(t, f.pub.messages(), published, "nothing published for rejected writes")
}

func TestLedgerService_TransactionOnUnknownAccount(t *testing.T) {
	f := newLedgerFixture()

	_, err := f.svc.CreateTransaction(context.Background(), expense("nope", "5", day(2023, 4, 1)))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLedgerService_TransactionsRefreshBalance(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	a := f.createAccount(t, ctx, "1000")

	salary := core.Transaction{
		AccountID:   a.ID,
		Description: "salary",
		Amount:      core.MustMoney("500"),
		Type:        core.Income,
		Category:    core.Salary,
		Date:        day(2023, 4, 1),
	}
	_, err := f.svc.CreateTransaction(ctx, salary)
	require.NoError(t, err)
	rent, err := f.svc.CreateTransaction(ctx, expense(a.ID, "200", day(2023, 4, 2)))
	require.NoError(t, err)
	_, err = f.svc.CreateTransaction(ctx, expense(a.ID, "50", day(2023, 4, 3)))
	require.NoError(t, err)

	stored, err := f.st.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "1250.00", stored.CurrentBalance.String())

	rent.Amount = core.MustMoney("300")
	_, err = f.svc.UpdateTransaction(ctx, rent)
	require.NoError(t, err)
	stored, err = f.st.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "1150.00", stored.CurrentBalance.String())

	require.NoError(t, f.svc.DeleteTransaction(ctx, rent.ID))
	stored, err = f.st.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "1450.00", stored.CurrentBalance.String())
	assert.Equal(t, "1000.00", stored.OpeningBalance.String())
}

func TestLedgerService_MoveTransactionBetweenAccounts(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	from := f.createAccount(t, ctx, "100")
	to := f.createAccount(t, ctx, "100")

	tx, err := f.svc.CreateTransaction(ctx, expense(from.ID, "40", day(2023, 4, 2)))
	require.NoError(t, err)

	tx.AccountID = to.ID
	_, err = f.svc.UpdateTransaction(ctx, tx)
	require.NoError(t, err)

	a, err := f.st.GetAccount(ctx, from.ID)
	require.NoError(t, err)
	b, err := f.st.GetAccount(ctx, to.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", a.CurrentBalance.String())
	assert.Equal(t, "60.00", b.CurrentBalance.String())
}

func TestLedgerService_PublishFailureDoesNotFailWrite(t *testing.T) {
	f := newLedgerFixture()
	f.pub.err = errors.New("circuit breaker is open")
	ctx := context.Background()

	a := f.createAccount(t, ctx, "10")
	_, err := f.svc.CreateTransaction(ctx, expense(a.ID, "5", day(2023, 4, 1)))
	require.NoError(t, err)
	assert.Equal(t, 2, f.inv.calls())
}

func TestLedgerService_WithoutPublisher(t *testing.T) {
	st := newFlakyStore()
	svc := NewLedgerService(st, nil, nil, discardLogger())

	a, err := svc.CreateAccount(context.Background(), core.Account{Name: "Cash", Type: core.Savings})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
}

func TestLedgerService_DeleteAccountCascades(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	a := f.createAccount(t, ctx, "10")
	_, err := f.svc.CreateTransaction(ctx, expense(a.ID, "5", day(2023, 4, 1)))
	require.NoError(t, err)
	limit := core.MustMoney("1500")
	closing, due := 5, 15
	_, err = f.svc.CreateCard(ctx, core.Card{
		AccountID:      a.ID,
		Name:           "Visa",
		Type:           core.CardCredit,
		LastFourDigits: "4242",
		Expiry:         "08/27",
		Limit:          &limit,
		ClosingDay:     &closing,
		DueDay:         &due,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAccount(ctx, a.ID))

	txs, err := f.st.ListTransactions(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, txs)
	cards, err := f.st.ListCards(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, cards)

	msgs := f.pub.messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, amqp.KindAccount, last.Kind)
	assert.Equal(t, amqp.OpDeleted, last.Op)

	assert.ErrorIs(t, f.svc.DeleteAccount(ctx, a.ID), core.ErrNotFound)
}

func TestLedgerService_Cards(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	a := f.createAccount(t, ctx, "10")

	_, err := f.svc.CreateCard(ctx, core.Card{
		AccountID:      a.ID,
		Name:           "Visa",
		Type:           core.CardCredit,
		LastFourDigits: "4242",
		Expiry:         "08/27",
	})
	assert.ErrorIs(t, err, core.ErrValidation, "credit card needs a limit")

	c, err := f.svc.CreateCard(ctx, core.Card{
		AccountID:      a.ID,
		Name:           "Debit",
		Type:           core.CardDebit,
		LastFourDigits: "1234",
		Expiry:         "01/29",
	})
	require.NoError(t, err)

	c.Name = "Everyday"
	_, err = f.svc.UpdateCard(ctx, c)
	require.NoError(t, err)

	cards, err := f.svc.Cards(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Everyday", cards[0].Name)

	_, err = f.svc.Cards(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, f.svc.DeleteCard(ctx, c.ID))
	assert.ErrorIs(t, f.svc.DeleteCard(ctx, c.ID), core.ErrNotFound)
}

func TestLedgerService_SetCategoryColor(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	c, err := f.svc.SetCategoryColor(ctx, "Food", "#123456")
	require.NoError(t, err)
	assert.Equal(t, core.Food, c)

	colors, err := f.st.ListCategoryColors(ctx)
	require.NoError(t, err)
	assert.Equal(t, "#123456", colors[core.Food])

	_, err = f.svc.SetCategoryColor(ctx, "pets", "#123456")
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = f.svc.SetCategoryColor(ctx, "food", "red")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestLedgerService_InvalidatesReports(t *testing.T) {
	st := newFlakyStore()
	reports := newReportService(st)
	svc := NewLedgerService(st, reports, nil, discardLogger())
	ctx := context.Background()

	a, err := svc.CreateAccount(ctx, core.Account{Name: "Main", Type: core.Checking, OpeningBalance: core.MustMoney("100")})
	require.NoError(t, err)

	d, err := reports.Dashboard(ctx, april2023)
	require.NoError(t, err)
	assert.Equal(t, "100.00", d.TotalBalance.String())

	_, err = svc.CreateTransaction(ctx, expense(a.ID, "30", day(2023, 4, 10)))
	require.NoError(t, err)

	d, err = reports.Dashboard(ctx, april2023)
	require.NoError(t, err)
	assert.Equal(t, "70.00", d.TotalBalance.String())
	assert.Equal(t, "30.00", d.Expense.String())
}
