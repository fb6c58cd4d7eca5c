// Package storetest holds a behavioural test suite shared by every
// store.Store implementation.
package storetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"saldo/internal/core"
	"saldo/internal/identity"
	"saldo/internal/store"
)

// Suite runs the store contract against a fresh store per test.
type Suite struct {
	suite.Suite
	// NewStore returns an empty store. It is called once per test.
	NewStore func() store.Store

	st  store.Store
	ctx context.Context
}

func (s *Suite) SetupTest() {
	s.st = s.NewStore()
	s.ctx = context.Background()
}

func (s *Suite) TearDownTest() {
	if s.st != nil {
		s.NoError(s.st.Close())
	}
}

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func (s *Suite) account(id, owner string, offset int) core.Account {
	a := core.Account{
		ID:             id,
		OwnerID:        owner,
		Name:           "Account " + id,
		Type:           core.Checking,
		OpeningBalance: core.MustMoney("100.50"),
		CurrentBalance: core.MustMoney("100.50"),
		CreatedAt:      base.Add(time.Duration(offset) * time.Minute),
	}
	s.Require().NoError(s.st.CreateAccount(s.ctx, a))
	return a
}

func (s *Suite) transaction(id, accountID string, day int, amount string, typ core.TransactionType) core.Transaction {
	t := core.Transaction{
		ID:          id,
		AccountID:   accountID,
		Description: "tx " + id,
		Amount:      core.MustMoney(amount),
		Type:        typ,
		Category:    core.Food,
		Date:        time.Date(2024, 3, day, 12, 0, 0, 0, time.UTC),
		CreatedAt:   base,
	}
	s.Require().NoError(s.st.CreateTransaction(s.ctx, t))
	return t
}

func (s *Suite) TestPing() {
	s.NoError(s.st.Ping(s.ctx))
}

func (s *Suite) TestAccountsRoundTrip() {
	s.account("b", "", 2)
	a := s.account("a", "", 1)

	got, err := s.st.GetAccount(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal(a.Name, got.Name)
	s.Equal(core.Checking, got.Type)
	s.True(got.OpeningBalance.Equal(a.OpeningBalance), "opening %s", got.OpeningBalance)
	s.True(got.CreatedAt.Equal(a.CreatedAt))

	list, err := s.st.ListAccounts(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("a", list[0].ID, "ordered by creation time")
	s.Equal("b", list[1].ID)

	_, err = s.st.GetAccount(s.ctx, "missing")
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *Suite) TestUpdateAccountKeepsOpeningBalance() {
	a := s.account("a", "", 0)
	a.Name = "Renamed"
	a.Color = "#123456"
	a.OpeningBalance = core.MustMoney("999")
	s.Require().NoError(s.st.UpdateAccount(s.ctx, a))

	got, err := s.st.GetAccount(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal("Renamed", got.Name)
	s.Equal("#123456", got.Color)
	s.Equal("100.50", got.OpeningBalance.String())

	s.ErrorIs(s.st.UpdateAccount(s.ctx, core.Account{ID: "missing", Name: "x", Type: core.Savings}), core.ErrNotFound)
}

func (s *Suite) TestUpdateAccountBalance() {
	s.account("a", "", 0)
	s.Require().NoError(s.st.UpdateAccountBalance(s.ctx, "a", core.MustMoney("42.10")))

	got, err := s.st.GetAccount(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal("42.10", got.CurrentBalance.String())
	s.Equal("100.50", got.OpeningBalance.String())

	s.ErrorIs(s.st.UpdateAccountBalance(s.ctx, "missing", core.Zero), core.ErrNotFound)
}

func (s *Suite) TestTransactions() {
	s.account("a", "", 0)
	s.account("b", "", 1)
	s.transaction("t1", "a", 1, "10", core.Expense)
	s.transaction("t2", "a", 5, "20.25", core.Income)
	s.transaction("t3", "b", 3, "7", core.Expense)

	all, err := s.st.ListTransactions(s.ctx, "")
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal([]string{"t2", "t3", "t1"}, []string{all[0].ID, all[1].ID, all[2].ID}, "newest first")

	onlyA, err := s.st.ListTransactions(s.ctx, "a")
	s.Require().NoError(err)
	s.Len(onlyA, 2)

	got, err := s.st.GetTransaction(s.ctx, "t2")
	s.Require().NoError(err)
	s.Equal("20.25", got.Amount.String())
	s.Equal(core.Income, got.Type)
	s.Equal(core.Food, got.Category)
	s.Equal(5, got.Date.Day())

	got.Amount = core.MustMoney("30")
	got.Category = core.Salary
	s.Require().NoError(s.st.UpdateTransaction(s.ctx, got))
	got, err = s.st.GetTransaction(s.ctx, "t2")
	s.Require().NoError(err)
	s.Equal("30.00", got.Amount.String())
	s.Equal(core.Salary, got.Category)

	s.Require().NoError(s.st.DeleteTransaction(s.ctx, "t2"))
	_, err = s.st.GetTransaction(s.ctx, "t2")
	s.ErrorIs(err, core.ErrNotFound)
	s.ErrorIs(s.st.DeleteTransaction(s.ctx, "t2"), core.ErrNotFound)

	err = s.st.CreateTransaction(s.ctx, core.Transaction{
		ID: "t9", AccountID: "missing", Description: "x", Amount: core.MustMoney("1"),
		Type: core.Expense, Category: core.Food, Date: base, CreatedAt: base,
	})
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *Suite) TestTransactionDatesKeepTheirCalendarMonth() {
	s.account("a", "", 0)
	cest := time.FixedZone("CEST", 2*60*60)
	t := core.Transaction{
		ID:          "t1",
		AccountID:   "a",
		Description: "late night",
		Amount:      core.MustMoney("10"),
		Type:        core.Expense,
		Category:    core.Food,
		Date:        time.Date(2023, time.May, 1, 0, 30, 0, 0, cest),
		CreatedAt:   base,
	}
	s.Require().NoError(s.st.CreateTransaction(s.ctx, t))

	got, err := s.st.GetTransaction(s.ctx, "t1")
	s.Require().NoError(err)
	s.True(time.Date(2023, time.May, 1, 0, 30, 0, 0, time.UTC).Equal(got.Date), "got %s", got.Date)
	s.Equal(core.MonthWindow{Year: 2023, Month: time.May}, core.MonthOf(got.Date))

	got.Date = time.Date(2023, time.April, 30, 23, 45, 0, 0, time.FixedZone("BRT", -3*60*60))
	s.Require().NoError(s.st.UpdateTransaction(s.ctx, got))
	got, err = s.st.GetTransaction(s.ctx, "t1")
	s.Require().NoError(err)
	s.Equal(core.MonthWindow{Year: 2023, Month: time.April}, core.MonthOf(got.Date))
	s.Equal(30, got.Date.Day())
}

func (s *Suite) TestCards() {
	s.account("a", "", 0)
	limit := core.MustMoney("1500")
	closing, due := 5, 15
	c := core.Card{
		ID: "c1", AccountID: "a", Name: "Visa", Type: core.CardCredit,
		LastFourDigits: "4321", Expiry: "09/28", Limit: &limit, ClosingDay: &closing, DueDay: &due,
	}
	s.Require().NoError(s.st.CreateCard(s.ctx, c))
	s.Require().NoError(s.st.CreateCard(s.ctx, core.Card{
		ID: "c2", AccountID: "a", Name: "Debit", Type: core.CardDebit, LastFourDigits: "0001", Expiry: "01/30",
	}))

	got, err := s.st.GetCard(s.ctx, "c1")
	s.Require().NoError(err)
	s.Require().NotNil(got.Limit)
	s.Equal("1500.00", got.Limit.String())
	s.Require().NotNil(got.ClosingDay)
	s.Equal(5, *got.ClosingDay)
	s.Require().NotNil(got.DueDay)
	s.Equal(15, *got.DueDay)

	debit, err := s.st.GetCard(s.ctx, "c2")
	s.Require().NoError(err)
	s.Nil(debit.Limit)
	s.Nil(debit.ClosingDay)

	list, err := s.st.ListCards(s.ctx, "a")
	s.Require().NoError(err)
	s.Len(list, 2)

	got.Name = "Visa Gold"
	s.Require().NoError(s.st.UpdateCard(s.ctx, got))
	got, err = s.st.GetCard(s.ctx, "c1")
	s.Require().NoError(err)
	s.Equal("Visa Gold", got.Name)

	s.Require().NoError(s.st.DeleteCard(s.ctx, "c2"))
	s.ErrorIs(s.st.DeleteCard(s.ctx, "c2"), core.ErrNotFound)
}

func (s *Suite) TestDeleteAccountCascades() {
	s.account("a", "", 0)
	s.transaction("t1", "a", 1, "10", core.Expense)
	s.Require().NoError(s.st.CreateCard(s.ctx, core.Card{
		ID: "c1", AccountID: "a", Name: "Debit", Type: core.CardDebit, LastFourDigits: "0001", Expiry: "01/30",
	}))

	s.Require().NoError(s.st.DeleteAccount(s.ctx, "a"))
	_, err := s.st.GetAccount(s.ctx, "a")
	s.ErrorIs(err, core.ErrNotFound)
	_, err = s.st.GetTransaction(s.ctx, "t1")
	s.ErrorIs(err, core.ErrNotFound)
	_, err = s.st.GetCard(s.ctx, "c1")
	s.ErrorIs(err, core.ErrNotFound)
	s.ErrorIs(s.st.DeleteAccount(s.ctx, "a"), core.ErrNotFound)
}

func (s *Suite) TestOwnerScoping() {
	s.account("mine", "alice", 0)
	s.account("theirs", "bob", 1)
	s.transaction("t1", "mine", 1, "10", core.Expense)
	s.transaction("t2", "theirs", 2, "20", core.Expense)

	alice := identity.WithUserID(s.ctx, "alice")

	accs, err := s.st.ListAccounts(alice)
	s.Require().NoError(err)
	s.Require().Len(accs, 1)
	s.Equal("mine", accs[0].ID)

	_, err = s.st.GetAccount(alice, "theirs")
	s.ErrorIs(err, core.ErrNotFound)

	txs, err := s.st.ListTransactions(alice, "")
	s.Require().NoError(err)
	s.Require().Len(txs, 1)
	s.Equal("t1", txs[0].ID)

	_, err = s.st.GetTransaction(alice, "t2")
	s.ErrorIs(err, core.ErrNotFound)
	s.ErrorIs(s.st.DeleteTransaction(alice, "t2"), core.ErrNotFound)
	s.ErrorIs(s.st.UpdateAccountBalance(alice, "theirs", core.Zero), core.ErrNotFound)

	// single-user mode sees everything
	all, err := s.st.ListAccounts(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *Suite) TestCategoryColors() {
	colors, err := s.st.ListCategoryColors(s.ctx)
	s.Require().NoError(err)
	s.Empty(colors)

	s.Require().NoError(s.st.SetCategoryColor(s.ctx, core.Food, "#000000"))
	s.Require().NoError(s.st.SetCategoryColor(s.ctx, core.Food, "#111111"))
	colors, err = s.st.ListCategoryColors(s.ctx)
	s.Require().NoError(err)
	s.Equal(map[core.Category]string{core.Food: "#111111"}, colors)

	alice := identity.WithUserID(s.ctx, "alice")
	colors, err = s.st.ListCategoryColors(alice)
	s.Require().NoError(err)
	s.Empty(colors, "colors are per owner")

	s.ErrorIs(s.st.SetCategoryColor(s.ctx, core.Food, "red"), core.ErrValidation)
	s.ErrorIs(s.st.SetCategoryColor(s.ctx, "pets", "#000000"), core.ErrValidation)
}
