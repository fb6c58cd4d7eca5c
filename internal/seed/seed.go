// Package seed fills a store with a demo ledger: four accounts, two cards,
// a fixed set of transactions in the reference month and random filler in
// the months before it.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/bxcodec/faker/v3"
	"github.com/google/uuid"

	"saldo/internal/core"
	"saldo/internal/identity"
	"saldo/internal/store"
)

type Options struct {
	// Owner scopes the seeded accounts; empty seeds single-user data.
	Owner string
	// Ref is the month the fixed transactions land in (default: now).
	Ref time.Time
	// Months of random filler before Ref (default 5).
	Months int
	// PerMonth random transactions per filler month (default 8).
	PerMonth int
	// Seed for the filler amounts; equal seeds produce equal amounts.
	Seed int64
}

type Result struct {
	Accounts     int
	Transactions int
	Cards        int
}

type accountSpec struct {
	name    string
	typ     core.AccountType
	opening string
	color   string
}

var demoAccounts = []accountSpec{
	{"Main Checking", core.Checking, "5230.45", "#FF9800"},
	{"Rainy Day Savings", core.Savings, "12500.00", "#2196F3"},
	{"Digital Wallet", core.Checking, "3450.20", "#9C27B0"},
	{"Brokerage", core.Investment, "25000.00", "#4CAF50"},
}

type txSpec struct {
	account     int
	description string
	amount      string
	typ         core.TransactionType
	category    core.Category
	day         int
}

var demoMonth = []txSpec{
	{0, "Salary", "5000.00", core.Income, core.Salary, 5},
	{0, "Supermarket", "350.75", core.Expense, core.Food, 7},
	{0, "Ride share", "45.20", core.Expense, core.Transport, 8},
	{1, "Transfer to savings", "1000.00", core.Expense, core.CatInvestment, 6},
	{1, "Savings interest", "35.50", core.Income, core.CatInvestment, 28},
	{2, "Cinema", "80.00", core.Expense, core.Entertainment, 15},
	{2, "Pharmacy", "120.30", core.Expense, core.Health, 18},
	{3, "Real estate fund", "2000.00", core.Expense, core.CatInvestment, 10},
	{3, "Dividends", "350.00", core.Income, core.CatInvestment, 25},
	{0, "Rent", "1200.00", core.Expense, core.Housing, 10},
	{0, "Online course", "199.90", core.Expense, core.Education, 12},
	{2, "Clothing", "259.99", core.Expense, core.Shopping, 20},
}

var fillerCategories = []core.Category{
	core.Food, core.Transport, core.Entertainment, core.Shopping, core.Health, core.Other,
}

// Demo writes the demo ledger through st.
func Demo(ctx context.Context, st store.Store, opts Options) (Result, error) {
	if opts.Ref.IsZero() {
		opts.Ref = time.Now()
	}
	if opts.Months <= 0 {
		opts.Months = 5
	}
	if opts.PerMonth <= 0 {
		opts.PerMonth = 8
	}
	ctx = identity.WithUserID(ctx, opts.Owner)
	rng := rand.New(rand.NewSource(opts.Seed))
	ref := core.MonthOf(opts.Ref)
	loc := opts.Ref.Location()

	var res Result
	accs := make([]core.Account, len(demoAccounts))
	for i, spec := range demoAccounts {
		opening := core.MustMoney(spec.opening)
		accs[i] = core.Account{
			ID:             uuid.NewString(),
			OwnerID:        opts.Owner,
			Name:           spec.name,
			Type:           spec.typ,
			OpeningBalance: opening,
			CurrentBalance: opening,
			CreatedAt:      ref.AddMonths(-opts.Months).Start(loc).Add(time.Duration(i) * time.Hour),
			Color:          spec.color,
		}
		if err := st.CreateAccount(ctx, accs[i]); err != nil {
			return res, fmt.Errorf("create account %q: %w", spec.name, err)
		}
		res.Accounts++
	}

	txs := make(map[string][]core.Transaction, len(accs))
	add := func(t core.Transaction) error {
		t.ID = uuid.NewString()
		t.CreatedAt = t.Date
		if err := t.Validate(); err != nil {
			return err
		}
		if err := st.CreateTransaction(ctx, t); err != nil {
			return fmt.Errorf("create transaction %q: %w", t.Description, err)
		}
		txs[t.AccountID] = append(txs[t.AccountID], t)
		res.Transactions++
		return nil
	}

	for _, spec := range demoMonth {
		err := add(core.Transaction{
			AccountID:   accs[spec.account].ID,
			Description: spec.description,
			Amount:      core.MustMoney(spec.amount),
			Type:        spec.typ,
			Category:    spec.category,
			Date:        dayIn(ref, spec.day, loc),
		})
		if err != nil {
			return res, err
		}
	}

	for m := 1; m <= opts.Months; m++ {
		w := ref.AddMonths(-m)
		if err := add(core.Transaction{
			AccountID:   accs[0].ID,
			Description: "Salary",
			Amount:      core.MustMoney("5000.00"),
			Type:        core.Income,
			Category:    core.Salary,
			Date:        dayIn(w, 5, loc),
		}); err != nil {
			return res, err
		}
		for i := 0; i < opts.PerMonth; i++ {
			cat := fillerCategories[rng.Intn(len(fillerCategories))]
			cents := 500 + rng.Intn(30000)
			err := add(core.Transaction{
				AccountID:   accs[rng.Intn(3)].ID,
				Description: cat.Label() + " " + faker.Word(),
				Amount:      core.MustMoney(fmt.Sprintf("%d.%02d", cents/100, cents%100)),
				Type:        core.Expense,
				Category:    cat,
				Date:        dayIn(w, 1+rng.Intn(28), loc),
			})
			if err != nil {
				return res, err
			}
		}
	}

	limit := core.MustMoney("8000.00")
	closing, due := 3, 10
	cards := []core.Card{
		{
			AccountID:      accs[0].ID,
			Name:           "Platinum Credit",
			Type:           core.CardCredit,
			LastFourDigits: lastFour(faker.CCNumber()),
			Expiry:         opts.Ref.AddDate(3, 0, 0).Format("01/06"),
			Limit:          &limit,
			ClosingDay:     &closing,
			DueDay:         &due,
		},
		{
			AccountID:      accs[2].ID,
			Name:           "Everyday Debit",
			Type:           core.CardDebit,
			LastFourDigits: lastFour(faker.CCNumber()),
			Expiry:         opts.Ref.AddDate(2, 0, 0).Format("01/06"),
		},
	}
	for _, c := range cards {
		c.ID = uuid.NewString()
		if err := c.Validate(); err != nil {
			return res, err
		}
		if err := st.CreateCard(ctx, c); err != nil {
			return res, fmt.Errorf("create card %q: %w", c.Name, err)
		}
		res.Cards++
	}

	for _, a := range accs {
		balance := core.ComputeAccountBalance(a.OpeningBalance, txs[a.ID])
		if err := st.UpdateAccountBalance(ctx, a.ID, balance); err != nil {
			return res, fmt.Errorf("update balance %q: %w", a.Name, err)
		}
	}
	return res, nil
}

// dayIn clamps day to the last day of the month and returns noon of it.
func dayIn(w core.MonthWindow, day int, loc *time.Location) time.Time {
	last := w.End(loc).AddDate(0, 0, -1).Day()
	if day > last {
		day = last
	}
	return time.Date(w.Year, w.Month, day, 12, 0, 0, 0, loc)
}

func lastFour(number string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if len(digits) < 4 {
		return "0000"
	}
	return digits[len(digits)-4:]
}
