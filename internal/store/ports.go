// Package store declares the record store ports consumed by the services.
//
// Every method is scoped by the owner carried in the context (see
// identity.UserID). An empty owner means single-user mode: no filtering.
// Implementations report missing records with core.ErrNotFound and backend
// failures with core.ErrStoreUnavailable.
package store

import (
	"context"

	"saldo/internal/core"
)

type (
	AccountReader interface {
		// ListAccounts returns the accounts in scope ordered by creation time.
		ListAccounts(ctx context.Context) ([]core.Account, error)
		GetAccount(ctx context.Context, id string) (core.Account, error)
	}

	AccountStore interface {
		AccountReader
		// UpdateAccountBalance refreshes the cached current balance only.
		UpdateAccountBalance(ctx context.Context, id string, balance core.Money) error
		CreateAccount(ctx context.Context, a core.Account) error
		UpdateAccount(ctx context.Context, a core.Account) error
		// DeleteAccount removes the account with its transactions and cards.
		DeleteAccount(ctx context.Context, id string) error
	}

	TransactionReader interface {
		// ListTransactions returns transactions newest first. An empty
		// accountID lists every transaction in scope.
		ListTransactions(ctx context.Context, accountID string) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	}

	TransactionStore interface {
		TransactionReader
		CreateTransaction(ctx context.Context, t core.Transaction) error
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
	}

	CardStore interface {
		// ListCards lists cards of one account, or all in scope when accountID is empty.
		ListCards(ctx context.Context, accountID string) ([]core.Card, error)
		GetCard(ctx context.Context, id string) (core.Card, error)
		CreateCard(ctx context.Context, c core.Card) error
		UpdateCard(ctx context.Context, c core.Card) error
		DeleteCard(ctx context.Context, id string) error
	}

	CategoryColorStore interface {
		// ListCategoryColors returns persisted overrides only; callers resolve
		// them against the defaults.
		ListCategoryColors(ctx context.Context) (map[core.Category]string, error)
		SetCategoryColor(ctx context.Context, c core.Category, hex string) error
	}

	// Store is the full record store surface a backend provides.
	Store interface {
		AccountStore
		TransactionStore
		CardStore
		CategoryColorStore
		Ping(ctx context.Context) error
		Close() error
	}
)
