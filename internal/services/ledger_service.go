package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/identity"
	applog "saldo/internal/log"
	"saldo/internal/store"
)

// Publisher announces committed ledger writes.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// Invalidator drops cached derived values after a write.
type Invalidator interface {
	Invalidate()
}

// LedgerService validates and persists account, transaction, card and
// category color writes. After a successful write the report cache is
// invalidated and a ledger.changed message is published. Publish failures
// are logged and never fail the write.
type LedgerService struct {
	store     store.Store
	balances  *BalanceService
	reports   Invalidator
	publisher Publisher
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time
}

// NewLedgerService wires the write path. reports and publisher may be nil.
func NewLedgerService(st store.Store, reports Invalidator, publisher Publisher, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{
		store:     st,
		balances:  NewBalanceService(st, st, logger),
		reports:   reports,
		publisher: publisher,
		logger:    logger,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Balances returns the balance service sharing this ledger's store.
func (s *LedgerService) Balances() *BalanceService {
	return s.balances
}

// Accounts lists the accounts in scope with freshly computed balances.
func (s *LedgerService) Accounts(ctx context.Context) ([]core.Account, bool, error) {
	return s.balances.AccountsWithBalances(ctx)
}

func (s *LedgerService) Account(ctx context.Context, id string) (core.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// CreateAccount stores a new account. The opening balance becomes the
// initial current balance.
func (s *LedgerService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	a.ID = s.newID()
	a.OwnerID = identity.UserID(ctx)
	a.CreatedAt = s.now()
	a.CurrentBalance = a.OpeningBalance

	if err := s.store.CreateAccount(ctx, a); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	s.committed(ctx, amqp.KindAccount, amqp.OpCreated, a.ID, a.ID)
	return a, nil
}

// UpdateAccount changes name, type and color. The opening balance is fixed
// at creation.
func (s *LedgerService) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if err := s.store.UpdateAccount(ctx, a); err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	s.committed(ctx, amqp.KindAccount, amqp.OpUpdated, a.ID, a.ID)
	return s.store.GetAccount(ctx, a.ID)
}

// DeleteAccount removes the account together with its transactions and cards.
func (s *LedgerService) DeleteAccount(ctx context.Context, id string) error {
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.committed(ctx, amqp.KindAccount, amqp.OpDeleted, id, id)
	return nil
}

func (s *LedgerService) Transactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	if accountID != "" {
		if _, err := s.store.GetAccount(ctx, accountID); err != nil {
			return nil, err
		}
	}
	return s.store.ListTransactions(ctx, accountID)
}

func (s *LedgerService) Transaction(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *LedgerService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.ID = s.newID()
	t.CreatedAt = s.now()
	t.Date = core.WallClockUTC(t.Date)

	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.refreshBalance(ctx, t.AccountID)
	s.committed(ctx, amqp.KindTransaction, amqp.OpCreated, t.ID, t.AccountID)
	return t, nil
}

// UpdateTransaction replaces a transaction. Moving it to another account
// refreshes both balances.
func (s *LedgerService) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	prev, err := s.store.GetTransaction(ctx, t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	t.CreatedAt = prev.CreatedAt
	t.Date = core.WallClockUTC(t.Date)

	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.refreshBalance(ctx, t.AccountID)
	if prev.AccountID != t.AccountID {
		s.refreshBalance(ctx, prev.AccountID)
	}
	s.committed(ctx, amqp.KindTransaction, amqp.OpUpdated, t.ID, t.AccountID)
	return t, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	prev, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.refreshBalance(ctx, prev.AccountID)
	s.committed(ctx, amqp.KindTransaction, amqp.OpDeleted, id, prev.AccountID)
	return nil
}

func (s *LedgerService) Cards(ctx context.Context, accountID string) ([]core.Card, error) {
	if accountID != "" {
		if _, err := s.store.GetAccount(ctx, accountID); err != nil {
			return nil, err
		}
	}
	return s.store.ListCards(ctx, accountID)
}

func (s *LedgerService) Card(ctx context.Context, id string) (core.Card, error) {
	return s.store.GetCard(ctx, id)
}

func (s *LedgerService) CreateCard(ctx context.Context, c core.Card) (core.Card, error) {
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	c.ID = s.newID()
	if err := s.store.CreateCard(ctx, c); err != nil {
		return core.Card{}, fmt.Errorf("create card: %w", err)
	}
	s.committed(ctx, amqp.KindCard, amqp.OpCreated, c.ID, c.AccountID)
	return c, nil
}

func (s *LedgerService) UpdateCard(ctx context.Context, c core.Card) (core.Card, error) {
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	if err := s.store.UpdateCard(ctx, c); err != nil {
		return core.Card{}, fmt.Errorf("update card: %w", err)
	}
	s.committed(ctx, amqp.KindCard, amqp.OpUpdated, c.ID, c.AccountID)
	return c, nil
}

func (s *LedgerService) DeleteCard(ctx context.Context, id string) error {
	prev, err := s.store.GetCard(ctx, id)
	if err != nil {
		return fmt.Errorf("get card: %w", err)
	}
	if err := s.store.DeleteCard(ctx, id); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	s.committed(ctx, amqp.KindCard, amqp.OpDeleted, id, prev.AccountID)
	return nil
}

// SetCategoryColor persists a color override for one category.
func (s *LedgerService) SetCategoryColor(ctx context.Context, category, hex string) (core.Category, error) {
	c, err := core.ParseCategory(category)
	if err != nil {
		return "", err
	}
	if !core.ValidColorHex(hex) {
		return "", &core.ValidationError{Field: "color", Reason: "must be a hex color"}
	}
	if err := s.store.SetCategoryColor(ctx, c, hex); err != nil {
		return "", fmt.Errorf("set category color: %w", err)
	}
	s.committed(ctx, amqp.KindCategoryColor, amqp.OpUpdated, string(c), "")
	return c, nil
}

func (s *LedgerService) refreshBalance(ctx context.Context, accountID string) {
	if _, err := s.balances.AccountBalance(ctx, accountID); err != nil {
		s.logger.WarnContext(ctx, "Failed to refresh account balance",
			"account_id", accountID, "error", err)
	}
}

// committed runs the post-write steps: cache invalidation, then the
// ledger.changed announcement.
func (s *LedgerService) committed(ctx context.Context, kind, op, id, accountID string) {
	if s.reports != nil {
		s.reports.Invalidate()
	}

	fields := applog.NewFields().
		WithOperation(op).
		WithRecord(kind, id).
		WithUser(identity.UserID(ctx))
	s.logger.DebugContext(ctx, "Ledger record written", fields.ToSlice()...)

	if s.publisher == nil {
		return
	}
	msg := amqp.NewLedgerChangedMessage(kind, op, id, accountID, identity.UserID(ctx))
	if err := s.publisher.PublishLedgerChanged(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger message",
			fields.WithError(err).ToSlice()...)
	}
}
