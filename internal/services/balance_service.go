package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"saldo/internal/core"
	"saldo/internal/store"
)

// BalanceService derives account balances from the opening balance and the
// full transaction history, then refreshes each account's cached
// CurrentBalance. Write-back is best effort: failures are logged and the
// computed value is still returned. Concurrent refreshes of the same account
// are last-write-wins.
type BalanceService struct {
	accounts store.AccountStore
	txs      store.TransactionReader
	logger   *slog.Logger
}

func NewBalanceService(accounts store.AccountStore, txs store.TransactionReader, logger *slog.Logger) *BalanceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BalanceService{accounts: accounts, txs: txs, logger: logger}
}

// AccountBalance computes the balance of one account.
func (s *BalanceService) AccountBalance(ctx context.Context, id string) (core.AccountBalance, error) {
	acc, err := s.accounts.GetAccount(ctx, id)
	if err != nil {
		return core.AccountBalance{}, fmt.Errorf("get account: %w", err)
	}

	txs, err := s.txs.ListTransactions(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrStoreUnavailable) {
			s.logger.WarnContext(ctx, "Serving cached account balance", "account_id", id, "error", err)
			return core.AccountBalance{AccountID: id, Balance: acc.CurrentBalance, Stale: true}, nil
		}
		return core.AccountBalance{}, fmt.Errorf("list transactions: %w", err)
	}

	balance := core.ComputeAccountBalance(acc.OpeningBalance, txs)
	s.writeBack(ctx, id, balance)
	return core.AccountBalance{AccountID: id, Balance: balance}, nil
}

// TotalBalance sums the balances of every account in scope.
func (s *BalanceService) TotalBalance(ctx context.Context) (core.AccountBalance, error) {
	accs, stale, err := s.AccountsWithBalances(ctx)
	if err != nil {
		return core.AccountBalance{}, err
	}
	total := core.Zero
	for _, a := range accs {
		total = total.Add(a.CurrentBalance)
	}
	return core.AccountBalance{Balance: total, Stale: stale}, nil
}

// AccountsWithBalances returns the accounts in scope with CurrentBalance
// recomputed. stale is set when transactions could not be read and the
// stored balances were returned instead.
func (s *BalanceService) AccountsWithBalances(ctx context.Context) (accs []core.Account, stale bool, err error) {
	accs, err = s.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("list accounts: %w", err)
	}
	if len(accs) == 0 {
		return accs, false, nil
	}

	txs, err := s.txs.ListTransactions(ctx, "")
	if err != nil {
		if errors.Is(err, core.ErrStoreUnavailable) {
			s.logger.WarnContext(ctx, "Serving cached account balances", "error", err)
			return accs, true, nil
		}
		return nil, false, fmt.Errorf("list transactions: %w", err)
	}

	byAccount := groupByAccount(txs)
	for i := range accs {
		balance := core.ComputeAccountBalance(accs[i].OpeningBalance, byAccount[accs[i].ID])
		s.writeBack(ctx, accs[i].ID, balance)
		accs[i].CurrentBalance = balance
	}
	return accs, false, nil
}

func (s *BalanceService) writeBack(ctx context.Context, id string, balance core.Money) {
	writeBack(ctx, s.accounts, s.logger, id, balance)
}

type balanceWriter interface {
	UpdateAccountBalance(ctx context.Context, id string, balance core.Money) error
}

// writeBack persists a derived balance. Failures are logged and dropped.
func writeBack(ctx context.Context, w balanceWriter, logger *slog.Logger, id string, balance core.Money) {
	if err := w.UpdateAccountBalance(ctx, id, balance); err != nil {
		logger.WarnContext(ctx, "Failed to persist account balance",
			"account_id", id,
			"balance", balance.String(),
			"error", err)
	}
}
