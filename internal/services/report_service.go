package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"saldo/internal/cache"
	"saldo/internal/core"
	"saldo/internal/identity"
	"saldo/internal/store"
)

const (
	DefaultTrailingMonths = 6
	recentTransactions    = 5
)

// ReportReader is the surface the reports aggregate over. Balances derived
// while loading a snapshot are written back through UpdateAccountBalance.
type ReportReader interface {
	store.AccountReader
	store.TransactionReader
	balanceWriter
	ListCategoryColors(ctx context.Context) (map[core.Category]string, error)
}

// ReportConfig holds report settings.
type ReportConfig struct {
	TrailingMonths int
	CacheTTL       time.Duration
	// KeepStale is how long an invalidated snapshot stays available for the
	// degraded read path.
	KeepStale time.Duration
	CacheSize int
}

func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		TrailingMonths: DefaultTrailingMonths,
		CacheTTL:       5 * time.Minute,
		KeepStale:      24 * time.Hour,
		CacheSize:      256,
	}
}

// snapshot is one owner's records as read from the store. Every report is a
// pure function of a snapshot and a reference date.
type snapshot struct {
	Accounts     []core.Account
	Transactions []core.Transaction
	Colors       map[core.Category]string
}

// ReportService computes the period reports. Store reads are cached per
// owner until the next ledger write; when the store is unavailable the last
// snapshot is served and the report is flagged stale.
type ReportService struct {
	store  ReportReader
	config ReportConfig
	lru    *cache.LRUCache[snapshot]
	loader *cache.Loader[snapshot]
	logger *slog.Logger
	now    func() time.Time
}

func NewReportService(r ReportReader, config ReportConfig, logger *slog.Logger) *ReportService {
	defaults := DefaultReportConfig()
	if config.TrailingMonths <= 0 {
		config.TrailingMonths = defaults.TrailingMonths
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	if config.KeepStale <= 0 {
		config.KeepStale = defaults.KeepStale
	}
	if config.CacheSize <= 0 {
		config.CacheSize = defaults.CacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	lru := cache.NewLRUCache[snapshot](config.CacheSize, config.CacheTTL, config.KeepStale)
	return &ReportService{
		store:  r,
		config: config,
		lru:    lru,
		loader: cache.NewLoader(lru),
		logger: logger,
		now:    time.Now,
	}
}

// Cache exposes the snapshot cache for periodic cleanup.
func (s *ReportService) Cache() cache.Cleaner {
	return s.lru
}

// Invalidate marks every cached snapshot stale. Ledger writes call it.
func (s *ReportService) Invalidate() {
	n := s.loader.Invalidate()
	s.logger.Debug("Report cache invalidated", "entries", n)
}

// Dashboard builds the overview for the month containing ref.
func (s *ReportService) Dashboard(ctx context.Context, ref time.Time) (core.Dashboard, error) {
	snap, stale, err := s.snapshot(ctx)
	if err != nil {
		return core.Dashboard{}, err
	}

	total := core.Zero
	for _, a := range snap.Accounts {
		total = total.Add(a.CurrentBalance)
	}

	w := core.MonthOf(ref)
	ie := core.MonthlyIncomeExpense(snap.Transactions, ref)
	return core.Dashboard{
		OwnerID:      identity.UserID(ctx),
		Year:         w.Year,
		Month:        w.Month,
		TotalBalance: total,
		Income:       ie.Income,
		Expense:      ie.Expense,
		Net:          ie.Net(),
		Categories:   core.ApplyCategoryColors(core.CategoryExpenseBreakdown(snap.Transactions, ref), snap.Colors),
		Series:       core.TrailingMonthlySeries(snap.Transactions, s.config.TrailingMonths, ref),
		Recent:       core.RecentTransactions(snap.Transactions, recentTransactions),
		GeneratedAt:  s.now(),
		Stale:        stale,
	}, nil
}

// MonthlyIncomeExpense totals the month containing ref.
func (s *ReportService) MonthlyIncomeExpense(ctx context.Context, ref time.Time) (core.MonthlyReport, error) {
	snap, stale, err := s.snapshot(ctx)
	if err != nil {
		return core.MonthlyReport{}, err
	}
	w := core.MonthOf(ref)
	ie := core.MonthlyIncomeExpense(snap.Transactions, ref)
	return core.MonthlyReport{
		Year:          w.Year,
		Month:         w.Month,
		IncomeExpense: ie,
		Net:           ie.Net(),
		Stale:         stale,
	}, nil
}

// CategoryBreakdown groups the expenses of the month containing ref.
func (s *ReportService) CategoryBreakdown(ctx context.Context, ref time.Time) (core.CategoryReport, error) {
	snap, stale, err := s.snapshot(ctx)
	if err != nil {
		return core.CategoryReport{}, err
	}
	w := core.MonthOf(ref)
	return core.CategoryReport{
		Year:       w.Year,
		Month:      w.Month,
		Categories: core.ApplyCategoryColors(core.CategoryExpenseBreakdown(snap.Transactions, ref), snap.Colors),
		Stale:      stale,
	}, nil
}

// Series returns months buckets ending with the month of ref. A non-positive
// months uses the configured default.
func (s *ReportService) Series(ctx context.Context, months int, ref time.Time) (core.SeriesReport, error) {
	if months <= 0 {
		months = s.config.TrailingMonths
	}
	snap, stale, err := s.snapshot(ctx)
	if err != nil {
		return core.SeriesReport{}, err
	}
	return core.SeriesReport{
		Months: months,
		Series: core.TrailingMonthlySeries(snap.Transactions, months, ref),
		Stale:  stale,
	}, nil
}

// CategoryColors returns the persisted overrides resolved against the
// defaults. The defaults are returned when the store cannot be read.
func (s *ReportService) CategoryColors(ctx context.Context) map[core.Category]string {
	persisted, err := s.store.ListCategoryColors(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Using default category colors", "error", err)
		return core.DefaultCategoryColors()
	}
	return core.ResolveCategoryColors(persisted)
}

func (s *ReportService) snapshot(ctx context.Context) (snapshot, bool, error) {
	key := "owner:" + identity.UserID(ctx)

	snap, err := s.loader.Load(ctx, key, s.load)
	if err == nil {
		return snap, false, nil
	}
	if errors.Is(err, core.ErrStoreUnavailable) {
		if cached, ok := s.loader.Stale(key); ok {
			s.logger.WarnContext(ctx, "Serving stale report snapshot", "key", key, "error", err)
			return cached, true, nil
		}
	}
	return snapshot{}, false, err
}

func (s *ReportService) load(ctx context.Context) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		accs, err := s.store.ListAccounts(gctx)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		snap.Accounts = accs
		return nil
	})
	g.Go(func() error {
		txs, err := s.store.ListTransactions(gctx, "")
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		snap.Transactions = txs
		return nil
	})
	g.Go(func() error {
		snap.Colors = s.CategoryColors(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}

	byAccount := groupByAccount(snap.Transactions)
	for i := range snap.Accounts {
		a := &snap.Accounts[i]
		a.CurrentBalance = core.ComputeAccountBalance(a.OpeningBalance, byAccount[a.ID])
		writeBack(ctx, s.store, s.logger, a.ID, a.CurrentBalance)
	}
	return snap, nil
}

func groupByAccount(txs []core.Transaction) map[string][]core.Transaction {
	out := make(map[string][]core.Transaction)
	for _, t := range txs {
		out[t.AccountID] = append(out[t.AccountID], t)
	}
	return out
}
