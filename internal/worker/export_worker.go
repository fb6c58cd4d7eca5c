package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/identity"
	"saldo/internal/sheets"
	"saldo/internal/store"
)

// ReportSource builds dashboards and drops cached ones.
type ReportSource interface {
	Dashboard(ctx context.Context, ref time.Time) (core.Dashboard, error)
	Invalidate()
}

// ExportWorker keeps the external report sheets in step with the ledger.
type ExportWorker struct {
	reports  ReportSource
	accounts store.AccountReader
	writer   sheets.ReportWriter
	logger   *slog.Logger
	now      func() time.Time
}

func NewExportWorker(reports ReportSource, accounts store.AccountReader, writer sheets.ReportWriter, logger *slog.Logger) *ExportWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportWorker{
		reports:  reports,
		accounts: accounts,
		writer:   writer,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleLedgerChanged processes a single ledger.changed message from AMQP:
// the worker's cached reports are dropped and the owner's report is
// exported again.
func (w *ExportWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger message",
		"kind", msg.Kind,
		"op", msg.Op,
		"id", msg.ID,
		"owner_id", msg.OwnerID)

	w.reports.Invalidate()

	if err := w.ExportOwner(ctx, msg.OwnerID); err != nil {
		return fmt.Errorf("export owner %q: %w", msg.OwnerID, err)
	}
	return nil
}

// ExportOwner writes the current month's dashboard of one owner. Stale
// reports are not exported; the error lets the caller retry later.
func (w *ExportWorker) ExportOwner(ctx context.Context, ownerID string) error {
	octx := identity.WithUserID(ctx, ownerID)

	d, err := w.reports.Dashboard(octx, w.now())
	if err != nil {
		return fmt.Errorf("build dashboard: %w", err)
	}
	if d.Stale {
		return fmt.Errorf("dashboard is stale: %w", core.ErrStoreUnavailable)
	}
	if err := w.writer.WriteDashboard(octx, ownerID, d); err != nil {
		return fmt.Errorf("write dashboard: %w", err)
	}
	return nil
}

// ExportAll exports the dashboard of every owner that has at least one
// account. Failures are collected and do not stop the remaining owners.
func (w *ExportWorker) ExportAll(ctx context.Context) error {
	owners, err := w.owners(ctx)
	if err != nil {
		return err
	}
	if len(owners) == 0 {
		w.logger.DebugContext(ctx, "No accounts found, nothing to export")
		return nil
	}

	var errs []error
	exported := 0
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.ExportOwner(ctx, owner); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export report", "owner_id", owner, "error", err)
			errs = append(errs, fmt.Errorf("owner %q: %w", owner, err))
			continue
		}
		exported++
	}

	w.logger.InfoContext(ctx, "Full export completed",
		"owners", len(owners),
		"exported", exported,
		"errors", len(errs))
	return errors.Join(errs...)
}

// owners lists distinct account owners. The unscoped context lists every
// account in the store.
func (w *ExportWorker) owners(ctx context.Context) ([]string, error) {
	accs, err := w.accounts.ListAccounts(identity.WithUserID(ctx, ""))
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	seen := make(map[string]struct{})
	var out []string
	for _, a := range accs {
		if _, ok := seen[a.OwnerID]; ok {
			continue
		}
		seen[a.OwnerID] = struct{}{}
		out = append(out, a.OwnerID)
	}
	sort.Strings(out)
	return out, nil
}
