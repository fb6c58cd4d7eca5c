// Command saldo-seed writes the demo ledger into the configured store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"saldo/internal/backend"
	"saldo/internal/cli"
	"saldo/internal/config"
	"saldo/internal/identity"
	applog "saldo/internal/log"
	"saldo/internal/seed"
	"saldo/internal/store"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentSeed, false)
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if err := run(ctx, os.Args[1:], cfg, logger, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		logger.Error("Seeding failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, cfg *config.Config, logger *applog.Logger, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("saldo-seed", flag.ContinueOnError)
	fs.SetOutput(stderr)

	owner := fs.String("owner", "", "Owner id of the seeded accounts (empty for single-user mode)")
	date := fs.String("date", "", "Reference month as YYYY-MM-DD (default: today)")
	months := fs.Int("months", 5, "Months of filler history before the reference month")
	perMonth := fs.Int("per-month", 8, "Filler transactions per month")
	rngSeed := fs.Int64("seed", 1, "Seed for the filler amounts")
	force := fs.Bool("force", false, "Seed even when the owner already has accounts")

	if err := fs.Parse(args); err != nil {
		return err
	}

	ref := time.Now()
	if *date != "" {
		d, err := time.ParseInLocation(time.DateOnly, *date, time.Local)
		if err != nil {
			return fmt.Errorf("invalid -date %q: %w", *date, err)
		}
		ref = d
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	backendCfg.AMQPURL = ""
	backendCfg.SeedDemoData = false
	be, err := backend.Open(ctx, backendCfg, logger.WithComponent(applog.ComponentBackend).Slog())
	if err != nil {
		return err
	}
	defer be.Close()

	return seedStore(ctx, be.Store, seed.Options{
		Owner:    *owner,
		Ref:      ref,
		Months:   *months,
		PerMonth: *perMonth,
		Seed:     *rngSeed,
	}, *force, stdout)
}

func seedStore(ctx context.Context, st store.Store, opts seed.Options, force bool, stdout io.Writer) error {
	existing, err := st.ListAccounts(identity.WithUserID(ctx, opts.Owner))
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	if len(existing) > 0 && !force {
		return fmt.Errorf("owner %q already has %d accounts; pass -force to seed anyway", opts.Owner, len(existing))
	}

	res, err := seed.Demo(ctx, st, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "seeded %d accounts, %d transactions, %d cards\n", res.Accounts, res.Transactions, res.Cards)
	return nil
}
