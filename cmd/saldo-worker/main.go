package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"saldo/internal/backend"
	"saldo/internal/cli"
	applog "saldo/internal/log"
	"saldo/internal/services"
	gsheet "saldo/internal/sheets/google"
	"saldo/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker, true)
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	logger.Info("Starting saldo-worker")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	be, err := backend.Open(ctx, backendCfg, logger.WithComponent(applog.ComponentBackend).Slog())
	if err != nil {
		logger.Error("Failed to open backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	exit := func(code int) {
		if err := be.Close(); err != nil {
			logger.Error("Failed to close backend", "error", err)
		}
		os.Exit(code)
	}
	if be.AMQP == nil {
		logger.Error("AMQP is required for the export worker", "url_set", cfg.AMQPURL != "")
		exit(1)
	}

	sheetsClient, err := gsheet.NewClient(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleReportSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger.WithComponent(applog.ComponentSheets).Slog())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	reports := services.NewReportService(be.Store, services.ReportConfig{
		TrailingMonths: cfg.TrailingMonths,
		CacheTTL:       cfg.ReportCacheTTL,
	}, logger.WithComponent(applog.ComponentReport).Slog())
	exportWorker := worker.NewExportWorker(reports, be.Store, sheetsClient, logger.Slog())
	processor := services.NewExportProcessor(exportWorker, services.ExportProcessorConfig{
		Interval:   cfg.ExportInterval,
		RunOnStart: true,
	}, logger.Slog())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := be.AMQP.ConsumeLedgerChanged(gctx, exportWorker.HandleLedgerChanged)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		if err := processor.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		return processor.Stop(stopCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		exit(1)
	}
	logger.Info("Worker stopped", "full_exports", processor.Runs())
	exit(0)
}
