package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"saldo/internal/backend"
	"saldo/internal/cache"
	"saldo/internal/cli"
	apphttp "saldo/internal/http"
	"saldo/internal/identity"
	applog "saldo/internal/log"
	"saldo/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp, false)
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

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

	reports := services.NewReportService(be.Store, services.ReportConfig{
		TrailingMonths: cfg.TrailingMonths,
		CacheTTL:       cfg.ReportCacheTTL,
	}, logger.WithComponent(applog.ComponentReport).Slog())
	ledger := services.NewLedgerService(be.Store, reports, be.Publisher, logger.WithComponent(applog.ComponentLedger).Slog())

	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Slog())
	cacheManager.Register(reports.Cache())
	cacheManager.StartCleanup(10 * time.Minute)

	var tokens *identity.TokenService
	if cfg.JWTSecret != "" {
		tokens = identity.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn)
		logger.Info("Bearer authentication enabled")
	} else {
		logger.Info("JWT_SECRET not set, running in single-user mode")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:          ledger,
		Reports:         reports,
		Store:           be.Store,
		Tokens:          tokens,
		Logger:          logger,
		WritesPerMinute: cfg.WriteRateLimit,
		TrustedProxies:  cfg.TrustedProxies,
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting saldo server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events", be.Publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", "error", err, "port", cfg.Port)
			exitCode = 1
		}
	}

	err = cli.Shutdown(logger, 30*time.Second,
		srv.Shutdown,
		func(context.Context) error { cacheManager.Stop(); return nil },
		func(context.Context) error { return be.Close() },
	)
	if err != nil {
		logger.Error("Shutdown error", "error", err)
		exitCode = 1
	}
	logger.Info("Server stopped")
	os.Exit(exitCode)
}
