// Package http exposes the ledger and its reports as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"saldo/internal/identity"
	applog "saldo/internal/log"
	"saldo/internal/middleware/ratelimit"
	"saldo/internal/middleware/security"
	"saldo/internal/middleware/trace"
	"saldo/internal/services"
)

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators a Server needs. Tokens may be nil, which runs
// the API in single-user mode.
type Deps struct {
	Ledger  *services.LedgerService
	Reports *services.ReportService
	Store   Pinger
	Tokens  *identity.TokenService
	Logger  *applog.Logger

	// WritesPerMinute caps mutating requests per client. Zero uses the
	// limiter default.
	WritesPerMinute int
	TrustedProxies  []string
}

type Server struct {
	http.Server
	ledger   *services.LedgerService
	reports  *services.ReportService
	store    Pinger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	logger   *applog.Logger
	now      func() time.Time

	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector()
	for _, cidr := range deps.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledger:   deps.Ledger,
		reports:  deps.Reports,
		store:    deps.Store,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.WritesPerMinute}),
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, applog.NewStructuredLogger(logger)),
		logger:   logger,
		now:      time.Now,
	}
	s.ErrorLog = slog.NewLogLogger(logger.Handler(), slog.LevelError)
	s.Handler = s.routes(deps.Tokens)
	return s
}

func (s *Server) routes(tokens *identity.TokenService) http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("GET /dashboard", s.handleDashboard)
	api.HandleFunc("GET /balance", s.handleTotalBalance)
	api.HandleFunc("GET /reports/monthly", s.handleMonthlyReport)
	api.HandleFunc("GET /reports/categories", s.handleCategoryReport)
	api.HandleFunc("GET /reports/series", s.handleSeriesReport)

	api.HandleFunc("GET /accounts", s.handleListAccounts)
	api.HandleFunc("POST /accounts", s.handleCreateAccount)
	api.HandleFunc("GET /accounts/{id}", s.handleGetAccount)
	api.HandleFunc("PUT /accounts/{id}", s.handleUpdateAccount)
	api.HandleFunc("DELETE /accounts/{id}", s.handleDeleteAccount)
	api.HandleFunc("GET /accounts/{id}/balance", s.handleAccountBalance)
	api.HandleFunc("GET /accounts/{id}/transactions", s.handleAccountTransactions)
	api.HandleFunc("GET /accounts/{id}/cards", s.handleAccountCards)

	api.HandleFunc("GET /transactions", s.handleListTransactions)
	api.HandleFunc("POST /transactions", s.handleCreateTransaction)
	api.HandleFunc("GET /transactions/{id}", s.handleGetTransaction)
	api.HandleFunc("PUT /transactions/{id}", s.handleUpdateTransaction)
	api.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)

	api.HandleFunc("GET /cards", s.handleListCards)
	api.HandleFunc("POST /cards", s.handleCreateCard)
	api.HandleFunc("GET /cards/{id}", s.handleGetCard)
	api.HandleFunc("PUT /cards/{id}", s.handleUpdateCard)
	api.HandleFunc("DELETE /cards/{id}", s.handleDeleteCard)

	api.HandleFunc("GET /category-colors", s.handleCategoryColors)
	api.HandleFunc("PUT /category-colors/{category}", s.handleSetCategoryColor)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.WritesOnly, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errTooManyRequests)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", identity.RequireAuth(tokens)(limited(api))))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errRouteNotFound)
	})

	var h http.Handler = mux
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	h = applog.Middleware(s.logger)(h)
	return h
}

// Shutdown stops the limiter and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
