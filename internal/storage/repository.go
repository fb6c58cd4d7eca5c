package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"saldo/internal/core"
	"saldo/internal/identity"
	"saldo/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return core.Unavailable("ping sqlite", err)
	}
	return nil
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

// parseTime reads a stored timestamp. Malformed values become the zero time.
func parseTime(ctx context.Context, field, id, raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		slog.WarnContext(ctx, "Malformed stored timestamp", "field", field, "id", id, "value", raw)
		return time.Time{}
	}
	return t
}

// parseAmount reads a stored amount. Malformed values count as zero.
func parseAmount(ctx context.Context, field, id, raw string) core.Money {
	m, ok := core.MoneyFromStore(raw)
	if !ok {
		slog.WarnContext(ctx, "Malformed stored amount, counting as zero", "field", field, "id", id, "value", raw)
	}
	return m
}

// parseCategory maps unknown stored keys to Other.
func parseCategory(ctx context.Context, id, raw string) core.Category {
	c, err := core.ParseCategory(raw)
	if err != nil {
		slog.WarnContext(ctx, "Unknown stored category, using other", "id", id, "value", raw)
		return core.Other
	}
	return c
}

// wrap classifies database errors. sql.ErrNoRows becomes ErrNotFound for kind.
func wrap(op, kind, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.NotFoundError(kind, id)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint") {
		return &core.ValidationError{Field: "id", Reason: "already exists"}
	}
	return core.Unavailable(op, err)
}

func owner(ctx context.Context) string {
	return identity.UserID(ctx)
}

// expectOne turns a zero-row update into ErrNotFound.
func expectOne(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return core.Unavailable("rows affected", err)
	}
	if n == 0 {
		return core.NotFoundError(kind, id)
	}
	return nil
}

// accountVisible checks that the account exists in the caller's scope.
func (r *SQLiteRepository) accountVisible(ctx context.Context, q querier, id string) error {
	var one int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM accounts WHERE id = ? AND (? = '' OR owner_id = ?)`,
		id, owner(ctx), owner(ctx)).Scan(&one)
	return wrap("check account", "account", id, err)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
