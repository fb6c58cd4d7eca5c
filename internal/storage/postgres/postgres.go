// Package postgres is the PostgreSQL record store, built on a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"saldo/internal/core"
	"saldo/internal/identity"
	"saldo/internal/store"
)

var _ store.Store = (*Storage)(nil)

type Storage struct {
	db *pgxpool.Pool
}

// Open migrates the schema and connects a pool to databaseURL.
func Open(ctx context.Context, databaseURL string) (*Storage, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewStorage(pool), nil
}

func NewStorage(db *pgxpool.Pool) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Close() error {
	s.db.Close()
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return core.Unavailable("ping postgres", err)
	}
	return nil
}

func owner(ctx context.Context) string {
	return identity.UserID(ctx)
}

func wrap(op, kind, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return core.NotFoundError(kind, id)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return &core.ValidationError{Field: "id", Reason: "already exists"}
		case "23503":
			return core.NotFoundError("account", id)
		case "23514", "22P02":
			return &core.ValidationError{Reason: pgErr.Message}
		}
	}
	return core.Unavailable(op, err)
}

func expectOne(tag pgconn.CommandTag, kind, id string) error {
	if tag.RowsAffected() == 0 {
		return core.NotFoundError(kind, id)
	}
	return nil
}

func parseAmount(ctx context.Context, field, id, raw string) core.Money {
	m, ok := core.MoneyFromStore(raw)
	if !ok {
		slog.WarnContext(ctx, "Malformed stored amount, counting as zero", "field", field, "id", id, "value", raw)
	}
	return m
}

func parseCategory(ctx context.Context, id, raw string) core.Category {
	c, err := core.ParseCategory(raw)
	if err != nil {
		slog.WarnContext(ctx, "Unknown stored category, using other", "id", id, "value", raw)
		return core.Other
	}
	return c
}

func (s *Storage) accountVisible(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRow(ctx, `SELECT 1 FROM accounts WHERE id = $1 AND ($2 = '' OR owner_id = $2)`, id, owner(ctx)).Scan(&one)
	return wrap("check account", "account", id, err)
}

// === Accounts ===

const accountColumns = `id, owner_id, name, type, opening_balance::text, current_balance::text, color, created_at`

func scanAccount(ctx context.Context, row pgx.Row) (core.Account, error) {
	var (
		a                 core.Account
		typ, opening, cur string
	)
	if err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &typ, &opening, &cur, &a.Color, &a.CreatedAt); err != nil {
		return core.Account{}, err
	}
	a.Type = core.AccountType(typ)
	a.OpeningBalance = parseAmount(ctx, "opening_balance", a.ID, opening)
	a.CurrentBalance = parseAmount(ctx, "current_balance", a.ID, cur)
	return a, nil
}

func (s *Storage) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE ($1 = '' OR owner_id = $1) ORDER BY created_at, id`,
		owner(ctx))
	if err != nil {
		return nil, wrap("list accounts", "account", "", err)
	}
	defer rows.Close()

	out := make([]core.Account, 0)
	for rows.Next() {
		a, err := scanAccount(ctx, rows)
		if err != nil {
			return nil, wrap("scan account", "account", "", err)
		}
		out = append(out, a)
	}
	return out, wrap("list accounts", "account", "", rows.Err())
}

func (s *Storage) GetAccount(ctx context.Context, id string) (core.Account, error) {
	a, err := scanAccount(ctx, s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 AND ($2 = '' OR owner_id = $2)`,
		id, owner(ctx)))
	if err != nil {
		return core.Account{}, wrap("get account", "account", id, err)
	}
	return a, nil
}

func (s *Storage) UpdateAccountBalance(ctx context.Context, id string, balance core.Money) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE accounts SET current_balance = $1::numeric WHERE id = $2 AND ($3 = '' OR owner_id = $3)`,
		balance.StoreString(), id, owner(ctx))
	if err != nil {
		return wrap("update account balance", "account", id, err)
	}
	return expectOne(tag, "account", id)
}

func (s *Storage) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO accounts (id, owner_id, name, type, opening_balance, current_balance, color, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8)`,
		a.ID, a.OwnerID, a.Name, string(a.Type), a.OpeningBalance.StoreString(),
		a.CurrentBalance.StoreString(), a.Color, a.CreatedAt)
	return wrap("create account", "account", a.ID, err)
}

func (s *Storage) UpdateAccount(ctx context.Context, a core.Account) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE accounts SET name = $1, type = $2, color = $3 WHERE id = $4 AND ($5 = '' OR owner_id = $5)`,
		a.Name, string(a.Type), a.Color, a.ID, owner(ctx))
	if err != nil {
		return wrap("update account", "account", a.ID, err)
	}
	return expectOne(tag, "account", a.ID)
}

// DeleteAccount relies on ON DELETE CASCADE for transactions and cards.
func (s *Storage) DeleteAccount(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM accounts WHERE id = $1 AND ($2 = '' OR owner_id = $2)`, id, owner(ctx))
	if err != nil {
		return wrap("delete account", "account", id, err)
	}
	return expectOne(tag, "account", id)
}

// === Transactions ===

const txColumns = `t.id, t.account_id, t.description, t.amount::text, t.type, t.category, t.date, t.created_at`

func scanTransaction(ctx context.Context, row pgx.Row) (core.Transaction, error) {
	var (
		t                core.Transaction
		amount, typ, cat string
	)
	if err := row.Scan(&t.ID, &t.AccountID, &t.Description, &amount, &typ, &cat, &t.Date, &t.CreatedAt); err != nil {
		return core.Transaction{}, err
	}
	t.Amount = parseAmount(ctx, "amount", t.ID, amount)
	t.Type = core.TransactionType(typ)
	t.Category = parseCategory(ctx, t.ID, cat)
	t.Date = t.Date.UTC()
	return t, nil
}

func (s *Storage) ListTransactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+txColumns+`
		FROM transactions t JOIN accounts a ON a.id = t.account_id
		WHERE ($1 = '' OR t.account_id = $1) AND ($2 = '' OR a.owner_id = $2)
		ORDER BY t.date DESC, t.created_at DESC, t.id`,
		accountID, owner(ctx))
	if err != nil {
		return nil, wrap("list transactions", "transaction", "", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(ctx, rows)
		if err != nil {
			return nil, wrap("scan transaction", "transaction", "", err)
		}
		out = append(out, t)
	}
	return out, wrap("list transactions", "transaction", "", rows.Err())
}

func (s *Storage) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	t, err := scanTransaction(ctx, s.db.QueryRow(ctx,
		`SELECT `+txColumns+`
		FROM transactions t JOIN accounts a ON a.id = t.account_id
		WHERE t.id = $1 AND ($2 = '' OR a.owner_id = $2)`,
		id, owner(ctx)))
	if err != nil {
		return core.Transaction{}, wrap("get transaction", "transaction", id, err)
	}
	return t, nil
}

func (s *Storage) CreateTransaction(ctx context.Context, t core.Transaction) error {
	if err := s.accountVisible(ctx, t.AccountID); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO transactions (id, account_id, description, amount, type, category, date, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)`,
		t.ID, t.AccountID, t.Description, t.Amount.StoreString(), string(t.Type),
		string(t.Category), core.WallClockUTC(t.Date), t.CreatedAt)
	return wrap("create transaction", "transaction", t.ID, err)
}

func (s *Storage) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if _, err := s.GetTransaction(ctx, t.ID); err != nil {
		return err
	}
	if err := s.accountVisible(ctx, t.AccountID); err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE transactions SET account_id = $1, description = $2, amount = $3::numeric, type = $4,
		category = $5, date = $6 WHERE id = $7`,
		t.AccountID, t.Description, t.Amount.StoreString(), string(t.Type),
		string(t.Category), core.WallClockUTC(t.Date), t.ID)
	if err != nil {
		return wrap("update transaction", "transaction", t.ID, err)
	}
	return expectOne(tag, "transaction", t.ID)
}

func (s *Storage) DeleteTransaction(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM transactions t USING accounts a
		WHERE a.id = t.account_id AND t.id = $1 AND ($2 = '' OR a.owner_id = $2)`,
		id, owner(ctx))
	if err != nil {
		return wrap("delete transaction", "transaction", id, err)
	}
	return expectOne(tag, "transaction", id)
}

// === Cards ===

const cardColumns = `c.id, c.account_id, c.name, c.type, c.last_four_digits, c.expiry, c.limit_amount::text, c.closing_day, c.due_day`

func scanCard(ctx context.Context, row pgx.Row) (core.Card, error) {
	var (
		c            core.Card
		typ          string
		limit        *string
		closing, due *int32
	)
	if err := row.Scan(&c.ID, &c.AccountID, &c.Name, &typ, &c.LastFourDigits, &c.Expiry, &limit, &closing, &due); err != nil {
		return core.Card{}, err
	}
	c.Type = core.CardType(typ)
	if limit != nil {
		m := parseAmount(ctx, "limit_amount", c.ID, *limit)
		c.Limit = &m
	}
	if closing != nil {
		d := int(*closing)
		c.ClosingDay = &d
	}
	if due != nil {
		d := int(*due)
		c.DueDay = &d
	}
	return c, nil
}

func limitArg(c core.Card) *string {
	if c.Limit == nil {
		return nil
	}
	v := c.Limit.StoreString()
	return &v
}

func (s *Storage) ListCards(ctx context.Context, accountID string) ([]core.Card, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+cardColumns+`
		FROM cards c JOIN accounts a ON a.id = c.account_id
		WHERE ($1 = '' OR c.account_id = $1) AND ($2 = '' OR a.owner_id = $2)
		ORDER BY c.name, c.id`,
		accountID, owner(ctx))
	if err != nil {
		return nil, wrap("list cards", "card", "", err)
	}
	defer rows.Close()

	out := make([]core.Card, 0)
	for rows.Next() {
		c, err := scanCard(ctx, rows)
		if err != nil {
			return nil, wrap("scan card", "card", "", err)
		}
		out = append(out, c)
	}
	return out, wrap("list cards", "card", "", rows.Err())
}

func (s *Storage) GetCard(ctx context.Context, id string) (core.Card, error) {
	c, err := scanCard(ctx, s.db.QueryRow(ctx,
		`SELECT `+cardColumns+`
		FROM cards c JOIN accounts a ON a.id = c.account_id
		WHERE c.id = $1 AND ($2 = '' OR a.owner_id = $2)`,
		id, owner(ctx)))
	if err != nil {
		return core.Card{}, wrap("get card", "card", id, err)
	}
	return c, nil
}

func (s *Storage) CreateCard(ctx context.Context, c core.Card) error {
	if err := s.accountVisible(ctx, c.AccountID); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO cards (id, account_id, name, type, last_four_digits, expiry, limit_amount, closing_day, due_day)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9)`,
		c.ID, c.AccountID, c.Name, string(c.Type), c.LastFourDigits, c.Expiry, limitArg(c), c.ClosingDay, c.DueDay)
	return wrap("create card", "card", c.ID, err)
}

func (s *Storage) UpdateCard(ctx context.Context, c core.Card) error {
	if _, err := s.GetCard(ctx, c.ID); err != nil {
		return err
	}
	if err := s.accountVisible(ctx, c.AccountID); err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE cards SET account_id = $1, name = $2, type = $3, last_four_digits = $4, expiry = $5,
		limit_amount = $6::numeric, closing_day = $7, due_day = $8 WHERE id = $9`,
		c.AccountID, c.Name, string(c.Type), c.LastFourDigits, c.Expiry, limitArg(c), c.ClosingDay, c.DueDay, c.ID)
	if err != nil {
		return wrap("update card", "card", c.ID, err)
	}
	return expectOne(tag, "card", c.ID)
}

func (s *Storage) DeleteCard(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM cards c USING accounts a
		WHERE a.id = c.account_id AND c.id = $1 AND ($2 = '' OR a.owner_id = $2)`,
		id, owner(ctx))
	if err != nil {
		return wrap("delete card", "card", id, err)
	}
	return expectOne(tag, "card", id)
}

// === Category colors ===

func (s *Storage) ListCategoryColors(ctx context.Context) (map[core.Category]string, error) {
	rows, err := s.db.Query(ctx, `SELECT category, color FROM category_colors WHERE owner_id = $1`, owner(ctx))
	if err != nil {
		return nil, wrap("list category colors", "category color", "", err)
	}
	defer rows.Close()

	out := make(map[core.Category]string)
	for rows.Next() {
		var cat, color string
		if err := rows.Scan(&cat, &color); err != nil {
			return nil, wrap("scan category color", "category color", "", err)
		}
		c, err := core.ParseCategory(cat)
		if err != nil || !core.ValidColorHex(color) {
			slog.WarnContext(ctx, "Skipping invalid stored category color", "category", cat, "color", color)
			continue
		}
		out[c] = color
	}
	return out, wrap("list category colors", "category color", "", rows.Err())
}

func (s *Storage) SetCategoryColor(ctx context.Context, c core.Category, hex string) error {
	if !c.IsValid() {
		return &core.ValidationError{Field: "category", Reason: "unknown category " + string(c)}
	}
	if !core.ValidColorHex(hex) {
		return &core.ValidationError{Field: "color", Reason: "must be a hex color"}
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO category_colors (owner_id, category, color) VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, category) DO UPDATE SET color = EXCLUDED.color`,
		owner(ctx), string(c), hex)
	return wrap("set category color", "category color", string(c), err)
}
