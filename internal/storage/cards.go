package storage

import (
	"context"
	"database/sql"

	"saldo/internal/core"
	"saldo/internal/store"
)

const cardColumns = `c.id, c.account_id, c.name, c.type, c.last_four_digits, c.expiry, c.limit_amount, c.closing_day, c.due_day`

func scanCard(ctx context.Context, sc interface{ Scan(...any) error }) (core.Card, error) {
	var (
		c            core.Card
		typ          string
		limit        sql.NullString
		closing, due sql.NullInt64
	)
	if err := sc.Scan(&c.ID, &c.AccountID, &c.Name, &typ, &c.LastFourDigits, &c.Expiry, &limit, &closing, &due); err != nil {
		return core.Card{}, err
	}
	c.Type = core.CardType(typ)
	if limit.Valid {
		m := parseAmount(ctx, "limit_amount", c.ID, limit.String)
		c.Limit = &m
	}
	if closing.Valid {
		d := int(closing.Int64)
		c.ClosingDay = &d
	}
	if due.Valid {
		d := int(due.Int64)
		c.DueDay = &d
	}
	return c, nil
}

func cardArgs(c core.Card) (limit sql.NullString, closing, due sql.NullInt64) {
	if c.Limit != nil {
		limit = sql.NullString{String: c.Limit.StoreString(), Valid: true}
	}
	if c.ClosingDay != nil {
		closing = sql.NullInt64{Int64: int64(*c.ClosingDay), Valid: true}
	}
	if c.DueDay != nil {
		due = sql.NullInt64{Int64: int64(*c.DueDay), Valid: true}
	}
	return limit, closing, due
}

func (r *SQLiteRepository) ListCards(ctx context.Context, accountID string) ([]core.Card, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cardColumns+`
		FROM cards c JOIN accounts a ON a.id = c.account_id
		WHERE (? = '' OR c.account_id = ?) AND (? = '' OR a.owner_id = ?)`,
		accountID, accountID, owner(ctx), owner(ctx))
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
	if err := rows.Err(); err != nil {
		return nil, wrap("list cards", "card", "", err)
	}
	store.SortCards(out)
	return out, nil
}

func (r *SQLiteRepository) GetCard(ctx context.Context, id string) (core.Card, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+`
		FROM cards c JOIN accounts a ON a.id = c.account_id
		WHERE c.id = ? AND (? = '' OR a.owner_id = ?)`,
		id, owner(ctx), owner(ctx))
	c, err := scanCard(ctx, row)
	if err != nil {
		return core.Card{}, wrap("get card", "card", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateCard(ctx context.Context, c core.Card) error {
	if err := r.accountVisible(ctx, r.db, c.AccountID); err != nil {
		return err
	}
	limit, closing, due := cardArgs(c)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cards (id, account_id, name, type, last_four_digits, expiry, limit_amount, closing_day, due_day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.AccountID, c.Name, string(c.Type), c.LastFourDigits, c.Expiry, limit, closing, due)
	return wrap("create card", "card", c.ID, err)
}

func (r *SQLiteRepository) UpdateCard(ctx context.Context, c core.Card) error {
	if _, err := r.GetCard(ctx, c.ID); err != nil {
		return err
	}
	if err := r.accountVisible(ctx, r.db, c.AccountID); err != nil {
		return err
	}
	limit, closing, due := cardArgs(c)
	res, err := r.db.ExecContext(ctx,
		`UPDATE cards SET account_id = ?, name = ?, type = ?, last_four_digits = ?, expiry = ?,
		limit_amount = ?, closing_day = ?, due_day = ? WHERE id = ?`,
		c.AccountID, c.Name, string(c.Type), c.LastFourDigits, c.Expiry, limit, closing, due, c.ID)
	if err != nil {
		return wrap("update card", "card", c.ID, err)
	}
	return expectOne(res, "card", c.ID)
}

func (r *SQLiteRepository) DeleteCard(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cards WHERE id = ?
		AND account_id IN (SELECT id FROM accounts WHERE ? = '' OR owner_id = ?)`,
		id, owner(ctx), owner(ctx))
	if err != nil {
		return wrap("delete card", "card", id, err)
	}
	return expectOne(res, "card", id)
}
