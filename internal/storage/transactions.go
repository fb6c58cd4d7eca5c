package storage

import (
	"context"

	"saldo/internal/core"
	"saldo/internal/store"
)

const txColumns = `t.id, t.account_id, t.description, t.amount, t.type, t.category, t.date, t.created_at`

func scanTransaction(ctx context.Context, sc interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t                               core.Transaction
		amount, typ, cat, date, created string
	)
	if err := sc.Scan(&t.ID, &t.AccountID, &t.Description, &amount, &typ, &cat, &date, &created); err != nil {
		return core.Transaction{}, err
	}
	t.Amount = parseAmount(ctx, "amount", t.ID, amount)
	t.Type = core.TransactionType(typ)
	t.Category = parseCategory(ctx, t.ID, cat)
	t.Date = parseTime(ctx, "date", t.ID, date)
	t.CreatedAt = parseTime(ctx, "created_at", t.ID, created)
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+`
		FROM transactions t JOIN accounts a ON a.id = t.account_id
		WHERE (? = '' OR t.account_id = ?) AND (? = '' OR a.owner_id = ?)`,
		accountID, accountID, owner(ctx), owner(ctx))
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
	if err := rows.Err(); err != nil {
		return nil, wrap("list transactions", "transaction", "", err)
	}
	// Stored dates keep their own offsets, so text order is not time order.
	store.SortTransactions(out)
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+`
		FROM transactions t JOIN accounts a ON a.id = t.account_id
		WHERE t.id = ? AND (? = '' OR a.owner_id = ?)`,
		id, owner(ctx), owner(ctx))
	t, err := scanTransaction(ctx, row)
	if err != nil {
		return core.Transaction{}, wrap("get transaction", "transaction", id, err)
	}
	return t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	if err := r.accountVisible(ctx, r.db, t.AccountID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, account_id, description, amount, type, category, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.Description, t.Amount.StoreString(), string(t.Type),
		string(t.Category), formatTime(core.WallClockUTC(t.Date)), formatTime(t.CreatedAt))
	return wrap("create transaction", "transaction", t.ID, err)
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if _, err := r.GetTransaction(ctx, t.ID); err != nil {
		return err
	}
	if err := r.accountVisible(ctx, r.db, t.AccountID); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET account_id = ?, description = ?, amount = ?, type = ?, category = ?, date = ?
		WHERE id = ?`,
		t.AccountID, t.Description, t.Amount.StoreString(), string(t.Type),
		string(t.Category), formatTime(core.WallClockUTC(t.Date)), t.ID)
	if err != nil {
		return wrap("update transaction", "transaction", t.ID, err)
	}
	return expectOne(res, "transaction", t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ?
		AND account_id IN (SELECT id FROM accounts WHERE ? = '' OR owner_id = ?)`,
		id, owner(ctx), owner(ctx))
	if err != nil {
		return wrap("delete transaction", "transaction", id, err)
	}
	return expectOne(res, "transaction", id)
}
