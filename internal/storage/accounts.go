package storage

import (
	"context"

	"saldo/internal/core"
	"saldo/internal/store"
)

const accountColumns = `id, owner_id, name, type, opening_balance, current_balance, color, created_at`

func scanAccount(ctx context.Context, sc interface{ Scan(...any) error }) (core.Account, error) {
	var (
		a                        core.Account
		typ, opening, cur, stamp string
	)
	if err := sc.Scan(&a.ID, &a.OwnerID, &a.Name, &typ, &opening, &cur, &a.Color, &stamp); err != nil {
		return core.Account{}, err
	}
	a.Type = core.AccountType(typ)
	a.OpeningBalance = parseAmount(ctx, "opening_balance", a.ID, opening)
	a.CurrentBalance = parseAmount(ctx, "current_balance", a.ID, cur)
	a.CreatedAt = parseTime(ctx, "created_at", a.ID, stamp)
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE (? = '' OR owner_id = ?)`,
		owner(ctx), owner(ctx))
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
	if err := rows.Err(); err != nil {
		return nil, wrap("list accounts", "account", "", err)
	}
	store.SortAccounts(out)
	return out, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND (? = '' OR owner_id = ?)`,
		id, owner(ctx), owner(ctx))
	a, err := scanAccount(ctx, row)
	if err != nil {
		return core.Account{}, wrap("get account", "account", id, err)
	}
	return a, nil
}

func (r *SQLiteRepository) UpdateAccountBalance(ctx context.Context, id string, balance core.Money) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET current_balance = ? WHERE id = ? AND (? = '' OR owner_id = ?)`,
		balance.StoreString(), id, owner(ctx), owner(ctx))
	if err != nil {
		return wrap("update account balance", "account", id, err)
	}
	return expectOne(res, "account", id)
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.Name, string(a.Type), a.OpeningBalance.StoreString(),
		a.CurrentBalance.StoreString(), a.Color, formatTime(a.CreatedAt))
	return wrap("create account", "account", a.ID, err)
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, type = ?, color = ? WHERE id = ? AND (? = '' OR owner_id = ?)`,
		a.Name, string(a.Type), a.Color, a.ID, owner(ctx), owner(ctx))
	if err != nil {
		return wrap("update account", "account", a.ID, err)
	}
	return expectOne(res, "account", a.ID)
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin delete account", "account", id, err)
	}
	defer tx.Rollback()

	if err := r.accountVisible(ctx, tx, id); err != nil {
		return err
	}
	for _, q := range []string{
		`DELETE FROM transactions WHERE account_id = ?`,
		`DELETE FROM cards WHERE account_id = ?`,
		`DELETE FROM accounts WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return wrap("delete account", "account", id, err)
		}
	}
	return wrap("commit delete account", "account", id, tx.Commit())
}
