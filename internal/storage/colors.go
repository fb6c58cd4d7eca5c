package storage

import (
	"context"
	"log/slog"

	"saldo/internal/core"
)

func (r *SQLiteRepository) ListCategoryColors(ctx context.Context) (map[core.Category]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, color FROM category_colors WHERE owner_id = ?`, owner(ctx))
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
	if err := rows.Err(); err != nil {
		return nil, wrap("list category colors", "category color", "", err)
	}
	return out, nil
}

func (r *SQLiteRepository) SetCategoryColor(ctx context.Context, c core.Category, hex string) error {
	if !c.IsValid() {
		return &core.ValidationError{Field: "category", Reason: "unknown category " + string(c)}
	}
	if !core.ValidColorHex(hex) {
		return &core.ValidationError{Field: "color", Reason: "must be a hex color"}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO category_colors (owner_id, category, color) VALUES (?, ?, ?)
		ON CONFLICT (owner_id, category) DO UPDATE SET color = excluded.color`,
		owner(ctx), string(c), hex)
	return wrap("set category color", "category color", string(c), err)
}
