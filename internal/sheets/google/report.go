package google

import (
	"strings"
	"time"

	"saldo/internal/core"
)

// ownerSheetName returns base for single-user mode and "<base> <owner>"
// otherwise.
func ownerSheetName(base, owner string) string {
	base = strings.TrimSpace(base)
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return base
	}
	return base + " " + owner
}

// quoteSheet quotes a sheet title for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// reportRows lays the dashboard out as a block of rows: a summary, the
// category breakdown, the trailing series and the recent transactions,
// separated by blank rows. Amounts are written as numbers.
func reportRows(d core.Dashboard) [][]any {
	month := time.Date(d.Year, d.Month, 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
	rows := [][]any{
		{"Report", month},
		{"Generated", d.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Total balance", num(d.TotalBalance)},
		{"Income", num(d.Income)},
		{"Expense", num(d.Expense)},
		{"Net", num(d.Net)},
		{},
		{"Category", "Amount", "Color"},
	}
	for _, c := range d.Categories {
		rows = append(rows, []any{c.Label, num(c.Amount), c.Color})
	}

	rows = append(rows, []any{}, []any{"Month", "Income", "Expense", "Net"})
	for _, b := range d.Series {
		rows = append(rows, []any{
			b.Window().Key(),
			num(b.Income), num(b.Expense), num(b.Net()),
		})
	}

	rows = append(rows, []any{}, []any{"Date", "Description", "Category", "Type", "Amount"})
	for _, t := range d.Recent {
		rows = append(rows, []any{
			t.Date.Format("2006-01-02"),
			t.Description,
			t.Category.Label(),
			string(t.Type),
			num(t.SignedAmount()),
		})
	}
	return rows
}

func num(m core.Money) float64 {
	return m.Float64()
}
