package core

import (
	"sort"
	"time"
)

// ComputeAccountBalance returns opening plus the signed sum of txs.
// Callers pass only the account's own transactions.
func ComputeAccountBalance(opening Money, txs []Transaction) Money {
	total := opening
	for _, t := range txs {
		total = total.Add(t.SignedAmount())
	}
	return total
}

// IncomeExpense holds the two unsigned totals of a period.
type IncomeExpense struct {
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
}

// Net is income minus expense.
func (ie IncomeExpense) Net() Money {
	return ie.Income.Sub(ie.Expense)
}

func (ie IncomeExpense) add(t Transaction) IncomeExpense {
	switch t.Type {
	case Income:
		ie.Income = ie.Income.Add(t.Amount)
	case Expense:
		ie.Expense = ie.Expense.Add(t.Amount)
	}
	return ie
}

// MonthWindow identifies a calendar month. A transaction belongs to the
// window when its date, read in its own location, falls in that month.
type MonthWindow struct {
	Year  int
	Month time.Month
}

// MonthOf returns the window containing t.
func MonthOf(t time.Time) MonthWindow {
	y, m, _ := t.Date()
	return MonthWindow{Year: y, Month: m}
}

// WallClockUTC keeps the calendar date and clock reading of t and drops its
// offset. Stores persist transaction dates in this form so that every backend
// buckets a date into the month it was written in.
func WallClockUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	h, mi, sec := t.Clock()
	return time.Date(y, m, d, h, mi, sec, t.Nanosecond(), time.UTC)
}

func (w MonthWindow) Contains(t time.Time) bool {
	y, m, _ := t.Date()
	return y == w.Year && m == w.Month
}

// AddMonths shifts the window by n months (negative moves back).
func (w MonthWindow) AddMonths(n int) MonthWindow {
	idx := w.Year*12 + int(w.Month-1) + n
	y := idx / 12
	m := idx % 12
	if m < 0 {
		m += 12
		y--
	}
	return MonthWindow{Year: y, Month: time.Month(m + 1)}
}

// Label is the abbreviated month name, e.g. "Apr".
func (w MonthWindow) Label() string {
	return w.Month.String()[:3]
}

// Key renders the window as YYYY-MM.
func (w MonthWindow) Key() string {
	return time.Date(w.Year, w.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// Start is the first instant of the window in loc.
func (w MonthWindow) Start(loc *time.Location) time.Time {
	return time.Date(w.Year, w.Month, 1, 0, 0, 0, 0, loc)
}

// End is the first instant after the window in loc.
func (w MonthWindow) End(loc *time.Location) time.Time {
	return w.AddMonths(1).Start(loc)
}

// MonthlyIncomeExpense totals income and expense of the month containing ref.
func MonthlyIncomeExpense(txs []Transaction, ref time.Time) IncomeExpense {
	w := MonthOf(ref)
	var ie IncomeExpense
	for _, t := range txs {
		if w.Contains(t.Date) {
			ie = ie.add(t)
		}
	}
	return ie
}

// CategoryExpenseBreakdown groups the expenses of the month containing ref by
// category. Only categories with at least one expense appear. Results are
// ordered by total descending, ties broken by canonical category order.
func CategoryExpenseBreakdown(txs []Transaction, ref time.Time) []CategoryAmount {
	w := MonthOf(ref)
	totals := make(map[Category]Money)
	for _, t := range txs {
		if t.Type != Expense || !w.Contains(t.Date) {
			continue
		}
		totals[t.Category] = totals[t.Category].Add(t.Amount)
	}

	out := make([]CategoryAmount, 0, len(totals))
	for c, amt := range totals {
		out = append(out, CategoryAmount{Category: c, Label: c.Label(), Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Amount.Cmp(out[j].Amount); cmp != 0 {
			return cmp > 0
		}
		oi, oj := out[i].Category.order(), out[j].Category.order()
		if oi != oj {
			return oi < oj
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// TrailingMonthlySeries returns exactly n buckets ending with the month of
// ref, oldest first. Months without transactions carry zero totals.
func TrailingMonthlySeries(txs []Transaction, n int, ref time.Time) []MonthBucket {
	if n < 1 {
		return []MonthBucket{}
	}
	last := MonthOf(ref)
	first := last.AddMonths(-(n - 1))

	buckets := make([]MonthBucket, n)
	for i := range buckets {
		w := first.AddMonths(i)
		buckets[i] = MonthBucket{Year: w.Year, Month: w.Month, Label: w.Label()}
	}
	for _, t := range txs {
		w := MonthOf(t.Date)
		i := (w.Year-first.Year)*12 + int(w.Month-first.Month)
		if i < 0 || i >= n {
			continue
		}
		buckets[i].IncomeExpense = buckets[i].IncomeExpense.add(t)
	}
	return buckets
}

// ApplyCategoryColors sets Color on each entry from colors, falling back to
// the built-in table.
func ApplyCategoryColors(items []CategoryAmount, colors map[Category]string) []CategoryAmount {
	for i := range items {
		if c, ok := colors[items[i].Category]; ok {
			items[i].Color = c
			continue
		}
		items[i].Color = defaultCategoryColors[items[i].Category]
	}
	return items
}

// RecentTransactions returns up to n transactions, newest first. The input is
// not modified.
func RecentTransactions(txs []Transaction, n int) []Transaction {
	out := append([]Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
