package core

import "time"

// CategoryAmount is a category total for one month.
type CategoryAmount struct {
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Amount   Money    `json:"amount"`
	Color    string   `json:"color,omitempty"`
}

// MonthBucket is one month of a trailing series.
type MonthBucket struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Label string     `json:"label"`
	IncomeExpense
}

// Window returns the month the bucket covers.
func (b MonthBucket) Window() MonthWindow {
	return MonthWindow{Year: b.Year, Month: b.Month}
}

// Dashboard is the monthly overview for one owner.
type Dashboard struct {
	OwnerID      string           `json:"owner_id,omitempty"`
	Year         int              `json:"year"`
	Month        time.Month       `json:"month"`
	TotalBalance Money            `json:"total_balance"`
	Income       Money            `json:"income"`
	Expense      Money            `json:"expense"`
	Net          Money            `json:"net"`
	Categories   []CategoryAmount `json:"categories"`
	Series       []MonthBucket    `json:"series"`
	Recent       []Transaction    `json:"recent_transactions"`
	GeneratedAt  time.Time        `json:"generated_at"`
	// Stale is set when the store could not be reached and the report was
	// served from the last cached copy.
	Stale bool `json:"stale"`
}

// AccountBalance is a derived account balance. Stale marks a value taken
// from the stored cache because transactions could not be read.
type AccountBalance struct {
	AccountID string `json:"account_id,omitempty"`
	Balance   Money  `json:"balance"`
	Stale     bool   `json:"stale"`
}

type MonthlyReport struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	IncomeExpense
	Net   Money `json:"net"`
	Stale bool  `json:"stale"`
}

type CategoryReport struct {
	Year       int              `json:"year"`
	Month      time.Month       `json:"month"`
	Categories []CategoryAmount `json:"categories"`
	Stale      bool             `json:"stale"`
}

type SeriesReport struct {
	Months int           `json:"months"`
	Series []MonthBucket `json:"series"`
	Stale  bool          `json:"stale"`
}
