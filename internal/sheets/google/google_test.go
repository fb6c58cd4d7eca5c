package google

import (
	"context"
	"strings"
	"testing"
	"time"

	"saldo/internal/core"
)

func TestNewClient_MissingSpreadsheetID(t *testing.T) {
	_, err := NewClient(context.Background(), Config{}, nil)
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewClient_MissingCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), Config{SpreadsheetID: "sheet-id"}, nil)
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewClient_UnreadableCredentialsFile(t *testing.T) {
	_, err := NewClient(context.Background(), Config{
		SpreadsheetID:   "sheet-id",
		CredentialsFile: "/nonexistent/credentials.json",
	}, nil)
	if err == nil {
		t.Fatal("expected error for missing credentials file")
	}
	if !strings.Contains(err.Error(), "read service account file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWriteDashboard_Uninitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetBase: "Report"}
	if err := c.WriteDashboard(context.Background(), "", core.Dashboard{}); err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestOwnerSheetName(t *testing.T) {
	tests := []struct {
		base, owner, want string
	}{
		{"Report", "", "Report"},
		{"Report", "alice", "Report alice"},
		{" Report ", " bob ", "Report bob"},
	}
	for _, tt := range tests {
		if got := ownerSheetName(tt.base, tt.owner); got != tt.want {
			t.Errorf("ownerSheetName(%q, %q) = %q, want %q", tt.base, tt.owner, got, tt.want)
		}
	}
}

func TestQuoteSheet(t *testing.T) {
	if got := quoteSheet("Report"); got != "'Report'" {
		t.Errorf("got %q", got)
	}
	if got := quoteSheet("Bob's"); got != "'Bob''s'" {
		t.Errorf("got %q", got)
	}
}

func TestReportRows(t *testing.T) {
	d := core.Dashboard{
		Year:         2023,
		Month:        time.April,
		TotalBalance: core.MustMoney("1250"),
		Income:       core.MustMoney("500"),
		Expense:      core.MustMoney("250"),
		Net:          core.MustMoney("250"),
		Categories: []core.CategoryAmount{
			{Category: core.Housing, Label: "Housing", Amount: core.MustMoney("200"), Color: "#45B7D1"},
			{Category: core.Food, Label: "Food", Amount: core.MustMoney("50"), Color: "#FF6B6B"},
		},
		Series: []core.MonthBucket{
			{Year: 2023, Month: time.March, Label: "Mar"},
			{Year: 2023, Month: time.April, Label: "Apr", IncomeExpense: core.IncomeExpense{
				Income: core.MustMoney("500"), Expense: core.MustMoney("250"),
			}},
		},
		Recent: []core.Transaction{{
			Description: "groceries",
			Amount:      core.MustMoney("50"),
			Type:        core.Expense,
			Category:    core.Food,
			Date:        time.Date(2023, 4, 15, 0, 0, 0, 0, time.UTC),
		}},
		GeneratedAt: time.Date(2023, 4, 20, 10, 0, 0, 0, time.UTC),
	}

	rows := reportRows(d)

	// 6 summary rows + blank + header + 2 categories + blank + header + 2 months + blank + header + 1 tx
	if len(rows) != 17 {
		t.Fatalf("expected 17 rows, got %d", len(rows))
	}
	if rows[0][1] != "April 2023" {
		t.Errorf("expected month title, got %v", rows[0][1])
	}
	if rows[2][1] != 1250.0 {
		t.Errorf("expected total balance 1250, got %v", rows[2][1])
	}
	if rows[8][0] != "Housing" || rows[8][1] != 200.0 {
		t.Errorf("unexpected first category row: %v", rows[8])
	}
	if rows[12][0] != "2023-03" || rows[12][3] != 0.0 {
		t.Errorf("unexpected empty month row: %v", rows[12])
	}
	if rows[13][3] != 250.0 {
		t.Errorf("expected April net 250, got %v", rows[13][3])
	}
	last := rows[len(rows)-1]
	if last[0] != "2023-04-15" || last[2] != "Food" || last[4] != -50.0 {
		t.Errorf("unexpected transaction row: %v", last)
	}
}
