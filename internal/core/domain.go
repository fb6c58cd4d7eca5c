package core

import (
	"strings"
	"time"
)

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	Investment AccountType = "investment"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	CardCredit CardType = "credit"
	CardDebit  CardType = "debit"
	CardBoth   CardType = "both"
)

// DefaultAccountColor is used when an account has no display color.
const DefaultAccountColor = "#888888"

type (
	AccountType     string
	TransactionType string
	CardType        string

	// Account is a money container owned by a user. OpeningBalance is the
	// baseline set at creation and is the only balance used as computation
	// input. CurrentBalance is a refreshed cache of the derived total.
	Account struct {
		ID             string      `json:"id"`
		OwnerID        string      `json:"owner_id,omitempty"`
		Name           string      `json:"name" validate:"notblank,max=100"`
		Type           AccountType `json:"type" validate:"oneof=checking savings investment"`
		OpeningBalance Money       `json:"opening_balance"`
		CurrentBalance Money       `json:"current_balance"`
		CreatedAt      time.Time   `json:"created_at"`
		Color          string      `json:"color,omitempty" validate:"omitempty,hexcolor"`
	}

	// Transaction amounts are unsigned magnitudes; Type carries the sign.
	Transaction struct {
		ID          string          `json:"id"`
		AccountID   string          `json:"account_id" validate:"required"`
		Description string          `json:"description" validate:"notblank,max=200"`
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type" validate:"oneof=income expense"`
		Category    Category        `json:"category" validate:"category"`
		Date        time.Time       `json:"date"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	Card struct {
		ID             string   `json:"id"`
		AccountID      string   `json:"account_id" validate:"required"`
		Name           string   `json:"name" validate:"notblank,max=100"`
		Type           CardType `json:"type" validate:"oneof=credit debit both"`
		LastFourDigits string   `json:"last_four_digits" validate:"lastfour"`
		Expiry         string   `json:"expiry" validate:"cardexpiry"`
		Limit          *Money   `json:"limit,omitempty"`
		ClosingDay     *int     `json:"closing_day,omitempty" validate:"omitempty,min=1,max=31"`
		DueDay         *int     `json:"due_day,omitempty" validate:"omitempty,min=1,max=31"`
	}
)

// IsValid reports whether the account type is one of the known kinds.
func (t AccountType) IsValid() bool {
	switch t {
	case Checking, Savings, Investment:
		return true
	}
	return false
}

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (t CardType) IsValid() bool {
	switch t {
	case CardCredit, CardDebit, CardBoth:
		return true
	}
	return false
}

// DisplayColor returns the account color or the neutral default.
func (a Account) DisplayColor() string {
	if strings.TrimSpace(a.Color) == "" {
		return DefaultAccountColor
	}
	return a.Color
}

func (a Account) Validate() error {
	return validateStruct(a)
}

// SignedAmount returns +Amount for income and -Amount for expense.
func (t Transaction) SignedAmount() Money {
	if t.Type == Income {
		return t.Amount
	}
	return t.Amount.Neg()
}

func (t Transaction) Validate() error {
	if err := validateStruct(t); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "is required"}
	}
	if !t.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	return nil
}

// Validate checks the card shape. Credit cards must carry a positive limit
// and both billing days; other card types validate them only when present.
func (c Card) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	if c.Limit != nil && !c.Limit.IsPositive() {
		return &ValidationError{Field: "limit", Reason: "must be greater than zero"}
	}
	if c.Type != CardCredit {
		return nil
	}
	if c.Limit == nil {
		return &ValidationError{Field: "limit", Reason: "is required for credit cards"}
	}
	if c.ClosingDay == nil {
		return &ValidationError{Field: "closing_day", Reason: "is required for credit cards"}
	}
	if c.DueDay == nil {
		return &ValidationError{Field: "due_day", Reason: "is required for credit cards"}
	}
	return nil
}
