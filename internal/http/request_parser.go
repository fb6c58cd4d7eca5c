package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"saldo/internal/core"
)

const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errBadRequest)
}

// parseRefDate reads the report reference date from ?date=YYYY-MM-DD, or
// from ?year=&month=. Missing values fall back to now.
func parseRefDate(r *http.Request, now time.Time) (time.Time, error) {
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("date")); v != "" {
		d, err := time.ParseInLocation(time.DateOnly, v, time.UTC)
		if err != nil {
			return time.Time{}, badRequest("invalid date %q, expected YYYY-MM-DD", v)
		}
		return d, nil
	}

	year, month := now.Year(), now.Month()
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1900 || y > 9999 {
			return time.Time{}, badRequest("invalid year %q", v)
		}
		year = y
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return time.Time{}, badRequest("invalid month %q", v)
		}
		month = time.Month(m)
	}
	if year == now.Year() && month == now.Month() {
		return now, nil
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), nil
}

// parseMonths reads ?months=. Zero means the configured default.
func parseMonths(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("months"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 120 {
		return 0, badRequest("invalid months %q, expected 1-120", v)
	}
	return n, nil
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and oversized bodies.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var verr *core.ValidationError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &verr):
			return err
		case errors.As(err, &maxErr):
			return badRequest("request body too large")
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		default:
			return badRequest("malformed JSON: %v", err)
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

// parseDay accepts YYYY-MM-DD or RFC 3339.
func parseDay(field, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, &core.ValidationError{Field: field, Reason: "is required"}
	}
	if d, err := time.ParseInLocation(time.DateOnly, v, time.UTC); err == nil {
		return d, nil
	}
	if d, err := time.Parse(time.RFC3339, v); err == nil {
		return d, nil
	}
	return time.Time{}, &core.ValidationError{Field: field, Reason: "must be YYYY-MM-DD"}
}

type accountRequest struct {
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	OpeningBalance core.Money `json:"opening_balance"`
	Color          string     `json:"color"`
}

func (req accountRequest) toAccount(id string) core.Account {
	return core.Account{
		ID:             id,
		Name:           strings.TrimSpace(req.Name),
		Type:           core.AccountType(strings.ToLower(strings.TrimSpace(req.Type))),
		OpeningBalance: req.OpeningBalance,
		Color:          strings.TrimSpace(req.Color),
	}
}

// accountUpdateRequest carries the editable account fields. OpeningBalance
// is accepted only when it matches the stored value.
type accountUpdateRequest struct {
	Name           string      `json:"name"`
	Type           string      `json:"type"`
	OpeningBalance *core.Money `json:"opening_balance"`
	Color          string      `json:"color"`
}

func (req accountUpdateRequest) toAccount(cur core.Account) (core.Account, error) {
	if req.OpeningBalance != nil && !req.OpeningBalance.Equal(cur.OpeningBalance) {
		return core.Account{}, &core.ValidationError{Field: "opening_balance", Reason: "cannot be changed after creation"}
	}
	cur.Name = strings.TrimSpace(req.Name)
	cur.Type = core.AccountType(strings.ToLower(strings.TrimSpace(req.Type)))
	cur.Color = strings.TrimSpace(req.Color)
	return cur, nil
}

type transactionRequest struct {
	AccountID   string     `json:"account_id"`
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	Type        string     `json:"type"`
	Category    string     `json:"category"`
	Date        string     `json:"date"`
}

func (req transactionRequest) toTransaction(id string) (core.Transaction, error) {
	date, err := parseDay("date", req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	cat, err := core.ParseCategory(req.Category)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          id,
		AccountID:   strings.TrimSpace(req.AccountID),
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		Type:        core.TransactionType(strings.ToLower(strings.TrimSpace(req.Type))),
		Category:    cat,
		Date:        date,
	}, nil
}

type cardRequest struct {
	AccountID      string      `json:"account_id"`
	Name           string      `json:"name"`
	Type           string      `json:"type"`
	LastFourDigits string      `json:"last_four_digits"`
	Expiry         string      `json:"expiry"`
	Limit          *core.Money `json:"limit"`
	ClosingDay     *int        `json:"closing_day"`
	DueDay         *int        `json:"due_day"`
}

func (req cardRequest) toCard(id string) core.Card {
	return core.Card{
		ID:             id,
		AccountID:      strings.TrimSpace(req.AccountID),
		Name:           strings.TrimSpace(req.Name),
		Type:           core.CardType(strings.ToLower(strings.TrimSpace(req.Type))),
		LastFourDigits: strings.TrimSpace(req.LastFourDigits),
		Expiry:         strings.TrimSpace(req.Expiry),
		Limit:          req.Limit,
		ClosingDay:     req.ClosingDay,
		DueDay:         req.DueDay,
	}
}

type categoryColorRequest struct {
	Color string `json:"color"`
}
