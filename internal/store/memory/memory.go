// Package memory is an in-process record store for development and tests.
package memory

import (
	"context"
	"sync"

	"saldo/internal/core"
	"saldo/internal/identity"
	"saldo/internal/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	accs   map[string]core.Account
	txs    map[string]core.Transaction
	cards  map[string]core.Card
	colors map[string]map[core.Category]string // owner -> overrides
}

func New() *Store {
	return &Store{
		accs:   map[string]core.Account{},
		txs:    map[string]core.Transaction{},
		cards:  map[string]core.Card{},
		colors: map[string]map[core.Category]string{},
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

// visible reports whether the account exists and is in scope. Callers hold mu.
func (s *Store) visible(ctx context.Context, accountID string) (core.Account, bool) {
	a, ok := s.accs[accountID]
	if !ok {
		return core.Account{}, false
	}
	if owner := identity.UserID(ctx); owner != "" && a.OwnerID != owner {
		return core.Account{}, false
	}
	return a, true
}

func (s *Store) ListAccounts(ctx context.Context) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Account, 0, len(s.accs))
	for id := range s.accs {
		if a, ok := s.visible(ctx, id); ok {
			out = append(out, a)
		}
	}
	store.SortAccounts(out)
	return out, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.visible(ctx, id)
	if !ok {
		return core.Account{}, core.NotFoundError("account", id)
	}
	return a, nil
}

func (s *Store) UpdateAccountBalance(ctx context.Context, id string, balance core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.visible(ctx, id)
	if !ok {
		return core.NotFoundError("account", id)
	}
	a.CurrentBalance = balance
	s.accs[id] = a
	return nil
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accs[a.ID]; exists {
		return &core.ValidationError{Field: "id", Reason: "already exists"}
	}
	s.accs[a.ID] = a
	return nil
}

// UpdateAccount replaces the editable fields. OpeningBalance, CreatedAt and
// OwnerID are kept from the stored record.
func (s *Store) UpdateAccount(ctx context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.visible(ctx, a.ID)
	if !ok {
		return core.NotFoundError("account", a.ID)
	}
	cur.Name = a.Name
	cur.Type = a.Type
	cur.Color = a.Color
	s.accs[a.ID] = cur
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visible(ctx, id); !ok {
		return core.NotFoundError("account", id)
	}
	delete(s.accs, id)
	for tid, t := range s.txs {
		if t.AccountID == id {
			delete(s.txs, tid)
		}
	}
	for cid, c := range s.cards {
		if c.AccountID == id {
			delete(s.cards, cid)
		}
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, 0)
	for _, t := range s.txs {
		if accountID != "" && t.AccountID != accountID {
			continue
		}
		if _, ok := s.visible(ctx, t.AccountID); !ok {
			continue
		}
		out = append(out, t)
	}
	store.SortTransactions(out)
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, core.NotFoundError("transaction", id)
	}
	if _, ok := s.visible(ctx, t.AccountID); !ok {
		return core.Transaction{}, core.NotFoundError("transaction", id)
	}
	return t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visible(ctx, t.AccountID); !ok {
		return core.NotFoundError("account", t.AccountID)
	}
	if _, exists := s.txs[t.ID]; exists {
		return &core.ValidationError{Field: "id", Reason: "already exists"}
	}
	t.Date = core.WallClockUTC(t.Date)
	s.txs[t.ID] = t
	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.txs[t.ID]
	if !ok {
		return core.NotFoundError("transaction", t.ID)
	}
	if _, ok := s.visible(ctx, cur.AccountID); !ok {
		return core.NotFoundError("transaction", t.ID)
	}
	if _, ok := s.visible(ctx, t.AccountID); !ok {
		return core.NotFoundError("account", t.AccountID)
	}
	t.CreatedAt = cur.CreatedAt
	t.Date = core.WallClockUTC(t.Date)
	s.txs[t.ID] = t
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return core.NotFoundError("transaction", id)
	}
	if _, ok := s.visible(ctx, t.AccountID); !ok {
		return core.NotFoundError("transaction", id)
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) ListCards(ctx context.Context, accountID string) ([]core.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Card, 0)
	for _, c := range s.cards {
		if accountID != "" && c.AccountID != accountID {
			continue
		}
		if _, ok := s.visible(ctx, c.AccountID); !ok {
			continue
		}
		out = append(out, c)
	}
	store.SortCards(out)
	return out, nil
}

func (s *Store) GetCard(ctx context.Context, id string) (core.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[id]
	if !ok {
		return core.Card{}, core.NotFoundError("card", id)
	}
	if _, ok := s.visible(ctx, c.AccountID); !ok {
		return core.Card{}, core.NotFoundError("card", id)
	}
	return c, nil
}

func (s *Store) CreateCard(ctx context.Context, c core.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visible(ctx, c.AccountID); !ok {
		return core.NotFoundError("account", c.AccountID)
	}
	if _, exists := s.cards[c.ID]; exists {
		return &core.ValidationError{Field: "id", Reason: "already exists"}
	}
	s.cards[c.ID] = c
	return nil
}

func (s *Store) UpdateCard(ctx context.Context, c core.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.cards[c.ID]
	if !ok {
		return core.NotFoundError("card", c.ID)
	}
	if _, ok := s.visible(ctx, cur.AccountID); !ok {
		return core.NotFoundError("card", c.ID)
	}
	if _, ok := s.visible(ctx, c.AccountID); !ok {
		return core.NotFoundError("account", c.AccountID)
	}
	s.cards[c.ID] = c
	return nil
}

func (s *Store) DeleteCard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return core.NotFoundError("card", id)
	}
	if _, ok := s.visible(ctx, c.AccountID); !ok {
		return core.NotFoundError("card", id)
	}
	delete(s.cards, id)
	return nil
}

func (s *Store) ListCategoryColors(ctx context.Context) (map[core.Category]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.colors[identity.UserID(ctx)]
	out := make(map[core.Category]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out, nil
}

func (s *Store) SetCategoryColor(ctx context.Context, c core.Category, hex string) error {
	if !c.IsValid() {
		return &core.ValidationError{Field: "category", Reason: "unknown category " + string(c)}
	}
	if !core.ValidColorHex(hex) {
		return &core.ValidationError{Field: "color", Reason: "must be a hex color"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	owner := identity.UserID(ctx)
	if s.colors[owner] == nil {
		s.colors[owner] = map[core.Category]string{}
	}
	s.colors[owner][c] = hex
	return nil
}
