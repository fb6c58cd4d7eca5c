package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Record kinds and operations carried by ledger.changed messages.
const (
	KindAccount       = "account"
	KindTransaction   = "transaction"
	KindCard          = "card"
	KindCategoryColor = "category_color"

	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// LedgerChangedMessage announces a committed ledger write. It carries ids
// only; consumers read the current state from the store.
type LedgerChangedMessage struct {
	Kind      string    `json:"kind"`
	Op        string    `json:"op"`
	ID        string    `json:"id"`
	AccountID string    `json:"account_id,omitempty"`
	OwnerID   string    `json:"owner_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(kind, op, id, accountID, ownerID string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Kind:      kind,
		Op:        op,
		ID:        id,
		AccountID: accountID,
		OwnerID:   ownerID,
		Timestamp: time.Now(),
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" || msg.Op == "" {
		return nil, errors.New("ledger message missing kind or op")
	}
	return &msg, nil
}
