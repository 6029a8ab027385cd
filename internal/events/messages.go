package events

import (
	"encoding/json"
	"time"
)

// Event names carried in LedgerMessage.Kind.
const (
	KindTransactionCreated = "transaction.created"
	KindTransactionDeleted = "transaction.deleted"
	KindTransferCompleted  = "transfer.completed"
)

// LedgerMessage is a lightweight notification about a ledger mutation.
// Consumers fetch full records from the store by id; the message itself only
// carries identity.
type LedgerMessage struct {
	Kind          string    `json:"kind"`
	TransactionID string    `json:"transaction_id,omitempty"`
	AccountID     string    `json:"account_id,omitempty"`
	DebitID       string    `json:"debit_id,omitempty"`
	CreditID      string    `json:"credit_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionMessage builds a created/deleted notification.
func NewTransactionMessage(kind, transactionID, accountID string) *LedgerMessage {
	return &LedgerMessage{
		Kind:          kind,
		TransactionID: transactionID,
		AccountID:     accountID,
		Timestamp:     time.Now(),
	}
}

// NewTransferMessage builds a transfer notification carrying both leg ids.
func NewTransferMessage(debitID, creditID string) *LedgerMessage {
	return &LedgerMessage{
		Kind:      KindTransferCompleted,
		DebitID:   debitID,
		CreditID:  creditID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerMessageFromJSON parses a message from JSON bytes.
func LedgerMessageFromJSON(data []byte) (*LedgerMessage, error) {
	var msg LedgerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
