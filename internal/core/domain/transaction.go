package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	EntryKindCreditPurchase EntryKind = "CREDIT_PURCHASE"
	EntryKindTokenPurchase  EntryKind = "TOKEN_PURCHASE"
	EntryKindTokenLoss      EntryKind = "TOKEN_LOSS"
	EntryKindPointExchange  EntryKind = "POINT_EXCHANGE"
)

// Valid reports whether k is a known entry kind.
func (k EntryKind) Valid() bool {
	switch k {
	case EntryKindCreditPurchase, EntryKindTokenPurchase, EntryKindTokenLoss, EntryKindPointExchange:
		return true
	}
	return false
}

// TransactionEntry is an immutable, append-only audit record. It is written
// once, in the same commit as the balance change it documents, and never
// updated or deleted.
//
// Amount unit depends on Kind: credits for CREDIT_PURCHASE and
// TOKEN_PURCHASE, points for TOKEN_LOSS, payout currency for POINT_EXCHANGE.
type TransactionEntry struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	Kind        EntryKind       `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewTransactionEntry stamps a fresh entry.
func NewTransactionEntry(accountID uuid.UUID, kind EntryKind, amount decimal.Decimal, description string, at time.Time) *TransactionEntry {
	return &TransactionEntry{
		ID:          uuid.New(),
		AccountID:   accountID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		CreatedAt:   at,
	}
}
