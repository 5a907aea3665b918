package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExchangeStatus represents the lifecycle state of an exchange request.
type ExchangeStatus string

const (
	ExchangeStatusPending  ExchangeStatus = "PENDING"
	ExchangeStatusApproved ExchangeStatus = "APPROVED"
	ExchangeStatusDenied   ExchangeStatus = "DENIED"
)

// Valid reports whether s is a known status.
func (s ExchangeStatus) Valid() bool {
	switch s {
	case ExchangeStatusPending, ExchangeStatusApproved, ExchangeStatusDenied:
		return true
	}
	return false
}

// ExchangeRequest is a request to convert escrowed points into an
// off-platform payout. PayoutDestination holds ciphertext while persisted and
// is decrypted only for operator views.
type ExchangeRequest struct {
	ID                uuid.UUID       `json:"id"`
	AccountID         uuid.UUID       `json:"account_id"`
	AccountName       string          `json:"account_name"`
	PointsRequested   int64           `json:"points_requested"`
	PayoutAmount      decimal.Decimal `json:"payout_amount"`
	PayoutDestination string          `json:"payout_destination"`
	Status            ExchangeStatus  `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	DecidedAt         *time.Time      `json:"decided_at,omitempty"`
	DecidedBy         *uuid.UUID      `json:"decided_by,omitempty"`
}

// PayoutFor converts points into the payout amount at rate.
func PayoutFor(points int64, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(points).Mul(rate)
}

// IsTerminal returns true once the request was approved or denied.
func (r *ExchangeRequest) IsTerminal() bool {
	return r.Status == ExchangeStatusApproved || r.Status == ExchangeStatusDenied
}

// Decide moves a pending request into a terminal status.
// Returns false without modifying r if r is already terminal or to is not terminal.
func (r *ExchangeRequest) Decide(to ExchangeStatus, operatorID uuid.UUID, at time.Time) bool {
	if r.IsTerminal() || (to != ExchangeStatusApproved && to != ExchangeStatusDenied) {
		return false
	}
	r.Status = to
	r.DecidedAt = &at
	r.DecidedBy = &operatorID
	return true
}
