package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentEvent records a processed "payment succeeded" delivery from the
// payment provider so redeliveries credit the account only once.
type PaymentEvent struct {
	EventID       string          `json:"event_id"`
	AccountID     uuid.UUID       `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	ReceivedAt    time.Time       `json:"received_at"`
}

// BuildPaymentIdempotencyKey constructs the cache key for a provider event.
func BuildPaymentIdempotencyKey(eventID string) string {
	return "payment:" + eventID
}
