package domain

import (
	"time"

	"github.com/google/uuid"
)

// AlertKind classifies a user notification.
type AlertKind string

const (
	AlertKindPixInvalid       AlertKind = "PIX_INVALID"
	AlertKindExchangeApproved AlertKind = "EXCHANGE_APPROVED"
	AlertKindExchangeDenied   AlertKind = "EXCHANGE_DENIED"
	AlertKindTokenSold        AlertKind = "TOKEN_SOLD"
)

// Alert is a per-account notification. Only IsRead ever changes after creation.
type Alert struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Kind      AlertKind `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	IsRead    bool      `json:"is_read"`
}

// NewAlert creates an unread alert.
func NewAlert(accountID uuid.UUID, kind AlertKind, message string, at time.Time) *Alert {
	return &Alert{
		ID:        uuid.New(),
		AccountID: accountID,
		Kind:      kind,
		Message:   message,
		CreatedAt: at,
	}
}
