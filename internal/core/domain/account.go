package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is a participant of the token economy. It is persisted as-is in the
// record store, so every field (including the password hash) is serialized;
// HTTP responses go through DTOs instead.
//
// Balances change only through the methods below, which the ledger engine
// calls inside a unit of work.
type Account struct {
	ID           uuid.UUID        `json:"id"`
	Email        string           `json:"email"`
	DisplayName  string           `json:"display_name"`
	PasswordHash string           `json:"password_hash"`
	Credits      decimal.Decimal  `json:"credits"`
	Points       int64            `json:"points"`
	Holdings     map[string]int64 `json:"holdings"`
	IsAdmin      bool             `json:"is_admin"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// HoldingOf returns the quantity of tokenID held. Missing entries and
// zero-quantity tombstones both read as 0.
func (a *Account) HoldingOf(tokenID string) int64 {
	return a.Holdings[tokenID]
}

// HoldsToken reports whether the account holds at least one unit of tokenID.
func (a *Account) HoldsToken(tokenID string) bool {
	return a.HoldingOf(tokenID) >= 1
}

// AddCredits increases the credit balance. amount must be positive.
func (a *Account) AddCredits(amount decimal.Decimal) {
	a.Credits = a.Credits.Add(amount)
}

// DebitCredits removes amount from the credit balance.
// Returns false (and leaves the balance untouched) if it would go negative.
func (a *Account) DebitCredits(amount decimal.Decimal) bool {
	if a.Credits.LessThan(amount) {
		return false
	}
	a.Credits = a.Credits.Sub(amount)
	return true
}

// AddPoints increases the points balance.
func (a *Account) AddPoints(points int64) {
	a.Points += points
}

// DebitPoints removes points from the balance.
// Returns false (and leaves the balance untouched) if it would go negative.
func (a *Account) DebitPoints(points int64) bool {
	if points > a.Points {
		return false
	}
	a.Points -= points
	return true
}

// AddHolding increments the holding for tokenID by one unit.
func (a *Account) AddHolding(tokenID string) {
	if a.Holdings == nil {
		a.Holdings = make(map[string]int64)
	}
	a.Holdings[tokenID]++
}

// RemoveHolding decrements the holding for tokenID by one unit. The entry is
// kept as a 0 tombstone. Returns false if the account holds no unit.
func (a *Account) RemoveHolding(tokenID string) bool {
	if !a.HoldsToken(tokenID) {
		return false
	}
	a.Holdings[tokenID]--
	return true
}

// EmailIndex maps a normalized email to its account; it backs registration
// uniqueness and login lookups.
type EmailIndex struct {
	Email     string    `json:"email"`
	AccountID uuid.UUID `json:"account_id"`
}

// NormalizeEmail lowercases and trims an email for index lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
