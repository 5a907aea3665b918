package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HealthChecker checks external dependency health.
type HealthChecker interface {
	// Ping verifies connectivity. Returns nil if healthy.
	Ping(ctx context.Context) error
	// Name returns the dependency name (e.g., "postgresql", "redis").
	Name() string
}

// --- Infrastructure Ports ---

// EncryptionService handles AES-256-GCM encryption of payout destinations.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing of payment provider webhooks.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, body string) string
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService issues and validates bearer tokens for accounts.
type TokenService interface {
	Generate(accountID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AccountID uuid.UUID
}

// IdempotencyCache is the Redis fast path for payment event deduplication.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // cached entry JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// TokenCatalog is the static token reference data.
type TokenCatalog interface {
	Get(id string) (domain.TokenDefinition, bool)
	List() []domain.TokenDefinition
}

// Random is the randomness source of the lottery. *rand.Rand from
// math/rand/v2 satisfies it.
type Random interface {
	IntN(n int) int
}

// --- Service Ports (Business Logic) ---

// LedgerService mutates balances. Every method is one atomic unit of work.
type LedgerService interface {
	PurchaseCredits(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*domain.TransactionEntry, error)
	HandlePaymentSucceeded(ctx context.Context, event PaymentSucceeded) (*domain.TransactionEntry, error)
	PurchaseToken(ctx context.Context, accountID uuid.UUID, tokenID string) (*TokenPurchaseResult, error)
	RedeemPoints(ctx context.Context, accountID uuid.UUID, points int64, destination string) (*domain.ExchangeRequest, error)
	GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.TransactionEntry, error)
}

// PaymentSucceeded is the inbound payment provider event.
type PaymentSucceeded struct {
	EventID   string
	AccountID uuid.UUID
	Amount    decimal.Decimal
}

// TokenPurchaseResult describes a completed token purchase.
type TokenPurchaseResult struct {
	Entry        *domain.TransactionEntry
	Account      *domain.Account
	PointsEarned int64
	Lottery      *LotteryOutcome // nil when no redistribution happened
}

// LotteryOutcome is the redistribution decided for one purchase.
type LotteryOutcome struct {
	WinnerID           uuid.UUID
	WinnerName         string
	CompensationPoints int64
}

// TransactionListParams filters the append-only entry log.
// A nil AccountID lists every account (audit export).
type TransactionListParams struct {
	AccountID *uuid.UUID
	Kind      *domain.EntryKind
	Since     *time.Time
}

// Matches reports whether e passes every filter that is set.
func (p TransactionListParams) Matches(e *domain.TransactionEntry) bool {
	if p.AccountID != nil && e.AccountID != *p.AccountID {
		return false
	}
	if p.Kind != nil && e.Kind != *p.Kind {
		return false
	}
	return p.Since == nil || !e.CreatedAt.Before(*p.Since)
}

// ExchangeSort orders the operator queue.
type ExchangeSort string

const (
	SortNewest    ExchangeSort = "newest"
	SortOldest    ExchangeSort = "oldest"
	SortValueHigh ExchangeSort = "value_high"
	SortValueLow  ExchangeSort = "value_low"
)

// ExchangeListParams holds filter + sort for the operator queue.
type ExchangeListParams struct {
	Status *domain.ExchangeStatus
	Sort   ExchangeSort
}

// ExchangeService drives the exchange request state machine.
// operatorID must reference an account with the admin capability.
type ExchangeService interface {
	ListExchangeRequests(ctx context.Context, operatorID uuid.UUID, params ExchangeListParams) ([]domain.ExchangeRequest, error)
	Approve(ctx context.Context, operatorID, requestID uuid.UUID) (*domain.ExchangeRequest, error)
	Deny(ctx context.Context, operatorID, requestID uuid.UUID) (*domain.ExchangeRequest, error)
}

// AlertService dispatches and tracks per-account notifications.
type AlertService interface {
	Raise(ctx context.Context, accountID uuid.UUID, kind domain.AlertKind, message string) (*domain.Alert, error)
	MarkRead(ctx context.Context, accountID, alertID uuid.UUID) error
	MarkAllRead(ctx context.Context, accountID uuid.UUID) (int, error)
	ListUnread(ctx context.Context, accountID uuid.UUID) ([]domain.Alert, error)
}

// AuthService defines registration and login.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.Account, error)
	Login(ctx context.Context, email, password string) (string, time.Time, error) // token, expiry, error
	EnsureAdmin(ctx context.Context, req RegisterRequest) (*domain.Account, error)
}

// RegisterRequest holds input for account registration.
type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
}

// ReportingService aggregates the entry log for dashboards and exports.
type ReportingService interface {
	GetStats(ctx context.Context, accountID *uuid.UUID, period string) (*LedgerStats, error)
	PeriodStart(period string) (*time.Time, error)
}

// LedgerStats summarizes entries per kind over a period.
type LedgerStats struct {
	Period  string
	Since   *time.Time
	Entries int
	ByKind  map[domain.EntryKind]KindTotal
}

// KindTotal is the count and summed amount of one entry kind.
type KindTotal struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}
