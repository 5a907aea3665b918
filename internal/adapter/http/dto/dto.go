package dto

import (
	"sort"
	"time"

	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"

	"github.com/shopspring/decimal"
)

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email,max=254"`
	Password    string `json:"password" binding:"required,min=8,max=128" sanitize:"-"`
	DisplayName string `json:"display_name" binding:"omitempty,max=100"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required" sanitize:"-"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// PurchaseCreditsRequest is the request body for a direct credit purchase.
// Amount accepts a JSON number or a decimal string.
type PurchaseCreditsRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// PaymentSucceededRequest is the payment provider webhook body.
type PaymentSucceededRequest struct {
	EventID   string          `json:"event_id" binding:"required,max=128,safe_id"`
	AccountID string          `json:"account_id" binding:"required,uuid"`
	Amount    decimal.Decimal `json:"amount"`
}

// TokenURI binds the :token_id path parameter.
type TokenURI struct {
	TokenID string `uri:"token_id" binding:"required,token_id"`
}

// RedeemRequest is the request body for a point exchange.
type RedeemRequest struct {
	Points            int64  `json:"points"`
	PayoutDestination string `json:"payout_destination" binding:"pix_key" sanitize:"-"`
}

// AccountResponse is the caller's own account view. Credits are rendered as a
// fixed two-decimal string.
type AccountResponse struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	DisplayName string            `json:"display_name"`
	Credits     string            `json:"credits"`
	Points      int64             `json:"points"`
	Holdings    []HoldingResponse `json:"holdings"`
	IsAdmin     bool              `json:"is_admin"`
	CreatedAt   string            `json:"created_at"`
}

// HoldingResponse is one non-zero token holding.
type HoldingResponse struct {
	TokenID  string `json:"token_id"`
	Quantity int64  `json:"quantity"`
}

// TransactionResponse is one ledger entry.
type TransactionResponse struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// TransactionListResponse wraps the entry history.
type TransactionListResponse struct {
	Items []TransactionResponse `json:"items"`
	Total int                   `json:"total"`
}

// TokenResponse describes one catalog entry.
type TokenResponse struct {
	ID                 string `json:"id"`
	DisplayName        string `json:"display_name"`
	Price              string `json:"price"`
	PurchasePoints     int64  `json:"purchase_points"`
	CompensationPoints int64  `json:"compensation_points"`
}

// TokenPurchaseResponse is the result of a token purchase.
type TokenPurchaseResponse struct {
	Transaction  TransactionResponse `json:"transaction"`
	Account      AccountResponse     `json:"account"`
	PointsEarned int64               `json:"points_earned"`
	Lottery      *LotteryResponse    `json:"lottery,omitempty"`
}

// LotteryResponse names the account that lost a unit to the purchase.
type LotteryResponse struct {
	WinnerID           string `json:"winner_id"`
	WinnerName         string `json:"winner_name"`
	CompensationPoints int64  `json:"compensation_points"`
}

// ExchangeResponse is one exchange request with its destination in plaintext.
type ExchangeResponse struct {
	ID                string  `json:"id"`
	AccountID         string  `json:"account_id"`
	AccountName       string  `json:"account_name"`
	PointsRequested   int64   `json:"points_requested"`
	PayoutAmount      string  `json:"payout_amount"`
	PayoutDestination string  `json:"payout_destination"`
	Status            string  `json:"status"`
	CreatedAt         string  `json:"created_at"`
	DecidedAt         *string `json:"decided_at,omitempty"`
	DecidedBy         *string `json:"decided_by,omitempty"`
}

// ExchangeListResponse is the operator queue.
type ExchangeListResponse struct {
	Items              []ExchangeResponse `json:"items"`
	PendingPayoutTotal string             `json:"pending_payout_total"`
}

// AlertResponse is one notification.
type AlertResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

// MarkAllReadResponse reports how many alerts were flipped.
type MarkAllReadResponse struct {
	Updated int `json:"updated"`
}

// StatsResponse summarizes the caller's ledger entries over a period.
type StatsResponse struct {
	Period  string                       `json:"period"`
	Since   *string                      `json:"since,omitempty"`
	Entries int                          `json:"entries"`
	ByKind  map[string]KindTotalResponse `json:"by_kind"`
}

// KindTotalResponse is the count and summed amount of one entry kind.
type KindTotalResponse struct {
	Count  int    `json:"count"`
	Amount string `json:"amount"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// NewAccountResponse renders an account. Zero-quantity holdings are omitted.
func NewAccountResponse(a *domain.Account) AccountResponse {
	holdings := make([]HoldingResponse, 0, len(a.Holdings))
	for id, qty := range a.Holdings {
		if qty > 0 {
			holdings = append(holdings, HoldingResponse{TokenID: id, Quantity: qty})
		}
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].TokenID < holdings[j].TokenID })

	return AccountResponse{
		ID:          a.ID.String(),
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Credits:     a.Credits.StringFixed(2),
		Points:      a.Points,
		Holdings:    holdings,
		IsAdmin:     a.IsAdmin,
		CreatedAt:   formatTime(a.CreatedAt),
	}
}

// NewTransactionResponse renders a ledger entry.
func NewTransactionResponse(e *domain.TransactionEntry) TransactionResponse {
	return TransactionResponse{
		ID:          e.ID.String(),
		AccountID:   e.AccountID.String(),
		Kind:        string(e.Kind),
		Amount:      e.Amount.String(),
		Description: e.Description,
		CreatedAt:   formatTime(e.CreatedAt),
	}
}

// NewTransactionListResponse renders an entry list.
func NewTransactionListResponse(entries []domain.TransactionEntry) TransactionListResponse {
	items := make([]TransactionResponse, 0, len(entries))
	for i := range entries {
		items = append(items, NewTransactionResponse(&entries[i]))
	}
	return TransactionListResponse{Items: items, Total: len(items)}
}

// NewTokenResponse renders a catalog entry.
func NewTokenResponse(t domain.TokenDefinition, multiplier decimal.Decimal) TokenResponse {
	return TokenResponse{
		ID:                 t.ID,
		DisplayName:        t.DisplayName,
		Price:              t.Price.StringFixed(2),
		PurchasePoints:     t.PurchasePoints(multiplier),
		CompensationPoints: t.CompensationPoints(),
	}
}

// NewTokenPurchaseResponse renders a purchase result.
func NewTokenPurchaseResponse(r *ports.TokenPurchaseResult) TokenPurchaseResponse {
	resp := TokenPurchaseResponse{
		Transaction:  NewTransactionResponse(r.Entry),
		Account:      NewAccountResponse(r.Account),
		PointsEarned: r.PointsEarned,
	}
	if r.Lottery != nil {
		resp.Lottery = &LotteryResponse{
			WinnerID:           r.Lottery.WinnerID.String(),
			WinnerName:         r.Lottery.WinnerName,
			CompensationPoints: r.Lottery.CompensationPoints,
		}
	}
	return resp
}

// NewExchangeResponse renders an exchange request.
func NewExchangeResponse(r *domain.ExchangeRequest) ExchangeResponse {
	resp := ExchangeResponse{
		ID:                r.ID.String(),
		AccountID:         r.AccountID.String(),
		AccountName:       r.AccountName,
		PointsRequested:   r.PointsRequested,
		PayoutAmount:      r.PayoutAmount.StringFixed(2),
		PayoutDestination: r.PayoutDestination,
		Status:            string(r.Status),
		CreatedAt:         formatTime(r.CreatedAt),
	}
	if r.DecidedAt != nil {
		s := formatTime(*r.DecidedAt)
		resp.DecidedAt = &s
	}
	if r.DecidedBy != nil {
		s := r.DecidedBy.String()
		resp.DecidedBy = &s
	}
	return resp
}

// NewAlertResponse renders an alert.
func NewAlertResponse(a *domain.Alert) AlertResponse {
	return AlertResponse{
		ID:        a.ID.String(),
		Kind:      string(a.Kind),
		Message:   a.Message,
		IsRead:    a.IsRead,
		CreatedAt: formatTime(a.CreatedAt),
	}
}

// NewStatsResponse renders ledger statistics.
func NewStatsResponse(s *ports.LedgerStats) StatsResponse {
	resp := StatsResponse{
		Period:  s.Period,
		Entries: s.Entries,
		ByKind:  make(map[string]KindTotalResponse, len(s.ByKind)),
	}
	if s.Since != nil {
		since := formatTime(*s.Since)
		resp.Since = &since
	}
	for kind, total := range s.ByKind {
		resp.ByKind[string(kind)] = KindTotalResponse{Count: total.Count, Amount: total.Amount.String()}
	}
	return resp
}
