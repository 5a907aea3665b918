package dto

import (
	"encoding/json"
	"testing"
	"time"

	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccountResponse_HidesTombstonesAndSorts(t *testing.T) {
	acc := &domain.Account{
		ID:          uuid.New(),
		Email:       "a@example.com",
		DisplayName: "A",
		Credits:     decimal.RequireFromString("12.5"),
		Points:      31,
		Holdings:    map[string]int64{"silver": 2, "bronze": 0, "gold": 1},
		CreatedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	resp := NewAccountResponse(acc)

	assert.Equal(t, "12.50", resp.Credits)
	assert.Equal(t, []HoldingResponse{{TokenID: "gold", Quantity: 1}, {TokenID: "silver", Quantity: 2}}, resp.Holdings)
	assert.Equal(t, "2024-01-02T03:04:05Z", resp.CreatedAt)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
}

func TestNewTokenPurchaseResponse(t *testing.T) {
	buyer := &domain.Account{ID: uuid.New(), Credits: decimal.Zero}
	entry := domain.NewTransactionEntry(buyer.ID, domain.EntryKindTokenPurchase, decimal.NewFromInt(100), "Bought Gold Token", time.Now())
	winner := uuid.New()

	resp := NewTokenPurchaseResponse(&ports.TokenPurchaseResult{
		Entry:        entry,
		Account:      buyer,
		PointsEarned: 125,
		Lottery:      &ports.LotteryOutcome{WinnerID: winner, WinnerName: "W", CompensationPoints: 100},
	})

	assert.Equal(t, "TOKEN_PURCHASE", resp.Transaction.Kind)
	assert.Equal(t, "100", resp.Transaction.Amount)
	require.NotNil(t, resp.Lottery)
	assert.Equal(t, winner.String(), resp.Lottery.WinnerID)

	resp = NewTokenPurchaseResponse(&ports.TokenPurchaseResult{Entry: entry, Account: buyer})
	assert.Nil(t, resp.Lottery)
}

func TestNewExchangeResponse_DecisionFields(t *testing.T) {
	req := &domain.ExchangeRequest{
		ID:              uuid.New(),
		AccountID:       uuid.New(),
		PointsRequested: 120,
		PayoutAmount:    domain.PayoutFor(120, decimal.RequireFromString("0.5")),
		Status:          domain.ExchangeStatusPending,
	}
	resp := NewExchangeResponse(req)
	assert.Equal(t, "60.00", resp.PayoutAmount)
	assert.Nil(t, resp.DecidedAt)
	assert.Nil(t, resp.DecidedBy)

	op := uuid.New()
	require.True(t, req.Decide(domain.ExchangeStatusApproved, op, time.Now()))
	resp = NewExchangeResponse(req)
	assert.Equal(t, "APPROVED", resp.Status)
	require.NotNil(t, resp.DecidedBy)
	assert.Equal(t, op.String(), *resp.DecidedBy)
}

func TestPurchaseCreditsRequest_AcceptsNumberOrString(t *testing.T) {
	var fromNumber, fromString PurchaseCreditsRequest
	require.NoError(t, json.Unmarshal([]byte(`{"amount": 19.99}`), &fromNumber))
	require.NoError(t, json.Unmarshal([]byte(`{"amount": "19.99"}`), &fromString))

	assert.True(t, fromNumber.Amount.Equal(fromString.Amount))
}

func TestNewStatsResponse(t *testing.T) {
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	resp := NewStatsResponse(&ports.LedgerStats{
		Period:  "month",
		Since:   &since,
		Entries: 3,
		ByKind: map[domain.EntryKind]ports.KindTotal{
			domain.EntryKindCreditPurchase: {Count: 2, Amount: decimal.NewFromInt(80)},
			domain.EntryKindTokenLoss:      {Count: 1, Amount: decimal.NewFromInt(25)},
		},
	})

	assert.Equal(t, "2024-05-01T00:00:00Z", *resp.Since)
	assert.Equal(t, KindTotalResponse{Count: 2, Amount: "80"}, resp.ByKind["CREDIT_PURCHASE"])
}
