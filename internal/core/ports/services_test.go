package ports

import (
	"testing"
	"time"

	"token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransactionListParams_Matches(t *testing.T) {
	now := time.Now().UTC()
	owner := uuid.New()
	entry := domain.NewTransactionEntry(owner, domain.EntryKindTokenLoss, decimal.NewFromInt(25), "lost bronze", now)

	other := uuid.New()
	loss := domain.EntryKindTokenLoss
	purchase := domain.EntryKindTokenPurchase
	earlier := now.Add(-time.Hour)
	later := now.Add(time.Hour)

	tests := []struct {
		name   string
		params TransactionListParams
		want   bool
	}{
		{"no filters", TransactionListParams{}, true},
		{"same account", TransactionListParams{AccountID: &owner}, true},
		{"other account", TransactionListParams{AccountID: &other}, false},
		{"same kind", TransactionListParams{Kind: &loss}, true},
		{"other kind", TransactionListParams{Kind: &purchase}, false},
		{"since before entry", TransactionListParams{Since: &earlier}, true},
		{"since exactly at entry", TransactionListParams{Since: &now}, true},
		{"since after entry", TransactionListParams{Since: &later}, false},
		{"all filters", TransactionListParams{AccountID: &owner, Kind: &loss, Since: &earlier}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.params.Matches(entry))
		})
	}
}
