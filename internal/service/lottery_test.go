package service

import (
	"math/rand/v2"
	"testing"

	"token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gold = domain.TokenDefinition{ID: "gold", DisplayName: "Gold Token", Price: decimal.NewFromInt(100)}

func candidate(qty int64) LotteryCandidate {
	return LotteryCandidate{AccountID: uuid.New(), Quantity: qty}
}

func TestSelectWinner(t *testing.T) {
	a, b, c := candidate(1), candidate(0), candidate(4)

	tests := []struct {
		name       string
		candidates []LotteryCandidate
		rng        fixedRandom
		want       *LotteryCandidate
	}{
		{"empty", nil, 0, nil},
		{"nobody eligible", []LotteryCandidate{b}, 0, nil},
		{"first eligible", []LotteryCandidate{a, b, c}, 0, &a},
		{"zero quantity skipped", []LotteryCandidate{a, b, c}, 1, &c},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectWinner(tt.candidates, tt.rng)
			if tt.want == nil {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want.AccountID, got.AccountID)
		})
	}
}

func TestSelectWinner_Uniform(t *testing.T) {
	// one unit and many units weigh the same: the draw is per account
	candidates := []LotteryCandidate{candidate(1), candidate(10), candidate(3), candidate(1)}
	rng := rand.New(rand.NewPCG(7, 11))

	const draws = 40000
	counts := map[uuid.UUID]int{}
	for i := 0; i < draws; i++ {
		w, ok := SelectWinner(candidates, rng)
		require.True(t, ok)
		counts[w.AccountID]++
	}

	expected := draws / len(candidates)
	for _, c := range candidates {
		assert.InDelta(t, expected, counts[c.AccountID], float64(expected)*0.05)
	}
}

func TestDraw(t *testing.T) {
	buyer := candidate(2)
	other := candidate(1)

	t.Run("buyer excluded", func(t *testing.T) {
		assert.Nil(t, Draw(buyer.AccountID, gold, []LotteryCandidate{buyer}, fixedRandom(0)))
	})

	t.Run("first holder", func(t *testing.T) {
		assert.Nil(t, Draw(buyer.AccountID, gold, nil, fixedRandom(0)))
	})

	t.Run("other holder wins price as points", func(t *testing.T) {
		d := Draw(buyer.AccountID, gold, []LotteryCandidate{buyer, other}, fixedRandom(0))
		require.NotNil(t, d)
		assert.Equal(t, other.AccountID, d.Winner.AccountID)
		assert.Equal(t, int64(100), d.CompensationPoints)
	})
}

func TestDefaultRandom_InRange(t *testing.T) {
	rng := DefaultRandom()
	for i := 0; i < 100; i++ {
		n := rng.IntN(3)
		assert.GreaterOrEqual(t, n, 0)
		assert.Less(t, n, 3)
	}
}
