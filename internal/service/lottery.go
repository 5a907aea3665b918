package service

import (
	"math/rand/v2"

	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"

	"github.com/google/uuid"
)

// LotteryCandidate is an account that may lose one unit of the purchased token.
type LotteryCandidate struct {
	AccountID uuid.UUID
	Name      string
	Quantity  int64
}

// LotteryDraw is the redistribution chosen for one purchase.
type LotteryDraw struct {
	Winner             LotteryCandidate
	CompensationPoints int64
}

// SelectWinner picks uniformly among candidates holding at least one unit.
// It returns false when nobody is eligible.
func SelectWinner(candidates []LotteryCandidate, rng ports.Random) (LotteryCandidate, bool) {
	eligible := make([]LotteryCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Quantity >= 1 {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return LotteryCandidate{}, false
	}
	return eligible[rng.IntN(len(eligible))], true
}

// Draw runs the lottery for a purchase of token by buyerID. The buyer never
// takes part. It returns nil if no other account holds the token.
func Draw(buyerID uuid.UUID, token domain.TokenDefinition, candidates []LotteryCandidate, rng ports.Random) *LotteryDraw {
	others := make([]LotteryCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.AccountID != buyerID {
			others = append(others, c)
		}
	}
	winner, ok := SelectWinner(others, rng)
	if !ok {
		return nil
	}
	return &LotteryDraw{Winner: winner, CompensationPoints: token.CompensationPoints()}
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int { return rand.IntN(n) }

// DefaultRandom is the process-wide math/rand/v2 source.
func DefaultRandom() ports.Random { return globalRandom{} }
