package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"token-ledger/internal/adapter/storage/memory"
	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fixedRandom always picks index i (modulo n).
type fixedRandom int

func (f fixedRandom) IntN(n int) int { return int(f) % n }

// testEngine wires the ledger, exchange and alert services over one
// in-memory store.
type testEngine struct {
	store    *memory.Store
	enc      *AESEncryptionService
	ledger   *LedgerServiceImpl
	exchange *ExchangeServiceImpl
	alerts   *AlertServiceImpl
}

func newTestEngine(t *testing.T, rng ports.Random) *testEngine {
	t.Helper()
	enc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	store := memory.NewStore()
	cfg := DefaultEngineConfig()
	log := zerolog.Nop()
	return &testEngine{
		store:    store,
		enc:      enc,
		ledger:   NewLedgerService(store, domain.DefaultCatalog(), nil, enc, rng, cfg, log),
		exchange: NewExchangeService(store, enc, cfg, log),
		alerts:   NewAlertService(store, cfg, log),
	}
}

func (e *testEngine) seedAccount(t *testing.T, name string, mutate func(a *domain.Account)) *domain.Account {
	t.Helper()
	now := time.Now().UTC()
	acc := &domain.Account{
		ID:          uuid.New(),
		Email:       name + "@example.com",
		DisplayName: name,
		Credits:     decimal.Zero,
		Holdings:    map[string]int64{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if mutate != nil {
		mutate(acc)
	}
	data, err := json.Marshal(acc)
	require.NoError(t, err)
	_, err = e.store.Put(context.Background(), ports.KindAccount, acc.ID.String(), data, ports.VersionAbsent)
	require.NoError(t, err)
	return acc
}

func (e *testEngine) seedOperator(t *testing.T) *domain.Account {
	return e.seedAccount(t, "operator", func(a *domain.Account) { a.IsAdmin = true })
}

func (e *testEngine) account(t *testing.T, id uuid.UUID) *domain.Account {
	t.Helper()
	acc, err := e.ledger.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return acc
}

func (e *testEngine) entriesOf(t *testing.T, id uuid.UUID) []domain.TransactionEntry {
	t.Helper()
	entries, err := e.ledger.ListTransactions(context.Background(), ports.TransactionListParams{AccountID: &id})
	require.NoError(t, err)
	return entries
}

func (e *testEngine) unreadOf(t *testing.T, id uuid.UUID) []domain.Alert {
	t.Helper()
	alerts, err := e.alerts.ListUnread(context.Background(), id)
	require.NoError(t, err)
	return alerts
}

func (e *testEngine) exchangeCount(t *testing.T) int {
	t.Helper()
	recs, err := e.store.List(context.Background(), ports.KindExchange, nil)
	require.NoError(t, err)
	return len(recs)
}

func (e *testEngine) totalHolding(t *testing.T, tokenID string) int64 {
	t.Helper()
	recs, err := e.store.List(context.Background(), ports.KindAccount, nil)
	require.NoError(t, err)
	var total int64
	for _, rec := range recs {
		var acc domain.Account
		require.NoError(t, json.Unmarshal(rec.Data, &acc))
		require.GreaterOrEqual(t, acc.HoldingOf(tokenID), int64(0))
		total += acc.HoldingOf(tokenID)
	}
	return total
}

func credits(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
