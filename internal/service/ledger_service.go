package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const idempotencyTTL = 24 * time.Hour

// EngineConfig holds the tunables shared by the ledger, exchange and alert
// services.
type EngineConfig struct {
	PointsMultiplier decimal.Decimal
	ExchangeRate     decimal.Decimal
	MaxRetries       int
	StoreTimeout     time.Duration
}

// DefaultEngineConfig mirrors the config package defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PointsMultiplier: decimal.RequireFromString("1.25"),
		ExchangeRate:     decimal.RequireFromString("0.5"),
		MaxRetries:       5,
		StoreTimeout:     5 * time.Second,
	}
}

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	store      ports.RecordStore
	runner     *storeRunner
	catalog    ports.TokenCatalog
	idempCache ports.IdempotencyCache // optional
	encSvc     ports.EncryptionService
	rng        ports.Random
	cfg        EngineConfig
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl. idempCache may be nil, in
// which case payment events are deduplicated by the record store alone.
func NewLedgerService(
	store ports.RecordStore,
	catalog ports.TokenCatalog,
	idempCache ports.IdempotencyCache,
	encSvc ports.EncryptionService,
	rng ports.Random,
	cfg EngineConfig,
	log zerolog.Logger,
) *LedgerServiceImpl {
	if rng == nil {
		rng = DefaultRandom()
	}
	return &LedgerServiceImpl{
		store:      store,
		runner:     newStoreRunner(store, cfg.MaxRetries, cfg.StoreTimeout, log),
		catalog:    catalog,
		idempCache: idempCache,
		encSvc:     encSvc,
		rng:        rng,
		cfg:        cfg,
		log:        log,
	}
}

// PurchaseCredits adds amount to the account's credits and records a
// CREDIT_PURCHASE entry.
func (s *LedgerServiceImpl) PurchaseCredits(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*domain.TransactionEntry, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	var entry *domain.TransactionEntry
	err := s.runner.run(ctx, "purchase_credits", func(ctx context.Context, uow *unitOfWork) error {
		var err error
		entry, err = stageCreditPurchase(ctx, uow, accountID, amount, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Str("amount", amount.String()).
		Str("entry_id", entry.ID.String()).
		Msg("credits purchased")

	return entry, nil
}

func stageCreditPurchase(ctx context.Context, uow *unitOfWork, accountID uuid.UUID, amount decimal.Decimal, now time.Time) (*domain.TransactionEntry, error) {
	acc, err := uow.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	acc.AddCredits(amount)
	if err := uow.saveAccount(acc, now); err != nil {
		return nil, err
	}

	entry := domain.NewTransactionEntry(accountID, domain.EntryKindCreditPurchase, amount,
		fmt.Sprintf("Purchased %s credits", amount.String()), now)
	if err := uow.appendEntry(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// HandlePaymentSucceeded credits the account named by a provider event. A
// redelivered event returns the entry written for the first delivery.
func (s *LedgerServiceImpl) HandlePaymentSucceeded(ctx context.Context, event ports.PaymentSucceeded) (*domain.TransactionEntry, error) {
	if strings.TrimSpace(event.EventID) == "" {
		return nil, apperror.Validation("event_id is required")
	}
	if !event.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	idempKey := domain.BuildPaymentIdempotencyKey(event.EventID)

	// Layer 1: Redis
	if s.idempCache != nil {
		cached, err := s.idempCache.Get(ctx, idempKey)
		if err != nil {
			s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency check failed, falling through to store")
		}
		if cached != nil {
			return unmarshalCachedEntry(cached)
		}
	}

	// Layer 2: payment event record, created in the same commit as the credit
	var (
		entry     *domain.TransactionEntry
		duplicate bool
	)
	err := s.runner.run(ctx, "payment_succeeded", func(ctx context.Context, uow *unitOfWork) error {
		duplicate = false

		var seen domain.PaymentEvent
		err := uow.load(ctx, ports.KindPaymentEvent, event.EventID, &seen)
		switch {
		case err == nil:
			duplicate = true
			var original domain.TransactionEntry
			if err := uow.load(ctx, ports.KindTransaction, seen.TransactionID.String(), &original); err != nil {
				return fmt.Errorf("load original entry: %w", err)
			}
			entry = &original
			return nil
		case !errors.Is(err, ports.ErrRecordNotFound):
			return err
		}

		now := time.Now().UTC()
		entry, err = stageCreditPurchase(ctx, uow, event.AccountID, event.Amount, now)
		if err != nil {
			return err
		}
		return uow.create(ports.KindPaymentEvent, event.EventID, &domain.PaymentEvent{
			EventID:       event.EventID,
			AccountID:     event.AccountID,
			Amount:        event.Amount,
			TransactionID: entry.ID,
			ReceivedAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.idempCache != nil {
		if respJSON, err := json.Marshal(entry); err == nil {
			if err := s.idempCache.Set(ctx, idempKey, respJSON, idempotencyTTL); err != nil {
				s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache idempotency in redis")
			}
		}
	}

	if duplicate {
		s.log.Info().Str("event_id", event.EventID).Msg("duplicate payment event ignored")
	} else {
		s.log.Info().
			Str("event_id", event.EventID).
			Str("account_id", event.AccountID.String()).
			Str("amount", event.Amount.String()).
			Msg("payment event credited")
	}
	return entry, nil
}

func unmarshalCachedEntry(data []byte) (*domain.TransactionEntry, error) {
	var entry domain.TransactionEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached entry: %w", err))
	}
	return &entry, nil
}

// PurchaseToken spends credits on one unit of tokenID, then redistributes one
// unit held by another account, chosen by lottery, in the same commit.
func (s *LedgerServiceImpl) PurchaseToken(ctx context.Context, accountID uuid.UUID, tokenID string) (*ports.TokenPurchaseResult, error) {
	token, ok := s.catalog.Get(tokenID)
	if !ok {
		return nil, apperror.ErrNotFound("Token")
	}

	var result *ports.TokenPurchaseResult
	err := s.runner.run(ctx, "purchase_token", func(ctx context.Context, uow *unitOfWork) error {
		now := time.Now().UTC()
		result = nil

		buyer, err := uow.loadAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if !buyer.DebitCredits(token.Price) {
			return apperror.ErrInsufficientCredits()
		}
		earned := token.PurchasePoints(s.cfg.PointsMultiplier)
		buyer.AddPoints(earned)
		buyer.AddHolding(token.ID)
		if err := uow.saveAccount(buyer, now); err != nil {
			return err
		}

		entry := domain.NewTransactionEntry(accountID, domain.EntryKindTokenPurchase, token.Price,
			fmt.Sprintf("Purchased %s", token.DisplayName), now)
		if err := uow.appendEntry(entry); err != nil {
			return err
		}

		result = &ports.TokenPurchaseResult{Entry: entry, Account: buyer, PointsEarned: earned}

		candidates, err := s.lotteryCandidates(ctx, token.ID)
		if err != nil {
			return err
		}
		draw := Draw(accountID, token, candidates, s.rng)
		if draw == nil {
			return nil
		}

		outcome, err := s.stageRedistribution(ctx, uow, token, draw, now)
		if err != nil {
			return err
		}
		result.Lottery = outcome
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := s.log.Info().
		Str("account_id", accountID.String()).
		Str("token_id", token.ID).
		Int64("points_earned", result.PointsEarned)
	if result.Lottery != nil {
		ev = ev.Str("lottery_winner", result.Lottery.WinnerID.String())
	}
	ev.Msg("token purchased")

	return result, nil
}

func (s *LedgerServiceImpl) lotteryCandidates(ctx context.Context, tokenID string) ([]LotteryCandidate, error) {
	holds := whereDecoded(func(acc *domain.Account) bool { return acc.HoldingOf(tokenID) >= 1 })
	recs, err := s.store.List(ctx, ports.KindAccount, holds)
	if err != nil {
		return nil, fmt.Errorf("list holders: %w", err)
	}
	candidates := make([]LotteryCandidate, 0, len(recs))
	for _, rec := range recs {
		var acc domain.Account
		if err := json.Unmarshal(rec.Data, &acc); err != nil {
			return nil, fmt.Errorf("decode account %s: %w", rec.ID, err)
		}
		candidates = append(candidates, LotteryCandidate{AccountID: acc.ID, Name: acc.DisplayName, Quantity: acc.HoldingOf(tokenID)})
	}
	return candidates, nil
}

// stageRedistribution re-reads the winner inside the unit of work so the
// commit fails if the winner changed after candidate enumeration. A winner
// who no longer holds the token is skipped.
func (s *LedgerServiceImpl) stageRedistribution(ctx context.Context, uow *unitOfWork, token domain.TokenDefinition, draw *LotteryDraw, now time.Time) (*ports.LotteryOutcome, error) {
	winner, err := uow.loadAccount(ctx, draw.Winner.AccountID)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeNotFound) {
			s.log.Warn().Str("winner_id", draw.Winner.AccountID.String()).Msg("lottery winner vanished, skipping transfer")
			return nil, nil
		}
		return nil, err
	}
	if !winner.RemoveHolding(token.ID) {
		s.log.Warn().
			Str("winner_id", winner.ID.String()).
			Str("token_id", token.ID).
			Msg("lottery winner no longer holds token, skipping transfer")
		return nil, nil
	}
	winner.AddPoints(draw.CompensationPoints)
	if err := uow.saveAccount(winner, now); err != nil {
		return nil, err
	}

	loss := domain.NewTransactionEntry(winner.ID, domain.EntryKindTokenLoss, decimal.NewFromInt(draw.CompensationPoints),
		fmt.Sprintf("Lost %s in lottery", token.DisplayName), now)
	if err := uow.appendEntry(loss); err != nil {
		return nil, err
	}

	alert := domain.NewAlert(winner.ID, domain.AlertKindTokenSold,
		fmt.Sprintf("Your %s was sold. You received %d points as compensation.", token.DisplayName, draw.CompensationPoints), now)
	if err := uow.appendAlert(alert); err != nil {
		return nil, err
	}

	return &ports.LotteryOutcome{
		WinnerID:           winner.ID,
		WinnerName:         winner.DisplayName,
		CompensationPoints: draw.CompensationPoints,
	}, nil
}

// RedeemPoints escrows points and opens a pending exchange request. The
// returned request carries the destination in clear text; the stored copy is
// encrypted.
func (s *LedgerServiceImpl) RedeemPoints(ctx context.Context, accountID uuid.UUID, points int64, destination string) (*domain.ExchangeRequest, error) {
	if points <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, apperror.ErrInvalidDestination()
	}

	encDest, err := s.encSvc.Encrypt(destination)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt destination: %w", err))
	}

	var req *domain.ExchangeRequest
	err = s.runner.run(ctx, "redeem_points", func(ctx context.Context, uow *unitOfWork) error {
		now := time.Now().UTC()

		acc, err := uow.loadAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if !acc.DebitPoints(points) {
			return apperror.ErrInsufficientPoints()
		}
		if err := uow.saveAccount(acc, now); err != nil {
			return err
		}

		req = &domain.ExchangeRequest{
			ID:                uuid.New(),
			AccountID:         accountID,
			AccountName:       acc.DisplayName,
			PointsRequested:   points,
			PayoutAmount:      domain.PayoutFor(points, s.cfg.ExchangeRate),
			PayoutDestination: encDest,
			Status:            domain.ExchangeStatusPending,
			CreatedAt:         now,
		}
		return uow.create(ports.KindExchange, req.ID.String(), req)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Str("request_id", req.ID.String()).
		Int64("points", points).
		Msg("exchange request created")

	out := *req
	out.PayoutDestination = destination
	return &out, nil
}

// GetAccount returns the current account state.
func (s *LedgerServiceImpl) GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	var acc *domain.Account
	err := s.runner.run(ctx, "get_account", func(ctx context.Context, uow *unitOfWork) error {
		var err error
		acc, err = uow.loadAccount(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// ListTransactions returns entries matching params, newest first.
func (s *LedgerServiceImpl) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.TransactionEntry, error) {
	ctx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	recs, err := s.store.List(ctx, ports.KindTransaction, whereDecoded(params.Matches))
	if err != nil {
		return nil, storeError("list_transactions", err)
	}

	entries := make([]domain.TransactionEntry, 0, len(recs))
	for _, rec := range recs {
		var e domain.TransactionEntry
		if err := json.Unmarshal(rec.Data, &e); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("decode entry %s: %w", rec.ID, err))
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}
