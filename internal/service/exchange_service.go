package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ExchangeServiceImpl implements ports.ExchangeService.
type ExchangeServiceImpl struct {
	store   ports.RecordStore
	runner  *storeRunner
	encSvc  ports.EncryptionService
	timeout time.Duration
	log     zerolog.Logger
}

// NewExchangeService creates a new ExchangeServiceImpl.
func NewExchangeService(store ports.RecordStore, encSvc ports.EncryptionService, cfg EngineConfig, log zerolog.Logger) *ExchangeServiceImpl {
	return &ExchangeServiceImpl{
		store:   store,
		runner:  newStoreRunner(store, cfg.MaxRetries, cfg.StoreTimeout, log),
		encSvc:  encSvc,
		timeout: cfg.StoreTimeout,
		log:     log,
	}
}

// ListExchangeRequests returns the operator queue with destinations decrypted.
func (s *ExchangeServiceImpl) ListExchangeRequests(ctx context.Context, operatorID uuid.UUID, params ports.ExchangeListParams) ([]domain.ExchangeRequest, error) {
	if err := s.requireOperator(ctx, operatorID); err != nil {
		return nil, err
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	var match func(ports.Record) bool
	if params.Status != nil {
		status := *params.Status
		match = whereDecoded(func(r *domain.ExchangeRequest) bool { return r.Status == status })
	}
	recs, err := s.store.List(ctx, ports.KindExchange, match)
	if err != nil {
		return nil, storeError("list_exchanges", err)
	}

	out := make([]domain.ExchangeRequest, 0, len(recs))
	for _, rec := range recs {
		var req domain.ExchangeRequest
		if err := json.Unmarshal(rec.Data, &req); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("decode exchange request %s: %w", rec.ID, err))
		}
		dest, err := s.encSvc.Decrypt(req.PayoutDestination)
		if err != nil {
			return nil, apperror.ErrEncryptionFailure(fmt.Errorf("decrypt destination: %w", err))
		}
		req.PayoutDestination = dest
		out = append(out, req)
	}

	sortExchangeRequests(out, params.Sort)
	return out, nil
}

func sortExchangeRequests(reqs []domain.ExchangeRequest, order ports.ExchangeSort) {
	var less func(a, b domain.ExchangeRequest) bool
	switch order {
	case ports.SortOldest:
		less = func(a, b domain.ExchangeRequest) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case ports.SortValueHigh:
		less = func(a, b domain.ExchangeRequest) bool { return a.PayoutAmount.GreaterThan(b.PayoutAmount) }
	case ports.SortValueLow:
		less = func(a, b domain.ExchangeRequest) bool { return a.PayoutAmount.LessThan(b.PayoutAmount) }
	default:
		less = func(a, b domain.ExchangeRequest) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(reqs, func(i, j int) bool { return less(reqs[i], reqs[j]) })
}

// Approve settles a pending request: the escrowed points are consumed and a
// POINT_EXCHANGE entry records the payout.
func (s *ExchangeServiceImpl) Approve(ctx context.Context, operatorID, requestID uuid.UUID) (*domain.ExchangeRequest, error) {
	req, err := s.decide(ctx, operatorID, requestID, domain.ExchangeStatusApproved,
		func(ctx context.Context, uow *unitOfWork, req *domain.ExchangeRequest, now time.Time) error {
			entry := domain.NewTransactionEntry(req.AccountID, domain.EntryKindPointExchange, req.PayoutAmount,
				fmt.Sprintf("Exchanged %d points", req.PointsRequested), now)
			if err := uow.appendEntry(entry); err != nil {
				return err
			}
			return uow.appendAlert(domain.NewAlert(req.AccountID, domain.AlertKindExchangeApproved,
				fmt.Sprintf("Your exchange of %d points was approved. Payout: %s.", req.PointsRequested, req.PayoutAmount.StringFixed(2)), now))
		})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("request_id", requestID.String()).
		Str("operator_id", operatorID.String()).
		Str("payout", req.PayoutAmount.String()).
		Msg("exchange request approved")
	return req, nil
}

// Deny rejects a pending request and returns the escrowed points.
func (s *ExchangeServiceImpl) Deny(ctx context.Context, operatorID, requestID uuid.UUID) (*domain.ExchangeRequest, error) {
	req, err := s.decide(ctx, operatorID, requestID, domain.ExchangeStatusDenied,
		func(ctx context.Context, uow *unitOfWork, req *domain.ExchangeRequest, now time.Time) error {
			acc, err := uow.loadAccount(ctx, req.AccountID)
			if err != nil {
				return err
			}
			acc.AddPoints(req.PointsRequested)
			if err := uow.saveAccount(acc, now); err != nil {
				return err
			}
			return uow.appendAlert(domain.NewAlert(req.AccountID, domain.AlertKindPixInvalid,
				fmt.Sprintf("Your exchange of %d points was denied: invalid Pix key. The points were returned to your balance.", req.PointsRequested), now))
		})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("request_id", requestID.String()).
		Str("operator_id", operatorID.String()).
		Int64("points_restored", req.PointsRequested).
		Msg("exchange request denied")
	return req, nil
}

// decide performs the guarded Pending -> to transition and lets effects stage
// the side effects in the same unit of work.
func (s *ExchangeServiceImpl) decide(
	ctx context.Context,
	operatorID, requestID uuid.UUID,
	to domain.ExchangeStatus,
	effects func(ctx context.Context, uow *unitOfWork, req *domain.ExchangeRequest, now time.Time) error,
) (*domain.ExchangeRequest, error) {
	if err := s.requireOperator(ctx, operatorID); err != nil {
		return nil, err
	}

	var decided *domain.ExchangeRequest
	err := s.runner.run(ctx, "decide_exchange", func(ctx context.Context, uow *unitOfWork) error {
		now := time.Now().UTC()

		req, err := uow.loadExchange(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.Decide(to, operatorID, now) {
			return apperror.ErrInvalidTransition(string(req.Status))
		}
		if err := uow.update(ports.KindExchange, req.ID.String(), req); err != nil {
			return err
		}
		if err := effects(ctx, uow, req, now); err != nil {
			return err
		}
		decided = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	dest, err := s.encSvc.Decrypt(decided.PayoutDestination)
	if err != nil {
		s.log.Warn().Err(err).Str("request_id", requestID.String()).Msg("failed to decrypt payout destination")
		dest = ""
	}
	decided.PayoutDestination = dest
	return decided, nil
}

func (s *ExchangeServiceImpl) requireOperator(ctx context.Context, operatorID uuid.UUID) error {
	var op *domain.Account
	err := s.runner.run(ctx, "load_operator", func(ctx context.Context, uow *unitOfWork) error {
		var err error
		op, err = uow.loadAccount(ctx, operatorID)
		return err
	})
	if err != nil {
		if apperror.HasCode(err, apperror.CodeNotFound) {
			return apperror.ErrForbidden()
		}
		return err
	}
	if !op.IsAdmin {
		return apperror.ErrForbidden()
	}
	return nil
}

// PendingPayoutTotal sums the payout amount of every pending request.
func PendingPayoutTotal(reqs []domain.ExchangeRequest) decimal.Decimal {
	total := decimal.Zero
	for _, r := range reqs {
		if r.Status == domain.ExchangeStatusPending {
			total = total.Add(r.PayoutAmount)
		}
	}
	return total
}
