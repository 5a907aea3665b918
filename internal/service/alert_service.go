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
)

// AlertServiceImpl implements ports.AlertService.
type AlertServiceImpl struct {
	store   ports.RecordStore
	runner  *storeRunner
	timeout time.Duration
	log     zerolog.Logger
}

// NewAlertService creates a new AlertServiceImpl.
func NewAlertService(store ports.RecordStore, cfg EngineConfig, log zerolog.Logger) *AlertServiceImpl {
	return &AlertServiceImpl{
		store:   store,
		runner:  newStoreRunner(store, cfg.MaxRetries, cfg.StoreTimeout, log),
		timeout: cfg.StoreTimeout,
		log:     log,
	}
}

// Raise creates an unread alert for an existing account.
func (s *AlertServiceImpl) Raise(ctx context.Context, accountID uuid.UUID, kind domain.AlertKind, message string) (*domain.Alert, error) {
	var alert *domain.Alert
	err := s.runner.run(ctx, "raise_alert", func(ctx context.Context, uow *unitOfWork) error {
		if _, err := uow.loadAccount(ctx, accountID); err != nil {
			return err
		}
		alert = domain.NewAlert(accountID, kind, message, time.Now().UTC())
		return uow.appendAlert(alert)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("account_id", accountID.String()).Str("kind", string(kind)).Msg("alert raised")
	return alert, nil
}

// MarkRead flips one alert to read. Alerts owned by another account are
// reported as not found.
func (s *AlertServiceImpl) MarkRead(ctx context.Context, accountID, alertID uuid.UUID) error {
	return s.runner.run(ctx, "mark_alert_read", func(ctx context.Context, uow *unitOfWork) error {
		var alert domain.Alert
		if err := uow.load(ctx, ports.KindAlert, alertID.String(), &alert); err != nil {
			return notFoundAs(err, "Alert")
		}
		if alert.AccountID != accountID {
			return apperror.ErrNotFound("Alert")
		}
		if alert.IsRead {
			return nil
		}
		alert.IsRead = true
		return uow.update(ports.KindAlert, alert.ID.String(), &alert)
	})
}

// MarkAllRead flips every unread alert of the account and returns how many
// changed.
func (s *AlertServiceImpl) MarkAllRead(ctx context.Context, accountID uuid.UUID) (int, error) {
	var count int
	err := s.runner.run(ctx, "mark_all_alerts_read", func(ctx context.Context, uow *unitOfWork) error {
		count = 0
		recs, err := s.store.List(ctx, ports.KindAlert, unreadOf(accountID))
		if err != nil {
			return err
		}
		for _, rec := range recs {
			var alert domain.Alert
			if err := uow.track(rec, &alert); err != nil {
				return err
			}
			alert.IsRead = true
			if err := uow.update(ports.KindAlert, alert.ID.String(), &alert); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListUnread returns the account's unread alerts, oldest first.
func (s *AlertServiceImpl) ListUnread(ctx context.Context, accountID uuid.UUID) ([]domain.Alert, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	recs, err := s.store.List(ctx, ports.KindAlert, unreadOf(accountID))
	if err != nil {
		return nil, storeError("list_alerts", err)
	}

	out := make([]domain.Alert, 0, len(recs))
	for _, rec := range recs {
		var alert domain.Alert
		if err := json.Unmarshal(rec.Data, &alert); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("decode alert %s: %w", rec.ID, err))
		}
		out = append(out, alert)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func unreadOf(accountID uuid.UUID) func(ports.Record) bool {
	return whereDecoded(func(a *domain.Alert) bool { return a.AccountID == accountID && !a.IsRead })
}
