package service

import (
	"context"
	"time"

	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// reportingService implements ports.ReportingService on top of the ledger's
// entry log.
type reportingService struct {
	ledger ports.LedgerService
	now    func() time.Time
}

// NewReportingService creates a new reporting service.
func NewReportingService(ledger ports.LedgerService) ports.ReportingService {
	return &reportingService{ledger: ledger, now: time.Now}
}

// PeriodStart maps day, week, month or all to the earliest timestamp to
// include. "all" and "" return nil.
func (s *reportingService) PeriodStart(period string) (*time.Time, error) {
	var t time.Time
	now := s.now().UTC()

	switch period {
	case "day":
		t = now.AddDate(0, 0, -1)
	case "week":
		t = now.AddDate(0, 0, -7)
	case "month":
		t = now.AddDate(0, -1, 0)
	case "all", "":
		return nil, nil
	default:
		return nil, apperror.Validation("invalid period: must be day, week, month, or all")
	}
	return &t, nil
}

// GetStats sums entries per kind. A nil accountID covers every account.
func (s *reportingService) GetStats(ctx context.Context, accountID *uuid.UUID, period string) (*ports.LedgerStats, error) {
	since, err := s.PeriodStart(period)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledger.ListTransactions(ctx, ports.TransactionListParams{AccountID: accountID, Since: since})
	if err != nil {
		return nil, err
	}

	if period == "" {
		period = "all"
	}
	stats := &ports.LedgerStats{
		Period:  period,
		Since:   since,
		Entries: len(entries),
		ByKind:  make(map[domain.EntryKind]ports.KindTotal),
	}
	for _, e := range entries {
		total := stats.ByKind[e.Kind]
		if total.Count == 0 {
			total.Amount = decimal.Zero
		}
		total.Count++
		total.Amount = total.Amount.Add(e.Amount)
		stats.ByKind[e.Kind] = total
	}
	return stats, nil
}
