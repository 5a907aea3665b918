package handler

import (
	"context"

	"token-ledger/internal/adapter/http/dto"
	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/internal/service"
	"token-ledger/pkg/apperror"
	"token-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ExchangeHandler serves point redemption and the operator review queue.
type ExchangeHandler struct {
	ledger    ports.LedgerService
	exchanges ports.ExchangeService
}

// NewExchangeHandler creates a new ExchangeHandler.
func NewExchangeHandler(ledger ports.LedgerService, exchanges ports.ExchangeService) *ExchangeHandler {
	return &ExchangeHandler{ledger: ledger, exchanges: exchanges}
}

// Redeem handles POST /api/v1/exchanges.
func (h *ExchangeHandler) Redeem(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var req dto.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	exReq, err := h.ledger.RedeemPoints(c.Request.Context(), accountID, req.Points, req.PayoutDestination)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewExchangeResponse(exReq))
}

// List handles GET /api/v1/admin/exchanges?status=&sort=.
func (h *ExchangeHandler) List(c *gin.Context) {
	operatorID, ok := currentAccount(c)
	if !ok {
		return
	}

	var params ports.ExchangeListParams
	if s := c.Query("status"); s != "" {
		status := domain.ExchangeStatus(s)
		if !status.Valid() {
			response.Error(c, apperror.Validation("invalid status: must be PENDING, APPROVED, or DENIED"))
			return
		}
		params.Status = &status
	}
	switch sort := ports.ExchangeSort(c.Query("sort")); sort {
	case "", ports.SortNewest, ports.SortOldest, ports.SortValueHigh, ports.SortValueLow:
		params.Sort = sort
	default:
		response.Error(c, apperror.Validation("invalid sort: must be newest, oldest, value_high, or value_low"))
		return
	}

	reqs, err := h.exchanges.ListExchangeRequests(c.Request.Context(), operatorID, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.ExchangeResponse, 0, len(reqs))
	for i := range reqs {
		items = append(items, dto.NewExchangeResponse(&reqs[i]))
	}
	response.OK(c, dto.ExchangeListResponse{
		Items:              items,
		PendingPayoutTotal: service.PendingPayoutTotal(reqs).StringFixed(2),
	})
}

// Approve handles POST /api/v1/admin/exchanges/:request_id/approve.
func (h *ExchangeHandler) Approve(c *gin.Context) {
	h.decide(c, h.exchanges.Approve)
}

// Deny handles POST /api/v1/admin/exchanges/:request_id/deny.
func (h *ExchangeHandler) Deny(c *gin.Context) {
	h.decide(c, h.exchanges.Deny)
}

func (h *ExchangeHandler) decide(c *gin.Context, fn func(ctx context.Context, operatorID, requestID uuid.UUID) (*domain.ExchangeRequest, error)) {
	operatorID, ok := currentAccount(c)
	if !ok {
		return
	}
	requestID, err := uuid.Parse(c.Param("request_id"))
	if err != nil {
		response.Error(c, apperror.ErrNotFound("Exchange request"))
		return
	}

	req, err := fn(c.Request.Context(), operatorID, requestID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewExchangeResponse(req))
}
