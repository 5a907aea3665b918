package handler

import (
	"token-ledger/internal/adapter/http/dto"
	"token-ledger/internal/adapter/http/middleware"
	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/pkg/apperror"
	"token-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler serves the caller's own account, history and statistics.
type AccountHandler struct {
	ledger    ports.LedgerService
	reporting ports.ReportingService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(ledger ports.LedgerService, reporting ports.ReportingService) *AccountHandler {
	return &AccountHandler{ledger: ledger, reporting: reporting}
}

// currentAccount returns the JWT subject, writing a 401 when it is missing.
func currentAccount(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return id, true
}

// Me handles GET /api/v1/accounts/me.
func (h *AccountHandler) Me(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	acc, err := h.ledger.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAccountResponse(acc))
}

// PurchaseCredits handles POST /api/v1/accounts/me/credits.
func (h *AccountHandler) PurchaseCredits(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var req dto.PurchaseCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	entry, err := h.ledger.PurchaseCredits(c.Request.Context(), accountID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewTransactionResponse(entry))
}

// Transactions handles GET /api/v1/accounts/me/transactions?kind=&period=.
func (h *AccountHandler) Transactions(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	params := ports.TransactionListParams{AccountID: &accountID}
	if k := c.Query("kind"); k != "" {
		kind := domain.EntryKind(k)
		if !kind.Valid() {
			response.Error(c, apperror.Validation("invalid kind"))
			return
		}
		params.Kind = &kind
	}
	since, err := h.reporting.PeriodStart(c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	params.Since = since

	entries, err := h.ledger.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewTransactionListResponse(entries))
}

// Stats handles GET /api/v1/accounts/me/stats?period=.
func (h *AccountHandler) Stats(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	stats, err := h.reporting.GetStats(c.Request.Context(), &accountID, c.DefaultQuery("period", "all"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewStatsResponse(stats))
}
