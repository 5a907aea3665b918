package handler

import (
	"token-ledger/internal/adapter/http/dto"
	"token-ledger/internal/core/ports"
	"token-ledger/pkg/apperror"
	"token-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler receives payment provider callbacks. Signature checks run
// in middleware.ProviderSignature before it.
type PaymentHandler struct {
	ledger ports.LedgerService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(ledger ports.LedgerService) *PaymentHandler {
	return &PaymentHandler{ledger: ledger}
}

// PaymentSucceeded handles POST /api/v1/webhooks/payments. Redeliveries of
// the same event_id return the original entry with 200.
func (h *PaymentHandler) PaymentSucceeded(c *gin.Context) {
	var req dto.PaymentSucceededRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid account_id"))
		return
	}

	entry, err := h.ledger.HandlePaymentSucceeded(c.Request.Context(), ports.PaymentSucceeded{
		EventID:   req.EventID,
		AccountID: accountID,
		Amount:    req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewTransactionResponse(entry))
}
