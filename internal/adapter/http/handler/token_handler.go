package handler

import (
	"token-ledger/internal/adapter/http/dto"
	"token-ledger/internal/core/ports"
	"token-ledger/pkg/apperror"
	"token-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// TokenHandler serves the token catalog and purchases.
type TokenHandler struct {
	ledger     ports.LedgerService
	catalog    ports.TokenCatalog
	multiplier decimal.Decimal
}

// NewTokenHandler creates a new TokenHandler. multiplier is only used to
// display the points a purchase earns.
func NewTokenHandler(ledger ports.LedgerService, catalog ports.TokenCatalog, multiplier decimal.Decimal) *TokenHandler {
	return &TokenHandler{ledger: ledger, catalog: catalog, multiplier: multiplier}
}

// List handles GET /api/v1/tokens.
func (h *TokenHandler) List(c *gin.Context) {
	defs := h.catalog.List()
	items := make([]dto.TokenResponse, 0, len(defs))
	for _, d := range defs {
		items = append(items, dto.NewTokenResponse(d, h.multiplier))
	}
	response.OK(c, items)
}

// Purchase handles POST /api/v1/tokens/:token_id/purchase.
func (h *TokenHandler) Purchase(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var uri dto.TokenURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error(c, apperror.ErrNotFound("Token"))
		return
	}

	result, err := h.ledger.PurchaseToken(c.Request.Context(), accountID, uri.TokenID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewTokenPurchaseResponse(result))
}
