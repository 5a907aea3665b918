package handler

import (
	"token-ledger/internal/adapter/http/dto"
	"token-ledger/internal/core/ports"
	"token-ledger/pkg/apperror"
	"token-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AlertHandler serves the caller's notifications.
type AlertHandler struct {
	alerts ports.AlertService
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(alerts ports.AlertService) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// ListUnread handles GET /api/v1/alerts.
func (h *AlertHandler) ListUnread(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	alerts, err := h.alerts.ListUnread(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.AlertResponse, 0, len(alerts))
	for i := range alerts {
		items = append(items, dto.NewAlertResponse(&alerts[i]))
	}
	response.OK(c, items)
}

// MarkRead handles POST /api/v1/alerts/:alert_id/read.
func (h *AlertHandler) MarkRead(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}
	alertID, err := uuid.Parse(c.Param("alert_id"))
	if err != nil {
		response.Error(c, apperror.ErrNotFound("Alert"))
		return
	}

	if err := h.alerts.MarkRead(c.Request.Context(), accountID, alertID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": alertID.String(), "is_read": true})
}

// MarkAllRead handles POST /api/v1/alerts/read-all.
func (h *AlertHandler) MarkAllRead(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	n, err := h.alerts.MarkAllRead(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.MarkAllReadResponse{Updated: n})
}
