package handlers

import (
	"github.com/gin-gonic/gin"

	"bottega/internal/domain/ledger"
	"bottega/internal/infrastructure/http/v1/dto"
)

// LedgerHandler serves the unified reconciled ledger.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{
		BaseHandler: base,
		service:     service,
	}
}

// RegisterRoutes attaches ledger endpoints to the group.
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Query)
}

// Query handles GET /ledger
func (h *LedgerHandler) Query(c *gin.Context) {
	var q dto.LedgerQuery
	if !h.BindQuery(c, &q) {
		return
	}

	report, err := h.service.Query(c.Request.Context(), q.ToDateRange())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}
