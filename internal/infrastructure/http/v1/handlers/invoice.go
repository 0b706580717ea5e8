package handlers

import (
	"github.com/gin-gonic/gin"

	"bottega/internal/core/id"
	"bottega/internal/domain/documents/invoice"
	"bottega/internal/infrastructure/http/v1/dto"
)

// InvoiceHandler handles supplier invoice endpoints.
type InvoiceHandler struct {
	*BaseHandler
	service *invoice.Service
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service) *InvoiceHandler {
	return &InvoiceHandler{
		BaseHandler: base,
		service:     service,
	}
}

// RegisterRoutes attaches invoice endpoints to the group.
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/lines", h.AddLine)
	rg.POST("/:id/installments", h.ScheduleInstallments)
	rg.POST("/:id/finalize", h.Finalize)
}

// Create handles POST /invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	supplierID, err := id.Parse(req.SupplierID)
	if err != nil {
		h.Error(c, err)
		return
	}

	inv, err := h.service.CreateDraft(c.Request.Context(), supplierID, req.InvoiceNumber, req.Date)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, inv.ID)
}

// List handles GET /invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := q.ToFilter()
	if q.OrderBy == "" {
		filter.OrderBy = "-date"
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromListResult(result, result.Items))
}

// Get handles GET /invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	inv, err := h.service.GetByID(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, inv)
}

// AddLine handles POST /invoices/:id/lines
func (h *InvoiceHandler) AddLine(c *gin.Context) {
	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.AddInvoiceLineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.service.AddLineItem(c.Request.Context(), invoiceID, req.Barcode, req.Quantity, req.UnitCost)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, inv)
}

// ScheduleInstallments handles POST /invoices/:id/installments
func (h *InvoiceHandler) ScheduleInstallments(c *gin.Context) {
	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ScheduleInstallmentsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	schedule, err := h.service.ScheduleInstallments(c.Request.Context(), invoiceID, req.Count, req.FrequencyDays, req.FirstDueDate)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, schedule)
}

// Finalize handles POST /invoices/:id/finalize
func (h *InvoiceHandler) Finalize(c *gin.Context) {
	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	inv, err := h.service.Finalize(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, inv)
}
