package handlers

import (
	"github.com/gin-gonic/gin"

	"bottega/internal/domain/finance"
	"bottega/internal/infrastructure/http/v1/dto"
)

// RecordHandler handles financial record endpoints. Paying an
// invoice-linked record cascades to its installment through the finance
// service, so the mark-paid endpoint here covers both manual and
// generated records.
type RecordHandler struct {
	*BaseHandler
	service *finance.Service
}

// NewRecordHandler creates a new record handler.
func NewRecordHandler(base *BaseHandler, service *finance.Service) *RecordHandler {
	return &RecordHandler{
		BaseHandler: base,
		service:     service,
	}
}

// RegisterRoutes attaches record endpoints to the group.
func (h *RecordHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/pay", h.MarkPaid)
}

// Create handles POST /records
func (h *RecordHandler) Create(c *gin.Context) {
	var req dto.CreateRecordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rec, err := h.service.CreateManual(c.Request.Context(),
		req.Date, req.Amount,
		finance.Direction(req.Direction), finance.Category(req.Category),
		req.Description, req.DueDate)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, rec.ID)
}

// List handles GET /records
func (h *RecordHandler) List(c *gin.Context) {
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

// Get handles GET /records/:id
func (h *RecordHandler) Get(c *gin.Context) {
	recordID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	rec, err := h.service.GetByID(c.Request.Context(), recordID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, rec)
}

// Update handles PUT /records/:id
func (h *RecordHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	recordID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateRecordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rec, err := h.service.GetByID(ctx, recordID)
	if err != nil {
		h.Error(c, err)
		return
	}
	req.Apply(rec)
	if err := h.service.Update(ctx, rec); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, rec)
}

// Delete handles DELETE /records/:id
func (h *RecordHandler) Delete(c *gin.Context) {
	recordID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), recordID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// MarkPaid handles POST /records/:id/pay
func (h *RecordHandler) MarkPaid(c *gin.Context) {
	recordID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.MarkPaidRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rec, err := h.service.MarkPaid(c.Request.Context(), recordID, req.PaymentMethod)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, rec)
}
