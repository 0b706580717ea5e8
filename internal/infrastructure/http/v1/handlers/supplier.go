package handlers

import (
	"github.com/gin-gonic/gin"

	"bottega/internal/domain/catalogs/supplier"
	"bottega/internal/infrastructure/http/v1/dto"
)

// SupplierHandler handles the supplier catalog endpoints.
type SupplierHandler struct {
	*BaseHandler
	service *supplier.Service
}

// NewSupplierHandler creates a new supplier handler.
func NewSupplierHandler(base *BaseHandler, service *supplier.Service) *SupplierHandler {
	return &SupplierHandler{
		BaseHandler: base,
		service:     service,
	}
}

// RegisterRoutes attaches supplier endpoints to the group.
func (h *SupplierHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

// Create handles POST /catalog/suppliers
func (h *SupplierHandler) Create(c *gin.Context) {
	var req dto.CreateSupplierRequest
	if !h.BindJSON(c, &req) {
		return
	}

	s := req.ToSupplier()
	if err := h.service.Create(c.Request.Context(), s); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, s.ID)
}

// List handles GET /catalog/suppliers
func (h *SupplierHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromListResult(result, result.Items))
}

// Get handles GET /catalog/suppliers/:id
func (h *SupplierHandler) Get(c *gin.Context) {
	supplierID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	s, err := h.service.GetByID(c.Request.Context(), supplierID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, s)
}

// Update handles PUT /catalog/suppliers/:id
func (h *SupplierHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	supplierID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateSupplierRequest
	if !h.BindJSON(c, &req) {
		return
	}

	s, err := h.service.GetByID(ctx, supplierID)
	if err != nil {
		h.Error(c, err)
		return
	}
	req.Apply(s)
	if err := h.service.Update(ctx, s); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, s)
}

// Delete handles DELETE /catalog/suppliers/:id
func (h *SupplierHandler) Delete(c *gin.Context) {
	supplierID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), supplierID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}
