package handlers

import (
	"github.com/gin-gonic/gin"

	"bottega/internal/domain/catalogs/product"
	"bottega/internal/infrastructure/http/v1/dto"
)

// ProductHandler handles the product catalog endpoints.
type ProductHandler struct {
	*BaseHandler
	service *product.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return &ProductHandler{
		BaseHandler: base,
		service:     service,
	}
}

// RegisterRoutes attaches product endpoints to the group.
func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.PUT("/:id/price", h.SetRetailPrice)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/barcode/:barcode", h.LookupBarcode)
	rg.POST("/variants/:variantId/stock", h.AdjustStock)
}

// Create handles POST /catalog/products
func (h *ProductHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := req.ToProduct(h.service.Pricing())
	if err := h.service.Create(ctx, p); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, p.ID)
}

// List handles GET /catalog/products
func (h *ProductHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.List(ctx, q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromListResult(result, result.Items))
}

// Get handles GET /catalog/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, p)
}

// Update handles PUT /catalog/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.GetByID(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := req.Apply(p, h.service.Pricing()); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Update(ctx, p); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, p)
}

// SetRetailPrice handles PUT /catalog/products/:id/price. Sets the retail
// price directly and derives the markup from it.
func (h *ProductHandler) SetRetailPrice(c *gin.Context) {
	ctx := c.Request.Context()

	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.SetRetailPriceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.GetByID(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := p.SetRetailPrice(req.Price, h.service.Pricing()); err != nil {
		h.Error(c, err)
		return
	}
	p.SetVersion(req.Version)
	if err := h.service.Update(ctx, p); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, p)
}

// Delete handles DELETE /catalog/products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), productID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// LookupBarcode handles GET /catalog/products/barcode/:barcode. The POS
// register calls this on every scan.
func (h *ProductHandler) LookupBarcode(c *gin.Context) {
	p, v, err := h.service.FindVariantByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.BarcodeLookupResponse{Product: p, Variant: *v})
}

// AdjustStock handles POST /catalog/products/variants/:variantId/stock
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	variantID, ok := h.ParseID(c, "variantId")
	if !ok {
		return
	}

	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	newStock, err := h.service.AdjustStock(c.Request.Context(), variantID, req.Delta)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.StockResponse{VariantID: variantID.String(), Stock: newStock})
}
