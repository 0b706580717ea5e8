package handlers

import (
	"github.com/gin-gonic/gin"

	"bottega/internal/domain/catalogs/product"
	"bottega/internal/domain/documents/sale"
	"bottega/internal/domain/payment"
	"bottega/internal/infrastructure/http/v1/dto"
	"bottega/pkg/logger"
)

// CheckoutHandler handles the POS endpoints: checkout and the sales
// journal.
type CheckoutHandler struct {
	*BaseHandler
	products  *product.Service
	processor *sale.Processor
	sales     sale.Repository
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(base *BaseHandler, products *product.Service, processor *sale.Processor, sales sale.Repository) *CheckoutHandler {
	return &CheckoutHandler{
		BaseHandler: base,
		products:    products,
		processor:   processor,
		sales:       sales,
	}
}

// RegisterRoutes attaches POS endpoints to the group.
func (h *CheckoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/checkout", h.Checkout)
	rg.GET("/sales", h.ListSales)
	rg.GET("/sales/:id", h.GetSale)
}

// Checkout handles POST /checkout. The cart is rebuilt server-side from
// the scanned lines, so stock is re-validated against current levels even
// when the client's view is stale.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CheckoutRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cart := sale.NewCart()
	for _, line := range req.Lines {
		p, v, err := h.products.FindVariantByBarcode(ctx, line.Barcode)
		if err != nil {
			h.Error(c, err)
			return
		}
		if err := cart.Add(p, v, line.Quantity); err != nil {
			h.Error(c, err)
			return
		}
	}

	onState := func(state payment.State) {
		logger.Debug(ctx, "payment state", "state", string(state))
	}

	result, err := h.processor.Checkout(ctx, cart, payment.Method(req.PaymentMethod), onState)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromCheckoutResult(result))
}

// ListSales handles GET /sales
func (h *CheckoutHandler) ListSales(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := q.ToFilter()
	if q.OrderBy == "" {
		filter.OrderBy = "-date"
	}

	result, err := h.sales.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromListResult(result, result.Items))
}

// GetSale handles GET /sales/:id
func (h *CheckoutHandler) GetSale(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	s, err := h.sales.GetByID(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, s)
}
