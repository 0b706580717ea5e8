package handlers

import (
	"github.com/gin-gonic/gin"

	"bottega/internal/infrastructure/http/v1/dto"
	"bottega/internal/infrastructure/vision"
)

// VisionHandler exposes the image analysis helpers: product photo
// analysis, invoice scanning and marketing copy generation.
type VisionHandler struct {
	*BaseHandler
	client *vision.Client
}

// NewVisionHandler creates a new vision handler.
func NewVisionHandler(base *BaseHandler, client *vision.Client) *VisionHandler {
	return &VisionHandler{
		BaseHandler: base,
		client:      client,
	}
}

// RegisterRoutes attaches vision endpoints to the group.
func (h *VisionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/product-image", h.AnalyzeProductImage)
	rg.POST("/invoice-scan", h.ScanInvoice)
	rg.POST("/marketing-copy", h.MarketingCopy)
}

// AnalyzeProductImage handles POST /vision/product-image
func (h *VisionHandler) AnalyzeProductImage(c *gin.Context) {
	var req dto.AnalyzeImageRequest
	if !h.BindJSON(c, &req) {
		return
	}

	analysis, err := h.client.AnalyzeProductImage(c.Request.Context(), req.ImageBase64)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, analysis)
}

// ScanInvoice handles POST /vision/invoice-scan
func (h *VisionHandler) ScanInvoice(c *gin.Context) {
	var req dto.AnalyzeImageRequest
	if !h.BindJSON(c, &req) {
		return
	}

	scan, err := h.client.ScanInvoice(c.Request.Context(), req.ImageBase64)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, scan)
}

// MarketingCopy handles POST /vision/marketing-copy
func (h *VisionHandler) MarketingCopy(c *gin.Context) {
	var req dto.MarketingCopyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	text, err := h.client.GenerateMarketingCopy(c.Request.Context(), vision.CopyRequest{
		ProductName:    req.ProductName,
		TargetAudience: req.TargetAudience,
		Tone:           req.Tone,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.MarketingCopyResponse{Text: text})
}
