package dto

import (
	"bottega/internal/core/id"
	"bottega/internal/core/types"
	"bottega/internal/domain/catalogs/product"
)

// VariantRequest describes one size/color SKU in a create or update.
type VariantRequest struct {
	ID      string `json:"id"`
	Size    string `json:"size"`
	Color   string `json:"color"`
	Barcode string `json:"barcode" binding:"required"`
	Stock   int    `json:"stock" binding:"min=0"`
}

// CreateProductRequest for POST /catalog/products.
type CreateProductRequest struct {
	Name          string           `json:"name" binding:"required"`
	Category      string           `json:"category"`
	Material      string           `json:"material"`
	ImageURL      string           `json:"imageUrl"`
	CostPrice     types.Money      `json:"costPrice"`
	MarkupPercent types.Money      `json:"markupPercent"`
	IsOnline      bool             `json:"isOnline"`
	Variants      []VariantRequest `json:"variants" binding:"required,min=1,dive"`
}

// ToProduct builds the domain product with prices derived from cost and
// markup.
func (r CreateProductRequest) ToProduct(pricing product.PricingParams) *product.Product {
	p := product.NewProduct(r.Name, r.Category)
	p.Material = r.Material
	p.ImageURL = r.ImageURL
	p.IsOnline = r.IsOnline
	p.SetPricing(r.CostPrice, r.MarkupPercent, pricing)
	for _, v := range r.Variants {
		p.AddVariant(v.Size, v.Color, v.Barcode, v.Stock)
	}
	return p
}

// UpdateProductRequest for PUT /catalog/products/:id.
type UpdateProductRequest struct {
	Name          string           `json:"name" binding:"required"`
	Category      string           `json:"category"`
	Material      string           `json:"material"`
	ImageURL      string           `json:"imageUrl"`
	CostPrice     types.Money      `json:"costPrice"`
	MarkupPercent types.Money      `json:"markupPercent"`
	IsOnline      bool             `json:"isOnline"`
	Variants      []VariantRequest `json:"variants" binding:"required,min=1,dive"`
	Version       int              `json:"version" binding:"required,min=1"`
}

// Apply copies the request onto an existing product. Variants keep their
// IDs when the client sends them back, so stock history stays attached.
func (r UpdateProductRequest) Apply(p *product.Product, pricing product.PricingParams) error {
	p.Name = r.Name
	p.Category = r.Category
	p.Material = r.Material
	p.ImageURL = r.ImageURL
	p.IsOnline = r.IsOnline
	p.SetPricing(r.CostPrice, r.MarkupPercent, pricing)
	p.SetVersion(r.Version)

	variants := make([]product.Variant, 0, len(r.Variants))
	for _, v := range r.Variants {
		variantID := id.New()
		if v.ID != "" {
			parsed, err := id.Parse(v.ID)
			if err != nil {
				return err
			}
			variantID = parsed
		}
		variants = append(variants, product.Variant{
			ID:      variantID,
			Size:    v.Size,
			Color:   v.Color,
			Barcode: v.Barcode,
			Stock:   v.Stock,
		})
	}
	p.Variants = variants
	return nil
}

// SetRetailPriceRequest for PUT /catalog/products/:id/price.
type SetRetailPriceRequest struct {
	Price   types.Money `json:"price" binding:"required"`
	Version int         `json:"version" binding:"required,min=1"`
}

// AdjustStockRequest for POST /catalog/products/variants/:variantId/stock.
type AdjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// StockResponse reports the stock level after an adjustment.
type StockResponse struct {
	VariantID string `json:"variantId"`
	Stock     int    `json:"stock"`
}

// BarcodeLookupResponse resolves a scanned barcode for the register.
type BarcodeLookupResponse struct {
	Product *product.Product `json:"product"`
	Variant product.Variant  `json:"variant"`
}
