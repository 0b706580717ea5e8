// Package product provides the Product catalog: the single source of truth
// for variant-level stock. Each Product owns an ordered list of Variants
// (size/color SKUs); stock is tracked per variant.
package product

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"bottega/internal/core/apperror"
	"bottega/internal/core/entity"
	"bottega/internal/core/id"
	"bottega/internal/core/types"
)

// Variant is a specific size/color SKU of a Product, the unit of stock
// tracking. Barcodes are unique across the whole catalog, not just within
// the parent product.
type Variant struct {
	ID      id.ID  `db:"id" json:"id"`
	Size    string `db:"size" json:"size"`
	Color   string `db:"color" json:"color"`
	Barcode string `db:"barcode" json:"barcode"`
	Stock   int    `db:"stock" json:"stock"`
}

// PricingParams carries the store-level rates used to derive retail prices.
type PricingParams struct {
	// VATRatePercent is the VAT applied on top of the marked-up cost (e.g. 22).
	VATRatePercent types.Money

	// OnlineMarkupPercent is the extra markup for the online channel.
	OnlineMarkupPercent types.Money
}

// Product represents a catalog item with channel pricing and variants.
type Product struct {
	entity.BaseCatalog

	Name     string `db:"name" json:"name"`
	Category string `db:"category" json:"category"`
	Material string `db:"material" json:"material,omitempty"`
	ImageURL string `db:"image_url" json:"imageUrl,omitempty"`

	// CostPrice is the supplier cost; MarkupPercent derives the retail price.
	CostPrice     types.Money `db:"cost_price" json:"costPrice"`
	MarkupPercent types.Money `db:"markup_percent" json:"markupPercent"`

	// Price = round2(cost * (1+markup/100) * (1+vat/100)).
	Price types.Money `db:"price" json:"price"`

	// OnlinePrice = round2(price * (1+onlineMarkup/100)).
	OnlinePrice types.Money `db:"online_price" json:"onlinePrice"`
	IsOnline    bool        `db:"is_online" json:"isOnline"`

	Variants []Variant `db:"-" json:"variants"`
}

// NewProduct creates a product with generated ID and no variants.
func NewProduct(name, category string) *Product {
	return &Product{
		BaseCatalog: entity.NewBaseCatalog(),
		Name:        name,
		Category:    category,
		Variants:    make([]Variant, 0),
	}
}

// AddVariant appends a variant with generated ID.
// Barcode uniqueness across the catalog is enforced by the service.
func (p *Product) AddVariant(size, color, barcode string, stock int) *Variant {
	p.Variants = append(p.Variants, Variant{
		ID:      id.New(),
		Size:    size,
		Color:   color,
		Barcode: barcode,
		Stock:   stock,
	})
	return &p.Variants[len(p.Variants)-1]
}

// Variant returns the variant with the given ID, or nil.
func (p *Product) Variant(variantID id.ID) *Variant {
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			return &p.Variants[i]
		}
	}
	return nil
}

// TotalStock sums stock across all variants.
func (p *Product) TotalStock() int {
	total := 0
	for _, v := range p.Variants {
		total += v.Stock
	}
	return total
}

// SetPricing sets cost and markup and recomputes both channel prices
// (forward direction: cost/markup drive price).
func (p *Product) SetPricing(cost, markupPercent types.Money, params PricingParams) {
	p.CostPrice = cost
	p.MarkupPercent = markupPercent
	p.recomputePrices(params)
}

// SetRetailPrice sets the retail price directly and recomputes the markup
// holding cost fixed (reverse direction). The online price follows the new
// retail price.
func (p *Product) SetRetailPrice(price types.Money, params PricingParams) error {
	if p.CostPrice.IsZero() {
		return apperror.NewValidation("cannot derive markup: cost price is zero").
			WithDetail("product", p.Name)
	}

	vatMul := decimal.NewFromInt(1).Add(types.Percent(params.VATRatePercent))
	// markup = (price / (cost * (1+vat/100)) - 1) * 100
	base := p.CostPrice.Mul(vatMul)
	p.MarkupPercent = price.DivRound(base, 6).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100)).Round(2)
	p.Price = types.Round2(price)
	p.OnlinePrice = types.Round2(p.Price.Mul(decimal.NewFromInt(1).Add(types.Percent(params.OnlineMarkupPercent))))
	return nil
}

func (p *Product) recomputePrices(params PricingParams) {
	vatMul := decimal.NewFromInt(1).Add(types.Percent(params.VATRatePercent))
	markupMul := decimal.NewFromInt(1).Add(types.Percent(p.MarkupPercent))
	p.Price = types.Round2(p.CostPrice.Mul(markupMul).Mul(vatMul))
	p.OnlinePrice = types.Round2(p.Price.Mul(decimal.NewFromInt(1).Add(types.Percent(params.OnlineMarkupPercent))))
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}

	if p.CostPrice.IsNegative() {
		return apperror.NewValidation("cost price cannot be negative").
			WithDetail("field", "costPrice")
	}

	if p.Price.IsNegative() {
		return apperror.NewValidation("price cannot be negative").
			WithDetail("field", "price")
	}

	seen := make(map[string]struct{}, len(p.Variants))
	for i, v := range p.Variants {
		if strings.TrimSpace(v.Barcode) == "" {
			return apperror.NewValidation("variant barcode is required").
				WithDetail("field", "variants").
				WithDetail("lineNo", i+1)
		}
		if v.Stock < 0 {
			return apperror.NewValidation("variant stock cannot be negative").
				WithDetail("barcode", v.Barcode)
		}
		if _, dup := seen[v.Barcode]; dup {
			return apperror.NewDuplicate("variant", "barcode", v.Barcode)
		}
		seen[v.Barcode] = struct{}{}
	}

	return nil
}
