// Package sale implements point-of-sale checkout: a cart with optimistic
// stock checks and a processor that commits the sale atomically against
// variant stock. Committed sales are append-only.
package sale

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bottega/internal/core/apperror"
	"bottega/internal/core/entity"
	"bottega/internal/core/id"
	"bottega/internal/core/types"
	"bottega/internal/domain"
	"bottega/internal/domain/catalogs/product"
	"bottega/internal/domain/payment"
)

// SaleItem is one receipt line. Product name, variant attributes and unit
// price are snapshots taken at sale time; later catalog edits do not touch
// committed sales.
type SaleItem struct {
	ProductID   id.ID       `db:"product_id" json:"productId"`
	VariantID   id.ID       `db:"variant_id" json:"variantId"`
	ProductName string      `db:"product_name" json:"productName"`
	Size        string      `db:"size" json:"size"`
	Color       string      `db:"color" json:"color"`
	Barcode     string      `db:"barcode" json:"barcode"`
	Quantity    int         `db:"quantity" json:"quantity"`
	UnitPrice   types.Money `db:"unit_price" json:"unitPrice"`
}

// LineTotal returns quantity * unit price.
func (i SaleItem) LineTotal() types.Money {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Sale is an immutable committed receipt.
type Sale struct {
	entity.BaseDocument

	Number          string         `db:"number" json:"number"`
	Date            time.Time      `db:"date" json:"date"`
	Items           []SaleItem     `db:"-" json:"items"`
	Total           types.Money    `db:"total" json:"total"`
	PaymentMethod   payment.Method `db:"payment_method" json:"paymentMethod"`
	TransactionCode string         `db:"transaction_code" json:"transactionCode,omitempty"`
}

// Repository is the persistence port for committed sales.
type Repository interface {
	// Create appends a committed sale. Sales are never updated or deleted.
	Create(ctx context.Context, s *Sale) error

	// GetByID returns a sale by ID or CodeNotFound.
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)

	// List returns sales matching the filter. A non-positive limit means
	// no limit.
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Sale], error)
}

// PrintResult is the outcome of a fiscal receipt print attempt.
type PrintResult struct {
	Success bool
	Message string
}

// FiscalPrinter is the hardware port for the fiscal receipt printer.
// Printing is best-effort: a failed print never reverses a committed sale.
type FiscalPrinter interface {
	PrintReceipt(ctx context.Context, s *Sale) PrintResult
}

// Cart accumulates lines before checkout. Adding performs an optimistic
// stock check against the stock seen at add time; the authoritative check
// happens again inside the checkout transaction. Cart is not safe for
// concurrent use; each register session owns its own cart.
type Cart struct {
	items []SaleItem
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{items: make([]SaleItem, 0, 4)}
}

// Add puts qty units of the variant into the cart, merging with an existing
// line for the same variant. The requested total per variant must not
// exceed the variant's current stock.
func (c *Cart) Add(p *product.Product, v *product.Variant, qty int) error {
	if qty <= 0 {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", qty)
	}

	inCart := 0
	var line *SaleItem
	for i := range c.items {
		if c.items[i].VariantID == v.ID {
			line = &c.items[i]
			inCart = c.items[i].Quantity
			break
		}
	}

	if inCart+qty > v.Stock {
		return apperror.NewInsufficientStock(v.ID.String(), inCart+qty, v.Stock).
			WithDetail("barcode", v.Barcode)
	}

	if line != nil {
		line.Quantity += qty
		return nil
	}

	c.items = append(c.items, SaleItem{
		ProductID:   p.ID,
		VariantID:   v.ID,
		ProductName: p.Name,
		Size:        v.Size,
		Color:       v.Color,
		Barcode:     v.Barcode,
		Quantity:    qty,
		UnitPrice:   p.Price,
	})
	return nil
}

// Remove drops the line for the variant, if present.
func (c *Cart) Remove(variantID id.ID) {
	for i := range c.items {
		if c.items[i].VariantID == variantID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Items returns a copy of the cart lines.
func (c *Cart) Items() []SaleItem {
	out := make([]SaleItem, len(c.items))
	copy(out, c.items)
	return out
}

// Total sums line totals.
func (c *Cart) Total() types.Money {
	total := types.Zero()
	for _, it := range c.items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Clear drops all lines. The processor calls this only after a committed
// checkout.
func (c *Cart) Clear() {
	c.items = c.items[:0]
}
