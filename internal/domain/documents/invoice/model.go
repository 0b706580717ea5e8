// Package invoice implements supplier invoice intake: draft invoices built
// line by line against catalog barcodes, installment schedules, and a
// finalize transition that applies received stock exactly once.
package invoice

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bottega/internal/core/apperror"
	"bottega/internal/core/entity"
	"bottega/internal/core/id"
	"bottega/internal/core/types"
	"bottega/internal/domain"
)

// Status of the invoice document.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusCompleted Status = "COMPLETED"
)

// PaymentStatus is derived from the installment paid-state, never set
// directly.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "UNPAID"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

// InvoiceItem is one received line. Product and variant IDs come from the
// barcode resolution against the catalog at add time.
type InvoiceItem struct {
	ProductID   id.ID       `db:"product_id" json:"productId"`
	VariantID   id.ID       `db:"variant_id" json:"variantId"`
	ProductName string      `db:"product_name" json:"productName"`
	Barcode     string      `db:"barcode" json:"barcode"`
	Quantity    int         `db:"quantity" json:"quantity"`
	UnitCost    types.Money `db:"unit_cost" json:"unitCost"`
}

// Installment is one scheduled payment of the invoice total.
type Installment struct {
	ID      id.ID       `db:"id" json:"id"`
	DueDate time.Time   `db:"due_date" json:"dueDate"`
	Amount  types.Money `db:"amount" json:"amount"`
	IsPaid  bool        `db:"is_paid" json:"isPaid"`
	Note    string      `db:"note" json:"note,omitempty"`
}

// Invoice is a supplier invoice document.
type Invoice struct {
	entity.BaseDocument

	SupplierID    id.ID         `db:"supplier_id" json:"supplierId"`
	InvoiceNumber string        `db:"invoice_number" json:"invoiceNumber"`
	Date          time.Time     `db:"date" json:"date"`
	Items         []InvoiceItem `db:"-" json:"items"`
	TotalAmount   types.Money   `db:"total_amount" json:"totalAmount"`
	Status        Status        `db:"status" json:"status"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"paymentStatus"`
	Installments  []Installment `db:"-" json:"installments,omitempty"`

	// StockApplied guards the stock increment: a finalize retry never
	// applies received quantities twice.
	StockApplied bool `db:"stock_applied" json:"stockApplied"`
}

// NewInvoice creates a draft invoice.
func NewInvoice(supplierID id.ID, invoiceNumber string, date time.Time) *Invoice {
	return &Invoice{
		BaseDocument:  entity.NewBaseDocument(),
		SupplierID:    supplierID,
		InvoiceNumber: invoiceNumber,
		Date:          date,
		Items:         make([]InvoiceItem, 0),
		Status:        StatusDraft,
		PaymentStatus: PaymentUnpaid,
	}
}

// ComputeTotal recalculates TotalAmount from the lines.
func (inv *Invoice) ComputeTotal() {
	total := types.Zero()
	for _, it := range inv.Items {
		total = total.Add(it.UnitCost.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	inv.TotalAmount = types.Round2(total)
}

// DerivePaymentStatus recomputes PaymentStatus from the installments:
// none paid is UNPAID, some is PARTIAL, all is PAID. An invoice without a
// schedule stays UNPAID until its single generated record is paid, which
// the finance service reports as a schedule-less mark.
func (inv *Invoice) DerivePaymentStatus() {
	if len(inv.Installments) == 0 {
		return
	}
	paid := 0
	for _, ins := range inv.Installments {
		if ins.IsPaid {
			paid++
		}
	}
	switch paid {
	case 0:
		inv.PaymentStatus = PaymentUnpaid
	case len(inv.Installments):
		inv.PaymentStatus = PaymentPaid
	default:
		inv.PaymentStatus = PaymentPartial
	}
}

// Installment returns the installment with the given ID, or nil.
func (inv *Invoice) Installment(installmentID id.ID) *Installment {
	for i := range inv.Installments {
		if inv.Installments[i].ID == installmentID {
			return &inv.Installments[i]
		}
	}
	return nil
}

// Finalized reports whether the invoice has left DRAFT.
func (inv *Invoice) Finalized() bool {
	return inv.Status == StatusCompleted
}

// Validate implements entity.Validatable. Full validation applies at
// finalize; drafts only need a supplier.
func (inv *Invoice) Validate(ctx context.Context) error {
	if id.IsNil(inv.SupplierID) {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierId")
	}
	for i, it := range inv.Items {
		if it.Quantity <= 0 {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("lineNo", i+1)
		}
		if it.UnitCost.IsNegative() {
			return apperror.NewValidation("unit cost cannot be negative").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}

// ValidateForFinalize checks the finalize preconditions.
func (inv *Invoice) ValidateForFinalize(ctx context.Context) error {
	if err := inv.Validate(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(inv.InvoiceNumber) == "" {
		return apperror.NewValidation("invoice number is required").
			WithDetail("field", "invoiceNumber")
	}
	if len(inv.Items) == 0 {
		return apperror.NewValidation("invoice has no lines")
	}
	return nil
}

// Repository is the persistence port for invoices, installments included.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	Update(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error)

	// List returns invoices in insertion order. A non-positive limit
	// means no limit.
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Invoice], error)

	Delete(ctx context.Context, invoiceID id.ID) error
}
