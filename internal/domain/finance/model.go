// Package finance holds the financial records of the ledger: manual income
// and expense entries plus the records generated by invoice installment
// schedules. Generated records are locked; only their paid flag may move,
// exactly once.
package finance

import (
	"context"
	"strings"
	"time"

	"bottega/internal/core/apperror"
	"bottega/internal/core/entity"
	"bottega/internal/core/id"
	"bottega/internal/core/types"
	"bottega/internal/domain"
)

// Direction of a record relative to the store's cash position.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Category classifies a record for reporting.
type Category string

const (
	CategoryRent         Category = "RENT"
	CategoryUtilities    Category = "UTILITIES"
	CategoryTaxes        Category = "TAXES"
	CategorySalary       Category = "SALARY"
	CategorySupplier     Category = "SUPPLIER"
	CategorySales        Category = "SALES"
	CategoryOtherExpense Category = "OTHER_EXPENSE"
	CategoryOtherIncome  Category = "OTHER_INCOME"
	CategoryGrant        Category = "GRANT"
)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryRent, CategoryUtilities, CategoryTaxes, CategorySalary,
		CategorySupplier, CategorySales, CategoryOtherExpense,
		CategoryOtherIncome, CategoryGrant:
		return true
	}
	return false
}

// Record is one financial ledger entry. Records created by hand are
// editable; records generated from an invoice schedule carry the linking
// IDs and are locked.
type Record struct {
	entity.BaseEntity

	Date        time.Time   `db:"date" json:"date"`
	Amount      types.Money `db:"amount" json:"amount"`
	Direction   Direction   `db:"direction" json:"type"`
	Category    Category    `db:"category" json:"category"`
	Description string      `db:"description" json:"description"`

	DueDate *time.Time `db:"due_date" json:"dueDate,omitempty"`
	IsPaid  bool       `db:"is_paid" json:"isPaid"`

	// PaymentMethod is stamped by MarkPaid.
	PaymentMethod string `db:"payment_method" json:"paymentMethod,omitempty"`

	InvoiceID     *id.ID `db:"invoice_id" json:"invoiceId,omitempty"`
	InstallmentID *id.ID `db:"installment_id" json:"installmentId,omitempty"`

	IsEditable bool      `db:"is_editable" json:"isEditable"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// NewManualRecord creates an editable record entered by an operator.
func NewManualRecord(date time.Time, amount types.Money, dir Direction, cat Category, description string) *Record {
	return &Record{
		BaseEntity:  entity.NewBaseEntity(),
		Date:        date,
		Amount:      amount,
		Direction:   dir,
		Category:    cat,
		Description: description,
		IsEditable:  true,
		CreatedAt:   time.Now(),
	}
}

// NewGeneratedRecord creates a locked record tied to an invoice installment.
func NewGeneratedRecord(dueDate time.Time, amount types.Money, description string, invoiceID id.ID, installmentID *id.ID) *Record {
	due := dueDate
	return &Record{
		BaseEntity:    entity.NewBaseEntity(),
		Date:          dueDate,
		Amount:        amount,
		Direction:     DirectionOut,
		Category:      CategorySupplier,
		Description:   description,
		DueDate:       &due,
		InvoiceID:     &invoiceID,
		InstallmentID: installmentID,
		IsEditable:    false,
		CreatedAt:     time.Now(),
	}
}

// Validate implements entity.Validatable.
func (r *Record) Validate(ctx context.Context) error {
	if r.Direction != DirectionIn && r.Direction != DirectionOut {
		return apperror.NewValidation("direction must be IN or OUT").
			WithDetail("direction", string(r.Direction))
	}
	if !r.Category.IsValid() {
		return apperror.NewValidation("unknown category").
			WithDetail("category", string(r.Category))
	}
	if !r.Amount.IsPositive() {
		return apperror.NewValidation("amount must be positive").
			WithDetail("amount", r.Amount.String())
	}
	if strings.TrimSpace(r.Description) == "" {
		return apperror.NewValidation("description is required").
			WithDetail("field", "description")
	}
	return nil
}

// Repository is the persistence port for financial records.
type Repository interface {
	Create(ctx context.Context, r *Record) error

	// Update persists changed fields. Lock enforcement lives in the service.
	Update(ctx context.Context, r *Record) error

	GetByID(ctx context.Context, recordID id.ID) (*Record, error)

	// List returns records in insertion order. A non-positive limit means
	// no limit.
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Record], error)

	// ListByInvoice returns the generated records linked to an invoice.
	ListByInvoice(ctx context.Context, invoiceID id.ID) ([]*Record, error)

	Delete(ctx context.Context, recordID id.ID) error
}
