// Package supplier provides the Supplier catalog.
package supplier

import (
	"context"
	"strings"

	"bottega/internal/core/apperror"
	"bottega/internal/core/entity"
)

// Supplier represents a goods supplier (anagrafica fornitore).
type Supplier struct {
	entity.BaseCatalog

	Name    string `db:"name" json:"name"`
	VAT     string `db:"vat" json:"vat"`
	Email   string `db:"email" json:"email,omitempty"`
	Phone   string `db:"phone" json:"phone,omitempty"`
	Address string `db:"address" json:"address,omitempty"`
}

// NewSupplier creates a supplier with generated ID.
func NewSupplier(name, vat string) *Supplier {
	return &Supplier{
		BaseCatalog: entity.NewBaseCatalog(),
		Name:        name,
		VAT:         vat,
	}
}

// Validate implements entity.Validatable.
func (s *Supplier) Validate(ctx context.Context) error {
	if strings.TrimSpace(s.Name) == "" {
		return apperror.NewValidation("supplier name is required").
			WithDetail("field", "name")
	}
	return nil
}
