package dto

import (
	"bottega/internal/domain/catalogs/supplier"
)

// CreateSupplierRequest for POST /catalog/suppliers.
type CreateSupplierRequest struct {
	Name    string `json:"name" binding:"required"`
	VAT     string `json:"vat" binding:"required"`
	Email   string `json:"email" binding:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// ToSupplier builds the domain supplier.
func (r CreateSupplierRequest) ToSupplier() *supplier.Supplier {
	s := supplier.NewSupplier(r.Name, r.VAT)
	s.Email = r.Email
	s.Phone = r.Phone
	s.Address = r.Address
	return s
}

// UpdateSupplierRequest for PUT /catalog/suppliers/:id.
type UpdateSupplierRequest struct {
	Name    string `json:"name" binding:"required"`
	VAT     string `json:"vat" binding:"required"`
	Email   string `json:"email" binding:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Version int    `json:"version" binding:"required,min=1"`
}

// Apply copies the request onto an existing supplier.
func (r UpdateSupplierRequest) Apply(s *supplier.Supplier) {
	s.Name = r.Name
	s.VAT = r.VAT
	s.Email = r.Email
	s.Phone = r.Phone
	s.Address = r.Address
	s.SetVersion(r.Version)
}
