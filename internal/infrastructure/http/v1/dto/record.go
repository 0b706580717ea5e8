package dto

import (
	"time"

	"bottega/internal/core/types"
	"bottega/internal/domain/finance"
)

// CreateRecordRequest for POST /records. Only manual records come in this
// way; invoice-linked records are generated by finalization.
type CreateRecordRequest struct {
	Date        time.Time   `json:"date" binding:"required"`
	Amount      types.Money `json:"amount" binding:"required"`
	Direction   string      `json:"type" binding:"required,oneof=IN OUT"`
	Category    string      `json:"category" binding:"required"`
	Description string      `json:"description"`
	DueDate     *time.Time  `json:"dueDate"`
}

// UpdateRecordRequest for PUT /records/:id.
type UpdateRecordRequest struct {
	Date        time.Time   `json:"date" binding:"required"`
	Amount      types.Money `json:"amount" binding:"required"`
	Direction   string      `json:"type" binding:"required,oneof=IN OUT"`
	Category    string      `json:"category" binding:"required"`
	Description string      `json:"description"`
	DueDate     *time.Time  `json:"dueDate"`
	Version     int         `json:"version" binding:"required,min=1"`
}

// Apply copies the request onto an existing record. Paid state changes go
// through the dedicated mark-paid endpoint.
func (r UpdateRecordRequest) Apply(rec *finance.Record) {
	rec.Date = r.Date
	rec.Amount = r.Amount
	rec.Direction = finance.Direction(r.Direction)
	rec.Category = finance.Category(r.Category)
	rec.Description = r.Description
	rec.DueDate = r.DueDate
	rec.SetVersion(r.Version)
}

// MarkPaidRequest for POST /records/:id/pay.
type MarkPaidRequest struct {
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}
