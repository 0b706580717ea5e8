package dto

import (
	"time"

	"bottega/internal/core/types"
)

// CreateInvoiceRequest for POST /invoices.
type CreateInvoiceRequest struct {
	SupplierID    string    `json:"supplierId" binding:"required,uuid"`
	InvoiceNumber string    `json:"invoiceNumber"`
	Date          time.Time `json:"date" binding:"required"`
}

// AddInvoiceLineRequest for POST /invoices/:id/lines. The barcode is
// resolved against the catalog server-side.
type AddInvoiceLineRequest struct {
	Barcode  string      `json:"barcode" binding:"required"`
	Quantity int         `json:"quantity" binding:"required,min=1"`
	UnitCost types.Money `json:"unitCost" binding:"required"`
}

// ScheduleInstallmentsRequest for POST /invoices/:id/installments.
type ScheduleInstallmentsRequest struct {
	Count         int       `json:"count" binding:"required,min=1"`
	FrequencyDays int       `json:"frequencyDays" binding:"required,oneof=15 30 60 90"`
	FirstDueDate  time.Time `json:"firstDueDate" binding:"required"`
}
