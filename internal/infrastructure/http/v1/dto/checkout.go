package dto

import (
	"bottega/internal/domain/documents/sale"
)

// CheckoutLine is one scanned item in a checkout request. Lines are
// identified by barcode, the way the register scans them.
type CheckoutLine struct {
	Barcode  string `json:"barcode" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

// CheckoutRequest for POST /checkout.
type CheckoutRequest struct {
	Lines         []CheckoutLine `json:"lines" binding:"required,min=1,dive"`
	PaymentMethod string         `json:"paymentMethod" binding:"required,oneof=CASH CARD EXTERNAL_TERMINAL"`
}

// CheckoutResponse for POST /checkout.
type CheckoutResponse struct {
	Status        string     `json:"status"`
	Sale          *sale.Sale `json:"sale,omitempty"`
	PaymentState  string     `json:"paymentState"`
	Transaction   string     `json:"transactionCode,omitempty"`
	Message       string     `json:"message,omitempty"`
	FiscalWarning string     `json:"fiscalWarning,omitempty"`
}

// FromCheckoutResult converts the processor outcome.
func FromCheckoutResult(res *sale.CheckoutResult) CheckoutResponse {
	return CheckoutResponse{
		Status:        string(res.Status),
		Sale:          res.Sale,
		PaymentState:  string(res.Payment.State),
		Transaction:   res.Payment.TransactionCode,
		Message:       res.Payment.Message,
		FiscalWarning: res.FiscalWarning,
	}
}
