package invoice

import (
	"context"
	"fmt"
	"time"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/core/tx"
	"bottega/internal/core/types"
	"bottega/internal/domain"
	"bottega/internal/domain/catalogs/product"
	"bottega/internal/domain/finance"
	"bottega/pkg/logger"
)

// Service manages invoice intake: drafts, line items, installment
// schedules, and the finalize transition.
type Service struct {
	invoices  Repository
	products  product.Repository
	records   finance.Repository
	txManager tx.Manager
}

// NewService wires the invoice service.
func NewService(invoices Repository, products product.Repository, records finance.Repository, txManager tx.Manager) *Service {
	return &Service{
		invoices:  invoices,
		products:  products,
		records:   records,
		txManager: txManager,
	}
}

// CreateDraft opens a new draft invoice for the supplier.
func (s *Service) CreateDraft(ctx context.Context, supplierID id.ID, invoiceNumber string, date time.Time) (*Invoice, error) {
	inv := NewInvoice(supplierID, invoiceNumber, date)
	if err := inv.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.invoices.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// AddLineItem resolves the barcode against the catalog and appends a line.
// Unknown barcodes are a hard failure; intake never creates products.
func (s *Service) AddLineItem(ctx context.Context, invoiceID id.ID, barcode string, qty int, unitCost types.Money) (*Invoice, error) {
	if qty <= 0 {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", qty)
	}
	if unitCost.IsNegative() {
		return nil, apperror.NewValidation("unit cost cannot be negative").
			WithDetail("unitCost", unitCost.String())
	}

	var inv *Invoice
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.invoices.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Finalized() {
			return apperror.NewInvoiceFinalized(inv.InvoiceNumber)
		}

		p, v, err := s.products.FindVariantByBarcode(ctx, barcode)
		if err != nil {
			return err
		}

		inv.Items = append(inv.Items, InvoiceItem{
			ProductID:   p.ID,
			VariantID:   v.ID,
			ProductName: p.Name,
			Barcode:     v.Barcode,
			Quantity:    qty,
			UnitCost:    unitCost,
		})
		inv.ComputeTotal()
		return s.invoices.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ScheduleInstallments attaches a generated payment plan to a draft
// invoice, replacing any previous one.
func (s *Service) ScheduleInstallments(ctx context.Context, invoiceID id.ID, count, frequencyDays int, firstDue time.Time) (*Schedule, error) {
	var schedule *Schedule
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Finalized() {
			return apperror.NewInvoiceFinalized(inv.InvoiceNumber)
		}

		inv.ComputeTotal()
		schedule, err = GenerateSchedule(inv.TotalAmount, count, frequencyDays, firstDue)
		if err != nil {
			return err
		}

		inv.Installments = schedule.Installments
		inv.PaymentStatus = PaymentUnpaid
		return s.invoices.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

// Finalize completes a draft invoice: validates it, applies received stock
// atomically, and generates the supplier payment records. Stock is applied
// at most once (StockApplied); finalizing a completed invoice fails with
// CodeInvoiceFinalized.
func (s *Service) Finalize(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	var inv *Invoice
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.invoices.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Finalized() {
			return apperror.NewInvoiceFinalized(inv.InvoiceNumber)
		}
		if err := inv.ValidateForFinalize(ctx); err != nil {
			return err
		}

		inv.ComputeTotal()

		if !inv.StockApplied {
			for _, it := range inv.Items {
				if _, err := s.products.AdjustStock(ctx, it.VariantID, it.Quantity); err != nil {
					return err
				}
			}
			inv.StockApplied = true
		}

		inv.Status = StatusCompleted
		if err := s.invoices.Update(ctx, inv); err != nil {
			return err
		}

		return s.generateRecords(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "invoice finalized",
		"invoiceNumber", inv.InvoiceNumber, "total", inv.TotalAmount.String(),
		"installments", len(inv.Installments))
	return inv, nil
}

// generateRecords creates one locked OUT/SUPPLIER record per installment,
// or a single record due at the invoice date when there is no schedule.
func (s *Service) generateRecords(ctx context.Context, inv *Invoice) error {
	if len(inv.Installments) == 0 {
		r := finance.NewGeneratedRecord(
			inv.Date,
			inv.TotalAmount,
			fmt.Sprintf("Fattura %s", inv.InvoiceNumber),
			inv.ID,
			nil,
		)
		return s.records.Create(ctx, r)
	}

	for i := range inv.Installments {
		ins := &inv.Installments[i]
		insID := ins.ID
		r := finance.NewGeneratedRecord(
			ins.DueDate,
			ins.Amount,
			fmt.Sprintf("Fattura %s, %s", inv.InvoiceNumber, ins.Note),
			inv.ID,
			&insID,
		)
		if err := s.records.Create(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// MarkInstallmentPaid flips one installment to paid and re-derives the
// invoice payment status. Implements finance.InstallmentPayments.
func (s *Service) MarkInstallmentPaid(ctx context.Context, invoiceID id.ID, installmentID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		ins := inv.Installment(installmentID)
		if ins == nil {
			return apperror.NewNotFound("installment", installmentID)
		}
		ins.IsPaid = true
		inv.DerivePaymentStatus()
		return s.invoices.Update(ctx, inv)
	})
}

// MarkInvoicePaid marks a schedule-less invoice paid once its single
// generated record is. Implements finance.InstallmentPayments.
func (s *Service) MarkInvoicePaid(ctx context.Context, invoiceID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if len(inv.Installments) > 0 {
			// Scheduled invoices are paid installment by installment.
			inv.DerivePaymentStatus()
		} else {
			inv.PaymentStatus = PaymentPaid
		}
		return s.invoices.Update(ctx, inv)
	})
}

// GetByID returns an invoice with installments.
func (s *Service) GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	return s.invoices.GetByID(ctx, invoiceID)
}

// List returns invoices matching the filter.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Invoice], error) {
	return s.invoices.List(ctx, filter)
}
