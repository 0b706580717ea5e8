package finance

import (
	"context"
	"time"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/core/tx"
	"bottega/internal/core/types"
	"bottega/internal/domain"
	"bottega/pkg/logger"
)

// InstallmentPayments propagates a paid record to the owning invoice so
// its payment status can be re-derived. Implemented by the invoice service;
// kept as a port here to avoid a package cycle. A record without an
// installment link is the single entry of a schedule-less invoice.
type InstallmentPayments interface {
	MarkInstallmentPaid(ctx context.Context, invoiceID id.ID, installmentID id.ID) error
	MarkInvoicePaid(ctx context.Context, invoiceID id.ID) error
}

// Service manages financial records and the paid-state transition.
type Service struct {
	repo      Repository
	txManager tx.Manager
	invoices  InstallmentPayments
}

// NewService creates the financial records service. The invoice link is
// wired later via SetInstallmentPayments.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// SetInstallmentPayments wires the invoice payment-status propagation.
func (s *Service) SetInstallmentPayments(p InstallmentPayments) {
	s.invoices = p
}

// CreateManual records an operator-entered income or expense entry.
func (s *Service) CreateManual(ctx context.Context, date time.Time, amount types.Money, dir Direction, cat Category, description string, dueDate *time.Time) (*Record, error) {
	r := NewManualRecord(date, amount, dir, cat, description)
	r.DueDate = dueDate

	if err := r.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "financial record created",
		"id", r.ID.String(), "direction", string(r.Direction), "amount", r.Amount.String())
	return r, nil
}

// Update applies changes to a manual unpaid record. Generated and paid
// records are locked.
func (s *Service) Update(ctx context.Context, r *Record) error {
	current, err := s.repo.GetByID(ctx, r.ID)
	if err != nil {
		return err
	}
	if !current.IsEditable || current.IsPaid {
		return apperror.NewRecordLocked(r.ID.String())
	}
	if r.IsPaid != current.IsPaid {
		return apperror.NewValidation("paid state changes only through mark-paid")
	}
	if err := r.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, r)
	})
}

// MarkPaid flips the record to paid exactly once and stamps the payment
// method. For a generated record the owning invoice's payment status is
// re-derived in the same transaction.
func (s *Service) MarkPaid(ctx context.Context, recordID id.ID, method string) (*Record, error) {
	var r *Record
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		r, err = s.repo.GetByID(ctx, recordID)
		if err != nil {
			return err
		}
		if r.IsPaid {
			return apperror.NewConflict("record is already paid").
				WithDetail("recordId", recordID.String())
		}

		r.IsPaid = true
		r.PaymentMethod = method
		if err := s.repo.Update(ctx, r); err != nil {
			return err
		}

		if r.InvoiceID != nil && s.invoices != nil {
			if r.InstallmentID != nil {
				return s.invoices.MarkInstallmentPaid(ctx, *r.InvoiceID, *r.InstallmentID)
			}
			return s.invoices.MarkInvoicePaid(ctx, *r.InvoiceID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "record marked paid",
		"id", recordID.String(), "method", method)
	return r, nil
}

// GetByID returns a record by ID.
func (s *Service) GetByID(ctx context.Context, recordID id.ID) (*Record, error) {
	return s.repo.GetByID(ctx, recordID)
}

// List returns records matching the filter.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Record], error) {
	return s.repo.List(ctx, filter)
}

// Delete removes a manual unpaid record.
func (s *Service) Delete(ctx context.Context, recordID id.ID) error {
	r, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return err
	}
	if !r.IsEditable || r.IsPaid {
		return apperror.NewRecordLocked(recordID.String())
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, recordID)
	})
}
