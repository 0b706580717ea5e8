package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bottega/internal/core/types"
	"bottega/internal/domain"
	"bottega/internal/domain/documents/invoice"
	"bottega/internal/domain/documents/sale"
	"bottega/internal/domain/finance"
)

// Service aggregates the three transaction sources into the unified
// ledger report.
type Service struct {
	sales    sale.Repository
	invoices invoice.Repository
	records  finance.Repository
}

// NewService wires the ledger over its read-only sources.
func NewService(sales sale.Repository, invoices invoice.Repository, records finance.Repository) *Service {
	return &Service{sales: sales, invoices: invoices, records: records}
}

// Query builds the report. A nil rng means the whole history. Totals are
// computed over paid transactions inside the range; outstanding debt and
// deadlines ignore the range entirely.
func (s *Service) Query(ctx context.Context, rng *DateRange) (*Report, error) {
	all, err := s.merge(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Transactions:    make([]Transaction, 0, len(all)),
		TotalIn:         types.Zero(),
		TotalOut:        types.Zero(),
		OutstandingDebt: types.Zero(),
	}

	now := time.Now()
	for _, t := range all {
		if !t.IsPaid && t.Direction == finance.DirectionOut {
			report.OutstandingDebt = report.OutstandingDebt.Add(t.Amount)
		}
		if !t.IsPaid && t.DueDate != nil {
			report.UpcomingDeadlines = append(report.UpcomingDeadlines, Deadline{
				TransactionID: t.ID,
				DueDate:       *t.DueDate,
				Amount:        t.Amount,
				Description:   t.Description,
				Overdue:       t.DueDate.Before(now),
			})
		}

		if rng != nil && !rng.Contains(t.Date) {
			continue
		}
		report.Transactions = append(report.Transactions, t)

		if t.IsPaid {
			switch t.Direction {
			case finance.DirectionIn:
				report.TotalIn = report.TotalIn.Add(t.Amount)
			case finance.DirectionOut:
				report.TotalOut = report.TotalOut.Add(t.Amount)
			}
		}
	}

	report.NetProfit = report.TotalIn.Sub(report.TotalOut)

	// Newest first; merge order breaks ties.
	sort.SliceStable(report.Transactions, func(i, j int) bool {
		return report.Transactions[i].Date.After(report.Transactions[j].Date)
	})
	sort.SliceStable(report.UpcomingDeadlines, func(i, j int) bool {
		return report.UpcomingDeadlines[i].DueDate.Before(report.UpcomingDeadlines[j].DueDate)
	})

	return report, nil
}

// merge collects all three sources in their insertion order.
func (s *Service) merge(ctx context.Context) ([]Transaction, error) {
	var out []Transaction

	saleList, err := s.sales.List(ctx, domain.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	for _, sl := range saleList.Items {
		out = append(out, Transaction{
			ID:          sl.ID,
			Date:        sl.Date,
			Description: fmt.Sprintf("Scontrino %s", sl.Number),
			Amount:      sl.Total,
			Direction:   finance.DirectionIn,
			Category:    finance.CategorySales,
			IsPaid:      true,
			Source:      SourceSale,
		})
	}

	legacy, err := s.legacyInvoiceEntries(ctx)
	if err != nil {
		return nil, err
	}
	out = append(out, legacy...)

	recList, err := s.records.List(ctx, domain.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	for _, r := range recList.Items {
		out = append(out, Transaction{
			ID:          r.ID,
			Date:        r.Date,
			Description: r.Description,
			Amount:      r.Amount,
			Direction:   r.Direction,
			Category:    r.Category,
			IsPaid:      r.IsPaid,
			DueDate:     r.DueDate,
			Source:      SourceRecord,
		})
	}

	return out, nil
}

// legacyInvoiceEntries synthesizes one OUT entry per completed invoice
// that has neither an installment schedule nor generated records. These
// are invoices imported from before record generation existed; without
// this pass they would vanish from the ledger.
func (s *Service) legacyInvoiceEntries(ctx context.Context) ([]Transaction, error) {
	invList, err := s.invoices.List(ctx, domain.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	var out []Transaction
	for _, inv := range invList.Items {
		if inv.Status != invoice.StatusCompleted || len(inv.Installments) > 0 {
			continue
		}
		linked, err := s.records.ListByInvoice(ctx, inv.ID)
		if err != nil {
			return nil, fmt.Errorf("list invoice records: %w", err)
		}
		if len(linked) > 0 {
			continue
		}

		due := inv.Date
		out = append(out, Transaction{
			ID:          inv.ID,
			Date:        inv.Date,
			Description: fmt.Sprintf("Fattura %s", inv.InvoiceNumber),
			Amount:      inv.TotalAmount,
			Direction:   finance.DirectionOut,
			Category:    finance.CategorySupplier,
			IsPaid:      inv.PaymentStatus == invoice.PaymentPaid,
			DueDate:     &due,
			Source:      SourceInvoice,
		})
	}
	return out, nil
}
