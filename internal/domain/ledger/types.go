// Package ledger builds the unified financial view of the store: sales,
// supplier invoices and financial records merged into one reconciled
// report. Reads are point-in-time snapshots; the ledger never writes.
package ledger

import (
	"time"

	"bottega/internal/core/id"
	"bottega/internal/core/types"
	"bottega/internal/domain/finance"
)

// Source tells which document a ledger transaction came from.
type Source string

const (
	SourceSale    Source = "SALE"
	SourceInvoice Source = "INVOICE"
	SourceRecord  Source = "RECORD"
)

// Transaction is one row of the unified ledger.
type Transaction struct {
	ID          id.ID             `json:"id"`
	Date        time.Time         `json:"date"`
	Description string            `json:"description"`
	Amount      types.Money       `json:"amount"`
	Direction   finance.Direction `json:"type"`
	Category    finance.Category  `json:"category"`
	IsPaid      bool              `json:"isPaid"`
	DueDate     *time.Time        `json:"dueDate,omitempty"`
	Source      Source            `json:"source"`
}

// Deadline is one unpaid dated obligation.
type Deadline struct {
	TransactionID id.ID       `json:"transactionId"`
	DueDate       time.Time   `json:"dueDate"`
	Amount        types.Money `json:"amount"`
	Description   string      `json:"description"`
	Overdue       bool        `json:"overdue"`
}

// DateRange filters transactions by calendar day, both ends inclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether d's calendar day falls inside the range.
// The date is normalized to local midnight before comparing, so a
// timestamped sale at 18:30 on the end day is still included.
func (r DateRange) Contains(d time.Time) bool {
	day := atMidnight(d)
	return !day.Before(atMidnight(r.Start)) && !day.After(atMidnight(r.End))
}

func atMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Report is the aggregated ledger view. TotalIn, TotalOut and NetProfit
// respect the date filter; OutstandingDebt and UpcomingDeadlines always
// cover the whole ledger.
type Report struct {
	Transactions      []Transaction `json:"transactions"`
	TotalIn           types.Money   `json:"totalIn"`
	TotalOut          types.Money   `json:"totalOut"`
	NetProfit         types.Money   `json:"netProfit"`
	OutstandingDebt   types.Money   `json:"outstandingDebt"`
	UpcomingDeadlines []Deadline    `json:"upcomingDeadlines"`
}
