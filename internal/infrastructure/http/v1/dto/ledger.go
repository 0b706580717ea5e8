package dto

import (
	"time"

	"bottega/internal/domain/ledger"
)

// LedgerQuery for GET /ledger. Both bounds optional; when both are set
// the range is inclusive of each day.
type LedgerQuery struct {
	From *time.Time `form:"from" time_format:"2006-01-02"`
	To   *time.Time `form:"to" time_format:"2006-01-02"`
}

// ToDateRange converts the query to a domain range, nil when unbounded.
func (q LedgerQuery) ToDateRange() *ledger.DateRange {
	if q.From == nil && q.To == nil {
		return nil
	}
	rng := &ledger.DateRange{
		Start: time.Date(1970, 1, 1, 0, 0, 0, 0, time.Local),
		End:   time.Date(9999, 12, 31, 0, 0, 0, 0, time.Local),
	}
	if q.From != nil {
		rng.Start = *q.From
	}
	if q.To != nil {
		rng.End = *q.To
	}
	return rng
}
