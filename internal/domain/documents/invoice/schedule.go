package invoice

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/core/types"
)

// Allowed installment frequencies, in days.
var allowedFrequencies = map[int]struct{}{15: {}, 30: {}, 60: {}, 90: {}}

// Schedule is a generated installment plan. Each installment amount is
// round2(total/count) independently, so the sum can drift from the total
// by rounding; Drift is that difference, kept visible rather than folded
// into any installment.
type Schedule struct {
	Installments []Installment

	// Drift = sum(amounts) - total. Accepted within one cent.
	Drift types.Money
}

// GenerateSchedule splits total into count equal installments due every
// frequencyDays starting at firstDue. The drift between the rounded sum
// and the total is exposed on the schedule; a drift beyond one cent fails
// validation.
func GenerateSchedule(total types.Money, count, frequencyDays int, firstDue time.Time) (*Schedule, error) {
	if !total.IsPositive() {
		return nil, apperror.NewValidation("total must be positive").
			WithDetail("total", total.String())
	}
	if count < 1 {
		return nil, apperror.NewValidation("installment count must be at least 1").
			WithDetail("count", count)
	}
	if _, ok := allowedFrequencies[frequencyDays]; !ok {
		return nil, apperror.NewValidation("frequency must be 15, 30, 60 or 90 days").
			WithDetail("frequencyDays", frequencyDays)
	}

	amount := types.Round2(total.DivRound(decimal.NewFromInt(int64(count)), 6))

	installments := make([]Installment, 0, count)
	sum := types.Zero()
	for i := 0; i < count; i++ {
		installments = append(installments, Installment{
			ID:      id.New(),
			DueDate: firstDue.AddDate(0, 0, i*frequencyDays),
			Amount:  amount,
			Note:    fmt.Sprintf("Rata %d/%d", i+1, count),
		})
		sum = sum.Add(amount)
	}

	drift := sum.Sub(total)
	if drift.Abs().GreaterThan(types.Cent) {
		return nil, apperror.NewValidation("installment rounding drift exceeds one cent").
			WithDetail("total", total.String()).
			WithDetail("sum", sum.String()).
			WithDetail("drift", drift.String())
	}

	return &Schedule{Installments: installments, Drift: drift}, nil
}
