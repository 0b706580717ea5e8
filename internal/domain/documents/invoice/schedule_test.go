package invoice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bottega/internal/core/apperror"
	"bottega/internal/core/types"
)

func TestGenerateScheduleEvenSplit(t *testing.T) {
	firstDue := time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)

	s, err := GenerateSchedule(types.MustMoney("300.00"), 3, 30, firstDue)
	require.NoError(t, err)

	require.Len(t, s.Installments, 3)
	for i, ins := range s.Installments {
		assert.True(t, ins.Amount.Equal(types.MustMoney("100.00")), "amount %s", ins.Amount)
		assert.Equal(t, firstDue.AddDate(0, 0, i*30), ins.DueDate)
		assert.False(t, ins.IsPaid)
	}
	assert.True(t, s.Drift.IsZero())
}

func TestGenerateScheduleExposesRoundingDrift(t *testing.T) {
	s, err := GenerateSchedule(types.MustMoney("100.00"), 3, 30, time.Now())
	require.NoError(t, err)

	// 3 x 33.33 = 99.99, one cent short of the total.
	for _, ins := range s.Installments {
		assert.True(t, ins.Amount.Equal(types.MustMoney("33.33")), "amount %s", ins.Amount)
	}
	assert.True(t, s.Drift.Equal(types.MustMoney("-0.01")), "drift %s", s.Drift)
}

func TestGenerateScheduleRejectsDriftBeyondOneCent(t *testing.T) {
	// 7 x round2(100/7) = 7 x 14.29 = 100.03.
	_, err := GenerateSchedule(types.MustMoney("100.00"), 7, 30, time.Now())
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestGenerateScheduleValidation(t *testing.T) {
	now := time.Now()

	_, err := GenerateSchedule(types.MustMoney("0"), 3, 30, now)
	assert.Error(t, err, "zero total")

	_, err = GenerateSchedule(types.MustMoney("100.00"), 0, 30, now)
	assert.Error(t, err, "zero count")

	_, err = GenerateSchedule(types.MustMoney("100.00"), 3, 45, now)
	assert.Error(t, err, "unsupported frequency")

	for _, freq := range []int{15, 30, 60, 90} {
		_, err = GenerateSchedule(types.MustMoney("100.00"), 2, freq, now)
		assert.NoError(t, err, "frequency %d", freq)
	}
}

func TestGenerateScheduleSingleInstallment(t *testing.T) {
	due := time.Date(2024, 6, 15, 0, 0, 0, 0, time.Local)

	s, err := GenerateSchedule(types.MustMoney("249.90"), 1, 30, due)
	require.NoError(t, err)
	require.Len(t, s.Installments, 1)
	assert.True(t, s.Installments[0].Amount.Equal(types.MustMoney("249.90")))
	assert.Equal(t, due, s.Installments[0].DueDate)
	assert.True(t, s.Drift.IsZero())
}
