package postgres

import (
	"context"
	"fmt"
	"time"

	"bottega/internal/core/numerator"
)

var _ numerator.Generator = (*NumeratorService)(nil)

// NumeratorService issues gapless document numbers from the
// sys_sequences table with an UPSERT + RETURNING. Called inside the
// checkout transaction, so a rolled-back sale releases no number out of
// order and concurrent registers never collide.
type NumeratorService struct {
	txManager *TxManager
}

// NewNumeratorService creates the postgres-backed number generator.
func NewNumeratorService(txManager *TxManager) *NumeratorService {
	return &NumeratorService{txManager: txManager}
}

// GetNextNumber implements numerator.Generator.
func (s *NumeratorService) GetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time) (string, error) {
	const sql = `
		INSERT INTO sys_sequences (sequence_type, year, current_val)
		VALUES ($1, $2, 1)
		ON CONFLICT (sequence_type, year) DO UPDATE
			SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`

	year := 0
	if cfg.IncludeYear {
		year = period.Year()
	}

	var num int64
	err := s.txManager.GetQuerier(ctx).QueryRow(ctx, sql, cfg.Prefix, year).Scan(&num)
	if err != nil {
		return "", fmt.Errorf("next number for %s: %w", cfg.Prefix, err)
	}
	return cfg.Format(period, num), nil
}
