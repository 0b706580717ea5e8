package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bottega/internal/core/tx"
	"bottega/pkg/logger"
)

var tracer = otel.Tracer("bottega/tx")

var (
	_ tx.Manager         = (*TxManager)(nil)
	_ tx.ReadOnlyManager = (*TxManager)(nil)
)

// TxManager runs domain transactions on postgres. Nested calls reuse the
// transaction already in the context, so a checkout commit or an invoice
// finalize stays one atomic unit however the services compose.
type TxManager struct {
	pool *pgxpool.Pool

	// statementTimeout bounds every statement inside a transaction.
	statementTimeout time.Duration
}

// NewTxManager creates a transaction manager over the pool.
func NewTxManager(pool *Pool) *TxManager {
	return &TxManager{
		pool:             pool.Pool,
		statementTimeout: 30 * time.Second,
	}
}

type txKey struct{}

// RunInTransaction implements tx.Manager.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, pgx.ReadWrite, fn)
}

// ReadOnly implements tx.ReadOnlyManager.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, pgx.ReadOnly, fn)
}

func (m *TxManager) run(ctx context.Context, mode pgx.TxAccessMode, fn func(ctx context.Context) error) error {
	if existing := txFrom(ctx); existing != nil {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(attribute.String("tx.access_mode", string(mode))))
	defer span.End()

	dbTx, err := m.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: mode,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if m.statementTimeout > 0 {
		_, err = dbTx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", m.statementTimeout.Milliseconds()))
		if err != nil {
			_ = dbTx.Rollback(ctx)
			return fmt.Errorf("set statement_timeout: %w", err)
		}
	}

	if err := fn(context.WithValue(ctx, txKey{}, dbTx)); err != nil {
		// Background context so the rollback completes even when the
		// request context is already cancelled.
		if rbErr := dbTx.Rollback(context.Background()); rbErr != nil {
			logger.Error(ctx, "rollback failed", "error", rbErr, "cause", err)
		}
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func txFrom(ctx context.Context) pgx.Tx {
	if t, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return t
	}
	return nil
}

// Querier is the subset of pgx used by the repositories, satisfied by
// both the pool and an open transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetQuerier returns the active transaction when there is one, the pool
// otherwise. Repos call this so they work inside and outside transactions.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if t := txFrom(ctx); t != nil {
		return t
	}
	return m.pool
}
