package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/domain"
	"bottega/internal/domain/finance"
)

const recordsTable = "financial_records"

var _ finance.Repository = (*RecordRepo)(nil)

// RecordRepo persists financial records. Records are flat rows, so this
// is the simplest of the repos.
type RecordRepo struct {
	txManager *TxManager
	cols      []string
}

// NewRecordRepo creates the financial record repository.
func NewRecordRepo(txManager *TxManager) *RecordRepo {
	return &RecordRepo{
		txManager: txManager,
		cols:      ExtractDBColumns[finance.Record](),
	}
}

// Create implements finance.Repository.
func (r *RecordRepo) Create(ctx context.Context, rec *finance.Record) error {
	sql, args, err := builder().Insert(recordsTable).SetMap(StructToMap(rec)).ToSql()
	if err != nil {
		return fmt.Errorf("build record insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Update implements finance.Repository with optimistic locking.
func (r *RecordRepo) Update(ctx context.Context, rec *finance.Record) error {
	data := StructToMap(rec)
	delete(data, "id")
	delete(data, "version")

	q := builder().
		Update(recordsTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": rec.ID}).
		Where(squirrel.Eq{"version": rec.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build record update: %w", err)
	}
	res, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("record", rec.ID)
	}

	rec.SetVersion(rec.Version + 1)
	return nil
}

// GetByID implements finance.Repository.
func (r *RecordRepo) GetByID(ctx context.Context, recordID id.ID) (*finance.Record, error) {
	sql, args, err := builder().
		Select(r.cols...).
		From(recordsTable).
		Where(squirrel.Eq{"id": recordID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build record query: %w", err)
	}

	var rec finance.Record
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("record", recordID.String())
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return &rec, nil
}

// List implements finance.Repository.
func (r *RecordRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*finance.Record], error) {
	result := domain.ListResult[*finance.Record]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := builder().Select(r.cols...).From(recordsTable)
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"description": "%" + filter.Search + "%"})
	}
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}

	countSQL, countArgs, err := builder().
		Select("COUNT(*)").
		FromSelect(q, "sub").
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count records: %w", err)
	}

	orderBy, err := parseOrderBy(filter.OrderBy, "-date", r.cols)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build record list: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list records: %w", err)
	}
	return result, nil
}

// ListByInvoice implements finance.Repository.
func (r *RecordRepo) ListByInvoice(ctx context.Context, invoiceID id.ID) ([]*finance.Record, error) {
	sql, args, err := builder().
		Select(r.cols...).
		From(recordsTable).
		Where(squirrel.Eq{"invoice_id": invoiceID}).
		OrderBy("due_date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build invoice records query: %w", err)
	}

	var records []*finance.Record
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &records, sql, args...); err != nil {
		return nil, fmt.Errorf("list invoice records: %w", err)
	}
	return records, nil
}

// Delete implements finance.Repository.
func (r *RecordRepo) Delete(ctx context.Context, recordID id.ID) error {
	sql, args, err := builder().
		Delete(recordsTable).
		Where(squirrel.Eq{"id": recordID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build record delete: %w", err)
	}

	res, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound("record", recordID.String())
	}
	return nil
}
