package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/domain"
	"bottega/internal/domain/catalogs/supplier"
)

const suppliersTable = "suppliers"

var _ supplier.Repository = (*SupplierRepo)(nil)

// SupplierRepo persists the supplier catalog.
type SupplierRepo struct {
	txManager *TxManager
	cols      []string
}

// NewSupplierRepo creates the supplier repository.
func NewSupplierRepo(txManager *TxManager) *SupplierRepo {
	return &SupplierRepo{
		txManager: txManager,
		cols:      ExtractDBColumns[supplier.Supplier](),
	}
}

// Create implements supplier.Repository.
func (r *SupplierRepo) Create(ctx context.Context, s *supplier.Supplier) error {
	sql, args, err := builder().Insert(suppliersTable).SetMap(StructToMap(s)).ToSql()
	if err != nil {
		return fmt.Errorf("build supplier insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err, "suppliers_vat_key") {
			return apperror.NewDuplicate("supplier", "vat", s.VAT)
		}
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

// Update implements supplier.Repository with optimistic locking.
func (r *SupplierRepo) Update(ctx context.Context, s *supplier.Supplier) error {
	data := StructToMap(s)
	delete(data, "id")
	delete(data, "version")

	q := builder().
		Update(suppliersTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": s.ID}).
		Where(squirrel.Eq{"version": s.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build supplier update: %w", err)
	}
	res, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update supplier: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("supplier", s.ID)
	}

	s.SetVersion(s.Version + 1)
	return nil
}

// GetByID implements supplier.Repository.
func (r *SupplierRepo) GetByID(ctx context.Context, supplierID id.ID) (*supplier.Supplier, error) {
	sql, args, err := builder().
		Select(r.cols...).
		From(suppliersTable).
		Where(squirrel.Eq{"id": supplierID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build supplier query: %w", err)
	}

	var s supplier.Supplier
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("supplier", supplierID.String())
		}
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return &s, nil
}

// Delete implements supplier.Repository.
func (r *SupplierRepo) Delete(ctx context.Context, supplierID id.ID) error {
	sql, args, err := builder().
		Delete(suppliersTable).
		Where(squirrel.Eq{"id": supplierID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build supplier delete: %w", err)
	}

	res, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete supplier: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound("supplier", supplierID.String())
	}
	return nil
}

// List implements supplier.Repository.
func (r *SupplierRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*supplier.Supplier], error) {
	result := domain.ListResult[*supplier.Supplier]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := builder().Select(r.cols...).From(suppliersTable)
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"vat": pattern},
		})
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
		return result, fmt.Errorf("count suppliers: %w", err)
	}

	orderBy, err := parseOrderBy(filter.OrderBy, "name", r.cols)
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
		return result, fmt.Errorf("build supplier list: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list suppliers: %w", err)
	}
	return result, nil
}
