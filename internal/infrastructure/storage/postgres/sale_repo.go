package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/domain"
	"bottega/internal/domain/documents/sale"
)

const (
	salesTable     = "sales"
	saleItemsTable = "sale_items"
)

var _ sale.Repository = (*SaleRepo)(nil)

// SaleRepo persists committed sales. Sales are append-only, so there is
// no update path; the receipt number carries a unique index.
type SaleRepo struct {
	txManager *TxManager
	cols      []string
}

// NewSaleRepo creates the sale repository.
func NewSaleRepo(txManager *TxManager) *SaleRepo {
	return &SaleRepo{
		txManager: txManager,
		cols:      ExtractDBColumns[sale.Sale](),
	}
}

type saleItemRow struct {
	sale.SaleItem

	SaleID   id.ID `db:"sale_id"`
	Position int   `db:"position"`
}

// Create implements sale.Repository.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q := builder().Insert(salesTable).SetMap(StructToMap(s))
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build sale insert: %w", err)
		}
		if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			if isUniqueViolation(err, "sales_number_key") {
				return apperror.NewDuplicate("sale", "number", s.Number)
			}
			return fmt.Errorf("insert sale: %w", err)
		}

		if len(s.Items) == 0 {
			return nil
		}
		itemQ := builder().Insert(saleItemsTable).
			Columns("sale_id", "position", "product_id", "variant_id",
				"product_name", "size", "color", "barcode", "quantity", "unit_price")
		for i, it := range s.Items {
			itemQ = itemQ.Values(s.ID, i, it.ProductID, it.VariantID,
				it.ProductName, it.Size, it.Color, it.Barcode, it.Quantity, it.UnitPrice)
		}
		itemSQL, itemArgs, err := itemQ.ToSql()
		if err != nil {
			return fmt.Errorf("build sale items insert: %w", err)
		}
		if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, itemSQL, itemArgs...); err != nil {
			return fmt.Errorf("insert sale items: %w", err)
		}
		return nil
	})
}

// GetByID implements sale.Repository.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	sql, args, err := builder().
		Select(r.cols...).
		From(salesTable).
		Where(squirrel.Eq{"id": saleID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sale query: %w", err)
	}

	var s sale.Sale
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID.String())
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	if err := r.loadItems(ctx, []*sale.Sale{&s}); err != nil {
		return nil, err
	}
	return &s, nil
}

// List implements sale.Repository. Default order is newest first, the
// way a register journal reads.
func (r *SaleRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*sale.Sale], error) {
	result := domain.ListResult[*sale.Sale]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := builder().Select(r.cols...).From(salesTable)
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + filter.Search + "%"})
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
		return result, fmt.Errorf("count sales: %w", err)
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
		return result, fmt.Errorf("build sale list: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list sales: %w", err)
	}

	if err := r.loadItems(ctx, result.Items); err != nil {
		return result, err
	}
	return result, nil
}

func (r *SaleRepo) loadItems(ctx context.Context, sales []*sale.Sale) error {
	if len(sales) == 0 {
		return nil
	}

	byID := make(map[id.ID]*sale.Sale, len(sales))
	ids := make([]id.ID, 0, len(sales))
	for _, s := range sales {
		s.Items = make([]sale.SaleItem, 0)
		byID[s.ID] = s
		ids = append(ids, s.ID)
	}

	sql, args, err := builder().
		Select("sale_id", "position", "product_id", "variant_id",
			"product_name", "size", "color", "barcode", "quantity", "unit_price").
		From(saleItemsTable).
		Where(squirrel.Eq{"sale_id": ids}).
		OrderBy("sale_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("build sale items query: %w", err)
	}

	var rows []saleItemRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return fmt.Errorf("load sale items: %w", err)
	}
	for _, row := range rows {
		if s, ok := byID[row.SaleID]; ok {
			s.Items = append(s.Items, row.SaleItem)
		}
	}
	return nil
}
