package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/domain"
	"bottega/internal/domain/catalogs/product"
)

const (
	productsTable = "products"
	variantsTable = "product_variants"

	// Unique index on product_variants.barcode enforces catalog-wide
	// barcode uniqueness at the storage layer.
	variantBarcodeConstraint = "product_variants_barcode_key"
)

var _ product.Repository = (*ProductRepo)(nil)

// ProductRepo persists products and their variants. Variants live in a
// child table and are replaced wholesale on update; their order is kept
// in a position column.
type ProductRepo struct {
	txManager *TxManager
	cols      []string
}

// NewProductRepo creates the product repository.
func NewProductRepo(txManager *TxManager) *ProductRepo {
	return &ProductRepo{
		txManager: txManager,
		cols:      ExtractDBColumns[product.Product](),
	}
}

// variantRow is the child-table shape of a product variant.
type variantRow struct {
	product.Variant

	ProductID id.ID `db:"product_id"`
	Position  int   `db:"position"`
}

// Create implements product.Repository.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q := builder().Insert(productsTable).SetMap(StructToMap(p))
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build product insert: %w", err)
		}
		if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		return r.insertVariants(ctx, p.ID, p.Variants)
	})
}

// Update implements product.Repository. The products row is updated with
// optimistic locking, then the variant set is replaced.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		data := StructToMap(p)
		delete(data, "id")
		delete(data, "version")

		q := builder().
			Update(productsTable).
			SetMap(data).
			Set("version", squirrel.Expr("version + 1")).
			Where(squirrel.Eq{"id": p.ID}).
			Where(squirrel.Eq{"version": p.Version})

		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build product update: %w", err)
		}
		res, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if res.RowsAffected() == 0 {
			return apperror.NewConcurrentModification("product", p.ID)
		}

		delSQL, delArgs, err := builder().
			Delete(variantsTable).
			Where(squirrel.Eq{"product_id": p.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build variant delete: %w", err)
		}
		if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, delSQL, delArgs...); err != nil {
			return fmt.Errorf("delete variants: %w", err)
		}
		if err := r.insertVariants(ctx, p.ID, p.Variants); err != nil {
			return err
		}

		p.SetVersion(p.Version + 1)
		return nil
	})
}

func (r *ProductRepo) insertVariants(ctx context.Context, productID id.ID, variants []product.Variant) error {
	if len(variants) == 0 {
		return nil
	}

	q := builder().Insert(variantsTable).
		Columns("id", "product_id", "position", "size", "color", "barcode", "stock")
	for i, v := range variants {
		q = q.Values(v.ID, productID, i, v.Size, v.Color, v.Barcode, v.Stock)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build variant insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err, variantBarcodeConstraint) {
			return apperror.NewDuplicate("variant", "barcode", "")
		}
		return fmt.Errorf("insert variants: %w", err)
	}
	return nil
}

// GetByID implements product.Repository.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	sql, args, err := builder().
		Select(r.cols...).
		From(productsTable).
		Where(squirrel.Eq{"id": productID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build product query: %w", err)
	}

	var p product.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", productID.String())
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	if err := r.loadVariants(ctx, []*product.Product{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete implements product.Repository. Variants go with the product via
// ON DELETE CASCADE.
func (r *ProductRepo) Delete(ctx context.Context, productID id.ID) error {
	sql, args, err := builder().
		Delete(productsTable).
		Where(squirrel.Eq{"id": productID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build product delete: %w", err)
	}

	res, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID.String())
	}
	return nil
}

// List implements product.Repository.
func (r *ProductRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*product.Product], error) {
	result := domain.ListResult[*product.Product]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := builder().Select(r.cols...).From(productsTable)

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"category": pattern},
			squirrel.Expr(
				"id IN (SELECT product_id FROM "+variantsTable+" WHERE barcode ILIKE ?)",
				pattern,
			),
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
		return result, fmt.Errorf("count products: %w", err)
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
		return result, fmt.Errorf("build product list: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list products: %w", err)
	}

	if err := r.loadVariants(ctx, result.Items); err != nil {
		return result, err
	}
	return result, nil
}

// loadVariants attaches variants to the given products in one query.
func (r *ProductRepo) loadVariants(ctx context.Context, products []*product.Product) error {
	if len(products) == 0 {
		return nil
	}

	byID := make(map[id.ID]*product.Product, len(products))
	ids := make([]id.ID, 0, len(products))
	for _, p := range products {
		p.Variants = make([]product.Variant, 0)
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	sql, args, err := builder().
		Select("id", "product_id", "position", "size", "color", "barcode", "stock").
		From(variantsTable).
		Where(squirrel.Eq{"product_id": ids}).
		OrderBy("product_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("build variant query: %w", err)
	}

	var rows []variantRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return fmt.Errorf("load variants: %w", err)
	}
	for _, row := range rows {
		if p, ok := byID[row.ProductID]; ok {
			p.Variants = append(p.Variants, row.Variant)
		}
	}
	return nil
}

// FindVariantByBarcode implements product.Repository.
func (r *ProductRepo) FindVariantByBarcode(ctx context.Context, barcode string) (*product.Product, *product.Variant, error) {
	return r.findVariant(ctx, squirrel.Eq{"barcode": barcode}, barcode)
}

// GetVariant implements product.Repository.
func (r *ProductRepo) GetVariant(ctx context.Context, variantID id.ID) (*product.Product, *product.Variant, error) {
	return r.findVariant(ctx, squirrel.Eq{"id": variantID}, variantID.String())
}

func (r *ProductRepo) findVariant(ctx context.Context, where squirrel.Eq, key string) (*product.Product, *product.Variant, error) {
	sql, args, err := builder().
		Select("product_id").
		From(variantsTable).
		Where(where).
		ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("build variant lookup: %w", err)
	}

	var productID id.ID
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &productID, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil, apperror.NewNotFound("variant", key)
		}
		return nil, nil, fmt.Errorf("lookup variant: %w", err)
	}

	p, err := r.GetByID(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.Barcode == key || v.ID.String() == key {
			return p, v, nil
		}
	}
	return nil, nil, apperror.NewNotFound("variant", key)
}

// BarcodeInUse implements product.Repository.
func (r *ProductRepo) BarcodeInUse(ctx context.Context, barcode string, excludeProductID id.ID) (bool, error) {
	sql, args, err := builder().
		Select("COUNT(*)").
		From(variantsTable).
		Where(squirrel.Eq{"barcode": barcode}).
		Where(squirrel.NotEq{"product_id": excludeProductID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build barcode check: %w", err)
	}

	var count int64
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("check barcode: %w", err)
	}
	return count > 0, nil
}

// AdjustStock implements product.Repository. The guard in the WHERE clause
// makes the adjustment atomic: a concurrent checkout cannot drive stock
// below zero.
func (r *ProductRepo) AdjustStock(ctx context.Context, variantID id.ID, delta int) (int, error) {
	const sql = `
		UPDATE product_variants
		SET stock = stock + $2
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING stock
	`
	var newStock int
	querier := r.txManager.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, variantID, delta).Scan(&newStock)
	if err == nil {
		return newStock, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("adjust stock: %w", err)
	}

	// No row matched: either the variant does not exist or the delta would
	// overdraw it. Tell the two apart for a useful error.
	var current int
	lookupErr := querier.QueryRow(ctx,
		"SELECT stock FROM product_variants WHERE id = $1", variantID,
	).Scan(&current)
	if lookupErr != nil {
		if errors.Is(lookupErr, pgx.ErrNoRows) {
			return 0, apperror.NewNotFound("variant", variantID.String())
		}
		return 0, fmt.Errorf("adjust stock: %w", lookupErr)
	}
	return 0, apperror.NewInsufficientStock(variantID.String(), -delta, current)
}
