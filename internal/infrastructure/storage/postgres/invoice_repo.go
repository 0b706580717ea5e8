package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/domain"
	"bottega/internal/domain/documents/invoice"
)

const (
	invoicesTable     = "invoices"
	invoiceItemsTable = "invoice_items"
	installmentsTable = "invoice_installments"
)

var _ invoice.Repository = (*InvoiceRepo)(nil)

// InvoiceRepo persists supplier invoices with their line items and
// installment schedule. Both child sets are replaced wholesale on update,
// which keeps the schedule regeneration path simple.
type InvoiceRepo struct {
	txManager *TxManager
	cols      []string
}

// NewInvoiceRepo creates the invoice repository.
func NewInvoiceRepo(txManager *TxManager) *InvoiceRepo {
	return &InvoiceRepo{
		txManager: txManager,
		cols:      ExtractDBColumns[invoice.Invoice](),
	}
}

type invoiceItemRow struct {
	invoice.InvoiceItem

	InvoiceID id.ID `db:"invoice_id"`
	Position  int   `db:"position"`
}

type installmentRow struct {
	invoice.Installment

	InvoiceID id.ID `db:"invoice_id"`
	Position  int   `db:"position"`
}

// Create implements invoice.Repository.
func (r *InvoiceRepo) Create(ctx context.Context, inv *invoice.Invoice) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q := builder().Insert(invoicesTable).SetMap(StructToMap(inv))
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build invoice insert: %w", err)
		}
		if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		return r.insertChildren(ctx, inv)
	})
}

// Update implements invoice.Repository, with optimistic locking on the
// invoices row.
func (r *InvoiceRepo) Update(ctx context.Context, inv *invoice.Invoice) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		data := StructToMap(inv)
		delete(data, "id")
		delete(data, "version")

		q := builder().
			Update(invoicesTable).
			SetMap(data).
			Set("version", squirrel.Expr("version + 1")).
			Where(squirrel.Eq{"id": inv.ID}).
			Where(squirrel.Eq{"version": inv.Version})

		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build invoice update: %w", err)
		}
		res, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		if res.RowsAffected() == 0 {
			return apperror.NewConcurrentModification("invoice", inv.ID)
		}

		for _, table := range []string{invoiceItemsTable, installmentsTable} {
			delSQL, delArgs, err := builder().
				Delete(table).
				Where(squirrel.Eq{"invoice_id": inv.ID}).
				ToSql()
			if err != nil {
				return fmt.Errorf("build %s delete: %w", table, err)
			}
			if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, delSQL, delArgs...); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}
		if err := r.insertChildren(ctx, inv); err != nil {
			return err
		}

		inv.SetVersion(inv.Version + 1)
		return nil
	})
}

func (r *InvoiceRepo) insertChildren(ctx context.Context, inv *invoice.Invoice) error {
	if len(inv.Items) > 0 {
		q := builder().Insert(invoiceItemsTable).
			Columns("invoice_id", "position", "product_id", "variant_id",
				"product_name", "barcode", "quantity", "unit_cost")
		for i, it := range inv.Items {
			q = q.Values(inv.ID, i, it.ProductID, it.VariantID,
				it.ProductName, it.Barcode, it.Quantity, it.UnitCost)
		}
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build invoice items insert: %w", err)
		}
		if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert invoice items: %w", err)
		}
	}

	if len(inv.Installments) > 0 {
		q := builder().Insert(installmentsTable).
			Columns("id", "invoice_id", "position", "due_date", "amount", "is_paid", "note")
		for i, inst := range inv.Installments {
			q = q.Values(inst.ID, inv.ID, i, inst.DueDate, inst.Amount, inst.IsPaid, inst.Note)
		}
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build installments insert: %w", err)
		}
		if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert installments: %w", err)
		}
	}
	return nil
}

// GetByID implements invoice.Repository.
func (r *InvoiceRepo) GetByID(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	sql, args, err := builder().
		Select(r.cols...).
		From(invoicesTable).
		Where(squirrel.Eq{"id": invoiceID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build invoice query: %w", err)
	}

	var inv invoice.Invoice
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &inv, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("invoice", invoiceID.String())
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}

	if err := r.loadChildren(ctx, []*invoice.Invoice{&inv}); err != nil {
		return nil, err
	}
	return &inv, nil
}

// List implements invoice.Repository.
func (r *InvoiceRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	result := domain.ListResult[*invoice.Invoice]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := builder().Select(r.cols...).From(invoicesTable)
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"invoice_number": "%" + filter.Search + "%"})
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
		return result, fmt.Errorf("count invoices: %w", err)
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
		return result, fmt.Errorf("build invoice list: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list invoices: %w", err)
	}

	if err := r.loadChildren(ctx, result.Items); err != nil {
		return result, err
	}
	return result, nil
}

// Delete implements invoice.Repository. Line items and installments go
// via ON DELETE CASCADE.
func (r *InvoiceRepo) Delete(ctx context.Context, invoiceID id.ID) error {
	sql, args, err := builder().
		Delete(invoicesTable).
		Where(squirrel.Eq{"id": invoiceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build invoice delete: %w", err)
	}

	res, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound("invoice", invoiceID.String())
	}
	return nil
}

func (r *InvoiceRepo) loadChildren(ctx context.Context, invoices []*invoice.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}

	byID := make(map[id.ID]*invoice.Invoice, len(invoices))
	ids := make([]id.ID, 0, len(invoices))
	for _, inv := range invoices {
		inv.Items = make([]invoice.InvoiceItem, 0)
		inv.Installments = make([]invoice.Installment, 0)
		byID[inv.ID] = inv
		ids = append(ids, inv.ID)
	}
	querier := r.txManager.GetQuerier(ctx)

	itemSQL, itemArgs, err := builder().
		Select("invoice_id", "position", "product_id", "variant_id",
			"product_name", "barcode", "quantity", "unit_cost").
		From(invoiceItemsTable).
		Where(squirrel.Eq{"invoice_id": ids}).
		OrderBy("invoice_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("build invoice items query: %w", err)
	}
	var itemRows []invoiceItemRow
	if err := pgxscan.Select(ctx, querier, &itemRows, itemSQL, itemArgs...); err != nil {
		return fmt.Errorf("load invoice items: %w", err)
	}
	for _, row := range itemRows {
		if inv, ok := byID[row.InvoiceID]; ok {
			inv.Items = append(inv.Items, row.InvoiceItem)
		}
	}

	instSQL, instArgs, err := builder().
		Select("id", "invoice_id", "position", "due_date", "amount", "is_paid", "note").
		From(installmentsTable).
		Where(squirrel.Eq{"invoice_id": ids}).
		OrderBy("invoice_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("build installments query: %w", err)
	}
	var instRows []installmentRow
	if err := pgxscan.Select(ctx, querier, &instRows, instSQL, instArgs...); err != nil {
		return fmt.Errorf("load installments: %w", err)
	}
	for _, row := range instRows {
		if inv, ok := byID[row.InvoiceID]; ok {
			inv.Installments = append(inv.Installments, row.Installment)
		}
	}
	return nil
}
