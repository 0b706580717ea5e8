package memory

import (
	"context"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/domain"
	"bottega/internal/domain/documents/sale"
)

// SaleRepo implements sale.Repository on the store. Sales are append-only;
// the slice keeps insertion order for the ledger.
type SaleRepo struct {
	store *Store
}

// NewSaleRepo creates the repo.
func NewSaleRepo(store *Store) *SaleRepo {
	return &SaleRepo{store: store}
}

func cloneSale(s *sale.Sale) *sale.Sale {
	cp := *s
	cp.Items = make([]sale.SaleItem, len(s.Items))
	copy(cp.Items, s.Items)
	return &cp
}

// Create appends the committed sale.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	j, unlock, err := r.store.mutate(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	r.store.sales = append(r.store.sales, cloneSale(s))

	if j != nil {
		j.record(func() { r.store.sales = r.store.sales[:len(r.store.sales)-1] })
	}
	return nil
}

// GetByID returns a copy of the sale.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	defer r.store.enter(ctx)()

	for _, s := range r.store.sales {
		if s.ID == saleID {
			return cloneSale(s), nil
		}
	}
	return nil, apperror.NewNotFound("sale", saleID)
}

// List returns sales in insertion order.
func (r *SaleRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*sale.Sale], error) {
	defer r.store.enter(ctx)()

	page := paginate(r.store.sales, filter.Limit, filter.Offset)
	items := make([]*sale.Sale, len(page))
	for i, s := range page {
		items[i] = cloneSale(s)
	}

	return domain.ListResult[*sale.Sale]{
		Items:      items,
		TotalCount: int64(len(r.store.sales)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}
