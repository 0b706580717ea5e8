package memory

import (
	"context"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/domain"
	"bottega/internal/domain/documents/invoice"
)

// InvoiceRepo implements invoice.Repository on the store.
type InvoiceRepo struct {
	store *Store
}

// NewInvoiceRepo creates the repo.
func NewInvoiceRepo(store *Store) *InvoiceRepo {
	return &InvoiceRepo{store: store}
}

func cloneInvoice(inv *invoice.Invoice) *invoice.Invoice {
	cp := *inv
	cp.Items = make([]invoice.InvoiceItem, len(inv.Items))
	copy(cp.Items, inv.Items)
	cp.Installments = make([]invoice.Installment, len(inv.Installments))
	copy(cp.Installments, inv.Installments)
	return &cp
}

// Create stores the draft invoice.
func (r *InvoiceRepo) Create(ctx context.Context, inv *invoice.Invoice) error {
	j, unlock, err := r.store.mutate(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, exists := r.store.invoices[inv.ID]; exists {
		return apperror.NewConflict("invoice already exists").WithDetail("id", inv.ID.String())
	}

	r.store.invoices[inv.ID] = cloneInvoice(inv)
	r.store.invoiceOrder = append(r.store.invoiceOrder, inv.ID)

	if j != nil {
		iid := inv.ID
		j.record(func() {
			delete(r.store.invoices, iid)
			r.store.invoiceOrder = r.store.invoiceOrder[:len(r.store.invoiceOrder)-1]
		})
	}
	return nil
}

// Update replaces the stored invoice with a version check.
func (r *InvoiceRepo) Update(ctx context.Context, inv *invoice.Invoice) error {
	j, unlock, err := r.store.mutate(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	prev, exists := r.store.invoices[inv.ID]
	if !exists {
		return apperror.NewNotFound("invoice", inv.ID)
	}
	if inv.Version != prev.Version {
		return apperror.NewConcurrentModification("invoice", inv.ID)
	}

	stored := cloneInvoice(inv)
	stored.Version = prev.Version + 1
	inv.SetVersion(stored.Version)
	r.store.invoices[inv.ID] = stored

	if j != nil {
		j.record(func() { r.store.invoices[prev.ID] = prev })
	}
	return nil
}

// GetByID returns a copy of the invoice with its installments.
func (r *InvoiceRepo) GetByID(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	defer r.store.enter(ctx)()

	inv, exists := r.store.invoices[invoiceID]
	if !exists {
		return nil, apperror.NewNotFound("invoice", invoiceID)
	}
	return cloneInvoice(inv), nil
}

// List returns invoices in insertion order.
func (r *InvoiceRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	defer r.store.enter(ctx)()

	all := make([]*invoice.Invoice, 0, len(r.store.invoiceOrder))
	for _, iid := range r.store.invoiceOrder {
		all = append(all, r.store.invoices[iid])
	}

	page := paginate(all, filter.Limit, filter.Offset)
	items := make([]*invoice.Invoice, len(page))
	for i, inv := range page {
		items[i] = cloneInvoice(inv)
	}

	return domain.ListResult[*invoice.Invoice]{
		Items:      items,
		TotalCount: int64(len(all)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

// Delete removes a draft invoice.
func (r *InvoiceRepo) Delete(ctx context.Context, invoiceID id.ID) error {
	j, unlock, err := r.store.mutate(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	prev, exists := r.store.invoices[invoiceID]
	if !exists {
		return apperror.NewNotFound("invoice", invoiceID)
	}

	pos := 0
	for i, iid := range r.store.invoiceOrder {
		if iid == invoiceID {
			pos = i
			break
		}
	}
	delete(r.store.invoices, invoiceID)
	r.store.invoiceOrder = append(r.store.invoiceOrder[:pos], r.store.invoiceOrder[pos+1:]...)

	if j != nil {
		j.record(func() {
			r.store.invoices[invoiceID] = prev
			r.store.invoiceOrder = append(r.store.invoiceOrder, id.ID{})
			copy(r.store.invoiceOrder[pos+1:], r.store.invoiceOrder[pos:])
			r.store.invoiceOrder[pos] = invoiceID
		})
	}
	return nil
}
