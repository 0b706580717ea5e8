package memory

import (
	"context"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/domain"
	"bottega/internal/domain/finance"
)

// RecordRepo implements finance.Repository on the store.
type RecordRepo struct {
	store *Store
}

// NewRecordRepo creates the repo.
func NewRecordRepo(store *Store) *RecordRepo {
	return &RecordRepo{store: store}
}

func cloneRecord(rec *finance.Record) *finance.Record {
	cp := *rec
	if rec.DueDate != nil {
		due := *rec.DueDate
		cp.DueDate = &due
	}
	if rec.InvoiceID != nil {
		iid := *rec.InvoiceID
		cp.InvoiceID = &iid
	}
	if rec.InstallmentID != nil {
		insID := *rec.InstallmentID
		cp.InstallmentID = &insID
	}
	return &cp
}

// Create stores the record.
func (r *RecordRepo) Create(ctx context.Context, rec *finance.Record) error {
	j, unlock, err := r.store.mutate(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, exists := r.store.records[rec.ID]; exists {
		return apperror.NewConflict("record already exists").WithDetail("id", rec.ID.String())
	}

	r.store.records[rec.ID] = cloneRecord(rec)
	r.store.recordOrder = append(r.store.recordOrder, rec.ID)

	if j != nil {
		rid := rec.ID
		j.record(func() {
			delete(r.store.records, rid)
			r.store.recordOrder = r.store.recordOrder[:len(r.store.recordOrder)-1]
		})
	}
	return nil
}

// Update replaces the stored record with a version check.
func (r *RecordRepo) Update(ctx context.Context, rec *finance.Record) error {
	j, unlock, err := r.store.mutate(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	prev, exists := r.store.records[rec.ID]
	if !exists {
		return apperror.NewNotFound("record", rec.ID)
	}
	if rec.Version != prev.Version {
		return apperror.NewConcurrentModification("record", rec.ID)
	}

	stored := cloneRecord(rec)
	stored.Version = prev.Version + 1
	rec.SetVersion(stored.Version)
	r.store.records[rec.ID] = stored

	if j != nil {
		j.record(func() { r.store.records[prev.ID] = prev })
	}
	return nil
}

// GetByID returns a copy of the record.
func (r *RecordRepo) GetByID(ctx context.Context, recordID id.ID) (*finance.Record, error) {
	defer r.store.enter(ctx)()

	rec, exists := r.store.records[recordID]
	if !exists {
		return nil, apperror.NewNotFound("record", recordID)
	}
	return cloneRecord(rec), nil
}

// List returns records in insertion order.
func (r *RecordRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*finance.Record], error) {
	defer r.store.enter(ctx)()

	all := make([]*finance.Record, 0, len(r.store.recordOrder))
	for _, rid := range r.store.recordOrder {
		all = append(all, r.store.records[rid])
	}

	page := paginate(all, filter.Limit, filter.Offset)
	items := make([]*finance.Record, len(page))
	for i, rec := range page {
		items[i] = cloneRecord(rec)
	}

	return domain.ListResult[*finance.Record]{
		Items:      items,
		TotalCount: int64(len(all)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

// ListByInvoice returns the records linked to an invoice, insertion order.
func (r *RecordRepo) ListByInvoice(ctx context.Context, invoiceID id.ID) ([]*finance.Record, error) {
	defer r.store.enter(ctx)()

	var out []*finance.Record
	for _, rid := range r.store.recordOrder {
		rec := r.store.records[rid]
		if rec.InvoiceID != nil && *rec.InvoiceID == invoiceID {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

// Delete removes the record.
func (r *RecordRepo) Delete(ctx context.Context, recordID id.ID) error {
	j, unlock, err := r.store.mutate(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	prev, exists := r.store.records[recordID]
	if !exists {
		return apperror.NewNotFound("record", recordID)
	}

	pos := 0
	for i, rid := range r.store.recordOrder {
		if rid == recordID {
			pos = i
			break
		}
	}
	delete(r.store.records, recordID)
	r.store.recordOrder = append(r.store.recordOrder[:pos], r.store.recordOrder[pos+1:]...)

	if j != nil {
		j.record(func() {
			r.store.records[recordID] = prev
			r.store.recordOrder = append(r.store.recordOrder, id.ID{})
			copy(r.store.recordOrder[pos+1:], r.store.recordOrder[pos:])
			r.store.recordOrder[pos] = recordID
		})
	}
	return nil
}
