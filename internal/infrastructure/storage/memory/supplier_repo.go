package memory

import (
	"context"
	"sort"
	"strings"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/domain"
	"bottega/internal/domain/catalogs/supplier"
)

// SupplierRepo implements supplier.Repository on the store.
type SupplierRepo struct {
	store *Store
}

// NewSupplierRepo creates the repo.
func NewSupplierRepo(store *Store) *SupplierRepo {
	return &SupplierRepo{store: store}
}

func cloneSupplier(s *supplier.Supplier) *supplier.Supplier {
	cp := *s
	return &cp
}

// Create stores the supplier.
func (r *SupplierRepo) Create(ctx context.Context, s *supplier.Supplier) error {
	j, unlock, err := r.store.mutate(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, exists := r.store.suppliers[s.ID]; exists {
		return apperror.NewConflict("supplier already exists").WithDetail("id", s.ID.String())
	}

	r.store.suppliers[s.ID] = cloneSupplier(s)
	r.store.supplierOrder = append(r.store.supplierOrder, s.ID)

	if j != nil {
		sid := s.ID
		j.record(func() {
			delete(r.store.suppliers, sid)
			r.store.supplierOrder = r.store.supplierOrder[:len(r.store.supplierOrder)-1]
		})
	}
	return nil
}

// Update replaces the stored supplier with a version check.
func (r *SupplierRepo) Update(ctx context.Context, s *supplier.Supplier) error {
	j, unlock, err := r.store.mutate(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	prev, exists := r.store.suppliers[s.ID]
	if !exists {
		return apperror.NewNotFound("supplier", s.ID)
	}
	if s.Version != prev.Version {
		return apperror.NewConcurrentModification("supplier", s.ID)
	}

	stored := cloneSupplier(s)
	stored.Version = prev.Version + 1
	s.SetVersion(stored.Version)
	r.store.suppliers[s.ID] = stored

	if j != nil {
		j.record(func() { r.store.suppliers[prev.ID] = prev })
	}
	return nil
}

// GetByID returns a copy of the supplier.
func (r *SupplierRepo) GetByID(ctx context.Context, supplierID id.ID) (*supplier.Supplier, error) {
	defer r.store.enter(ctx)()

	s, exists := r.store.suppliers[supplierID]
	if !exists {
		return nil, apperror.NewNotFound("supplier", supplierID)
	}
	return cloneSupplier(s), nil
}

// Delete removes the supplier.
func (r *SupplierRepo) Delete(ctx context.Context, supplierID id.ID) error {
	j, unlock, err := r.store.mutate(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	prev, exists := r.store.suppliers[supplierID]
	if !exists {
		return apperror.NewNotFound("supplier", supplierID)
	}

	pos := 0
	for i, sid := range r.store.supplierOrder {
		if sid == supplierID {
			pos = i
			break
		}
	}
	delete(r.store.suppliers, supplierID)
	r.store.supplierOrder = append(r.store.supplierOrder[:pos], r.store.supplierOrder[pos+1:]...)

	if j != nil {
		j.record(func() {
			r.store.suppliers[supplierID] = prev
			r.store.supplierOrder = append(r.store.supplierOrder, id.ID{})
			copy(r.store.supplierOrder[pos+1:], r.store.supplierOrder[pos:])
			r.store.supplierOrder[pos] = supplierID
		})
	}
	return nil
}

// List returns suppliers filtered by substring search on name.
func (r *SupplierRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*supplier.Supplier], error) {
	defer r.store.enter(ctx)()

	matched := make([]*supplier.Supplier, 0, len(r.store.supplierOrder))
	for _, sid := range r.store.supplierOrder {
		s := r.store.suppliers[sid]
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(s.Name), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, s)
	}

	if filter.OrderBy == "name" {
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Name < matched[j].Name
		})
	}

	page := paginate(matched, filter.Limit, filter.Offset)
	items := make([]*supplier.Supplier, len(page))
	for i, s := range page {
		items[i] = cloneSupplier(s)
	}

	return domain.ListResult[*supplier.Supplier]{
		Items:      items,
		TotalCount: int64(len(matched)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}
