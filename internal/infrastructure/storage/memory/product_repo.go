package memory

import (
	"context"
	"sort"
	"strings"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/domain"
	"bottega/internal/domain/catalogs/product"
)

// ProductRepo implements product.Repository on the store.
type ProductRepo struct {
	store *Store
}

// NewProductRepo creates the repo.
func NewProductRepo(store *Store) *ProductRepo {
	return &ProductRepo{store: store}
}

func cloneProduct(p *product.Product) *product.Product {
	cp := *p
	cp.Variants = make([]product.Variant, len(p.Variants))
	copy(cp.Variants, p.Variants)
	return &cp
}

// Create stores the product and indexes its variant barcodes.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	j, unlock, err := r.store.mutate(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, exists := r.store.products[p.ID]; exists {
		return apperror.NewConflict("product already exists").WithDetail("id", p.ID.String())
	}
	for _, v := range p.Variants {
		if _, taken := r.store.barcodeIndex[v.Barcode]; taken {
			return apperror.NewDuplicate("variant", "barcode", v.Barcode)
		}
	}

	stored := cloneProduct(p)
	r.store.products[p.ID] = stored
	r.store.productOrder = append(r.store.productOrder, p.ID)
	for _, v := range stored.Variants {
		r.store.variantIndex[v.ID] = p.ID
		r.store.barcodeIndex[v.Barcode] = v.ID
	}

	if j != nil {
		pid := p.ID
		j.record(func() { r.dropLocked(pid) })
	}
	return nil
}

// Update replaces the stored product, re-indexing variants. The version
// check rejects lost updates.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	j, unlock, err := r.store.mutate(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	prev, exists := r.store.products[p.ID]
	if !exists {
		return apperror.NewNotFound("product", p.ID)
	}
	if p.Version != prev.Version {
		return apperror.NewConcurrentModification("product", p.ID)
	}
	for _, v := range p.Variants {
		if owner, taken := r.store.barcodeIndex[v.Barcode]; taken {
			if ownerProduct := r.store.variantIndex[owner]; ownerProduct != p.ID {
				return apperror.NewDuplicate("variant", "barcode", v.Barcode)
			}
		}
	}

	stored := cloneProduct(p)
	stored.Version = prev.Version + 1
	p.SetVersion(stored.Version)

	r.unindexLocked(prev)
	r.store.products[p.ID] = stored
	for _, v := range stored.Variants {
		r.store.variantIndex[v.ID] = p.ID
		r.store.barcodeIndex[v.Barcode] = v.ID
	}

	if j != nil {
		j.record(func() {
			r.unindexLocked(stored)
			r.store.products[prev.ID] = prev
			for _, v := range prev.Variants {
				r.store.variantIndex[v.ID] = prev.ID
				r.store.barcodeIndex[v.Barcode] = v.ID
			}
		})
	}
	return nil
}

// GetByID returns a copy of the product.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	defer r.store.enter(ctx)()

	p, exists := r.store.products[productID]
	if !exists {
		return nil, apperror.NewNotFound("product", productID)
	}
	return cloneProduct(p), nil
}

// Delete removes the product and its indexes.
func (r *ProductRepo) Delete(ctx context.Context, productID id.ID) error {
	j, unlock, err := r.store.mutate(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	prev, exists := r.store.products[productID]
	if !exists {
		return apperror.NewNotFound("product", productID)
	}

	pos := r.orderPos(productID)
	r.dropLocked(productID)

	if j != nil {
		j.record(func() {
			r.store.products[productID] = prev
			r.store.productOrder = append(r.store.productOrder, id.ID{})
			copy(r.store.productOrder[pos+1:], r.store.productOrder[pos:])
			r.store.productOrder[pos] = productID
			for _, v := range prev.Variants {
				r.store.variantIndex[v.ID] = productID
				r.store.barcodeIndex[v.Barcode] = v.ID
			}
		})
	}
	return nil
}

// List returns products filtered by substring search on name, category and
// variant barcodes.
func (r *ProductRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*product.Product], error) {
	defer r.store.enter(ctx)()

	matched := make([]*product.Product, 0, len(r.store.productOrder))
	for _, pid := range r.store.productOrder {
		p := r.store.products[pid]
		if filter.Search != "" && !productMatches(p, filter.Search) {
			continue
		}
		if len(filter.IDs) > 0 && !containsID(filter.IDs, pid) {
			continue
		}
		matched = append(matched, p)
	}

	if filter.OrderBy == "name" {
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Name < matched[j].Name
		})
	}

	page := paginate(matched, filter.Limit, filter.Offset)
	items := make([]*product.Product, len(page))
	for i, p := range page {
		items[i] = cloneProduct(p)
	}

	return domain.ListResult[*product.Product]{
		Items:      items,
		TotalCount: int64(len(matched)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

// FindVariantByBarcode resolves a barcode to its product and variant.
func (r *ProductRepo) FindVariantByBarcode(ctx context.Context, barcode string) (*product.Product, *product.Variant, error) {
	defer r.store.enter(ctx)()

	variantID, ok := r.store.barcodeIndex[barcode]
	if !ok {
		return nil, nil, apperror.NewNotFound("variant", barcode)
	}
	return r.variantLocked(variantID)
}

// GetVariant returns the owning product and the variant.
func (r *ProductRepo) GetVariant(ctx context.Context, variantID id.ID) (*product.Product, *product.Variant, error) {
	defer r.store.enter(ctx)()
	return r.variantLocked(variantID)
}

// BarcodeInUse reports whether another product already uses the barcode.
func (r *ProductRepo) BarcodeInUse(ctx context.Context, barcode string, excludeProductID id.ID) (bool, error) {
	defer r.store.enter(ctx)()

	variantID, ok := r.store.barcodeIndex[barcode]
	if !ok {
		return false, nil
	}
	return r.store.variantIndex[variantID] != excludeProductID, nil
}

// AdjustStock applies the delta to the variant's stock and returns the new
// level. A negative result fails with CodeInsufficientStock and nothing
// changes.
func (r *ProductRepo) AdjustStock(ctx context.Context, variantID id.ID, delta int) (int, error) {
	j, unlock, err := r.store.mutate(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	productID, ok := r.store.variantIndex[variantID]
	if !ok {
		return 0, apperror.NewNotFound("variant", variantID)
	}
	v := r.store.products[productID].Variant(variantID)

	if v.Stock+delta < 0 {
		return 0, apperror.NewInsufficientStock(variantID.String(), -delta, v.Stock).
			WithDetail("barcode", v.Barcode)
	}

	prev := v.Stock
	v.Stock += delta
	if j != nil {
		j.record(func() { v.Stock = prev })
	}
	return v.Stock, nil
}

func (r *ProductRepo) variantLocked(variantID id.ID) (*product.Product, *product.Variant, error) {
	productID, ok := r.store.variantIndex[variantID]
	if !ok {
		return nil, nil, apperror.NewNotFound("variant", variantID)
	}
	p := cloneProduct(r.store.products[productID])
	return p, p.Variant(variantID), nil
}

func (r *ProductRepo) dropLocked(productID id.ID) {
	p := r.store.products[productID]
	if p == nil {
		return
	}
	r.unindexLocked(p)
	delete(r.store.products, productID)
	pos := r.orderPos(productID)
	if pos >= 0 {
		r.store.productOrder = append(r.store.productOrder[:pos], r.store.productOrder[pos+1:]...)
	}
}

func (r *ProductRepo) unindexLocked(p *product.Product) {
	for _, v := range p.Variants {
		delete(r.store.variantIndex, v.ID)
		delete(r.store.barcodeIndex, v.Barcode)
	}
}

func (r *ProductRepo) orderPos(productID id.ID) int {
	for i, pid := range r.store.productOrder {
		if pid == productID {
			return i
		}
	}
	return -1
}

func productMatches(p *product.Product, search string) bool {
	q := strings.ToLower(search)
	if strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Category), q) {
		return true
	}
	for _, v := range p.Variants {
		if strings.Contains(v.Barcode, search) {
			return true
		}
	}
	return false
}

func containsID(ids []id.ID, target id.ID) bool {
	for _, v := range ids {
		if v == target {
			return true
		}
	}
	return false
}
