package product

import (
	"context"
	"fmt"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/core/tx"
	"bottega/internal/domain"
	"bottega/pkg/logger"
)

// Service is the catalog store: the single source of truth for products and
// their variant-level stock. All stock mutation in the engine goes through
// this service (or through repo.AdjustStock inside a document transaction).
type Service struct {
	repo      Repository
	txManager tx.Manager
	pricing   PricingParams
	hooks     *domain.HookRegistry[*Product]
}

// NewService creates a new catalog service.
func NewService(repo Repository, txManager tx.Manager, pricing PricingParams) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		pricing:   pricing,
		hooks:     domain.NewHookRegistry[*Product](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Product] {
	return s.hooks
}

// Pricing returns the store-level pricing parameters.
func (s *Service) Pricing() PricingParams {
	return s.pricing
}

// Create validates and stores a new product. Barcodes are checked against
// the whole catalog, not just the new product's own variants.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := s.hooks.Run(ctx, domain.BeforeCreate, p); err != nil {
		return err
	}

	if err := p.Validate(ctx); err != nil {
		return err
	}

	if err := s.checkBarcodesFree(ctx, p); err != nil {
		return err
	}

	if err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, p)
	}); err != nil {
		return err
	}

	if err := s.hooks.Run(ctx, domain.AfterCreate, p); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "product created",
		"id", p.ID,
		"name", p.Name,
		"variants", len(p.Variants))

	return nil
}

// Update validates and saves product changes, re-running the pricing
// recomputation is the caller's responsibility via SetPricing/SetRetailPrice.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if err := s.hooks.Run(ctx, domain.BeforeUpdate, p); err != nil {
		return err
	}

	if err := p.Validate(ctx); err != nil {
		return err
	}

	if err := s.checkBarcodesFree(ctx, p); err != nil {
		return err
	}

	if err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, p)
	}); err != nil {
		return err
	}

	if err := s.hooks.Run(ctx, domain.AfterUpdate, p); err != nil {
		logger.Warn(ctx, "after-update hook failed", "error", err)
	}

	return nil
}

// GetByID retrieves a product with variants.
func (s *Service) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// Delete removes a product from the catalog.
func (s *Service) Delete(ctx context.Context, productID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, productID)
	})
}

// List retrieves products with filtering.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error) {
	return s.repo.List(ctx, filter)
}

// FindVariantByBarcode resolves a barcode anywhere in the catalog.
func (s *Service) FindVariantByBarcode(ctx context.Context, barcode string) (*Product, *Variant, error) {
	return s.repo.FindVariantByBarcode(ctx, barcode)
}

// GetVariant resolves a variant ID to its product and variant.
func (s *Service) GetVariant(ctx context.Context, variantID id.ID) (*Product, *Variant, error) {
	return s.repo.GetVariant(ctx, variantID)
}

// AdjustStock applies a manual stock correction to one variant.
func (s *Service) AdjustStock(ctx context.Context, variantID id.ID, delta int) (int, error) {
	var newStock int
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		newStock, err = s.repo.AdjustStock(ctx, variantID, delta)
		return err
	})
	if err != nil {
		return 0, err
	}

	logger.Info(ctx, "stock adjusted",
		"variant_id", variantID,
		"delta", delta,
		"new_stock", newStock)

	return newStock, nil
}

// TotalStock sums stock across all variants of a product.
func (s *Service) TotalStock(ctx context.Context, productID id.ID) (int, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return 0, err
	}
	return p.TotalStock(), nil
}

// checkBarcodesFree rejects any variant barcode already used by another
// product. Uniqueness within the product itself is covered by Validate.
func (s *Service) checkBarcodesFree(ctx context.Context, p *Product) error {
	for _, v := range p.Variants {
		inUse, err := s.repo.BarcodeInUse(ctx, v.Barcode, p.ID)
		if err != nil {
			return fmt.Errorf("check barcode %s: %w", v.Barcode, err)
		}
		if inUse {
			return apperror.NewDuplicate("variant", "barcode", v.Barcode)
		}
	}
	return nil
}
