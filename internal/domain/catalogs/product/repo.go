package product

import (
	"context"

	"bottega/internal/core/id"
	"bottega/internal/domain"
)

// Repository defines the interface for Product persistence.
// Implementations must keep barcode lookup O(1): the in-memory store
// maintains a barcode index map, the PostgreSQL store a unique index.
type Repository interface {
	// Create inserts a product with all its variants.
	Create(ctx context.Context, p *Product) error

	// Update modifies a product and its variants (optimistic locking).
	Update(ctx context.Context, p *Product) error

	// GetByID retrieves a product with variants.
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// Delete removes a product and its variants.
	Delete(ctx context.Context, productID id.ID) error

	// List retrieves products with filtering and pagination.
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error)

	// FindVariantByBarcode resolves a barcode to its product and variant.
	// Returns apperror.NewNotFound when the barcode is unknown.
	FindVariantByBarcode(ctx context.Context, barcode string) (*Product, *Variant, error)

	// GetVariant resolves a variant ID to its product and variant.
	GetVariant(ctx context.Context, variantID id.ID) (*Product, *Variant, error)

	// BarcodeInUse reports whether the barcode belongs to any product other
	// than excludeProductID.
	BarcodeInUse(ctx context.Context, barcode string, excludeProductID id.ID) (bool, error)

	// AdjustStock applies delta to a variant's stock and returns the new
	// level. A negative delta that would drive stock below zero fails with
	// apperror.NewInsufficientStock and leaves stock unchanged. Must be
	// called within a transaction when part of a multi-line commit.
	AdjustStock(ctx context.Context, variantID id.ID, delta int) (int, error)
}
