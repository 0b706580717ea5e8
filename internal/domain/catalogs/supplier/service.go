package supplier

import (
	"context"

	"bottega/internal/core/id"
	"bottega/internal/core/tx"
	"bottega/internal/domain"
	"bottega/pkg/logger"
)

// Repository defines the interface for Supplier persistence.
type Repository interface {
	Create(ctx context.Context, s *Supplier) error
	Update(ctx context.Context, s *Supplier) error
	GetByID(ctx context.Context, supplierID id.ID) (*Supplier, error)
	Delete(ctx context.Context, supplierID id.ID) error
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Supplier], error)
}

// Service provides business logic for the Supplier catalog.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new Supplier service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// Create validates and stores a new supplier.
func (s *Service) Create(ctx context.Context, sup *Supplier) error {
	if err := sup.Validate(ctx); err != nil {
		return err
	}

	if err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, sup)
	}); err != nil {
		return err
	}

	logger.Info(ctx, "supplier created", "id", sup.ID, "name", sup.Name)
	return nil
}

// Update validates and saves supplier changes.
func (s *Service) Update(ctx context.Context, sup *Supplier) error {
	if err := sup.Validate(ctx); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, sup)
	})
}

// GetByID retrieves a supplier.
func (s *Service) GetByID(ctx context.Context, supplierID id.ID) (*Supplier, error) {
	return s.repo.GetByID(ctx, supplierID)
}

// Delete removes a supplier.
func (s *Service) Delete(ctx context.Context, supplierID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, supplierID)
	})
}

// List retrieves suppliers with filtering.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Supplier], error) {
	return s.repo.List(ctx, filter)
}
