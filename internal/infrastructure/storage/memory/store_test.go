package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bottega/internal/core/apperror"
	"bottega/internal/core/types"
	"bottega/internal/domain"
	"bottega/internal/domain/catalogs/product"
)

func testProduct(name, barcode string, stock int) *product.Product {
	p := product.NewProduct(name, "Donna")
	p.Price = types.MustMoney("40.00")
	p.AddVariant("M", "Nero", barcode, stock)
	return p
}

func TestProductCreateAndBarcodeLookup(t *testing.T) {
	store := NewStore()
	repo := NewProductRepo(store)
	ctx := context.Background()

	p := testProduct("Cappotto Lana Merino", "2000000000013", 5)
	require.NoError(t, repo.Create(ctx, p))

	found, v, err := repo.FindVariantByBarcode(ctx, "2000000000013")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
	assert.Equal(t, 5, v.Stock)

	_, _, err = repo.FindVariantByBarcode(ctx, "0000000000000")
	require.True(t, apperror.IsNotFound(err))
}

func TestBarcodeUniqueAcrossProducts(t *testing.T) {
	store := NewStore()
	repo := NewProductRepo(store)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testProduct("Cappotto", "2000000000013", 5)))

	err := repo.Create(ctx, testProduct("Camicia", "2000000000013", 3))
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
}

func TestAdjustStockGuardsNegative(t *testing.T) {
	store := NewStore()
	repo := NewProductRepo(store)
	ctx := context.Background()

	p := testProduct("Cappotto", "2000000000013", 2)
	require.NoError(t, repo.Create(ctx, p))
	vid := p.Variants[0].ID

	left, err := repo.AdjustStock(ctx, vid, -2)
	require.NoError(t, err)
	assert.Equal(t, 0, left)

	_, err = repo.AdjustStock(ctx, vid, -1)
	require.True(t, apperror.IsInsufficientStock(err))

	_, v, err := repo.GetVariant(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Stock, "failed adjust leaves stock untouched")
}

func TestTransactionRollsBackStockAndCreates(t *testing.T) {
	store := NewStore()
	repo := NewProductRepo(store)
	txm := NewTxManager(store)
	ctx := context.Background()

	p := testProduct("Cappotto", "2000000000013", 5)
	require.NoError(t, repo.Create(ctx, p))
	vid := p.Variants[0].ID

	boom := errors.New("boom")
	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := repo.AdjustStock(ctx, vid, -3); err != nil {
			return err
		}
		if err := repo.Create(ctx, testProduct("Camicia", "2000000000020", 1)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, v, err := repo.GetVariant(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, 5, v.Stock, "stock restored")

	_, _, err = repo.FindVariantByBarcode(ctx, "2000000000020")
	require.True(t, apperror.IsNotFound(err), "created product rolled back")
}

func TestNestedTransactionJoinsOuter(t *testing.T) {
	store := NewStore()
	repo := NewProductRepo(store)
	txm := NewTxManager(store)
	ctx := context.Background()

	p := testProduct("Cappotto", "2000000000013", 5)
	require.NoError(t, repo.Create(ctx, p))
	vid := p.Variants[0].ID

	boom := errors.New("boom")
	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return txm.RunInTransaction(ctx, func(ctx context.Context) error {
			if _, err := repo.AdjustStock(ctx, vid, -1); err != nil {
				return err
			}
			return boom
		})
	})
	require.ErrorIs(t, err, boom)

	_, v, err := repo.GetVariant(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, 5, v.Stock, "inner mutation undone by outer rollback")
}

func TestReadOnlyTransactionRejectsWrites(t *testing.T) {
	store := NewStore()
	repo := NewProductRepo(store)
	txm := NewTxManager(store)
	ctx := context.Background()

	err := txm.ReadOnly(ctx, func(ctx context.Context) error {
		return repo.Create(ctx, testProduct("Cappotto", "2000000000013", 5))
	})
	require.Error(t, err)

	list, err := repo.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestUpdateVersionConflict(t *testing.T) {
	store := NewStore()
	repo := NewProductRepo(store)
	ctx := context.Background()

	p := testProduct("Cappotto", "2000000000013", 5)
	require.NoError(t, repo.Create(ctx, p))

	stale, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)

	p.Name = "Cappotto Invernale"
	require.NoError(t, repo.Update(ctx, p))

	stale.Name = "Cappotto Estivo"
	err = repo.Update(ctx, stale)
	require.True(t, apperror.IsConcurrentModification(err))
}

func TestListReturnsCopies(t *testing.T) {
	store := NewStore()
	repo := NewProductRepo(store)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testProduct("Cappotto", "2000000000013", 5)))

	list, err := repo.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	list.Items[0].Variants[0].Stock = 999

	_, v, err := repo.FindVariantByBarcode(ctx, "2000000000013")
	require.NoError(t, err)
	assert.Equal(t, 5, v.Stock)
}
