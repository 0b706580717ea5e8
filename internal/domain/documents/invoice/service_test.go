package invoice_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/core/types"
	"bottega/internal/domain/catalogs/product"
	"bottega/internal/domain/documents/invoice"
	"bottega/internal/domain/finance"
	"bottega/internal/infrastructure/storage/memory"
)

type fixture struct {
	store    *memory.Store
	products *memory.ProductRepo
	invoices *invoice.Service
	records  *finance.Service
	recRepo  *memory.RecordRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	products := memory.NewProductRepo(store)
	recRepo := memory.NewRecordRepo(store)

	invSvc := invoice.NewService(memory.NewInvoiceRepo(store), products, recRepo, txm)
	recSvc := finance.NewService(recRepo, txm)
	recSvc.SetInstallmentPayments(invSvc)

	return &fixture{
		store:    store,
		products: products,
		invoices: invSvc,
		records:  recSvc,
		recRepo:  recRepo,
	}
}

func (f *fixture) seedProduct(t *testing.T, barcode string, stock int) *product.Product {
	t.Helper()
	p := product.NewProduct("Cappotto Lana Merino", "Donna")
	p.Price = types.MustMoney("89.90")
	p.AddVariant("M", "Cammello", barcode, stock)
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func TestAddLineItemResolvesBarcode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProduct(t, "2000000000013", 0)

	inv, err := f.invoices.CreateDraft(ctx, id.New(), "INV-77", time.Now())
	require.NoError(t, err)

	inv, err = f.invoices.AddLineItem(ctx, inv.ID, "2000000000013", 10, types.MustMoney("18.50"))
	require.NoError(t, err)

	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Cappotto Lana Merino", inv.Items[0].ProductName)
	assert.True(t, inv.TotalAmount.Equal(types.MustMoney("185.00")), "total %s", inv.TotalAmount)
}

func TestAddLineItemUnknownBarcodeFailsHard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.invoices.CreateDraft(ctx, id.New(), "INV-77", time.Now())
	require.NoError(t, err)

	_, err = f.invoices.AddLineItem(ctx, inv.ID, "9999999999999", 1, types.MustMoney("10.00"))
	require.True(t, apperror.IsNotFound(err))

	got, err := f.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items, "no line added, no product created")
}

func TestFinalizeAppliesStockOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, "2000000000013", 2)

	inv, err := f.invoices.CreateDraft(ctx, id.New(), "INV-77", time.Now())
	require.NoError(t, err)
	_, err = f.invoices.AddLineItem(ctx, inv.ID, "2000000000013", 10, types.MustMoney("18.50"))
	require.NoError(t, err)

	done, err := f.invoices.Finalize(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusCompleted, done.Status)
	assert.True(t, done.StockApplied)

	_, v, err := f.products.GetVariant(ctx, p.Variants[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 12, v.Stock)

	// Second finalize must not touch stock again.
	_, err = f.invoices.Finalize(ctx, inv.ID)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvoiceFinalized, appErr.Code)

	_, v, err = f.products.GetVariant(ctx, p.Variants[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 12, v.Stock)
}

func TestFinalizeWithoutScheduleGeneratesSingleRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProduct(t, "2000000000013", 0)

	date := time.Date(2024, 5, 2, 0, 0, 0, 0, time.Local)
	inv, err := f.invoices.CreateDraft(ctx, id.New(), "INV-77", date)
	require.NoError(t, err)
	_, err = f.invoices.AddLineItem(ctx, inv.ID, "2000000000013", 4, types.MustMoney("25.00"))
	require.NoError(t, err)

	_, err = f.invoices.Finalize(ctx, inv.ID)
	require.NoError(t, err)

	recs, err := f.recRepo.ListByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	r := recs[0]
	assert.True(t, r.Amount.Equal(types.MustMoney("100.00")))
	assert.Equal(t, finance.DirectionOut, r.Direction)
	assert.Equal(t, finance.CategorySupplier, r.Category)
	assert.False(t, r.IsEditable)
	assert.False(t, r.IsPaid)
	require.NotNil(t, r.DueDate)
	assert.Equal(t, date, *r.DueDate)
	assert.Nil(t, r.InstallmentID)
}

func TestMarkPaidWithoutSchedulePaysInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProduct(t, "2000000000013", 0)

	inv, err := f.invoices.CreateDraft(ctx, id.New(), "INV-77", time.Now())
	require.NoError(t, err)
	_, err = f.invoices.AddLineItem(ctx, inv.ID, "2000000000013", 4, types.MustMoney("25.00"))
	require.NoError(t, err)
	_, err = f.invoices.Finalize(ctx, inv.ID)
	require.NoError(t, err)

	recs, err := f.recRepo.ListByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Nil(t, recs[0].InstallmentID)

	_, err = f.records.MarkPaid(ctx, recs[0].ID, "BONIFICO")
	require.NoError(t, err)

	got, err := f.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.PaymentPaid, got.PaymentStatus)
}

func TestFinalizeWithScheduleGeneratesRecordPerInstallment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProduct(t, "2000000000013", 0)

	inv, err := f.invoices.CreateDraft(ctx, id.New(), "INV-77", time.Now())
	require.NoError(t, err)
	_, err = f.invoices.AddLineItem(ctx, inv.ID, "2000000000013", 12, types.MustMoney("25.00"))
	require.NoError(t, err)

	firstDue := time.Date(2024, 7, 1, 0, 0, 0, 0, time.Local)
	schedule, err := f.invoices.ScheduleInstallments(ctx, inv.ID, 3, 30, firstDue)
	require.NoError(t, err)
	require.Len(t, schedule.Installments, 3)

	_, err = f.invoices.Finalize(ctx, inv.ID)
	require.NoError(t, err)

	recs, err := f.recRepo.ListByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, r := range recs {
		assert.True(t, r.Amount.Equal(types.MustMoney("100.00")), "record %d amount %s", i, r.Amount)
		require.NotNil(t, r.InstallmentID)
		assert.Equal(t, schedule.Installments[i].ID, *r.InstallmentID)
		assert.Equal(t, schedule.Installments[i].DueDate, r.Date)
	}
}

func TestMarkPaidDrivesInvoicePaymentStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProduct(t, "2000000000013", 0)

	inv, err := f.invoices.CreateDraft(ctx, id.New(), "INV-77", time.Now())
	require.NoError(t, err)
	_, err = f.invoices.AddLineItem(ctx, inv.ID, "2000000000013", 12, types.MustMoney("25.00"))
	require.NoError(t, err)
	_, err = f.invoices.ScheduleInstallments(ctx, inv.ID, 3, 30, time.Now())
	require.NoError(t, err)
	_, err = f.invoices.Finalize(ctx, inv.ID)
	require.NoError(t, err)

	recs, err := f.recRepo.ListByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	got, _ := f.invoices.GetByID(ctx, inv.ID)
	assert.Equal(t, invoice.PaymentUnpaid, got.PaymentStatus)

	_, err = f.records.MarkPaid(ctx, recs[0].ID, "BONIFICO")
	require.NoError(t, err)
	got, _ = f.invoices.GetByID(ctx, inv.ID)
	assert.Equal(t, invoice.PaymentPartial, got.PaymentStatus)

	_, err = f.records.MarkPaid(ctx, recs[1].ID, "BONIFICO")
	require.NoError(t, err)
	_, err = f.records.MarkPaid(ctx, recs[2].ID, "BONIFICO")
	require.NoError(t, err)
	got, _ = f.invoices.GetByID(ctx, inv.ID)
	assert.Equal(t, invoice.PaymentPaid, got.PaymentStatus)

	// Paid is a one-way transition.
	_, err = f.records.MarkPaid(ctx, recs[0].ID, "CONTANTI")
	require.Error(t, err)
}

func TestGeneratedRecordsAreLocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProduct(t, "2000000000013", 0)

	inv, err := f.invoices.CreateDraft(ctx, id.New(), "INV-77", time.Now())
	require.NoError(t, err)
	_, err = f.invoices.AddLineItem(ctx, inv.ID, "2000000000013", 1, types.MustMoney("50.00"))
	require.NoError(t, err)
	_, err = f.invoices.Finalize(ctx, inv.ID)
	require.NoError(t, err)

	recs, err := f.recRepo.ListByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	rec.Description = "edited"
	err = f.records.Update(ctx, rec)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeRecordLocked, appErr.Code)

	err = f.records.Delete(ctx, rec.ID)
	appErr, ok = apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeRecordLocked, appErr.Code)
}

func TestScheduleRejectedAfterFinalize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProduct(t, "2000000000013", 0)

	inv, err := f.invoices.CreateDraft(ctx, id.New(), "INV-77", time.Now())
	require.NoError(t, err)
	_, err = f.invoices.AddLineItem(ctx, inv.ID, "2000000000013", 1, types.MustMoney("50.00"))
	require.NoError(t, err)
	_, err = f.invoices.Finalize(ctx, inv.ID)
	require.NoError(t, err)

	_, err = f.invoices.ScheduleInstallments(ctx, inv.ID, 2, 30, time.Now())
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvoiceFinalized, appErr.Code)

	_, err = f.invoices.AddLineItem(ctx, inv.ID, "2000000000013", 1, types.MustMoney("50.00"))
	appErr, ok = apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvoiceFinalized, appErr.Code)
}
