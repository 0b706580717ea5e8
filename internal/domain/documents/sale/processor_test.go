package sale

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/core/numerator"
	"bottega/internal/core/types"
	"bottega/internal/domain"
	"bottega/internal/domain/catalogs/product"
	"bottega/internal/domain/payment"
)

type fakeProducts struct {
	products map[id.ID]*product.Product
	variants map[id.ID]id.ID // variant -> product

	// failVariant makes AdjustStock fail for one variant, simulating a
	// concurrent shortfall between validation and commit.
	failVariant id.ID
}

func newFakeProducts(ps ...*product.Product) *fakeProducts {
	f := &fakeProducts{
		products: make(map[id.ID]*product.Product),
		variants: make(map[id.ID]id.ID),
	}
	for _, p := range ps {
		f.products[p.ID] = p
		for _, v := range p.Variants {
			f.variants[v.ID] = p.ID
		}
	}
	return f
}

func (f *fakeProducts) Create(context.Context, *product.Product) error { return nil }
func (f *fakeProducts) Update(context.Context, *product.Product) error { return nil }
func (f *fakeProducts) Delete(context.Context, id.ID) error            { return nil }

func (f *fakeProducts) GetByID(_ context.Context, productID id.ID) (*product.Product, error) {
	p, ok := f.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID)
	}
	return p, nil
}

func (f *fakeProducts) List(context.Context, domain.ListFilter) (domain.ListResult[*product.Product], error) {
	return domain.ListResult[*product.Product]{}, nil
}

func (f *fakeProducts) FindVariantByBarcode(_ context.Context, barcode string) (*product.Product, *product.Variant, error) {
	for _, p := range f.products {
		for i := range p.Variants {
			if p.Variants[i].Barcode == barcode {
				return p, &p.Variants[i], nil
			}
		}
	}
	return nil, nil, apperror.NewNotFound("variant", barcode)
}

func (f *fakeProducts) GetVariant(_ context.Context, variantID id.ID) (*product.Product, *product.Variant, error) {
	productID, ok := f.variants[variantID]
	if !ok {
		return nil, nil, apperror.NewNotFound("variant", variantID)
	}
	p := f.products[productID]
	return p, p.Variant(variantID), nil
}

func (f *fakeProducts) BarcodeInUse(context.Context, string, id.ID) (bool, error) {
	return false, nil
}

func (f *fakeProducts) AdjustStock(_ context.Context, variantID id.ID, delta int) (int, error) {
	if variantID == f.failVariant {
		return 0, apperror.NewInsufficientStock(variantID.String(), -delta, 0)
	}
	productID, ok := f.variants[variantID]
	if !ok {
		return 0, apperror.NewNotFound("variant", variantID)
	}
	v := f.products[productID].Variant(variantID)
	if v.Stock+delta < 0 {
		return 0, apperror.NewInsufficientStock(variantID.String(), -delta, v.Stock)
	}
	v.Stock += delta
	return v.Stock, nil
}

func (f *fakeProducts) stockSnapshot() map[id.ID]int {
	snap := make(map[id.ID]int)
	for _, p := range f.products {
		for _, v := range p.Variants {
			snap[v.ID] = v.Stock
		}
	}
	return snap
}

func (f *fakeProducts) restore(snap map[id.ID]int) {
	for vid, stock := range snap {
		pid := f.variants[vid]
		f.products[pid].Variant(vid).Stock = stock
	}
}

// snapshotTx restores variant stock and created sales when the body fails,
// mirroring the undo semantics of the real transaction managers.
type snapshotTx struct {
	products *fakeProducts
	sales    *fakeSales
}

func (t *snapshotTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	stocks := t.products.stockSnapshot()
	n := len(t.sales.sales)
	if err := fn(ctx); err != nil {
		t.products.restore(stocks)
		t.sales.sales = t.sales.sales[:n]
		return err
	}
	return nil
}

type fakeSales struct {
	sales []*Sale
}

func (f *fakeSales) Create(_ context.Context, s *Sale) error {
	f.sales = append(f.sales, s)
	return nil
}

func (f *fakeSales) GetByID(_ context.Context, saleID id.ID) (*Sale, error) {
	for _, s := range f.sales {
		if s.ID == saleID {
			return s, nil
		}
	}
	return nil, apperror.NewNotFound("sale", saleID)
}

func (f *fakeSales) List(context.Context, domain.ListFilter) (domain.ListResult[*Sale], error) {
	return domain.ListResult[*Sale]{Items: f.sales, TotalCount: int64(len(f.sales))}, nil
}

type approveAll struct{}

func (approveAll) Authorize(_ context.Context, _ types.Money, ref string) (payment.Approval, error) {
	return payment.Approval{Approved: true, TransactionCode: "TX-" + ref}, nil
}

type declineAll struct{}

func (declineAll) Authorize(context.Context, types.Money, string) (payment.Approval, error) {
	return payment.Approval{Approved: false, Message: "do not honor"}, nil
}

type stubPrinter struct {
	result PrintResult
	prints int
}

func (p *stubPrinter) PrintReceipt(context.Context, *Sale) PrintResult {
	p.prints++
	return p.result
}

func coat(stock int) *product.Product {
	p := product.NewProduct("Cappotto Lana Merino", "Donna")
	p.SetPricing(types.MustMoney("18.50"), types.MustMoney("77.20"), product.PricingParams{
		VATRatePercent: types.MustMoney("22"),
	})
	p.Price = types.MustMoney("40.00")
	p.AddVariant("M", "Cammello", "2000000000013", stock)
	return p
}

func newProcessor(products *fakeProducts, sales *fakeSales, card payment.CardClient, printer FiscalPrinter) *Processor {
	return NewProcessor(
		products,
		sales,
		payment.NewAdapter(card, nil),
		printer,
		numerator.NewMemoryGenerator(),
		&snapshotTx{products: products, sales: sales},
	)
}

func TestCheckoutCashCommitsAndDecrementsStock(t *testing.T) {
	p := coat(5)
	products := newFakeProducts(p)
	sales := &fakeSales{}
	printer := &stubPrinter{result: PrintResult{Success: true}}
	proc := newProcessor(products, sales, nil, printer)

	cart := NewCart()
	require.NoError(t, cart.Add(p, &p.Variants[0], 1))

	res, err := proc.Checkout(context.Background(), cart, payment.MethodCash, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusCommitted, res.Status)
	require.NotNil(t, res.Sale)
	assert.True(t, res.Sale.Total.Equal(types.MustMoney("40.00")), "total %s", res.Sale.Total)
	assert.Regexp(t, `^SC-\d{4}-00001$`, res.Sale.Number)
	assert.Equal(t, payment.MethodCash, res.Sale.PaymentMethod)

	assert.Equal(t, 4, p.Variants[0].Stock)
	assert.True(t, cart.IsEmpty(), "cart cleared after commit")
	assert.Len(t, sales.sales, 1)
	assert.Equal(t, 1, printer.prints)
	assert.Empty(t, res.FiscalWarning)
}

func TestCartAddRejectsBeyondStock(t *testing.T) {
	p := coat(0)
	cart := NewCart()

	err := cart.Add(p, &p.Variants[0], 1)
	require.True(t, apperror.IsInsufficientStock(err))
	assert.True(t, cart.IsEmpty())
}

func TestCartAddMergesLinesAndChecksCumulativeStock(t *testing.T) {
	p := coat(3)
	cart := NewCart()

	require.NoError(t, cart.Add(p, &p.Variants[0], 2))
	require.NoError(t, cart.Add(p, &p.Variants[0], 1))
	assert.Len(t, cart.Items(), 1)
	assert.Equal(t, 3, cart.Items()[0].Quantity)

	err := cart.Add(p, &p.Variants[0], 1)
	require.True(t, apperror.IsInsufficientStock(err))
}

func TestCheckoutDeclinedLeavesEverythingIntact(t *testing.T) {
	p := coat(5)
	products := newFakeProducts(p)
	sales := &fakeSales{}
	proc := newProcessor(products, sales, declineAll{}, &stubPrinter{})

	cart := NewCart()
	require.NoError(t, cart.Add(p, &p.Variants[0], 2))

	res, err := proc.Checkout(context.Background(), cart, payment.MethodCard, nil)
	require.Error(t, err)

	assert.Equal(t, StatusAborted, res.Status)
	assert.Nil(t, res.Sale)
	assert.Equal(t, payment.StateDeclined, res.Payment.State)
	assert.Equal(t, 5, p.Variants[0].Stock)
	assert.False(t, cart.IsEmpty(), "cart kept on abort")
	assert.Empty(t, sales.sales)
}

func TestCheckoutShortfallRollsBackAllLines(t *testing.T) {
	p1 := coat(5)
	p2 := product.NewProduct("Camicia Lino", "Uomo")
	p2.Price = types.MustMoney("25.00")
	p2.AddVariant("L", "Bianco", "2000000000020", 5)

	products := newFakeProducts(p1, p2)
	sales := &fakeSales{}
	proc := newProcessor(products, sales, nil, &stubPrinter{result: PrintResult{Success: true}})

	// First line decrements, second hits a simulated concurrent shortfall.
	products.failVariant = p2.Variants[0].ID

	cart := NewCart()
	require.NoError(t, cart.Add(p1, &p1.Variants[0], 1))
	require.NoError(t, cart.Add(p2, &p2.Variants[0], 1))

	res, err := proc.Checkout(context.Background(), cart, payment.MethodCash, nil)
	require.True(t, apperror.IsInsufficientStock(err))

	assert.Equal(t, StatusAborted, res.Status)
	assert.Equal(t, 5, p1.Variants[0].Stock, "first line undone")
	assert.Empty(t, sales.sales)
	assert.False(t, cart.IsEmpty())
}

func TestCheckoutFiscalFailureIsWarningOnly(t *testing.T) {
	p := coat(5)
	products := newFakeProducts(p)
	sales := &fakeSales{}
	printer := &stubPrinter{result: PrintResult{Success: false, Message: "printer offline"}}
	proc := newProcessor(products, sales, nil, printer)

	cart := NewCart()
	require.NoError(t, cart.Add(p, &p.Variants[0], 1))

	res, err := proc.Checkout(context.Background(), cart, payment.MethodCash, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusCommitted, res.Status)
	assert.Equal(t, "printer offline", res.FiscalWarning)
	assert.Equal(t, 4, p.Variants[0].Stock, "sale stands despite print failure")
	assert.Len(t, sales.sales, 1)
}

func TestCheckoutEmptyCart(t *testing.T) {
	proc := newProcessor(newFakeProducts(), &fakeSales{}, nil, nil)

	_, err := proc.Checkout(context.Background(), NewCart(), payment.MethodCash, nil)
	require.Error(t, err)
}

func TestSaleNumbersAreSequential(t *testing.T) {
	p := coat(10)
	products := newFakeProducts(p)
	sales := &fakeSales{}
	proc := newProcessor(products, sales, nil, &stubPrinter{result: PrintResult{Success: true}})

	for i := 1; i <= 3; i++ {
		cart := NewCart()
		require.NoError(t, cart.Add(p, &p.Variants[0], 1))
		res, err := proc.Checkout(context.Background(), cart, payment.MethodCash, nil)
		require.NoError(t, err)
		assert.Regexp(t, fmt.Sprintf(`-%05d$`, i), res.Sale.Number)
	}
	assert.Equal(t, 7, p.Variants[0].Stock)
}
