package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bottega/internal/core/entity"
	"bottega/internal/core/id"
	"bottega/internal/core/types"
	"bottega/internal/domain/documents/invoice"
	"bottega/internal/domain/documents/sale"
	"bottega/internal/domain/finance"
	"bottega/internal/domain/ledger"
	"bottega/internal/domain/payment"
	"bottega/internal/infrastructure/storage/memory"
)

type fixture struct {
	store   *memory.Store
	sales   *memory.SaleRepo
	invs    *memory.InvoiceRepo
	recs    *memory.RecordRepo
	recSvc  *finance.Service
	service *ledger.Service
}

func newFixture() *fixture {
	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	sales := memory.NewSaleRepo(store)
	invs := memory.NewInvoiceRepo(store)
	recs := memory.NewRecordRepo(store)

	return &fixture{
		store:   store,
		sales:   sales,
		invs:    invs,
		recs:    recs,
		recSvc:  finance.NewService(recs, txm),
		service: ledger.NewService(sales, invs, recs),
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func (f *fixture) addSale(t *testing.T, date time.Time, total string) *sale.Sale {
	t.Helper()
	s := &sale.Sale{
		BaseDocument:  entity.NewBaseDocument(),
		Number:        "SC-2024-00001",
		Date:          date,
		Total:         types.MustMoney(total),
		PaymentMethod: payment.MethodCash,
	}
	require.NoError(t, f.sales.Create(context.Background(), s))
	return s
}

func (f *fixture) addRecord(t *testing.T, r *finance.Record) *finance.Record {
	t.Helper()
	require.NoError(t, f.recs.Create(context.Background(), r))
	return r
}

func TestQueryMergesAndComputesTotals(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.addSale(t, day(2024, 5, 10).Add(18*time.Hour+30*time.Minute), "40.00")

	rent := finance.NewManualRecord(day(2024, 5, 1), types.MustMoney("800.00"),
		finance.DirectionOut, finance.CategoryRent, "Affitto maggio")
	rent.IsPaid = true
	f.addRecord(t, rent)

	report, err := f.service.Query(ctx, nil)
	require.NoError(t, err)

	assert.Len(t, report.Transactions, 2)
	assert.True(t, report.TotalIn.Equal(types.MustMoney("40.00")), "in %s", report.TotalIn)
	assert.True(t, report.TotalOut.Equal(types.MustMoney("800.00")), "out %s", report.TotalOut)
	assert.True(t, report.NetProfit.Equal(types.MustMoney("-760.00")), "net %s", report.NetProfit)
}

func TestQueryDateFilterIsDayInclusive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Sale at 18:30 on the filter's end day must be included.
	f.addSale(t, day(2024, 5, 10).Add(18*time.Hour+30*time.Minute), "40.00")
	f.addSale(t, day(2024, 5, 11).Add(9*time.Hour), "60.00")

	report, err := f.service.Query(ctx, &ledger.DateRange{
		Start: day(2024, 5, 1),
		End:   day(2024, 5, 10),
	})
	require.NoError(t, err)

	require.Len(t, report.Transactions, 1)
	assert.True(t, report.TotalIn.Equal(types.MustMoney("40.00")))
}

func TestOutstandingDebtIgnoresDateFilter(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, due := range []time.Time{day(2024, 7, 1), day(2024, 7, 31), day(2024, 8, 30)} {
		r := finance.NewGeneratedRecord(due, types.MustMoney("100.00"), "Fattura INV-77, rata", id.New(), nil)
		f.addRecord(t, r)
	}

	full, err := f.service.Query(ctx, nil)
	require.NoError(t, err)
	assert.True(t, full.OutstandingDebt.Equal(types.MustMoney("300.00")), "debt %s", full.OutstandingDebt)

	// A narrow filter hides transactions but never the debt.
	narrow, err := f.service.Query(ctx, &ledger.DateRange{
		Start: day(2020, 1, 1),
		End:   day(2020, 1, 2),
	})
	require.NoError(t, err)
	assert.Empty(t, narrow.Transactions)
	assert.True(t, narrow.OutstandingDebt.Equal(types.MustMoney("300.00")))
	assert.Len(t, narrow.UpcomingDeadlines, 3, "deadlines ignore the filter too")
}

func TestMarkPaidShrinksDebt(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var ids []id.ID
	for _, due := range []time.Time{day(2024, 7, 1), day(2024, 7, 31), day(2024, 8, 30)} {
		r := finance.NewGeneratedRecord(due, types.MustMoney("100.00"), "Fattura INV-77, rata", id.New(), nil)
		f.addRecord(t, r)
		ids = append(ids, r.ID)
	}

	before, err := f.service.Query(ctx, nil)
	require.NoError(t, err)
	require.True(t, before.OutstandingDebt.Equal(types.MustMoney("300.00")))

	_, err = f.recSvc.MarkPaid(ctx, ids[0], "BONIFICO")
	require.NoError(t, err)

	after, err := f.service.Query(ctx, nil)
	require.NoError(t, err)
	assert.True(t, after.OutstandingDebt.Equal(types.MustMoney("200.00")), "debt %s", after.OutstandingDebt)
	assert.Len(t, after.UpcomingDeadlines, 2)
}

func TestDeadlinesSortedByDueDateWithOverdueFlag(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	past := day(2023, 1, 15)
	future := time.Now().AddDate(0, 1, 0)

	f.addRecord(t, finance.NewGeneratedRecord(future, types.MustMoney("50.00"), "rata futura", id.New(), nil))
	f.addRecord(t, finance.NewGeneratedRecord(past, types.MustMoney("70.00"), "rata scaduta", id.New(), nil))

	report, err := f.service.Query(ctx, nil)
	require.NoError(t, err)

	require.Len(t, report.UpcomingDeadlines, 2)
	assert.Equal(t, past, report.UpcomingDeadlines[0].DueDate, "ascending by due date")
	assert.True(t, report.UpcomingDeadlines[0].Overdue)
	assert.False(t, report.UpcomingDeadlines[1].Overdue)
}

func TestTransactionsSortedDescWithStableTies(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	same := day(2024, 5, 10)
	first := f.addRecord(t, finance.NewManualRecord(same, types.MustMoney("10.00"),
		finance.DirectionOut, finance.CategoryUtilities, "prima"))
	second := f.addRecord(t, finance.NewManualRecord(same, types.MustMoney("20.00"),
		finance.DirectionOut, finance.CategoryUtilities, "seconda"))
	f.addRecord(t, finance.NewManualRecord(day(2024, 5, 12), types.MustMoney("30.00"),
		finance.DirectionOut, finance.CategoryUtilities, "ultima"))

	report, err := f.service.Query(ctx, nil)
	require.NoError(t, err)

	require.Len(t, report.Transactions, 3)
	assert.Equal(t, "ultima", report.Transactions[0].Description)
	assert.Equal(t, first.ID, report.Transactions[1].ID, "insertion order breaks the tie")
	assert.Equal(t, second.ID, report.Transactions[2].ID)
}

func TestLegacyInvoiceAppearsAsOutEntry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// A completed invoice without installments or generated records, as
	// imported from the old books.
	inv := invoice.NewInvoice(id.New(), "INV-OLD-3", day(2024, 2, 20))
	inv.Status = invoice.StatusCompleted
	inv.TotalAmount = types.MustMoney("450.00")
	require.NoError(t, f.invs.Create(ctx, inv))

	report, err := f.service.Query(ctx, nil)
	require.NoError(t, err)

	require.Len(t, report.Transactions, 1)
	tr := report.Transactions[0]
	assert.Equal(t, ledger.SourceInvoice, tr.Source)
	assert.Equal(t, finance.DirectionOut, tr.Direction)
	assert.False(t, tr.IsPaid)
	assert.True(t, report.OutstandingDebt.Equal(types.MustMoney("450.00")))

	// Once the invoice has generated records, only those count.
	rec := finance.NewGeneratedRecord(day(2024, 2, 20), types.MustMoney("450.00"), "Fattura INV-OLD-3", inv.ID, nil)
	f.addRecord(t, rec)

	report, err = f.service.Query(ctx, nil)
	require.NoError(t, err)
	require.Len(t, report.Transactions, 1)
	assert.Equal(t, ledger.SourceRecord, report.Transactions[0].Source)
	assert.True(t, report.OutstandingDebt.Equal(types.MustMoney("450.00")), "no double counting")
}
