// Package memory implements every repository port on mutex-guarded maps,
// plus a transaction manager with an undo journal. It backs local
// single-register deployments and the test suite; the postgres package is
// the durable twin.
package memory

import (
	"context"
	"sync"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
	"bottega/internal/domain/auth"
	"bottega/internal/domain/catalogs/product"
	"bottega/internal/domain/catalogs/supplier"
	"bottega/internal/domain/documents/invoice"
	"bottega/internal/domain/documents/sale"
	"bottega/internal/domain/finance"
)

// Store holds all in-memory state. One mutex guards everything: a
// transaction holds it for its whole body, which serializes writers and
// gives ledger queries snapshot reads for free. Insertion order is kept
// per collection because the ledger breaks date ties by it.
type Store struct {
	mu sync.Mutex

	products     map[id.ID]*product.Product
	productOrder []id.ID

	// variant -> product, barcode -> variant. Barcodes are unique across
	// the whole catalog.
	variantIndex map[id.ID]id.ID
	barcodeIndex map[string]id.ID

	suppliers     map[id.ID]*supplier.Supplier
	supplierOrder []id.ID

	sales []*sale.Sale

	invoices     map[id.ID]*invoice.Invoice
	invoiceOrder []id.ID

	records     map[id.ID]*finance.Record
	recordOrder []id.ID

	users        map[id.ID]*auth.User
	usersByEmail map[string]id.ID
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		products:     make(map[id.ID]*product.Product),
		variantIndex: make(map[id.ID]id.ID),
		barcodeIndex: make(map[string]id.ID),
		suppliers:    make(map[id.ID]*supplier.Supplier),
		invoices:     make(map[id.ID]*invoice.Invoice),
		records:      make(map[id.ID]*finance.Record),
		users:        make(map[id.ID]*auth.User),
		usersByEmail: make(map[string]id.ID),
	}
}

type txKey struct{}

// journal collects undo closures for the current transaction. Rollback
// replays them in reverse.
type journal struct {
	readOnly bool
	undos    []func()
}

func (j *journal) record(undo func()) {
	j.undos = append(j.undos, undo)
}

func (j *journal) rollback() {
	for i := len(j.undos) - 1; i >= 0; i-- {
		j.undos[i]()
	}
	j.undos = nil
}

func journalFrom(ctx context.Context) *journal {
	j, _ := ctx.Value(txKey{}).(*journal)
	return j
}

// enter takes the store lock unless the context already carries a
// transaction (which holds it). Returns the matching unlock.
func (s *Store) enter(ctx context.Context) func() {
	if journalFrom(ctx) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// mutate is enter plus the write guard for read-only transactions.
// The returned journal is nil outside a transaction (single-op
// auto-commit, nothing to undo).
func (s *Store) mutate(ctx context.Context) (*journal, func(), error) {
	j := journalFrom(ctx)
	if j != nil && j.readOnly {
		return nil, nil, apperror.NewInternal(nil).
			WithDetail("reason", "write inside read-only transaction")
	}
	return j, s.enter(ctx), nil
}

// TxManager implements tx.Manager and tx.ReadOnlyManager over the store.
// Nested calls join the enclosing transaction.
type TxManager struct {
	store *Store
}

// NewTxManager creates a transaction manager bound to the store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// RunInTransaction runs fn under the store lock with an undo journal.
// An error from fn rolls every recorded mutation back.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if journalFrom(ctx) != nil {
		return fn(ctx)
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	j := &journal{}
	if err := fn(context.WithValue(ctx, txKey{}, j)); err != nil {
		j.rollback()
		return err
	}
	return nil
}

// ReadOnly runs fn under the store lock; writes inside fail.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if journalFrom(ctx) != nil {
		return fn(ctx)
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	return fn(context.WithValue(ctx, txKey{}, &journal{readOnly: true}))
}

// paginate applies offset/limit to an already-filtered slice.
// A non-positive limit means no limit.
func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
