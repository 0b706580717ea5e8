package sale

import (
	"context"
	"time"

	"bottega/internal/core/apperror"
	appctx "bottega/internal/core/context"
	"bottega/internal/core/entity"
	"bottega/internal/core/numerator"
	"bottega/internal/core/tx"
	"bottega/internal/domain/catalogs/product"
	"bottega/internal/domain/payment"
	"bottega/pkg/logger"
)

// Status tracks a checkout attempt through its lifecycle.
type Status string

const (
	StatusOpen        Status = "OPEN"
	StatusAuthorizing Status = "AUTHORIZING"
	StatusCommitted   Status = "COMMITTED"
	StatusAborted     Status = "ABORTED"
)

// CheckoutResult reports the outcome of Processor.Checkout. On an aborted
// checkout Sale is nil and the cart is left intact. FiscalWarning carries a
// non-fatal receipt print failure on an otherwise committed sale.
type CheckoutResult struct {
	Status        Status
	Sale          *Sale
	Payment       payment.Result
	FiscalWarning string
}

// Processor drives checkout: stock validation, payment authorization, and
// the atomic commit of sale plus stock decrements.
type Processor struct {
	products  product.Repository
	sales     Repository
	payments  *payment.Adapter
	printer   FiscalPrinter
	numbers   numerator.Generator
	txManager tx.Manager
}

// NewProcessor wires the checkout processor.
func NewProcessor(
	products product.Repository,
	sales Repository,
	payments *payment.Adapter,
	printer FiscalPrinter,
	numbers numerator.Generator,
	txManager tx.Manager,
) *Processor {
	return &Processor{
		products:  products,
		sales:     sales,
		payments:  payments,
		printer:   printer,
		numbers:   numbers,
		txManager: txManager,
	}
}

// Checkout runs the full checkout for the cart. The sequence is:
// re-validate every line against current stock, authorize the payment,
// then decrement stock and append the sale in one transaction. Any
// shortfall or a non-approved authorization aborts the whole checkout with
// nothing applied and the cart untouched. The cart is cleared only after
// the commit; a failed fiscal print is returned as a warning on the
// committed result.
func (p *Processor) Checkout(ctx context.Context, cart *Cart, method payment.Method, onState func(payment.State)) (*CheckoutResult, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, apperror.NewValidation("cart is empty")
	}
	if !method.IsValid() {
		return nil, apperror.NewValidation("unknown payment method").
			WithDetail("method", string(method))
	}

	items := cart.Items()
	total := cart.Total()

	if err := p.validateStock(ctx, items); err != nil {
		return &CheckoutResult{Status: StatusAborted}, err
	}

	result := &CheckoutResult{Status: StatusAuthorizing}

	payRes, err := p.payments.Authorize(ctx, payment.Request{
		Method:      method,
		Amount:      total,
		MerchantRef: appctx.GetRequestID(ctx),
		OnState:     onState,
	})
	result.Payment = payRes
	if err != nil {
		result.Status = StatusAborted
		logger.Info(ctx, "checkout aborted at authorization",
			"method", string(method), "state", string(payRes.State))
		return result, err
	}

	s := &Sale{
		BaseDocument:    entity.NewBaseDocument(),
		Date:            time.Now(),
		Items:           items,
		Total:           total,
		PaymentMethod:   method,
		TransactionCode: payRes.TransactionCode,
	}
	s.CreatedBy = appctx.GetUserID(ctx)

	err = p.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, it := range items {
			if _, err := p.products.AdjustStock(ctx, it.VariantID, -it.Quantity); err != nil {
				return err
			}
		}

		number, err := p.numbers.GetNextNumber(ctx, numerator.DefaultConfig("SC"), s.Date)
		if err != nil {
			return err
		}
		s.Number = number

		return p.sales.Create(ctx, s)
	})
	if err != nil {
		result.Status = StatusAborted
		return result, err
	}

	result.Status = StatusCommitted
	result.Sale = s
	cart.Clear()

	logger.Info(ctx, "sale committed",
		"number", s.Number, "total", s.Total.String(), "method", string(method))

	if p.printer != nil {
		if pr := p.printer.PrintReceipt(ctx, s); !pr.Success {
			result.FiscalWarning = pr.Message
			logger.Warn(ctx, "fiscal print failed, sale stands",
				"number", s.Number, "reason", pr.Message)
		}
	}

	return result, nil
}

// validateStock re-reads every line's variant and fails on the first
// shortfall. The transaction's AdjustStock enforces the same invariant
// again at commit time.
func (p *Processor) validateStock(ctx context.Context, items []SaleItem) error {
	for _, it := range items {
		_, v, err := p.products.GetVariant(ctx, it.VariantID)
		if err != nil {
			return err
		}
		if v.Stock < it.Quantity {
			return apperror.NewInsufficientStock(v.ID.String(), it.Quantity, v.Stock).
				WithDetail("barcode", v.Barcode)
		}
	}
	return nil
}
