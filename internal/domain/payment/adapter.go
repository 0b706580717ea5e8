// Package payment dispatches a checkout total to one of the configured
// payment channels. The external-terminal channel runs an asynchronous
// authorization state machine; cash approves immediately. No sale or stock
// mutation may happen anywhere in the engine before an authorization
// reaches APPROVED.
package payment

import (
	"context"

	"bottega/internal/core/apperror"
	"bottega/internal/core/types"
	"bottega/pkg/logger"
)

// Method identifies the payment channel for a checkout.
type Method string

const (
	MethodCash             Method = "CASH"
	MethodCard             Method = "CARD"
	MethodExternalTerminal Method = "EXTERNAL_TERMINAL"
)

// IsValid reports whether m is a known payment method.
func (m Method) IsValid() bool {
	switch m {
	case MethodCash, MethodCard, MethodExternalTerminal:
		return true
	}
	return false
}

// RequiresAuthorization reports whether the channel needs an external
// authorization before the sale may commit.
func (m Method) RequiresAuthorization() bool {
	return m == MethodCard || m == MethodExternalTerminal
}

// State is one step of the terminal authorization state machine.
type State string

const (
	StateIdle        State = "IDLE"
	StateConnecting  State = "CONNECTING"
	StateWaitingAuth State = "WAITING_AUTH"
	StateProcessing  State = "PROCESSING"
	StateApproved    State = "APPROVED"
	StateDeclined    State = "DECLINED"
	StateCancelled   State = "CANCELLED"
)

// Terminal reports whether the state machine cannot leave this state.
func (s State) Terminal() bool {
	return s == StateApproved || s == StateDeclined || s == StateCancelled
}

// Approval is the outcome returned by a payment channel.
type Approval struct {
	Approved        bool
	TransactionCode string
	Message         string
}

// Result is the final outcome of an authorization attempt.
type Result struct {
	State           State
	TransactionCode string
	Message         string
}

// TerminalClient is the hardware port for the external payment terminal.
// Every call is a suspension point and must honor context cancellation.
// Implementations are swappable without touching the sale processor.
type TerminalClient interface {
	// Connect establishes the link to the terminal.
	Connect(ctx context.Context) error

	// AwaitCard blocks until the cardholder presents a card.
	AwaitCard(ctx context.Context, amount types.Money, merchantRef string) error

	// Process submits the authorization and blocks until the network answers.
	Process(ctx context.Context) (Approval, error)
}

// CardClient is the port for the integrated card channel (cloud API).
type CardClient interface {
	Authorize(ctx context.Context, amount types.Money, merchantRef string) (Approval, error)
}

// Request describes one authorization attempt.
type Request struct {
	Method      Method
	Amount      types.Money
	MerchantRef string

	// OnState, when set, observes every state transition. The sale
	// processor uses it to surface terminal progress to the operator.
	OnState func(State)
}

// Adapter dispatches authorization requests to the configured channels.
type Adapter struct {
	card     CardClient
	terminal TerminalClient
}

// NewAdapter creates a payment adapter over the given channel clients.
func NewAdapter(card CardClient, terminal TerminalClient) *Adapter {
	return &Adapter{card: card, terminal: terminal}
}

// Authorize runs the authorization for the request and returns the final
// result. A non-approved outcome is also reported as an error:
// CodePaymentDeclined, CodePaymentCancelled, or CodeHardware.
func (a *Adapter) Authorize(ctx context.Context, req Request) (Result, error) {
	if !req.Method.IsValid() {
		return Result{}, apperror.NewValidation("unknown payment method").
			WithDetail("method", string(req.Method))
	}

	switch req.Method {
	case MethodCash:
		// Cash needs no external authorization.
		return Result{State: StateApproved, Message: "cash"}, nil
	case MethodCard:
		return a.authorizeCard(ctx, req)
	default:
		return a.authorizeTerminal(ctx, req)
	}
}

func (a *Adapter) authorizeCard(ctx context.Context, req Request) (Result, error) {
	if a.card == nil {
		return Result{}, apperror.NewHardware("card", "card channel not configured")
	}

	approval, err := a.card.Authorize(ctx, req.Amount, req.MerchantRef)
	if err != nil {
		if ctx.Err() != nil {
			return Result{State: StateCancelled}, apperror.NewPaymentCancelled()
		}
		return Result{}, apperror.NewHardware("card", "card authorization failed").WithCause(err)
	}

	if !approval.Approved {
		return Result{State: StateDeclined, Message: approval.Message},
			apperror.NewPaymentDeclined(approval.Message)
	}

	return Result{
		State:           StateApproved,
		TransactionCode: approval.TransactionCode,
		Message:         approval.Message,
	}, nil
}

// authorizeTerminal drives the external terminal through
// IDLE → CONNECTING → WAITING_AUTH → PROCESSING → APPROVED | DECLINED.
// Cancellation (context) exits to CANCELLED from any non-terminal state.
func (a *Adapter) authorizeTerminal(ctx context.Context, req Request) (Result, error) {
	if a.terminal == nil {
		return Result{}, apperror.NewHardware("terminal", "terminal channel not configured")
	}

	observe := func(s State) {
		logger.Debug(ctx, "terminal state", "state", string(s), "ref", req.MerchantRef)
		if req.OnState != nil {
			req.OnState(s)
		}
	}

	observe(StateIdle)

	observe(StateConnecting)
	if err := a.terminal.Connect(ctx); err != nil {
		if res, cerr := cancelledResult(ctx, observe); cerr != nil {
			return res, cerr
		}
		return Result{}, apperror.NewHardware("terminal", "terminal unreachable").WithCause(err)
	}

	observe(StateWaitingAuth)
	if err := a.terminal.AwaitCard(ctx, req.Amount, req.MerchantRef); err != nil {
		if res, cerr := cancelledResult(ctx, observe); cerr != nil {
			return res, cerr
		}
		return Result{}, apperror.NewHardware("terminal", "card presentment failed").WithCause(err)
	}

	observe(StateProcessing)
	approval, err := a.terminal.Process(ctx)
	if err != nil {
		if res, cerr := cancelledResult(ctx, observe); cerr != nil {
			return res, cerr
		}
		return Result{}, apperror.NewHardware("terminal", "authorization processing failed").WithCause(err)
	}

	if !approval.Approved {
		observe(StateDeclined)
		return Result{State: StateDeclined, Message: approval.Message},
			apperror.NewPaymentDeclined(approval.Message)
	}

	observe(StateApproved)
	return Result{
		State:           StateApproved,
		TransactionCode: approval.TransactionCode,
		Message:         approval.Message,
	}, nil
}

// cancelledResult maps a context cancellation to the CANCELLED exit.
func cancelledResult(ctx context.Context, observe func(State)) (Result, error) {
	if ctx.Err() == nil {
		return Result{}, nil
	}
	observe(StateCancelled)
	return Result{State: StateCancelled}, apperror.NewPaymentCancelled()
}
