package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bottega/internal/core/apperror"
	"bottega/internal/core/types"
)

type fakeTerminal struct {
	connectErr error
	awaitErr   error
	approval   Approval
	processErr error

	cancelAt string // "connect", "await", "process"
	cancel   context.CancelFunc
}

func (t *fakeTerminal) Connect(ctx context.Context) error {
	if t.cancelAt == "connect" {
		t.cancel()
		return ctx.Err()
	}
	return t.connectErr
}

func (t *fakeTerminal) AwaitCard(ctx context.Context, _ types.Money, _ string) error {
	if t.cancelAt == "await" {
		t.cancel()
		return ctx.Err()
	}
	return t.awaitErr
}

func (t *fakeTerminal) Process(ctx context.Context) (Approval, error) {
	if t.cancelAt == "process" {
		t.cancel()
		return Approval{}, ctx.Err()
	}
	return t.approval, t.processErr
}

type fakeCard struct {
	approval Approval
	err      error
}

func (c *fakeCard) Authorize(_ context.Context, _ types.Money, _ string) (Approval, error) {
	return c.approval, c.err
}

func TestAuthorizeCashApprovesImmediately(t *testing.T) {
	a := NewAdapter(nil, nil)

	res, err := a.Authorize(context.Background(), Request{
		Method: MethodCash,
		Amount: types.MustMoney("40.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, StateApproved, res.State)
}

func TestAuthorizeUnknownMethod(t *testing.T) {
	a := NewAdapter(nil, nil)

	_, err := a.Authorize(context.Background(), Request{Method: Method("WIRE")})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestTerminalHappyPath(t *testing.T) {
	term := &fakeTerminal{approval: Approval{Approved: true, TransactionCode: "TX-100"}}
	a := NewAdapter(nil, term)

	var seen []State
	res, err := a.Authorize(context.Background(), Request{
		Method:      MethodExternalTerminal,
		Amount:      types.MustMoney("99.90"),
		MerchantRef: "SC-2024-00001",
		OnState:     func(s State) { seen = append(seen, s) },
	})
	require.NoError(t, err)
	assert.Equal(t, StateApproved, res.State)
	assert.Equal(t, "TX-100", res.TransactionCode)
	assert.Equal(t, []State{
		StateIdle, StateConnecting, StateWaitingAuth, StateProcessing, StateApproved,
	}, seen)
}

func TestTerminalDeclined(t *testing.T) {
	term := &fakeTerminal{approval: Approval{Approved: false, Message: "insufficient funds"}}
	a := NewAdapter(nil, term)

	res, err := a.Authorize(context.Background(), Request{
		Method: MethodExternalTerminal,
		Amount: types.MustMoney("10.00"),
	})
	require.Error(t, err)
	assert.Equal(t, StateDeclined, res.State)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodePaymentDeclined, appErr.Code)
}

func TestTerminalUnreachableIsHardwareError(t *testing.T) {
	term := &fakeTerminal{connectErr: errors.New("dial tcp: connection refused")}
	a := NewAdapter(nil, term)

	_, err := a.Authorize(context.Background(), Request{
		Method: MethodExternalTerminal,
		Amount: types.MustMoney("10.00"),
	})
	require.True(t, apperror.IsHardware(err))
}

func TestTerminalCancelledFromAnyNonTerminalState(t *testing.T) {
	for _, at := range []string{"connect", "await", "process"} {
		t.Run(at, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			term := &fakeTerminal{cancelAt: at, cancel: cancel}
			a := NewAdapter(nil, term)

			var seen []State
			res, err := a.Authorize(ctx, Request{
				Method:  MethodExternalTerminal,
				Amount:  types.MustMoney("25.00"),
				OnState: func(s State) { seen = append(seen, s) },
			})
			require.Error(t, err)
			assert.Equal(t, StateCancelled, res.State)
			assert.Equal(t, StateCancelled, seen[len(seen)-1])

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperror.CodePaymentCancelled, appErr.Code)
		})
	}
}

func TestCardDeclined(t *testing.T) {
	card := &fakeCard{approval: Approval{Approved: false, Message: "do not honor"}}
	a := NewAdapter(card, nil)

	res, err := a.Authorize(context.Background(), Request{
		Method: MethodCard,
		Amount: types.MustMoney("55.00"),
	})
	require.Error(t, err)
	assert.Equal(t, StateDeclined, res.State)
}

func TestTerminalStatesAreTerminal(t *testing.T) {
	assert.True(t, StateApproved.Terminal())
	assert.True(t, StateDeclined.Terminal())
	assert.True(t, StateCancelled.Terminal())
	assert.False(t, StateWaitingAuth.Terminal())
	assert.False(t, StateIdle.Terminal())
}
