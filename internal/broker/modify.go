package broker

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/internal/orders"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

// DefaultCancelWait bounds how long CancelAndResubmit waits for the broker to
// confirm a cancellation when ctx carries no deadline.
const DefaultCancelWait = 30 * time.Second

// OrderFlow is the part of a broker that CancelAndResubmit drives.
type OrderFlow interface {
	CancelOrder(ctx context.Context, orderID string) error
	SubmitOrder(ctx context.Context, req types.OrderRequest) (types.Order, error)
}

// CancelAndResubmit emulates order amendment: it cancels the order, waits for
// the tracker to see the cancellation, and submits the remaining quantity with
// the modification applied. The replacement has a new id, and the cancelled
// order's ReplacedBy points at it.
func CancelAndResubmit(ctx context.Context, flow OrderFlow, tracker *orders.Tracker, orderID string, mod types.OrderModification) (types.Order, error) {
	if mod.IsEmpty() {
		return types.Order{}, errors.New(errors.ErrCodeInvalidParameter, "order modification is empty")
	}

	current, ok := tracker.Get(orderID)
	if !ok {
		return types.Order{}, errors.Newf(errors.ErrCodeNotFound, "order not found: %s", orderID)
	}

	if current.Status.IsTerminal() {
		return types.Order{}, errors.Newf(errors.ErrCodeRejected, "order %s is %s and cannot be modified", orderID, current.Status)
	}

	// validate the replacement before the original is gone
	replacement := current.ToRequest(mod)
	if err := replacement.Validate(); err != nil {
		return types.Order{}, err
	}

	if err := flow.CancelOrder(ctx, orderID); err != nil {
		return types.Order{}, err
	}

	waitCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc

		waitCtx, cancel = context.WithTimeout(ctx, DefaultCancelWait)
		defer cancel()
	}

	final, err := tracker.WaitFor(waitCtx, orderID, orders.IsTerminal)
	if err != nil {
		return types.Order{}, err
	}

	if final.Status != types.OrderStatusCancelled {
		return types.Order{}, errors.Newf(errors.ErrCodeRejected, "order %s was %s before it could be modified", orderID, final.Status)
	}

	// fills that arrived while cancelling shrink the remainder
	replacement = final.ToRequest(mod)
	if mod.Quantity.IsNone() && replacement.Quantity <= 0 {
		return types.Order{}, errors.Newf(errors.ErrCodeRejected, "order %s has no remaining quantity", orderID)
	}

	order, err := flow.SubmitOrder(ctx, replacement)
	if err != nil {
		return types.Order{}, err
	}

	tracker.SetReplacedBy(orderID, order.ID)

	return order, nil
}

// PositionReader is the part of a broker ClosePositions needs.
type PositionReader interface {
	GetPositions(ctx context.Context) ([]types.Position, error)
	ClosePosition(ctx context.Context, symbol string, quantity optional.Option[float64]) (types.Order, error)
}

// CloseRequest builds the market order that closes a position, or reduces it
// by quantity when given.
func CloseRequest(position types.Position, quantity optional.Option[float64]) (types.OrderRequest, error) {
	if position.Quantity <= 0 {
		return types.OrderRequest{}, errors.Newf(errors.ErrCodeNotFound, "no open position for %s", position.Symbol)
	}

	qty := position.Quantity
	if quantity.IsSome() {
		qty = quantity.Unwrap()
		if qty <= 0 || qty > position.Quantity {
			return types.OrderRequest{}, errors.Newf(errors.ErrCodeInvalidParameter,
				"close quantity %v must be within (0, %v]", qty, position.Quantity)
		}
	}

	side := types.OrderSideSell
	if position.Side == types.PositionSideShort {
		side = types.OrderSideBuy
	}

	return types.OrderRequest{
		Symbol:      position.Symbol,
		Side:        side,
		Type:        types.OrderTypeMarket,
		Quantity:    qty,
		TimeInForce: types.TimeInForceDay,
	}, nil
}

// CloseAllPositions closes every open position one by one. It keeps going
// after a failure and returns the orders sent with the first error seen.
func CloseAllPositions(ctx context.Context, b PositionReader) ([]types.Order, error) {
	positions, err := b.GetPositions(ctx)
	if err != nil {
		return nil, err
	}

	var firstErr error

	result := make([]types.Order, 0, len(positions))
	for _, position := range positions {
		if position.Quantity == 0 {
			continue
		}

		order, err := b.ClosePosition(ctx, position.Symbol, optional.None[float64]())
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}

			continue
		}

		result = append(result, order)
	}

	return result, firstErr
}
