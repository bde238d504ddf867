package ibgateway

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/internal/broker"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/internal/wire"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"go.uber.org/zap"
)

func (a *Adapter) allocateOrderID() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextOrderID
	a.nextOrderID++

	return id
}

func parseOrderID(orderID string) (int64, error) {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "invalid order id %q", orderID)
	}

	return id, nil
}

// SubmitOrder sends PLACE_ORDER under the next order id. The returned order is
// pending: the gateway reports acceptance through ORDER_STATUS.
func (a *Adapter) SubmitOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	if err := req.Validate(); err != nil {
		return types.Order{}, err
	}

	if !a.capabilities.SupportsOrderType(req.Type) {
		return types.Order{}, errors.Newf(errors.ErrCodeUnsupported, "%s does not support %s orders", a.id, req.Type)
	}

	if err := a.ensureReady(); err != nil {
		return types.Order{}, err
	}

	if req.AssetClass == "" {
		req.AssetClass = a.assetClass(req.Symbol)
	}

	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}

	nativeID := a.allocateOrderID()

	native, err := wire.NativeOrderFromRequest(nativeID, a.currentAccount(), req)
	if err != nil {
		return types.Order{}, err
	}

	orderID := strconv.FormatInt(nativeID, 10)

	a.mu.Lock()
	a.natives[nativeID] = native
	a.mu.Unlock()

	// tracked before sending so that an immediate status push finds it
	order := a.tracker.Track(types.OrderFromRequest(orderID, a.id, req, a.clock.Now()))

	if err := a.send(&wire.PlaceOrder{Order: native}); err != nil {
		a.tracker.Reject(orderID, err.Error())

		return types.Order{}, err
	}

	a.logger.Info("Order sent",
		zap.String("order_id", orderID),
		zap.String("client_order_id", req.ClientOrderID),
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.Float64("quantity", req.Quantity),
	)

	return order, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, orderID string) error {
	nativeID, err := parseOrderID(orderID)
	if err != nil {
		return err
	}

	order, ok := a.tracker.Get(orderID)
	if !ok {
		return errors.Newf(errors.ErrCodeNotFound, "order not found: %s", orderID)
	}

	if order.Status.IsTerminal() {
		return errors.Newf(errors.ErrCodeRejected, "order %s is %s and cannot be cancelled", orderID, order.Status)
	}

	if err := a.ensureReady(); err != nil {
		return err
	}

	if err := a.send(&wire.CancelOrder{OrderID: nativeID}); err != nil {
		return err
	}

	a.logger.Info("Cancel sent", zap.String("order_id", orderID))

	return nil
}

// ModifyOrder amends the live order by re-sending PLACE_ORDER under the same
// order id.
func (a *Adapter) ModifyOrder(ctx context.Context, orderID string, mod types.OrderModification) (types.Order, error) {
	if mod.IsEmpty() {
		return types.Order{}, errors.New(errors.ErrCodeInvalidParameter, "order modification is empty")
	}

	nativeID, err := parseOrderID(orderID)
	if err != nil {
		return types.Order{}, err
	}

	current, ok := a.tracker.Get(orderID)
	if !ok {
		return types.Order{}, errors.Newf(errors.ErrCodeNotFound, "order not found: %s", orderID)
	}

	if current.Status.IsTerminal() {
		return types.Order{}, errors.Newf(errors.ErrCodeRejected, "order %s is %s and cannot be modified", orderID, current.Status)
	}

	if err := a.ensureReady(); err != nil {
		return types.Order{}, err
	}

	a.mu.RLock()
	native, ok := a.natives[nativeID]
	a.mu.RUnlock()

	if !ok {
		return types.Order{}, errors.Newf(errors.ErrCodeNotFound, "no gateway record for order %s", orderID)
	}

	amended := native.Apply(mod)

	req, err := amended.ToRequest()
	if err != nil {
		return types.Order{}, err
	}

	if err := req.Validate(); err != nil {
		return types.Order{}, err
	}

	if req.Quantity < current.FilledQuantity {
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidParameter,
			"quantity %v is below the filled quantity %v", req.Quantity, current.FilledQuantity)
	}

	if err := a.send(&wire.PlaceOrder{Order: amended}); err != nil {
		return types.Order{}, err
	}

	a.mu.Lock()
	a.natives[nativeID] = amended
	a.mu.Unlock()

	a.logger.Info("Modification sent", zap.String("order_id", orderID))

	return a.tracker.Amend(orderID, req)
}

// GetOrder returns the tracked order, refreshing open orders from the gateway
// when the id is not known locally.
func (a *Adapter) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	if order, ok := a.tracker.Get(orderID); ok {
		return order, nil
	}

	if a.IsReady() {
		if err := a.refreshOpenOrders(ctx); err != nil {
			return types.Order{}, err
		}

		if order, ok := a.tracker.Get(orderID); ok {
			return order, nil
		}
	}

	return types.Order{}, errors.Newf(errors.ErrCodeNotFound, "order not found: %s", orderID)
}

// GetOrders refreshes open orders from the gateway, then lists the tracked
// orders matching the filter.
func (a *Adapter) GetOrders(ctx context.Context, filter types.OrderFilter) ([]types.Order, error) {
	if err := a.refreshOpenOrders(ctx); err != nil {
		return nil, err
	}

	return a.tracker.List(filter), nil
}

// refreshOpenOrders asks for every open order. Replies are routed by type and
// reconciled by the OPEN_ORDER handler.
func (a *Adapter) refreshOpenOrders(ctx context.Context) error {
	_, err := a.keyedRequest(ctx, openOrdersRequestID, "open_orders", nil, &wire.ReqAllOpenOrders{})

	return err
}

func (a *Adapter) ClosePosition(ctx context.Context, symbol string, quantity optional.Option[float64]) (types.Order, error) {
	position, err := a.GetPosition(ctx, symbol)
	if err != nil {
		return types.Order{}, err
	}

	req, err := broker.CloseRequest(position, quantity)
	if err != nil {
		return types.Order{}, err
	}

	req.AssetClass = a.assetClass(symbol)

	return a.SubmitOrder(ctx, req)
}

func (a *Adapter) CloseAllPositions(ctx context.Context) ([]types.Order, error) {
	return broker.CloseAllPositions(ctx, a)
}
