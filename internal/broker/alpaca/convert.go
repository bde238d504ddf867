package alpaca

import (
	"strings"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/internal/orders"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/shopspring/decimal"
)

var timeframes = map[types.Timeframe]marketdata.TimeFrame{
	types.Timeframe1m:  marketdata.OneMin,
	types.Timeframe5m:  marketdata.NewTimeFrame(5, marketdata.Min),
	types.Timeframe15m: marketdata.NewTimeFrame(15, marketdata.Min),
	types.Timeframe30m: marketdata.NewTimeFrame(30, marketdata.Min),
	types.Timeframe1h:  marketdata.OneHour,
	types.Timeframe1d:  marketdata.OneDay,
	types.Timeframe1w:  marketdata.NewTimeFrame(1, marketdata.Week),
}

func decimalPtr(value float64) *decimal.Decimal {
	d := decimal.NewFromFloat(value)

	return &d
}

func optionalDecimal(value optional.Option[float64]) *decimal.Decimal {
	if value.IsNone() {
		return nil
	}

	return decimalPtr(value.Unwrap())
}

func fromDecimal(value *decimal.Decimal) optional.Option[float64] {
	if value == nil {
		return optional.None[float64]()
	}

	return optional.Some(value.InexactFloat64())
}

func floatOf(value *decimal.Decimal) float64 {
	if value == nil {
		return 0
	}

	return value.InexactFloat64()
}

func toOrderType(orderType types.OrderType) alpaca.OrderType {
	switch orderType {
	case types.OrderTypeLimit:
		return alpaca.Limit
	case types.OrderTypeStop:
		return alpaca.Stop
	case types.OrderTypeStopLimit:
		return alpaca.StopLimit
	case types.OrderTypeTrailingStop:
		return alpaca.TrailingStop
	default:
		return alpaca.Market
	}
}

func fromOrderType(orderType alpaca.OrderType) types.OrderType {
	switch orderType {
	case alpaca.Limit:
		return types.OrderTypeLimit
	case alpaca.Stop:
		return types.OrderTypeStop
	case alpaca.StopLimit:
		return types.OrderTypeStopLimit
	case alpaca.TrailingStop:
		return types.OrderTypeTrailingStop
	default:
		return types.OrderTypeMarket
	}
}

func toSide(side types.OrderSide) alpaca.Side {
	if side == types.OrderSideSell {
		return alpaca.Sell
	}

	return alpaca.Buy
}

func fromSide(side alpaca.Side) types.OrderSide {
	if side == alpaca.Sell {
		return types.OrderSideSell
	}

	return types.OrderSideBuy
}

func toTimeInForce(tif types.TimeInForce) alpaca.TimeInForce {
	switch tif {
	case types.TimeInForceGTC:
		return alpaca.GTC
	case types.TimeInForceIOC:
		return alpaca.IOC
	case types.TimeInForceFOK:
		return alpaca.FOK
	case types.TimeInForceOPG:
		return alpaca.OPG
	default:
		return alpaca.Day
	}
}

func fromTimeInForce(tif alpaca.TimeInForce) types.TimeInForce {
	switch tif {
	case alpaca.GTC:
		return types.TimeInForceGTC
	case alpaca.IOC:
		return types.TimeInForceIOC
	case alpaca.FOK:
		return types.TimeInForceFOK
	case alpaca.OPG:
		return types.TimeInForceOPG
	default:
		return types.TimeInForceDay
	}
}

func placeOrderRequest(req types.OrderRequest) alpaca.PlaceOrderRequest {
	return alpaca.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Qty:           decimalPtr(req.Quantity),
		Side:          toSide(req.Side),
		Type:          toOrderType(req.Type),
		TimeInForce:   toTimeInForce(req.TimeInForce),
		LimitPrice:    optionalDecimal(req.LimitPrice),
		StopPrice:     optionalDecimal(req.StopPrice),
		TrailPrice:    optionalDecimal(req.TrailAmount),
		TrailPercent:  optionalDecimal(req.TrailPercent),
		ExtendedHours: req.ExtendedHours,
		ClientOrderID: req.ClientOrderID,
	}
}

// replaceOrderRequest carries only the modified fields. Alpaca replaces the
// order quantity as a whole, not the remainder.
func replaceOrderRequest(mod types.OrderModification) alpaca.ReplaceOrderRequest {
	replace := alpaca.ReplaceOrderRequest{
		Qty:        optionalDecimal(mod.Quantity),
		LimitPrice: optionalDecimal(mod.LimitPrice),
		StopPrice:  optionalDecimal(mod.StopPrice),
	}

	if mod.TimeInForce.IsSome() {
		replace.TimeInForce = toTimeInForce(mod.TimeInForce.Unwrap())
	}

	return replace
}

// convertOrder converts an Alpaca order in pending state; the native status is
// applied separately through the tracker.
func convertOrder(brokerID string, o *alpaca.Order) types.Order {
	order := types.Order{
		ID:            o.ID,
		ClientOrderID: o.ClientOrderID,
		BrokerID:      brokerID,
		Symbol:        o.Symbol,
		Side:          fromSide(o.Side),
		Type:          fromOrderType(o.Type),
		Quantity:      floatOf(o.Qty),
		LimitPrice:    fromDecimal(o.LimitPrice),
		StopPrice:     fromDecimal(o.StopPrice),
		TrailAmount:   fromDecimal(o.TrailPrice),
		TrailPercent:  fromDecimal(o.TrailPercent),
		TimeInForce:   fromTimeInForce(o.TimeInForce),
		Status:        types.OrderStatusPending,
		SubmittedAt:   o.SubmittedAt,
		UpdatedAt:     o.UpdatedAt,
	}

	if o.ReplacedBy != nil {
		order.ReplacedBy = *o.ReplacedBy
	}

	return order
}

func orderUpdate(o *alpaca.Order) orders.Update {
	return orders.Update{
		OrderID:      o.ID,
		NativeStatus: o.Status,
		Filled:       optional.Some(o.FilledQty.InexactFloat64()),
		AveragePrice: floatOf(o.FilledAvgPrice),
		Symbol:       o.Symbol,
		At:           o.UpdatedAt,
	}
}

func convertPosition(brokerID string, p alpaca.Position) types.Position {
	side := types.PositionSideLong
	if strings.EqualFold(p.Side, "short") {
		side = types.PositionSideShort
	}

	return types.Position{
		Symbol:        p.Symbol,
		BrokerID:      brokerID,
		Side:          side,
		Quantity:      p.Qty.Abs().InexactFloat64(),
		EntryPrice:    p.AvgEntryPrice.InexactFloat64(),
		CurrentPrice:  floatOf(p.CurrentPrice),
		MarketValue:   floatOf(p.MarketValue),
		UnrealizedPnL: floatOf(p.UnrealizedPL),
	}
}

func convertActivity(brokerID string, a alpaca.AccountActivity) types.Trade {
	side := types.OrderSideBuy
	if strings.HasPrefix(strings.ToLower(a.Side), "sell") {
		side = types.OrderSideSell
	}

	return types.Trade{
		ID:            a.ID,
		OrderID:       a.OrderID,
		BrokerID:      brokerID,
		Symbol:        a.Symbol,
		Side:          side,
		ExecutedAt:    a.TransactionTime,
		ExecutedQty:   a.Qty.InexactFloat64(),
		ExecutedPrice: a.Price.InexactFloat64(),
	}
}

func convertBar(symbol string, timeframe types.Timeframe, b marketdata.Bar) types.Bar {
	return types.Bar{
		Symbol:    symbol,
		Timeframe: timeframe,
		Timestamp: b.Timestamp,
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    float64(b.Volume),
	}
}

func validateModification(order types.Order, mod types.OrderModification) error {
	if mod.IsEmpty() {
		return errors.New(errors.ErrCodeInvalidParameter, "order modification is empty")
	}

	if order.Status.IsTerminal() {
		return errors.Newf(errors.ErrCodeRejected, "order %s is %s and cannot be modified", order.ID, order.Status)
	}

	if mod.Quantity.IsSome() && mod.Quantity.Unwrap() <= order.FilledQuantity {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"quantity %v must exceed the filled quantity %v", mod.Quantity.Unwrap(), order.FilledQuantity)
	}

	return nil
}
