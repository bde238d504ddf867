package robinhood

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/internal/orders"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/internal/utils"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

// quantityPrecision is the number of decimals fractional share orders accept.
const quantityPrecision = 6

type barQuery struct {
	interval string
	span     string
}

var barQueries = map[types.Timeframe]barQuery{
	types.Timeframe5m: {interval: "5minute", span: "week"},
	types.Timeframe1h: {interval: "hour", span: "month"},
	types.Timeframe1d: {interval: "day", span: "5year"},
	types.Timeframe1w: {interval: "week", span: "5year"},
}

// toOrderType maps an order type onto the type and trigger pair the API uses.
func toOrderType(orderType types.OrderType) (string, string, error) {
	switch orderType {
	case types.OrderTypeMarket:
		return "market", "immediate", nil
	case types.OrderTypeLimit:
		return "limit", "immediate", nil
	case types.OrderTypeStop:
		return "market", "stop", nil
	case types.OrderTypeStopLimit:
		return "limit", "stop", nil
	case types.OrderTypeTrailingStop:
		return "", "", errors.Newf(errors.ErrCodeUnsupported, "robinhood does not support %s orders", orderType)
	default:
		return "", "", errors.Newf(errors.ErrCodeInvalidOrder, "unknown order type: %s", orderType)
	}
}

func fromOrderType(orderType, trigger string) types.OrderType {
	switch {
	case orderType == "limit" && trigger == "stop":
		return types.OrderTypeStopLimit
	case orderType == "limit":
		return types.OrderTypeLimit
	case trigger == "stop":
		return types.OrderTypeStop
	default:
		return types.OrderTypeMarket
	}
}

func toTimeInForce(tif types.TimeInForce) (string, error) {
	switch tif {
	case types.TimeInForceDay, "":
		return "gfd", nil
	case types.TimeInForceGTC:
		return "gtc", nil
	case types.TimeInForceIOC:
		return "ioc", nil
	case types.TimeInForceOPG:
		return "opg", nil
	default:
		return "", errors.Newf(errors.ErrCodeUnsupported, "robinhood does not support time in force %s", tif)
	}
}

func fromTimeInForce(tif string) types.TimeInForce {
	switch tif {
	case "gtc":
		return types.TimeInForceGTC
	case "ioc":
		return types.TimeInForceIOC
	case "opg":
		return types.TimeInForceOPG
	default:
		return types.TimeInForceDay
	}
}

func toSide(side types.OrderSide) string {
	if side == types.OrderSideSell {
		return "sell"
	}

	return "buy"
}

func fromSide(side string) types.OrderSide {
	if side == "sell" {
		return types.OrderSideSell
	}

	return types.OrderSideBuy
}

func priceOf(value string) optional.Option[float64] {
	if value == "" {
		return optional.None[float64]()
	}

	return optional.Some(utils.ParseFloat(value))
}

// buildOrder maps a request onto the order body. The instrument comes from a
// prior lookup.
func buildOrder(req types.OrderRequest, accountURL, instrumentURL string) (orderRequest, error) {
	orderType, trigger, err := toOrderType(req.Type)
	if err != nil {
		return orderRequest{}, err
	}

	tif, err := toTimeInForce(req.TimeInForce)
	if err != nil {
		return orderRequest{}, err
	}

	body := orderRequest{
		Account:       accountURL,
		Instrument:    instrumentURL,
		Symbol:        req.Symbol,
		Type:          orderType,
		Trigger:       trigger,
		TimeInForce:   tif,
		Side:          toSide(req.Side),
		Quantity:      utils.FormatQuantity(req.Quantity, quantityPrecision),
		RefID:         req.ClientOrderID,
		ExtendedHours: req.ExtendedHours,
	}

	if req.LimitPrice.IsSome() {
		body.Price = utils.FormatPrice(req.LimitPrice.Unwrap())
	}

	if req.StopPrice.IsSome() {
		body.StopPrice = utils.FormatPrice(req.StopPrice.Unwrap())
	}

	return body, nil
}

// convertOrder converts an order in pending state; its state is applied
// through the tracker.
func convertOrder(brokerID, symbol string, o orderResponse) types.Order {
	return types.Order{
		ID:            o.ID,
		ClientOrderID: o.RefID,
		BrokerID:      brokerID,
		Symbol:        symbol,
		Side:          fromSide(o.Side),
		Type:          fromOrderType(o.Type, o.Trigger),
		Quantity:      utils.ParseFloat(o.Quantity),
		LimitPrice:    priceOf(o.Price),
		StopPrice:     priceOf(o.StopPrice),
		TimeInForce:   fromTimeInForce(o.TimeInForce),
		Status:        types.OrderStatusPending,
		SubmittedAt:   o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func orderUpdate(o orderResponse) orders.Update {
	return orders.Update{
		OrderID:      o.ID,
		NativeStatus: o.State,
		Filled:       optional.Some(utils.ParseFloat(o.CumulativeQuantity)),
		AveragePrice: utils.ParseFloat(o.AveragePrice),
		Commission:   utils.ParseFloat(o.Fees),
		Reason:       o.RejectReason,
		Symbol:       o.Symbol,
		At:           o.UpdatedAt,
	}
}

func convertTrades(brokerID, symbol string, o orderResponse) []types.Trade {
	trades := make([]types.Trade, 0, len(o.Executions))
	for _, e := range o.Executions {
		trades = append(trades, types.Trade{
			ID:            e.ID,
			OrderID:       o.ID,
			BrokerID:      brokerID,
			Symbol:        symbol,
			Side:          fromSide(o.Side),
			ExecutedAt:    e.Timestamp,
			ExecutedQty:   utils.ParseFloat(e.Quantity),
			ExecutedPrice: utils.ParseFloat(e.Price),
		})
	}

	return trades
}

func convertQuote(q quoteResponse) types.Quote {
	quote := types.Quote{Symbol: q.Symbol, Timestamp: q.UpdatedAt}
	quote.Set(types.QuoteFieldBid, utils.ParseFloat(q.BidPrice))
	quote.Set(types.QuoteFieldBidSize, q.BidSize)
	quote.Set(types.QuoteFieldAsk, utils.ParseFloat(q.AskPrice))
	quote.Set(types.QuoteFieldAskSize, q.AskSize)

	if q.LastTradePrice != "" {
		quote.Set(types.QuoteFieldLast, utils.ParseFloat(q.LastTradePrice))
	}

	return quote
}

func convertBar(symbol string, timeframe types.Timeframe, h historical) types.Bar {
	return types.Bar{
		Symbol:    symbol,
		Timeframe: timeframe,
		Timestamp: h.BeginsAt,
		Open:      utils.ParseFloat(h.OpenPrice),
		High:      utils.ParseFloat(h.HighPrice),
		Low:       utils.ParseFloat(h.LowPrice),
		Close:     utils.ParseFloat(h.ClosePrice),
		Volume:    h.Volume,
	}
}
