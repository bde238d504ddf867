package binance

import (
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/internal/orders"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/internal/utils"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

// intervals maps timeframes onto Binance kline intervals.
// Ref: https://binance-docs.github.io/apidocs/spot/en/#kline-candlestick-data
var intervals = map[types.Timeframe]string{
	types.Timeframe1s:  "1s",
	types.Timeframe1m:  "1m",
	types.Timeframe5m:  "5m",
	types.Timeframe15m: "15m",
	types.Timeframe30m: "30m",
	types.Timeframe1h:  "1h",
	types.Timeframe1d:  "1d",
	types.Timeframe1w:  "1w",
}

func toSide(side types.OrderSide) (binance.SideType, error) {
	switch side {
	case types.OrderSideBuy:
		return binance.SideTypeBuy, nil
	case types.OrderSideSell:
		return binance.SideTypeSell, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidOrder, "unsupported order side: %s", side)
	}
}

func fromSide(side binance.SideType) types.OrderSide {
	if side == binance.SideTypeSell {
		return types.OrderSideSell
	}

	return types.OrderSideBuy
}

func toOrderType(orderType types.OrderType) (binance.OrderType, error) {
	switch orderType {
	case types.OrderTypeMarket:
		return binance.OrderTypeMarket, nil
	case types.OrderTypeLimit:
		return binance.OrderTypeLimit, nil
	case types.OrderTypeStopLimit:
		return binance.OrderTypeStopLossLimit, nil
	case types.OrderTypeStop, types.OrderTypeTrailingStop:
	}

	return "", errors.Newf(errors.ErrCodeUnsupported, "binance does not support %s orders", orderType)
}

func fromOrderType(orderType binance.OrderType) types.OrderType {
	switch orderType {
	case binance.OrderTypeMarket:
		return types.OrderTypeMarket
	case binance.OrderTypeStopLossLimit, binance.OrderTypeTakeProfitLimit:
		return types.OrderTypeStopLimit
	case binance.OrderTypeStopLoss, binance.OrderTypeTakeProfit:
		return types.OrderTypeStop
	default:
		return types.OrderTypeLimit
	}
}

func toTimeInForce(tif types.TimeInForce) (binance.TimeInForceType, error) {
	switch tif {
	case types.TimeInForceGTC, "":
		return binance.TimeInForceTypeGTC, nil
	case types.TimeInForceIOC:
		return binance.TimeInForceTypeIOC, nil
	case types.TimeInForceFOK:
		return binance.TimeInForceTypeFOK, nil
	case types.TimeInForceDay, types.TimeInForceOPG:
	}

	return "", errors.Newf(errors.ErrCodeUnsupported, "binance does not support time in force %s", tif)
}

func fromTimeInForce(tif binance.TimeInForceType) types.TimeInForce {
	switch tif {
	case binance.TimeInForceTypeIOC:
		return types.TimeInForceIOC
	case binance.TimeInForceTypeFOK:
		return types.TimeInForceFOK
	default:
		return types.TimeInForceGTC
	}
}

// averagePrice derives the fill price from the cumulative quote quantity.
func averagePrice(executed, cumulativeQuote string) float64 {
	qty := utils.ParseFloat(executed)
	if qty == 0 {
		return 0
	}

	return utils.ParseFloat(cumulativeQuote) / qty
}

// priceOption reads a price field where zero means unset.
func priceOption(value string) optional.Option[float64] {
	price := utils.ParseFloat(value)
	if price == 0 {
		return optional.None[float64]()
	}

	return optional.Some(price)
}

// convertOrder converts a Binance order to an order in pending state; the
// native status is applied separately through the tracker.
func convertOrder(brokerID string, bo *binance.Order) types.Order {
	submitted := time.UnixMilli(bo.Time)

	return types.Order{
		ID:            strconv.FormatInt(bo.OrderID, 10),
		ClientOrderID: bo.ClientOrderID,
		BrokerID:      brokerID,
		Symbol:        bo.Symbol,
		Side:          fromSide(bo.Side),
		Type:          fromOrderType(bo.Type),
		Quantity:      utils.ParseFloat(bo.OrigQuantity),
		LimitPrice:    priceOption(bo.Price),
		StopPrice:     priceOption(bo.StopPrice),
		TimeInForce:   fromTimeInForce(bo.TimeInForce),
		Status:        types.OrderStatusPending,
		SubmittedAt:   submitted,
		UpdatedAt:     submitted,
	}
}

func orderUpdate(bo *binance.Order) orders.Update {
	return orders.Update{
		OrderID:      strconv.FormatInt(bo.OrderID, 10),
		NativeStatus: string(bo.Status),
		Filled:       optional.Some(utils.ParseFloat(bo.ExecutedQuantity)),
		AveragePrice: averagePrice(bo.ExecutedQuantity, bo.CummulativeQuoteQuantity),
		Symbol:       bo.Symbol,
		At:           time.UnixMilli(bo.UpdateTime),
	}
}

func createUpdate(resp *binance.CreateOrderResponse) orders.Update {
	var commission float64
	for _, fill := range resp.Fills {
		commission += utils.ParseFloat(fill.Commission)
	}

	return orders.Update{
		OrderID:      strconv.FormatInt(resp.OrderID, 10),
		NativeStatus: string(resp.Status),
		Filled:       optional.Some(utils.ParseFloat(resp.ExecutedQuantity)),
		AveragePrice: averagePrice(resp.ExecutedQuantity, resp.CummulativeQuoteQuantity),
		Commission:   commission,
		Symbol:       resp.Symbol,
		At:           time.UnixMilli(resp.TransactTime),
	}
}

func cancelUpdate(resp *binance.CancelOrderResponse) orders.Update {
	return orders.Update{
		OrderID:      strconv.FormatInt(resp.OrderID, 10),
		NativeStatus: string(resp.Status),
		Filled:       optional.Some(utils.ParseFloat(resp.ExecutedQuantity)),
		AveragePrice: averagePrice(resp.ExecutedQuantity, resp.CummulativeQuoteQuantity),
		Symbol:       resp.Symbol,
		At:           time.UnixMilli(resp.TransactTime),
	}
}

// convertTrade converts a Binance trade to our Trade type.
func convertTrade(brokerID string, bt *binance.TradeV3) types.Trade {
	side := types.OrderSideSell
	if bt.IsBuyer {
		side = types.OrderSideBuy
	}

	return types.Trade{
		ID:            strconv.FormatInt(bt.ID, 10),
		OrderID:       strconv.FormatInt(bt.OrderID, 10),
		BrokerID:      brokerID,
		Symbol:        bt.Symbol,
		Side:          side,
		ExecutedAt:    time.UnixMilli(bt.Time),
		ExecutedQty:   utils.ParseFloat(bt.Quantity),
		ExecutedPrice: utils.ParseFloat(bt.Price),
		Fee:           utils.ParseFloat(bt.Commission),
	}
}

func convertKline(symbol string, timeframe types.Timeframe, k *binance.Kline) types.Bar {
	return types.Bar{
		Symbol:    symbol,
		Timeframe: timeframe,
		Timestamp: time.UnixMilli(k.OpenTime),
		Open:      utils.ParseFloat(k.Open),
		High:      utils.ParseFloat(k.High),
		Low:       utils.ParseFloat(k.Low),
		Close:     utils.ParseFloat(k.Close),
		Volume:    utils.ParseFloat(k.Volume),
	}
}

func convertBookTicker(ticker *binance.BookTicker, at time.Time) types.Quote {
	quote := types.Quote{Symbol: ticker.Symbol, Timestamp: at}
	quote.Set(types.QuoteFieldBid, utils.ParseFloat(ticker.BidPrice))
	quote.Set(types.QuoteFieldBidSize, utils.ParseFloat(ticker.BidQuantity))
	quote.Set(types.QuoteFieldAsk, utils.ParseFloat(ticker.AskPrice))
	quote.Set(types.QuoteFieldAskSize, utils.ParseFloat(ticker.AskQuantity))

	return quote
}
