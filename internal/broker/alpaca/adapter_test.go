package alpaca

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"
	"github.com/jonboulle/clockwork"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/internal/broker"
	"github.com/rxtech-lab/argo-gateway/internal/events"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

var epoch = time.Date(2026, 10, 16, 14, 30, 0, 0, time.UTC)

type AdapterTestSuite struct {
	suite.Suite
	trading *fakeTrading
	data    *fakeMarketData
	streams *fakeStreams
	clock   *clockwork.FakeClock
	bus     *events.Bus
	events  <-chan events.Event
	adapter *Adapter
}

func TestAdapterSuite(t *testing.T) {
	suite.Run(t, new(AdapterTestSuite))
}

func (suite *AdapterTestSuite) SetupTest() {
	suite.trading = newFakeTrading()
	suite.data = &fakeMarketData{}
	suite.streams = &fakeStreams{}
	suite.clock = clockwork.NewFakeClockAt(epoch)
	suite.bus = events.NewBus(logger.NewNopLogger())
	suite.events = suite.bus.Subscribe()

	adapter, err := NewAdapter("alp", broker.ProviderAlpacaPaper, Config{APIKey: "key", APISecret: "secret"},
		broker.Deps{Bus: suite.bus, Clock: suite.clock, Logger: logger.NewNopLogger()},
		WithTradingClient(suite.trading), WithMarketDataClient(suite.data), WithStreamFactory(suite.streams.factory))
	suite.Require().NoError(err)

	suite.adapter = adapter
}

func (suite *AdapterTestSuite) TearDownTest() {
	_ = suite.adapter.Disconnect(context.Background())
	suite.bus.Close()
}

func (suite *AdapterTestSuite) connect() {
	suite.Require().NoError(suite.adapter.Connect(context.Background()))
}

func (suite *AdapterTestSuite) waitEvent(match func(events.Event) bool) events.Event {
	timeout := time.After(5 * time.Second)

	for {
		select {
		case evt := <-suite.events:
			if match(evt) {
				return evt
			}
		case <-timeout:
			suite.FailNow("expected event not received")

			return nil
		}
	}
}

func dec(value float64) *decimal.Decimal {
	d := decimal.NewFromFloat(value)

	return &d
}

func apiOrder(id, status string, qty, filled float64) *alpaca.Order {
	return &alpaca.Order{
		ID:          id,
		Symbol:      "AAPL",
		Side:        alpaca.Buy,
		Type:        alpaca.Limit,
		TimeInForce: alpaca.Day,
		Qty:         dec(qty),
		FilledQty:   decimal.NewFromFloat(filled),
		LimitPrice:  dec(100),
		Status:      status,
		SubmittedAt: epoch,
		UpdatedAt:   epoch,
	}
}

func (suite *AdapterTestSuite) submitLimit() types.Order {
	suite.trading.placeResult = apiOrder("o1", "accepted", 10, 0)

	order, err := suite.adapter.SubmitOrder(context.Background(), types.OrderRequest{
		Symbol:     "AAPL",
		Side:       types.OrderSideBuy,
		Type:       types.OrderTypeLimit,
		Quantity:   10,
		LimitPrice: optional.Some(100.0),
	})
	suite.Require().NoError(err)

	return order
}

func (suite *AdapterTestSuite) TestConnectStartsTradeUpdates() {
	suite.connect()

	suite.True(suite.adapter.IsReady())
	suite.NotNil(suite.trading.handler)
	suite.waitEvent(func(evt events.Event) bool {
		_, ok := evt.(events.Connected)

		return ok
	})

	suite.Require().NoError(suite.adapter.Disconnect(context.Background()))
	suite.Error(suite.trading.updatesCtx.Err())
}

func (suite *AdapterTestSuite) TestConnectRejectedKey() {
	tests := []struct {
		name   string
		status int
	}{
		{name: "Unauthorized", status: 401},
		{name: "Forbidden", status: 403},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.trading.accountErr = &alpaca.APIError{StatusCode: tc.status, Message: "access denied"}

			err := suite.adapter.Connect(context.Background())
			suite.True(errors.IsAuthFailure(err))
			suite.False(suite.adapter.IsReady())
		})
	}
}

func (suite *AdapterTestSuite) TestRequestsBeforeConnect() {
	_, err := suite.adapter.GetPositions(context.Background())
	suite.True(errors.HasCode(err, errors.ErrCodeNotConnected))

	err = suite.adapter.SubscribeQuotes(context.Background(), []string{"AAPL"})
	suite.True(errors.HasCode(err, errors.ErrCodeNotConnected))
	suite.Equal(0, suite.streams.count())
}

func (suite *AdapterTestSuite) TestMarginAccount() {
	suite.trading.account = &alpaca.Account{
		ID:            "acct-1",
		Currency:      "USD",
		Cash:          decimal.NewFromInt(5000),
		Equity:        decimal.NewFromInt(12000),
		BuyingPower:   decimal.NewFromInt(24000),
		Multiplier:    decimal.NewFromInt(2),
		InitialMargin: decimal.NewFromInt(3500),
	}
	suite.connect()

	account, err := suite.adapter.GetAccount(context.Background())
	suite.Require().NoError(err)
	suite.Equal(types.AccountTypeMargin, account.Type)
	suite.Equal("alp", account.BrokerID)
	suite.Equal(5000.0, account.Balance)
	suite.Equal(12000.0, account.Equity)
	suite.Equal(24000.0, account.BuyingPower)
	suite.Equal(3500.0, account.MarginUsed)
}

func (suite *AdapterTestSuite) TestPositions() {
	suite.trading.positions = []alpaca.Position{
		{Symbol: "TSLA", Side: "short", Qty: decimal.NewFromInt(-3), AvgEntryPrice: decimal.NewFromInt(250)},
	}
	suite.connect()

	positions, err := suite.adapter.GetPositions(context.Background())
	suite.Require().NoError(err)
	suite.Require().Len(positions, 1)
	suite.Equal(types.PositionSideShort, positions[0].Side)
	suite.Equal(3.0, positions[0].Quantity)

	flat, err := suite.adapter.GetPosition(context.Background(), "AAPL")
	suite.Require().NoError(err)
	suite.Equal("AAPL", flat.Symbol)
	suite.Equal(0.0, flat.Quantity)
}

func (suite *AdapterTestSuite) TestSubmitLimitOrder() {
	suite.connect()

	order := suite.submitLimit()
	suite.Equal("o1", order.ID)
	suite.Equal(types.OrderStatusOpen, order.Status)
	suite.Equal("alp", order.BrokerID)

	suite.Require().Len(suite.trading.placed, 1)
	placed := suite.trading.placed[0]
	suite.Equal("AAPL", placed.Symbol)
	suite.Equal(alpaca.Limit, placed.Type)
	suite.Equal(alpaca.Day, placed.TimeInForce)
	suite.True(placed.Qty.Equal(decimal.NewFromInt(10)))
	suite.True(placed.LimitPrice.Equal(decimal.NewFromInt(100)))
	suite.Nil(placed.StopPrice)
	suite.NotEmpty(placed.ClientOrderID)
}

func (suite *AdapterTestSuite) TestSubmitCryptoDefaultsToGTC() {
	suite.connect()
	suite.trading.placeResult = apiOrder("c1", "new", 0.5, 0)

	_, err := suite.adapter.SubmitOrder(context.Background(), types.OrderRequest{
		Symbol:   "BTC/USD",
		Side:     types.OrderSideBuy,
		Type:     types.OrderTypeMarket,
		Quantity: 0.5,
	})
	suite.Require().NoError(err)
	suite.Equal(alpaca.GTC, suite.trading.placed[0].TimeInForce)
	suite.Equal(alpaca.Market, suite.trading.placed[0].Type)
}

func (suite *AdapterTestSuite) TestSubmitRejected() {
	suite.connect()
	suite.trading.placeErr = &alpaca.APIError{StatusCode: 403, Message: "insufficient buying power"}

	_, err := suite.adapter.SubmitOrder(context.Background(), types.OrderRequest{
		Symbol:   "AAPL",
		Side:     types.OrderSideBuy,
		Type:     types.OrderTypeMarket,
		Quantity: 1000,
	})
	suite.True(errors.HasCode(err, errors.ErrCodeRejected))

	_, err = suite.adapter.SubmitOrder(context.Background(), types.OrderRequest{Symbol: "AAPL", Side: types.OrderSideBuy, Type: types.OrderTypeLimit, Quantity: 1})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrder))
	suite.Len(suite.trading.placed, 1)
}

func (suite *AdapterTestSuite) TestTradeUpdatesFillOrder() {
	suite.connect()
	suite.submitLimit()

	filled := apiOrder("o1", "filled", 10, 10)
	filled.FilledAvgPrice = dec(99.5)
	suite.trading.push(alpaca.TradeUpdate{Event: "fill", Order: *filled})

	order, ok := suite.adapter.Tracker().Get("o1")
	suite.Require().True(ok)
	suite.Equal(types.OrderStatusFilled, order.Status)
	suite.Equal(10.0, order.FilledQuantity)
	suite.Equal(99.5, order.AverageFilledPrice)

	got, err := suite.adapter.GetOrder(context.Background(), "o1")
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusFilled, got.Status)
}

func (suite *AdapterTestSuite) TestCancelOrder() {
	suite.connect()
	suite.submitLimit()
	suite.trading.orders["o1"] = apiOrder("o1", "canceled", 10, 0)

	suite.Require().NoError(suite.adapter.CancelOrder(context.Background(), "o1"))
	suite.Equal([]string{"o1"}, suite.trading.cancelled)

	order, _ := suite.adapter.Tracker().Get("o1")
	suite.Equal(types.OrderStatusCancelled, order.Status)

	err := suite.adapter.CancelOrder(context.Background(), "o1")
	suite.True(errors.HasCode(err, errors.ErrCodeRejected))
	suite.Len(suite.trading.cancelled, 1)
}

func (suite *AdapterTestSuite) TestCancelUnknownOrder() {
	suite.connect()
	suite.trading.cancelErr = &alpaca.APIError{StatusCode: 404, Message: "order not found"}

	err := suite.adapter.CancelOrder(context.Background(), "missing")
	suite.True(errors.HasCode(err, errors.ErrCodeNotFound))
}

func (suite *AdapterTestSuite) TestModifyReplacesOrder() {
	suite.connect()
	suite.submitLimit()

	replacement := apiOrder("o2", "accepted", 5, 0)
	replacement.LimitPrice = dec(99)
	suite.trading.replaceOrder = replacement

	order, err := suite.adapter.ModifyOrder(context.Background(), "o1", types.OrderModification{
		Quantity:   optional.Some(5.0),
		LimitPrice: optional.Some(99.0),
	})
	suite.Require().NoError(err)
	suite.Equal("o2", order.ID)
	suite.Equal(types.OrderStatusOpen, order.Status)
	suite.Equal(99.0, order.LimitPrice.Unwrap())

	suite.Require().Len(suite.trading.replaced, 1)
	suite.True(suite.trading.replaced[0].Qty.Equal(decimal.NewFromInt(5)))
	suite.Nil(suite.trading.replaced[0].StopPrice)

	original, _ := suite.adapter.Tracker().Get("o1")
	suite.Equal(types.OrderStatusCancelled, original.Status)
	suite.Equal("o2", original.ReplacedBy)
}

func (suite *AdapterTestSuite) TestModifyValidation() {
	suite.connect()
	suite.submitLimit()

	partial := apiOrder("o1", "partially_filled", 10, 6)
	suite.trading.push(alpaca.TradeUpdate{Event: "partial_fill", Order: *partial})

	_, err := suite.adapter.ModifyOrder(context.Background(), "o1", types.OrderModification{Quantity: optional.Some(5.0)})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = suite.adapter.ModifyOrder(context.Background(), "o1", types.OrderModification{})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
	suite.Empty(suite.trading.replaced)
}

func (suite *AdapterTestSuite) TestGetOrdersAdoptsRemoteOrders() {
	suite.connect()
	suite.trading.orders["x1"] = apiOrder("x1", "new", 2, 0)
	suite.trading.orders["x2"] = apiOrder("x2", "filled", 3, 3)

	list, err := suite.adapter.GetOrders(context.Background(), types.OrderFilter{Statuses: []types.OrderStatus{types.OrderStatusOpen}})
	suite.Require().NoError(err)
	suite.Require().Len(list, 1)
	suite.Equal("x1", list[0].ID)
	suite.Equal("all", suite.trading.listed[0].Status)

	_, ok := suite.adapter.Tracker().Get("x2")
	suite.True(ok)
}

func (suite *AdapterTestSuite) TestClosePartialPosition() {
	suite.connect()
	suite.trading.closeOrder = apiOrder("c1", "accepted", 4, 0)
	suite.trading.closeOrder.Side = alpaca.Sell
	suite.trading.closeOrder.Type = alpaca.Market

	order, err := suite.adapter.ClosePosition(context.Background(), "AAPL", optional.Some(4.0))
	suite.Require().NoError(err)
	suite.Equal("c1", order.ID)
	suite.Equal(types.OrderSideSell, order.Side)
	suite.True(suite.trading.closeReqs[0].Qty.Equal(decimal.NewFromInt(4)))

	suite.trading.closeErr = &alpaca.APIError{StatusCode: 404, Message: "position not found"}
	_, err = suite.adapter.ClosePosition(context.Background(), "MSFT", optional.None[float64]())
	suite.True(errors.HasCode(err, errors.ErrCodeNotFound))
}

func (suite *AdapterTestSuite) TestGetQuote() {
	suite.connect()
	suite.data.quote = &marketdata.Quote{BidPrice: 189.5, BidSize: 3, AskPrice: 189.6, AskSize: 2, Timestamp: epoch}

	quote, err := suite.adapter.GetQuote(context.Background(), "AAPL")
	suite.Require().NoError(err)
	suite.Equal(189.5, quote.Bid)
	suite.Equal(2.0, quote.AskSize)
	suite.True(quote.Has(types.QuoteFieldAsk))
	suite.False(quote.Has(types.QuoteFieldLast))

	_, err = suite.adapter.GetQuote(context.Background(), "BTC/USD")
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupported))
}

func (suite *AdapterTestSuite) TestGetBars() {
	suite.connect()
	suite.data.bars = []marketdata.Bar{
		{Timestamp: epoch, Open: 1, High: 3, Low: 0.5, Close: 2, Volume: 1200},
	}

	bars, err := suite.adapter.GetBars(context.Background(), "AAPL", types.Timeframe5m, epoch.Add(-time.Hour), epoch)
	suite.Require().NoError(err)
	suite.Require().Len(bars, 1)
	suite.Equal(types.Timeframe5m, bars[0].Timeframe)
	suite.Equal(1200.0, bars[0].Volume)
	suite.Equal(marketdata.NewTimeFrame(5, marketdata.Min), suite.data.barsReqs[0].TimeFrame)
	suite.Equal(marketdata.Feed("iex"), suite.data.barsReqs[0].Feed)

	_, err = suite.adapter.GetBars(context.Background(), "AAPL", types.Timeframe1s, epoch.Add(-time.Hour), epoch)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupported))
}

func (suite *AdapterTestSuite) TestGetTradesFiltersSymbol() {
	suite.connect()
	suite.trading.activities = []alpaca.AccountActivity{
		{ID: "a1", OrderID: "o1", Symbol: "AAPL", Side: "buy", Qty: decimal.NewFromInt(2), Price: decimal.NewFromInt(190), TransactionTime: epoch},
		{ID: "a2", OrderID: "o2", Symbol: "MSFT", Side: "sell_short", Qty: decimal.NewFromInt(1), Price: decimal.NewFromInt(410), TransactionTime: epoch},
	}

	trades, err := suite.adapter.GetTrades(context.Background(), types.TradeFilter{Symbol: "MSFT"})
	suite.Require().NoError(err)
	suite.Require().Len(trades, 1)
	suite.Equal("a2", trades[0].ID)
	suite.Equal(types.OrderSideSell, trades[0].Side)
	suite.Equal(410.0, trades[0].ExecutedPrice)
}

func (suite *AdapterTestSuite) TestMarketHours() {
	suite.connect()
	suite.trading.clock = &alpaca.Clock{IsOpen: true}
	suite.trading.calendar = []alpaca.CalendarDay{
		{Date: "2026-10-16", Open: "09:30", Close: "16:00"},
		{Date: "2026-10-19", Open: "09:30", Close: "16:00"},
	}

	open, err := suite.adapter.IsMarketOpen(context.Background())
	suite.Require().NoError(err)
	suite.True(open)

	hours, err := suite.adapter.GetMarketHours(context.Background(), epoch)
	suite.Require().NoError(err)
	suite.True(hours.IsOpen)
	suite.True(hours.Open.Equal(time.Date(2026, 10, 16, 13, 30, 0, 0, time.UTC)))
	suite.True(hours.Close.Equal(time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)))
	suite.True(hours.ExtendedOpen.Equal(time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)))
	suite.True(hours.NextOpen.Equal(time.Date(2026, 10, 19, 13, 30, 0, 0, time.UTC)))

	suite.trading.calendar = suite.trading.calendar[1:]
	weekend, err := suite.adapter.GetMarketHours(context.Background(), epoch.Add(24*time.Hour))
	suite.Require().NoError(err)
	suite.False(weekend.IsOpen)
	suite.True(weekend.NextOpen.Equal(time.Date(2026, 10, 19, 13, 30, 0, 0, time.UTC)))
}

func (suite *AdapterTestSuite) TestQuoteStream() {
	suite.connect()

	suite.Require().NoError(suite.adapter.SubscribeQuotes(context.Background(), []string{"AAPL", "AAPL"}))
	suite.Require().NoError(suite.adapter.SubscribeQuotes(context.Background(), []string{"AAPL", "MSFT"}))
	suite.Equal(1, suite.streams.count())

	s := suite.streams.last()
	suite.True(s.connected)
	suite.Equal([]string{"AAPL", "MSFT"}, s.quotes)

	s.quoteHandler(stream.Quote{Symbol: "AAPL", BidPrice: 189.5, AskPrice: 189.6, BidSize: 1, AskSize: 4, Timestamp: epoch})

	evt := suite.waitEvent(func(evt events.Event) bool {
		_, ok := evt.(events.QuoteUpdate)

		return ok
	})
	quote := evt.(events.QuoteUpdate).Quote
	suite.Equal("AAPL", quote.Symbol)
	suite.Equal(189.6, quote.Ask)

	suite.Require().NoError(suite.adapter.UnsubscribeQuotes(context.Background(), []string{"MSFT", "TSLA"}))
	suite.Equal([]string{"MSFT"}, s.unsubscribed)
}

func (suite *AdapterTestSuite) TestBarStreamIsMinuteOnly() {
	suite.connect()

	err := suite.adapter.SubscribeBars(context.Background(), []string{"AAPL"}, types.Timeframe5m)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupported))

	suite.Require().NoError(suite.adapter.SubscribeBars(context.Background(), []string{"AAPL"}, types.Timeframe1m))
	s := suite.streams.last()
	s.barHandler(stream.Bar{Symbol: "AAPL", Open: 1, High: 2, Low: 1, Close: 2, Volume: 300, Timestamp: epoch})

	evt := suite.waitEvent(func(evt events.Event) bool {
		_, ok := evt.(events.BarUpdate)

		return ok
	})
	bar := evt.(events.BarUpdate).Bar
	suite.Equal(types.Timeframe1m, bar.Timeframe)
	suite.Equal(300.0, bar.Volume)
}

func (suite *AdapterTestSuite) TestStreamTerminationIsReported() {
	suite.connect()
	suite.Require().NoError(suite.adapter.SubscribeQuotes(context.Background(), []string{"AAPL"}))

	suite.streams.last().terminated <- stderrors.New("max reconnects reached")

	evt := suite.waitEvent(func(evt events.Event) bool {
		_, ok := evt.(events.Error)

		return ok
	})
	suite.Equal(errors.ErrCodeDisconnected, evt.(events.Error).Code)

	suite.Eventually(func() bool {
		return suite.adapter.SubscribeQuotes(context.Background(), []string{"AAPL"}) == nil && suite.streams.count() == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func (suite *AdapterTestSuite) TestCapabilities() {
	caps := suite.adapter.Capabilities()
	suite.True(caps.SupportsOrderType(types.OrderTypeTrailingStop))
	suite.True(caps.SupportsTimeInForce(types.TimeInForceOPG))
	suite.True(caps.Features.NativeModify)
	suite.True(caps.Features.PaperTrading)
	suite.False(caps.SupportsTimeframe(types.Timeframe1s))
}
