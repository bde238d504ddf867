package alpaca

import (
	"context"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"
)

// TradingClient is the part of the Alpaca trading API the adapter uses.
// *alpaca.Client implements it.
type TradingClient interface {
	GetAccount() (*alpaca.Account, error)
	GetPositions() ([]alpaca.Position, error)
	GetPosition(symbol string) (*alpaca.Position, error)
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
	GetOrder(orderID string) (*alpaca.Order, error)
	GetOrders(req alpaca.GetOrdersRequest) ([]alpaca.Order, error)
	CancelOrder(orderID string) error
	ReplaceOrder(orderID string, req alpaca.ReplaceOrderRequest) (*alpaca.Order, error)
	ClosePosition(symbol string, req alpaca.ClosePositionRequest) (*alpaca.Order, error)
	GetClock() (*alpaca.Clock, error)
	GetCalendar(req alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error)
	GetAccountActivities(req alpaca.GetAccountActivitiesRequest) ([]alpaca.AccountActivity, error)
	StreamTradeUpdatesInBackground(ctx context.Context, handler func(alpaca.TradeUpdate))
}

// MarketDataClient is the part of the market data API the adapter uses.
// *marketdata.Client implements it.
type MarketDataClient interface {
	GetLatestQuote(symbol string, req marketdata.GetLatestQuoteRequest) (*marketdata.Quote, error)
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// Stream is the real-time stock data stream. *stream.StocksClient implements it.
type Stream interface {
	Connect(ctx context.Context) error
	Terminated() <-chan error
	SubscribeToQuotes(handler func(stream.Quote), symbols ...string) error
	UnsubscribeFromQuotes(symbols ...string) error
	SubscribeToBars(handler func(stream.Bar), symbols ...string) error
	UnsubscribeFromBars(symbols ...string) error
}

// StreamFactory creates a stream that is not yet connected.
type StreamFactory func() Stream

func newTradingClient(cfg Config) TradingClient {
	return alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
	})
}

func newMarketDataClient(cfg Config) MarketDataClient {
	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.DataURL != "" {
		opts.BaseURL = cfg.DataURL
	}

	return marketdata.NewClient(opts)
}

func newStreamFactory(cfg Config) StreamFactory {
	return func() Stream {
		return stream.NewStocksClient(marketdata.Feed(cfg.Feed), stream.WithCredentials(cfg.APIKey, cfg.APISecret))
	}
}
