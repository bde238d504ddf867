// Package broker defines the uniform interface every brokerage adapter
// implements, the registry of supported providers, and helpers shared by the
// adapters.
package broker

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/internal/events"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/types"
)

// Broker is one connected brokerage back-end. Every method fails with a
// *errors.Error so callers can branch on the error code.
type Broker interface {
	// ID returns the instance id the broker was registered under.
	ID() string
	// Provider returns the provider type the broker was built for.
	Provider() ProviderType
	// Capabilities returns what the broker supports. The result never changes
	// for the lifetime of the instance.
	Capabilities() types.BrokerCapabilities

	// Connect authenticates or opens the connection. It returns once the
	// broker is ready to serve requests.
	Connect(ctx context.Context) error
	// Disconnect releases the connection. No reconnect is attempted after it.
	Disconnect(ctx context.Context) error
	// IsReady reports whether requests can be served right now.
	IsReady() bool

	// GetAccount returns the current account state including balance, equity and margin.
	GetAccount(ctx context.Context) (types.Account, error)
	// GetPositions returns the current positions
	GetPositions(ctx context.Context) ([]types.Position, error)
	// GetPosition returns the current position for a symbol
	GetPosition(ctx context.Context, symbol string) (types.Position, error)

	// SubmitOrder sends an order. The returned order is usually still pending:
	// acceptance arrives later as an order update.
	SubmitOrder(ctx context.Context, req types.OrderRequest) (types.Order, error)
	// CancelOrder requests cancellation of an order
	CancelOrder(ctx context.Context, orderID string) error
	// ModifyOrder amends an order. Brokers without native amendment cancel and
	// resubmit, in which case the returned order has a new id.
	ModifyOrder(ctx context.Context, orderID string, mod types.OrderModification) (types.Order, error)
	// GetOrder returns one order by id
	GetOrder(ctx context.Context, orderID string) (types.Order, error)
	// GetOrders returns the orders matching the filter
	GetOrders(ctx context.Context, filter types.OrderFilter) ([]types.Order, error)
	// ClosePosition sends an order flattening the position, or reducing it by
	// quantity when one is given.
	ClosePosition(ctx context.Context, symbol string, quantity optional.Option[float64]) (types.Order, error)
	// CloseAllPositions flattens every open position
	CloseAllPositions(ctx context.Context) ([]types.Order, error)

	// GetQuote returns the latest quote for a symbol
	GetQuote(ctx context.Context, symbol string) (types.Quote, error)
	// GetBars returns historical bars in [start, end]
	GetBars(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Bar, error)
	// SubscribeQuotes streams quote updates for the symbols onto the event bus.
	SubscribeQuotes(ctx context.Context, symbols []string) error
	UnsubscribeQuotes(ctx context.Context, symbols []string) error
	// SubscribeBars streams bar updates for the symbols onto the event bus.
	SubscribeBars(ctx context.Context, symbols []string, timeframe types.Timeframe) error
	UnsubscribeBars(ctx context.Context, symbols []string) error

	// GetTrades returns executed trades with optional filtering
	GetTrades(ctx context.Context, filter types.TradeFilter) ([]types.Trade, error)
	// IsMarketOpen reports whether the venue is trading now
	IsMarketOpen(ctx context.Context) (bool, error)
	// GetMarketHours returns the trading session for the given date
	GetMarketHours(ctx context.Context, date time.Time) (types.MarketHours, error)
}

// Deps are the collaborators injected into every adapter.
type Deps struct {
	Bus    *events.Bus
	Clock  clockwork.Clock
	Logger *logger.Logger
}

// WithDefaults fills the missing collaborators with a real clock and a no-op
// logger. A nil bus is valid; events are then discarded.
func (d Deps) WithDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}

	if d.Logger == nil {
		d.Logger = logger.NewNopLogger()
	}

	return d
}
