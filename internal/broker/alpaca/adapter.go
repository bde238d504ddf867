// Package alpaca implements the broker interface over the Alpaca trading and
// market data APIs. Order state is pushed by the trade updates stream; quotes
// and bars stream over the stock data websocket.
package alpaca

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/internal/broker"
	"github.com/rxtech-lab/argo-gateway/internal/events"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/orders"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultOrderLimit = 500
	// calendarLookahead covers the longest run of market holidays.
	calendarLookahead = 10 * 24 * time.Hour
)

type Option func(*Adapter)

func WithTradingClient(client TradingClient) Option {
	return func(a *Adapter) {
		a.trading = client
	}
}

func WithMarketDataClient(client MarketDataClient) Option {
	return func(a *Adapter) {
		a.data = client
	}
}

func WithStreamFactory(factory StreamFactory) Option {
	return func(a *Adapter) {
		a.newStream = factory
	}
}

// Adapter is the Alpaca broker.
type Adapter struct {
	id           string
	provider     broker.ProviderType
	cfg          Config
	capabilities types.BrokerCapabilities
	trading      TradingClient
	data         MarketDataClient
	newStream    StreamFactory
	bus          *events.Bus
	clock        clockwork.Clock
	logger       *logger.Logger
	tracker      *orders.Tracker
	exchangeTZ   *time.Location

	ready atomic.Bool

	mu           sync.Mutex
	stream       Stream
	stopStream   context.CancelFunc
	stopUpdates  context.CancelFunc
	quoteSymbols map[string]struct{}
	barSymbols   map[string]struct{}
}

// NewAdapter creates an Alpaca broker for the paper or live provider.
func NewAdapter(id string, provider broker.ProviderType, cfg Config, deps broker.Deps, opts ...Option) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg = cfg.WithDefaults(provider.IsPaper())
	deps = deps.WithDefaults()
	log := deps.Logger.Named("alpaca").With(zap.String("broker", id))

	exchangeTZ, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to load exchange time zone", err)
	}

	a := &Adapter{
		id:           id,
		provider:     provider,
		cfg:          cfg,
		capabilities: capabilitiesFor(provider),
		trading:      newTradingClient(cfg),
		data:         newMarketDataClient(cfg),
		newStream:    newStreamFactory(cfg),
		bus:          deps.Bus,
		clock:        deps.Clock,
		logger:       log,
		exchangeTZ:   exchangeTZ,
		quoteSymbols: make(map[string]struct{}),
		barSymbols:   make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.tracker = orders.NewTracker(id, orders.VocabularyAlpaca, cfg.Orders, deps.Bus, deps.Clock, log)

	return a, nil
}

func capabilitiesFor(provider broker.ProviderType) types.BrokerCapabilities {
	return types.BrokerCapabilities{
		AssetClasses: []types.AssetClass{types.AssetClassEquity, types.AssetClassCrypto},
		OrderTypes: []types.OrderType{
			types.OrderTypeMarket, types.OrderTypeLimit, types.OrderTypeStop,
			types.OrderTypeStopLimit, types.OrderTypeTrailingStop,
		},
		TimeInForce: []types.TimeInForce{
			types.TimeInForceDay, types.TimeInForceGTC, types.TimeInForceIOC,
			types.TimeInForceFOK, types.TimeInForceOPG,
		},
		Timeframes: []types.Timeframe{
			types.Timeframe1m, types.Timeframe5m, types.Timeframe15m, types.Timeframe30m,
			types.Timeframe1h, types.Timeframe1d, types.Timeframe1w,
		},
		Features: types.BrokerFeatures{
			Streaming:        true,
			Margin:           true,
			FractionalShares: true,
			ExtendedHours:    true,
			PaperTrading:     provider.IsPaper(),
			NativeModify:     true,
			MarketHours:      true,
		},
	}
}

func (a *Adapter) ID() string { return a.id }

func (a *Adapter) Provider() broker.ProviderType { return a.provider }

func (a *Adapter) Capabilities() types.BrokerCapabilities { return a.capabilities.Clone() }

// Tracker exposes the order tracker, e.g. to await a fill.
func (a *Adapter) Tracker() *orders.Tracker { return a.tracker }

func (a *Adapter) IsReady() bool { return a.ready.Load() }

func (a *Adapter) ensureReady(ctx context.Context) error {
	if !a.ready.Load() {
		return errors.NotConnected(a.id)
	}

	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeTimeout, "request abandoned", err)
	}

	return nil
}

// Connect checks the credentials against the account endpoint and starts the
// trade updates stream.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.ready.Load() {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeTimeout, "connect abandoned", err)
	}

	account, err := a.trading.GetAccount()
	if err != nil {
		err = wrapAuthError(err, "failed to connect to Alpaca API")
		a.logger.Error("Connect failed", zap.Error(err))

		return err
	}

	if account.TradingBlocked {
		a.logger.Warn("Account is blocked from trading", zap.String("account", account.ID))
	}

	updatesCtx, stop := context.WithCancel(context.Background())
	a.trading.StreamTradeUpdatesInBackground(updatesCtx, a.onTradeUpdate)

	a.mu.Lock()
	a.stopUpdates = stop
	a.mu.Unlock()

	a.ready.Store(true)
	a.logger.Info("Connected to Alpaca", zap.String("account", account.ID), zap.String("base_url", a.cfg.BaseURL))
	a.bus.Publish(events.NewConnected(a.id, a.clock.Now()))

	return nil
}

// Disconnect stops the trade updates and market data streams.
func (a *Adapter) Disconnect(_ context.Context) error {
	wasReady := a.ready.Swap(false)

	a.mu.Lock()
	stopUpdates := a.stopUpdates
	stopStream := a.stopStream
	a.stopUpdates = nil
	a.stopStream = nil
	a.stream = nil
	clear(a.quoteSymbols)
	clear(a.barSymbols)
	a.mu.Unlock()

	if stopUpdates != nil {
		stopUpdates()
	}

	if stopStream != nil {
		stopStream()
	}

	if wasReady {
		a.logger.Info("Disconnected from Alpaca")
		a.bus.Publish(events.NewDisconnected(a.id, a.clock.Now(), "disconnect requested", true))
	}

	return nil
}

func (a *Adapter) onTradeUpdate(update alpaca.TradeUpdate) {
	order := update.Order
	observed := a.observe(&order)

	a.logger.Debug("Trade update",
		zap.String("event", update.Event),
		zap.String("order_id", observed.ID),
		zap.String("status", string(observed.Status)),
	)
}

// observe records an order reported by the API in the tracker.
func (a *Adapter) observe(o *alpaca.Order) types.Order {
	if _, ok := a.tracker.Get(o.ID); !ok {
		a.tracker.Track(convertOrder(a.id, o))
	}

	order, _ := a.tracker.Apply(orderUpdate(o))

	if o.ReplacedBy != nil && *o.ReplacedBy != "" && order.ReplacedBy != *o.ReplacedBy {
		a.tracker.SetReplacedBy(o.ID, *o.ReplacedBy)
		order.ReplacedBy = *o.ReplacedBy
	}

	return order
}

func (a *Adapter) GetAccount(ctx context.Context) (types.Account, error) {
	if err := a.ensureReady(ctx); err != nil {
		return types.Account{}, err
	}

	account, err := a.trading.GetAccount()
	if err != nil {
		return types.Account{}, wrapError(err, "failed to get account from Alpaca")
	}

	accountType := types.AccountTypeCash
	if account.Multiplier.GreaterThan(decimal.NewFromInt(1)) {
		accountType = types.AccountTypeMargin
	}

	result := types.Account{
		ID:          account.ID,
		BrokerID:    a.id,
		Type:        accountType,
		Currency:    account.Currency,
		Balance:     account.Cash.InexactFloat64(),
		Equity:      account.Equity.InexactFloat64(),
		BuyingPower: account.BuyingPower.InexactFloat64(),
		Cash:        account.Cash.InexactFloat64(),
	}

	if accountType == types.AccountTypeMargin {
		result.MarginUsed = account.InitialMargin.InexactFloat64()
		result.MarginAvailable = account.BuyingPower.InexactFloat64()
	}

	return result, nil
}

func (a *Adapter) GetPositions(ctx context.Context) ([]types.Position, error) {
	if err := a.ensureReady(ctx); err != nil {
		return nil, err
	}

	positions, err := a.trading.GetPositions()
	if err != nil {
		return nil, wrapError(err, "failed to get positions from Alpaca")
	}

	result := make([]types.Position, 0, len(positions))
	for _, p := range positions {
		result = append(result, convertPosition(a.id, p))
	}

	return result, nil
}

// GetPosition returns the position for a symbol, or a zero position.
func (a *Adapter) GetPosition(ctx context.Context, symbol string) (types.Position, error) {
	if err := a.ensureReady(ctx); err != nil {
		return types.Position{}, err
	}

	position, err := a.trading.GetPosition(symbol)
	if err != nil {
		wrapped := wrapError(err, "failed to get position from Alpaca")
		if errors.HasCode(wrapped, errors.ErrCodeNotFound) {
			return types.Position{Symbol: symbol, BrokerID: a.id, Side: types.PositionSideLong}, nil
		}

		return types.Position{}, wrapped
	}

	return convertPosition(a.id, *position), nil
}

func (a *Adapter) SubmitOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	if err := req.Validate(); err != nil {
		return types.Order{}, err
	}

	if err := a.ensureReady(ctx); err != nil {
		return types.Order{}, err
	}

	// crypto orders take GTC or IOC only
	if req.TimeInForce == "" && (req.AssetClass == types.AssetClassCrypto || strings.Contains(req.Symbol, "/")) {
		req.TimeInForce = types.TimeInForceGTC
	}

	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}

	placed, err := a.trading.PlaceOrder(placeOrderRequest(req))
	if err != nil {
		err = wrapError(err, "failed to place order on Alpaca")
		a.logger.Warn("Order failed", zap.String("symbol", req.Symbol), zap.Error(err))

		return types.Order{}, err
	}

	submitted := placed.SubmittedAt
	if submitted.IsZero() {
		submitted = a.clock.Now()
	}

	a.tracker.Track(types.OrderFromRequest(placed.ID, a.id, req, submitted))
	order, _ := a.tracker.Apply(orderUpdate(placed))

	a.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("symbol", req.Symbol),
		zap.String("status", string(order.Status)),
	)

	return order, nil
}

// CancelOrder requests cancellation. The final state arrives through the
// trade updates stream; the order is refreshed once right away.
func (a *Adapter) CancelOrder(ctx context.Context, orderID string) error {
	if err := a.ensureReady(ctx); err != nil {
		return err
	}

	if order, ok := a.tracker.Get(orderID); ok && order.Status.IsTerminal() {
		return errors.Newf(errors.ErrCodeRejected, "order %s is %s and cannot be cancelled", orderID, order.Status)
	}

	if err := a.trading.CancelOrder(orderID); err != nil {
		return wrapError(err, "failed to cancel order on Alpaca")
	}

	refreshed, err := a.trading.GetOrder(orderID)
	if err != nil {
		a.logger.Warn("Failed to refresh cancelled order", zap.String("order_id", orderID), zap.Error(err))

		return nil
	}

	a.observe(refreshed)

	return nil
}

// ModifyOrder replaces the order. Alpaca answers with the replacement order,
// which has a new id; the original ends as replaced.
func (a *Adapter) ModifyOrder(ctx context.Context, orderID string, mod types.OrderModification) (types.Order, error) {
	if err := a.ensureReady(ctx); err != nil {
		return types.Order{}, err
	}

	current, ok := a.tracker.Get(orderID)
	if !ok {
		fetched, err := a.trading.GetOrder(orderID)
		if err != nil {
			return types.Order{}, wrapError(err, "failed to get order from Alpaca")
		}

		current = a.observe(fetched)
	}

	if err := validateModification(current, mod); err != nil {
		return types.Order{}, err
	}

	replacement, err := a.trading.ReplaceOrder(orderID, replaceOrderRequest(mod))
	if err != nil {
		return types.Order{}, wrapError(err, "failed to replace order on Alpaca")
	}

	order := a.observe(replacement)

	a.tracker.Apply(orders.Update{OrderID: orderID, NativeStatus: "replaced"})
	a.tracker.SetReplacedBy(orderID, order.ID)

	a.logger.Info("Order replaced", zap.String("order_id", orderID), zap.String("replaced_by", order.ID))

	return order, nil
}

// GetOrder refreshes a live order. Orders already in a terminal state are
// served from the tracker.
func (a *Adapter) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	if err := a.ensureReady(ctx); err != nil {
		return types.Order{}, err
	}

	if order, ok := a.tracker.Get(orderID); ok && order.Status.IsTerminal() {
		return order, nil
	}

	o, err := a.trading.GetOrder(orderID)
	if err != nil {
		return types.Order{}, wrapError(err, "failed to get order from Alpaca")
	}

	return a.observe(o), nil
}

func (a *Adapter) GetOrders(ctx context.Context, filter types.OrderFilter) ([]types.Order, error) {
	if err := a.ensureReady(ctx); err != nil {
		return nil, err
	}

	req := alpaca.GetOrdersRequest{
		Status: "all",
		Limit:  defaultOrderLimit,
	}

	if filter.Limit > 0 {
		req.Limit = filter.Limit
	}

	if filter.Symbol != "" {
		req.Symbols = []string{filter.Symbol}
	}

	list, err := a.trading.GetOrders(req)
	if err != nil {
		return nil, wrapError(err, "failed to get orders from Alpaca")
	}

	for i := range list {
		a.observe(&list[i])
	}

	return a.tracker.List(filter), nil
}

// ClosePosition liquidates the position through the positions endpoint, or
// part of it when quantity is given.
func (a *Adapter) ClosePosition(ctx context.Context, symbol string, quantity optional.Option[float64]) (types.Order, error) {
	if err := a.ensureReady(ctx); err != nil {
		return types.Order{}, err
	}

	req := alpaca.ClosePositionRequest{}
	if quantity.IsSome() {
		if quantity.Unwrap() <= 0 {
			return types.Order{}, errors.Newf(errors.ErrCodeInvalidParameter, "close quantity %v must be greater than zero", quantity.Unwrap())
		}

		req.Qty = decimal.NewFromFloat(quantity.Unwrap())
	}

	o, err := a.trading.ClosePosition(symbol, req)
	if err != nil {
		wrapped := wrapError(err, "failed to close position on Alpaca")
		if errors.HasCode(wrapped, errors.ErrCodeNotFound) {
			return types.Order{}, errors.Newf(errors.ErrCodeNotFound, "no open position for %s", symbol)
		}

		return types.Order{}, wrapped
	}

	return a.observe(o), nil
}

func (a *Adapter) CloseAllPositions(ctx context.Context) ([]types.Order, error) {
	return broker.CloseAllPositions(ctx, a)
}

// GetQuote returns the latest stock quote. Crypto pairs are left to the
// market data fallback.
func (a *Adapter) GetQuote(ctx context.Context, symbol string) (types.Quote, error) {
	if err := a.ensureReady(ctx); err != nil {
		return types.Quote{}, err
	}

	if strings.Contains(symbol, "/") {
		return types.Quote{}, errors.Unsupported(a.id, "crypto quotes")
	}

	q, err := a.data.GetLatestQuote(symbol, marketdata.GetLatestQuoteRequest{Feed: marketdata.Feed(a.cfg.Feed)})
	if err != nil {
		return types.Quote{}, wrapError(err, "failed to get quote from Alpaca")
	}

	if q == nil {
		return types.Quote{}, errors.Newf(errors.ErrCodeNotFound, "no quote for %s", symbol)
	}

	quote := types.Quote{Symbol: symbol, Timestamp: q.Timestamp}
	quote.Set(types.QuoteFieldBid, q.BidPrice)
	quote.Set(types.QuoteFieldBidSize, float64(q.BidSize))
	quote.Set(types.QuoteFieldAsk, q.AskPrice)
	quote.Set(types.QuoteFieldAskSize, float64(q.AskSize))

	return quote, nil
}

func (a *Adapter) GetBars(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Bar, error) {
	if err := a.ensureReady(ctx); err != nil {
		return nil, err
	}

	tf, ok := timeframes[timeframe]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnsupported, "alpaca does not support %s bars", timeframe)
	}

	bars, err := a.data.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     start,
		End:       end,
		Feed:      marketdata.Feed(a.cfg.Feed),
	})
	if err != nil {
		return nil, wrapError(err, "failed to get bars from Alpaca")
	}

	result := make([]types.Bar, 0, len(bars))
	for _, b := range bars {
		result = append(result, convertBar(symbol, timeframe, b))
	}

	return result, nil
}

// GetTrades returns fills from the account activities.
func (a *Adapter) GetTrades(ctx context.Context, filter types.TradeFilter) ([]types.Trade, error) {
	if err := a.ensureReady(ctx); err != nil {
		return nil, err
	}

	activities, err := a.trading.GetAccountActivities(alpaca.GetAccountActivitiesRequest{
		ActivityTypes: []string{"FILL"},
		After:         filter.StartTime,
		Until:         filter.EndTime,
	})
	if err != nil {
		return nil, wrapError(err, "failed to get account activities from Alpaca")
	}

	trades := make([]types.Trade, 0, len(activities))
	for _, activity := range activities {
		trades = append(trades, convertActivity(a.id, activity))
	}

	return filter.Apply(trades), nil
}

func (a *Adapter) IsMarketOpen(ctx context.Context) (bool, error) {
	if err := a.ensureReady(ctx); err != nil {
		return false, err
	}

	clock, err := a.trading.GetClock()
	if err != nil {
		return false, wrapError(err, "failed to get market clock from Alpaca")
	}

	return clock.IsOpen, nil
}

// GetMarketHours reads the trading calendar for the date and the following
// session. Extended hours run from 04:00 to 20:00 exchange time.
func (a *Adapter) GetMarketHours(ctx context.Context, date time.Time) (types.MarketHours, error) {
	if err := a.ensureReady(ctx); err != nil {
		return types.MarketHours{}, err
	}

	local := date.In(a.exchangeTZ)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, a.exchangeTZ)

	calendar, err := a.trading.GetCalendar(alpaca.GetCalendarRequest{
		Start: day,
		End:   day.Add(calendarLookahead),
	})
	if err != nil {
		return types.MarketHours{}, wrapError(err, "failed to get calendar from Alpaca")
	}

	hours := types.MarketHours{Date: day}
	today := day.Format(time.DateOnly)

	for _, session := range calendar {
		open, closing, err := a.sessionBounds(session)
		if err != nil {
			return types.MarketHours{}, err
		}

		if session.Date == today {
			hours.IsOpen = true
			hours.Open = open
			hours.Close = closing
			hours.ExtendedOpen = time.Date(day.Year(), day.Month(), day.Day(), 4, 0, 0, 0, a.exchangeTZ)
			hours.ExtendedClose = time.Date(day.Year(), day.Month(), day.Day(), 20, 0, 0, 0, a.exchangeTZ)

			continue
		}

		if session.Date > today {
			hours.NextOpen = open
			hours.NextClose = closing

			break
		}
	}

	return hours, nil
}

func (a *Adapter) sessionBounds(session alpaca.CalendarDay) (time.Time, time.Time, error) {
	open, err := time.ParseInLocation(time.DateOnly+" 15:04", session.Date+" "+session.Open, a.exchangeTZ)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrapf(errors.ErrCodeUpstream, err, "malformed calendar day %s", session.Date)
	}

	closing, err := time.ParseInLocation(time.DateOnly+" 15:04", session.Date+" "+session.Close, a.exchangeTZ)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrapf(errors.ErrCodeUpstream, err, "malformed calendar day %s", session.Date)
	}

	return open, closing, nil
}
