// Package binance implements the broker interface over the Binance spot REST
// API, with book ticker and kline websocket streams for push data.
package binance

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/internal/broker"
	"github.com/rxtech-lab/argo-gateway/internal/events"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/orders"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/internal/utils"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"go.uber.org/zap"
)

// klinePageSize is the largest page the klines endpoint serves.
const klinePageSize = 1000

type Option func(*Adapter)

// WithClient replaces the SDK client, e.g. with a mock.
func WithClient(client Client) Option {
	return func(a *Adapter) {
		a.client = client
	}
}

// WithStreamer replaces the websocket stream opener.
func WithStreamer(streamer Streamer) Option {
	return func(a *Adapter) {
		a.streamer = streamer
	}
}

type stream struct {
	done chan struct{}
	stop chan struct{}
}

// Adapter is the Binance spot broker. It holds no account state: every call
// goes to the API, and order state lives in the tracker.
type Adapter struct {
	id           string
	provider     broker.ProviderType
	cfg          Config
	capabilities types.BrokerCapabilities
	client       Client
	streamer     Streamer
	bus          *events.Bus
	clock        clockwork.Clock
	logger       *logger.Logger
	tracker      *orders.Tracker

	ready atomic.Bool

	mu           sync.Mutex
	quoteStreams map[string]*stream
	barStreams   map[string]*stream
}

// NewAdapter creates a Binance broker. The testnet is used for the paper
// provider unless cfg.BaseURL is set, which takes precedence.
func NewAdapter(id string, provider broker.ProviderType, cfg Config, deps broker.Deps, opts ...Option) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg = cfg.WithDefaults()
	deps = deps.WithDefaults()
	log := deps.Logger.Named("binance").With(zap.String("broker", id))

	if provider.IsPaper() {
		binance.UseTestnet = true
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}

	a := &Adapter{
		id:           id,
		provider:     provider,
		cfg:          cfg,
		capabilities: capabilitiesFor(provider),
		client:       &realClient{client: client},
		streamer:     realStreamer{},
		bus:          deps.Bus,
		clock:        deps.Clock,
		logger:       log,
		quoteStreams: make(map[string]*stream),
		barStreams:   make(map[string]*stream),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.tracker = orders.NewTracker(id, orders.VocabularyBinance, cfg.Orders, deps.Bus, deps.Clock, log)

	return a, nil
}

func capabilitiesFor(provider broker.ProviderType) types.BrokerCapabilities {
	return types.BrokerCapabilities{
		AssetClasses: []types.AssetClass{types.AssetClassCrypto},
		OrderTypes:   []types.OrderType{types.OrderTypeMarket, types.OrderTypeLimit, types.OrderTypeStopLimit},
		TimeInForce:  []types.TimeInForce{types.TimeInForceGTC, types.TimeInForceIOC, types.TimeInForceFOK},
		Timeframes: []types.Timeframe{
			types.Timeframe1s, types.Timeframe1m, types.Timeframe5m, types.Timeframe15m,
			types.Timeframe30m, types.Timeframe1h, types.Timeframe1d, types.Timeframe1w,
		},
		Features: types.BrokerFeatures{
			Streaming:        true,
			FractionalShares: true,
			PaperTrading:     provider.IsPaper(),
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

// Connect verifies connectivity and the API key with an account request.
func (a *Adapter) Connect(ctx context.Context) error {
	account, err := a.client.NewGetAccountService().Do(ctx)
	if err != nil {
		err = wrapError(err, "failed to connect to Binance API")
		a.logger.Error("Connect failed", zap.Error(err))

		return err
	}

	if !account.CanTrade {
		a.logger.Warn("Account is not permitted to trade")
	}

	a.ready.Store(true)
	a.logger.Info("Connected to Binance", zap.String("account_type", account.AccountType))
	a.bus.Publish(events.NewConnected(a.id, a.clock.Now()))

	return nil
}

// Disconnect closes every stream.
func (a *Adapter) Disconnect(_ context.Context) error {
	wasReady := a.ready.Swap(false)

	a.mu.Lock()
	streams := make([]*stream, 0, len(a.quoteStreams)+len(a.barStreams))
	for symbol, s := range a.quoteStreams {
		streams = append(streams, s)
		delete(a.quoteStreams, symbol)
	}

	for symbol, s := range a.barStreams {
		streams = append(streams, s)
		delete(a.barStreams, symbol)
	}
	a.mu.Unlock()

	for _, s := range streams {
		close(s.stop)
	}

	if wasReady {
		a.logger.Info("Disconnected from Binance")
		a.bus.Publish(events.NewDisconnected(a.id, a.clock.Now(), "disconnect requested", true))
	}

	return nil
}

func (a *Adapter) ensureReady() error {
	if !a.ready.Load() {
		return errors.NotConnected(a.id)
	}

	return nil
}

func (a *Adapter) isQuoteAsset(asset string) bool {
	return slices.Contains(a.cfg.QuoteAssets, asset)
}

// GetAccount sums the quote asset balances as cash and values the other
// balances at the book mid price.
func (a *Adapter) GetAccount(ctx context.Context) (types.Account, error) {
	if err := a.ensureReady(); err != nil {
		return types.Account{}, err
	}

	account, err := a.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return types.Account{}, wrapError(err, "failed to get account info from Binance")
	}

	var balance, cash float64

	for _, b := range account.Balances {
		if a.isQuoteAsset(b.Asset) {
			free := utils.ParseFloat(b.Free)
			balance += free + utils.ParseFloat(b.Locked)
			cash += free
		}
	}

	positions, err := a.positionsFrom(ctx, account)
	if err != nil {
		return types.Account{}, err
	}

	equity := balance
	for _, p := range positions {
		equity += p.MarketValue
	}

	return types.Account{
		ID:          a.id,
		BrokerID:    a.id,
		Type:        types.AccountTypeCash,
		Currency:    a.cfg.QuoteAssets[0],
		Balance:     balance,
		Equity:      equity,
		BuyingPower: cash,
		Cash:        cash,
	}, nil
}

// GetPositions returns long positions derived from the non-quote balances,
// each quoted against the first quote asset.
func (a *Adapter) GetPositions(ctx context.Context) ([]types.Position, error) {
	if err := a.ensureReady(); err != nil {
		return nil, err
	}

	account, err := a.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, wrapError(err, "failed to get account info from Binance")
	}

	return a.positionsFrom(ctx, account)
}

func (a *Adapter) positionsFrom(ctx context.Context, account *binance.Account) ([]types.Position, error) {
	positions := make([]types.Position, 0)

	for _, b := range account.Balances {
		if a.isQuoteAsset(b.Asset) {
			continue
		}

		total := utils.ParseFloat(b.Free) + utils.ParseFloat(b.Locked)
		if total <= 0 {
			continue
		}

		positions = append(positions, types.Position{
			Symbol:   b.Asset + a.cfg.QuoteAssets[0],
			BrokerID: a.id,
			Side:     types.PositionSideLong,
			Quantity: total,
		})
	}

	if len(positions) == 0 {
		return positions, nil
	}

	tickers, err := a.client.NewListBookTickersService().Do(ctx)
	if err != nil {
		return nil, wrapError(err, "failed to get book tickers from Binance")
	}

	mids := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		mids[t.Symbol] = convertBookTicker(t, time.Time{}).Mid()
	}

	for i := range positions {
		price := mids[positions[i].Symbol]
		positions[i].CurrentPrice = price
		positions[i].MarketValue = positions[i].Quantity * price
	}

	return positions, nil
}

// GetPosition returns the position for a symbol, or a zero position.
func (a *Adapter) GetPosition(ctx context.Context, symbol string) (types.Position, error) {
	positions, err := a.GetPositions(ctx)
	if err != nil {
		return types.Position{}, err
	}

	for _, pos := range positions {
		if pos.Symbol == symbol {
			return pos, nil
		}
	}

	return types.Position{Symbol: symbol, BrokerID: a.id, Side: types.PositionSideLong}, nil
}

// SubmitOrder places a single order. Quantities are rounded down to the
// configured precision.
func (a *Adapter) SubmitOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	if err := req.Validate(); err != nil {
		return types.Order{}, err
	}

	side, err := toSide(req.Side)
	if err != nil {
		return types.Order{}, err
	}

	orderType, err := toOrderType(req.Type)
	if err != nil {
		return types.Order{}, err
	}

	// market orders take no time in force
	if req.Type == types.OrderTypeMarket {
		req.TimeInForce = types.TimeInForceGTC
	}

	tif, err := toTimeInForce(req.TimeInForce)
	if err != nil {
		return types.Order{}, err
	}

	req.TimeInForce = types.TimeInForce(tif)

	if err := a.ensureReady(); err != nil {
		return types.Order{}, err
	}

	quantity := utils.RoundToDecimalPrecision(req.Quantity, a.cfg.DecimalPrecision)
	if quantity <= 0 {
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidOrder,
			"order quantity %.8f is too small after rounding to %d decimal places",
			req.Quantity, a.cfg.DecimalPrecision)
	}

	req.Quantity = quantity

	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}

	service := a.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(side).
		Type(orderType).
		Quantity(utils.FormatQuantity(quantity, a.cfg.DecimalPrecision)).
		NewClientOrderID(req.ClientOrderID)

	if req.Type != types.OrderTypeMarket {
		service = service.
			Price(utils.FormatPrice(req.LimitPrice.Unwrap())).
			TimeInForce(tif)
	}

	if req.Type == types.OrderTypeStopLimit {
		service = service.StopPrice(utils.FormatPrice(req.StopPrice.Unwrap()))
	}

	resp, err := service.Do(ctx)
	if err != nil {
		err = wrapError(err, "failed to place order on Binance")
		a.logger.Warn("Order failed",
			zap.String("symbol", req.Symbol),
			zap.String("side", string(req.Side)),
			zap.Error(err),
		)

		return types.Order{}, err
	}

	orderID := strconv.FormatInt(resp.OrderID, 10)
	a.tracker.Track(types.OrderFromRequest(orderID, a.id, req, time.UnixMilli(resp.TransactTime)))
	order, _ := a.tracker.Apply(createUpdate(resp))

	a.logger.Info("Order placed",
		zap.String("order_id", orderID),
		zap.String("symbol", req.Symbol),
		zap.String("status", string(order.Status)),
	)

	return order, nil
}

// symbolFor finds the symbol an order trades, which every order endpoint
// requires. Untracked orders are looked up among the open orders.
func (a *Adapter) symbolFor(ctx context.Context, orderID string) (string, error) {
	if order, ok := a.tracker.Get(orderID); ok && order.Symbol != "" {
		return order.Symbol, nil
	}

	if _, err := a.refreshOpenOrders(ctx); err != nil {
		return "", err
	}

	if order, ok := a.tracker.Get(orderID); ok && order.Symbol != "" {
		return order.Symbol, nil
	}

	return "", errors.Newf(errors.ErrCodeNotFound, "order not found: %s", orderID)
}

func parseOrderID(orderID string) (int64, error) {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid order ID format", err)
	}

	return id, nil
}

// CancelOrder cancels an order by order ID.
func (a *Adapter) CancelOrder(ctx context.Context, orderID string) error {
	if err := a.ensureReady(); err != nil {
		return err
	}

	nativeID, err := parseOrderID(orderID)
	if err != nil {
		return err
	}

	if order, ok := a.tracker.Get(orderID); ok && order.Status.IsTerminal() {
		return errors.Newf(errors.ErrCodeRejected, "order %s is %s and cannot be cancelled", orderID, order.Status)
	}

	symbol, err := a.symbolFor(ctx, orderID)
	if err != nil {
		return err
	}

	resp, err := a.client.NewCancelOrderService().
		Symbol(symbol).
		OrderID(nativeID).
		Do(ctx)
	if err != nil {
		return wrapError(err, "failed to cancel order on Binance")
	}

	a.tracker.Apply(cancelUpdate(resp))
	a.logger.Info("Order cancelled", zap.String("order_id", orderID))

	return nil
}

// ModifyOrder cancels the order and submits the modified remainder.
func (a *Adapter) ModifyOrder(ctx context.Context, orderID string, mod types.OrderModification) (types.Order, error) {
	if err := a.ensureReady(); err != nil {
		return types.Order{}, err
	}

	if _, ok := a.tracker.Get(orderID); !ok {
		if _, err := a.refreshOpenOrders(ctx); err != nil {
			return types.Order{}, err
		}
	}

	return broker.CancelAndResubmit(ctx, a, a.tracker, orderID, mod)
}

// observe records an order reported by the API in the tracker.
func (a *Adapter) observe(bo *binance.Order) types.Order {
	update := orderUpdate(bo)
	if _, ok := a.tracker.Get(update.OrderID); !ok {
		a.tracker.Track(convertOrder(a.id, bo))
	}

	order, _ := a.tracker.Apply(update)

	return order
}

func (a *Adapter) refreshOpenOrders(ctx context.Context) ([]types.Order, error) {
	open, err := a.client.NewListOpenOrdersService().Do(ctx)
	if err != nil {
		return nil, wrapError(err, "failed to get open orders from Binance")
	}

	result := make([]types.Order, 0, len(open))
	for _, bo := range open {
		result = append(result, a.observe(bo))
	}

	return result, nil
}

// GetOrder refreshes a live order from the API. Orders already in a terminal
// state are served from the tracker.
func (a *Adapter) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	if err := a.ensureReady(); err != nil {
		return types.Order{}, err
	}

	nativeID, err := parseOrderID(orderID)
	if err != nil {
		return types.Order{}, err
	}

	if order, ok := a.tracker.Get(orderID); ok && order.Status.IsTerminal() {
		return order, nil
	}

	symbol, err := a.symbolFor(ctx, orderID)
	if err != nil {
		return types.Order{}, err
	}

	bo, err := a.client.NewGetOrderService().
		Symbol(symbol).
		OrderID(nativeID).
		Do(ctx)
	if err != nil {
		return types.Order{}, wrapError(err, "failed to get order from Binance")
	}

	return a.observe(bo), nil
}

// GetOrders refreshes the open orders, or the full order history of the
// filter's symbol, and returns the tracked orders matching the filter.
func (a *Adapter) GetOrders(ctx context.Context, filter types.OrderFilter) ([]types.Order, error) {
	if err := a.ensureReady(); err != nil {
		return nil, err
	}

	if filter.Symbol == "" {
		if _, err := a.refreshOpenOrders(ctx); err != nil {
			return nil, err
		}

		return a.tracker.List(filter), nil
	}

	service := a.client.NewListOrdersService().Symbol(filter.Symbol)
	if filter.Limit > 0 {
		service = service.Limit(filter.Limit)
	}

	history, err := service.Do(ctx)
	if err != nil {
		return nil, wrapError(err, "failed to get orders from Binance")
	}

	for _, bo := range history {
		a.observe(bo)
	}

	return a.tracker.List(filter), nil
}

// ClosePosition sells the held quantity, or part of it.
func (a *Adapter) ClosePosition(ctx context.Context, symbol string, quantity optional.Option[float64]) (types.Order, error) {
	position, err := a.GetPosition(ctx, symbol)
	if err != nil {
		return types.Order{}, err
	}

	req, err := broker.CloseRequest(position, quantity)
	if err != nil {
		return types.Order{}, err
	}

	return a.SubmitOrder(ctx, req)
}

func (a *Adapter) CloseAllPositions(ctx context.Context) ([]types.Order, error) {
	return broker.CloseAllPositions(ctx, a)
}

// GetQuote returns the best bid and ask from the book ticker.
func (a *Adapter) GetQuote(ctx context.Context, symbol string) (types.Quote, error) {
	if err := a.ensureReady(); err != nil {
		return types.Quote{}, err
	}

	tickers, err := a.client.NewListBookTickersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return types.Quote{}, wrapError(err, "failed to get book ticker from Binance")
	}

	for _, t := range tickers {
		if t.Symbol == symbol {
			return convertBookTicker(t, a.clock.Now()), nil
		}
	}

	return types.Quote{}, errors.Newf(errors.ErrCodeNotFound, "no quote for %s", symbol)
}

// GetBars pages through the klines endpoint until end is reached.
func (a *Adapter) GetBars(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Bar, error) {
	if err := a.ensureReady(); err != nil {
		return nil, err
	}

	interval, ok := intervals[timeframe]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnsupported, "binance does not support %s bars", timeframe)
	}

	if end.Before(start) {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "end must not be before start")
	}

	// Binance API uses milliseconds for timestamps
	currentStart := start.UnixMilli()
	endMillis := end.UnixMilli()

	bars := make([]types.Bar, 0)

	for {
		klines, err := a.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(klinePageSize).
			Do(ctx)
		if err != nil {
			return nil, wrapError(err, "failed to fetch klines from Binance")
		}

		for _, k := range klines {
			bars = append(bars, convertKline(symbol, timeframe, k))
		}

		if len(klines) < klinePageSize {
			break
		}

		// close time of the last kline + 1ms avoids duplicates
		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart > endMillis {
			break
		}
	}

	return bars, nil
}

// GetTrades returns executed trades. Binance only lists trades per symbol.
func (a *Adapter) GetTrades(ctx context.Context, filter types.TradeFilter) ([]types.Trade, error) {
	if err := a.ensureReady(); err != nil {
		return nil, err
	}

	if filter.Symbol == "" {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "symbol is required for GetTrades on Binance")
	}

	service := a.client.NewListTradesService().Symbol(filter.Symbol)

	if filter.Limit > 0 {
		service = service.Limit(filter.Limit)
	}

	if !filter.StartTime.IsZero() {
		service = service.StartTime(filter.StartTime.UnixMilli())
	}

	if !filter.EndTime.IsZero() {
		service = service.EndTime(filter.EndTime.UnixMilli())
	}

	binanceTrades, err := service.Do(ctx)
	if err != nil {
		return nil, wrapError(err, "failed to get trades from Binance")
	}

	trades := make([]types.Trade, 0, len(binanceTrades))
	for _, bt := range binanceTrades {
		trades = append(trades, convertTrade(a.id, bt))
	}

	return trades, nil
}

// IsMarketOpen is always true: spot markets trade around the clock.
func (a *Adapter) IsMarketOpen(_ context.Context) (bool, error) {
	return true, nil
}

func (a *Adapter) GetMarketHours(_ context.Context, date time.Time) (types.MarketHours, error) {
	return types.AlwaysOpen(date), nil
}
