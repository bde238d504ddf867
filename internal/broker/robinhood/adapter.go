// Package robinhood implements the broker interface over the Robinhood REST
// API. Every call is a plain request; the OAuth token obtained at Connect is
// attached by a request interceptor. Quotes and order states are polled.
package robinhood

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/go-resty/resty/v2"
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
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	marketCode = "XNYS"
	// maxOrderPages bounds how far order history is followed.
	maxOrderPages = 10
)

// Adapter is the Robinhood broker.
type Adapter struct {
	id           string
	cfg          Config
	capabilities types.BrokerCapabilities
	http         *resty.Client
	oauth        *oauth2.Config
	limiter      *rate.Limiter
	bus          *events.Bus
	clock        clockwork.Clock
	logger       *logger.Logger
	tracker      *orders.Tracker
	exchangeTZ   *time.Location

	ready atomic.Bool

	authMu        sync.RWMutex
	tokens        oauth2.TokenSource
	accountURL    string
	accountNumber string

	quotaMu sync.Mutex
	quota   RateLimit

	mu           sync.Mutex
	quoteSymbols map[string]struct{}
	stopPoll     context.CancelFunc
	pollDone     chan struct{}

	instrumentsMu sync.Mutex
	instruments   map[string]string
}

// NewAdapter creates a Robinhood broker. Nothing is sent until Connect.
func NewAdapter(id string, cfg Config, deps broker.Deps) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg = cfg.WithDefaults()
	deps = deps.WithDefaults()
	log := deps.Logger.Named("robinhood").With(zap.String("broker", id))

	if cfg.DeviceToken == "" {
		cfg.DeviceToken = uuid.NewString()
		log.Warn("No device token configured, login will ask for verification")
	}

	exchangeTZ, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to load exchange time zone", err)
	}

	a := &Adapter{
		id:           id,
		cfg:          cfg,
		capabilities: capabilities(),
		oauth:        newOAuthConfig(cfg),
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		bus:          deps.Bus,
		clock:        deps.Clock,
		logger:       log,
		tracker:      orders.NewTracker(id, orders.VocabularyRobinhood, cfg.Orders, deps.Bus, deps.Clock, log),
		exchangeTZ:   exchangeTZ,
		quoteSymbols: make(map[string]struct{}),
		instruments:  make(map[string]string),
	}

	a.http = resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetError(&apiError{}).
		OnBeforeRequest(a.authorize).
		OnAfterResponse(a.recordQuota)

	return a, nil
}

func capabilities() types.BrokerCapabilities {
	return types.BrokerCapabilities{
		AssetClasses: []types.AssetClass{types.AssetClassEquity},
		OrderTypes: []types.OrderType{
			types.OrderTypeMarket, types.OrderTypeLimit, types.OrderTypeStop, types.OrderTypeStopLimit,
		},
		TimeInForce: []types.TimeInForce{
			types.TimeInForceDay, types.TimeInForceGTC, types.TimeInForceIOC, types.TimeInForceOPG,
		},
		Timeframes: []types.Timeframe{
			types.Timeframe5m, types.Timeframe1h, types.Timeframe1d, types.Timeframe1w,
		},
		Features: types.BrokerFeatures{
			Streaming:        true,
			Margin:           true,
			FractionalShares: true,
			ExtendedHours:    true,
			MarketHours:      true,
		},
	}
}

func (a *Adapter) ID() string { return a.id }

func (a *Adapter) Provider() broker.ProviderType { return broker.ProviderRobinhood }

func (a *Adapter) Capabilities() types.BrokerCapabilities { return a.capabilities.Clone() }

// Tracker exposes the order tracker, e.g. to await a fill.
func (a *Adapter) Tracker() *orders.Tracker { return a.tracker }

func (a *Adapter) IsReady() bool { return a.ready.Load() }

func (a *Adapter) ensureReady() error {
	if !a.ready.Load() {
		return errors.NotConnected(a.id)
	}

	return nil
}

func (a *Adapter) newRequest(ctx context.Context) (*resty.Request, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrCodeTimeout, "request abandoned while rate limited", err)
	}

	return a.http.R().SetContext(ctx), nil
}

func (a *Adapter) get(ctx context.Context, path string, query map[string]string, result any, message string) error {
	req, err := a.newRequest(ctx)
	if err != nil {
		return err
	}

	resp, err := req.SetQueryParams(query).SetResult(result).Get(path)

	return checkResponse(resp, err, message)
}

func (a *Adapter) post(ctx context.Context, path string, body any, result any, message string) error {
	req, err := a.newRequest(ctx)
	if err != nil {
		return err
	}

	if body != nil {
		req.SetBody(body)
	}

	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Post(path)

	return checkResponse(resp, err, message)
}

// Connect logs in and loads the brokerage account orders are placed for.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.ready.Load() {
		return nil
	}

	a.dropTokens()

	if err := a.login(ctx); err != nil {
		a.logger.Error("Login failed", zap.Error(err))

		return err
	}

	account, err := a.loadAccount(ctx)
	if err != nil {
		a.dropTokens()

		return err
	}

	a.authMu.Lock()
	a.accountURL = account.URL
	a.accountNumber = account.AccountNumber
	a.authMu.Unlock()

	a.startPolling()
	a.ready.Store(true)

	a.logger.Info("Connected to Robinhood", zap.String("account", account.AccountNumber))
	a.bus.Publish(events.NewConnected(a.id, a.clock.Now()))

	return nil
}

// Disconnect stops polling and forgets the token.
func (a *Adapter) Disconnect(_ context.Context) error {
	wasReady := a.ready.Swap(false)

	a.stopPolling()
	a.dropTokens()

	if wasReady {
		a.logger.Info("Disconnected from Robinhood")
		a.bus.Publish(events.NewDisconnected(a.id, a.clock.Now(), "disconnect requested", true))
	}

	return nil
}

func (a *Adapter) loadAccount(ctx context.Context) (accountResponse, error) {
	var accounts page[accountResponse]
	if err := a.get(ctx, "/accounts/", nil, &accounts, "failed to get robinhood account"); err != nil {
		return accountResponse{}, err
	}

	if len(accounts.Results) == 0 {
		return accountResponse{}, errors.New(errors.ErrCodeNotFound, "no robinhood brokerage account")
	}

	return accounts.Results[0], nil
}

func (a *Adapter) account() (string, string) {
	a.authMu.RLock()
	defer a.authMu.RUnlock()

	return a.accountURL, a.accountNumber
}

func (a *Adapter) GetAccount(ctx context.Context) (types.Account, error) {
	if err := a.ensureReady(); err != nil {
		return types.Account{}, err
	}

	account, err := a.loadAccount(ctx)
	if err != nil {
		return types.Account{}, err
	}

	var portfolio portfolioResponse
	if err := a.get(ctx, "/portfolios/"+account.AccountNumber+"/", nil, &portfolio, "failed to get robinhood portfolio"); err != nil {
		return types.Account{}, err
	}

	result := types.Account{
		ID:          account.AccountNumber,
		BrokerID:    a.id,
		Type:        types.AccountTypeCash,
		Currency:    "USD",
		Balance:     utils.ParseFloat(account.Cash),
		Cash:        utils.ParseFloat(account.Cash),
		BuyingPower: utils.ParseFloat(account.BuyingPower),
		Equity:      utils.ParseFloat(portfolio.Equity),
	}

	if account.Type == "margin" {
		result.Type = types.AccountTypeMargin
		if account.MarginBalances != nil {
			result.MarginAvailable = utils.ParseFloat(account.MarginBalances.MarginLimit)
		}
	}

	return result, nil
}

// GetPositions returns the non-zero positions valued at the latest trade.
func (a *Adapter) GetPositions(ctx context.Context) ([]types.Position, error) {
	if err := a.ensureReady(); err != nil {
		return nil, err
	}

	var positions page[positionResponse]
	if err := a.get(ctx, "/positions/", map[string]string{"nonzero": "true"}, &positions, "failed to get robinhood positions"); err != nil {
		return nil, err
	}

	result := make([]types.Position, 0, len(positions.Results))
	symbols := make([]string, 0, len(positions.Results))

	for _, p := range positions.Results {
		symbol := p.Symbol
		if symbol == "" {
			resolved, err := a.instrumentSymbol(ctx, p.Instrument)
			if err != nil {
				return nil, err
			}

			symbol = resolved
		}

		side, qty := types.PositionSideFromQuantity(utils.ParseFloat(p.Quantity))
		result = append(result, types.Position{
			Symbol:     symbol,
			BrokerID:   a.id,
			Side:       side,
			Quantity:   qty,
			EntryPrice: utils.ParseFloat(p.AverageBuyPrice),
		})
		symbols = append(symbols, symbol)
	}

	if len(symbols) == 0 {
		return result, nil
	}

	quotes, err := a.fetchQuotes(ctx, symbols)
	if err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(quotes))
	for _, q := range quotes {
		if q.Has(types.QuoteFieldLast) {
			prices[q.Symbol] = q.Last
		} else {
			prices[q.Symbol] = q.Mid()
		}
	}

	for i := range result {
		result[i].CurrentPrice = prices[result[i].Symbol]
		result[i].ComputeUnrealizedPnL()
	}

	return result, nil
}

// GetPosition returns the position for a symbol, or a zero position.
func (a *Adapter) GetPosition(ctx context.Context, symbol string) (types.Position, error) {
	positions, err := a.GetPositions(ctx)
	if err != nil {
		return types.Position{}, err
	}

	for _, p := range positions {
		if p.Symbol == symbol {
			return p, nil
		}
	}

	return types.Position{Symbol: symbol, BrokerID: a.id, Side: types.PositionSideLong}, nil
}

// resolveInstrument looks up the instrument an order for symbol must name.
func (a *Adapter) resolveInstrument(ctx context.Context, symbol string) (instrumentResponse, error) {
	var instruments page[instrumentResponse]
	if err := a.get(ctx, "/instruments/", map[string]string{"symbol": symbol}, &instruments, "failed to look up instrument"); err != nil {
		return instrumentResponse{}, err
	}

	for _, instrument := range instruments.Results {
		if strings.EqualFold(instrument.Symbol, symbol) {
			a.rememberInstrument(instrument.URL, instrument.Symbol)

			return instrument, nil
		}
	}

	return instrumentResponse{}, errors.Newf(errors.ErrCodeNotFound, "unknown instrument: %s", symbol)
}

func (a *Adapter) rememberInstrument(url, symbol string) {
	a.instrumentsMu.Lock()
	a.instruments[url] = symbol
	a.instrumentsMu.Unlock()
}

// instrumentSymbol returns the symbol of an instrument URL.
func (a *Adapter) instrumentSymbol(ctx context.Context, url string) (string, error) {
	a.instrumentsMu.Lock()
	symbol, ok := a.instruments[url]
	a.instrumentsMu.Unlock()

	if ok {
		return symbol, nil
	}

	var instrument instrumentResponse
	if err := a.get(ctx, url, nil, &instrument, "failed to get instrument"); err != nil {
		return "", err
	}

	a.rememberInstrument(url, instrument.Symbol)

	return instrument.Symbol, nil
}

// SubmitOrder resolves the instrument and then places the order.
func (a *Adapter) SubmitOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	if err := req.Validate(); err != nil {
		return types.Order{}, err
	}

	if err := a.ensureReady(); err != nil {
		return types.Order{}, err
	}

	if !a.capabilities.SupportsAssetClass(req.AssetClass) {
		return types.Order{}, errors.Unsupported(a.id, string(req.AssetClass)+" orders")
	}

	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}

	accountURL, _ := a.account()

	body, err := buildOrder(req, accountURL, "")
	if err != nil {
		return types.Order{}, err
	}

	instrument, err := a.resolveInstrument(ctx, req.Symbol)
	if err != nil {
		return types.Order{}, err
	}

	if !instrument.Tradeable {
		return types.Order{}, errors.Newf(errors.ErrCodeRejected, "%s is not tradeable", req.Symbol)
	}

	body.Instrument = instrument.URL

	var placed orderResponse
	if err := a.post(ctx, "/orders/", body, &placed, "failed to place robinhood order"); err != nil {
		// the API answers 400 for orders it refuses
		if errors.HasCode(err, errors.ErrCodeInvalidParameter) {
			err = errors.Wrap(errors.ErrCodeRejected, "robinhood rejected the order", err)
		}

		a.logger.Warn("Order failed", zap.String("symbol", req.Symbol), zap.Error(err))

		return types.Order{}, err
	}

	submitted := placed.CreatedAt
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

// observe records an order reported by the API in the tracker.
func (a *Adapter) observe(ctx context.Context, o orderResponse) types.Order {
	if _, ok := a.tracker.Get(o.ID); !ok {
		symbol := o.Symbol
		if symbol == "" && o.Instrument != "" {
			resolved, err := a.instrumentSymbol(ctx, o.Instrument)
			if err != nil {
				a.logger.Warn("Failed to resolve order instrument", zap.String("order_id", o.ID), zap.Error(err))
			}

			symbol = resolved
		}

		a.tracker.Track(convertOrder(a.id, symbol, o))
	}

	order, _ := a.tracker.Apply(orderUpdate(o))

	return order
}

func (a *Adapter) fetchOrder(ctx context.Context, orderID string) (orderResponse, error) {
	var o orderResponse
	err := a.get(ctx, "/orders/"+orderID+"/", nil, &o, "failed to get robinhood order")

	return o, err
}

// CancelOrder requests cancellation and refreshes the order once.
func (a *Adapter) CancelOrder(ctx context.Context, orderID string) error {
	if err := a.ensureReady(); err != nil {
		return err
	}

	if order, ok := a.tracker.Get(orderID); ok && order.Status.IsTerminal() {
		return errors.Newf(errors.ErrCodeRejected, "order %s is %s and cannot be cancelled", orderID, order.Status)
	}

	if err := a.post(ctx, "/orders/"+orderID+"/cancel/", nil, nil, "failed to cancel robinhood order"); err != nil {
		return err
	}

	o, err := a.fetchOrder(ctx, orderID)
	if err != nil {
		a.logger.Warn("Failed to refresh cancelled order", zap.String("order_id", orderID), zap.Error(err))

		return nil
	}

	a.observe(ctx, o)

	return nil
}

// ModifyOrder cancels the order and submits the modified remainder.
func (a *Adapter) ModifyOrder(ctx context.Context, orderID string, mod types.OrderModification) (types.Order, error) {
	if err := a.ensureReady(); err != nil {
		return types.Order{}, err
	}

	if _, ok := a.tracker.Get(orderID); !ok {
		o, err := a.fetchOrder(ctx, orderID)
		if err != nil {
			return types.Order{}, err
		}

		a.observe(ctx, o)
	}

	return broker.CancelAndResubmit(ctx, a, a.tracker, orderID, mod)
}

// GetOrder refreshes a live order. Orders already in a terminal state are
// served from the tracker.
func (a *Adapter) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	if err := a.ensureReady(); err != nil {
		return types.Order{}, err
	}

	if order, ok := a.tracker.Get(orderID); ok && order.Status.IsTerminal() {
		return order, nil
	}

	o, err := a.fetchOrder(ctx, orderID)
	if err != nil {
		return types.Order{}, err
	}

	return a.observe(ctx, o), nil
}

// listOrders follows the order history pages, newest first.
func (a *Adapter) listOrders(ctx context.Context, limit int) ([]orderResponse, error) {
	var result []orderResponse

	path := "/orders/"
	for range maxOrderPages {
		var orderPage page[orderResponse]
		if err := a.get(ctx, path, nil, &orderPage, "failed to list robinhood orders"); err != nil {
			return nil, err
		}

		result = append(result, orderPage.Results...)
		if orderPage.Next == "" || (limit > 0 && len(result) >= limit) {
			break
		}

		path = orderPage.Next
	}

	return result, nil
}

func (a *Adapter) GetOrders(ctx context.Context, filter types.OrderFilter) ([]types.Order, error) {
	if err := a.ensureReady(); err != nil {
		return nil, err
	}

	list, err := a.listOrders(ctx, filter.Limit)
	if err != nil {
		return nil, err
	}

	for _, o := range list {
		a.observe(ctx, o)
	}

	return a.tracker.List(filter), nil
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

	return a.SubmitOrder(ctx, req)
}

func (a *Adapter) CloseAllPositions(ctx context.Context) ([]types.Order, error) {
	return broker.CloseAllPositions(ctx, a)
}

func (a *Adapter) fetchQuotes(ctx context.Context, symbols []string) ([]types.Quote, error) {
	var quotes page[*quoteResponse]
	if err := a.get(ctx, "/quotes/", map[string]string{"symbols": strings.Join(symbols, ",")}, &quotes, "failed to get robinhood quotes"); err != nil {
		return nil, err
	}

	result := make([]types.Quote, 0, len(quotes.Results))
	for _, q := range quotes.Results {
		// unknown symbols come back as null
		if q == nil {
			continue
		}

		result = append(result, convertQuote(*q))
	}

	return result, nil
}

func (a *Adapter) GetQuote(ctx context.Context, symbol string) (types.Quote, error) {
	if err := a.ensureReady(); err != nil {
		return types.Quote{}, err
	}

	quotes, err := a.fetchQuotes(ctx, []string{symbol})
	if err != nil {
		return types.Quote{}, err
	}

	if len(quotes) == 0 {
		return types.Quote{}, errors.Newf(errors.ErrCodeNotFound, "no quote for %s", symbol)
	}

	return quotes[0], nil
}

// GetBars returns the historicals of the span covering the timeframe, clipped
// to [start, end].
func (a *Adapter) GetBars(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Bar, error) {
	if err := a.ensureReady(); err != nil {
		return nil, err
	}

	query, ok := barQueries[timeframe]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnsupported, "robinhood does not support %s bars", timeframe)
	}

	if end.Before(start) {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "end must not be before start")
	}

	var historicals page[historicalsResponse]

	err := a.get(ctx, "/quotes/historicals/", map[string]string{
		"symbols":  symbol,
		"interval": query.interval,
		"span":     query.span,
		"bounds":   "regular",
	}, &historicals, "failed to get robinhood historicals")
	if err != nil {
		return nil, err
	}

	var bars []types.Bar

	for _, series := range historicals.Results {
		for _, h := range series.Historicals {
			if h.BeginsAt.Before(start) || h.BeginsAt.After(end) {
				continue
			}

			bars = append(bars, convertBar(symbol, timeframe, h))
		}
	}

	return bars, nil
}

// GetTrades returns the executions of the orders in the history.
func (a *Adapter) GetTrades(ctx context.Context, filter types.TradeFilter) ([]types.Trade, error) {
	if err := a.ensureReady(); err != nil {
		return nil, err
	}

	list, err := a.listOrders(ctx, 0)
	if err != nil {
		return nil, err
	}

	var trades []types.Trade

	for _, o := range list {
		if len(o.Executions) == 0 {
			continue
		}

		symbol := o.Symbol
		if symbol == "" {
			if symbol, err = a.instrumentSymbol(ctx, o.Instrument); err != nil {
				return nil, err
			}
		}

		trades = append(trades, convertTrades(a.id, symbol, o)...)
	}

	return filter.Apply(trades), nil
}

func (a *Adapter) fetchHours(ctx context.Context, path string) (marketHoursResponse, error) {
	var hours marketHoursResponse
	err := a.get(ctx, path, nil, &hours, "failed to get market hours")

	return hours, err
}

// IsMarketOpen reports whether the regular session is running now.
func (a *Adapter) IsMarketOpen(ctx context.Context) (bool, error) {
	hours, err := a.GetMarketHours(ctx, a.clock.Now())
	if err != nil {
		return false, err
	}

	now := a.clock.Now()

	return hours.IsOpen && !now.Before(hours.Open) && now.Before(hours.Close), nil
}

// GetMarketHours reads the exchange hours of the date and the following
// session.
func (a *Adapter) GetMarketHours(ctx context.Context, date time.Time) (types.MarketHours, error) {
	if err := a.ensureReady(); err != nil {
		return types.MarketHours{}, err
	}

	local := date.In(a.exchangeTZ)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, a.exchangeTZ)

	h, err := a.fetchHours(ctx, "/markets/"+marketCode+"/hours/"+day.Format(time.DateOnly)+"/")
	if err != nil {
		return types.MarketHours{}, err
	}

	hours := types.MarketHours{
		Date:          day,
		IsOpen:        h.IsOpen,
		Open:          timeOf(h.OpensAt),
		Close:         timeOf(h.ClosesAt),
		ExtendedOpen:  timeOf(h.ExtendedOpensAt),
		ExtendedClose: timeOf(h.ExtendedClosesAt),
	}

	if h.NextOpenHours != "" {
		next, err := a.fetchHours(ctx, h.NextOpenHours)
		if err != nil {
			return types.MarketHours{}, err
		}

		hours.NextOpen = timeOf(next.OpensAt)
		hours.NextClose = timeOf(next.ClosesAt)
	}

	return hours, nil
}

func timeOf(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}

	return *t
}
