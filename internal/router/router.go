// Package router owns the registered broker adapters and routes calls to them.
package router

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/internal/broker"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/marketdata"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Policy string

const (
	// PolicyFirstConnected routes to the first registered broker that is ready.
	PolicyFirstConnected Policy = "first_connected"
	// PolicyRoundRobin spreads new orders over the ready brokers. Other calls
	// behave as PolicyFirstConnected.
	PolicyRoundRobin Policy = "round_robin"
)

// Config selects how calls without a broker id are routed.
type Config struct {
	Policy Policy `json:"policy" yaml:"policy" validate:"omitempty,oneof=first_connected round_robin"`
	// DefaultBroker, when ready, takes calls without a broker id before the
	// policy is consulted.
	DefaultBroker string `json:"default_broker" yaml:"default_broker"`
}

type Option func(*Router)

// WithFallback sets the source asked for quotes and bars a broker cannot serve.
func WithFallback(source marketdata.Source) Option {
	return func(r *Router) {
		r.fallback = source
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(r *Router) {
		r.logger = log
	}
}

// Router holds the brokers of one gateway process.
type Router struct {
	config   Config
	fallback marketdata.Source
	logger   *logger.Logger

	mu      sync.RWMutex
	brokers map[string]broker.Broker
	// ids keeps registration order.
	ids []string

	next atomic.Uint64
}

func New(config Config, opts ...Option) *Router {
	if config.Policy == "" {
		config.Policy = PolicyFirstConnected
	}

	r := &Router{
		config:  config,
		brokers: make(map[string]broker.Broker),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = logger.NewNopLogger()
	}

	r.logger = r.logger.Named("router")

	return r
}

// Register adds a broker under its id.
func (r *Router) Register(b broker.Broker) error {
	id := b.ID()
	if id == "" {
		return errors.New(errors.ErrCodeMissingParameter, "broker id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.brokers[id]; exists {
		return errors.Newf(errors.ErrCodeInvalidParameter, "broker %s is already registered", id)
	}

	r.brokers[id] = b
	r.ids = append(r.ids, id)

	r.logger.Info("Registered broker", zap.String("broker", id), zap.String("provider", string(b.Provider())))

	return nil
}

// Remove disconnects a broker and drops it from the registry.
func (r *Router) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	b, ok := r.brokers[id]
	if ok {
		delete(r.brokers, id)
		r.ids = slices.DeleteFunc(r.ids, func(s string) bool { return s == id })
	}
	r.mu.Unlock()

	if !ok {
		return notFound(id)
	}

	return b.Disconnect(ctx)
}

// Broker returns the broker registered under id.
func (r *Router) Broker(id string) (broker.Broker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.brokers[id]
	if !ok {
		return nil, notFound(id)
	}

	return b, nil
}

// Brokers returns the registered brokers in registration order.
func (r *Router) Brokers() []broker.Broker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]broker.Broker, 0, len(r.ids))
	for _, id := range r.ids {
		result = append(result, r.brokers[id])
	}

	return result
}

func (r *Router) ready() []broker.Broker {
	all := r.Brokers()

	return slices.DeleteFunc(all, func(b broker.Broker) bool { return !b.IsReady() })
}

// Select returns the named broker, or the broker chosen by the default
// broker and first-connected policy when id is empty.
func (r *Router) Select(id string) (broker.Broker, error) {
	if id != "" {
		return r.Broker(id)
	}

	if b, ok := r.defaultBroker(); ok {
		return b, nil
	}

	ready := r.ready()
	if len(ready) == 0 {
		return nil, errors.New(errors.ErrCodeNotConnected, "no connected broker")
	}

	return ready[0], nil
}

// selectForOrder applies the round robin policy to new orders.
func (r *Router) selectForOrder(id string) (broker.Broker, error) {
	if id != "" || r.config.Policy != PolicyRoundRobin {
		return r.Select(id)
	}

	ready := r.ready()
	if len(ready) == 0 {
		return nil, errors.New(errors.ErrCodeNotConnected, "no connected broker")
	}

	n := r.next.Add(1) - 1

	return ready[n%uint64(len(ready))], nil
}

func (r *Router) defaultBroker() (broker.Broker, bool) {
	if r.config.DefaultBroker == "" {
		return nil, false
	}

	b, err := r.Broker(r.config.DefaultBroker)
	if err != nil || !b.IsReady() {
		return nil, false
	}

	return b, true
}

// selectOwner resolves the broker an existing order belongs to. Without an
// id this is only unambiguous when a single broker is registered.
func (r *Router) selectOwner(id string) (broker.Broker, error) {
	if id != "" {
		return r.Broker(id)
	}

	all := r.Brokers()
	if len(all) != 1 {
		return nil, errors.New(errors.ErrCodeMissingParameter, "broker id is required when several brokers are registered")
	}

	return all[0], nil
}

// ConnectAll connects every registered broker concurrently. Brokers that
// fail stay registered and are reported in the result.
func (r *Router) ConnectAll(ctx context.Context) []BrokerError {
	brokers := r.Brokers()
	failures := make([]error, len(brokers))

	var g errgroup.Group

	for i, b := range brokers {
		g.Go(func() error {
			if err := b.Connect(ctx); err != nil {
				r.logger.Error("Broker failed to connect", zap.String("broker", b.ID()), zap.Error(err))
				failures[i] = err
			}

			return nil
		})
	}

	_ = g.Wait()

	return collectErrors(brokers, failures)
}

// Close disconnects every broker. The router is unusable afterwards.
func (r *Router) Close(ctx context.Context) error {
	brokers := r.Brokers()
	failures := make([]error, len(brokers))

	var g errgroup.Group

	for i, b := range brokers {
		g.Go(func() error {
			failures[i] = b.Disconnect(ctx)

			return nil
		})
	}

	_ = g.Wait()

	r.mu.Lock()
	clear(r.brokers)
	r.ids = nil
	r.mu.Unlock()

	if errs := collectErrors(brokers, failures); len(errs) > 0 {
		return errs[0].Err
	}

	return nil
}

func (r *Router) SubmitOrder(ctx context.Context, brokerID string, req types.OrderRequest) (types.Order, error) {
	b, err := r.selectForOrder(brokerID)
	if err != nil {
		return types.Order{}, err
	}

	return b.SubmitOrder(ctx, req)
}

func (r *Router) CancelOrder(ctx context.Context, brokerID string, orderID string) error {
	b, err := r.selectOwner(brokerID)
	if err != nil {
		return err
	}

	return b.CancelOrder(ctx, orderID)
}

// ModifyOrder amends an order. The returned order carries a new id when the
// broker had to cancel and resubmit.
func (r *Router) ModifyOrder(ctx context.Context, brokerID string, orderID string, mod types.OrderModification) (types.Order, error) {
	b, err := r.selectOwner(brokerID)
	if err != nil {
		return types.Order{}, err
	}

	return b.ModifyOrder(ctx, orderID, mod)
}

func (r *Router) GetOrder(ctx context.Context, brokerID string, orderID string) (types.Order, error) {
	b, err := r.selectOwner(brokerID)
	if err != nil {
		return types.Order{}, err
	}

	return b.GetOrder(ctx, orderID)
}

func (r *Router) ClosePosition(ctx context.Context, brokerID string, symbol string, quantity optional.Option[float64]) (types.Order, error) {
	b, err := r.selectOwner(brokerID)
	if err != nil {
		return types.Order{}, err
	}

	return b.ClosePosition(ctx, symbol, quantity)
}

func (r *Router) GetAccount(ctx context.Context, brokerID string) (types.Account, error) {
	b, err := r.Select(brokerID)
	if err != nil {
		return types.Account{}, err
	}

	return b.GetAccount(ctx)
}

func (r *Router) GetPositions(ctx context.Context, brokerID string) ([]types.Position, error) {
	b, err := r.Select(brokerID)
	if err != nil {
		return nil, err
	}

	return b.GetPositions(ctx)
}

// GetQuote asks the selected broker for a quote. When no broker is connected
// or the broker does not serve quotes for the symbol, the fallback source
// answers instead.
func (r *Router) GetQuote(ctx context.Context, brokerID string, symbol string) (types.Quote, error) {
	b, err := r.Select(brokerID)
	if err == nil {
		quote, qerr := b.GetQuote(ctx, symbol)
		if !r.shouldFallback(qerr) {
			return quote, qerr
		}

		err = qerr
	} else if !r.shouldFallback(err) {
		return types.Quote{}, err
	}

	r.logger.Debug("Using fallback quote source",
		zap.String("symbol", symbol),
		zap.String("source", r.fallback.Name()),
		zap.Error(err),
	)

	return r.fallback.GetQuote(ctx, symbol)
}

// GetBars asks the selected broker for bars and falls back like GetQuote.
func (r *Router) GetBars(ctx context.Context, brokerID string, symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Bar, error) {
	b, err := r.Select(brokerID)
	if err == nil {
		bars, berr := b.GetBars(ctx, symbol, timeframe, start, end)
		if !r.shouldFallback(berr) {
			return bars, berr
		}

		err = berr
	} else if !r.shouldFallback(err) {
		return nil, err
	}

	r.logger.Debug("Using fallback bar source",
		zap.String("symbol", symbol),
		zap.String("timeframe", string(timeframe)),
		zap.String("source", r.fallback.Name()),
		zap.Error(err),
	)

	return r.fallback.GetBars(ctx, symbol, timeframe, start, end)
}

func (r *Router) shouldFallback(err error) bool {
	if err == nil || r.fallback == nil {
		return false
	}

	return errors.HasCode(err, errors.ErrCodeUnsupported) || errors.HasCode(err, errors.ErrCodeNotConnected)
}

func (r *Router) SubscribeQuotes(ctx context.Context, brokerID string, symbols []string) error {
	b, err := r.Select(brokerID)
	if err != nil {
		return err
	}

	return b.SubscribeQuotes(ctx, symbols)
}

func (r *Router) UnsubscribeQuotes(ctx context.Context, brokerID string, symbols []string) error {
	b, err := r.Select(brokerID)
	if err != nil {
		return err
	}

	return b.UnsubscribeQuotes(ctx, symbols)
}

func (r *Router) SubscribeBars(ctx context.Context, brokerID string, symbols []string, timeframe types.Timeframe) error {
	b, err := r.Select(brokerID)
	if err != nil {
		return err
	}

	return b.SubscribeBars(ctx, symbols, timeframe)
}

func (r *Router) UnsubscribeBars(ctx context.Context, brokerID string, symbols []string) error {
	b, err := r.Select(brokerID)
	if err != nil {
		return err
	}

	return b.UnsubscribeBars(ctx, symbols)
}

func (r *Router) IsMarketOpen(ctx context.Context, brokerID string) (bool, error) {
	b, err := r.Select(brokerID)
	if err != nil {
		return false, err
	}

	return b.IsMarketOpen(ctx)
}

func (r *Router) GetMarketHours(ctx context.Context, brokerID string, date time.Time) (types.MarketHours, error) {
	b, err := r.Select(brokerID)
	if err != nil {
		return types.MarketHours{}, err
	}

	return b.GetMarketHours(ctx, date)
}

func notFound(id string) error {
	return errors.Newf(errors.ErrCodeNotFound, "broker not registered: %s", id)
}
