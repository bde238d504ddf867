package robinhood

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/rxtech-lab/argo-gateway/internal/events"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"go.uber.org/zap"
)

var activeStatuses = []types.OrderStatus{
	types.OrderStatusPending,
	types.OrderStatusOpen,
	types.OrderStatusPartial,
	types.OrderStatusNeedsReconciliation,
}

// SubscribeQuotes adds the symbols to the quote poll. Each poll publishes the
// quotes that changed since the previous one.
func (a *Adapter) SubscribeQuotes(_ context.Context, symbols []string) error {
	if err := a.ensureReady(); err != nil {
		return err
	}

	a.mu.Lock()
	for _, symbol := range symbols {
		a.quoteSymbols[symbol] = struct{}{}
	}
	a.mu.Unlock()

	a.logger.Debug("Polling quotes", zap.Strings("symbols", symbols))

	return nil
}

func (a *Adapter) UnsubscribeQuotes(_ context.Context, symbols []string) error {
	a.mu.Lock()
	for _, symbol := range symbols {
		delete(a.quoteSymbols, symbol)
	}
	a.mu.Unlock()

	return nil
}

func (a *Adapter) SubscribeBars(_ context.Context, _ []string, timeframe types.Timeframe) error {
	return errors.Unsupported(a.id, "streaming "+string(timeframe)+" bars")
}

func (a *Adapter) UnsubscribeBars(_ context.Context, _ []string) error {
	return nil
}

func (a *Adapter) startPolling() {
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})

	a.mu.Lock()
	a.stopPoll = stop
	a.pollDone = done
	a.mu.Unlock()

	go a.poll(ctx, done)
}

func (a *Adapter) stopPolling() {
	a.mu.Lock()
	stop := a.stopPoll
	done := a.pollDone
	a.stopPoll = nil
	a.pollDone = nil
	clear(a.quoteSymbols)
	a.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

// poll refreshes live orders and subscribed quotes on every tick.
func (a *Adapter) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := a.clock.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	seen := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			a.pollOrders(ctx)
			a.pollQuotes(ctx, seen)
		}
	}
}

func (a *Adapter) pollOrders(ctx context.Context) {
	for _, order := range a.tracker.List(types.OrderFilter{Statuses: activeStatuses}) {
		o, err := a.fetchOrder(ctx, order.ID)
		if err != nil {
			if ctx.Err() == nil {
				a.logger.Warn("Order poll failed", zap.String("order_id", order.ID), zap.Error(err))
			}

			continue
		}

		a.observe(ctx, o)
	}
}

func (a *Adapter) pollQuotes(ctx context.Context, seen map[string]time.Time) {
	a.mu.Lock()
	symbols := slices.Sorted(maps.Keys(a.quoteSymbols))
	a.mu.Unlock()

	if len(symbols) == 0 {
		return
	}

	quotes, err := a.fetchQuotes(ctx, symbols)
	if err != nil {
		if ctx.Err() != nil {
			return
		}

		a.logger.Warn("Quote poll failed", zap.Error(err))
		a.bus.Publish(events.NewError(a.id, a.clock.Now(), errors.GetCode(err), err.Error()))

		return
	}

	for _, quote := range quotes {
		if last, ok := seen[quote.Symbol]; ok && !quote.Timestamp.After(last) {
			continue
		}

		seen[quote.Symbol] = quote.Timestamp
		a.bus.Publish(events.NewQuoteUpdate(a.id, a.clock.Now(), quote))
	}
}
