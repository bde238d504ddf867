package alpaca

import (
	"context"
	"maps"
	"slices"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"
	"github.com/rxtech-lab/argo-gateway/internal/events"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"go.uber.org/zap"
)

// SubscribeQuotes streams quotes for the symbols onto the event bus. Symbols
// already streaming are skipped.
func (a *Adapter) SubscribeQuotes(ctx context.Context, symbols []string) error {
	if err := a.ensureReady(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	added := missing(a.quoteSymbols, symbols)
	if len(added) == 0 {
		return nil
	}

	s, err := a.connectStreamLocked(ctx)
	if err != nil {
		return err
	}

	if err := s.SubscribeToQuotes(a.onQuote, added...); err != nil {
		return errors.Wrap(errors.ErrCodeUpstream, "failed to subscribe to quotes", err)
	}

	for _, symbol := range added {
		a.quoteSymbols[symbol] = struct{}{}
	}

	a.logger.Debug("Subscribed to quotes", zap.Strings("symbols", added))

	return nil
}

func (a *Adapter) UnsubscribeQuotes(_ context.Context, symbols []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed := present(a.quoteSymbols, symbols)
	if len(removed) == 0 || a.stream == nil {
		return nil
	}

	if err := a.stream.UnsubscribeFromQuotes(removed...); err != nil {
		return errors.Wrap(errors.ErrCodeUpstream, "failed to unsubscribe from quotes", err)
	}

	return nil
}

// SubscribeBars streams minute bars onto the event bus. Other timeframes are
// only available through GetBars.
func (a *Adapter) SubscribeBars(ctx context.Context, symbols []string, timeframe types.Timeframe) error {
	if timeframe != types.Timeframe1m {
		return errors.Unsupported(a.id, "streaming "+string(timeframe)+" bars")
	}

	if err := a.ensureReady(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	added := missing(a.barSymbols, symbols)
	if len(added) == 0 {
		return nil
	}

	s, err := a.connectStreamLocked(ctx)
	if err != nil {
		return err
	}

	if err := s.SubscribeToBars(a.onBar, added...); err != nil {
		return errors.Wrap(errors.ErrCodeUpstream, "failed to subscribe to bars", err)
	}

	for _, symbol := range added {
		a.barSymbols[symbol] = struct{}{}
	}

	a.logger.Debug("Subscribed to bars", zap.Strings("symbols", added))

	return nil
}

func (a *Adapter) UnsubscribeBars(_ context.Context, symbols []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed := present(a.barSymbols, symbols)
	if len(removed) == 0 || a.stream == nil {
		return nil
	}

	if err := a.stream.UnsubscribeFromBars(removed...); err != nil {
		return errors.Wrap(errors.ErrCodeUpstream, "failed to unsubscribe from bars", err)
	}

	return nil
}

// missing returns the symbols not yet in the set, without duplicates.
func missing(set map[string]struct{}, symbols []string) []string {
	var result []string

	for _, symbol := range symbols {
		if _, ok := set[symbol]; ok || slices.Contains(result, symbol) {
			continue
		}

		result = append(result, symbol)
	}

	return result
}

// present removes the symbols from the set and returns those it held.
func present(set map[string]struct{}, symbols []string) []string {
	var result []string

	for _, symbol := range symbols {
		if _, ok := set[symbol]; ok {
			delete(set, symbol)
			result = append(result, symbol)
		}
	}

	return result
}

// connectStreamLocked returns the data stream, connecting it on first use.
// The stream lives until Disconnect, not until ctx ends.
func (a *Adapter) connectStreamLocked(ctx context.Context) (Stream, error) {
	if a.stream != nil {
		return a.stream, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeTimeout, "subscription abandoned", err)
	}

	streamCtx, stop := context.WithCancel(context.Background())
	s := a.newStream()

	if err := s.Connect(streamCtx); err != nil {
		stop()

		return nil, wrapAuthError(err, "failed to connect to Alpaca data stream")
	}

	a.stream = s
	a.stopStream = stop

	go a.watch(streamCtx, s)

	a.logger.Info("Data stream connected", zap.String("feed", a.cfg.Feed))

	return s, nil
}

// watch waits for the stream to give up reconnecting. The subscriptions are
// dropped and reported so callers can subscribe again.
func (a *Adapter) watch(ctx context.Context, s Stream) {
	var err error

	select {
	case <-ctx.Done():
		return
	case err = <-s.Terminated():
	}

	a.mu.Lock()
	if a.stream != s {
		a.mu.Unlock()

		return
	}

	lost := slices.Sorted(maps.Keys(a.quoteSymbols))
	lost = append(lost, slices.Sorted(maps.Keys(a.barSymbols))...)
	a.stream = nil
	a.stopStream = nil
	clear(a.quoteSymbols)
	clear(a.barSymbols)
	a.mu.Unlock()

	detail := "data stream terminated"
	if err != nil {
		detail += ": " + err.Error()
	}

	a.logger.Warn("Data stream terminated", zap.Strings("symbols", lost), zap.Error(err))
	a.bus.Publish(events.NewError(a.id, a.clock.Now(), errors.ErrCodeDisconnected, detail))
}

func (a *Adapter) onQuote(q stream.Quote) {
	quote := types.Quote{Symbol: q.Symbol, Timestamp: q.Timestamp}
	quote.Set(types.QuoteFieldBid, q.BidPrice)
	quote.Set(types.QuoteFieldBidSize, float64(q.BidSize))
	quote.Set(types.QuoteFieldAsk, q.AskPrice)
	quote.Set(types.QuoteFieldAskSize, float64(q.AskSize))

	a.bus.Publish(events.NewQuoteUpdate(a.id, a.clock.Now(), quote))
}

func (a *Adapter) onBar(b stream.Bar) {
	bar := types.Bar{
		Symbol:    b.Symbol,
		Timeframe: types.Timeframe1m,
		Timestamp: b.Timestamp,
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    float64(b.Volume),
	}

	a.bus.Publish(events.NewBarUpdate(a.id, a.clock.Now(), bar))
}
