package binance

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-gateway/internal/events"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/internal/utils"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"go.uber.org/zap"
)

// SubscribeQuotes opens one book ticker stream per symbol. Symbols already
// streaming are skipped.
func (a *Adapter) SubscribeQuotes(_ context.Context, symbols []string) error {
	if err := a.ensureReady(); err != nil {
		return err
	}

	for _, symbol := range symbols {
		err := a.open(a.quoteStreams, symbol, func() (chan struct{}, chan struct{}, error) {
			return a.streamer.BookTicker(symbol, a.onBookTicker, a.onStreamError(symbol))
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (a *Adapter) UnsubscribeQuotes(_ context.Context, symbols []string) error {
	a.closeStreams(a.quoteStreams, symbols)

	return nil
}

// SubscribeBars opens one kline stream per symbol and publishes each bar once
// it is final.
func (a *Adapter) SubscribeBars(_ context.Context, symbols []string, timeframe types.Timeframe) error {
	if err := a.ensureReady(); err != nil {
		return err
	}

	interval, ok := intervals[timeframe]
	if !ok {
		return errors.Newf(errors.ErrCodeUnsupported, "binance does not support %s bars", timeframe)
	}

	for _, symbol := range symbols {
		handler := func(event *binance.WsKlineEvent) {
			a.onKline(symbol, timeframe, event)
		}

		err := a.open(a.barStreams, symbol, func() (chan struct{}, chan struct{}, error) {
			return a.streamer.Kline(symbol, interval, handler, a.onStreamError(symbol))
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (a *Adapter) UnsubscribeBars(_ context.Context, symbols []string) error {
	a.closeStreams(a.barStreams, symbols)

	return nil
}

func (a *Adapter) open(registry map[string]*stream, symbol string, serve func() (chan struct{}, chan struct{}, error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := registry[symbol]; ok {
		return nil
	}

	done, stop, err := serve()
	if err != nil {
		return errors.Wrapf(errors.ErrCodeUpstream, err, "failed to open stream for %s", symbol)
	}

	s := &stream{done: done, stop: stop}
	registry[symbol] = s

	go a.watch(registry, symbol, s)

	return nil
}

// watch drops a stream that ended on its own so it can be subscribed again.
func (a *Adapter) watch(registry map[string]*stream, symbol string, s *stream) {
	<-s.done

	a.mu.Lock()
	current, ok := registry[symbol]
	ended := ok && current == s
	if ended {
		delete(registry, symbol)
	}
	a.mu.Unlock()

	if ended {
		a.logger.Warn("Stream ended", zap.String("symbol", symbol))
		a.bus.Publish(events.NewError(a.id, a.clock.Now(), errors.ErrCodeDisconnected, "stream ended for "+symbol))
	}
}

func (a *Adapter) closeStreams(registry map[string]*stream, symbols []string) {
	a.mu.Lock()
	closing := make([]*stream, 0, len(symbols))
	for _, symbol := range symbols {
		if s, ok := registry[symbol]; ok {
			closing = append(closing, s)
			delete(registry, symbol)
		}
	}
	a.mu.Unlock()

	for _, s := range closing {
		close(s.stop)
	}
}

func (a *Adapter) onBookTicker(event *binance.WsBookTickerEvent) {
	quote := types.Quote{Symbol: event.Symbol, Timestamp: a.clock.Now()}
	quote.Set(types.QuoteFieldBid, utils.ParseFloat(event.BestBidPrice))
	quote.Set(types.QuoteFieldBidSize, utils.ParseFloat(event.BestBidQty))
	quote.Set(types.QuoteFieldAsk, utils.ParseFloat(event.BestAskPrice))
	quote.Set(types.QuoteFieldAskSize, utils.ParseFloat(event.BestAskQty))

	a.bus.Publish(events.NewQuoteUpdate(a.id, quote.Timestamp, quote))
}

func (a *Adapter) onKline(symbol string, timeframe types.Timeframe, event *binance.WsKlineEvent) {
	if !event.Kline.IsFinal {
		return
	}

	k := event.Kline
	bar := types.Bar{
		Symbol:    symbol,
		Timeframe: timeframe,
		Timestamp: time.UnixMilli(k.StartTime),
		Open:      utils.ParseFloat(k.Open),
		High:      utils.ParseFloat(k.High),
		Low:       utils.ParseFloat(k.Low),
		Close:     utils.ParseFloat(k.Close),
		Volume:    utils.ParseFloat(k.Volume),
	}

	a.bus.Publish(events.NewBarUpdate(a.id, a.clock.Now(), bar))
}

func (a *Adapter) onStreamError(symbol string) func(error) {
	return func(err error) {
		a.logger.Warn("Stream error", zap.String("symbol", symbol), zap.Error(err))
		a.bus.Publish(events.NewError(a.id, a.clock.Now(), errors.ErrCodeUpstream, err.Error()))
	}
}
