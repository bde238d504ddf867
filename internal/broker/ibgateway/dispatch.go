package ibgateway

import (
	"strconv"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/internal/events"
	"github.com/rxtech-lab/argo-gateway/internal/orders"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/internal/wire"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"go.uber.org/zap"
)

// dispatch routes one inbound message. Messages carrying a request id go to
// the pending table or a subscription; the rest are routed by type. It runs
// on the read loop and never blocks on callers.
func (a *Adapter) dispatch(sess *session, msg wire.Message) {
	switch m := msg.(type) {
	case *wire.NextValidID:
		a.mu.Lock()
		if m.OrderID > a.nextOrderID {
			a.nextOrderID = m.OrderID
		}
		a.mu.Unlock()

		sess.readyOnce.Do(func() { close(sess.ready) })
	case *wire.ManagedAccts:
		a.handleManagedAccounts(m)
	case *wire.ErrMsg:
		a.handleError(m)
	case *wire.TickPrice:
		a.handleTick(m.ReqID, tickPriceQuote(m, a.clock.Now()))
	case *wire.TickSize:
		a.handleTick(m.ReqID, tickSizeQuote(m, a.clock.Now()))
	case *wire.TickSnapshotEnd:
		a.pending.Resolve(m.ReqID)
	case *wire.OrderStatus:
		a.tracker.Apply(orders.Update{
			OrderID:      strconv.FormatInt(m.OrderID, 10),
			NativeStatus: m.Status,
			Filled:       optional.Some(m.Filled),
			AveragePrice: m.AvgFillPrice,
		})
	case *wire.OpenOrder:
		a.handleOpenOrder(m)
	case *wire.OpenOrderEnd:
		a.pending.Resolve(openOrdersRequestID)
	case *wire.AcctValue:
		a.mu.Lock()
		a.accountValues[m.Key] = m.Value
		a.mu.Unlock()
	case *wire.PortfolioValue:
		a.mu.Lock()
		a.portfolio[m.Contract.Symbol] = *m
		a.assetClasses[m.Contract.Symbol] = m.Contract.AssetClass()
		a.mu.Unlock()
	case *wire.AccountSummary:
		a.pending.Update(m.ReqID, func(acc any) {
			acc.(*accountSummary).add(m)
		})
	case *wire.AccountSummaryEnd:
		a.pending.Resolve(m.ReqID)
	case *wire.PositionMulti:
		a.pending.Update(m.ReqID, func(acc any) {
			positions := acc.(*[]wire.PositionMulti)
			*positions = append(*positions, *m)
		})
	case *wire.PositionMultiEnd:
		a.pending.Resolve(m.ReqID)
	case *wire.HistoricalData:
		if a.pending.Update(m.ReqID, func(acc any) { acc.(*historicalBars).add(m) }) {
			a.pending.Resolve(m.ReqID)
		}
	case *wire.RealTimeBar:
		a.handleRealTimeBar(m)
	case *wire.ExecutionData:
		if !a.pending.Update(m.ReqID, func(acc any) {
			executions := acc.(*[]wire.ExecutionData)
			*executions = append(*executions, *m)
		}) {
			a.logger.Debug("Execution push", zap.Int64("order_id", m.OrderID), zap.String("exec_id", m.ExecID))
		}
	case *wire.ExecutionDataEnd:
		a.pending.Resolve(m.ReqID)
	case *wire.CurrentTime:
		a.pending.Update(currentTimeRequestID, func(acc any) {
			*acc.(*time.Time) = time.Unix(m.Time, 0).UTC()
		})
		a.pending.Resolve(currentTimeRequestID)
	case *wire.AcctUpdateTime, *wire.AcctDownloadEnd, *wire.PositionData, *wire.PositionEnd:
	case *wire.Unknown:
		a.logger.Debug("Ignoring unhandled message", zap.Int("code", m.MessageCode), zap.Int("fields", len(m.Fields)))
	default:
		a.logger.Debug("Ignoring message", zap.Int("code", msg.Code()))
	}
}

func (a *Adapter) handleManagedAccounts(m *wire.ManagedAccts) {
	accounts := m.Accounts()

	a.mu.Lock()
	a.accounts = accounts
	if a.account == "" && len(accounts) > 0 {
		a.account = accounts[0]
	}
	a.mu.Unlock()

	a.logger.Debug("Managed accounts", zap.Strings("accounts", accounts))
}

func (a *Adapter) handleError(m *wire.ErrMsg) {
	kind, code := classify(m.ErrorCode)

	fields := []zap.Field{
		zap.Int64("id", m.ReqID),
		zap.Int("code", m.ErrorCode),
		zap.String("message", m.Message),
	}

	switch kind {
	case noticeInfo:
		a.logger.Debug("Gateway notice", fields...)

		return
	case noticeConnectivity:
		switch m.ErrorCode {
		case codeConnectivityLost:
			a.logger.Warn("Gateway lost its upstream connection", fields...)
			a.bus.Publish(events.NewDisconnected(a.id, a.clock.Now(), m.Message, false))

			return
		case codeConnectivityRestored:
			// market data subscriptions did not survive on the gateway side
			a.logger.Warn("Gateway upstream connection restored with data lost, resubscribing", fields...)

			if err := a.resubscribe(a.send); err != nil {
				a.logger.Warn("Failed to resubscribe", zap.Error(err))
			}
		default:
			a.logger.Info("Gateway upstream connection restored", fields...)
		}

		a.bus.Publish(events.NewConnected(a.id, a.clock.Now()))

		return
	case noticeOrder, noticeFailure:
	}

	err := errors.Newf(code, "gateway error %d: %s", m.ErrorCode, m.Message)
	if m.ReqID >= 0 && a.pending.Fail(m.ReqID, err) {
		return
	}

	if m.ReqID > 0 {
		orderID := strconv.FormatInt(m.ReqID, 10)
		if _, ok := a.tracker.Get(orderID); ok {
			a.handleOrderError(orderID, m, kind, code)

			return
		}
	}

	a.logger.Warn("Gateway error", fields...)
	a.bus.Publish(events.NewError(a.id, a.clock.Now(), code, err.Error()))
}

func (a *Adapter) handleOrderError(orderID string, m *wire.ErrMsg, kind noticeKind, code errors.ErrorCode) {
	switch {
	case m.ErrorCode == codeOrderCancelled:
		a.tracker.Apply(orders.Update{OrderID: orderID, Status: types.OrderStatusCancelled, Reason: m.Message})
	case kind == noticeOrder || code == errors.ErrCodeRejected:
		a.tracker.Reject(orderID, m.Message)
	default:
		a.logger.Warn("Gateway error for order",
			zap.String("order_id", orderID),
			zap.Int("code", m.ErrorCode),
			zap.String("message", m.Message),
		)
	}

	a.bus.Publish(events.NewError(a.id, a.clock.Now(), code, m.Message))
}

// handleTick folds a single-field tick into a snapshot request or a stream.
func (a *Adapter) handleTick(reqID int64, partial types.Quote) {
	if partial.Present == 0 {
		return
	}

	if a.pending.Update(reqID, func(acc any) {
		quote := acc.(*types.Quote)
		*quote = quote.Merge(partial)
	}) {
		return
	}

	if merged, ok := a.subs.mergeQuote(reqID, partial); ok {
		a.bus.Publish(events.NewQuoteUpdate(a.id, a.clock.Now(), merged))

		return
	}

	a.logger.Debug("Tick for unknown request", zap.Int64("req_id", reqID))
}

func tickPriceQuote(m *wire.TickPrice, at time.Time) types.Quote {
	quote := types.Quote{Timestamp: at}

	switch m.TickType {
	case wire.TickBid:
		quote.Set(types.QuoteFieldBid, m.Price)
		if m.Size > 0 {
			quote.Set(types.QuoteFieldBidSize, m.Size)
		}
	case wire.TickAsk:
		quote.Set(types.QuoteFieldAsk, m.Price)
		if m.Size > 0 {
			quote.Set(types.QuoteFieldAskSize, m.Size)
		}
	case wire.TickLast:
		quote.Set(types.QuoteFieldLast, m.Price)
		if m.Size > 0 {
			quote.Set(types.QuoteFieldLastSize, m.Size)
		}
	}

	return quote
}

func tickSizeQuote(m *wire.TickSize, at time.Time) types.Quote {
	quote := types.Quote{Timestamp: at}

	switch m.TickType {
	case wire.TickBidSize:
		quote.Set(types.QuoteFieldBidSize, m.Size)
	case wire.TickAskSize:
		quote.Set(types.QuoteFieldAskSize, m.Size)
	case wire.TickLastSize:
		quote.Set(types.QuoteFieldLastSize, m.Size)
	case wire.TickVolume:
		quote.Set(types.QuoteFieldVolume, m.Size)
	}

	return quote
}

// handleOpenOrder records the native order and reconciles the tracker with
// it, adopting orders placed before this session.
func (a *Adapter) handleOpenOrder(m *wire.OpenOrder) {
	orderID := strconv.FormatInt(m.Order.OrderID, 10)

	a.mu.Lock()
	a.natives[m.Order.OrderID] = m.Order
	a.assetClasses[m.Order.Contract.Symbol] = m.Order.Contract.AssetClass()
	a.mu.Unlock()

	_, known := a.tracker.Get(orderID)
	if !known {
		req, err := m.Order.ToRequest()
		if err != nil {
			a.logger.Warn("Cannot adopt open order", zap.String("order_id", orderID), zap.Error(err))

			return
		}

		a.tracker.Track(types.OrderFromRequest(orderID, a.id, req, a.clock.Now()))
	}

	a.tracker.Apply(orders.Update{
		OrderID:      orderID,
		NativeStatus: m.Status,
		Commission:   m.Commission,
		Symbol:       m.Order.Contract.Symbol,
	})
}

func (a *Adapter) handleRealTimeBar(m *wire.RealTimeBar) {
	sub, ok := a.subs.lookup(m.ReqID)
	if !ok || sub.kind != subscriptionBars {
		a.logger.Debug("Bar for unknown request", zap.Int64("req_id", m.ReqID))

		return
	}

	a.bus.Publish(events.NewBarUpdate(a.id, a.clock.Now(), types.Bar{
		Symbol:    sub.symbol,
		Timeframe: sub.timeframe,
		Timestamp: time.Unix(m.Time, 0).UTC(),
		Open:      m.Open,
		High:      m.High,
		Low:       m.Low,
		Close:     m.Close,
		Volume:    m.Volume,
	}))
}
