package ibgateway

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/internal/wire"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"go.uber.org/zap"
)

// accountSummaryTags are the summary values GetAccount asks for.
const accountSummaryTags = "AccountType,NetLiquidation,TotalCashValue,BuyingPower,EquityWithLoanValue,MaintMarginReq,AvailableFunds"

const (
	historicalEndLayout = "20060102-15:04:05"
	historicalDayLayout = "20060102"
	executionTimeLayout = "20060102 15:04:05"
)

var barSizes = map[types.Timeframe]string{
	types.Timeframe1s:  "1 secs",
	types.Timeframe5s:  "5 secs",
	types.Timeframe1m:  "1 min",
	types.Timeframe5m:  "5 mins",
	types.Timeframe15m: "15 mins",
	types.Timeframe30m: "30 mins",
	types.Timeframe1h:  "1 hour",
	types.Timeframe1d:  "1 day",
	types.Timeframe1w:  "1 week",
}

// accountSummary accumulates ACCOUNT_SUMMARY rows for one account.
type accountSummary struct {
	account  string
	currency string
	values   map[string]string
}

func (s *accountSummary) add(m *wire.AccountSummary) {
	if s.account == "" {
		s.account = m.Account
	}

	if m.Account != s.account {
		return
	}

	s.values[m.Tag] = m.Value
	if m.Tag == "NetLiquidation" && m.Currency != "" {
		s.currency = m.Currency
	}
}

func (s *accountSummary) float(tag string) float64 {
	value, err := strconv.ParseFloat(s.values[tag], 64)
	if err != nil {
		return 0
	}

	return value
}

func (s *accountSummary) toAccount(brokerID string) types.Account {
	accountType := types.AccountTypeMargin
	if strings.EqualFold(s.values["AccountType"], "cash") {
		accountType = types.AccountTypeCash
	}

	currency := s.currency
	if currency == "" {
		currency = "USD"
	}

	return types.Account{
		ID:              s.account,
		BrokerID:        brokerID,
		Type:            accountType,
		Currency:        currency,
		Balance:         s.float("TotalCashValue"),
		Equity:          s.float("NetLiquidation"),
		BuyingPower:     s.float("BuyingPower"),
		Cash:            s.float("TotalCashValue"),
		MarginUsed:      s.float("MaintMarginReq"),
		MarginAvailable: s.float("AvailableFunds"),
	}
}

type historicalBars struct {
	bars []wire.HistoricalBar
}

func (h *historicalBars) add(m *wire.HistoricalData) {
	h.bars = append(h.bars, m.Bars...)
}

// cancelRequest stops a server-side stream whose reply was already consumed
// or abandoned.
func (a *Adapter) cancelRequest(msg wire.Message) {
	if !a.IsReady() {
		return
	}

	if err := a.send(msg); err != nil {
		a.logger.Debug("Failed to cancel request", zap.Int("code", msg.Code()), zap.Error(err))
	}
}

// assetClass returns the class last reported for the symbol, or the
// configured default.
func (a *Adapter) assetClass(symbol string) types.AssetClass {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if class, ok := a.assetClasses[symbol]; ok {
		return class
	}

	return a.cfg.DefaultAssetClass
}

func (a *Adapter) contract(symbol string) wire.Contract {
	return wire.ContractFor(symbol, a.assetClass(symbol))
}

// newRows allocates an accumulator for list responses.
func newRows[T any]() *[]T {
	return &[]T{}
}

func (a *Adapter) GetAccount(ctx context.Context) (types.Account, error) {
	newAcc := func() *accountSummary {
		return &accountSummary{account: a.currentAccount(), values: make(map[string]string)}
	}

	summary, reqID, err := roundTrip(ctx, a, "account_summary", newAcc, func(reqID int64) wire.Message {
		return &wire.ReqAccountSummary{ReqID: reqID, Group: "All", Tags: accountSummaryTags}
	})
	if reqID != 0 {
		a.cancelRequest(&wire.CancelAccountSummary{ReqID: reqID})
	}

	if err != nil {
		return types.Account{}, err
	}

	return summary.toAccount(a.id), nil
}

func (a *Adapter) GetPositions(ctx context.Context) ([]types.Position, error) {
	account := a.currentAccount()

	rows, reqID, err := roundTrip(ctx, a, "positions", newRows[wire.PositionMulti], func(reqID int64) wire.Message {
		return &wire.ReqPositionsMulti{ReqID: reqID, Account: account}
	})
	if reqID != 0 {
		a.cancelRequest(&wire.CancelPositionsMulti{ReqID: reqID})
	}

	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	positions := make([]types.Position, 0, len(*rows))
	for _, row := range *rows {
		if row.Position == 0 || (account != "" && row.Account != "" && row.Account != account) {
			continue
		}

		symbol := row.Contract.Symbol
		a.assetClasses[symbol] = row.Contract.AssetClass()

		side, qty := types.PositionSideFromQuantity(row.Position)
		position := types.Position{
			Symbol:     symbol,
			BrokerID:   a.id,
			Side:       side,
			Quantity:   qty,
			EntryPrice: row.AvgCost,
		}

		if pv, ok := a.portfolio[symbol]; ok && pv.MarketPrice > 0 {
			position.CurrentPrice = pv.MarketPrice
			position.RealizedPnL = pv.RealizedPnL
			position.ComputeUnrealizedPnL()
		}

		positions = append(positions, position)
	}

	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })

	return positions, nil
}

// GetPosition returns the position for a symbol, or a zero-quantity position
// when none is held.
func (a *Adapter) GetPosition(ctx context.Context, symbol string) (types.Position, error) {
	positions, err := a.GetPositions(ctx)
	if err != nil {
		return types.Position{}, err
	}

	for _, position := range positions {
		if position.Symbol == symbol {
			return position, nil
		}
	}

	return types.Position{Symbol: symbol, BrokerID: a.id, Side: types.PositionSideLong}, nil
}

// GetQuote requests a market data snapshot and merges its ticks until
// TICK_SNAPSHOT_END.
func (a *Adapter) GetQuote(ctx context.Context, symbol string) (types.Quote, error) {
	if symbol == "" {
		return types.Quote{}, errors.New(errors.ErrCodeInvalidParameter, "symbol is required")
	}

	contract := a.contract(symbol)

	quote, reqID, err := roundTrip(ctx, a, "quote", func() *types.Quote { return &types.Quote{Symbol: symbol} }, func(reqID int64) wire.Message {
		return &wire.ReqMktData{ReqID: reqID, Contract: contract, Snapshot: true}
	})
	if err != nil {
		if reqID != 0 && errors.HasCode(err, errors.ErrCodeTimeout) {
			a.cancelRequest(&wire.CancelMktData{ReqID: reqID})
		}

		return types.Quote{}, err
	}

	if quote.Present == 0 {
		return types.Quote{}, errors.Newf(errors.ErrCodeNotFound, "no market data for %s", symbol)
	}

	return *quote, nil
}

// GetBars returns historical bars in [start, end]. A zero end means now.
func (a *Adapter) GetBars(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Bar, error) {
	barSize, ok := barSizes[timeframe]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnsupported, "%s does not support %s bars", a.id, timeframe)
	}

	if end.IsZero() {
		end = a.clock.Now()
	}

	if !end.After(start) {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "end must be after start")
	}

	contract := a.contract(symbol)

	result, _, err := roundTrip(ctx, a, "historical_data", func() *historicalBars { return &historicalBars{} }, func(reqID int64) wire.Message {
		return &wire.ReqHistoricalData{
			ReqID:       reqID,
			Contract:    contract,
			EndDateTime: end.UTC().Format(historicalEndLayout),
			BarSize:     barSize,
			Duration:    durationString(end.Sub(start)),
			WhatToShow:  "TRADES",
			FormatDate:  2,
		}
	})
	if err != nil {
		return nil, err
	}

	bars := make([]types.Bar, 0, len(result.bars))
	for _, raw := range result.bars {
		ts, err := parseBarTime(raw.Date)
		if err != nil {
			return nil, err
		}

		if ts.Before(start) || ts.After(end) {
			continue
		}

		bars = append(bars, types.Bar{
			Symbol:    symbol,
			Timeframe: timeframe,
			Timestamp: ts,
			Open:      raw.Open,
			High:      raw.High,
			Low:       raw.Low,
			Close:     raw.Close,
			Volume:    raw.Volume,
		})
	}

	return bars, nil
}

// durationString renders a span in the gateway's duration syntax, which only
// accepts seconds up to one day.
func durationString(span time.Duration) string {
	seconds := int64(math.Ceil(span.Seconds()))
	if seconds <= 0 {
		seconds = 1
	}

	if seconds <= 86400 {
		return fmt.Sprintf("%d S", seconds)
	}

	days := (seconds + 86399) / 86400
	if days <= 365 {
		return fmt.Sprintf("%d D", days)
	}

	return fmt.Sprintf("%d Y", (days+364)/365)
}

// parseBarTime accepts epoch seconds for intraday bars and yyyymmdd for
// daily bars.
func parseBarTime(value string) (time.Time, error) {
	if len(value) == len(historicalDayLayout) {
		if ts, err := time.Parse(historicalDayLayout, value); err == nil {
			return ts, nil
		}
	}

	epoch, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrapf(errors.ErrCodeProtocolError, err, "invalid bar time %q", value)
	}

	return time.Unix(epoch, 0).UTC(), nil
}

func subscribeMessage(sub subscription) wire.Message {
	contract := wire.ContractFor(sub.symbol, sub.assetClass)

	if sub.kind == subscriptionBars {
		return &wire.ReqRealTimeBars{ReqID: sub.reqID, Contract: contract, BarSize: 5, WhatToShow: "TRADES"}
	}

	return &wire.ReqMktData{ReqID: sub.reqID, Contract: contract}
}

func cancelMessage(sub subscription) wire.Message {
	if sub.kind == subscriptionBars {
		return &wire.CancelRealTimeBars{ReqID: sub.reqID}
	}

	return &wire.CancelMktData{ReqID: sub.reqID}
}

// SubscribeQuotes starts streaming quotes. Symbols already streaming are
// skipped.
func (a *Adapter) SubscribeQuotes(ctx context.Context, symbols []string) error {
	return a.subscribe(subscriptionQuotes, symbols, "")
}

func (a *Adapter) UnsubscribeQuotes(ctx context.Context, symbols []string) error {
	a.unsubscribe(subscriptionQuotes, symbols)

	return nil
}

// SubscribeBars starts streaming real-time bars. The gateway only produces
// 5 second bars.
func (a *Adapter) SubscribeBars(ctx context.Context, symbols []string, timeframe types.Timeframe) error {
	if timeframe != types.Timeframe5s {
		return errors.Newf(errors.ErrCodeUnsupported, "%s streams only %s bars, got %s", a.id, types.Timeframe5s, timeframe)
	}

	return a.subscribe(subscriptionBars, symbols, timeframe)
}

func (a *Adapter) UnsubscribeBars(ctx context.Context, symbols []string) error {
	a.unsubscribe(subscriptionBars, symbols)

	return nil
}

func (a *Adapter) subscribe(kind subscriptionKind, symbols []string, timeframe types.Timeframe) error {
	if err := a.ensureReady(); err != nil {
		return err
	}

	for _, symbol := range symbols {
		sub := &subscription{
			kind:       kind,
			symbol:     symbol,
			assetClass: a.assetClass(symbol),
			timeframe:  timeframe,
			reqID:      a.nextRequestID(),
			quote:      types.Quote{Symbol: symbol},
		}

		if !a.subs.add(sub) {
			continue
		}

		if err := a.send(subscribeMessage(*sub)); err != nil {
			a.subs.remove(kind, symbol)

			return err
		}

		a.logger.Debug("Subscribed", zap.String("kind", string(kind)), zap.String("symbol", symbol), zap.Int64("req_id", sub.reqID))
	}

	return nil
}

func (a *Adapter) unsubscribe(kind subscriptionKind, symbols []string) {
	for _, symbol := range symbols {
		sub, ok := a.subs.remove(kind, symbol)
		if !ok {
			continue
		}

		a.cancelRequest(cancelMessage(*sub))
	}
}

// GetTrades returns the executions the gateway reports for this client.
func (a *Adapter) GetTrades(ctx context.Context, filter types.TradeFilter) ([]types.Trade, error) {
	execFilter := wire.ExecutionFilter{
		ClientID: a.cfg.ClientID,
		Account:  a.currentAccount(),
		Symbol:   filter.Symbol,
	}

	rows, _, err := roundTrip(ctx, a, "executions", newRows[wire.ExecutionData], func(reqID int64) wire.Message {
		return &wire.ReqExecutions{ReqID: reqID, Filter: execFilter}
	})
	if err != nil {
		return nil, err
	}

	trades := make([]types.Trade, 0, len(*rows))
	for _, row := range *rows {
		side := types.OrderSideBuy
		if row.Side == "SLD" || row.Side == string(types.OrderSideSell) {
			side = types.OrderSideSell
		}

		trades = append(trades, types.Trade{
			ID:            row.ExecID,
			OrderID:       strconv.FormatInt(row.OrderID, 10),
			BrokerID:      a.id,
			Symbol:        row.Contract.Symbol,
			Side:          side,
			ExecutedAt:    parseExecutionTime(row.Time),
			ExecutedQty:   row.Shares,
			ExecutedPrice: row.Price,
		})
	}

	sort.SliceStable(trades, func(i, j int) bool { return trades[i].ExecutedAt.Before(trades[j].ExecutedAt) })

	return filter.Apply(trades), nil
}

// parseExecutionTime reads "yyyymmdd  hh:mm:ss", optionally followed by a
// zone name. Unparseable times are returned as zero.
func parseExecutionTime(value string) time.Time {
	parts := strings.Fields(value)
	if len(parts) < 2 {
		return time.Time{}
	}

	loc := time.UTC
	if len(parts) > 2 {
		if zone, err := time.LoadLocation(parts[2]); err == nil {
			loc = zone
		}
	}

	ts, err := time.ParseInLocation(executionTimeLayout, parts[0]+" "+parts[1], loc)
	if err != nil {
		return time.Time{}
	}

	return ts.UTC()
}

func (a *Adapter) IsMarketOpen(ctx context.Context) (bool, error) {
	return false, errors.Unsupported(a.id, "market hours")
}

func (a *Adapter) GetMarketHours(ctx context.Context, date time.Time) (types.MarketHours, error) {
	return types.MarketHours{}, errors.Unsupported(a.id, "market hours")
}
