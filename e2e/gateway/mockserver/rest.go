package mockserver

import (
	"net/http"
	"sort"
	"time"
)

func (s *Server) handleAccount(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assets := make([]string, 0, len(s.balances))
	for asset := range s.balances {
		assets = append(assets, asset)
	}

	sort.Strings(assets)

	balances := make([]map[string]any, 0, len(assets))
	for _, asset := range assets {
		b := s.balances[asset]
		balances = append(balances, map[string]any{
			"asset":  asset,
			"free":   formatFloat(b.free),
			"locked": formatFloat(b.locked),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"makerCommission":  10,
		"takerCommission":  10,
		"buyerCommission":  0,
		"sellerCommission": 0,
		"canTrade":         true,
		"canWithdraw":      true,
		"canDeposit":       true,
		"updateTime":       time.Now().UnixMilli(),
		"accountType":      "SPOT",
		"balances":         balances,
		"permissions":      []string{"SPOT"},
	})
}

func bookJSON(symbol string, book Book) map[string]any {
	return map[string]any{
		"symbol":   symbol,
		"bidPrice": formatFloat(book.Bid),
		"bidQty":   formatFloat(book.BidQty),
		"askPrice": formatFloat(book.Ask),
		"askQty":   formatFloat(book.AskQty),
	}
}

// handleBookTicker serves one ticker object when a symbol is given and the
// full list otherwise.
func (s *Server) handleBookTicker(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	s.mu.Lock()
	defer s.mu.Unlock()

	if symbol != "" {
		book, ok := s.books[symbol]
		if !ok {
			writeError(w, http.StatusBadRequest, CodeInvalidSymbol, "Invalid symbol.")

			return
		}

		writeJSON(w, http.StatusOK, bookJSON(symbol, book))

		return
	}

	symbols := make([]string, 0, len(s.books))
	for sym := range s.books {
		symbols = append(symbols, sym)
	}

	sort.Strings(symbols)

	tickers := make([]map[string]any, 0, len(symbols))
	for _, sym := range symbols {
		tickers = append(tickers, bookJSON(sym, s.books[sym]))
	}

	writeJSON(w, http.StatusOK, tickers)
}

// handleKlines serves the stored candles within startTime and endTime as
// Binance kline rows.
func (s *Server) handleKlines(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	start, err := parseInt(query, "startTime")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Illegal characters found in parameter 'startTime'.")

		return
	}

	end, err := parseInt(query, "endTime")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Illegal characters found in parameter 'endTime'.")

		return
	}

	limit, err := parseInt(query, "limit")
	if err != nil || limit <= 0 {
		limit = 500
	}

	limit = min(limit, 1000)

	s.mu.Lock()
	bars := s.klines[klineKey(query.Get("symbol"), query.Get("interval"))]
	s.mu.Unlock()

	rows := make([][]any, 0)

	for _, bar := range bars {
		openTime := bar.Timestamp.UnixMilli()
		if start > 0 && openTime < start {
			continue
		}

		if end > 0 && openTime > end {
			break
		}

		closeTime := bar.Timestamp.Add(bar.Timeframe.Duration()).UnixMilli() - 1
		rows = append(rows, []any{
			openTime,
			formatFloat(bar.Open),
			formatFloat(bar.High),
			formatFloat(bar.Low),
			formatFloat(bar.Close),
			formatFloat(bar.Volume),
			closeTime,
			formatFloat(bar.Volume * bar.Close),
			100,
			formatFloat(bar.Volume / 2),
			formatFloat(bar.Volume * bar.Close / 2),
			"0",
		})

		if int64(len(rows)) == limit {
			break
		}
	}

	writeJSON(w, http.StatusOK, rows)
}

func orderJSON(o *order) map[string]any {
	return map[string]any{
		"symbol":              o.symbol,
		"orderId":             o.id,
		"orderListId":         -1,
		"clientOrderId":       o.clientOrderID,
		"price":               formatFloat(o.price),
		"origQty":             formatFloat(o.quantity),
		"executedQty":         formatFloat(o.executedQty),
		"cummulativeQuoteQty": formatFloat(o.quoteQty),
		"status":              o.status,
		"timeInForce":         o.timeInForce,
		"type":                o.orderType,
		"side":                o.side,
		"stopPrice":           formatFloat(o.stopPrice),
		"icebergQty":          formatFloat(0),
		"time":                o.createdAt.UnixMilli(),
		"updateTime":          o.updatedAt.UnixMilli(),
		"isWorking":           o.isOpen(),
		"origQuoteOrderQty":   formatFloat(0),
	}
}

func tradeJSON(t *trade) map[string]any {
	return map[string]any{
		"id":              t.id,
		"symbol":          t.symbol,
		"orderId":         t.orderID,
		"orderListId":     -1,
		"price":           formatFloat(t.price),
		"qty":             formatFloat(t.quantity),
		"quoteQty":        formatFloat(t.price * t.quantity),
		"commission":      formatFloat(t.commission),
		"commissionAsset": t.asset,
		"time":            t.at.UnixMilli(),
		"isBuyer":         t.buyer,
		"isMaker":         false,
		"isBestMatch":     true,
	}
}

// canAfford checks the free balance an order needs at the given price.
// The caller holds s.mu.
func (s *Server) canAfford(side, symbol string, price, quantity float64) bool {
	base, quote := splitSymbol(symbol)
	if side == "BUY" {
		return s.balance(quote).free >= price*quantity*(1+s.cfg.CommissionRate)
	}

	return s.balance(base).free >= quantity
}

// handleCreateOrder fills market orders and marketable limit orders against
// the book. Other orders rest with their funds locked until Fill or cancel.
func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	values, err := params(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Malformed request.")

		return
	}

	symbol := values.Get("symbol")
	side := values.Get("side")
	orderType := values.Get("type")

	quantity, err := parseFloat(values, "quantity")
	if err != nil || quantity <= 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Mandatory parameter 'quantity' was not sent, was empty/null, or malformed.")

		return
	}

	price, err := parseFloat(values, "price")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Parameter 'price' malformed.")

		return
	}

	stopPrice, err := parseFloat(values, "stopPrice")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Parameter 'stopPrice' malformed.")

		return
	}

	if side != "BUY" && side != "SELL" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid side.")

		return
	}

	switch orderType {
	case "MARKET":
	case "LIMIT", "STOP_LOSS_LIMIT":
		if price <= 0 || values.Get("timeInForce") == "" {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "Mandatory parameter 'price' was not sent, was empty/null, or malformed.")

			return
		}
	default:
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid orderType.")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[symbol]
	if !ok {
		writeError(w, http.StatusBadRequest, CodeInvalidSymbol, "Invalid symbol.")

		return
	}

	now := time.Now()
	o := &order{
		clientOrderID: values.Get("newClientOrderId"),
		symbol:        symbol,
		side:          side,
		orderType:     orderType,
		timeInForce:   values.Get("timeInForce"),
		quantity:      quantity,
		price:         price,
		stopPrice:     stopPrice,
		status:        "NEW",
		createdAt:     now,
		updatedAt:     now,
	}

	if o.timeInForce == "" {
		o.timeInForce = "GTC"
	}

	fillPrice := 0.0

	switch {
	case orderType == "MARKET" && side == "BUY":
		fillPrice = book.Ask
	case orderType == "MARKET":
		fillPrice = book.Bid
	case orderType == "LIMIT" && side == "BUY" && book.Ask > 0 && price >= book.Ask:
		fillPrice = book.Ask
	case orderType == "LIMIT" && side == "SELL" && book.Bid > 0 && price <= book.Bid:
		fillPrice = book.Bid
	}

	affordAt := fillPrice
	if fillPrice == 0 {
		affordAt = price
	}

	if !s.canAfford(side, symbol, affordAt, quantity) {
		writeError(w, http.StatusBadRequest, CodeOrderRejected, "Account has insufficient balance for requested action.")

		return
	}

	s.orderSeq++
	o.id = s.orderSeq
	s.orders[o.id] = o

	firstTrade := len(s.trades)

	if fillPrice > 0 {
		s.execute(o, fillPrice, quantity)
	} else {
		base, quote := splitSymbol(symbol)
		if side == "BUY" {
			s.balance(quote).free -= price * quantity
			s.balance(quote).locked += price * quantity
		} else {
			s.balance(base).free -= quantity
			s.balance(base).locked += quantity
		}
	}

	fills := make([]map[string]any, 0)
	for _, t := range s.trades[firstTrade:] {
		fills = append(fills, map[string]any{
			"price":           formatFloat(t.price),
			"qty":             formatFloat(t.quantity),
			"commission":      formatFloat(t.commission),
			"commissionAsset": t.asset,
			"tradeId":         t.id,
		})
	}

	resp := orderJSON(o)
	resp["transactTime"] = now.UnixMilli()
	resp["fills"] = fills
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	values, err := params(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Malformed request.")

		return
	}

	orderID, err := parseInt(values, "orderId")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Parameter 'orderId' malformed.")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok || o.symbol != values.Get("symbol") || !o.isOpen() {
		writeError(w, http.StatusBadRequest, CodeCancelRejected, "Unknown order sent.")

		return
	}

	remaining := o.quantity - o.executedQty
	base, quote := splitSymbol(o.symbol)

	if o.side == "BUY" {
		s.balance(quote).locked -= remaining * o.price
		s.balance(quote).free += remaining * o.price
	} else {
		s.balance(base).locked -= remaining
		s.balance(base).free += remaining
	}

	o.status = "CANCELED"
	o.updatedAt = time.Now()

	resp := orderJSON(o)
	resp["origClientOrderId"] = o.clientOrderID
	resp["transactTime"] = o.updatedAt.UnixMilli()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	orderID, err := parseInt(query, "orderId")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Parameter 'orderId' malformed.")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok || o.symbol != query.Get("symbol") {
		writeError(w, http.StatusBadRequest, CodeNoSuchOrder, "Order does not exist.")

		return
	}

	writeJSON(w, http.StatusOK, orderJSON(o))
}

// sortedOrders returns the orders matching keep by ascending id. The caller
// holds s.mu.
func (s *Server) sortedOrders(keep func(*order) bool) []*order {
	result := make([]*order, 0, len(s.orders))
	for _, o := range s.orders {
		if keep(o) {
			result = append(result, o)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].id < result[j].id })

	return result
}

func (s *Server) handleOpenOrders(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	s.mu.Lock()
	defer s.mu.Unlock()

	open := s.sortedOrders(func(o *order) bool {
		return o.isOpen() && (symbol == "" || o.symbol == symbol)
	})

	result := make([]map[string]any, 0, len(open))
	for _, o := range open {
		result = append(result, orderJSON(o))
	}

	writeJSON(w, http.StatusOK, result)
}

// handleAllOrders serves the most recent orders of one symbol.
func (s *Server) handleAllOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	symbol := query.Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Mandatory parameter 'symbol' was not sent, was empty/null, or malformed.")

		return
	}

	limit, err := parseInt(query, "limit")
	if err != nil || limit <= 0 {
		limit = 500
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.sortedOrders(func(o *order) bool { return o.symbol == symbol })
	if int64(len(history)) > limit {
		history = history[int64(len(history))-limit:]
	}

	result := make([]map[string]any, 0, len(history))
	for _, o := range history {
		result = append(result, orderJSON(o))
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMyTrades(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	symbol := query.Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Mandatory parameter 'symbol' was not sent, was empty/null, or malformed.")

		return
	}

	start, _ := parseInt(query, "startTime")
	end, _ := parseInt(query, "endTime")

	limit, err := parseInt(query, "limit")
	if err != nil || limit <= 0 {
		limit = 500
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]map[string]any, 0)

	for _, t := range s.trades {
		at := t.at.UnixMilli()
		if t.symbol != symbol || (start > 0 && at < start) || (end > 0 && at > end) {
			continue
		}

		result = append(result, tradeJSON(t))
		if int64(len(result)) == limit {
			break
		}
	}

	writeJSON(w, http.StatusOK, result)
}
