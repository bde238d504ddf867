package fakegateway

import (
	"strconv"
	"time"

	"github.com/rxtech-lab/argo-gateway/internal/wire"
)

// Quote is the snapshot served for one symbol.
type Quote struct {
	Bid  float64
	Ask  float64
	Last float64
}

type bookOrder struct {
	native    wire.NativeOrder
	status    string
	filled    float64
	avgPrice  float64
	cancelled bool
}

type book struct {
	quotes     map[string]Quote
	summary    map[string]string
	positions  []wire.PositionMulti
	portfolio  []wire.PortfolioValue
	bars       map[string][]wire.HistoricalBar
	executions []wire.ExecutionData
	orders     map[int64]*bookOrder
	rejects    map[string]string
}

func newBook() book {
	return book{
		quotes:  make(map[string]Quote),
		summary: make(map[string]string),
		bars:    make(map[string][]wire.HistoricalBar),
		orders:  make(map[int64]*bookOrder),
		rejects: make(map[string]string),
	}
}

func (g *Gateway) SetQuote(symbol string, quote Quote) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.book.quotes[symbol] = quote
}

// SetAccountValue sets one account summary tag.
func (g *Gateway) SetAccountValue(tag, value string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.book.summary[tag] = value
}

// AddPosition adds a position for the first account, with a portfolio row
// when marketPrice is positive.
func (g *Gateway) AddPosition(symbol string, quantity, avgCost, marketPrice float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	contract := wire.ContractFor(symbol, "")
	account := g.accounts[0]

	g.book.positions = append(g.book.positions, wire.PositionMulti{
		Account:  account,
		Contract: contract,
		Position: quantity,
		AvgCost:  avgCost,
	})

	if marketPrice > 0 {
		g.book.portfolio = append(g.book.portfolio, wire.PortfolioValue{
			Contract:    contract,
			Position:    quantity,
			MarketPrice: marketPrice,
			MarketValue: quantity * marketPrice,
			AverageCost: avgCost,
			Account:     account,
		})
	}
}

func (g *Gateway) SetBars(symbol string, bars []wire.HistoricalBar) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.book.bars[symbol] = bars
}

func (g *Gateway) AddExecution(exec wire.ExecutionData) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.book.executions = append(g.book.executions, exec)
}

// RejectSymbol makes orders for the symbol fail with error 201.
func (g *Gateway) RejectSymbol(symbol, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.book.rejects[symbol] = reason
}

// Fill reports a fill of quantity at price for a placed order to every
// session.
func (g *Gateway) Fill(orderID int64, quantity, price float64) error {
	g.mu.Lock()

	order, ok := g.book.orders[orderID]
	if !ok {
		g.mu.Unlock()

		return nil
	}

	cost := order.avgPrice*order.filled + price*quantity
	order.filled += quantity
	order.avgPrice = cost / order.filled

	if order.filled >= order.native.TotalQuantity {
		order.status = "Filled"
	} else {
		order.status = "Submitted"
	}

	status := order.statusMessage()
	g.mu.Unlock()

	return g.Broadcast(status)
}

func (o *bookOrder) statusMessage() *wire.OrderStatus {
	return &wire.OrderStatus{
		OrderID:       o.native.OrderID,
		Status:        o.status,
		Filled:        o.filled,
		Remaining:     o.native.TotalQuantity - o.filled,
		AvgFillPrice:  o.avgPrice,
		LastFillPrice: o.avgPrice,
	}
}

func (o *bookOrder) open() bool {
	return o.status != "Filled" && o.status != "Cancelled"
}

// respond is the built-in responder for each request type.
func (g *Gateway) respond(c *Conn, msg wire.Message) {
	g.mu.Lock()
	replies := g.replyLocked(msg)
	g.mu.Unlock()

	if len(replies) > 0 {
		_ = c.Send(replies...)
	}
}

func (g *Gateway) replyLocked(msg wire.Message) []wire.Message {
	switch m := msg.(type) {
	case *wire.ReqMktData:
		if !m.Snapshot {
			return nil
		}

		replies := []wire.Message{}
		if quote, ok := g.book.quotes[m.Contract.Symbol]; ok {
			replies = append(replies,
				&wire.TickPrice{ReqID: m.ReqID, TickType: wire.TickBid, Price: quote.Bid},
				&wire.TickPrice{ReqID: m.ReqID, TickType: wire.TickAsk, Price: quote.Ask},
				&wire.TickPrice{ReqID: m.ReqID, TickType: wire.TickLast, Price: quote.Last},
			)
		}

		return append(replies, &wire.TickSnapshotEnd{ReqID: m.ReqID})
	case *wire.PlaceOrder:
		return g.placeLocked(m.Order)
	case *wire.CancelOrder:
		order, ok := g.book.orders[m.OrderID]
		if !ok || !order.open() {
			return []wire.Message{&wire.ErrMsg{ReqID: m.OrderID, ErrorCode: 10147, Message: "OrderId that needs to be cancelled is not found."}}
		}

		order.status = "Cancelled"

		return []wire.Message{order.statusMessage()}
	case *wire.ReqAllOpenOrders:
		replies := []wire.Message{}
		for _, order := range g.sortedOrdersLocked() {
			if order.open() {
				replies = append(replies, &wire.OpenOrder{Order: order.native, Status: order.status})
			}
		}

		return append(replies, &wire.OpenOrderEnd{})
	case *wire.ReqAccountSummary:
		replies := []wire.Message{}
		for _, tag := range sortedKeys(g.book.summary) {
			replies = append(replies, &wire.AccountSummary{
				ReqID:    m.ReqID,
				Account:  g.accounts[0],
				Tag:      tag,
				Value:    g.book.summary[tag],
				Currency: "USD",
			})
		}

		return append(replies, &wire.AccountSummaryEnd{ReqID: m.ReqID})
	case *wire.ReqPositionsMulti:
		replies := []wire.Message{}
		for _, position := range g.book.positions {
			row := position
			row.ReqID = m.ReqID
			replies = append(replies, &row)
		}

		return append(replies, &wire.PositionMultiEnd{ReqID: m.ReqID})
	case *wire.ReqAcctData:
		if !m.Subscribe {
			return nil
		}

		replies := []wire.Message{}
		for _, tag := range sortedKeys(g.book.summary) {
			replies = append(replies, &wire.AcctValue{Key: tag, Value: g.book.summary[tag], Currency: "USD", Account: g.accounts[0]})
		}

		for i := range g.book.portfolio {
			row := g.book.portfolio[i]
			replies = append(replies, &row)
		}

		return append(replies, &wire.AcctDownloadEnd{Account: g.accounts[0]})
	case *wire.ReqHistoricalData:
		return []wire.Message{&wire.HistoricalData{
			ReqID: m.ReqID,
			Bars:  append([]wire.HistoricalBar(nil), g.book.bars[m.Contract.Symbol]...),
		}}
	case *wire.ReqExecutions:
		replies := []wire.Message{}
		for _, exec := range g.book.executions {
			if m.Filter.Symbol != "" && exec.Contract.Symbol != m.Filter.Symbol {
				continue
			}

			row := exec
			row.ReqID = m.ReqID
			replies = append(replies, &row)
		}

		return append(replies, &wire.ExecutionDataEnd{ReqID: m.ReqID})
	case *wire.ReqCurrentTime:
		return []wire.Message{&wire.CurrentTime{Time: time.Now().Unix()}}
	default:
		return nil
	}
}

func (g *Gateway) placeLocked(native wire.NativeOrder) []wire.Message {
	if reason, ok := g.book.rejects[native.Contract.Symbol]; ok {
		return []wire.Message{&wire.ErrMsg{ReqID: native.OrderID, ErrorCode: 201, Message: "Order rejected - reason:" + reason}}
	}

	if native.OrderID >= g.nextOrderID {
		g.nextOrderID = native.OrderID + 1
	}

	order, ok := g.book.orders[native.OrderID]
	if ok {
		order.native = native
	} else {
		order = &bookOrder{native: native, status: "Submitted"}
		g.book.orders[native.OrderID] = order
	}

	return []wire.Message{
		&wire.OpenOrder{Order: order.native, Status: order.status},
		order.statusMessage(),
	}
}

func (g *Gateway) sortedOrdersLocked() []*bookOrder {
	ids := make([]int64, 0, len(g.book.orders))
	for id := range g.book.orders {
		ids = append(ids, id)
	}

	sortInt64s(ids)

	result := make([]*bookOrder, 0, len(ids))
	for _, id := range ids {
		result = append(result, g.book.orders[id])
	}

	return result
}

// HistoricalBar builds an intraday bar dated by epoch seconds.
func HistoricalBar(at time.Time, open, high, low, closePrice, volume float64) wire.HistoricalBar {
	return wire.HistoricalBar{
		Date:     strconv.FormatInt(at.Unix(), 10),
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closePrice,
		Volume:   volume,
		BarCount: 1,
	}
}
