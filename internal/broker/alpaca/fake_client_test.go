package alpaca

import (
	"context"
	"sync"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"
)

type fakeTrading struct {
	mu sync.Mutex

	account      *alpaca.Account
	accountErr   error
	positions    []alpaca.Position
	positionErr  error
	placed       []alpaca.PlaceOrderRequest
	placeResult  *alpaca.Order
	placeErr     error
	orders       map[string]*alpaca.Order
	listed       []alpaca.GetOrdersRequest
	cancelled    []string
	cancelErr    error
	replaced     []alpaca.ReplaceOrderRequest
	replaceOrder *alpaca.Order
	closeReqs    []alpaca.ClosePositionRequest
	closeOrder   *alpaca.Order
	closeErr     error
	clock        *alpaca.Clock
	calendar     []alpaca.CalendarDay
	activities   []alpaca.AccountActivity

	updatesCtx context.Context
	handler    func(alpaca.TradeUpdate)
}

func newFakeTrading() *fakeTrading {
	return &fakeTrading{
		account: &alpaca.Account{ID: "acct-1", Currency: "USD"},
		orders:  make(map[string]*alpaca.Order),
		clock:   &alpaca.Clock{},
	}
}

func (f *fakeTrading) GetAccount() (*alpaca.Account, error) {
	return f.account, f.accountErr
}

func (f *fakeTrading) GetPositions() ([]alpaca.Position, error) {
	return f.positions, f.positionErr
}

func (f *fakeTrading) GetPosition(symbol string) (*alpaca.Position, error) {
	for i := range f.positions {
		if f.positions[i].Symbol == symbol {
			return &f.positions[i], nil
		}
	}

	return nil, &alpaca.APIError{StatusCode: 404, Message: "position does not exist"}
}

func (f *fakeTrading) PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error) {
	f.placed = append(f.placed, req)
	if f.placeErr != nil {
		return nil, f.placeErr
	}

	return f.placeResult, nil
}

func (f *fakeTrading) GetOrder(orderID string) (*alpaca.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[orderID]
	if !ok {
		return nil, &alpaca.APIError{StatusCode: 404, Message: "order not found"}
	}

	return o, nil
}

func (f *fakeTrading) GetOrders(req alpaca.GetOrdersRequest) ([]alpaca.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listed = append(f.listed, req)

	var result []alpaca.Order
	for _, o := range f.orders {
		if len(req.Symbols) > 0 && o.Symbol != req.Symbols[0] {
			continue
		}

		result = append(result, *o)
	}

	return result, nil
}

func (f *fakeTrading) CancelOrder(orderID string) error {
	f.cancelled = append(f.cancelled, orderID)

	return f.cancelErr
}

func (f *fakeTrading) ReplaceOrder(_ string, req alpaca.ReplaceOrderRequest) (*alpaca.Order, error) {
	f.replaced = append(f.replaced, req)

	return f.replaceOrder, nil
}

func (f *fakeTrading) ClosePosition(_ string, req alpaca.ClosePositionRequest) (*alpaca.Order, error) {
	f.closeReqs = append(f.closeReqs, req)
	if f.closeErr != nil {
		return nil, f.closeErr
	}

	return f.closeOrder, nil
}

func (f *fakeTrading) GetClock() (*alpaca.Clock, error) {
	return f.clock, nil
}

func (f *fakeTrading) GetCalendar(_ alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error) {
	return f.calendar, nil
}

func (f *fakeTrading) GetAccountActivities(_ alpaca.GetAccountActivitiesRequest) ([]alpaca.AccountActivity, error) {
	return f.activities, nil
}

func (f *fakeTrading) StreamTradeUpdatesInBackground(ctx context.Context, handler func(alpaca.TradeUpdate)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.updatesCtx = ctx
	f.handler = handler
}

func (f *fakeTrading) push(update alpaca.TradeUpdate) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()

	handler(update)
}

type fakeMarketData struct {
	quote    *marketdata.Quote
	bars     []marketdata.Bar
	barsReqs []marketdata.GetBarsRequest
}

func (f *fakeMarketData) GetLatestQuote(_ string, _ marketdata.GetLatestQuoteRequest) (*marketdata.Quote, error) {
	return f.quote, nil
}

func (f *fakeMarketData) GetBars(_ string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	f.barsReqs = append(f.barsReqs, req)

	return f.bars, nil
}

type fakeStream struct {
	mu           sync.Mutex
	connected    bool
	terminated   chan error
	quoteHandler func(stream.Quote)
	barHandler   func(stream.Bar)
	quotes       []string
	bars         []string
	unsubscribed []string
}

func newFakeStream() *fakeStream {
	return &fakeStream{terminated: make(chan error, 1)}
}

func (f *fakeStream) Connect(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connected = true

	return nil
}

func (f *fakeStream) Terminated() <-chan error {
	return f.terminated
}

func (f *fakeStream) SubscribeToQuotes(handler func(stream.Quote), symbols ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.quoteHandler = handler
	f.quotes = append(f.quotes, symbols...)

	return nil
}

func (f *fakeStream) UnsubscribeFromQuotes(symbols ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.unsubscribed = append(f.unsubscribed, symbols...)

	return nil
}

func (f *fakeStream) SubscribeToBars(handler func(stream.Bar), symbols ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.barHandler = handler
	f.bars = append(f.bars, symbols...)

	return nil
}

func (f *fakeStream) UnsubscribeFromBars(symbols ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.unsubscribed = append(f.unsubscribed, symbols...)

	return nil
}

// fakeStreams hands out a new fakeStream per connection.
type fakeStreams struct {
	mu      sync.Mutex
	created []*fakeStream
}

func (f *fakeStreams) factory() Stream {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := newFakeStream()
	f.created = append(f.created, s)

	return s
}

func (f *fakeStreams) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.created)
}

func (f *fakeStreams) last() *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.created[len(f.created)-1]
}
