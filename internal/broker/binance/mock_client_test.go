package binance

import (
	"context"
	"sync"

	"github.com/adshao/go-binance/v2"
)

// Mock implementations for testing

// mockClient implements Client interface for testing
type mockClient struct {
	createOrderService     *mockCreateOrderService
	getAccountService      *mockGetAccountService
	listOpenOrdersService  *mockListOpenOrdersService
	listOrdersService      *mockListOrdersService
	getOrderService        *mockGetOrderService
	cancelOrderService     *mockCancelOrderService
	listTradesService      *mockListTradesService
	listBookTickersService *mockListBookTickersService
	klinesService          *mockKlinesService
}

func newMockClient() *mockClient {
	return &mockClient{
		createOrderService:     &mockCreateOrderService{},
		getAccountService:      &mockGetAccountService{account: &binance.Account{CanTrade: true, AccountType: "SPOT"}},
		listOpenOrdersService:  &mockListOpenOrdersService{},
		listOrdersService:      &mockListOrdersService{},
		getOrderService:        &mockGetOrderService{},
		cancelOrderService:     &mockCancelOrderService{},
		listTradesService:      &mockListTradesService{},
		listBookTickersService: &mockListBookTickersService{},
		klinesService:          &mockKlinesService{},
	}
}

func (m *mockClient) NewCreateOrderService() CreateOrderService {
	return m.createOrderService
}

func (m *mockClient) NewGetAccountService() GetAccountService {
	return m.getAccountService
}

func (m *mockClient) NewListOpenOrdersService() ListOpenOrdersService {
	return m.listOpenOrdersService
}

func (m *mockClient) NewListOrdersService() ListOrdersService {
	return m.listOrdersService
}

func (m *mockClient) NewGetOrderService() GetOrderService {
	return m.getOrderService
}

func (m *mockClient) NewCancelOrderService() CancelOrderService {
	return m.cancelOrderService
}

func (m *mockClient) NewListTradesService() ListTradesService {
	return m.listTradesService
}

func (m *mockClient) NewListBookTickersService() ListBookTickersService {
	m.listBookTickersService.symbol = ""

	return m.listBookTickersService
}

func (m *mockClient) NewKlinesService() KlinesService {
	return m.klinesService
}

// mockCreateOrderService implements CreateOrderService. Queued responses are
// returned first, then response.
type mockCreateOrderService struct {
	response  *binance.CreateOrderResponse
	queue     []*binance.CreateOrderResponse
	err       error
	calls     int
	symbol    string
	side      binance.SideType
	orderTyp  binance.OrderType
	quantity  string
	price     string
	stopPrice string
	tif       binance.TimeInForceType
	clientID  string
}

func (m *mockCreateOrderService) Symbol(symbol string) CreateOrderService {
	m.symbol = symbol
	return m
}

func (m *mockCreateOrderService) Side(side binance.SideType) CreateOrderService {
	m.side = side
	return m
}

func (m *mockCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	m.orderTyp = orderType
	return m
}

func (m *mockCreateOrderService) Quantity(quantity string) CreateOrderService {
	m.quantity = quantity
	return m
}

func (m *mockCreateOrderService) Price(price string) CreateOrderService {
	m.price = price
	return m
}

func (m *mockCreateOrderService) StopPrice(stopPrice string) CreateOrderService {
	m.stopPrice = stopPrice
	return m
}

func (m *mockCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	m.tif = tif
	return m
}

func (m *mockCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	m.clientID = id
	return m
}

func (m *mockCreateOrderService) Do(_ context.Context) (*binance.CreateOrderResponse, error) {
	m.calls++

	if m.err != nil {
		return nil, m.err
	}

	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]

		return next, nil
	}

	return m.response, nil
}

// mockGetAccountService implements GetAccountService
type mockGetAccountService struct {
	account *binance.Account
	err     error
}

func (m *mockGetAccountService) Do(_ context.Context) (*binance.Account, error) {
	return m.account, m.err
}

// mockListOpenOrdersService implements ListOpenOrdersService
type mockListOpenOrdersService struct {
	orders []*binance.Order
	err    error
	calls  int
}

func (m *mockListOpenOrdersService) Symbol(_ string) ListOpenOrdersService {
	return m
}

func (m *mockListOpenOrdersService) Do(_ context.Context) ([]*binance.Order, error) {
	m.calls++
	return m.orders, m.err
}

// mockListOrdersService implements ListOrdersService
type mockListOrdersService struct {
	orders []*binance.Order
	err    error
	symbol string
	limit  int
}

func (m *mockListOrdersService) Symbol(symbol string) ListOrdersService {
	m.symbol = symbol
	return m
}

func (m *mockListOrdersService) Limit(limit int) ListOrdersService {
	m.limit = limit
	return m
}

func (m *mockListOrdersService) Do(_ context.Context) ([]*binance.Order, error) {
	return m.orders, m.err
}

// mockGetOrderService implements GetOrderService
type mockGetOrderService struct {
	order   *binance.Order
	err     error
	calls   int
	symbol  string
	orderID int64
}

func (m *mockGetOrderService) Symbol(symbol string) GetOrderService {
	m.symbol = symbol
	return m
}

func (m *mockGetOrderService) OrderID(orderID int64) GetOrderService {
	m.orderID = orderID
	return m
}

func (m *mockGetOrderService) Do(_ context.Context) (*binance.Order, error) {
	m.calls++
	return m.order, m.err
}

// mockCancelOrderService implements CancelOrderService
type mockCancelOrderService struct {
	response *binance.CancelOrderResponse
	err      error
	symbol   string
	orderID  int64
}

func (m *mockCancelOrderService) Symbol(symbol string) CancelOrderService {
	m.symbol = symbol
	return m
}

func (m *mockCancelOrderService) OrderID(orderID int64) CancelOrderService {
	m.orderID = orderID
	return m
}

func (m *mockCancelOrderService) Do(_ context.Context) (*binance.CancelOrderResponse, error) {
	return m.response, m.err
}

// mockListTradesService implements ListTradesService
type mockListTradesService struct {
	trades    []*binance.TradeV3
	err       error
	symbol    string
	limit     int
	startTime int64
	endTime   int64
}

func (m *mockListTradesService) Symbol(symbol string) ListTradesService {
	m.symbol = symbol
	return m
}

func (m *mockListTradesService) Limit(limit int) ListTradesService {
	m.limit = limit
	return m
}

func (m *mockListTradesService) StartTime(startTime int64) ListTradesService {
	m.startTime = startTime
	return m
}

func (m *mockListTradesService) EndTime(endTime int64) ListTradesService {
	m.endTime = endTime
	return m
}

func (m *mockListTradesService) Do(_ context.Context) ([]*binance.TradeV3, error) {
	return m.trades, m.err
}

// mockListBookTickersService implements ListBookTickersService. It filters by
// symbol the way the endpoint does.
type mockListBookTickersService struct {
	tickers []*binance.BookTicker
	err     error
	symbol  string
}

func (m *mockListBookTickersService) Symbol(symbol string) ListBookTickersService {
	m.symbol = symbol
	return m
}

func (m *mockListBookTickersService) Do(_ context.Context) ([]*binance.BookTicker, error) {
	if m.err != nil {
		return nil, m.err
	}

	if m.symbol == "" {
		return m.tickers, nil
	}

	result := make([]*binance.BookTicker, 0, 1)
	for _, t := range m.tickers {
		if t.Symbol == m.symbol {
			result = append(result, t)
		}
	}

	return result, nil
}

// mockKlinesService implements KlinesService. Each call returns the next page.
type mockKlinesService struct {
	pages      [][]*binance.Kline
	err        error
	symbol     string
	interval   string
	limit      int
	startTimes []int64
	endTime    int64
}

func (m *mockKlinesService) Symbol(symbol string) KlinesService {
	m.symbol = symbol
	return m
}

func (m *mockKlinesService) Interval(interval string) KlinesService {
	m.interval = interval
	return m
}

func (m *mockKlinesService) Limit(limit int) KlinesService {
	m.limit = limit
	return m
}

func (m *mockKlinesService) StartTime(startTime int64) KlinesService {
	m.startTimes = append(m.startTimes, startTime)
	return m
}

func (m *mockKlinesService) EndTime(endTime int64) KlinesService {
	m.endTime = endTime
	return m
}

func (m *mockKlinesService) Do(_ context.Context) ([]*binance.Kline, error) {
	if m.err != nil {
		return nil, m.err
	}

	if len(m.pages) == 0 {
		return nil, nil
	}

	page := m.pages[0]
	m.pages = m.pages[1:]

	return page, nil
}

// mockStreamer records the handlers of each opened stream.
type mockStreamer struct {
	mu          sync.Mutex
	bookTickers map[string]*mockStream
	klines      map[string]*mockStream
	opened      int
}

type mockStream struct {
	done          chan struct{}
	stop          chan struct{}
	interval      string
	tickerHandler func(*binance.WsBookTickerEvent)
	klineHandler  func(*binance.WsKlineEvent)
	errHandler    func(error)
}

func newMockStreamer() *mockStreamer {
	return &mockStreamer{
		bookTickers: make(map[string]*mockStream),
		klines:      make(map[string]*mockStream),
	}
}

func (m *mockStreamer) newStream() *mockStream {
	s := &mockStream{done: make(chan struct{}), stop: make(chan struct{})}

	// the SDK closes done once stop is closed
	go func() {
		<-s.stop
		close(s.done)
	}()

	return s
}

func (m *mockStreamer) BookTicker(symbol string, handler func(*binance.WsBookTickerEvent), errHandler func(error)) (chan struct{}, chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.newStream()
	s.tickerHandler = handler
	s.errHandler = errHandler
	m.bookTickers[symbol] = s
	m.opened++

	return s.done, s.stop, nil
}

func (m *mockStreamer) Kline(symbol, interval string, handler func(*binance.WsKlineEvent), errHandler func(error)) (chan struct{}, chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.newStream()
	s.interval = interval
	s.klineHandler = handler
	s.errHandler = errHandler
	m.klines[symbol] = s
	m.opened++

	return s.done, s.stop, nil
}

func (m *mockStreamer) bookTicker(symbol string) *mockStream {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.bookTickers[symbol]
}

func (m *mockStreamer) kline(symbol string) *mockStream {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.klines[symbol]
}

func (m *mockStreamer) openedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.opened
}
