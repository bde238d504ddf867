// Package mockserver serves the part of the Binance spot REST API and market
// streams the gateway's Binance adapter talks to, backed by an in-memory book.
package mockserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/argo-gateway/internal/types"
)

// Binance API error codes returned by the server.
const (
	CodeUnauthorized   = -2015
	CodeInvalidSymbol  = -1121
	CodeBadRequest     = -1102
	CodeOrderRejected  = -2010
	CodeCancelRejected = -2011
	CodeNoSuchOrder    = -2013
)

var quoteAssets = []string{"USDT", "BUSD", "USDC"}

// Config seeds the account.
type Config struct {
	// Balances are the free balances per asset.
	Balances map[string]float64
	// APIKey, when set, is required on every REST request.
	APIKey string
	// CommissionRate is charged on the quote amount of each fill.
	CommissionRate float64
}

// Book is the top of book served for a symbol.
type Book struct {
	Bid    float64
	BidQty float64
	Ask    float64
	AskQty float64
}

type balance struct {
	free   float64
	locked float64
}

type order struct {
	id            int64
	clientOrderID string
	symbol        string
	side          string
	orderType     string
	timeInForce   string
	quantity      float64
	price         float64
	stopPrice     float64
	status        string
	executedQty   float64
	quoteQty      float64
	createdAt     time.Time
	updatedAt     time.Time
}

func (o *order) isOpen() bool {
	return o.status == "NEW" || o.status == "PARTIALLY_FILLED"
}

type trade struct {
	id         int64
	orderID    int64
	symbol     string
	price      float64
	quantity   float64
	commission float64
	asset      string
	buyer      bool
	at         time.Time
}

type subscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *subscriber) send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn.WriteJSON(v)
}

// Server is a mock Binance endpoint listening on loopback.
type Server struct {
	cfg        Config
	listener   net.Listener
	httpServer *http.Server
	upgrader   websocket.Upgrader

	mu       sync.Mutex
	balances map[string]*balance
	books    map[string]Book
	klines   map[string][]types.Bar
	orders   map[int64]*order
	trades   []*trade
	orderSeq int64
	tradeSeq int64

	streamMu sync.Mutex
	streams  map[string]map[*subscriber]struct{}
}

// Start listens on a free loopback port and serves until Close.
func Start(cfg Config) (*Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		listener: listener,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		balances: make(map[string]*balance),
		books:    make(map[string]Book),
		klines:   make(map[string][]types.Bar),
		orders:   make(map[int64]*order),
		streams:  make(map[string]map[*subscriber]struct{}),
	}

	for asset, free := range cfg.Balances {
		s.balances[asset] = &balance{free: free}
	}

	router := mux.NewRouter()

	api := router.PathPrefix("/api/v3").Subrouter()
	api.Use(s.authenticate)
	api.HandleFunc("/account", s.handleAccount).Methods(http.MethodGet)
	api.HandleFunc("/ticker/bookTicker", s.handleBookTicker).Methods(http.MethodGet)
	api.HandleFunc("/klines", s.handleKlines).Methods(http.MethodGet)
	api.HandleFunc("/order", s.handleCreateOrder).Methods(http.MethodPost)
	api.HandleFunc("/order", s.handleCancelOrder).Methods(http.MethodDelete)
	api.HandleFunc("/order", s.handleGetOrder).Methods(http.MethodGet)
	api.HandleFunc("/openOrders", s.handleOpenOrders).Methods(http.MethodGet)
	api.HandleFunc("/allOrders", s.handleAllOrders).Methods(http.MethodGet)
	api.HandleFunc("/myTrades", s.handleMyTrades).Methods(http.MethodGet)

	router.HandleFunc("/ws/{stream}", s.handleStream)

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		_ = s.httpServer.Serve(listener)
	}()

	return s, nil
}

// BaseURL is the REST endpoint.
func (s *Server) BaseURL() string {
	return "http://" + s.listener.Addr().String()
}

// StreamURL is the websocket base the market streams are served under.
func (s *Server) StreamURL() string {
	return "ws://" + s.listener.Addr().String() + "/ws"
}

// Close drops every stream and stops the server.
func (s *Server) Close() error {
	s.CloseStreams()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

func (s *Server) SetBook(symbol string, book Book) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.books[symbol] = book
}

// SetKlines replaces the candles served for the bars' symbol and timeframe.
func (s *Server) SetKlines(bars []types.Bar) {
	if len(bars) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.klines[klineKey(bars[0].Symbol, string(bars[0].Timeframe))] = bars
}

// Balance returns the free and locked amount of an asset.
func (s *Server) Balance(asset string) (free, locked float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.balances[asset]; ok {
		return b.free, b.locked
	}

	return 0, 0
}

// OrderStatus returns the native status of an order, or "" if unknown.
func (s *Server) OrderStatus(orderID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o, ok := s.orders[orderID]; ok {
		return o.status
	}

	return ""
}

// Fill executes up to quantity of a resting order at its limit price.
func (s *Server) Fill(orderID int64, quantity float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok || !o.isOpen() {
		return fmt.Errorf("order %d is not open", orderID)
	}

	quantity = min(quantity, o.quantity-o.executedQty)
	base, quote := splitSymbol(o.symbol)

	// release what the order locked for this quantity before settling
	if o.side == "BUY" {
		s.balance(quote).locked -= quantity * o.price
		s.balance(quote).free += quantity * o.price
	} else {
		s.balance(base).locked -= quantity
		s.balance(base).free += quantity
	}

	s.execute(o, o.price, quantity)

	return nil
}

func (s *Server) balance(asset string) *balance {
	b, ok := s.balances[asset]
	if !ok {
		b = &balance{}
		s.balances[asset] = b
	}

	return b
}

// execute settles a fill against the free balances and records the trade.
// The caller holds s.mu and has checked the balances.
func (s *Server) execute(o *order, price, quantity float64) {
	base, quote := splitSymbol(o.symbol)
	amount := price * quantity
	commission := amount * s.cfg.CommissionRate

	if o.side == "BUY" {
		s.balance(quote).free -= amount + commission
		s.balance(base).free += quantity
	} else {
		s.balance(base).free -= quantity
		s.balance(quote).free += amount - commission
	}

	now := time.Now()
	s.tradeSeq++
	s.trades = append(s.trades, &trade{
		id:         s.tradeSeq,
		orderID:    o.id,
		symbol:     o.symbol,
		price:      price,
		quantity:   quantity,
		commission: commission,
		asset:      quote,
		buyer:      o.side == "BUY",
		at:         now,
	})

	o.executedQty += quantity
	o.quoteQty += amount
	o.updatedAt = now

	o.status = "PARTIALLY_FILLED"
	if o.executedQty >= o.quantity {
		o.status = "FILLED"
	}
}

// splitSymbol separates a pair into its base and quote asset.
func splitSymbol(symbol string) (base, quote string) {
	for _, q := range quoteAssets {
		if strings.HasSuffix(symbol, q) && len(symbol) > len(q) {
			return strings.TrimSuffix(symbol, q), q
		}
	}

	return symbol, ""
}

func klineKey(symbol, interval string) string {
	return symbol + "@" + interval
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey != "" && r.Header.Get("X-MBX-APIKEY") != s.cfg.APIKey {
			writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid API-key, IP, or permissions for action.")

			return
		}

		next.ServeHTTP(w, r)
	})
}

// params merges the query string with a form body. The SDK sends some
// DELETE parameters in the body, which net/http does not parse.
func params(r *http.Request) (url.Values, error) {
	values := r.URL.Query()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	if len(body) == 0 {
		return values, nil
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}

	for key, v := range form {
		values[key] = append(values[key], v...)
	}

	return values, nil
}

type apiError struct {
	Code int64  `json:"code"`
	Msg  string `json:"msg"`
}

func writeError(w http.ResponseWriter, status int, code int64, msg string) {
	writeJSON(w, status, apiError{Code: code, Msg: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 8, 64)
}

func parseFloat(values url.Values, key string) (float64, error) {
	raw := values.Get(key)
	if raw == "" {
		return 0, nil
	}

	return strconv.ParseFloat(raw, 64)
}

func parseInt(values url.Values, key string) (int64, error) {
	raw := values.Get(key)
	if raw == "" {
		return 0, nil
	}

	return strconv.ParseInt(raw, 10, 64)
}
