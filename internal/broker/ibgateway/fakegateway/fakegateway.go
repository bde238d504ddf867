// Package fakegateway is an in-process socket gateway for tests. It speaks
// the real wire protocol over TCP, records every request it receives and
// answers from a small in-memory book.
package fakegateway

import (
	"context"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/wire"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"go.uber.org/zap"
)

// Handler answers one request. It replaces the built-in responder for the
// request's message code.
type Handler func(c *Conn, msg wire.Message)

type Option func(*Gateway)

func WithFraming(framing wire.Framing) Option {
	return func(g *Gateway) { g.framing = framing }
}

// WithServerVersion sets the version announced in the server hello, even one
// outside the client's range.
func WithServerVersion(version int) Option {
	return func(g *Gateway) { g.serverVersion = version }
}

func WithAccounts(accounts ...string) Option {
	return func(g *Gateway) { g.accounts = accounts }
}

func WithNextOrderID(id int64) Option {
	return func(g *Gateway) { g.nextOrderID = id }
}

func WithLogger(log *logger.Logger) Option {
	return func(g *Gateway) { g.logger = log }
}

// Gateway is a fake gateway listening on a loopback port.
type Gateway struct {
	listener      net.Listener
	framing       wire.Framing
	serverVersion int
	accounts      []string
	logger        *logger.Logger

	mu          sync.Mutex
	conns       map[*Conn]struct{}
	handlers    map[int]Handler
	requests    []wire.Message
	connections int
	refuse      bool
	silent      bool
	changed     chan struct{}
	nextOrderID int64
	book        book

	wg sync.WaitGroup
}

// Start listens on 127.0.0.1 and serves until Close.
func Start(opts ...Option) (*Gateway, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		listener:      listener,
		framing:       wire.FramingLengthPrefixed,
		serverVersion: wire.MaxClientVersion,
		accounts:      []string{"DU000001"},
		logger:        logger.NewNopLogger(),
		conns:         make(map[*Conn]struct{}),
		handlers:      make(map[int]Handler),
		changed:       make(chan struct{}),
		nextOrderID:   1,
		book:          newBook(),
	}

	for _, opt := range opts {
		opt(g)
	}

	g.wg.Add(1)

	go g.acceptLoop()

	return g, nil
}

func (g *Gateway) Host() string {
	return g.listener.Addr().(*net.TCPAddr).IP.String()
}

func (g *Gateway) Port() int {
	return g.listener.Addr().(*net.TCPAddr).Port
}

// Handle installs a handler for one request code.
func (g *Gateway) Handle(code int, h Handler) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.handlers[code] = h
}

// Unhandle restores the built-in responder for a request code.
func (g *Gateway) Unhandle(code int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.handlers, code)
}

// Refuse makes the gateway close new connections right after accepting them.
func (g *Gateway) Refuse(refuse bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.refuse = refuse
}

// Silence stops the built-in responders; requests are only recorded.
func (g *Gateway) Silence(silent bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.silent = silent
}

// Connections returns how many sessions completed the handshake.
func (g *Gateway) Connections() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.connections
}

// Requests returns every request received, in order.
func (g *Gateway) Requests() []wire.Message {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]wire.Message(nil), g.requests...)
}

// RequestsOf returns the received requests with the given code.
func (g *Gateway) RequestsOf(code int) []wire.Message {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.requestsOfLocked(code)
}

func (g *Gateway) requestsOfLocked(code int) []wire.Message {
	var result []wire.Message

	for _, msg := range g.requests {
		if msg.Code() == code {
			result = append(result, msg)
		}
	}

	return result
}

// ClearRequests forgets the recorded requests.
func (g *Gateway) ClearRequests() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.requests = nil
}

// WaitForRequests blocks until at least n requests with the code arrived.
func (g *Gateway) WaitForRequests(ctx context.Context, code, n int) ([]wire.Message, error) {
	for {
		g.mu.Lock()
		found := g.requestsOfLocked(code)
		changed := g.changed
		g.mu.Unlock()

		if len(found) >= n {
			return found, nil
		}

		select {
		case <-ctx.Done():
			return found, ctx.Err()
		case <-changed:
		}
	}
}

// WaitForConnections blocks until n sessions completed the handshake.
func (g *Gateway) WaitForConnections(ctx context.Context, n int) error {
	for {
		g.mu.Lock()
		connections := g.connections
		changed := g.changed
		g.mu.Unlock()

		if connections >= n {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// Broadcast sends the messages to every live session.
func (g *Gateway) Broadcast(msgs ...wire.Message) error {
	for _, c := range g.liveConns() {
		if err := c.Send(msgs...); err != nil {
			return err
		}
	}

	return nil
}

// DropConnections closes every live session as a network failure would.
func (g *Gateway) DropConnections() {
	for _, c := range g.liveConns() {
		_ = c.conn.Close()
	}
}

func (g *Gateway) liveConns() []*Conn {
	g.mu.Lock()
	defer g.mu.Unlock()

	result := make([]*Conn, 0, len(g.conns))
	for c := range g.conns {
		result = append(result, c)
	}

	return result
}

// Close stops listening and closes every session.
func (g *Gateway) Close() error {
	err := g.listener.Close()
	g.DropConnections()
	g.wg.Wait()

	return err
}

func (g *Gateway) notifyLocked() {
	close(g.changed)
	g.changed = make(chan struct{})
}

func (g *Gateway) acceptLoop() {
	defer g.wg.Done()

	for {
		nc, err := g.listener.Accept()
		if err != nil {
			return
		}

		g.mu.Lock()
		refuse := g.refuse
		g.mu.Unlock()

		if refuse {
			_ = nc.Close()

			continue
		}

		g.wg.Add(1)

		go g.serve(nc)
	}
}

func (g *Gateway) serve(nc net.Conn) {
	defer g.wg.Done()
	defer nc.Close()

	c := &Conn{
		gw:     g,
		conn:   nc,
		reader: wire.NewReader(nc, g.framing),
		writer: wire.NewWriter(nc, g.framing),
	}

	if err := c.handshake(); err != nil {
		g.logger.Debug("Handshake failed", zap.Error(err))

		return
	}

	g.mu.Lock()
	g.conns[c] = struct{}{}
	g.connections++
	orderID := g.nextOrderID
	g.notifyLocked()
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.conns, c)
		g.notifyLocked()
		g.mu.Unlock()
	}()

	if err := c.Send(
		&wire.ManagedAccts{AccountsList: strings.Join(g.accounts, ",")},
		&wire.NextValidID{OrderID: orderID},
	); err != nil {
		return
	}

	for {
		msg, err := c.reader.ReadRequest(c.version)
		if err != nil {
			return
		}

		g.mu.Lock()
		g.requests = append(g.requests, msg)
		handler, custom := g.handlers[msg.Code()]
		silent := g.silent
		g.notifyLocked()
		g.mu.Unlock()

		switch {
		case custom:
			handler(c, msg)
		case !silent:
			g.respond(c, msg)
		}
	}
}

// Conn is one client session.
type Conn struct {
	gw      *Gateway
	conn    net.Conn
	reader  *wire.Reader
	version int

	writeMu sync.Mutex
	writer  *wire.Writer
}

func (c *Conn) handshake() error {
	if _, _, err := c.reader.ReadHandshake(); err != nil {
		return err
	}

	c.version = c.gw.serverVersion

	c.writeMu.Lock()
	err := c.writer.WriteFields([]string{strconv.Itoa(c.version), time.Now().UTC().Format("20060102 15:04:05") + " UTC"})
	c.writeMu.Unlock()

	if err != nil {
		return err
	}

	msg, err := c.reader.ReadRequest(c.version)
	if err != nil {
		return err
	}

	if _, ok := msg.(*wire.StartAPI); !ok {
		return errors.Newf(errors.ErrCodeProtocolError, "expected START_API, got message %d", msg.Code())
	}

	return nil
}

// Send writes messages to the client in order.
func (c *Conn) Send(msgs ...wire.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	for _, msg := range msgs {
		if err := c.writer.WriteMessage(msg, c.version); err != nil {
			return err
		}
	}

	return nil
}

// Close drops the session.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Orders returns the orders placed so far, by order id.
func (g *Gateway) Orders() []wire.NativeOrder {
	g.mu.Lock()
	defer g.mu.Unlock()

	result := make([]wire.NativeOrder, 0, len(g.book.orders))
	for _, order := range g.book.orders {
		result = append(result, order.native)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].OrderID < result[j].OrderID })

	return result
}
