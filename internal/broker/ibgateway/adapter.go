// Package ibgateway implements the broker interface over the persistent socket
// gateway protocol: handshake, a single read loop per connection, request
// correlation through a pending table, streaming subscriptions that survive
// reconnects, and order state driven by gateway pushes.
package ibgateway

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rxtech-lab/argo-gateway/internal/broker"
	"github.com/rxtech-lab/argo-gateway/internal/events"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/orders"
	"github.com/rxtech-lab/argo-gateway/internal/resilience"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/internal/wire"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"go.uber.org/zap"
)

// ConnState is the lifecycle state of the gateway connection.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateHandshakeSent
	StateReady
	StateReconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshakeSent:
		return "handshake_sent"
	case StateReady:
		return "ready"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// requestIDBase keeps request ids clear of the order ids handed out by the
// gateway, since error messages carry either kind of id.
const requestIDBase = 1 << 24

// Reserved ids for requests whose responses carry no request id.
const (
	openOrdersRequestID  int64 = -2
	currentTimeRequestID int64 = -3
)

// Dialer opens the transport to the gateway.
type Dialer func(ctx context.Context, address string) (net.Conn, error)

type Option func(*Adapter)

// WithDialer replaces the TCP dialer, e.g. with one returning net.Pipe ends.
func WithDialer(dial Dialer) Option {
	return func(a *Adapter) {
		a.dial = dial
	}
}

// session is one established socket. A reconnect creates a new session.
type session struct {
	conn          net.Conn
	writer        *wire.Writer
	reader        *wire.Reader
	serverVersion int
	connTime      string

	// ready is closed when NEXT_VALID_ID arrives.
	ready     chan struct{}
	readyOnce sync.Once
	// live is set once the session served as the Ready connection.
	live atomic.Bool
	// done is closed when the read loop exits.
	done chan struct{}
}

// Adapter is the socket gateway broker.
type Adapter struct {
	id           string
	provider     broker.ProviderType
	cfg          Config
	framing      wire.Framing
	capabilities types.BrokerCapabilities
	bus          *events.Bus
	clock        clockwork.Clock
	logger       *logger.Logger
	dial         Dialer

	tracker    *orders.Tracker
	pending    *PendingTable
	subs       *subscriptionRegistry
	supervisor *resilience.Supervisor

	nextReqID atomic.Int64

	mu    sync.RWMutex
	state ConnState
	// stateChanged is closed and replaced on every state or closing change.
	stateChanged  chan struct{}
	sess          *session
	closing       bool
	account       string
	accounts      []string
	nextOrderID   int64
	natives       map[int64]wire.NativeOrder
	portfolio     map[string]wire.PortfolioValue
	accountValues map[string]string
	assetClasses  map[string]types.AssetClass

	writeMu sync.Mutex

	keyedMu sync.Mutex
	keyed   map[int64]*PendingRequest
}

// NewAdapter creates a socket gateway broker. It does not connect.
func NewAdapter(id string, provider broker.ProviderType, cfg Config, deps broker.Deps, opts ...Option) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Reconnect.Validate(); err != nil {
		return nil, err
	}

	framing, err := wire.ParseFraming(cfg.Framing)
	if err != nil {
		return nil, err
	}

	deps = deps.WithDefaults()
	log := deps.Logger.Named("ibgateway").With(zap.String("broker", id))

	a := &Adapter{
		id:            id,
		provider:      provider,
		cfg:           cfg,
		framing:       framing,
		capabilities:  capabilitiesFor(provider),
		bus:           deps.Bus,
		clock:         deps.Clock,
		logger:        log,
		pending:       NewPendingTable(deps.Clock),
		subs:          newSubscriptionRegistry(),
		account:       cfg.Account,
		natives:       make(map[int64]wire.NativeOrder),
		portfolio:     make(map[string]wire.PortfolioValue),
		accountValues: make(map[string]string),
		assetClasses:  make(map[string]types.AssetClass),
		keyed:         make(map[int64]*PendingRequest),
		stateChanged:  make(chan struct{}),
	}

	a.dial = func(ctx context.Context, address string) (net.Conn, error) {
		var d net.Dialer

		return d.DialContext(ctx, "tcp", address)
	}

	for _, opt := range opts {
		opt(a)
	}

	a.nextReqID.Store(requestIDBase)
	a.tracker = orders.NewTracker(id, orders.VocabularyIB, cfg.Orders, deps.Bus, deps.Clock, log)
	a.supervisor = resilience.NewSupervisor(id, cfg.Reconnect, deps.Clock, a.reconnect, a.onSupervisorState, log)

	return a, nil
}

func capabilitiesFor(provider broker.ProviderType) types.BrokerCapabilities {
	return types.BrokerCapabilities{
		AssetClasses: []types.AssetClass{
			types.AssetClassEquity, types.AssetClassOption, types.AssetClassFuture,
			types.AssetClassForex, types.AssetClassCrypto,
		},
		OrderTypes: []types.OrderType{
			types.OrderTypeMarket, types.OrderTypeLimit, types.OrderTypeStop,
			types.OrderTypeStopLimit, types.OrderTypeTrailingStop,
		},
		TimeInForce: []types.TimeInForce{
			types.TimeInForceDay, types.TimeInForceGTC, types.TimeInForceIOC,
			types.TimeInForceFOK, types.TimeInForceOPG,
		},
		Timeframes: []types.Timeframe{
			types.Timeframe1s, types.Timeframe5s, types.Timeframe1m, types.Timeframe5m,
			types.Timeframe15m, types.Timeframe30m, types.Timeframe1h, types.Timeframe1d,
			types.Timeframe1w,
		},
		Features: types.BrokerFeatures{
			Streaming:     true,
			Margin:        true,
			ExtendedHours: true,
			PaperTrading:  provider.IsPaper(),
			NativeModify:  true,
		},
	}
}

func (a *Adapter) ID() string { return a.id }

func (a *Adapter) Provider() broker.ProviderType { return a.provider }

func (a *Adapter) Capabilities() types.BrokerCapabilities { return a.capabilities.Clone() }

// Tracker exposes the order tracker, e.g. to await a fill.
func (a *Adapter) Tracker() *orders.Tracker { return a.tracker }

func (a *Adapter) State() ConnState {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.state
}

func (a *Adapter) IsReady() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.state == StateReady && !a.closing
}

// Accounts returns the accounts announced by the gateway.
func (a *Adapter) Accounts() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return append([]string(nil), a.accounts...)
}

// ServerVersion returns the version negotiated with the gateway, or zero.
func (a *Adapter) ServerVersion() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.sess == nil {
		return 0
	}

	return a.sess.serverVersion
}

// Connect runs the handshake and returns once the gateway has announced the
// next valid order id.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	switch a.state {
	case StateReady:
		a.mu.Unlock()

		return nil
	case StateDisconnected:
	default:
		state := a.state
		a.mu.Unlock()

		return errors.Newf(errors.ErrCodeNotConnected, "connection is %s", state)
	}

	a.closing = false
	a.mu.Unlock()

	if a.supervisor.State() == resilience.StateOffline {
		a.supervisor.Reset()
	}

	if err := a.open(ctx, StateDisconnected); err != nil {
		return err
	}

	a.supervisor.MarkReady()

	return nil
}

// Disconnect shuts the connection down in two phases: new requests are
// refused and subscriptions cancelled, then outstanding requests get the
// shutdown grace period before being failed and the socket is closed.
func (a *Adapter) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	a.closing = true
	sess := a.sess
	a.notifyStateLocked()
	a.mu.Unlock()

	a.supervisor.Stop()

	if sess != nil {
		a.cancelStreams(sess)
		a.drain(ctx)
	}

	a.subs.clear()

	failed := a.pending.FailAll(errors.New(errors.ErrCodeDisconnected, "adapter disconnected"))
	if failed > 0 {
		a.logger.Warn("Failed outstanding requests on shutdown", zap.Int("count", failed))
	}

	a.mu.Lock()
	a.sess = nil
	a.setStateLocked(StateDisconnected)
	a.mu.Unlock()

	if sess == nil {
		return nil
	}

	_ = sess.conn.Close()
	<-sess.done

	a.logger.Info("Disconnected from gateway")
	a.bus.Publish(events.NewDisconnected(a.id, a.clock.Now(), "disconnect requested", true))

	return nil
}

func (a *Adapter) drain(ctx context.Context) {
	if a.pending.Len() == 0 {
		return
	}

	timer := a.clock.NewTimer(a.cfg.ShutdownGrace)
	defer timer.Stop()

	select {
	case <-a.pending.Idle():
	case <-timer.Chan():
	case <-ctx.Done():
	}
}

func (a *Adapter) cancelStreams(sess *session) {
	for _, sub := range a.subs.snapshot() {
		if err := a.sendOn(sess, cancelMessage(sub)); err != nil {
			a.logger.Debug("Failed to cancel subscription", zap.String("symbol", sub.symbol), zap.Error(err))
		}
	}

	_ = a.sendOn(sess, &wire.ReqAcctData{Subscribe: false, Account: a.currentAccount()})
}

// reconnect is the supervisor's connect attempt.
func (a *Adapter) reconnect(ctx context.Context) error {
	return a.open(ctx, StateReconnecting)
}

func (a *Adapter) onSupervisorState(state resilience.State, err error) {
	switch state {
	case resilience.StateReconnecting:
		a.setState(StateReconnecting)
	case resilience.StateReady:
		a.logger.Info("Gateway connection ready")
		a.bus.Publish(events.NewConnected(a.id, a.clock.Now()))
	case resilience.StateOffline:
		a.setState(StateDisconnected)

		reason := "reconnect attempts exhausted"
		if err != nil {
			reason = err.Error()
		}

		a.bus.Publish(events.NewDisconnected(a.id, a.clock.Now(), reason, true))
	case resilience.StateDisconnected:
	}
}

// open dials, handshakes, waits for the order id, restores account updates
// and subscriptions, and only then marks the connection ready.
func (a *Adapter) open(ctx context.Context, failState ConnState) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ConnectTimeout)
	defer cancel()

	a.setState(StateConnecting)

	conn, err := a.dial(ctx, a.cfg.Address())
	if err != nil {
		a.setState(failState)

		return errors.Wrapf(errors.ErrCodeNotConnected, err, "failed to connect to gateway at %s", a.cfg.Address())
	}

	sess, err := a.handshake(ctx, conn)
	if err != nil {
		_ = conn.Close()
		a.setState(failState)

		return err
	}

	a.mu.Lock()
	if a.closing {
		a.mu.Unlock()
		_ = conn.Close()

		return errors.New(errors.ErrCodeNotConnected, "disconnect requested during connect")
	}

	a.sess = sess
	a.mu.Unlock()

	go a.readLoop(sess)

	select {
	case <-sess.ready:
	case <-sess.done:
		a.setState(failState)

		return errors.New(errors.ErrCodeDisconnected, "gateway closed the connection during handshake")
	case <-ctx.Done():
		a.dropSession(sess, failState)

		return errors.Wrap(errors.ErrCodeTimeout, "gateway did not announce a valid order id", ctx.Err())
	}

	if err := a.restore(sess); err != nil {
		a.dropSession(sess, failState)

		return err
	}

	sess.live.Store(true)
	a.setState(StateReady)
	a.logger.Info("Connected to gateway",
		zap.String("address", a.cfg.Address()),
		zap.Int("server_version", sess.serverVersion),
		zap.String("connection_time", sess.connTime),
		zap.Int("subscriptions", a.subs.count()),
	)

	return nil
}

func (a *Adapter) handshake(ctx context.Context, conn net.Conn) (*session, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	// a cancelled ctx unblocks the handshake reads
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	writer := wire.NewWriter(conn, a.framing)
	reader := wire.NewReader(conn, a.framing)

	if err := writer.WriteHandshake(wire.MinClientVersion, wire.MaxClientVersion); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotConnected, "failed to send handshake", err)
	}

	a.setState(StateHandshakeSent)

	version, connTime, err := reader.ReadServerHello()
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeProtocolError) {
			return nil, err
		}

		return nil, errors.Wrap(errors.ErrCodeNotConnected, "gateway did not answer the handshake", err)
	}

	if version < wire.MinClientVersion || version > wire.MaxClientVersion {
		return nil, errors.Newf(errors.ErrCodeProtocolError, "server version %d outside supported range %s",
			version, wire.VersionRange(wire.MinClientVersion, wire.MaxClientVersion))
	}

	if err := writer.WriteMessage(&wire.StartAPI{ClientID: a.cfg.ClientID}, version); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotConnected, "failed to start API session", err)
	}

	_ = conn.SetDeadline(time.Time{})

	return &session{
		conn:          conn,
		writer:        writer,
		reader:        reader,
		serverVersion: version,
		connTime:      connTime,
		ready:         make(chan struct{}),
		done:          make(chan struct{}),
	}, nil
}

// restore re-enables account pushes and re-issues every retained
// subscription under a new request id.
func (a *Adapter) restore(sess *session) error {
	if err := a.sendOn(sess, &wire.ReqAcctData{Subscribe: true, Account: a.currentAccount()}); err != nil {
		return err
	}

	return a.resubscribe(func(msg wire.Message) error { return a.sendOn(sess, msg) })
}

// resubscribe issues every stream again under fresh request ids.
func (a *Adapter) resubscribe(send func(wire.Message) error) error {
	for _, sub := range a.subs.reassign(a.nextRequestID) {
		if err := send(subscribeMessage(sub)); err != nil {
			return err
		}

		a.logger.Debug("Restored subscription",
			zap.String("kind", string(sub.kind)),
			zap.String("symbol", sub.symbol),
			zap.Int64("req_id", sub.reqID),
		)
	}

	return nil
}

func (a *Adapter) readLoop(sess *session) {
	defer close(sess.done)

	for {
		msg, err := sess.reader.ReadMessage(sess.serverVersion)
		if err != nil {
			a.connectionLost(sess, err)

			return
		}

		a.dispatch(sess, msg)
	}
}

// connectionLost fails every pending request at once and, unless the caller
// asked for the disconnect, hands over to the supervisor.
func (a *Adapter) connectionLost(sess *session, cause error) {
	a.mu.Lock()
	if a.sess != sess {
		a.mu.Unlock()
		_ = sess.conn.Close()

		return
	}

	a.sess = nil
	closing := a.closing
	live := sess.live.Load()

	if !closing && live {
		a.setStateLocked(StateDisconnected)
	}
	a.mu.Unlock()

	_ = sess.conn.Close()

	lost := errors.Wrap(errors.ErrCodeDisconnected, "connection to gateway lost", cause)
	failed := a.pending.FailAll(lost)

	if closing || !live {
		return
	}

	if errors.HasCode(cause, errors.ErrCodeProtocolError) {
		a.logger.Error("Protocol error, dropping connection", zap.Error(cause))
	}

	a.logger.Warn("Gateway connection lost", zap.Int("failed_requests", failed), zap.Error(cause))
	a.bus.Publish(events.NewDisconnected(a.id, a.clock.Now(), lost.Error(), false))
	a.supervisor.Reconnect(lost)
}

func (a *Adapter) dropSession(sess *session, state ConnState) {
	a.mu.Lock()
	if a.sess == sess {
		a.sess = nil
	}
	a.setStateLocked(state)
	a.mu.Unlock()

	_ = sess.conn.Close()
	<-sess.done
}

func (a *Adapter) setState(state ConnState) {
	a.mu.Lock()
	a.setStateLocked(state)
	a.mu.Unlock()
}

func (a *Adapter) setStateLocked(state ConnState) {
	a.state = state
	a.notifyStateLocked()
}

func (a *Adapter) notifyStateLocked() {
	close(a.stateChanged)
	a.stateChanged = make(chan struct{})
}

// awaitReconnect blocks until a reconnect brings the connection back to
// Ready. It gives up once the supervisor goes offline, Disconnect is called
// or ctx ends.
func (a *Adapter) awaitReconnect(ctx context.Context) bool {
	for {
		a.mu.RLock()
		state, closing, changed := a.state, a.closing, a.stateChanged
		a.mu.RUnlock()

		switch {
		case closing:
			return false
		case state == StateReady:
			return true
		case a.supervisor.State() == resilience.StateOffline:
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case <-changed:
		}
	}
}

func (a *Adapter) currentAccount() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.account
}

func (a *Adapter) nextRequestID() int64 {
	return a.nextReqID.Add(1)
}

func (a *Adapter) ensureReady() error {
	if !a.IsReady() {
		return errors.NotConnected(a.id)
	}

	return nil
}

// send writes one message on the current session.
func (a *Adapter) send(msg wire.Message) error {
	a.mu.RLock()
	sess := a.sess
	a.mu.RUnlock()

	if sess == nil {
		return errors.NotConnected(a.id)
	}

	return a.sendOn(sess, msg)
}

func (a *Adapter) sendOn(sess *session, msg wire.Message) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	if err := sess.writer.WriteMessage(msg, sess.serverVersion); err != nil {
		// the read loop notices the broken socket and reconnects
		_ = sess.conn.Close()

		return errors.Wrapf(errors.ErrCodeDisconnected, err, "failed to send message %d", msg.Code())
	}

	return nil
}

// Ping asks the gateway for its clock, confirming the session round trips.
func (a *Adapter) Ping(ctx context.Context) (time.Time, error) {
	result, err := a.keyedRequest(ctx, currentTimeRequestID, "current_time", new(time.Time), &wire.ReqCurrentTime{})
	if err != nil {
		return time.Time{}, err
	}

	return *result.(*time.Time), nil
}

// keyedRequest runs a request whose response is matched by message type
// rather than request id. Concurrent callers share one in-flight request.
func (a *Adapter) keyedRequest(ctx context.Context, key int64, kind string, acc any, msg wire.Message) (any, error) {
	if err := a.ensureReady(); err != nil {
		return nil, err
	}

	a.keyedMu.Lock()

	p, ok := a.keyed[key]
	if ok {
		select {
		case <-p.Done():
			ok = false
		default:
		}
	}

	if !ok {
		p = a.pending.Insert(key, kind, a.cfg.RequestTimeout, acc)
		a.keyed[key] = p

		if err := a.send(msg); err != nil {
			a.pending.Fail(key, err)
		}
	}
	a.keyedMu.Unlock()

	return p.Wait(ctx)
}

// roundTrip sends a correlated data request and waits for its accumulated
// result. A request failed by a dropped connection is issued again under a
// new request id once the connection is back, up to ReplayAttempts times.
// Orders never go through here.
func roundTrip[T any](ctx context.Context, a *Adapter, kind string, newAcc func() T, build func(reqID int64) wire.Message) (T, int64, error) {
	var zero T

	if err := a.ensureReady(); err != nil {
		return zero, 0, err
	}

	var (
		reqID  int64
		result any
		err    error
	)

	for attempt := 0; ; attempt++ {
		reqID = a.nextRequestID()
		p := a.pending.Insert(reqID, kind, a.cfg.RequestTimeout, newAcc())

		if sendErr := a.send(build(reqID)); sendErr != nil {
			a.pending.Fail(reqID, sendErr)
		}

		result, err = p.Wait(ctx)
		if err == nil || !errors.HasCode(err, errors.ErrCodeDisconnected) || attempt >= a.cfg.ReplayAttempts {
			break
		}

		if !a.awaitReconnect(ctx) {
			break
		}

		a.logger.Info("Replaying request after reconnect",
			zap.String("kind", kind),
			zap.Int64("failed_req_id", reqID),
			zap.Int("attempt", attempt+1),
		)
	}

	if err != nil {
		return zero, reqID, err
	}

	typed, ok := result.(T)
	if !ok {
		return zero, reqID, errors.Newf(errors.ErrCodeProtocolError, "unexpected %s result %T", kind, result)
	}

	return typed, reqID, nil
}

var _ broker.Broker = (*Adapter)(nil)
