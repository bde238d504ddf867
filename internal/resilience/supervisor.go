package resilience

import (
	"context"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"go.uber.org/zap"
)

// State is the connection health reported by a Supervisor.
type State int

const (
	StateDisconnected State = iota
	StateReconnecting
	StateReady
	// StateOffline is terminal: the policy gave up and no attempt follows.
	StateOffline
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateReconnecting:
		return "reconnecting"
	case StateReady:
		return "ready"
	case StateOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// ConnectFunc performs one connection attempt. It returns nil only once the
// connection is fully usable again.
type ConnectFunc func(ctx context.Context) error

// StateFunc observes state changes. err carries the last failure for
// StateOffline and StateReconnecting.
type StateFunc func(state State, err error)

// Supervisor runs reconnect attempts on the policy's schedule.
type Supervisor struct {
	name    string
	policy  Policy
	clock   clockwork.Clock
	connect ConnectFunc
	onState StateFunc
	logger  *logger.Logger

	mu       sync.Mutex
	state    State
	attempts int
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSupervisor(name string, policy Policy, clock clockwork.Clock, connect ConnectFunc, onState StateFunc, log *logger.Logger) *Supervisor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	if onState == nil {
		onState = func(State, error) {}
	}

	return &Supervisor{
		name:    name,
		policy:  policy.WithDefaults(),
		clock:   clock,
		connect: connect,
		onState: onState,
		logger:  log.Named("supervisor").With(zap.String("broker", name)),
		state:   StateDisconnected,
	}
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Attempts returns the number of attempts made by the current or last loop.
func (s *Supervisor) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.attempts
}

// MarkReady records a successful initial connection.
func (s *Supervisor) MarkReady() {
	s.setState(StateReady, nil)
}

// Reconnect starts the reconnect loop after an unexpected connection loss.
// It is a no-op while a loop is already running or after going offline.
func (s *Supervisor) Reconnect(cause error) {
	s.mu.Lock()
	if s.state == StateReconnecting || s.state == StateOffline {
		s.mu.Unlock()

		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.state = StateReconnecting
	s.attempts = 0
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.logger.Warn("Connection lost, reconnecting", zap.Error(cause))
	s.onState(StateReconnecting, cause)

	go s.loop(ctx, done, cause)
}

// Stop cancels any running loop and leaves the supervisor disconnected.
// Used for an explicit shutdown, after which no reconnect happens.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	s.mu.Lock()
	s.state = StateDisconnected
	s.mu.Unlock()
}

// Reset clears a terminal offline state so a later Connect can start over.
func (s *Supervisor) Reset() {
	s.Stop()
}

func (s *Supervisor) loop(ctx context.Context, done chan struct{}, lastErr error) {
	defer close(done)

	schedule := s.policy.NewBackOff(s.clock)

	for {
		wait := schedule.NextBackOff()
		if wait == backoff.Stop {
			s.logger.Error("Giving up reconnecting", zap.Int("attempts", s.Attempts()), zap.Error(lastErr))
			s.finish(ctx, StateOffline, lastErr)

			return
		}

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(wait):
		}

		s.mu.Lock()
		s.attempts++
		attempt := s.attempts
		s.mu.Unlock()

		err := s.connect(ctx)
		if ctx.Err() != nil {
			return
		}

		if err == nil {
			s.logger.Info("Reconnected", zap.Int("attempt", attempt))
			s.finish(ctx, StateReady, nil)

			return
		}

		lastErr = err
		if errors.IsAuthFailure(err) {
			s.logger.Error("Reconnect rejected by authentication", zap.Error(err))
			s.finish(ctx, StateOffline, err)

			return
		}

		s.logger.Warn("Reconnect attempt failed",
			zap.Int("attempt", attempt),
			zap.Duration("waited", wait),
			zap.Error(err),
		)
	}
}

func (s *Supervisor) finish(ctx context.Context, state State, err error) {
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()

		return
	}

	cancel := s.cancel
	s.state = state
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	s.onState(state, err)
}

func (s *Supervisor) setState(state State, err error) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.onState(state, err)
}
