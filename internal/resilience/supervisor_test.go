package resilience

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SupervisorTestSuite struct {
	suite.Suite
	clock  *clockwork.FakeClock
	states chan State
	errs   chan error
}

func TestSupervisorSuite(t *testing.T) {
	suite.Run(t, new(SupervisorTestSuite))
}

func (suite *SupervisorTestSuite) SetupTest() {
	suite.clock = clockwork.NewFakeClock()
	suite.states = make(chan State, 16)
	suite.errs = make(chan error, 16)
}

func (suite *SupervisorTestSuite) onState(state State, err error) {
	suite.states <- state
	suite.errs <- err
}

func (suite *SupervisorTestSuite) nextState() State {
	select {
	case state := <-suite.states:
		<-suite.errs

		return state
	case <-time.After(2 * time.Second):
		suite.FailNow("no state change")

		return StateDisconnected
	}
}

func (suite *SupervisorTestSuite) policy(maxAttempts int) Policy {
	return Policy{Base: time.Second, Max: 8 * time.Second, Multiplier: 2, MaxAttempts: maxAttempts}
}

func (suite *SupervisorTestSuite) TestReconnectsAfterFailures() {
	var mu sync.Mutex
	calls := 0
	connect := func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()

		calls++
		if calls < 3 {
			return errors.New(errors.ErrCodeTimeout, "dial timeout")
		}

		return nil
	}

	sup := NewSupervisor("ib", suite.policy(5), suite.clock, connect, suite.onState, logger.NewNopLogger())
	sup.MarkReady()
	suite.Equal(StateReady, suite.nextState())

	sup.Reconnect(errors.New(errors.ErrCodeDisconnected, "eof"))
	suite.Equal(StateReconnecting, suite.nextState())

	for _, wait := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		suite.clock.BlockUntil(1)
		suite.clock.Advance(wait)
	}

	suite.Equal(StateReady, suite.nextState())
	suite.Equal(StateReady, sup.State())
	suite.Equal(3, sup.Attempts())
}

func (suite *SupervisorTestSuite) TestGoesOfflineAfterMaxAttempts() {
	failure := errors.New(errors.ErrCodeTimeout, "dial timeout")
	sup := NewSupervisor("ib", suite.policy(2), suite.clock, func(context.Context) error { return failure }, func(state State, err error) {
		suite.states <- state
		suite.errs <- err
	}, nil)

	sup.Reconnect(failure)
	suite.Equal(StateReconnecting, <-suite.states)
	<-suite.errs

	suite.clock.BlockUntil(1)
	suite.clock.Advance(time.Second)
	suite.clock.BlockUntil(1)
	suite.clock.Advance(2 * time.Second)

	select {
	case state := <-suite.states:
		suite.Equal(StateOffline, state)
		suite.Equal(failure, <-suite.errs)
	case <-time.After(2 * time.Second):
		suite.FailNow("supervisor did not go offline")
	}

	suite.Equal(2, sup.Attempts())

	sup.Reconnect(failure)
	suite.Equal(StateOffline, sup.State())
	suite.Empty(suite.states)
}

func (suite *SupervisorTestSuite) TestAuthFailureStopsImmediately() {
	sup := NewSupervisor("robinhood", suite.policy(0), suite.clock, func(context.Context) error {
		return errors.New(errors.ErrCodeAuthFailed, "token revoked")
	}, suite.onState, nil)

	sup.Reconnect(errors.New(errors.ErrCodeDisconnected, "eof"))
	suite.Equal(StateReconnecting, suite.nextState())

	suite.clock.BlockUntil(1)
	suite.clock.Advance(time.Second)

	suite.Equal(StateOffline, suite.nextState())
	suite.Equal(1, sup.Attempts())
}

func (suite *SupervisorTestSuite) TestStopCancelsLoop() {
	sup := NewSupervisor("ib", suite.policy(0), suite.clock, func(context.Context) error {
		return errors.New(errors.ErrCodeTimeout, "dial timeout")
	}, suite.onState, nil)

	sup.Reconnect(errors.New(errors.ErrCodeDisconnected, "eof"))
	suite.Equal(StateReconnecting, suite.nextState())
	suite.clock.BlockUntil(1)

	sup.Stop()

	suite.Equal(StateDisconnected, sup.State())
	suite.Equal(0, sup.Attempts())
	suite.Empty(suite.states)
}

func (suite *SupervisorTestSuite) TestReconnectIsIdempotentWhileRunning() {
	sup := NewSupervisor("ib", suite.policy(0), suite.clock, func(context.Context) error { return nil }, suite.onState, nil)

	sup.Reconnect(nil)
	sup.Reconnect(nil)
	suite.Equal(StateReconnecting, suite.nextState())
	suite.Empty(suite.states)

	suite.clock.BlockUntil(1)
	suite.clock.Advance(time.Second)
	suite.Equal(StateReady, suite.nextState())
}

func TestPolicyDelays(t *testing.T) {
	policy := Policy{Base: time.Second, Max: 5 * time.Second, Multiplier: 2, MaxAttempts: 3}

	delays := policy.Delays(5)

	expected := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, d := range expected {
		if delays[i] != d {
			t.Fatalf("delay %d: got %v want %v", i, delays[i], d)
		}
	}
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{name: "default", policy: DefaultPolicy()},
		{name: "zero base", policy: Policy{Max: time.Second, Multiplier: 2}, wantErr: true},
		{name: "max below base", policy: Policy{Base: time.Minute, Max: time.Second, Multiplier: 2}, wantErr: true},
		{name: "jitter too large", policy: Policy{Base: time.Second, Max: time.Second, Multiplier: 2, Jitter: 1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr != (err != nil) {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithDefaults(t *testing.T) {
	policy := Policy{MaxAttempts: 4}.WithDefaults()

	if policy.Base != time.Second || policy.Max != time.Minute || policy.Multiplier != 2 || policy.MaxAttempts != 4 {
		t.Fatalf("unexpected policy %+v", policy)
	}
}
