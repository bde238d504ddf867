package ibgateway

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

// PendingRequest is one in-flight request awaiting its response. Responses
// that arrive in several messages are folded into the accumulator until the
// closing message resolves the request.
type PendingRequest struct {
	ID       int64
	Kind     string
	Deadline time.Time

	acc   any
	timer clockwork.Timer
	done  chan struct{}
	err   error
}

// Done is closed once the request is resolved, failed or expired.
func (p *PendingRequest) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the request completes or ctx ends. Abandoning the wait
// leaves the request in the table; its eventual response is discarded.
func (p *PendingRequest) Wait(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.acc, p.err
	case <-ctx.Done():
		return nil, errors.Wrapf(errors.ErrCodeTimeout, ctx.Err(), "abandoned %s request %d", p.Kind, p.ID)
	}
}

// PendingTable correlates request ids with in-flight requests. Every entry
// leaves the table exactly once: resolved, failed, or expired by its timer.
type PendingTable struct {
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[int64]*PendingRequest
	idle    chan struct{}
}

func NewPendingTable(clock clockwork.Clock) *PendingTable {
	return &PendingTable{
		clock:   clock,
		entries: make(map[int64]*PendingRequest),
	}
}

// Insert registers a request that expires with a Timeout error after timeout.
func (t *PendingTable) Insert(id int64, kind string, timeout time.Duration, acc any) *PendingRequest {
	p := &PendingRequest{
		ID:       id,
		Kind:     kind,
		Deadline: t.clock.Now().Add(timeout),
		acc:      acc,
		done:     make(chan struct{}),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[id] = p
	p.timer = t.clock.AfterFunc(timeout, func() {
		t.Fail(id, errors.Newf(errors.ErrCodeTimeout, "%s request %d timed out after %s", kind, id, timeout))
	})

	return p
}

// Update runs fn on the accumulator of a pending request. It reports false
// when the id is not pending, in which case the message is not a response.
func (t *PendingTable) Update(id int64, fn func(acc any)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.entries[id]
	if !ok {
		return false
	}

	fn(p.acc)

	return true
}

// Has reports whether id is pending.
func (t *PendingTable) Has(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.entries[id]

	return ok
}

// Resolve completes the request with its accumulator as the result.
func (t *PendingTable) Resolve(id int64) bool {
	return t.complete(id, nil)
}

// Fail completes the request with err.
func (t *PendingTable) Fail(id int64, err error) bool {
	return t.complete(id, err)
}

// FailAll fails every pending request and returns how many there were.
func (t *PendingTable) FailAll(err error) int {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[int64]*PendingRequest)
	t.signalIdleLocked()
	t.mu.Unlock()

	for _, p := range entries {
		p.finish(err)
	}

	return len(entries)
}

func (t *PendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

// Idle returns a channel closed once the table is empty.
func (t *PendingTable) Idle() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.idle == nil {
		t.idle = make(chan struct{})
	}

	idle := t.idle
	if len(t.entries) == 0 {
		t.signalIdleLocked()
	}

	return idle
}

func (t *PendingTable) complete(id int64, err error) bool {
	t.mu.Lock()
	p, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
		if len(t.entries) == 0 {
			t.signalIdleLocked()
		}
	}
	t.mu.Unlock()

	if !ok {
		return false
	}

	p.finish(err)

	return true
}

func (t *PendingTable) signalIdleLocked() {
	if t.idle != nil {
		close(t.idle)
		t.idle = nil
	}
}

func (p *PendingRequest) finish(err error) {
	if p.timer != nil {
		p.timer.Stop()
	}

	p.err = err
	close(p.done)
}
