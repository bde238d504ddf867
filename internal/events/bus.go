package events

import (
	"sync"
	"sync/atomic"

	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"go.uber.org/zap"
)

const DefaultBufferSize = 256

// Bus fans events out to subscribers. Each subscriber owns a buffered
// channel; a full channel drops the event for that subscriber only so a slow
// consumer never blocks an adapter's read loop.
type Bus struct {
	mu         sync.RWMutex
	subs       map[chan Event]struct{}
	bufferSize int
	dropped    atomic.Uint64
	closed     bool
	logger     *logger.Logger
}

func NewBus(log *logger.Logger) *Bus {
	return NewBusWithBuffer(log, DefaultBufferSize)
}

func NewBusWithBuffer(log *logger.Logger, bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Bus{
		subs:       make(map[chan Event]struct{}),
		bufferSize: bufferSize,
		logger:     log.Named("events"),
	}
}

// Subscribe registers a new subscriber. The returned channel is closed by
// Unsubscribe or Close.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, b.bufferSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)

		return ch
	}

	b.subs[ch] = struct{}{}

	return ch
}

func (b *Bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		if (<-chan Event)(ch) == sub {
			delete(b.subs, ch)
			close(ch)

			return
		}
	}
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
			b.logger.Debug("Dropping event for slow subscriber", zap.String("broker", evt.Source()))
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscriber channel. Later publishes are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for ch := range b.subs {
		close(ch)
		delete(b.subs, ch)
	}
}
