package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/internal/events"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"go.uber.org/zap"
)

// Update is one status report for an order, as pushed or polled from a broker.
type Update struct {
	OrderID string
	// NativeStatus is translated through the tracker's vocabulary.
	NativeStatus string
	// Status, when set, is used as-is instead of NativeStatus.
	Status types.OrderStatus
	// Filled is the cumulative filled quantity. None for updates that report a
	// status only, which keep the recorded fill.
	Filled       optional.Option[float64]
	AveragePrice float64
	Commission   float64
	Reason       string
	Symbol       string
	At           time.Time
}

// Config tunes the tracker.
type Config struct {
	// DropOrphans discards updates for unknown order ids instead of creating a
	// needs-reconciliation placeholder.
	DropOrphans bool `yaml:"drop_orphans" json:"drop_orphans"`
}

// Tracker owns the canonical state of every order submitted through one
// broker adapter and applies broker status updates to it.
type Tracker struct {
	brokerID   string
	vocabulary Vocabulary
	config     Config
	bus        *events.Bus
	clock      clockwork.Clock
	logger     *logger.Logger

	mu      sync.RWMutex
	orders  map[string]*types.Order
	changed chan struct{}
}

func NewTracker(brokerID string, vocabulary Vocabulary, config Config, bus *events.Bus, clock clockwork.Clock, log *logger.Logger) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Tracker{
		brokerID:   brokerID,
		vocabulary: vocabulary,
		config:     config,
		bus:        bus,
		clock:      clock,
		logger:     log.Named("orders").With(zap.String("broker", brokerID)),
		orders:     make(map[string]*types.Order),
		changed:    make(chan struct{}),
	}
}

// Track registers a submitted order. When a placeholder already exists for the
// id, because the broker reported on the order before submission returned,
// the placeholder's observed state is kept and the request details filled in.
func (t *Tracker) Track(order types.Order) types.Order {
	t.mu.Lock()

	order.BrokerID = t.brokerID
	if existing, ok := t.orders[order.ID]; ok {
		merged := order
		switch {
		case existing.Status == types.OrderStatusNeedsReconciliation:
			if existing.FilledQuantity > 0 && rank(order.Status) < rank(types.OrderStatusPartial) {
				merged.Status = types.OrderStatusPartial
			}
		case rank(existing.Status) > rank(order.Status):
			merged.Status = existing.Status
		}

		if existing.FilledQuantity > order.FilledQuantity {
			merged.FilledQuantity = existing.FilledQuantity
			merged.AverageFilledPrice = existing.AverageFilledPrice
		}

		merged.Commission = max(existing.Commission, order.Commission)
		if merged.FilledAt.IsNone() {
			merged.FilledAt = existing.FilledAt
		}

		if merged.CancelledAt.IsNone() {
			merged.CancelledAt = existing.CancelledAt
		}

		if merged.RejectReason == "" {
			merged.RejectReason = existing.RejectReason
		}

		merged.ReplacedBy = existing.ReplacedBy
		order = merged
	}

	stored := order
	t.orders[order.ID] = &stored
	t.notifyLocked()
	t.mu.Unlock()

	t.publish(order)

	return order
}

// Apply applies an update and reports whether it changed the order. Updates
// that would move an order out of a terminal state, or that carry a smaller
// filled quantity than already recorded, are logged and ignored.
func (t *Tracker) Apply(update Update) (types.Order, bool) {
	status := update.Status
	if status == "" {
		var known bool

		status, known = MapStatus(t.vocabulary, update.NativeStatus)
		if !known {
			t.logger.Warn("Unknown native order status",
				zap.String("order_id", update.OrderID),
				zap.String("native_status", update.NativeStatus),
			)
		}
	}

	at := update.At
	if at.IsZero() {
		at = t.clock.Now()
	}

	t.mu.Lock()

	current, ok := t.orders[update.OrderID]
	if !ok {
		if t.config.DropOrphans {
			t.mu.Unlock()
			t.logger.Warn("Dropping update for unknown order",
				zap.String("order_id", update.OrderID),
				zap.String("status", string(status)),
			)

			return types.Order{}, false
		}

		placeholder := types.Order{
			ID:                 update.OrderID,
			BrokerID:           t.brokerID,
			Symbol:             update.Symbol,
			Status:             types.OrderStatusNeedsReconciliation,
			FilledQuantity:     update.Filled.TakeOr(0),
			AverageFilledPrice: update.AveragePrice,
			Commission:         update.Commission,
			RejectReason:       update.Reason,
			UpdatedAt:          at,
		}
		if status.IsTerminal() {
			placeholder.Status = status
		}

		t.orders[update.OrderID] = &placeholder
		t.notifyLocked()
		t.mu.Unlock()

		t.logger.Warn("Update for unknown order, tracking for reconciliation",
			zap.String("order_id", update.OrderID),
			zap.String("status", string(status)),
		)
		t.publish(placeholder)

		return placeholder, true
	}

	next, changed := t.transition(*current, update, status, at)
	if changed {
		*current = next
		t.notifyLocked()
	}

	result := *current
	t.mu.Unlock()

	if changed {
		t.publish(result)
	}

	return result, changed
}

func (t *Tracker) transition(current types.Order, update Update, status types.OrderStatus, at time.Time) (types.Order, bool) {
	if current.Status.IsTerminal() {
		if status != current.Status {
			t.logger.Warn("Ignoring transition out of terminal state",
				zap.String("order_id", current.ID),
				zap.String("from", string(current.Status)),
				zap.String("to", string(status)),
			)
		}

		return current, false
	}

	filled := update.Filled.TakeOr(current.FilledQuantity)

	if filled < current.FilledQuantity {
		t.logger.Warn("Ignoring update with smaller filled quantity",
			zap.String("order_id", current.ID),
			zap.Float64("recorded", current.FilledQuantity),
			zap.Float64("reported", filled),
		)

		return current, false
	}

	next := current

	if filled > current.FilledQuantity {
		next.FilledQuantity = filled
		if update.AveragePrice > 0 {
			next.AverageFilledPrice = update.AveragePrice
		}
	} else if current.AverageFilledPrice == 0 && update.AveragePrice > 0 {
		next.AverageFilledPrice = update.AveragePrice
	}

	if update.Commission > next.Commission {
		next.Commission = update.Commission
	}

	if status == types.OrderStatusOpen && next.FilledQuantity > 0 {
		status = types.OrderStatusPartial
	}

	switch {
	case status == types.OrderStatusNeedsReconciliation:
		next.Status = status
	case next.Status == types.OrderStatusNeedsReconciliation:
		next.Status = status
	case rank(status) >= rank(next.Status):
		next.Status = status
	}

	switch next.Status {
	case types.OrderStatusFilled:
		if next.FilledQuantity == 0 {
			next.FilledQuantity = next.Quantity
		}

		next.FilledAt = optional.Some(at)
	case types.OrderStatusCancelled:
		next.CancelledAt = optional.Some(at)
	case types.OrderStatusRejected:
		if update.Reason != "" {
			next.RejectReason = update.Reason
		}
	case types.OrderStatusPending, types.OrderStatusOpen, types.OrderStatusPartial, types.OrderStatusNeedsReconciliation:
	}

	if next.Status == current.Status && next.FilledQuantity == current.FilledQuantity &&
		next.AverageFilledPrice == current.AverageFilledPrice && next.Commission == current.Commission {
		return current, false
	}

	next.UpdatedAt = at

	return next, true
}

// rank orders the lifecycle so status never moves backwards.
func rank(status types.OrderStatus) int {
	switch status {
	case types.OrderStatusNeedsReconciliation:
		return -1
	case types.OrderStatusPending:
		return 0
	case types.OrderStatusOpen:
		return 1
	case types.OrderStatusPartial:
		return 2
	case types.OrderStatusFilled, types.OrderStatusCancelled, types.OrderStatusRejected:
		return 3
	default:
		return -1
	}
}

// Reject marks an order rejected, as reported by an out-of-band broker error.
func (t *Tracker) Reject(orderID, reason string) (types.Order, bool) {
	return t.Apply(Update{OrderID: orderID, Status: types.OrderStatusRejected, Reason: reason})
}

// Amend records an accepted in-place modification of a live order. Filled
// quantity and status are left to broker updates.
func (t *Tracker) Amend(orderID string, req types.OrderRequest) (types.Order, error) {
	t.mu.Lock()

	current, ok := t.orders[orderID]
	if !ok {
		t.mu.Unlock()

		return types.Order{}, errors.Newf(errors.ErrCodeNotFound, "order not found: %s", orderID)
	}

	if current.Status.IsTerminal() {
		status := current.Status
		t.mu.Unlock()

		return types.Order{}, errors.Newf(errors.ErrCodeRejected, "order %s is %s and cannot be modified", orderID, status)
	}

	current.Quantity = req.Quantity
	current.LimitPrice = req.LimitPrice
	current.StopPrice = req.StopPrice
	current.TrailAmount = req.TrailAmount
	current.TrailPercent = req.TrailPercent

	if req.TimeInForce != "" {
		current.TimeInForce = req.TimeInForce
	}

	current.UpdatedAt = t.clock.Now()
	result := *current
	t.notifyLocked()
	t.mu.Unlock()

	t.publish(result)

	return result, nil
}

// SetReplacedBy links an order to the order that superseded it.
func (t *Tracker) SetReplacedBy(orderID, replacementID string) {
	t.mu.Lock()
	order, ok := t.orders[orderID]
	if ok {
		order.ReplacedBy = replacementID
		t.notifyLocked()
	}
	t.mu.Unlock()
}

func (t *Tracker) Get(orderID string) (types.Order, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	order, ok := t.orders[orderID]
	if !ok {
		return types.Order{}, false
	}

	return *order, true
}

// List returns the tracked orders matching the filter, oldest first.
func (t *Tracker) List(filter types.OrderFilter) []types.Order {
	t.mu.RLock()

	result := make([]types.Order, 0, len(t.orders))
	for _, order := range t.orders {
		if filter.Matches(*order) {
			result = append(result, *order)
		}
	}
	t.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].SubmittedAt.Equal(result[j].SubmittedAt) {
			return result[i].SubmittedAt.Before(result[j].SubmittedAt)
		}

		return result[i].ID < result[j].ID
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	return result
}

// WaitFor blocks until the order satisfies pred or ctx ends.
func (t *Tracker) WaitFor(ctx context.Context, orderID string, pred func(types.Order) bool) (types.Order, error) {
	for {
		t.mu.RLock()
		order, ok := t.orders[orderID]
		var snapshot types.Order
		if ok {
			snapshot = *order
		}
		changed := t.changed
		t.mu.RUnlock()

		if ok && pred(snapshot) {
			return snapshot, nil
		}

		select {
		case <-ctx.Done():
			return snapshot, errors.Wrapf(errors.ErrCodeTimeout, ctx.Err(), "waiting for order %s", orderID)
		case <-changed:
		}
	}
}

// IsTerminal is a WaitFor predicate matching any terminal status.
func IsTerminal(order types.Order) bool {
	return order.Status.IsTerminal()
}

func (t *Tracker) notifyLocked() {
	close(t.changed)
	t.changed = make(chan struct{})
}

func (t *Tracker) publish(order types.Order) {
	t.bus.Publish(events.NewOrderUpdate(t.brokerID, t.clock.Now(), order))
}
