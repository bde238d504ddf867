package events

import (
	"time"

	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

// Event is the closed set of notifications a broker adapter emits.
// Only the variants in this package implement it.
type Event interface {
	// Source is the id of the broker that produced the event.
	Source() string
	isEvent()
}

type header struct {
	BrokerID string    `json:"broker_id"`
	At       time.Time `json:"at"`
}

func (h header) Source() string { return h.BrokerID }
func (header) isEvent()         {}

// Connected is emitted when an adapter becomes ready.
type Connected struct {
	header
}

// Disconnected is emitted when an adapter loses its connection. Terminal is
// true once the reconnect policy gave up or the caller shut the adapter down.
type Disconnected struct {
	header
	Reason   string `json:"reason"`
	Terminal bool   `json:"terminal"`
}

type OrderUpdate struct {
	header
	Order types.Order `json:"order"`
}

type QuoteUpdate struct {
	header
	Quote types.Quote `json:"quote"`
}

type BarUpdate struct {
	header
	Bar types.Bar `json:"bar"`
}

// Error reports an asynchronous broker error that is not tied to a caller.
type Error struct {
	header
	Code   errors.ErrorCode `json:"code"`
	Detail string           `json:"detail"`
}

func NewConnected(brokerID string, at time.Time) Connected {
	return Connected{header: header{BrokerID: brokerID, At: at}}
}

func NewDisconnected(brokerID string, at time.Time, reason string, terminal bool) Disconnected {
	return Disconnected{header: header{BrokerID: brokerID, At: at}, Reason: reason, Terminal: terminal}
}

func NewOrderUpdate(brokerID string, at time.Time, order types.Order) OrderUpdate {
	return OrderUpdate{header: header{BrokerID: brokerID, At: at}, Order: order}
}

func NewQuoteUpdate(brokerID string, at time.Time, quote types.Quote) QuoteUpdate {
	return QuoteUpdate{header: header{BrokerID: brokerID, At: at}, Quote: quote}
}

func NewBarUpdate(brokerID string, at time.Time, bar types.Bar) BarUpdate {
	return BarUpdate{header: header{BrokerID: brokerID, At: at}, Bar: bar}
}

func NewError(brokerID string, at time.Time, code errors.ErrorCode, detail string) Error {
	return Error{header: header{BrokerID: brokerID, At: at}, Code: code, Detail: detail}
}
