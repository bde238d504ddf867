package ibgateway

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-gateway/internal/types"
)

type subscriptionKind string

const (
	subscriptionQuotes subscriptionKind = "quotes"
	subscriptionBars   subscriptionKind = "bars"
)

// subscription is one active market-data stream. reqID changes every time the
// stream is re-issued; the key does not.
type subscription struct {
	kind       subscriptionKind
	symbol     string
	assetClass types.AssetClass
	timeframe  types.Timeframe
	reqID      int64
	quote      types.Quote
}

func (s *subscription) key() string {
	return string(s.kind) + ":" + s.symbol
}

// subscriptionRegistry retains the active streams so they can be re-issued
// after a reconnect without the caller asking again.
type subscriptionRegistry struct {
	mu    sync.Mutex
	byKey map[string]*subscription
	byReq map[int64]*subscription
}

func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{
		byKey: make(map[string]*subscription),
		byReq: make(map[int64]*subscription),
	}
}

// add registers the stream unless one with the same key exists.
func (r *subscriptionRegistry) add(sub *subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byKey[sub.key()]; ok {
		return false
	}

	r.byKey[sub.key()] = sub
	r.byReq[sub.reqID] = sub

	return true
}

func (r *subscriptionRegistry) remove(kind subscriptionKind, symbol string) (*subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := string(kind) + ":" + symbol

	sub, ok := r.byKey[key]
	if !ok {
		return nil, false
	}

	delete(r.byKey, key)
	delete(r.byReq, sub.reqID)

	return sub, true
}

// reassign gives every stream a new request id and returns copies in a stable
// order.
func (r *subscriptionRegistry) reassign(nextID func() int64) []subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.byKey))
	for key := range r.byKey {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	r.byReq = make(map[int64]*subscription, len(keys))
	result := make([]subscription, 0, len(keys))

	for _, key := range keys {
		sub := r.byKey[key]
		sub.reqID = nextID()
		r.byReq[sub.reqID] = sub
		result = append(result, *sub)
	}

	return result
}

// mergeQuote folds a partial quote into the stream's snapshot and returns the
// merged snapshot.
func (r *subscriptionRegistry) mergeQuote(reqID int64, partial types.Quote) (types.Quote, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byReq[reqID]
	if !ok || sub.kind != subscriptionQuotes {
		return types.Quote{}, false
	}

	sub.quote = sub.quote.Merge(partial)

	return sub.quote, true
}

func (r *subscriptionRegistry) lookup(reqID int64) (subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byReq[reqID]
	if !ok {
		return subscription{}, false
	}

	return *sub, true
}

// snapshot returns copies of all streams in a stable order.
func (r *subscriptionRegistry) snapshot() []subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]subscription, 0, len(r.byKey))
	for _, sub := range r.byKey {
		result = append(result, *sub)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].key() < result[j].key() })

	return result
}

func (r *subscriptionRegistry) clear() []subscription {
	result := r.snapshot()

	r.mu.Lock()
	r.byKey = make(map[string]*subscription)
	r.byReq = make(map[int64]*subscription)
	r.mu.Unlock()

	return result
}

func (r *subscriptionRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.byKey)
}
