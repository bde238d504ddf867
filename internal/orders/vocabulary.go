package orders

import (
	"strings"

	"github.com/rxtech-lab/argo-gateway/internal/types"
)

// Vocabulary names a broker's native order status language.
type Vocabulary string

const (
	VocabularyIB        Vocabulary = "ib"
	VocabularyBinance   Vocabulary = "binance"
	VocabularyAlpaca    Vocabulary = "alpaca"
	VocabularyRobinhood Vocabulary = "robinhood"
)

// Keys are lower case; lookups are case-insensitive.
var vocabularies = map[Vocabulary]map[string]types.OrderStatus{
	VocabularyIB: {
		"pendingsubmit": types.OrderStatusPending,
		"apipending":    types.OrderStatusPending,
		"presubmitted":  types.OrderStatusOpen,
		"submitted":     types.OrderStatusOpen,
		"pendingcancel": types.OrderStatusOpen,
		"filled":        types.OrderStatusFilled,
		"cancelled":     types.OrderStatusCancelled,
		"apicancelled":  types.OrderStatusCancelled,
		"inactive":      types.OrderStatusRejected,
	},
	VocabularyBinance: {
		"new":              types.OrderStatusOpen,
		"partially_filled": types.OrderStatusPartial,
		"filled":           types.OrderStatusFilled,
		"canceled":         types.OrderStatusCancelled,
		"pending_cancel":   types.OrderStatusOpen,
		"rejected":         types.OrderStatusRejected,
		"expired":          types.OrderStatusCancelled,
		"expired_in_match": types.OrderStatusCancelled,
	},
	VocabularyAlpaca: {
		"new":                  types.OrderStatusOpen,
		"accepted":             types.OrderStatusOpen,
		"pending_new":          types.OrderStatusPending,
		"accepted_for_bidding": types.OrderStatusOpen,
		"partially_filled":     types.OrderStatusPartial,
		"filled":               types.OrderStatusFilled,
		"done_for_day":         types.OrderStatusOpen,
		"canceled":             types.OrderStatusCancelled,
		"expired":              types.OrderStatusCancelled,
		"replaced":             types.OrderStatusCancelled,
		"pending_cancel":       types.OrderStatusOpen,
		"pending_replace":      types.OrderStatusOpen,
		"stopped":              types.OrderStatusOpen,
		"suspended":            types.OrderStatusOpen,
		"calculated":           types.OrderStatusOpen,
		"rejected":             types.OrderStatusRejected,
	},
	VocabularyRobinhood: {
		"queued":           types.OrderStatusPending,
		"unconfirmed":      types.OrderStatusPending,
		"confirmed":        types.OrderStatusOpen,
		"partially_filled": types.OrderStatusPartial,
		"filled":           types.OrderStatusFilled,
		"cancelled":        types.OrderStatusCancelled,
		"canceled":         types.OrderStatusCancelled,
		"rejected":         types.OrderStatusRejected,
		"failed":           types.OrderStatusRejected,
	},
}

// MapStatus maps a native status onto the canonical set. Unknown statuses
// map to needs-reconciliation and report false.
func MapStatus(vocabulary Vocabulary, native string) (types.OrderStatus, bool) {
	table, ok := vocabularies[vocabulary]
	if !ok {
		return types.OrderStatusNeedsReconciliation, false
	}

	status, ok := table[strings.ToLower(strings.TrimSpace(native))]
	if !ok {
		return types.OrderStatusNeedsReconciliation, false
	}

	return status, true
}
