package ibgateway

import (
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

// Gateway error and notice codes carried by ERR_MSG.
const (
	codeNoSecurityDefinition = 200
	codeOrderRejected        = 201
	codeOrderCancelled       = 202
	codeSecurityNotAllowed   = 203
	codeHistoricalData       = 162
	codeValidation           = 321
	codeMarketDataNotSubbed  = 354
	codeNotConnected         = 504
	codeConnectivityLost     = 1100
	codeConnectivityRestored = 1101
	codeConnectivityResumed  = 1102
	codeMarketDataFarmOK     = 2104
	codeHistoricalFarmOK     = 2106
	codeSecDefFarmOK         = 2158
	codeDelayedMarketData    = 10167
)

type noticeKind int

const (
	// noticeInfo is a status notice that only gets logged.
	noticeInfo noticeKind = iota
	// noticeConnectivity reports the gateway's own upstream link.
	noticeConnectivity
	// noticeOrder reports on an order identified by the message id.
	noticeOrder
	// noticeFailure fails the request identified by the message id.
	noticeFailure
)

// classify maps a gateway error code to how it is handled and, for failures,
// the error code surfaced to callers.
func classify(code int) (noticeKind, errors.ErrorCode) {
	switch code {
	case codeMarketDataFarmOK, codeHistoricalFarmOK, codeSecDefFarmOK:
		return noticeInfo, 0
	case codeConnectivityLost, codeConnectivityRestored, codeConnectivityResumed:
		return noticeConnectivity, 0
	case codeOrderRejected, codeOrderCancelled, codeSecurityNotAllowed:
		return noticeOrder, errors.ErrCodeRejected
	case codeNoSecurityDefinition, codeValidation:
		return noticeFailure, errors.ErrCodeRejected
	case codeMarketDataNotSubbed, codeDelayedMarketData, codeHistoricalData:
		return noticeFailure, errors.ErrCodeUpstream
	case codeNotConnected:
		return noticeFailure, errors.ErrCodeNotConnected
	}

	// 2100-2199 are warnings
	if code >= 2100 && code < 2200 {
		return noticeInfo, 0
	}

	return noticeFailure, errors.ErrCodeUpstream
}
