package binance

import (
	"context"

	"github.com/adshao/go-binance/v2/common"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

// Binance API error codes the adapter distinguishes.
// Ref: https://developers.binance.com/docs/binance-spot-api-docs/errors
const (
	apiCodeTimeout          = -1007
	apiCodeInvalidSignature = -1022
	apiCodeFilterFailure    = -1013
	apiCodeBadPrecision     = -1111
	apiCodeInvalidSymbol    = -1121
	apiCodeOrderRejected    = -2010
	apiCodeCancelRejected   = -2011
	apiCodeNoSuchOrder      = -2013
	apiCodeBadAPIKeyFormat  = -2014
	apiCodeRejectedAPIKey   = -2015
)

func classifyAPIError(code int64) errors.ErrorCode {
	switch code {
	case apiCodeInvalidSignature, apiCodeBadAPIKeyFormat, apiCodeRejectedAPIKey:
		return errors.ErrCodeAuthFailed
	case apiCodeOrderRejected, apiCodeCancelRejected, apiCodeFilterFailure, apiCodeBadPrecision:
		return errors.ErrCodeRejected
	case apiCodeNoSuchOrder:
		return errors.ErrCodeNotFound
	case apiCodeInvalidSymbol:
		return errors.ErrCodeInvalidParameter
	case apiCodeTimeout:
		return errors.ErrCodeTimeout
	default:
		return errors.ErrCodeUpstream
	}
}

// wrapError converts an SDK failure into a gateway error.
func wrapError(err error, message string) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return errors.Wrap(classifyAPIError(apiErr.Code), message, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrCodeTimeout, message, err)
	}

	return errors.Wrap(errors.ErrCodeUpstream, message, err)
}
