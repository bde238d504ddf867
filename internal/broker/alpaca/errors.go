package alpaca

import (
	"net/http"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

func classifyStatus(status int) errors.ErrorCode {
	switch status {
	case http.StatusUnauthorized:
		return errors.ErrCodeAuthFailed
	case http.StatusForbidden, http.StatusUnprocessableEntity:
		// insufficient buying power, non-tradable asset, wash trade
		return errors.ErrCodeRejected
	case http.StatusNotFound:
		return errors.ErrCodeNotFound
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errors.ErrCodeTimeout
	default:
		return errors.ErrCodeUpstream
	}
}

// wrapError converts an SDK failure into a gateway error.
func wrapError(err error, message string) error {
	var apiErr *alpaca.APIError
	if errors.As(err, &apiErr) {
		return errors.Wrap(classifyStatus(apiErr.StatusCode), message, err)
	}

	return errors.Wrap(errors.ErrCodeUpstream, message, err)
}

// wrapAuthError is wrapError for the credential check, where a forbidden
// response means the key is not allowed in.
func wrapAuthError(err error, message string) error {
	var apiErr *alpaca.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
		return errors.Wrap(errors.ErrCodeAuthFailed, message, err)
	}

	return wrapError(err, message)
}
