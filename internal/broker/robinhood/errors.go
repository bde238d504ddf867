package robinhood

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

func classifyStatus(status int) errors.ErrorCode {
	switch status {
	case http.StatusUnauthorized:
		return errors.ErrCodeAuthFailed
	case http.StatusForbidden:
		return errors.ErrCodeRejected
	case http.StatusNotFound:
		return errors.ErrCodeNotFound
	case http.StatusBadRequest:
		return errors.ErrCodeInvalidParameter
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errors.ErrCodeTimeout
	default:
		return errors.ErrCodeUpstream
	}
}

// checkResponse converts a transport failure or an error status into a
// gateway error.
func checkResponse(resp *resty.Response, err error, message string) error {
	if err != nil {
		var gatewayErr *errors.Error
		if errors.As(err, &gatewayErr) {
			return gatewayErr
		}

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return errors.Wrap(errors.ErrCodeTimeout, message, err)
		}

		return errors.Wrap(errors.ErrCodeUpstream, message, err)
	}

	if !resp.IsError() {
		return nil
	}

	detail := resp.Status()
	if apiErr, ok := resp.Error().(*apiError); ok && apiErr.message() != "" {
		detail = apiErr.message()
	}

	return errors.Newf(classifyStatus(resp.StatusCode()), "%s: %s", message, detail)
}
