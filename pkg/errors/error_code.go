package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 102
	ErrCodeMissingParameter     ErrorCode = 103
	ErrCodeInvalidProvider      ErrorCode = 104

	// Resource errors (200-299)
	ErrCodeNotFound ErrorCode = 200

	// Connection errors (300-399)
	ErrCodeNotConnected  ErrorCode = 300
	ErrCodeDisconnected  ErrorCode = 301
	ErrCodeTimeout       ErrorCode = 302
	ErrCodeProtocolError ErrorCode = 303

	// Authentication errors (400-499)
	ErrCodeAuthFailed           ErrorCode = 400
	ErrCodeVerificationRequired ErrorCode = 401

	// Broker errors (500-599)
	ErrCodeUnsupported ErrorCode = 500
	ErrCodeRejected    ErrorCode = 501
	ErrCodeUpstream    ErrorCode = 502
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:              "Unknown",
	ErrCodeInvalidParameter:     "InvalidParameter",
	ErrCodeInvalidConfiguration: "InvalidConfiguration",
	ErrCodeInvalidOrder:         "InvalidOrder",
	ErrCodeMissingParameter:     "MissingParameter",
	ErrCodeInvalidProvider:      "InvalidProvider",
	ErrCodeNotFound:             "NotFound",
	ErrCodeNotConnected:         "NotConnected",
	ErrCodeDisconnected:         "Disconnected",
	ErrCodeTimeout:              "Timeout",
	ErrCodeProtocolError:        "ProtocolError",
	ErrCodeAuthFailed:           "AuthFailed",
	ErrCodeVerificationRequired: "VerificationRequired",
	ErrCodeUnsupported:          "Unsupported",
	ErrCodeRejected:             "Rejected",
	ErrCodeUpstream:             "Upstream",
}

// String returns the symbolic name of the code.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}

	return "Unknown"
}
