package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidArgument      ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 102
	ErrCodeMissingParameter     ErrorCode = 103
	ErrCodeMissingCredentials   ErrorCode = 104
	ErrCodeUnsupportedSource    ErrorCode = 105
	ErrCodeInsufficientData     ErrorCode = 106
	ErrCodeIncompatibleVersion  ErrorCode = 107

	// Data/Feed errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeEndOfFeed             ErrorCode = 203
	ErrCodeOutOfOrderBar         ErrorCode = 204

	// Strategy errors (400-499)
	ErrCodeStrategyConfigError  ErrorCode = 400
	ErrCodeStrategyRuntimeError ErrorCode = 401
	ErrCodeUnsupportedStrategy  ErrorCode = 402

	// Broker errors (500-599)
	ErrCodeOrderFailed          ErrorCode = 500
	ErrCodeBrokerDisconnected   ErrorCode = 501
	ErrCodeBrokerTimeout        ErrorCode = 502
	ErrCodeBrokerRequestFailed  ErrorCode = 503
	ErrCodeUnsupportedProvider  ErrorCode = 504
	ErrCodeMarketDataMissing    ErrorCode = 505
	ErrCodeGatewayProtocolError ErrorCode = 506

	// Runner errors (600-699)
	ErrCodeRunnerConfigError ErrorCode = 600
	ErrCodeRunnerInterrupted ErrorCode = 601

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800
)

// IsValidation reports whether the code belongs to the validation range.
func (c ErrorCode) IsValidation() bool {
	return c >= 100 && c < 200
}

// IsConnectivity reports whether the code describes a broker transport failure
// (disconnected session, timeout or failed request).
func (c ErrorCode) IsConnectivity() bool {
	switch c {
	case ErrCodeBrokerDisconnected, ErrCodeBrokerTimeout, ErrCodeBrokerRequestFailed:
		return true
	default:
		return false
	}
}
