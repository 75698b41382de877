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
	ErrCodeInvalidSide          ErrorCode = 103
	ErrCodeInvalidPeriod        ErrorCode = 104
	ErrCodeInsufficientData     ErrorCode = 105
	ErrCodeInvalidDateRange     ErrorCode = 106

	// Data/Resource errors (200-299)
	ErrCodeDataSourceUnavailable ErrorCode = 200
	ErrCodeDataNotFound          ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeMalformedData         ErrorCode = 203

	// Simulation errors (300-399)
	ErrCodeMissingPriceData ErrorCode = 300
	ErrCodeSimulationFailed ErrorCode = 301
	ErrCodeRecorderFailed   ErrorCode = 302

	// Evaluation errors (400-499)
	ErrCodeStrategyNotFound ErrorCode = 400
	ErrCodeStrategyExists   ErrorCode = 401
	ErrCodeEvaluationFailed ErrorCode = 402
	ErrCodeCallbackFailed   ErrorCode = 403

	// Market data errors (500-599)
	ErrCodeMarketDataFetchFailed ErrorCode = 500
	ErrCodeMarketDataWriteFailed ErrorCode = 501
	ErrCodeInvalidProvider       ErrorCode = 502
	ErrCodeInvalidWriter         ErrorCode = 503
)
