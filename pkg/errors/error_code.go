package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Data errors (100-199). Fatal: the run aborts with the offending
	// bar identified.
	ErrCodeNonMonotonicTimestamp ErrorCode = 100
	ErrCodeMalformedBar          ErrorCode = 101
	ErrCodeEmptySeries           ErrorCode = 102
	ErrCodeDataParseFailed       ErrorCode = 103
	ErrCodeDataNotFound          ErrorCode = 104

	// Config errors (200-299). Fatal at construction, never at run time.
	ErrCodeInvalidParameter     ErrorCode = 200
	ErrCodeInvalidConfiguration ErrorCode = 201
	ErrCodeMissingParameter     ErrorCode = 202
	ErrCodeInvalidType          ErrorCode = 203
	ErrCodeOverlappingWindows   ErrorCode = 204
	ErrCodeInvalidThreshold     ErrorCode = 205
	ErrCodeInvalidSessionClock  ErrorCode = 206

	// Causality violations (300-399). Internal-consistency faults; a
	// signal or event referencing a future bar invalidates every
	// downstream statistic, so these are never silently corrected.
	ErrCodeSignalBeforeEvent ErrorCode = 300
	ErrCodeFillBeforeSignal  ErrorCode = 301
	ErrCodeEventFromFuture   ErrorCode = 302

	// Execution errors (400-499)
	ErrCodeInvalidStopPrice   ErrorCode = 400
	ErrCodeInvalidTargetPrice ErrorCode = 401
	ErrCodePositionNotFound   ErrorCode = 402
	ErrCodeFillFailed         ErrorCode = 403

	// Validation errors (500-599)
	ErrCodeSplitOutOfRange     ErrorCode = 500
	ErrCodeWindowTooShort      ErrorCode = 501
	ErrCodePermutationFailed   ErrorCode = 502
	ErrCodeValidationRunFailed ErrorCode = 503

	// Results/storage errors (600-699)
	ErrCodeStoreInitFailed ErrorCode = 600
	ErrCodeStoreWriteFailed ErrorCode = 601
	ErrCodeStoreExportFailed ErrorCode = 602
)
