package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Input validation errors. Surfaced before any work starts.
const (
	// ErrCodeTypeMismatch indicates the declared result kind conflicts with
	// the actual input collection type.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"
	// ErrCodeUnsupportedInput indicates the input is neither a slice, an
	// array, nor a map.
	ErrCodeUnsupportedInput ErrorCode = "UNSUPPORTED_INPUT"
	// ErrCodeInvalidInput indicates the input is otherwise invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Execution errors.
const (
	// ErrCodeWorkerFailure indicates a worker failed while applying the
	// transform to its partition.
	ErrCodeWorkerFailure ErrorCode = "WORKER_FAILURE"
	// ErrCodeTimeout indicates an operation exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Configuration errors.
const (
	// ErrCodeTargetNotFound indicates a registry lookup for a target key
	// found no registered builder.
	ErrCodeTargetNotFound ErrorCode = "TARGET_NOT_FOUND"
)

// Internal/external errors.
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeExternalService indicates an error from an external service.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:         true,
	ErrCodeExternalService: true,
}

// IsRetryableCode reports whether an error code is considered retryable.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
