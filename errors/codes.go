package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Storage pipeline errors
const (
	// ErrCodeBackendUnavailable indicates a storage backend has no usable
	// configuration. Expected during failover; not an operational fault.
	ErrCodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	// ErrCodeUploadFailed indicates a reachable backend errored during upload.
	ErrCodeUploadFailed ErrorCode = "UPLOAD_FAILED"
	// ErrCodeAllBackendsFailed indicates every backend in the chain failed.
	ErrCodeAllBackendsFailed ErrorCode = "ALL_BACKENDS_FAILED"
)

// Resolver errors
const (
	// ErrCodeReferenceNotFound indicates a stored reference points at a
	// local file that no longer exists.
	ErrCodeReferenceNotFound ErrorCode = "REFERENCE_NOT_FOUND"
	// ErrCodeInvalidReference indicates a malformed or unsupported reference.
	ErrCodeInvalidReference ErrorCode = "INVALID_REFERENCE"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAlreadyExists indicates the resource already exists.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Authentication errors
const (
	// ErrCodeUnauthorized indicates the request is unauthorized.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeDatabaseError indicates a record store error.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeUploadFailed:      true,
	ErrCodeAllBackendsFailed: true,
	ErrCodeDatabaseError:     true,
}

// IsRetryableCode reports whether an operation failing with the given code
// may be retried by the caller.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
