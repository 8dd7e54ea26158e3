// Package errors provides unified error handling for the trackd service.
// It implements structured error types with machine-readable codes, HTTP
// status mapping, and retryable detection. The ingest pipeline uses the
// codes to decide whether a storage backend attempt should fail over.
package errors
