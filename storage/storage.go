package storage

import (
	"context"
)

// Kind identifies which storage provider holds an uploaded file.
type Kind string

// Supported backend kinds, in chain priority order.
const (
	KindDrive      Kind = "drive"
	KindSupabase   Kind = "supabase"
	KindCloudinary Kind = "cloudinary"
	KindLocal      Kind = "local"
)

// Reference is the durable, backend-tagged pointer to an uploaded file.
// It is produced exactly once at ingest time and stored alongside the
// business record; ViewURL and DownloadURL may be identical.
type Reference struct {
	Kind        Kind   `json:"kind"`
	ViewURL     string `json:"view_url"`
	DownloadURL string `json:"download_url"`

	// BackendID is the backend-native identifier (Drive file id, bucket
	// object name, Cloudinary public id, or local relative filename) kept
	// for future deletion/audit.
	BackendID string `json:"backend_id"`
}

// Backend wraps one storage provider behind a uniform store contract.
//
// Store must fail with an apperrors code of ErrCodeBackendUnavailable when
// the provider has no usable credentials, and ErrCodeUploadFailed when a
// remote call errors. Any remote write that leaves the file unreadable
// (e.g. a failed permission relaxation) counts as a failed store.
type Backend interface {
	// Name returns a short identifier used in logs and failure reasons.
	Name() string

	// Kind returns the backend kind recorded on produced References.
	Kind() Kind

	// Configured reports whether the backend has usable configuration.
	// Unconfigured backends are skipped without a network round-trip.
	Configured() bool

	// Store durably places content under filename and returns a Reference.
	Store(ctx context.Context, content []byte, filename string) (*Reference, error)
}
