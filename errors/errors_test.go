package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestUploadFailedWrapsCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := UploadFailed("cloudinary", cause)

	if err.Code != ErrCodeUploadFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrCodeUploadFailed)
	}
	if !err.Retryable {
		t.Error("upload failures should be retryable")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
	if err.Details["backend"] != "cloudinary" {
		t.Errorf("Details[backend] = %v, want cloudinary", err.Details["backend"])
	}
}

func TestBackendUnavailableIsNotRetryable(t *testing.T) {
	err := BackendUnavailable("drive")
	if err.Retryable {
		t.Error("unconfigured backend should not be marked retryable")
	}
	if err.HTTPStatus != http.StatusServiceUnavailable {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusServiceUnavailable)
	}
}

func TestAllBackendsFailedCarriesReasons(t *testing.T) {
	reasons := map[string]string{
		"drive":    "not configured",
		"supabase": "status 500",
	}
	err := AllBackendsFailed(reasons)

	got, ok := err.Details["attempts"].(map[string]string)
	if !ok {
		t.Fatalf("Details[attempts] has type %T, want map[string]string", err.Details["attempts"])
	}
	if got["supabase"] != "status 500" {
		t.Errorf("attempts[supabase] = %q, want %q", got["supabase"], "status 500")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"app error", BackendUnavailable("drive"), ErrCodeBackendUnavailable},
		{"wrapped app error", fmt.Errorf("ingest: %w", ReferenceNotFound("/uploads/db1.pdf")), ErrCodeReferenceNotFound},
		{"plain error", errors.New("boom"), ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToResponse(t *testing.T) {
	resp := InvalidReference("not a URL").ToResponse()
	if resp.Error.Code != ErrCodeInvalidReference {
		t.Errorf("response code = %q, want %q", resp.Error.Code, ErrCodeInvalidReference)
	}
	if resp.Error.Details["reason"] != "not a URL" {
		t.Errorf("response details = %v", resp.Error.Details)
	}
}
