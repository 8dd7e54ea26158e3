package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/getiva/trackd/errors"
)

func newTestBackend(endpoint string) *Backend {
	b := New(&Config{CloudName: "demo", APIKey: "key123", APISecret: "secret456"})
	b.testEndpoint = endpoint
	b.now = func() time.Time { return time.Unix(1700000000, 0) }
	return b
}

func TestStore_DocumentUploadsAsRaw(t *testing.T) {
	var gotPath string
	var gotForm map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = map[string]string{}
		for k, vs := range r.MultipartForm.Value {
			gotForm[k] = vs[0]
		}
		json.NewEncoder(w).Encode(map[string]string{
			"public_id":  "getiva-uploads/cv_pdf",
			"secure_url": "https://res.cloudinary.com/demo/raw/upload/v1/getiva-uploads/cv_pdf",
		})
	}))
	defer ts.Close()

	b := newTestBackend(ts.URL)
	ref, err := b.Store(context.Background(), []byte("x"), "cv.pdf")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	if gotPath != "/demo/raw/upload" {
		t.Errorf("documents must upload as raw, got path %s", gotPath)
	}
	if gotForm["public_id"] != "cv_pdf" {
		t.Errorf("dots must be flattened in public_id, got %q", gotForm["public_id"])
	}
	if gotForm["folder"] != "getiva-uploads" {
		t.Errorf("unexpected folder %q", gotForm["folder"])
	}

	// raw mode keeps the canonical URL for viewing too
	if ref.ViewURL != ref.DownloadURL {
		t.Errorf("raw uploads must not get the optimized view URL: %s vs %s", ref.ViewURL, ref.DownloadURL)
	}

	// signature covers the sorted signed params plus the secret
	payload := fmt.Sprintf("folder=%s&public_id=%s&timestamp=%s",
		gotForm["folder"], gotForm["public_id"], gotForm["timestamp"])
	sum := sha1.Sum([]byte(payload + "secret456"))
	if gotForm["signature"] != hex.EncodeToString(sum[:]) {
		t.Errorf("signature mismatch: got %q", gotForm["signature"])
	}
}

func TestStore_NonDocumentUploadsAsAutoWithOptimizedView(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]string{
			"public_id":  "getiva-uploads/photo_png",
			"secure_url": "https://res.cloudinary.com/demo/image/upload/v1/getiva-uploads/photo_png",
		})
	}))
	defer ts.Close()

	b := newTestBackend(ts.URL)
	ref, err := b.Store(context.Background(), []byte("x"), "photo.png")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	if gotPath != "/demo/auto/upload" {
		t.Errorf("non-documents must upload as auto, got path %s", gotPath)
	}
	want := "https://res.cloudinary.com/demo/image/upload/f_auto,q_auto/v1/getiva-uploads/photo_png"
	if ref.ViewURL != want {
		t.Errorf("view URL should carry f_auto,q_auto: %s", ref.ViewURL)
	}
	if ref.DownloadURL != "https://res.cloudinary.com/demo/image/upload/v1/getiva-uploads/photo_png" {
		t.Errorf("download URL must stay canonical: %s", ref.DownloadURL)
	}
}

func TestStore_MissingSecureURLFails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"public_id": "x"})
	}))
	defer ts.Close()

	b := newTestBackend(ts.URL)
	_, err := b.Store(context.Background(), []byte("x"), "cv.pdf")
	if apperrors.CodeOf(err) != apperrors.ErrCodeUploadFailed {
		t.Fatalf("expected UPLOAD_FAILED, got %v", err)
	}
}

func TestConfigured(t *testing.T) {
	if New(&Config{}).Configured() {
		t.Error("empty config must report unconfigured")
	}
	if !New(&Config{CloudName: "c", APIKey: "k", APISecret: "s"}).Configured() {
		t.Error("full credentials should be configured")
	}
}
