package drive

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/getiva/trackd/errors"
	"github.com/getiva/trackd/storage"
)

// newTestBackend points every remote call at the test server: token
// exchange, file upload, and the permission call.
func newTestBackend(t *testing.T, ts *httptest.Server) *Backend {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &Backend{
		tokens: &tokenSource{
			account: &serviceAccount{
				ClientEmail: "svc@test.iam.gserviceaccount.com",
				TokenURI:    ts.URL + "/token",
			},
			key:        key,
			httpClient: ts.Client(),
		},
		httpClient: ts.Client(),
		apiBase:    ts.URL + "/drive/v3",
		uploadBase: ts.URL + "/upload/drive/v3",
	}
}

func driveServer(t *testing.T, permissionStatus int) (*httptest.Server, *[]string) {
	t.Helper()
	var calls []string
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "token")
		if err := r.ParseForm(); err != nil || r.PostFormValue("assertion") == "" {
			t.Error("token exchange must carry a signed assertion")
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/upload/drive/v3/files", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "upload")
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/related") {
			t.Errorf("expected multipart/related, got %q", ct)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "file-123"})
	})
	mux.HandleFunc("/drive/v3/files/file-123/permissions", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "permissions")
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil ||
			body["role"] != "reader" || body["type"] != "anyone" {
			t.Errorf("unexpected permission body %v", body)
		}
		w.WriteHeader(permissionStatus)
	})
	return httptest.NewServer(mux), &calls
}

func TestStore_CreatesFileAndMakesItPublic(t *testing.T) {
	ts, calls := driveServer(t, http.StatusOK)
	defer ts.Close()

	b := newTestBackend(t, ts)
	ref, err := b.Store(context.Background(), []byte("x"), "cv.pdf")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	want := []string{"token", "upload", "permissions"}
	if len(*calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, *calls)
	}
	for i, c := range want {
		if (*calls)[i] != c {
			t.Fatalf("expected calls %v, got %v", want, *calls)
		}
	}

	if ref.Kind != storage.KindDrive || ref.BackendID != "file-123" {
		t.Errorf("unexpected reference %+v", ref)
	}
	if ref.ViewURL != "https://drive.google.com/file/d/file-123/view" {
		t.Errorf("unexpected view URL %s", ref.ViewURL)
	}
	if ref.DownloadURL != "https://drive.google.com/uc?export=download&id=file-123" {
		t.Errorf("unexpected download URL %s", ref.DownloadURL)
	}
}

func TestStore_PermissionFailureCarriesOrphanID(t *testing.T) {
	ts, _ := driveServer(t, http.StatusForbidden)
	defer ts.Close()

	b := newTestBackend(t, ts)
	_, err := b.Store(context.Background(), []byte("x"), "cv.pdf")
	if apperrors.CodeOf(err) != apperrors.ErrCodeUploadFailed {
		t.Fatalf("expected UPLOAD_FAILED, got %v", err)
	}

	appErr, _ := apperrors.AsAppError(err)
	if appErr.Details["orphaned_file_id"] != "file-123" {
		t.Errorf("expected orphaned file id in details, got %v", appErr.Details)
	}
}

func TestStore_UnconfiguredIsUnavailable(t *testing.T) {
	b, err := New(&Config{})
	if err != nil {
		t.Fatalf("New with empty config should not error: %v", err)
	}
	if b.Configured() {
		t.Fatal("backend without credentials must report unconfigured")
	}
	_, err = b.Store(context.Background(), []byte("x"), "cv.pdf")
	if apperrors.CodeOf(err) != apperrors.ErrCodeBackendUnavailable {
		t.Fatalf("expected BACKEND_UNAVAILABLE, got %v", err)
	}
}

func TestTokenSource_CachesUntilExpiry(t *testing.T) {
	ts, calls := driveServer(t, http.StatusOK)
	defer ts.Close()

	b := newTestBackend(t, ts)
	ctx := context.Background()
	if _, err := b.tokens.bearer(ctx); err != nil {
		t.Fatalf("bearer: %v", err)
	}
	if _, err := b.tokens.bearer(ctx); err != nil {
		t.Fatalf("bearer: %v", err)
	}

	exchanges := 0
	for _, c := range *calls {
		if c == "token" {
			exchanges++
		}
	}
	if exchanges != 1 {
		t.Fatalf("expected one token exchange, got %d", exchanges)
	}
}
