package resolver_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/getiva/trackd/errors"
	"github.com/getiva/trackd/logger"
	"github.com/getiva/trackd/resolver"
)

func newResolver(t *testing.T) (*resolver.Resolver, string) {
	t.Helper()
	dir := t.TempDir()
	return resolver.New(logger.Nop(), dir, "/uploads", time.Second), dir
}

func TestResolve_EmptyAndMalformedReferences(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	for _, ref := range []string{"", "not-a-url", "ftp://host/file.pdf"} {
		_, err := r.Resolve(ctx, ref, resolver.IntentView)
		if apperrors.CodeOf(err) != apperrors.ErrCodeInvalidReference {
			t.Errorf("Resolve(%q) expected INVALID_REFERENCE, got %v", ref, err)
		}
	}
}

func TestResolve_LocalServesBytes(t *testing.T) {
	r, dir := newResolver(t)
	if err := os.WriteFile(filepath.Join(dir, "db1.pdf"), []byte("local-bytes"), 0o640); err != nil {
		t.Fatal(err)
	}

	plan, err := r.Resolve(context.Background(), "/uploads/db1.pdf", resolver.IntentDownload)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if plan.Kind != resolver.PlanServeBytes {
		t.Fatalf("expected serve_bytes, got %s", plan.Kind)
	}
	if string(plan.Content) != "local-bytes" {
		t.Errorf("unexpected content %q", plan.Content)
	}
	if plan.MIMEType != "application/pdf" {
		t.Errorf("unexpected mime type %s", plan.MIMEType)
	}
	if plan.Disposition != resolver.DispositionAttachment {
		t.Errorf("download intent must serve as attachment, got %s", plan.Disposition)
	}
}

func TestResolve_LocalMissingAndEscaping(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "/uploads/db9.pdf", resolver.IntentView)
	if apperrors.CodeOf(err) != apperrors.ErrCodeReferenceNotFound {
		t.Errorf("expected REFERENCE_NOT_FOUND, got %v", err)
	}

	_, err = r.Resolve(ctx, "/uploads/../secrets.txt", resolver.IntentView)
	if apperrors.CodeOf(err) != apperrors.ErrCodeInvalidReference {
		t.Errorf("path escape must be rejected, got %v", err)
	}
}

func TestResolve_RemoteViewProxiesInline(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf; charset=binary")
		w.Write([]byte("remote-bytes"))
	}))
	defer ts.Close()

	r, _ := newResolver(t)
	plan, err := r.Resolve(context.Background(), ts.URL+"/cv.pdf", resolver.IntentView)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if plan.Kind != resolver.PlanServeBytes {
		t.Fatalf("expected serve_bytes, got %s", plan.Kind)
	}
	if plan.Disposition != resolver.DispositionInline {
		t.Errorf("view intent must serve inline, got %s", plan.Disposition)
	}
	if plan.MIMEType != "application/pdf" {
		t.Errorf("content-type parameters must be stripped, got %s", plan.MIMEType)
	}
}

func TestResolve_RemoteViewDegradesToRedirect(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer ts.Close()

	r, _ := newResolver(t)
	ref := ts.URL + "/cv.pdf"
	plan, err := r.Resolve(context.Background(), ref, resolver.IntentView)
	if err != nil {
		t.Fatalf("view must degrade, not fail: %v", err)
	}
	if plan.Kind != resolver.PlanRedirect || plan.Location != ref {
		t.Fatalf("expected redirect to %s, got %+v", ref, plan)
	}
}

func TestResolve_DownloadRetriesThenRedirects(t *testing.T) {
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer ts.Close()

	r, _ := newResolver(t)
	ref := ts.URL + "/storage/v1/object/public/pdfs/cv.pdf"
	plan, err := r.Resolve(context.Background(), ref, resolver.IntentDownload)
	if err != nil {
		t.Fatalf("download must degrade, not fail: %v", err)
	}
	if plan.Kind != resolver.PlanRedirect || plan.Location != ref {
		t.Fatalf("expected redirect fallback, got %+v", plan)
	}
	// 3 hinted tries plus the plain-origin attempt
	if hits != 4 {
		t.Errorf("expected 4 fetch attempts, got %d", hits)
	}
}

func TestResolve_SupabaseDownloadHint(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("download")
		w.Write([]byte("x"))
	}))
	defer ts.Close()

	r, _ := newResolver(t)
	ref := ts.URL + "/storage/v1/object/public/pdfs/cv.pdf"
	if _, err := r.Resolve(context.Background(), ref, resolver.IntentDownload); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if gotQuery != "true" {
		t.Errorf("expected download=true hint, got %q", gotQuery)
	}
}

func TestResolve_DriveViewEmbedsPreview(t *testing.T) {
	r, _ := newResolver(t)
	ref := "https://drive.google.com/file/d/abc123/view"
	plan, err := r.Resolve(context.Background(), ref, resolver.IntentView)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if plan.Kind != resolver.PlanEmbedViewer {
		t.Fatalf("expected embed_viewer, got %s", plan.Kind)
	}
	if !strings.Contains(plan.HTML, "https://drive.google.com/file/d/abc123/preview") {
		t.Errorf("embed HTML should target the preview URL:\n%s", plan.HTML)
	}
}

func TestResolve_OfficeDocumentViewUsesGoogleViewer(t *testing.T) {
	r, _ := newResolver(t)
	ref := "https://files.example.com/cv.docx"
	plan, err := r.Resolve(context.Background(), ref, resolver.IntentView)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if plan.Kind != resolver.PlanEmbedViewer {
		t.Fatalf("expected embed_viewer, got %s", plan.Kind)
	}
	if !strings.Contains(plan.HTML, "docs.google.com/viewer") {
		t.Errorf("embed HTML should use the docs viewer:\n%s", plan.HTML)
	}
}

func TestResolve_IsIdempotent(t *testing.T) {
	r, dir := newResolver(t)
	if err := os.WriteFile(filepath.Join(dir, "db1.pdf"), []byte("same"), 0o640); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	first, err := r.Resolve(ctx, "/uploads/db1.pdf", resolver.IntentView)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Resolve(ctx, "/uploads/db1.pdf", resolver.IntentView)
	if err != nil {
		t.Fatal(err)
	}
	if string(first.Content) != string(second.Content) || first.Kind != second.Kind {
		t.Error("resolving the same reference twice must yield the same plan")
	}
}
