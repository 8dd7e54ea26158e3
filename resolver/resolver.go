// Package resolver turns stored file references back into render plans for
// viewing and downloading. External content is proxied with a bounded
// timeout; when a third-party endpoint is flaky the view path degrades to a
// redirect instead of failing, so the viewer stays usable.
package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	apperrors "github.com/getiva/trackd/errors"
	"github.com/getiva/trackd/logger"
	"github.com/getiva/trackd/storage"
)

// DefaultFetchTimeout bounds each outbound proxy fetch.
const DefaultFetchTimeout = 15 * time.Second

const downloadFetchTries = 3

// Resolver resolves stored references into render plans.
type Resolver struct {
	localDir    string
	localPrefix string
	httpClient  *http.Client
	log         *logger.Logger
}

// New creates a Resolver. localDir is the directory behind localPrefix
// (the local backend's serving area).
func New(log *logger.Logger, localDir, localPrefix string, fetchTimeout time.Duration) *Resolver {
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	if localPrefix == "" {
		localPrefix = "/uploads"
	}
	return &Resolver{
		localDir:    localDir,
		localPrefix: localPrefix,
		httpClient:  &http.Client{Timeout: fetchTimeout},
		log:         log.WithComponent("resolver"),
	}
}

// Resolve produces a render plan for the given reference URL and intent.
// It fails only for unresolvable local paths and malformed references;
// remote fetch failures degrade per intent instead of propagating.
func (r *Resolver) Resolve(ctx context.Context, ref string, intent Intent) (*Plan, error) {
	if ref == "" {
		return nil, apperrors.InvalidReference("empty reference")
	}

	if strings.HasPrefix(ref, r.localPrefix+"/") {
		return r.resolveLocal(ref, intent)
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperrors.InvalidReference("unsupported URL shape")
	}

	if intent == IntentView {
		if id, ok := driveFileID(u); ok {
			return embedPlan(fmt.Sprintf("https://drive.google.com/file/d/%s/preview", id)), nil
		}
		if isOfficeDocument(u.Path) {
			viewer := "https://docs.google.com/viewer?url=" + url.QueryEscape(ref) + "&embedded=true"
			return embedPlan(viewer), nil
		}
	}

	if intent == IntentDownload {
		return r.resolveDownload(ctx, u, ref)
	}
	return r.resolveView(ctx, u, ref)
}

// resolveLocal serves a file from the local backend's directory.
func (r *Resolver) resolveLocal(ref string, intent Intent) (*Plan, error) {
	name := strings.TrimPrefix(ref, r.localPrefix+"/")
	if name == "" || name != path.Base(name) {
		return nil, apperrors.InvalidReference("local reference escapes the uploads directory")
	}

	content, err := os.ReadFile(filepath.Join(r.localDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ReferenceNotFound(ref)
		}
		return nil, apperrors.Internal(fmt.Errorf("resolver: read local file: %w", err))
	}

	return &Plan{
		Kind:        PlanServeBytes,
		Content:     content,
		MIMEType:    storage.MIMEType(name),
		Disposition: dispositionFor(intent),
		Filename:    name,
	}, nil
}

// resolveView proxies the remote file for inline display, degrading to a
// redirect when the fetch fails.
func (r *Resolver) resolveView(ctx context.Context, u *url.URL, ref string) (*Plan, error) {
	fetchURL := withViewHints(u)

	content, mimeType, err := r.fetch(ctx, fetchURL)
	if err != nil {
		// Deliberate degrade: a redirect to the raw URL keeps the viewer
		// usable when the storage endpoint is flaky.
		r.log.Warn("view proxy failed, redirecting", logger.Fields(
			"url", ref,
			logger.FieldError, err.Error(),
		))
		return &Plan{Kind: PlanRedirect, Location: ref}, nil
	}

	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = storage.MIMEType(u.Path)
	}
	return &Plan{
		Kind:        PlanServeBytes,
		Content:     content,
		MIMEType:    mimeType,
		Disposition: DispositionInline,
		Filename:    path.Base(u.Path),
	}, nil
}

// resolveDownload always proxies with attachment disposition. The hinted
// fetch is retried, then the plain origin URL is attempted; only when every
// fetch fails does it fall back to a redirect, since serving nothing at all
// would be worse than handing the browser the raw URL.
func (r *Resolver) resolveDownload(ctx context.Context, u *url.URL, ref string) (*Plan, error) {
	fetchURL := withDownloadHints(u)

	operation := func() (*Plan, error) {
		content, mimeType, err := r.fetch(ctx, fetchURL)
		if err != nil {
			return nil, err
		}
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = storage.MIMEType(u.Path)
		}
		return &Plan{
			Kind:        PlanServeBytes,
			Content:     content,
			MIMEType:    mimeType,
			Disposition: DispositionAttachment,
			Filename:    path.Base(u.Path),
		}, nil
	}

	plan, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(downloadFetchTries),
	)
	if err == nil {
		return plan, nil
	}

	if fetchURL != ref {
		if content, mimeType, originErr := r.fetch(ctx, ref); originErr == nil {
			if mimeType == "" || mimeType == "application/octet-stream" {
				mimeType = storage.MIMEType(u.Path)
			}
			return &Plan{
				Kind:        PlanServeBytes,
				Content:     content,
				MIMEType:    mimeType,
				Disposition: DispositionAttachment,
				Filename:    path.Base(u.Path),
			}, nil
		}
	}

	r.log.Warn("download proxy exhausted, redirecting", logger.Fields(
		"url", ref,
		logger.FieldError, err.Error(),
	))
	return &Plan{Kind: PlanRedirect, Location: ref}, nil
}

// fetch retrieves a remote resource, returning its bytes and content type.
func (r *Resolver) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("resolver: create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("resolver: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("resolver: fetch failed (status %d)", resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("resolver: read body: %w", err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	return content, mimeType, nil
}

func dispositionFor(intent Intent) string {
	if intent == IntentDownload {
		return DispositionAttachment
	}
	return DispositionInline
}

// driveFileID extracts the file id from a Drive view link
// (https://drive.google.com/file/d/<id>/view).
func driveFileID(u *url.URL) (string, bool) {
	if u.Host != "drive.google.com" {
		return "", false
	}
	const marker = "/file/d/"
	idx := strings.Index(u.Path, marker)
	if idx < 0 {
		return "", false
	}
	rest := u.Path[idx+len(marker):]
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		rest = rest[:slash]
	}
	return rest, rest != ""
}

// isOfficeDocument reports whether the URL path points at a Word document,
// which browsers cannot render inline without an external viewer.
func isOfficeDocument(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	return ext == ".doc" || ext == ".docx"
}

// embedPlan wraps a viewer URL in a minimal full-viewport iframe page.
func embedPlan(src string) *Plan {
	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<title>Document</title>
<style>html,body{margin:0;padding:0;height:100%%;overflow:hidden}iframe{border:0;width:100%%;height:100%%}</style>
</head>
<body><iframe src=%q allowfullscreen></iframe></body>
</html>
`, src)
	return &Plan{Kind: PlanEmbedViewer, HTML: html}
}
