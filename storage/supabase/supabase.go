// Package supabase implements the bucket-storage backend on the Supabase
// Storage REST API. Uploads are upserts keyed by object name, so a second
// upload under the same name overwrites the first (last writer wins).
package supabase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/getiva/trackd/errors"
	"github.com/getiva/trackd/storage"
)

const defaultTimeout = 2 * time.Minute

// Backend implements storage.Backend using the Supabase Storage REST API.
type Backend struct {
	baseURL    string
	bucket     string
	secretKey  string
	httpClient *http.Client
}

// New creates a Supabase backend. An empty URL or secret key produces a
// backend that reports itself unconfigured and is skipped by the chain.
func New(cfg *Config) *Backend {
	cfg.ApplyDefaults()
	return &Backend{
		baseURL:   strings.TrimRight(cfg.URL, "/") + "/storage/v1",
		bucket:    cfg.Bucket,
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// Name implements storage.Backend.
func (b *Backend) Name() string { return "supabase" }

// Kind implements storage.Backend.
func (b *Backend) Kind() storage.Kind { return storage.KindSupabase }

// Configured implements storage.Backend.
func (b *Backend) Configured() bool {
	return b.baseURL != "/storage/v1" && b.bucket != "" && b.secretKey != ""
}

// Store upserts content under filename and returns the bucket's public URL
// for both viewing and downloading.
func (b *Backend) Store(ctx context.Context, content []byte, filename string) (*storage.Reference, error) {
	if !b.Configured() {
		return nil, apperrors.BackendUnavailable(b.Name())
	}

	u := fmt.Sprintf("%s/object/%s/%s", b.baseURL, b.bucket, filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(content))
	if err != nil {
		return nil, apperrors.UploadFailed(b.Name(), fmt.Errorf("supabase: create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+b.secretKey)
	req.Header.Set("Content-Type", storage.MIMEType(filename))
	req.Header.Set("x-upsert", "true")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.UploadFailed(b.Name(), fmt.Errorf("supabase: upload: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, apperrors.UploadFailed(b.Name(),
			fmt.Errorf("supabase: upload failed (status %d): %s", resp.StatusCode, string(body)))
	}

	publicURL := fmt.Sprintf("%s/object/public/%s/%s", b.baseURL, b.bucket, filename)
	return &storage.Reference{
		Kind:        storage.KindSupabase,
		ViewURL:     publicURL,
		DownloadURL: publicURL,
		BackendID:   filename,
	}, nil
}

// compile-time check
var _ storage.Backend = (*Backend)(nil)
