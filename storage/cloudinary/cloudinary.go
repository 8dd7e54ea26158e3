// Package cloudinary implements the CDN-media backend on the Cloudinary
// upload REST API. Documents upload in "raw" mode; anything else uses
// "auto" mode, where the view link is the format/quality-optimized delivery
// variant while the download link stays the canonical secure URL.
package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/getiva/trackd/errors"
	"github.com/getiva/trackd/storage"
)

const (
	uploadEndpoint = "https://api.cloudinary.com/v1_1"
	defaultTimeout = 2 * time.Minute
)

// Backend implements storage.Backend using the Cloudinary upload API.
type Backend struct {
	cloudName  string
	apiKey     string
	apiSecret  string
	folder     string
	httpClient *http.Client

	// now is swappable for deterministic signature tests.
	now func() time.Time

	// testEndpoint redirects uploads to a test server when set.
	testEndpoint string
}

// New creates a Cloudinary backend. Missing credentials produce a backend
// that reports itself unconfigured and is skipped by the chain.
func New(cfg *Config) *Backend {
	cfg.ApplyDefaults()
	return &Backend{
		cloudName: cfg.CloudName,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		folder:    cfg.Folder,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		now: time.Now,
	}
}

// Name implements storage.Backend.
func (b *Backend) Name() string { return "cloudinary" }

// Kind implements storage.Backend.
func (b *Backend) Kind() storage.Kind { return storage.KindCloudinary }

// Configured implements storage.Backend.
func (b *Backend) Configured() bool {
	return b.cloudName != "" && b.apiKey != "" && b.apiSecret != ""
}

type uploadResponse struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
}

// Store uploads content with the configured folder prefix and returns the
// delivery URLs. Dots in the public id are flattened so the extension does
// not collide with Cloudinary's format suffix handling.
func (b *Backend) Store(ctx context.Context, content []byte, filename string) (*storage.Reference, error) {
	if !b.Configured() {
		return nil, apperrors.BackendUnavailable(b.Name())
	}

	resourceType := "auto"
	if storage.IsDocument(filename) {
		resourceType = "raw"
	}
	publicID := strings.ReplaceAll(filename, ".", "_")
	timestamp := strconv.FormatInt(b.now().Unix(), 10)

	params := map[string]string{
		"folder":    b.folder,
		"public_id": publicID,
		"timestamp": timestamp,
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range params {
		if err := w.WriteField(k, v); err != nil {
			return nil, apperrors.UploadFailed(b.Name(), fmt.Errorf("cloudinary: build form: %w", err))
		}
	}
	if err := w.WriteField("api_key", b.apiKey); err != nil {
		return nil, apperrors.UploadFailed(b.Name(), fmt.Errorf("cloudinary: build form: %w", err))
	}
	if err := w.WriteField("signature", b.sign(params)); err != nil {
		return nil, apperrors.UploadFailed(b.Name(), fmt.Errorf("cloudinary: build form: %w", err))
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, apperrors.UploadFailed(b.Name(), fmt.Errorf("cloudinary: build form: %w", err))
	}
	if _, err := part.Write(content); err != nil {
		return nil, apperrors.UploadFailed(b.Name(), fmt.Errorf("cloudinary: build form: %w", err))
	}
	if err := w.Close(); err != nil {
		return nil, apperrors.UploadFailed(b.Name(), fmt.Errorf("cloudinary: build form: %w", err))
	}

	u := fmt.Sprintf("%s/%s/%s/upload", b.endpoint(), b.cloudName, resourceType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return nil, apperrors.UploadFailed(b.Name(), fmt.Errorf("cloudinary: create request: %w", err))
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.UploadFailed(b.Name(), fmt.Errorf("cloudinary: upload: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, apperrors.UploadFailed(b.Name(),
			fmt.Errorf("cloudinary: upload failed (status %d): %s", resp.StatusCode, string(raw)))
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.UploadFailed(b.Name(), fmt.Errorf("cloudinary: decode response: %w", err))
	}
	if result.SecureURL == "" {
		return nil, apperrors.UploadFailed(b.Name(), fmt.Errorf("cloudinary: response missing secure_url"))
	}

	viewURL := result.SecureURL
	if resourceType == "auto" {
		viewURL = optimizedURL(result.SecureURL)
	}

	return &storage.Reference{
		Kind:        storage.KindCloudinary,
		ViewURL:     viewURL,
		DownloadURL: result.SecureURL,
		BackendID:   result.PublicID,
	}, nil
}

// sign computes the upload signature: sha1 of the alphabetically sorted
// parameter string concatenated with the API secret.
func (b *Backend) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + b.apiSecret))
	return hex.EncodeToString(sum[:])
}

// endpoint is overridable in tests.
func (b *Backend) endpoint() string {
	if b.testEndpoint != "" {
		return b.testEndpoint
	}
	return uploadEndpoint
}

var _ storage.Backend = (*Backend)(nil)

// optimizedURL inserts the f_auto,q_auto delivery transformation into a
// Cloudinary secure URL.
func optimizedURL(secureURL string) string {
	return strings.Replace(secureURL, "/upload/", "/upload/f_auto,q_auto/", 1)
}
