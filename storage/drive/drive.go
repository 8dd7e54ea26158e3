// Package drive implements the highest-priority backend on the Google Drive
// REST API. Storing a file is two remote calls: create the object, then
// relax its permissions to public-read. Both must succeed; a file that
// landed but cannot be read is useless to callers, so a failed permission
// call surfaces as a failed store and the orphaned file id is logged, not
// deleted.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	apperrors "github.com/getiva/trackd/errors"
	"github.com/getiva/trackd/storage"
)

const (
	defaultAPIBase    = "https://www.googleapis.com/drive/v3"
	defaultUploadBase = "https://www.googleapis.com/upload/drive/v3"
	defaultTimeout    = 2 * time.Minute
)

// Backend implements storage.Backend using the Google Drive API with a
// service-account credential.
type Backend struct {
	tokens     *tokenSource
	httpClient *http.Client

	apiBase    string
	uploadBase string
}

// New creates a Drive backend from the given config. A missing or
// unparseable service-account file produces a backend that reports itself
// unconfigured; the load error is returned so the caller can log it.
func New(cfg *Config) (*Backend, error) {
	b := &Backend{
		httpClient: &http.Client{Timeout: defaultTimeout},
		apiBase:    defaultAPIBase,
		uploadBase: defaultUploadBase,
	}

	if cfg.CredentialsFile == "" {
		return b, nil
	}
	account, key, err := loadServiceAccount(cfg.CredentialsFile)
	if err != nil {
		return b, err
	}
	b.tokens = &tokenSource{
		account:    account,
		key:        key,
		httpClient: b.httpClient,
	}
	return b, nil
}

// Name implements storage.Backend.
func (b *Backend) Name() string { return "drive" }

// Kind implements storage.Backend.
func (b *Backend) Kind() storage.Kind { return storage.KindDrive }

// Configured implements storage.Backend.
func (b *Backend) Configured() bool { return b.tokens != nil }

// Store uploads content as a Drive file and makes it publicly readable.
func (b *Backend) Store(ctx context.Context, content []byte, filename string) (*storage.Reference, error) {
	if !b.Configured() {
		return nil, apperrors.BackendUnavailable(b.Name())
	}

	token, err := b.tokens.bearer(ctx)
	if err != nil {
		return nil, apperrors.UploadFailed(b.Name(), err)
	}

	fileID, err := b.createFile(ctx, token, content, filename)
	if err != nil {
		return nil, apperrors.UploadFailed(b.Name(), err)
	}

	if err := b.makePublic(ctx, token, fileID); err != nil {
		// The blob landed but is unreadable; surface as failure and carry
		// the orphan id for operator cleanup.
		return nil, apperrors.UploadFailed(b.Name(), err).WithDetail("orphaned_file_id", fileID)
	}

	return &storage.Reference{
		Kind:        storage.KindDrive,
		ViewURL:     fmt.Sprintf("https://drive.google.com/file/d/%s/view", fileID),
		DownloadURL: fmt.Sprintf("https://drive.google.com/uc?export=download&id=%s", fileID),
		BackendID:   fileID,
	}, nil
}

// createFile performs the multipart create call and returns the new file id.
func (b *Backend) createFile(ctx context.Context, token string, content []byte, filename string) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := w.CreatePart(metaHeader)
	if err != nil {
		return "", fmt.Errorf("drive: build metadata part: %w", err)
	}
	if err := json.NewEncoder(metaPart).Encode(map[string]string{"name": filename}); err != nil {
		return "", fmt.Errorf("drive: encode metadata: %w", err)
	}

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", storage.MIMEType(filename))
	mediaPart, err := w.CreatePart(mediaHeader)
	if err != nil {
		return "", fmt.Errorf("drive: build media part: %w", err)
	}
	if _, err := mediaPart.Write(content); err != nil {
		return "", fmt.Errorf("drive: write media part: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("drive: finish multipart body: %w", err)
	}

	u := b.uploadBase + "/files?uploadType=multipart&fields=id"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return "", fmt.Errorf("drive: create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "multipart/related; boundary="+w.Boundary())

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("drive: upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("drive: upload failed (status %d): %s", resp.StatusCode, string(raw))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("drive: decode upload response: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("drive: upload response missing file id")
	}
	return result.ID, nil
}

// makePublic grants anyone-with-the-link read access.
func (b *Backend) makePublic(ctx context.Context, token, fileID string) error {
	payload, _ := json.Marshal(map[string]string{"role": "reader", "type": "anyone"})

	u := fmt.Sprintf("%s/files/%s/permissions", b.apiBase, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("drive: create permission request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("drive: set permission: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("drive: set permission failed (status %d): %s", resp.StatusCode, string(raw))
	}
	return nil
}

// compile-time check
var _ storage.Backend = (*Backend)(nil)
