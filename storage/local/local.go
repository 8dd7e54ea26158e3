// Package local implements the terminal local-filesystem backend with the
// sequential db<N> naming scheme.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/getiva/trackd/errors"
	"github.com/getiva/trackd/storage"
)

// DefaultMaxFiles is the hard ceiling on sequential slots.
const DefaultMaxFiles = 10000

// Backend implements storage.Backend on the local filesystem. Files are
// named db1, db2, ... with the original extension preserved, and served
// under a fixed URL prefix.
type Backend struct {
	basePath    string
	servePrefix string
	maxFiles    int

	// mu serializes slot probing so two concurrent ingests can never
	// observe the same free slot. The file itself is claimed with O_EXCL,
	// which also defends against another process racing the same directory.
	mu sync.Mutex
}

// New creates a local backend rooted at cfg.BasePath, creating the
// directory if needed.
func New(cfg *Config) (*Backend, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("local: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("local: create base directory: %w", err)
	}

	return &Backend{
		basePath:    abs,
		servePrefix: cfg.ServePrefix,
		maxFiles:    cfg.MaxFiles,
	}, nil
}

// Name implements storage.Backend.
func (b *Backend) Name() string { return "local" }

// Kind implements storage.Backend.
func (b *Backend) Kind() storage.Kind { return storage.KindLocal }

// Configured implements storage.Backend. The local backend needs no
// credentials; it is always eligible.
func (b *Backend) Configured() bool { return true }

// BasePath returns the resolved storage directory.
func (b *Backend) BasePath() string { return b.basePath }

// Store writes content into the first free db<N> slot, preserving the
// original file extension. Past the slot ceiling it fails closed as
// unavailable rather than overwriting anything.
func (b *Backend) Store(_ context.Context, content []byte, filename string) (*storage.Reference, error) {
	ext := filepath.Ext(filename)

	b.mu.Lock()
	defer b.mu.Unlock()

	for n := 1; n <= b.maxFiles; n++ {
		slot := fmt.Sprintf("db%d", n)
		if b.slotOccupied(slot) {
			continue
		}

		name := slot + ext
		path := filepath.Join(b.basePath, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return nil, apperrors.UploadFailed(b.Name(), fmt.Errorf("local: claim %s: %w", name, err))
		}

		if _, err := f.Write(content); err != nil {
			f.Close()
			os.Remove(path)
			return nil, apperrors.UploadFailed(b.Name(), fmt.Errorf("local: write %s: %w", name, err))
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return nil, apperrors.UploadFailed(b.Name(), fmt.Errorf("local: close %s: %w", name, err))
		}

		url := b.servePrefix + "/" + name
		return &storage.Reference{
			Kind:        storage.KindLocal,
			ViewURL:     url,
			DownloadURL: url,
			BackendID:   name,
		}, nil
	}

	return nil, apperrors.BackendUnavailable(b.Name()).
		WithDetail("reason", fmt.Sprintf("all %d sequential slots occupied", b.maxFiles))
}

// slotOccupied reports whether any file claims the given slot, regardless
// of extension.
func (b *Backend) slotOccupied(slot string) bool {
	if _, err := os.Stat(filepath.Join(b.basePath, slot)); err == nil {
		return true
	}
	matches, err := filepath.Glob(filepath.Join(b.basePath, slot+".*"))
	return err == nil && len(matches) > 0
}

// compile-time check
var _ storage.Backend = (*Backend)(nil)
