package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/indieinfra/clipvault/config"
	storageutil "github.com/indieinfra/clipvault/storage/util"
)

// StoreImpl keeps blobs in a local directory. Intended for development and
// tests; the key maps directly onto the relative file path.
type StoreImpl struct {
	basePath   string
	publicBase string
}

func NewFilesystemObjectStore(cfg *config.Objects) (*StoreImpl, error) {
	if cfg == nil || cfg.Filesystem == nil {
		return nil, fmt.Errorf("filesystem object config is nil")
	}

	if err := os.MkdirAll(cfg.Filesystem.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &StoreImpl{
		basePath:   cfg.Filesystem.Path,
		publicBase: storageutil.NormalizeBaseURL(cfg.PublicBaseUrl),
	}, nil
}

func (s *StoreImpl) Put(ctx context.Context, localPath string, key string) error {
	absPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(absPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(absPath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func (s *StoreImpl) Delete(ctx context.Context, key string) error {
	absPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(absPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

func (s *StoreImpl) PublicURL(key string) string {
	return s.publicBase + key
}

// resolve maps a key onto the base path, refusing keys that would escape it.
func (s *StoreImpl) resolve(key string) (string, error) {
	if !filepath.IsLocal(key) {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	return filepath.Join(s.basePath, filepath.FromSlash(key)), nil
}
