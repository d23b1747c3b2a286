package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bobmcallan/medterms/internal/common"
)

// FileImageStore writes uploaded images into a local directory that the
// server exposes under urlPrefix. Objects are never overwritten or deleted.
type FileImageStore struct {
	basePath  string
	urlPrefix string
	logger    *common.Logger
}

// NewFileImageStore creates the directory if needed.
func NewFileImageStore(logger *common.Logger, basePath, urlPrefix string) (*FileImageStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("file image store path is required")
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory %s: %w", basePath, err)
	}

	fi := &FileImageStore{
		basePath:  basePath,
		urlPrefix: urlPrefix,
		logger:    logger,
	}

	logger.Debug().Str("path", basePath).Str("url_prefix", urlPrefix).Msg("FileImageStore initialized")
	return fi, nil
}

// Dir returns the directory images are written to.
func (fi *FileImageStore) Dir() string {
	return fi.basePath
}

// Put streams r to a temp file, then hard-links it into place so an existing
// name is never replaced.
func (fi *FileImageStore) Put(ctx context.Context, name, contentType string, r io.Reader) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(fi.basePath, name)

	tmpFile, err := os.CreateTemp(fi.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set image mode: %w", err)
	}

	if err := os.Link(tmpPath, target); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrImageExists
		}
		return fmt.Errorf("failed to store image %s: %w", name, err)
	}

	fi.logger.Debug().Str("name", name).Str("content_type", contentType).Msg("Image stored")
	return nil
}

// URL returns the public path for name.
func (fi *FileImageStore) URL(name string) string {
	return joinURL(fi.urlPrefix, name)
}

// Close releases resources (no-op for file storage).
func (fi *FileImageStore) Close() error {
	return nil
}
