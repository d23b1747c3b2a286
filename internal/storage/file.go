// Package storage provides the terms file store and image byte stores.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bobmcallan/medterms/internal/common"
	"github.com/bobmcallan/medterms/internal/models"
)

// TermFileStore keeps every term in one JSON array on disk.
//
// Writes are serialized by mu and persisted with temp file + rename. Reads are
// served from an in-memory snapshot that is refreshed after each write and
// whenever the file's size or modification time changes underneath it.
type TermFileStore struct {
	path     string
	versions int
	logger   *common.Logger

	mu       sync.RWMutex
	snapshot []models.Term
	stamp    fileStamp
	loaded   bool
}

type fileStamp struct {
	size    int64
	modTime time.Time
}

func stampOf(info os.FileInfo) fileStamp {
	return fileStamp{size: info.Size(), modTime: info.ModTime()}
}

// FileStoreOption configures a TermFileStore.
type FileStoreOption func(*TermFileStore)

// WithVersions keeps n rotated backups (terms.json.v1 is the most recent).
func WithVersions(n int) FileStoreOption {
	return func(fs *TermFileStore) {
		if n > 0 {
			fs.versions = n
		}
	}
}

// NewTermFileStore creates a store for the given path. The file is not read
// until the first Load or Update.
func NewTermFileStore(logger *common.Logger, path string, opts ...FileStoreOption) *TermFileStore {
	fs := &TermFileStore{
		path:   path,
		logger: logger,
	}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// Path returns the terms file location.
func (fs *TermFileStore) Path() string {
	return fs.path
}

// Load returns a copy of every record in file order.
func (fs *TermFileStore) Load(ctx context.Context) ([]models.Term, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(fs.path)
	if err != nil {
		return nil, fs.readError(err)
	}

	fs.mu.RLock()
	if fs.loaded && fs.stamp == stampOf(info) {
		out := cloneTerms(fs.snapshot)
		fs.mu.RUnlock()
		return out, nil
	}
	fs.mu.RUnlock()

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.refreshLocked(); err != nil {
		return nil, err
	}
	return cloneTerms(fs.snapshot), nil
}

// Update applies fn to the current records and persists the result.
// fn receives a private copy; returning an error aborts without writing.
func (fs *TermFileStore) Update(ctx context.Context, fn func(terms []models.Term) ([]models.Term, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.refreshLocked(); err != nil {
		return err
	}

	next, err := fn(cloneTerms(fs.snapshot))
	if err != nil {
		return err
	}
	if next == nil {
		next = []models.Term{}
	}

	if err := fs.writeLocked(next); err != nil {
		return err
	}

	fs.logger.Debug().Str("path", fs.path).Int("terms", len(next)).Msg("Terms file written")
	return nil
}

// Init writes an empty array if the terms file does not exist yet.
func (fs *TermFileStore) Init(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := os.Stat(fs.path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fs.readError(err)
	}

	if err := os.MkdirAll(filepath.Dir(fs.path), 0755); err != nil {
		return false, models.WrapError(models.KindStoreWrite, "failed to create terms directory", err)
	}
	if err := fs.writeLocked([]models.Term{}); err != nil {
		return false, err
	}

	fs.logger.Info().Str("path", fs.path).Msg("Created empty terms file")
	return true, nil
}

// refreshLocked re-reads the file if it changed since the last snapshot.
// Caller holds mu for writing.
func (fs *TermFileStore) refreshLocked() error {
	info, err := os.Stat(fs.path)
	if err != nil {
		return fs.readError(err)
	}
	if fs.loaded && fs.stamp == stampOf(info) {
		return nil
	}

	data, err := os.ReadFile(fs.path)
	if err != nil {
		return fs.readError(err)
	}

	var terms []models.Term
	if err := json.Unmarshal(data, &terms); err != nil {
		return models.WrapError(models.KindStoreRead, "failed to parse terms file", err)
	}

	fs.snapshot = terms
	fs.stamp = stampOf(info)
	fs.loaded = true

	fs.logger.Debug().Str("path", fs.path).Int("terms", len(terms)).Msg("Terms file loaded")
	return nil
}

// writeLocked marshals terms as indented JSON and replaces the file atomically.
// Caller holds mu for writing.
func (fs *TermFileStore) writeLocked(terms []models.Term) error {
	data, err := encodeTerms(terms)
	if err != nil {
		return models.WrapError(models.KindStoreWrite, "failed to encode terms", err)
	}

	dir := filepath.Dir(fs.path)
	mode := os.FileMode(0644)
	if info, err := os.Stat(fs.path); err == nil {
		mode = info.Mode().Perm()
	}

	if fs.versions > 0 {
		fs.rotateVersions()
	}

	tmpFile, err := os.CreateTemp(dir, ".terms-*.tmp")
	if err != nil {
		return models.WrapError(models.KindStoreWrite, "failed to create temp file", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return models.WrapError(models.KindStoreWrite, "failed to write temp file", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return models.WrapError(models.KindStoreWrite, "failed to sync temp file", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return models.WrapError(models.KindStoreWrite, "failed to close temp file", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return models.WrapError(models.KindStoreWrite, "failed to set file mode", err)
	}

	if err := os.Rename(tmpPath, fs.path); err != nil {
		os.Remove(tmpPath)
		return models.WrapError(models.KindStoreWrite, "failed to replace terms file", err)
	}

	info, err := os.Stat(fs.path)
	if err != nil {
		// Written, but force a re-read next time.
		fs.loaded = false
		return nil
	}
	fs.snapshot = cloneTerms(terms)
	fs.stamp = stampOf(info)
	fs.loaded = true
	return nil
}

// rotateVersions shifts backups up and copies the current file to v1.
// v{N} -> deleted, v{N-1} -> v{N}, ..., v1 -> v2, current -> v1
func (fs *TermFileStore) rotateVersions() {
	if _, err := os.Stat(fs.path); err != nil {
		return
	}

	os.Remove(fmt.Sprintf("%s.v%d", fs.path, fs.versions))
	for i := fs.versions; i > 1; i-- {
		os.Rename(fmt.Sprintf("%s.v%d", fs.path, i-1), fmt.Sprintf("%s.v%d", fs.path, i))
	}

	// The live file must stay in place until the rename, so copy rather than move.
	if err := copyFile(fs.path, fs.path+".v1"); err != nil {
		fs.logger.Warn().Err(err).Str("path", fs.path).Msg("Failed to write terms backup")
	}
}

func (fs *TermFileStore) readError(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return models.WrapError(models.KindStoreRead, fmt.Sprintf("terms file %s not found", fs.path), err)
	}
	return models.WrapError(models.KindStoreRead, "failed to read terms file", err)
}

// encodeTerms renders the on-disk form: two-space indent, no HTML escaping,
// trailing newline.
func encodeTerms(terms []models.Term) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(terms); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cloneTerms(in []models.Term) []models.Term {
	out := make([]models.Term, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
