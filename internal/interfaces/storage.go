// Package interfaces defines service contracts for medterms
package interfaces

import (
	"context"
	"io"

	"github.com/bobmcallan/medterms/internal/models"
)

// TermStore owns the terms file. Implementations serialize writes.
type TermStore interface {
	// Load returns every record in file order. Missing or unparsable files
	// fail with a models.KindStoreRead error.
	Load(ctx context.Context) ([]models.Term, error)

	// Update runs fn against the current records under the write lock and
	// persists the returned slice. If fn returns an error nothing is written.
	Update(ctx context.Context, fn func(terms []models.Term) ([]models.Term, error)) error

	// Init creates an empty terms file if none exists.
	Init(ctx context.Context) (created bool, err error)

	// Path returns the backing file location.
	Path() string
}

// ImageStore is an append-only byte store for uploaded images.
type ImageStore interface {
	// Put writes a new object. Fails with storage.ErrImageExists if the name is taken.
	Put(ctx context.Context, name, contentType string, r io.Reader) error

	// URL returns the public URL for a stored name.
	URL(name string) string

	Close() error
}
