package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/bobmcallan/medterms/internal/common"
)

// GCSImageStore writes uploaded images to a Google Cloud Storage bucket.
// Writes are conditioned on the object not existing, matching the
// append-only contract of the file store.
type GCSImageStore struct {
	client        *gcs.Client
	bucket        string
	prefix        string
	publicBaseURL string
	logger        *common.Logger
}

// NewGCSImageStore creates a client from config. Credentials fall back to
// Application Default Credentials when no file is given.
func NewGCSImageStore(ctx context.Context, logger *common.Logger, config *common.GCSConfig) (*GCSImageStore, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("gcs image store bucket is required")
	}

	opts := []option.ClientOption{option.WithScopes(gcs.ScopeReadWrite)}
	switch {
	case config.Endpoint != "":
		opts = append(opts, option.WithEndpoint(config.Endpoint), option.WithoutAuthentication())
	case config.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return newGCSImageStore(client, logger, config), nil
}

func newGCSImageStore(client *gcs.Client, logger *common.Logger, config *common.GCSConfig) *GCSImageStore {
	base := strings.TrimSpace(config.PublicBaseURL)
	if base == "" {
		base = "https://storage.googleapis.com/" + config.Bucket
	}

	gs := &GCSImageStore{
		client:        client,
		bucket:        config.Bucket,
		prefix:        strings.Trim(config.Prefix, "/"),
		publicBaseURL: strings.TrimRight(base, "/"),
		logger:        logger,
	}

	logger.Info().Str("bucket", gs.bucket).Str("prefix", gs.prefix).Msg("GCSImageStore initialized")
	return gs
}

func (gs *GCSImageStore) objectKey(name string) string {
	if gs.prefix == "" {
		return name
	}
	return gs.prefix + "/" + name
}

// Put uploads r as a new object.
func (gs *GCSImageStore) Put(ctx context.Context, name, contentType string, r io.Reader) error {
	if err := validateName(name); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	key := gs.objectKey(name)
	w := gs.client.Bucket(gs.bucket).Object(key).
		If(gcs.Conditions{DoesNotExist: true}).
		NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write image to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			return ErrImageExists
		}
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}

	gs.logger.Debug().Str("bucket", gs.bucket).Str("key", key).Msg("Image uploaded")
	return nil
}

// URL returns the public object URL for name.
func (gs *GCSImageStore) URL(name string) string {
	return joinURL(gs.publicBaseURL, gs.objectKey(name))
}

// Close releases the storage client.
func (gs *GCSImageStore) Close() error {
	return gs.client.Close()
}
