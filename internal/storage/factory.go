package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/medterms/internal/common"
	"github.com/bobmcallan/medterms/internal/interfaces"
)

// NewImageStore creates an image store based on the configuration.
// Supported backends: "file" (default), "gcs".
func NewImageStore(ctx context.Context, logger *common.Logger, config *common.ImageConfig) (interfaces.ImageStore, error) {
	backend := config.Backend
	if backend == "" {
		backend = BackendFile
	}

	switch backend {
	case BackendFile:
		return NewFileImageStore(logger, config.Path, config.URLPrefix)

	case BackendGCS:
		return NewGCSImageStore(ctx, logger, &config.GCS)

	default:
		return nil, fmt.Errorf("unknown image backend: %s (supported: file, gcs)", backend)
	}
}
