// Package upload stores pasted or selected images for use in explanations.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/medterms/internal/common"
	"github.com/bobmcallan/medterms/internal/interfaces"
	"github.com/bobmcallan/medterms/internal/models"
	"github.com/bobmcallan/medterms/internal/storage"
)

// Compile-time interface check
var _ interfaces.UploadService = (*Service)(nil)

// PastedImageCaption labels the explanation line inserted for a pasted image.
const PastedImageCaption = "Pasted medical image"

// maxNameAttempts bounds retries when a generated name is already taken.
const maxNameAttempts = 5

var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// Service implements UploadService
type Service struct {
	images interfaces.ImageStore
	logger *common.Logger
	now    func() time.Time
	suffix func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source for the name's millisecond prefix.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithSuffix sets the generator for the name's random part.
func WithSuffix(suffix func() string) Option {
	return func(s *Service) {
		s.suffix = suffix
	}
}

// NewService creates a new upload service
func NewService(images interfaces.ImageStore, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		images: images,
		logger: logger,
		now:    time.Now,
		suffix: randomSuffix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadImage stores r under a generated name and returns its public URL.
func (s *Service) UploadImage(ctx context.Context, contentType string, r io.Reader) (string, error) {
	if r == nil {
		return "", models.NewError(models.KindUpload, "No image file received.")
	}

	mediaType := normalizeContentType(contentType)
	if !strings.HasPrefix(mediaType, "image/") {
		return "", models.NewError(models.KindUpload, "Only image uploads are allowed.")
	}
	ext := ExtensionFor(mediaType)

	// Buffered so a name collision can be retried. Callers cap the body size.
	data, err := io.ReadAll(r)
	if err != nil {
		return "", models.WrapError(models.KindUpload, "Failed to read image", err)
	}
	if len(data) == 0 {
		return "", models.NewError(models.KindUpload, "No image file received.")
	}

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := fmt.Sprintf("%d-%s.%s", s.now().UnixMilli(), s.suffix(), ext)

		err := s.images.Put(ctx, name, mediaType, bytes.NewReader(data))
		if errors.Is(err, storage.ErrImageExists) {
			s.logger.Debug().Str("name", name).Msg("Upload name taken, retrying")
			continue
		}
		if err != nil {
			s.logger.Error().Err(err).Str("name", name).Msg("Image upload failed")
			return "", models.WrapError(models.KindStoreWrite, "Failed to save image", err)
		}

		url := s.images.URL(name)
		s.logger.Info().Str("name", name).Str("content_type", mediaType).Msg("Image uploaded")
		return url, nil
	}

	return "", models.NewError(models.KindStoreWrite, "Failed to allocate a unique image name")
}

// Markdown returns the explanation line that embeds url as an image.
func Markdown(url string) string {
	return "![" + PastedImageCaption + "](" + url + ")"
}

// ExtensionFor maps an image media type to the stored file extension.
func ExtensionFor(mediaType string) string {
	if ext, ok := extensions[mediaType]; ok {
		return ext
	}
	return "bin"
}

func normalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}
