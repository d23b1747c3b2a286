package interfaces

import (
	"context"
	"io"

	"github.com/bobmcallan/medterms/internal/models"
)

// GlossaryService is the read/write surface over the term store.
type GlossaryService interface {
	ListTerms(ctx context.Context) ([]models.Term, error)
	FindBySlug(ctx context.Context, slug string) (*models.Term, error)
	FindByLetter(ctx context.Context, letter string) ([]models.Term, error)
	Search(ctx context.Context, query string, limit int) ([]models.Term, error)
	LetterIndex(ctx context.Context) ([]models.LetterCount, error)
	ResolveRelated(ctx context.Context, term *models.Term) ([]models.RelatedTerm, error)

	CreateTerm(ctx context.Context, input models.TermInput) (*models.Term, error)
	UpdateTerm(ctx context.Context, slug string, input models.TermInput) (*models.Term, error)
}

// UploadService stores images referenced from explanations.
type UploadService interface {
	// UploadImage validates the MIME type, names the file and stores it, returning its URL.
	UploadImage(ctx context.Context, contentType string, r io.Reader) (string, error)
}
