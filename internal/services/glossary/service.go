// Package glossary provides the medical terms glossary service
package glossary

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/bobmcallan/medterms/internal/common"
	"github.com/bobmcallan/medterms/internal/interfaces"
	"github.com/bobmcallan/medterms/internal/models"
)

// Compile-time interface check
var _ interfaces.GlossaryService = (*Service)(nil)

// createdAtLayout is UTC with millisecond precision, the format existing
// records already carry.
const createdAtLayout = "2006-01-02T15:04:05.000Z"

// DefaultSearchLimit caps search results when the caller gives no limit.
const DefaultSearchLimit = 8

var errRequiredFields = models.NewError(models.KindValidation, "term, definition, and explanation are required.")

// Service implements GlossaryService
type Service struct {
	store  interfaces.TermStore
	logger *common.Logger
	now    func() time.Time
	locale language.Tag
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source used to stamp createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLocale sets the collation used to order terms.
func WithLocale(tag language.Tag) Option {
	return func(s *Service) {
		s.locale = tag
	}
}

// NewService creates a new glossary service
func NewService(store interfaces.TermStore, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		locale: language.English,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListTerms returns every term ordered by display name using locale-aware collation.
func (s *Service) ListTerms(ctx context.Context) ([]models.Term, error) {
	terms, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	// Collators keep internal buffers, so each sort gets its own.
	c := collate.New(s.locale)
	slices.SortStableFunc(terms, func(a, b models.Term) int {
		return c.CompareString(a.Term, b.Term)
	})
	return terms, nil
}

// FindBySlug returns the term with exactly this slug, or nil if there is none.
func (s *Service) FindBySlug(ctx context.Context, slug string) (*models.Term, error) {
	terms, err := s.ListTerms(ctx)
	if err != nil {
		return nil, err
	}
	for i := range terms {
		if terms[i].Slug == slug {
			return &terms[i], nil
		}
	}
	return nil, nil
}

// FindByLetter returns the sorted terms whose display name starts with the
// first character of letter, ignoring case. An empty letter matches everything.
func (s *Service) FindByLetter(ctx context.Context, letter string) ([]models.Term, error) {
	terms, err := s.ListTerms(ctx)
	if err != nil {
		return nil, err
	}

	prefix := strings.ToLower(FirstLetter(letter))
	out := make([]models.Term, 0, len(terms))
	for _, t := range terms {
		if strings.HasPrefix(strings.ToLower(t.Term), prefix) {
			out = append(out, t)
		}
	}
	return out, nil
}

// FirstLetter reduces a browse filter to its first character.
func FirstLetter(letter string) string {
	r, size := utf8.DecodeRuneInString(letter)
	if r == utf8.RuneError && size <= 1 {
		return ""
	}
	return letter[:size]
}

// LetterIndex counts terms per letter a-z.
func (s *Service) LetterIndex(ctx context.Context) ([]models.LetterCount, error) {
	terms, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	index := make([]models.LetterCount, 0, 26)
	for ch := 'a'; ch <= 'z'; ch++ {
		letter := string(ch)
		count := 0
		for _, t := range terms {
			if strings.HasPrefix(strings.ToLower(t.Term), letter) {
				count++
			}
		}
		index = append(index, models.LetterCount{Letter: letter, Count: count})
	}
	return index, nil
}

// ResolveRelated labels each related slug with its term's display name, or
// with the slug's words when no such term exists.
func (s *Service) ResolveRelated(ctx context.Context, term *models.Term) ([]models.RelatedTerm, error) {
	if term == nil || len(term.Related) == 0 {
		return nil, nil
	}

	terms, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	bySlug := make(map[string]string, len(terms))
	for _, t := range terms {
		bySlug[t.Slug] = t.Term
	}

	out := make([]models.RelatedTerm, 0, len(term.Related))
	for _, slug := range term.Related {
		if name, ok := bySlug[slug]; ok {
			out = append(out, models.RelatedTerm{Slug: slug, Label: name, Exists: true})
			continue
		}
		out = append(out, models.RelatedTerm{Slug: slug, Label: strings.ReplaceAll(slug, "-", " ")})
	}
	return out, nil
}

// CreateTerm validates input, derives the slug and appends a new record.
func (s *Service) CreateTerm(ctx context.Context, input models.TermInput) (*models.Term, error) {
	fields, err := requiredFields(input)
	if err != nil {
		return nil, err
	}

	slug := Slugify(fields.term)
	if slug == "" {
		return nil, models.NewError(models.KindSlug, "Unable to generate a valid slug.")
	}

	var created models.Term
	err = s.store.Update(ctx, func(terms []models.Term) ([]models.Term, error) {
		for _, t := range terms {
			if t.Slug == slug {
				return nil, models.NewError(models.KindConflict, fmt.Sprintf("Term with slug %q already exists.", slug))
			}
		}

		created = models.Term{
			Slug:      slug,
			CreatedAt: s.now().UTC().Format(createdAtLayout),
		}
		applyInput(&created, fields, input)
		return append(terms, created), nil
	})
	if err != nil {
		s.logFailure(err, slug, "create")
		return nil, err
	}

	s.logger.Info().Str("slug", slug).Str("term", created.Term).Msg("Term created")
	return &created, nil
}

// UpdateTerm replaces every editable field of an existing term. Slug and
// createdAt never change, even when the display name does.
func (s *Service) UpdateTerm(ctx context.Context, slug string, input models.TermInput) (*models.Term, error) {
	fields, err := requiredFields(input)
	if err != nil {
		return nil, err
	}

	var updated models.Term
	err = s.store.Update(ctx, func(terms []models.Term) ([]models.Term, error) {
		idx := slices.IndexFunc(terms, func(t models.Term) bool { return t.Slug == slug })
		if idx < 0 {
			return nil, models.NewError(models.KindNotFound, "Term not found.")
		}

		updated = models.Term{
			Slug:      terms[idx].Slug,
			CreatedAt: terms[idx].CreatedAt,
		}
		applyInput(&updated, fields, input)
		terms[idx] = updated
		return terms, nil
	})
	if err != nil {
		s.logFailure(err, slug, "update")
		return nil, err
	}

	s.logger.Info().Str("slug", slug).Str("term", updated.Term).Msg("Term updated")
	return &updated, nil
}

func (s *Service) logFailure(err error, slug, op string) {
	switch models.KindOf(err) {
	case models.KindStoreRead, models.KindStoreWrite, "":
		s.logger.Error().Err(err).Str("slug", slug).Str("op", op).Msg("Term write failed")
	default:
		s.logger.Debug().Err(err).Str("slug", slug).Str("op", op).Msg("Term write rejected")
	}
}

type trimmedFields struct {
	term, definition, explanation string
}

func requiredFields(input models.TermInput) (trimmedFields, error) {
	f := trimmedFields{
		term:        strings.TrimSpace(input.Term),
		definition:  strings.TrimSpace(input.Definition),
		explanation: strings.TrimSpace(input.Explanation),
	}
	if f.term == "" || f.definition == "" || f.explanation == "" {
		return f, errRequiredFields
	}
	return f, nil
}

// applyInput overwrites every editable field; optional lists are replaced,
// not merged, and left nil when empty.
func applyInput(t *models.Term, f trimmedFields, input models.TermInput) {
	t.Term = f.term
	t.Definition = f.definition
	t.Explanation = f.explanation
	t.Abbreviations = NormalizeList(input.Abbreviations)
	t.Synonyms = NormalizeList(input.Synonyms)
	t.Related = NormalizeList(input.Related)
	t.Roots = ParseRoots(input.Roots)
	t.References = ParseReferences(input.References)
}
