package glossary

import (
	"context"
	"strings"

	"github.com/bobmcallan/medterms/internal/models"
)

// Search returns up to limit sorted terms whose name, abbreviations or
// synonyms contain q, ignoring case. A blank query matches nothing.
func (s *Service) Search(ctx context.Context, q string, limit int) ([]models.Term, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return []models.Term{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	terms, err := s.ListTerms(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Term, 0, limit)
	for _, t := range terms {
		if matchesQuery(t, q) {
			out = append(out, t)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func matchesQuery(t models.Term, q string) bool {
	if strings.Contains(strings.ToLower(t.Term), q) {
		return true
	}
	for _, a := range t.Abbreviations {
		if strings.Contains(strings.ToLower(a), q) {
			return true
		}
	}
	for _, syn := range t.Synonyms {
		if strings.Contains(strings.ToLower(syn), q) {
			return true
		}
	}
	return false
}
