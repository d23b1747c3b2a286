package glossary

import (
	"strings"

	"github.com/bobmcallan/medterms/internal/models"
)

// Segments that do not fit their shape are dropped silently.

// NormalizeList splits comma-separated text into trimmed, non-empty tokens in
// input order. Duplicates are kept. Returns nil when nothing survives.
func NormalizeList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ParseRoots parses "part:meaning, part:meaning". Each segment splits on its
// first colon; segments missing either side are dropped.
func ParseRoots(raw string) []models.Root {
	var roots []models.Root
	for _, item := range NormalizeList(raw) {
		part, meaning, ok := strings.Cut(item, ":")
		if !ok {
			continue
		}
		part, meaning = strings.TrimSpace(part), strings.TrimSpace(meaning)
		if part == "" || meaning == "" {
			continue
		}
		roots = append(roots, models.Root{Part: part, Meaning: meaning})
	}
	return roots
}

// ParseReferences parses "source|note, source". Each segment splits on its
// first pipe; the source is required, the note only kept when non-empty.
func ParseReferences(raw string) []models.Reference {
	var refs []models.Reference
	for _, item := range NormalizeList(raw) {
		source, note, _ := strings.Cut(item, "|")
		source = strings.TrimSpace(source)
		if source == "" {
			continue
		}
		refs = append(refs, models.Reference{Source: source, Note: strings.TrimSpace(note)})
	}
	return refs
}

// FormFields renders a term back into the delimited text accepted by
// CreateTerm and UpdateTerm, for pre-filling an edit form.
func FormFields(t *models.Term) models.TermInput {
	roots := make([]string, len(t.Roots))
	for i, r := range t.Roots {
		roots[i] = r.Part + ":" + r.Meaning
	}
	refs := make([]string, len(t.References))
	for i, r := range t.References {
		refs[i] = r.Source
		if r.Note != "" {
			refs[i] += "|" + r.Note
		}
	}
	return models.TermInput{
		Term:          t.Term,
		Definition:    t.Definition,
		Explanation:   t.Explanation,
		Abbreviations: strings.Join(t.Abbreviations, ", "),
		Synonyms:      strings.Join(t.Synonyms, ", "),
		Related:       strings.Join(t.Related, ", "),
		Roots:         strings.Join(roots, ", "),
		References:    strings.Join(refs, ", "),
	}
}
