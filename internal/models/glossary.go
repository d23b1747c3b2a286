package models

// Term is a single glossary entry as persisted in the terms file.
// Optional list fields are nil when empty so they are omitted from the JSON.
type Term struct {
	Term          string      `json:"term"`
	Slug          string      `json:"slug"`
	Definition    string      `json:"definition"`
	Explanation   string      `json:"explanation"`
	Abbreviations []string    `json:"abbreviations,omitempty"`
	Synonyms      []string    `json:"synonyms,omitempty"`
	Related       []string    `json:"related,omitempty"`
	Roots         []Root      `json:"roots,omitempty"`
	References    []Reference `json:"references,omitempty"`
	CreatedAt     string      `json:"createdAt"`
}

// Root is a word part and its meaning, e.g. "cardio" / "heart".
type Root struct {
	Part    string `json:"part"`
	Meaning string `json:"meaning"`
}

// Reference names a source with an optional note.
type Reference struct {
	Source string `json:"source"`
	Note   string `json:"note,omitempty"`
}

// TermInput is the create/update payload. Every optional field arrives as a
// delimited text blob:
//
//	abbreviations, synonyms, related: "a, b, c"
//	roots:                            "cardio:heart, -itis:inflammation"
//	references:                       "PubMed|main source, WHO"
type TermInput struct {
	Term          string `json:"term"`
	Definition    string `json:"definition"`
	Explanation   string `json:"explanation"`
	Abbreviations string `json:"abbreviations"`
	Synonyms      string `json:"synonyms"`
	Related       string `json:"related"`
	Roots         string `json:"roots"`
	References    string `json:"references"`
}

// Clone returns a deep copy of the term.
func (t Term) Clone() Term {
	c := t
	c.Abbreviations = cloneStrings(t.Abbreviations)
	c.Synonyms = cloneStrings(t.Synonyms)
	c.Related = cloneStrings(t.Related)
	if t.Roots != nil {
		c.Roots = append([]Root(nil), t.Roots...)
	}
	if t.References != nil {
		c.References = append([]Reference(nil), t.References...)
	}
	return c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// RelatedTerm is a related slug resolved for display.
type RelatedTerm struct {
	Slug   string `json:"slug"`
	Label  string `json:"label"`
	Exists bool   `json:"exists"`
}

// LetterCount is one entry of the a-z browse index.
type LetterCount struct {
	Letter string `json:"letter"`
	Count  int    `json:"count"`
}
