package glossary

import (
	"regexp"
	"strings"
	"unicode"
)

// slugSpace is the full whitespace set, including \v and the Unicode spaces
// such as NBSP that RE2's \s leaves out.
const slugSpace = `\t\n\v\f\r \x{00a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}`

var (
	slugDisallowed = regexp.MustCompile(`[^a-z0-9` + slugSpace + `-]`)
	slugWhitespace = regexp.MustCompile(`[` + slugSpace + `]+`)
	slugHyphens    = regexp.MustCompile(`-+`)
)

// Slugify turns a display term into its URL key: lowercase, only [a-z0-9-],
// whitespace runs become one hyphen and hyphen runs collapse. A term made
// only of other characters yields "".
func Slugify(term string) string {
	s := strings.ToLower(strings.TrimFunc(term, isSlugSpace))
	s = slugDisallowed.ReplaceAllString(s, "")
	s = slugWhitespace.ReplaceAllString(s, "-")
	return slugHyphens.ReplaceAllString(s, "-")
}

func isSlugSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\ufeff'
}
