package glossary

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/bobmcallan/medterms/internal/models"
)

// DefaultImageCaption is used for an image line with an empty caption.
const DefaultImageCaption = "Image"

var (
	imageLine       = regexp.MustCompile(`^!\[([^\]]*)\]\((\S+)\)$`)
	bareURL         = regexp.MustCompile(`(?:https?://|www\.)\S+`)
	trailingPunct   = regexp.MustCompile(`[),.;!?]+$`)
	bareURLPrefixes = []string{"https://", "http://", "www."}
)

// RenderExplanation splits an explanation into blocks, one per non-blank line.
// A line that is exactly ![caption](url) becomes an image block; any other
// line becomes a text block with bare URLs turned into links.
func RenderExplanation(text string) []models.Block {
	var blocks []models.Block
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := imageLine.FindStringSubmatch(line); m != nil {
			caption := strings.TrimSpace(m[1])
			if caption == "" {
				caption = DefaultImageCaption
			}
			blocks = append(blocks, models.Block{Type: models.BlockImage, Caption: caption, URL: m[2]})
			continue
		}

		blocks = append(blocks, models.Block{Type: models.BlockText, Segments: LinkifyText(line)})
	}
	return blocks
}

// LinkifyText splits a line into plain and link segments. Trailing ) , . ; ! ?
// stay outside the link; www. URLs link to https:// but display as written.
// Adjacent plain runs are merged.
func LinkifyText(line string) []models.Segment {
	var segs []models.Segment
	appendText := func(s string) {
		if s == "" {
			return
		}
		if n := len(segs); n > 0 && !segs[n-1].IsLink() {
			segs[n-1].Text += s
			return
		}
		segs = append(segs, models.Segment{Text: s})
	}

	last := 0
	for _, loc := range bareURL.FindAllStringIndex(line, -1) {
		appendText(line[last:loc[0]])
		last = loc[1]

		match := line[loc[0]:loc[1]]
		core := trailingPunct.ReplaceAllString(match, "")
		if !hasHost(core) {
			appendText(match)
			continue
		}

		href := core
		if strings.HasPrefix(core, "www.") {
			href = "https://" + core
		}
		segs = append(segs, models.Segment{Text: core, Href: href})
		appendText(match[len(core):])
	}
	appendText(line[last:])
	return segs
}

// hasHost rejects a bare scheme or "www." left over after trimming punctuation.
func hasHost(u string) bool {
	for _, p := range bareURLPrefixes {
		if strings.HasPrefix(u, p) {
			return len(u) > len(p)
		}
	}
	return false
}

// RenderHTML renders blocks as an HTML fragment: <p> for text, <figure> for
// images. Image sources other than http(s) or site-relative paths are shown
// as their caption text only.
func RenderHTML(blocks []models.Block) string {
	var b strings.Builder
	for _, block := range blocks {
		switch block.Type {
		case models.BlockImage:
			if !safeImageSource(block.URL) {
				b.WriteString("<p>" + html.EscapeString(block.Caption) + "</p>\n")
				continue
			}
			b.WriteString(`<figure><img src="` + html.EscapeString(block.URL) + `" alt="` + html.EscapeString(block.Caption) + `">`)
			b.WriteString("<figcaption>" + html.EscapeString(block.Caption) + "</figcaption></figure>\n")
		default:
			b.WriteString("<p>")
			for _, seg := range block.Segments {
				if seg.IsLink() {
					b.WriteString(`<a href="` + html.EscapeString(seg.Href) + `" target="_blank" rel="noopener noreferrer">`)
					b.WriteString(html.EscapeString(seg.Text) + "</a>")
					continue
				}
				b.WriteString(html.EscapeString(seg.Text))
			}
			b.WriteString("</p>\n")
		}
	}
	return b.String()
}

func safeImageSource(u string) bool {
	if strings.HasPrefix(u, "//") {
		return false
	}
	return strings.HasPrefix(u, "/") || strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "http://")
}
