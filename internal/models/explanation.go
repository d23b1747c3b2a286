package models

// BlockType distinguishes explanation blocks.
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockImage BlockType = "image"
)

// Block is one rendered line of a term's explanation.
type Block struct {
	Type     BlockType `json:"type"`
	Segments []Segment `json:"segments,omitempty"` // text blocks
	Caption  string    `json:"caption,omitempty"`  // image blocks
	URL      string    `json:"url,omitempty"`      // image blocks
}

// Segment is a run of text inside a text block. Href is set when the run is a link.
type Segment struct {
	Text string `json:"text"`
	Href string `json:"href,omitempty"`
}

// IsLink reports whether the segment is an auto-linked URL.
func (s Segment) IsLink() bool {
	return s.Href != ""
}
