// Package markdown flattens hover content (plain text, markdown and code)
// into one styled text buffer with highlight and link tables.
package markdown

import (
	"sort"

	"github.com/odvcencio/hoverkit/pkg/syntax"
	"github.com/odvcencio/hoverkit/pkg/ui/style"
)

// BlockKind tags the content of a Block.
type BlockKind uint8

const (
	BlockPlainText BlockKind = iota
	BlockMarkdown
	BlockCode
)

func (k BlockKind) String() string {
	switch k {
	case BlockPlainText:
		return "plaintext"
	case BlockMarkdown:
		return "markdown"
	case BlockCode:
		return "code"
	default:
		return "unknown"
	}
}

// Block is one piece of hover content as delivered by a backend.
type Block struct {
	Kind BlockKind
	Text string
	// Language is the language name for BlockCode.
	Language string
}

func PlainText(text string) Block {
	return Block{Kind: BlockPlainText, Text: text}
}

func Markdown(text string) Block {
	return Block{Kind: BlockMarkdown, Text: text}
}

func Code(text, language string) Block {
	return Block{Kind: BlockCode, Text: text, Language: language}
}

// Range is a half-open byte range into Rendered.Text.
type Range struct {
	Start int
	End   int
}

// Len returns the number of bytes covered.
func (r Range) Len() int {
	return r.End - r.Start
}

// Contains reports whether offset lies in [Start, End).
func (r Range) Contains(offset int) bool {
	return offset >= r.Start && offset < r.End
}

// Highlight styles a range of the rendered text.
type Highlight struct {
	Range Range
	Style style.Style
}

// Rendered is the flattened form of a list of blocks. Highlights are sorted,
// never overlap, and adjacent highlights never share a style. LinkRanges[i]
// belongs to LinkURLs[i].
type Rendered struct {
	ThemeID    uint64
	Text       string
	Highlights []Highlight
	LinkRanges []Range
	LinkURLs   []string
}

// LinkAt returns the URL of the link covering offset.
func (r *Rendered) LinkAt(offset int) (string, bool) {
	if r == nil {
		return "", false
	}
	i := sort.Search(len(r.LinkRanges), func(i int) bool {
		return r.LinkRanges[i].End > offset
	})
	if i < len(r.LinkRanges) && r.LinkRanges[i].Contains(offset) {
		return r.LinkURLs[i], true
	}
	return "", false
}

// LanguageResolver resolves fence tags and code block languages.
type LanguageResolver interface {
	LanguageForName(name string) (*syntax.Language, error)
}
