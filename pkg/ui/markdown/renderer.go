package markdown

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/odvcencio/hoverkit/pkg/syntax"
	"github.com/odvcencio/hoverkit/pkg/ui/style"
	"github.com/odvcencio/hoverkit/pkg/ui/theme"
)

// RenderBlocks flattens blocks into a single styled text buffer. A nil
// resolver disables code highlighting; a nil theme uses the default theme.
func RenderBlocks(blocks []Block, languages LanguageResolver, t *theme.Theme) *Rendered {
	if t == nil {
		t = theme.DefaultTheme()
	}
	acc := &accumulator{theme: t, languages: languages}

	for _, block := range blocks {
		switch block.Kind {
		case BlockPlainText:
			acc.lists = nil
			acc.newParagraph()
			acc.text.WriteString(block.Text)
		case BlockMarkdown:
			acc.resetInline()
			for _, ev := range parseEvents(block.Text) {
				acc.apply(ev)
			}
		case BlockCode:
			acc.lists = nil
			acc.newParagraph()
			if lang := acc.resolve(block.Language); lang != nil {
				acc.appendCode(block.Text, lang)
			} else {
				acc.text.WriteString(block.Text)
			}
		}
	}
	return acc.finish()
}

type openLink struct {
	start int
	url   string
}

type listState struct {
	ordered bool
	next    int
	// hasContent is set once the item's first paragraph has started; later
	// paragraphs of the same item are separated and indented.
	hasContent bool
}

type tableState struct {
	row  int
	cell int
}

// accumulator is the state folded over the event stream of one render.
type accumulator struct {
	theme     *theme.Theme
	languages LanguageResolver

	text       strings.Builder
	highlights []Highlight
	linkRanges []Range
	linkURLs   []string

	boldDepth   int
	italicDepth int
	strikeDepth int

	inCodeBlock  bool
	codeLanguage *syntax.Language

	link   *openLink
	lists  []listState
	table  tableState
	// breakPending defers the paragraph break after a heading or code
	// block until more content arrives.
	breakPending bool
}

func (a *accumulator) resetInline() {
	a.boldDepth, a.italicDepth, a.strikeDepth = 0, 0, 0
	a.inCodeBlock, a.codeLanguage = false, nil
	a.link = nil
	a.lists = nil
	a.table = tableState{}
}

func (a *accumulator) resolve(name string) *syntax.Language {
	if a.languages == nil || name == "" {
		return nil
	}
	lang, err := a.languages.LanguageForName(name)
	if err != nil {
		return nil
	}
	return lang
}

func (a *accumulator) apply(ev event) {
	switch ev.kind {
	case evText:
		a.flushBreak()
		if a.inCodeBlock {
			if a.codeLanguage != nil {
				a.appendCode(ev.text, a.codeLanguage)
			} else {
				a.text.WriteString(ev.text)
			}
			return
		}
		start := a.text.Len()
		a.text.WriteString(ev.text)
		a.pushHighlight(start, a.text.Len(), a.inlineStyle())

	case evCode:
		a.flushBreak()
		start := a.text.Len()
		a.text.WriteString(ev.text)
		s := a.theme.Hover.InlineCode
		if a.link != nil {
			s = s.Merge(a.theme.Hover.Link).WithUnderline(true)
		}
		a.pushHighlight(start, a.text.Len(), s)

	case evSoftBreak:
		a.text.WriteByte(' ')

	case evHardBreak:
		a.text.WriteByte('\n')

	case evStart:
		a.startTag(ev)

	case evEnd:
		a.endTag(ev)
	}
}

func (a *accumulator) startTag(ev event) {
	switch ev.tag {
	case tagParagraph:
		a.newParagraph()
	case tagHeading:
		a.newParagraph()
		a.boldDepth++
	case tagCodeBlock:
		a.newParagraph()
		a.inCodeBlock = true
		a.codeLanguage = a.resolve(fenceLanguage(ev.language))
	case tagEmphasis:
		a.italicDepth++
	case tagStrong:
		a.boldDepth++
	case tagStrikethrough:
		a.strikeDepth++
	case tagLink:
		a.link = &openLink{start: a.text.Len(), url: ev.url}
	case tagList:
		a.lists = append(a.lists, listState{ordered: ev.ordered, next: ev.start})
	case tagItem:
		a.startItem()
	case tagTable:
		a.newParagraph()
		a.table = tableState{}
	case tagTableRow:
		if a.table.row > 0 {
			a.text.WriteByte('\n')
		}
		a.table.row++
		a.table.cell = 0
	case tagTableCell:
		if a.table.cell > 0 {
			a.text.WriteString(" | ")
		}
		a.table.cell++
	}
}

func (a *accumulator) endTag(ev event) {
	switch ev.tag {
	case tagHeading:
		a.boldDepth--
		a.breakPending = true
	case tagCodeBlock:
		a.inCodeBlock = false
		a.codeLanguage = nil
		a.breakPending = true
	case tagEmphasis:
		a.italicDepth--
	case tagStrong:
		a.boldDepth--
	case tagStrikethrough:
		a.strikeDepth--
	case tagLink:
		if a.link != nil {
			a.linkRanges = append(a.linkRanges, Range{Start: a.link.start, End: a.text.Len()})
			a.linkURLs = append(a.linkURLs, a.link.url)
			a.link = nil
		}
	case tagList:
		if n := len(a.lists); n > 0 {
			a.lists = a.lists[:n-1]
		}
	case tagTable:
		a.breakPending = true
	}
}

func (a *accumulator) startItem() {
	n := len(a.lists)
	if n == 0 {
		return
	}
	a.breakPending = false
	top := &a.lists[n-1]
	top.hasContent = false

	if a.text.Len() > 0 && !strings.HasSuffix(a.text.String(), "\n") {
		a.text.WriteByte('\n')
	}
	a.text.WriteString(strings.Repeat("  ", n-1))
	if top.ordered {
		a.text.WriteString(strconv.Itoa(top.next))
		a.text.WriteString(". ")
		top.next++
	} else {
		a.text.WriteString("* ")
	}
}

// newParagraph separates what follows from existing text with a blank line,
// indented to the current list level. The first paragraph of a list item
// stays on the item's marker line.
func (a *accumulator) newParagraph() {
	a.breakPending = false
	subsequent := false
	if n := len(a.lists); n > 0 {
		top := &a.lists[n-1]
		if !top.hasContent {
			top.hasContent = true
			return
		}
		subsequent = true
	}

	if a.text.Len() > 0 {
		if !strings.HasSuffix(a.text.String(), "\n") {
			a.text.WriteByte('\n')
		}
		a.text.WriteByte('\n')
	}
	if n := len(a.lists); n > 1 {
		a.text.WriteString(strings.Repeat("  ", n-1))
	}
	if subsequent {
		a.text.WriteString("  ")
	}
}

func (a *accumulator) flushBreak() {
	if a.breakPending {
		a.newParagraph()
	}
}

func (a *accumulator) inlineStyle() style.Style {
	var s style.Style
	if a.boldDepth > 0 {
		s = s.WithBold(true)
	}
	if a.italicDepth > 0 {
		s = s.WithItalic(true)
	}
	if a.strikeDepth > 0 {
		s = s.WithStrikethrough(true)
	}
	if a.link != nil {
		s = s.Merge(a.theme.Hover.Link).WithUnderline(true)
	}
	return s
}

func (a *accumulator) appendCode(code string, lang *syntax.Language) {
	offset := a.text.Len()
	a.text.WriteString(code)
	for _, span := range lang.Highlight(code) {
		a.pushHighlight(offset+span.Start, offset+span.End, span.ID.Style(a.theme))
	}
}

// pushHighlight records s over [start, end), extending the previous
// highlight when it ends at start with the same style.
func (a *accumulator) pushHighlight(start, end int, s style.Style) {
	if start >= end || s.IsZero() {
		return
	}
	if n := len(a.highlights); n > 0 {
		last := &a.highlights[n-1]
		if last.Range.End == start && last.Style.Equal(s) {
			last.Range.End = end
			return
		}
	}
	a.highlights = append(a.highlights, Highlight{Range: Range{Start: start, End: end}, Style: s})
}

// finish drops trailing newlines and clips ranges to what remains. Leading
// text is kept as is so verbatim blocks keep their indentation.
func (a *accumulator) finish() *Rendered {
	trimmed := strings.TrimRight(a.text.String(), "\n")

	clip := func(r Range) (Range, bool) {
		r.Start = clamp(r.Start, 0, len(trimmed))
		r.End = clamp(r.End, 0, len(trimmed))
		return r, r.Start < r.End
	}

	out := &Rendered{ThemeID: a.theme.ID, Text: trimmed}
	for _, h := range a.highlights {
		if r, ok := clip(h.Range); ok {
			out.Highlights = append(out.Highlights, Highlight{Range: r, Style: h.Style})
		}
	}
	for i, lr := range a.linkRanges {
		if r, ok := clip(lr); ok {
			out.LinkRanges = append(out.LinkRanges, r)
			out.LinkURLs = append(out.LinkURLs, a.linkURLs[i])
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// fenceLanguage takes the first word of a fence info string ("rust,ignore"
// and "go title=x" both name the language first).
func fenceLanguage(info string) string {
	info = strings.TrimSpace(info)
	if i := strings.IndexFunc(info, func(r rune) bool {
		return r == ',' || r == '{' || unicode.IsSpace(r)
	}); i >= 0 {
		info = info[:i]
	}
	if !utf8.ValidString(info) {
		return ""
	}
	return info
}
