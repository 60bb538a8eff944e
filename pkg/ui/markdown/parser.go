package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM, // tables, strikethrough, autolinks, task lists
	),
)

type eventKind uint8

const (
	evStart eventKind = iota
	evEnd
	evText
	evCode
	evSoftBreak
	evHardBreak
)

type tagKind uint8

const (
	tagParagraph tagKind = iota
	tagHeading
	tagCodeBlock
	tagEmphasis
	tagStrong
	tagStrikethrough
	tagLink
	tagList
	tagItem
	tagTable
	tagTableRow
	tagTableCell
)

// event is one step of the flattened markdown stream. Only the fields
// relevant to the kind/tag are set.
type event struct {
	kind eventKind
	tag  tagKind
	text string

	// tagLink
	url string
	// tagCodeBlock: fence info; empty for indented blocks.
	language string
	// tagList
	ordered bool
	start   int
}

func start(tag tagKind) event { return event{kind: evStart, tag: tag} }
func end(tag tagKind) event   { return event{kind: evEnd, tag: tag} }

// parseEvents parses CommonMark + GFM and flattens the tree into a stream of
// start/end/text events.
func parseEvents(src string) []event {
	source := []byte(src)
	root := md.Parser().Parse(text.NewReader(source))

	var events []event
	emit := func(ev event) { events = append(events, ev) }

	var walk func(n ast.Node)
	children := func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	wrap := func(tag tagKind, n ast.Node) {
		emit(start(tag))
		children(n)
		emit(end(tag))
	}

	walk = func(n ast.Node) {
		switch n := n.(type) {
		case *ast.Paragraph:
			wrap(tagParagraph, n)
		case *ast.Heading:
			wrap(tagHeading, n)
		case *ast.FencedCodeBlock:
			ev := start(tagCodeBlock)
			ev.language = string(n.Language(source))
			emit(ev)
			emit(event{kind: evText, text: blockLines(n, source)})
			emit(end(tagCodeBlock))
		case *ast.CodeBlock:
			emit(start(tagCodeBlock))
			emit(event{kind: evText, text: blockLines(n, source)})
			emit(end(tagCodeBlock))
		case *ast.List:
			ev := start(tagList)
			ev.ordered = n.IsOrdered()
			ev.start = n.Start
			emit(ev)
			children(n)
			emit(end(tagList))
		case *ast.ListItem:
			wrap(tagItem, n)
		case *ast.Emphasis:
			if n.Level >= 2 {
				wrap(tagStrong, n)
			} else {
				wrap(tagEmphasis, n)
			}
		case *extast.Strikethrough:
			wrap(tagStrikethrough, n)
		case *ast.Link:
			emit(event{kind: evStart, tag: tagLink, url: string(n.Destination)})
			children(n)
			emit(end(tagLink))
		case *ast.AutoLink:
			url := string(n.URL(source))
			emit(event{kind: evStart, tag: tagLink, url: url})
			emit(event{kind: evText, text: string(n.Label(source))})
			emit(end(tagLink))
		case *ast.CodeSpan:
			emit(event{kind: evCode, text: codeSpanText(n, source)})
		case *ast.Text:
			if v := n.Segment.Value(source); len(v) > 0 {
				emit(event{kind: evText, text: string(v)})
			}
			switch {
			case n.HardLineBreak():
				emit(event{kind: evHardBreak})
			case n.SoftLineBreak():
				emit(event{kind: evSoftBreak})
			}
		case *ast.String:
			if len(n.Value) > 0 {
				emit(event{kind: evText, text: string(n.Value)})
			}
		case *extast.TaskCheckBox:
			box := "[ ] "
			if n.IsChecked {
				box = "[x] "
			}
			emit(event{kind: evText, text: box})
		case *extast.Table:
			wrap(tagTable, n)
		case *extast.TableHeader:
			wrap(tagTableRow, n)
		case *extast.TableRow:
			wrap(tagTableRow, n)
		case *extast.TableCell:
			wrap(tagTableCell, n)
		case *ast.HTMLBlock, *ast.RawHTML, *ast.ThematicBreak:
		default:
			children(n)
		}
	}
	children(root)
	return events
}

func blockLines(n ast.Node, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}

// codeSpanText joins the span's segments, turning line endings into spaces.
func codeSpanText(n *ast.CodeSpan, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		t, ok := c.(*ast.Text)
		if !ok {
			continue
		}
		v := t.Segment.Value(source)
		if len(v) > 0 && v[len(v)-1] == '\n' {
			b.Write(v[:len(v)-1])
			b.WriteByte(' ')
			continue
		}
		b.Write(v)
	}
	return b.String()
}
