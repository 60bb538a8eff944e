package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/hoverkit/pkg/syntax"
	"github.com/odvcencio/hoverkit/pkg/ui/style"
	"github.com/odvcencio/hoverkit/pkg/ui/theme"
)

var bold = style.Style{}.WithBold(true)

func render(t *testing.T, blocks ...Block) *Rendered {
	t.Helper()
	out := RenderBlocks(blocks, syntax.NewRegistry(), theme.DefaultTheme())
	assertWellFormed(t, out)
	return out
}

func assertWellFormed(t *testing.T, r *Rendered) {
	t.Helper()
	prevEnd := 0
	for i, h := range r.Highlights {
		assert.LessOrEqual(t, prevEnd, h.Range.Start, "highlight %d overlaps", i)
		assert.Less(t, h.Range.Start, h.Range.End, "highlight %d empty", i)
		assert.LessOrEqual(t, h.Range.End, len(r.Text), "highlight %d out of bounds", i)
		if i > 0 {
			prev := r.Highlights[i-1]
			if prev.Range.End == h.Range.Start {
				assert.False(t, prev.Style.Equal(h.Style), "adjacent highlights %d and %d share a style", i-1, i)
			}
		}
		prevEnd = h.Range.End
	}
	assert.Len(t, r.LinkURLs, len(r.LinkRanges))
}

func TestRenderBoldText(t *testing.T) {
	out := render(t, Markdown("one **two** three"))

	assert.Equal(t, "one two three", out.Text)
	assert.Equal(t, []Highlight{{Range: Range{Start: 4, End: 7}, Style: bold}}, out.Highlights)
}

func TestRenderLink(t *testing.T) {
	out := render(t, Markdown("one [two](the-url) three"))

	assert.Equal(t, "one two three", out.Text)
	require.Len(t, out.Highlights, 1)
	assert.Equal(t, Range{Start: 4, End: 7}, out.Highlights[0].Range)
	assert.True(t, out.Highlights[0].Style.Underline)
	assert.Equal(t, []string{"the-url"}, out.LinkURLs)
	assert.Equal(t, []Range{{Start: 4, End: 7}}, out.LinkRanges)

	url, ok := out.LinkAt(5)
	assert.True(t, ok)
	assert.Equal(t, "the-url", url)
	_, ok = out.LinkAt(7)
	assert.False(t, ok)
	_, ok = out.LinkAt(0)
	assert.False(t, ok)
}

func TestRenderLinkWithMixedEmphasisIsOneRange(t *testing.T) {
	out := render(t, Markdown("[a **b** c](u)"))

	assert.Equal(t, "a b c", out.Text)
	assert.Equal(t, []Range{{Start: 0, End: 5}}, out.LinkRanges)
	assert.Equal(t, []string{"u"}, out.LinkURLs)
}

func TestRenderAdjacentIdenticalStylesMerge(t *testing.T) {
	acc := &accumulator{theme: theme.DefaultTheme()}
	for _, ev := range []event{
		start(tagStrong),
		{kind: evText, text: "a"},
		end(tagStrong),
		start(tagStrong),
		{kind: evText, text: "b"},
		end(tagStrong),
		{kind: evText, text: " c"},
	} {
		acc.apply(ev)
	}
	out := acc.finish()

	assert.Equal(t, "ab c", out.Text)
	assert.Equal(t, []Highlight{{Range: Range{Start: 0, End: 2}, Style: bold}}, out.Highlights)
}

func TestRenderNestedEmphasis(t *testing.T) {
	out := render(t, Markdown("*a **b***"))

	assert.Equal(t, "a b", out.Text)
	require.Len(t, out.Highlights, 2)
	assert.Equal(t, style.Style{}.WithItalic(true), out.Highlights[0].Style)
	assert.Equal(t, Range{Start: 0, End: 2}, out.Highlights[0].Range)
	assert.Equal(t, style.Style{}.WithItalic(true).WithBold(true), out.Highlights[1].Style)
	assert.Equal(t, Range{Start: 2, End: 3}, out.Highlights[1].Range)
}

func TestRenderStrikethrough(t *testing.T) {
	out := render(t, Markdown("~~gone~~ here"))

	assert.Equal(t, "gone here", out.Text)
	assert.Equal(t, []Highlight{{Range: Range{Start: 0, End: 4}, Style: style.Style{}.WithStrikethrough(true)}}, out.Highlights)
}

func TestRenderOrderedList(t *testing.T) {
	out := render(t, Markdown("1. one\n2. two"))
	assert.Equal(t, "1. one\n2. two", out.Text)

	out = render(t, Markdown("3. three\n4. four"))
	assert.Equal(t, "3. three\n4. four", out.Text)
}

func TestRenderNestedLists(t *testing.T) {
	out := render(t, Markdown("- a\n  1. b\n  2. c\n- d"))
	assert.Equal(t, "* a\n  1. b\n  2. c\n* d", out.Text)
}

func TestRenderListAfterParagraph(t *testing.T) {
	out := render(t, Markdown("Items:\n\n- x\n- y"))
	assert.Equal(t, "Items:\n* x\n* y", out.Text)
}

func TestRenderLooseListItemParagraphs(t *testing.T) {
	out := render(t, Markdown("1. first\n\n   second para\n2. next"))
	assert.Equal(t, "1. first\n\n  second para\n2. next", out.Text)
}

func TestRenderParagraphsAndBreaks(t *testing.T) {
	assert.Equal(t, "para one\n\npara two", render(t, Markdown("para one\n\npara two")).Text)
	assert.Equal(t, "a b", render(t, Markdown("a\nb")).Text)
	assert.Equal(t, "a\nb", render(t, Markdown("a  \nb")).Text)
}

func TestRenderHeading(t *testing.T) {
	out := render(t, Markdown("# Title\nbody"))

	assert.Equal(t, "Title\n\nbody", out.Text)
	assert.Equal(t, []Highlight{{Range: Range{Start: 0, End: 5}, Style: bold}}, out.Highlights)
}

func TestRenderInlineCode(t *testing.T) {
	th := theme.DefaultTheme()
	out := render(t, Markdown("use `foo` now"))

	assert.Equal(t, "use foo now", out.Text)
	assert.Equal(t, []Highlight{{Range: Range{Start: 4, End: 7}, Style: th.Hover.InlineCode}}, out.Highlights)
}

func TestRenderFencedCode(t *testing.T) {
	th := theme.DefaultTheme()
	out := render(t, Markdown("text\n\n```go\nfunc f() {}\n```"))

	assert.Equal(t, "text\n\nfunc f() {}", out.Text)
	require.NotEmpty(t, out.Highlights)
	assert.Equal(t, Range{Start: 6, End: 10}, out.Highlights[0].Range)
	assert.Equal(t, th.SyntaxStyle(theme.SyntaxKeyword), out.Highlights[0].Style)
}

func TestRenderFencedCodeUnknownLanguageIsVerbatim(t *testing.T) {
	out := render(t, Markdown("```nosuchlang\nx := 1\n```\nafter"))

	assert.Equal(t, "x := 1\n\nafter", out.Text)
	assert.Empty(t, out.Highlights)
}

func TestRenderCodeBlock(t *testing.T) {
	th := theme.DefaultTheme()
	out := render(t, Code("let x = 1;", "rust"))

	assert.Equal(t, "let x = 1;", out.Text)
	require.NotEmpty(t, out.Highlights)
	assert.Equal(t, Range{Start: 0, End: 3}, out.Highlights[0].Range)
	assert.Equal(t, th.SyntaxStyle(theme.SyntaxKeyword), out.Highlights[0].Style)

	out = render(t, Code("x := 1", "nope"))
	assert.Equal(t, "x := 1", out.Text)
	assert.Empty(t, out.Highlights)
}

func TestRenderWithoutResolver(t *testing.T) {
	out := RenderBlocks([]Block{Code("fn main() {}", "rust")}, nil, nil)
	assert.Equal(t, "fn main() {}", out.Text)
	assert.Empty(t, out.Highlights)
	assert.Equal(t, theme.DefaultTheme().ID, out.ThemeID)
}

func TestRenderMultipleBlocks(t *testing.T) {
	out := render(t, PlainText("a"), Markdown("b"), Code("c", "nope"))
	assert.Equal(t, "a\n\nb\n\nc", out.Text)
}

func TestRenderKeepsLeadingWhitespace(t *testing.T) {
	out := render(t, PlainText("  hi"), Markdown("**b**\n\n"))

	assert.Equal(t, "  hi\n\nb", out.Text)
	require.Len(t, out.Highlights, 1)
	r := out.Highlights[0].Range
	assert.Equal(t, "b", out.Text[r.Start:r.End])
}

func TestRenderIndentedFirstCodeLine(t *testing.T) {
	out := RenderBlocks([]Block{Code("    indented()\nnext()\n\n", "")}, nil, nil)
	assert.Equal(t, "    indented()\nnext()", out.Text)

	out = RenderBlocks([]Block{PlainText("  leading")}, nil, nil)
	assert.Equal(t, "  leading", out.Text)
}

func TestRenderTable(t *testing.T) {
	out := render(t, Markdown("| a | b |\n|---|---|\n| 1 | 2 |"))
	assert.Equal(t, "a | b\n1 | 2", out.Text)
}

func TestRenderTaskList(t *testing.T) {
	out := render(t, Markdown("- [x] done\n- [ ] todo"))
	assert.Contains(t, out.Text, "* [x] ")
	assert.Contains(t, out.Text, "* [ ] ")
}

func TestRenderAutoLink(t *testing.T) {
	out := render(t, Markdown("see <https://example.com> now"))

	assert.Equal(t, "see https://example.com now", out.Text)
	assert.Equal(t, []string{"https://example.com"}, out.LinkURLs)
	assert.Equal(t, []Range{{Start: 4, End: 23}}, out.LinkRanges)
}

func TestRenderThemeStamp(t *testing.T) {
	light, ok := theme.Lookup("light")
	require.True(t, ok)

	out := RenderBlocks([]Block{Markdown("`x`")}, nil, light)
	assert.Equal(t, light.ID, out.ThemeID)
	require.Len(t, out.Highlights, 1)
	assert.Equal(t, light.Hover.InlineCode, out.Highlights[0].Style)
}

func TestFenceLanguage(t *testing.T) {
	assert.Equal(t, "rust", fenceLanguage("rust,ignore"))
	assert.Equal(t, "go", fenceLanguage(" go title=x"))
	assert.Equal(t, "", fenceLanguage(""))
}

func TestAccumulatorFoldsEventsDirectly(t *testing.T) {
	acc := &accumulator{theme: theme.DefaultTheme()}
	for _, ev := range []event{
		start(tagParagraph),
		{kind: evText, text: "x "},
		start(tagStrong),
		{kind: evText, text: "y"},
		end(tagStrong),
		end(tagParagraph),
	} {
		acc.apply(ev)
	}
	out := acc.finish()

	assert.Equal(t, "x y", out.Text)
	assert.Equal(t, []Highlight{{Range: Range{Start: 2, End: 3}, Style: bold}}, out.Highlights)
	assert.Zero(t, acc.boldDepth)
}
