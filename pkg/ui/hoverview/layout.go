// Package hoverview paints hover popover elements, either as ANSI text for
// plain terminal output or onto a tcell screen with mouse hit testing.
package hoverview

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/odvcencio/hoverkit/pkg/hover"
	"github.com/odvcencio/hoverkit/pkg/ui/style"
)

const tabWidth = 4

// Cell is one screen column of a laid-out popover.
type Cell struct {
	// Rune is 0 in the column after a double-width rune.
	Rune  rune
	Style style.Style
	// Offset is the byte offset of Rune in Element.Text, or -1 for border
	// and padding.
	Offset int
}

// Box is an element laid out into a fixed grid of cells, border included.
type Box struct {
	Kind   hover.ElementKind
	Width  int
	Height int
	cells  []Cell
}

// At returns the cell at x, y relative to the box's top-left corner.
func (b *Box) At(x, y int) Cell {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return Cell{Offset: -1}
	}
	return b.cells[y*b.Width+x]
}

// OffsetAt returns the text offset under x, y.
func (b *Box) OffsetAt(x, y int) (int, bool) {
	c := b.At(x, y)
	return c.Offset, c.Offset >= 0
}

type glyph struct {
	r      rune
	width  int
	offset int
	style  style.Style
}

// Layout wraps el's text to fit within maxWidth columns, border included.
// Lines wrap at the last space that fits and break mid-word only when a
// word is wider than the popover.
func Layout(el hover.Element, maxWidth int) *Box {
	inner := maxWidth - 4
	if inner < 1 {
		inner = 1
	}

	base := el.Container.Background.Merge(el.Prose)
	var rows [][]glyph
	for _, line := range splitLines(el, base) {
		rows = append(rows, wrap(line, inner)...)
	}

	contentWidth := min(el.MinWidth, inner)
	for _, row := range rows {
		contentWidth = max(contentWidth, rowWidth(row))
	}
	contentHeight := max(len(rows)+2*el.Padding, el.MinHeight)

	b := &Box{Kind: el.Kind, Width: contentWidth + 4, Height: contentHeight + 2}
	b.cells = make([]Cell, b.Width*b.Height)
	blank := Cell{Rune: ' ', Style: el.Container.Background, Offset: -1}
	for i := range b.cells {
		b.cells[i] = blank
	}
	b.drawBorder(el.Container.Background.Merge(el.Container.Border))

	for i, row := range rows {
		y := 1 + el.Padding + i
		x := 2
		for _, g := range row {
			b.cells[y*b.Width+x] = Cell{Rune: g.r, Style: g.style, Offset: g.offset}
			for w := 1; w < g.width; w++ {
				b.cells[y*b.Width+x+w] = Cell{Style: g.style, Offset: g.offset}
			}
			x += g.width
		}
	}
	return b
}

func (b *Box) drawBorder(s style.Style) {
	border := lipgloss.RoundedBorder()
	set := func(x, y int, edge string) {
		b.cells[y*b.Width+x] = Cell{Rune: []rune(edge)[0], Style: s, Offset: -1}
	}
	right, bottom := b.Width-1, b.Height-1
	for x := 1; x < right; x++ {
		set(x, 0, border.Top)
		set(x, bottom, border.Bottom)
	}
	for y := 1; y < bottom; y++ {
		set(0, y, border.Left)
		set(right, y, border.Right)
	}
	set(0, 0, border.TopLeft)
	set(right, 0, border.TopRight)
	set(0, bottom, border.BottomLeft)
	set(right, bottom, border.BottomRight)
}

// splitLines turns el.Text into styled glyph lines, one per newline.
func splitLines(el hover.Element, base style.Style) [][]glyph {
	var (
		lines [][]glyph
		line  []glyph
		next  int
	)
	for offset, r := range el.Text {
		if r == '\n' {
			lines = append(lines, line)
			line = nil
			continue
		}
		for next < len(el.Highlights) && el.Highlights[next].Range.End <= offset {
			next++
		}
		s := base
		if next < len(el.Highlights) && el.Highlights[next].Range.Contains(offset) {
			s = base.Merge(el.Highlights[next].Style)
		}
		if r == '\t' {
			for i := 0; i < tabWidth; i++ {
				line = append(line, glyph{r: ' ', width: 1, offset: offset, style: s})
			}
			continue
		}
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		line = append(line, glyph{r: r, width: w, offset: offset, style: s})
	}
	return append(lines, line)
}

func wrap(line []glyph, width int) [][]glyph {
	if len(line) == 0 {
		return [][]glyph{nil}
	}
	var rows [][]glyph
	for len(line) > 0 {
		used, cut, lastSpace := 0, len(line), -1
		for i, g := range line {
			if used+g.width > width {
				cut = i
				break
			}
			used += g.width
			if g.r == ' ' {
				lastSpace = i
			}
		}
		if cut == len(line) {
			rows = append(rows, line)
			break
		}

		next := cut
		switch {
		case line[cut].r == ' ':
			next = cut + 1
		case lastSpace > 0:
			cut, next = lastSpace, lastSpace+1
		case cut == 0:
			cut, next = 1, 1
		}
		rows = append(rows, line[:cut])
		line = line[next:]
	}
	return rows
}

func rowWidth(row []glyph) int {
	w := 0
	for _, g := range row {
		w += g.width
	}
	return w
}
