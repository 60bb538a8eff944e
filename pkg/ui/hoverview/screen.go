package hoverview

import (
	"github.com/gdamore/tcell/v2"

	"github.com/odvcencio/hoverkit/pkg/hover"
)

type placed struct {
	box  *Box
	x, y int
}

func (p placed) contains(x, y int) bool {
	return x >= p.x && y >= p.y && x < p.x+p.box.Width && y < p.y+p.box.Height
}

// Painter draws popovers onto a tcell screen and remembers where they
// landed so mouse events can be routed back to them.
type Painter struct {
	Base   tcell.Style
	placed []placed
}

// Paint stacks elements above the anchor cell, the first element nearest
// to it. When they do not fit above, they go below the anchor row instead.
// Previous placements are forgotten.
func (p *Painter) Paint(screen tcell.Screen, anchorX, anchorY int, elements []hover.Element) {
	p.placed = p.placed[:0]
	if len(elements) == 0 {
		return
	}
	width, height := screen.Size()

	boxes := make([]*Box, len(elements))
	total := 0
	for i, el := range elements {
		boxes[i] = Layout(el, width)
		total += boxes[i].Height
	}

	above := anchorY >= total
	y := anchorY
	if !above {
		y = anchorY + 1
	}
	for _, box := range boxes {
		if above {
			y -= box.Height
		}
		x := anchorX
		if x+box.Width > width {
			x = max(0, width-box.Width)
		}
		p.placed = append(p.placed, placed{box: box, x: x, y: y})
		p.draw(screen, box, x, y, height)
		if !above {
			y += box.Height
		}
	}
}

func (p *Painter) draw(screen tcell.Screen, box *Box, originX, originY, screenHeight int) {
	for row := 0; row < box.Height; row++ {
		sy := originY + row
		if sy < 0 || sy >= screenHeight {
			continue
		}
		for col := 0; col < box.Width; col++ {
			c := box.At(col, row)
			if c.Rune == 0 {
				continue
			}
			screen.SetContent(originX+col, sy, c.Rune, nil, c.Style.Tcell(p.Base))
		}
	}
}

// Contains reports whether x, y lies on a painted popover.
func (p *Painter) Contains(x, y int) bool {
	_, _, ok := p.HitTest(x, y)
	return ok
}

// HitTest returns the popover under x, y and the text offset there, -1 on
// the border or padding.
func (p *Painter) HitTest(x, y int) (hover.ElementKind, int, bool) {
	for i := len(p.placed) - 1; i >= 0; i-- {
		pl := p.placed[i]
		if !pl.contains(x, y) {
			continue
		}
		return pl.box.Kind, pl.box.At(x-pl.x, y-pl.y).Offset, true
	}
	return 0, -1, false
}

// Clear forgets all placements.
func (p *Painter) Clear() {
	p.placed = p.placed[:0]
}
