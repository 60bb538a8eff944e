package hoverview

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/hoverkit/pkg/hover"
)

func newScreen(t *testing.T, width, height int) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("")
	require.NoError(t, screen.Init())
	screen.SetSize(width, height)
	t.Cleanup(screen.Fini)
	return screen
}

func captureRow(screen tcell.Screen, y, x, width int) string {
	var sb strings.Builder
	for col := x; col < x+width; col++ {
		r, _, _, _ := screen.GetContent(col, y)
		if r == 0 {
			r = ' '
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func TestPainter_StacksAboveAnchor(t *testing.T) {
	screen := newScreen(t, 40, 20)
	var p Painter

	p.Paint(screen, 5, 10, []hover.Element{
		{Kind: hover.ElementDiagnostic, Text: "diag"},
		{Kind: hover.ElementInfo, Text: "info"},
	})

	// The diagnostic sits right above the anchor, the info popover above it.
	assert.Equal(t, "╭──────╮", captureRow(screen, 7, 5, 8))
	assert.Equal(t, "│ diag │", captureRow(screen, 8, 5, 8))
	assert.Equal(t, "│ info │", captureRow(screen, 5, 5, 8))

	kind, offset, ok := p.HitTest(7, 8)
	require.True(t, ok)
	assert.Equal(t, hover.ElementDiagnostic, kind)
	assert.Equal(t, 0, offset)

	kind, offset, ok = p.HitTest(9, 5)
	require.True(t, ok)
	assert.Equal(t, hover.ElementInfo, kind)
	assert.Equal(t, 2, offset)

	_, offset, ok = p.HitTest(5, 4)
	assert.True(t, ok, "border belongs to the popover")
	assert.Equal(t, -1, offset)

	assert.False(t, p.Contains(5, 10), "anchor row stays uncovered")
	assert.False(t, p.Contains(4, 8))
}

func TestPainter_FallsBelowWhenNoRoom(t *testing.T) {
	screen := newScreen(t, 40, 20)
	var p Painter

	p.Paint(screen, 0, 1, []hover.Element{{Text: "below"}})

	assert.Equal(t, "│ below │", captureRow(screen, 3, 0, 9))
	assert.True(t, p.Contains(0, 2))
	assert.False(t, p.Contains(0, 1))
}

func TestPainter_ShiftsLeftAtScreenEdge(t *testing.T) {
	screen := newScreen(t, 20, 10)
	var p Painter

	p.Paint(screen, 18, 5, []hover.Element{{Text: "edge"}})

	assert.Equal(t, "╭──────╮", captureRow(screen, 2, 12, 8))
	assert.True(t, p.Contains(19, 3))
}

func TestPainter_ClearForgetsPlacements(t *testing.T) {
	screen := newScreen(t, 20, 10)
	var p Painter

	p.Paint(screen, 0, 5, []hover.Element{{Text: "x"}})
	require.True(t, p.Contains(0, 3))

	p.Clear()
	assert.False(t, p.Contains(0, 3))

	p.Paint(screen, 0, 5, []hover.Element{{Text: "x"}})
	p.Paint(screen, 0, 5, nil)
	assert.False(t, p.Contains(0, 3), "painting nothing forgets earlier popovers")
}
