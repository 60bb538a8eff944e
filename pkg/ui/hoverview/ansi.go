package hoverview

import (
	"io"
	"strings"

	"github.com/muesli/termenv"

	"github.com/odvcencio/hoverkit/pkg/hover"
	"github.com/odvcencio/hoverkit/pkg/ui/style"
)

// ANSI renders popovers as escape-coded text.
type ANSI struct {
	Profile termenv.Profile
	Width   int
}

// NewANSI detects the color profile of w.
func NewANSI(w io.Writer, width int) *ANSI {
	return &ANSI{Profile: termenv.NewOutput(w).Profile, Width: width}
}

// Render returns el as lines of styled text, without a trailing newline.
func (a *ANSI) Render(el hover.Element) string {
	box := Layout(el, a.Width)
	var sb strings.Builder
	for y := 0; y < box.Height; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		a.writeRow(&sb, box, y)
	}
	return sb.String()
}

// RenderAll renders elements top to bottom, separated by newlines.
func (a *ANSI) RenderAll(elements []hover.Element) string {
	parts := make([]string, 0, len(elements))
	for _, el := range elements {
		parts = append(parts, a.Render(el))
	}
	return strings.Join(parts, "\n")
}

// writeRow groups runs of equally styled cells into one escape sequence.
func (a *ANSI) writeRow(sb *strings.Builder, box *Box, y int) {
	var (
		run     strings.Builder
		current style.Style
	)
	flush := func() {
		if run.Len() == 0 {
			return
		}
		sb.WriteString(current.Render(a.Profile, run.String()))
		run.Reset()
	}
	for x := 0; x < box.Width; x++ {
		c := box.At(x, y)
		if c.Rune == 0 {
			continue
		}
		if c.Style != current {
			flush()
			current = c.Style
		}
		run.WriteRune(c.Rune)
	}
	flush()
}
