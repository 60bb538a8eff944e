// Package style holds the color and text attribute model shared by the
// markdown renderer, themes and the terminal painters.
package style

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/muesli/termenv"
)

// ColorMode defines how a color is represented.
type ColorMode uint8

const (
	// ColorModeNone means no color; the underlying style shows through.
	ColorModeNone ColorMode = iota
	// ColorModeDefault uses terminal default color.
	ColorModeDefault
	// ColorMode16 uses basic 16 ANSI colors (0-15).
	ColorMode16
	// ColorMode256 uses extended 256 color palette.
	ColorMode256
	// ColorModeRGB uses 24-bit true color.
	ColorModeRGB
)

// Color represents a terminal color.
type Color struct {
	Mode  ColorMode
	Value uint32 // For 16/256: color index, For RGB: 0xRRGGBB
}

var (
	ColorNone    = Color{Mode: ColorModeNone}
	ColorDefault = Color{Mode: ColorModeDefault}
	ColorRed     = Color{Mode: ColorMode16, Value: 1}
)

// RGB creates a 24-bit true color.
func RGB(r, g, b uint8) Color {
	return Color{Mode: ColorModeRGB, Value: uint32(r)<<16 | uint32(g)<<8 | uint32(b)}
}

// Hex creates a color from hex value (0xRRGGBB).
func Hex(hex uint32) Color {
	return Color{Mode: ColorModeRGB, Value: hex}
}

// Palette creates a 256-palette color.
func Palette(index uint8) Color {
	if index < 16 {
		return Color{Mode: ColorMode16, Value: uint32(index)}
	}
	return Color{Mode: ColorMode256, Value: uint32(index)}
}

// IsSet reports whether the color overrides what is underneath.
func (c Color) IsSet() bool {
	return c.Mode != ColorModeNone
}

// String renders the color the way termenv parses it.
func (c Color) String() string {
	switch c.Mode {
	case ColorModeRGB:
		return fmt.Sprintf("#%06x", c.Value&0xFFFFFF)
	case ColorMode16, ColorMode256:
		return fmt.Sprintf("%d", c.Value&0xFF)
	default:
		return ""
	}
}

// Style is a set of text attributes. Unset colors and false flags leave
// the style underneath unchanged when styles are merged.
type Style struct {
	FG            Color
	BG            Color
	Bold          bool
	Dim           bool
	Italic        bool
	Underline     bool
	Strikethrough bool
}

// WithFG returns a copy with foreground color set.
func (s Style) WithFG(c Color) Style {
	s.FG = c
	return s
}

// WithBG returns a copy with background color set.
func (s Style) WithBG(c Color) Style {
	s.BG = c
	return s
}

// WithBold returns a copy with bold set.
func (s Style) WithBold(b bool) Style {
	s.Bold = b
	return s
}

// WithDim returns a copy with dim set.
func (s Style) WithDim(d bool) Style {
	s.Dim = d
	return s
}

// WithItalic returns a copy with italic set.
func (s Style) WithItalic(i bool) Style {
	s.Italic = i
	return s
}

// WithUnderline returns a copy with underline set.
func (s Style) WithUnderline(u bool) Style {
	s.Underline = u
	return s
}

// WithStrikethrough returns a copy with strikethrough set.
func (s Style) WithStrikethrough(on bool) Style {
	s.Strikethrough = on
	return s
}

// Merge layers other on top of s: set colors replace, flags accumulate.
func (s Style) Merge(other Style) Style {
	if other.FG.IsSet() {
		s.FG = other.FG
	}
	if other.BG.IsSet() {
		s.BG = other.BG
	}
	s.Bold = s.Bold || other.Bold
	s.Dim = s.Dim || other.Dim
	s.Italic = s.Italic || other.Italic
	s.Underline = s.Underline || other.Underline
	s.Strikethrough = s.Strikethrough || other.Strikethrough
	return s
}

// IsZero reports whether the style changes nothing.
func (s Style) IsZero() bool {
	return s == Style{}
}

// Equal compares two styles for equality.
func (s Style) Equal(other Style) bool {
	return s == other
}

// Tcell converts the style for a tcell screen, on top of base.
func (s Style) Tcell(base tcell.Style) tcell.Style {
	out := base
	if s.FG.IsSet() {
		out = out.Foreground(tcellColor(s.FG))
	}
	if s.BG.IsSet() {
		out = out.Background(tcellColor(s.BG))
	}
	if s.Bold {
		out = out.Bold(true)
	}
	if s.Dim {
		out = out.Dim(true)
	}
	if s.Italic {
		out = out.Italic(true)
	}
	if s.Underline {
		out = out.Underline(true)
	}
	if s.Strikethrough {
		out = out.StrikeThrough(true)
	}
	return out
}

func tcellColor(c Color) tcell.Color {
	switch c.Mode {
	case ColorModeRGB:
		return tcell.NewRGBColor(int32(c.Value>>16&0xFF), int32(c.Value>>8&0xFF), int32(c.Value&0xFF))
	case ColorMode16, ColorMode256:
		return tcell.PaletteColor(int(c.Value & 0xFF))
	default:
		return tcell.ColorDefault
	}
}

// Render applies the style to text using the escape sequences profile
// supports. The Ascii profile returns text unchanged.
func (s Style) Render(p termenv.Profile, text string) string {
	out := p.String(text)
	if v := s.FG.String(); v != "" {
		out = out.Foreground(p.Color(v))
	}
	if v := s.BG.String(); v != "" {
		out = out.Background(p.Color(v))
	}
	if s.Bold {
		out = out.Bold()
	}
	if s.Dim {
		out = out.Faint()
	}
	if s.Italic {
		out = out.Italic()
	}
	if s.Underline {
		out = out.Underline()
	}
	if s.Strikethrough {
		out = out.CrossOut()
	}
	return out.String()
}
