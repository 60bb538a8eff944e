// Package theme provides the named color themes used to style hover popovers
// and highlighted code. Dark is inspired by Dark Elegance: rich blacks,
// subtle depth, glowing accents.
package theme

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/odvcencio/hoverkit/pkg/ui/style"
)

// Syntax palette keys. pkg/syntax maps lexer token categories onto these.
const (
	SyntaxKeyword     = "keyword"
	SyntaxType        = "type"
	SyntaxFunction    = "function"
	SyntaxString      = "string"
	SyntaxNumber      = "number"
	SyntaxComment     = "comment"
	SyntaxOperator    = "operator"
	SyntaxPunctuation = "punctuation"
	SyntaxBuiltin     = "builtin"
	SyntaxVariable    = "variable"
	SyntaxAttribute   = "attribute"
	SyntaxTag         = "tag"
	SyntaxConstant    = "constant"
	SyntaxError       = "error"
)

// Container styles a popover box.
type Container struct {
	Background style.Style
	Border     style.Style
}

// HoverPopover groups the styles used by hover popovers.
type HoverPopover struct {
	Container        Container
	InfoContainer    Container
	WarningContainer Container
	ErrorContainer   Container

	// Highlight is painted behind the hovered symbol in the editor.
	Highlight style.Style
	// DiagnosticSourceHighlight styles the "{source}" prefix of a diagnostic.
	DiagnosticSourceHighlight style.Style

	Prose      style.Style
	InlineCode style.Style
	Link       style.Style
}

// Theme is a complete style set. ID changes whenever the style content
// does, so caches keyed by ID never serve output built from another theme.
type Theme struct {
	ID   uint64
	Name string

	Editor    style.Style
	Cursor    style.Style
	Muted     style.Style
	Selection style.Style

	Hover  HoverPopover
	Syntax map[string]style.Style
}

var lastID atomic.Uint64

func nextID() uint64 {
	return lastID.Add(1)
}

// SyntaxStyle returns the palette entry for key, or the zero style.
func (t *Theme) SyntaxStyle(key string) style.Style {
	if t == nil {
		return style.Style{}
	}
	return t.Syntax[key]
}

// Clone returns a deep copy carrying a fresh ID, for callers that tweak styles.
func (t *Theme) Clone() *Theme {
	out := *t
	out.ID = nextID()
	out.Syntax = make(map[string]style.Style, len(t.Syntax))
	for k, v := range t.Syntax {
		out.Syntax[k] = v
	}
	return &out
}

var (
	dark  = newDark()
	light = newLight()

	builtin = map[string]*Theme{
		dark.Name:  dark,
		light.Name: light,
	}
)

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return dark
}

// Lookup finds a built-in theme by case-insensitive name.
func Lookup(name string) (*Theme, bool) {
	t, ok := builtin[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Names lists built-in theme names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newDark() *Theme {
	fg := func(r, g, b uint8) style.Style { return style.Style{}.WithFG(style.RGB(r, g, b)) }
	surface := style.Style{}.WithBG(style.RGB(32, 32, 40))

	return &Theme{
		ID:   nextID(),
		Name: "dark",

		Editor:    fg(240, 238, 232).WithBG(style.RGB(12, 12, 16)),
		Cursor:    style.Style{}.WithBG(style.RGB(255, 183, 77)).WithFG(style.RGB(12, 12, 16)),
		Muted:     fg(100, 98, 92),
		Selection: style.Style{}.WithBG(style.RGB(60, 60, 80)),

		Hover: HoverPopover{
			Container:        Container{Background: surface, Border: fg(50, 50, 60)},
			InfoContainer:    Container{Background: surface, Border: fg(77, 182, 172)},
			WarningContainer: Container{Background: surface, Border: fg(255, 183, 77)},
			ErrorContainer:   Container{Background: surface, Border: fg(255, 110, 90)},

			Highlight:                 style.Style{}.WithBG(style.RGB(60, 60, 80)),
			DiagnosticSourceHighlight: fg(160, 158, 150).WithBold(true),

			Prose:      fg(240, 238, 232),
			InlineCode: fg(255, 138, 101),
			Link:       fg(79, 195, 247),
		},

		Syntax: map[string]style.Style{
			SyntaxKeyword:     fg(255, 183, 77).WithBold(true),
			SyntaxType:        fg(77, 182, 172),
			SyntaxFunction:    fg(180, 130, 60),
			SyntaxString:      fg(134, 239, 172),
			SyntaxNumber:      fg(255, 138, 101),
			SyntaxComment:     fg(100, 98, 92).WithItalic(true),
			SyntaxOperator:    fg(160, 158, 150),
			SyntaxPunctuation: fg(100, 98, 92),
			SyntaxBuiltin:     fg(77, 182, 172),
			SyntaxVariable:    fg(240, 238, 232),
			SyntaxAttribute:   fg(180, 130, 60),
			SyntaxTag:         fg(255, 183, 77),
			SyntaxConstant:    fg(255, 138, 101),
			SyntaxError:       fg(255, 110, 90).WithBold(true),
		},
	}
}

func newLight() *Theme {
	fg := func(hex uint32) style.Style { return style.Style{}.WithFG(style.Hex(hex)) }
	surface := style.Style{}.WithBG(style.Hex(0xf3f1ec))

	return &Theme{
		ID:   nextID(),
		Name: "light",

		Editor:    fg(0x24292f).WithBG(style.Hex(0xffffff)),
		Cursor:    style.Style{}.WithBG(style.Hex(0x0969da)).WithFG(style.Hex(0xffffff)),
		Muted:     fg(0x6e7781),
		Selection: style.Style{}.WithBG(style.Hex(0xd8e6f8)),

		Hover: HoverPopover{
			Container:        Container{Background: surface, Border: fg(0xd0d7de)},
			InfoContainer:    Container{Background: surface, Border: fg(0x0969da)},
			WarningContainer: Container{Background: surface, Border: fg(0x9a6700)},
			ErrorContainer:   Container{Background: surface, Border: fg(0xcf222e)},

			Highlight:                 style.Style{}.WithBG(style.Hex(0xfff8c5)),
			DiagnosticSourceHighlight: fg(0x57606a).WithBold(true),

			Prose:      fg(0x24292f),
			InlineCode: fg(0xcf222e),
			Link:       fg(0x0969da),
		},

		Syntax: map[string]style.Style{
			SyntaxKeyword:     fg(0xcf222e).WithBold(true),
			SyntaxType:        fg(0x953800),
			SyntaxFunction:    fg(0x8250df),
			SyntaxString:      fg(0x0a3069),
			SyntaxNumber:      fg(0x0550ae),
			SyntaxComment:     fg(0x6e7781).WithItalic(true),
			SyntaxOperator:    fg(0x24292f),
			SyntaxPunctuation: fg(0x57606a),
			SyntaxBuiltin:     fg(0x953800),
			SyntaxVariable:    fg(0x24292f),
			SyntaxAttribute:   fg(0x116329),
			SyntaxTag:         fg(0x116329),
			SyntaxConstant:    fg(0x0550ae),
			SyntaxError:       fg(0x82071e).WithBold(true),
		},
	}
}
