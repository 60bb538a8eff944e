package hover

import (
	"github.com/odvcencio/hoverkit/pkg/diagnostics"
	"github.com/odvcencio/hoverkit/pkg/document"
	"github.com/odvcencio/hoverkit/pkg/observability"
	"github.com/odvcencio/hoverkit/pkg/ui/markdown"
	"github.com/odvcencio/hoverkit/pkg/ui/style"
	"github.com/odvcencio/hoverkit/pkg/ui/theme"
)

// ElementKind says which popover an Element came from.
type ElementKind uint8

const (
	ElementInfo ElementKind = iota
	ElementDiagnostic
)

func (k ElementKind) String() string {
	if k == ElementDiagnostic {
		return "diagnostic"
	}
	return "info"
}

// CursorStyle is the pointer shape over an element.
type CursorStyle uint8

const (
	CursorDefault CursorStyle = iota
	CursorPointingHand
)

// Element is a renderable popover. Text soft-wraps inside the container;
// Links are the ranges that react to clicks.
type Element struct {
	Kind       ElementKind
	Text       string
	Highlights []markdown.Highlight
	Links      []markdown.Range
	Container  theme.Container
	// Prose is the base text style under Highlights.
	Prose   style.Style
	Cursor  CursorStyle
	Tooltip string

	MinWidth  int
	MinHeight int
	// Padding is blank rows above and below Text.
	Padding int
}

// renderCache remembers the last rendering and the theme it was built for.
type renderCache struct {
	version uint64
	value   *markdown.Rendered
}

func (c renderCache) lookup(version uint64) (*markdown.Rendered, bool) {
	if c.value == nil || c.version != version {
		return nil, false
	}
	return c.value, true
}

// InfoPopover shows backend content for a symbol.
type InfoPopover struct {
	SymbolRange document.Range[document.Anchor]
	Blocks      []markdown.Block

	cache renderCache
}

// Render returns the popover element for t, rendering the blocks only when
// the cached output was built for a different theme.
func (p *InfoPopover) Render(t *theme.Theme, languages markdown.LanguageResolver) Element {
	rendered, ok := p.cache.lookup(t.ID)
	if ok {
		observability.RenderCache.WithLabelValues("hit").Inc()
	} else {
		observability.RenderCache.WithLabelValues("miss").Inc()
		rendered = markdown.RenderBlocks(p.Blocks, languages, t)
		p.cache = renderCache{version: t.ID, value: rendered}
	}

	return Element{
		Kind:       ElementInfo,
		Text:       rendered.Text,
		Highlights: rendered.Highlights,
		Links:      rendered.LinkRanges,
		Container:  t.Hover.Container,
		Prose:      t.Hover.Prose,
		MinWidth:   MinPopoverCharacterWidth,
		MinHeight:  MinPopoverLineHeight,
	}
}

// LinkAt returns the URL under offset in the last rendered text. Nothing
// is found before the first Render.
func (p *InfoPopover) LinkAt(offset int) (string, bool) {
	return p.cache.value.LinkAt(offset)
}

// DiagnosticPopover shows the most specific diagnostic under the trigger
// point. Primary is the group's primary entry, used as the click target.
type DiagnosticPopover struct {
	Local   diagnostics.Entry[document.Range[document.Anchor]]
	Primary *diagnostics.Entry[document.Range[document.Anchor]]
}

// Render builds the diagnostic element. A diagnostic with a source reads
// "source: message" with the source highlighted.
func (p *DiagnosticPopover) Render(t *theme.Theme) Element {
	d := p.Local.Diagnostic
	text := d.Message
	var highlights []markdown.Highlight
	if d.Source != "" {
		text = d.Source + ": " + d.Message
		if !t.Hover.DiagnosticSourceHighlight.IsZero() {
			highlights = []markdown.Highlight{{
				Range: markdown.Range{Start: 0, End: len(d.Source)},
				Style: t.Hover.DiagnosticSourceHighlight,
			}}
		}
	}

	return Element{
		Kind:       ElementDiagnostic,
		Text:       text,
		Highlights: highlights,
		Container:  severityContainer(t, d.Severity),
		Prose:      t.Hover.Prose,
		Cursor:     CursorPointingHand,
		Tooltip:    "Go To Diagnostic",
		Padding:    PopoverGap,
	}
}

// ActivationInfo returns the group and location a click navigates to: the
// primary entry when known, else the local one.
func (p *DiagnosticPopover) ActivationInfo() (int, document.Anchor) {
	entry := p.Local
	if p.Primary != nil {
		entry = *p.Primary
	}
	return entry.Diagnostic.GroupID, entry.Range.Start
}

func severityContainer(t *theme.Theme, s diagnostics.Severity) theme.Container {
	switch s {
	case diagnostics.SeverityError:
		return t.Hover.ErrorContainer
	case diagnostics.SeverityWarning:
		return t.Hover.WarningContainer
	case diagnostics.SeverityInformation, diagnostics.SeverityHint:
		return t.Hover.InfoContainer
	default:
		return t.Hover.Container
	}
}
