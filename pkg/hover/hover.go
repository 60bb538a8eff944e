// Package hover implements the hover pipeline: debounced triggering,
// cancellable backend requests and the popovers shown for their results.
//
// A Controller is owned by one foreground goroutine. Backend calls run on
// background goroutines and hand their results back through an Executor, so
// popover state is never touched concurrently.
package hover

import (
	"context"
	"strings"
	"time"

	"github.com/odvcencio/hoverkit/pkg/diagnostics"
	"github.com/odvcencio/hoverkit/pkg/document"
	"github.com/odvcencio/hoverkit/pkg/ui/markdown"
	"github.com/odvcencio/hoverkit/pkg/ui/style"
)

//go:generate mockgen -package=hover -destination=mock_backend_test.go github.com/odvcencio/hoverkit/pkg/hover Backend

const (
	// DefaultDelay is the minimum time between a pointer trigger and the
	// info popover appearing.
	DefaultDelay = 350 * time.Millisecond
	// DefaultRequestDelay is how long a pointer has to rest before the
	// backend is asked at all.
	DefaultRequestDelay = 200 * time.Millisecond

	// MinPopoverCharacterWidth is the narrowest an info popover is drawn,
	// in columns, when the screen allows it.
	MinPopoverCharacterWidth = 20
	// MinPopoverLineHeight is the fewest rows an info popover occupies.
	MinPopoverLineHeight = 4
	// PopoverGap is the blank rows above and below diagnostic text.
	PopoverGap = 1
)

// Position is a zero-based line and UTF-16 character offset.
type Position = document.PointUTF16

// Result is what a backend knows about a position. Range is the symbol the
// content describes, when the backend reports one.
type Result struct {
	Contents []markdown.Block
	Range    *document.Range[Position]
}

// IsEmpty reports whether the result has nothing worth showing.
func (r *Result) IsEmpty() bool {
	if r == nil {
		return true
	}
	for _, b := range r.Contents {
		if strings.TrimSpace(b.Text) != "" {
			return false
		}
	}
	return true
}

// DocumentHandle identifies the document a request is about.
type DocumentHandle interface {
	URI() string
	LanguageID() string
}

// Backend answers hover requests. Implementations must return promptly once
// ctx is cancelled.
type Backend interface {
	Hover(ctx context.Context, doc DocumentHandle, pos Position) (*Result, error)
}

// Snapshot is an immutable view of a document at one version.
type Snapshot interface {
	AnchorAt(offset int, bias document.Bias) document.Anchor
	Resolve(a document.Anchor) int
	Compare(a, b document.Anchor) int
	PointAt(offset int) document.Point
	PositionAt(offset int) Position
	OffsetAt(pos Position) (int, error)
	DiagnosticsInRange(start, end int) []diagnostics.Entry[document.Range[int]]
	DiagnosticGroup(groupID int) []diagnostics.Entry[document.Range[int]]
}

// View is the editor surface the controller drives.
type View interface {
	Snapshot() Snapshot
	Document() DocumentHandle
	Cursor() document.Anchor
	// InExclusiveMode reports modes, such as an active selection drag, in
	// which hovering is suppressed.
	InExclusiveMode() bool

	HighlightSymbol(r document.Range[document.Anchor], s style.Style)
	ClearSymbolHighlight()
	GoToDiagnostic(groupID int, at document.Anchor)
	// Notify asks for a redraw.
	Notify()
}

// Executor runs closures on the foreground goroutine.
type Executor interface {
	Post(fn func())
}

// URLOpener opens a link clicked inside a popover.
type URLOpener func(url string) error
