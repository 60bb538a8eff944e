package main

import (
	"os"
	"path/filepath"

	"go.lsp.dev/uri"

	"github.com/odvcencio/hoverkit/pkg/document"
	"github.com/odvcencio/hoverkit/pkg/errors"
	"github.com/odvcencio/hoverkit/pkg/hover"
	"github.com/odvcencio/hoverkit/pkg/syntax"
	"github.com/odvcencio/hoverkit/pkg/ui/style"
)

// editor is the document surface the CLI commands hover over. It owns the
// buffer, cursor and symbol highlight and is only touched from the loop
// goroutine.
type editor struct {
	buf       *document.Buffer
	cursor    int
	exclusive bool

	highlight      *document.Range[document.Anchor]
	highlightStyle style.Style

	redraw func()
}

var _ hover.View = (*editor)(nil)

// openEditor loads path into a buffer keyed by its file URI.
func openEditor(path string) (*editor, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "resolving path").WithContext("path", path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "reading file").
			WithContext("path", path).
			WithUserMessage("cannot read " + path)
	}
	buf := document.NewBuffer(string(uri.File(abs)), syntax.LanguageIDForPath(abs), string(data))
	return &editor{buf: buf}, nil
}

func (e *editor) Snapshot() hover.Snapshot       { return e.buf.Snapshot() }
func (e *editor) Document() hover.DocumentHandle { return e.buf }
func (e *editor) InExclusiveMode() bool          { return e.exclusive }

func (e *editor) Cursor() document.Anchor {
	return e.buf.Snapshot().AnchorAt(e.cursor, document.BiasRight)
}

func (e *editor) HighlightSymbol(r document.Range[document.Anchor], s style.Style) {
	e.highlight = &r
	e.highlightStyle = s
}

func (e *editor) ClearSymbolHighlight() {
	e.highlight = nil
}

func (e *editor) GoToDiagnostic(groupID int, at document.Anchor) {
	e.cursor = e.buf.Snapshot().Resolve(at)
	e.Notify()
}

func (e *editor) Notify() {
	if e.redraw != nil {
		e.redraw()
	}
}

// moveTo places the cursor at a row and byte column, clamped to the text.
func (e *editor) moveTo(p document.Point) {
	e.cursor = e.buf.Snapshot().OffsetAtPoint(p)
}

// highlighted reports whether offset is inside the hovered symbol.
func (e *editor) highlighted(snap *document.Snapshot, offset int) bool {
	if e.highlight == nil {
		return false
	}
	r := snap.ResolveRange(*e.highlight)
	return offset >= r.Start && offset < r.End
}
