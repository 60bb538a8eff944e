package document

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/odvcencio/hoverkit/pkg/diagnostics"
	"github.com/odvcencio/hoverkit/pkg/errors"
)

// Buffer is mutable document text. Readers work on Snapshots; the buffer
// itself only accepts edits and diagnostics.
type Buffer struct {
	id         uuid.UUID
	uri        string
	languageID string

	mu          sync.RWMutex
	text        string
	version     int
	edits       []edit
	diagnostics []diagnostics.Entry[Range[Anchor]]
}

// NewBuffer creates a buffer at version 0.
func NewBuffer(uri, languageID, text string) *Buffer {
	return &Buffer{
		id:         uuid.New(),
		uri:        uri,
		languageID: languageID,
		text:       text,
	}
}

func (b *Buffer) ID() uuid.UUID      { return b.id }
func (b *Buffer) URI() string        { return b.uri }
func (b *Buffer) LanguageID() string { return b.languageID }

// Version increments on every edit.
func (b *Buffer) Version() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Text returns the current contents.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// Edit replaces the byte range [start, end) with text.
func (b *Buffer) Edit(start, end int, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if start < 0 || end < start || end > len(b.text) {
		return errors.New(errors.ErrCodeInvalidPosition, "edit range out of bounds").
			WithContext("start", start).
			WithContext("end", end).
			WithContext("len", len(b.text))
	}

	b.text = b.text[:start] + text + b.text[end:]
	b.version++
	b.edits = append(b.edits, edit{
		version: b.version,
		start:   start,
		oldEnd:  end,
		newEnd:  start + len(text),
	})
	return nil
}

// SetDiagnostics replaces the buffer's diagnostics. Ranges are offsets into
// the current text; they are anchored so later edits move them.
func (b *Buffer) SetDiagnostics(entries []diagnostics.Entry[Range[int]]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	anchored := make([]diagnostics.Entry[Range[Anchor]], 0, len(entries))
	for _, e := range entries {
		start := clampOffset(e.Range.Start, len(b.text))
		end := clampOffset(e.Range.End, len(b.text))
		if end < start {
			start, end = end, start
		}
		anchored = append(anchored, diagnostics.Entry[Range[Anchor]]{
			Range: Range[Anchor]{
				Start: b.anchorLocked(start, BiasRight),
				End:   b.anchorLocked(end, BiasLeft),
			},
			Diagnostic: e.Diagnostic,
		})
	}
	b.diagnostics = anchored
}

func (b *Buffer) anchorLocked(offset int, bias Bias) Anchor {
	return Anchor{buffer: b.id, version: b.version, offset: offset, bias: bias}
}

// Snapshot captures the current text, version and diagnostics.
func (b *Buffer) Snapshot() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return &Snapshot{
		id:          b.id,
		uri:         b.uri,
		languageID:  b.languageID,
		text:        b.text,
		version:     b.version,
		edits:       b.edits[:len(b.edits):len(b.edits)],
		diagnostics: b.diagnostics,
		lineStarts:  lineStarts(b.text),
	}
}

func clampOffset(offset, n int) int {
	return max(0, min(offset, n))
}

func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// editsSince returns the edits applied after version, in order.
func editsSince(edits []edit, version int) []edit {
	i := sort.Search(len(edits), func(i int) bool {
		return edits[i].version > version
	})
	return edits[i:]
}
