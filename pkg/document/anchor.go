// Package document is a small text buffer model: versioned text, an edit
// log, anchors that survive edits, and the diagnostics reported for it.
package document

import (
	"fmt"

	"github.com/google/uuid"
)

// Bias decides which side of an insertion at an anchor's offset the anchor
// sticks to.
type Bias uint8

const (
	BiasLeft Bias = iota
	BiasRight
)

// Anchor is a buffer position recorded at some version. Resolve it through a
// Snapshot to get its offset at that snapshot's version.
type Anchor struct {
	buffer  uuid.UUID
	version int
	offset  int
	bias    Bias
}

// BufferID identifies the buffer the anchor belongs to.
func (a Anchor) BufferID() uuid.UUID {
	return a.buffer
}

// Bias reports the anchor's bias.
func (a Anchor) Bias() Bias {
	return a.bias
}

func (a Anchor) String() string {
	side := "left"
	if a.bias == BiasRight {
		side = "right"
	}
	return fmt.Sprintf("%s@v%d:%d(%s)", a.buffer.String()[:8], a.version, a.offset, side)
}

// Range is a half-open [Start, End) range of offsets, anchors or positions.
type Range[T any] struct {
	Start T
	End   T
}

// Point is a zero-based row and byte column.
type Point struct {
	Row    int
	Column int
}

// PointUTF16 is a zero-based line and UTF-16 code unit column, the position
// encoding used by language servers.
type PointUTF16 struct {
	Line      uint32
	Character uint32
}

// edit replaces [start, oldEnd) with text now spanning [start, newEnd).
type edit struct {
	version int
	start   int
	oldEnd  int
	newEnd  int
}

// rebase moves offset through e.
func (e edit) rebase(offset int, bias Bias) int {
	switch {
	case offset < e.start:
		return offset
	case offset > e.oldEnd || (offset == e.oldEnd && e.oldEnd > e.start):
		return offset + e.newEnd - e.oldEnd
	case bias == BiasLeft:
		return e.start
	default:
		return e.newEnd
	}
}
