package document

import (
	"cmp"
	"slices"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/odvcencio/hoverkit/pkg/diagnostics"
	"github.com/odvcencio/hoverkit/pkg/errors"
)

// Snapshot is an immutable view of a buffer at one version.
type Snapshot struct {
	id          uuid.UUID
	uri         string
	languageID  string
	text        string
	version     int
	edits       []edit
	diagnostics []diagnostics.Entry[Range[Anchor]]
	lineStarts  []int
}

func (s *Snapshot) BufferID() uuid.UUID { return s.id }
func (s *Snapshot) URI() string         { return s.uri }
func (s *Snapshot) LanguageID() string  { return s.languageID }
func (s *Snapshot) Version() int        { return s.version }
func (s *Snapshot) Text() string        { return s.text }
func (s *Snapshot) Len() int            { return len(s.text) }

// LineCount is the number of rows; an empty buffer has one.
func (s *Snapshot) LineCount() int {
	return len(s.lineStarts)
}

// Line returns row's text without its newline.
func (s *Snapshot) Line(row int) string {
	if row < 0 || row >= len(s.lineStarts) {
		return ""
	}
	start := s.lineStarts[row]
	end := len(s.text)
	if row+1 < len(s.lineStarts) {
		end = s.lineStarts[row+1] - 1
	}
	return s.text[start:end]
}

// ClipOffset clamps offset into the text and back to a rune boundary.
func (s *Snapshot) ClipOffset(offset int) int {
	offset = clampOffset(offset, len(s.text))
	for offset > 0 && offset < len(s.text) && !utf8.RuneStart(s.text[offset]) {
		offset--
	}
	return offset
}

// AnchorAt creates an anchor at offset, clipped into the text.
func (s *Snapshot) AnchorAt(offset int, bias Bias) Anchor {
	return Anchor{buffer: s.id, version: s.version, offset: s.ClipOffset(offset), bias: bias}
}

// Resolve returns the anchor's offset at this snapshot's version. Anchors
// from other buffers or newer versions resolve to their recorded offset,
// clipped.
func (s *Snapshot) Resolve(a Anchor) int {
	offset := a.offset
	if a.buffer == s.id && a.version < s.version {
		for _, e := range editsSince(s.edits, a.version) {
			if e.version > s.version {
				break
			}
			offset = e.rebase(offset, a.bias)
		}
	}
	return clampOffset(offset, len(s.text))
}

// ResolveRange resolves both ends of r.
func (s *Snapshot) ResolveRange(r Range[Anchor]) Range[int] {
	return Range[int]{Start: s.Resolve(r.Start), End: s.Resolve(r.End)}
}

// Compare orders anchors by resolved offset, then left bias before right.
func (s *Snapshot) Compare(a, b Anchor) int {
	if c := cmp.Compare(s.Resolve(a), s.Resolve(b)); c != 0 {
		return c
	}
	return cmp.Compare(a.bias, b.bias)
}

// PointAt converts an offset to a row and byte column.
func (s *Snapshot) PointAt(offset int) Point {
	offset = clampOffset(offset, len(s.text))
	row, found := slices.BinarySearch(s.lineStarts, offset)
	if !found {
		row--
	}
	return Point{Row: row, Column: offset - s.lineStarts[row]}
}

// OffsetAtPoint converts a row and byte column to an offset, clipping the
// column to the row's length.
func (s *Snapshot) OffsetAtPoint(p Point) int {
	if p.Row < 0 {
		return 0
	}
	if p.Row >= len(s.lineStarts) {
		return len(s.text)
	}
	line := s.Line(p.Row)
	return s.ClipOffset(s.lineStarts[p.Row] + clampOffset(p.Column, len(line)))
}

// PositionAt converts an offset to a line and UTF-16 column.
func (s *Snapshot) PositionAt(offset int) PointUTF16 {
	p := s.PointAt(offset)
	prefix := s.text[s.lineStarts[p.Row] : s.lineStarts[p.Row]+p.Column]
	var units uint32
	for _, r := range prefix {
		units += uint32(utf16.RuneLen(r))
	}
	return PointUTF16{Line: uint32(p.Row), Character: units}
}

// OffsetAt converts a line and UTF-16 column to an offset. Columns past
// the end of the line clip to it; lines past the end of the text fail.
func (s *Snapshot) OffsetAt(pos PointUTF16) (int, error) {
	if int(pos.Line) >= len(s.lineStarts) {
		return 0, errors.New(errors.ErrCodeInvalidPosition, "line out of range").
			WithContext("line", pos.Line).
			WithContext("lines", len(s.lineStarts))
	}
	start := s.lineStarts[pos.Line]
	line := s.Line(int(pos.Line))

	var units uint32
	for i, r := range line {
		if units >= pos.Character {
			return start + i, nil
		}
		units += uint32(utf16.RuneLen(r))
	}
	return start + len(line), nil
}

// DiagnosticsInRange returns diagnostics whose resolved range touches
// [start, end], ends inclusive, sorted by start then end.
func (s *Snapshot) DiagnosticsInRange(start, end int) []diagnostics.Entry[Range[int]] {
	var out []diagnostics.Entry[Range[int]]
	for _, e := range s.diagnostics {
		r := s.ResolveRange(e.Range)
		if r.Start <= end && r.End >= start {
			out = append(out, diagnostics.Entry[Range[int]]{Range: r, Diagnostic: e.Diagnostic})
		}
	}
	sortEntries(out)
	return out
}

// DiagnosticGroup returns every entry of a group, sorted by position.
func (s *Snapshot) DiagnosticGroup(groupID int) []diagnostics.Entry[Range[int]] {
	var out []diagnostics.Entry[Range[int]]
	for _, e := range s.diagnostics {
		if e.Diagnostic.GroupID == groupID {
			out = append(out, diagnostics.Entry[Range[int]]{Range: s.ResolveRange(e.Range), Diagnostic: e.Diagnostic})
		}
	}
	sortEntries(out)
	return out
}

func sortEntries(entries []diagnostics.Entry[Range[int]]) {
	slices.SortStableFunc(entries, func(a, b diagnostics.Entry[Range[int]]) int {
		if c := cmp.Compare(a.Range.Start, b.Range.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.Range.End, b.Range.End)
	})
}
