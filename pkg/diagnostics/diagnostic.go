// Package diagnostics models compiler/linter diagnostics attached to a
// document and picks the one a hover should show.
package diagnostics

import "strings"

// Severity follows the LSP numbering.
type Severity uint8

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "information"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// ParseSeverity is the inverse of Severity.String.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return SeverityError, true
	case "warning", "warn":
		return SeverityWarning, true
	case "information", "info":
		return SeverityInformation, true
	case "hint":
		return SeverityHint, true
	}
	return 0, false
}

// Diagnostic is one message. Entries sharing a GroupID describe the same
// problem; exactly one of them has IsPrimary set.
type Diagnostic struct {
	Message   string
	Severity  Severity
	Source    string
	Code      string
	GroupID   int
	IsPrimary bool
}

// Entry places a diagnostic at a range. R is an offset range for lookups
// and an anchor range once stored against a buffer.
type Entry[R any] struct {
	Range      R
	Diagnostic Diagnostic
}

// MostSpecific returns the entry with the smallest span. On ties the
// earliest entry in the input wins, so callers pass entries in sorted order.
func MostSpecific[R any](entries []Entry[R], span func(R) int) (Entry[R], bool) {
	var (
		best  Entry[R]
		found bool
		width int
	)
	for _, e := range entries {
		w := span(e.Range)
		if !found || w < width {
			best, width, found = e, w, true
		}
	}
	return best, found
}

// Primary returns the primary entry of a group.
func Primary[R any](group []Entry[R]) (Entry[R], bool) {
	for _, e := range group {
		if e.Diagnostic.IsPrimary {
			return e, true
		}
	}
	return Entry[R]{}, false
}
