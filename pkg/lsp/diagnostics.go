package lsp

import (
	"fmt"

	"go.lsp.dev/protocol"

	"github.com/odvcencio/hoverkit/pkg/diagnostics"
	"github.com/odvcencio/hoverkit/pkg/document"
)

// Entry is a diagnostic positioned in LSP coordinates.
type Entry = diagnostics.Entry[document.Range[document.PointUTF16]]

type diagnosticKey struct {
	source string
	code   string
	rng    protocol.Range
}

// FromLSP groups a publishDiagnostics payload. Every diagnostic that is not
// itself referenced as related information starts a group as its primary
// entry; related information in the same document joins that group.
// Diagnostics that merely restate related information lend their severity
// to the matching group member instead of forming groups of their own.
func FromLSP(params *protocol.PublishDiagnosticsParams) []Entry {
	primaryGroups := make(map[diagnosticKey]int)
	sources := make(map[int]string)
	supportingByKey := make(map[diagnosticKey]diagnostics.Severity)

	var (
		entries []Entry
		nextID  int
	)
	for _, d := range params.Diagnostics {
		source := d.Source
		code := codeString(d.Code)

		isSupporting := false
		for _, info := range d.RelatedInformation {
			if _, ok := primaryGroups[diagnosticKey{source: source, code: code, rng: info.Location.Range}]; ok {
				isSupporting = true
				break
			}
		}

		if isSupporting {
			supportingByKey[diagnosticKey{source: source, code: code, rng: d.Range}] = severityFromLSP(d.Severity)
			continue
		}

		groupID := nextID
		nextID++
		sources[groupID] = source
		primaryGroups[diagnosticKey{source: source, code: code, rng: d.Range}] = groupID

		entries = append(entries, Entry{
			Range: rangeFromLSP(d.Range),
			Diagnostic: diagnostics.Diagnostic{
				Message:   d.Message,
				Severity:  severityFromLSP(d.Severity),
				Source:    source,
				Code:      code,
				GroupID:   groupID,
				IsPrimary: true,
			},
		})

		for _, info := range d.RelatedInformation {
			if info.Location.URI != params.URI || info.Message == "" {
				continue
			}
			entries = append(entries, Entry{
				Range: rangeFromLSP(info.Location.Range),
				Diagnostic: diagnostics.Diagnostic{
					Message:  info.Message,
					Severity: diagnostics.SeverityInformation,
					Source:   source,
					Code:     code,
					GroupID:  groupID,
				},
			})
		}
	}

	for i := range entries {
		d := &entries[i].Diagnostic
		if d.IsPrimary {
			continue
		}
		key := diagnosticKey{
			source: sources[d.GroupID],
			code:   d.Code,
			rng:    rangeToLSP(entries[i].Range),
		}
		if severity, ok := supportingByKey[key]; ok {
			d.Severity = severity
		}
	}
	return entries
}

// ApplyDiagnostics stores entries on buf, converting positions against its
// current text. Entries that no longer fit the text are dropped.
func ApplyDiagnostics(buf *document.Buffer, entries []Entry) int {
	snap := buf.Snapshot()
	converted := make([]diagnostics.Entry[document.Range[int]], 0, len(entries))
	for _, e := range entries {
		start, err := snap.OffsetAt(e.Range.Start)
		if err != nil {
			continue
		}
		end, err := snap.OffsetAt(e.Range.End)
		if err != nil {
			continue
		}
		converted = append(converted, diagnostics.Entry[document.Range[int]]{
			Range:      document.Range[int]{Start: start, End: end},
			Diagnostic: e.Diagnostic,
		})
	}
	buf.SetDiagnostics(converted)
	return len(converted)
}

func severityFromLSP(s protocol.DiagnosticSeverity) diagnostics.Severity {
	switch s {
	case protocol.DiagnosticSeverityWarning:
		return diagnostics.SeverityWarning
	case protocol.DiagnosticSeverityInformation:
		return diagnostics.SeverityInformation
	case protocol.DiagnosticSeverityHint:
		return diagnostics.SeverityHint
	default:
		return diagnostics.SeverityError
	}
}

func codeString(code interface{}) string {
	switch c := code.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return fmt.Sprintf("%g", c)
	default:
		return fmt.Sprint(c)
	}
}

func rangeFromLSP(r protocol.Range) document.Range[document.PointUTF16] {
	return document.Range[document.PointUTF16]{
		Start: fromProtocolPosition(r.Start),
		End:   fromProtocolPosition(r.End),
	}
}

func rangeToLSP(r document.Range[document.PointUTF16]) protocol.Range {
	return protocol.Range{Start: toProtocolPosition(r.Start), End: toProtocolPosition(r.End)}
}
