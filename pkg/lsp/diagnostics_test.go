package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/odvcencio/hoverkit/pkg/diagnostics"
	"github.com/odvcencio/hoverkit/pkg/document"
)

func lspRange(line, start, end uint32) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: start},
		End:   protocol.Position{Line: line, Character: end},
	}
}

func TestFromLSP_GroupsRelatedInformation(t *testing.T) {
	const docURI = protocol.DocumentURI("file:///a.rs")
	params := &protocol.PublishDiagnosticsParams{
		URI: docURI,
		Diagnostics: []protocol.Diagnostic{
			{
				Range:    lspRange(2, 8, 9),
				Severity: protocol.DiagnosticSeverityError,
				Source:   "rustc",
				Code:     "E0382",
				Message:  "use of moved value: `x`",
				RelatedInformation: []protocol.DiagnosticRelatedInformation{
					{Location: protocol.Location{URI: docURI, Range: lspRange(1, 8, 9)}, Message: "value moved here"},
					{Location: protocol.Location{URI: "file:///other.rs", Range: lspRange(0, 0, 1)}, Message: "elsewhere"},
					{Location: protocol.Location{URI: docURI, Range: lspRange(0, 0, 1)}, Message: ""},
				},
			},
			{
				// The server repeats the related location as its own
				// diagnostic pointing back at the primary.
				Range:    lspRange(1, 8, 9),
				Severity: protocol.DiagnosticSeverityHint,
				Source:   "rustc",
				Code:     "E0382",
				Message:  "value moved here",
				RelatedInformation: []protocol.DiagnosticRelatedInformation{
					{Location: protocol.Location{URI: docURI, Range: lspRange(2, 8, 9)}, Message: "original diagnostic"},
				},
			},
			{
				Range:   lspRange(4, 0, 3),
				Source:  "clippy",
				Code:    float64(12),
				Message: "needless return",
			},
		},
	}

	entries := FromLSP(params)
	require.Len(t, entries, 3)

	primary := entries[0]
	assert.Equal(t, "use of moved value: `x`", primary.Diagnostic.Message)
	assert.True(t, primary.Diagnostic.IsPrimary)
	assert.Equal(t, 0, primary.Diagnostic.GroupID)
	assert.Equal(t, "E0382", primary.Diagnostic.Code)
	assert.Equal(t, diagnostics.SeverityError, primary.Diagnostic.Severity)

	related := entries[1]
	assert.Equal(t, "value moved here", related.Diagnostic.Message)
	assert.False(t, related.Diagnostic.IsPrimary)
	assert.Equal(t, 0, related.Diagnostic.GroupID)
	assert.Equal(t, "rustc", related.Diagnostic.Source)
	assert.Equal(t, diagnostics.SeverityHint, related.Diagnostic.Severity, "severity comes from the supporting diagnostic")
	assert.Equal(t, document.PointUTF16{Line: 1, Character: 8}, related.Range.Start)

	other := entries[2]
	assert.Equal(t, 1, other.Diagnostic.GroupID)
	assert.True(t, other.Diagnostic.IsPrimary)
	assert.Equal(t, "12", other.Diagnostic.Code)
	assert.Equal(t, diagnostics.SeverityError, other.Diagnostic.Severity, "missing severity counts as an error")
}

func TestFromLSP_RelatedDefaultsToInformation(t *testing.T) {
	const docURI = protocol.DocumentURI("file:///a.go")
	entries := FromLSP(&protocol.PublishDiagnosticsParams{
		URI: docURI,
		Diagnostics: []protocol.Diagnostic{{
			Range:    lspRange(0, 0, 1),
			Severity: protocol.DiagnosticSeverityWarning,
			Message:  "shadowed",
			RelatedInformation: []protocol.DiagnosticRelatedInformation{
				{Location: protocol.Location{URI: docURI, Range: lspRange(3, 0, 1)}, Message: "declared here"},
			},
		}},
	})

	require.Len(t, entries, 2)
	assert.Equal(t, diagnostics.SeverityInformation, entries[1].Diagnostic.Severity)
}

func TestApplyDiagnostics(t *testing.T) {
	buf := document.NewBuffer("file:///a.go", "go", "var é = 1\nvar b = 2\n")
	entries := []Entry{
		{
			Range: document.Range[document.PointUTF16]{
				Start: document.PointUTF16{Line: 0, Character: 4},
				End:   document.PointUTF16{Line: 0, Character: 5},
			},
			Diagnostic: diagnostics.Diagnostic{Message: "unused", IsPrimary: true},
		},
		{
			Range: document.Range[document.PointUTF16]{
				Start: document.PointUTF16{Line: 7},
				End:   document.PointUTF16{Line: 7, Character: 1},
			},
			Diagnostic: diagnostics.Diagnostic{Message: "stale", IsPrimary: true},
		},
	}

	assert.Equal(t, 1, ApplyDiagnostics(buf, entries))

	got := buf.Snapshot().DiagnosticsInRange(0, 100)
	require.Len(t, got, 1)
	assert.Equal(t, "unused", got[0].Diagnostic.Message)
	assert.Equal(t, document.Range[int]{Start: 4, End: 6}, got[0].Range, "é is two bytes")
}
