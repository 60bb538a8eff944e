package lsp

import (
	"bytes"
	"encoding/json"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

const (
	methodCancelRequest = "$/cancelRequest"
	methodLogMessage    = "window/logMessage"
	methodShowMessage   = "window/showMessage"
)

// initializeParams carries only the capabilities the client uses.
type initializeParams struct {
	ProcessID    int                `json:"processId"`
	ClientInfo   *clientInfo        `json:"clientInfo,omitempty"`
	RootURI      string             `json:"rootUri,omitempty"`
	Capabilities clientCapabilities `json:"capabilities"`
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type clientCapabilities struct {
	TextDocument textDocumentClientCapabilities `json:"textDocument"`
}

type textDocumentClientCapabilities struct {
	Hover              hoverClientCapabilities              `json:"hover"`
	PublishDiagnostics publishDiagnosticsClientCapabilities `json:"publishDiagnostics"`
}

type hoverClientCapabilities struct {
	ContentFormat []protocol.MarkupKind `json:"contentFormat"`
}

type publishDiagnosticsClientCapabilities struct {
	RelatedInformation bool `json:"relatedInformation"`
}

// initializeResult keeps hoverProvider raw: servers send a bool or an
// options object.
type initializeResult struct {
	Capabilities struct {
		HoverProvider json.RawMessage `json:"hoverProvider,omitempty"`
	} `json:"capabilities"`
	ServerInfo *serverInfo `json:"serverInfo,omitempty"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

func (r *initializeResult) supportsHover() bool {
	raw := bytes.TrimSpace(r.Capabilities.HoverProvider)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("false")) {
		return false
	}
	return true
}

type cancelParams struct {
	ID jsonrpc2.ID `json:"id"`
}

// didChangeParams sends whole-document changes. Leaving out the range is
// what marks a change as a full replacement.
type didChangeParams struct {
	TextDocument   protocol.VersionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []fullChange                             `json:"contentChanges"`
}

type fullChange struct {
	Text string `json:"text"`
}

// hoverResponse is textDocument/hover's result. Contents stays raw because
// it is a MarkupContent, a MarkedString or a list of MarkedStrings.
type hoverResponse struct {
	Contents json.RawMessage `json:"contents"`
	Range    *protocol.Range `json:"range,omitempty"`
}

type logMessageParams struct {
	Type    int    `json:"type"`
	Message string `json:"message"`
}
