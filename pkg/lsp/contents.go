package lsp

import (
	"bytes"
	"encoding/json"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/odvcencio/hoverkit/pkg/document"
	"github.com/odvcencio/hoverkit/pkg/errors"
	"github.com/odvcencio/hoverkit/pkg/hover"
	"github.com/odvcencio/hoverkit/pkg/ui/markdown"
)

// decodeHover converts a textDocument/hover result. A null result means
// the server has nothing to say.
func decodeHover(raw json.RawMessage) (*hover.Result, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var resp hoverResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBackendProtocol, "malformed hover result")
	}
	blocks, err := decodeContents(resp.Contents)
	if err != nil {
		return nil, err
	}

	result := &hover.Result{Contents: blocks}
	if resp.Range != nil {
		result.Range = &document.Range[hover.Position]{
			Start: fromProtocolPosition(resp.Range.Start),
			End:   fromProtocolPosition(resp.Range.End),
		}
	}
	return result, nil
}

// decodeContents accepts every shape hover contents take on the wire.
// Blank entries are dropped.
func decodeContents(raw json.RawMessage) ([]markdown.Block, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var blocks []markdown.Block
	if raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBackendProtocol, "malformed hover contents")
		}
		for _, item := range items {
			block, err := decodeMarked(item)
			if err != nil {
				return nil, err
			}
			blocks = appendBlock(blocks, block)
		}
		return blocks, nil
	}

	block, err := decodeMarked(raw)
	if err != nil {
		return nil, err
	}
	return appendBlock(blocks, block), nil
}

// decodeMarked decodes a bare string (markdown), a {language, value} pair
// (code) or a {kind, value} MarkupContent.
func decodeMarked(raw json.RawMessage) (markdown.Block, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return markdown.Block{}, errors.Wrap(err, errors.ErrCodeBackendProtocol, "malformed marked string")
		}
		return markdown.Markdown(text), nil
	}

	var obj struct {
		Kind     protocol.MarkupKind `json:"kind"`
		Language *string             `json:"language"`
		Value    string              `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return markdown.Block{}, errors.Wrap(err, errors.ErrCodeBackendProtocol, "malformed hover content")
	}

	switch {
	case obj.Kind == protocol.PlainText:
		return markdown.PlainText(obj.Value), nil
	case obj.Kind == protocol.Markdown:
		return markdown.Markdown(obj.Value), nil
	case obj.Language != nil:
		return markdown.Code(obj.Value, *obj.Language), nil
	case obj.Kind != "":
		return markdown.Block{}, errors.New(errors.ErrCodeBackendProtocol, "unknown markup kind").
			WithContext("kind", string(obj.Kind))
	default:
		return markdown.Markdown(obj.Value), nil
	}
}

func appendBlock(blocks []markdown.Block, b markdown.Block) []markdown.Block {
	if strings.TrimSpace(b.Text) == "" {
		return blocks
	}
	return append(blocks, b)
}

func fromProtocolPosition(p protocol.Position) hover.Position {
	return hover.Position{Line: p.Line, Character: p.Character}
}

func toProtocolPosition(p hover.Position) protocol.Position {
	return protocol.Position{Line: p.Line, Character: p.Character}
}
