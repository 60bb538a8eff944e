// Package lsp is a minimal language server client that answers hover
// requests and collects published diagnostics.
package lsp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/odvcencio/hoverkit/pkg/errors"
	"github.com/odvcencio/hoverkit/pkg/hover"
	"github.com/odvcencio/hoverkit/pkg/logging"
	"github.com/odvcencio/hoverkit/pkg/observability"
)

// TextDocument is what the client needs to open or update a document.
type TextDocument interface {
	URI() string
	LanguageID() string
	Version() int
	Text() string
}

// DiagnosticsHandler receives grouped diagnostics. It runs on the
// connection goroutine and must not block.
type DiagnosticsHandler func(documentURI string, entries []Entry)

// Options configures a Client.
type Options struct {
	Logger        *logging.Logger
	ClientName    string
	ClientVersion string
	// Stderr receives the server process's stderr. Discarded when nil.
	Stderr        io.Writer
	OnDiagnostics DiagnosticsHandler
}

// Client talks to one language server.
type Client struct {
	conn          jsonrpc2.Conn
	logger        *logging.Logger
	name          string
	version       string
	onDiagnostics DiagnosticsHandler

	mu          sync.Mutex
	hoverOK     bool
	initialized bool
	server      string

	process *exec.Cmd
}

// NewClient starts serving the connection on rwc.
func NewClient(ctx context.Context, rwc io.ReadWriteCloser, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	c := &Client{
		conn:          jsonrpc2.NewConn(jsonrpc2.NewStream(rwc)),
		logger:        logger.WithCategory(logging.CategoryBackend),
		name:          opts.ClientName,
		version:       opts.ClientVersion,
		onDiagnostics: opts.OnDiagnostics,
	}
	if c.name == "" {
		c.name = "hoverkit"
	}
	c.conn.Go(ctx, c.handle)
	return c
}

// Start launches command and connects to it over stdio.
func Start(ctx context.Context, command []string, opts Options) (*Client, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "language server command is empty")
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBackendUnavailable, "failed to open server stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBackendUnavailable, "failed to open server stdout")
	}
	cmd.Stderr = opts.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = io.Discard
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBackendUnavailable, "failed to start language server").
			WithContext("command", command[0])
	}

	c := NewClient(ctx, &stdio{reader: stdout, writer: stdin}, opts)
	c.process = cmd
	return c, nil
}

// Initialize performs the initialize handshake.
func (c *Client) Initialize(ctx context.Context, rootPath string) error {
	params := initializeParams{
		ProcessID:  os.Getpid(),
		ClientInfo: &clientInfo{Name: c.name, Version: c.version},
		Capabilities: clientCapabilities{
			TextDocument: textDocumentClientCapabilities{
				Hover: hoverClientCapabilities{
					ContentFormat: []protocol.MarkupKind{protocol.Markdown, protocol.PlainText},
				},
				PublishDiagnostics: publishDiagnosticsClientCapabilities{RelatedInformation: true},
			},
		},
	}
	if rootPath != "" {
		params.RootURI = string(uri.File(rootPath))
	}

	var result initializeResult
	if err := c.call(ctx, protocol.MethodInitialize, params, &result); err != nil {
		return err
	}
	if err := c.conn.Notify(ctx, protocol.MethodInitialized, struct{}{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeBackendRequest, "failed to send initialized")
	}

	c.mu.Lock()
	c.initialized = true
	c.hoverOK = result.supportsHover()
	if result.ServerInfo != nil {
		c.server = result.ServerInfo.Name
	}
	c.mu.Unlock()

	c.logger.Info("language server initialized", "server", c.ServerName(), "hover", c.SupportsHover())
	return nil
}

// ServerName is the name the server reported, if any.
func (c *Client) ServerName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.server
}

// SupportsHover reports whether the server advertised hover support.
func (c *Client) SupportsHover() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hoverOK
}

// DidOpen announces a document.
func (c *Client) DidOpen(ctx context.Context, doc TextDocument) error {
	params := &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        protocol.DocumentURI(doc.URI()),
			LanguageID: protocol.LanguageIdentifier(doc.LanguageID()),
			Version:    int32(doc.Version()),
			Text:       doc.Text(),
		},
	}
	return c.notify(ctx, protocol.MethodTextDocumentDidOpen, params)
}

// DidChange sends the document's full text at its current version.
func (c *Client) DidChange(ctx context.Context, doc TextDocument) error {
	params := &didChangeParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(doc.URI())},
			Version:                int32(doc.Version()),
		},
		ContentChanges: []fullChange{{Text: doc.Text()}},
	}
	return c.notify(ctx, protocol.MethodTextDocumentDidChange, params)
}

// Hover implements hover.Backend.
func (c *Client) Hover(ctx context.Context, doc hover.DocumentHandle, pos hover.Position) (*hover.Result, error) {
	c.mu.Lock()
	ready, supported := c.initialized, c.hoverOK
	c.mu.Unlock()
	if !ready {
		return nil, errors.New(errors.ErrCodeBackendUnavailable, "language server not initialized")
	}
	if !supported {
		return nil, nil
	}

	params := &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(doc.URI())},
			Position:     toProtocolPosition(pos),
		},
	}
	var raw json.RawMessage
	if err := c.call(ctx, protocol.MethodTextDocumentHover, params, &raw); err != nil {
		return nil, err
	}
	return decodeHover(raw)
}

// Shutdown asks the server to shut down and exit.
func (c *Client) Shutdown(ctx context.Context) error {
	if err := c.call(ctx, protocol.MethodShutdown, nil, nil); err != nil {
		return err
	}
	return c.notify(ctx, protocol.MethodExit, nil)
}

// Close drops the connection and reaps the server process.
func (c *Client) Close() error {
	err := c.conn.Close()
	if c.process != nil {
		done := make(chan error, 1)
		go func() { done <- c.process.Wait() }()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			_ = c.process.Process.Kill()
			<-done
		}
	}
	return err
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.conn.Done()
}

func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	log := c.logger.WithContext(ctx).WithLSP(method)
	observability.SetAttributes(ctx, observability.AttrLSPMethod.String(method))

	started := time.Now()
	id, err := c.conn.Call(ctx, method, params, result)
	log.LSPRequest(method, fmt.Sprint(id))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.cancel(id)
			return ctxErr
		}
		if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrClosedPipe) {
			return errors.Wrap(err, errors.ErrCodeBackendUnavailable, "language server connection closed").
				WithContext("method", method)
		}
		return errors.Wrap(err, errors.ErrCodeBackendRequest, "language server request failed").
			WithContext("method", method)
	}

	size := 0
	if raw, ok := result.(*json.RawMessage); ok && raw != nil {
		size = len(*raw)
	}
	log.LSPResponse(method, size, time.Since(started))
	return nil
}

func (c *Client) notify(ctx context.Context, method string, params interface{}) error {
	if err := c.conn.Notify(ctx, method, params); err != nil {
		return errors.Wrap(err, errors.ErrCodeBackendRequest, "language server notification failed").
			WithContext("method", method)
	}
	return nil
}

// cancel tells the server to stop working on an abandoned request.
func (c *Client) cancel(id jsonrpc2.ID) {
	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	if err := c.conn.Notify(ctx, methodCancelRequest, &cancelParams{ID: id}); err != nil {
		c.logger.Debug("failed to cancel request", "id", fmt.Sprint(id), "error", err)
	}
}

// handle serves messages the server sends to the client.
func (c *Client) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case protocol.MethodTextDocumentPublishDiagnostics:
		var params protocol.PublishDiagnosticsParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			c.logger.Warn("malformed diagnostics", "error", err)
			return reply(ctx, nil, fmt.Errorf("%s: %w", jsonrpc2.ErrParse, err))
		}
		entries := FromLSP(&params)
		c.logger.Debug("diagnostics published", "uri", string(params.URI), "count", len(entries))
		if c.onDiagnostics != nil {
			c.onDiagnostics(string(params.URI), entries)
		}
		return reply(ctx, nil, nil)

	case methodLogMessage, methodShowMessage:
		var params logMessageParams
		if err := json.Unmarshal(req.Params(), &params); err == nil {
			c.logger.Debug("server message", "type", params.Type, "message", params.Message)
		}
		return reply(ctx, nil, nil)
	}
	return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
}

// stdio joins a child's stdout and stdin into one stream.
type stdio struct {
	reader io.ReadCloser
	writer io.WriteCloser
}

func (s *stdio) Read(b []byte) (int, error) {
	return s.reader.Read(b)
}

func (s *stdio) Write(b []byte) (int, error) {
	return s.writer.Write(b)
}

func (s *stdio) Close() error {
	return stderrors.Join(s.writer.Close(), s.reader.Close())
}
