package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/odvcencio/hoverkit/pkg/config"
	"github.com/odvcencio/hoverkit/pkg/errors"
	"github.com/odvcencio/hoverkit/pkg/hover"
	"github.com/odvcencio/hoverkit/pkg/lsp"
	"github.com/odvcencio/hoverkit/pkg/syntax"
	"github.com/odvcencio/hoverkit/pkg/ui/runtime"
)

// session is one file opened against a spawned language server, with a
// hover controller driven by loop.
type session struct {
	editor *editor
	loop   *runtime.Loop
	client *lsp.Client
	ctrl   *hover.Controller

	// diagnosed receives a signal after each diagnostics batch is queued.
	diagnosed chan struct{}
}

func (a *app) openSession(ctx context.Context, path string) (*session, error) {
	command := a.cfg.LSPCommand()
	if command == nil {
		return nil, withExitCode(errors.New(errors.ErrCodeConfigInvalid, "no language server configured").
			WithUserMessage("set lsp.command in the config or HOVERKIT_LSP_COMMAND"), exitConfig)
	}

	ed, err := openEditor(path)
	if err != nil {
		return nil, withExitCode(err, exitUsage)
	}
	s := &session{
		editor:    ed,
		loop:      runtime.NewLoop(),
		diagnosed: make(chan struct{}, 1),
	}

	var stderr io.Writer
	if a.logger.Enabled(ctx, slog.LevelDebug) {
		stderr = a.stderr
	}
	s.client, err = lsp.Start(ctx, command, lsp.Options{
		Logger:        a.logger,
		ClientName:    "hoverkit",
		ClientVersion: version,
		Stderr:        stderr,
		OnDiagnostics: s.receiveDiagnostics,
	})
	if err != nil {
		return nil, err
	}

	if err := s.client.Initialize(ctx, config.ResolveProjectRoot(a.cfg)); err != nil {
		_ = s.client.Close()
		return nil, err
	}
	if err := s.client.DidOpen(ctx, ed.buf); err != nil {
		s.close()
		return nil, err
	}

	s.ctrl, err = hover.NewController(ed, hover.Options{
		Backend:      s.client,
		Languages:    syntax.NewRegistry(),
		Executor:     s.loop,
		Logger:       a.logger,
		Theme:        a.cfg.ResolvedTheme(),
		BackendName:  command[0],
		Delay:        a.cfg.Hover.Delay,
		RequestDelay: a.cfg.Hover.RequestDelay,
		Disabled:     !a.cfg.Hover.Enabled,
	})
	if err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// receiveDiagnostics runs on the connection goroutine; the buffer update
// happens on the loop.
func (s *session) receiveDiagnostics(documentURI string, entries []lsp.Entry) {
	buf := s.editor.buf
	if documentURI != buf.URI() {
		return
	}
	s.loop.Post(func() {
		lsp.ApplyDiagnostics(buf, entries)
		s.editor.Notify()
	})
	select {
	case s.diagnosed <- struct{}{}:
	default:
	}
}

// awaitDiagnostics waits up to d for the first diagnostics batch and
// applies whatever has arrived.
func (s *session) awaitDiagnostics(ctx context.Context, d time.Duration) {
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-s.diagnosed:
		case <-timer.C:
		case <-ctx.Done():
		}
	}
	s.loop.Drain()
}

// close shuts the server down politely, then reaps it.
func (s *session) close() {
	if s.ctrl != nil {
		s.ctrl.Dismiss()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.client.Shutdown(ctx)
	_ = s.client.Close()
}
