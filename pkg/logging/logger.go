package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/odvcencio/hoverkit/pkg/errors"
)

// Category represents the subsystem generating the log
type Category string

const (
	CategoryHover   Category = "hover"
	CategoryBackend Category = "backend"
	CategoryRender  Category = "render"
	CategoryConfig  Category = "config"
	CategoryView    Category = "view"
)

// Format selects the slog handler.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Logger is a structured logger for hoverkit components
type Logger struct {
	*slog.Logger
}

// New creates a logger writing to w (stderr when nil).
func New(component string, level slog.Level, format Format, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == FormatText {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler).With(
		slog.String("component", component),
		slog.String("system", "hoverkit"),
	)}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid log level").
			WithContext("level", s)
	}
	return level, nil
}

// NewRequestID returns a sortable id for correlating one hover request.
func NewRequestID() string {
	return ulid.Make().String()
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithContext adds the trace and span ids of the active span, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return l
	}
	return l.with(
		slog.String("trace_id", spanCtx.TraceID().String()),
		slog.String("span_id", spanCtx.SpanID().String()),
	)
}

// WithCategory returns a logger tagged with a subsystem.
func (l *Logger) WithCategory(c Category) *Logger {
	return l.with(slog.String("category", string(c)))
}

// WithRequest returns a logger with request-specific fields
func (l *Logger) WithRequest(requestID string) *Logger {
	return l.with(slog.String("request_id", requestID))
}

// WithDocument returns a logger with document-specific fields
func (l *Logger) WithDocument(uri string) *Logger {
	return l.with(slog.String("document", uri))
}

// WithLSP returns a logger with LSP-specific fields
func (l *Logger) WithLSP(method string) *Logger {
	return l.with(slog.String("lsp_method", method))
}

// HoverTriggered logs a trigger that started a request.
func (l *Logger) HoverTriggered(offset int, immediate bool) {
	l.Debug("hover triggered",
		slog.Int("offset", offset),
		slog.Bool("immediate", immediate),
	)
}

// HoverResolved logs how a request ended.
func (l *Logger) HoverResolved(outcome string, blocks int, elapsed time.Duration) {
	l.Debug("hover resolved",
		slog.String("outcome", outcome),
		slog.Int("blocks", blocks),
		slog.Float64("duration_ms", float64(elapsed.Microseconds())/1000),
	)
}

// HoverFailed logs a backend failure. The request is treated as empty.
func (l *Logger) HoverFailed(err error) {
	l.Warn("hover request failed",
		slog.String("code", string(errors.GetCode(err))),
		slog.String("error", err.Error()),
	)
}

// LSPRequest logs an outgoing LSP request
func (l *Logger) LSPRequest(method string, id string) {
	l.Debug("lsp request",
		slog.String("method", method),
		slog.String("id", id),
	)
}

// LSPResponse logs an LSP response
func (l *Logger) LSPResponse(method string, resultSize int, duration time.Duration) {
	l.Debug("lsp response",
		slog.String("method", method),
		slog.Int("result_size", resultSize),
		slog.Float64("duration_ms", float64(duration.Microseconds())/1000),
	)
}
