// Package logger builds the service slog.Logger. Every record written with a
// context carrying an OTel span gets trace_id and span_id attributes.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

const (
	colorRed   = "\x1b[31m"
	colorReset = "\x1b[0m"
)

// New writes JSON in deployed environments and colored text locally.
func New(env string) *slog.Logger {
	return NewWithWriter(env, os.Stdout)
}

func NewWithWriter(env string, w io.Writer) *slog.Logger {
	var handler slog.Handler
	if structured(env) {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: true,
		})
	} else {
		handler = &errorHighlighter{next: slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})}
	}
	return slog.New(&spanAttrs{next: handler})
}

// WithService tags every record with the service identity.
func WithService(l *slog.Logger, name, version, env string) *slog.Logger {
	return l.With(
		slog.String("service", name),
		slog.String("version", version),
		slog.String("environment", env),
	)
}

func structured(env string) bool {
	if _, inK8s := os.LookupEnv("KUBERNETES_SERVICE_HOST"); inK8s {
		return true
	}
	switch env {
	case "prod", "production", "dev", "staging":
		return true
	}
	return false
}

// errorHighlighter paints ERROR messages red on a terminal.
type errorHighlighter struct {
	next slog.Handler
}

func (h *errorHighlighter) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *errorHighlighter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < slog.LevelError {
		return h.next.Handle(ctx, r)
	}
	colored := slog.NewRecord(r.Time, r.Level, colorRed+r.Message+colorReset, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		colored.AddAttrs(a)
		return true
	})
	return h.next.Handle(ctx, colored)
}

func (h *errorHighlighter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &errorHighlighter{next: h.next.WithAttrs(attrs)}
}

func (h *errorHighlighter) WithGroup(name string) slog.Handler {
	return &errorHighlighter{next: h.next.WithGroup(name)}
}

type spanAttrs struct {
	next slog.Handler
}

func (h *spanAttrs) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *spanAttrs) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, r)
}

func (h *spanAttrs) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &spanAttrs{next: h.next.WithAttrs(attrs)}
}

func (h *spanAttrs) WithGroup(name string) slog.Handler {
	return &spanAttrs{next: h.next.WithGroup(name)}
}
