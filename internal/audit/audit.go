// Package audit implements the mandatory, always-on persisted record of
// every orchestrator decision (§6 "Persisted state": "every request/response
// pair plus its PipelineTrace, written regardless of the trace store's
// availability"). It is a second slog JSON sink, independent of the
// application's general log stream, so audit records are never interleaved
// with or lost among ordinary log lines.
package audit

import (
	"context"
	"io"
	"log/slog"

	"github.com/eldercare/triage-core/internal/domain"
)

// Record is exactly what gets written, one JSON object per line.
type Record struct {
	RequestID   string               `json:"request_id"`
	InputText   string               `json:"input_text"`
	Verdict     string               `json:"verdict"`
	Reason      string               `json:"reason,omitempty"`
	AdapterEcho map[string]any       `json:"adapter_echo,omitempty"`
	DispatchErr string               `json:"dispatch_error,omitempty"`
	Trace       domain.PipelineTrace `json:"trace"`
}

// Logger writes one audit Record per request as a JSON line.
type Logger struct {
	handler *slog.Logger
}

// New builds an audit Logger writing newline-delimited JSON to w. Separate
// from the application's general logger — see newAuditLogger in the companion
// command for how the two sinks' destinations are configured independently.
func New(w io.Writer) *Logger {
	return &Logger{handler: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{}))}
}

// Write emits one audit record. It never returns an error to the caller: a
// failed write to the underlying io.Writer is dropped silently, since
// slog.Logger discards the error its handler returns.
func (l *Logger) Write(rec Record) {
	if l == nil {
		return
	}
	l.handler.LogAttrs(context.Background(), slog.LevelInfo, "audit",
		slog.String("request_id", rec.RequestID),
		slog.String("input_text", rec.InputText),
		slog.String("verdict", rec.Verdict),
		slog.String("reason", rec.Reason),
		slog.Any("adapter_echo", rec.AdapterEcho),
		slog.String("dispatch_error", rec.DispatchErr),
		slog.Any("trace", rec.Trace),
	)
}
