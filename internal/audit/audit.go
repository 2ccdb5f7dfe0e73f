package audit

import (
	"context"
	"log/slog"
	"time"
)

// Event represents an audit entry for a single tool invocation.
type Event struct {
	// Type describes the event kind.
	Type string
	// Tool is the tool name.
	Tool string
	// CorrelationID links related events.
	CorrelationID string
	// Outcome is the invocation outcome kind.
	Outcome string
	// ExitCode is the process exit code, if the process completed.
	ExitCode int
	// PayloadBytes is the size of the composed payload.
	PayloadBytes int
	// OutputBytes is the size of the returned text.
	OutputBytes int
	// Duration is the wall-clock time of the invocation.
	Duration time.Duration
}

// Logger records audit events.
type Logger interface {
	// Record stores an audit event.
	Record(ctx context.Context, event Event)
}

// StdLogger writes audit events to slog.
type StdLogger struct {
	logger *slog.Logger
}

// New returns a StdLogger.
func New(logger *slog.Logger) *StdLogger {
	return &StdLogger{logger: logger}
}

// Record logs an audit event.
func (l *StdLogger) Record(ctx context.Context, event Event) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.InfoContext(ctx, "audit",
		"type", event.Type,
		"tool", event.Tool,
		"correlation_id", event.CorrelationID,
		"outcome", event.Outcome,
		"exit_code", event.ExitCode,
		"payload_bytes", event.PayloadBytes,
		"output_bytes", event.OutputBytes,
		"duration_ms", event.Duration.Milliseconds(),
	)
}
