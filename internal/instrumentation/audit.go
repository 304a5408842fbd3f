package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ToolInvocation captures one MCP tool call for the audit trail.
type ToolInvocation struct {
	ID   string
	Tool string

	BotID string
	Mode  string

	// Content is the spoken text or chat message, only logged when the
	// audit logger is configured with IncludeContent.
	Content string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation creates a ToolInvocation with timing started.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		ID:        uuid.NewString(),
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithBot sets the bot the invocation targets.
func (ti *ToolInvocation) WithBot(botID string) *ToolInvocation {
	ti.BotID = botID
	return ti
}

// WithMode sets the upstream mode serving the invocation.
func (ti *ToolInvocation) WithMode(mode string) *ToolInvocation {
	ti.Mode = mode
	return ti
}

// WithContent sets the user-visible content carried by the invocation.
func (ti *ToolInvocation) WithContent(content string) *ToolInvocation {
	ti.Content = content
	return ti
}

// WithSpanContext copies trace and span ids from ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID = GetTraceID(ctx)
	ti.SpanID = GetSpanID(ctx)
	return ti
}

// Complete marks the invocation as finished.
func (ti *ToolInvocation) Complete(success bool, errMsg string) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	ti.Error = errMsg
	return ti
}

// Status returns "success" or "error".
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the slog attributes for the invocation. Content is only
// included when includeContent is set.
func (ti *ToolInvocation) LogAttrs(includeContent bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("invocation_id", ti.ID),
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.BotID != "" {
		attrs = append(attrs, slog.String("bot_id", ti.BotID))
	}
	if ti.Mode != "" {
		attrs = append(attrs, slog.String("mode", ti.Mode))
	}
	if includeContent && ti.Content != "" {
		attrs = append(attrs, slog.String("content", ti.Content))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID), slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	return attrs
}

// AuditLogger writes one structured record per tool invocation.
type AuditLogger struct {
	logger         *slog.Logger
	includeContent bool
	enabled        bool
}

// NewAuditLogger creates an AuditLogger. A nil logger means slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:         logger,
		includeContent: config.IncludeContent,
		enabled:        config.Enabled,
	}
}

// LogToolInvocation logs ti at info level on success and warn level on failure.
func (al *AuditLogger) LogToolInvocation(ctx context.Context, ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	level := slog.LevelInfo
	msg := "tool_executed"
	if !ti.Success {
		level = slog.LevelWarn
		msg = "tool_failed"
	}
	al.logger.LogAttrs(ctx, level, msg, ti.LogAttrs(al.includeContent)...)
}
