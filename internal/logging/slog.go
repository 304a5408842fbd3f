package logging

import (
	"fmt"
	"io"
	"log/slog"
)

// Common log attribute keys.
const (
	KeyOperation = "operation"
	KeyUpstream  = "upstream"
	KeyBotID     = "bot_id"
	KeyMode      = "mode"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyTool      = "tool"
)

// NewLogger builds a text slog.Logger writing to w. debug lowers the level to Debug.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithBot returns a logger with the bot_id attribute set.
func WithBot(logger *slog.Logger, botID string) *slog.Logger {
	return logger.With(slog.String(KeyBotID, botID))
}

// WithUpstream returns a logger with the upstream attribute set.
func WithUpstream(logger *slog.Logger, upstream string) *slog.Logger {
	return logger.With(slog.String(KeyUpstream, upstream))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// BotID returns a slog attribute for a bot id.
func BotID(botID string) slog.Attr {
	return slog.String(KeyBotID, botID)
}

// Mode returns a slog attribute for the upstream mode.
func Mode(mode string) slog.Attr {
	return slog.String(KeyMode, mode)
}

// Upstream returns a slog attribute for the upstream name.
func Upstream(upstream string) slog.Attr {
	return slog.String(KeyUpstream, upstream)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error. A nil error yields an empty group,
// which slog omits.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizeToken returns a length indicator for a credential without exposing
// any of its content.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
