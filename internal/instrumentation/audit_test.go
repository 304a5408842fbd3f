package instrumentation

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

const (
	testBotID     = "bot-123"
	testToolSpeak = "meetbot_speak"
	testContent   = "hello everyone"
)

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestToolInvocation_NewAndComplete(t *testing.T) {
	ti := NewToolInvocation(testToolSpeak).WithBot(testBotID).WithMode("direct")

	if ti.ID == "" {
		t.Error("ID should be set")
	}
	if ti.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}

	ti.Complete(true, "")
	if !ti.Success {
		t.Error("Success should be true")
	}
	if ti.Duration < 0 {
		t.Error("Duration should not be negative")
	}
	if ti.Status() != StatusSuccess {
		t.Errorf("Status() = %q, want %q", ti.Status(), StatusSuccess)
	}

	ti.Complete(false, "Unknown bot session")
	if ti.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", ti.Status(), StatusError)
	}
}

func TestToolInvocation_UniqueIDs(t *testing.T) {
	a := NewToolInvocation(testToolSpeak)
	b := NewToolInvocation(testToolSpeak)
	if a.ID == b.ID {
		t.Error("invocation ids should be unique")
	}
}

func TestToolInvocation_LogAttrsContent(t *testing.T) {
	ti := NewToolInvocation(testToolSpeak).WithBot(testBotID).WithContent(testContent)
	ti.Complete(true, "")

	hasContent := func(attrs []slog.Attr) bool {
		for _, a := range attrs {
			if a.Key == "content" {
				return true
			}
		}
		return false
	}

	if hasContent(ti.LogAttrs(false)) {
		t.Error("content must not be logged unless requested")
	}
	if !hasContent(ti.LogAttrs(true)) {
		t.Error("content should be logged when requested")
	}
}

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(newBufferLogger(&buf), AuditLoggingConfig{Enabled: true})

	ti := NewToolInvocation(testToolSpeak).WithBot(testBotID).WithContent(testContent)
	al.LogToolInvocation(context.Background(), ti.Complete(true, ""))

	out := buf.String()
	if !strings.Contains(out, "tool_executed") {
		t.Errorf("expected tool_executed record, got %q", out)
	}
	if !strings.Contains(out, testBotID) {
		t.Errorf("expected bot id in record, got %q", out)
	}
	if strings.Contains(out, testContent) {
		t.Errorf("content leaked into audit record: %q", out)
	}

	buf.Reset()
	failed := NewToolInvocation(testToolSpeak).WithBot(testBotID)
	al.LogToolInvocation(context.Background(), failed.Complete(false, "boom"))
	out = buf.String()
	if !strings.Contains(out, "tool_failed") || !strings.Contains(out, "level=WARN") {
		t.Errorf("expected warn tool_failed record, got %q", out)
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(newBufferLogger(&buf), AuditLoggingConfig{Enabled: false})
	al.LogToolInvocation(context.Background(), NewToolInvocation(testToolSpeak).Complete(true, ""))

	if buf.Len() != 0 {
		t.Errorf("disabled audit logger wrote %q", buf.String())
	}

	var nilLogger *AuditLogger
	nilLogger.LogToolInvocation(context.Background(), NewToolInvocation(testToolSpeak))
}
