package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestAttrs(t *testing.T) {
	tests := []struct {
		name string
		attr slog.Attr
		key  string
		want string
	}{
		{"operation", Operation("speak"), KeyOperation, "speak"},
		{"bot id", BotID("bot-1"), KeyBotID, "bot-1"},
		{"mode", Mode("hosted"), KeyMode, "hosted"},
		{"upstream", Upstream("recall"), KeyUpstream, "recall"},
		{"tool", Tool("meetbot_speak"), KeyTool, "meetbot_speak"},
		{"status", Status("success"), KeyStatus, "success"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.key {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.key)
			}
			if tt.attr.Value.String() != tt.want {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.want)
			}
		})
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("boom"))
	if attr.Key != KeyError || attr.Value.String() != "boom" {
		t.Errorf("Err() = %v, want error=boom", attr)
	}

	if attr := Err(nil); attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty group", attr.Key)
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"", "<empty>"},
		{"abc123", "[token:6 chars]"},
		{"sk-very-secret-key", "[token:18 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := SanitizeToken(tt.token); got != tt.expected {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.expected)
			}
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer

	logger := NewLogger(&buf, false)
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug message written at info level: %q", buf.String())
	}

	logger = NewLogger(&buf, true)
	WithBot(logger, "bot-9").Debug("visible")
	out := buf.String()
	if !strings.Contains(out, "visible") || !strings.Contains(out, "bot_id=bot-9") {
		t.Errorf("unexpected output %q", out)
	}
}
