package common

import (
	"testing"
)

func TestStringArg(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]interface{}
		expected string
	}{
		{
			name:     "missing returns empty",
			args:     map[string]interface{}{},
			expected: "",
		},
		{
			name:     "value is trimmed",
			args:     map[string]interface{}{"bot_id": "  bot-1 "},
			expected: "bot-1",
		},
		{
			name:     "non-string returns empty",
			args:     map[string]interface{}{"bot_id": 123},
			expected: "",
		},
		{
			name:     "nil args returns empty",
			args:     nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StringArg(tt.args, ArgBotID); got != tt.expected {
				t.Errorf("StringArg() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRequiredStringArg(t *testing.T) {
	if _, err := RequiredStringArg(map[string]interface{}{"text": "   "}, ArgText); err == nil {
		t.Error("expected error for blank argument")
	} else if err.Error() != "text is required" {
		t.Errorf("unexpected error message: %q", err.Error())
	}

	got, err := RequiredStringArg(map[string]interface{}{"text": "hello"}, ArgText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Errorf("RequiredStringArg() = %q, want %q", got, "hello")
	}
}

func TestContentFromArgs(t *testing.T) {
	if got := ContentFromArgs(map[string]interface{}{"text": "hi"}); got != "hi" {
		t.Errorf("ContentFromArgs(text) = %q", got)
	}
	if got := ContentFromArgs(map[string]interface{}{"message": "yo"}); got != "yo" {
		t.Errorf("ContentFromArgs(message) = %q", got)
	}
	if got := ContentFromArgs(map[string]interface{}{"bot_id": "b"}); got != "" {
		t.Errorf("ContentFromArgs(none) = %q", got)
	}
}
