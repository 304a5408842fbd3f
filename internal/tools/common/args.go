package common

import (
	"fmt"
	"strings"
)

// Argument names shared by several tools.
const (
	ArgBotID   = "bot_id"
	ArgText    = "text"
	ArgMessage = "message"
)

// StringArg returns the trimmed string argument name, or "" when it is
// missing or not a string.
func StringArg(args map[string]interface{}, name string) string {
	v, ok := args[name].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// RequiredStringArg returns the trimmed string argument name or an error
// naming the missing argument.
func RequiredStringArg(args map[string]interface{}, name string) (string, error) {
	v := StringArg(args, name)
	if v == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return v, nil
}

// BotIDFromArgs returns the bot_id argument, or "".
func BotIDFromArgs(args map[string]interface{}) string {
	return StringArg(args, ArgBotID)
}

// ContentFromArgs returns the spoken text or chat message carried by a
// tool call, or "".
func ContentFromArgs(args map[string]interface{}) string {
	if text := StringArg(args, ArgText); text != "" {
		return text
	}
	return StringArg(args, ArgMessage)
}
