package upstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/teemow/meetbot/internal/httpclient"
)

// Category classifies an upstream failure.
type Category string

const (
	CategoryAuth        Category = "auth"
	CategoryForbidden   Category = "forbidden"
	CategoryNotFound    Category = "not_found"
	CategoryRateLimited Category = "rate_limited"
	CategoryService     Category = "service"
	CategoryTimeout     Category = "timeout"
	CategoryGeneric     Category = "generic"
)

// Error is a normalized upstream failure. Its message is safe to show to
// the agent as-is.
type Error struct {
	Category   Category
	Operation  string
	StatusCode int
	Detail     string

	// Credential names the environment variable holding the key used for
	// the failed call.
	Credential string
	BotID      string

	Timeout time.Duration
	Err     error
}

func (e *Error) Error() string {
	switch e.Category {
	case CategoryAuth:
		return fmt.Sprintf("Authentication failed (HTTP %d): check that %s is set to a valid key", e.StatusCode, e.Credential)
	case CategoryForbidden:
		if e.BotID != "" {
			return fmt.Sprintf("Access denied (HTTP %d) for bot %s: the credential is not allowed to operate it", e.StatusCode, e.BotID)
		}
		return fmt.Sprintf("Access denied (HTTP %d): check the permissions of %s", e.StatusCode, e.Credential)
	case CategoryNotFound:
		if e.BotID != "" {
			return fmt.Sprintf("Bot %s not found (HTTP 404): it likely already left the meeting", e.BotID)
		}
		return "Not found (HTTP 404): the bot likely already left the meeting"
	case CategoryRateLimited:
		return "Rate limited by the upstream API (HTTP 429): wait a few seconds and retry"
	case CategoryService:
		return fmt.Sprintf("Upstream service error (HTTP %d): the platform is having trouble, retry in a moment", e.StatusCode)
	case CategoryTimeout:
		if e.Timeout > 0 {
			return fmt.Sprintf("Request timed out after %s: the platform did not respond, retry in a moment", e.Timeout)
		}
		return "Request timed out: the platform did not respond, retry in a moment"
	default:
		if e.StatusCode == 0 {
			return fmt.Sprintf("API error: %s", e.Detail)
		}
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Detail)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by category, so errors.Is(err, &Error{Category: CategoryNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Category == e.Category
}

// CategoryOf returns the category of err, or "" if it is not an *Error.
func CategoryOf(err error) Category {
	var upErr *Error
	if errors.As(err, &upErr) {
		return upErr.Category
	}
	return ""
}

// Scope describes the call being normalized.
type Scope struct {
	Operation  string
	Credential string
	BotID      string
}

// Normalize converts a transport error into an *Error. nil stays nil and an
// existing *Error is returned unchanged.
func Normalize(err error, scope Scope) error {
	if err == nil {
		return nil
	}

	var upErr *Error
	if errors.As(err, &upErr) {
		return upErr
	}

	normalized := &Error{
		Operation:  scope.Operation,
		Credential: scope.Credential,
		BotID:      scope.BotID,
		Err:        err,
	}

	var timeoutErr *httpclient.TimeoutError
	if errors.As(err, &timeoutErr) {
		normalized.Category = CategoryTimeout
		normalized.Timeout = timeoutErr.Timeout
		return normalized
	}

	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		normalized.StatusCode = statusErr.StatusCode
		normalized.Category = CategorizeStatus(statusErr.StatusCode)
		normalized.Detail = ExtractDetail(statusErr.Body)
		return normalized
	}

	normalized.Category = CategoryGeneric
	normalized.Detail = err.Error()
	return normalized
}

// CategorizeStatus maps an HTTP status code to a Category.
func CategorizeStatus(statusCode int) Category {
	switch {
	case statusCode == http.StatusUnauthorized:
		return CategoryAuth
	case statusCode == http.StatusForbidden:
		return CategoryForbidden
	case statusCode == http.StatusNotFound:
		return CategoryNotFound
	case statusCode == http.StatusTooManyRequests:
		return CategoryRateLimited
	case statusCode >= 500 && statusCode <= 599:
		return CategoryService
	default:
		return CategoryGeneric
	}
}

// ExtractDetail pulls a human-readable message out of an error payload. It
// looks at "detail", "message" and "error" (string or {"message": ...}) and
// falls back to the raw payload.
func ExtractDetail(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "empty response body"
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &payload); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			raw, ok := payload[key]
			if !ok {
				continue
			}
			if s := rawMessageText(raw); s != "" {
				return s
			}
		}
	}

	return string(trimmed)
}

func rawMessageText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Message != "" {
		return nested.Message
	}

	// Structured detail such as a validation error list.
	if len(raw) > 0 && string(raw) != "null" {
		return string(raw)
	}
	return ""
}

// ConfigError reports that no complete credential set is available. It is
// fatal at startup.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("no usable credentials found. Set one of:\n")
	fmt.Fprintf(&b, "  hosted mode: %s\n", EnvMeetbotAPIKey)
	fmt.Fprintf(&b, "  direct mode: %s and %s", EnvRecallAPIKey, EnvOpenAIAPIKey)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "\nmissing: %s", strings.Join(e.Missing, ", "))
	}
	return b.String()
}
