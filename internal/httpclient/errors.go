package httpclient

import (
	"fmt"
	"time"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Operation, e.StatusCode, truncate(string(e.Body), 512))
}

// TimeoutError is returned when a request does not complete within its timeout.
type TimeoutError struct {
	Operation string
	Timeout   time.Duration
	Err       error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Operation, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
