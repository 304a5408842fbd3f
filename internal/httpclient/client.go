package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/teemow/meetbot/internal/instrumentation"
	"github.com/teemow/meetbot/internal/logging"
)

const (
	// DefaultTimeout bounds bot-management, chat and status calls.
	DefaultTimeout = 30 * time.Second

	// SpeechTimeout bounds speech synthesis calls.
	SpeechTimeout = 60 * time.Second

	// maxBodyBytes caps response bodies; synthesized audio is the largest payload.
	maxBodyBytes = 32 << 20
)

// Config configures a Client.
type Config struct {
	// Upstream names the remote platform in metrics and logs.
	Upstream string

	// RateLimit is the sustained request rate per second. 0 disables pacing.
	RateLimit float64

	// Burst is the token bucket size when RateLimit is set (default: 1).
	Burst int

	// Transport is the base round tripper (default: http.DefaultTransport).
	Transport http.RoundTripper

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Client performs bounded HTTP requests against one upstream.
type Client struct {
	upstream string
	http     *http.Client
	limiter  *rate.Limiter
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
}

// New creates a Client.
func New(cfg Config) *Client {
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		upstream: cfg.Upstream,
		// Per-request contexts carry the deadline, the client itself has none.
		http:    &http.Client{Transport: otelhttp.NewTransport(base)},
		limiter: limiter,
		metrics: cfg.Metrics,
		logger:  logging.WithUpstream(logger, cfg.Upstream),
	}
}

// Request describes one outbound call.
type Request struct {
	// Operation is the logical operation name used in metrics and errors.
	Operation string
	Method    string
	URL       string
	Header    http.Header

	// JSON, when non-nil, is encoded as the request body.
	JSON any

	// Timeout bounds the whole call including rate limiting (default: DefaultTimeout).
	Timeout time.Duration
}

// Response is a fully read 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do executes req. Non-2xx responses return *StatusError, deadline expiry
// returns *TimeoutError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.do(ctx, req)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		statusCode = statusErr.StatusCode
	}
	c.metrics.RecordUpstreamRequest(ctx, c.upstream, req.Operation, statusCode, time.Since(start))

	if err != nil {
		if isTimeout(ctx, err) {
			err = &TimeoutError{Operation: req.Operation, Timeout: timeout, Err: err}
		}
		c.logger.Debug("upstream request failed",
			logging.Operation(req.Operation),
			slog.Int("status_code", statusCode),
			slog.Duration("duration", time.Since(start)),
			logging.Err(err))
		return nil, err
	}

	c.logger.Debug("upstream request completed",
		logging.Operation(req.Operation),
		slog.Int("status_code", statusCode),
		slog.Duration("duration", time.Since(start)))
	return resp, nil
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	var body io.Reader
	if req.JSON != nil {
		payload, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", req.Operation, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", req.Operation, err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if req.JSON != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", req.Operation, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", req.Operation, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &StatusError{
			Operation:  req.Operation,
			StatusCode: httpResp.StatusCode,
			Body:       data,
		}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

// DoJSON executes req and decodes a JSON response body into out. An empty
// body leaves out untouched. out may be nil when the body is not needed.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", req.Operation, err)
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
