package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrUpstream  = "upstream"
	attrTool      = "tool"
	attrBotID     = "bot_id"
)

// Metrics records observability metrics. The zero value is a valid no-op recorder.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	upstreamRequestsTotal   metric.Int64Counter
	upstreamRequestDuration metric.Float64Histogram
	upstreamRetriesTotal    metric.Int64Counter

	activeBots metric.Int64UpDownCounter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.upstreamRequestsTotal, err = meter.Int64Counter(
		"upstream_requests_total",
		metric.WithDescription("Total number of requests sent to upstream platforms"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream_requests_total counter: %w", err)
	}

	// Speech synthesis can legitimately take up to a minute.
	m.upstreamRequestDuration, err = meter.Float64Histogram(
		"upstream_request_duration_seconds",
		metric.WithDescription("Upstream request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream_request_duration_seconds histogram: %w", err)
	}

	m.upstreamRetriesTotal, err = meter.Int64Counter(
		"upstream_retries_total",
		metric.WithDescription("Total number of retried upstream operations"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream_retries_total counter: %w", err)
	}

	m.activeBots, err = meter.Int64UpDownCounter(
		"active_bots",
		metric.WithDescription("Number of bots held in the session registry"),
		metric.WithUnit("{bot}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_bots gauge: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an inbound HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordUpstreamRequest records one outbound request. statusCode is 0 when no
// response was received (timeout, connection error).
//
// Parameters:
//   - upstream: recall, openai or hosted
//   - operation: logical operation (create_bot, transcript, speak, ...)
func (m *Metrics) RecordUpstreamRequest(ctx context.Context, upstream, operation string, statusCode int, duration time.Duration) {
	if m == nil || m.upstreamRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrUpstream, upstream),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, StatusClass(statusCode)),
	)
	m.upstreamRequestsTotal.Add(ctx, 1, attrs)
	m.upstreamRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordRetry records that an operation needed a second attempt.
func (m *Metrics) RecordRetry(ctx context.Context, operation string) {
	if m == nil || m.upstreamRetriesTotal == nil {
		return
	}
	m.upstreamRetriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOperation, operation)))
}

// RecordToolInvocation records an MCP tool invocation. botID is only attached
// when detailed labels are enabled.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status, botID string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && botID != "" {
		attrs = append(attrs, attribute.String(attrBotID, botID))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// BotRegistered increments the active bots gauge.
func (m *Metrics) BotRegistered(ctx context.Context) {
	if m == nil || m.activeBots == nil {
		return
	}
	m.activeBots.Add(ctx, 1)
}

// BotReleased decrements the active bots gauge.
func (m *Metrics) BotReleased(ctx context.Context) {
	if m == nil || m.activeBots == nil {
		return
	}
	m.activeBots.Add(ctx, -1)
}
