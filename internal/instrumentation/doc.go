// Package instrumentation provides OpenTelemetry instrumentation for the meetbot
// MCP server.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Upstream Metrics:
//   - upstream_requests_total: Counter of outbound requests by upstream, operation, status class
//   - upstream_request_duration_seconds: Histogram of outbound request durations
//   - upstream_retries_total: Counter of retried speak/chat operations
//
// Bot Metrics:
//   - active_bots: Number of bots currently held in the session registry
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>) and upstream calls
// (upstream.<name>.<operation>). Outbound HTTP requests carry otelhttp client spans.
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: meetbot)
package instrumentation
