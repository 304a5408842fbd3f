// Package server provides the MCP server context and the HTTP surfaces of
// the meeting bot gateway.
//
// # Key Components
//
// ServerContext owns the bot service, the metrics recorder and the audit
// logger shared by every tool handler. Its Shutdown method releases every
// registered bot exactly once before the process exits.
//
// HTTPServer serves the MCP protocol over streamable HTTP at /mcp next to
// the Kubernetes health endpoints:
//   - /healthz: liveness
//   - /readyz: readiness, false while draining
//   - /healthz/detailed: version, upstream mode and active bot count
//
// MetricsServer exposes Prometheus metrics on a separate port.
package server
