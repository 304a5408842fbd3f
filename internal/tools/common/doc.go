// Package common provides shared utilities for MCP tool implementations:
// argument extraction and the instrumentation wrapper every tool handler
// is registered through.
package common
