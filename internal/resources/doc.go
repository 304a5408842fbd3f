// Package resources registers read-only MCP resources describing the
// server's meeting bots.
//
//   - meetbot://sessions: registered bots as JSON
//   - meetbot://server: upstream mode and bot count
package resources
