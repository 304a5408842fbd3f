// Package cmd implements the command-line interface for meetbot.
//
// This package provides the following commands:
//   - serve: Start the MCP server (default when no subcommand is given)
//   - check-config: Show which upstream mode the environment selects
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
package cmd
