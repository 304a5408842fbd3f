// Package logging provides structured logging helpers for meetbot.
//
// All logging goes through log/slog. This package fixes attribute names so
// that bot ids, modes and upstream names are searchable the same way in every
// component.
//
// Create a logger scoped to a bot:
//
//	logger := logging.WithBot(slog.Default(), botID)
//	logger.Info("bot created", logging.Mode("direct"))
//
// Credentials are never logged directly:
//
//	logger.Info("mode selected", slog.String("api_key", logging.SanitizeToken(key)))
//
// When serving over stdio, stdout carries the MCP protocol, so NewLogger
// always writes to the writer it is given (stderr in practice).
package logging
