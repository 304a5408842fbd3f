package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/teemow/meetbot/internal/instrumentation"
	"github.com/teemow/meetbot/internal/lifecycle"
	"github.com/teemow/meetbot/internal/meetbot"
	"github.com/teemow/meetbot/internal/session"
	"github.com/teemow/meetbot/internal/upstream"
)

// ServerContext holds the long-lived objects shared by all tool handlers.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	service     *meetbot.Service
	lifecycle   *lifecycle.Manager
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	logger      *slog.Logger

	mu           sync.RWMutex
	shutdown     bool
	shutdownOnce sync.Once
	report       lifecycle.Report
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) {
		sc.metrics = m
	}
}

// WithAuditLogger sets the audit logger.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) {
		sc.auditLogger = al
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) {
		if logger != nil {
			sc.logger = logger
		}
	}
}

// WithLifecycleManager replaces the default shutdown release manager.
func WithLifecycleManager(m *lifecycle.Manager) Option {
	return func(sc *ServerContext) {
		sc.lifecycle = m
	}
}

// NewServerContext creates a new server context around service.
func NewServerContext(ctx context.Context, service *meetbot.Service, opts ...Option) (*ServerContext, error) {
	if service == nil {
		return nil, errors.New("meetbot service is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:     shutdownCtx,
		cancel:  cancel,
		service: service,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	if sc.lifecycle == nil {
		sc.lifecycle = lifecycle.NewManager(service, lifecycle.WithLogger(sc.logger))
	}
	return sc, nil
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Service returns the bot service.
func (sc *ServerContext) Service() *meetbot.Service {
	return sc.service
}

// Registry returns the session registry.
func (sc *ServerContext) Registry() *session.Registry {
	return sc.service.Registry()
}

// Mode returns the upstream mode.
func (sc *ServerContext) Mode() upstream.Mode {
	return sc.service.Mode()
}

// Metrics returns the metrics recorder, or nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// Logger returns the logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// IsShutdown returns whether the server has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown releases every registered bot and cancels the server context.
// Only the first call does any work; concurrent and later callers wait for
// it and get the same report.
func (sc *ServerContext) Shutdown(ctx context.Context) lifecycle.Report {
	sc.shutdownOnce.Do(func() {
		sc.mu.Lock()
		sc.shutdown = true
		sc.mu.Unlock()

		sc.report = sc.lifecycle.ReleaseAll(ctx)
		sc.cancel()
	})
	return sc.report
}
