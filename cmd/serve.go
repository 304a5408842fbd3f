package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/meetbot/internal/instrumentation"
	"github.com/teemow/meetbot/internal/lifecycle"
	"github.com/teemow/meetbot/internal/logging"
	"github.com/teemow/meetbot/internal/meetbot"
	"github.com/teemow/meetbot/internal/resources"
	"github.com/teemow/meetbot/internal/server"
	"github.com/teemow/meetbot/internal/tools/meetbot_tools"
	"github.com/teemow/meetbot/internal/upstream"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"

	defaultMetricsAddr = ":9090"

	serverStartupTimeout  = 5 * time.Second
	serverShutdownTimeout = 10 * time.Second
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// serveConfig holds every setting of the serve command after flags and
// environment have been merged.
type serveConfig struct {
	Transport string
	HTTPAddr  string
	Debug     bool
	ReadOnly  bool

	// Base URL overrides, mostly for pointing at a staging platform.
	RecallBaseURL  string
	OpenAIBaseURL  string
	MeetbotBaseURL string

	// UpstreamRateLimit paces outbound requests per second and platform.
	UpstreamRateLimit float64

	// ShutdownCeiling bounds the release of all bots on exit.
	ShutdownCeiling time.Duration

	Metrics MetricsConfig
}

func newServeCmd() *cobra.Command {
	var cfg serveConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server that exposes the meeting bot
tools to AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport at /mcp

Upstream credentials (one complete set is required):
  Hosted mode:
    MEETBOT_API_KEY (and optionally MEETBOT_BASE_URL)
  Direct mode:
    RECALL_API_KEY (optionally RECALL_REGION or RECALL_BASE_URL)
    OPENAI_API_KEY (optionally OPENAI_BASE_URL, OPENAI_TTS_MODEL)
  When MEETBOT_API_KEY is set, hosted mode is used.

On SIGINT/SIGTERM every bot still in a meeting is asked to leave before the
process exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadServeEnvVars(cmd, &cfg)
			return runServe(cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&cfg.Transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&cfg.HTTPAddr, "http-addr", server.DefaultHTTPAddr, "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&cfg.ReadOnly, "read-only", false, "Only register tools that do not act in meetings (transcript, status, sessions). Can also use MEETBOT_READ_ONLY env var.")

	cmd.Flags().StringVar(&cfg.RecallBaseURL, "recall-base-url", "", "Override the meeting-bot platform base URL (direct mode). Can also use RECALL_BASE_URL env var.")
	cmd.Flags().StringVar(&cfg.OpenAIBaseURL, "openai-base-url", "", "Override the speech platform base URL (direct mode). Can also use OPENAI_BASE_URL env var.")
	cmd.Flags().StringVar(&cfg.MeetbotBaseURL, "meetbot-base-url", "", "Override the intermediary platform base URL (hosted mode). Can also use MEETBOT_BASE_URL env var.")
	cmd.Flags().Float64Var(&cfg.UpstreamRateLimit, "upstream-rate-limit", 0, "Maximum outbound requests per second to each platform, 0 for no limit. Can also use UPSTREAM_RATE_LIMIT env var.")
	cmd.Flags().DurationVar(&cfg.ShutdownCeiling, "shutdown-timeout", lifecycle.DefaultCeiling, "Upper bound for releasing all bots on shutdown. Can also use SHUTDOWN_TIMEOUT env var.")

	// Metrics server flags
	cmd.Flags().BoolVar(&cfg.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port (streamable-http only). Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&cfg.Metrics.Addr, "metrics-addr", defaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadServeEnvVars fills settings from the environment where the flag was
// not set explicitly.
func loadServeEnvVars(cmd *cobra.Command, cfg *serveConfig) {
	if !cmd.Flags().Changed("read-only") {
		if v, ok := envBool("MEETBOT_READ_ONLY"); ok {
			cfg.ReadOnly = v
		}
	}
	if !cmd.Flags().Changed("upstream-rate-limit") {
		if v := os.Getenv("UPSTREAM_RATE_LIMIT"); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 {
				cfg.UpstreamRateLimit = parsed
			} else {
				slog.Warn("invalid UPSTREAM_RATE_LIMIT value, using default", "value", v)
			}
		}
	}
	if !cmd.Flags().Changed("shutdown-timeout") {
		if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
			if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
				cfg.ShutdownCeiling = parsed
			} else {
				slog.Warn("invalid SHUTDOWN_TIMEOUT value, using default", "value", v)
			}
		}
	}
	if !cmd.Flags().Changed("metrics-enabled") {
		if v, ok := envBool("METRICS_ENABLED"); ok {
			cfg.Metrics.Enabled = v
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			cfg.Metrics.Addr = addr
		}
	}
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid boolean environment value, ignoring", "key", key, "value", v)
		return false, false
	}
	return parsed, true
}

// applyBaseURLOverrides replaces the environment base URLs with the flag
// values that were given.
func applyBaseURLOverrides(creds *upstream.Credentials, cfg serveConfig) {
	if cfg.MeetbotBaseURL != "" && creds.Mode == upstream.ModeHosted {
		creds.MeetbotBaseURL = cfg.MeetbotBaseURL
	}
	if creds.Mode == upstream.ModeDirect {
		if cfg.RecallBaseURL != "" {
			creds.RecallBaseURL = cfg.RecallBaseURL
		}
		if cfg.OpenAIBaseURL != "" {
			creds.OpenAIBaseURL = cfg.OpenAIBaseURL
		}
	}
}

func runServe(cfg serveConfig) error {
	switch cfg.Transport {
	case transportStdio, transportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", cfg.Transport)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout belongs to the stdio transport, logs always go to stderr
	logger := logging.NewLogger(os.Stderr, cfg.Debug)
	slog.SetDefault(logger)

	creds, err := upstream.LoadCredentialsFromEnv()
	if err != nil {
		return err
	}
	applyBaseURLOverrides(&creds, cfg)
	logger.Info("upstream configuration selected", logging.Mode(string(creds.Mode)))

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	metrics := provider.Metrics()
	adapter := newAdapter(creds, adapterOptions{
		RateLimit: cfg.UpstreamRateLimit,
		Metrics:   metrics,
		Logger:    logger,
	})
	service := meetbot.New(meetbot.Config{
		Adapter: adapter,
		Metrics: metrics,
		Logger:  logger,
	})

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithLifecycleManager(lifecycle.NewManager(service,
			lifecycle.WithCeiling(cfg.ShutdownCeiling),
			lifecycle.WithLogger(logger),
		)),
	}
	if provider.Enabled() {
		opts = append(opts, server.WithAuditLogger(instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)))
	}

	serverContext, err := server.NewServerContext(shutdownCtx, service, opts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		// Context is already cancelled by the signal; the release has its own ceiling.
		report := serverContext.Shutdown(context.Background())
		if report.Attempted > 0 {
			logger.Info("released bots on shutdown",
				slog.Int("attempted", report.Attempted),
				slog.Int("released", len(report.Released)),
				slog.Int("failed", len(report.Failed)),
				slog.Duration("duration", report.Duration))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("meetbot", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	if err := meetbot_tools.RegisterMeetbotTools(mcpSrv, serverContext, cfg.ReadOnly); err != nil {
		return fmt.Errorf("failed to register meetbot tools: %w", err)
	}
	if err := resources.RegisterResources(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register resources: %w", err)
	}
	if cfg.ReadOnly {
		logger.Info("starting server in READ-ONLY mode, meeting actions are disabled")
	}

	switch cfg.Transport {
	case transportStdio:
		return runStdioServer(shutdownCtx, mcpSrv, logger)
	default:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, cfg, provider, logger)
	}
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, logger *slog.Logger) error {
	stdioSrv := mcpserver.NewStdioServer(mcpSrv)
	stdioSrv.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))

	err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, cfg serveConfig, provider *instrumentation.Provider, logger *slog.Logger) error {
	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && provider.HasPrometheusExporter() {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Metrics.Addr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		if err := startAndWait("metrics server", metricsServer.StartWithReadySignal); err != nil {
			return err
		}
		logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	httpServer := server.NewHTTPServer(mcpSrv, sc, cfg.HTTPAddr, version)
	serverErr := make(chan error, 1)
	ready := make(chan struct{})
	go func() {
		serverErr <- httpServer.StartWithReadySignal(ready)
	}()

	select {
	case <-ready:
		logger.Info("MCP server listening",
			slog.String("addr", httpServer.Addr()),
			slog.String("endpoint", server.MCPEndpointPath),
			logging.Mode(string(sc.Mode())))
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(serverStartupTimeout):
		return fmt.Errorf("HTTP server startup timed out")
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		return nil
	}

	// Stop taking traffic, then release the bots while connections drain.
	httpServer.Health().SetReady(false)
	sc.Shutdown(context.Background())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	return nil
}

// startAndWait runs start in a goroutine and waits until it signals ready,
// fails or times out.
func startAndWait(name string, start func(ready chan<- struct{}) error) error {
	ready := make(chan struct{})
	startErr := make(chan error, 1)
	go func() {
		if err := start(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			startErr <- err
		}
		close(startErr)
	}()

	select {
	case <-ready:
		return nil
	case err := <-startErr:
		if err == nil {
			return fmt.Errorf("%s stopped before it was ready", name)
		}
		return fmt.Errorf("%s failed to start: %w", name, err)
	case <-time.After(serverStartupTimeout):
		return fmt.Errorf("%s startup timed out", name)
	}
}
