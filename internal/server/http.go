package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/meetbot/internal/instrumentation"
)

const (
	// DefaultHTTPAddr is the default listen address for the streamable HTTP transport.
	DefaultHTTPAddr = ":8080"

	// MCPEndpointPath is where the MCP protocol is served.
	MCPEndpointPath = "/mcp"

	httpOperationName = "meetbot.http"

	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
)

// HTTPServer serves MCP over streamable HTTP next to the health endpoints.
type HTTPServer struct {
	httpServer *http.Server
	health     *HealthChecker
	addr       string
}

// NewHTTPServer wires mcpSrv, the health endpoints and request metrics into
// one HTTP server.
func NewHTTPServer(mcpSrv *mcpserver.MCPServer, sc *ServerContext, addr, version string) *HTTPServer {
	if addr == "" {
		addr = DefaultHTTPAddr
	}

	health := NewHealthChecker(sc, version)

	mux := http.NewServeMux()
	mux.Handle(MCPEndpointPath, mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(MCPEndpointPath),
	))
	health.RegisterHealthEndpoints(mux)

	var metrics *instrumentation.Metrics
	if sc != nil {
		metrics = sc.Metrics()
	}

	return &HTTPServer{
		addr:   addr,
		health: health,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           metricsMiddleware(metrics, otelhttp.NewHandler(mux, httpOperationName)),
			ReadHeaderTimeout: defaultReadHeaderTimeout,
			IdleTimeout:       defaultIdleTimeout,
		},
	}
}

// Handler returns the root handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Health returns the health checker.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Addr returns the listen address. After start it is the bound address.
func (s *HTTPServer) Addr() string {
	return s.addr
}

// StartWithReadySignal binds the listener, closes ready and serves until
// Shutdown. http.ErrServerClosed is not reported as an error.
func (s *HTTPServer) StartWithReadySignal(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr().String()

	slog.Info("starting MCP HTTP server", "addr", s.addr, "endpoint", MCPEndpointPath)
	if ready != nil {
		close(ready)
	}
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown marks the server not ready and drains connections.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	return s.httpServer.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func metricsMiddleware(metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
