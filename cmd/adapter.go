package cmd

import (
	"log/slog"
	"net/http"

	"github.com/teemow/meetbot/internal/instrumentation"
	"github.com/teemow/meetbot/internal/upstream"
	"github.com/teemow/meetbot/internal/upstream/direct"
	"github.com/teemow/meetbot/internal/upstream/hosted"
)

// adapterOptions carries the settings shared by both adapters.
type adapterOptions struct {
	RateLimit float64
	Transport http.RoundTripper
	Metrics   *instrumentation.Metrics
	Logger    *slog.Logger
}

// newAdapter builds the adapter for the mode selected at startup. This is
// the only place that looks at the mode.
func newAdapter(creds upstream.Credentials, opts adapterOptions) upstream.Adapter {
	if creds.Mode == upstream.ModeDirect {
		cfg := direct.ConfigFromCredentials(creds)
		cfg.RateLimit = opts.RateLimit
		cfg.Transport = opts.Transport
		cfg.Metrics = opts.Metrics
		cfg.Logger = opts.Logger
		return direct.New(cfg)
	}

	cfg := hosted.ConfigFromCredentials(creds)
	cfg.RateLimit = opts.RateLimit
	cfg.Transport = opts.Transport
	cfg.Metrics = opts.Metrics
	cfg.Logger = opts.Logger
	return hosted.New(cfg)
}
