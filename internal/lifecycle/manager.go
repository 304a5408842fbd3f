package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/meetbot/internal/logging"
	"github.com/teemow/meetbot/internal/meetbot"
)

const (
	// DefaultConcurrency bounds parallel leave calls.
	DefaultConcurrency = 8

	// DefaultCeiling bounds the whole release, independent of per-call timeouts.
	DefaultCeiling = 45 * time.Second
)

// Manager releases bots through a meetbot.Service.
type Manager struct {
	service     *meetbot.Service
	concurrency int
	ceiling     time.Duration
	logger      *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithConcurrency sets the number of parallel leave calls.
func WithConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithCeiling sets the overall release deadline.
func WithCeiling(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.ceiling = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager.
func NewManager(service *meetbot.Service, opts ...Option) *Manager {
	m := &Manager{
		service:     service,
		concurrency: DefaultConcurrency,
		ceiling:     DefaultCeiling,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Report summarizes a release.
type Report struct {
	Attempted int
	Released  []string
	Failed    []string
	Duration  time.Duration
}

// ReleaseAll closes the service to new bots, asks the upstream to remove
// every registered bot in parallel and waits for all attempts to settle.
// Failures are logged and never retried. Sessions are removed locally either
// way.
func (m *Manager) ReleaseAll(ctx context.Context) Report {
	start := time.Now()
	m.service.Close()
	sessions := m.service.Sessions()
	report := Report{Attempted: len(sessions)}
	if len(sessions) == 0 {
		return report
	}

	// Shutdown usually starts from a canceled signal context; the ceiling
	// must not inherit that cancellation.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.ceiling)
	defer cancel()

	m.logger.Info("releasing bots", slog.Int("count", len(sessions)))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(m.concurrency)

	for _, sess := range sessions {
		botID := sess.BotID
		g.Go(func() error {
			result := m.service.Leave(ctx, botID)

			mu.Lock()
			defer mu.Unlock()
			if result.RemoteErr != nil {
				report.Failed = append(report.Failed, botID)
				m.logger.Warn("failed to release bot", logging.BotID(botID), logging.Err(result.RemoteErr))
				return nil
			}
			report.Released = append(report.Released, botID)
			return nil
		})
	}

	// Goroutines never return errors, so Wait only synchronizes.
	_ = g.Wait()

	report.Duration = time.Since(start)
	m.logger.Info("bot release finished",
		slog.Int("released", len(report.Released)),
		slog.Int("failed", len(report.Failed)),
		slog.Duration("duration", report.Duration))
	return report
}
