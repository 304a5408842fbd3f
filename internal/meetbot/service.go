package meetbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teemow/meetbot/internal/instrumentation"
	"github.com/teemow/meetbot/internal/logging"
	"github.com/teemow/meetbot/internal/session"
	"github.com/teemow/meetbot/internal/upstream"
)

// DefaultDisplayName is used when join is called without a bot name.
const DefaultDisplayName = "Agent"

// Transcript sentinels.
const (
	NoNewSpeech  = "No new speech since last check."
	OnlySelfEcho = "Only the bot's own speech was captured since last check."
)

// ErrClosed is returned by Join once the service stopped accepting new bots.
var ErrClosed = errors.New("meetbot is shutting down, no new bots can be created")

// Config configures a Service.
type Config struct {
	Adapter  upstream.Adapter
	Registry *session.Registry

	// Retry applies to speak and chat (default: upstream.DefaultRetryPolicy).
	Retry *upstream.RetryPolicy

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Service runs the bot operations against one adapter.
type Service struct {
	adapter  upstream.Adapter
	registry *session.Registry
	retry    upstream.RetryPolicy
	metrics  *instrumentation.Metrics
	logger   *slog.Logger

	// joinMu is held for reading for the whole of a Join, so Close waits for
	// creations already in flight.
	joinMu sync.RWMutex
	closed bool
}

// New creates a Service. A nil Registry gets a fresh one.
func New(cfg Config) *Service {
	registry := cfg.Registry
	if registry == nil {
		registry = session.NewRegistry()
	}
	retry := upstream.DefaultRetryPolicy()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		adapter:  cfg.Adapter,
		registry: registry,
		retry:    retry,
		metrics:  cfg.Metrics,
		logger:   logger.With(logging.Mode(string(cfg.Adapter.Mode()))),
	}
}

// Mode returns the backend mode.
func (s *Service) Mode() upstream.Mode {
	return s.adapter.Mode()
}

// Registry returns the session registry.
func (s *Service) Registry() *session.Registry {
	return s.registry
}

// Close stops the service from creating bots. It returns once every Join
// already in progress has finished, so a registry snapshot taken afterwards
// contains every bot this service will ever create.
func (s *Service) Close() {
	s.joinMu.Lock()
	defer s.joinMu.Unlock()
	s.closed = true
}

// Join normalizes meetingRef, creates a bot and registers its session.
// Creation is never retried. After Close it fails with ErrClosed without
// calling the upstream.
func (s *Service) Join(ctx context.Context, meetingRef, displayName string) (session.Session, error) {
	s.joinMu.RLock()
	defer s.joinMu.RUnlock()
	if s.closed {
		return session.Session{}, ErrClosed
	}

	meetingURL, err := NormalizeMeetingURL(meetingRef)
	if err != nil {
		return session.Session{}, err
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = DefaultDisplayName
	}

	botID, err := s.adapter.CreateBot(ctx, meetingURL, displayName)
	if err != nil {
		return session.Session{}, err
	}

	s.registry.Add(session.Session{
		BotID:       botID,
		DisplayName: displayName,
		MeetingURL:  meetingURL,
		Mode:        s.adapter.Mode(),
		CreatedAt:   time.Now(),
	})
	s.metrics.BotRegistered(ctx)
	s.logger.Info("bot created", logging.BotID(botID), slog.String("meeting_url", meetingURL))

	return s.registry.Get(botID)
}

// TranscriptResult is the outcome of one incremental fetch.
type TranscriptResult struct {
	// Lines are the new "speaker: text" lines, self-echo removed.
	Lines []string

	// New counts entries past the previous cursor, self-echo included.
	New      int
	SelfEcho int

	Cursor *float64
}

// Text renders the lines, or a sentinel when there is nothing to show.
func (r TranscriptResult) Text() string {
	switch {
	case r.New == 0:
		return NoNewSpeech
	case len(r.Lines) == 0:
		return OnlySelfEcho
	default:
		return strings.Join(r.Lines, "\n")
	}
}

// FetchNewTranscript returns transcript entries that ended after the
// session's cursor and advances the cursor to the last entry's timestamp.
// An unregistered bot id fails before any upstream call.
func (s *Service) FetchNewTranscript(ctx context.Context, botID string) (TranscriptResult, error) {
	sess, err := s.registry.Get(botID)
	if err != nil {
		return TranscriptResult{}, err
	}

	entries, err := s.adapter.FetchTranscript(ctx, botID)
	if err != nil {
		return TranscriptResult{}, err
	}

	var (
		result  TranscriptResult
		fresh   []upstream.TranscriptEntry
		highest float64
		seen    bool
	)
	for _, entry := range entries {
		ts, ok := entry.EffectiveTimestamp()
		if ok {
			if seen && ts < highest {
				s.logger.Warn("transcript entry out of order",
					logging.BotID(botID),
					slog.Float64("timestamp", ts),
					slog.Float64("previous_timestamp", highest))
			}
			if !seen || ts > highest {
				highest = ts
			}
			seen = true
		}

		if sess.Cursor == nil || (ok && ts > *sess.Cursor) {
			fresh = append(fresh, entry)
		}
	}

	result.Cursor = sess.Cursor
	if n := len(entries); n > 0 {
		if ts, ok := entries[n-1].EffectiveTimestamp(); ok {
			cursor, err := s.registry.AdvanceCursor(botID, ts)
			if err != nil {
				// Left concurrently; the entries are still worth returning.
				s.logger.Debug("session removed during transcript fetch", logging.BotID(botID))
			} else {
				result.Cursor = &cursor
			}
		}
	}

	echoPrefix := sess.DisplayName + ": "
	result.New = len(fresh)
	for _, entry := range fresh {
		line := entry.Line()
		if strings.HasPrefix(line, echoPrefix) {
			result.SelfEcho++
			continue
		}
		result.Lines = append(result.Lines, line)
	}

	return result, nil
}

// SpeakResult is the outcome of Speak.
type SpeakResult struct {
	EstimatedSeconds float64
	Attempts         int
}

// Retried reports whether a second attempt was needed.
func (r SpeakResult) Retried() bool {
	return r.Attempts > 1
}

// Speak plays text through the bot, retrying once on failure.
func (s *Service) Speak(ctx context.Context, botID, text string, voice upstream.Voice) (SpeakResult, error) {
	if strings.TrimSpace(text) == "" {
		return SpeakResult{}, errors.New("text to speak is required")
	}

	var seconds float64
	attempts, err := s.retryPolicy(ctx, instrumentation.OperationSpeak, botID).Do(ctx, func(ctx context.Context) error {
		var err error
		seconds, err = s.adapter.Speak(ctx, botID, text, voice)
		return err
	})
	if err != nil {
		return SpeakResult{Attempts: attempts}, err
	}
	return SpeakResult{EstimatedSeconds: seconds, Attempts: attempts}, nil
}

// ChatResult is the outcome of SendChat.
type ChatResult struct {
	Attempts int
}

// Retried reports whether a second attempt was needed.
func (r ChatResult) Retried() bool {
	return r.Attempts > 1
}

// SendChat posts message to the meeting chat, retrying once on failure.
func (s *Service) SendChat(ctx context.Context, botID, message string) (ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return ChatResult{}, errors.New("chat message is required")
	}

	attempts, err := s.retryPolicy(ctx, instrumentation.OperationChat, botID).Do(ctx, func(ctx context.Context) error {
		return s.adapter.SendChat(ctx, botID, message)
	})
	return ChatResult{Attempts: attempts}, err
}

// Status returns the upstream status of the bot.
func (s *Service) Status(ctx context.Context, botID string) (upstream.BotStatus, error) {
	return s.adapter.GetStatus(ctx, botID)
}

// LeaveResult is the outcome of Leave. Leave never fails locally.
type LeaveResult struct {
	// Removed is true when the bot was registered.
	Removed bool

	// RemoteErr is set when the upstream could not be told to leave.
	RemoteErr error
}

// Leave asks the upstream to remove the bot and drops the session. The
// session is removed even when the upstream call fails. Leave is never
// retried.
func (s *Service) Leave(ctx context.Context, botID string) LeaveResult {
	remoteErr := s.adapter.Leave(ctx, botID)

	_, removed := s.registry.Remove(botID)
	if removed {
		s.metrics.BotReleased(ctx)
	}

	if remoteErr != nil {
		s.logger.Warn("upstream leave failed, session removed locally",
			logging.BotID(botID), logging.Err(remoteErr))
	} else {
		s.logger.Info("bot left", logging.BotID(botID))
	}

	return LeaveResult{Removed: removed, RemoteErr: remoteErr}
}

// Sessions returns all registered sessions.
func (s *Service) Sessions() []session.Session {
	return s.registry.List()
}

func (s *Service) retryPolicy(ctx context.Context, operation, botID string) upstream.RetryPolicy {
	policy := s.retry
	policy.OnRetry = func(err error, wait time.Duration) {
		s.metrics.RecordRetry(ctx, operation)
		s.logger.Warn(fmt.Sprintf("%s failed, retrying", operation),
			logging.BotID(botID),
			slog.Duration("backoff", wait),
			logging.Err(err))
	}
	return policy
}
