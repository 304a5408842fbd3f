package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/teemow/meetbot/internal/upstream"
)

// ErrUnknownSession is returned for bot ids that are not registered.
var ErrUnknownSession = errors.New("unknown bot session")

// UnknownSessionError carries the bot id that was not found. It matches
// ErrUnknownSession with errors.Is.
type UnknownSessionError struct {
	BotID string
}

func (e *UnknownSessionError) Error() string {
	return fmt.Sprintf("%s %q", ErrUnknownSession, e.BotID)
}

func (e *UnknownSessionError) Is(target error) bool {
	return target == ErrUnknownSession
}

// Session is the local state of one bot.
type Session struct {
	BotID       string
	DisplayName string
	MeetingURL  string
	Mode        upstream.Mode
	CreatedAt   time.Time

	// Cursor is the effective timestamp up to which transcript entries have
	// been delivered. nil means nothing has been observed yet.
	Cursor *float64
}

func (s *Session) clone() Session {
	c := *s
	if s.Cursor != nil {
		v := *s.Cursor
		c.Cursor = &v
	}
	return c
}

// Registry is a concurrency-safe map of sessions keyed by bot id. Reads
// return copies.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers s with a nil cursor. An existing session with the same id is
// replaced.
func (r *Registry) Add(s Session) {
	s.Cursor = nil
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.BotID] = &s
}

// Get returns a copy of the session for botID.
func (r *Registry) Get(botID string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[botID]
	if !ok {
		return Session{}, &UnknownSessionError{BotID: botID}
	}
	return s.clone(), nil
}

// AdvanceCursor moves the cursor of botID to ts unless it is already
// further. It returns the stored cursor.
func (r *Registry) AdvanceCursor(botID string, ts float64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[botID]
	if !ok {
		return 0, &UnknownSessionError{BotID: botID}
	}
	if s.Cursor == nil || ts > *s.Cursor {
		s.Cursor = &ts
	}
	return *s.Cursor, nil
}

// Remove deletes botID and returns the removed session.
func (r *Registry) Remove(botID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[botID]
	if !ok {
		return Session{}, false
	}
	delete(r.sessions, botID)
	return s.clone(), true
}

// List returns copies of all sessions ordered by creation time.
func (r *Registry) List() []Session {
	r.mu.RLock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].BotID < out[j].BotID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
