package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetbot/internal/upstream"
)

func TestRegistry_AddGetRemove(t *testing.T) {
	r := NewRegistry()
	r.Add(Session{BotID: "bot-1", DisplayName: "Agent", MeetingURL: "https://meet.google.com/abc-defg-hij", Mode: upstream.ModeHosted})

	s, err := r.Get("bot-1")
	require.NoError(t, err)
	assert.Equal(t, "Agent", s.DisplayName)
	assert.Nil(t, s.Cursor)
	assert.False(t, s.CreatedAt.IsZero())
	assert.Equal(t, 1, r.Len())

	removed, ok := r.Remove("bot-1")
	assert.True(t, ok)
	assert.Equal(t, "bot-1", removed.BotID)
	assert.Equal(t, 0, r.Len())

	_, ok = r.Remove("bot-1")
	assert.False(t, ok)
}

func TestRegistry_UnknownSession(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownSession))

	var unknown *UnknownSessionError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.BotID)
	assert.Equal(t, `unknown bot session "nope"`, err.Error())

	_, err = r.AdvanceCursor("nope", 1)
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestRegistry_AdvanceCursorNeverMovesBack(t *testing.T) {
	r := NewRegistry()
	r.Add(Session{BotID: "bot-1"})

	steps := []struct {
		ts   float64
		want float64
	}{
		{ts: 5, want: 5},
		{ts: 7.5, want: 7.5},
		{ts: 3, want: 7.5},
		{ts: 7.5, want: 7.5},
		{ts: 9, want: 9},
	}

	for _, step := range steps {
		got, err := r.AdvanceCursor("bot-1", step.ts)
		require.NoError(t, err)
		assert.Equal(t, step.want, got)

		s, err := r.Get("bot-1")
		require.NoError(t, err)
		require.NotNil(t, s.Cursor)
		assert.Equal(t, step.want, *s.Cursor)
	}
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.Add(Session{BotID: "bot-1"})
	_, err := r.AdvanceCursor("bot-1", 2)
	require.NoError(t, err)

	s, err := r.Get("bot-1")
	require.NoError(t, err)
	*s.Cursor = 100
	s.DisplayName = "changed"

	again, err := r.Get("bot-1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, *again.Cursor)
	assert.Empty(t, again.DisplayName)
}

func TestRegistry_AddResetsCursor(t *testing.T) {
	r := NewRegistry()
	c := 4.0
	r.Add(Session{BotID: "bot-1", Cursor: &c})

	s, err := r.Get("bot-1")
	require.NoError(t, err)
	assert.Nil(t, s.Cursor)
}

func TestRegistry_ListOrdered(t *testing.T) {
	r := NewRegistry()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r.Add(Session{BotID: "c", CreatedAt: base.Add(2 * time.Minute)})
	r.Add(Session{BotID: "b", CreatedAt: base})
	r.Add(Session{BotID: "a", CreatedAt: base})

	var ids []string
	for _, s := range r.List() {
		ids = append(ids, s.BotID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("bot-%d", i)
			r.Add(Session{BotID: id})
			_, _ = r.AdvanceCursor(id, float64(i))
			_, _ = r.Get(id)
			_ = r.List()
			if i%2 == 0 {
				r.Remove(id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, r.Len())
}
