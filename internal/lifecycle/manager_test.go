package lifecycle

import (
	"bytes"
	"context"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetbot/internal/meetbot"
	"github.com/teemow/meetbot/internal/upstream"
	"github.com/teemow/meetbot/internal/upstream/upstreamtest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newService(t *testing.T, fake *upstreamtest.Fake, bots int) (*meetbot.Service, []string) {
	t.Helper()
	svc := meetbot.New(meetbot.Config{Adapter: fake, Logger: quietLogger()})

	var ids []string
	for i := 0; i < bots; i++ {
		sess, err := svc.Join(context.Background(), "abc-defg-hij", "Agent")
		require.NoError(t, err)
		ids = append(ids, sess.BotID)
	}
	return svc, ids
}

func TestReleaseAll_Empty(t *testing.T) {
	fake := upstreamtest.NewFake(upstream.ModeHosted)
	svc, _ := newService(t, fake, 0)

	report := NewManager(svc, WithLogger(quietLogger())).ReleaseAll(context.Background())
	assert.Equal(t, 0, report.Attempted)
	assert.Equal(t, 0, fake.Calls(upstreamtest.OpLeave))
}

func TestReleaseAll_SettlesAllIgnoringFailures(t *testing.T) {
	fake := upstreamtest.NewFake(upstream.ModeDirect)
	svc, ids := newService(t, fake, 5)
	fake.FailNext(upstreamtest.OpLeave, &upstream.Error{Category: upstream.CategoryService, StatusCode: 500})

	report := NewManager(svc, WithLogger(quietLogger())).ReleaseAll(context.Background())

	assert.Equal(t, 5, report.Attempted)
	assert.Len(t, report.Released, 4)
	assert.Len(t, report.Failed, 1)
	// Each bot gets exactly one attempt
	assert.Equal(t, 5, fake.Calls(upstreamtest.OpLeave))
	assert.Equal(t, 0, svc.Registry().Len())

	all := append(append([]string(nil), report.Released...), report.Failed...)
	sort.Strings(all)
	sort.Strings(ids)
	assert.Equal(t, ids, all)
}

func TestReleaseAll_RunsInParallel(t *testing.T) {
	fake := upstreamtest.NewFake(upstream.ModeHosted)
	fake.LeaveDelay = 100 * time.Millisecond
	svc, _ := newService(t, fake, 8)

	report := NewManager(svc, WithConcurrency(8), WithLogger(quietLogger())).ReleaseAll(context.Background())

	assert.Len(t, report.Released, 8)
	assert.Less(t, report.Duration, 500*time.Millisecond)
}

func TestReleaseAll_CeilingBoundsHungCalls(t *testing.T) {
	fake := upstreamtest.NewFake(upstream.ModeHosted)
	fake.LeaveDelay = time.Minute
	svc, _ := newService(t, fake, 3)

	report := NewManager(svc, WithCeiling(50*time.Millisecond), WithLogger(quietLogger())).ReleaseAll(context.Background())

	assert.Len(t, report.Failed, 3)
	assert.Less(t, report.Duration, 5*time.Second)
	assert.Equal(t, 0, svc.Registry().Len())
}

func TestReleaseAll_CanceledParentStillReleases(t *testing.T) {
	fake := upstreamtest.NewFake(upstream.ModeHosted)
	fake.LeaveDelay = 10 * time.Millisecond
	svc, _ := newService(t, fake, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := NewManager(svc, WithLogger(quietLogger())).ReleaseAll(ctx)
	assert.Len(t, report.Released, 2)
}

func TestReleaseAll_IncludesJoinInFlight(t *testing.T) {
	fake := upstreamtest.NewFake(upstream.ModeHosted)
	svc, _ := newService(t, fake, 1)
	fake.CreateDelay = 100 * time.Millisecond

	joined := make(chan error, 1)
	go func() {
		_, err := svc.Join(context.Background(), "abc-defg-hij", "Late")
		joined <- err
	}()
	require.Eventually(t, func() bool {
		return fake.Calls(upstreamtest.OpCreateBot) == 2
	}, time.Second, time.Millisecond)

	report := NewManager(svc, WithLogger(quietLogger())).ReleaseAll(context.Background())
	require.NoError(t, <-joined)

	assert.Equal(t, 2, report.Attempted)
	assert.Len(t, report.Released, 2)
	assert.Equal(t, 0, svc.Registry().Len())

	_, err := svc.Join(context.Background(), "abc-defg-hij", "Too late")
	assert.ErrorIs(t, err, meetbot.ErrClosed)
	assert.Equal(t, 2, fake.Calls(upstreamtest.OpCreateBot))
}
