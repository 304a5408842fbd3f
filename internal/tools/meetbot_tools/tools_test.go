package meetbot_tools

import (
	"bytes"
	"context"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetbot/internal/meetbot"
	"github.com/teemow/meetbot/internal/server"
	"github.com/teemow/meetbot/internal/upstream"
	"github.com/teemow/meetbot/internal/upstream/upstreamtest"
)

func newTestContext(t *testing.T, fake *upstreamtest.Fake) *server.ServerContext {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	policy := upstream.RetryPolicy{MaxTries: upstream.DefaultRetryMaxTries, Backoff: time.Millisecond}
	svc := meetbot.New(meetbot.Config{Adapter: fake, Retry: &policy, Logger: logger})
	sc, err := server.NewServerContext(context.Background(), svc, server.WithLogger(logger))
	require.NoError(t, err)
	return sc
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func join(t *testing.T, sc *server.ServerContext, meetingURL, name string) string {
	t.Helper()
	result, err := handleJoinMeeting(context.Background(), call(map[string]interface{}{
		"meeting_url": meetingURL,
		"bot_name":    name,
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	sessions := sc.Service().Sessions()
	require.NotEmpty(t, sessions)
	return sessions[len(sessions)-1].BotID
}

func TestRegisterMeetbotTools(t *testing.T) {
	tests := []struct {
		name     string
		readOnly bool
		expected []string
	}{
		{
			name: "all tools",
			expected: []string{
				ToolGetStatus, ToolGetTranscript, ToolJoinMeeting, ToolLeaveMeeting,
				ToolListSessions, ToolSendChat, ToolSpeak,
			},
		},
		{
			name:     "read only",
			readOnly: true,
			expected: []string{ToolGetStatus, ToolGetTranscript, ToolListSessions},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := newTestContext(t, upstreamtest.NewFake(upstream.ModeHosted))
			s := mcpserver.NewMCPServer("test", "test", mcpserver.WithToolCapabilities(true))

			require.NoError(t, RegisterMeetbotTools(s, sc, tt.readOnly))

			var names []string
			for name := range s.ListTools() {
				names = append(names, name)
			}
			sort.Strings(names)
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestRegisterMeetbotTools_RequiresContext(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "test")
	assert.Error(t, RegisterMeetbotTools(s, nil, false))
}

func TestSpeakToolVoiceEnum(t *testing.T) {
	sc := newTestContext(t, upstreamtest.NewFake(upstream.ModeHosted))
	s := mcpserver.NewMCPServer("test", "test", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterMeetbotTools(s, sc, false))

	tool := s.ListTools()[ToolSpeak]
	require.NotNil(t, tool)
	voice, ok := tool.Tool.InputSchema.Properties["voice"].(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t, upstream.VoiceNames(), voice["enum"])
	assert.ElementsMatch(t, []string{"bot_id", "text"}, tool.Tool.InputSchema.Required)
}

func TestEndToEndScenario(t *testing.T) {
	fake := upstreamtest.NewFake(upstream.ModeDirect)
	sc := newTestContext(t, fake)
	ctx := context.Background()

	botID := join(t, sc, "xyz-wxyz-abc", "Bot1")
	assert.Equal(t, "bot-1", botID)

	result, err := handleGetTranscript(ctx, call(map[string]interface{}{"bot_id": botID}), sc)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, meetbot.NoNewSpeech, resultText(t, result))

	result, err = handleLeaveMeeting(ctx, call(map[string]interface{}{"bot_id": botID}), sc)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "has left the meeting")

	calls := fake.Calls(upstreamtest.OpTranscript)
	result, err = handleGetTranscript(ctx, call(map[string]interface{}{"bot_id": botID}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), ToolJoinMeeting)
	assert.Equal(t, calls, fake.Calls(upstreamtest.OpTranscript), "unknown session must not reach upstream")
}

func TestHandleJoinMeeting(t *testing.T) {
	fake := upstreamtest.NewFake(upstream.ModeHosted)
	sc := newTestContext(t, fake)

	result, err := handleJoinMeeting(context.Background(), call(map[string]interface{}{
		"meeting_url": "abc-defg-hij",
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "bot_id: bot-1")
	assert.Contains(t, text, "Name: Agent")
	assert.Contains(t, text, "Meeting: https://meet.google.com/abc-defg-hij")
	assert.Contains(t, text, ToolGetTranscript)
}

func TestHandleJoinMeeting_Errors(t *testing.T) {
	fake := upstreamtest.NewFake(upstream.ModeHosted)
	sc := newTestContext(t, fake)

	result, err := handleJoinMeeting(context.Background(), call(map[string]interface{}{}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "meeting_url is required")

	fake.FailNext(upstreamtest.OpCreateBot, &upstream.Error{Category: upstream.CategoryAuth, StatusCode: 401, Credential: upstream.EnvMeetbotAPIKey})
	result, err = handleJoinMeeting(context.Background(), call(map[string]interface{}{"meeting_url": "abc-defg-hij"}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), upstream.EnvMeetbotAPIKey)
	assert.Equal(t, 1, fake.Calls(upstreamtest.OpCreateBot), "creation is never retried")
	assert.Equal(t, 0, sc.Registry().Len())
}

func TestHandleJoinMeeting_AfterShutdown(t *testing.T) {
	fake := upstreamtest.NewFake(upstream.ModeHosted)
	sc := newTestContext(t, fake)
	join(t, sc, "abc-defg-hij", "Early")

	report := sc.Shutdown(context.Background())
	require.Equal(t, 1, report.Attempted)

	result, err := handleJoinMeeting(context.Background(), call(map[string]interface{}{
		"meeting_url": "xyz-wxyz-abc",
		"bot_name":    "Late",
	}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "shutting down")
	assert.Equal(t, 1, fake.Calls(upstreamtest.OpCreateBot))
	assert.Equal(t, 0, sc.Registry().Len())
	assert.Equal(t, 1, fake.Calls(upstreamtest.OpLeave))
}

func TestHandleGetTranscript_FiltersSelfEcho(t *testing.T) {
	fake := upstreamtest.NewFake(upstream.ModeHosted)
	sc := newTestContext(t, fake)
	botID := join(t, sc, "abc-defg-hij", "Agent")
	ctx := context.Background()

	fake.SetTranscript(botID,
		upstreamtest.Entry("Agent", "hello", 1.0),
		upstreamtest.Entry("Dana", "hi", 2.0),
	)

	result, err := handleGetTranscript(ctx, call(map[string]interface{}{"bot_id": botID}), sc)
	require.NoError(t, err)
	assert.Equal(t, "Dana: hi", resultText(t, result))

	fake.AppendTranscript(botID, upstreamtest.Entry("Agent", "anyone there", 3.0))
	result, err = handleGetTranscript(ctx, call(map[string]interface{}{"bot_id": botID}), sc)
	require.NoError(t, err)
	assert.Equal(t, meetbot.OnlySelfEcho, resultText(t, result))

	result, err = handleGetTranscript(ctx, call(map[string]interface{}{"bot_id": botID}), sc)
	require.NoError(t, err)
	assert.Equal(t, meetbot.NoNewSpeech, resultText(t, result))
}

func TestHandleGetTranscript_UpstreamError(t *testing.T) {
	fake := upstreamtest.NewFake(upstream.ModeHosted)
	sc := newTestContext(t, fake)
	botID := join(t, sc, "abc-defg-hij", "Agent")

	fake.FailNext(upstreamtest.OpTranscript, &upstream.Error{Category: upstream.CategoryService, StatusCode: 503})
	result, err := handleGetTranscript(context.Background(), call(map[string]interface{}{"bot_id": botID}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "HTTP 503")
}

func TestHandleSpeak(t *testing.T) {
	fake := upstreamtest.NewFake(upstream.ModeHosted)
	fake.SpeakSeconds = 2.4
	sc := newTestContext(t, fake)

	result, err := handleSpeak(context.Background(), call(map[string]interface{}{
		"bot_id": "bot-9",
		"text":   "Hello everyone",
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "~2.4s")
	assert.Contains(t, text, "Wait about 4 seconds")
	assert.NotContains(t, text, "retry")
	assert.Equal(t, []string{"Hello everyone"}, fake.Spoken)
}

func TestHandleSpeak_RetriedOnce(t *testing.T) {
	fake := upstreamtest.NewFake(upstream.ModeDirect)
	sc := newTestContext(t, fake)

	fake.FailNext(upstreamtest.OpSpeak, &upstream.Error{Category: upstream.CategoryService, StatusCode: 502})
	result, err := handleSpeak(context.Background(), call(map[string]interface{}{
		"bot_id": "bot-1",
		"text":   "hello",
		"voice":  "onyx",
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "(succeeded after retry)")
	assert.Equal(t, 2, fake.Calls(upstreamtest.OpSpeak))
}

func TestHandleSpeak_Errors(t *testing.T) {
	tests := []struct {
		name        string
		args        map[string]interface{}
		failures    int
		errContains string
		speakCalls  int
	}{
		{
			name:        "missing text",
			args:        map[string]interface{}{"bot_id": "bot-1"},
			errContains: "text is required",
		},
		{
			name:        "unknown voice",
			args:        map[string]interface{}{"bot_id": "bot-1", "text": "hi", "voice": "robot"},
			errContains: "nova",
		},
		{
			name:        "fails after retry",
			args:        map[string]interface{}{"bot_id": "bot-1", "text": "hi"},
			failures:    2,
			errContains: "after 2 attempt(s)",
			speakCalls:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := upstreamtest.NewFake(upstream.ModeHosted)
			sc := newTestContext(t, fake)
			for i := 0; i < tt.failures; i++ {
				fake.FailNext(upstreamtest.OpSpeak, &upstream.Error{Category: upstream.CategoryRateLimited, StatusCode: 429})
			}

			result, err := handleSpeak(context.Background(), call(tt.args), sc)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.errContains)
			assert.Equal(t, tt.speakCalls, fake.Calls(upstreamtest.OpSpeak))
		})
	}
}

func TestHandleSendChat(t *testing.T) {
	fake := upstreamtest.NewFake(upstream.ModeHosted)
	sc := newTestContext(t, fake)

	result, err := handleSendChat(context.Background(), call(map[string]interface{}{
		"bot_id":  "bot-1",
		"message": "Notes will follow by mail",
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "Chat message sent: Notes will follow by mail", resultText(t, result))
	assert.Equal(t, []string{"Notes will follow by mail"}, fake.Chats)

	result, err = handleSendChat(context.Background(), call(map[string]interface{}{"bot_id": "bot-1"}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGetStatus(t *testing.T) {
	fake := upstreamtest.NewFake(upstream.ModeHosted)
	sc := newTestContext(t, fake)
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	fake.SetStatus("bot-42", upstream.BotStatus{
		DisplayName: "Agent",
		StatusCode:  "in_call_recording",
		MeetingURL:  "https://meet.google.com/abc-defg-hij",
		CreatedAt:   created,
	})

	result, err := handleGetStatus(context.Background(), call(map[string]interface{}{"bot_id": "bot-42"}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Bot: Agent")
	assert.Contains(t, text, "Status: in_call_recording")
	assert.Contains(t, text, "Meeting: https://meet.google.com/abc-defg-hij")
	assert.Contains(t, text, "Created: 2026-03-01T09:30:00Z")

	result, err = handleGetStatus(context.Background(), call(map[string]interface{}{"bot_id": "missing"}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "already left")
}

func TestHandleLeaveMeeting_RemoteFailure(t *testing.T) {
	fake := upstreamtest.NewFake(upstream.ModeHosted)
	sc := newTestContext(t, fake)
	botID := join(t, sc, "abc-defg-hij", "Agent")

	fake.FailNext(upstreamtest.OpLeave, &upstream.Error{Category: upstream.CategoryService, StatusCode: 500})
	result, err := handleLeaveMeeting(context.Background(), call(map[string]interface{}{"bot_id": botID}), sc)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "has left the meeting")
	assert.Contains(t, text, "local session was removed")
	assert.Equal(t, 0, sc.Registry().Len())
	assert.Equal(t, 1, fake.Calls(upstreamtest.OpLeave), "leave is never retried")
}

func TestHandleListSessions(t *testing.T) {
	fake := upstreamtest.NewFake(upstream.ModeDirect)
	sc := newTestContext(t, fake)
	ctx := context.Background()

	result, err := handleListSessions(ctx, call(nil), sc)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "No active bots")

	botID := join(t, sc, "abc-defg-hij", "Scribe")
	fake.SetTranscript(botID, upstreamtest.Entry("Dana", "morning", 4.5))
	_, err = handleGetTranscript(ctx, call(map[string]interface{}{"bot_id": botID}), sc)
	require.NoError(t, err)

	result, err = handleListSessions(ctx, call(nil), sc)
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Active bots (1, direct mode)")
	assert.Contains(t, text, "bot_id: "+botID)
	assert.Contains(t, text, "Name: Scribe")
	assert.Contains(t, text, "Transcript read up to: 4.50")
}

func TestSuggestedWaitSeconds(t *testing.T) {
	tests := []struct {
		estimated float64
		expected  int
	}{
		{0, 1},
		{0.5, 2},
		{2.0, 3},
		{2.4, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, suggestedWaitSeconds(tt.estimated))
	}
}
