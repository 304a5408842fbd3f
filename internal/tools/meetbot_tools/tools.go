package meetbot_tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetbot/internal/server"
	"github.com/teemow/meetbot/internal/session"
	"github.com/teemow/meetbot/internal/tools/common"
	"github.com/teemow/meetbot/internal/upstream"
)

// Tool names.
const (
	ToolJoinMeeting   = "meetbot_join_meeting"
	ToolGetTranscript = "meetbot_get_transcript"
	ToolSpeak         = "meetbot_speak"
	ToolSendChat      = "meetbot_send_chat"
	ToolGetStatus     = "meetbot_get_status"
	ToolLeaveMeeting  = "meetbot_leave_meeting"
	ToolListSessions  = "meetbot_list_sessions"
)

const botIDDescription = "The bot_id returned by meetbot_join_meeting"

// RegisterMeetbotTools registers all meeting bot tools with the MCP server.
// With readOnly set only the tools that do not act in the meeting are
// registered.
func RegisterMeetbotTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if s == nil || sc == nil {
		return errors.New("mcp server and server context are required")
	}

	getTranscriptTool := mcp.NewTool(ToolGetTranscript,
		mcp.WithDescription("Get what was said in the meeting since the previous call for this bot. "+
			"Lines are formatted as 'speaker: text'; the bot's own speech is filtered out."),
		mcp.WithString("bot_id",
			mcp.Required(),
			mcp.Description(botIDDescription),
		),
	)
	s.AddTool(getTranscriptTool, common.InstrumentedToolHandler(ToolGetTranscript, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetTranscript(ctx, request, sc)
		}))

	getStatusTool := mcp.NewTool(ToolGetStatus,
		mcp.WithDescription("Get the current status of a bot, e.g. whether it is still waiting to be admitted"),
		mcp.WithString("bot_id",
			mcp.Required(),
			mcp.Description(botIDDescription),
		),
	)
	s.AddTool(getStatusTool, common.InstrumentedToolHandler(ToolGetStatus, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetStatus(ctx, request, sc)
		}))

	listSessionsTool := mcp.NewTool(ToolListSessions,
		mcp.WithDescription("List the bots this server has created and not yet removed"),
	)
	s.AddTool(listSessionsTool, common.InstrumentedToolHandler(ToolListSessions, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListSessions(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}

	joinMeetingTool := mcp.NewTool(ToolJoinMeeting,
		mcp.WithDescription("Send a bot into a video meeting. Returns the bot_id used by every other meetbot tool."),
		mcp.WithString("meeting_url",
			mcp.Required(),
			mcp.Description("Meeting URL, or a bare Google Meet code such as 'abc-defg-hij'"),
		),
		mcp.WithString("bot_name",
			mcp.Description("Display name of the bot in the meeting (default: 'Agent')"),
		),
	)
	s.AddTool(joinMeetingTool, common.InstrumentedToolHandler(ToolJoinMeeting, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleJoinMeeting(ctx, request, sc)
		}))

	speakTool := mcp.NewTool(ToolSpeak,
		mcp.WithDescription("Speak text aloud in the meeting using a synthesized voice. "+
			"Wait for the suggested interval before speaking again."),
		mcp.WithString("bot_id",
			mcp.Required(),
			mcp.Description(botIDDescription),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The text to speak"),
		),
		mcp.WithString("voice",
			mcp.Description(fmt.Sprintf("Voice to use (default: '%s')", upstream.DefaultVoice)),
			mcp.Enum(upstream.VoiceNames()...),
		),
	)
	s.AddTool(speakTool, common.InstrumentedToolHandler(ToolSpeak, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSpeak(ctx, request, sc)
		}))

	sendChatTool := mcp.NewTool(ToolSendChat,
		mcp.WithDescription("Post a message to the meeting chat"),
		mcp.WithString("bot_id",
			mcp.Required(),
			mcp.Description(botIDDescription),
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The chat message"),
		),
	)
	s.AddTool(sendChatTool, common.InstrumentedToolHandler(ToolSendChat, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSendChat(ctx, request, sc)
		}))

	leaveMeetingTool := mcp.NewTool(ToolLeaveMeeting,
		mcp.WithDescription("Remove the bot from the meeting. The bot_id cannot be used afterwards."),
		mcp.WithString("bot_id",
			mcp.Required(),
			mcp.Description(botIDDescription),
		),
	)
	s.AddTool(leaveMeetingTool, common.InstrumentedToolHandler(ToolLeaveMeeting, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleLeaveMeeting(ctx, request, sc)
		}))

	return nil
}

func handleJoinMeeting(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	meetingURL, err := common.RequiredStringArg(args, "meeting_url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	botName := common.StringArg(args, "bot_name")

	sess, err := sc.Service().Join(ctx, meetingURL, botName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create bot: %v", err)), nil
	}

	var b strings.Builder
	b.WriteString("Bot created.\n\n")
	fmt.Fprintf(&b, "bot_id: %s\n", sess.BotID)
	fmt.Fprintf(&b, "Name: %s\n", sess.DisplayName)
	fmt.Fprintf(&b, "Meeting: %s\n\n", sess.MeetingURL)
	fmt.Fprintf(&b, "The bot is asking to join. The host may have to admit it; check with %s. ", ToolGetStatus)
	fmt.Fprintf(&b, "Once it is in, poll %s for new speech and reply with %s or %s. ", ToolGetTranscript, ToolSpeak, ToolSendChat)
	fmt.Fprintf(&b, "Call %s when you are done.", ToolLeaveMeeting)

	return mcp.NewToolResultText(b.String()), nil
}

func handleGetTranscript(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	botID, err := common.RequiredStringArg(request.GetArguments(), common.ArgBotID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := sc.Service().FetchNewTranscript(ctx, botID)
	if err != nil {
		if errors.Is(err, session.ErrUnknownSession) {
			return mcp.NewToolResultError(unknownSessionMessage(botID)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get transcript: %v", err)), nil
	}

	return mcp.NewToolResultText(result.Text()), nil
}

func handleSpeak(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	botID, err := common.RequiredStringArg(args, common.ArgBotID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := common.RequiredStringArg(args, common.ArgText)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	voice, err := upstream.ParseVoice(common.StringArg(args, "voice"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := sc.Service().Speak(ctx, botID, text, voice)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to speak after %d attempt(s): %v", result.Attempts, err)), nil
	}

	msg := fmt.Sprintf("Speaking (~%.1fs). Wait about %d seconds before speaking again.",
		result.EstimatedSeconds, suggestedWaitSeconds(result.EstimatedSeconds))
	if result.Retried() {
		msg += " (succeeded after retry)"
	}
	return mcp.NewToolResultText(msg), nil
}

func handleSendChat(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	botID, err := common.RequiredStringArg(args, common.ArgBotID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	message, err := common.RequiredStringArg(args, common.ArgMessage)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := sc.Service().SendChat(ctx, botID, message)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to send chat message after %d attempt(s): %v", result.Attempts, err)), nil
	}

	msg := fmt.Sprintf("Chat message sent: %s", message)
	if result.Retried() {
		msg += " (succeeded after retry)"
	}
	return mcp.NewToolResultText(msg), nil
}

func handleGetStatus(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	botID, err := common.RequiredStringArg(request.GetArguments(), common.ArgBotID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	status, err := sc.Service().Status(ctx, botID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get bot status: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Bot: %s\n", status.DisplayName)
	fmt.Fprintf(&b, "Status: %s\n", status.StatusCode)
	fmt.Fprintf(&b, "Meeting: %s\n", status.MeetingURL)
	if !status.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Created: %s\n", status.CreatedAt.UTC().Format(time.RFC3339))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func handleLeaveMeeting(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	botID, err := common.RequiredStringArg(request.GetArguments(), common.ArgBotID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := sc.Service().Leave(ctx, botID)

	msg := fmt.Sprintf("Bot %s has left the meeting.", botID)
	if result.RemoteErr != nil {
		msg += fmt.Sprintf(" Note: the platform could not confirm the removal (%v); the local session was removed anyway.", result.RemoteErr)
	}
	return mcp.NewToolResultText(msg), nil
}

func handleListSessions(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sessions := sc.Service().Sessions()
	if len(sessions) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No active bots. Use %s to create one.", ToolJoinMeeting)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active bots (%d, %s mode):\n\n", len(sessions), sc.Mode())
	for _, s := range sessions {
		fmt.Fprintf(&b, "- bot_id: %s\n", s.BotID)
		fmt.Fprintf(&b, "  Name: %s\n", s.DisplayName)
		fmt.Fprintf(&b, "  Meeting: %s\n", s.MeetingURL)
		fmt.Fprintf(&b, "  Created: %s\n", s.CreatedAt.UTC().Format(time.RFC3339))
		if s.Cursor != nil {
			fmt.Fprintf(&b, "  Transcript read up to: %.2f\n", *s.Cursor)
		} else {
			b.WriteString("  Transcript read up to: nothing read yet\n")
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func unknownSessionMessage(botID string) string {
	return fmt.Sprintf("Unknown bot_id %q: this server has no bot with that id. "+
		"Call %s first and use the bot_id it returns.", botID, ToolJoinMeeting)
}

// suggestedWaitSeconds rounds the estimate up and adds a second of slack.
func suggestedWaitSeconds(estimated float64) int {
	if estimated <= 0 {
		return 1
	}
	return int(math.Ceil(estimated)) + 1
}
