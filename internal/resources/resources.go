package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetbot/internal/server"
)

// Resource URIs.
const (
	SessionsURI = "meetbot://sessions"
	ServerURI   = "meetbot://server"
)

// SessionView is the JSON shape of one session.
type SessionView struct {
	BotID       string   `json:"bot_id"`
	DisplayName string   `json:"display_name"`
	MeetingURL  string   `json:"meeting_url"`
	Mode        string   `json:"mode"`
	CreatedAt   string   `json:"created_at"`
	Cursor      *float64 `json:"transcript_cursor"`
}

// ServerView is the JSON shape of the server resource.
type ServerView struct {
	Mode       string `json:"mode"`
	ActiveBots int    `json:"active_bots"`
	ShutDown   bool   `json:"shutting_down"`
}

// RegisterResources registers the meetbot resources.
func RegisterResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return fmt.Errorf("mcp server and server context are required")
	}

	sessionsResource := mcp.NewResource(
		SessionsURI,
		"Meeting Bot Sessions",
		mcp.WithResourceDescription("Bots created by this server that have not left yet, with their transcript cursor"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(sessionsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSessions(ctx, request, sc)
	})

	serverResource := mcp.NewResource(
		ServerURI,
		"Meeting Bot Server",
		mcp.WithResourceDescription("Upstream mode and number of active bots"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(serverResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleServer(ctx, request, sc)
	})

	return nil
}

func handleSessions(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	sessions := sc.Service().Sessions()
	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, SessionView{
			BotID:       s.BotID,
			DisplayName: s.DisplayName,
			MeetingURL:  s.MeetingURL,
			Mode:        string(s.Mode),
			CreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
			Cursor:      s.Cursor,
		})
	}
	return jsonContents(request.Params.URI, views)
}

func handleServer(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	return jsonContents(request.Params.URI, ServerView{
		Mode:       string(sc.Mode()),
		ActiveBots: sc.Registry().Len(),
		ShutDown:   sc.IsShutdown(),
	})
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
