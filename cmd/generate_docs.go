package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetbot/internal/meetbot"
	"github.com/teemow/meetbot/internal/server"
	"github.com/teemow/meetbot/internal/tools/meetbot_tools"
	"github.com/teemow/meetbot/internal/upstream"
)

const (
	categoryLifecycle = "Bot Lifecycle"
	categoryState     = "Meeting State"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, so the reference always matches the implementation.
No credentials are needed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(cmd.OutOrStdout(), outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(out io.Writer, outputFile string) error {
	tools, err := registeredTools()
	if err != nil {
		return err
	}

	markdown := generateToolsMarkdown(tools)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
		return nil
	}

	_, err = io.WriteString(out, markdown)
	return err
}

// registeredTools registers every tool against an adapter that is never
// called and returns the tool definitions.
func registeredTools() ([]mcp.Tool, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	adapter := newAdapter(upstream.Credentials{Mode: upstream.ModeHosted}, adapterOptions{Logger: logger})
	service := meetbot.New(meetbot.Config{Adapter: adapter, Logger: logger})

	serverContext, err := server.NewServerContext(context.Background(), service, server.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	defer serverContext.Shutdown(context.Background())

	mcpSrv := mcpserver.NewMCPServer("meetbot", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := meetbot_tools.RegisterMeetbotTools(mcpSrv, serverContext, false); err != nil {
		return nil, fmt.Errorf("failed to register meetbot tools: %w", err)
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}
	return tools, nil
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document provides a complete reference of all tools available when running meetbot as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	toolsByCategory := groupToolsByCategory(tools)

	sb.WriteString("## Table of Contents\n\n")
	categories := make([]string, 0, len(toolsByCategory))
	for category := range toolsByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", category, anchor))
	}
	sb.WriteString("\n")

	sb.WriteString("## Workflow\n\n")
	sb.WriteString(fmt.Sprintf("1. `%s` returns a `bot_id`\n", meetbot_tools.ToolJoinMeeting))
	sb.WriteString(fmt.Sprintf("2. `%s` until the bot is in the call\n", meetbot_tools.ToolGetStatus))
	sb.WriteString(fmt.Sprintf("3. `%s` repeatedly, answering with `%s` or `%s`\n",
		meetbot_tools.ToolGetTranscript, meetbot_tools.ToolSpeak, meetbot_tools.ToolSendChat))
	sb.WriteString(fmt.Sprintf("4. `%s` when done\n\n", meetbot_tools.ToolLeaveMeeting))

	for _, category := range categories {
		categoryTools := toolsByCategory[category]
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		sb.WriteString(fmt.Sprintf("## %s\n\n", category))

		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func groupToolsByCategory(tools []mcp.Tool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)

	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		categories[category] = append(categories[category], tool)
	}

	return categories
}

func getCategoryFromToolName(name string) string {
	switch name {
	case meetbot_tools.ToolGetTranscript, meetbot_tools.ToolGetStatus, meetbot_tools.ToolListSessions:
		return categoryState
	case meetbot_tools.ToolJoinMeeting, meetbot_tools.ToolSpeak, meetbot_tools.ToolSendChat, meetbot_tools.ToolLeaveMeeting:
		return categoryLifecycle
	default:
		return "Other"
	}
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))

	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}

	if len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		// Sort properties for consistent output
		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			propMap, ok := tool.InputSchema.Properties[name].(map[string]interface{})
			if !ok {
				continue
			}

			requiredStr := "optional"
			if slices.Contains(tool.InputSchema.Required, name) {
				requiredStr = "required"
			}

			sb.WriteString(fmt.Sprintf("- `%s` (%s): ", name, requiredStr))

			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				sb.WriteString(fmt.Sprintf("%s parameter", getPropertyType(propMap)))
			}
			if values := getEnumValues(propMap); len(values) > 0 {
				sb.WriteString(fmt.Sprintf(" One of: `%s`.", strings.Join(values, "`, `")))
			}

			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]interface{}) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func getEnumValues(prop map[string]interface{}) []string {
	switch values := prop["enum"].(type) {
	case []string:
		return values
	case []interface{}:
		out := make([]string, 0, len(values))
		for _, v := range values {
			out = append(out, fmt.Sprint(v))
		}
		return out
	default:
		return nil
	}
}
