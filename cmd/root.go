package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the meetbot application
var rootCmd = &cobra.Command{
	Use:   "meetbot",
	Short: "MCP server that lets an AI agent take part in video meetings",
	Long: `meetbot is a Model Context Protocol (MCP) server that drives a meeting bot.
An agent can send the bot into a meeting, read what was said, speak with a
synthesized voice, post to the chat and remove the bot again.

Two upstream setups are supported and picked from the environment:
  - hosted: a single intermediary platform (MEETBOT_API_KEY)
  - direct: a meeting-bot platform plus a speech platform
    (RECALL_API_KEY and OPENAI_API_KEY)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "meetbot version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newCheckConfigCmd())
}
