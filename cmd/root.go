package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the tasklight application
var rootCmd = &cobra.Command{
	Use:   "tasklight",
	Short: "MCP server for managing Google Tasks",
	Long: `tasklight exposes Google Tasks as a set of MCP (Model Context Protocol)
tools, so AI assistants can manage task lists and tasks on the user's behalf.

On the first tool call that needs Google access, the server loads a persisted
OAuth token, refreshes it if expired, or walks the user through the browser
authorization flow.`,
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
	rootCmd.SetVersionTemplate(`{{printf "tasklight version %s\n" .Version}}`)

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
}
