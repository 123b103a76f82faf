/*
Package main is the entry point for the agentforge CLI.

agentforge routes free-form requests to a dynamically growing pool of
specialized handlers. When a request arrives it is scored against every
stored handler description using a combined text-similarity measure; a close
enough handler is reused, otherwise a new one is created, and either way the
request is delegated to the completion service framed by the handler's
specialization.

Usage:
  agentforge [command]

Available Commands:
  chat        Start the interactive request loop (default)
  list        List all stored handlers
  stats       Show handler registry statistics
  version     Show version information

Examples:
  # Start chatting (requires GEMINI_API_KEY)
  agentforge

  # Inspect what handlers have accumulated
  agentforge list
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"agentforge/internal/cli"
	"agentforge/internal/version"
)

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "agentforge",
		Short: "Dynamic task delegation with a self-growing handler pool",
		Long: `agentforge matches each request against a pool of specialized handlers
using a multi-signal text-similarity score. Similar enough handlers are
reused; otherwise a new one is created and persisted. The chosen handler's
specialization frames the completion call that answers the request.`,
		Version: version.GetVersion(),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default behavior: launch the interactive loop.
			return cli.RunChat(verbose, 0)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(cli.NewChatCmd())
	rootCmd.AddCommand(cli.NewListCmd())
	rootCmd.AddCommand(cli.NewStatsCmd())
	rootCmd.AddCommand(cli.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
