// pmbridge: a project-management MCP server.
//
// It fronts Jira, Confluence and Google Calendar behind a uniform
// tool-call interface and links calendar meetings to tracker issues
// using only metadata the two systems already offer.
//
// Usage:
//
//	pmbridge serve     # Start the MCP server (stdio transport)
//	pmbridge version   # Print the version
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/pmbridge/pmbridge/internal/config"
	"github.com/pmbridge/pmbridge/internal/logging"
	pmserver "github.com/pmbridge/pmbridge/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "pmbridge",
	Short: "MCP server bridging Jira, Confluence and Google Calendar",
	Long: `pmbridge exposes project-management tools over the Model Context
Protocol and maintains meeting↔issue links without a database: the
meeting side lives in calendar event metadata, the issue side in
gcal:<event_id> labels.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := config.Load()
		if err != nil {
			return err
		}
		if err := logging.SetLevel(settings.LogLevel); err != nil {
			return err
		}
		logging.SetFormat(settings.LogFormat)

		ctx := cmd.Context()
		s, err := pmserver.New(ctx, settings)
		if err != nil {
			return err
		}

		logging.G(ctx).WithField("version", pmserver.Version).Info("starting pmbridge MCP server on stdio")

		// The stdio server runs until its stdin closes; logs stay on
		// stderr so the transport on stdout is never polluted.
		return server.ServeStdio(s)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pmbridge version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("pmbridge v%s\n", pmserver.Version)
	},
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
