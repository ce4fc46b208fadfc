package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfsplit/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running pdfsplit server via HTTP.

These commands require a running server (pdfsplit serve).
Use --server to specify a custom server URL.

Examples:
  pdfsplit api health              # Check server health
  pdfsplit api start book.pdf      # Start a split run
  pdfsplit api status              # Show the current run
  pdfsplit api watch               # Stream run progress events`,
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8675", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.SystemEndpoint{}).Command(getServerURL))

	// Analysis
	apiCmd.AddCommand((&endpoints.AnalyzeEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.PresetsEndpoint{}).Command(getServerURL))

	// Runs
	apiCmd.AddCommand((&endpoints.StartRunEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.RunStatusEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.CancelRunEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.AppendRunEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.EventsEndpoint{}).Command(getServerURL))

	// Maintenance
	apiCmd.AddCommand((&endpoints.ClearStagingEndpoint{}).Command(getServerURL))

	rootCmd.AddCommand(apiCmd)
}
