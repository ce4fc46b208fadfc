package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfsplit/internal/config"
	"github.com/jackzampolin/pdfsplit/internal/home"
	"github.com/jackzampolin/pdfsplit/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pdfsplit server",
	Long: `Start the pdfsplit HTTP server.

The server accepts split runs over HTTP and streams progress events to
connected clients. Configuration hot-reloads when the config file changes.

The server provides:
  - /health     - Basic server health check
  - /ready      - Readiness check (includes Ghostscript status)
  - /api/runs   - Start and monitor split runs
  - /api/events - Server-sent event stream of run progress

Examples:
  pdfsplit serve                    # Start on default port 8675
  pdfsplit serve --port 3000        # Start on custom port
  pdfsplit serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		// Get home directory
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfgMgr.WatchConfig()

		host := serveHost
		port := servePort
		if !cmd.Flags().Changed("host") {
			host = cfgMgr.Get().Server.Host
		}
		if !cmd.Flags().Changed("port") {
			port = cfgMgr.Get().Server.Port
		}

		// Create server
		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			Home:          h,
			ConfigManager: cfgMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8675", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
