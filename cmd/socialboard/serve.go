package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/socialboard/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server. The persisted client state and any stored session
are restored before the first request is served. SIGINT or SIGTERM shuts the
server down gracefully.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		logger := slog.Default()

		if cfg.DBPath != ":memory:" {
			// MkdirAll is a no-op when the directory already exists.
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				fatal("creating database directory", err)
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv, err := server.New(ctx, cfg, logger)
		if err != nil {
			fatal("creating server", err)
		}

		if err := srv.Run(ctx); err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
