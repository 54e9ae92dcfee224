package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/socialboard/internal/config"
)

var (
	configPath string
	verbose    bool

	// cfg is loaded once by the root command before any subcommand runs.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "socialboard",
	Short: "A social feed and task board driven by a flux store",
	Long: `socialboard keeps the client state of a social feed and task board in a
single flux store. Every change is an action; the state is persisted between
runs and streamed to clients over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded

		level, err := cfg.SlogLevel()
		if err != nil {
			return err
		}
		if verbose {
			level = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		return nil
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
