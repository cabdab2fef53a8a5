package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/rekitter/internal/cli"
	"github.com/aretw0/rekitter/internal/config"
	"github.com/aretw0/rekitter/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rekitter",
	Short: "Rekitter replays a historical debate as a social feed",
	Long: `Rekitter lets historical figures argue on a simulated timeline.
Each character posts in turn through a text generation service while the chaos meter rises.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().String("roster", "", "Roster file or directory of character documents (overrides the config)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit logs as JSON")
}

// loadConfig reads the configuration and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	if roster, _ := cmd.Flags().GetString("roster"); roster != "" {
		if info, err := os.Stat(roster); err == nil && info.IsDir() {
			cfg.RosterDir = roster
		} else {
			cfg.Roster, cfg.RosterDir = roster, ""
		}
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}

	level := logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(level)
	if asJSON, _ := cmd.Flags().GetBool("log-json"); asJSON {
		logger = logging.NewJSON(os.Stderr, level)
	}
	return cfg, logger, nil
}

// buildApp loads the configuration and builds the engine.
func buildApp(ctx context.Context, cmd *cobra.Command) (*cli.App, *slog.Logger, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	app, err := cli.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return app, logger, nil
}
