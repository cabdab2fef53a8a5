package main

import (
	"context"

	"github.com/aretw0/rekitter/internal/cli"
	"github.com/aretw0/rekitter/internal/logging"
	"github.com/aretw0/rekitter/internal/presentation/feed"
	"github.com/aretw0/rekitter/pkg/runner"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Open the interactive timeline",
	Long: `Opens a full-screen timeline. Start a debate with /start <rounds> [theme];
posts appear as the characters reply. Press Esc or Ctrl+C to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// Logs on stderr would tear the full-screen view apart.
		if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
			logger = logging.NewNop()
		}
		app, err := cli.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close(context.WithoutCancel(ctx))

		autopilot := runner.NewRunner(runner.WithPacing(cfg.Debate.Pacing), runner.WithLogger(logger))
		go func() {
			_ = autopilot.Autopilot(ctx, app.Engine)
		}()

		return feed.Run(ctx, app.Engine, feed.WithProfile(termenv.EnvColorProfile()))
	},
}

func init() {
	rootCmd.AddCommand(feedCmd)
	feedCmd.Flags().BoolP("verbose", "v", false, "Keep logging to stderr while the feed is open")
}
