package main

import (
	"context"
	"os"

	"github.com/aretw0/rekitter/internal/cli"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var runCmd = &cobra.Command{
	Use:   "run [theme]",
	Short: "Run a debate in the terminal",
	Long: `Starts a debate and prints the timeline as it grows.
Type slash commands while it runs (/post, /gen, /stop, /reset, /help).
When stdout is not a terminal the events are written as JSON lines instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, logger, err := buildApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.Close(context.WithoutCancel(ctx))

		cfg := app.Config
		opts := cli.RunOptions{
			Theme:   cfg.Debate.Theme,
			Rounds:  cfg.Debate.Rounds,
			Pacing:  cfg.Debate.Pacing,
			Profile: termenv.EnvColorProfile(),
		}
		if len(args) > 0 {
			opts.Theme = args[0]
		}
		if cmd.Flags().Changed("rounds") {
			opts.Rounds, _ = cmd.Flags().GetInt("rounds")
		}
		if cmd.Flags().Changed("pacing") {
			opts.Pacing, _ = cmd.Flags().GetDuration("pacing")
		}

		tty := term.IsTerminal(int(os.Stdout.Fd()))
		opts.JSON, _ = cmd.Flags().GetBool("json")
		if !tty {
			opts.JSON = true
		}
		if tty {
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				opts.Width = min(w, 100)
			}
		}

		return cli.Run(ctx, app, opts, os.Stdin, cmd.OutOrStdout(), logger)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntP("rounds", "n", 10, "Number of posts before the debate completes")
	runCmd.Flags().Duration("pacing", 0, "Pause between posts (defaults to the config)")
	runCmd.Flags().Bool("json", false, "Write events as JSON lines")
}
