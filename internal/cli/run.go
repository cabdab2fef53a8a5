package cli

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/rekitter/internal/presentation/tui"
	"github.com/aretw0/rekitter/pkg/runner"
	"github.com/muesli/termenv"
)

// RunOptions configures a terminal debate.
type RunOptions struct {
	Theme  string
	Rounds int
	Pacing time.Duration
	// JSON switches to newline-delimited JSON events and commands.
	JSON bool
	// Width wraps rendered posts; zero keeps the renderer default.
	Width int
	// Profile colors the status line. Ignored in JSON mode.
	Profile termenv.Profile
}

// NewHandler picks the presentation for a terminal run.
func NewHandler(opts RunOptions, in io.Reader, out io.Writer) runner.Handler {
	if opts.JSON {
		return runner.NewJSONHandler(in, out)
	}
	return runner.NewTextHandler(out,
		runner.WithTextHandlerInput(in),
		runner.WithTextHandlerRenderer(tui.NewRenderer(opts.Width)),
		runner.WithTextHandlerStatus(tui.StatusLine(opts.Profile)),
	)
}

// Run starts a debate on app and drives it to the end, reading operator commands from in.
func Run(ctx context.Context, app *App, opts RunOptions, in io.Reader, out io.Writer, logger *slog.Logger) error {
	handler := NewHandler(opts, in, out)
	if !opts.JSON {
		tui.PrintBanner(out, opts.Profile)
	}

	if err := app.Engine.Start(ctx, opts.Theme, opts.Rounds); err != nil {
		return err
	}
	snap := app.Engine.Snapshot()
	logger.Info("Debate started", "theme", snap.Theme.Title, "rounds", snap.RoundBudget)

	var commands runner.CommandSource
	if src, ok := handler.(runner.CommandSource); ok && in != nil {
		commands = src
	}
	r := runner.NewRunner(
		runner.WithHandler(handler),
		runner.WithCommands(commands),
		runner.WithPacing(opts.Pacing),
		runner.WithLogger(logger),
	)
	return r.Run(ctx, app.Engine)
}
