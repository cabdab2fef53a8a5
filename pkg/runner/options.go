package runner

import (
	"log/slog"
	"time"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithHandler configures how events are presented.
func WithHandler(handler Handler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithCommands configures the source of operator commands.
func WithCommands(src CommandSource) Option {
	return func(r *Runner) {
		r.Commands = src
	}
}

// WithPacing sets the delay between turns. Negative values are ignored.
func WithPacing(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.Pacing = d
		}
	}
}
