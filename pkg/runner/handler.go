package runner

import (
	"context"

	"github.com/aretw0/rekitter/pkg/domain"
)

// Handler defines the strategy for presenting a debate.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type Handler interface {
	// Event presents a timeline or session change.
	Event(ctx context.Context, ev domain.Event) error

	// System presents a meta-message to the operator (status updates, errors).
	// This is distinct from timeline content.
	System(ctx context.Context, msg string) error
}

// CommandSource reads operator commands while a debate runs.
type CommandSource interface {
	// Command blocks until the next command is available.
	// It returns io.EOF when the source is exhausted.
	Command(ctx context.Context) (Command, error)
}
