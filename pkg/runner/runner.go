package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/rekitter"
	"github.com/aretw0/rekitter/internal/logging"
	"github.com/aretw0/rekitter/pkg/domain"
)

// DefaultPacing is the delay between two scheduled turns.
const DefaultPacing = 3 * time.Second

// Runner drives the activation loop of an Engine and presents its events.
// This allows for easy testing and integration with different frontends (CLI, TUI, HTTP).
type Runner struct {
	// Handler presents events. If nil, a TextHandler on Stdout is used.
	Handler Handler

	// Commands is an optional source of operator commands read while the debate runs.
	Commands CommandSource

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// Pacing is the delay between turns. Zero means no delay.
	Pacing time.Duration
}

// NewRunner creates a Runner with the default pacing.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{Pacing: DefaultPacing}
	for _, opt := range opts {
		opt(r)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	return r
}

// Run activates eng until the debate is no longer running, presenting every event
// through the Handler. A debate must already be started. On SIGINT or SIGTERM the
// debate is stopped and Run returns nil; a generation failure is returned as error.
func (r *Runner) Run(ctx context.Context, eng *rekitter.Engine) error {
	handler := r.resolveHandler()
	logger := r.logger()

	signals := NewSignalManager(ctx)
	defer signals.Stop()
	runCtx := signals.Context()

	events, cancel := eng.Subscribe()
	defer cancel()

	commands := r.pumpCommands(runCtx)

	for eng.Snapshot().Running {
		res, err := eng.Activate(runCtx)
		r.drain(runCtx, handler, events)
		if err != nil {
			if runCtx.Err() != nil {
				break
			}
			if errors.Is(err, domain.ErrGenerationFailure) {
				_ = handler.System(ctx, fmt.Sprintf("Debate stopped: %v", err))
			}
			return err
		}
		logger.Debug("Turn finished", "outcome", res.Outcome, "speaker", res.SpeakerID)

		if !eng.Snapshot().Running {
			break
		}
		if err := r.pace(runCtx, eng, handler, events, commands); err != nil {
			break
		}
	}

	if runCtx.Err() != nil {
		interrupted := signals.Interrupted()
		// The run context is gone; stopping must still reach the engine.
		if err := eng.Stop(context.WithoutCancel(ctx)); err != nil {
			return err
		}
		r.drain(ctx, handler, events)
		if interrupted {
			_ = handler.System(ctx, "Interrupted. Debate stopped.")
			return nil
		}
		return ctx.Err()
	}

	r.drain(ctx, handler, events)
	snap := eng.Snapshot()
	if snap.Status == domain.StatusCompleted {
		_ = handler.System(ctx, fmt.Sprintf("Debate completed after %d rounds.", snap.RoundsCompleted))
	}
	return nil
}

// pace waits Pacing while applying operator commands. It returns ctx.Err() when
// the context ends first.
func (r *Runner) pace(ctx context.Context, eng *rekitter.Engine, handler Handler, events <-chan domain.Event, commands <-chan Command) error {
	timer := time.NewTimer(r.Pacing)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			r.apply(ctx, eng, handler, cmd)
			r.drain(ctx, handler, events)
			if !eng.Snapshot().Running {
				return nil
			}
		}
	}
}

func (r *Runner) apply(ctx context.Context, eng *rekitter.Engine, handler Handler, cmd Command) {
	if cmd.Name == CommandHelp {
		_ = handler.System(ctx, Usage)
		return
	}
	if err := Apply(ctx, eng, cmd); err != nil {
		r.logger().Warn("Command failed", "command", cmd.Name, "err", err)
		_ = handler.System(ctx, fmt.Sprintf("/%s failed: %v", cmd.Name, err))
	}
}

// drain presents every event already queued without blocking.
func (r *Runner) drain(ctx context.Context, handler Handler, events <-chan domain.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := handler.Event(ctx, ev); err != nil {
				r.logger().Warn("Handler failed to present event", "type", ev.Type, "err", err)
			}
		default:
			return
		}
	}
}

// pumpCommands reads Commands in the background. The returned channel is nil
// when no source is configured.
func (r *Runner) pumpCommands(ctx context.Context) <-chan Command {
	if r.Commands == nil {
		return nil
	}
	out := make(chan Command)
	go func() {
		defer close(out)
		for {
			cmd, err := r.Commands.Command(ctx)
			if err != nil {
				if !errors.Is(err, io.EOF) && ctx.Err() == nil {
					r.logger().Warn("Command source failed", "err", err)
				}
				return
			}
			select {
			case out <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Autopilot keeps eng moving whenever a debate is running, until ctx is done.
// It is meant for hosts (HTTP, MCP) where debates are started remotely: every
// session change that leaves the debate running kicks the activation loop.
func (r *Runner) Autopilot(ctx context.Context, eng *rekitter.Engine) error {
	logger := r.logger()
	events, cancel := eng.Subscribe()
	defer cancel()

	var (
		wg     sync.WaitGroup
		active atomic.Bool
	)
	defer wg.Wait()

	kick := func() {
		if !active.CompareAndSwap(false, true) {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.drive(ctx, eng, &active)
		}()
	}

	if eng.Snapshot().Running {
		kick()
	}
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Autopilot stopping")
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Type == domain.EventSessionChanged && ev.Session.Running {
				kick()
			}
		}
	}
}

// drive runs turns until the debate stops. active is released on exit; if the
// debate was restarted in the meantime the loop claims it again.
func (r *Runner) drive(ctx context.Context, eng *rekitter.Engine, active *atomic.Bool) {
	logger := r.logger()
	for {
		for eng.Snapshot().Running {
			res, err := eng.Activate(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Error("Autopilot turn failed", "err", err)
				}
				active.Store(false)
				return
			}
			logger.Debug("Autopilot turn", "outcome", res.Outcome, "speaker", res.SpeakerID)
			if !eng.Snapshot().Running {
				break
			}
			if !sleep(ctx, r.Pacing) {
				return
			}
		}
		active.Store(false)
		if ctx.Err() != nil || !eng.Snapshot().Running || !active.CompareAndSwap(false, true) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// resolveHandler ensures a valid Handler is set.
func (r *Runner) resolveHandler() Handler {
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdout)
	}
	return r.Handler
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return logging.NewNop()
	}
	return r.Logger
}
