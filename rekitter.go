package rekitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/aretw0/rekitter/internal/logging"
	"github.com/aretw0/rekitter/internal/runtime"
	loamAdapter "github.com/aretw0/rekitter/pkg/adapters/loam"
	"github.com/aretw0/rekitter/pkg/adapters/memory"
	"github.com/aretw0/rekitter/pkg/composer"
	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/aretw0/rekitter/pkg/ports"
	"github.com/aretw0/rekitter/pkg/registry"
	"github.com/aretw0/rekitter/pkg/session"
	"go.opentelemetry.io/otel/trace"
)

// Engine is the high-level entry point for the Rekitter library.
// It wraps the turn scheduler, serializes every write through a session lock
// and fans events out to subscribers.
type Engine struct {
	scheduler *runtime.Scheduler
	registry  *registry.Registry
	store     ports.TimelineStore
	generator ports.Generator
	bus       *memory.Bus
	sessions  *session.Manager
	themes    []domain.Theme

	runtimeOpts []runtime.Option
	sessionOpts []session.Option
	hooks       domain.LifecycleHooks
	publishers  []ports.EventPublisher
	logger      *slog.Logger

	// Name identifies the debate; it is the key of the session lock.
	Name string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks. Repeated calls chain them.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = domain.ChainHooks(e.hooks, hooks)
	}
}

// WithGenerator sets the generation service. Defaults to the offline demo generator.
func WithGenerator(g ports.Generator) Option {
	return func(e *Engine) {
		e.generator = g
	}
}

// WithStore replaces the in-memory timeline.
func WithStore(s ports.TimelineStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithThemes replaces the theme catalogue.
func WithThemes(themes []domain.Theme) Option {
	return func(e *Engine) {
		e.themes = themes
	}
}

// WithPublisher adds an event sink next to the in-process bus.
func WithPublisher(p ports.EventPublisher) Option {
	return func(e *Engine) {
		e.publishers = append(e.publishers, p)
	}
}

// WithLocker serializes turns across replicas through a distributed lock.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.sessionOpts = append(e.sessionOpts, session.WithLocker(l), session.WithLockTTL(ttl))
	}
}

// WithSettings sets the scheduler tunables.
func WithSettings(s runtime.Settings) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithSettings(s))
	}
}

// WithComposer sets the prompt composer.
func WithComposer(c *composer.Composer) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithComposer(c))
	}
}

// WithRand injects the random source of speaker selection.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithRand(r))
	}
}

// WithTracerProvider sets the provider for generation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithTracerProvider(tp))
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithName sets the debate name used as lock key and log attribute.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// New initializes an Engine over an already built roster.
func New(reg *registry.Registry, opts ...Option) (*Engine, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: registry is required", domain.ErrConfig)
	}
	eng := &Engine{registry: reg, Name: "default"}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	eng.logger = eng.logger.With("debate", eng.Name)
	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if len(eng.themes) == 0 {
		eng.themes = DefaultThemes()
	}
	if eng.generator == nil {
		eng.generator = memory.NewDemoGenerator(eng.themes[0].Tag())
	}
	eng.bus = memory.NewBus(memory.WithBusLogger(eng.logger))
	eng.sessions = session.NewManager(append([]session.Option{session.WithLogger(eng.logger)}, eng.sessionOpts...)...)

	runtimeOpts := []runtime.Option{
		runtime.WithLogger(eng.logger),
		runtime.WithHooks(eng.hooks),
		runtime.WithPublisher(eng.bus),
	}
	for _, p := range eng.publishers {
		runtimeOpts = append(runtimeOpts, runtime.WithPublisher(p))
	}
	// User-defined runtime options (settings, composer, rand) come last.
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)

	eng.scheduler = runtime.New(reg, eng.store, eng.generator, runtimeOpts...)
	return eng, nil
}

// Open loads the roster at path and initializes an Engine. A directory is read as
// character documents through Loam; a file is parsed as a JSON or YAML roster.
func Open(ctx context.Context, path string, regOpts []registry.Option, opts ...Option) (*Engine, error) {
	reg, err := LoadRoster(ctx, path, regOpts...)
	if err != nil {
		return nil, err
	}
	return New(reg, opts...)
}

// LoadRoster builds a registry from a roster file or a directory of character documents.
func LoadRoster(ctx context.Context, path string, opts ...registry.Option) (*registry.Registry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &domain.ConfigError{Source: path, Err: err}
	}
	if !info.IsDir() {
		return registry.Load(path, opts...)
	}
	loader, err := loamAdapter.Open(path)
	if err != nil {
		return nil, &domain.ConfigError{Source: path, Err: err}
	}
	return loader.Registry(ctx, opts...)
}

// Start begins a debate on theme for the given number of rounds. theme is a catalogue
// id or title, or free text for an ad-hoc theme; empty selects the first catalogue entry.
func (e *Engine) Start(ctx context.Context, theme string, rounds int) error {
	return e.StartTheme(ctx, e.ResolveTheme(theme), rounds)
}

// StartTheme begins a debate on an explicit theme.
func (e *Engine) StartTheme(ctx context.Context, theme domain.Theme, rounds int) error {
	return e.sessions.WithLock(ctx, e.Name, func(ctx context.Context) error {
		return e.scheduler.Start(ctx, theme, rounds)
	})
}

// Stop halts the debate at the next activation boundary. It never waits for an
// in-flight generation call.
func (e *Engine) Stop(ctx context.Context) error {
	return e.scheduler.Stop(ctx)
}

// ResetHistory clears the timeline and chaos and returns to idle. It does not wait
// for an in-flight generation call; that reply is discarded when it arrives.
func (e *Engine) ResetHistory(ctx context.Context) error {
	return e.scheduler.ResetHistory(ctx)
}

// Activate runs one scheduled turn.
func (e *Engine) Activate(ctx context.Context) (domain.TurnResult, error) {
	var res domain.TurnResult
	err := e.sessions.WithLock(ctx, e.Name, func(ctx context.Context) error {
		var err error
		res, err = e.scheduler.Activate(ctx)
		return err
	})
	return res, err
}

// ManualPost appends operator text as a post by speakerID. Empty text is ignored.
func (e *Engine) ManualPost(ctx context.Context, speakerID, text string) (*domain.Post, error) {
	var post *domain.Post
	err := e.sessions.WithLock(ctx, e.Name, func(ctx context.Context) error {
		var err error
		post, err = e.scheduler.ManualPost(ctx, speakerID, text)
		return err
	})
	return post, err
}

// ManualGenerate asks speakerID for a post outside the schedule.
func (e *Engine) ManualGenerate(ctx context.Context, speakerID string) (domain.TurnResult, error) {
	var res domain.TurnResult
	err := e.sessions.WithLock(ctx, e.Name, func(ctx context.Context) error {
		var err error
		res, err = e.scheduler.ManualGenerate(ctx, speakerID)
		return err
	})
	return res, err
}

// Timeline returns every post in the requested order.
func (e *Engine) Timeline(ctx context.Context, order domain.Order) ([]domain.Post, error) {
	return e.scheduler.Timeline(ctx, order)
}

// Snapshot returns the current session view.
func (e *Engine) Snapshot() domain.Snapshot {
	return e.scheduler.Snapshot()
}

// Roster returns the characters in roster order.
func (e *Engine) Roster() []domain.Character {
	return e.registry.All()
}

// Registry returns the underlying roster.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Themes returns the theme catalogue.
func (e *Engine) Themes() []domain.Theme {
	out := make([]domain.Theme, len(e.themes))
	copy(out, e.themes)
	return out
}

// Settings returns the active scheduler tunables.
func (e *Engine) Settings() runtime.Settings {
	return e.scheduler.Settings()
}

// Subscribe streams engine events. Call cancel to stop; a slow subscriber misses events
// rather than blocking turns.
func (e *Engine) Subscribe() (<-chan domain.Event, func()) {
	return e.bus.Subscribe()
}

// ResolveTheme maps operator input to a theme: catalogue id or title (case-insensitive),
// else an ad-hoc theme with text as its title.
func (e *Engine) ResolveTheme(text string) domain.Theme {
	text = strings.TrimSpace(text)
	if text == "" {
		return e.themes[0]
	}
	for _, t := range e.themes {
		if strings.EqualFold(t.ID, text) || strings.EqualFold(t.Title, text) {
			return t
		}
	}
	return domain.FreeTheme(text)
}

// Theme returns the catalogue entry with the given id.
func (e *Engine) Theme(id string) (domain.Theme, error) {
	for _, t := range e.themes {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Theme{}, fmt.Errorf("%w: %s", domain.ErrUnknownTheme, id)
}

// IsConfigError reports whether err comes from an unreadable or invalid roster or config.
func IsConfigError(err error) bool {
	return errors.Is(err, domain.ErrConfig)
}

