package runtime

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aretw0/rekitter/pkg/composer"
	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/aretw0/rekitter/pkg/ports"
	"go.opentelemetry.io/otel/trace"
)

// Settings holds the tunables of the scheduler.
type Settings struct {
	// InterjectionProbability is the chance, per eligible turn, that a bystander speaks instead.
	InterjectionProbability float64
	// ChaosIncrement is added to the chaos level per appended post.
	ChaosIncrement int
	// SoftFailureRetries is how many consecutive empty replies a speaker may produce
	// before the session stops with a generation failure.
	SoftFailureRetries int

	MaxTokens     int
	Temperature   float64
	StopSequences []string
}

// DefaultSettings mirrors the original feed: 200 tokens, 20% interjections, three retries.
func DefaultSettings() Settings {
	return Settings{
		InterjectionProbability: 0.2,
		ChaosIncrement:          DefaultChaosIncrement,
		SoftFailureRetries:      3,
		MaxTokens:               200,
		Temperature:             0.9,
	}
}

func (s Settings) normalized() Settings {
	if s.InterjectionProbability < 0 {
		s.InterjectionProbability = 0
	}
	if s.InterjectionProbability > 1 {
		s.InterjectionProbability = 1
	}
	if s.SoftFailureRetries < 1 {
		s.SoftFailureRetries = 1
	}
	if s.MaxTokens < 1 {
		s.MaxTokens = DefaultSettings().MaxTokens
	}
	return s
}

// Option configures the Scheduler.
type Option func(*Scheduler)

// WithSettings replaces the scheduler tunables.
func WithSettings(s Settings) Option {
	return func(sc *Scheduler) {
		sc.settings = s.normalized()
	}
}

// WithComposer sets the prompt composer.
func WithComposer(c *composer.Composer) Option {
	return func(sc *Scheduler) {
		sc.composer = c
	}
}

// WithPublisher adds an event sink. Several publishers may be registered.
func WithPublisher(p ports.EventPublisher) Option {
	return func(sc *Scheduler) {
		sc.publishers = append(sc.publishers, p)
	}
}

// WithHooks registers lifecycle hooks. Repeated calls chain the hooks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(sc *Scheduler) {
		sc.hooks = domain.ChainHooks(sc.hooks, h)
	}
}

// WithLogger configures a logger for the Scheduler.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *Scheduler) {
		sc.logger = logger
	}
}

// WithRand injects the random source used for interjections and tie-breaks.
func WithRand(r *rand.Rand) Option {
	return func(sc *Scheduler) {
		sc.rng = r
	}
}

// WithClock injects the time source used for post and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(sc *Scheduler) {
		sc.now = now
	}
}

// WithTracerProvider sets the provider for generation spans. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(sc *Scheduler) {
		sc.tracer = tp.Tracer(tracerName)
	}
}
