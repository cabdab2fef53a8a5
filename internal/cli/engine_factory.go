// Package cli holds the wiring shared by the rekitter commands: building an engine
// from configuration and running it in the terminal.
package cli

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/rekitter"
	"github.com/aretw0/rekitter/internal/config"
	"github.com/aretw0/rekitter/internal/runtime"
	"github.com/aretw0/rekitter/internal/telemetry"
	"github.com/aretw0/rekitter/pkg/adapters/gemini"
	"github.com/aretw0/rekitter/pkg/adapters/memory"
	"github.com/aretw0/rekitter/pkg/adapters/openai"
	redisAdapter "github.com/aretw0/rekitter/pkg/adapters/redis"
	"github.com/aretw0/rekitter/pkg/composer"
	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/aretw0/rekitter/pkg/observability"
	"github.com/aretw0/rekitter/pkg/ports"
	"github.com/aretw0/rekitter/pkg/registry"
	backend "github.com/redis/go-redis/v9"
)

// App is an engine together with the resources it owns.
type App struct {
	Engine  *rekitter.Engine
	Metrics *observability.Metrics
	Config  *config.Config

	closers []func(context.Context) error
}

// Close releases the resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Build creates the engine described by cfg. Extra options are applied last.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, extra ...rekitter.Option) (*App, error) {
	app := &App{Config: cfg, Metrics: observability.NewMetrics()}

	// Tracing first: the scheduler picks up the global provider on construction.
	shutdown, err := telemetry.Setup(ctx, "rekitter")
	if err != nil {
		logger.Warn("Tracing disabled", "err", err)
	}
	app.closers = append(app.closers, shutdown)

	path := cfg.Roster
	if cfg.RosterDir != "" {
		path = cfg.RosterDir
	}
	reg, err := rekitter.LoadRoster(ctx, path, registry.WithAvatarBase(cfg.AvatarBase))
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}

	themes := cfg.MergeThemes(rekitter.DefaultThemes())
	gen, err := NewGenerator(ctx, cfg, themes[0].Tag(), logger)
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}

	opts := []rekitter.Option{
		rekitter.WithLogger(logger),
		rekitter.WithGenerator(gen),
		rekitter.WithThemes(themes),
		rekitter.WithSettings(Settings(cfg)),
		rekitter.WithComposer(composer.New(
			composer.WithRenderLimit(cfg.Composer.RenderLimit),
			composer.WithWindow(cfg.Composer.Window),
			composer.WithLanguage(cfg.Composer.Language),
		)),
		rekitter.WithLifecycleHooks(app.Metrics.Hooks()),
		rekitter.WithLifecycleHooks(observability.AuditHooks(logger)),
		rekitter.WithPublisher(app.Metrics),
	}

	if cfg.Redis.Addr != "" {
		client := backend.NewClient(&backend.Options{Addr: cfg.Redis.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			_ = app.Close(ctx)
			return nil, &domain.ConfigError{Source: "redis", Err: fmt.Errorf("connecting to %s: %w", cfg.Redis.Addr, err)}
		}
		app.closers = append(app.closers, func(context.Context) error { return client.Close() })
		opts = append(opts,
			rekitter.WithLocker(redisAdapter.NewLocker(client, cfg.Redis.Prefix), cfg.Redis.LockTTL),
			rekitter.WithPublisher(redisAdapter.NewPublisher(client,
				redisAdapter.WithChannel(cfg.Redis.Channel),
				redisAdapter.WithLogger(logger),
			)),
		)
		logger.Info("Redis enabled", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	}

	eng, err := rekitter.New(reg, append(opts, extra...)...)
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	app.Engine = eng
	return app, nil
}

// Settings maps the debate configuration onto the scheduler tunables.
func Settings(cfg *config.Config) runtime.Settings {
	s := runtime.DefaultSettings()
	d := cfg.Debate
	s.InterjectionProbability = d.InterjectionProbability
	s.ChaosIncrement = d.ChaosIncrement
	s.SoftFailureRetries = d.SoftFailureRetries
	s.MaxTokens = d.MaxTokens
	s.Temperature = d.Temperature
	return s
}

// NewGenerator picks the generation service. With no explicit provider the first
// configured API key wins, and the offline demo generator is the fallback.
func NewGenerator(ctx context.Context, cfg *config.Config, hashtag string, logger *slog.Logger) (ports.Generator, error) {
	provider := cfg.Provider
	if provider == config.ProviderAuto {
		switch {
		case cfg.OpenAI.APIKey != "":
			provider = config.ProviderOpenAI
		case cfg.Gemini.APIKey != "":
			provider = config.ProviderGemini
		default:
			provider = config.ProviderDemo
		}
	}

	switch provider {
	case config.ProviderOpenAI:
		oc := openai.DefaultConfig(cfg.OpenAI.APIKey)
		if cfg.OpenAI.BaseURL != "" {
			oc.BaseURL = cfg.OpenAI.BaseURL
		}
		if cfg.OpenAI.Model != "" {
			oc.Model = cfg.OpenAI.Model
		}
		if cfg.OpenAI.Timeout > 0 {
			oc.Timeout = cfg.OpenAI.Timeout
		}
		oc.MaxRetries = cfg.OpenAI.MaxRetries
		logger.Info("Using OpenAI generator", "model", oc.Model, "base_url", oc.BaseURL)
		return openai.New(oc, openai.WithLogger(logger)), nil
	case config.ProviderGemini:
		gc := gemini.Config{APIKey: cfg.Gemini.APIKey, Model: cfg.Gemini.Model}
		g, err := gemini.New(ctx, gc, gemini.WithLogger(logger))
		if err != nil {
			return nil, &domain.ConfigError{Source: "gemini", Err: err}
		}
		logger.Info("Using Gemini generator", "model", cmp.Or(gc.Model, gemini.DefaultModel))
		return g, nil
	case config.ProviderDemo:
		logger.Info("Using offline demo generator")
		return memory.NewDemoGenerator(hashtag), nil
	}
	return nil, &domain.ConfigError{Source: "provider", Err: fmt.Errorf("unknown provider %q", provider)}
}
