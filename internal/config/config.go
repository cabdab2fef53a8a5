// Package config loads the runtime configuration: a YAML file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/caarlos0/env/v11"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Provider names accepted in Config.Provider.
const (
	ProviderAuto   = ""
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderDemo   = "demo"
)

// Config is the full runtime configuration.
type Config struct {
	// Roster is a JSON/YAML roster file; RosterDir a directory of character documents.
	// RosterDir wins when both are set.
	Roster     string `mapstructure:"roster" env:"REKITTER_ROSTER"`
	RosterDir  string `mapstructure:"roster_dir" env:"REKITTER_ROSTER_DIR"`
	AvatarBase string `mapstructure:"avatar_base" env:"REKITTER_AVATAR_BASE"`

	Provider string `mapstructure:"provider" env:"REKITTER_PROVIDER"`
	LogLevel string `mapstructure:"log_level" env:"REKITTER_LOG_LEVEL"`
	Addr     string `mapstructure:"addr" env:"REKITTER_ADDR"`

	Debate   DebateConfig   `mapstructure:"debate"`
	Composer ComposerConfig `mapstructure:"composer"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Redis    RedisConfig    `mapstructure:"redis"`

	// Themes extends the built-in catalogue; an entry with a built-in id replaces it.
	Themes []domain.Theme `mapstructure:"themes"`
}

// DebateConfig holds the scheduler tunables.
type DebateConfig struct {
	Theme                   string        `mapstructure:"theme" env:"REKITTER_THEME"`
	Rounds                  int           `mapstructure:"rounds" env:"REKITTER_ROUNDS"`
	Pacing                  time.Duration `mapstructure:"pacing" env:"REKITTER_PACING"`
	InterjectionProbability float64       `mapstructure:"interjection_probability" env:"REKITTER_INTERJECTION_PROBABILITY"`
	ChaosIncrement          int           `mapstructure:"chaos_increment" env:"REKITTER_CHAOS_INCREMENT"`
	SoftFailureRetries      int           `mapstructure:"soft_failure_retries" env:"REKITTER_SOFT_FAILURE_RETRIES"`
	MaxTokens               int           `mapstructure:"max_tokens" env:"REKITTER_MAX_TOKENS"`
	Temperature             float64       `mapstructure:"temperature" env:"REKITTER_TEMPERATURE"`
}

// ComposerConfig shapes the generation instructions.
type ComposerConfig struct {
	RenderLimit int    `mapstructure:"render_limit" env:"REKITTER_RENDER_LIMIT"`
	Window      int    `mapstructure:"window" env:"REKITTER_CONTEXT_WINDOW"`
	Language    string `mapstructure:"language" env:"REKITTER_LANGUAGE"`
}

// OpenAIConfig configures the OpenAI-compatible generator.
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key" env:"OPENAI_API_KEY"`
	BaseURL string        `mapstructure:"base_url" env:"OPENAI_BASE_URL"`
	Model   string        `mapstructure:"model" env:"REKITTER_OPENAI_MODEL"`
	Timeout time.Duration `mapstructure:"timeout" env:"REKITTER_OPENAI_TIMEOUT"`

	// MaxRetries re-sends a rate-limited or failed call. Zero reports the first failure.
	MaxRetries int `mapstructure:"max_retries" env:"REKITTER_OPENAI_MAX_RETRIES"`
}

// GeminiConfig configures the Gemini generator.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key" env:"GEMINI_API_KEY"`
	Model  string `mapstructure:"model" env:"REKITTER_GEMINI_MODEL"`
}

// RedisConfig enables the distributed lock and event fan-out when Addr is set.
type RedisConfig struct {
	Addr    string        `mapstructure:"addr" env:"REKITTER_REDIS_ADDR"`
	Prefix  string        `mapstructure:"prefix" env:"REKITTER_REDIS_PREFIX"`
	Channel string        `mapstructure:"channel" env:"REKITTER_REDIS_CHANNEL"`
	LockTTL time.Duration `mapstructure:"lock_ttl" env:"REKITTER_REDIS_LOCK_TTL"`
}

// Default returns the settings of the original feed: 140 characters, five posts of
// context, 200 tokens, a 3s pause between posts.
func Default() Config {
	return Config{
		Roster:     "characters.json",
		AvatarBase: "static",
		Provider:   ProviderAuto,
		LogLevel:   "info",
		Addr:       ":8080",
		Debate: DebateConfig{
			Theme:                   "reformation",
			Rounds:                  10,
			Pacing:                  3 * time.Second,
			InterjectionProbability: 0.2,
			ChaosIncrement:          10,
			SoftFailureRetries:      3,
			MaxTokens:               200,
			Temperature:             0.9,
		},
		Composer: ComposerConfig{
			RenderLimit: 140,
			Window:      5,
			Language:    "English",
		},
		Redis: RedisConfig{
			Prefix:  "rekitter:",
			Channel: "rekitter:events",
			LockTTL: 30 * time.Second,
		},
	}
}

// Load reads path (when non-empty), applies environment overrides and validates.
// A missing file at the default location is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	source := path
	if source == "" {
		source = "environment"
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := cfg.decode(data); err != nil {
				return nil, &domain.ConfigError{Source: path, Err: err}
			}
		case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
		default:
			return nil, &domain.ConfigError{Source: path, Err: err}
		}
	}

	if err := ParseEnv(&cfg); err != nil {
		return nil, &domain.ConfigError{Source: "environment", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &domain.ConfigError{Source: source, Err: err}
	}
	return &cfg, nil
}

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "rekitter.yaml"

func (c *Config) decode(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("malformed config: %w", err)
	}
	if raw == nil {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks ranges and references.
func (c *Config) Validate() error {
	var errs []error
	d := c.Debate
	if d.Rounds < 1 {
		errs = append(errs, fmt.Errorf("debate.rounds must be at least 1, got %d", d.Rounds))
	}
	if d.Pacing < 0 {
		errs = append(errs, fmt.Errorf("debate.pacing must not be negative"))
	}
	if d.InterjectionProbability < 0 || d.InterjectionProbability > 1 {
		errs = append(errs, fmt.Errorf("debate.interjection_probability must be within [0,1], got %v", d.InterjectionProbability))
	}
	if d.ChaosIncrement < 1 || d.ChaosIncrement > domain.MaxChaos {
		errs = append(errs, fmt.Errorf("debate.chaos_increment must be within [1,%d], got %d", domain.MaxChaos, d.ChaosIncrement))
	}
	if d.SoftFailureRetries < 1 {
		errs = append(errs, fmt.Errorf("debate.soft_failure_retries must be at least 1"))
	}
	if d.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("debate.max_tokens must be at least 1"))
	}
	if c.OpenAI.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("openai.max_retries must not be negative"))
	}
	if c.Composer.RenderLimit < 10 {
		errs = append(errs, fmt.Errorf("composer.render_limit must be at least 10, got %d", c.Composer.RenderLimit))
	}
	if c.Composer.Window < 1 || c.Composer.Window > 5 {
		errs = append(errs, fmt.Errorf("composer.window must be within [1,5], got %d", c.Composer.Window))
	}
	switch c.Provider {
	case ProviderAuto, ProviderOpenAI, ProviderGemini, ProviderDemo:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	seen := make(map[string]bool)
	for i, t := range c.Themes {
		if t.ID == "" {
			errs = append(errs, fmt.Errorf("themes[%d] has no id", i))
			continue
		}
		if seen[t.ID] {
			errs = append(errs, fmt.Errorf("theme %q declared twice", t.ID))
		}
		seen[t.ID] = true
	}
	return errors.Join(errs...)
}

// MergeThemes overlays the configured themes on base: same id replaces, new ids append.
func (c *Config) MergeThemes(base []domain.Theme) []domain.Theme {
	out := make([]domain.Theme, 0, len(base)+len(c.Themes))
	out = append(out, base...)
	index := make(map[string]int, len(out))
	for i, t := range out {
		index[t.ID] = i
	}
	for _, t := range c.Themes {
		if i, ok := index[t.ID]; ok {
			out[i] = t
			continue
		}
		index[t.ID] = len(out)
		out = append(out, t)
	}
	return out
}
