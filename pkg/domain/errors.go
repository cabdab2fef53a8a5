package domain

import (
	"errors"
	"fmt"
)

// ErrConfig is the category of every configuration or roster error.
var ErrConfig = errors.New("invalid configuration")

// ErrGenerationFailure is returned when the generation service could not produce a post.
var ErrGenerationFailure = errors.New("generation failed")

// ErrSoftFailure is returned when a response held nothing usable after sanitization.
var ErrSoftFailure = errors.New("response empty after sanitization")

// ErrUnknownCharacter is returned when a speaker id is not in the roster.
var ErrUnknownCharacter = errors.New("unknown character")

// ErrUnknownTheme is returned when a theme id is not in the catalogue.
var ErrUnknownTheme = errors.New("unknown theme")

// ErrAlreadyRunning is returned by Start while a debate is in progress.
var ErrAlreadyRunning = errors.New("debate already running")

// ErrInvalidBudget is returned when the round budget is below one.
var ErrInvalidBudget = errors.New("round budget must be at least 1")

// ErrNoSpeakers is returned when a theme resolves to no primary speaker.
var ErrNoSpeakers = errors.New("no primary speakers available")

// ConfigError wraps a configuration problem with the source it came from.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is makes every ConfigError match ErrConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// NewConfigError builds a ConfigError with a formatted message.
func NewConfigError(source, format string, args ...any) *ConfigError {
	return &ConfigError{Source: source, Err: fmt.Errorf(format, args...)}
}

// GenerationError reports an unrecoverable generation failure for a speaker.
type GenerationError struct {
	SpeakerID string
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for %s: %v", e.SpeakerID, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is makes every GenerationError match ErrGenerationFailure.
func (e *GenerationError) Is(target error) bool { return target == ErrGenerationFailure }
