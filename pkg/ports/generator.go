package ports

import (
	"context"

	"github.com/aretw0/rekitter/pkg/domain"
)

// GenerationRequest carries everything a generation service needs for one post.
type GenerationRequest struct {
	Instructions  string
	Context       []domain.ContextTurn
	MaxTokens     int
	Temperature   float64
	StopSequences []string
}

// Generator is the external text-generation service. It is stateless between calls.
type Generator interface {
	// Generate returns the raw text of a post or an error when the service is unreachable,
	// times out, or rejects the request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req GenerationRequest) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	return f(ctx, req)
}
