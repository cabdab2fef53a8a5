// Package gemini implements ports.Generator on the Google Gen AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/rekitter/internal/logging"
	"github.com/aretw0/rekitter/pkg/ports"
	"google.golang.org/genai"
)

// DefaultModel is used when the configuration names none.
const DefaultModel = "gemini-2.0-flash"

// ErrMissingAPIKey is returned by New when no key was configured.
var ErrMissingAPIKey = errors.New("gemini: API key is required")

// Config holds the connection settings.
type Config struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// models is the part of genai.Models the generator uses.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements ports.Generator.
type Client struct {
	models models
	model  string
	logger *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithLogger configures a logger for the Client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the Gemini API.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newClient(gc.Models, cfg.Model, opts...), nil
}

func newClient(m models, model string, opts ...Option) *Client {
	if model == "" {
		model = DefaultModel
	}
	c := &Client{models: m, model: model, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.Generator = (*Client)(nil)

// request maps a generation request onto the SDK types. Context turns become user
// contents prefixed with their author, the instructions the system instruction.
func request(req ports.GenerationRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := make([]*genai.Content, 0, len(req.Context))
	for _, turn := range req.Context {
		text := turn.Text
		if turn.Author != "" {
			text = turn.Author + ": " + turn.Text
		}
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}
	if len(contents) == 0 {
		// The API rejects an empty conversation; the opening post answers the theme itself.
		contents = append(contents, genai.NewContentFromText("Open the debate.", genai.RoleUser))
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.Instructions, genai.RoleUser),
		Temperature:       genai.Ptr(float32(req.Temperature)),
		StopSequences:     req.StopSequences,
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	return contents, cfg
}

// Generate returns the text of the first candidate.
func (c *Client) Generate(ctx context.Context, req ports.GenerationRequest) (string, error) {
	contents, cfg := request(req)
	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}
	text := resp.Text()
	c.logger.Debug("Completion received", "model", c.model, "length", len(text))
	return strings.TrimSpace(text), nil
}
