// Package openai implements ports.Generator against an OpenAI-compatible
// chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/rekitter/internal/logging"
	"github.com/aretw0/rekitter/pkg/ports"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-3.5-turbo"
	DefaultTimeout = 60 * time.Second
)

// ErrMissingAPIKey is returned by Generate when no key was configured.
var ErrMissingAPIKey = errors.New("openai: API key not configured")

// Config holds the connection settings.
type Config struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// APIError is a non-200 answer of the endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == http.StatusTooManyRequests {
		return "openai: rate limit exceeded (429)"
	}
	return fmt.Sprintf("openai: status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the same request may succeed later.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// DefaultConfig returns the settings of the hosted API. A failed call is not
// retried unless MaxRetries is raised.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:  apiKey,
		BaseURL: DefaultBaseURL,
		Model:   DefaultModel,
		Timeout: DefaultTimeout,
	}
}

// Client implements ports.Generator.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	backoff    func(attempt int) time.Duration
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger configures a logger for the Client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithBackoff overrides the delay between retries.
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(c *Client) {
		c.backoff = fn
	}
}

// New creates a client. Zero fields of cfg fall back to DefaultConfig.
func New(cfg Config, opts ...Option) *Client {
	def := DefaultConfig(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logging.NewNop(),
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt-1)) * time.Second
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.Generator = (*Client)(nil)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
	Stop        []string  `json:"stop,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// buildMessages renders a request as chat messages: the instructions as the system message,
// then one user message per context turn, oldest first.
func buildMessages(req ports.GenerationRequest) []message {
	msgs := make([]message, 0, len(req.Context)+1)
	msgs = append(msgs, message{Role: "system", Content: req.Instructions})
	for _, turn := range req.Context {
		content := turn.Text
		if turn.Author != "" {
			content = turn.Author + ": " + turn.Text
		}
		msgs = append(msgs, message{Role: "user", Content: content})
	}
	return msgs
}

// Generate sends one chat completion request. With MaxRetries > 0, rate limits and
// server errors are retried that many times; any other failure is returned as is.
func (c *Client) Generate(ctx context.Context, req ports.GenerationRequest) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    buildMessages(req),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stop:        req.StopSequences,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	started := time.Now()
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}

		text, retry, err := c.do(ctx, body)
		if err == nil {
			c.logger.Debug("Completion received",
				"model", c.cfg.Model,
				"duration", time.Since(started),
				"length", len(text),
			)
			return text, nil
		}
		if !retry {
			return "", err
		}
		lastErr = err
		c.logger.Warn("Completion failed, retrying", "attempt", attempt+1, "err", err)
	}
	if c.cfg.MaxRetries == 0 {
		return "", lastErr
	}
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) do(ctx context.Context, body []byte) (string, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// A cancelled caller is final; transport errors are worth another try.
		return "", ctx.Err() == nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		return "", apiErr.Temporary(), apiErr
	}

	var out chatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", false, fmt.Errorf("failed to parse response: %w", err)
	}
	if out.Error != nil {
		return "", false, fmt.Errorf("API error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", false, fmt.Errorf("no completion returned")
	}
	return out.Choices[0].Message.Content, false, nil
}
