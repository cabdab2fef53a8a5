package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aretw0/rekitter/internal/logging"
	"github.com/aretw0/rekitter/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel events are published on.
const DefaultChannel = "rekitter:events"

// Publisher implements ports.EventPublisher over Redis pub/sub, so feeds served by
// other replicas see the same timeline updates.
type Publisher struct {
	client  backend.UniversalClient
	channel string
	logger  *slog.Logger
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithChannel overrides the pub/sub channel.
func WithChannel(name string) PublisherOption {
	return func(p *Publisher) {
		if name != "" {
			p.channel = name
		}
	}
}

// WithLogger configures a logger for decode failures on the subscriber side.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher on DefaultChannel.
func NewPublisher(client backend.UniversalClient, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		client:  client,
		channel: DefaultChannel,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Channel returns the pub/sub channel name.
func (p *Publisher) Channel() string { return p.channel }

// Publish encodes the event as JSON and publishes it.
func (p *Publisher) Publish(ctx context.Context, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}
	return nil
}

// Subscribe streams decoded events until ctx is done. The returned channel is closed
// when the subscription ends. Messages that fail to decode are logged and skipped.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	sub := p.client.Subscribe(ctx, p.channel)
	// Wait for the subscription confirmation so no event published afterwards is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", p.channel, err)
	}

	out := make(chan domain.Event)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev domain.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					p.logger.Warn("Dropping undecodable event", "channel", p.channel, "err", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
