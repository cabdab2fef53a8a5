package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/rekitter/internal/logging"
	"github.com/aretw0/rekitter/pkg/domain"
)

// DefaultBufferSize is the per-subscriber channel capacity.
const DefaultBufferSize = 64

// Bus is an in-process ports.EventPublisher with fan-out to subscribers.
// A subscriber whose buffer is full misses the event instead of blocking the scheduler.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[chan domain.Event]struct{}
	buffer      int
	logger      *slog.Logger
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithBufferSize sets the per-subscriber channel capacity.
func WithBufferSize(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithBusLogger sets the logger used to report dropped events.
func WithBusLogger(logger *slog.Logger) BusOption {
	return func(b *Bus) {
		b.logger = logger
	}
}

// NewBus creates an empty event bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		subscribers: make(map[chan domain.Event]struct{}),
		buffer:      DefaultBufferSize,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a new listener. The returned cancel function closes the channel.
func (b *Bus) Subscribe() (<-chan domain.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan domain.Event, b.buffer)
	b.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subscribers, ch)
			close(ch)
		})
	}
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(ctx context.Context, event domain.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Warn("Event bus: subscriber buffer full, dropping event", "type", event.Type)
		}
	}
	return nil
}

// Subscribers returns the number of active listeners.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
