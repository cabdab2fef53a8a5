package ports

import (
	"context"

	"github.com/aretw0/rekitter/pkg/domain"
)

// EventPublisher receives every event the scheduler emits.
// Implementations must not block the scheduler for long; slow consumers may drop events.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
