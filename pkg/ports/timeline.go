package ports

import (
	"context"

	"github.com/aretw0/rekitter/pkg/domain"
)

// TimelineStore defines the append-only collection of posts.
// There is no edit or delete of individual entries; only Reset removes posts.
type TimelineStore interface {
	// Append stores the post, assigns its sequence index and returns the stored copy.
	Append(ctx context.Context, post domain.Post) (domain.Post, error)

	// List returns every post in the requested order.
	List(ctx context.Context, order domain.Order) ([]domain.Post, error)

	// Recent returns up to k most recent posts, oldest first.
	Recent(ctx context.Context, k int) ([]domain.Post, error)

	// Len returns the number of stored posts.
	Len(ctx context.Context) (int, error)

	// Reset removes every post.
	Reset(ctx context.Context) error
}
