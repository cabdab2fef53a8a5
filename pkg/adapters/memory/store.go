package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/google/uuid"
)

// Store implements ports.TimelineStore in memory.
// Safe for concurrent use.
type Store struct {
	posts []domain.Post
	mu    sync.RWMutex
	now   func() time.Time
}

// NewStore creates a new in-memory timeline.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Append stores the post and assigns its sequence index.
// ID and CreatedAt are filled in when the caller left them empty.
func (s *Store) Append(ctx context.Context, post domain.Post) (domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post.Sequence = len(s.posts) + 1
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = s.now()
	}
	s.posts = append(s.posts, post)
	return post, nil
}

// List returns a copy of the timeline in the requested order.
func (s *Store) List(ctx context.Context, order domain.Order) ([]domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Post, len(s.posts))
	if order == domain.OrderDescending {
		for i, p := range s.posts {
			out[len(s.posts)-1-i] = p
		}
		return out, nil
	}
	copy(out, s.posts)
	return out, nil
}

// Recent returns up to k most recent posts, oldest first.
func (s *Store) Recent(ctx context.Context, k int) ([]domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 {
		return nil, nil
	}
	start := len(s.posts) - k
	if start < 0 {
		start = 0
	}
	out := make([]domain.Post, len(s.posts)-start)
	copy(out, s.posts[start:])
	return out, nil
}

// Len returns the number of posts.
func (s *Store) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts), nil
}

// Reset drops every post.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = nil
	return nil
}
