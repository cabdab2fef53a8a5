package tests

import (
	"context"
	"testing"

	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/aretw0/rekitter/pkg/ports"
)

// RunTimelineStoreContract is a reusable test suite that verifies if an adapter complies with ports.TimelineStore.
// The store must be empty when handed in.
func RunTimelineStoreContract(t *testing.T, store ports.TimelineStore) {
	t.Helper()
	ctx := context.Background()

	post := func(author, text string) domain.Post {
		return domain.Post{AuthorID: author, AuthorName: author, Content: text}
	}

	// 1. Append assigns increasing sequences
	t.Run("Append_AssignsSequence", func(t *testing.T) {
		for i, text := range []string{"one", "two", "three"} {
			stored, err := store.Append(ctx, post("luther", text))
			if err != nil {
				t.Fatalf("unexpected error appending: %v", err)
			}
			if stored.Sequence != i+1 {
				t.Errorf("sequence = %d, want %d", stored.Sequence, i+1)
			}
		}
		n, err := store.Len(ctx)
		if err != nil {
			t.Fatalf("unexpected error counting: %v", err)
		}
		if n != 3 {
			t.Errorf("len = %d, want 3", n)
		}
	})

	// 2. List honours order
	t.Run("List_Order", func(t *testing.T) {
		asc, err := store.List(ctx, domain.OrderAscending)
		if err != nil {
			t.Fatalf("unexpected error listing: %v", err)
		}
		desc, err := store.List(ctx, domain.OrderDescending)
		if err != nil {
			t.Fatalf("unexpected error listing: %v", err)
		}
		if len(asc) != 3 || len(desc) != 3 {
			t.Fatalf("expected 3 posts each way, got %d and %d", len(asc), len(desc))
		}
		if asc[0].Content != "one" || desc[0].Content != "three" {
			t.Errorf("unexpected ordering: asc[0]=%q desc[0]=%q", asc[0].Content, desc[0].Content)
		}
	})

	// 3. Recent returns a window, oldest first
	t.Run("Recent_Window", func(t *testing.T) {
		recent, err := store.Recent(ctx, 2)
		if err != nil {
			t.Fatalf("unexpected error reading recent: %v", err)
		}
		if len(recent) != 2 || recent[0].Content != "two" || recent[1].Content != "three" {
			t.Errorf("unexpected window: %+v", recent)
		}

		all, err := store.Recent(ctx, 10)
		if err != nil {
			t.Fatalf("unexpected error reading recent: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("window larger than timeline should return everything, got %d", len(all))
		}
	})

	// 4. Returned slices are copies
	t.Run("List_ReturnsCopy", func(t *testing.T) {
		list, _ := store.List(ctx, domain.OrderAscending)
		list[0].Content = "mutated"
		again, _ := store.List(ctx, domain.OrderAscending)
		if again[0].Content != "one" {
			t.Error("mutating a listed post changed the store")
		}
	})

	// 5. Reset empties and restarts numbering
	t.Run("Reset", func(t *testing.T) {
		if err := store.Reset(ctx); err != nil {
			t.Fatalf("unexpected error resetting: %v", err)
		}
		n, _ := store.Len(ctx)
		if n != 0 {
			t.Errorf("len after reset = %d, want 0", n)
		}
		stored, err := store.Append(ctx, post("leo_x", "again"))
		if err != nil {
			t.Fatalf("unexpected error appending: %v", err)
		}
		if stored.Sequence != 1 {
			t.Errorf("sequence after reset = %d, want 1", stored.Sequence)
		}
	})
}
