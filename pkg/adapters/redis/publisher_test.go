package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/rekitter/pkg/adapters/redis"
	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_RoundTrip(t *testing.T) {
	mr, client := setup(t)
	pub := redis.NewPublisher(client, redis.WithChannel("debate:events"))
	assert.Equal(t, "debate:events", pub.Channel())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := pub.Subscribe(ctx)
	require.NoError(t, err)

	post := &domain.Post{ID: "p1", Sequence: 1, AuthorID: "luther", Content: "Here I stand. #Worms"}
	require.NoError(t, pub.Publish(ctx, domain.Event{
		Type:    domain.EventTimelineUpdated,
		Post:    post,
		Session: domain.Snapshot{Status: domain.StatusRunning, Running: true, Chaos: 10},
	}))

	select {
	case ev := <-events:
		assert.Equal(t, domain.EventTimelineUpdated, ev.Type)
		require.NotNil(t, ev.Post)
		assert.Equal(t, "Here I stand. #Worms", ev.Post.Content)
		assert.Equal(t, 10, ev.Session.Chaos)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	// Undecodable payloads are skipped.
	mr.Publish("debate:events", "not json")
	require.NoError(t, pub.Publish(ctx, domain.Event{Type: domain.EventTimelineReset}))
	select {
	case ev := <-events:
		assert.Equal(t, domain.EventTimelineReset, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel closes when ctx is done")
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end")
	}
}

func TestPublisher_DefaultChannel(t *testing.T) {
	_, client := setup(t)
	pub := redis.NewPublisher(client)
	assert.Equal(t, redis.DefaultChannel, pub.Channel())
}
