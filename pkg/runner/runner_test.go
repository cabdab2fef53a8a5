package runner_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/rekitter"
	"github.com/aretw0/rekitter/internal/runtime"
	"github.com/aretw0/rekitter/pkg/adapters/memory"
	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/aretw0/rekitter/pkg/registry"
	"github.com/aretw0/rekitter/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("os/signal.signal_recv"))
}

func newEngine(t *testing.T, opts ...rekitter.Option) *rekitter.Engine {
	t.Helper()
	reg, err := registry.FromRecords([]registry.Record{
		{ID: "a", Name: "Alice", Persona: "First"},
		{ID: "b", Name: "Bob", Persona: "Second"},
	}, registry.WithPolicies(nil))
	require.NoError(t, err)

	settings := runtime.DefaultSettings()
	settings.InterjectionProbability = 0
	eng, err := rekitter.New(reg, append([]rekitter.Option{rekitter.WithSettings(settings)}, opts...)...)
	require.NoError(t, err)
	return eng
}

// lines decodes the JSON lines written by a JSONHandler.
func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func count(msgs []map[string]any, typ string) int {
	n := 0
	for _, m := range msgs {
		if m["type"] == typ {
			n++
		}
	}
	return n
}

func TestRunner_RunToCompletion(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	require.NoError(t, eng.Start(ctx, "reformation", 4))

	var out bytes.Buffer
	r := runner.NewRunner(runner.WithHandler(runner.NewJSONHandler(nil, &out)), runner.WithPacing(0))
	require.NoError(t, r.Run(ctx, eng))

	msgs := lines(t, &out)
	assert.Equal(t, 4, count(msgs, string(domain.EventTimelineUpdated)))
	last := msgs[len(msgs)-1]
	assert.Equal(t, "system", last["type"])
	assert.Equal(t, "Debate completed after 4 rounds.", last["message"])
	assert.Equal(t, domain.StatusCompleted, eng.Snapshot().Status)
}

func TestRunner_GenerationFailure(t *testing.T) {
	gen := memory.NewScriptedGenerator(memory.Reply{Err: errors.New("connection refused")})
	eng := newEngine(t, rekitter.WithGenerator(gen))
	ctx := context.Background()
	require.NoError(t, eng.Start(ctx, "", 3))

	var out bytes.Buffer
	r := runner.NewRunner(runner.WithHandler(runner.NewTextHandler(&out)), runner.WithPacing(0))
	err := r.Run(ctx, eng)
	require.ErrorIs(t, err, domain.ErrGenerationFailure)
	assert.Contains(t, out.String(), "Debate stopped")
	assert.Equal(t, domain.StatusIdle, eng.Snapshot().Status)
}

type scriptedCommands struct {
	mu   sync.Mutex
	cmds []runner.Command
}

func (s *scriptedCommands) Command(ctx context.Context) (runner.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cmds) == 0 {
		return runner.Command{}, io.EOF
	}
	next := s.cmds[0]
	s.cmds = s.cmds[1:]
	return next, nil
}

func TestRunner_Commands(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	require.NoError(t, eng.Start(ctx, "", 10))

	var out bytes.Buffer
	r := runner.NewRunner(
		runner.WithHandler(runner.NewTextHandler(&out)),
		runner.WithCommands(&scriptedCommands{cmds: []runner.Command{
			{Name: runner.CommandPost, Speaker: "b", Text: "Operator speaking"},
			{Name: runner.CommandPost, Speaker: "nobody", Text: "ignored"},
			{Name: runner.CommandStop},
		}}),
		runner.WithPacing(time.Hour),
	)
	require.NoError(t, r.Run(ctx, eng))

	posts, err := eng.Timeline(ctx, domain.OrderAscending)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "a", posts[0].AuthorID)
	assert.Equal(t, "Operator speaking", posts[1].Content)
	assert.True(t, posts[1].Manual)
	assert.Contains(t, out.String(), "/post failed")
	assert.False(t, eng.Snapshot().Running)
}

func TestRunner_ContextCancelStopsDebate(t *testing.T) {
	eng := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, eng.Start(ctx, "", 10))

	r := runner.NewRunner(runner.WithHandler(runner.NewJSONHandler(nil, io.Discard)), runner.WithPacing(time.Hour))
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, eng) }()

	require.Eventually(t, func() bool { return eng.Snapshot().RoundsCompleted == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, domain.StatusIdle, eng.Snapshot().Status)
	posts, err := eng.Timeline(context.Background(), domain.OrderAscending)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestRunner_Autopilot(t *testing.T) {
	eng := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())

	r := runner.NewRunner(runner.WithPacing(time.Millisecond))
	done := make(chan error, 1)
	go func() { done <- r.Autopilot(ctx, eng) }()

	require.NoError(t, eng.Start(context.Background(), "", 3))
	require.Eventually(t, func() bool {
		return eng.Snapshot().Status == domain.StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	// A second debate is picked up as well.
	require.NoError(t, eng.Start(context.Background(), "", 2))
	require.Eventually(t, func() bool {
		return eng.Snapshot().Status == domain.StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	posts, err := eng.Timeline(context.Background(), domain.OrderAscending)
	require.NoError(t, err)
	assert.Len(t, posts, 5)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Autopilot did not return after cancel")
	}
}

func TestRunner_AutopilotIdleUntilStarted(t *testing.T) {
	eng := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())

	r := runner.NewRunner(runner.WithPacing(0))
	done := make(chan error, 1)
	go func() { done <- r.Autopilot(ctx, eng) }()

	_, err := eng.ManualPost(context.Background(), "a", "Nobody scheduled me")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	posts, err := eng.Timeline(context.Background(), domain.OrderAscending)
	require.NoError(t, err)
	assert.Len(t, posts, 1, "a manual post does not start the loop")

	cancel()
	require.NoError(t, <-done)
}
