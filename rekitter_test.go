package rekitter_test

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/rekitter"
	"github.com/aretw0/rekitter/internal/runtime"
	"github.com/aretw0/rekitter/pkg/adapters/memory"
	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/aretw0/rekitter/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoSpeakers(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.FromRecords([]registry.Record{
		{ID: "a", Name: "Alice", Persona: "First speaker"},
		{ID: "b", Name: "Bob", Persona: "Second speaker"},
	}, registry.WithPolicies(nil))
	require.NoError(t, err)
	return reg
}

func noInterjections() runtime.Settings {
	s := runtime.DefaultSettings()
	s.InterjectionProbability = 0
	return s
}

func speakers(t *testing.T, eng *rekitter.Engine) []string {
	t.Helper()
	posts, err := eng.Timeline(context.Background(), domain.OrderAscending)
	require.NoError(t, err)
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.AuthorID
	}
	return out
}

func TestEngine_Alternation(t *testing.T) {
	eng, err := rekitter.New(twoSpeakers(t), rekitter.WithSettings(noInterjections()))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, eng.Start(ctx, "T", 4))
	for eng.Snapshot().Running {
		_, err := eng.Activate(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"a", "b", "a", "b"}, speakers(t, eng))
	snap := eng.Snapshot()
	assert.Equal(t, domain.StatusCompleted, snap.Status)
	assert.Equal(t, 4, snap.RoundsCompleted)
	assert.Equal(t, "T", snap.Theme.Title)
}

func TestEngine_SoftFailure(t *testing.T) {
	gen := memory.NewScriptedGenerator(memory.Texts("Sure!", "Indulgences are a scam. #Reformation")...)
	eng, err := rekitter.New(twoSpeakers(t), rekitter.WithGenerator(gen), rekitter.WithSettings(noInterjections()))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, eng.Start(ctx, "reformation", 2))

	res, err := eng.Activate(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSoftFailure, res.Outcome)
	assert.Equal(t, 0, eng.Snapshot().RoundsCompleted)
	assert.Empty(t, speakers(t, eng))

	res, err = eng.Activate(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAppended, res.Outcome)
	assert.Equal(t, "a", res.SpeakerID, "the same speaker retries")
}

func TestEngine_StopKeepsTimeline(t *testing.T) {
	eng, err := rekitter.New(twoSpeakers(t), rekitter.WithSettings(noInterjections()))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, eng.Start(ctx, "", 5))
	for range 2 {
		_, err := eng.Activate(ctx)
		require.NoError(t, err)
	}

	require.NoError(t, eng.Stop(ctx))
	assert.Equal(t, domain.StatusIdle, eng.Snapshot().Status)
	assert.False(t, eng.Snapshot().Running)
	assert.Equal(t, []string{"a", "b"}, speakers(t, eng))

	res, err := eng.Activate(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeIdle, res.Outcome)
}

func TestEngine_ResetHistory(t *testing.T) {
	eng, err := rekitter.New(twoSpeakers(t), rekitter.WithSettings(noInterjections()))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, eng.Start(ctx, "", 5))
	for range 3 {
		_, err := eng.Activate(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, 30, eng.Snapshot().Chaos)

	require.NoError(t, eng.ResetHistory(ctx))
	snap := eng.Snapshot()
	assert.Equal(t, domain.StatusIdle, snap.Status)
	assert.Zero(t, snap.Chaos)
	assert.Empty(t, speakers(t, eng))
}

func TestEngine_ResolveTheme(t *testing.T) {
	eng, err := rekitter.New(twoSpeakers(t))
	require.NoError(t, err)

	assert.Equal(t, "reformation", eng.ResolveTheme("").ID)
	assert.Equal(t, "bible-interpretation", eng.ResolveTheme("Bible-Interpretation").ID)
	assert.Equal(t, "luther-on-sns", eng.ResolveTheme("luther on social media").ID)

	custom := eng.ResolveTheme("  Is chess a sport?  ")
	assert.Equal(t, "custom", custom.ID)
	assert.Equal(t, "Is chess a sport?", custom.Title)

	_, err = eng.Theme("nope")
	assert.ErrorIs(t, err, domain.ErrUnknownTheme)
	th, err := eng.Theme("free")
	require.NoError(t, err)
	assert.Equal(t, "Free debate", th.Title)
}

func TestEngine_Subscribe(t *testing.T) {
	eng, err := rekitter.New(twoSpeakers(t), rekitter.WithSettings(noInterjections()))
	require.NoError(t, err)
	events, cancel := eng.Subscribe()
	defer cancel()

	ctx := context.Background()
	post, err := eng.ManualPost(ctx, "b", "Operator says hi")
	require.NoError(t, err)
	require.NotNil(t, post)

	ev := <-events
	assert.Equal(t, domain.EventTimelineUpdated, ev.Type)
	require.NotNil(t, ev.Post)
	assert.Equal(t, "Operator says hi", ev.Post.Content)
}

func TestEngine_ManualGenerate(t *testing.T) {
	gen := memory.NewScriptedGenerator(memory.Texts("Hear me. #Reformation")...)
	eng, err := rekitter.New(twoSpeakers(t), rekitter.WithGenerator(gen))
	require.NoError(t, err)

	res, err := eng.ManualGenerate(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAppended, res.Outcome)
	assert.Equal(t, []string{"b"}, speakers(t, eng))
	assert.Zero(t, eng.Snapshot().RoundsCompleted)

	_, err = eng.ManualGenerate(context.Background(), "zed")
	assert.ErrorIs(t, err, domain.ErrUnknownCharacter)
}

func TestEngine_Deterministic(t *testing.T) {
	reg, err := registry.FromRecords([]registry.Record{
		{ID: "a", Name: "A", Persona: "p"},
		{ID: "b", Name: "B", Persona: "p"},
		{ID: "c", Name: "C", Persona: "p", Role: "interjection"},
	}, registry.WithPolicies(nil))
	require.NoError(t, err)

	run := func() []string {
		eng, err := rekitter.New(reg, rekitter.WithRand(rand.New(rand.NewPCG(7, 7))))
		require.NoError(t, err)
		ctx := context.Background()
		require.NoError(t, eng.Start(ctx, "", 12))
		for eng.Snapshot().Running {
			_, err := eng.Activate(ctx)
			require.NoError(t, err)
		}
		return speakers(t, eng)
	}
	assert.Equal(t, run(), run(), "the same seed yields the same speakers")
}

func TestNew_RequiresRegistry(t *testing.T) {
	_, err := rekitter.New(nil)
	assert.True(t, rekitter.IsConfigError(err))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(dir, "characters.json")
		require.NoError(t, os.WriteFile(path, []byte(`[
  {"name": "Martin Luther", "description": "Reformer", "image": "luther.png"},
  {"name": "Pope Leo X", "description": "Pope", "image": "leo_x.png"}
]`), 0644))

		eng, err := rekitter.Open(context.Background(), path, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"luther", "leo_x"}, eng.Registry().IDs())
	})

	t.Run("directory", func(t *testing.T) {
		sub := filepath.Join(dir, "roster")
		require.NoError(t, os.Mkdir(sub, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(sub, "erasmus.md"),
			[]byte("---\nname: Erasmus\n---\nA humanist."), 0644))

		eng, err := rekitter.Open(context.Background(), sub, nil)
		require.NoError(t, err)
		roster := eng.Roster()
		require.Len(t, roster, 1)
		assert.Equal(t, "A humanist.", roster[0].Persona)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := rekitter.Open(context.Background(), filepath.Join(dir, "nope.json"), nil)
		assert.True(t, rekitter.IsConfigError(err))
	})
}

func TestLoadRoster_Samples(t *testing.T) {
	ctx := context.Background()

	reg, err := rekitter.LoadRoster(ctx, "characters.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"luther", "leo_x", "tetzel", "erasmus"}, reg.IDs())

	reg, err = rekitter.LoadRoster(ctx, filepath.Join("examples", "roster"))
	require.NoError(t, err)
	assert.Equal(t, []string{"luther", "leo_x", "tetzel"}, reg.IDs())
	assert.Equal(t, "Salvation is by faith alone; indulgences cannot buy grace.", reg.Policy("luther").Stance)
}
