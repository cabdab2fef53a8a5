package feed

import (
	"context"
	"testing"

	"github.com/aretw0/rekitter"
	"github.com/aretw0/rekitter/internal/runtime"
	"github.com/aretw0/rekitter/pkg/adapters/memory"
	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/aretw0/rekitter/pkg/registry"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModel(t *testing.T, texts ...string) (*Model, *rekitter.Engine) {
	t.Helper()
	reg, err := registry.FromRecords([]registry.Record{
		{ID: "luther", Name: "Martin Luther", Persona: "Reformer"},
		{ID: "leo_x", Name: "Pope Leo X", Persona: "Pope"},
	}, registry.WithPolicies(nil))
	require.NoError(t, err)

	settings := runtime.DefaultSettings()
	settings.InterjectionProbability = 0
	eng, err := rekitter.New(reg,
		rekitter.WithSettings(settings),
		rekitter.WithGenerator(memory.NewScriptedGenerator(memory.Texts(texts...)...)),
	)
	require.NoError(t, err)

	m := New(context.Background(), eng)
	t.Cleanup(m.Close)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return m, eng
}

func typeLine(m *Model, line string) tea.Cmd {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(line)})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

// pump feeds every pending engine event into the model.
func pump(m *Model) {
	for len(m.events) > 0 {
		m.Update(m.waitForEvent())
	}
}

func TestModel_InitialView(t *testing.T) {
	m, _ := newModel(t)
	view := m.View()
	assert.Contains(t, view, "Rekitter")
	assert.Contains(t, view, "No posts yet")
	assert.Contains(t, view, "IDLE")
}

func TestModel_ManualPost(t *testing.T) {
	m, eng := newModel(t)

	cmd := typeLine(m, "/post luther Here I stand.")
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, commandDoneMsg{}, msg)
	assert.NoError(t, msg.(commandDoneMsg).err)

	pump(m)
	require.Len(t, m.Posts(), 1)
	assert.Equal(t, "Here I stand.", m.Posts()[0].Content)
	assert.Contains(t, m.View(), "Martin Luther")
	assert.Contains(t, m.View(), "manual")
	assert.Empty(t, m.input.Value(), "input is cleared after submit")

	posts, err := eng.Timeline(context.Background(), domain.OrderAscending)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestModel_StartAndStep(t *testing.T) {
	m, eng := newModel(t, "Sola fide! #Reformation")

	msg := typeLine(m, "/start 3 The Reformation")()
	assert.NoError(t, msg.(commandDoneMsg).err)

	_, err := eng.Activate(context.Background())
	require.NoError(t, err)
	pump(m)

	assert.True(t, m.snap.Running)
	require.Len(t, m.Posts(), 1)
	view := m.View()
	assert.Contains(t, view, "The Reformation")
	assert.Contains(t, view, "RUNNING")
	assert.Contains(t, view, "Sola fide!")
}

func TestModel_CommandErrors(t *testing.T) {
	m, _ := newModel(t)

	assert.Nil(t, typeLine(m, "hello"))
	assert.Contains(t, m.View(), "unknown command")

	msg := typeLine(m, "/post nobody Hi")()
	m.Update(msg)
	require.Error(t, m.err)
	assert.ErrorIs(t, m.err, domain.ErrUnknownCharacter)
	assert.Contains(t, m.View(), "/post failed")
}

func TestModel_Help(t *testing.T) {
	m, _ := newModel(t)
	assert.Nil(t, typeLine(m, "/help"))
	assert.Contains(t, m.View(), "/gen <speaker>")
}

func TestModel_Reset(t *testing.T) {
	m, eng := newModel(t)
	ctx := context.Background()
	_, err := eng.ManualPost(ctx, "leo_x", "Exsurge Domine.")
	require.NoError(t, err)
	pump(m)
	require.Len(t, m.Posts(), 1)

	require.NoError(t, typeLine(m, "/reset")().(commandDoneMsg).err)
	pump(m)
	assert.Empty(t, m.Posts())
	assert.Contains(t, m.View(), "Timeline cleared.")
}

func TestModel_LoadsExistingTimeline(t *testing.T) {
	m, eng := newModel(t)
	_, err := eng.ManualPost(context.Background(), "luther", "Ninety-five theses.")
	require.NoError(t, err)

	m.Update(m.loadTimeline())
	require.Len(t, m.Posts(), 1)
}

func TestModel_Quit(t *testing.T) {
	m, _ := newModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())

	_, open := <-m.events
	assert.False(t, open, "quitting closes the subscription")
	assert.Equal(t, closedMsg{}, m.waitForEvent())
}

func TestAuthorColor(t *testing.T) {
	assert.Equal(t, authorColor("luther"), authorColor("luther"))
	assert.Contains(t, palette, authorColor("leo_x"))
}
