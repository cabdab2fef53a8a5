package composer_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/aretw0/rekitter/pkg/composer"
	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

var luther = domain.Character{
	ID:      "luther",
	Name:    "Martin Luther",
	Persona: "Augustinian friar, blunt and stubborn.",
	Era:     "1517, Wittenberg",
}

func posts(n int) []domain.Post {
	out := make([]domain.Post, n)
	for i := range out {
		out[i] = domain.Post{
			Sequence:   i + 1,
			AuthorName: fmt.Sprintf("author-%d", i+1),
			Content:    fmt.Sprintf("post-%d", i+1),
		}
	}
	return out
}

func TestCompose_SlidingWindowOldestFirst(t *testing.T) {
	c := composer.New()
	p := c.Compose(composer.Input{Speaker: luther, History: posts(8)})

	want := []domain.ContextTurn{
		{Author: "author-4", Text: "post-4"},
		{Author: "author-5", Text: "post-5"},
		{Author: "author-6", Text: "post-6"},
		{Author: "author-7", Text: "post-7"},
		{Author: "author-8", Text: "post-8"},
	}
	if diff := cmp.Diff(want, p.Context); diff != "" {
		t.Errorf("context mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_WindowClamp(t *testing.T) {
	assert.Equal(t, composer.MaxWindow, composer.New(composer.WithWindow(50)).Window())
	assert.Equal(t, 2, composer.New(composer.WithWindow(2)).Window())
	assert.Equal(t, composer.MaxWindow, composer.New(composer.WithWindow(0)).Window())

	p := composer.New(composer.WithWindow(2)).Compose(composer.Input{Speaker: luther, History: posts(3)})
	assert.Len(t, p.Context, 2)
	assert.Equal(t, "post-3", p.Context[1].Text, "most recent post comes last")
}

func TestCompose_InstructionBlock(t *testing.T) {
	c := composer.New(composer.WithRenderLimit(120), composer.WithLanguage("Japanese"))
	policy := domain.PersonaPolicy{
		Stance:    "Reformer.",
		Beliefs:   []string{"Faith alone saves."},
		Forbidden: []string{"Defending indulgences."},
	}
	theme := domain.Theme{Title: "Reformation", Prompt: "Indulgences and papal authority", Hashtag: "Reformation"}

	p := c.Compose(composer.Input{Speaker: luther, Policy: policy, Theme: theme, History: posts(1)})
	text := p.Instructions

	assert.Contains(t, text, "You are Martin Luther.")
	assert.Contains(t, text, "1517, Wittenberg")
	assert.Contains(t, text, "Indulgences and papal authority")
	assert.Contains(t, text, "- Faith alone saves.")
	assert.Contains(t, text, "- Defending indulgences.")
	assert.Contains(t, text, "at most 120 characters")
	assert.Contains(t, text, "#Reformation")
	assert.Contains(t, text, "Write in Japanese.")
	assert.Contains(t, text, "Rebut")
	for _, p := range composer.Prohibitions {
		assert.Contains(t, text, p)
	}
	assert.Contains(t, strings.ToLower(text), "as an ai")
}

func TestCompose_OpeningTurn(t *testing.T) {
	p := composer.New().Compose(composer.Input{Speaker: luther, Theme: domain.FreeTheme("  If Luther used X  ")})
	assert.Empty(t, p.Context)
	assert.Contains(t, p.Instructions, "You open the debate")
	assert.Contains(t, p.Instructions, "Theme of the debate: If Luther used X")
	assert.Contains(t, p.Instructions, "#Rekitter", "default hashtag when the theme has none")
	assert.NotContains(t, p.Instructions, "Beliefs you always hold", "no policy, no belief block")
}
