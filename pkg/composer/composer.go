package composer

import (
	"fmt"
	"strings"

	"github.com/aretw0/rekitter/pkg/domain"
)

const (
	// MaxWindow is the largest number of recent posts ever shown to a speaker.
	MaxWindow = 5
	// DefaultRenderLimit is the rendered-length ceiling of a post, in characters.
	DefaultRenderLimit = 140
	// DefaultLanguage is the language posts are written in.
	DefaultLanguage = "English"
)

// Prohibitions enumerates the meta-commentary a speaker must never produce.
// The sanitizer strips the same families when a model ignores them.
var Prohibitions = []string{
	`greetings to anyone or to the audience ("Hello", "Hi everyone", "Greetings")`,
	`acknowledgments of these instructions ("Sure", "Certainly", "Understood", "Here is my post")`,
	`refusals or apologies ("I'm sorry, but I can't", "I cannot comply")`,
	`disclosures of being an AI, a language model or an assistant ("As an AI")`,
	`labels or prefixes such as your own name followed by a colon`,
}

// Composer builds persona-conditioned generation instructions.
type Composer struct {
	limit    int
	window   int
	language string
}

// Option configures a Composer.
type Option func(*Composer)

// WithRenderLimit sets the rendered-length ceiling stated to the speaker.
func WithRenderLimit(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithWindow sets how many recent posts are passed as context. Values above MaxWindow are clamped.
func WithWindow(k int) Option {
	return func(c *Composer) {
		switch {
		case k > MaxWindow:
			c.window = MaxWindow
		case k > 0:
			c.window = k
		}
	}
}

// WithLanguage sets the language posts must be written in.
func WithLanguage(lang string) Option {
	return func(c *Composer) {
		if lang = strings.TrimSpace(lang); lang != "" {
			c.language = lang
		}
	}
}

// New creates a Composer with the defaults of the original feed: 140 characters, five posts.
func New(opts ...Option) *Composer {
	c := &Composer{
		limit:    DefaultRenderLimit,
		window:   MaxWindow,
		language: DefaultLanguage,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Window returns the number of recent posts the composer consumes.
func (c *Composer) Window() int { return c.window }

// RenderLimit returns the rendered-length ceiling.
func (c *Composer) RenderLimit() int { return c.limit }

// Input is everything known about the turn being composed.
type Input struct {
	Speaker domain.Character
	Policy  domain.PersonaPolicy
	Theme   domain.Theme
	// History holds recent posts, oldest first. Only the last Window() are used.
	History []domain.Post
}

// Prompt is the composed request body.
type Prompt struct {
	Instructions string
	Context      []domain.ContextTurn
}

// Compose builds the instruction block and the context window for one turn.
func (c *Composer) Compose(in Input) Prompt {
	history := in.History
	if len(history) > c.window {
		history = history[len(history)-c.window:]
	}

	turns := make([]domain.ContextTurn, len(history))
	for i, p := range history {
		turns[i] = domain.ContextTurn{Author: p.AuthorName, Text: p.Content}
	}

	return Prompt{
		Instructions: c.instructions(in, len(turns) == 0),
		Context:      turns,
	}
}

func (c *Composer) instructions(in Input, opening bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s. %s\n", in.Speaker.Name, in.Speaker.Persona)
	if in.Speaker.Era != "" {
		fmt.Fprintf(&b, "Time and place: %s.\n", in.Speaker.Era)
	}
	b.WriteString("You are posting on Rekitter, a social feed where historical figures argue in public.\n")
	fmt.Fprintf(&b, "Theme of the debate: %s\n", in.Theme.Subject())

	if in.Policy.Stance != "" {
		fmt.Fprintf(&b, "\nWho you are in this debate: %s\n", in.Policy.Stance)
	}
	if len(in.Policy.Beliefs) > 0 {
		b.WriteString("\nBeliefs you always hold:\n")
		for _, belief := range in.Policy.Beliefs {
			fmt.Fprintf(&b, "- %s\n", belief)
		}
	}
	if len(in.Policy.Forbidden) > 0 {
		b.WriteString("\nPositions you must never take:\n")
		for _, f := range in.Policy.Forbidden {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	b.WriteString("\nRules:\n")
	fmt.Fprintf(&b, "1. Reply with the text of one post only, at most %d characters.\n", c.limit)
	fmt.Fprintf(&b, "2. Include at least one hashtag, for example %s.\n", in.Theme.Tag())
	if opening {
		b.WriteString("3. You open the debate: state your claim on the theme.\n")
	} else {
		b.WriteString("3. Rebut or press your claim against the most recent posts.\n")
	}
	fmt.Fprintf(&b, "4. Write in %s.\n", c.language)
	b.WriteString("5. Never write meta-commentary. In particular never include:\n")
	for i, p := range Prohibitions {
		fmt.Fprintf(&b, "   %c. %s\n", 'a'+i, p)
	}
	return b.String()
}
