package loam

import (
	"github.com/aretw0/rekitter/pkg/domain"
)

// CharacterMetadata is the frontmatter of a character document.
// The Markdown body, when present, is the persona.
type CharacterMetadata struct {
	ID      string `json:"id" mapstructure:"id"`
	Name    string `json:"name" mapstructure:"name"`
	Persona string `json:"persona" mapstructure:"persona"`
	Era     string `json:"era" mapstructure:"era"`
	Image   string `json:"image" mapstructure:"image"`
	Role    string `json:"role" mapstructure:"role"`

	// Order positions the character in the roster; lower comes first.
	// Documents without it follow, sorted by id.
	Order int `json:"order" mapstructure:"order"`

	Policy *domain.PersonaPolicy `json:"policy,omitempty" mapstructure:"policy"`
}
