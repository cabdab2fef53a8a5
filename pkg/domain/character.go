package domain

// Role partitions characters into debaters and bystanders.
type Role string

const (
	// RolePrimary marks a character that takes part in the regular alternation.
	RolePrimary Role = "primary"
	// RoleInterjection marks a character that may occasionally replace a primary speaker.
	RoleInterjection Role = "interjection"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RolePrimary || r == RoleInterjection
}

// Character is a debate participant. It is immutable after the roster is loaded.
type Character struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Persona string `json:"persona"`
	Era     string `json:"era,omitempty"`
	Avatar  string `json:"avatar,omitempty"`
	Role    Role   `json:"role"`
}

// PersonaPolicy holds the fixed belief constraints of a character.
type PersonaPolicy struct {
	Stance    string   `json:"stance,omitempty" mapstructure:"stance"`
	Beliefs   []string `json:"beliefs,omitempty" mapstructure:"beliefs"`
	Forbidden []string `json:"forbidden,omitempty" mapstructure:"forbidden"`
}

// IsZero reports whether the policy carries no constraint at all.
func (p PersonaPolicy) IsZero() bool {
	return p.Stance == "" && len(p.Beliefs) == 0 && len(p.Forbidden) == 0
}

// Merge overlays o on top of p. Non-empty fields of o win.
func (p PersonaPolicy) Merge(o PersonaPolicy) PersonaPolicy {
	out := p
	if o.Stance != "" {
		out.Stance = o.Stance
	}
	if len(o.Beliefs) > 0 {
		out.Beliefs = append([]string(nil), o.Beliefs...)
	}
	if len(o.Forbidden) > 0 {
		out.Forbidden = append([]string(nil), o.Forbidden...)
	}
	return out
}
