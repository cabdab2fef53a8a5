package registry

import (
	"fmt"
	"path"
	"strings"

	"github.com/aretw0/rekitter/pkg/domain"
)

// DefaultAvatarBase is the directory avatar image names are resolved against.
const DefaultAvatarBase = "static"

// Registry is the read-only roster of debate characters.
// It preserves roster order and is safe for concurrent reads once built.
type Registry struct {
	characters []domain.Character
	index      map[string]int
	policies   map[string]domain.PersonaPolicy
}

// Option configures how records become a Registry.
type Option func(*settings)

type settings struct {
	source     string
	avatarBase string
	policies   map[string]domain.PersonaPolicy
}

// WithAvatarBase sets the directory avatar image names are joined to.
// An empty base keeps image names as they are.
func WithAvatarBase(base string) Option {
	return func(s *settings) {
		s.avatarBase = base
	}
}

// WithPolicies replaces the built-in policy table.
func WithPolicies(table map[string]domain.PersonaPolicy) Option {
	return func(s *settings) {
		s.policies = table
	}
}

// WithSource names the roster origin in error messages.
func WithSource(source string) Option {
	return func(s *settings) {
		s.source = source
	}
}

func newSettings(opts []Option) *settings {
	s := &settings{
		source:     "roster",
		avatarBase: DefaultAvatarBase,
		policies:   DefaultPolicies(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromRecords builds a registry from already decoded records.
// Ids are normalized and per-character policies are resolved once here.
func FromRecords(records []Record, opts ...Option) (*Registry, error) {
	s := newSettings(opts)
	if len(records) == 0 {
		return nil, domain.NewConfigError(s.source, "roster is empty")
	}

	r := &Registry{
		characters: make([]domain.Character, 0, len(records)),
		index:      make(map[string]int, len(records)),
		policies:   make(map[string]domain.PersonaPolicy, len(records)),
	}

	for i, rec := range records {
		id := rec.normalizedID(i)
		if rec.Name == "" {
			return nil, domain.NewConfigError(s.source, "character %q has no name", id)
		}
		persona := rec.persona()
		if persona == "" {
			return nil, domain.NewConfigError(s.source, "character %q has no persona or description", id)
		}
		if _, dup := r.index[id]; dup {
			return nil, domain.NewConfigError(s.source, "duplicate character id %q", id)
		}

		role := domain.RolePrimary
		if rec.Role != "" {
			role = domain.Role(strings.ToLower(rec.Role))
			if !role.Valid() {
				return nil, domain.NewConfigError(s.source, "character %q has unknown role %q", id, rec.Role)
			}
		}

		r.index[id] = len(r.characters)
		r.characters = append(r.characters, domain.Character{
			ID:      id,
			Name:    rec.Name,
			Persona: persona,
			Era:     rec.Era,
			Avatar:  avatarRef(s.avatarBase, rec.image()),
			Role:    role,
		})

		policy := s.policies[id]
		if rec.Policy != nil {
			policy = policy.Merge(*rec.Policy)
		}
		if !policy.IsZero() {
			r.policies[id] = policy
		}
	}
	return r, nil
}

func avatarRef(base, image string) string {
	if image == "" {
		return ""
	}
	if base == "" || strings.Contains(image, "://") || strings.HasPrefix(image, "/") {
		return image
	}
	return path.Join(base, image)
}

// Len returns the number of characters.
func (r *Registry) Len() int {
	return len(r.characters)
}

// All returns the characters in roster order.
func (r *Registry) All() []domain.Character {
	out := make([]domain.Character, len(r.characters))
	copy(out, r.characters)
	return out
}

// IDs returns the character ids in roster order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.characters))
	for i, c := range r.characters {
		ids[i] = c.ID
	}
	return ids
}

// Get looks a character up by id.
func (r *Registry) Get(id string) (domain.Character, error) {
	i, ok := r.index[id]
	if !ok {
		return domain.Character{}, fmt.Errorf("%w: %s", domain.ErrUnknownCharacter, id)
	}
	return r.characters[i], nil
}

// Policy returns the resolved belief policy for id. The zero policy means "unconstrained".
func (r *Registry) Policy(id string) domain.PersonaPolicy {
	return r.policies[id]
}

// Primaries returns the speakers that alternate under theme, in roster order.
// A theme that names its primaries restricts the set to them.
func (r *Registry) Primaries(theme domain.Theme) ([]domain.Character, error) {
	if len(theme.Primaries) > 0 {
		return r.pick(theme.Primaries)
	}
	return r.byRole(domain.RolePrimary), nil
}

// Interjectors returns the characters that may replace a primary under theme.
func (r *Registry) Interjectors(theme domain.Theme) ([]domain.Character, error) {
	if theme.InterjectionsDisabled {
		return nil, nil
	}
	if len(theme.Interjections) > 0 {
		return r.pick(theme.Interjections)
	}
	return r.byRole(domain.RoleInterjection), nil
}

func (r *Registry) byRole(role domain.Role) []domain.Character {
	var out []domain.Character
	for _, c := range r.characters {
		if c.Role == role {
			out = append(out, c)
		}
	}
	return out
}

// pick resolves ids while keeping roster order, so the opening speaker stays deterministic.
func (r *Registry) pick(ids []string) ([]domain.Character, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := r.index[id]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCharacter, id)
		}
		want[id] = true
	}
	var out []domain.Character
	for _, c := range r.characters {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}
