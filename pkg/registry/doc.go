// Package registry loads the debate roster and serves it read-only.
//
// A roster is a JSON or YAML document holding either a list of characters or a
// mapping from id to character. Each record needs a name and a persona (or
// description); ids fall back to the avatar filename stem and finally to char_<i>.
// Persona policies are resolved once, at load time.
package registry
