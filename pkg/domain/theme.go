package domain

import "strings"

// Theme is the topic of a debate and the set of speakers it admits.
// Empty Primaries or Interjections mean "use the roster roles".
type Theme struct {
	ID                    string   `json:"id" mapstructure:"id"`
	Title                 string   `json:"title" mapstructure:"title"`
	Prompt                string   `json:"prompt,omitempty" mapstructure:"prompt"`
	Hashtag               string   `json:"hashtag,omitempty" mapstructure:"hashtag"`
	Primaries             []string `json:"primaries,omitempty" mapstructure:"primaries"`
	Interjections         []string `json:"interjections,omitempty" mapstructure:"interjections"`
	InterjectionsDisabled bool     `json:"interjections_disabled,omitempty" mapstructure:"interjections_disabled"`
}

// Subject returns the text the composer puts in front of the speakers.
func (t Theme) Subject() string {
	if t.Prompt != "" {
		return t.Prompt
	}
	if t.Title != "" {
		return t.Title
	}
	return "an open debate on any topic"
}

// Tag returns the suggested hashtag, falling back to #Rekitter.
func (t Theme) Tag() string {
	tag := strings.TrimSpace(t.Hashtag)
	if tag == "" {
		return "#Rekitter"
	}
	if !strings.HasPrefix(tag, "#") {
		tag = "#" + tag
	}
	return tag
}

// FreeTheme builds an ad-hoc theme from operator text.
func FreeTheme(text string) Theme {
	text = strings.TrimSpace(text)
	return Theme{ID: "custom", Title: text}
}
