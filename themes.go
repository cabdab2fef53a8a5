package rekitter

import "github.com/aretw0/rekitter/pkg/domain"

// DefaultThemes returns the built-in catalogue. The first entry is the default debate.
func DefaultThemes() []domain.Theme {
	return []domain.Theme{
		{
			ID:      "reformation",
			Title:   "The Reformation",
			Prompt:  "The Reformation: the sale of indulgences and the authority of the Pope",
			Hashtag: "#Reformation",
		},
		{
			ID:      "bible-interpretation",
			Title:   "Interpreting the Bible",
			Prompt:  "How to interpret the Bible: the Latin Vulgate or the vernacular for everyone",
			Hashtag: "#SolaScriptura",
		},
		{
			ID:      "luther-on-sns",
			Title:   "Luther on social media",
			Prompt:  "If Luther had a social network: would the Ninety-five Theses have gone viral?",
			Hashtag: "#95Posts",
		},
		{
			ID:    "free",
			Title: "Free debate",
		},
	}
}
