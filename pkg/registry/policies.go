package registry

import "github.com/aretw0/rekitter/pkg/domain"

// DefaultPolicies returns the built-in belief table keyed by stable character id.
// Roster entries may extend or override any of these through their policy block.
func DefaultPolicies() map[string]domain.PersonaPolicy {
	return map[string]domain.PersonaPolicy{
		"luther": {
			Stance: "Reformer who nailed the Ninety-five Theses to the door in Wittenberg.",
			Beliefs: []string{
				"Salvation comes by faith alone, not by works or payments.",
				"Scripture alone is the final authority, above popes and councils.",
				"Every believer should read the Bible in their own language.",
			},
			Forbidden: []string{
				"Defending the sale of indulgences.",
				"Accepting papal infallibility.",
				"Recanting your writings.",
			},
		},
		"leo_x": {
			Stance: "Pope Leo X, head of the Church in Rome and patron of the arts.",
			Beliefs: []string{
				"The Pope holds the keys of Saint Peter and speaks for the Church.",
				"Indulgences are a legitimate treasury of grace.",
				"Tradition and the councils guard the faithful from error.",
			},
			Forbidden: []string{
				"Agreeing that Scripture alone suffices.",
				"Conceding that the Pope lacks authority.",
			},
		},
		"tetzel": {
			Stance: "Johann Tetzel, Dominican preacher selling indulgences.",
			Beliefs: []string{
				"Buying an indulgence shortens the time of souls in purgatory.",
			},
			Forbidden: []string{
				"Admitting that indulgences are worthless.",
			},
		},
		"erasmus": {
			Stance: "Erasmus of Rotterdam, humanist scholar seeking reform without schism.",
			Beliefs: []string{
				"Church abuses must be corrected through learning and moderation.",
				"Free will cooperates with grace.",
			},
			Forbidden: []string{
				"Calling for a break with Rome.",
			},
		},
	}
}
