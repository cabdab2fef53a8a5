package runtime

import "github.com/aretw0/rekitter/pkg/domain"

// selectNext picks the speaker of the next turn. Caller holds s.mu.
//
// An interjector may take the turn once more than one round has elapsed, unless the
// previous speaker was already an interjector. Otherwise the primary who has been
// silent the longest speaks, never the immediately preceding speaker.
func (s *Scheduler) selectNext(sess *domain.Session) string {
	// Both were validated by Start.
	primaries, _ := s.registry.Primaries(sess.Theme)
	interjectors, _ := s.registry.Interjectors(sess.Theme)

	if s.mayInterject(sess, interjectors) && s.rng.Float64() < s.settings.InterjectionProbability {
		return interjectors[s.rng.IntN(len(interjectors))].ID
	}
	return s.nextPrimary(sess, primaries)
}

func (s *Scheduler) mayInterject(sess *domain.Session, interjectors []domain.Character) bool {
	if len(interjectors) == 0 || s.settings.InterjectionProbability <= 0 {
		return false
	}
	if sess.RoundsCompleted <= 1 {
		return false
	}
	return !s.isInterjector(sess.LastSpeakerID, interjectors)
}

func (s *Scheduler) isInterjector(id string, interjectors []domain.Character) bool {
	if id == "" {
		return false
	}
	for _, c := range interjectors {
		if c.ID == id {
			return true
		}
	}
	c, err := s.registry.Get(id)
	return err == nil && c.Role == domain.RoleInterjection
}

// nextPrimary returns the most recently silent primary other than the last speaker.
// Primaries that never spoke come first, in roster order. With no candidate left
// (a single-primary roster) the choice is uniform among all primaries.
func (s *Scheduler) nextPrimary(sess *domain.Session, primaries []domain.Character) string {
	best := ""
	bestSeq := 0
	for _, c := range primaries {
		if c.ID == sess.LastSpeakerID {
			continue
		}
		seq := sess.LastSpoke[c.ID]
		if best == "" || seq < bestSeq {
			best, bestSeq = c.ID, seq
		}
	}
	if best == "" {
		return primaries[s.rng.IntN(len(primaries))].ID
	}
	return best
}
