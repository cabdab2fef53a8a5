package runtime

import "github.com/aretw0/rekitter/pkg/domain"

// DefaultChaosIncrement is added to the chaos level for every appended post.
const DefaultChaosIncrement = 10

// ChaosTracker is a bounded escalation counter. It only rises, until Reset.
type ChaosTracker struct {
	level     int
	increment int
}

// NewChaosTracker creates a tracker at level zero. The increment is clamped to [1, MaxChaos].
func NewChaosTracker(increment int) *ChaosTracker {
	if increment < 1 {
		increment = 1
	}
	if increment > domain.MaxChaos {
		increment = domain.MaxChaos
	}
	return &ChaosTracker{increment: increment}
}

// Increment raises the level by one step and returns it.
func (c *ChaosTracker) Increment() int {
	c.level += c.increment
	if c.level > domain.MaxChaos {
		c.level = domain.MaxChaos
	}
	return c.level
}

// Level returns the current level.
func (c *ChaosTracker) Level() int { return c.level }

// Reset drops the level back to zero.
func (c *ChaosTracker) Reset() { c.level = 0 }
