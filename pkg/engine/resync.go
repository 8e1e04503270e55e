package engine

import (
	"sync"
	"time"
)

// Corrector schedules delayed post-hoc corrections ("resync state if the
// registry still disagrees after N ms") with generation-token cancellation:
// every state transition bumps the generation, and a scheduled correction
// whose captured generation is stale no-ops instead of applying.
type Corrector struct {
	mu         sync.Mutex
	generation uint64

	// afterFunc allows tests to intercept scheduling.
	afterFunc func(d time.Duration, fn func()) *time.Timer
}

// NewCorrector creates a Corrector.
func NewCorrector() *Corrector {
	return &Corrector{afterFunc: time.AfterFunc}
}

// Bump invalidates every outstanding scheduled correction.
func (c *Corrector) Bump() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
}

// Generation returns the current generation counter.
func (c *Corrector) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Schedule arms fn to run after delay unless the generation changes first.
// A logically-cancelled correction never applies.
func (c *Corrector) Schedule(delay time.Duration, fn func()) {
	c.mu.Lock()
	captured := c.generation
	c.mu.Unlock()

	c.afterFunc(delay, func() {
		c.mu.Lock()
		stale := c.generation != captured
		c.mu.Unlock()
		if stale {
			return
		}
		fn()
	})
}
