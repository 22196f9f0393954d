package testutil

import (
	"sync"
	"time"
)

// Epoch is where every Clock starts: midnight UTC, on a slot boundary for
// any archive step that divides a day.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Clock is a manual time source that steps through collection cycles.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewClock returns a Clock at Epoch whose cycles are step apart.
func NewClock(step time.Duration) *Clock {
	return &Clock{now: Epoch, step: step}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Tick moves to the next cycle and returns its time.
func (c *Clock) Tick() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

// Advance moves the clock by d, which need not be a whole cycle.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Window returns the fetch range covering the last n cycles, the current
// one included.
func (c *Clock) Window(n int) (from, to time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Add(-time.Duration(n-1) * c.step), c.now
}
