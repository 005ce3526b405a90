package testutil

import (
	"sync"

	"github.com/roach88/wastelog/internal/waste"
)

// DeterministicClock is a logical clock for tests. Every call to Now
// advances it by a fixed step, so the same scenario always produces the
// same timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start waste.Timestamp
	step  waste.Timestamp
	cur   waste.Timestamp
}

// NewDeterministicClock creates a clock whose first Now returns start+step.
// A step of zero is treated as 1.
func NewDeterministicClock(start, step waste.Timestamp) *DeterministicClock {
	if step == 0 {
		step = 1
	}
	return &DeterministicClock{start: start, step: step, cur: start}
}

// Now advances the clock and returns the new time.
func (c *DeterministicClock) Now() waste.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur += c.step
	return c.cur
}

// Current returns the last value handed out without advancing.
func (c *DeterministicClock) Current() waste.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

// Set moves the clock to t; the next Now returns t+step. Setting a value
// in the past simulates a clock regression.
func (c *DeterministicClock) Set(t waste.Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = t
}

// Reset returns the clock to its start value.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.start
}
