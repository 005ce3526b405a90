// Package clock supplies timestamps to the entry service.
package clock

import (
	"sync/atomic"
	"time"

	"github.com/roach88/wastelog/internal/waste"
)

// Clock supplies a monotonically non-decreasing timestamp on demand.
type Clock interface {
	Now() waste.Timestamp
}

// System reads wall-clock time and never returns a value lower than one it
// has already returned, even if the host clock steps backwards.
//
// Thread-safety: System is safe for concurrent use (atomic operations).
type System struct {
	last atomic.Int64
	wall func() time.Time
}

// NewSystem creates a clock backed by time.Now.
func NewSystem() *System {
	return &System{wall: time.Now}
}

// NewSystemWith creates a clock backed by the given wall-clock source.
// Used by tests to simulate clock regressions.
func NewSystemWith(wall func() time.Time) *System {
	return &System{wall: wall}
}

// Now returns max(wall clock, last returned value).
func (c *System) Now() waste.Timestamp {
	now := c.wall().UnixNano()
	for {
		last := c.last.Load()
		if now <= last {
			return waste.Timestamp(last)
		}
		if c.last.CompareAndSwap(last, now) {
			return waste.Timestamp(now)
		}
	}
}
