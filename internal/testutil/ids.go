package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates prefix-1, prefix-2, ... and never runs out.
//
// Thread-safety: SequentialIDs is safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix defaults to "entry".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "entry"
	}
	return &SequentialIDs{prefix: prefix}
}

// Next returns the next id.
func (g *SequentialIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
