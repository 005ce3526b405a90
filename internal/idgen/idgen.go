// Package idgen produces entry identifiers.
//
// Uniqueness across the store's lifetime is the only contract the entry
// service relies on; it never inspects the format of an id.
package idgen

import (
	"sync"

	"github.com/google/uuid"
)

// Generator produces identifiers unique among all entries ever created.
type Generator interface {
	Next() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// UUIDv7 embeds a timestamp in the most significant bits, so entries listed
// in key order come out roughly in creation order.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Next creates a new UUIDv7 and returns it as a hyphenated string.
//
// Format: "01890a5d-ac96-774b-bcce-b302099a8057" (36 characters)
//
// Panics if UUID generation fails (the system entropy source is broken).
func (UUIDv7Generator) Next() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined identifiers in order.
//
// This enables deterministic tests and golden trace comparison.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedGenerator("e-1", "e-2")
//	gen.Next() // "e-1"
//	gen.Next() // "e-2"
//	gen.Next() // panic: all ids exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Next returns the next predetermined id.
//
// Panics if all ids have been consumed, so a test that creates more entries
// than it planned for fails loudly.
func (g *FixedGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// Remaining returns how many ids have not been handed out yet.
func (g *FixedGenerator) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.ids) - g.idx
}
