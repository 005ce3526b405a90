package store

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/wastelog/internal/waste"
)

// Memory is an in-process EntryStore. Readers share a read lock; writers
// take the exclusive lock, so no reader observes a half-applied write.
type Memory struct {
	mu      sync.RWMutex
	limits  Limits
	entries map[string]waste.Entry
	order   []string
	closed  bool
}

// NewMemory creates an empty in-memory store.
func NewMemory(limits Limits) *Memory {
	return &Memory{
		limits:  limits,
		entries: make(map[string]waste.Entry),
	}
}

// Insert stores or overwrites the record at id. Overwrites keep the
// record's original position in Values.
func (m *Memory) Insert(_ context.Context, id string, e waste.Entry) error {
	// Encoding is only used for the size checks, so every backend rejects
	// the same records.
	if _, err := m.limits.encode(id, e); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if _, exists := m.entries[id]; !exists {
		if err := m.limits.admits(len(m.entries)); err != nil {
			return err
		}
		m.order = append(m.order, id)
	}
	m.entries[id] = e
	return nil
}

// Get never returns an error.
func (m *Memory) Get(_ context.Context, id string) (waste.Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	return e, ok, nil
}

// Remove deletes the record at id and returns the prior value.
func (m *Memory) Remove(_ context.Context, id string) (waste.Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return waste.Entry{}, false, ErrClosed
	}
	e, ok := m.entries[id]
	if !ok {
		return waste.Entry{}, false, nil
	}
	delete(m.entries, id)
	if i := slices.Index(m.order, id); i >= 0 {
		m.order = slices.Delete(m.order, i, i+1)
	}
	return e, true, nil
}

// Values returns every record in insertion order.
func (m *Memory) Values(_ context.Context) ([]waste.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]waste.Entry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.entries[id])
	}
	return out, nil
}

// VerifiedValues returns verified records in insertion order.
func (m *Memory) VerifiedValues(_ context.Context) ([]waste.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]waste.Entry, 0)
	for _, id := range m.order {
		if e := m.entries[id]; e.Verified {
			out = append(out, e)
		}
	}
	return out, nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close marks the store closed. Reads keep working on the final contents.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
