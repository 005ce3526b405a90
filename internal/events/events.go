// Package events publishes change notifications for waste entries.
//
// The service publishes one Event after every successful write. Delivery is
// best effort: publish errors are logged by the caller and never undo the
// write that produced them.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/wastelog/internal/waste"
)

// Type names the mutation an event describes.
type Type string

const (
	Created  Type = "created"
	Updated  Type = "updated"
	Verified Type = "verified"
	Recycled Type = "recycled"
	Deleted  Type = "deleted"
)

// Event describes one committed mutation. Entry is the record after the
// mutation, or the removed record for Deleted.
type Event struct {
	Type    Type
	EntryID string
	Entry   waste.Entry
	At      waste.Timestamp
}

// MarshalCanonical returns the event's canonical JSON encoding.
func (e Event) MarshalCanonical() ([]byte, error) {
	data, err := waste.MarshalCanonical(map[string]any{
		"type":    string(e.Type),
		"entryId": e.EntryID,
		"entry":   e.Entry.Fields(),
		"at":      e.At,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s event for %s: %w", e.Type, e.EntryID, err)
	}
	return data, nil
}

// Publisher delivers events to an external sink.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes every later Publish record the event and return err.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the type of each published event, in order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}
