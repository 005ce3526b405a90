package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/roach88/wastelog/internal/waste"
)

const entryPrefix = "entry/"

// Pebble stores entries in a Pebble LSM under the "entry/" key prefix.
// Values returns records in key order.
type Pebble struct {
	mu     sync.Mutex // serializes writes so count stays exact
	db     *pebble.DB
	limits Limits
	count  int
}

// OpenPebble opens or creates a Pebble store in dir.
func OpenPebble(dir string, limits Limits) (*Pebble, error) {
	return openPebble(dir, &pebble.Options{}, limits)
}

// OpenPebbleInMemory opens a Pebble store backed by an in-memory filesystem.
func OpenPebbleInMemory(limits Limits) (*Pebble, error) {
	return openPebble("", &pebble.Options{FS: vfs.NewMem()}, limits)
}

func openPebble(dir string, opts *pebble.Options, limits Limits) (*Pebble, error) {
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble %q: %w", dir, err)
	}
	p := &Pebble{db: db, limits: limits}

	n := 0
	if err := p.scan(func([]byte) error { n++; return nil }); err != nil {
		db.Close()
		return nil, fmt.Errorf("count entries: %w", err)
	}
	p.count = n
	return p, nil
}

// Close closes the underlying database.
func (p *Pebble) Close() error {
	return p.db.Close()
}

// Insert writes the record at id with a synced batch.
func (p *Pebble) Insert(_ context.Context, id string, e waste.Entry) error {
	body, err := p.limits.encode(id, e)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	_, exists, err := p.get(id)
	if err != nil {
		return err
	}
	if !exists {
		if err := p.limits.admits(p.count); err != nil {
			return err
		}
	}
	if err := p.db.Set(keyFor(id), body, pebble.Sync); err != nil {
		return fmt.Errorf("insert %s: %w", id, err)
	}
	if !exists {
		p.count++
	}
	return nil
}

// Get returns the record at id.
func (p *Pebble) Get(_ context.Context, id string) (waste.Entry, bool, error) {
	return p.get(id)
}

func (p *Pebble) get(id string) (waste.Entry, bool, error) {
	val, closer, err := p.db.Get(keyFor(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return waste.Entry{}, false, nil
	}
	if err != nil {
		return waste.Entry{}, false, fmt.Errorf("get %s: %w", id, err)
	}
	// val is only valid until closer.Close.
	data := slices.Clone(val)
	closer.Close()

	e, err := decode(data)
	if err != nil {
		return waste.Entry{}, false, fmt.Errorf("get %s: %w", id, err)
	}
	return e, true, nil
}

// Remove deletes the record at id and returns the prior value.
func (p *Pebble) Remove(_ context.Context, id string) (waste.Entry, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prior, ok, err := p.get(id)
	if err != nil || !ok {
		return waste.Entry{}, false, err
	}
	if err := p.db.Delete(keyFor(id), pebble.Sync); err != nil {
		return waste.Entry{}, false, fmt.Errorf("remove %s: %w", id, err)
	}
	p.count--
	return prior, true, nil
}

// Values returns every record in key order.
func (p *Pebble) Values(_ context.Context) ([]waste.Entry, error) {
	out := make([]waste.Entry, 0)
	err := p.scan(func(val []byte) error {
		e, err := decode(val)
		if err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pebble) scan(fn func(val []byte) error) error {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(entryPrefix),
		UpperBound: prefixEnd(entryPrefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func keyFor(id string) []byte {
	return []byte(entryPrefix + id)
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix string) []byte {
	end := []byte(prefix)
	end[len(end)-1]++
	return end
}
