package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/wastelog/internal/config"
	"github.com/roach88/wastelog/internal/waste"
)

var (
	// ErrCapacity is returned when inserting a new id into a full store.
	ErrCapacity = errors.New("store capacity exhausted")

	// ErrKeyTooLarge is returned for ids longer than Limits.MaxKeyBytes.
	ErrKeyTooLarge = errors.New("key exceeds maximum size")

	// ErrValueTooLarge is returned for records whose encoding exceeds Limits.MaxValueBytes.
	ErrValueTooLarge = errors.New("encoded entry exceeds maximum size")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")
)

// EntryStore is the persistent keyed collection of waste entries.
//
// Insert and Remove mutate persistent state; Get and Values are pure reads.
// Implementations are safe for concurrent use.
type EntryStore interface {
	// Insert stores or overwrites the record at id.
	Insert(ctx context.Context, id string, e waste.Entry) error

	// Get returns the record at id and whether it exists.
	Get(ctx context.Context, id string) (waste.Entry, bool, error)

	// Remove deletes the record at id and returns the prior value, if any.
	Remove(ctx context.Context, id string) (waste.Entry, bool, error)

	// Values returns every record. The order is backend-specific but stable
	// within one call.
	Values(ctx context.Context) ([]waste.Entry, error)

	// Close releases the backend's resources.
	Close() error
}

// VerifiedLister is implemented by backends that can filter verified
// records without decoding every row.
type VerifiedLister interface {
	VerifiedValues(ctx context.Context) ([]waste.Entry, error)
}

// Limits bounds what a store accepts. Zero means unlimited.
type Limits struct {
	MaxEntries    int
	MaxKeyBytes   int
	MaxValueBytes int
}

// DefaultLimits matches the defaults in config: 44-byte keys, 1 KiB values,
// unlimited entries.
func DefaultLimits() Limits {
	return Limits{MaxKeyBytes: 44, MaxValueBytes: 1024}
}

// LimitsFrom extracts the limits from a store configuration.
func LimitsFrom(cfg config.Store) Limits {
	return Limits{
		MaxEntries:    cfg.MaxEntries,
		MaxKeyBytes:   cfg.MaxKeyBytes,
		MaxValueBytes: cfg.MaxValueBytes,
	}
}

// Open creates the backend selected by cfg.Backend.
func Open(cfg config.Store) (EntryStore, error) {
	limits := LimitsFrom(cfg)
	switch cfg.Backend {
	case "memory":
		return NewMemory(limits), nil
	case "sqlite":
		return OpenSQLite(cfg.Path, limits)
	case "pebble":
		return OpenPebble(cfg.Path, limits)
	case "postgres":
		return OpenPostgres(cfg.DSN, limits)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// encode validates id against the key limit and returns the canonical
// encoding of e, checked against the value limit.
func (l Limits) encode(id string, e waste.Entry) ([]byte, error) {
	if l.MaxKeyBytes > 0 && len(id) > l.MaxKeyBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrKeyTooLarge, len(id), l.MaxKeyBytes)
	}
	data, err := waste.MarshalCanonical(e)
	if err != nil {
		return nil, fmt.Errorf("encode entry: %w", err)
	}
	if l.MaxValueBytes > 0 && len(data) > l.MaxValueBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrValueTooLarge, len(data), l.MaxValueBytes)
	}
	return data, nil
}

// admits reports whether a store currently holding count records may accept
// one more new key.
func (l Limits) admits(count int) error {
	if l.MaxEntries > 0 && count >= l.MaxEntries {
		return fmt.Errorf("%w: %d entries", ErrCapacity, l.MaxEntries)
	}
	return nil
}

func decode(data []byte) (waste.Entry, error) {
	return waste.UnmarshalEntry(data)
}
