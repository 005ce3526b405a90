// Package store provides durable keyed storage for waste entries.
//
// Every backend implements EntryStore and is the sole mutator of the
// records it holds:
//   - memory:   map guarded by a sync.RWMutex, insertion order
//   - sqlite:   single-writer SQLite file (WAL mode), insertion order
//   - pebble:   LSM key/value store, key order
//   - postgres: gorm over PostgreSQL, insertion order
//
// # Limits
//
// Writes are bounded by Limits, mirroring a fixed-size stable map:
//   - MaxKeyBytes:   ids longer than this are rejected (ErrKeyTooLarge)
//   - MaxValueBytes: records whose canonical encoding is larger are rejected (ErrValueTooLarge)
//   - MaxEntries:    inserting a new id into a full store is rejected (ErrCapacity)
//
// A zero limit means unlimited. Overwriting an existing id never trips MaxEntries.
//
// # Encoding
//
// Byte-oriented backends persist records with waste.MarshalCanonical, so the
// stored bytes of two equal records are identical.
package store
