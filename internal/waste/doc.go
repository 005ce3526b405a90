// Package waste defines the waste-entry data model shared by every other
// internal package: the Entry record, the create/update Payload, the
// Optional presence type, the error taxonomy and the payload validator.
//
// waste imports nothing internal. Stores, the service and the transports all
// depend on it, never the other way around.
//
// Invariants every Entry must satisfy after any operation:
//   - Quantity >= 0
//   - RecycledQuantity >= 0 when present
//   - ID, Owner and CreatedAt never change after creation
//   - UpdatedAt, when present, is >= CreatedAt
//
// Entries are only ever replaced whole. The With*/Recycle methods on Entry
// build the complete next record from the prior one and never mutate the
// receiver.
package waste
