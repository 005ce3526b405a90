package waste

import (
	"time"

	"golang.org/x/text/unicode/norm"
)

// Identity is the opaque identity of a caller.
type Identity string

// Timestamp is a point in time in nanoseconds since the Unix epoch.
type Timestamp int64

// TimestampOf converts a wall-clock time to a Timestamp.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp(t.UnixNano())
}

// Time returns the timestamp as a UTC time.Time.
func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t)).UTC()
}

// Entry is a single logged waste-disposal record.
type Entry struct {
	ID               string              `json:"id"`
	Owner            Identity            `json:"owner"`
	WasteType        string              `json:"wasteType"`
	Quantity         float64             `json:"quantity"`
	RecycledQuantity Optional[float64]   `json:"recycledQuantity"`
	Location         string              `json:"location"`
	Verified         bool                `json:"isVerified"`
	CreatedAt        Timestamp           `json:"createdAt"`
	UpdatedAt        Optional[Timestamp] `json:"updatedAt"`
}

// Payload carries the caller-supplied fields of a create or update request.
// It has no verification flag; Verify is the only path that sets
// Entry.Verified.
type Payload struct {
	WasteType        string            `json:"wasteType"`
	Quantity         Optional[float64] `json:"quantity"`
	Location         string            `json:"location"`
	RecycledQuantity Optional[float64] `json:"recycledQuantity"`
}

// NewEntry builds a freshly created record from a validated payload. Text
// fields are stored in NFC, the form the canonical encoding persists.
func NewEntry(id string, owner Identity, p Payload, now Timestamp) Entry {
	return Entry{
		ID:               id,
		Owner:            Identity(norm.NFC.String(string(owner))),
		WasteType:        norm.NFC.String(p.WasteType),
		Quantity:         p.Quantity.OrZero(),
		RecycledQuantity: p.RecycledQuantity,
		Location:         norm.NFC.String(p.Location),
		Verified:         false,
		CreatedAt:        now,
		UpdatedAt:        None[Timestamp](),
	}
}

// WithUpdate returns the record with the payload's fields applied.
// RecycledQuantity is only overwritten when the payload supplies it.
func (e Entry) WithUpdate(p Payload, now Timestamp) Entry {
	recycled := e.RecycledQuantity
	if p.RecycledQuantity.IsSome() {
		recycled = p.RecycledQuantity
	}
	return Entry{
		ID:               e.ID,
		Owner:            e.Owner,
		WasteType:        norm.NFC.String(p.WasteType),
		Quantity:         p.Quantity.OrZero(),
		RecycledQuantity: recycled,
		Location:         norm.NFC.String(p.Location),
		Verified:         e.Verified,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        Some(e.stamp(now)),
	}
}

// WithVerified returns the record marked verified. Verifying an already
// verified record only re-stamps UpdatedAt.
func (e Entry) WithVerified(now Timestamp) Entry {
	return Entry{
		ID:               e.ID,
		Owner:            e.Owner,
		WasteType:        e.WasteType,
		Quantity:         e.Quantity,
		RecycledQuantity: e.RecycledQuantity,
		Location:         e.Location,
		Verified:         true,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        Some(e.stamp(now)),
	}
}

// Recycle moves amount from the outstanding quantity into the recycled
// quantity. It fails with an OverRecycle error when amount exceeds the
// outstanding quantity; the receiver is never modified.
func (e Entry) Recycle(amount float64, now Timestamp) (Entry, error) {
	if amount > e.Quantity {
		return Entry{}, NewOverRecycleError(e.ID, amount, e.Quantity)
	}
	return Entry{
		ID:               e.ID,
		Owner:            e.Owner,
		WasteType:        e.WasteType,
		Quantity:         e.Quantity - amount,
		RecycledQuantity: Some(e.RecycledQuantity.OrZero() + amount),
		Location:         e.Location,
		Verified:         e.Verified,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        Some(e.stamp(now)),
	}, nil
}

// stamp keeps UpdatedAt >= CreatedAt even if the clock source regresses.
func (e Entry) stamp(now Timestamp) Timestamp {
	if now < e.CreatedAt {
		return e.CreatedAt
	}
	return now
}
