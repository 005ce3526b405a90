package waste

import (
	"bytes"
	"encoding/json"
)

// Optional holds a value that is either present or absent.
//
// The zero value is absent. Read sites must go through Get, OrZero or
// IsSome, so every caller handles both cases explicitly.
type Optional[T comparable] struct {
	value T
	ok    bool
}

// Some returns a present Optional holding v.
func Some[T comparable](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None returns an absent Optional.
func None[T comparable]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// IsSome reports whether a value is present.
func (o Optional[T]) IsSome() bool {
	return o.ok
}

// OrZero returns the value, or the zero value of T when absent.
func (o Optional[T]) OrZero() T {
	return o.value
}

// OrElse returns the value, or def when absent.
func (o Optional[T]) OrElse(def T) T {
	if !o.ok {
		return def
	}
	return o.value
}

// Equal reports whether both sides are absent, or both present with equal values.
func (o Optional[T]) Equal(other Optional[T]) bool {
	if o.ok != other.ok {
		return false
	}
	return !o.ok || o.value == other.value
}

// MarshalJSON encodes an absent value as null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null as absent. A missing field never reaches
// UnmarshalJSON and keeps the zero value, which is also absent.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = None[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
