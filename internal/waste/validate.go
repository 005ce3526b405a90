package waste

import (
	"math"
	"strings"
)

// ValidatePayload checks a create or update payload and returns the first
// violated rule. String fields are checked before numeric ranges so the
// reported error is deterministic.
func ValidatePayload(p Payload) error {
	if strings.TrimSpace(p.WasteType) == "" {
		return NewValidationError("wasteType", "wasteType must not be empty")
	}
	if strings.TrimSpace(p.Location) == "" {
		return NewValidationError("location", "location must not be empty")
	}
	q, ok := p.Quantity.Get()
	if !ok {
		return NewValidationError("quantity", "quantity is required")
	}
	if err := checkAmount("quantity", q); err != nil {
		return err
	}
	if r, ok := p.RecycledQuantity.Get(); ok {
		if err := checkAmount("recycledQuantity", r); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRecycleAmount checks the amount passed to a recycle request.
func ValidateRecycleAmount(amount float64) error {
	return checkAmount("recycledQuantity", amount)
}

func checkAmount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NewValidationError(field, field+" must be a finite number")
	}
	if v < 0 {
		return NewValidationError(field, field+" must be >= 0")
	}
	return nil
}
