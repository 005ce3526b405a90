package testutil

import (
	"io"
	"log/slog"

	"github.com/roach88/wastelog/internal/waste"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Payload builds a create/update payload with a quantity and no recycled
// amount.
func Payload(wasteType string, quantity float64, location string) waste.Payload {
	return waste.Payload{
		WasteType: wasteType,
		Quantity:  waste.Some(quantity),
		Location:  location,
	}
}
