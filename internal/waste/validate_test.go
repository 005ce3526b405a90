package waste

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPayload() Payload {
	return Payload{
		WasteType: "plastic",
		Quantity:  Some(100.0),
		Location:  "siteA",
	}
}

func TestValidatePayload_Valid(t *testing.T) {
	require.NoError(t, ValidatePayload(validPayload()))

	p := validPayload()
	p.Quantity = Some(0.0)
	p.RecycledQuantity = Some(0.0)
	require.NoError(t, ValidatePayload(p), "zero amounts are allowed")
}

func TestValidatePayload_Rules(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(p *Payload)
		field string
	}{
		{"empty waste type", func(p *Payload) { p.WasteType = "" }, "wasteType"},
		{"blank waste type", func(p *Payload) { p.WasteType = "  \t" }, "wasteType"},
		{"empty location", func(p *Payload) { p.Location = "" }, "location"},
		{"missing quantity", func(p *Payload) { p.Quantity = None[float64]() }, "quantity"},
		{"negative quantity", func(p *Payload) { p.Quantity = Some(-1.0) }, "quantity"},
		{"NaN quantity", func(p *Payload) { p.Quantity = Some(math.NaN()) }, "quantity"},
		{"infinite quantity", func(p *Payload) { p.Quantity = Some(math.Inf(1)) }, "quantity"},
		{"negative recycled", func(p *Payload) { p.RecycledQuantity = Some(-0.5) }, "recycledQuantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.edit(&p)

			err := ValidatePayload(p)
			require.Error(t, err)
			assert.True(t, IsValidation(err))

			var we *Error
			require.ErrorAs(t, err, &we)
			assert.Equal(t, tt.field, we.Field)
		})
	}
}

func TestValidatePayload_Precedence(t *testing.T) {
	// Every rule broken at once: string emptiness wins, in field order.
	p := Payload{
		WasteType:        "",
		Quantity:         Some(-5.0),
		Location:         "",
		RecycledQuantity: Some(-1.0),
	}

	var we *Error
	require.ErrorAs(t, ValidatePayload(p), &we)
	assert.Equal(t, "wasteType", we.Field)

	p.WasteType = "glass"
	require.ErrorAs(t, ValidatePayload(p), &we)
	assert.Equal(t, "location", we.Field)

	p.Location = "siteB"
	require.ErrorAs(t, ValidatePayload(p), &we)
	assert.Equal(t, "quantity", we.Field)

	p.Quantity = Some(5.0)
	require.ErrorAs(t, ValidatePayload(p), &we)
	assert.Equal(t, "recycledQuantity", we.Field)
}

func TestValidateRecycleAmount(t *testing.T) {
	assert.NoError(t, ValidateRecycleAmount(0))
	assert.NoError(t, ValidateRecycleAmount(12.5))
	assert.True(t, IsValidation(ValidateRecycleAmount(-1)))
	assert.True(t, IsValidation(ValidateRecycleAmount(math.NaN())))
	assert.True(t, IsValidation(ValidateRecycleAmount(math.Inf(-1))))
}
