package waste

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: waste entry not found (id=abc)", NewNotFoundError("abc").Error())
	assert.Equal(t, "VALIDATION_ERROR: location must not be empty (field=location)",
		NewValidationError("location", "location must not be empty").Error())
	assert.Equal(t, "OVER_RECYCLE: recycled quantity 70 exceeds outstanding quantity 60 (id=abc)",
		NewOverRecycleError("abc", 70, 60).Error())

	cause := errors.New("disk full")
	sf := NewStorageFailure("abc", "insert", cause)
	assert.Equal(t, "STORAGE_FAILURE: insert failed (id=abc): disk full", sf.Error())
	assert.ErrorIs(t, sf, cause)
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", NewIdentityCollisionError("dup"))

	assert.Equal(t, KindIdentityCollision, KindOf(err))
	assert.True(t, IsIdentityCollision(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestKindHelpers(t *testing.T) {
	assert.True(t, IsValidation(NewValidationError("quantity", "bad")))
	assert.True(t, IsNotFound(NewNotFoundError("x")))
	assert.True(t, IsOverRecycle(NewOverRecycleError("x", 2, 1)))
	assert.True(t, IsStorageFailure(NewStorageFailure("x", "remove", errors.New("io"))))
	assert.False(t, IsStorageFailure(nil))
}
