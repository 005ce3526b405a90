package waste

import (
	"errors"
	"fmt"
)

// Kind categorizes errors returned by entry operations.
type Kind string

const (
	// KindValidation indicates malformed or out-of-range input. No state changed.
	KindValidation Kind = "VALIDATION_ERROR"

	// KindNotFound indicates the referenced id is absent. No state changed.
	KindNotFound Kind = "NOT_FOUND"

	// KindOverRecycle indicates a recycle amount above the outstanding quantity.
	// No state changed.
	KindOverRecycle Kind = "OVER_RECYCLE"

	// KindIdentityCollision indicates the id generator returned an id that is
	// already stored. Retrying the request is safe.
	KindIdentityCollision Kind = "IDENTITY_COLLISION"

	// KindStorageFailure indicates the store rejected a read or write.
	KindStorageFailure Kind = "STORAGE_FAILURE"
)

// Error is the error type returned by every entry operation.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Message is a human-readable description.
	Message string

	// ID is the entry id the error refers to, if any.
	ID string

	// Field is the payload field that failed validation, if any.
	Field string

	// Err is the underlying cause (storage failures only).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	switch {
	case e.ID != "" && e.Field != "":
		msg = fmt.Sprintf("%s (id=%s, field=%s)", msg, e.ID, e.Field)
	case e.ID != "":
		msg = fmt.Sprintf("%s (id=%s)", msg, e.ID)
	case e.Field != "":
		msg = fmt.Sprintf("%s (field=%s)", msg, e.Field)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError reports the first violated payload rule.
func NewValidationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field}
}

// NewNotFoundError reports a missing entry.
func NewNotFoundError(id string) *Error {
	return &Error{Kind: KindNotFound, Message: "waste entry not found", ID: id}
}

// NewOverRecycleError reports a recycle request above the outstanding quantity.
func NewOverRecycleError(id string, requested, outstanding float64) *Error {
	return &Error{
		Kind:    KindOverRecycle,
		Message: fmt.Sprintf("recycled quantity %g exceeds outstanding quantity %g", requested, outstanding),
		ID:      id,
	}
}

// NewIdentityCollisionError reports a generated id that is already in use.
func NewIdentityCollisionError(id string) *Error {
	return &Error{
		Kind:    KindIdentityCollision,
		Message: "generated id already exists, retry the request",
		ID:      id,
	}
}

// NewStorageFailure wraps a store error raised while performing op.
func NewStorageFailure(id, op string, err error) *Error {
	return &Error{
		Kind:    KindStorageFailure,
		Message: op + " failed",
		ID:      id,
		Err:     err,
	}
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsOverRecycle reports whether err is an over-recycle error.
func IsOverRecycle(err error) bool { return KindOf(err) == KindOverRecycle }

// IsIdentityCollision reports whether err is an id collision.
func IsIdentityCollision(err error) bool { return KindOf(err) == KindIdentityCollision }

// IsStorageFailure reports whether err is a storage failure.
func IsStorageFailure(err error) bool { return KindOf(err) == KindStorageFailure }
