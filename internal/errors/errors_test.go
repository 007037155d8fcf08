package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	e := New(KindNotFound, "media not found")
	assert.Equal(t, "not_found: media not found", e.Error())

	wrapped := Wrap(KindIO, "stat failed", errors.New("permission denied"))
	assert.Contains(t, wrapped.Error(), "permission denied")
}

func TestKindOfUnwraps(t *testing.T) {
	inner := NewNotFound("media", "42")
	outer := Wrap(KindIO, "lookup failed", inner)

	kind, ok := KindOf(inner)
	assert.True(t, ok)
	assert.Equal(t, KindNotFound, kind)

	// KindOf only inspects the outermost *Error in the chain; an *Error
	// wrapping another *Error reports its own kind, not the inner one.
	kind, ok = KindOf(outer)
	assert.True(t, ok)
	assert.Equal(t, KindIO, kind)
}

func TestIsKind(t *testing.T) {
	err := NewInvalidArgument("query too short")
	assert.True(t, IsKind(err, KindInvalidArgument))
	assert.False(t, IsKind(err, KindNotFound))
}

func TestErrorsIsBySentinel(t *testing.T) {
	err := NewConstraintViolation("insert artist", errors.New("UNIQUE constraint failed"))
	assert.True(t, errors.Is(err, New(KindConstraintViolation, "")))
}

func TestWithContext(t *testing.T) {
	err := NewNotFound("folder", "7").WithContext("library_id", 1)
	assert.Equal(t, "7", err.Context["id"])
	assert.Equal(t, 1, err.Context["library_id"])
}
