package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New("test error")
	require.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	tests := []struct {
		name     string
		sentinel error
		check    func(error) bool
	}{
		{"sealed", ErrSealed, IsSealedError},
		{"phase locked", ErrPhaseLocked, IsSealedError},
		{"no context", ErrNoContext, IsLookupError},
		{"context type", ErrContextType, IsLookupError},
		{"precondition", ErrPrecondition, IsPreconditionError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Wrapf(tt.sentinel, "group %q", "enum")
			assert.True(t, Is(err, tt.sentinel))
			assert.True(t, tt.check(err))
			assert.True(t, tt.check(fmt.Errorf("outer: %w", err)))
		})
	}
}

func TestPredicatesRejectNil(t *testing.T) {
	assert.False(t, IsSealedError(nil))
	assert.False(t, IsLookupError(nil))
	assert.False(t, IsPreconditionError(nil))
}

func TestPredicatesDoNotCrossMatch(t *testing.T) {
	assert.False(t, IsSealedError(ErrDuplicateName))
	assert.False(t, IsLookupError(ErrSealed))
	assert.False(t, IsPreconditionError(ErrNoContext))
}

func TestNewPreconditionError(t *testing.T) {
	err := NewPreconditionError("module %s not required", "github.com/teranos/stagegen")
	assert.True(t, Is(err, ErrPrecondition))
	assert.Contains(t, err.Error(), "github.com/teranos/stagegen")
}

func TestWithHint(t *testing.T) {
	err := WithHint(Wrap(ErrDuplicateName, "group enum"), "rename the group or unregister the old one")
	assert.True(t, Is(err, ErrDuplicateName))
	assert.Contains(t, FlattenHints(err), "rename the group")
}
