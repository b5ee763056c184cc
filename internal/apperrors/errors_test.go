package apperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesExistingAppError(t *testing.T) {
	original := New(CodeChatNotFound, "not found")
	wrapped := Wrap(original, CodeInternal)
	assert.Equal(t, CodeChatNotFound, wrapped.Code)
}

func TestWrapPlainErrorTakesGivenCode(t *testing.T) {
	wrapped := Wrap(errors.New("boom"), CodeStorageError)
	assert.Equal(t, CodeStorageError, wrapped.Code)
	assert.Equal(t, "boom", wrapped.Message)
}

func TestIsMatchesCode(t *testing.T) {
	err := New(CodeValueError, "bad input")
	assert.True(t, Is(err, CodeValueError))
	assert.False(t, Is(err, CodeInternal))
}

func TestNewfFormatsMessage(t *testing.T) {
	err := Newf(CodeValueError, "field %q is required", "name")
	assert.Equal(t, `field "name" is required`, err.Message)
}
