package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusinessErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
		code string
	}{
		{"insufficient input", WrapInsufficientScheduleInput("missing duration"), ErrInsufficientScheduleInput, ErrCodeInsufficientScheduleInput},
		{"no schedule", WrapNoScheduleFound("abc"), ErrNoScheduleFound, ErrCodeNoScheduleFound},
		{"not found", WrapNotFound("loan entry", "abc"), ErrNotFound, ErrCodeNotFound},
		{"conflict", WrapConcurrencyConflict("abc"), ErrConcurrencyConflict, ErrCodeConcurrencyConflict},
		{"persistence", WrapPersistenceFailure(errors.New("disk full")), ErrPersistenceFailure, ErrCodePersistenceFailure},
		{"invalid input", WrapInvalidInput("bad body", errors.New("eof")), ErrInvalidInput, ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)
			assert.Equal(t, tt.code, Code(wrapped))
		})
	}
}

func TestPersistenceFailureKeepsCause(t *testing.T) {
	err := WrapPersistenceFailure(errors.New("connection reset"))
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, "", Code(errors.New("plain")))
}
