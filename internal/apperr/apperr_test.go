package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("disk full")

	tests := []struct {
		name string
		err  error
		kind error
		text string
	}{
		{"validation", Validation("gate", "need more"), ErrValidation, "gate: need more"},
		{"conflict", Conflict("lock", "already locked"), ErrStateConflict, "lock: already locked"},
		{"persistence", Persistence("save", cause), ErrPersistence, "save: storage failure: disk full"},
		{"precondition", Precondition("build", "no lockedAt"), ErrPrecondition, "build: no lockedAt"},
		{"not found", NotFound("get", "missing"), ErrNotFound, "get: missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)
			assert.Equal(t, tt.text, tt.err.Error())
		})
	}

	t.Run("persistence unwraps cause", func(t *testing.T) {
		assert.ErrorIs(t, Persistence("save", cause), cause)
	})

	t.Run("message", func(t *testing.T) {
		assert.Equal(t, "need more", Message(Validation("gate", "need more")))
		assert.Equal(t, "plain", Message(errors.New("plain")))
	})
}
