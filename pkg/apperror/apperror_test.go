package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(NotFound("missing")))
	assert.Equal(t, CodeConflict, CodeOf(Conflict("taken")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeInternal, CodeOf(Internal(errors.New("boom"))))
}

func TestCodeOfWrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", InsufficientSessions("none left"))
	assert.Equal(t, CodeInsufficientSessions, CodeOf(err))
	assert.True(t, Is(err, CodeInsufficientSessions))
	assert.False(t, Is(err, CodeConflict))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("db down")
	err := Internal(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "db down")
}
