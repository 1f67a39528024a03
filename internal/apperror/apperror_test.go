package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelDispatch(t *testing.T) {
	assert.ErrorIs(t, NotFound("whiteboard", 3), ErrNotFound)
	assert.ErrorIs(t, ValidationFailed("title", "title is required"), ErrValidation)
	assert.ErrorIs(t, Forbidden("nope"), ErrForbidden)
	assert.ErrorIs(t, ReadOnly("whiteboard", 3), ErrReadOnly)
	assert.ErrorIs(t, Empty("nothing to export"), ErrEmpty)
	assert.ErrorIs(t, Conflict("whiteboard", 3), ErrConflict)
}

func TestDispatchSurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("processing batch: %w", NotFound("whiteboard element", "abc"))
	assert.ErrorIs(t, wrapped, ErrNotFound)

	var appErr *AppError
	assert.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, "whiteboard element not found with id abc", appErr.Message)
}

func TestValidationCarriesField(t *testing.T) {
	err := ValidationFailed("direction", "unknown reorder direction")
	assert.Equal(t, "direction", err.Field)
	assert.Equal(t, "unknown reorder direction", err.Error())
}
