package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesSentinel(t *testing.T) {
	clone := Clone(ErrConflict, "auto-schedule already running for this week")

	assert.True(t, errors.Is(clone, ErrConflict))
	assert.True(t, errors.Is(fmt.Errorf("run: %w", clone), ErrConflict))
	assert.False(t, errors.Is(clone, ErrNotFound))
	assert.Equal(t, "conflict", ErrConflict.Message)
}

func TestRejectedCarriesReason(t *testing.T) {
	err := Rejected("trainer slot full")

	assert.Equal(t, ErrBookingRejected.Code, err.Code)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.Equal(t, "trainer slot full", err.Error())
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	cause := errors.New("connection reset")
	internal := FromError(cause)
	assert.Equal(t, ErrInternal.Code, internal.Code)
	assert.ErrorIs(t, internal, cause)
	assert.Equal(t, "internal server error: connection reset", internal.Error())

	wrapped := fmt.Errorf("load: %w", Clone(ErrNotFound, "trainer not found"))
	assert.Equal(t, "trainer not found", FromError(wrapped).Message)
}
