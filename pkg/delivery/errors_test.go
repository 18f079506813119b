package delivery_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
)

func TestError_Retryable(t *testing.T) {
	t.Parallel()

	assert.True(t, delivery.NewTransientError("TIMEOUT", "provider timeout", nil).Retryable())
	assert.False(t, delivery.NewValidationError("VALIDATION_ERROR", "bad recipient").Retryable())
	assert.False(t, delivery.NewPermanentError("BLOCKED", "recipient blocked", nil).Retryable())
	assert.False(t, delivery.NewConfigurationError("missing credentials").Retryable())
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := delivery.NewTransientError("NETWORK", "send failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "NETWORK")
	assert.Contains(t, err.Error(), "send failed")
}

func TestAsError(t *testing.T) {
	t.Parallel()

	t.Run("nil", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, delivery.AsError(nil))
	})

	t.Run("typed error in chain", func(t *testing.T) {
		t.Parallel()
		typed := delivery.NewPermanentError("INVALID_NUMBER", "rejected by carrier", nil)
		wrapped := fmt.Errorf("send: %w", typed)

		got := delivery.AsError(wrapped)
		require.NotNil(t, got)
		assert.Equal(t, delivery.KindPermanent, got.Kind)
		assert.Equal(t, "INVALID_NUMBER", got.Code)
	})

	t.Run("untyped error defaults to transient", func(t *testing.T) {
		t.Parallel()
		got := delivery.AsError(errors.New("boom"))
		require.NotNil(t, got)
		assert.Equal(t, delivery.KindTransient, got.Kind)
		assert.True(t, got.Retryable())
	})
}
