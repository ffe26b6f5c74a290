package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"Pending", "Confirmed", "Shipped", "Delivered", "Cancelled"} {
		s, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, Status(raw), s)
	}

	_, err := ParseStatus("Refunded")
	assert.ErrorIs(t, err, ErrUnknownStatus)

	_, err = ParseStatus("pending") // case-sensitive closed enum
	assert.ErrorIs(t, err, ErrUnknownStatus)

	_, err = ParseStatus("")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusConfirmed))
	assert.True(t, StatusPending.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusShipped))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusShipped.CanTransitionTo(StatusDelivered))
	assert.True(t, StatusShipped.CanTransitionTo(StatusCancelled))

	// Out-of-order jumps are rejected.
	assert.False(t, StatusPending.CanTransitionTo(StatusDelivered))
	assert.False(t, StatusPending.CanTransitionTo(StatusShipped))
	assert.False(t, StatusConfirmed.CanTransitionTo(StatusPending))
	assert.False(t, StatusShipped.CanTransitionTo(StatusConfirmed))

	// Terminal states allow nothing.
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusDelivered.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusPending))
}
