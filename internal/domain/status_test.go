package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{
		StatusPending, StatusConfirmed, StatusPreparing, StatusPacked,
		StatusAssigned, StatusPickedUp, StatusInTransit, StatusOutForDelivery,
		StatusDelivered, StatusCancelled,
	} {
		require.True(t, s.Valid(), "%s should be valid", s)
	}
	require.False(t, Status("shipped").Valid())
	require.False(t, Status("").Valid())
}

func TestStatusNext(t *testing.T) {
	next, ok := StatusPending.Next()
	require.True(t, ok)
	require.Equal(t, StatusConfirmed, next)

	next, ok = StatusOutForDelivery.Next()
	require.True(t, ok)
	require.Equal(t, StatusDelivered, next)

	_, ok = StatusDelivered.Next()
	require.False(t, ok)

	_, ok = StatusCancelled.Next()
	require.False(t, ok)
}

func TestCanTransitionTo_ForwardSteps(t *testing.T) {
	// One step forward and a single skipped step are allowed.
	require.True(t, StatusConfirmed.CanTransitionTo(StatusPreparing))
	require.True(t, StatusConfirmed.CanTransitionTo(StatusPacked))
	require.True(t, StatusPreparing.CanTransitionTo(StatusAssigned))
	require.True(t, StatusOutForDelivery.CanTransitionTo(StatusDelivered))

	// More than one skipped step is not.
	require.False(t, StatusConfirmed.CanTransitionTo(StatusAssigned))
	require.False(t, StatusPacked.CanTransitionTo(StatusInTransit))

	// Backwards never.
	require.False(t, StatusPacked.CanTransitionTo(StatusConfirmed))
	require.False(t, StatusInTransit.CanTransitionTo(StatusPickedUp))
}

func TestCanTransitionTo_PendingOnlyConfirmsOrCancels(t *testing.T) {
	require.True(t, StatusPending.CanTransitionTo(StatusConfirmed))
	require.True(t, StatusPending.CanTransitionTo(StatusCancelled))
	require.False(t, StatusPending.CanTransitionTo(StatusPreparing))
	require.False(t, StatusPending.CanTransitionTo(StatusPacked))
}

func TestCanTransitionTo_Cancelled(t *testing.T) {
	for _, s := range []Status{
		StatusPending, StatusConfirmed, StatusPreparing, StatusPacked,
		StatusAssigned, StatusPickedUp, StatusInTransit, StatusOutForDelivery,
	} {
		require.True(t, s.CanTransitionTo(StatusCancelled), "%s should be cancellable", s)
	}
}

func TestRequiresAgent(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusPacked, StatusAssigned, StatusCancelled} {
		require.False(t, s.RequiresAgent(), "%s should not require an agent", s)
	}
	for _, s := range []Status{StatusPickedUp, StatusInTransit, StatusOutForDelivery, StatusDelivered} {
		require.True(t, s.RequiresAgent(), "%s should require an agent", s)
	}
}

func TestCanTransitionTo_TerminalIsImmutable(t *testing.T) {
	for _, s := range []Status{StatusDelivered, StatusCancelled} {
		require.True(t, s.IsTerminal())
		for _, target := range []Status{StatusConfirmed, StatusDelivered, StatusCancelled} {
			require.False(t, s.CanTransitionTo(target), "%s -> %s should be rejected", s, target)
		}
	}
}
