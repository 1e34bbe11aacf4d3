package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

	r := &Reservation{}
	require.Nil(t, r.DaysRemaining(now))

	in3 := now.Add(72 * time.Hour)
	r.ExpiresAt = &in3
	d := r.DaysRemaining(now)
	require.NotNil(t, d)
	require.EqualValues(t, 3, *d)

	// Expiring later today counts as zero, not negative.
	today := now.Add(2 * time.Hour)
	r.ExpiresAt = &today
	require.EqualValues(t, 0, *r.DaysRemaining(now))

	past := now.Add(-48 * time.Hour)
	r.ExpiresAt = &past
	require.EqualValues(t, 0, *r.DaysRemaining(now))
}

func TestReservationStatus(t *testing.T) {
	require.False(t, ReservationActive.Terminal())
	require.True(t, ReservationCancelled.Terminal())
	require.True(t, ReservationCompleted.Terminal())

	st, err := ParseReservationStatus("completed")
	require.NoError(t, err)
	require.Equal(t, ReservationCompleted, st)

	_, err = ParseReservationStatus("ACTIVE")
	require.Error(t, err)
}
