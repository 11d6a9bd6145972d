package availability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsAvailable(t *testing.T) {
	// Existing bookings for one resource on one date.
	starts := []string{"09:00", "13:00"}
	ends := []string{"10:00", "14:00"}

	cases := []struct {
		name       string
		start, end string
		want       bool
	}{
		{"boundary touch after is free", "10:00", "11:00", true},
		{"boundary touch before is free", "08:00", "09:00", true},
		{"straddles an end", "09:30", "10:30", false},
		{"straddles a start", "12:30", "13:30", false},
		{"fully inside existing", "09:15", "09:45", false},
		{"fully covers existing", "08:30", "10:30", false},
		{"identical slot", "13:00", "14:00", false},
		{"gap between bookings", "10:30", "12:30", true},
		{"late evening", "18:00", "19:00", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := IsAvailable(starts, ends, tc.start, tc.end)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestIsAvailableEmptySet(t *testing.T) {
	got, err := IsAvailable(nil, nil, "09:00", "10:00")
	require.NoError(t, err)
	require.True(t, got)
}

func TestIsAvailableRejectsBadInput(t *testing.T) {
	_, err := IsAvailable([]string{"09:00"}, nil, "10:00", "11:00")
	require.Error(t, err)

	_, err = IsAvailable(nil, nil, "25:99", "11:00")
	require.Error(t, err)

	// Zero-length candidate.
	_, err = IsAvailable(nil, nil, "10:00", "10:00")
	require.Error(t, err)

	// Inverted existing booking indicates a corrupt row, not a busy slot.
	_, err = IsAvailable([]string{"12:00"}, []string{"11:00"}, "09:00", "10:00")
	require.Error(t, err)
}

func TestOverlapsHalfOpen(t *testing.T) {
	a, err := ParseInterval("09:00", "10:00")
	require.NoError(t, err)
	b, err := ParseInterval("10:00", "11:00")
	require.NoError(t, err)
	require.False(t, a.Overlaps(b))
	require.False(t, b.Overlaps(a))
}
