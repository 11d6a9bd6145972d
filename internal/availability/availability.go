// Package availability decides whether a candidate booking interval
// conflicts with the existing bookings of a resource.  The check is a pure
// function; closing the check-then-insert race is the job of the booking
// repository, which runs this check inside a locked transaction.
package availability

import (
	"fmt"
	"time"
)

// timeLayout is the wire format for booking times ("HH:MM" on a 24h clock).
const timeLayout = "15:04"

// Interval is a half-open booking interval [Start, End) within one day.
// A booking that ends exactly when another starts does not overlap it.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// ParseInterval parses "HH:MM" start and end strings into an Interval.
// The end must be strictly after the start; zero-length and inverted
// intervals are rejected.
func ParseInterval(start, end string) (Interval, error) {
	s, err := time.Parse(timeLayout, start)
	if err != nil {
		return Interval{}, fmt.Errorf("parse start %q: %w", start, err)
	}
	e, err := time.Parse(timeLayout, end)
	if err != nil {
		return Interval{}, fmt.Errorf("parse end %q: %w", end, err)
	}
	if !e.After(s) {
		return Interval{}, fmt.Errorf("interval end %q is not after start %q", end, start)
	}
	return Interval{Start: s, End: e}, nil
}

// IsAvailable reports whether the candidate interval [candStart, candEnd)
// overlaps none of the existing bookings, given as parallel start/end
// slices for the same resource and date.  Mismatched slice lengths and
// malformed times are errors rather than silent rejections, since they
// indicate corrupt booking rows and not a busy slot.
func IsAvailable(starts, ends []string, candStart, candEnd string) (bool, error) {
	if len(starts) != len(ends) {
		return false, fmt.Errorf("mismatched booking slices: %d starts, %d ends", len(starts), len(ends))
	}
	cand, err := ParseInterval(candStart, candEnd)
	if err != nil {
		return false, fmt.Errorf("candidate interval: %w", err)
	}
	for i := range starts {
		existing, err := ParseInterval(starts[i], ends[i])
		if err != nil {
			return false, fmt.Errorf("existing booking %d: %w", i, err)
		}
		if cand.Overlaps(existing) {
			return false, nil
		}
	}
	return true, nil
}
