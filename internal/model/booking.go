package model

import "time"

// Booking records one claim on a resource for a half-open time interval
// [StartTime, EndTime) on a single date, mirroring the `bookings` table.
// All bookings for the same (resource, date) pair are pairwise
// non-overlapping; the booking repository enforces this inside a locked
// transaction.  A booking is created whole, deleted on cancellation and
// never mutated in place (a reschedule deletes and recreates it).
//
// Fields:
//  ID           – primary key identifier.
//  BookedBy     – email or identifier of the person booking.
//  ResourceName – name of the booked resource.
//  BookedDate   – calendar date of the booking ("YYYY-MM-DD").
//  StartTime    – inclusive start of the slot ("HH:MM").
//  EndTime      – exclusive end of the slot ("HH:MM").
//  CreatedAt    – timestamp of creation.
type Booking struct {
	ID           uint64    // bookings.id
	BookedBy     string    // bookings.booked_by
	ResourceName string    // bookings.resource_name
	BookedDate   string    // bookings.booked_date
	StartTime    string    // bookings.start_time
	EndTime      string    // bookings.end_time
	CreatedAt    time.Time // bookings.created_at
}
