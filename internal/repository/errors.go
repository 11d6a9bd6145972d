// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrSlotTaken signals that a booking cannot proceed because
// the requested interval overlaps an existing booking, while
// ErrAlreadyDecided signals that a vehicle authorization has reached a
// terminal state and accepts no further transitions.
package repository

import "errors"

// ErrConflict is returned when a create, update or delete cannot be
// performed because of conflicting state, such as deleting a resource
// that still has bookings or reusing a unique name. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrSlotTaken is returned when a booking request overlaps an existing
// booking for the same resource and date. This is a normal negative
// outcome, not a system failure; handlers should translate it into an
// HTTP 409 response.
var ErrSlotTaken = errors.New("resource not available on the specified time slot")

// ErrResourceNotFound is returned when a named resource does not exist.
var ErrResourceNotFound = errors.New("resource not found")

// ErrBookingNotFound is returned when a booking lookup matches nothing.
var ErrBookingNotFound = errors.New("booking not found")

// ErrAuthorizationNotFound is returned when no vehicle authorization
// record exists for a plate/timestamp pair.
var ErrAuthorizationNotFound = errors.New("vehicle authorization not found")

// ErrAlreadyDecided is returned when a state transition is attempted on a
// vehicle authorization that already reached a terminal state. Handlers
// should translate this into an HTTP 409 response.
var ErrAlreadyDecided = errors.New("authorization already decided")

// ErrInvalidTransition is returned when a state transition is attempted
// from a state that does not permit it (e.g. approving a record that was
// never escalated to manual review).
var ErrInvalidTransition = errors.New("invalid authorization state transition")
