package model

import "time"

// Resource is a bookable asset (meeting room, lab bench, parking bay) as
// stored in the `resources` table.  Bookings reference resources by name
// because the booking API addresses them that way.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – unique resource name.
//  Type      – free-form category (e.g. "room", "lab").
//  Capacity  – how many people the resource accommodates.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type Resource struct {
	ID        uint64    // resources.id
	Name      string    // resources.name
	Type      string    // resources.type
	Capacity  uint32    // resources.capacity
	CreatedAt time.Time // resources.created_at
	UpdatedAt time.Time // resources.updated_at
}
