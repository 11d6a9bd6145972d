package model

import "time"

// Vehicle authorization states.  A record moves strictly forward:
//
//	DETECTED → AUTO_CHECK_PENDING → AUTO_APPROVED
//	                              → MANUAL_REVIEW_PENDING → MANUALLY_APPROVED
//	                                                      → REJECTED
//
// AUTO_APPROVED, MANUALLY_APPROVED and REJECTED are terminal: once one of
// them is recorded for a (plate, detection timestamp) pair, no further
// transition is attempted.
const (
	StateDetected            = "DETECTED"
	StateAutoCheckPending    = "AUTO_CHECK_PENDING"
	StateAutoApproved        = "AUTO_APPROVED"
	StateManualReviewPending = "MANUAL_REVIEW_PENDING"
	StateManuallyApproved    = "MANUALLY_APPROVED"
	StateRejected            = "REJECTED"
)

// TerminalState reports whether state permits no further transitions.
func TerminalState(state string) bool {
	switch state {
	case StateAutoApproved, StateManuallyApproved, StateRejected:
		return true
	}
	return false
}

// VehicleAuthorization is the persisted state record for one detection,
// stored in the `vehicle_authorizations` table.  Before this table
// existed, a record's state was only implied by which queue its message
// sat in; persisting the state makes it queryable without draining queues.
//
// Fields:
//  ID          – primary key identifier.
//  PlateNumber – detected licence plate.
//  DetectedAt  – detection timestamp as sent by the camera (identifies the
//                detection together with the plate).
//  Gate        – gate where the detection happened, if known.
//  State       – current state, one of the State* constants.
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last state change.
type VehicleAuthorization struct {
	ID          uint64    // vehicle_authorizations.id
	PlateNumber string    // vehicle_authorizations.plate_number
	DetectedAt  string    // vehicle_authorizations.detected_at
	Gate        string    // vehicle_authorizations.gate
	State       string    // vehicle_authorizations.state
	CreatedAt   time.Time // vehicle_authorizations.created_at
	UpdatedAt   time.Time // vehicle_authorizations.updated_at
}

// RegisteredVehicle is a plate on the allow-list, stored in the
// `registered_vehicles` table.  The automatic authorization stage approves
// detections whose plate is registered and escalates everything else to
// manual review.
//
// Fields:
//  ID          – primary key identifier.
//  PlateNumber – unique licence plate.
//  OwnerEmail  – who the vehicle belongs to.
//  CreatedAt   – timestamp of registration.
type RegisteredVehicle struct {
	ID          uint64    // registered_vehicles.id
	PlateNumber string    // registered_vehicles.plate_number
	OwnerEmail  string    // registered_vehicles.owner_email
	CreatedAt   time.Time // registered_vehicles.created_at
}
