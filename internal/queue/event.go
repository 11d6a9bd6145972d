// Package queue defines message payloads exchanged over the message broker
// and the well-known queue names the pipeline uses.
package queue

// Queue names.  All three are durable; every producer and consumer declares
// its queue before use, which is idempotent on the broker side.
const (
	VehicleDetected        = "vehicle_detected"
	ManualApprovalRequests = "manual_approval_requests"
	AuthorizationResults   = "vehicle.authorization.result"
)

// Authorization result statuses.  The wire strings match what downstream
// dashboards already expect.
const (
	StatusAutoApproved     = "auto approved"
	StatusManuallyApproved = "manually approved"
	StatusRejected         = "rejected"
)

// VehicleDetectedEvent is published once per physical detection at a gate
// camera.  It is immutable after creation; the timestamp identifies the
// detection together with the plate number for the rest of the pipeline.
type VehicleDetectedEvent struct {
	PlateNumber string  `json:"plate_number"`
	Timestamp   string  `json:"timestamp"`
	Gate        string  `json:"gate,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
}

// ManualApprovalRequest is published when the automatic authorization stage
// cannot reach a decision and a human operator has to review the vehicle.
type ManualApprovalRequest struct {
	PlateNumber string `json:"plate_number"`
	Timestamp   string `json:"timestamp"`
	Reason      string `json:"reason,omitempty"`
}

// AuthorizationResult is the terminal record for a detection.  It is
// immutable once published; the timestamp is carried forward from the
// original detection so results and detections correlate.
type AuthorizationResult struct {
	PlateNumber   string `json:"plate_number"`
	Status        string `json:"status"`
	SecurityClear bool   `json:"security_clear"`
	Timestamp     string `json:"timestamp"`
}
