// Package workflow ties the vehicle-authorization pipeline together: it
// turns detection events into state transitions on the persisted
// authorization record and publishes the corresponding queue messages.
// The record in the database is authoritative for a detection's state;
// queue messages only move work between stages.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/iliyamo/vehicle-access-control/internal/model"
	"github.com/iliyamo/vehicle-access-control/internal/queue"
	"github.com/iliyamo/vehicle-access-control/internal/repository"
)

// Publisher publishes one JSON event onto a named durable queue.
type Publisher interface {
	Publish(ctx context.Context, queueName string, event any) error
}

// AuthorizationStore is the slice of repository.AuthorizationRepo the
// orchestrator needs.  Lookups that match nothing return the repository's
// not-found sentinels; the orchestrator treats those as "record unknown",
// never as a system failure.
type AuthorizationStore interface {
	Create(ctx context.Context, rec *model.VehicleAuthorization) error
	Get(ctx context.Context, plate, detectedAt string) (*model.VehicleAuthorization, error)
	Transition(ctx context.Context, plate, detectedAt, from, to string) error
	IsRegistered(ctx context.Context, plate string) (bool, error)
}

// ApprovalGuard suppresses duplicate in-flight manual-approval requests
// for the same plate.  Begin reports whether this is the first open
// request for the plate; End clears the guard once a decision is
// recorded.
type ApprovalGuard interface {
	Begin(ctx context.Context, plate string) (bool, error)
	End(ctx context.Context, plate string) error
}

// Orchestrator drives a detection through the authorization state machine:
//
//	DETECTED → AUTO_CHECK_PENDING → AUTO_APPROVED
//	                              → MANUAL_REVIEW_PENDING → MANUALLY_APPROVED
//	                                                      → REJECTED
//
// Every method is safe to call more than once for the same detection;
// redeliveries re-run handlers, so transitions that already happened are
// skipped instead of failed.
type Orchestrator struct {
	store AuthorizationStore
	pub   Publisher
	guard ApprovalGuard
}

// New returns an Orchestrator over the given collaborators.
func New(store AuthorizationStore, pub Publisher, guard ApprovalGuard) *Orchestrator {
	return &Orchestrator{store: store, pub: pub, guard: guard}
}

// RecordDetection persists a fresh DETECTED record and publishes the
// detection event.  A record that already exists for the same
// (plate, timestamp) pair means the detection was already ingested; the
// call is a no-op then, which makes the ingest endpoint idempotent.
func (o *Orchestrator) RecordDetection(ctx context.Context, ev queue.VehicleDetectedEvent) error {
	rec := &model.VehicleAuthorization{
		PlateNumber: ev.PlateNumber,
		DetectedAt:  ev.Timestamp,
		Gate:        ev.Gate,
		State:       model.StateDetected,
	}
	if err := o.store.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			log.Printf("workflow: detection %s@%s already recorded", ev.PlateNumber, ev.Timestamp)
			return nil
		}
		return fmt.Errorf("persist detection: %w", err)
	}
	return o.pub.Publish(ctx, queue.VehicleDetected, ev)
}

// AutoCheck is the automatic authorization stage, run for every consumed
// detection event.  Registered plates are approved without human input;
// everything else is escalated to manual review.  Terminal records are
// left untouched.
func (o *Orchestrator) AutoCheck(ctx context.Context, ev queue.VehicleDetectedEvent) error {
	rec, err := o.store.Get(ctx, ev.PlateNumber, ev.Timestamp)
	if err != nil {
		if errors.Is(err, repository.ErrAuthorizationNotFound) {
			// Detection from a producer that does not persist records
			// (e.g. an older camera service); adopt it.
			rec = &model.VehicleAuthorization{
				PlateNumber: ev.PlateNumber,
				DetectedAt:  ev.Timestamp,
				Gate:        ev.Gate,
				State:       model.StateDetected,
			}
			if err := o.store.Create(ctx, rec); err != nil && !errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("adopt detection: %w", err)
			}
		} else {
			return fmt.Errorf("load authorization: %w", err)
		}
	}
	if model.TerminalState(rec.State) {
		if rec.State == model.StateAutoApproved {
			// The detection only comes back after a handler failure, so the
			// earlier result publish may not have happened. Resend it;
			// downstream consumers tolerate duplicates.
			return o.pub.Publish(ctx, queue.AuthorizationResults, queue.AuthorizationResult{
				PlateNumber:   ev.PlateNumber,
				Status:        queue.StatusAutoApproved,
				SecurityClear: true,
				Timestamp:     ev.Timestamp,
			})
		}
		return nil
	}

	if err := o.ensure(ctx, ev.PlateNumber, ev.Timestamp, model.StateDetected, model.StateAutoCheckPending); err != nil {
		return err
	}

	registered, err := o.store.IsRegistered(ctx, ev.PlateNumber)
	if err != nil {
		return fmt.Errorf("allow-list lookup: %w", err)
	}
	if registered {
		if err := o.ensure(ctx, ev.PlateNumber, ev.Timestamp, model.StateAutoCheckPending, model.StateAutoApproved); err != nil {
			return err
		}
		return o.pub.Publish(ctx, queue.AuthorizationResults, queue.AuthorizationResult{
			PlateNumber:   ev.PlateNumber,
			Status:        queue.StatusAutoApproved,
			SecurityClear: true,
			Timestamp:     ev.Timestamp,
		})
	}

	if err := o.ensure(ctx, ev.PlateNumber, ev.Timestamp, model.StateAutoCheckPending, model.StateManualReviewPending); err != nil {
		return err
	}
	first, err := o.guard.Begin(ctx, ev.PlateNumber)
	if err != nil {
		return fmt.Errorf("approval guard: %w", err)
	}
	if !first {
		// An approval request for this plate is already with the
		// operators; the record waits in MANUAL_REVIEW_PENDING and shows
		// up on the dashboard without a second queue message.
		log.Printf("workflow: approval request for %s already in flight", ev.PlateNumber)
		return nil
	}
	return o.pub.Publish(ctx, queue.ManualApprovalRequests, queue.ManualApprovalRequest{
		PlateNumber: ev.PlateNumber,
		Timestamp:   ev.Timestamp,
		Reason:      "plate not registered",
	})
}

// NoteApprovalRequest runs for every consumed manual-approval request.
// With the persisted state machine the request itself carries no new
// state; the handler adopts records published by foreign producers and
// otherwise only verifies the record exists.
func (o *Orchestrator) NoteApprovalRequest(ctx context.Context, req queue.ManualApprovalRequest) error {
	_, err := o.store.Get(ctx, req.PlateNumber, req.Timestamp)
	if errors.Is(err, repository.ErrAuthorizationNotFound) {
		rec := &model.VehicleAuthorization{
			PlateNumber: req.PlateNumber,
			DetectedAt:  req.Timestamp,
			State:       model.StateManualReviewPending,
		}
		if err := o.store.Create(ctx, rec); err != nil && !errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("adopt approval request: %w", err)
		}
		log.Printf("workflow: adopted foreign approval request for %s@%s", req.PlateNumber, req.Timestamp)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load authorization: %w", err)
	}
	log.Printf("workflow: approval request pending for %s@%s", req.PlateNumber, req.Timestamp)
	return nil
}

// Approve records a positive operator decision: the record becomes
// MANUALLY_APPROVED and a clearing result is published, carrying forward
// the original detection timestamp.  Repeating the same decision
// republishes the result, so an operator retry after a failed publish
// still delivers it; a record decided the other way yields
// repository.ErrAlreadyDecided.
func (o *Orchestrator) Approve(ctx context.Context, plate, detectedAt string) error {
	return o.decide(ctx, plate, detectedAt, model.StateManuallyApproved, queue.AuthorizationResult{
		PlateNumber:   plate,
		Status:        queue.StatusManuallyApproved,
		SecurityClear: true,
		Timestamp:     detectedAt,
	})
}

// Reject records a negative operator decision, the symmetric path to
// Approve: the record becomes REJECTED and a non-clearing result is
// published.
func (o *Orchestrator) Reject(ctx context.Context, plate, detectedAt string) error {
	return o.decide(ctx, plate, detectedAt, model.StateRejected, queue.AuthorizationResult{
		PlateNumber:   plate,
		Status:        queue.StatusRejected,
		SecurityClear: false,
		Timestamp:     detectedAt,
	})
}

func (o *Orchestrator) decide(ctx context.Context, plate, detectedAt, to string, result queue.AuthorizationResult) error {
	if err := o.store.Transition(ctx, plate, detectedAt, model.StateManualReviewPending, to); err != nil {
		if !errors.Is(err, repository.ErrAlreadyDecided) {
			return err
		}
		rec, getErr := o.store.Get(ctx, plate, detectedAt)
		if getErr != nil || rec.State != to {
			return err
		}
		// Same decision, recorded by an earlier attempt whose result
		// publish may have failed. Fall through and publish again.
	}
	if err := o.guard.End(ctx, plate); err != nil {
		// The guard has a TTL; a failed clear only delays the next
		// request for this plate, it never loses a decision.
		log.Printf("workflow: clearing approval guard for %s failed: %v", plate, err)
	}
	return o.pub.Publish(ctx, queue.AuthorizationResults, result)
}

// ensure moves a record from one state to the next, treating "already
// there" as success so redelivered messages do not fail mid-machine.
func (o *Orchestrator) ensure(ctx context.Context, plate, detectedAt, from, to string) error {
	err := o.store.Transition(ctx, plate, detectedAt, from, to)
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrInvalidTransition) || errors.Is(err, repository.ErrAlreadyDecided) {
		rec, getErr := o.store.Get(ctx, plate, detectedAt)
		if getErr == nil && rec.State == to {
			return nil
		}
	}
	return fmt.Errorf("transition %s@%s %s->%s: %w", plate, detectedAt, from, to, err)
}

// HandleVehicleDetected adapts AutoCheck to the broker's raw-body handler
// signature.  Undecodable payloads are permanent failures and travel the
// bounded-redelivery path into the dead-letter queue.
func (o *Orchestrator) HandleVehicleDetected(ctx context.Context, body []byte) error {
	var ev queue.VehicleDetectedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal detection: %w", err)
	}
	if ev.PlateNumber == "" || ev.Timestamp == "" {
		return errors.New("detection missing plate_number or timestamp")
	}
	return o.AutoCheck(ctx, ev)
}

// HandleApprovalRequest adapts NoteApprovalRequest to the broker's
// raw-body handler signature.
func (o *Orchestrator) HandleApprovalRequest(ctx context.Context, body []byte) error {
	var req queue.ManualApprovalRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("unmarshal approval request: %w", err)
	}
	if req.PlateNumber == "" || req.Timestamp == "" {
		return errors.New("approval request missing plate_number or timestamp")
	}
	return o.NoteApprovalRequest(ctx, req)
}
