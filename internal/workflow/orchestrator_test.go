package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/vehicle-access-control/internal/model"
	"github.com/iliyamo/vehicle-access-control/internal/queue"
	"github.com/iliyamo/vehicle-access-control/internal/repository"
)

// fakeStore mirrors the sentinel-error contract of
// repository.AuthorizationRepo over an in-memory map.
type fakeStore struct {
	records    map[string]*model.VehicleAuthorization
	registered map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:    map[string]*model.VehicleAuthorization{},
		registered: map[string]bool{},
	}
}

func key(plate, ts string) string { return plate + "@" + ts }

func (s *fakeStore) Create(_ context.Context, rec *model.VehicleAuthorization) error {
	k := key(rec.PlateNumber, rec.DetectedAt)
	if _, exists := s.records[k]; exists {
		return repository.ErrConflict
	}
	cp := *rec
	s.records[k] = &cp
	return nil
}

func (s *fakeStore) Get(_ context.Context, plate, ts string) (*model.VehicleAuthorization, error) {
	rec, ok := s.records[key(plate, ts)]
	if !ok {
		return nil, repository.ErrAuthorizationNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeStore) Transition(_ context.Context, plate, ts, from, to string) error {
	rec, ok := s.records[key(plate, ts)]
	if !ok {
		return repository.ErrAuthorizationNotFound
	}
	if rec.State != from {
		if model.TerminalState(rec.State) {
			return repository.ErrAlreadyDecided
		}
		return repository.ErrInvalidTransition
	}
	rec.State = to
	return nil
}

func (s *fakeStore) IsRegistered(_ context.Context, plate string) (bool, error) {
	return s.registered[plate], nil
}

// fakePublisher records published events and can be told to fail.
type fakePublisher struct {
	published []struct {
		Queue string
		Event any
	}
	fail error
}

func (p *fakePublisher) Publish(_ context.Context, queueName string, event any) error {
	if p.fail != nil {
		return p.fail
	}
	p.published = append(p.published, struct {
		Queue string
		Event any
	}{queueName, event})
	return nil
}

func (p *fakePublisher) toQueue(name string) []any {
	var out []any
	for _, rec := range p.published {
		if rec.Queue == name {
			out = append(out, rec.Event)
		}
	}
	return out
}

func newOrchestrator() (*Orchestrator, *fakeStore, *fakePublisher) {
	store := newFakeStore()
	pub := &fakePublisher{}
	return New(store, pub, NewMemoryGuard()), store, pub
}

var detection = queue.VehicleDetectedEvent{
	PlateNumber: "AB-123-CD",
	Timestamp:   "2026-08-29T07:14:02Z",
	Gate:        "north",
	Confidence:  0.97,
}

func TestRecordDetection(t *testing.T) {
	o, store, pub := newOrchestrator()

	require.NoError(t, o.RecordDetection(context.Background(), detection))
	rec, err := store.Get(context.Background(), detection.PlateNumber, detection.Timestamp)
	require.NoError(t, err)
	require.Equal(t, model.StateDetected, rec.State)
	require.Len(t, pub.toQueue(queue.VehicleDetected), 1)

	// Ingesting the same detection again is a no-op, not an error.
	require.NoError(t, o.RecordDetection(context.Background(), detection))
	require.Len(t, pub.toQueue(queue.VehicleDetected), 1)
}

func TestAutoCheckApprovesRegisteredPlate(t *testing.T) {
	o, store, pub := newOrchestrator()
	store.registered[detection.PlateNumber] = true
	require.NoError(t, o.RecordDetection(context.Background(), detection))

	require.NoError(t, o.AutoCheck(context.Background(), detection))

	rec, err := store.Get(context.Background(), detection.PlateNumber, detection.Timestamp)
	require.NoError(t, err)
	require.Equal(t, model.StateAutoApproved, rec.State)

	results := pub.toQueue(queue.AuthorizationResults)
	require.Len(t, results, 1)
	res := results[0].(queue.AuthorizationResult)
	require.Equal(t, queue.StatusAutoApproved, res.Status)
	require.True(t, res.SecurityClear)
	// The result carries the original detection timestamp.
	require.Equal(t, detection.Timestamp, res.Timestamp)
	require.Empty(t, pub.toQueue(queue.ManualApprovalRequests))
}

func TestAutoCheckEscalatesUnknownPlate(t *testing.T) {
	o, store, pub := newOrchestrator()
	require.NoError(t, o.RecordDetection(context.Background(), detection))

	require.NoError(t, o.AutoCheck(context.Background(), detection))

	rec, err := store.Get(context.Background(), detection.PlateNumber, detection.Timestamp)
	require.NoError(t, err)
	require.Equal(t, model.StateManualReviewPending, rec.State)

	reqs := pub.toQueue(queue.ManualApprovalRequests)
	require.Len(t, reqs, 1)
	require.Equal(t, detection.PlateNumber, reqs[0].(queue.ManualApprovalRequest).PlateNumber)
	require.Empty(t, pub.toQueue(queue.AuthorizationResults))
}

func TestAutoCheckSuppressesDuplicateApprovalRequests(t *testing.T) {
	o, store, pub := newOrchestrator()
	require.NoError(t, o.RecordDetection(context.Background(), detection))
	require.NoError(t, o.AutoCheck(context.Background(), detection))

	// The same unregistered plate rolls past the camera again while the
	// first request is still with the operators.
	second := detection
	second.Timestamp = "2026-08-29T07:21:40Z"
	require.NoError(t, o.RecordDetection(context.Background(), second))
	require.NoError(t, o.AutoCheck(context.Background(), second))

	require.Len(t, pub.toQueue(queue.ManualApprovalRequests), 1)
	rec, err := store.Get(context.Background(), second.PlateNumber, second.Timestamp)
	require.NoError(t, err)
	require.Equal(t, model.StateManualReviewPending, rec.State)
}

func TestAutoCheckIsIdempotentUnderRedelivery(t *testing.T) {
	o, store, pub := newOrchestrator()
	store.registered[detection.PlateNumber] = true
	require.NoError(t, o.RecordDetection(context.Background(), detection))

	require.NoError(t, o.AutoCheck(context.Background(), detection))
	// Redelivery of the same event finds a terminal record, leaves it
	// unchanged and resends the result (the broker only redelivers after a
	// handler failure, so the first publish may not have happened).
	require.NoError(t, o.AutoCheck(context.Background(), detection))

	rec, err := store.Get(context.Background(), detection.PlateNumber, detection.Timestamp)
	require.NoError(t, err)
	require.Equal(t, model.StateAutoApproved, rec.State)
	require.Len(t, pub.toQueue(queue.AuthorizationResults), 2)
}

func TestAutoCheckAdoptsForeignDetection(t *testing.T) {
	o, store, _ := newOrchestrator()
	// No RecordDetection: the event came from a producer without access
	// to the state store.
	require.NoError(t, o.AutoCheck(context.Background(), detection))
	rec, err := store.Get(context.Background(), detection.PlateNumber, detection.Timestamp)
	require.NoError(t, err)
	require.Equal(t, model.StateManualReviewPending, rec.State)
}

func TestApprove(t *testing.T) {
	o, store, pub := newOrchestrator()
	require.NoError(t, o.RecordDetection(context.Background(), detection))
	require.NoError(t, o.AutoCheck(context.Background(), detection))

	require.NoError(t, o.Approve(context.Background(), detection.PlateNumber, detection.Timestamp))

	rec, err := store.Get(context.Background(), detection.PlateNumber, detection.Timestamp)
	require.NoError(t, err)
	require.Equal(t, model.StateManuallyApproved, rec.State)

	results := pub.toQueue(queue.AuthorizationResults)
	require.Len(t, results, 1)
	res := results[0].(queue.AuthorizationResult)
	require.Equal(t, queue.StatusManuallyApproved, res.Status)
	require.True(t, res.SecurityClear)
	require.Equal(t, detection.Timestamp, res.Timestamp)

	// Terminal: the opposite decision is refused, repeating the same one
	// just republishes the result.
	err = o.Reject(context.Background(), detection.PlateNumber, detection.Timestamp)
	require.ErrorIs(t, err, repository.ErrAlreadyDecided)
	require.NoError(t, o.Approve(context.Background(), detection.PlateNumber, detection.Timestamp))
	require.Len(t, pub.toQueue(queue.AuthorizationResults), 2)

	rec, err = store.Get(context.Background(), detection.PlateNumber, detection.Timestamp)
	require.NoError(t, err)
	require.Equal(t, model.StateManuallyApproved, rec.State)
}

func TestReject(t *testing.T) {
	o, store, pub := newOrchestrator()
	require.NoError(t, o.RecordDetection(context.Background(), detection))
	require.NoError(t, o.AutoCheck(context.Background(), detection))

	require.NoError(t, o.Reject(context.Background(), detection.PlateNumber, detection.Timestamp))

	rec, err := store.Get(context.Background(), detection.PlateNumber, detection.Timestamp)
	require.NoError(t, err)
	require.Equal(t, model.StateRejected, rec.State)

	results := pub.toQueue(queue.AuthorizationResults)
	require.Len(t, results, 1)
	res := results[0].(queue.AuthorizationResult)
	require.Equal(t, queue.StatusRejected, res.Status)
	require.False(t, res.SecurityClear)
}

func TestApproveRetryDeliversResultAfterPublishFailure(t *testing.T) {
	o, store, pub := newOrchestrator()
	require.NoError(t, o.RecordDetection(context.Background(), detection))
	require.NoError(t, o.AutoCheck(context.Background(), detection))

	// The transition commits but the result publish fails.
	pub.fail = errors.New("broker gone")
	err := o.Approve(context.Background(), detection.PlateNumber, detection.Timestamp)
	require.ErrorContains(t, err, "broker gone")

	rec, err := store.Get(context.Background(), detection.PlateNumber, detection.Timestamp)
	require.NoError(t, err)
	require.Equal(t, model.StateManuallyApproved, rec.State)
	require.Empty(t, pub.toQueue(queue.AuthorizationResults))

	// The operator retries once the broker is back; the already-recorded
	// decision must still deliver its result.
	pub.fail = nil
	require.NoError(t, o.Approve(context.Background(), detection.PlateNumber, detection.Timestamp))

	results := pub.toQueue(queue.AuthorizationResults)
	require.Len(t, results, 1)
	res := results[0].(queue.AuthorizationResult)
	require.Equal(t, queue.StatusManuallyApproved, res.Status)
	require.Equal(t, detection.Timestamp, res.Timestamp)
}

func TestAutoCheckRedeliveryDeliversResultAfterPublishFailure(t *testing.T) {
	o, store, pub := newOrchestrator()
	store.registered[detection.PlateNumber] = true
	require.NoError(t, o.RecordDetection(context.Background(), detection))

	// The record reaches AUTO_APPROVED but the result publish fails, so
	// the handler errors and the broker redelivers the detection.
	pub.fail = errors.New("broker gone")
	err := o.AutoCheck(context.Background(), detection)
	require.ErrorContains(t, err, "broker gone")
	require.Empty(t, pub.toQueue(queue.AuthorizationResults))

	pub.fail = nil
	require.NoError(t, o.AutoCheck(context.Background(), detection))

	results := pub.toQueue(queue.AuthorizationResults)
	require.Len(t, results, 1)
	res := results[0].(queue.AuthorizationResult)
	require.Equal(t, queue.StatusAutoApproved, res.Status)
	require.True(t, res.SecurityClear)
	require.Equal(t, detection.Timestamp, res.Timestamp)
}

func TestDecisionRequiresPendingReview(t *testing.T) {
	o, _, _ := newOrchestrator()
	require.NoError(t, o.RecordDetection(context.Background(), detection))

	// Still DETECTED; no escalation happened yet.
	err := o.Approve(context.Background(), detection.PlateNumber, detection.Timestamp)
	require.ErrorIs(t, err, repository.ErrInvalidTransition)
}

func TestGuardReleasedAfterDecision(t *testing.T) {
	o, _, pub := newOrchestrator()
	require.NoError(t, o.RecordDetection(context.Background(), detection))
	require.NoError(t, o.AutoCheck(context.Background(), detection))
	require.NoError(t, o.Approve(context.Background(), detection.PlateNumber, detection.Timestamp))

	// After the decision the plate can trigger a new approval request.
	second := detection
	second.Timestamp = "2026-08-30T08:00:00Z"
	require.NoError(t, o.RecordDetection(context.Background(), second))
	require.NoError(t, o.AutoCheck(context.Background(), second))
	require.Len(t, pub.toQueue(queue.ManualApprovalRequests), 2)
}

func TestPublishFailurePropagates(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{fail: errors.New("broker gone")}
	o := New(store, pub, NewMemoryGuard())

	err := o.RecordDetection(context.Background(), detection)
	require.ErrorContains(t, err, "broker gone")
}

func TestHandleVehicleDetectedRejectsBadPayload(t *testing.T) {
	o, _, _ := newOrchestrator()
	require.Error(t, o.HandleVehicleDetected(context.Background(), []byte("{not json")))
	require.Error(t, o.HandleVehicleDetected(context.Background(), []byte(`{"timestamp":"t"}`)))
}

func TestHandleApprovalRequestAdoptsForeignRecord(t *testing.T) {
	o, store, _ := newOrchestrator()
	body := []byte(`{"plate_number":"ZZ-999-XX","timestamp":"2026-08-29T09:00:00Z","reason":"gate override"}`)
	require.NoError(t, o.HandleApprovalRequest(context.Background(), body))

	rec, err := store.Get(context.Background(), "ZZ-999-XX", "2026-08-29T09:00:00Z")
	require.NoError(t, err)
	require.Equal(t, model.StateManualReviewPending, rec.State)
}
