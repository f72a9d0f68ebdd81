package submission

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimgate/internal/bundle"
	"claimgate/internal/config"
	"claimgate/internal/identity"
	"claimgate/internal/logger"
	"claimgate/internal/transport"
	"claimgate/pkg/cel"
	pkgerrors "claimgate/pkg/errors"
	"claimgate/pkg/models"
)

type fakeRepo struct {
	mu   sync.Mutex
	subs map[string]*Submission
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{subs: map[string]*Submission{}}
}

func (r *fakeRepo) Create(ctx context.Context, sub *Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.Status == "" {
		sub.Status = StatusDraft
	}
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	copied := *sub
	r.subs[sub.ID] = &copied
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, id string) (*Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithMessage("submission not found")
	}
	copied := *sub
	return &copied, nil
}

func (r *fakeRepo) GetByFocusID(ctx context.Context, focusID string) (*Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if sub.FocusID == focusID {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, pkgerrors.ErrNotFound.WithMessage("submission not found")
}

func (r *fakeRepo) MarkPending(ctx context.Context, id string, requestEnvelope json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub := r.subs[id]
	if sub.Status != StatusDraft {
		return pkgerrors.ErrConflict.WithMessage("submission is not in draft state")
	}
	sub.Status = StatusPending
	sub.RequestEnvelope = requestEnvelope
	now := time.Now().UTC()
	sub.SubmittedAt = &now
	return nil
}

func (r *fakeRepo) apply(sub *Submission, update OutcomeUpdate) {
	sub.Status = update.Status
	if update.ExchangeID != "" {
		sub.ExchangeID = update.ExchangeID
	}
	if update.ResponseEnvelope != nil {
		sub.ResponseEnvelope = update.ResponseEnvelope
	}
	if update.Disposition != "" {
		sub.Disposition = update.Disposition
	}
	if update.ApprovedAmount != nil {
		sub.ApprovedAmount = update.ApprovedAmount
	}
	if update.DeniedAmount != nil {
		sub.DeniedAmount = update.DeniedAmount
	}
	if update.Errors != nil {
		sub.Errors = update.Errors
	}
	sub.UpdatedAt = time.Now().UTC()
}

func (r *fakeRepo) ApplyOutcome(ctx context.Context, id string, update OutcomeUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apply(r.subs[id], update)
	return nil
}

func (r *fakeRepo) ApplyOutcomeIfQueued(ctx context.Context, id string, update OutcomeUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub := r.subs[id]
	if sub.Status != StatusQueued {
		return false, nil
	}
	r.apply(sub, update)
	return true, nil
}

func (r *fakeRepo) AttachToBatch(ctx context.Context, id, batchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[id].BatchID = &batchID
	return nil
}

func (r *fakeRepo) DetachFromBatch(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[id].BatchID = nil
	return nil
}

func (r *fakeRepo) ListByBatch(ctx context.Context, batchID string) ([]Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Submission
	for _, sub := range r.subs {
		if sub.BatchID != nil && *sub.BatchID == batchID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListStuckPending(ctx context.Context, olderThan time.Duration) ([]Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	var out []Submission
	for _, sub := range r.subs {
		if sub.Status == StatusPending && sub.SubmittedAt != nil && sub.SubmittedAt.Before(cutoff) {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (r *fakeRepo) MarkQueued(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub := r.subs[id]; sub.Status == StatusPending {
		sub.Status = StatusQueued
	}
	return nil
}

type fakeTransport struct {
	mu      sync.Mutex
	calls   int
	result  *transport.Result
	err     error
}

func (t *fakeTransport) Send(ctx context.Context, env *models.Envelope, opts ...transport.SendOption) (*transport.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if t.err != nil {
		return nil, t.err
	}
	return t.result, nil
}

func (t *fakeTransport) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

type fakeInteractions struct {
	mu     sync.Mutex
	queued []string
	comms  []string
}

func (f *fakeInteractions) RecordQueuedSubmission(ctx context.Context, submissionID, focusType, focusID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, submissionID)
	return nil
}

func (f *fakeInteractions) RecordUnacknowledgedCommunication(ctx context.Context, submissionID, communicationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comms = append(f.comms, communicationID)
	return nil
}

func responseEnvelope(t *testing.T, code models.ResponseCode, resources ...interface{}) *models.Envelope {
	t.Helper()
	header, err := models.NewEntry(models.ResourceMessageHeader, models.MessageHeader{
		EventKind:    models.EventClaimRequest,
		ResponseCode: code,
	})
	require.NoError(t, err)

	env := &models.Envelope{ID: uuid.New().String(), Timestamp: time.Now().UTC(), Entries: []models.Entry{header}}
	for _, res := range resources {
		var entry models.Entry
		switch r := res.(type) {
		case models.ClaimResponse:
			entry, err = models.NewEntry(models.ResourceClaimResponse, r)
		case models.EligibilityResponse:
			entry, err = models.NewEntry(models.ResourceEligibilityResponse, r)
		case models.Task:
			entry, err = models.NewEntry(models.ResourceTask, r)
		case models.Communication:
			entry, err = models.NewEntry(models.ResourceCommunication, r)
		default:
			t.Fatalf("unsupported resource type %T", res)
		}
		require.NoError(t, err)
		env.Entries = append(env.Entries, entry)
	}
	return env
}

func transportResult(t *testing.T, env *models.Envelope) *transport.Result {
	t.Helper()
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return &transport.Result{StatusCode: http.StatusOK, Envelope: env, RawBody: raw}
}

func testExchangeConfig() config.ExchangeConfig {
	return config.ExchangeConfig{SenderID: "PRV-001", SenderSystem: "urn:claimgate:providers"}
}

type fixture struct {
	service      Service
	repo         *fakeRepo
	client       *fakeTransport
	interactions *fakeInteractions
}

func newFixture(t *testing.T, client *fakeTransport) *fixture {
	t.Helper()
	classifier, err := cel.NewClassifier("", "", "")
	require.NoError(t, err)

	repo := newFakeRepo()
	interactions := &fakeInteractions{}
	svc := NewService(Options{
		Repo:         repo,
		Client:       client,
		Builder:      bundle.NewBuilder(models.Identity{Value: "PRV-001"}),
		Validator:    bundle.NewValidator(classifier),
		Resolver:     identity.NewStaticResolver(testExchangeConfig()),
		Interactions: interactions,
		Logger:       logger.NopLogger(),
	})

	return &fixture{service: svc, repo: repo, client: client, interactions: interactions}
}

func claimRequest() SubmitRequest {
	return SubmitRequest{
		Kind:       KindClaim,
		ReceiverID: "INS-900",
		Claim: &models.Claim{
			ID:        "claim-1",
			Type:      "professional",
			PatientID: "patient-1",
			InsurerID: "INS-900",
			Total:     120.50,
		},
	}
}

func TestSubmitClaimApproved(t *testing.T) {
	approved := 120.50
	client := &fakeTransport{result: nil}
	fx := newFixture(t, client)
	client.result = transportResult(t, responseEnvelope(t, models.ResponseOK, models.ClaimResponse{
		ClaimID:        "claim-1",
		ExchangeID:     "exch-42",
		Outcome:        models.OutcomeComplete,
		Disposition:    "approved",
		ApprovedAmount: &approved,
	}))

	sub, err := fx.service.Submit(context.Background(), claimRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusComplete, sub.Status)
	assert.Equal(t, "approved", sub.Disposition)
	assert.Equal(t, "exch-42", sub.ExchangeID)
	require.NotNil(t, sub.ApprovedAmount)
	assert.Equal(t, 120.50, *sub.ApprovedAmount)
	assert.NotEmpty(t, sub.RequestEnvelope, "request envelope recorded on the pending transition")
	assert.Equal(t, 1, client.callCount())
}

func TestSubmitClaimQueued(t *testing.T) {
	client := &fakeTransport{}
	fx := newFixture(t, client)
	client.result = transportResult(t, responseEnvelope(t, models.ResponseOK, models.ClaimResponse{
		ClaimID: "claim-1",
		Outcome: models.OutcomeQueued,
	}))

	sub, err := fx.service.Submit(context.Background(), claimRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusQueued, sub.Status)
	assert.Equal(t, []string{sub.ID}, fx.interactions.queued, "queued submission registered for poll")
}

func TestBusinessFailureOverridesTransportSuccess(t *testing.T) {
	client := &fakeTransport{}
	fx := newFixture(t, client)
	client.result = transportResult(t, responseEnvelope(t, models.ResponseFatalError))

	sub, err := fx.service.Submit(context.Background(), claimRequest())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsBusiness(err))

	require.NotNil(t, sub)
	assert.Equal(t, StatusError, sub.Status, "a 200 with a fatal-error header must not complete")
	require.NotEmpty(t, sub.Errors)
	assert.Equal(t, models.ErrorSourceHeader, sub.Errors[0].Source)
}

func TestTransportFailureAttachesRecords(t *testing.T) {
	client := &fakeTransport{
		err: pkgerrors.ErrTransport.
			WithMessage("exchange returned status 503").
			WithRecords([]models.ErrorRecord{{
				Source:  models.ErrorSourceTransport,
				Code:    "http_error",
				Message: "exchange returned status 503",
			}}),
	}
	fx := newFixture(t, client)

	sub, err := fx.service.Submit(context.Background(), claimRequest())
	require.Error(t, err)

	require.NotNil(t, sub)
	assert.Equal(t, StatusError, sub.Status)
	require.Len(t, sub.Errors, 1)
	assert.Equal(t, models.ErrorSourceTransport, sub.Errors[0].Source)
}

func TestSubmitGuardRejectsBeforeTransport(t *testing.T) {
	client := &fakeTransport{}
	fx := newFixture(t, client)

	_, err := fx.service.Submit(context.Background(), SubmitRequest{Kind: KindClaim, ReceiverID: "INS-900"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsGuard(err))
	assert.Equal(t, 0, client.callCount())
}

func TestCancelTerminalSubmissionIsGuarded(t *testing.T) {
	client := &fakeTransport{}
	fx := newFixture(t, client)

	sub := &Submission{Kind: KindClaim, Status: StatusComplete, ReceiverID: "INS-900", FocusType: "Claim", FocusID: "claim-1"}
	require.NoError(t, fx.repo.Create(context.Background(), sub))

	_, err := fx.service.Cancel(context.Background(), sub.ID, "ordered in error")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsGuard(err))
	assert.Equal(t, 0, client.callCount(), "guard failures never reach the transport layer")
}

func TestCancelQueuedSubmission(t *testing.T) {
	client := &fakeTransport{}
	fx := newFixture(t, client)
	client.result = transportResult(t, responseEnvelope(t, models.ResponseOK, models.Task{
		ID:     "task-9",
		Code:   "cancel",
		Status: models.TaskCompleted,
	}))

	target := &Submission{Kind: KindClaim, Status: StatusQueued, ReceiverID: "INS-900", FocusType: "Claim", FocusID: "claim-1"}
	require.NoError(t, fx.repo.Create(context.Background(), target))

	cancelSub, err := fx.service.Cancel(context.Background(), target.ID, "ordered in error")
	require.NoError(t, err)
	assert.Equal(t, KindCancel, cancelSub.Kind)
	assert.Equal(t, StatusComplete, cancelSub.Status)

	updated, err := fx.repo.Get(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusError, updated.Status)
	assert.Equal(t, "cancelled", updated.Disposition)
	require.NotEmpty(t, updated.Errors)
	assert.Equal(t, "cancelled-by-submitter", updated.Errors[0].Code)
}

func TestApplyAdjudicationIsIdempotent(t *testing.T) {
	client := &fakeTransport{}
	fx := newFixture(t, client)
	approved := 80.0

	sub := &Submission{Kind: KindClaim, Status: StatusQueued, ReceiverID: "INS-900", FocusType: "Claim", FocusID: "claim-1"}
	require.NoError(t, fx.repo.Create(context.Background(), sub))

	adjudication := models.ClaimResponse{
		ClaimID:        "claim-1",
		Outcome:        models.OutcomeComplete,
		Disposition:    "approved",
		ApprovedAmount: &approved,
	}

	applied, err := fx.service.ApplyAdjudication(context.Background(), adjudication)
	require.NoError(t, err)
	assert.True(t, applied)

	updated, err := fx.repo.Get(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, updated.Status)
	require.NotNil(t, updated.ApprovedAmount)
	assert.Equal(t, 80.0, *updated.ApprovedAmount)

	applied, err = fx.service.ApplyAdjudication(context.Background(), adjudication)
	require.NoError(t, err)
	assert.False(t, applied, "re-applying the same adjudication is a no-op")
}

func TestApplyAdjudicationIgnoresQueuedOutcome(t *testing.T) {
	client := &fakeTransport{}
	fx := newFixture(t, client)

	sub := &Submission{Kind: KindClaim, Status: StatusQueued, ReceiverID: "INS-900", FocusType: "Claim", FocusID: "claim-1"}
	require.NoError(t, fx.repo.Create(context.Background(), sub))

	applied, err := fx.service.ApplyAdjudication(context.Background(), models.ClaimResponse{
		ClaimID: "claim-1",
		Outcome: models.OutcomeQueued,
	})
	require.NoError(t, err)
	assert.False(t, applied)

	updated, err := fx.repo.Get(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, updated.Status)
}

func TestSubmitCommunicationRecordsInteraction(t *testing.T) {
	client := &fakeTransport{}
	fx := newFixture(t, client)
	client.result = transportResult(t, responseEnvelope(t, models.ResponseOK, models.Communication{
		ID:     "comm-1",
		Status: "received",
	}))

	sub, err := fx.service.Submit(context.Background(), SubmitRequest{
		Kind:          KindCommunication,
		ReceiverID:    "INS-900",
		Communication: &models.Communication{ID: "comm-1", Payload: []string{"attached records"}},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusComplete, sub.Status)
	assert.Equal(t, []string{"comm-1"}, fx.interactions.comms, "acknowledgment tracked as pending interaction")
}

func TestRecoverStuckPending(t *testing.T) {
	client := &fakeTransport{}
	fx := newFixture(t, client)

	old := time.Now().UTC().Add(-time.Hour)
	sub := &Submission{Kind: KindClaim, Status: StatusPending, ReceiverID: "INS-900", FocusType: "Claim", FocusID: "claim-1", SubmittedAt: &old}
	require.NoError(t, fx.repo.Create(context.Background(), sub))
	fx.repo.subs[sub.ID].SubmittedAt = &old

	recovered, err := fx.service.RecoverStuckPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	updated, err := fx.repo.Get(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, updated.Status)
	assert.Contains(t, fx.interactions.queued, sub.ID)
}
