package batch

import (
	"context"
	"encoding/json"
	"fmt"
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
	"claimgate/internal/submission"
	"claimgate/internal/transport"
	"claimgate/pkg/cel"
	pkgerrors "claimgate/pkg/errors"
	"claimgate/pkg/models"
)

type fakeBatchRepo struct {
	mu      sync.Mutex
	records map[string]*Record
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{records: map[string]*Record{}}
}

func (r *fakeBatchRepo) Create(ctx context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Status == "" {
		record.Status = StatusDraft
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	copied := *record
	r.records[record.ID] = &copied
	return nil
}

func (r *fakeBatchRepo) Get(ctx context.Context, id string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithMessage("batch not found")
	}
	copied := *record
	return &copied, nil
}

func (r *fakeBatchRepo) MarkPending(ctx context.Context, id string, requestEnvelope json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record := r.records[id]
	if record.Status != StatusDraft {
		return pkgerrors.ErrConflict.WithMessage("batch is not in draft state")
	}
	record.Status = StatusPending
	record.RequestEnvelope = requestEnvelope
	now := time.Now().UTC()
	record.SubmittedAt = &now
	return nil
}

func (r *fakeBatchRepo) ApplyOutcome(ctx context.Context, id string, update outcomeUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record := r.records[id]
	record.Status = update.Status
	if update.ExchangeID != "" {
		record.ExchangeID = update.ExchangeID
	}
	if update.ResponseEnvelope != nil {
		record.ResponseEnvelope = update.ResponseEnvelope
	}
	if update.Errors != nil {
		record.Errors = update.Errors
	}
	record.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeBatchRepo) UpdateAggregate(ctx context.Context, id, status string, counts Counts) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record := r.records[id]
	record.Status = status
	record.ApprovedCount = counts.Approved
	record.RejectedCount = counts.Rejected
	record.PendingCount = counts.Pending
	record.UpdatedAt = time.Now().UTC()
	return nil
}

type fakeSubRepo struct {
	mu   sync.Mutex
	subs map[string]*submission.Submission
}

func newFakeSubRepo() *fakeSubRepo {
	return &fakeSubRepo{subs: map[string]*submission.Submission{}}
}

func (r *fakeSubRepo) Create(ctx context.Context, sub *submission.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.Status == "" {
		sub.Status = submission.StatusDraft
	}
	copied := *sub
	r.subs[sub.ID] = &copied
	return nil
}

func (r *fakeSubRepo) Get(ctx context.Context, id string) (*submission.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithMessage("submission not found")
	}
	copied := *sub
	return &copied, nil
}

func (r *fakeSubRepo) GetByFocusID(ctx context.Context, focusID string) (*submission.Submission, error) {
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

func (r *fakeSubRepo) MarkPending(ctx context.Context, id string, requestEnvelope json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub := r.subs[id]
	if sub.Status != submission.StatusDraft {
		return pkgerrors.ErrConflict.WithMessage("submission is not in draft state")
	}
	sub.Status = submission.StatusPending
	sub.RequestEnvelope = requestEnvelope
	return nil
}

func (r *fakeSubRepo) ApplyOutcome(ctx context.Context, id string, update submission.OutcomeUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apply(r.subs[id], update)
	return nil
}

func (r *fakeSubRepo) ApplyOutcomeIfQueued(ctx context.Context, id string, update submission.OutcomeUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub := r.subs[id]
	if sub.Status != submission.StatusQueued {
		return false, nil
	}
	r.apply(sub, update)
	return true, nil
}

func (r *fakeSubRepo) apply(sub *submission.Submission, update submission.OutcomeUpdate) {
	sub.Status = update.Status
	if update.ExchangeID != "" {
		sub.ExchangeID = update.ExchangeID
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
}

func (r *fakeSubRepo) AttachToBatch(ctx context.Context, id, batchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[id].BatchID = &batchID
	return nil
}

func (r *fakeSubRepo) DetachFromBatch(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[id].BatchID = nil
	return nil
}

func (r *fakeSubRepo) ListByBatch(ctx context.Context, batchID string) ([]submission.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []submission.Submission
	for _, sub := range r.subs {
		if sub.BatchID != nil && *sub.BatchID == batchID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (r *fakeSubRepo) ListStuckPending(ctx context.Context, olderThan time.Duration) ([]submission.Submission, error) {
	return nil, nil
}

func (r *fakeSubRepo) MarkQueued(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub := r.subs[id]; sub.Status == submission.StatusPending {
		sub.Status = submission.StatusQueued
	}
	return nil
}

func (r *fakeSubRepo) status(t *testing.T, id string) string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	require.True(t, ok)
	return sub.Status
}

type fakeTransport struct {
	mu     sync.Mutex
	calls  int
	result *transport.Result
	err    error
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

type fakeInteractions struct {
	mu     sync.Mutex
	queued []string
}

func (f *fakeInteractions) RecordQueuedSubmission(ctx context.Context, submissionID, focusType, focusID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, focusID)
	return nil
}

func (f *fakeInteractions) RecordUnacknowledgedCommunication(ctx context.Context, submissionID, communicationID string) error {
	return nil
}

type fixture struct {
	service      Service
	repo         *fakeBatchRepo
	subs         *fakeSubRepo
	client       *fakeTransport
	interactions *fakeInteractions
}

func newFixture(t *testing.T, client *fakeTransport) *fixture {
	t.Helper()
	classifier, err := cel.NewClassifier("", "", "")
	require.NoError(t, err)

	repo := newFakeBatchRepo()
	subs := newFakeSubRepo()
	interactions := &fakeInteractions{}
	svc := NewService(Options{
		Repo:         repo,
		Submissions:  subs,
		Client:       client,
		Builder:      bundle.NewBuilder(models.Identity{Value: "PRV-001"}),
		Validator:    bundle.NewValidator(classifier),
		Resolver:     identity.NewStaticResolver(config.ExchangeConfig{SenderID: "PRV-001", SenderSystem: "urn:claimgate:providers"}),
		Interactions: interactions,
		Logger:       logger.NopLogger(),
	})

	return &fixture{service: svc, repo: repo, subs: subs, client: client, interactions: interactions}
}

func (fx *fixture) draftClaim(t *testing.T, claimID, receiverID string) string {
	t.Helper()
	claim := models.Claim{
		ID:        claimID,
		Type:      "professional",
		PatientID: "patient-1",
		InsurerID: receiverID,
		Total:     100,
	}
	payload, err := json.Marshal(claim)
	require.NoError(t, err)

	sub := &submission.Submission{
		Kind:           submission.KindClaim,
		Status:         submission.StatusDraft,
		ReceiverID:     receiverID,
		FocusType:      "Claim",
		FocusID:        claimID,
		RequestPayload: payload,
	}
	require.NoError(t, fx.subs.Create(context.Background(), sub))
	return sub.ID
}

func (fx *fixture) draftBatch(t *testing.T, receiverID string, n int) (*Record, []string) {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, fx.draftClaim(t, fmt.Sprintf("claim-%d", i+1), receiverID))
	}
	record, err := fx.service.Create(context.Background(), CreateRequest{SubmissionIDs: ids})
	require.NoError(t, err)
	return record, ids
}

// queuedBatchResponse mimics the exchange accepting a batch for deferred
// adjudication.
func queuedBatchResponse(t *testing.T, batchID string) *transport.Result {
	t.Helper()
	header, err := models.NewEntry(models.ResourceMessageHeader, models.MessageHeader{
		EventKind:    models.EventBatchRequest,
		ResponseCode: models.ResponseOK,
	})
	require.NoError(t, err)

	task, err := models.NewEntry(models.ResourceTask, models.Task{
		ID:     "exch-task-1",
		Code:   "batch",
		Status: models.TaskAccepted,
	})
	require.NoError(t, err)

	cr, err := models.NewEntry(models.ResourceClaimResponse, models.ClaimResponse{
		BatchID: batchID,
		Outcome: models.OutcomeQueued,
	})
	require.NoError(t, err)

	env := &models.Envelope{ID: uuid.New().String(), Timestamp: time.Now().UTC(), Entries: []models.Entry{header, task, cr}}
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return &transport.Result{StatusCode: http.StatusOK, Envelope: env, RawBody: raw}
}

func requireGuard(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.ErrGuard.Code, appErr.Code)
}

func TestCreateBatchAssignsMembersInOrder(t *testing.T) {
	fx := newFixture(t, &fakeTransport{})
	record, ids := fx.draftBatch(t, "INS-900", 3)

	assert.Equal(t, StatusDraft, record.Status)
	assert.Equal(t, ids, record.Members)
	assert.Equal(t, "INS-900", record.ReceiverID)

	for _, id := range ids {
		sub, err := fx.subs.Get(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, sub.BatchID)
		assert.Equal(t, record.ID, *sub.BatchID)
	}
}

func TestCreateBatchSizeGuard(t *testing.T) {
	fx := newFixture(t, &fakeTransport{})
	id := fx.draftClaim(t, "claim-1", "INS-900")

	_, err := fx.service.Create(context.Background(), CreateRequest{SubmissionIDs: []string{id}})
	requireGuard(t, err)
}

func TestCreateBatchRejectsMixedReceivers(t *testing.T) {
	fx := newFixture(t, &fakeTransport{})
	first := fx.draftClaim(t, "claim-1", "INS-900")
	second := fx.draftClaim(t, "claim-2", "INS-901")

	_, err := fx.service.Create(context.Background(), CreateRequest{SubmissionIDs: []string{first, second}})
	requireGuard(t, err)
}

func TestCreateBatchRejectsActiveBatchMember(t *testing.T) {
	client := &fakeTransport{}
	fx := newFixture(t, client)
	record, ids := fx.draftBatch(t, "INS-900", 2)
	client.result = queuedBatchResponse(t, record.ID)

	_, err := fx.service.Submit(context.Background(), record.ID)
	require.NoError(t, err)

	extra := fx.draftClaim(t, "claim-9", "INS-900")
	_, err = fx.service.Create(context.Background(), CreateRequest{SubmissionIDs: []string{ids[0], extra}})
	requireGuard(t, err)
}

func TestCreateBatchAllowsReassignmentFromFailedBatch(t *testing.T) {
	client := &fakeTransport{err: pkgerrors.ErrTransport.WithMessage("all attempts exhausted")}
	fx := newFixture(t, client)
	record, ids := fx.draftBatch(t, "INS-900", 2)

	_, err := fx.service.Submit(context.Background(), record.ID)
	require.Error(t, err)

	failed, err := fx.service.Get(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusError, failed.Status)

	// Members never left draft, so they can join a fresh batch.
	next, err := fx.service.Create(context.Background(), CreateRequest{SubmissionIDs: ids})
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, next.Status)
}

func TestSubmitBatchQueuesMembers(t *testing.T) {
	client := &fakeTransport{}
	fx := newFixture(t, client)
	record, ids := fx.draftBatch(t, "INS-900", 3)
	client.result = queuedBatchResponse(t, record.ID)

	submitted, err := fx.service.Submit(context.Background(), record.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusQueued, submitted.Status)
	assert.Equal(t, "exch-task-1", submitted.ExchangeID)
	assert.NotEmpty(t, submitted.RequestEnvelope)
	for _, id := range ids {
		assert.Equal(t, submission.StatusQueued, fx.subs.status(t, id))
	}
	assert.Contains(t, fx.interactions.queued, record.ID)
}

func TestSubmitBatchRequiresDraftState(t *testing.T) {
	client := &fakeTransport{}
	fx := newFixture(t, client)
	record, _ := fx.draftBatch(t, "INS-900", 2)
	client.result = queuedBatchResponse(t, record.ID)

	_, err := fx.service.Submit(context.Background(), record.ID)
	require.NoError(t, err)

	_, err = fx.service.Submit(context.Background(), record.ID)
	requireGuard(t, err)
}

func TestSubmitBatchTransportFailureLeavesMembersDraft(t *testing.T) {
	client := &fakeTransport{err: pkgerrors.ErrTransport.WithMessage("all attempts exhausted")}
	fx := newFixture(t, client)
	record, ids := fx.draftBatch(t, "INS-900", 2)

	_, err := fx.service.Submit(context.Background(), record.ID)
	require.Error(t, err)

	failed, err := fx.service.Get(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusError, failed.Status)
	require.NotEmpty(t, failed.Errors)

	for _, id := range ids {
		assert.Equal(t, submission.StatusDraft, fx.subs.status(t, id))
	}
}

func TestBatchPartialAggregate(t *testing.T) {
	approved := 100.0
	client := &fakeTransport{}
	fx := newFixture(t, client)
	record, ids := fx.draftBatch(t, "INS-900", 3)
	client.result = queuedBatchResponse(t, record.ID)

	_, err := fx.service.Submit(context.Background(), record.ID)
	require.NoError(t, err)

	applied, err := fx.service.ApplyAdjudications(context.Background(), record.ID, []models.ClaimResponse{
		{ClaimID: "claim-1", SequenceNumber: 1, Outcome: models.OutcomeComplete, Disposition: "approved", ApprovedAmount: &approved},
		{ClaimID: "claim-3", SequenceNumber: 3, Outcome: models.OutcomeComplete, Disposition: "denied"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	assert.Equal(t, submission.StatusComplete, fx.subs.status(t, ids[0]))
	assert.Equal(t, submission.StatusQueued, fx.subs.status(t, ids[1]))

	updated, err := fx.service.Get(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, updated.Status)
	assert.Equal(t, 1, updated.ApprovedCount)
	assert.Equal(t, 1, updated.RejectedCount)
	assert.Equal(t, 1, updated.PendingCount)
	assert.False(t, updated.IsTerminal())
}

func TestBatchCompleteWhenAllApproved(t *testing.T) {
	approved := 50.0
	client := &fakeTransport{}
	fx := newFixture(t, client)
	record, _ := fx.draftBatch(t, "INS-900", 2)
	client.result = queuedBatchResponse(t, record.ID)

	_, err := fx.service.Submit(context.Background(), record.ID)
	require.NoError(t, err)

	applied, err := fx.service.ApplyAdjudications(context.Background(), record.ID, []models.ClaimResponse{
		{SequenceNumber: 1, Outcome: models.OutcomeComplete, Disposition: "approved", ApprovedAmount: &approved},
		{SequenceNumber: 2, Outcome: models.OutcomeComplete, Disposition: "approved", ApprovedAmount: &approved},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	updated, err := fx.service.Get(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, updated.Status)
	assert.Equal(t, 0, updated.PendingCount)
	assert.True(t, updated.IsTerminal())
}

func TestApplyAdjudicationsIsIdempotent(t *testing.T) {
	approved := 50.0
	client := &fakeTransport{}
	fx := newFixture(t, client)
	record, _ := fx.draftBatch(t, "INS-900", 2)
	client.result = queuedBatchResponse(t, record.ID)

	_, err := fx.service.Submit(context.Background(), record.ID)
	require.NoError(t, err)

	responses := []models.ClaimResponse{
		{SequenceNumber: 1, Outcome: models.OutcomeComplete, Disposition: "approved", ApprovedAmount: &approved},
	}

	applied, err := fx.service.ApplyAdjudications(context.Background(), record.ID, responses)
	require.NoError(t, err)
	require.Equal(t, 1, applied)

	applied, err = fx.service.ApplyAdjudications(context.Background(), record.ID, responses)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
}

func TestApplyAdjudicationsSkipsOutOfRangeSequence(t *testing.T) {
	client := &fakeTransport{}
	fx := newFixture(t, client)
	record, _ := fx.draftBatch(t, "INS-900", 2)
	client.result = queuedBatchResponse(t, record.ID)

	_, err := fx.service.Submit(context.Background(), record.ID)
	require.NoError(t, err)

	applied, err := fx.service.ApplyAdjudications(context.Background(), record.ID, []models.ClaimResponse{
		{SequenceNumber: 0, Outcome: models.OutcomeComplete, Disposition: "approved"},
		{SequenceNumber: 9, Outcome: models.OutcomeComplete, Disposition: "approved"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name       string
		categories []cel.Category
		wantStatus string
		wantCounts Counts
	}{
		{
			name:       "all approved",
			categories: []cel.Category{cel.CategoryApproved, cel.CategoryApproved},
			wantStatus: StatusComplete,
			wantCounts: Counts{Approved: 2},
		},
		{
			name:       "all rejected",
			categories: []cel.Category{cel.CategoryDenied, cel.CategoryDenied},
			wantStatus: StatusRejected,
			wantCounts: Counts{Rejected: 2},
		},
		{
			name:       "mixed terminal",
			categories: []cel.Category{cel.CategoryApproved, cel.CategoryDenied},
			wantStatus: StatusPartial,
			wantCounts: Counts{Approved: 1, Rejected: 1},
		},
		{
			name:       "mixed with pending",
			categories: []cel.Category{cel.CategoryApproved, cel.CategoryQueued, cel.CategoryDenied},
			wantStatus: StatusPartial,
			wantCounts: Counts{Approved: 1, Rejected: 1, Pending: 1},
		},
		{
			name:       "uniform with pending",
			categories: []cel.Category{cel.CategoryApproved, cel.CategoryQueued},
			wantStatus: StatusQueued,
			wantCounts: Counts{Approved: 1, Pending: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, counts := Aggregate(tt.categories)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCounts, counts)
		})
	}
}
