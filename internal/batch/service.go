package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"claimgate/internal/audit"
	"claimgate/internal/bundle"
	"claimgate/internal/constants"
	"claimgate/internal/identity"
	"claimgate/internal/logger"
	"claimgate/internal/submission"
	"claimgate/internal/transport"
	"claimgate/pkg/cel"
	pkgerrors "claimgate/pkg/errors"
	"claimgate/pkg/metrics"
	"claimgate/pkg/models"
)

type Service interface {
	// Create groups draft claim submissions into a new batch. All members
	// must share one receiver and may only leave a failed or draft batch.
	Create(ctx context.Context, req CreateRequest) (*Record, error)

	// Submit sends one envelope embedding every member claim, tagged with
	// its 1-based sequence number.
	Submit(ctx context.Context, batchID string) (*Record, error)

	Get(ctx context.Context, id string) (*Record, error)

	// ApplyAdjudications re-associates polled results to members by
	// sequence number and recomputes the aggregate. Returns how many
	// members were advanced.
	ApplyAdjudications(ctx context.Context, batchID string, responses []models.ClaimResponse) (int, error)
}

type service struct {
	repo           Repository
	subs           submission.Repository
	client         transport.Client
	builder        *bundle.Builder
	validator      *bundle.Validator
	resolver       identity.Resolver
	interactions   submission.InteractionRecorder
	auditStore     audit.Store
	notifier       *submission.LifecycleNotifier
	requestTimeout time.Duration
	logger         logger.Logger
}

type Options struct {
	Repo           Repository
	Submissions    submission.Repository
	Client         transport.Client
	Builder        *bundle.Builder
	Validator      *bundle.Validator
	Resolver       identity.Resolver
	Interactions   submission.InteractionRecorder
	Audit          audit.Store
	Notifier       *submission.LifecycleNotifier
	RequestTimeout time.Duration
	Logger         logger.Logger
}

func NewService(opts Options) Service {
	s := &service{
		repo:           opts.Repo,
		subs:           opts.Submissions,
		client:         opts.Client,
		builder:        opts.Builder,
		validator:      opts.Validator,
		resolver:       opts.Resolver,
		interactions:   opts.Interactions,
		auditStore:     opts.Audit,
		notifier:       opts.Notifier,
		requestTimeout: opts.RequestTimeout,
		logger:         opts.Logger,
	}
	if s.auditStore == nil {
		s.auditStore = audit.NopStore{}
	}
	if s.requestTimeout <= 0 {
		s.requestTimeout = constants.DefaultRequestTimeout
	}
	return s
}

func (s *service) Get(ctx context.Context, id string) (*Record, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Record, error) {
	if len(req.SubmissionIDs) < constants.MinBatchSize || len(req.SubmissionIDs) > constants.MaxBatchSize {
		metrics.GuardRejectionsTotal.WithLabelValues(submission.KindBatch, "invalid-batch-size").Inc()
		return nil, pkgerrors.ErrGuard.WithMessage(
			fmt.Sprintf("batch size must be between %d and %d", constants.MinBatchSize, constants.MaxBatchSize))
	}

	receiverID := ""
	seen := make(map[string]bool, len(req.SubmissionIDs))
	for _, id := range req.SubmissionIDs {
		if seen[id] {
			return nil, pkgerrors.ErrGuard.WithMessage("duplicate batch member " + id)
		}
		seen[id] = true

		member, err := s.subs.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.guardMember(ctx, member); err != nil {
			metrics.GuardRejectionsTotal.WithLabelValues(submission.KindBatch, "invalid-member").Inc()
			return nil, err
		}
		if receiverID == "" {
			receiverID = member.ReceiverID
		} else if member.ReceiverID != receiverID {
			metrics.GuardRejectionsTotal.WithLabelValues(submission.KindBatch, "mixed-receivers").Inc()
			return nil, pkgerrors.ErrGuard.WithMessage("batch members must share one receiver")
		}
	}

	record := &Record{
		ReceiverID:   receiverID,
		Status:       StatusDraft,
		Members:      req.SubmissionIDs,
		PendingCount: len(req.SubmissionIDs),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	for _, id := range req.SubmissionIDs {
		if err := s.subs.AttachToBatch(ctx, id, record.ID); err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
		}
	}

	s.logger.InfowCtx(ctx, "Batch created", "batch_id", record.ID, "members", len(record.Members))
	return record, nil
}

func (s *service) guardMember(ctx context.Context, member *submission.Submission) error {
	if member.Kind != submission.KindClaim {
		return pkgerrors.ErrGuard.WithMessage("batch member " + member.ID + " is not a claim")
	}
	if member.Status != submission.StatusDraft {
		return pkgerrors.ErrGuard.WithMessage("batch member " + member.ID + " has already been submitted")
	}
	if member.BatchID == nil {
		return nil
	}

	current, err := s.repo.Get(ctx, *member.BatchID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if !current.reassignable() {
		return pkgerrors.ErrGuard.WithMessage("batch member " + member.ID + " belongs to an active batch")
	}
	return nil
}

func (s *service) Submit(ctx context.Context, batchID string) (*Record, error) {
	record, err := s.repo.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if record.Status != StatusDraft {
		metrics.GuardRejectionsTotal.WithLabelValues(submission.KindBatch, "invalid-status-for-submit").Inc()
		return nil, pkgerrors.ErrGuard.WithMessage("batch is not in draft state")
	}

	claims, err := s.memberClaims(ctx, record)
	if err != nil {
		return nil, err
	}

	receiver, err := s.resolver.Receiver(ctx, record.ReceiverID)
	if err != nil {
		return nil, err
	}

	env, err := s.builder.BatchRequest(receiver, record.ID, claims)
	if err != nil {
		return nil, err
	}
	rawRequest, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request envelope: %w", err)
	}

	if err := s.repo.MarkPending(ctx, record.ID, rawRequest); err != nil {
		return nil, err
	}
	record.Status = StatusPending
	record.RequestEnvelope = rawRequest
	s.notifier.BatchTransition(ctx, record.ID, StatusDraft, StatusPending)

	if err := s.auditStore.RecordOutbound(ctx, record.ID, env); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to archive outbound envelope", "error", err, "batch_id", record.ID)
	}

	// Batch payloads are large; the per-request timeout is stretched.
	result, err := s.client.Send(ctx, env, transport.WithTimeout(s.requestTimeout*constants.BatchTimeoutMultiplier))
	if err != nil {
		return s.failSubmit(ctx, record, transportRecords(err), err)
	}

	if err := s.auditStore.RecordInbound(ctx, record.ID, result.StatusCode, result.RawBody); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to archive inbound envelope", "error", err, "batch_id", record.ID)
	}

	outcome := s.validator.Evaluate(result.Envelope, models.EventBatchRequest)
	if !outcome.Success {
		return s.failSubmit(ctx, record, outcome.Errors, pkgerrors.ErrBusiness.WithRecords(outcome.Errors))
	}

	return s.acceptSubmit(ctx, record, rawRequest, outcome)
}

// acceptSubmit moves the batch and every member to queued, then applies any
// adjudications the exchange answered synchronously.
func (s *service) acceptSubmit(ctx context.Context, record *Record, rawRequest json.RawMessage, outcome *bundle.Outcome) (*Record, error) {
	for _, memberID := range record.Members {
		if err := s.subs.MarkPending(ctx, memberID, rawRequest); err != nil {
			return nil, err
		}
		if err := s.subs.MarkQueued(ctx, memberID); err != nil {
			return nil, err
		}
	}

	update := outcomeUpdate{
		Status:           StatusQueued,
		ResponseEnvelope: rawEnvelope(outcome),
	}
	if task, ok := outcome.Parsed.FirstTask(); ok {
		update.ExchangeID = task.ID
	}
	if err := s.repo.ApplyOutcome(ctx, record.ID, update); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	s.notifier.BatchTransition(ctx, record.ID, StatusPending, StatusQueued)

	if s.interactions != nil {
		if err := s.interactions.RecordQueuedSubmission(ctx, record.ID, "Batch", record.ID); err != nil {
			s.logger.WarnwCtx(ctx, "Failed to record queued interaction", "error", err, "batch_id", record.ID)
		}
	}

	if len(outcome.Parsed.ClaimResponses) > 0 {
		if _, err := s.ApplyAdjudications(ctx, record.ID, outcome.Parsed.ClaimResponses); err != nil {
			return nil, err
		}
	}

	return s.repo.Get(ctx, record.ID)
}

// failSubmit marks only the batch as failed. Members were not yet marked
// pending, so their claims stay draft and reassignable.
func (s *service) failSubmit(ctx context.Context, record *Record, records []models.ErrorRecord, cause error) (*Record, error) {
	update := outcomeUpdate{Status: StatusError, Errors: records}
	if err := s.repo.ApplyOutcome(ctx, record.ID, update); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to record batch failure", "error", err, "batch_id", record.ID)
	}
	s.notifier.BatchTransition(ctx, record.ID, StatusPending, StatusError)

	failed, err := s.repo.Get(ctx, record.ID)
	if err != nil {
		failed = record
	}
	return failed, cause
}

func (s *service) memberClaims(ctx context.Context, record *Record) ([]models.Claim, error) {
	claims := make([]models.Claim, 0, len(record.Members))
	for i, memberID := range record.Members {
		member, err := s.subs.Get(ctx, memberID)
		if err != nil {
			return nil, err
		}

		var claim models.Claim
		if err := json.Unmarshal(member.RequestPayload, &claim); err != nil {
			return nil, fmt.Errorf("failed to decode claim payload for member %s: %w", memberID, err)
		}
		claim.SequenceNumber = i + 1
		claims = append(claims, claim)
	}
	return claims, nil
}

func (s *service) ApplyAdjudications(ctx context.Context, batchID string, responses []models.ClaimResponse) (int, error) {
	record, err := s.repo.Get(ctx, batchID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	switch record.Status {
	case StatusDraft, StatusError, StatusComplete, StatusRejected:
		return 0, nil
	}

	applied := 0
	for _, cr := range responses {
		memberApplied, err := s.applyMember(ctx, record, cr)
		if err != nil {
			return applied, err
		}
		if memberApplied {
			applied++
		}
	}

	if err := s.recomputeAggregate(ctx, record); err != nil {
		return applied, err
	}
	return applied, nil
}

// applyMember advances one member by its sequence number. Results with an
// unknown or out-of-range sequence are skipped, never guessed at.
func (s *service) applyMember(ctx context.Context, record *Record, cr models.ClaimResponse) (bool, error) {
	seq := cr.SequenceNumber
	if seq < 1 || seq > len(record.Members) {
		s.logger.WarnwCtx(ctx, "Adjudication sequence out of range", "batch_id", record.ID, "sequence", seq)
		return false, nil
	}
	memberID := record.Members[seq-1]

	member, err := s.subs.Get(ctx, memberID)
	if err != nil {
		return false, err
	}

	category, err := s.validator.ClassifyClaim(ctx, models.EventClaimRequest, cr)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Disposition classification failed", "error", err, "submission_id", member.ID)
	}
	if category == cel.CategoryQueued || category == cel.CategoryUnknown {
		return false, nil
	}

	applied, err := s.subs.ApplyOutcomeIfQueued(ctx, member.ID, submission.OutcomeUpdate{
		Status:         memberStatus(cr),
		ExchangeID:     cr.ExchangeID,
		Disposition:    cr.Disposition,
		ApprovedAmount: cr.ApprovedAmount,
		DeniedAmount:   cr.DeniedAmount,
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func memberStatus(cr models.ClaimResponse) string {
	if cr.Outcome == models.OutcomeError {
		return submission.StatusError
	}
	return submission.StatusComplete
}

// recomputeAggregate folds current member states into the batch status.
func (s *service) recomputeAggregate(ctx context.Context, record *Record) error {
	members, err := s.subs.ListByBatch(ctx, record.ID)
	if err != nil {
		return err
	}

	categories := make([]cel.Category, 0, len(members))
	for _, member := range members {
		categories = append(categories, s.memberCategory(ctx, member))
	}

	status, counts := Aggregate(categories)
	if err := s.repo.UpdateAggregate(ctx, record.ID, status, counts); err != nil {
		return err
	}
	metrics.BatchAggregatesTotal.WithLabelValues(status).Inc()

	if status != record.Status {
		s.notifier.BatchTransition(ctx, record.ID, record.Status, status)
		s.logger.InfowCtx(ctx, "Batch aggregate recomputed", "batch_id", record.ID,
			"status", status, "approved", counts.Approved, "rejected", counts.Rejected, "pending", counts.Pending)
	}
	return nil
}

func (s *service) memberCategory(ctx context.Context, member submission.Submission) cel.Category {
	switch member.Status {
	case submission.StatusError:
		return cel.CategoryDenied
	case submission.StatusComplete:
	default:
		return cel.CategoryQueued
	}

	category, err := s.validator.ClassifyClaim(ctx, models.EventClaimRequest, models.ClaimResponse{
		Outcome:        models.OutcomeComplete,
		Disposition:    member.Disposition,
		ApprovedAmount: member.ApprovedAmount,
		DeniedAmount:   member.DeniedAmount,
	})
	if err != nil || category == cel.CategoryQueued || category == cel.CategoryUnknown {
		// A terminal member with an unrecognized disposition still counts
		// against full approval.
		return cel.CategoryDenied
	}
	return category
}

func transportRecords(err error) []models.ErrorRecord {
	if records := pkgerrors.RecordsOf(err); len(records) > 0 {
		return records
	}
	return []models.ErrorRecord{{
		Source:  models.ErrorSourceTransport,
		Code:    "transport-failure",
		Message: err.Error(),
	}}
}

func rawEnvelope(outcome *bundle.Outcome) json.RawMessage {
	if outcome.Parsed == nil || outcome.Parsed.Envelope == nil {
		return nil
	}
	raw, err := json.Marshal(outcome.Parsed.Envelope)
	if err != nil {
		return nil
	}
	return raw
}
