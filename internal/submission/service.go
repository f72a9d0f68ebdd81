package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"claimgate/internal/audit"
	"claimgate/internal/bundle"
	"claimgate/internal/constants"
	"claimgate/internal/identity"
	"claimgate/internal/logger"
	"claimgate/internal/transport"
	"claimgate/pkg/cel"
	pkgerrors "claimgate/pkg/errors"
	"claimgate/pkg/metrics"
	"claimgate/pkg/models"
)

// InteractionRecorder registers deferred work discovered while handling a
// submission: a queued adjudication or an unacknowledged communication.
// Implemented by the polling repository; wired at startup.
type InteractionRecorder interface {
	RecordQueuedSubmission(ctx context.Context, submissionID, focusType, focusID string) error
	RecordUnacknowledgedCommunication(ctx context.Context, submissionID, communicationID string) error
}

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*Submission, error)

	// CreateDraft stores a validated submission without transmitting it.
	// Draft claims are the raw material for batches.
	CreateDraft(ctx context.Context, req SubmitRequest) (*Submission, error)
	Cancel(ctx context.Context, submissionID, reason string) (*Submission, error)
	StatusCheck(ctx context.Context, submissionID string) (*Submission, error)
	Get(ctx context.Context, id string) (*Submission, error)

	// ApplyAdjudication advances a queued submission from a polled claim
	// adjudication. Returns false when nothing was applied.
	ApplyAdjudication(ctx context.Context, cr models.ClaimResponse) (bool, error)

	// ApplyEligibilityAdjudication is the same edge for a deferred
	// eligibility result, correlated by coverage identifier.
	ApplyEligibilityAdjudication(ctx context.Context, er models.EligibilityResponse) (bool, error)

	// RecoverStuckPending flags records left pending by a crash as queued so
	// the poll engine picks them up.
	RecoverStuckPending(ctx context.Context) (int, error)
}

type service struct {
	repo         Repository
	client       transport.Client
	builder      *bundle.Builder
	validator    *bundle.Validator
	resolver     identity.Resolver
	interactions InteractionRecorder
	auditStore   audit.Store
	notifier     *LifecycleNotifier
	cache        EligibilityCache
	sweepAge     time.Duration
	logger       logger.Logger
}

type Options struct {
	Repo         Repository
	Client       transport.Client
	Builder      *bundle.Builder
	Validator    *bundle.Validator
	Resolver     identity.Resolver
	Interactions InteractionRecorder
	Audit        audit.Store
	Notifier     *LifecycleNotifier
	Cache        EligibilityCache
	SweepAge     time.Duration
	Logger       logger.Logger
}

func NewService(opts Options) Service {
	s := &service{
		repo:         opts.Repo,
		client:       opts.Client,
		builder:      opts.Builder,
		validator:    opts.Validator,
		resolver:     opts.Resolver,
		interactions: opts.Interactions,
		auditStore:   opts.Audit,
		notifier:     opts.Notifier,
		cache:        opts.Cache,
		sweepAge:     opts.SweepAge,
		logger:       opts.Logger,
	}
	if s.auditStore == nil {
		s.auditStore = audit.NopStore{}
	}
	if s.cache == nil {
		s.cache = NopEligibilityCache{}
	}
	if s.sweepAge <= 0 {
		s.sweepAge = constants.DefaultPendingSweepAge
	}
	return s
}

func (s *service) Get(ctx context.Context, id string) (*Submission, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) Submit(ctx context.Context, req SubmitRequest) (*Submission, error) {
	if err := s.guardSubmit(req); err != nil {
		metrics.GuardRejectionsTotal.WithLabelValues(req.Kind, "invalid-request").Inc()
		return nil, err
	}

	if req.Kind == KindCommunication && req.Communication.ID == "" {
		req.Communication.ID = uuid.New().String()
	}

	if req.Kind == KindEligibility {
		if cached, err := s.cachedEligibility(ctx, req); err != nil {
			s.logger.WarnwCtx(ctx, "Eligibility cache lookup failed", "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	sub := newSubmission(req)
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	receiver, err := s.resolver.Receiver(ctx, req.ReceiverID)
	if err != nil {
		metrics.GuardRejectionsTotal.WithLabelValues(req.Kind, "unresolved-receiver").Inc()
		return s.failBeforeTransport(ctx, sub, err)
	}

	env, err := s.buildEnvelope(req, receiver)
	if err != nil {
		return s.failBeforeTransport(ctx, sub, err)
	}

	return s.transmit(ctx, sub, env)
}

func (s *service) CreateDraft(ctx context.Context, req SubmitRequest) (*Submission, error) {
	if err := s.guardSubmit(req); err != nil {
		metrics.GuardRejectionsTotal.WithLabelValues(req.Kind, "invalid-request").Inc()
		return nil, err
	}

	if req.Kind == KindCommunication && req.Communication.ID == "" {
		req.Communication.ID = uuid.New().String()
	}

	sub := newSubmission(req)
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	return sub, nil
}

// transmit drives pending → {queued, complete, error} for one envelope. The
// request envelope is recorded on the draft → pending transition and never
// changes afterwards.
func (s *service) transmit(ctx context.Context, sub *Submission, env *models.Envelope) (*Submission, error) {
	rawRequest, err := json.Marshal(env)
	if err != nil {
		return s.failBeforeTransport(ctx, sub, fmt.Errorf("failed to encode request envelope: %w", err))
	}

	if err := s.repo.MarkPending(ctx, sub.ID, rawRequest); err != nil {
		return nil, err
	}
	sub.Status = StatusPending
	sub.RequestEnvelope = rawRequest
	s.notifier.SubmissionTransition(ctx, sub, StatusDraft)

	if err := s.auditStore.RecordOutbound(ctx, sub.ID, env); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to archive outbound envelope", "error", err, "submission_id", sub.ID)
	}

	result, err := s.client.Send(ctx, env)
	if err != nil {
		return s.applyFailure(ctx, sub, transportRecords(err), err)
	}

	if err := s.auditStore.RecordInbound(ctx, sub.ID, result.StatusCode, result.RawBody); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to archive inbound envelope", "error", err, "submission_id", sub.ID)
	}

	header, err := env.Header()
	if err != nil {
		return nil, err
	}

	outcome := s.validator.Evaluate(result.Envelope, header.EventKind)
	if !outcome.Success {
		return s.applyFailure(ctx, sub, outcome.Errors, pkgerrors.ErrBusiness.WithRecords(outcome.Errors))
	}

	return s.applySuccess(ctx, sub, header.EventKind, outcome)
}

// applySuccess reads the validated payload and decides between queued and
// complete. The response envelope, derived outcome fields and the status
// land in one atomic update.
func (s *service) applySuccess(ctx context.Context, sub *Submission, kind models.EventKind, outcome *bundle.Outcome) (*Submission, error) {
	update := OutcomeUpdate{
		Status:           StatusComplete,
		ResponseEnvelope: rawEnvelope(outcome),
		Errors:           outcome.Errors,
	}
	if outcome.Parsed != nil && outcome.Parsed.Envelope != nil {
		update.ExchangeID = outcome.Parsed.Envelope.ID
	}

	var queuedFocus *models.Reference

	switch kind {
	case models.EventEligibilityRequest:
		if er, ok := outcome.Parsed.FirstEligibilityResponse(); ok {
			category, err := s.validator.ClassifyEligibility(ctx, er)
			if err != nil {
				s.logger.WarnwCtx(ctx, "Disposition classification failed", "error", err, "submission_id", sub.ID)
			}
			update.Disposition = er.Disposition
			if category == cel.CategoryQueued {
				update.Status = StatusQueued
				queuedFocus = &models.Reference{Type: "EligibilityRequest", ID: sub.FocusID}
			} else if err := s.cache.Set(ctx, sub.CoverageID, &er); err != nil {
				s.logger.WarnwCtx(ctx, "Failed to cache eligibility result", "error", err)
			}
		}

	case models.EventClaimRequest, models.EventPriorAuthRequest:
		if cr, ok := outcome.Parsed.FirstClaimResponse(); ok {
			category, err := s.validator.ClassifyClaim(ctx, kind, cr)
			if err != nil {
				s.logger.WarnwCtx(ctx, "Disposition classification failed", "error", err, "submission_id", sub.ID)
			}
			update.Disposition = cr.Disposition
			update.ApprovedAmount = cr.ApprovedAmount
			update.DeniedAmount = cr.DeniedAmount
			if cr.ExchangeID != "" {
				update.ExchangeID = cr.ExchangeID
			}
			if category == cel.CategoryQueued {
				update.Status = StatusQueued
				queuedFocus = &models.Reference{Type: "Claim", ID: sub.FocusID}
			}
		}

	case models.EventCancelRequest:
		if task, ok := outcome.Parsed.FirstTask(); ok {
			update.Disposition = "cancelled"
			if task.Status != models.TaskCompleted {
				update.Status = StatusQueued
				queuedFocus = &models.Reference{Type: "Task", ID: task.ID}
			}
		}

	case models.EventCommunication:
		// Delivery confirmed; acknowledgment arrives through a later poll
		// and resolves the pending interaction, not the submission status.
		if s.interactions != nil {
			if err := s.interactions.RecordUnacknowledgedCommunication(ctx, sub.ID, sub.FocusID); err != nil {
				s.logger.WarnwCtx(ctx, "Failed to record communication interaction", "error", err, "submission_id", sub.ID)
			}
		}
	}

	if err := s.repo.ApplyOutcome(ctx, sub.ID, update); err != nil {
		return nil, err
	}

	if update.Status == StatusQueued && s.interactions != nil && queuedFocus != nil {
		if err := s.interactions.RecordQueuedSubmission(ctx, sub.ID, queuedFocus.Type, queuedFocus.ID); err != nil {
			s.logger.WarnwCtx(ctx, "Failed to record queued interaction", "error", err, "submission_id", sub.ID)
		}
	}

	return s.finishTransition(ctx, sub)
}

func (s *service) applyFailure(ctx context.Context, sub *Submission, records []models.ErrorRecord, cause error) (*Submission, error) {
	update := OutcomeUpdate{
		Status: StatusError,
		Errors: records,
	}
	if err := s.repo.ApplyOutcome(ctx, sub.ID, update); err != nil {
		return nil, err
	}

	updated, err := s.finishTransition(ctx, sub)
	if err != nil {
		return nil, err
	}
	return updated, cause
}

func (s *service) failBeforeTransport(ctx context.Context, sub *Submission, cause error) (*Submission, error) {
	records := pkgerrors.RecordsOf(cause)
	if len(records) == 0 {
		records = []models.ErrorRecord{{
			Source:  models.ErrorSourceGuard,
			Code:    "precondition-failed",
			Message: cause.Error(),
		}}
	}

	if err := s.repo.ApplyOutcome(ctx, sub.ID, OutcomeUpdate{Status: StatusError, Errors: records}); err != nil {
		return nil, err
	}
	if _, err := s.finishTransition(ctx, sub); err != nil {
		return nil, err
	}
	return nil, cause
}

func (s *service) finishTransition(ctx context.Context, sub *Submission) (*Submission, error) {
	fromStatus := sub.Status

	updated, err := s.repo.Get(ctx, sub.ID)
	if err != nil {
		return nil, err
	}

	metrics.SubmissionsTotal.WithLabelValues(updated.Kind, updated.Status).Inc()
	s.notifier.SubmissionTransition(ctx, updated, fromStatus)
	s.logger.InfowCtx(ctx, "Submission transitioned",
		"submission_id", updated.ID,
		"kind", updated.Kind,
		"from_status", fromStatus,
		"to_status", updated.Status,
	)

	return updated, nil
}

// Cancel submits a cancel-request for an in-flight submission. A terminal
// target fails the guard before any transport attempt.
func (s *service) Cancel(ctx context.Context, submissionID, reason string) (*Submission, error) {
	target, err := s.repo.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	if target.IsTerminal() {
		metrics.GuardRejectionsTotal.WithLabelValues(KindCancel, "terminal-target").Inc()
		return nil, pkgerrors.ErrGuard.
			WithMessage(fmt.Sprintf("submission %s is %s and cannot be cancelled", target.ID, target.Status)).
			WithRecords([]models.ErrorRecord{{
				Source:  models.ErrorSourceGuard,
				Code:    "invalid-status-for-cancel",
				Message: fmt.Sprintf("submission is already %s", target.Status),
			}})
	}
	if target.FocusID == "" {
		metrics.GuardRejectionsTotal.WithLabelValues(KindCancel, "missing-focus").Inc()
		return nil, pkgerrors.ErrGuard.WithMessage("submission has no focal resource to cancel")
	}

	receiver, err := s.resolver.Receiver(ctx, target.ReceiverID)
	if err != nil {
		return nil, err
	}

	cancelSub := &Submission{
		Kind:       KindCancel,
		ReceiverID: target.ReceiverID,
		FocusType:  target.FocusType,
		FocusID:    target.FocusID,
	}
	if err := s.repo.Create(ctx, cancelSub); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	env, err := s.builder.CancelRequest(receiver, models.Reference{Type: target.FocusType, ID: target.FocusID}, reason)
	if err != nil {
		return s.failBeforeTransport(ctx, cancelSub, err)
	}

	result, err := s.transmit(ctx, cancelSub, env)
	if err != nil {
		return result, err
	}

	// A completed cancel closes the target: it will never adjudicate.
	if result.Status == StatusComplete {
		updateErr := s.repo.ApplyOutcome(ctx, target.ID, OutcomeUpdate{
			Status:      StatusError,
			Disposition: "cancelled",
			Errors: []models.ErrorRecord{{
				Source:  models.ErrorSourceGuard,
				Code:    "cancelled-by-submitter",
				Message: reason,
			}},
		})
		if updateErr != nil {
			return nil, updateErr
		}
		if _, err := s.finishTransition(ctx, target); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// StatusCheck sends a focused status-check for one queued submission. The
// response travels the same task correlation path a poll result does.
func (s *service) StatusCheck(ctx context.Context, submissionID string) (*Submission, error) {
	target, err := s.repo.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if target.Status != StatusQueued {
		metrics.GuardRejectionsTotal.WithLabelValues(target.Kind, "not-queued").Inc()
		return nil, pkgerrors.ErrGuard.WithMessage(fmt.Sprintf("submission %s is %s, status-check requires queued", target.ID, target.Status))
	}

	receiver, err := s.resolver.Receiver(ctx, target.ReceiverID)
	if err != nil {
		return nil, err
	}

	env, err := s.builder.StatusCheck(receiver, models.Reference{Type: target.FocusType, ID: target.FocusID})
	if err != nil {
		return nil, err
	}

	result, err := s.client.Send(ctx, env)
	if err != nil {
		return nil, err
	}

	outcome := s.validator.Evaluate(result.Envelope, models.EventStatusCheck)
	if !outcome.Success {
		return nil, pkgerrors.ErrBusiness.WithRecords(outcome.Errors)
	}

	// A completed task with a claim adjudication alongside resolves the
	// submission immediately; otherwise it stays queued.
	if cr, ok := outcome.Parsed.FirstClaimResponse(); ok {
		if cr.ClaimID == "" {
			cr.ClaimID = target.FocusID
		}
		if _, err := s.ApplyAdjudication(ctx, cr); err != nil {
			return nil, err
		}
	}

	return s.repo.Get(ctx, submissionID)
}

// ApplyAdjudication is the queued → {complete, error} edge. Only the poll
// and status-check paths call it; a submission not in queued state is left
// untouched so re-polls stay idempotent.
func (s *service) ApplyAdjudication(ctx context.Context, cr models.ClaimResponse) (bool, error) {
	focusID := cr.ClaimID
	if focusID == "" {
		return false, nil
	}

	sub, err := s.repo.GetByFocusID(ctx, focusID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	category, err := s.validator.ClassifyClaim(ctx, models.EventKind(sub.Kind), cr)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Disposition classification failed", "error", err, "submission_id", sub.ID)
	}
	if category == cel.CategoryQueued || category == cel.CategoryUnknown {
		return false, nil
	}

	update := OutcomeUpdate{
		Status:         StatusComplete,
		ExchangeID:     cr.ExchangeID,
		Disposition:    cr.Disposition,
		ApprovedAmount: cr.ApprovedAmount,
		DeniedAmount:   cr.DeniedAmount,
	}
	if cr.Outcome == models.OutcomeError {
		update.Status = StatusError
		update.Errors = []models.ErrorRecord{{
			Source:  models.ErrorSourceOperationOutcome,
			Code:    "adjudication-error",
			Message: cr.Disposition,
		}}
	}

	applied, err := s.repo.ApplyOutcomeIfQueued(ctx, sub.ID, update)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}

	if _, err := s.finishTransition(ctx, sub); err != nil {
		return true, err
	}
	return true, nil
}

func (s *service) ApplyEligibilityAdjudication(ctx context.Context, er models.EligibilityResponse) (bool, error) {
	if er.CoverageID == "" {
		return false, nil
	}

	sub, err := s.repo.GetByFocusID(ctx, er.CoverageID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	category, err := s.validator.ClassifyEligibility(ctx, er)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Disposition classification failed", "error", err, "submission_id", sub.ID)
	}
	if category == cel.CategoryQueued || category == cel.CategoryUnknown {
		return false, nil
	}

	applied, err := s.repo.ApplyOutcomeIfQueued(ctx, sub.ID, OutcomeUpdate{
		Status:      StatusComplete,
		Disposition: er.Disposition,
	})
	if err != nil || !applied {
		return false, err
	}

	if err := s.cache.Set(ctx, er.CoverageID, &er); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to cache eligibility result", "error", err)
	}

	if _, err := s.finishTransition(ctx, sub); err != nil {
		return true, err
	}
	return true, nil
}

// RecoverStuckPending implements the startup sweep: a crash between send
// and outcome recorded leaves records pending; flagging them queued hands
// them to the poll engine.
func (s *service) RecoverStuckPending(ctx context.Context) (int, error) {
	stuck, err := s.repo.ListStuckPending(ctx, s.sweepAge)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for i := range stuck {
		sub := &stuck[i]
		if err := s.repo.MarkQueued(ctx, sub.ID); err != nil {
			s.logger.WarnwCtx(ctx, "Failed to recover stuck submission", "error", err, "submission_id", sub.ID)
			continue
		}
		if s.interactions != nil {
			if err := s.interactions.RecordQueuedSubmission(ctx, sub.ID, sub.FocusType, sub.FocusID); err != nil {
				s.logger.WarnwCtx(ctx, "Failed to record recovered interaction", "error", err, "submission_id", sub.ID)
			}
		}
		recovered++
	}

	if recovered > 0 {
		s.logger.Infow("Recovered stuck pending submissions", "count", recovered)
	}
	return recovered, nil
}

func (s *service) cachedEligibility(ctx context.Context, req SubmitRequest) (*Submission, error) {
	cached, err := s.cache.Get(ctx, req.Eligibility.CoverageID)
	if err != nil || cached == nil {
		return nil, err
	}

	sub := newSubmission(req)
	sub.Status = StatusComplete
	sub.Disposition = cached.Disposition
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if err := s.repo.ApplyOutcome(ctx, sub.ID, OutcomeUpdate{Status: StatusComplete, Disposition: cached.Disposition}); err != nil {
		return nil, err
	}

	s.logger.InfowCtx(ctx, "Eligibility served from cache", "coverage_id", req.Eligibility.CoverageID)
	return s.repo.Get(ctx, sub.ID)
}

func (s *service) guardSubmit(req SubmitRequest) error {
	if req.ReceiverID == "" {
		return pkgerrors.ErrGuard.WithMessage("receiver id is required")
	}

	switch req.Kind {
	case KindEligibility:
		if req.Eligibility == nil {
			return pkgerrors.ErrGuard.WithMessage("eligibility payload is required")
		}
		if req.Eligibility.PatientID == "" || req.Eligibility.CoverageID == "" {
			return pkgerrors.ErrGuard.WithMessage("eligibility requires patient and coverage identifiers")
		}
	case KindClaim, KindPriorAuth:
		if req.Claim == nil {
			return pkgerrors.ErrGuard.WithMessage("claim payload is required")
		}
		if req.Claim.ID == "" || req.Claim.PatientID == "" {
			return pkgerrors.ErrGuard.WithMessage("claim requires id and patient identifier")
		}
	case KindCommunication:
		if req.Communication == nil {
			return pkgerrors.ErrGuard.WithMessage("communication payload is required")
		}
	default:
		return pkgerrors.ErrGuard.WithMessage(fmt.Sprintf("unsupported submission kind: %s", req.Kind))
	}

	return nil
}

func (s *service) buildEnvelope(req SubmitRequest, receiver models.Identity) (*models.Envelope, error) {
	switch req.Kind {
	case KindEligibility:
		return s.builder.EligibilityRequest(receiver, *req.Eligibility)
	case KindClaim:
		return s.builder.ClaimRequest(models.EventClaimRequest, receiver, *req.Claim)
	case KindPriorAuth:
		return s.builder.ClaimRequest(models.EventPriorAuthRequest, receiver, *req.Claim)
	case KindCommunication:
		return s.builder.Communication(receiver, *req.Communication)
	default:
		return nil, pkgerrors.ErrGuard.WithMessage(fmt.Sprintf("unsupported submission kind: %s", req.Kind))
	}
}

func newSubmission(req SubmitRequest) *Submission {
	sub := &Submission{
		Kind:       req.Kind,
		Status:     StatusDraft,
		ReceiverID: req.ReceiverID,
	}

	switch {
	case req.Eligibility != nil:
		sub.FocusType = "EligibilityRequest"
		sub.FocusID = req.Eligibility.CoverageID
		sub.PatientID = req.Eligibility.PatientID
		sub.CoverageID = req.Eligibility.CoverageID
		sub.InsurerID = req.Eligibility.InsurerID
		sub.RequestPayload = marshalPayload(req.Eligibility)
	case req.Claim != nil:
		sub.FocusType = "Claim"
		sub.FocusID = req.Claim.ID
		sub.PatientID = req.Claim.PatientID
		sub.CoverageID = req.Claim.CoverageID
		sub.ProviderID = req.Claim.ProviderID
		sub.InsurerID = req.Claim.InsurerID
		sub.RequestPayload = marshalPayload(req.Claim)
	case req.Communication != nil:
		sub.FocusType = "Communication"
		sub.FocusID = req.Communication.ID
		sub.RequestPayload = marshalPayload(req.Communication)
	}

	return sub
}

func marshalPayload(v interface{}) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
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
