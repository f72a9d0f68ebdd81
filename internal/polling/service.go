package polling

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"claimgate/internal/bundle"
	"claimgate/internal/identity"
	"claimgate/internal/logger"
	"claimgate/internal/transport"
	pkgerrors "claimgate/pkg/errors"
	"claimgate/pkg/metrics"
	"claimgate/pkg/models"
)

// SubmissionApplier is the queued → terminal edge of the submission state
// machine. Satisfied by the submission service.
type SubmissionApplier interface {
	ApplyAdjudication(ctx context.Context, cr models.ClaimResponse) (bool, error)
	ApplyEligibilityAdjudication(ctx context.Context, er models.EligibilityResponse) (bool, error)
}

// BatchApplier re-associates batch adjudications by sequence number and
// recomputes the batch aggregate. Satisfied by the batch service; wired at
// startup to avoid a dependency from this package on the batch domain.
type BatchApplier interface {
	ApplyAdjudications(ctx context.Context, batchID string, responses []models.ClaimResponse) (int, error)
}

type Service interface {
	// Poll issues one poll cycle, optionally scoped to a focal resource. A
	// nil focus retrieves all outstanding items for the sender.
	Poll(ctx context.Context, focus *models.Reference) (*PollResult, error)

	// PollAll runs one focused poll per focal resource with outstanding
	// work, in parallel.
	PollAll(ctx context.Context) (*PollResult, error)
}

type service struct {
	repo          Repository
	client        transport.Client
	builder       *bundle.Builder
	validator     *bundle.Validator
	resolver      identity.Resolver
	submissions   SubmissionApplier
	batches       BatchApplier
	locker        FocusLocker
	receiverID    string
	maxConcurrent int
	logger        logger.Logger
}

type Options struct {
	Repo          Repository
	Client        transport.Client
	Builder       *bundle.Builder
	Validator     *bundle.Validator
	Resolver      identity.Resolver
	Submissions   SubmissionApplier
	Batches       BatchApplier
	Locker        FocusLocker
	ReceiverID    string
	MaxConcurrent int
	Logger        logger.Logger
}

func NewService(opts Options) Service {
	s := &service{
		repo:          opts.Repo,
		client:        opts.Client,
		builder:       opts.Builder,
		validator:     opts.Validator,
		resolver:      opts.Resolver,
		submissions:   opts.Submissions,
		batches:       opts.Batches,
		locker:        opts.Locker,
		receiverID:    opts.ReceiverID,
		maxConcurrent: opts.MaxConcurrent,
		logger:        opts.Logger,
	}
	if s.locker == nil {
		s.locker = NewLocalFocusLocker()
	}
	if s.maxConcurrent <= 0 {
		s.maxConcurrent = 4
	}
	return s
}

// lock key for an unscoped poll. Unscoped cycles retrieve everything, so
// two of them must not interleave either.
const unscopedFocus = "all"

func (s *service) Poll(ctx context.Context, focus *models.Reference) (*PollResult, error) {
	lockKey := unscopedFocus
	if focus != nil {
		lockKey = focus.ID
	}

	release, acquired, err := s.locker.Acquire(ctx, lockKey)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if !acquired {
		return nil, pkgerrors.ErrConflict.WithMessage("a poll for this focus is already in progress")
	}
	defer release(ctx)

	started := time.Now()
	result, err := s.pollLocked(ctx, focus)
	if err != nil {
		metrics.ObservePollCycle("error", time.Since(started))
		return nil, err
	}

	metrics.ObservePollCycle("ok", time.Since(started))
	return result, nil
}

func (s *service) pollLocked(ctx context.Context, focus *models.Reference) (*PollResult, error) {
	receiver, err := s.resolver.Receiver(ctx, s.receiverID)
	if err != nil {
		return nil, err
	}

	env, err := s.builder.PollRequest(receiver, focus)
	if err != nil {
		return nil, err
	}

	transported, err := s.client.Send(ctx, env)
	if err != nil {
		return nil, err
	}

	// A poll cycle that fails validation surfaces its error records and
	// leaves every pending interaction untouched.
	outcome := s.validator.Evaluate(transported.Envelope, models.EventPollRequest)
	if !outcome.Success {
		return nil, pkgerrors.ErrBusiness.WithRecords(outcome.Errors)
	}

	return s.reconcile(ctx, outcome.Parsed)
}

// reconcile demultiplexes a validated poll response and applies each bucket:
// adjudications advance submissions, information requests open interactions,
// acknowledgments close them. Every step is idempotent.
func (s *service) reconcile(ctx context.Context, parsed *bundle.Parsed) (*PollResult, error) {
	result := &PollResult{
		Adjudications:       parsed.ClaimResponses,
		InformationRequests: parsed.CommunicationRequests,
	}

	batched := make(map[string][]models.ClaimResponse)
	for _, cr := range parsed.ClaimResponses {
		metrics.PollResultsTotal.WithLabelValues("adjudication").Inc()

		if cr.BatchID != "" {
			batched[cr.BatchID] = append(batched[cr.BatchID], cr)
			continue
		}

		applied, err := s.submissions.ApplyAdjudication(ctx, cr)
		if err != nil {
			return nil, err
		}
		if applied {
			result.Applied++
			if _, err := s.repo.CloseByFocus(ctx, InteractionQueuedSubmission, cr.ClaimID); err != nil {
				s.logger.WarnwCtx(ctx, "Failed to close queued interaction", "error", err, "claim_id", cr.ClaimID)
			}
		}
	}

	for batchID, responses := range batched {
		applied, err := s.batchApply(ctx, batchID, responses)
		if err != nil {
			return nil, err
		}
		result.Applied += applied
	}

	for _, er := range parsed.EligibilityResponses {
		metrics.PollResultsTotal.WithLabelValues("adjudication").Inc()
		applied, err := s.submissions.ApplyEligibilityAdjudication(ctx, er)
		if err != nil {
			return nil, err
		}
		if applied {
			result.Applied++
			if _, err := s.repo.CloseByFocus(ctx, InteractionQueuedSubmission, er.CoverageID); err != nil {
				s.logger.WarnwCtx(ctx, "Failed to close queued interaction", "error", err, "coverage_id", er.CoverageID)
			}
		}
	}

	for _, req := range parsed.CommunicationRequests {
		metrics.PollResultsTotal.WithLabelValues("information_request").Inc()

		interaction := &PendingInteraction{
			Kind:              InteractionInformationRequest,
			ExchangeRequestID: req.ID,
			DedupKey:          dedupKey(InteractionInformationRequest, req.ID),
		}
		if req.About != nil {
			interaction.FocusType = req.About.Type
			interaction.FocusID = req.About.ID
		}

		created, err := s.repo.CreateIfAbsent(ctx, interaction)
		if err != nil {
			return nil, err
		}
		if created {
			result.Applied++
		}
	}

	for _, comm := range parsed.Communications {
		if comm.InResponseTo == "" {
			continue
		}
		metrics.PollResultsTotal.WithLabelValues("acknowledgment").Inc()
		result.Acknowledgments = append(result.Acknowledgments, comm)

		closed, err := s.repo.CloseByFocus(ctx, InteractionCommunicationAck, comm.InResponseTo)
		if err != nil {
			return nil, err
		}
		if closed {
			result.Applied++
		}
	}

	return result, nil
}

func (s *service) batchApply(ctx context.Context, batchID string, responses []models.ClaimResponse) (int, error) {
	if s.batches == nil {
		s.logger.Warnw("Batch adjudications received with no batch applier wired", "batch_id", batchID)
		return 0, nil
	}

	applied, err := s.batches.ApplyAdjudications(ctx, batchID, responses)
	if err != nil {
		return 0, err
	}
	if applied > 0 {
		if _, err := s.repo.CloseByFocus(ctx, InteractionQueuedSubmission, batchID); err != nil {
			s.logger.WarnwCtx(ctx, "Failed to close batch interaction", "error", err, "batch_id", batchID)
		}
	}
	return applied, nil
}

func (s *service) PollAll(ctx context.Context) (*PollResult, error) {
	foci, err := s.repo.ListOpenFoci(ctx)
	if err != nil {
		return nil, err
	}
	if len(foci) == 0 {
		return &PollResult{}, nil
	}

	var mu sync.Mutex
	merged := &PollResult{}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for _, focus := range foci {
		focus := focus
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = pkgerrors.RecoverPanic(r)
					s.logger.Errorw("Panic recovered during poll", "error", err, "focus_id", focus.ID)
				}
			}()

			result, pollErr := s.Poll(groupCtx, &models.Reference{Type: focus.Type, ID: focus.ID})
			if pollErr != nil {
				// A contended focus is being handled elsewhere; skip it.
				if pkgerrors.IsConflict(pollErr) {
					return nil
				}
				return pollErr
			}

			mu.Lock()
			merged.Adjudications = append(merged.Adjudications, result.Adjudications...)
			merged.InformationRequests = append(merged.InformationRequests, result.InformationRequests...)
			merged.Acknowledgments = append(merged.Acknowledgments, result.Acknowledgments...)
			merged.Applied += result.Applied
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merged, nil
}
