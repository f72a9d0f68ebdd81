package bundle

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"claimgate/pkg/models"
)

// Builder assembles outbound envelopes. Apart from the generated envelope id
// and timestamp, the same inputs always produce the same envelope.
type Builder struct {
	sender models.Identity
}

func NewBuilder(sender models.Identity) *Builder {
	return &Builder{sender: sender}
}

func (b *Builder) newEnvelope(kind models.EventKind, receiver models.Identity, focus *models.Reference) (*models.Envelope, error) {
	header := models.MessageHeader{
		EventKind: kind,
		Sender:    b.sender,
		Receiver:  receiver,
		Focus:     focus,
	}

	entry, err := models.NewEntry(models.ResourceMessageHeader, header)
	if err != nil {
		return nil, err
	}

	return &models.Envelope{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Entries:   []models.Entry{entry},
	}, nil
}

func appendResource(env *models.Envelope, resourceType string, resource interface{}) error {
	entry, err := models.NewEntry(resourceType, resource)
	if err != nil {
		return err
	}
	env.Entries = append(env.Entries, entry)
	return nil
}

// EligibilityRequest builds an eligibility-request envelope for one coverage.
func (b *Builder) EligibilityRequest(receiver models.Identity, req models.EligibilityRequest) (*models.Envelope, error) {
	env, err := b.newEnvelope(models.EventEligibilityRequest, receiver, &models.Reference{
		Type: models.ResourceEligibilityRequest,
		ID:   req.CoverageID,
	})
	if err != nil {
		return nil, err
	}
	if err := appendResource(env, models.ResourceEligibilityRequest, req); err != nil {
		return nil, err
	}
	return env, nil
}

// ClaimRequest builds a claim-request or priorauth-request envelope.
func (b *Builder) ClaimRequest(kind models.EventKind, receiver models.Identity, claim models.Claim) (*models.Envelope, error) {
	if kind != models.EventClaimRequest && kind != models.EventPriorAuthRequest {
		return nil, fmt.Errorf("event kind %s does not carry a claim payload", kind)
	}
	env, err := b.newEnvelope(kind, receiver, &models.Reference{Type: models.ResourceClaim, ID: claim.ID})
	if err != nil {
		return nil, err
	}
	if err := appendResource(env, models.ResourceClaim, claim); err != nil {
		return nil, err
	}
	return env, nil
}

// BatchRequest builds one batch-request envelope embedding every member
// claim. Claims must already carry their batch sequence numbers.
func (b *Builder) BatchRequest(receiver models.Identity, batchID string, claims []models.Claim) (*models.Envelope, error) {
	env, err := b.newEnvelope(models.EventBatchRequest, receiver, &models.Reference{Type: "Batch", ID: batchID})
	if err != nil {
		return nil, err
	}
	for _, claim := range claims {
		if claim.SequenceNumber < 1 {
			return nil, fmt.Errorf("claim %s has no batch sequence number", claim.ID)
		}
		if err := appendResource(env, models.ResourceClaim, claim); err != nil {
			return nil, err
		}
	}
	return env, nil
}

// CancelRequest builds a cancel-request envelope scoped to a previously
// submitted claim.
func (b *Builder) CancelRequest(receiver models.Identity, focus models.Reference, reason string) (*models.Envelope, error) {
	env, err := b.newEnvelope(models.EventCancelRequest, receiver, &focus)
	if err != nil {
		return nil, err
	}
	task := models.Task{
		ID:        uuid.New().String(),
		Code:      "cancel",
		Status:    models.TaskRequested,
		FocusType: focus.Type,
		FocusID:   focus.ID,
		Reason:    reason,
	}
	if err := appendResource(env, models.ResourceTask, task); err != nil {
		return nil, err
	}
	return env, nil
}

// PollRequest builds a poll-request envelope. A nil focus retrieves every
// outstanding item for the sender.
func (b *Builder) PollRequest(receiver models.Identity, focus *models.Reference) (*models.Envelope, error) {
	env, err := b.newEnvelope(models.EventPollRequest, receiver, focus)
	if err != nil {
		return nil, err
	}
	task := models.Task{
		ID:     uuid.New().String(),
		Code:   "poll",
		Status: models.TaskRequested,
	}
	if focus != nil {
		task.FocusType = focus.Type
		task.FocusID = focus.ID
	}
	if err := appendResource(env, models.ResourceTask, task); err != nil {
		return nil, err
	}
	return env, nil
}

// StatusCheck builds a status-check envelope for one queued submission.
func (b *Builder) StatusCheck(receiver models.Identity, focus models.Reference) (*models.Envelope, error) {
	env, err := b.newEnvelope(models.EventStatusCheck, receiver, &focus)
	if err != nil {
		return nil, err
	}
	task := models.Task{
		ID:        uuid.New().String(),
		Code:      "status-check",
		Status:    models.TaskRequested,
		FocusType: focus.Type,
		FocusID:   focus.ID,
	}
	if err := appendResource(env, models.ResourceTask, task); err != nil {
		return nil, err
	}
	return env, nil
}

// Communication builds a communication envelope, either unsolicited or in
// response to an exchange-issued information request.
func (b *Builder) Communication(receiver models.Identity, comm models.Communication) (*models.Envelope, error) {
	var focus *models.Reference
	if comm.About != nil {
		focus = comm.About
	}
	env, err := b.newEnvelope(models.EventCommunication, receiver, focus)
	if err != nil {
		return nil, err
	}
	if comm.ID == "" {
		comm.ID = uuid.New().String()
	}
	if err := appendResource(env, models.ResourceCommunication, comm); err != nil {
		return nil, err
	}
	return env, nil
}
