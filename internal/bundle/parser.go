package bundle

import (
	"fmt"

	"claimgate/pkg/models"
)

// Parsed is the typed view of a response envelope. Poll responses may wrap
// answers inside their own message envelopes; resources nested one level
// down are lifted into the same buckets. Unknown resource types are skipped.
type Parsed struct {
	Envelope *models.Envelope
	Header   *models.MessageHeader

	EligibilityResponses  []models.EligibilityResponse
	ClaimResponses        []models.ClaimResponse
	Tasks                 []models.Task
	Communications        []models.Communication
	CommunicationRequests []models.CommunicationRequest
	OperationOutcomes     []models.OperationOutcome
}

// Parse validates the envelope shape and collects its resources by type.
// The returned error always denotes a structural problem.
func Parse(env *models.Envelope) (*Parsed, error) {
	if env == nil {
		return nil, fmt.Errorf("nil envelope")
	}

	header, err := env.Header()
	if err != nil {
		return nil, err
	}

	p := &Parsed{Envelope: env, Header: header}

	if err := p.collect(env.Entries[1:], true); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Parsed) collect(entries []models.Entry, descend bool) error {
	for _, entry := range entries {
		switch entry.ResourceType {
		case models.ResourceEligibilityResponse:
			var r models.EligibilityResponse
			if err := entry.Decode(&r); err != nil {
				return err
			}
			p.EligibilityResponses = append(p.EligibilityResponses, r)

		case models.ResourceClaimResponse:
			var r models.ClaimResponse
			if err := entry.Decode(&r); err != nil {
				return err
			}
			p.ClaimResponses = append(p.ClaimResponses, r)

		case models.ResourceTask:
			var r models.Task
			if err := entry.Decode(&r); err != nil {
				return err
			}
			p.Tasks = append(p.Tasks, r)

		case models.ResourceCommunication:
			var r models.Communication
			if err := entry.Decode(&r); err != nil {
				return err
			}
			p.Communications = append(p.Communications, r)

		case models.ResourceCommunicationRequest:
			var r models.CommunicationRequest
			if err := entry.Decode(&r); err != nil {
				return err
			}
			p.CommunicationRequests = append(p.CommunicationRequests, r)

		case models.ResourceOperationOutcome:
			var r models.OperationOutcome
			if err := entry.Decode(&r); err != nil {
				return err
			}
			p.OperationOutcomes = append(p.OperationOutcomes, r)

		case models.ResourceEnvelope:
			if !descend {
				continue // one level of nesting only
			}
			var nested models.Envelope
			if err := entry.Decode(&nested); err != nil {
				return err
			}
			inner := nested.Entries
			// A nested envelope's header is advisory here; skip it if present.
			if len(inner) > 0 && inner[0].ResourceType == models.ResourceMessageHeader {
				inner = inner[1:]
			}
			if err := p.collect(inner, false); err != nil {
				return err
			}

		default:
			// Extra resources are tolerated, not errors.
		}
	}
	return nil
}

// HasResource reports whether the envelope carried at least one resource of
// the given payload type.
func (p *Parsed) HasResource(resourceType string) bool {
	switch resourceType {
	case models.ResourceEligibilityResponse:
		return len(p.EligibilityResponses) > 0
	case models.ResourceClaimResponse:
		return len(p.ClaimResponses) > 0
	case models.ResourceTask:
		return len(p.Tasks) > 0
	case models.ResourceCommunication:
		return len(p.Communications) > 0
	case models.ResourceCommunicationRequest:
		return len(p.CommunicationRequests) > 0
	case models.ResourceOperationOutcome:
		return len(p.OperationOutcomes) > 0
	default:
		return false
	}
}

// FirstClaimResponse returns the first claim adjudication, if any.
func (p *Parsed) FirstClaimResponse() (models.ClaimResponse, bool) {
	if len(p.ClaimResponses) == 0 {
		return models.ClaimResponse{}, false
	}
	return p.ClaimResponses[0], true
}

// FirstEligibilityResponse returns the first eligibility result, if any.
func (p *Parsed) FirstEligibilityResponse() (models.EligibilityResponse, bool) {
	if len(p.EligibilityResponses) == 0 {
		return models.EligibilityResponse{}, false
	}
	return p.EligibilityResponses[0], true
}

// FirstTask returns the first task resource, if any.
func (p *Parsed) FirstTask() (models.Task, bool) {
	if len(p.Tasks) == 0 {
		return models.Task{}, false
	}
	return p.Tasks[0], true
}
