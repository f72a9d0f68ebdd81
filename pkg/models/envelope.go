package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind is the message event tag carried on the header of every envelope.
type EventKind string

const (
	EventEligibilityRequest EventKind = "eligibility-request"
	EventPriorAuthRequest   EventKind = "priorauth-request"
	EventClaimRequest       EventKind = "claim-request"
	EventBatchRequest       EventKind = "batch-request"
	EventCancelRequest      EventKind = "cancel-request"
	EventPollRequest        EventKind = "poll-request"
	EventStatusCheck        EventKind = "status-check"
	EventCommunication      EventKind = "communication"
)

// ResponseCode is the exchange-reported outcome on a response header.
// A transient-error or fatal-error code forces business failure regardless
// of the HTTP status the envelope arrived with.
type ResponseCode string

const (
	ResponseOK             ResponseCode = "ok"
	ResponseTransientError ResponseCode = "transient-error"
	ResponseFatalError     ResponseCode = "fatal-error"
)

const (
	ResourceMessageHeader        = "MessageHeader"
	ResourceEligibilityRequest   = "EligibilityRequest"
	ResourceEligibilityResponse  = "EligibilityResponse"
	ResourceClaim                = "Claim"
	ResourceClaimResponse        = "ClaimResponse"
	ResourceTask                 = "Task"
	ResourceCommunication        = "Communication"
	ResourceCommunicationRequest = "CommunicationRequest"
	ResourceOperationOutcome     = "OperationOutcome"
	ResourceEnvelope             = "Envelope"
)

// Envelope is the outer message document exchanged with the clearinghouse.
// Entry 0 is always a MessageHeader.
type Envelope struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Entries   []Entry   `json:"entries"`
}

// Entry wraps one typed resource inside an envelope.
type Entry struct {
	ResourceType string          `json:"resource_type"`
	Resource     json.RawMessage `json:"resource"`
}

// Identity names one party on the exchange (sender or receiver).
type Identity struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value"`
}

// Reference points at the focal resource a message is scoped to.
type Reference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// MessageHeader is the first entry of every envelope.
type MessageHeader struct {
	EventKind    EventKind    `json:"event_kind"`
	Sender       Identity     `json:"sender"`
	Receiver     Identity     `json:"receiver"`
	Focus        *Reference   `json:"focus,omitempty"`
	InResponseTo string       `json:"in_response_to,omitempty"`
	ResponseCode ResponseCode `json:"response_code,omitempty"`
}

// NewEntry marshals a resource into an envelope entry.
func NewEntry(resourceType string, resource interface{}) (Entry, error) {
	raw, err := json.Marshal(resource)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to marshal %s entry: %w", resourceType, err)
	}
	return Entry{ResourceType: resourceType, Resource: raw}, nil
}

// Header decodes entry 0 of the envelope. It fails if the envelope is empty
// or the first entry is not a MessageHeader.
func (e *Envelope) Header() (*MessageHeader, error) {
	if len(e.Entries) == 0 {
		return nil, fmt.Errorf("envelope %s has no entries", e.ID)
	}
	first := e.Entries[0]
	if first.ResourceType != ResourceMessageHeader {
		return nil, fmt.Errorf("envelope %s: first entry is %s, expected %s", e.ID, first.ResourceType, ResourceMessageHeader)
	}
	var header MessageHeader
	if err := json.Unmarshal(first.Resource, &header); err != nil {
		return nil, fmt.Errorf("envelope %s: failed to decode header: %w", e.ID, err)
	}
	return &header, nil
}

// Decode unmarshals an entry's resource into out.
func (en Entry) Decode(out interface{}) error {
	if err := json.Unmarshal(en.Resource, out); err != nil {
		return fmt.Errorf("failed to decode %s resource: %w", en.ResourceType, err)
	}
	return nil
}
