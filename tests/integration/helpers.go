package integration

import (
	"encoding/json"
	"testing"
	"time"

	"claimgate/internal/logger"
	"claimgate/internal/submission"
	"claimgate/pkg/models"
)

const (
	containerStartupTimeout = 60
	timestampDelay          = 10 * time.Millisecond
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createDraftClaim(t *testing.T, claimID, receiverID string) *submission.Submission {
	t.Helper()

	payload, err := json.Marshal(models.Claim{
		ID:         claimID,
		PatientID:  "PAT-001",
		ProviderID: "PRV-001",
		InsurerID:  receiverID,
		Total:      150.0,
	})
	if err != nil {
		t.Fatalf("failed to marshal claim payload: %v", err)
	}

	return &submission.Submission{
		Kind:           submission.KindClaim,
		Status:         submission.StatusDraft,
		ReceiverID:     receiverID,
		FocusType:      "Claim",
		FocusID:        claimID,
		PatientID:      "PAT-001",
		ProviderID:     "PRV-001",
		InsurerID:      receiverID,
		RequestPayload: payload,
	}
}

func createTestEnvelope(t *testing.T, eventKind models.EventKind) *models.Envelope {
	t.Helper()

	header, err := models.NewEntry(models.ResourceMessageHeader, models.MessageHeader{
		EventKind: eventKind,
		Sender:    models.Identity{System: "urn:claimgate:providers", Value: "PRV-001"},
		Receiver:  models.Identity{System: "urn:claimgate:providers", Value: "INS-900"},
	})
	if err != nil {
		t.Fatalf("failed to build header entry: %v", err)
	}

	return &models.Envelope{
		ID:        "env-test-1",
		Timestamp: time.Now().UTC(),
		Entries:   []models.Entry{header},
	}
}
