package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimgate/internal/batch"
	"claimgate/internal/submission"
	"claimgate/pkg/models"
)

// These tests expect a running exchange-service (docker compose up) and
// exercise the HTTP surface end to end. They avoid endpoints that need a
// live exchange on the other side.
const exchangeServiceURL = "http://localhost:8080"

func TestExchangeServiceHealth(t *testing.T) {
	url := fmt.Sprintf("%s/health", exchangeServiceURL)
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&health)
	require.NoError(t, err)
	assert.NotNil(t, health["status"])
}

func TestExchangeServiceMetrics(t *testing.T) {
	url := fmt.Sprintf("%s/metrics", exchangeServiceURL)
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDraftSubmissionLifecycle(t *testing.T) {
	created := createDraft(t, submission.SubmitRequest{
		Kind:       submission.KindClaim,
		ReceiverID: "INS-900",
		Claim: &models.Claim{
			ID:         "e2e-claim-001",
			PatientID:  "PAT-001",
			CoverageID: "COV-001",
			ProviderID: "PRV-001",
			InsurerID:  "INS-900",
			Total:      250.0,
		},
	})

	assert.Equal(t, submission.StatusDraft, created.Status)
	assert.Equal(t, submission.KindClaim, created.Kind)
	assert.NotEmpty(t, created.ID)

	fetched := getSubmission(t, created.ID)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "e2e-claim-001", fetched.FocusID)
}

func TestGetSubmission_NotFound(t *testing.T) {
	url := fmt.Sprintf("%s/api/v1/submissions/%s", exchangeServiceURL, "00000000-0000-0000-0000-000000000000")
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubmitRejectsUnknownKind(t *testing.T) {
	body, err := json.Marshal(map[string]interface{}{
		"kind":        "telepathy",
		"receiver_id": "INS-900",
	})
	require.NoError(t, err)

	url := fmt.Sprintf("%s/api/v1/submissions", exchangeServiceURL)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateBatchRejectsTooFewMembers(t *testing.T) {
	created := createDraft(t, submission.SubmitRequest{
		Kind:       submission.KindClaim,
		ReceiverID: "INS-900",
		Claim: &models.Claim{
			ID:         "e2e-claim-solo",
			PatientID:  "PAT-001",
			ProviderID: "PRV-001",
			InsurerID:  "INS-900",
			Total:      50.0,
		},
	})

	body, err := json.Marshal(batch.CreateRequest{SubmissionIDs: []string{created.ID}})
	require.NoError(t, err)

	url := fmt.Sprintf("%s/api/v1/batches", exchangeServiceURL)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestBatchLifecycleThroughDrafts(t *testing.T) {
	var ids []string
	for i := 0; i < 2; i++ {
		created := createDraft(t, submission.SubmitRequest{
			Kind:       submission.KindClaim,
			ReceiverID: "INS-900",
			Claim: &models.Claim{
				ID:         fmt.Sprintf("e2e-batch-claim-%03d", i),
				PatientID:  "PAT-001",
				ProviderID: "PRV-001",
				InsurerID:  "INS-900",
				Total:      100.0,
			},
		})
		ids = append(ids, created.ID)
	}

	body, err := json.Marshal(batch.CreateRequest{SubmissionIDs: ids})
	require.NoError(t, err)

	url := fmt.Sprintf("%s/api/v1/batches", exchangeServiceURL)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var record batch.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	assert.Equal(t, batch.StatusDraft, record.Status)
	assert.Equal(t, ids, record.Members)

	getURL := fmt.Sprintf("%s/api/v1/batches/%s", exchangeServiceURL, record.ID)
	getResp, err := http.Get(getURL)
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func createDraft(t *testing.T, req submission.SubmitRequest) *submission.Submission {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	url := fmt.Sprintf("%s/api/v1/submissions/drafts", exchangeServiceURL)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var sub submission.Submission
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sub))
	return &sub
}

func getSubmission(t *testing.T, id string) *submission.Submission {
	t.Helper()

	url := fmt.Sprintf("%s/api/v1/submissions/%s", exchangeServiceURL, id)
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sub submission.Submission
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sub))
	return &sub
}
