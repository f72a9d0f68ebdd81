package integration

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimgate/internal/batch"
	pkgerrors "claimgate/pkg/errors"
)

func TestBatchRepository_CreateAndGet(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := batch.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	record := &batch.Record{
		ReceiverID: "INS-900",
		Members:    []string{"sub-001", "sub-002", "sub-003"},
	}
	require.NoError(t, repo.Create(ctx, record))
	assert.NotEmpty(t, record.ID)

	retrieved, err := repo.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.StatusDraft, retrieved.Status)
	assert.Equal(t, []string{"sub-001", "sub-002", "sub-003"}, retrieved.Members)
	assert.Equal(t, 3, retrieved.PendingCount)
}

func TestBatchRepository_Get_NotFound(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := batch.NewRepository(infra.PostgresDB)

	_, err := repo.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestBatchRepository_MarkPendingRequiresDraft(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := batch.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	record := &batch.Record{ReceiverID: "INS-900", Members: []string{"sub-001"}}
	require.NoError(t, repo.Create(ctx, record))

	envelope := json.RawMessage(`{"id":"env-1","entries":[]}`)
	require.NoError(t, repo.MarkPending(ctx, record.ID, envelope))

	retrieved, err := repo.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.StatusPending, retrieved.Status)
	require.NotNil(t, retrieved.SubmittedAt)

	err = repo.MarkPending(ctx, record.ID, envelope)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestBatchRepository_UpdateAggregate(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := batch.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	record := &batch.Record{ReceiverID: "INS-900", Members: []string{"sub-001", "sub-002", "sub-003"}}
	require.NoError(t, repo.Create(ctx, record))

	counts := batch.Counts{Approved: 1, Rejected: 1, Pending: 1}
	require.NoError(t, repo.UpdateAggregate(ctx, record.ID, batch.StatusPartial, counts))

	retrieved, err := repo.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.StatusPartial, retrieved.Status)
	assert.Equal(t, 1, retrieved.ApprovedCount)
	assert.Equal(t, 1, retrieved.RejectedCount)
	assert.Equal(t, 1, retrieved.PendingCount)
	assert.False(t, retrieved.IsTerminal())
}
