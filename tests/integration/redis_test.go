package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimgate/internal/polling"
	"claimgate/internal/submission"
	"claimgate/pkg/models"
)

func TestFocusLocker_ExcludesSecondAcquirer(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)

	locker := polling.NewFocusLocker(infra.RedisClient, time.Minute)
	ctx := context.Background()

	release, acquired, err := locker.Acquire(ctx, "claim-001")
	require.NoError(t, err)
	require.True(t, acquired)

	_, acquired, err = locker.Acquire(ctx, "claim-001")
	require.NoError(t, err)
	assert.False(t, acquired)

	// A different focus is not serialized against the first.
	otherRelease, acquired, err := locker.Acquire(ctx, "claim-002")
	require.NoError(t, err)
	assert.True(t, acquired)
	otherRelease(ctx)

	release(ctx)

	release, acquired, err = locker.Acquire(ctx, "claim-001")
	require.NoError(t, err)
	assert.True(t, acquired)
	release(ctx)
}

func TestFocusLocker_ExpiresAfterTTL(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)

	locker := polling.NewFocusLocker(infra.RedisClient, 100*time.Millisecond)
	ctx := context.Background()

	_, acquired, err := locker.Acquire(ctx, "claim-003")
	require.NoError(t, err)
	require.True(t, acquired)

	time.Sleep(200 * time.Millisecond)

	release, acquired, err := locker.Acquire(ctx, "claim-003")
	require.NoError(t, err)
	assert.True(t, acquired)
	release(ctx)
}

func TestEligibilityCache_RoundTrip(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)

	cache := submission.NewEligibilityCache(infra.RedisClient, time.Minute)
	ctx := context.Background()

	miss, err := cache.Get(ctx, "cov-001")
	require.NoError(t, err)
	assert.Nil(t, miss)

	stored := &models.EligibilityResponse{
		RequestID:   "elig-001",
		CoverageID:  "cov-001",
		Outcome:     "complete",
		Disposition: "approved",
		Inforce:     true,
	}
	require.NoError(t, cache.Set(ctx, "cov-001", stored))

	hit, err := cache.Get(ctx, "cov-001")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, stored.CoverageID, hit.CoverageID)
	assert.True(t, hit.Inforce)
	assert.Equal(t, "approved", hit.Disposition)
}

func TestEligibilityCache_EntriesExpire(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)

	cache := submission.NewEligibilityCache(infra.RedisClient, 100*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "cov-002", &models.EligibilityResponse{CoverageID: "cov-002", Inforce: true}))

	time.Sleep(200 * time.Millisecond)

	expired, err := cache.Get(ctx, "cov-002")
	require.NoError(t, err)
	assert.Nil(t, expired)
}
