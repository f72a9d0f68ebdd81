package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"claimgate/internal/constants"
	"claimgate/pkg/metrics"
	"claimgate/pkg/models"
)

// EligibilityCache short-circuits repeated eligibility checks for the same
// coverage. A miss or a cache failure always falls through to the exchange.
type EligibilityCache interface {
	Get(ctx context.Context, coverageID string) (*models.EligibilityResponse, error)
	Set(ctx context.Context, coverageID string, resp *models.EligibilityResponse) error
}

type RedisEligibilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewEligibilityCache(client *redis.Client, ttl time.Duration) *RedisEligibilityCache {
	if ttl <= 0 {
		ttl = constants.DefaultEligibilityCacheTTL
	}
	return &RedisEligibilityCache{client: client, ttl: ttl}
}

func (c *RedisEligibilityCache) key(coverageID string) string {
	return constants.CacheKeyPrefixEligibility + coverageID
}

func (c *RedisEligibilityCache) Get(ctx context.Context, coverageID string) (*models.EligibilityResponse, error) {
	raw, err := c.client.Get(ctx, c.key(coverageID)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.EligibilityCacheTotal.WithLabelValues("miss").Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read eligibility cache: %w", err)
	}

	var resp models.EligibilityResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode cached eligibility: %w", err)
	}

	metrics.EligibilityCacheTotal.WithLabelValues("hit").Inc()
	return &resp, nil
}

func (c *RedisEligibilityCache) Set(ctx context.Context, coverageID string, resp *models.EligibilityResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode eligibility for cache: %w", err)
	}

	if err := c.client.Set(ctx, c.key(coverageID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write eligibility cache: %w", err)
	}
	return nil
}

// NopEligibilityCache is used when caching is disabled.
type NopEligibilityCache struct{}

func (NopEligibilityCache) Get(ctx context.Context, coverageID string) (*models.EligibilityResponse, error) {
	return nil, nil
}

func (NopEligibilityCache) Set(ctx context.Context, coverageID string, resp *models.EligibilityResponse) error {
	return nil
}
