// Package cache stores assembled plan results keyed by a fingerprint of their inputs.
// Runs are deterministic, so identical inputs can be served from the cache.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vsinha/batchplan/pkg/application/dto"
	"github.com/vsinha/batchplan/pkg/config"
)

const (
	planKeyPrefix = "batchplan:plan:"
	scanBatchSize = 100
)

type PlanCache interface {
	GetPlan(ctx context.Context, fingerprint string) (*dto.PlanResult, bool, error)
	SetPlan(ctx context.Context, fingerprint string, result *dto.PlanResult) error
	InvalidateAll(ctx context.Context) error
	// Close releases the underlying connection pool
	Close() error
}

type redisPlanCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopPlanCache struct{}

// NewPlanCache returns a redis-backed cache when enabled, otherwise a no-op cache
func NewPlanCache(cfg config.CacheConfig) (PlanCache, error) {
	if !cfg.Enabled {
		return &noopPlanCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisPlanCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopPlanCache() PlanCache {
	return &noopPlanCache{}
}

func (c *redisPlanCache) GetPlan(ctx context.Context, fingerprint string) (*dto.PlanResult, bool, error) {
	payload, err := c.client.Get(ctx, planKey(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result dto.PlanResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false, fmt.Errorf("decode plan cache: %w", err)
	}

	return &result, true, nil
}

func (c *redisPlanCache) SetPlan(ctx context.Context, fingerprint string, result *dto.PlanResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode plan cache: %w", err)
	}

	if err := c.client.Set(ctx, planKey(fingerprint), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisPlanCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, planKeyPrefix, scanBatchSize)
}

func (c *redisPlanCache) Close() error {
	return c.client.Close()
}

func (n *noopPlanCache) GetPlan(ctx context.Context, fingerprint string) (*dto.PlanResult, bool, error) {
	return nil, false, nil
}

func (n *noopPlanCache) SetPlan(ctx context.Context, fingerprint string, result *dto.PlanResult) error {
	return nil
}

func (n *noopPlanCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func (n *noopPlanCache) Close() error {
	return nil
}

// Fingerprint hashes the JSON encoding of v. Map keys are encoded sorted, so
// equal inputs always produce the same fingerprint.
func Fingerprint(v interface{}) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode fingerprint: %w", err)
	}
	sum := sha1.Sum(payload)
	return hex.EncodeToString(sum[:]), nil
}

func planKey(fingerprint string) string {
	return planKeyPrefix + fingerprint
}
