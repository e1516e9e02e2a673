package limits

import (
	"context"
	"time"

	"github.com/dmitrymomot/featurelimits/pkg/cache"
)

// cachedLimits keeps found limit definitions in memory. Writes through this
// instance invalidate the affected key; writes made by other processes become
// visible once the entry expires.
type cachedLimits struct {
	LimitStore
	lru *cache.LRU[limitKey, FeatureLimit]
}

func (c *cachedLimits) GetLimit(ctx context.Context, plan PlanType, feature FeatureKey) (FeatureLimit, error) {
	key := limitKey{plan, feature}
	if limit, ok := c.lru.Get(key); ok {
		return limit, nil
	}
	limit, err := c.LimitStore.GetLimit(ctx, plan, feature)
	if err != nil {
		return FeatureLimit{}, err
	}
	c.lru.Put(key, limit)
	return limit, nil
}

func (c *cachedLimits) UpsertLimit(ctx context.Context, limit FeatureLimit) (FeatureLimit, error) {
	c.lru.Remove(limitKey{limit.PlanType, limit.FeatureKey})
	return c.LimitStore.UpsertLimit(ctx, limit)
}

func (c *cachedLimits) InsertLimitIfAbsent(ctx context.Context, limit FeatureLimit) (bool, error) {
	c.lru.Remove(limitKey{limit.PlanType, limit.FeatureKey})
	return c.LimitStore.InsertLimitIfAbsent(ctx, limit)
}

func (c *cachedLimits) DeleteLimit(ctx context.Context, plan PlanType, feature FeatureKey) error {
	c.lru.Remove(limitKey{plan, feature})
	return c.LimitStore.DeleteLimit(ctx, plan, feature)
}

// WithLimitCache caches limit definitions for ttl. Misses are not cached, so a
// deleted definition fails closed immediately on this instance.
func WithLimitCache(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl <= 0 {
			return
		}
		capacity := len(planOrder) * len(featureKeys)
		s.limits = &cachedLimits{
			LimitStore: s.limits,
			lru:        cache.NewLRU[limitKey, FeatureLimit](capacity, ttl, cache.WithClock(func() time.Time { return s.now() })),
		}
	}
}
