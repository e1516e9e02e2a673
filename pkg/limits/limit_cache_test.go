package limits_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
)

type countingLimitStore struct {
	*limits.MemoryStore
	gets atomic.Int64
}

func (c *countingLimitStore) GetLimit(ctx context.Context, plan limits.PlanType, feature limits.FeatureKey) (limits.FeatureLimit, error) {
	c.gets.Add(1)
	return c.MemoryStore.GetLimit(ctx, plan, feature)
}

func TestWithLimitCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	setup := func(t *testing.T, clock func() time.Time) (*limits.Service, *countingLimitStore, uuid.UUID) {
		t.Helper()
		userID := uuid.New()
		store := &countingLimitStore{MemoryStore: limits.NewMemoryStore()}
		svc := limits.NewService(store,
			limits.WithPlanResolver(limits.StaticPlanResolver(map[uuid.UUID]limits.PlanType{userID: limits.PlanFree})),
			limits.WithClock(clock),
			limits.WithLimitCache(time.Minute),
		)
		_, err := svc.SeedDefaultLimits(ctx)
		require.NoError(t, err)
		return svc, store, userID
	}

	t.Run("repeated lookups hit the cache", func(t *testing.T) {
		t.Parallel()
		svc, store, userID := setup(t, fixedClock)

		for range 3 {
			limit, err := svc.ResolveLimit(ctx, userID, limits.FeatureProductsCount)
			require.NoError(t, err)
			assert.Equal(t, int64(10), limit.Quota.Value())
		}
		assert.Equal(t, int64(1), store.gets.Load())
	})

	t.Run("upsert invalidates the entry", func(t *testing.T) {
		t.Parallel()
		svc, store, userID := setup(t, fixedClock)

		_, err := svc.ResolveLimit(ctx, userID, limits.FeatureProductsCount)
		require.NoError(t, err)

		_, err = svc.UpsertFeatureLimit(ctx, limits.UpsertLimitInput{
			PlanType:   limits.PlanFree,
			FeatureKey: limits.FeatureProductsCount,
			LimitType:  limits.LimitTypeCount,
			LimitValue: 25,
			Enabled:    true,
		})
		require.NoError(t, err)

		limit, err := svc.ResolveLimit(ctx, userID, limits.FeatureProductsCount)
		require.NoError(t, err)
		assert.Equal(t, int64(25), limit.Quota.Value())
		assert.Equal(t, int64(2), store.gets.Load())
	})

	t.Run("delete fails closed immediately", func(t *testing.T) {
		t.Parallel()
		svc, _, userID := setup(t, fixedClock)

		_, err := svc.ResolveLimit(ctx, userID, limits.FeatureOrdersMonthly)
		require.NoError(t, err)

		require.NoError(t, svc.DeleteFeatureLimit(ctx, limits.PlanFree, limits.FeatureOrdersMonthly))

		_, err = svc.ResolveLimit(ctx, userID, limits.FeatureOrdersMonthly)
		assert.ErrorIs(t, err, limits.ErrFeatureNotConfigured)
	})

	t.Run("entries expire with the service clock", func(t *testing.T) {
		t.Parallel()
		var offset atomic.Int64
		clock := func() time.Time { return testNow.Add(time.Duration(offset.Load())) }
		svc, store, userID := setup(t, clock)

		_, err := svc.ResolveLimit(ctx, userID, limits.FeatureStoresCount)
		require.NoError(t, err)

		offset.Store(int64(2 * time.Minute))
		_, err = svc.ResolveLimit(ctx, userID, limits.FeatureStoresCount)
		require.NoError(t, err)
		assert.Equal(t, int64(2), store.gets.Load())
	})
}
