package limits_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
)

func TestConfig_ServiceOptions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("strict features refuse increments past the cap", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()

		opts, err := limits.Config{StrictFeatures: []string{"stores_count", ""}}.ServiceOptions()
		require.NoError(t, err)
		require.Len(t, opts, 1)

		svc, _ := newTestService(t, map[uuid.UUID]limits.PlanType{userID: limits.PlanFree}, opts...)

		count, err := svc.RecordUsage(ctx, userID, limits.FeatureStoresCount, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		_, err = svc.RecordUsage(ctx, userID, limits.FeatureStoresCount, 1)
		assert.ErrorIs(t, err, limits.ErrLimitExceeded)

		// products_count stays soft
		_, err = svc.RecordUsage(ctx, userID, limits.FeatureProductsCount, 11)
		assert.NoError(t, err)
	})

	t.Run("empty config", func(t *testing.T) {
		t.Parallel()
		opts, err := limits.Config{}.ServiceOptions()
		require.NoError(t, err)
		assert.Empty(t, opts)
	})

	t.Run("cache ttl adds the limit cache", func(t *testing.T) {
		t.Parallel()
		opts, err := limits.Config{CacheTTL: time.Minute}.ServiceOptions()
		require.NoError(t, err)
		assert.Len(t, opts, 1)
	})

	t.Run("unknown feature", func(t *testing.T) {
		t.Parallel()
		_, err := limits.Config{StrictFeatures: []string{"warehouses"}}.ServiceOptions()
		assert.ErrorIs(t, err, limits.ErrInvalidFeatureKey)
	})
}
