package mongostore_test

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
	"github.com/dmitrymomot/featurelimits/pkg/limits/mongostore"
	"github.com/dmitrymomot/featurelimits/pkg/mongo"
)

// newStore connects to MONGODB_URL and returns a store over a throwaway
// database. Tests are skipped when the variable is not set.
func newStore(t *testing.T) *mongostore.Store {
	t.Helper()

	url := os.Getenv("MONGODB_URL")
	if url == "" {
		t.Skip("MONGODB_URL is not set")
	}

	ctx := context.Background()
	db, err := mongo.NewWithDatabase(ctx, mongo.Config{
		ConnectionURL:  url,
		Database:       "featurelimits_test_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		ConnectTimeout: 5 * time.Second,
		MaxPoolSize:    100,
		RetryAttempts:  1,
		RetryWrites:    true,
		RetryReads:     true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = db.Client().Disconnect(context.Background())
	})

	store := mongostore.New(db)
	require.NoError(t, store.EnsureIndexes(ctx))
	require.NoError(t, store.EnsureIndexes(ctx))
	return store
}

func TestStore_Limits(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	for _, l := range limits.DefaultLimits() {
		ok, err := store.InsertLimitIfAbsent(ctx, l)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := store.InsertLimitIfAbsent(ctx, limits.DefaultLimits()[0])
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := store.ListLimits(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(limits.DefaultLimits()))
	assert.Equal(t, limits.PlanFree, all[0].PlanType)
	assert.Equal(t, limits.PlanEnterprise, all[len(all)-1].PlanType)

	l, err := store.GetLimit(ctx, limits.PlanFree, limits.FeatureProductsCount)
	require.NoError(t, err)
	l.Quota = limits.Unlimited
	updated, err := store.UpsertLimit(ctx, l)
	require.NoError(t, err)
	assert.True(t, updated.Quota.IsUnlimited())
	assert.True(t, l.CreatedAt.Equal(updated.CreatedAt))

	require.NoError(t, store.DeleteLimit(ctx, limits.PlanFree, limits.FeatureProductsCount))
	_, err = store.GetLimit(ctx, limits.PlanFree, limits.FeatureProductsCount)
	assert.ErrorIs(t, err, limits.ErrLimitNotFound)
}

func TestStore_Overrides(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	userID := uuid.New()
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)

	_, err := store.UpsertOverride(ctx, limits.FeatureOverride{
		UserID:      userID,
		FeatureKey:  limits.FeatureOrdersMonthly,
		LimitType:   limits.LimitTypeMonthly,
		Quota:       limits.Bounded(5000),
		ResetPeriod: limits.ResetMonthly,
		Enabled:     true,
		ExpiresAt:   &expires,
	})
	require.NoError(t, err)

	o, err := store.GetOverride(ctx, userID, limits.FeatureOrdersMonthly)
	require.NoError(t, err)
	require.NotNil(t, o.ExpiresAt)
	assert.True(t, expires.Equal(*o.ExpiresAt))

	o.ExpiresAt = nil
	_, err = store.UpsertOverride(ctx, o)
	require.NoError(t, err)
	o, err = store.GetOverride(ctx, userID, limits.FeatureOrdersMonthly)
	require.NoError(t, err)
	assert.Nil(t, o.ExpiresAt)

	list, err := store.ListOverrides(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.DeleteOverride(ctx, userID, limits.FeatureOrdersMonthly))
	_, err = store.GetOverride(ctx, userID, limits.FeatureOrdersMonthly)
	assert.ErrorIs(t, err, limits.ErrOverrideNotFound)
}

func TestStore_Usage(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	feature := limits.FeatureAPICallsDaily
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	t.Run("ceiling and window reset", func(t *testing.T) {
		userID := uuid.New()

		count, applied, err := store.IncrementUsage(ctx, userID, feature, 4, yesterday, limits.Bounded(4))
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, int64(4), count)

		count, applied, err = store.IncrementUsage(ctx, userID, feature, 1, yesterday, limits.Bounded(4))
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, int64(4), count)

		count, applied, err = store.IncrementUsage(ctx, userID, feature, 1, today, limits.Bounded(4))
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, int64(1), count)

		count, err = store.DecrementUsage(ctx, userID, feature, 3, today)
		require.NoError(t, err)
		assert.Zero(t, count)

		require.NoError(t, store.ResetUsage(ctx, userID, feature))
		_, err = store.GetUsage(ctx, userID, feature)
		assert.ErrorIs(t, err, limits.ErrUsageNotFound)
	})

	t.Run("concurrent increments", func(t *testing.T) {
		userID := uuid.New()

		var applied atomic.Int64
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, ok, err := store.IncrementUsage(ctx, userID, feature, 1, today, limits.Bounded(25))
				if err == nil && ok {
					applied.Add(1)
				}
			}()
		}
		wg.Wait()

		rec, err := store.GetUsage(ctx, userID, feature)
		require.NoError(t, err)
		assert.Equal(t, applied.Load(), rec.Count)
		assert.LessOrEqual(t, rec.Count, int64(25))
	})
}

func TestStore_ResolvePlan(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := store.ResolvePlan(ctx, userID)
	assert.ErrorIs(t, err, limits.ErrUserNotFound)

	require.NoError(t, store.SetUserPlan(ctx, userID, limits.PlanEnterprise))
	plan, err := store.ResolvePlan(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, limits.PlanEnterprise, plan)
}
