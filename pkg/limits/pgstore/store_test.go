package pgstore_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
	"github.com/dmitrymomot/featurelimits/pkg/limits/pgstore"
	"github.com/dmitrymomot/featurelimits/pkg/pg"
)

// testPool connects to the database named by PG_CONN_URL and applies the
// migrations. Tests are skipped when the variable is not set.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	connURL := os.Getenv("PG_CONN_URL")
	if connURL == "" {
		t.Skip("PG_CONN_URL is not set")
	}

	ctx := context.Background()
	cfg := pg.Config{
		ConnectionString: connURL,
		MaxConns:         20,
		RetryAttempts:    1,
		MigrationsTable:  "featurelimits_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, pgstore.Migrations(), cfg, nil))
	return pool
}

// txStore runs the test inside a transaction that is rolled back afterwards,
// so plan-level rows never leak between runs.
func txStore(t *testing.T, pool *pgxpool.Pool) (*pgstore.Store, pgx.Tx) {
	t.Helper()

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
	return pgstore.New(tx), tx
}

func TestStore_Limits(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store, tx := txStore(t, pool)

	_, err := tx.Exec(ctx, `DELETE FROM feature_limits`)
	require.NoError(t, err)

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

	enterprise, err := store.GetLimit(ctx, limits.PlanEnterprise, limits.FeatureProductsCount)
	require.NoError(t, err)
	assert.True(t, enterprise.Quota.IsUnlimited())

	first, err := store.GetLimit(ctx, limits.PlanFree, limits.FeatureProductsCount)
	require.NoError(t, err)

	first.Quota = limits.Bounded(25)
	updated, err := store.UpsertLimit(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, updated.CreatedAt)

	got, err := store.GetLimit(ctx, limits.PlanFree, limits.FeatureProductsCount)
	require.NoError(t, err)
	assert.Equal(t, limits.Bounded(25), got.Quota)

	require.NoError(t, store.DeleteLimit(ctx, limits.PlanFree, limits.FeatureProductsCount))
	_, err = store.GetLimit(ctx, limits.PlanFree, limits.FeatureProductsCount)
	assert.ErrorIs(t, err, limits.ErrLimitNotFound)
}

func TestStore_Overrides(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store, _ := txStore(t, pool)
	userID := uuid.New()
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)

	_, err := store.GetOverride(ctx, userID, limits.FeatureStoresCount)
	assert.ErrorIs(t, err, limits.ErrOverrideNotFound)

	_, err = store.UpsertOverride(ctx, limits.FeatureOverride{
		UserID:      userID,
		FeatureKey:  limits.FeatureStoresCount,
		LimitType:   limits.LimitTypeCount,
		Quota:       limits.Unlimited,
		ResetPeriod: limits.ResetNever,
		Enabled:     true,
		Reason:      "partner account",
		ExpiresAt:   &expires,
	})
	require.NoError(t, err)

	o, err := store.GetOverride(ctx, userID, limits.FeatureStoresCount)
	require.NoError(t, err)
	assert.True(t, o.Quota.IsUnlimited())
	require.NotNil(t, o.ExpiresAt)
	assert.True(t, expires.Equal(*o.ExpiresAt))
	assert.Equal(t, "partner account", o.Reason)

	list, err := store.ListOverrides(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.DeleteOverride(ctx, userID, limits.FeatureStoresCount))
	list, err = store.ListOverrides(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_Usage(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := pgstore.New(pool)
	feature := limits.FeatureAPICallsDaily
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	t.Run("ceiling and window reset", func(t *testing.T) {
		userID := uuid.New()
		t.Cleanup(func() { _ = store.ResetUsage(ctx, userID, feature) })

		count, applied, err := store.IncrementUsage(ctx, userID, feature, 3, yesterday, limits.Bounded(3))
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, int64(3), count)

		count, applied, err = store.IncrementUsage(ctx, userID, feature, 1, yesterday, limits.Bounded(3))
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, int64(3), count)

		count, applied, err = store.IncrementUsage(ctx, userID, feature, 2, today, limits.Bounded(3))
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, int64(2), count)

		rec, err := store.GetUsage(ctx, userID, feature)
		require.NoError(t, err)
		assert.True(t, today.Equal(rec.WindowStartedAt))

		count, err = store.DecrementUsage(ctx, userID, feature, 5, today)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("first increment above ceiling", func(t *testing.T) {
		userID := uuid.New()

		count, applied, err := store.IncrementUsage(ctx, userID, feature, 5, today, limits.Bounded(3))
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Zero(t, count)

		_, err = store.GetUsage(ctx, userID, feature)
		assert.ErrorIs(t, err, limits.ErrUsageNotFound)
	})

	t.Run("concurrent increments", func(t *testing.T) {
		userID := uuid.New()
		t.Cleanup(func() { _ = store.ResetUsage(ctx, userID, feature) })

		var applied atomic.Int64
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, ok, err := store.IncrementUsage(ctx, userID, feature, 1, today, limits.Bounded(20))
				if err == nil && ok {
					applied.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(20), applied.Load())
		rec, err := store.GetUsage(ctx, userID, feature)
		require.NoError(t, err)
		assert.Equal(t, int64(20), rec.Count)
	})
}

func TestStore_ResolvePlan(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store, _ := txStore(t, pool)
	userID := uuid.New()

	_, err := store.ResolvePlan(ctx, userID)
	assert.ErrorIs(t, err, limits.ErrUserNotFound)

	assert.ErrorIs(t, store.SetUserPlan(ctx, userID, "gold"), limits.ErrInvalidPlanType)
	require.NoError(t, store.SetUserPlan(ctx, userID, limits.PlanBasic))
	require.NoError(t, store.SetUserPlan(ctx, userID, limits.PlanPro))

	plan, err := store.ResolvePlan(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, limits.PlanPro, plan)
}

func TestService_WithPostgres(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store, tx := txStore(t, pool)
	userID := uuid.New()

	_, err := tx.Exec(ctx, `DELETE FROM feature_limits`)
	require.NoError(t, err)
	require.NoError(t, store.SetUserPlan(ctx, userID, limits.PlanFree))

	svc := limits.NewService(store, limits.WithPlanResolver(store.ResolvePlan))
	_, err = svc.SeedDefaultLimits(ctx)
	require.NoError(t, err)

	for range 9 {
		svc.TrackUsage(ctx, userID, limits.FeatureProductsCount, 1)
	}
	res, err := svc.CanUseFeature(ctx, userID, limits.FeatureProductsCount, 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	svc.TrackUsage(ctx, userID, limits.FeatureProductsCount, 1)
	res, err = svc.CanUseFeature(ctx, userID, limits.FeatureProductsCount, 1)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, limits.PlanBasic, res.SuggestedPlan)
}
