package limits_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
	"github.com/dmitrymomot/featurelimits/pkg/validator"
)

func TestUpsertLimitInput_Validate(t *testing.T) {
	t.Parallel()

	valid := limits.UpsertLimitInput{
		PlanType:   limits.PlanBasic,
		FeatureKey: limits.FeatureProductsCount,
		LimitType:  limits.LimitTypeCount,
		LimitValue: 100,
		Enabled:    true,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(in *limits.UpsertLimitInput)
		field  string
	}{
		{"unknown plan", func(in *limits.UpsertLimitInput) { in.PlanType = "gold" }, "plan_type"},
		{"unknown feature", func(in *limits.UpsertLimitInput) { in.FeatureKey = "teleport" }, "feature_key"},
		{"unknown limit type", func(in *limits.UpsertLimitInput) { in.LimitType = "weekly" }, "limit_type"},
		{"value below sentinel", func(in *limits.UpsertLimitInput) { in.LimitValue = -2 }, "limit_value"},
		{"unknown reset period", func(in *limits.UpsertLimitInput) { in.ResetPeriod = "hourly" }, "reset_period"},
		{"monthly that never resets", func(in *limits.UpsertLimitInput) {
			in.LimitType = limits.LimitTypeMonthly
			in.ResetPeriod = limits.ResetNever
		}, "reset_period"},
		{"description too long", func(in *limits.UpsertLimitInput) {
			in.Description = string(make([]byte, 501))
		}, "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := valid
			tt.mutate(&in)

			err := in.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, limits.ErrInvalidLimitInput)
			assert.True(t, limits.IsCallerError(err))
			assert.True(t, validator.ExtractValidationErrors(err).Has(tt.field))
		})
	}

	t.Run("unlimited sentinel is accepted", func(t *testing.T) {
		t.Parallel()
		in := valid
		in.LimitValue = limits.UnlimitedSentinel
		require.NoError(t, in.Validate())
		assert.True(t, in.FeatureLimit().Quota.IsUnlimited())
	})

	t.Run("count may reset daily", func(t *testing.T) {
		t.Parallel()
		in := valid
		in.ResetPeriod = limits.ResetDaily
		require.NoError(t, in.Validate())
		assert.Equal(t, limits.ResetDaily, in.FeatureLimit().ResetPeriod)
	})
}

func TestUpsertLimitInput_FeatureLimit(t *testing.T) {
	t.Parallel()

	t.Run("monthly defaults to monthly reset", func(t *testing.T) {
		t.Parallel()
		in := limits.UpsertLimitInput{
			PlanType:   limits.PlanFree,
			FeatureKey: limits.FeatureOrdersMonthly,
			LimitType:  limits.LimitTypeMonthly,
			LimitValue: 50,
		}
		require.NoError(t, in.Validate())
		assert.Equal(t, limits.ResetMonthly, in.FeatureLimit().ResetPeriod)
	})

	t.Run("boolean ignores value and reset", func(t *testing.T) {
		t.Parallel()
		in := limits.UpsertLimitInput{
			PlanType:    limits.PlanFree,
			FeatureKey:  limits.FeatureCustomDomain,
			LimitType:   limits.LimitTypeBoolean,
			LimitValue:  99,
			ResetPeriod: limits.ResetDaily,
			Enabled:     true,
		}
		require.NoError(t, in.Validate())
		limit := in.FeatureLimit()
		assert.Equal(t, limits.Bounded(0), limit.Quota)
		assert.Equal(t, limits.ResetNever, limit.ResetPeriod)
		assert.True(t, limit.Enabled)
	})
}

func TestSetOverrideInput_Validate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	valid := limits.SetOverrideInput{
		UserID:     uuid.New(),
		FeatureKey: limits.FeatureStaffAccounts,
		LimitType:  limits.LimitTypeCount,
		LimitValue: 25,
		Enabled:    true,
		ExpiresAt:  &future,
	}
	require.NoError(t, valid.Validate(now))

	t.Run("nil user", func(t *testing.T) {
		t.Parallel()
		in := valid
		in.UserID = uuid.Nil
		err := in.Validate(now)
		assert.ErrorIs(t, err, limits.ErrInvalidLimitInput)
		assert.True(t, validator.ExtractValidationErrors(err).Has("user_id"))
	})

	t.Run("expiry in the past", func(t *testing.T) {
		t.Parallel()
		in := valid
		in.ExpiresAt = &past
		err := in.Validate(now)
		assert.ErrorIs(t, err, limits.ErrInvalidLimitInput)
		assert.True(t, validator.ExtractValidationErrors(err).Has("expires_at"))
	})

	t.Run("no expiry", func(t *testing.T) {
		t.Parallel()
		in := valid
		in.ExpiresAt = nil
		require.NoError(t, in.Validate(now))
		assert.Nil(t, in.FeatureOverride().ExpiresAt)
	})

	t.Run("expiry is stored in UTC", func(t *testing.T) {
		t.Parallel()
		local := future.In(time.FixedZone("UTC-5", -5*60*60))
		in := valid
		in.ExpiresAt = &local
		o := in.FeatureOverride()
		require.NotNil(t, o.ExpiresAt)
		assert.Equal(t, time.UTC, o.ExpiresAt.Location())
		assert.True(t, o.ExpiresAt.Equal(future))
	})
}
