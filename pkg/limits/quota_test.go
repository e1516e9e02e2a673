package limits_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
)

func TestQuota(t *testing.T) {
	t.Parallel()

	t.Run("sentinel decodes to unlimited", func(t *testing.T) {
		t.Parallel()
		q := limits.QuotaFromInt(-1)
		assert.True(t, q.IsUnlimited())
		assert.Equal(t, limits.UnlimitedSentinel, q.Int64())
		assert.Equal(t, "unlimited", q.String())
		assert.True(t, q.Allows(1<<40, 1<<40))
		assert.Equal(t, limits.UnlimitedSentinel, q.Remaining(5))
	})

	t.Run("bounded allows reaching the cap", func(t *testing.T) {
		t.Parallel()
		q := limits.Bounded(10)
		assert.False(t, q.IsUnlimited())
		assert.True(t, q.Allows(9, 1))
		assert.False(t, q.Allows(10, 1))
		assert.False(t, q.Allows(5, 6))
		assert.Equal(t, int64(3), q.Remaining(7))
		assert.Zero(t, q.Remaining(12))
	})

	t.Run("huge requests do not wrap around", func(t *testing.T) {
		t.Parallel()
		q := limits.Bounded(10)
		assert.False(t, q.Allows(1, math.MaxInt64))
		assert.False(t, q.Allows(0, math.MaxInt64-1))
		assert.False(t, q.Allows(math.MaxInt64, 1))
		assert.True(t, limits.Bounded(math.MaxInt64).Allows(0, math.MaxInt64))
		assert.False(t, limits.Bounded(math.MaxInt64).Allows(1, math.MaxInt64))
	})

	t.Run("negative values clamp to zero", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, limits.Bounded(0), limits.Bounded(-5))
		assert.Equal(t, limits.Bounded(0), limits.QuotaFromInt(-7))
	})

	t.Run("zero value is bounded zero", func(t *testing.T) {
		t.Parallel()
		var q limits.Quota
		assert.False(t, q.IsUnlimited())
		assert.False(t, q.Allows(0, 1))
	})

	t.Run("json uses the integer form", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(struct {
			A limits.Quota `json:"a"`
			B limits.Quota `json:"b"`
		}{limits.Unlimited, limits.Bounded(42)})
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":-1,"b":42}`, string(data))

		var decoded struct {
			A limits.Quota `json:"a"`
			B limits.Quota `json:"b"`
		}
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.True(t, decoded.A.IsUnlimited())
		assert.Equal(t, int64(42), decoded.B.Value())

		assert.Error(t, json.Unmarshal([]byte(`{"a":"many"}`), &decoded))
	})
}
