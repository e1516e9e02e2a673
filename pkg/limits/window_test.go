package limits_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
)

func TestWindowStart(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 31, 23, 59, 59, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), limits.WindowStart(limits.ResetDaily, now))
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), limits.WindowStart(limits.ResetMonthly, now))
	assert.Equal(t, time.Unix(0, 0).UTC(), limits.WindowStart(limits.ResetNever, now))

	t.Run("boundaries are computed in UTC", func(t *testing.T) {
		t.Parallel()
		tz := time.FixedZone("UTC+3", 3*60*60)
		local := time.Date(2026, 8, 1, 1, 0, 0, 0, tz) // 2026-07-31 22:00 UTC
		assert.Equal(t, time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), limits.WindowStart(limits.ResetDaily, local))
		assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), limits.WindowStart(limits.ResetMonthly, local))
	})
}

func TestNextReset(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 12, 31, 10, 0, 0, 0, time.UTC)

	daily := limits.NextReset(limits.ResetDaily, now)
	require.NotNil(t, daily)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), *daily)

	monthly := limits.NextReset(limits.ResetMonthly, now)
	require.NotNil(t, monthly)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), *monthly)

	assert.Nil(t, limits.NextReset(limits.ResetNever, now))
}

func TestWindowElapsed(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		period  limits.ResetPeriod
		started time.Time
		want    bool
	}{
		{"daily same day", limits.ResetDaily, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), false},
		{"daily previous day", limits.ResetDaily, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), true},
		{"daily two days ago", limits.ResetDaily, time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC), true},
		{"monthly same month", limits.ResetMonthly, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"monthly previous month", limits.ResetMonthly, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{"never", limits.ResetNever, time.Unix(0, 0).UTC(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, limits.WindowElapsed(tt.period, tt.started, now))
		})
	}
}
