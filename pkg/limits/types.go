package limits

import (
	"time"

	"github.com/google/uuid"
)

// FeatureKey identifies a metered or boolean capability.
// It is the join key across limit definitions, overrides and usage records.
type FeatureKey string

// Known feature keys.
const (
	FeatureProductsCount     FeatureKey = "products_count"
	FeatureStoresCount       FeatureKey = "stores_count"
	FeatureStaffAccounts     FeatureKey = "staff_accounts"
	FeatureOrdersMonthly     FeatureKey = "orders_monthly"
	FeatureAPICallsDaily     FeatureKey = "api_calls_daily"
	FeatureCustomDomain      FeatureKey = "custom_domain"
	FeatureAdvancedAnalytics FeatureKey = "advanced_analytics"
	FeatureAPIAccess         FeatureKey = "api_access"
)

var featureKeys = []FeatureKey{
	FeatureProductsCount,
	FeatureStoresCount,
	FeatureStaffAccounts,
	FeatureOrdersMonthly,
	FeatureAPICallsDaily,
	FeatureCustomDomain,
	FeatureAdvancedAnalytics,
	FeatureAPIAccess,
}

// FeatureKeys returns all known feature keys in a stable order.
func FeatureKeys() []FeatureKey {
	out := make([]FeatureKey, len(featureKeys))
	copy(out, featureKeys)
	return out
}

// Valid reports whether k is a known feature key.
func (k FeatureKey) Valid() bool {
	for _, known := range featureKeys {
		if k == known {
			return true
		}
	}
	return false
}

// ParseFeatureKey converts s into a FeatureKey or returns ErrInvalidFeatureKey.
func ParseFeatureKey(s string) (FeatureKey, error) {
	k := FeatureKey(s)
	if !k.Valid() {
		return "", ErrInvalidFeatureKey
	}
	return k, nil
}

// LimitType describes how a limit is counted.
type LimitType string

const (
	LimitTypeCount   LimitType = "count"   // lifetime cap
	LimitTypeMonthly LimitType = "monthly" // cap reset on a periodic window
	LimitTypeBoolean LimitType = "boolean" // on/off, no numeric cap
)

// Valid reports whether t is a known limit type.
func (t LimitType) Valid() bool {
	switch t {
	case LimitTypeCount, LimitTypeMonthly, LimitTypeBoolean:
		return true
	}
	return false
}

// ResetPeriod governs whether and when usage counters roll over.
type ResetPeriod string

const (
	ResetDaily   ResetPeriod = "daily"
	ResetMonthly ResetPeriod = "monthly"
	ResetNever   ResetPeriod = "never"
)

// Valid reports whether p is a known reset period.
func (p ResetPeriod) Valid() bool {
	switch p {
	case ResetDaily, ResetMonthly, ResetNever:
		return true
	}
	return false
}

// LimitSource tells where an effective limit came from.
type LimitSource string

const (
	SourcePlan     LimitSource = "plan"
	SourceOverride LimitSource = "override"
)

// FeatureLimit is the per-plan limit definition. Exactly one exists per (PlanType, FeatureKey).
type FeatureLimit struct {
	PlanType    PlanType    `json:"plan_type"`
	FeatureKey  FeatureKey  `json:"feature_key"`
	LimitType   LimitType   `json:"limit_type"`
	Quota       Quota       `json:"limit_value"`
	ResetPeriod ResetPeriod `json:"reset_period"`
	Enabled     bool        `json:"enabled"`
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// FeatureOverride grants a single user a limit that differs from their plan's default.
type FeatureOverride struct {
	UserID      uuid.UUID   `json:"user_id"`
	FeatureKey  FeatureKey  `json:"feature_key"`
	LimitType   LimitType   `json:"limit_type"`
	Quota       Quota       `json:"limit_value"`
	ResetPeriod ResetPeriod `json:"reset_period"`
	Enabled     bool        `json:"enabled"`
	Reason      string      `json:"reason,omitempty"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// IsActiveAt reports whether the override applies at the given instant.
// An expired override must be treated as absent.
func (o FeatureOverride) IsActiveAt(now time.Time) bool {
	return o.ExpiresAt == nil || o.ExpiresAt.After(now)
}

// UsageRecord is the evolving counter for a (user, feature) pair.
type UsageRecord struct {
	UserID          uuid.UUID  `json:"user_id"`
	FeatureKey      FeatureKey `json:"feature_key"`
	Count           int64      `json:"current_count"`
	WindowStartedAt time.Time  `json:"window_started_at"`
}

// EffectiveLimit is the resolved limit for a user and feature, with provenance.
type EffectiveLimit struct {
	FeatureKey  FeatureKey  `json:"feature_key"`
	LimitType   LimitType   `json:"limit_type"`
	Quota       Quota       `json:"limit_value"`
	ResetPeriod ResetPeriod `json:"reset_period"`
	Enabled     bool        `json:"enabled"`
	Source      LimitSource `json:"source"`
	PlanType    PlanType    `json:"plan_type"`
}

// CheckResult is the outcome of a decision call. It carries everything needed to
// render a progress indicator or an upgrade prompt.
type CheckResult struct {
	Allowed         bool        `json:"allowed"`
	Limit           int64       `json:"limit"`
	Current         int64       `json:"current"`
	Unlimited       bool        `json:"unlimited"`
	Message         string      `json:"message,omitempty"`
	UpgradeRequired bool        `json:"upgradeRequired"`
	SuggestedPlan   PlanType    `json:"suggestedPlan,omitempty"`
	Source          LimitSource `json:"source,omitempty"`
}

// UsageSummary describes usage of one feature for dashboards.
type UsageSummary struct {
	FeatureKey FeatureKey  `json:"feature_key"`
	LimitType  LimitType   `json:"limit_type"`
	Enabled    bool        `json:"enabled"`
	Current    int64       `json:"current"`
	Limit      int64       `json:"limit"`
	Unlimited  bool        `json:"unlimited"`
	Percentage int         `json:"percentage"` // 0-100, or -1 for unlimited
	ResetsAt   *time.Time  `json:"resets_at,omitempty"`
	Source     LimitSource `json:"source"`
}
