package limits

// defaultLimit is a row of the built-in baseline table.
type defaultLimit struct {
	limitType   LimitType
	quota       Quota
	reset       ResetPeriod
	enabled     bool
	description string
}

func lifetime(n int64, desc string) defaultLimit {
	return defaultLimit{LimitTypeCount, Bounded(n), ResetNever, true, desc}
}

func perMonth(n int64, desc string) defaultLimit {
	return defaultLimit{LimitTypeMonthly, Bounded(n), ResetMonthly, true, desc}
}

func perDay(n int64, desc string) defaultLimit {
	return defaultLimit{LimitTypeCount, Bounded(n), ResetDaily, true, desc}
}

func unbounded(t LimitType, reset ResetPeriod, desc string) defaultLimit {
	return defaultLimit{t, Unlimited, reset, true, desc}
}

func flag(enabled bool, desc string) defaultLimit {
	return defaultLimit{LimitTypeBoolean, Bounded(0), ResetNever, enabled, desc}
}

// defaultLimits is the baseline used by SeedDefaultLimits.
var defaultLimits = map[PlanType]map[FeatureKey]defaultLimit{
	PlanFree: {
		FeatureProductsCount:     lifetime(10, "Products in catalog"),
		FeatureStoresCount:       lifetime(1, "Storefronts"),
		FeatureStaffAccounts:     lifetime(0, "Staff accounts"),
		FeatureOrdersMonthly:     perMonth(100, "Orders per month"),
		FeatureAPICallsDaily:     perDay(0, "API calls per day"),
		FeatureCustomDomain:      flag(false, "Custom domain"),
		FeatureAdvancedAnalytics: flag(false, "Advanced analytics"),
		FeatureAPIAccess:         flag(false, "API access"),
	},
	PlanBasic: {
		FeatureProductsCount:     lifetime(100, "Products in catalog"),
		FeatureStoresCount:       lifetime(1, "Storefronts"),
		FeatureStaffAccounts:     lifetime(2, "Staff accounts"),
		FeatureOrdersMonthly:     perMonth(1000, "Orders per month"),
		FeatureAPICallsDaily:     perDay(1000, "API calls per day"),
		FeatureCustomDomain:      flag(true, "Custom domain"),
		FeatureAdvancedAnalytics: flag(false, "Advanced analytics"),
		FeatureAPIAccess:         flag(true, "API access"),
	},
	PlanPro: {
		FeatureProductsCount:     lifetime(1000, "Products in catalog"),
		FeatureStoresCount:       lifetime(3, "Storefronts"),
		FeatureStaffAccounts:     lifetime(10, "Staff accounts"),
		FeatureOrdersMonthly:     perMonth(10000, "Orders per month"),
		FeatureAPICallsDaily:     perDay(10000, "API calls per day"),
		FeatureCustomDomain:      flag(true, "Custom domain"),
		FeatureAdvancedAnalytics: flag(true, "Advanced analytics"),
		FeatureAPIAccess:         flag(true, "API access"),
	},
	PlanEnterprise: {
		FeatureProductsCount:     unbounded(LimitTypeCount, ResetNever, "Products in catalog"),
		FeatureStoresCount:       unbounded(LimitTypeCount, ResetNever, "Storefronts"),
		FeatureStaffAccounts:     unbounded(LimitTypeCount, ResetNever, "Staff accounts"),
		FeatureOrdersMonthly:     unbounded(LimitTypeMonthly, ResetMonthly, "Orders per month"),
		FeatureAPICallsDaily:     unbounded(LimitTypeCount, ResetDaily, "API calls per day"),
		FeatureCustomDomain:      flag(true, "Custom domain"),
		FeatureAdvancedAnalytics: flag(true, "Advanced analytics"),
		FeatureAPIAccess:         flag(true, "API access"),
	},
}

// DefaultLimits returns the built-in baseline for every known (plan, feature) pair,
// ordered by plan tier then feature key.
func DefaultLimits() []FeatureLimit {
	out := make([]FeatureLimit, 0, len(planOrder)*len(featureKeys))
	for _, plan := range planOrder {
		for _, feature := range featureKeys {
			d, ok := defaultLimits[plan][feature]
			if !ok {
				continue
			}
			out = append(out, FeatureLimit{
				PlanType:    plan,
				FeatureKey:  feature,
				LimitType:   d.limitType,
				Quota:       d.quota,
				ResetPeriod: d.reset,
				Enabled:     d.enabled,
				Description: d.description,
			})
		}
	}
	return out
}
