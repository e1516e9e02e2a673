// Package limits decides whether a user may use a product feature, and how much
// of it, based on the user's subscription plan, optional per-user overrides and
// recorded usage.
//
// Key concepts:
//
//   - FeatureLimit: the allowance of a (plan, feature) pair. Counted features
//     carry a Quota, boolean features are plain on/off switches.
//   - FeatureOverride: a per-user allowance that fully replaces the plan row
//     while it is active (no expiry, or expiry in the future).
//   - UsageRecord: the counter for a (user, feature) pair. Counters with a daily
//     or monthly ResetPeriod roll over lazily: a record whose window started
//     before WindowStart(period, now) counts as zero and is restarted by the
//     next increment.
//
// Resolution fails closed. A feature without a plan row is reported as not
// available, and a storage failure produces a denial together with the error.
//
// Basic usage:
//
//	svc := limits.NewService(store,
//	    limits.WithPlanResolver(pgstore.ResolvePlan),
//	    limits.WithLogger(log),
//	)
//
//	res, err := svc.CanUseFeature(ctx, userID, limits.FeatureProductsCount, 1)
//	if err != nil || !res.Allowed {
//	    return res // res.Message and res.SuggestedPlan explain the denial
//	}
//	// ... create the product ...
//	svc.TrackUsage(ctx, userID, limits.FeatureProductsCount, 1)
//
// CanUseFeature followed by TrackUsage is not atomic: concurrent requests may
// overshoot a cap by the number of in-flight operations. Features registered
// with WithStrictFeatures refuse such increments, and Consume/Release provide a
// check-and-reserve in a single step.
//
// Storage is pluggable through the LimitStore, OverrideStore and UsageStore
// ports. MemoryStore serves tests, pgstore, mongostore and redisstore provide
// persistent backends. WithLimitCache keeps limit definitions in memory for a
// short TTL in front of any LimitStore.
package limits
