package limits

import (
	"log/slog"
	"time"
)

// Enforcement selects how usage recording treats the cap of a feature.
type Enforcement string

const (
	// EnforcementSoft records usage unconditionally. A burst of requests between
	// CanUseFeature and TrackUsage may overshoot the cap slightly.
	EnforcementSoft Enforcement = "soft"
	// EnforcementStrict refuses increments that would exceed the cap.
	EnforcementStrict Enforcement = "strict"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// WithPlanResolver sets the resolver used to find a user's plan.
// Default resolver (PlanContextResolver) expects the plan in context.
func WithPlanResolver(resolver PlanResolver) ServiceOption {
	return func(s *Service) {
		if resolver != nil {
			s.resolvePlan = resolver
		}
	}
}

// WithUsageStore keeps usage counters in a dedicated backend (e.g. redis)
// while limit definitions and overrides stay in the main store.
func WithUsageStore(store UsageStore) ServiceOption {
	return func(s *Service) {
		if store != nil {
			s.usage = store
		}
	}
}

// WithLogger sets the structured logger. Nil loggers are ignored.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the wall clock. Intended for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEnforcement sets the enforcement mode for a single feature.
func WithEnforcement(feature FeatureKey, mode Enforcement) ServiceOption {
	return func(s *Service) {
		s.enforcement[feature] = mode
	}
}

// WithStrictFeatures marks the given features as strictly enforced.
func WithStrictFeatures(features ...FeatureKey) ServiceOption {
	return func(s *Service) {
		for _, f := range features {
			s.enforcement[f] = EnforcementStrict
		}
	}
}
