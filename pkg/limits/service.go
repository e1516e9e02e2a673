package limits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/featurelimits/pkg/logger"
)

// MaxAmount is the largest number of units a single usage call may record or
// release. Larger amounts are rejected with ErrInvalidAmount so counters can
// never overflow.
const MaxAmount int64 = 1_000_000_000_000

func validAmount(amount int64) bool {
	return amount >= 1 && amount <= MaxAmount
}

// Service is the entitlement decision engine. It holds no usage state of its
// own: every call reads and writes through the configured stores.
// Construct it once per process and share it.
type Service struct {
	limits      LimitStore
	overrides   OverrideStore
	usage       UsageStore
	resolvePlan PlanResolver
	log         *slog.Logger
	now         func() time.Time
	enforcement map[FeatureKey]Enforcement
}

// NewService creates a Service backed by store.
// Panics if store is nil to fail fast on misconfiguration.
func NewService(store Store, opts ...ServiceOption) *Service {
	if store == nil {
		panic("limits: Store is required")
	}

	s := &Service{
		limits:      store,
		overrides:   store,
		usage:       store,
		resolvePlan: PlanContextResolver,
		log:         slog.New(slog.DiscardHandler),
		now:         time.Now,
		enforcement: make(map[FeatureKey]Enforcement),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ResolveLimit returns the effective limit of a feature for a user.
// An active override fully determines the result; otherwise the plan row is used.
// A missing plan row yields ErrFeatureNotConfigured: absence never grants access.
func (s *Service) ResolveLimit(ctx context.Context, userID uuid.UUID, feature FeatureKey) (EffectiveLimit, error) {
	if !feature.Valid() {
		return EffectiveLimit{}, ErrInvalidFeatureKey
	}

	plan, err := s.planOf(ctx, userID)
	if err != nil {
		return EffectiveLimit{}, err
	}

	override, err := s.overrides.GetOverride(ctx, userID, feature)
	switch {
	case err == nil:
		if override.IsActiveAt(s.now()) {
			s.log.DebugContext(ctx, "feature limit resolved from override",
				logger.UserID(userID), logger.Feature(feature), logger.Plan(plan))
			return EffectiveLimit{
				FeatureKey:  feature,
				LimitType:   override.LimitType,
				Quota:       override.Quota,
				ResetPeriod: override.ResetPeriod,
				Enabled:     override.Enabled,
				Source:      SourceOverride,
				PlanType:    plan,
			}, nil
		}
	case !errors.Is(err, ErrOverrideNotFound):
		return EffectiveLimit{}, errors.Join(ErrStorage, err)
	}

	limit, err := s.limits.GetLimit(ctx, plan, feature)
	if err != nil {
		if errors.Is(err, ErrLimitNotFound) {
			return EffectiveLimit{FeatureKey: feature, Source: SourcePlan, PlanType: plan}, ErrFeatureNotConfigured
		}
		return EffectiveLimit{}, errors.Join(ErrStorage, err)
	}

	return EffectiveLimit{
		FeatureKey:  feature,
		LimitType:   limit.LimitType,
		Quota:       limit.Quota,
		ResetPeriod: limit.ResetPeriod,
		Enabled:     limit.Enabled,
		Source:      SourcePlan,
		PlanType:    plan,
	}, nil
}

// GetCurrentUsage returns the usage of a feature in the current counting window.
// Boolean features report 0. A missing usage record counts as zero.
func (s *Service) GetCurrentUsage(ctx context.Context, userID uuid.UUID, feature FeatureKey) (int64, error) {
	eff, err := s.ResolveLimit(ctx, userID, feature)
	if err != nil && !errors.Is(err, ErrFeatureNotConfigured) {
		return 0, err
	}
	if eff.LimitType == LimitTypeBoolean {
		return 0, nil
	}
	return s.currentUsage(ctx, userID, feature, eff.ResetPeriod)
}

// CanUseFeature decides whether the user may consume requested more units of the feature.
// Values of requested below 1 are treated as 1.
//
// The returned result is always usable: on error it is a denial with a message,
// so callers that only look at Allowed fail safe.
func (s *Service) CanUseFeature(ctx context.Context, userID uuid.UUID, feature FeatureKey, requested int64) (CheckResult, error) {
	if requested < 1 {
		requested = 1
	}

	eff, err := s.ResolveLimit(ctx, userID, feature)
	if err != nil {
		if errors.Is(err, ErrFeatureNotConfigured) {
			return notAvailable(feature, eff.Source), nil
		}
		s.log.ErrorContext(ctx, "failed to resolve feature limit",
			logger.UserID(userID), logger.Feature(feature), logger.Error(err))
		return CheckResult{Allowed: false, Message: "Unable to verify access to this feature."}, err
	}

	if !eff.Enabled {
		return notAvailable(feature, eff.Source), nil
	}

	if eff.LimitType == LimitTypeBoolean {
		return CheckResult{Allowed: true, Source: eff.Source}, nil
	}

	current, err := s.currentUsage(ctx, userID, feature, eff.ResetPeriod)
	if err != nil {
		if eff.Quota.IsUnlimited() {
			s.log.WarnContext(ctx, "failed to read usage of unlimited feature",
				logger.UserID(userID), logger.Feature(feature), logger.Error(err))
			return unlimitedResult(0, eff.Source), nil
		}
		s.log.ErrorContext(ctx, "failed to read feature usage",
			logger.UserID(userID), logger.Feature(feature), logger.Error(err))
		return CheckResult{Allowed: false, Message: "Unable to verify access to this feature.", Source: eff.Source}, err
	}

	if eff.Quota.IsUnlimited() {
		return unlimitedResult(current, eff.Source), nil
	}

	if eff.Quota.Allows(current, requested) {
		return CheckResult{
			Allowed: true,
			Limit:   eff.Quota.Value(),
			Current: current,
			Source:  eff.Source,
		}, nil
	}

	return s.exceeded(ctx, eff, current, requested), nil
}

// HasFeatureAccess reports whether the feature resolves and is enabled for the user.
// Intended for show/hide gating of UI elements.
func (s *Service) HasFeatureAccess(ctx context.Context, userID uuid.UUID, feature FeatureKey) bool {
	eff, err := s.ResolveLimit(ctx, userID, feature)
	if err != nil {
		if !errors.Is(err, ErrFeatureNotConfigured) && !IsCallerError(err) {
			s.log.ErrorContext(ctx, "failed to resolve feature access",
				logger.UserID(userID), logger.Feature(feature), logger.Error(err))
		}
		return false
	}
	return eff.Enabled
}

// TrackUsage records amount units of usage after the protected operation succeeded.
// It is best-effort bookkeeping: failures are logged and never returned, so a lost
// increment cannot turn a completed business operation into a reported failure.
// An amount below 1 is recorded as 1.
func (s *Service) TrackUsage(ctx context.Context, userID uuid.UUID, feature FeatureKey, amount int64) {
	amount = max(amount, 1)
	if _, err := s.RecordUsage(ctx, userID, feature, amount); err != nil {
		level := slog.LevelError
		if errors.Is(err, ErrLimitExceeded) {
			level = slog.LevelWarn
		}
		s.log.Log(ctx, level, "failed to track feature usage",
			logger.UserID(userID), logger.Feature(feature),
			logger.Amount(amount), logger.Error(err))
	}
}

// RecordUsage is the error-returning form of TrackUsage. It returns the new count.
// Amounts outside [1, MaxAmount] are rejected with ErrInvalidAmount.
// Boolean features are not counted and return 0.
// For strictly enforced features an increment that would exceed the cap is
// refused with ErrLimitExceeded.
func (s *Service) RecordUsage(ctx context.Context, userID uuid.UUID, feature FeatureKey, amount int64) (int64, error) {
	if !validAmount(amount) {
		return 0, ErrInvalidAmount
	}

	eff, err := s.ResolveLimit(ctx, userID, feature)
	if err != nil {
		return 0, err
	}
	if eff.LimitType == LimitTypeBoolean {
		return 0, nil
	}

	ceiling := Unlimited
	if s.enforcementOf(feature) == EnforcementStrict {
		ceiling = eff.Quota
	}

	count, applied, err := s.usage.IncrementUsage(ctx, userID, feature, amount, WindowStart(eff.ResetPeriod, s.now()), ceiling)
	if err != nil {
		return 0, errors.Join(ErrStorage, err)
	}
	if !applied {
		return count, ErrLimitExceeded
	}

	s.log.DebugContext(ctx, "feature usage recorded",
		logger.UserID(userID), logger.Feature(feature),
		logger.Amount(amount), slog.Int64("count", count))
	return count, nil
}

// Consume atomically checks the cap and records amount units of usage.
// Use it instead of CanUseFeature+TrackUsage when an overshoot is not acceptable,
// and call Release if the protected operation fails afterwards.
func (s *Service) Consume(ctx context.Context, userID uuid.UUID, feature FeatureKey, amount int64) (CheckResult, error) {
	if !validAmount(amount) {
		return CheckResult{Allowed: false, Message: "Invalid amount."}, ErrInvalidAmount
	}

	eff, err := s.ResolveLimit(ctx, userID, feature)
	if err != nil {
		if errors.Is(err, ErrFeatureNotConfigured) {
			return notAvailable(feature, eff.Source), nil
		}
		return CheckResult{Allowed: false, Message: "Unable to verify access to this feature."}, err
	}
	if !eff.Enabled {
		return notAvailable(feature, eff.Source), nil
	}
	if eff.LimitType == LimitTypeBoolean {
		return CheckResult{Allowed: true, Source: eff.Source}, nil
	}

	count, applied, err := s.usage.IncrementUsage(ctx, userID, feature, amount, WindowStart(eff.ResetPeriod, s.now()), eff.Quota)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to consume feature usage",
			logger.UserID(userID), logger.Feature(feature), logger.Error(err))
		return CheckResult{Allowed: false, Message: "Unable to verify access to this feature.", Source: eff.Source}, errors.Join(ErrStorage, err)
	}

	switch {
	case eff.Quota.IsUnlimited():
		return unlimitedResult(count, eff.Source), nil
	case applied:
		return CheckResult{Allowed: true, Limit: eff.Quota.Value(), Current: count, Source: eff.Source}, nil
	default:
		return s.exceeded(ctx, eff, count, amount), nil
	}
}

// Release gives back amount units previously taken with Consume.
// The counter never drops below zero.
func (s *Service) Release(ctx context.Context, userID uuid.UUID, feature FeatureKey, amount int64) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}

	eff, err := s.ResolveLimit(ctx, userID, feature)
	if err != nil {
		return err
	}
	if eff.LimitType == LimitTypeBoolean {
		return nil
	}

	if _, err := s.usage.DecrementUsage(ctx, userID, feature, amount, WindowStart(eff.ResetPeriod, s.now())); err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

// GetUsageSummary returns usage of every configured feature for the user,
// suitable for rendering progress bars. Unconfigured features are skipped.
func (s *Service) GetUsageSummary(ctx context.Context, userID uuid.UUID) ([]UsageSummary, error) {
	now := s.now()
	out := make([]UsageSummary, 0, len(featureKeys))

	for _, feature := range featureKeys {
		eff, err := s.ResolveLimit(ctx, userID, feature)
		if err != nil {
			if errors.Is(err, ErrFeatureNotConfigured) {
				continue
			}
			return nil, err
		}

		summary := UsageSummary{
			FeatureKey: feature,
			LimitType:  eff.LimitType,
			Enabled:    eff.Enabled,
			Limit:      eff.Quota.Int64(),
			Unlimited:  eff.Quota.IsUnlimited(),
			Source:     eff.Source,
		}

		if eff.LimitType != LimitTypeBoolean {
			current, err := s.currentUsage(ctx, userID, feature, eff.ResetPeriod)
			if err != nil {
				return nil, err
			}
			summary.Current = current
			summary.Percentage = usagePercentage(current, eff.Quota)
			summary.ResetsAt = NextReset(eff.ResetPeriod, now)
		}

		out = append(out, summary)
	}

	return out, nil
}

func (s *Service) planOf(ctx context.Context, userID uuid.UUID) (PlanType, error) {
	plan, err := s.resolvePlan(ctx, userID)
	if err != nil {
		if IsCallerError(err) {
			return "", err
		}
		return "", errors.Join(ErrStorage, err)
	}
	if !plan.Valid() {
		return "", ErrInvalidPlanType
	}
	return plan, nil
}

func (s *Service) currentUsage(ctx context.Context, userID uuid.UUID, feature FeatureKey, period ResetPeriod) (int64, error) {
	rec, err := s.usage.GetUsage(ctx, userID, feature)
	if err != nil {
		if errors.Is(err, ErrUsageNotFound) {
			return 0, nil
		}
		return 0, errors.Join(ErrStorage, err)
	}
	return countInWindow(rec, period, s.now()), nil
}

func (s *Service) enforcementOf(feature FeatureKey) Enforcement {
	if mode, ok := s.enforcement[feature]; ok {
		return mode
	}
	return EnforcementSoft
}

// exceeded builds the denial for a bounded limit that cannot accommodate the request.
func (s *Service) exceeded(ctx context.Context, eff EffectiveLimit, current, requested int64) CheckResult {
	res := CheckResult{
		Allowed:         false,
		Limit:           eff.Quota.Value(),
		Current:         current,
		UpgradeRequired: true,
		Source:          eff.Source,
		Message: fmt.Sprintf("You have used %d of %d allowed for %s.",
			current, eff.Quota.Value(), eff.FeatureKey),
	}

	if eff.Source == SourcePlan {
		if plan := s.suggestPlan(ctx, eff.PlanType, eff.FeatureKey, current, requested); plan != "" {
			res.SuggestedPlan = plan
			res.Message += fmt.Sprintf(" Upgrade to the %s plan to get more.", plan)
		}
	}

	return res
}

// suggestPlan returns the cheapest tier above current whose limit accommodates the request.
func (s *Service) suggestPlan(ctx context.Context, current PlanType, feature FeatureKey, used, requested int64) PlanType {
	for _, plan := range PlansAbove(current) {
		limit, err := s.limits.GetLimit(ctx, plan, feature)
		if err != nil {
			if errors.Is(err, ErrLimitNotFound) {
				continue
			}
			s.log.WarnContext(ctx, "failed to load limit for upgrade suggestion",
				logger.Plan(plan), logger.Feature(feature), logger.Error(err))
			return ""
		}
		if limit.Enabled && limit.LimitType != LimitTypeBoolean && limit.Quota.Allows(used, requested) {
			return plan
		}
	}
	return ""
}

func notAvailable(feature FeatureKey, source LimitSource) CheckResult {
	return CheckResult{
		Allowed: false,
		Message: fmt.Sprintf("The %s feature is not available on this plan.", feature),
		Source:  source,
	}
}

func unlimitedResult(current int64, source LimitSource) CheckResult {
	return CheckResult{
		Allowed:   true,
		Limit:     UnlimitedSentinel,
		Current:   current,
		Unlimited: true,
		Source:    source,
	}
}

// usagePercentage returns usage as percentage (0-100, or -1 for unlimited).
func usagePercentage(current int64, q Quota) int {
	if q.IsUnlimited() {
		return -1
	}
	if q.Value() == 0 {
		return 100
	}
	if current >= q.Value() {
		return 100
	}
	return int(float64(max(current, 0)) * 100 / float64(q.Value()))
}
