package limits

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/featurelimits/pkg/logger"
)

// The methods in this file are administrative. The service does not check the
// caller's role: the invoking layer must verify the requester is an administrator.

// GetAllFeatureLimits returns every limit definition.
func (s *Service) GetAllFeatureLimits(ctx context.Context) ([]FeatureLimit, error) {
	limits, err := s.limits.ListLimits(ctx)
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return limits, nil
}

// UpsertFeatureLimit creates the (plan, feature) row or replaces it in place.
func (s *Service) UpsertFeatureLimit(ctx context.Context, in UpsertLimitInput) (FeatureLimit, error) {
	if err := in.Validate(); err != nil {
		return FeatureLimit{}, err
	}

	limit, err := s.limits.UpsertLimit(ctx, in.FeatureLimit())
	if err != nil {
		return FeatureLimit{}, errors.Join(ErrStorage, err)
	}

	s.log.InfoContext(ctx, "feature limit upserted",
		logger.Plan(limit.PlanType), logger.Feature(limit.FeatureKey),
		slog.String("limit_type", string(limit.LimitType)),
		slog.String("limit_value", limit.Quota.String()),
		slog.Bool("enabled", limit.Enabled))
	return limit, nil
}

// DeleteFeatureLimit removes the (plan, feature) row. Resolution for that pair
// then fails closed.
func (s *Service) DeleteFeatureLimit(ctx context.Context, plan PlanType, feature FeatureKey) error {
	if !plan.Valid() {
		return ErrInvalidPlanType
	}
	if !feature.Valid() {
		return ErrInvalidFeatureKey
	}

	if err := s.limits.DeleteLimit(ctx, plan, feature); err != nil {
		return errors.Join(ErrStorage, err)
	}

	s.log.InfoContext(ctx, "feature limit deleted", logger.Plan(plan), logger.Feature(feature))
	return nil
}

// SeedDefaultLimits ensures a baseline row exists for every known (plan, feature) pair.
// Existing rows are never overwritten. Returns the number of rows inserted.
func (s *Service) SeedDefaultLimits(ctx context.Context) (int, error) {
	inserted := 0
	for _, limit := range DefaultLimits() {
		ok, err := s.limits.InsertLimitIfAbsent(ctx, limit)
		if err != nil {
			return inserted, errors.Join(ErrStorage, err)
		}
		if ok {
			inserted++
		}
	}

	s.log.InfoContext(ctx, "default feature limits seeded", slog.Int("inserted", inserted))
	return inserted, nil
}

// SetOverride grants a user a limit that takes precedence over their plan while active.
func (s *Service) SetOverride(ctx context.Context, in SetOverrideInput) (FeatureOverride, error) {
	if err := in.Validate(s.now()); err != nil {
		return FeatureOverride{}, err
	}

	override, err := s.overrides.UpsertOverride(ctx, in.FeatureOverride())
	if err != nil {
		return FeatureOverride{}, errors.Join(ErrStorage, err)
	}

	s.log.InfoContext(ctx, "feature override set",
		logger.UserID(override.UserID), logger.Feature(override.FeatureKey),
		slog.String("limit_value", override.Quota.String()))
	return override, nil
}

// RemoveOverride deletes the user's override for a feature.
func (s *Service) RemoveOverride(ctx context.Context, userID uuid.UUID, feature FeatureKey) error {
	if !feature.Valid() {
		return ErrInvalidFeatureKey
	}
	if err := s.overrides.DeleteOverride(ctx, userID, feature); err != nil {
		return errors.Join(ErrStorage, err)
	}

	s.log.InfoContext(ctx, "feature override removed", logger.UserID(userID), logger.Feature(feature))
	return nil
}

// ListOverrides returns the user's overrides, expired ones included.
func (s *Service) ListOverrides(ctx context.Context, userID uuid.UUID) ([]FeatureOverride, error) {
	overrides, err := s.overrides.ListOverrides(ctx, userID)
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return overrides, nil
}

// ResetUsage clears the user's usage counter for a feature.
func (s *Service) ResetUsage(ctx context.Context, userID uuid.UUID, feature FeatureKey) error {
	if !feature.Valid() {
		return ErrInvalidFeatureKey
	}
	if err := s.usage.ResetUsage(ctx, userID, feature); err != nil {
		return errors.Join(ErrStorage, err)
	}

	s.log.InfoContext(ctx, "feature usage reset", logger.UserID(userID), logger.Feature(feature))
	return nil
}
