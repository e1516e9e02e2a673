package limits

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LimitStore persists per-plan limit definitions.
type LimitStore interface {
	// ListLimits returns every limit definition.
	ListLimits(ctx context.Context) ([]FeatureLimit, error)

	// GetLimit returns the definition for (plan, feature).
	// Returns ErrLimitNotFound if no row exists.
	GetLimit(ctx context.Context, plan PlanType, feature FeatureKey) (FeatureLimit, error)

	// UpsertLimit creates the row or replaces all mutable fields in place.
	UpsertLimit(ctx context.Context, limit FeatureLimit) (FeatureLimit, error)

	// InsertLimitIfAbsent creates the row only when none exists for (plan, feature).
	// Reports whether a row was inserted.
	InsertLimitIfAbsent(ctx context.Context, limit FeatureLimit) (bool, error)

	// DeleteLimit removes the row. Deleting a missing row is not an error.
	DeleteLimit(ctx context.Context, plan PlanType, feature FeatureKey) error
}

// OverrideStore persists per-user overrides.
type OverrideStore interface {
	// GetOverride returns the override for (user, feature) regardless of expiry.
	// Returns ErrOverrideNotFound if no row exists.
	GetOverride(ctx context.Context, userID uuid.UUID, feature FeatureKey) (FeatureOverride, error)

	// UpsertOverride creates or replaces the override for (user, feature).
	UpsertOverride(ctx context.Context, override FeatureOverride) (FeatureOverride, error)

	// DeleteOverride removes the override. Deleting a missing row is not an error.
	DeleteOverride(ctx context.Context, userID uuid.UUID, feature FeatureKey) error

	// ListOverrides returns all overrides of a user, expired ones included.
	ListOverrides(ctx context.Context, userID uuid.UUID) ([]FeatureOverride, error)
}

// UsageStore persists usage counters.
type UsageStore interface {
	// GetUsage returns the stored record. Returns ErrUsageNotFound if none exists.
	GetUsage(ctx context.Context, userID uuid.UUID, feature FeatureKey) (UsageRecord, error)

	// IncrementUsage atomically adds amount to the counter.
	// If the stored window started before windowStart, the counter is reset to zero
	// and its window moved to windowStart first. When ceiling is bounded and the new
	// count would exceed it, nothing is written and applied is false.
	// Concurrent increments for the same key must never lose an update.
	IncrementUsage(ctx context.Context, userID uuid.UUID, feature FeatureKey, amount int64, windowStart time.Time, ceiling Quota) (count int64, applied bool, err error)

	// DecrementUsage atomically subtracts amount, clamping at zero.
	// A counter whose window is older than windowStart is left at zero.
	DecrementUsage(ctx context.Context, userID uuid.UUID, feature FeatureKey, amount int64, windowStart time.Time) (int64, error)

	// ResetUsage removes the counter.
	ResetUsage(ctx context.Context, userID uuid.UUID, feature FeatureKey) error
}

// Store is the full persistence port of the service.
type Store interface {
	LimitStore
	OverrideStore
	UsageStore
}
