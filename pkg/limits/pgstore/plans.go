package pgstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
	"github.com/dmitrymomot/featurelimits/pkg/pg"
)

// ResolvePlan reads the user's plan from user_plans. It satisfies limits.PlanResolver.
func (s *Store) ResolvePlan(ctx context.Context, userID uuid.UUID) (limits.PlanType, error) {
	var plan string
	err := s.db.QueryRow(ctx, `SELECT plan_type FROM user_plans WHERE user_id = $1`, userID).Scan(&plan)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return "", limits.ErrUserNotFound
		}
		return "", fmt.Errorf("resolve user plan: %w", err)
	}
	return limits.PlanType(plan), nil
}

// SetUserPlan assigns plan to the user, replacing any previous assignment.
func (s *Store) SetUserPlan(ctx context.Context, userID uuid.UUID, plan limits.PlanType) error {
	if !plan.Valid() {
		return limits.ErrInvalidPlanType
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO user_plans (user_id, plan_type) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET plan_type = EXCLUDED.plan_type, updated_at = now()`,
		userID, string(plan))
	if err != nil {
		return fmt.Errorf("set user plan: %w", err)
	}
	return nil
}
