package limits

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// PlanResolver resolves the current plan of a user.
// Implementations return ErrUserNotFound when the user has no account.
type PlanResolver func(ctx context.Context, userID uuid.UUID) (PlanType, error)

type planCtxKey struct{}

// SetPlanToContext stores the user's plan in the context for downstream access.
func SetPlanToContext(ctx context.Context, plan PlanType) context.Context {
	return context.WithValue(ctx, planCtxKey{}, plan)
}

// GetPlanFromContext retrieves the plan from the context, if present.
func GetPlanFromContext(ctx context.Context) (PlanType, bool) {
	plan, ok := ctx.Value(planCtxKey{}).(PlanType)
	return plan, ok
}

// PlanContextResolver is the default resolver: it reads the plan placed in the
// context by the identity middleware.
func PlanContextResolver(ctx context.Context, _ uuid.UUID) (PlanType, error) {
	plan, ok := GetPlanFromContext(ctx)
	if !ok {
		return "", errors.Join(ErrUserNotFound, ErrPlanNotInContext)
	}
	return plan, nil
}

// StaticPlanResolver resolves plans from a fixed map. Useful for tests and tooling.
func StaticPlanResolver(plans map[uuid.UUID]PlanType) PlanResolver {
	return func(_ context.Context, userID uuid.UUID) (PlanType, error) {
		plan, ok := plans[userID]
		if !ok {
			return "", ErrUserNotFound
		}
		return plan, nil
	}
}

// ChainPlanResolvers tries each resolver in order and returns the first plan
// found. A resolver that reports ErrUserNotFound passes to the next one; any
// other error stops the chain.
func ChainPlanResolvers(resolvers ...PlanResolver) PlanResolver {
	return func(ctx context.Context, userID uuid.UUID) (PlanType, error) {
		err := ErrUserNotFound
		for _, resolve := range resolvers {
			if resolve == nil {
				continue
			}
			var plan PlanType
			plan, err = resolve(ctx, userID)
			if err == nil {
				return plan, nil
			}
			if !errors.Is(err, ErrUserNotFound) {
				return "", err
			}
		}
		return "", err
	}
}
