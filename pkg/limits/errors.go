package limits

import "errors"

// Domain errors for limits operations
var (
	// Caller errors
	ErrInvalidFeatureKey = errors.New("limits.errors.invalid_feature_key")
	ErrInvalidPlanType   = errors.New("limits.errors.invalid_plan_type")
	ErrUserNotFound      = errors.New("limits.errors.user_not_found")
	ErrInvalidLimitInput = errors.New("limits.errors.invalid_limit_input")
	ErrInvalidAmount     = errors.New("limits.errors.invalid_amount")

	// Configuration gaps (fail closed)
	ErrFeatureNotConfigured = errors.New("limits.errors.feature_not_configured")
	ErrFeatureDisabled      = errors.New("limits.errors.feature_disabled")
	ErrLimitExceeded        = errors.New("limits.errors.limit_exceeded")

	// Store lookups
	ErrLimitNotFound    = errors.New("limits.errors.limit_not_found")
	ErrOverrideNotFound = errors.New("limits.errors.override_not_found")
	ErrUsageNotFound    = errors.New("limits.errors.usage_not_found")

	// Context-based plan resolution
	ErrPlanNotInContext = errors.New("limits.errors.plan_not_in_context")

	// System errors
	ErrStorage = errors.New("limits.errors.storage_failure")
)

// IsCallerError reports whether err is a non-retryable misuse by the caller,
// as opposed to an infrastructure failure.
func IsCallerError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidFeatureKey) ||
		errors.Is(err, ErrInvalidPlanType) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrInvalidLimitInput) ||
		errors.Is(err, ErrInvalidAmount)
}
