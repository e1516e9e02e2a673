package limits

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/featurelimits/pkg/validator"
)

const maxDescriptionLength = 500

// UpsertLimitInput is the administrative payload for creating or replacing a
// (plan, feature) limit definition.
type UpsertLimitInput struct {
	PlanType    PlanType    `json:"plan_type"`
	FeatureKey  FeatureKey  `json:"feature_key"`
	LimitType   LimitType   `json:"limit_type"`
	LimitValue  int64       `json:"limit_value"` // -1 means unlimited; ignored for boolean limits
	ResetPeriod ResetPeriod `json:"reset_period"`
	Enabled     bool        `json:"enabled"`
	Description string      `json:"description,omitempty"`
}

// Validate checks the input and returns validator.ValidationErrors joined with
// ErrInvalidLimitInput on failure.
func (in UpsertLimitInput) Validate() error {
	in = in.withDefaults()
	rules := []validator.Rule{
		validator.InList("plan_type", in.PlanType, planOrder),
		validator.InList("feature_key", in.FeatureKey, featureKeys),
	}
	rules = append(rules, limitShapeRules(in.LimitType, in.LimitValue, in.ResetPeriod)...)
	rules = append(rules, validator.MaxLenString("description", in.Description, maxDescriptionLength))
	return wrapValidation(validator.Apply(rules...))
}

// withDefaults fills in the reset period implied by the limit type when omitted.
func (in UpsertLimitInput) withDefaults() UpsertLimitInput {
	in.ResetPeriod = defaultResetPeriod(in.LimitType, in.ResetPeriod)
	return in
}

// FeatureLimit converts a validated input into a limit definition.
func (in UpsertLimitInput) FeatureLimit() FeatureLimit {
	in = in.withDefaults()
	limit := FeatureLimit{
		PlanType:    in.PlanType,
		FeatureKey:  in.FeatureKey,
		LimitType:   in.LimitType,
		Quota:       QuotaFromInt(in.LimitValue),
		ResetPeriod: in.ResetPeriod,
		Enabled:     in.Enabled,
		Description: in.Description,
	}
	if in.LimitType == LimitTypeBoolean {
		limit.Quota = Bounded(0)
		limit.ResetPeriod = ResetNever
	}
	return limit
}

// SetOverrideInput is the administrative payload for granting a user a
// limit different from their plan's default.
type SetOverrideInput struct {
	UserID      uuid.UUID   `json:"user_id"`
	FeatureKey  FeatureKey  `json:"feature_key"`
	LimitType   LimitType   `json:"limit_type"`
	LimitValue  int64       `json:"limit_value"`
	ResetPeriod ResetPeriod `json:"reset_period"`
	Enabled     bool        `json:"enabled"`
	Reason      string      `json:"reason,omitempty"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
}

// Validate checks the input against the given instant; an expiry must lie after now.
func (in SetOverrideInput) Validate(now time.Time) error {
	in.ResetPeriod = defaultResetPeriod(in.LimitType, in.ResetPeriod)
	rules := []validator.Rule{
		validator.NonNilUUID("user_id", in.UserID),
		validator.InList("feature_key", in.FeatureKey, featureKeys),
	}
	rules = append(rules, limitShapeRules(in.LimitType, in.LimitValue, in.ResetPeriod)...)
	rules = append(rules, validator.MaxLenString("reason", in.Reason, maxDescriptionLength))
	if in.ExpiresAt != nil {
		rules = append(rules, validator.DateAfter("expires_at", *in.ExpiresAt, now))
	}
	return wrapValidation(validator.Apply(rules...))
}

// FeatureOverride converts a validated input into an override.
func (in SetOverrideInput) FeatureOverride() FeatureOverride {
	o := FeatureOverride{
		UserID:      in.UserID,
		FeatureKey:  in.FeatureKey,
		LimitType:   in.LimitType,
		Quota:       QuotaFromInt(in.LimitValue),
		ResetPeriod: defaultResetPeriod(in.LimitType, in.ResetPeriod),
		Enabled:     in.Enabled,
		Reason:      in.Reason,
	}
	if in.ExpiresAt != nil {
		exp := in.ExpiresAt.UTC()
		o.ExpiresAt = &exp
	}
	if in.LimitType == LimitTypeBoolean {
		o.Quota = Bounded(0)
		o.ResetPeriod = ResetNever
	}
	return o
}

func defaultResetPeriod(t LimitType, p ResetPeriod) ResetPeriod {
	if p != "" {
		return p
	}
	if t == LimitTypeMonthly {
		return ResetMonthly
	}
	return ResetNever
}

// limitShapeRules validates the per-limit-type shape of a definition.
func limitShapeRules(t LimitType, value int64, reset ResetPeriod) []validator.Rule {
	rules := []validator.Rule{
		validator.InList("limit_type", t, []LimitType{LimitTypeCount, LimitTypeMonthly, LimitTypeBoolean}),
		validator.InList("reset_period", reset, []ResetPeriod{ResetDaily, ResetMonthly, ResetNever}),
	}
	switch t {
	case LimitTypeCount:
		rules = append(rules, validator.MinNum("limit_value", value, UnlimitedSentinel))
	case LimitTypeMonthly:
		rules = append(rules,
			validator.MinNum("limit_value", value, UnlimitedSentinel),
			validator.InList("reset_period", reset, []ResetPeriod{ResetDaily, ResetMonthly}),
		)
	}
	return rules
}

func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrInvalidLimitInput, err)
}
