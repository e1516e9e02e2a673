package mongostore

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
)

type limitDoc struct {
	PlanType    string    `bson:"plan_type"`
	FeatureKey  string    `bson:"feature_key"`
	LimitType   string    `bson:"limit_type"`
	LimitValue  int64     `bson:"limit_value"`
	ResetPeriod string    `bson:"reset_period"`
	Enabled     bool      `bson:"enabled"`
	Description string    `bson:"description"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d limitDoc) toLimit() limits.FeatureLimit {
	return limits.FeatureLimit{
		PlanType:    limits.PlanType(d.PlanType),
		FeatureKey:  limits.FeatureKey(d.FeatureKey),
		LimitType:   limits.LimitType(d.LimitType),
		Quota:       limits.QuotaFromInt(d.LimitValue),
		ResetPeriod: limits.ResetPeriod(d.ResetPeriod),
		Enabled:     d.Enabled,
		Description: d.Description,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

type overrideDoc struct {
	UserID      string     `bson:"user_id"`
	FeatureKey  string     `bson:"feature_key"`
	LimitType   string     `bson:"limit_type"`
	LimitValue  int64      `bson:"limit_value"`
	ResetPeriod string     `bson:"reset_period"`
	Enabled     bool       `bson:"enabled"`
	Reason      string     `bson:"reason"`
	ExpiresAt   *time.Time `bson:"expires_at"`
	CreatedAt   time.Time  `bson:"created_at"`
}

func (d overrideDoc) toOverride() (limits.FeatureOverride, error) {
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return limits.FeatureOverride{}, err
	}
	o := limits.FeatureOverride{
		UserID:      userID,
		FeatureKey:  limits.FeatureKey(d.FeatureKey),
		LimitType:   limits.LimitType(d.LimitType),
		Quota:       limits.QuotaFromInt(d.LimitValue),
		ResetPeriod: limits.ResetPeriod(d.ResetPeriod),
		Enabled:     d.Enabled,
		Reason:      d.Reason,
		CreatedAt:   d.CreatedAt.UTC(),
	}
	if d.ExpiresAt != nil {
		exp := d.ExpiresAt.UTC()
		o.ExpiresAt = &exp
	}
	return o, nil
}

type usageDoc struct {
	UserID          string    `bson:"user_id"`
	FeatureKey      string    `bson:"feature_key"`
	Count           int64     `bson:"current_count"`
	WindowStartedAt time.Time `bson:"window_started_at"`
}

type planDoc struct {
	UserID    string    `bson:"_id"`
	PlanType  string    `bson:"plan_type"`
	UpdatedAt time.Time `bson:"updated_at"`
}
