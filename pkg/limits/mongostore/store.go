package mongostore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
	mongox "github.com/dmitrymomot/featurelimits/pkg/mongo"
)

const (
	limitsCollection    = "feature_limits"
	overridesCollection = "feature_overrides"
	usageCollection     = "feature_usage"
	plansCollection     = "user_plans"
)

// maxUpsertAttempts bounds retries of a capped increment that raced with the
// first insert of the same counter.
const maxUpsertAttempts = 3

// Store implements limits.Store on MongoDB.
type Store struct {
	limits    *mongo.Collection
	overrides *mongo.Collection
	usage     *mongo.Collection
	plans     *mongo.Collection
	now       func() time.Time
}

// New returns a Store over db. Call EnsureIndexes once before use.
// Panics if db is nil.
func New(db *mongo.Database) *Store {
	if db == nil {
		panic("mongostore: database is required")
	}
	return &Store{
		limits:    db.Collection(limitsCollection),
		overrides: db.Collection(overridesCollection),
		usage:     db.Collection(usageCollection),
		plans:     db.Collection(plansCollection),
		now:       time.Now,
	}
}

var _ limits.Store = (*Store)(nil)

// EnsureIndexes creates the unique indexes the store relies on. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	if _, err := s.limits.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "plan_type", Value: 1}, {Key: "feature_key", Value: 1}},
		Options: unique,
	}); err != nil {
		return fmt.Errorf("create feature limits index: %w", err)
	}

	for _, coll := range []*mongo.Collection{s.overrides, s.usage} {
		if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "feature_key", Value: 1}},
			Options: unique,
		}); err != nil {
			return fmt.Errorf("create %s index: %w", coll.Name(), err)
		}
	}
	return nil
}

func limitFilter(plan limits.PlanType, feature limits.FeatureKey) bson.D {
	return bson.D{{Key: "plan_type", Value: string(plan)}, {Key: "feature_key", Value: string(feature)}}
}

func userFeatureFilter(userID uuid.UUID, feature limits.FeatureKey) bson.D {
	return bson.D{{Key: "user_id", Value: userID.String()}, {Key: "feature_key", Value: string(feature)}}
}

func (s *Store) ListLimits(ctx context.Context) ([]limits.FeatureLimit, error) {
	cur, err := s.limits.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "feature_key", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list feature limits: %w", err)
	}
	var docs []limitDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list feature limits: %w", err)
	}

	out := make([]limits.FeatureLimit, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toLimit())
	}
	slices.SortStableFunc(out, func(a, b limits.FeatureLimit) int {
		return cmp.Compare(a.PlanType.Rank(), b.PlanType.Rank())
	})
	return out, nil
}

func (s *Store) GetLimit(ctx context.Context, plan limits.PlanType, feature limits.FeatureKey) (limits.FeatureLimit, error) {
	var doc limitDoc
	if err := s.limits.FindOne(ctx, limitFilter(plan, feature)).Decode(&doc); err != nil {
		if mongox.IsNotFoundError(err) {
			return limits.FeatureLimit{}, limits.ErrLimitNotFound
		}
		return limits.FeatureLimit{}, fmt.Errorf("get feature limit: %w", err)
	}
	return doc.toLimit(), nil
}

func (s *Store) UpsertLimit(ctx context.Context, l limits.FeatureLimit) (limits.FeatureLimit, error) {
	now := s.now().UTC()
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "limit_type", Value: string(l.LimitType)},
			{Key: "limit_value", Value: l.Quota.Int64()},
			{Key: "reset_period", Value: string(l.ResetPeriod)},
			{Key: "enabled", Value: l.Enabled},
			{Key: "description", Value: l.Description},
			{Key: "updated_at", Value: now},
		}},
		{Key: "$setOnInsert", Value: bson.D{{Key: "created_at", Value: now}}},
	}

	var doc limitDoc
	err := s.limits.FindOneAndUpdate(ctx, limitFilter(l.PlanType, l.FeatureKey), update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return limits.FeatureLimit{}, fmt.Errorf("upsert feature limit: %w", err)
	}
	return doc.toLimit(), nil
}

func (s *Store) InsertLimitIfAbsent(ctx context.Context, l limits.FeatureLimit) (bool, error) {
	now := s.now().UTC()
	update := bson.D{{Key: "$setOnInsert", Value: bson.D{
		{Key: "limit_type", Value: string(l.LimitType)},
		{Key: "limit_value", Value: l.Quota.Int64()},
		{Key: "reset_period", Value: string(l.ResetPeriod)},
		{Key: "enabled", Value: l.Enabled},
		{Key: "description", Value: l.Description},
		{Key: "created_at", Value: now},
		{Key: "updated_at", Value: now},
	}}}

	res, err := s.limits.UpdateOne(ctx, limitFilter(l.PlanType, l.FeatureKey), update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		if mongox.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert feature limit: %w", err)
	}
	return res.UpsertedCount == 1, nil
}

func (s *Store) DeleteLimit(ctx context.Context, plan limits.PlanType, feature limits.FeatureKey) error {
	if _, err := s.limits.DeleteOne(ctx, limitFilter(plan, feature)); err != nil {
		return fmt.Errorf("delete feature limit: %w", err)
	}
	return nil
}

func (s *Store) GetOverride(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey) (limits.FeatureOverride, error) {
	var doc overrideDoc
	if err := s.overrides.FindOne(ctx, userFeatureFilter(userID, feature)).Decode(&doc); err != nil {
		if mongox.IsNotFoundError(err) {
			return limits.FeatureOverride{}, limits.ErrOverrideNotFound
		}
		return limits.FeatureOverride{}, fmt.Errorf("get feature override: %w", err)
	}
	return doc.toOverride()
}

func (s *Store) UpsertOverride(ctx context.Context, o limits.FeatureOverride) (limits.FeatureOverride, error) {
	var expiresAt any
	if o.ExpiresAt != nil {
		expiresAt = o.ExpiresAt.UTC()
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "limit_type", Value: string(o.LimitType)},
			{Key: "limit_value", Value: o.Quota.Int64()},
			{Key: "reset_period", Value: string(o.ResetPeriod)},
			{Key: "enabled", Value: o.Enabled},
			{Key: "reason", Value: o.Reason},
			{Key: "expires_at", Value: expiresAt},
		}},
		{Key: "$setOnInsert", Value: bson.D{{Key: "created_at", Value: s.now().UTC()}}},
	}

	var doc overrideDoc
	err := s.overrides.FindOneAndUpdate(ctx, userFeatureFilter(o.UserID, o.FeatureKey), update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return limits.FeatureOverride{}, fmt.Errorf("upsert feature override: %w", err)
	}
	return doc.toOverride()
}

func (s *Store) DeleteOverride(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey) error {
	if _, err := s.overrides.DeleteOne(ctx, userFeatureFilter(userID, feature)); err != nil {
		return fmt.Errorf("delete feature override: %w", err)
	}
	return nil
}

func (s *Store) ListOverrides(ctx context.Context, userID uuid.UUID) ([]limits.FeatureOverride, error) {
	cur, err := s.overrides.Find(ctx, bson.D{{Key: "user_id", Value: userID.String()}},
		options.Find().SetSort(bson.D{{Key: "feature_key", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list feature overrides: %w", err)
	}
	var docs []overrideDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list feature overrides: %w", err)
	}

	out := make([]limits.FeatureOverride, 0, len(docs))
	for _, d := range docs {
		o, err := d.toOverride()
		if err != nil {
			return nil, fmt.Errorf("list feature overrides: %w", err)
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *Store) GetUsage(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey) (limits.UsageRecord, error) {
	var doc usageDoc
	if err := s.usage.FindOne(ctx, userFeatureFilter(userID, feature)).Decode(&doc); err != nil {
		if mongox.IsNotFoundError(err) {
			return limits.UsageRecord{}, limits.ErrUsageNotFound
		}
		return limits.UsageRecord{}, fmt.Errorf("get feature usage: %w", err)
	}
	return limits.UsageRecord{
		UserID:          userID,
		FeatureKey:      feature,
		Count:           doc.Count,
		WindowStartedAt: doc.WindowStartedAt.UTC(),
	}, nil
}

// windowExpired evaluates to true when the stored window began before windowStart.
// A missing field compares lower than any date, so fresh documents count as expired.
func windowExpired(windowStart time.Time) bson.D {
	return bson.D{{Key: "$lt", Value: bson.A{"$window_started_at", windowStart}}}
}

// countInWindow evaluates to the stored count, or zero for an expired window.
func countInWindow(windowStart time.Time) bson.D {
	return bson.D{{Key: "$cond", Value: bson.A{windowExpired(windowStart), 0, "$current_count"}}}
}

func (s *Store) IncrementUsage(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey, amount int64, windowStart time.Time, ceiling limits.Quota) (int64, bool, error) {
	windowStart = windowStart.UTC()

	if !ceiling.Allows(0, amount) {
		current, err := s.currentCount(ctx, userID, feature, windowStart)
		return current, false, err
	}

	filter := userFeatureFilter(userID, feature)
	if !ceiling.IsUnlimited() {
		filter = append(filter, bson.E{Key: "$expr", Value: bson.D{{Key: "$lte", Value: bson.A{
			bson.D{{Key: "$add", Value: bson.A{countInWindow(windowStart), amount}}},
			ceiling.Value(),
		}}}})
	}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "current_count", Value: bson.D{{Key: "$add", Value: bson.A{countInWindow(windowStart), amount}}}},
			{Key: "window_started_at", Value: bson.D{{Key: "$cond", Value: bson.A{windowExpired(windowStart), windowStart, "$window_started_at"}}}},
			{Key: "updated_at", Value: "$$NOW"},
		}}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	for range maxUpsertAttempts {
		var doc usageDoc
		err := s.usage.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
		if err == nil {
			return doc.Count, true, nil
		}
		if !mongox.IsDuplicateKeyError(err) {
			return 0, false, fmt.Errorf("increment feature usage: %w", err)
		}

		// The filter did not match an existing counter, so the upsert collided
		// with it: either the ceiling refused the change or a concurrent writer
		// created the counter first.
		current, err := s.currentCount(ctx, userID, feature, windowStart)
		if err != nil {
			return 0, false, err
		}
		if !ceiling.Allows(current, amount) {
			return current, false, nil
		}
	}

	return 0, false, errors.New("increment feature usage: too many concurrent upserts")
}

func (s *Store) currentCount(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey, windowStart time.Time) (int64, error) {
	rec, err := s.GetUsage(ctx, userID, feature)
	if err != nil {
		if errors.Is(err, limits.ErrUsageNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if rec.WindowStartedAt.Before(windowStart) {
		return 0, nil
	}
	return rec.Count, nil
}

func (s *Store) DecrementUsage(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey, amount int64, windowStart time.Time) (int64, error) {
	windowStart = windowStart.UTC()
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "current_count", Value: bson.D{{Key: "$max", Value: bson.A{
				bson.D{{Key: "$subtract", Value: bson.A{countInWindow(windowStart), amount}}},
				0,
			}}}},
			{Key: "window_started_at", Value: bson.D{{Key: "$cond", Value: bson.A{windowExpired(windowStart), windowStart, "$window_started_at"}}}},
			{Key: "updated_at", Value: "$$NOW"},
		}}},
	}

	var doc usageDoc
	err := s.usage.FindOneAndUpdate(ctx, userFeatureFilter(userID, feature), update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if mongox.IsNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("decrement feature usage: %w", err)
	}
	return doc.Count, nil
}

func (s *Store) ResetUsage(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey) error {
	if _, err := s.usage.DeleteOne(ctx, userFeatureFilter(userID, feature)); err != nil {
		return fmt.Errorf("reset feature usage: %w", err)
	}
	return nil
}

// ResolvePlan reads the user's plan from the user_plans collection.
// It satisfies limits.PlanResolver.
func (s *Store) ResolvePlan(ctx context.Context, userID uuid.UUID) (limits.PlanType, error) {
	var doc planDoc
	if err := s.plans.FindOne(ctx, bson.D{{Key: "_id", Value: userID.String()}}).Decode(&doc); err != nil {
		if mongox.IsNotFoundError(err) {
			return "", limits.ErrUserNotFound
		}
		return "", fmt.Errorf("resolve user plan: %w", err)
	}
	return limits.PlanType(doc.PlanType), nil
}

// SetUserPlan assigns plan to the user, replacing any previous assignment.
func (s *Store) SetUserPlan(ctx context.Context, userID uuid.UUID, plan limits.PlanType) error {
	if !plan.Valid() {
		return limits.ErrInvalidPlanType
	}
	_, err := s.plans.ReplaceOne(ctx, bson.D{{Key: "_id", Value: userID.String()}},
		planDoc{UserID: userID.String(), PlanType: string(plan), UpdatedAt: s.now().UTC()},
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("set user plan: %w", err)
	}
	return nil
}
