package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
	"github.com/dmitrymomot/featurelimits/pkg/pg"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements limits.Store on PostgreSQL.
type Store struct {
	db DBTX
}

// New returns a Store using db. Panics if db is nil.
func New(db DBTX) *Store {
	if db == nil {
		panic("pgstore: db is required")
	}
	return &Store{db: db}
}

var _ limits.Store = (*Store)(nil)

const limitColumns = `plan_type, feature_key, limit_type, limit_value, reset_period, enabled, description, created_at, updated_at`

func scanLimit(row pgx.CollectableRow) (limits.FeatureLimit, error) {
	var (
		l                               limits.FeatureLimit
		plan, feature, limitType, reset string
		value                           int64
	)
	if err := row.Scan(&plan, &feature, &limitType, &value, &reset, &l.Enabled, &l.Description, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return limits.FeatureLimit{}, err
	}
	l.PlanType = limits.PlanType(plan)
	l.FeatureKey = limits.FeatureKey(feature)
	l.LimitType = limits.LimitType(limitType)
	l.Quota = limits.QuotaFromInt(value)
	l.ResetPeriod = limits.ResetPeriod(reset)
	return l, nil
}

func (s *Store) ListLimits(ctx context.Context) ([]limits.FeatureLimit, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+limitColumns+`
		FROM feature_limits
		ORDER BY array_position(ARRAY['free', 'basic', 'pro', 'enterprise'], plan_type), feature_key`)
	if err != nil {
		return nil, fmt.Errorf("list feature limits: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanLimit)
	if err != nil {
		return nil, fmt.Errorf("list feature limits: %w", err)
	}
	return out, nil
}

func (s *Store) GetLimit(ctx context.Context, plan limits.PlanType, feature limits.FeatureKey) (limits.FeatureLimit, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+limitColumns+`
		FROM feature_limits
		WHERE plan_type = $1 AND feature_key = $2`, string(plan), string(feature))
	if err != nil {
		return limits.FeatureLimit{}, fmt.Errorf("get feature limit: %w", err)
	}
	l, err := pgx.CollectExactlyOneRow(rows, scanLimit)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return limits.FeatureLimit{}, limits.ErrLimitNotFound
		}
		return limits.FeatureLimit{}, fmt.Errorf("get feature limit: %w", err)
	}
	return l, nil
}

func (s *Store) UpsertLimit(ctx context.Context, l limits.FeatureLimit) (limits.FeatureLimit, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO feature_limits (plan_type, feature_key, limit_type, limit_value, reset_period, enabled, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (plan_type, feature_key) DO UPDATE SET
			limit_type   = EXCLUDED.limit_type,
			limit_value  = EXCLUDED.limit_value,
			reset_period = EXCLUDED.reset_period,
			enabled      = EXCLUDED.enabled,
			description  = EXCLUDED.description,
			updated_at   = now()
		RETURNING created_at, updated_at`,
		string(l.PlanType), string(l.FeatureKey), string(l.LimitType), l.Quota.Int64(),
		string(l.ResetPeriod), l.Enabled, l.Description,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return limits.FeatureLimit{}, fmt.Errorf("upsert feature limit: %w", err)
	}
	return l, nil
}

func (s *Store) InsertLimitIfAbsent(ctx context.Context, l limits.FeatureLimit) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO feature_limits (plan_type, feature_key, limit_type, limit_value, reset_period, enabled, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (plan_type, feature_key) DO NOTHING`,
		string(l.PlanType), string(l.FeatureKey), string(l.LimitType), l.Quota.Int64(),
		string(l.ResetPeriod), l.Enabled, l.Description,
	)
	if err != nil {
		return false, fmt.Errorf("insert feature limit: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) DeleteLimit(ctx context.Context, plan limits.PlanType, feature limits.FeatureKey) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM feature_limits WHERE plan_type = $1 AND feature_key = $2`,
		string(plan), string(feature)); err != nil {
		return fmt.Errorf("delete feature limit: %w", err)
	}
	return nil
}

const overrideColumns = `user_id, feature_key, limit_type, limit_value, reset_period, enabled, reason, expires_at, created_at`

func scanOverride(row pgx.CollectableRow) (limits.FeatureOverride, error) {
	var (
		o                         limits.FeatureOverride
		feature, limitType, reset string
		value                     int64
		expiresAt                 *time.Time
	)
	if err := row.Scan(&o.UserID, &feature, &limitType, &value, &reset, &o.Enabled, &o.Reason, &expiresAt, &o.CreatedAt); err != nil {
		return limits.FeatureOverride{}, err
	}
	o.FeatureKey = limits.FeatureKey(feature)
	o.LimitType = limits.LimitType(limitType)
	o.Quota = limits.QuotaFromInt(value)
	o.ResetPeriod = limits.ResetPeriod(reset)
	if expiresAt != nil {
		exp := expiresAt.UTC()
		o.ExpiresAt = &exp
	}
	return o, nil
}

func (s *Store) GetOverride(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey) (limits.FeatureOverride, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+overrideColumns+`
		FROM feature_overrides
		WHERE user_id = $1 AND feature_key = $2`, userID, string(feature))
	if err != nil {
		return limits.FeatureOverride{}, fmt.Errorf("get feature override: %w", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOverride)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return limits.FeatureOverride{}, limits.ErrOverrideNotFound
		}
		return limits.FeatureOverride{}, fmt.Errorf("get feature override: %w", err)
	}
	return o, nil
}

func (s *Store) UpsertOverride(ctx context.Context, o limits.FeatureOverride) (limits.FeatureOverride, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO feature_overrides (user_id, feature_key, limit_type, limit_value, reset_period, enabled, reason, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, feature_key) DO UPDATE SET
			limit_type   = EXCLUDED.limit_type,
			limit_value  = EXCLUDED.limit_value,
			reset_period = EXCLUDED.reset_period,
			enabled      = EXCLUDED.enabled,
			reason       = EXCLUDED.reason,
			expires_at   = EXCLUDED.expires_at
		RETURNING created_at`,
		o.UserID, string(o.FeatureKey), string(o.LimitType), o.Quota.Int64(),
		string(o.ResetPeriod), o.Enabled, o.Reason, o.ExpiresAt,
	).Scan(&o.CreatedAt)
	if err != nil {
		return limits.FeatureOverride{}, fmt.Errorf("upsert feature override: %w", err)
	}
	return o, nil
}

func (s *Store) DeleteOverride(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM feature_overrides WHERE user_id = $1 AND feature_key = $2`,
		userID, string(feature)); err != nil {
		return fmt.Errorf("delete feature override: %w", err)
	}
	return nil
}

func (s *Store) ListOverrides(ctx context.Context, userID uuid.UUID) ([]limits.FeatureOverride, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+overrideColumns+`
		FROM feature_overrides
		WHERE user_id = $1
		ORDER BY feature_key`, userID)
	if err != nil {
		return nil, fmt.Errorf("list feature overrides: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanOverride)
	if err != nil {
		return nil, fmt.Errorf("list feature overrides: %w", err)
	}
	return out, nil
}

func (s *Store) GetUsage(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey) (limits.UsageRecord, error) {
	rec := limits.UsageRecord{UserID: userID, FeatureKey: feature}
	err := s.db.QueryRow(ctx, `
		SELECT current_count, window_started_at
		FROM feature_usage
		WHERE user_id = $1 AND feature_key = $2`, userID, string(feature),
	).Scan(&rec.Count, &rec.WindowStartedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return limits.UsageRecord{}, limits.ErrUsageNotFound
		}
		return limits.UsageRecord{}, fmt.Errorf("get feature usage: %w", err)
	}
	rec.WindowStartedAt = rec.WindowStartedAt.UTC()
	return rec, nil
}

// incrementUsageSQL resets a counter from an older window, adds the amount and
// enforces the ceiling in one statement. A ceiling below zero means unlimited.
// When the ceiling refuses the change no row is returned.
const incrementUsageSQL = `
	INSERT INTO feature_usage AS u (user_id, feature_key, current_count, window_started_at, updated_at)
	SELECT $1::uuid, $2::text, $3::bigint, $4::timestamptz, now()
	WHERE $5::bigint < 0 OR $3::bigint <= $5::bigint
	ON CONFLICT (user_id, feature_key) DO UPDATE SET
		current_count = CASE
			WHEN u.window_started_at < EXCLUDED.window_started_at THEN EXCLUDED.current_count
			ELSE u.current_count + EXCLUDED.current_count
		END,
		window_started_at = GREATEST(u.window_started_at, EXCLUDED.window_started_at),
		updated_at = now()
	WHERE $5::bigint < 0
		OR (CASE WHEN u.window_started_at < EXCLUDED.window_started_at THEN 0 ELSE u.current_count END)
			+ EXCLUDED.current_count <= $5::bigint
	RETURNING current_count`

func (s *Store) IncrementUsage(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey, amount int64, windowStart time.Time, ceiling limits.Quota) (int64, bool, error) {
	var count int64
	err := s.db.QueryRow(ctx, incrementUsageSQL,
		userID, string(feature), amount, windowStart.UTC(), ceiling.Int64(),
	).Scan(&count)
	switch {
	case err == nil:
		return count, true, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return 0, false, fmt.Errorf("increment feature usage: %w", err)
	}

	current, err := s.countInWindow(ctx, userID, feature, windowStart)
	if err != nil {
		return 0, false, err
	}
	return current, false, nil
}

func (s *Store) countInWindow(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey, windowStart time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `
		SELECT CASE WHEN window_started_at < $3 THEN 0 ELSE current_count END
		FROM feature_usage
		WHERE user_id = $1 AND feature_key = $2`, userID, string(feature), windowStart.UTC(),
	).Scan(&count)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get feature usage: %w", err)
	}
	return count, nil
}

func (s *Store) DecrementUsage(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey, amount int64, windowStart time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `
		UPDATE feature_usage SET
			current_count = CASE
				WHEN window_started_at < $4 THEN 0
				ELSE GREATEST(current_count - $3, 0)
			END,
			window_started_at = GREATEST(window_started_at, $4),
			updated_at = now()
		WHERE user_id = $1 AND feature_key = $2
		RETURNING current_count`,
		userID, string(feature), amount, windowStart.UTC(),
	).Scan(&count)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("decrement feature usage: %w", err)
	}
	return count, nil
}

func (s *Store) ResetUsage(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM feature_usage WHERE user_id = $1 AND feature_key = $2`,
		userID, string(feature)); err != nil {
		return fmt.Errorf("reset feature usage: %w", err)
	}
	return nil
}
