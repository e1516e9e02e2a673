package limits

import (
	"cmp"
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type limitKey struct {
	plan    PlanType
	feature FeatureKey
}

type userFeatureKey struct {
	user    uuid.UUID
	feature FeatureKey
}

// MemoryStore is an in-process Store guarded by a single mutex.
// Intended for tests and local development.
type MemoryStore struct {
	mu        sync.RWMutex
	limits    map[limitKey]FeatureLimit
	overrides map[userFeatureKey]FeatureOverride
	usage     map[userFeatureKey]UsageRecord
	now       func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		limits:    make(map[limitKey]FeatureLimit),
		overrides: make(map[userFeatureKey]FeatureOverride),
		usage:     make(map[userFeatureKey]UsageRecord),
		now:       time.Now,
	}
}

func (s *MemoryStore) ListLimits(_ context.Context) ([]FeatureLimit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]FeatureLimit, 0, len(s.limits))
	for _, l := range s.limits {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b FeatureLimit) int {
		if c := cmp.Compare(a.PlanType.Rank(), b.PlanType.Rank()); c != 0 {
			return c
		}
		return cmp.Compare(a.FeatureKey, b.FeatureKey)
	})
	return out, nil
}

func (s *MemoryStore) GetLimit(_ context.Context, plan PlanType, feature FeatureKey) (FeatureLimit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.limits[limitKey{plan, feature}]
	if !ok {
		return FeatureLimit{}, ErrLimitNotFound
	}
	return l, nil
}

func (s *MemoryStore) UpsertLimit(_ context.Context, limit FeatureLimit) (FeatureLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	key := limitKey{limit.PlanType, limit.FeatureKey}
	if existing, ok := s.limits[key]; ok {
		limit.CreatedAt = existing.CreatedAt
	} else {
		limit.CreatedAt = now
	}
	limit.UpdatedAt = now
	s.limits[key] = limit
	return limit, nil
}

func (s *MemoryStore) InsertLimitIfAbsent(_ context.Context, limit FeatureLimit) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := limitKey{limit.PlanType, limit.FeatureKey}
	if _, ok := s.limits[key]; ok {
		return false, nil
	}
	now := s.now().UTC()
	limit.CreatedAt, limit.UpdatedAt = now, now
	s.limits[key] = limit
	return true, nil
}

func (s *MemoryStore) DeleteLimit(_ context.Context, plan PlanType, feature FeatureKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.limits, limitKey{plan, feature})
	return nil
}

func (s *MemoryStore) GetOverride(_ context.Context, userID uuid.UUID, feature FeatureKey) (FeatureOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.overrides[userFeatureKey{userID, feature}]
	if !ok {
		return FeatureOverride{}, ErrOverrideNotFound
	}
	return o, nil
}

func (s *MemoryStore) UpsertOverride(_ context.Context, override FeatureOverride) (FeatureOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if override.CreatedAt.IsZero() {
		override.CreatedAt = s.now().UTC()
	}
	s.overrides[userFeatureKey{override.UserID, override.FeatureKey}] = override
	return override, nil
}

func (s *MemoryStore) DeleteOverride(_ context.Context, userID uuid.UUID, feature FeatureKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.overrides, userFeatureKey{userID, feature})
	return nil
}

func (s *MemoryStore) ListOverrides(_ context.Context, userID uuid.UUID) ([]FeatureOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []FeatureOverride
	for key, o := range s.overrides {
		if key.user == userID {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b FeatureOverride) int {
		return cmp.Compare(a.FeatureKey, b.FeatureKey)
	})
	return out, nil
}

func (s *MemoryStore) GetUsage(_ context.Context, userID uuid.UUID, feature FeatureKey) (UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.usage[userFeatureKey{userID, feature}]
	if !ok {
		return UsageRecord{}, ErrUsageNotFound
	}
	return rec, nil
}

func (s *MemoryStore) IncrementUsage(_ context.Context, userID uuid.UUID, feature FeatureKey, amount int64, windowStart time.Time, ceiling Quota) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userFeatureKey{userID, feature}
	rec, ok := s.usage[key]
	if !ok || rec.WindowStartedAt.Before(windowStart) {
		rec = UsageRecord{UserID: userID, FeatureKey: feature, WindowStartedAt: windowStart}
	}
	if !ceiling.Allows(rec.Count, amount) || amount > math.MaxInt64-rec.Count {
		return rec.Count, false, nil
	}
	rec.Count += amount
	s.usage[key] = rec
	return rec.Count, true, nil
}

func (s *MemoryStore) DecrementUsage(_ context.Context, userID uuid.UUID, feature FeatureKey, amount int64, windowStart time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userFeatureKey{userID, feature}
	rec, ok := s.usage[key]
	if !ok {
		return 0, nil
	}
	if rec.WindowStartedAt.Before(windowStart) {
		rec.Count = 0
		rec.WindowStartedAt = windowStart
	}
	rec.Count = max(rec.Count-amount, 0)
	s.usage[key] = rec
	return rec.Count, nil
}

func (s *MemoryStore) ResetUsage(_ context.Context, userID uuid.UUID, feature FeatureKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.usage, userFeatureKey{userID, feature})
	return nil
}

// SetUsage overwrites a usage record. Intended for seeding test fixtures.
func (s *MemoryStore) SetUsage(rec UsageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.usage[userFeatureKey{rec.UserID, rec.FeatureKey}] = rec
}
