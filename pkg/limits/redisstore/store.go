package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
)

const (
	fieldCount  = "count"
	fieldWindow = "window"
)

// Both scripts read the counter of KEYS[1] in the window starting at ARGV[2]
// (unix seconds). A counter from an older window reads as zero and is moved
// to the new window on write.
const readWindow = `
local count = 0
local started = ARGV[2]
local fields = redis.call('HMGET', KEYS[1], 'count', 'window')
if fields[1] and fields[2] and tonumber(fields[2]) >= tonumber(ARGV[2]) then
	count = tonumber(fields[1])
	started = fields[2]
end
`

// incrementScript adds ARGV[1] unless the result would exceed the ceiling
// ARGV[3] (negative means unlimited). Returns {count, applied}.
var incrementScript = redis.NewScript(readWindow + `
local amount = tonumber(ARGV[1])
local ceiling = tonumber(ARGV[3])
if ceiling >= 0 and count + amount > ceiling then
	return {count, 0}
end
count = count + amount
redis.call('HSET', KEYS[1], 'count', count, 'window', started)
return {count, 1}
`)

// decrementScript subtracts ARGV[1] clamping at zero. Missing keys stay missing.
var decrementScript = redis.NewScript(readWindow + `
if not fields[1] then
	return 0
end
count = math.max(count - tonumber(ARGV[1]), 0)
redis.call('HSET', KEYS[1], 'count', count, 'window', started)
return count
`)

// Store implements limits.UsageStore on Redis. Each counter is a hash holding
// the count and the unix second its window started.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix sets the namespace of counter keys. Default is "featurelimits:usage".
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New returns a Store using client. Panics if client is nil.
func New(client redis.UniversalClient, opts ...Option) *Store {
	if client == nil {
		panic("redisstore: client is required")
	}
	s := &Store{client: client, prefix: "featurelimits:usage"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ limits.UsageStore = (*Store)(nil)

func (s *Store) key(userID uuid.UUID, feature limits.FeatureKey) string {
	return s.prefix + ":" + userID.String() + ":" + string(feature)
}

func (s *Store) GetUsage(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey) (limits.UsageRecord, error) {
	vals, err := s.client.HMGet(ctx, s.key(userID, feature), fieldCount, fieldWindow).Result()
	if err != nil {
		return limits.UsageRecord{}, fmt.Errorf("get feature usage: %w", err)
	}
	if len(vals) != 2 || vals[0] == nil {
		return limits.UsageRecord{}, limits.ErrUsageNotFound
	}

	count, err := parseInt(vals[0])
	if err != nil {
		return limits.UsageRecord{}, fmt.Errorf("get feature usage: %w", err)
	}
	window, err := parseInt(vals[1])
	if err != nil {
		return limits.UsageRecord{}, fmt.Errorf("get feature usage: %w", err)
	}

	return limits.UsageRecord{
		UserID:          userID,
		FeatureKey:      feature,
		Count:           count,
		WindowStartedAt: time.Unix(window, 0).UTC(),
	}, nil
}

func (s *Store) IncrementUsage(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey, amount int64, windowStart time.Time, ceiling limits.Quota) (int64, bool, error) {
	res, err := incrementScript.Run(ctx, s.client,
		[]string{s.key(userID, feature)},
		amount, windowStart.Unix(), ceiling.Int64(),
	).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("increment feature usage: %w", err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("increment feature usage: unexpected script reply %v", res)
	}
	return res[0], res[1] == 1, nil
}

func (s *Store) DecrementUsage(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey, amount int64, windowStart time.Time) (int64, error) {
	count, err := decrementScript.Run(ctx, s.client,
		[]string{s.key(userID, feature)},
		amount, windowStart.Unix(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("decrement feature usage: %w", err)
	}
	return count, nil
}

func (s *Store) ResetUsage(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey) error {
	if err := s.client.Del(ctx, s.key(userID, feature)).Err(); err != nil {
		return fmt.Errorf("reset feature usage: %w", err)
	}
	return nil
}

func parseInt(v any) (int64, error) {
	str, ok := v.(string)
	if !ok {
		return 0, errors.New("unexpected hash value type")
	}
	return strconv.ParseInt(str, 10, 64)
}
