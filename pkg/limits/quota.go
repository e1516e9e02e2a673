package limits

import (
	"encoding/json"
	"strconv"
)

// UnlimitedSentinel is the integer used to represent an unlimited quota in storage and JSON.
const UnlimitedSentinel int64 = -1

// Quota is either Unlimited or Bounded(n). The zero value is Bounded(0).
type Quota struct {
	n         int64
	unlimited bool
}

// Unlimited is a quota without a numeric cap.
var Unlimited = Quota{unlimited: true}

// Bounded returns a quota capped at n. Negative values are clamped to zero.
func Bounded(n int64) Quota {
	return Quota{n: max(n, 0)}
}

// QuotaFromInt decodes the storage representation: the sentinel -1 means unlimited.
func QuotaFromInt(v int64) Quota {
	if v == UnlimitedSentinel {
		return Unlimited
	}
	return Bounded(v)
}

// IsUnlimited reports whether the quota has no cap.
func (q Quota) IsUnlimited() bool { return q.unlimited }

// Value returns the cap. It is meaningless for unlimited quotas.
func (q Quota) Value() int64 { return q.n }

// Int64 returns the storage representation (-1 for unlimited).
func (q Quota) Int64() int64 {
	if q.unlimited {
		return UnlimitedSentinel
	}
	return q.n
}

// Allows reports whether current+requested stays within the quota.
// Reaching the cap is allowed, exceeding it is not. The sum is never computed,
// so arbitrarily large requests cannot wrap around.
func (q Quota) Allows(current, requested int64) bool {
	if q.unlimited {
		return true
	}
	current, requested = max(current, 0), max(requested, 0)
	return requested <= q.n && current <= q.n-requested
}

// Remaining returns the headroom left, or -1 for unlimited quotas.
func (q Quota) Remaining(current int64) int64 {
	if q.unlimited {
		return UnlimitedSentinel
	}
	return max(q.n-current, 0)
}

func (q Quota) String() string {
	if q.unlimited {
		return "unlimited"
	}
	return strconv.FormatInt(q.n, 10)
}

// MarshalJSON encodes the quota as its integer sentinel form.
func (q Quota) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.Int64())
}

// UnmarshalJSON decodes the integer sentinel form.
func (q *Quota) UnmarshalJSON(data []byte) error {
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*q = QuotaFromInt(v)
	return nil
}
