package limits

import "time"

// epoch is the window start used for counters that never reset.
var epoch = time.Unix(0, 0).UTC()

// WindowStart returns the start of the counting window containing now.
// Both the read path and the write path derive the window from this function,
// so they always agree on whether a counter has rolled over.
func WindowStart(period ResetPeriod, now time.Time) time.Time {
	now = now.UTC()
	switch period {
	case ResetDaily:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	case ResetMonthly:
		y, m, _ := now.Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	default:
		return epoch
	}
}

// NextReset returns the boundary at which the window starting at start ends.
// Returns nil for counters that never reset.
func NextReset(period ResetPeriod, start time.Time) *time.Time {
	var next time.Time
	start = WindowStart(period, start)
	switch period {
	case ResetDaily:
		next = start.AddDate(0, 0, 1)
	case ResetMonthly:
		next = start.AddDate(0, 1, 0)
	default:
		return nil
	}
	return &next
}

// WindowElapsed reports whether a window that started at windowStartedAt is over at now.
func WindowElapsed(period ResetPeriod, windowStartedAt, now time.Time) bool {
	return windowStartedAt.Before(WindowStart(period, now))
}

// countInWindow returns the count a record contributes to the window containing now.
func countInWindow(rec UsageRecord, period ResetPeriod, now time.Time) int64 {
	if WindowElapsed(period, rec.WindowStartedAt, now) {
		return 0
	}
	return max(rec.Count, 0)
}
