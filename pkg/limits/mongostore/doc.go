// Package mongostore implements limits.Store on MongoDB.
//
// Limits, overrides and usage counters live in separate collections guarded by
// unique compound indexes (see EnsureIndexes). Usage increments run as a single
// findAndModify with an aggregation pipeline: window rollover and addition
// happen server-side, and a bounded ceiling is part of the filter. When the
// filter does not match an existing counter the upsert collides with the
// unique index, which the store reports as a refused increment.
package mongostore
