// Package redisstore keeps usage counters in Redis. Window rollover, the
// increment and the ceiling check run inside a single Lua script, so counters
// stay exact under any number of concurrent writers across processes.
//
// Plan limits and overrides stay in the primary store:
//
//	svc := limits.NewService(pgstore.New(pool),
//	    limits.WithUsageStore(redisstore.New(client)),
//	)
package redisstore
