// Package cache provides a generic in-process LRU cache with per-entry expiry.
//
//	c := cache.NewLRU[string, int](1024, time.Minute)
//	c.Put("free/products_count", 10)
//	if v, ok := c.Get("free/products_count"); ok {
//		// ...
//	}
//
// The limits service uses it to keep hot limit definitions in memory; see
// limits.WithLimitCache.
package cache
