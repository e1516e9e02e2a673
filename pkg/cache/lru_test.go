package cache_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/featurelimits/pkg/cache"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLRU_GetPut(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[string, int](3, 0)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("a", 10)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 10, v)
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[string, int](2, 0)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a")
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRU_Expiry(t *testing.T) {
	t.Parallel()

	clk := &clock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	c := cache.NewLRU[string, int](4, time.Minute, cache.WithClock(clk.Now))

	c.Put("a", 1)
	clk.Advance(59 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	clk.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Len(), "expired entry is dropped on access")

	c.Put("b", 2)
	clk.Advance(30 * time.Second)
	c.Put("b", 3)
	clk.Advance(45 * time.Second)
	v, ok := c.Get("b")
	assert.True(t, ok, "put restarts the ttl")
	assert.Equal(t, 3, v)
}

func TestLRU_RemoveAndClear(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[string, int](4, 0)
	c.Put("a", 1)
	c.Put("b", 2)

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))

	c.Clear()
	assert.Zero(t, c.Len())
}

func TestLRU_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { cache.NewLRU[string, int](0, 0) })
	assert.Panics(t, func() { cache.NewLRU[string, int](1, -time.Second) })
}

func TestLRU_Concurrent(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[string, int](64, time.Minute)
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%10)
			c.Put(key, i)
			c.Get(key)
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, c.Len())
}
