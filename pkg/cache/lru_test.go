package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLRUCache_Basic(t *testing.T) {
	t.Parallel()

	t.Run("put and get", func(t *testing.T) {
		t.Parallel()
		c := cache.New[string, int](3)

		c.Put("a", 1)
		c.Put("b", 2)

		val, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 1, val)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("update returns previous value", func(t *testing.T) {
		t.Parallel()
		c := cache.New[string, int](3)

		c.Put("a", 1)
		old, existed := c.Put("a", 2)

		assert.True(t, existed)
		assert.Equal(t, 1, old)
		val, _ := c.Get("a")
		assert.Equal(t, 2, val)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("remove", func(t *testing.T) {
		t.Parallel()
		c := cache.New[string, int](3)
		c.Put("a", 1)

		val, ok := c.Remove("a")
		assert.True(t, ok)
		assert.Equal(t, 1, val)

		_, ok = c.Remove("a")
		assert.False(t, ok)
	})

	t.Run("peek keeps recency", func(t *testing.T) {
		t.Parallel()
		c := cache.New[string, int](2)
		c.Put("a", 1)
		c.Put("b", 2)

		val, ok := c.Peek("a")
		assert.True(t, ok)
		assert.Equal(t, 1, val)

		c.Put("c", 3)
		_, ok = c.Get("a")
		assert.False(t, ok, "peek must not protect a from eviction")

		_, ok = c.Peek("missing")
		assert.False(t, ok)
	})

	t.Run("non-positive capacity panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { cache.New[string, int](0) })
	})
}

func TestLRUCache_Eviction(t *testing.T) {
	t.Parallel()

	t.Run("evicts least recently used", func(t *testing.T) {
		t.Parallel()
		var evicted []string
		c := cache.New[string, int](2, cache.WithEvictCallback(func(k string, _ int) {
			evicted = append(evicted, k)
		}))

		c.Put("a", 1)
		c.Put("b", 2)
		c.Get("a")
		c.Put("c", 3)

		_, ok := c.Get("b")
		assert.False(t, ok)
		assert.Equal(t, []string{"b"}, evicted)
		assert.Equal(t, []string{"c", "a"}, c.Keys())
	})

	t.Run("replacement does not invoke callback", func(t *testing.T) {
		t.Parallel()
		calls := 0
		c := cache.New[string, int](2, cache.WithEvictCallback(func(string, int) { calls++ }))

		c.Put("a", 1)
		c.Put("a", 2)
		assert.Zero(t, calls)
	})

	t.Run("clear invokes callback for every entry", func(t *testing.T) {
		t.Parallel()
		seen := map[string]int{}
		c := cache.New[string, int](3, cache.WithEvictCallback(func(k string, v int) { seen[k] = v }))

		c.Put("a", 1)
		c.Put("b", 2)
		c.Clear()

		assert.Equal(t, map[string]int{"a": 1, "b": 2}, seen)
		assert.Zero(t, c.Len())
	})
}

func TestLRUCache_TTL(t *testing.T) {
	t.Parallel()

	t.Run("entries expire", func(t *testing.T) {
		t.Parallel()
		clock := &fakeClock{now: time.Unix(1000, 0)}
		c := cache.New[string, int](3,
			cache.WithTTL[string, int](time.Minute),
			cache.WithClock[string, int](clock.Now),
		)

		c.Put("a", 1)
		clock.Advance(30 * time.Second)
		_, ok := c.Get("a")
		require.True(t, ok)

		clock.Advance(31 * time.Second)
		_, ok = c.Get("a")
		assert.False(t, ok)
		assert.Zero(t, c.Len())
	})

	t.Run("per entry ttl overrides default", func(t *testing.T) {
		t.Parallel()
		clock := &fakeClock{now: time.Unix(1000, 0)}
		c := cache.New[string, int](3,
			cache.WithTTL[string, int](time.Minute),
			cache.WithClock[string, int](clock.Now),
		)

		c.PutWithTTL("short", 1, time.Second)
		c.PutWithTTL("forever", 2, 0)
		clock.Advance(time.Hour)

		_, ok := c.Get("short")
		assert.False(t, ok)
		_, ok = c.Get("forever")
		assert.True(t, ok)
	})

	t.Run("overwriting an expired entry reports no previous value", func(t *testing.T) {
		t.Parallel()
		clock := &fakeClock{now: time.Unix(1000, 0)}
		c := cache.New[string, int](3,
			cache.WithTTL[string, int](time.Second),
			cache.WithClock[string, int](clock.Now),
		)

		c.Put("a", 1)
		clock.Advance(2 * time.Second)
		_, existed := c.Put("a", 2)
		assert.False(t, existed)
	})
}

func TestLRUCache_Concurrent(t *testing.T) {
	t.Parallel()

	c := cache.New[int, int](50)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				c.Put(g*1000+i, i)
				c.Get(g*1000 + i/2)
				if i%10 == 0 {
					c.Remove(g*1000 + i)
				}
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
