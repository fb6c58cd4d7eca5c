package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(size int, ttl, keep time.Duration) (*LRUCache[string], *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl, keep)
	c.now = clk.now
	return c, clk
}

func TestLRUCache_TTLAndStale(t *testing.T) {
	c, clk := newTestCache(10, time.Minute, time.Hour)
	c.Set("a", "1")

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	clk.advance(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok, "expired entries are not fresh")

	v, fresh, ok := c.GetStale("a")
	require.True(t, ok)
	assert.False(t, fresh)
	assert.Equal(t, "1", v)

	assert.Equal(t, 0, c.CleanExpired(), "still within stale retention")
	clk.advance(2 * time.Hour)
	assert.Equal(t, 1, c.CleanExpired())
	_, _, ok = c.GetStale("a")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c, _ := newTestCache(2, time.Minute, 0)
	c.Set("a", "1")
	c.Set("b", "2")
	_, _ = c.Get("a")
	c.Set("c", "3")

	assert.Equal(t, 2, c.Size())
	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestLRUCache_ExpireAllKeepsFallback(t *testing.T) {
	c, _ := newTestCache(10, time.Minute, time.Hour)
	c.Set("a", "1")
	gen := c.Generation()

	assert.Equal(t, 1, c.ExpireAll())
	_, ok := c.Get("a")
	assert.False(t, ok)
	v, _, ok := c.GetStale("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	c.SetIfCurrent("b", "old", gen)
	_, ok = c.Get("b")
	assert.False(t, ok, "value loaded before invalidation is not fresh")

	c.SetIfCurrent("b", "new", c.Generation())
	v, ok = c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestLoader_SingleFlight(t *testing.T) {
	l := NewLoader(NewLRUCache[int](10, time.Minute, time.Hour))
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := l.Load(context.Background(), "k", func(context.Context) (int, error) {
				calls.Add(1)
				<-release
				return 42, nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(8))
	for _, v := range results {
		assert.Equal(t, 42, v)
	}

	v, err := l.Load(context.Background(), "k", func(context.Context) (int, error) {
		return 0, errors.New("should be cached")
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestLoader_InvalidateAndStale(t *testing.T) {
	l := NewLoader(NewLRUCache[int](10, time.Minute, time.Hour))
	ctx := context.Background()

	_, err := l.Load(ctx, "k", func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	l.Invalidate()
	boom := errors.New("down")
	_, err = l.Load(ctx, "k", func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	v, ok := l.Stale("k")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, err = l.Load(ctx, "k", func(context.Context) (int, error) { return 2, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestManager_CleanNowAndStop(t *testing.T) {
	c, clk := newTestCache(10, time.Minute, 0)
	c.Set("a", "1")
	clk.advance(time.Hour)

	m := NewManager(nil)
	m.Register(c)
	assert.Equal(t, 1, m.CleanNow())

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()

	idle := NewManager(nil)
	idle.Stop()
}
