package cache

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache() (*Cache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := New()
	c.now = clock.Now
	return c, clock
}

func TestCache_SetAndGet(t *testing.T) {
	c, _ := newTestCache()

	c.Set("blogs:list", "payload", time.Minute)

	v, ok := c.Get("blogs:list")
	require.True(t, ok)
	assert.Equal(t, "payload", v)
}

func TestCache_MissIsDistinctFromCachedNil(t *testing.T) {
	c, _ := newTestCache()

	c.Set("empty", nil, time.Minute)

	v, ok := c.Get("empty")
	assert.True(t, ok)
	assert.Nil(t, v)

	v, ok = c.Get("absent")
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestCache_ExpiresStrictlyAfterTTL(t *testing.T) {
	c, clock := newTestCache()

	c.Set("k", 42, 2*time.Minute)

	clock.Advance(2 * time.Minute)
	v, ok := c.Get("k")
	require.True(t, ok, "entry must survive until its expiry instant")
	assert.Equal(t, 42, v)

	clock.Advance(time.Nanosecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is deleted on access")
}

func TestCache_SetOverwrites(t *testing.T) {
	c, clock := newTestCache()

	c.Set("k", "first", time.Second)
	c.Set("k", "second", time.Hour)
	clock.Advance(time.Minute)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestCache_SetDoesNotEvictExpired(t *testing.T) {
	c, clock := newTestCache()

	c.Set("old", 1, time.Second)
	clock.Advance(time.Minute)
	c.Set("new", 2, time.Minute)

	assert.Equal(t, 2, c.Len())
}

func TestCache_DeleteAndClear(t *testing.T) {
	c, _ := newTestCache()
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCache_Cleanup(t *testing.T) {
	c, clock := newTestCache()
	c.Set("short", 1, time.Second)
	c.Set("long", 2, time.Hour)

	clock.Advance(time.Minute)
	removed := c.Cleanup()

	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"long"}, c.Keys())
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCache_DeleteMatching(t *testing.T) {
	c, _ := newTestCache()
	c.Set("blogs:list:{}:p1:l6:en", 1, time.Minute)
	c.Set("blogs:list:{}:p2:l6:en", 2, time.Minute)
	c.Set("programs:list:{}:p1:l6:en", 3, time.Minute)

	removed := c.DeleteMatching("blogs")

	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"programs:list:{}:p1:l6:en"}, c.Keys())
}

func TestCache_DeleteMatchingIgnoresEmptyPattern(t *testing.T) {
	c, _ := newTestCache()
	c.Set("a", 1, time.Minute)

	assert.Equal(t, 0, c.DeleteMatching(""))
	assert.Equal(t, 1, c.Len())
}

func TestCache_Stats(t *testing.T) {
	c, _ := newTestCache()
	c.Set("a", 1, time.Minute)

	c.Get("a")
	c.Get("a")
	c.Get("missing")

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestPurger_StopsOnCancel(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	c, clock := newTestCache()
	c.Set("stale", 1, time.Millisecond)
	clock.Advance(time.Second)

	p := NewPurger(logger, c, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purger did not stop after cancel")
	}
	assert.Equal(t, "Stopping cache purger", hook.LastEntry().Message)
}
