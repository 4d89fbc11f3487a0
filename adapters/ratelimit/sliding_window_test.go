package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fixedClock lets tests move time deterministically.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*SlidingWindow, *fixedClock) {
	t.Helper()
	clock := &fixedClock{now: time.Unix(1700000000, 0)}
	l := NewSlidingWindow(limit, window)
	l.now = clock.Now
	t.Cleanup(l.Close)
	return l, clock
}

func TestAllowUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(t, 3, 10*time.Second)

	for i := 0; i < 3; i++ {
		allowed, retryAfter := l.Allow("key")
		assert.True(t, allowed, "call %d should be admitted", i)
		assert.Zero(t, retryAfter)
	}

	allowed, retryAfter := l.Allow("key")
	assert.False(t, allowed)
	assert.Equal(t, 10*time.Second, retryAfter)
}

func TestWindowSlides(t *testing.T) {
	l, clock := newTestLimiter(t, 2, 10*time.Second)

	allowed, _ := l.Allow("key")
	require.True(t, allowed)

	clock.Advance(4 * time.Second)
	allowed, _ = l.Allow("key")
	require.True(t, allowed)

	allowed, retryAfter := l.Allow("key")
	require.False(t, allowed)
	assert.Equal(t, 6*time.Second, retryAfter, "oldest stamp leaves the window in 6s")

	clock.Advance(6 * time.Second)
	allowed, _ = l.Allow("key")
	assert.True(t, allowed, "readmitted once the oldest stamp expired")
}

func TestIdentifiersAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, 1, 10*time.Second)

	allowed, _ := l.Allow("a")
	require.True(t, allowed)

	allowed, _ = l.Allow("b")
	assert.True(t, allowed, "a saturated key must not affect other keys")

	allowed, _ = l.Allow("a")
	assert.False(t, allowed)
}

func TestConcurrentCallersAdmitExactlyLimit(t *testing.T) {
	const limit = 50
	l, _ := newTestLimiter(t, limit, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < limit*4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("shared"); ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, admitted)
}

func TestIdleKeysAreEvicted(t *testing.T) {
	l, clock := newTestLimiter(t, 1, 10*time.Second)

	l.Allow("key")
	clock.Advance(time.Minute)

	now := l.now()
	l.mu.Lock()
	for id, e := range l.entries {
		e.expire(now, l.window)
		if len(e.stamps) == 0 {
			delete(l.entries, id)
		}
	}
	remaining := len(l.entries)
	l.mu.Unlock()

	assert.Zero(t, remaining, "stamps older than the window must be evictable")
}

func TestCloseStopsJanitor(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewSlidingWindow(1, 5*time.Millisecond)
	l.Allow("key")
	l.Close()
	l.Close() // idempotent
}
