package ratelimit

import (
	"sync"
	"time"

	"github.com/companionkit/agentic/domain"
)

// SlidingWindow admits up to limit calls per identifier within a rolling
// window. Records are created lazily on first use and evicted once an
// identifier has been idle for a full window, so the key space stays bounded.
//
// The critical section only touches in-memory bookkeeping; no I/O happens
// under the lock.
type SlidingWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry

	done      chan struct{}
	closeOnce sync.Once
}

type entry struct {
	// stamps holds the admission times still inside the window, oldest first.
	stamps []time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	l := &SlidingWindow{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*entry),
		done:    make(chan struct{}),
	}
	go l.janitor()
	return l
}

// Allow reports whether the identifier may proceed now. When rejected, the
// returned duration is how long until the oldest admission leaves the window.
func (l *SlidingWindow) Allow(identifier string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identifier]
	if !ok {
		e = &entry{}
		l.entries[identifier] = e
	}

	e.expire(now, l.window)

	if len(e.stamps) >= l.limit {
		retryAfter := e.stamps[0].Add(l.window).Sub(now)
		return false, retryAfter
	}

	e.stamps = append(e.stamps, now)
	return true, 0
}

// expire drops stamps that have slid out of the window.
func (e *entry) expire(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(e.stamps) && !e.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		e.stamps = append(e.stamps[:0], e.stamps[i:]...)
	}
}

// Close stops the janitor goroutine. Safe to call more than once.
func (l *SlidingWindow) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
}

// janitor periodically evicts identifiers whose stamps have all expired.
// It runs until Close.
func (l *SlidingWindow) janitor() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		case <-l.done:
			return
		}
		now := l.now()
		l.mu.Lock()
		for id, e := range l.entries {
			e.expire(now, l.window)
			if len(e.stamps) == 0 {
				delete(l.entries, id)
			}
		}
		l.mu.Unlock()
	}
}

var _ domain.RateLimiter = (*SlidingWindow)(nil)
