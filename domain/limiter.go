package domain

import "time"

// RateLimiter answers whether a given identifier may proceed now.
//
// Implementations are shared across concurrent requests and must be safe for
// concurrent calls with the same or different identifiers. When the answer is
// false, retryAfter is how long the caller should wait before the identifier
// is admitted again.
type RateLimiter interface {
	Allow(identifier string) (allowed bool, retryAfter time.Duration)
}
