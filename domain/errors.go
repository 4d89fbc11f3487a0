package domain

import (
	"errors"
	"fmt"
	"time"
)

// Stable error kinds for the conversation pipeline. Adapters wrap these with
// fmt.Errorf("...: %w", ...) so callers can classify with errors.Is while the
// underlying cause stays in the chain.
var (
	// ErrQuotaExceeded rejects a request before any external call is made.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrPersonaNotFound means no persona profile exists for the given id.
	ErrPersonaNotFound = errors.New("persona not found")

	// ErrRetrievalUnavailable wraps any failure of the retrieval backend.
	ErrRetrievalUnavailable = errors.New("retrieval backend unavailable")

	// Completion backend failure classes.
	ErrCompletionAuth        = errors.New("completion backend rejected credentials")
	ErrCompletionRateLimited = errors.New("completion backend rate limited")
	ErrCompletionTimeout     = errors.New("completion backend timed out")
	ErrCompletionUnavailable = errors.New("completion backend unavailable")
	ErrCompletionMalformed   = errors.New("completion backend returned malformed response")

	// ErrPersistence marks a failed conversation-store append.
	ErrPersistence = errors.New("persistence failure")
)

// QuotaExceededError carries how long the caller should wait before the same
// identifier is admitted again. errors.Is(err, ErrQuotaExceeded) holds.
type QuotaExceededError struct {
	RetryAfter time.Duration
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded, retry after %s", e.RetryAfter)
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

