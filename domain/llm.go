package domain

import "context"

// CompletionClient abstracts a language-model backend that maps an ordered
// message sequence to generated text.
//
// The pipeline supplies exactly two messages (system then user), but
// implementations must accept any ordered sequence so multi-turn history can
// be layered on later without an interface change. Implementations never
// retry; errors are classified through the Completion* sentinels in errors.go.
type CompletionClient interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}
