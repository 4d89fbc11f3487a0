package domain

import "context"

// ContextRetriever fetches a bounded excerpt of grounding text relevant to a
// query from a previously-registered document.
//
// An empty excerpt with a nil error is a valid miss. Backend failures wrap
// ErrRetrievalUnavailable. Callers must skip the call entirely when the
// persona carries no document handle.
type ContextRetriever interface {
	Retrieve(ctx context.Context, documentHandle string, query string) (string, error)
}
