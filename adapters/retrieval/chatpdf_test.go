package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/companionkit/agentic/config"
	"github.com/companionkit/agentic/domain"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.Retrieval{
		APIKey:  "secret-key",
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	})
}

func TestRetrieveSendsExpectedRequest(t *testing.T) {
	var captured retrieveRequest
	var apiKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chats/message", r.URL.Path)
		apiKey = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(retrieveResponse{Content: "Chapter 3: prioritize by importance..."})
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).Retrieve(context.Background(), "doc1", "How do I manage my time?")
	require.NoError(t, err)
	assert.Equal(t, "Chapter 3: prioritize by importance...", text)

	assert.Equal(t, "secret-key", apiKey)
	assert.Equal(t, "cha_doc1", captured.SourceID)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, domain.UserRole, captured.Messages[0].Role)
	assert.Equal(t, "How do I manage my time?", captured.Messages[0].Content)
}

func TestRetrieveKeepsExistingPrefix(t *testing.T) {
	var captured retrieveRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(retrieveResponse{})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Retrieve(context.Background(), "cha_doc1", "q")
	require.NoError(t, err)
	assert.Equal(t, "cha_doc1", captured.SourceID)
}

func TestRetrieveEmptyContentIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(retrieveResponse{Content: ""})
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).Retrieve(context.Background(), "doc1", "q")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestRetrieveBackendErrorWrapsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "source not ready", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Retrieve(context.Background(), "doc1", "q")
	require.ErrorIs(t, err, domain.ErrRetrievalUnavailable)
	assert.Contains(t, err.Error(), "source not ready", "backend detail surfaces in the chain")
}

func TestRetrieveTransportErrorWrapsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestClient(srv.URL).Retrieve(context.Background(), "doc1", "q")
	require.ErrorIs(t, err, domain.ErrRetrievalUnavailable)
}
