package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/companionkit/agentic/config"
	"github.com/companionkit/agentic/domain"
)

const sourceIDPrefix = "cha_"

// Client retrieves grounding context from a ChatPDF-style backend. The query
// is sent as a single user message against a registered source document; the
// backend answers with a bounded excerpt of relevant text.
type Client struct {
	cfg        config.Retrieval
	httpClient *http.Client
}

func NewClient(cfg config.Retrieval) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type retrieveRequest struct {
	SourceID string               `json:"sourceId"`
	Messages []domain.ChatMessage `json:"messages"`
}

type retrieveResponse struct {
	Content string `json:"content"`
}

// Retrieve asks the backend for an excerpt relevant to the query. An empty
// excerpt is a valid miss, not an error. Every backend failure wraps
// domain.ErrRetrievalUnavailable so the pipeline can classify it.
func (c *Client) Retrieve(ctx context.Context, documentHandle string, query string) (string, error) {
	body, err := json.Marshal(retrieveRequest{
		SourceID: formatSourceID(documentHandle),
		Messages: []domain.ChatMessage{
			{Role: domain.UserRole, Content: query},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %v", domain.ErrRetrievalUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chats/message", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: building request: %v", domain.ErrRetrievalUnavailable, err)
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRetrievalUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrRetrievalUnavailable, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed retrieveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", domain.ErrRetrievalUnavailable, err)
	}

	return parsed.Content, nil
}

// formatSourceID applies the backend's source-id prefix convention; persona
// profiles store the handle without it.
func formatSourceID(handle string) string {
	if strings.HasPrefix(handle, sourceIDPrefix) {
		return handle
	}
	return sourceIDPrefix + handle
}

var _ domain.ContextRetriever = (*Client)(nil)
